package index

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"planform/internal/rag/interfaces"
	"planform/internal/rag/schema"
	"planform/pkg/logger"
)

// DualIndex joins a vector store over synopsis embeddings with a content
// store holding the raw content. Both stores share freshly minted content
// ids; search resolves ids back to raw content.
type DualIndex struct {
	embedder interfaces.EmbeddingModel
	vectors  interfaces.VectorStore
	contents interfaces.ContentStore
	log      *logger.Logger
}

// NewDualIndex wires an index from its stores.
func NewDualIndex(embedder interfaces.EmbeddingModel, vectors interfaces.VectorStore, contents interfaces.ContentStore, log *logger.Logger) *DualIndex {
	return &DualIndex{embedder: embedder, vectors: vectors, contents: contents, log: log}
}

// AddBatch embeds each document's synopsis, assigns a fresh content id and
// writes both stores concurrently. A partial failure leaves the stores out
// of sync; the condition is logged and the error returned so the caller can
// rebuild the collection.
func (x *DualIndex) AddBatch(ctx context.Context, docs []*schema.Document) error {
	if len(docs) == 0 {
		return nil
	}

	synopses := make([]string, len(docs))
	for i, doc := range docs {
		synopses[i] = doc.Synopsis
	}
	embeddings, err := x.embedder.EmbedBatch(ctx, synopses)
	if err != nil {
		return fmt.Errorf("failed to embed synopses: %w", err)
	}
	if len(embeddings) != len(docs) {
		return fmt.Errorf("expected %d embeddings, got %d", len(docs), len(embeddings))
	}

	entries := make(map[string]string, len(docs))
	for i, doc := range docs {
		doc.ID = uuid.New().String()
		doc.Embedding = embeddings[i]
		entries[doc.ID] = doc.Content
	}

	var vectorErr, contentErr error
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		vectorErr = x.vectors.Add(gctx, docs)
		return vectorErr
	})
	g.Go(func() error {
		contentErr = x.contents.Set(gctx, entries)
		return contentErr
	})
	if err := g.Wait(); err != nil {
		if (vectorErr == nil) != (contentErr == nil) {
			x.log.Warn(fmt.Sprintf("Partial index write, vector and content stores are out of sync: %v", err))
		}
		return fmt.Errorf("failed to write index batch: %w", err)
	}

	x.log.Info(fmt.Sprintf("Indexed %d documents", len(docs)))
	return nil
}

// Search embeds the query, fetches topK synopsis matches and resolves their
// raw content. Ids missing from the content store are logged and skipped, so
// the result may hold fewer than topK documents.
func (x *DualIndex) Search(ctx context.Context, query string, topK int) ([]*schema.Document, error) {
	embedding, err := x.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	matches, err := x.vectors.Query(ctx, embedding, topK)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	if len(matches) == 0 {
		return nil, nil
	}

	ids := make([]string, len(matches))
	for i, m := range matches {
		ids[i] = m.ID
	}
	contents, err := x.contents.Get(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("content lookup failed: %w", err)
	}

	results := make([]*schema.Document, 0, len(matches))
	for _, m := range matches {
		content, ok := contents[m.ID]
		if !ok {
			x.log.Warn(fmt.Sprintf("Content id %s has no stored content, skipping", m.ID))
			continue
		}
		m.Content = content
		results = append(results, m)
	}
	return results, nil
}
