package vectorstore

import (
	"context"
	"fmt"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"planform/internal/database/milvus"
	"planform/internal/rag/interfaces"
	"planform/internal/rag/schema"
	"planform/pkg/logger"
)

const (
	FieldID        = "id"
	FieldSynopsis  = "synopsis"
	FieldEmbedding = "embedding"
)

// MilvusStore implements VectorStore on a single Milvus collection.
type MilvusStore struct {
	log        *logger.Logger
	client     client.Client
	collection string
}

// NewMilvusStore ensures the collection exists and returns a store bound to
// it.
func NewMilvusStore(ctx context.Context, mc *milvus.Client, collection string, log *logger.Logger) (*MilvusStore, error) {
	if mc == nil || mc.Client == nil {
		return nil, fmt.Errorf("milvus client is not initialized")
	}
	if err := mc.EnsureCollection(ctx, collection); err != nil {
		return nil, err
	}
	return &MilvusStore{log: log, client: mc.Client, collection: collection}, nil
}

// Add inserts synopsis embeddings keyed by content id.
func (s *MilvusStore) Add(ctx context.Context, docs []*schema.Document) error {
	if len(docs) == 0 {
		return nil
	}

	ids := make([]string, len(docs))
	synopses := make([]string, len(docs))
	embeddings := make([][]float32, len(docs))
	dim := 0
	for i, doc := range docs {
		ids[i] = doc.ID
		synopses[i] = doc.Synopsis
		embeddings[i] = doc.Embedding
		if len(doc.Embedding) > dim {
			dim = len(doc.Embedding)
		}
	}

	idCol := entity.NewColumnVarChar(FieldID, ids)
	synopsisCol := entity.NewColumnVarChar(FieldSynopsis, synopses)
	embeddingCol := entity.NewColumnFloatVector(FieldEmbedding, dim, embeddings)

	s.log.Info(fmt.Sprintf("Inserting %d documents into Milvus collection %s", len(docs), s.collection))
	if _, err := s.client.Insert(ctx, s.collection, "", idCol, synopsisCol, embeddingCol); err != nil {
		return fmt.Errorf("failed to insert into Milvus: %w", err)
	}
	if err := s.client.Flush(ctx, s.collection, false); err != nil {
		return fmt.Errorf("failed to flush Milvus collection %s: %w", s.collection, err)
	}
	return nil
}

// Query runs a nearest-neighbor search and returns ids, synopses and scores.
func (s *MilvusStore) Query(ctx context.Context, embedding []float32, topK int) ([]*schema.Document, error) {
	searchParams, _ := entity.NewIndexIvfFlatSearchParam(10)

	searchResults, err := s.client.Search(
		ctx, s.collection, []string{}, "", []string{FieldID, FieldSynopsis},
		[]entity.Vector{entity.FloatVector(embedding)},
		FieldEmbedding, entity.L2, topK, searchParams,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search Milvus collection %s: %w", s.collection, err)
	}

	var results []*schema.Document
	for _, res := range searchResults {
		findColumn := func(name string) entity.Column {
			for _, field := range res.Fields {
				if field.Name() == name {
					return field
				}
			}
			return nil
		}

		idCol, ok := findColumn(FieldID).(*entity.ColumnVarChar)
		if !ok {
			s.log.Warn("Search result is missing id column, skipping")
			continue
		}
		idData := idCol.Data()

		var synopsisData []string
		if synopsisCol, ok := findColumn(FieldSynopsis).(*entity.ColumnVarChar); ok {
			synopsisData = synopsisCol.Data()
		}

		for i := 0; i < res.ResultCount; i++ {
			doc := &schema.Document{
				ID:    idData[i],
				Score: res.Scores[i],
			}
			if synopsisData != nil {
				doc.Synopsis = synopsisData[i]
			}
			results = append(results, doc)
		}
	}
	return results, nil
}

var _ interfaces.VectorStore = (*MilvusStore)(nil)
