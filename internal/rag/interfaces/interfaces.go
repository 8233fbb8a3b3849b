package interfaces

import (
	"context"

	"planform/internal/rag/schema"
)

// Extractor turns a source document into an ordered list of content units.
type Extractor interface {
	Extract(ctx context.Context, pdfPath, imagesDir string) ([]*schema.ContentUnit, error)
}

// Summarizer produces a retrieval synopsis for each unit. Units whose
// synopsis cannot be produced and has no fallback are dropped; the returned
// documents carry both the synopsis and the raw content to store.
type Summarizer interface {
	Summarize(ctx context.Context, units []*schema.ContentUnit) ([]*schema.Document, error)
}

// VectorStore stores synopsis embeddings and answers nearest-neighbor
// queries. Query results carry IDs and scores; the raw content lives in the
// ContentStore.
type VectorStore interface {
	Add(ctx context.Context, docs []*schema.Document) error
	Query(ctx context.Context, embedding []float32, topK int) ([]*schema.Document, error)
}

// ContentStore stores raw content keyed by content id.
type ContentStore interface {
	Set(ctx context.Context, entries map[string]string) error
	Get(ctx context.Context, ids []string) (map[string]string, error)
}

// EmbeddingModel is the interface for a text embedding model.
type EmbeddingModel interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// LLM is the generation interface the pipeline depends on.
type LLM interface {
	Complete(ctx context.Context, prompt string, images [][]byte) (string, error)
}
