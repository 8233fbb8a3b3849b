package vectorstore

import (
	"context"
	"sort"
	"sync"

	"planform/internal/embedding"
	"planform/internal/rag/interfaces"
	"planform/internal/rag/schema"
)

// MemoryStore is a brute-force in-memory vector store. It serves local runs
// and tests; ordering matches Milvus cosine ranking on normalized inputs.
type MemoryStore struct {
	mu   sync.RWMutex
	docs []*schema.Document
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

// Add copies the documents into the store.
func (s *MemoryStore) Add(ctx context.Context, docs []*schema.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, doc := range docs {
		clone := *doc
		s.docs = append(s.docs, &clone)
	}
	return nil
}

// Query scans all stored vectors and returns the topK by cosine similarity.
func (s *MemoryStore) Query(ctx context.Context, query []float32, topK int) ([]*schema.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type scored struct {
		doc   *schema.Document
		score float32
	}
	candidates := make([]scored, 0, len(s.docs))
	for _, doc := range s.docs {
		candidates = append(candidates, scored{doc: doc, score: float32(embedding.Cosine(query, doc.Embedding))})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	if topK > len(candidates) {
		topK = len(candidates)
	}
	results := make([]*schema.Document, 0, topK)
	for _, c := range candidates[:topK] {
		results = append(results, &schema.Document{
			ID:       c.doc.ID,
			Synopsis: c.doc.Synopsis,
			Score:    c.score,
		})
	}
	return results, nil
}

var _ interfaces.VectorStore = (*MemoryStore)(nil)
