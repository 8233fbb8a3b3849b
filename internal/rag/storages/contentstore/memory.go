package contentstore

import (
	"context"
	"sync"

	"planform/internal/rag/interfaces"
)

// MemoryStore is a thread-safe in-memory content store.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]string)}
}

// Set stores raw content keyed by content id.
func (s *MemoryStore) Set(ctx context.Context, entries map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, content := range entries {
		s.entries[id] = content
	}
	return nil
}

// Get returns the entries found for the given ids. Missing ids are simply
// absent from the result.
func (s *MemoryStore) Get(ctx context.Context, ids []string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]string)
	for _, id := range ids {
		if content, ok := s.entries[id]; ok {
			result[id] = content
		}
	}
	return result, nil
}

var _ interfaces.ContentStore = (*MemoryStore)(nil)
