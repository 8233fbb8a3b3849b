package contentstore

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"

	"planform/internal/rag/interfaces"
)

// RedisStore persists raw content in Redis, one key per content id. Entries
// survive process restarts, which the in-memory store cannot offer.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a store whose keys are namespaced by prefix,
// typically the collection name.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(id string) string {
	return fmt.Sprintf("content:%s:%s", s.prefix, id)
}

// Set stores all entries in a single pipeline round trip.
func (s *RedisStore) Set(ctx context.Context, entries map[string]string) error {
	if len(entries) == 0 {
		return nil
	}
	pipe := s.client.Pipeline()
	for id, content := range entries {
		pipe.Set(ctx, s.key(id), content, 0)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store content entries: %w", err)
	}
	return nil
}

// Get fetches the entries found for the given ids. Missing ids are absent
// from the result.
func (s *RedisStore) Get(ctx context.Context, ids []string) (map[string]string, error) {
	if len(ids) == 0 {
		return map[string]string{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.key(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch content entries: %w", err)
	}

	result := make(map[string]string)
	for i, v := range values {
		if v == nil {
			continue
		}
		if content, ok := v.(string); ok {
			result[ids[i]] = content
		}
	}
	return result, nil
}

var _ interfaces.ContentStore = (*RedisStore)(nil)
