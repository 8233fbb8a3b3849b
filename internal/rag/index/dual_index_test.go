package index

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"planform/internal/rag/schema"
	"planform/internal/rag/storages/contentstore"
	"planform/internal/rag/storages/vectorstore"
	"planform/pkg/logger"
)

type fakeEmbedder struct{}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return embed(text), nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = embed(t)
	}
	return out, nil
}

// embed produces a crude but deterministic vector from the text.
func embed(text string) []float32 {
	vec := make([]float32, 8)
	for i, r := range text {
		vec[i%8] += float32(r)
	}
	return vec
}

type failingContentStore struct{}

func (f *failingContentStore) Set(ctx context.Context, entries map[string]string) error {
	return errors.New("store unavailable")
}

func (f *failingContentStore) Get(ctx context.Context, ids []string) (map[string]string, error) {
	return nil, errors.New("store unavailable")
}

func testLogger() *logger.Logger { return logger.New("test", "") }

func TestAddBatch_AssignsIDsAndWritesBothStores(t *testing.T) {
	vectors := vectorstore.NewMemoryStore()
	contents := contentstore.NewMemoryStore()
	idx := NewDualIndex(&fakeEmbedder{}, vectors, contents, testLogger())

	docs := []*schema.Document{
		{Synopsis: "alpha synopsis", Content: "alpha raw content"},
		{Synopsis: "beta synopsis", Content: "beta raw content"},
	}
	require.NoError(t, idx.AddBatch(context.Background(), docs))

	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		require.NotEmpty(t, doc.ID)
		require.NotEmpty(t, doc.Embedding)
		ids = append(ids, doc.ID)
	}
	assert.NotEqual(t, ids[0], ids[1])

	// Every vector-store id has a matching content-store entry.
	stored, err := contents.Get(context.Background(), ids)
	require.NoError(t, err)
	assert.Equal(t, "alpha raw content", stored[ids[0]])
	assert.Equal(t, "beta raw content", stored[ids[1]])
}

func TestSearch_ResolvesContent(t *testing.T) {
	vectors := vectorstore.NewMemoryStore()
	contents := contentstore.NewMemoryStore()
	idx := NewDualIndex(&fakeEmbedder{}, vectors, contents, testLogger())

	docs := []*schema.Document{
		{Synopsis: "growth strategy overview", Content: "full growth chapter"},
		{Synopsis: "team composition", Content: "full team chapter"},
	}
	require.NoError(t, idx.AddBatch(context.Background(), docs))

	results, err := idx.Search(context.Background(), "growth strategy overview", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "full growth chapter", results[0].Content)
}

func TestSearch_SkipsIdsWithoutContent(t *testing.T) {
	vectors := vectorstore.NewMemoryStore()
	contents := contentstore.NewMemoryStore()
	idx := NewDualIndex(&fakeEmbedder{}, vectors, contents, testLogger())

	docs := []*schema.Document{
		{Synopsis: "kept entry", Content: "kept content"},
		{Synopsis: "orphaned entry", Content: "orphaned content"},
	}
	require.NoError(t, idx.AddBatch(context.Background(), docs))

	// Desync the stores: drop one id from the content side only.
	orphan := contentstore.NewMemoryStore()
	require.NoError(t, orphan.Set(context.Background(), map[string]string{docs[0].ID: docs[0].Content}))
	idx.contents = orphan

	results, err := idx.Search(context.Background(), "entry", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, docs[0].ID, results[0].ID)
}

func TestSearch_EmptyIndex(t *testing.T) {
	idx := NewDualIndex(&fakeEmbedder{}, vectorstore.NewMemoryStore(), contentstore.NewMemoryStore(), testLogger())

	results, err := idx.Search(context.Background(), "anything", 3)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestAddBatch_PartialFailureReturnsError(t *testing.T) {
	idx := NewDualIndex(&fakeEmbedder{}, vectorstore.NewMemoryStore(), &failingContentStore{}, testLogger())

	err := idx.AddBatch(context.Background(), []*schema.Document{
		{Synopsis: "doomed", Content: "doomed"},
	})
	assert.Error(t, err)
}
