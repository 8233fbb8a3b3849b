package expert

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"planform/internal/config"
	"planform/internal/report/store"
	"planform/pkg/logger"
)

type fakeLLM struct {
	response string
	err      error
}

func (f *fakeLLM) Complete(_ context.Context, _ string, _ [][]byte) (string, error) {
	return f.response, f.err
}

type fakeEmbedder struct {
	vectors map[string][]float32
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if vec, ok := f.vectors[text]; ok {
		return vec, nil
	}
	return []float32{0, 0, 1}, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i], _ = f.Embed(ctx, text)
	}
	return out, nil
}

type fakeCatalogue struct {
	experts []*store.Expert
	err     error
}

func (f *fakeCatalogue) ListExperts(context.Context) ([]*store.Expert, error) {
	return f.experts, f.err
}

func expertRow(t *testing.T, name string, vec []float32) *store.Expert {
	t.Helper()
	emb, err := store.EncodeEmbedding(vec)
	require.NoError(t, err)
	career, _ := json.Marshal([]string{name + " career"})
	field, _ := json.Marshal([]string{name + " field"})
	return &store.Expert{Name: name, Career: career, Field: field, Embedding: emb}
}

func newTestMatcher(llm *fakeLLM, embedder *fakeEmbedder, cat *fakeCatalogue, threshold float64, topK int) *Matcher {
	cfg := config.ExpertConfig{Keywords: 5, SimilarityThreshold: threshold, TopK: topK}
	return NewMatcher(llm, embedder, cat, cfg, logger.New("test", ""))
}

func TestMatch_ThresholdAndRanking(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"fintech, payments, lending": {1, 0, 0},
	}}
	cat := &fakeCatalogue{experts: []*store.Expert{
		expertRow(t, "close", []float32{0.9, 0.1, 0}),
		expertRow(t, "closer", []float32{1, 0, 0}),
		expertRow(t, "far", []float32{0, 1, 0}),
	}}
	m := newTestMatcher(&fakeLLM{response: "fintech, payments, lending"}, embedder, cat, 0.7, 10)

	matches, err := m.Match(context.Background(), "a lending platform plan")
	require.NoError(t, err)

	require.Len(t, matches, 2, "experts below the similarity cutoff are excluded")
	assert.Equal(t, "closer", matches[0].Name)
	assert.Equal(t, "close", matches[1].Name)
	assert.Greater(t, matches[0].Score, matches[1].Score)
	assert.Equal(t, "fintech, payments, lending", matches[0].Keywords)
	assert.Equal(t, []string{"closer career"}, matches[0].Career)
}

func TestMatch_TopKLimit(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{"kw": {1, 0, 0}}}
	cat := &fakeCatalogue{experts: []*store.Expert{
		expertRow(t, "a", []float32{1, 0, 0}),
		expertRow(t, "b", []float32{0.99, 0.01, 0}),
		expertRow(t, "c", []float32{0.98, 0.02, 0}),
	}}
	m := newTestMatcher(&fakeLLM{response: "kw"}, embedder, cat, 0.5, 2)

	matches, err := m.Match(context.Background(), "plan")
	require.NoError(t, err)
	assert.Len(t, matches, 2)
}

func TestMatch_SkipsBadEmbeddings(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{"kw": {1, 0, 0}}}
	broken := &store.Expert{Name: "broken", Embedding: []byte("not json")}
	cat := &fakeCatalogue{experts: []*store.Expert{broken, expertRow(t, "ok", []float32{1, 0, 0})}}
	m := newTestMatcher(&fakeLLM{response: "kw"}, embedder, cat, 0.5, 10)

	matches, err := m.Match(context.Background(), "plan")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "ok", matches[0].Name)
}

func TestMatch_EmptyKeywords(t *testing.T) {
	m := newTestMatcher(&fakeLLM{response: "   "}, &fakeEmbedder{}, &fakeCatalogue{}, 0.5, 10)
	_, err := m.Match(context.Background(), "plan")
	assert.Error(t, err)
}

func TestMatch_KeywordExtractionFailure(t *testing.T) {
	m := newTestMatcher(&fakeLLM{err: errors.New("model unavailable")}, &fakeEmbedder{}, &fakeCatalogue{}, 0.5, 10)
	_, err := m.Match(context.Background(), "plan")
	assert.Error(t, err)
}
