package summarize

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"planform/internal/rag/schema"
	"planform/pkg/logger"
)

type fakeLLM struct {
	mu       sync.Mutex
	response string
	err      error
	calls    int
}

func (f *fakeLLM) Complete(ctx context.Context, prompt string, images [][]byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func testLogger() *logger.Logger { return logger.New("test", "") }

func TestSummarize_ShortTextSkipsModel(t *testing.T) {
	llm := &fakeLLM{response: "should not be used"}
	s := NewLLMSummarizer(llm, llm, 500, 2, testLogger())

	docs, err := s.Summarize(context.Background(), []*schema.ContentUnit{
		{Kind: schema.KindText, Text: "short passage", Page: 1},
	})
	require.NoError(t, err)
	require.Len(t, docs, 1)

	assert.Equal(t, "short passage", docs[0].Synopsis)
	assert.Equal(t, "short passage", docs[0].Content)
	assert.Zero(t, llm.calls)
}

func TestSummarize_LongTextUsesModel(t *testing.T) {
	llm := &fakeLLM{response: "dense synopsis"}
	s := NewLLMSummarizer(llm, llm, 10, 2, testLogger())

	longText := strings.Repeat("market data ", 20)
	docs, err := s.Summarize(context.Background(), []*schema.ContentUnit{
		{Kind: schema.KindText, Text: longText, Page: 1},
	})
	require.NoError(t, err)
	require.Len(t, docs, 1)

	assert.Equal(t, "dense synopsis", docs[0].Synopsis)
	assert.Equal(t, longText, docs[0].Content)
	assert.Equal(t, 1, llm.calls)
}

func TestSummarize_TextFailureFallsBackToExcerpt(t *testing.T) {
	llm := &fakeLLM{err: errors.New("rate limited")}
	s := NewLLMSummarizer(llm, llm, 10, 2, testLogger())

	longText := strings.Repeat("x", 100)
	docs, err := s.Summarize(context.Background(), []*schema.ContentUnit{
		{Kind: schema.KindText, Text: longText, Page: 1},
	})
	require.NoError(t, err)
	require.Len(t, docs, 1)

	assert.Equal(t, strings.Repeat("x", 10), docs[0].Synopsis)
	assert.Equal(t, longText, docs[0].Content)
}

func TestSummarize_ImageDescribed(t *testing.T) {
	dir := t.TempDir()
	imgPath := filepath.Join(dir, "page_1_full.png")
	require.NoError(t, os.WriteFile(imgPath, []byte{0x89, 0x50, 0x4E, 0x47}, 0o644))

	llm := &fakeLLM{response: "a bar chart of revenue"}
	s := NewLLMSummarizer(llm, llm, 500, 2, testLogger())

	docs, err := s.Summarize(context.Background(), []*schema.ContentUnit{
		{Kind: schema.KindImage, ImagePath: imgPath, Page: 1},
	})
	require.NoError(t, err)
	require.Len(t, docs, 1)

	assert.Equal(t, "a bar chart of revenue", docs[0].Synopsis)
	assert.Equal(t, imgPath, docs[0].Content)
}

func TestSummarize_ImageFailureDropsUnit(t *testing.T) {
	dir := t.TempDir()
	imgPath := filepath.Join(dir, "page_1_full.png")
	require.NoError(t, os.WriteFile(imgPath, []byte{0x89}, 0o644))

	llm := &fakeLLM{err: errors.New("model refused")}
	s := NewLLMSummarizer(llm, llm, 500, 2, testLogger())

	docs, err := s.Summarize(context.Background(), []*schema.ContentUnit{
		{Kind: schema.KindImage, ImagePath: imgPath, Page: 1},
		{Kind: schema.KindText, Text: "kept", Page: 2},
	})
	require.NoError(t, err)

	// The failed image vanishes, the text survives and order holds.
	require.Len(t, docs, 1)
	assert.Equal(t, "kept", docs[0].Content)
}

func TestSummarize_MissingImageFileDropsUnit(t *testing.T) {
	llm := &fakeLLM{response: "unused"}
	s := NewLLMSummarizer(llm, llm, 500, 2, testLogger())

	docs, err := s.Summarize(context.Background(), []*schema.ContentUnit{
		{Kind: schema.KindImage, ImagePath: "/nonexistent/page_1_full.png", Page: 1},
	})
	require.NoError(t, err)
	assert.Empty(t, docs)
	assert.Zero(t, llm.calls)
}

func TestSummarize_RoutesUnitsToTheirModel(t *testing.T) {
	dir := t.TempDir()
	imgPath := filepath.Join(dir, "page_1_full.png")
	require.NoError(t, os.WriteFile(imgPath, []byte{0x89, 0x50, 0x4E, 0x47}, 0o644))

	textLLM := &fakeLLM{response: "text synopsis"}
	visionLLM := &fakeLLM{response: "image description"}
	s := NewLLMSummarizer(textLLM, visionLLM, 10, 2, testLogger())

	docs, err := s.Summarize(context.Background(), []*schema.ContentUnit{
		{Kind: schema.KindText, Text: strings.Repeat("y", 50), Page: 1},
		{Kind: schema.KindImage, ImagePath: imgPath, Page: 2},
	})
	require.NoError(t, err)
	require.Len(t, docs, 2)

	assert.Equal(t, "text synopsis", docs[0].Synopsis)
	assert.Equal(t, "image description", docs[1].Synopsis)
	assert.Equal(t, 1, textLLM.calls, "text passages never hit the vision model")
	assert.Equal(t, 1, visionLLM.calls)
}

func TestSummarize_PreservesUnitOrder(t *testing.T) {
	llm := &fakeLLM{response: "synopsis"}
	s := NewLLMSummarizer(llm, llm, 500, 4, testLogger())

	units := []*schema.ContentUnit{
		{Kind: schema.KindText, Text: "first", Page: 1},
		{Kind: schema.KindText, Text: "second", Page: 2},
		{Kind: schema.KindText, Text: "third", Page: 3},
	}
	docs, err := s.Summarize(context.Background(), units)
	require.NoError(t, err)
	require.Len(t, docs, 3)

	assert.Equal(t, "first", docs[0].Content)
	assert.Equal(t, "second", docs[1].Content)
	assert.Equal(t, "third", docs[2].Content)
}
