package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"planform/internal/rag/fanout"
	"planform/internal/rag/schema"
	"planform/pkg/logger"
)

type fakeExtractor struct {
	calls int
	err   error
}

func (f *fakeExtractor) Extract(_ context.Context, pdfPath, _ string) ([]*schema.ContentUnit, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []*schema.ContentUnit{
		{Kind: schema.KindText, Text: "extracted from " + filepath.Base(pdfPath), Page: 1, Source: "pdf"},
	}, nil
}

type fakeSummarizer struct{}

func (fakeSummarizer) Summarize(_ context.Context, units []*schema.ContentUnit) ([]*schema.Document, error) {
	docs := make([]*schema.Document, 0, len(units))
	for _, unit := range units {
		docs = append(docs, &schema.Document{Synopsis: unit.Text, Content: unit.Text})
	}
	return docs, nil
}

type fakeIndex struct {
	docs []*schema.Document
}

func (f *fakeIndex) AddBatch(_ context.Context, docs []*schema.Document) error {
	f.docs = append(f.docs, docs...)
	return nil
}

func (f *fakeIndex) Search(_ context.Context, _ string, topK int) ([]*schema.Document, error) {
	if topK > len(f.docs) {
		topK = len(f.docs)
	}
	return f.docs[:topK], nil
}

func testOutline() *fanout.Outline {
	return &fanout.Outline{Sections: []fanout.Section{
		{ID: "s1", Name: "Problem", Subsections: []fanout.Subsection{
			{ID: "s1-1", Name: "Background", Order: 1, MinChar: 300, MaxChar: 800},
		}},
	}}
}

func writeDocFolder(t *testing.T, dataDir, name string, withPDF bool) string {
	t.Helper()
	dir := filepath.Join(dataDir, name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	if withPDF {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "plan.pdf"), []byte("%PDF-1.4"), 0o644))
	}
	return dir
}

func newTestOrchestrator(extractor *fakeExtractor, factory IndexFactory) *Orchestrator {
	if factory == nil {
		factory = func(context.Context, string) (Indexer, error) { return &fakeIndex{}, nil }
	}
	return NewOrchestrator(extractor, fakeSummarizer{}, factory, 3, 3, logger.New("test", ""))
}

func TestProcessDocument_WritesRetrievalResults(t *testing.T) {
	dataDir := t.TempDir()
	docDir := writeDocFolder(t, dataDir, "doc-a", true)

	extractor := &fakeExtractor{}
	o := newTestOrchestrator(extractor, nil)

	require.NoError(t, o.ProcessDocument(context.Background(), docDir, testOutline()))

	_, err := os.Stat(filepath.Join(docDir, "retrieval_results", "s1-1.json"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(docDir, "retrieval_results", "_summary.json"))
	assert.NoError(t, err)
}

func TestProcessDocument_SkipsCompletedRun(t *testing.T) {
	dataDir := t.TempDir()
	docDir := writeDocFolder(t, dataDir, "doc-a", true)

	outputDir := filepath.Join(docDir, "retrieval_results")
	require.NoError(t, os.MkdirAll(outputDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(outputDir, "_summary.json"), []byte("{}"), 0o644))

	extractor := &fakeExtractor{}
	o := newTestOrchestrator(extractor, nil)

	err := o.ProcessDocument(context.Background(), docDir, testOutline())
	assert.ErrorIs(t, err, ErrOutputExists)
	assert.Zero(t, extractor.calls, "a completed folder is never re-extracted")
}

func TestProcessDocument_NoPDF(t *testing.T) {
	dataDir := t.TempDir()
	docDir := writeDocFolder(t, dataDir, "doc-a", false)

	o := newTestOrchestrator(&fakeExtractor{}, nil)
	err := o.ProcessDocument(context.Background(), docDir, testOutline())
	assert.ErrorIs(t, err, ErrNoPDF)
}

func TestRunBatch_OneFailureDoesNotAbortOthers(t *testing.T) {
	dataDir := t.TempDir()
	writeDocFolder(t, dataDir, "doc-a", true)
	writeDocFolder(t, dataDir, "doc-b", true)

	// doc-a comes first lexically and is made to fail; doc-b must still
	// process.
	failing := errors.New("index unavailable")
	first := true
	factory := func(_ context.Context, _ string) (Indexer, error) {
		if first {
			first = false
			return nil, failing
		}
		return &fakeIndex{}, nil
	}

	o := newTestOrchestrator(&fakeExtractor{}, factory)
	result, err := o.RunBatch(context.Background(), dataDir, testOutline())
	require.NoError(t, err)

	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 1, result.Processed)
	assert.Equal(t, 0, result.Skipped)
	assert.Equal(t, 1, result.Failed)
}

func TestRunBatch_Tallies(t *testing.T) {
	dataDir := t.TempDir()
	writeDocFolder(t, dataDir, "doc-a", true)
	completed := writeDocFolder(t, dataDir, "doc-b", true)
	writeDocFolder(t, dataDir, "doc-c", false)

	outputDir := filepath.Join(completed, "retrieval_results")
	require.NoError(t, os.MkdirAll(outputDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(outputDir, "_summary.json"), []byte("{}"), 0o644))

	o := newTestOrchestrator(&fakeExtractor{}, nil)
	result, err := o.RunBatch(context.Background(), dataDir, testOutline())
	require.NoError(t, err)

	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 1, result.Processed)
	assert.Equal(t, 1, result.Skipped, "only a completed run is a skip")
	assert.Equal(t, 1, result.Failed, "a folder without a PDF is a failure")
}

func TestFindPDF_LexicallyFirstCaseInsensitive(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "B-plan.PDF"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a-notes.txt"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "c-plan.pdf"), nil, 0o644))

	o := newTestOrchestrator(&fakeExtractor{}, nil)
	path, err := o.findPDF(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "B-plan.PDF"), path)
}
