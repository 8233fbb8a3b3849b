package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"

	"planform/internal/rag/fanout"
	"planform/internal/rag/index"
	"planform/internal/rag/interfaces"
	"planform/internal/rag/schema"
	"planform/pkg/logger"
)

var (
	// ErrNoPDF is returned when a document folder holds no PDF file.
	ErrNoPDF = errors.New("no pdf found in document folder")

	// ErrOutputExists is returned when a document folder already has a
	// completed retrieval run.
	ErrOutputExists = errors.New("retrieval output already exists")
)

const (
	imagesDirName  = "images"
	outputDirName  = "retrieval_results"
	summaryName    = "_summary.json"
	pdfGlobPattern = "*.pdf"
)

// Indexer is the per-document index a factory produces.
type Indexer interface {
	AddBatch(ctx context.Context, docs []*schema.Document) error
	Search(ctx context.Context, query string, topK int) ([]*schema.Document, error)
}

// IndexFactory builds an index bound to a document's collection name.
type IndexFactory func(ctx context.Context, collection string) (Indexer, error)

// BatchResult summarizes a batch run over a data directory.
type BatchResult struct {
	Total     int
	Processed int
	Skipped   int
	Failed    int
}

// Orchestrator drives the extract, summarize, index and fan-out stages for
// every document folder under a data directory. One document's failure never
// aborts the rest of the batch.
type Orchestrator struct {
	extractor  interfaces.Extractor
	summarizer interfaces.Summarizer
	factory    IndexFactory
	log        *logger.Logger
	topK       int
	multiplier int
	pdfGlob    glob.Glob
}

// NewOrchestrator wires an orchestrator from its stages.
func NewOrchestrator(extractor interfaces.Extractor, summarizer interfaces.Summarizer, factory IndexFactory, topK, multiplier int, log *logger.Logger) *Orchestrator {
	return &Orchestrator{
		extractor:  extractor,
		summarizer: summarizer,
		factory:    factory,
		log:        log,
		topK:       topK,
		multiplier: multiplier,
		pdfGlob:    glob.MustCompile(pdfGlobPattern),
	}
}

// RunBatch processes every document folder under dataDir against the
// outline. Folders already carrying a completed run are skipped; a folder
// without a PDF counts as a failure.
func (o *Orchestrator) RunBatch(ctx context.Context, dataDir string, outline *fanout.Outline) (*BatchResult, error) {
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory %s: %w", dataDir, err)
	}

	entries, err := os.ReadDir(absDataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read data directory %s: %w", absDataDir, err)
	}

	var folders []string
	for _, entry := range entries {
		if entry.IsDir() {
			folders = append(folders, filepath.Join(absDataDir, entry.Name()))
		}
	}
	sort.Strings(folders)

	result := &BatchResult{Total: len(folders)}
	for _, folder := range folders {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		err := o.ProcessDocument(ctx, folder, outline)
		switch {
		case err == nil:
			result.Processed++
		case errors.Is(err, ErrOutputExists):
			o.log.Info(fmt.Sprintf("Skipping %s: %v", folder, err))
			result.Skipped++
		default:
			o.log.Error(fmt.Sprintf("Document %s failed: %v", folder, err))
			result.Failed++
		}
	}

	o.log.Info(fmt.Sprintf("Batch finished: %d processed, %d skipped, %d failed of %d",
		result.Processed, result.Skipped, result.Failed, result.Total))
	return result, nil
}

// ProcessDocument runs the full pipeline for one document folder.
func (o *Orchestrator) ProcessDocument(ctx context.Context, docDir string, outline *fanout.Outline) error {
	absDir, err := filepath.Abs(docDir)
	if err != nil {
		return fmt.Errorf("failed to resolve document folder %s: %w", docDir, err)
	}

	outputDir := filepath.Join(absDir, outputDirName)
	if _, err := os.Stat(filepath.Join(outputDir, summaryName)); err == nil {
		return ErrOutputExists
	}

	pdfPath, err := o.findPDF(absDir)
	if err != nil {
		return err
	}

	units, err := o.extractor.Extract(ctx, pdfPath, filepath.Join(absDir, imagesDirName))
	if err != nil {
		return fmt.Errorf("extraction failed: %w", err)
	}
	if len(units) == 0 {
		return fmt.Errorf("no content extracted from %s", pdfPath)
	}

	docs, err := o.summarizer.Summarize(ctx, units)
	if err != nil {
		return fmt.Errorf("summarization failed: %w", err)
	}
	if len(docs) == 0 {
		return fmt.Errorf("no documents after summarization of %s", pdfPath)
	}

	collection := index.CollectionName(filepath.Base(absDir))
	idx, err := o.factory(ctx, collection)
	if err != nil {
		return fmt.Errorf("failed to build index for collection %s: %w", collection, err)
	}
	if err := idx.AddBatch(ctx, docs); err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	processor := fanout.NewProcessor(idx, o.topK, o.multiplier, o.log)
	if _, err := processor.Run(ctx, outline.Jobs(), outputDir); err != nil {
		return fmt.Errorf("fan-out failed: %w", err)
	}
	return nil
}

// findPDF returns the lexically first PDF in the folder.
func (o *Orchestrator) findPDF(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to read document folder %s: %w", dir, err)
	}

	var matches []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if o.pdfGlob.Match(strings.ToLower(entry.Name())) {
			matches = append(matches, filepath.Join(dir, entry.Name()))
		}
	}
	if len(matches) == 0 {
		return "", ErrNoPDF
	}
	sort.Strings(matches)
	return matches[0], nil
}
