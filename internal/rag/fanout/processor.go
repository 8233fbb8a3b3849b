package fanout

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"planform/internal/rag/schema"
	"planform/pkg/logger"
)

// Searcher answers retrieval queries against an indexed document.
type Searcher interface {
	Search(ctx context.Context, query string, topK int) ([]*schema.Document, error)
}

// RetrievedContext is one ranked context in a subsection record.
type RetrievedContext struct {
	Rank    int    `json:"rank"`
	Type    string `json:"type"`
	Content string `json:"content"`
}

// SubsectionRecord is the per-subsection output written next to the indexed
// document.
type SubsectionRecord struct {
	SubsectionID   string             `json:"subsection_id"`
	SubsectionName string             `json:"subsection_name"`
	SectionID      string             `json:"section_id"`
	SectionName    string             `json:"section_name"`
	Order          int                `json:"order"`
	MaxChar        int                `json:"maxChar"`
	MinChar        int                `json:"minChar"`
	Query          string             `json:"query"`
	RetrievedCount int                `json:"retrieved_count"`
	Contexts       []RetrievedContext `json:"contexts"`
}

// SummaryEntry describes one processed subsection in the run summary.
type SummaryEntry struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	ContextsCount int    `json:"contexts_count"`
	OutputFile    string `json:"output_file"`
}

// RunSummary is written as _summary.json once the fan-out completes.
type RunSummary struct {
	TotalSubsections int            `json:"total_subsections"`
	Processed        int            `json:"processed"`
	OutputDirectory  string         `json:"output_directory"`
	Subsections      []SummaryEntry `json:"subsections"`
}

// Processor fans a document's index out over every enabled subsection of an
// outline. Raw candidates are over-fetched so that image-heavy results still
// leave enough text contexts after filtering.
type Processor struct {
	searcher   Searcher
	log        *logger.Logger
	topK       int
	multiplier int
}

// NewProcessor creates a fan-out processor. topK is the number of contexts
// kept per subsection and multiplier scales the raw fetch size.
func NewProcessor(searcher Searcher, topK, multiplier int, log *logger.Logger) *Processor {
	if topK < 1 {
		topK = 1
	}
	if multiplier < 1 {
		multiplier = 1
	}
	return &Processor{searcher: searcher, log: log, topK: topK, multiplier: multiplier}
}

// Run retrieves contexts for every job and writes one JSON record per
// subsection into outputDir, followed by a _summary.json. Each record is
// written as soon as its retrieval finishes, so a failure partway through
// loses nothing already done. A failed subsection is logged and skipped.
func (p *Processor) Run(ctx context.Context, jobs []Job, outputDir string) (*RunSummary, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", outputDir, err)
	}

	summary := &RunSummary{
		TotalSubsections: len(jobs),
		OutputDirectory:  outputDir,
		Subsections:      []SummaryEntry{},
	}

	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record, err := p.processJob(ctx, job)
		if err != nil {
			p.log.Error(fmt.Sprintf("Retrieval failed for subsection %s, skipping: %v", job.SubsectionID, err))
			continue
		}

		outputFile := filepath.Join(outputDir, job.SubsectionID+".json")
		if err := writeJSON(outputFile, record); err != nil {
			p.log.Error(fmt.Sprintf("Failed to write record for subsection %s, skipping: %v", job.SubsectionID, err))
			continue
		}

		summary.Processed++
		summary.Subsections = append(summary.Subsections, SummaryEntry{
			ID:            job.SubsectionID,
			Name:          job.SubsectionName,
			ContextsCount: len(record.Contexts),
			OutputFile:    outputFile,
		})
	}

	if err := writeJSON(filepath.Join(outputDir, "_summary.json"), summary); err != nil {
		return nil, fmt.Errorf("failed to write run summary: %w", err)
	}
	return summary, nil
}

func (p *Processor) processJob(ctx context.Context, job Job) (*SubsectionRecord, error) {
	query := job.SubsectionName

	docs, err := p.searcher.Search(ctx, query, p.topK*p.multiplier)
	if err != nil {
		return nil, err
	}

	record := &SubsectionRecord{
		SubsectionID:   job.SubsectionID,
		SubsectionName: job.SubsectionName,
		SectionID:      job.SectionID,
		SectionName:    job.SectionName,
		Order:          job.Order,
		MaxChar:        job.MaxChar,
		MinChar:        job.MinChar,
		Query:          query,
		Contexts:       []RetrievedContext{},
	}

	var firstImage *schema.Content
	for _, doc := range docs {
		content := schema.Classify(doc.Content)
		if content.Kind != schema.KindText {
			if firstImage == nil {
				c := content
				firstImage = &c
			}
			continue
		}
		record.Contexts = append(record.Contexts, RetrievedContext{
			Rank:    len(record.Contexts) + 1,
			Type:    string(content.Kind),
			Content: content.Value,
		})
		if len(record.Contexts) == p.topK {
			break
		}
	}

	// All candidates were images. Keep the best one rather than returning
	// nothing for the subsection.
	if len(record.Contexts) == 0 && firstImage != nil {
		record.Contexts = append(record.Contexts, RetrievedContext{
			Rank:    1,
			Type:    string(firstImage.Kind),
			Content: firstImage.Value,
		})
	}

	// The count reflects what the record carries, not the raw fetch size.
	record.RetrievedCount = len(record.Contexts)

	return record, nil
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
