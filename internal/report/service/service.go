package service

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"planform/internal/embedding"
	"planform/internal/models"
	"planform/internal/rag/fanout"
	"planform/internal/rag/interfaces"
	"planform/internal/report/store"
	"planform/pkg/logger"
)

// referenceLimit caps the reference excerpt handed to the model during
// regeneration.
const referenceLimit = 1500

const sectionPrompt = `You are writing one subsection of a business plan.

Business idea: %s
Core value: %s

Subsection: %s (part of %s)
Target length: between %d and %d characters.

Write the subsection in Markdown based strictly on the reference material
below. Do not invent facts that contradict it.

Reference material:
%s`

// Regeneration styles.
const (
	StyleExpand   = "expand"
	StyleCondense = "condense"
	StyleRewrite  = "rewrite"
)

var styleInstructions = map[string]string{
	StyleExpand:   "Expand the draft with more detail and supporting arguments while keeping its structure.",
	StyleCondense: "Condense the draft, keeping every essential point but cutting repetition and filler.",
	StyleRewrite:  "Rewrite the draft from scratch with a fresh structure while covering the same ground.",
}

// Service generates business plan reports from retrieval records.
type Service struct {
	llm      interfaces.LLM
	embedder embedding.Embedding
	reports  *store.ReportDAL
	docs     *store.DocumentDAL
	log      *logger.Logger
	dataDir  string
}

// New creates a report service rooted at dataDir, the directory holding one
// folder per indexed source document.
func New(llm interfaces.LLM, embedder embedding.Embedding, reports *store.ReportDAL, docs *store.DocumentDAL, dataDir string, log *logger.Logger) *Service {
	return &Service{llm: llm, embedder: embedder, reports: reports, docs: docs, dataDir: dataDir, log: log}
}

// Generate produces every subsection of a report from the retrieval records
// of its source document. A subsection whose generation fails is logged and
// skipped; the report fails only when nothing could be generated.
func (s *Service) Generate(ctx context.Context, task models.GenerateReportTask) error {
	if err := s.reports.UpdateStatus(ctx, task.ReportID, store.ReportStatusRunning, ""); err != nil {
		return fmt.Errorf("failed to mark report running: %w", err)
	}

	resultsDir := filepath.Join(s.dataDir, task.FileName, "retrieval_results")
	records, err := loadRecords(resultsDir)
	if err != nil {
		s.fail(ctx, task.ReportID, err)
		return err
	}

	var sections []store.ReportSection
	var documents []store.ReportDocument
	for _, record := range records {
		content, err := s.generateSection(ctx, task, record)
		if err != nil {
			s.log.Warn(fmt.Sprintf("Generation failed for subsection %s, skipping: %v", record.SubsectionID, err))
			continue
		}
		sections = append(sections, store.ReportSection{
			ReportID:       task.ReportID,
			SectionID:      record.SectionID,
			SectionName:    record.SectionName,
			SubsectionID:   record.SubsectionID,
			SubsectionName: record.SubsectionName,
			Order:          record.Order,
			Content:        content,
		})

		if vec, err := s.embedder.Embed(ctx, content); err != nil {
			s.log.Warn(fmt.Sprintf("Embedding failed for subsection %s: %v", record.SubsectionID, err))
		} else if raw, err := store.EncodeEmbedding(vec); err == nil {
			documents = append(documents, store.ReportDocument{
				FileName:       task.FileName,
				SubsectionID:   record.SubsectionID,
				SubsectionName: record.SubsectionName,
				Content:        content,
				Embedding:      raw,
			})
		}
	}

	if len(sections) == 0 {
		err := fmt.Errorf("no subsection could be generated for report %s", task.ReportID)
		s.fail(ctx, task.ReportID, err)
		return err
	}

	if err := s.reports.SaveSections(ctx, task.ReportID, sections); err != nil {
		s.fail(ctx, task.ReportID, err)
		return fmt.Errorf("failed to save report sections: %w", err)
	}
	if err := s.docs.SaveDocuments(ctx, documents); err != nil {
		s.log.Warn(fmt.Sprintf("Failed to store report documents for similarity search: %v", err))
	}

	return s.reports.UpdateStatus(ctx, task.ReportID, store.ReportStatusCompleted, "")
}

func (s *Service) fail(ctx context.Context, reportID string, cause error) {
	if err := s.reports.UpdateStatus(ctx, reportID, store.ReportStatusFailed, cause.Error()); err != nil {
		s.log.Error(fmt.Sprintf("Failed to mark report %s failed: %v", reportID, err))
	}
}

// generateSection writes one subsection and nudges it back into its length
// budget with a single corrective pass when needed.
func (s *Service) generateSection(ctx context.Context, task models.GenerateReportTask, record *fanout.SubsectionRecord) (string, error) {
	prompt := fmt.Sprintf(sectionPrompt,
		task.BusinessIdea, task.CoreValue,
		record.SubsectionName, record.SectionName,
		record.MinChar, record.MaxChar,
		formatContexts(record.Contexts),
	)

	content, err := s.llm.Complete(ctx, prompt, nil)
	if err != nil {
		return "", err
	}

	n := CountChars(content)
	switch {
	case record.MaxChar > 0 && n > record.MaxChar:
		if fixed, err := s.restyle(ctx, content, record, StyleCondense); err == nil {
			content = fixed
		}
	case record.MinChar > 0 && n < record.MinChar:
		if fixed, err := s.restyle(ctx, content, record, StyleExpand); err == nil {
			content = fixed
		}
	}
	return content, nil
}

// Regenerate rewrites one stored subsection in the requested style, using
// the rank-1 retrieval context as reference, and persists the result.
func (s *Service) Regenerate(ctx context.Context, reportID, subsectionID, style string) (string, error) {
	if _, ok := styleInstructions[style]; !ok {
		return "", fmt.Errorf("unknown regeneration style %q", style)
	}

	report, err := s.reports.GetReport(ctx, reportID)
	if err != nil {
		return "", err
	}
	section, err := s.reports.GetSection(ctx, reportID, subsectionID)
	if err != nil {
		return "", err
	}

	record, err := s.loadRecord(report.FileName, subsectionID)
	if err != nil {
		s.log.Warn(fmt.Sprintf("No retrieval record for subsection %s, regenerating without reference: %v", subsectionID, err))
		record = &fanout.SubsectionRecord{SubsectionID: subsectionID, SubsectionName: section.SubsectionName}
	}

	content, err := s.restyleWithRecord(ctx, section.Content, record, style)
	if err != nil {
		return "", err
	}
	if err := s.reports.UpdateSectionContent(ctx, reportID, subsectionID, content); err != nil {
		return "", err
	}
	return content, nil
}

func (s *Service) restyle(ctx context.Context, draft string, record *fanout.SubsectionRecord, style string) (string, error) {
	return s.restyleWithRecord(ctx, draft, record, style)
}

func (s *Service) restyleWithRecord(ctx context.Context, draft string, record *fanout.SubsectionRecord, style string) (string, error) {
	reference := ""
	if len(record.Contexts) > 0 {
		reference = truncateRunes(record.Contexts[0].Content, referenceLimit)
	}

	prompt := fmt.Sprintf(`%s

Subsection: %s
Target length: between %d and %d characters.

Draft:
%s

Reference material:
%s`,
		styleInstructions[style],
		record.SubsectionName,
		record.MinChar, record.MaxChar,
		draft, reference,
	)
	return s.llm.Complete(ctx, prompt, nil)
}

func (s *Service) loadRecord(fileName, subsectionID string) (*fanout.SubsectionRecord, error) {
	resultsDir := filepath.Join(s.dataDir, fileName, "retrieval_results")
	records, err := loadRecords(resultsDir)
	if err != nil {
		return nil, err
	}
	for _, record := range records {
		if record.SubsectionID == subsectionID {
			return record, nil
		}
	}
	return nil, fmt.Errorf("subsection %s not found in %s", subsectionID, resultsDir)
}

// Lookup subjects.
const (
	SubjectPatent  = "patent"
	SubjectNews    = "news"
	SubjectGeneral = "general"
)

var subjectPrompts = map[string]string{
	SubjectPatent: "You are a patent analyst. Answer the question below with the " +
		"patent landscape in mind: relevant filings, prior art risks and " +
		"protectable claims. Answer in Markdown.",
	SubjectNews: "You are a market researcher. Answer the question below from the " +
		"angle of recent industry news, funding activity and market signals. " +
		"Answer in Markdown.",
	SubjectGeneral: "You are a business plan consultant. Answer the question below " +
		"concisely and concretely. Answer in Markdown.",
}

// Lookup answers a free-form drafting question scoped to a subject area.
// Unknown subjects fall back to the general consultant prompt.
func (s *Service) Lookup(ctx context.Context, subject, query string) (string, error) {
	instruction, ok := subjectPrompts[subject]
	if !ok {
		instruction = subjectPrompts[SubjectGeneral]
	}
	answer, err := s.llm.Complete(ctx, fmt.Sprintf("%s\n\nQuestion:\n%s", instruction, query), nil)
	if err != nil {
		return "", fmt.Errorf("lookup failed: %w", err)
	}
	return answer, nil
}

// SimilarDocument is one ranked match from the past-report search.
type SimilarDocument struct {
	FileName       string  `json:"file_name"`
	SubsectionID   string  `json:"subsection_id"`
	SubsectionName string  `json:"subsection_name"`
	Content        string  `json:"content"`
	Score          float64 `json:"score"`
}

// SearchSimilar ranks stored report subsections against a free-text query.
func (s *Service) SearchSimilar(ctx context.Context, query string, topK int) ([]SimilarDocument, error) {
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	docs, err := s.docs.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}

	var matches []SimilarDocument
	for _, doc := range docs {
		stored, err := store.DecodeEmbedding(doc.Embedding)
		if err != nil {
			s.log.Warn(fmt.Sprintf("Skipping report document %d with bad embedding: %v", doc.ID, err))
			continue
		}
		matches = append(matches, SimilarDocument{
			FileName:       doc.FileName,
			SubsectionID:   doc.SubsectionID,
			SubsectionName: doc.SubsectionName,
			Content:        doc.Content,
			Score:          embedding.Cosine(vec, stored),
		})
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// formatContexts flattens retrieval contexts into prompt text. Image
// contexts contribute a marker rather than their raw payload.
func formatContexts(contexts []fanout.RetrievedContext) string {
	if len(contexts) == 0 {
		return "(no reference material retrieved)"
	}
	var sb strings.Builder
	for _, c := range contexts {
		if c.Type == "image" {
			fmt.Fprintf(&sb, "[%d] (page image, omitted)\n", c.Rank)
			continue
		}
		fmt.Fprintf(&sb, "[%d] %s\n", c.Rank, c.Content)
	}
	return sb.String()
}

// CountChars measures the visible length of generated content. Markup is
// stripped first so HTML fragments do not inflate the count.
func CountChars(content string) int {
	if strings.Contains(content, "<") && strings.Contains(content, ">") {
		if md, err := htmltomarkdown.ConvertString(content); err == nil {
			content = md
		}
	}
	return len([]rune(strings.TrimSpace(content)))
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
