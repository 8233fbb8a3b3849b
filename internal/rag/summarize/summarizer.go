package summarize

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"

	"planform/internal/rag/interfaces"
	"planform/internal/rag/schema"
	"planform/pkg/logger"
)

const textPrompt = `Summarize the following document passage for retrieval.
Keep every concrete fact, figure and named entity; write a dense synopsis of
at most 3 sentences in the passage's language.

Passage:
%s`

const imagePrompt = `Describe this document page image for retrieval. Capture
the layout, any tables or charts with their key values, and all legible text.
Write a dense description of at most 5 sentences.`

// LLMSummarizer produces retrieval synopses. Short texts skip the model and
// are indexed verbatim; failures degrade instead of aborting the batch.
// Text and image units go to separate models so text summaries never pay
// multimodal pricing.
type LLMSummarizer struct {
	textLLM     interfaces.LLM
	visionLLM   interfaces.LLM
	log         *logger.Logger
	threshold   int
	concurrency int
}

// NewLLMSummarizer creates a summarizer. textLLM handles text passages and
// visionLLM describes page images. threshold is the character count below
// which a text is indexed verbatim; concurrency bounds parallel model calls.
func NewLLMSummarizer(textLLM, visionLLM interfaces.LLM, threshold, concurrency int, log *logger.Logger) *LLMSummarizer {
	if concurrency < 1 {
		concurrency = 1
	}
	return &LLMSummarizer{textLLM: textLLM, visionLLM: visionLLM, log: log, threshold: threshold, concurrency: concurrency}
}

// Summarize runs over all units with bounded parallelism. The result keeps
// the input order; image units whose description fails are dropped, text
// units whose summary fails fall back to a truncated excerpt.
func (s *LLMSummarizer) Summarize(ctx context.Context, units []*schema.ContentUnit) ([]*schema.Document, error) {
	results := make([]*schema.Document, len(units))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i, unit := range units {
		i, unit := i, unit
		g.Go(func() error {
			switch unit.Kind {
			case schema.KindText, schema.KindTable:
				results[i] = s.summarizeText(gctx, unit)
			case schema.KindImage:
				results[i] = s.summarizeImage(gctx, unit)
			default:
				s.log.Warn(fmt.Sprintf("Unknown content kind %q on page %d, dropping", unit.Kind, unit.Page))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	docs := make([]*schema.Document, 0, len(results))
	for _, doc := range results {
		if doc != nil {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

func (s *LLMSummarizer) summarizeText(ctx context.Context, unit *schema.ContentUnit) *schema.Document {
	text := unit.Text
	if len([]rune(text)) < s.threshold {
		return &schema.Document{Synopsis: text, Content: text}
	}

	synopsis, err := s.textLLM.Complete(ctx, fmt.Sprintf(textPrompt, text), nil)
	if err != nil {
		s.log.Warn(fmt.Sprintf("Text summary failed for page %d, indexing truncated excerpt: %v", unit.Page, err))
		synopsis = truncate(text, s.threshold)
	}
	return &schema.Document{Synopsis: synopsis, Content: text}
}

func (s *LLMSummarizer) summarizeImage(ctx context.Context, unit *schema.ContentUnit) *schema.Document {
	data, err := os.ReadFile(unit.ImagePath)
	if err != nil {
		s.log.Warn(fmt.Sprintf("Failed to read page image %s, dropping: %v", unit.ImagePath, err))
		return nil
	}

	synopsis, err := s.visionLLM.Complete(ctx, imagePrompt, [][]byte{data})
	if err != nil {
		s.log.Warn(fmt.Sprintf("Image description failed for page %d, dropping: %v", unit.Page, err))
		return nil
	}
	return &schema.Document{Synopsis: synopsis, Content: unit.ImagePath}
}

func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}

var _ interfaces.Summarizer = (*LLMSummarizer)(nil)
