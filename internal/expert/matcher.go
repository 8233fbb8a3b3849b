package expert

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"planform/internal/config"
	"planform/internal/embedding"
	"planform/internal/rag/interfaces"
	"planform/internal/report/store"
	"planform/pkg/logger"
)

const keywordPrompt = `Extract the %d most distinctive domain keywords from
the following business plan. Answer with the keywords only, comma separated,
in the plan's language.

Plan:
%s`

// Match is one ranked expert recommendation.
type Match struct {
	Name     string   `json:"name"`
	Career   []string `json:"career"`
	Field    []string `json:"field"`
	Keywords string   `json:"keywords"`
	Score    float64  `json:"score"`
}

// Catalogue lists the experts available for matching.
type Catalogue interface {
	ListExperts(ctx context.Context) ([]*store.Expert, error)
}

// Matcher recommends experts whose profile embeddings sit close to a
// report's extracted keywords.
type Matcher struct {
	llm       interfaces.LLM
	embedder  embedding.Embedding
	docs      Catalogue
	log       *logger.Logger
	keywords  int
	threshold float64
	topK      int
}

// NewMatcher creates a matcher with the configured keyword count, similarity
// cutoff and result size.
func NewMatcher(llm interfaces.LLM, embedder embedding.Embedding, docs Catalogue, cfg config.ExpertConfig, log *logger.Logger) *Matcher {
	return &Matcher{
		llm:       llm,
		embedder:  embedder,
		docs:      docs,
		log:       log,
		keywords:  cfg.Keywords,
		threshold: cfg.SimilarityThreshold,
		topK:      cfg.TopK,
	}
}

// Match extracts keywords from the report text, embeds them and ranks the
// expert catalogue by cosine similarity. Experts below the cutoff are not
// returned.
func (m *Matcher) Match(ctx context.Context, reportText string) ([]Match, error) {
	keywords, err := m.llm.Complete(ctx, fmt.Sprintf(keywordPrompt, m.keywords, reportText), nil)
	if err != nil {
		return nil, fmt.Errorf("keyword extraction failed: %w", err)
	}
	keywords = strings.TrimSpace(keywords)
	if keywords == "" {
		return nil, fmt.Errorf("keyword extraction returned nothing")
	}

	vec, err := m.embedder.Embed(ctx, keywords)
	if err != nil {
		return nil, fmt.Errorf("failed to embed keywords: %w", err)
	}

	experts, err := m.docs.ListExperts(ctx)
	if err != nil {
		return nil, err
	}

	var matches []Match
	for _, expert := range experts {
		stored, err := store.DecodeEmbedding(expert.Embedding)
		if err != nil {
			m.log.Warn(fmt.Sprintf("Skipping expert %d with bad embedding: %v", expert.ID, err))
			continue
		}
		score := embedding.Cosine(vec, stored)
		if score < m.threshold {
			continue
		}
		matches = append(matches, Match{
			Name:     expert.Name,
			Career:   decodeStrings(expert.Career),
			Field:    decodeStrings(expert.Field),
			Keywords: keywords,
			Score:    score,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if m.topK > 0 && len(matches) > m.topK {
		matches = matches[:m.topK]
	}
	return matches, nil
}

func decodeStrings(raw []byte) []string {
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}
