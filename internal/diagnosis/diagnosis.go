package diagnosis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"planform/internal/rag/interfaces"
	"planform/pkg/logger"
)

// maxItemScore is the ceiling of a single rubric item.
const maxItemScore = 5

// Category is one rubric dimension with its scored criteria.
type Category struct {
	Name  string   `json:"name"`
	Items []string `json:"items"`
}

// Rubric lists the dimensions a business plan is scored on.
var Rubric = []Category{
	{Name: "problem", Items: []string{
		"Clear definition of the target problem",
		"Evidence the problem matters to customers",
		"Understanding of the current alternatives",
	}},
	{Name: "market", Items: []string{
		"Credible market size estimate",
		"Well-defined target customer segment",
		"Realistic view of the competition",
	}},
	{Name: "feasibility", Items: []string{
		"Concrete product or service definition",
		"Achievable technical approach",
		"Sound revenue model",
	}},
	{Name: "growth", Items: []string{
		"Actionable go-to-market plan",
		"Credible scale-up strategy",
		"Sensible funding and resource plan",
	}},
	{Name: "team", Items: []string{
		"Relevant founder and team experience",
		"Coverage of the critical skills",
		"Realistic execution milestones",
	}},
}

// ItemScore is the model's verdict on one criterion.
type ItemScore struct {
	Item    string `json:"item"`
	Score   int    `json:"score"`
	Comment string `json:"comment"`
}

// CategoryScore aggregates one rubric dimension.
type CategoryScore struct {
	Name  string      `json:"name"`
	Items []ItemScore `json:"items"`
	Total int         `json:"total"`
}

// Result is the full diagnosis of a plan.
type Result struct {
	Categories []CategoryScore `json:"categories"`
	Total      int             `json:"total"`
	MaxTotal   int             `json:"max_total"`
	Summary    string          `json:"summary"`
}

// Diagnoser scores business plans against the rubric with an LLM.
type Diagnoser struct {
	llm interfaces.LLM
	log *logger.Logger
}

// NewDiagnoser creates a diagnoser.
func NewDiagnoser(llm interfaces.LLM, log *logger.Logger) *Diagnoser {
	return &Diagnoser{llm: llm, log: log}
}

// Diagnose asks the model to score every rubric item from 0 to 5 and
// aggregates the result. Scores outside the valid range are clamped.
func (d *Diagnoser) Diagnose(ctx context.Context, planText string) (*Result, error) {
	raw, err := d.llm.Complete(ctx, buildPrompt(planText), nil)
	if err != nil {
		return nil, fmt.Errorf("diagnosis generation failed: %w", err)
	}

	result := &Result{}
	if err := json.Unmarshal([]byte(stripFences(raw)), result); err != nil {
		return nil, fmt.Errorf("failed to parse diagnosis response: %w", err)
	}

	result.Total = 0
	result.MaxTotal = 0
	for i := range result.Categories {
		cat := &result.Categories[i]
		cat.Total = 0
		for j := range cat.Items {
			if cat.Items[j].Score < 0 {
				cat.Items[j].Score = 0
			}
			if cat.Items[j].Score > maxItemScore {
				cat.Items[j].Score = maxItemScore
			}
			cat.Total += cat.Items[j].Score
		}
		result.Total += cat.Total
		result.MaxTotal += len(cat.Items) * maxItemScore
	}
	return result, nil
}

func buildPrompt(planText string) string {
	rubricJSON, _ := json.MarshalIndent(Rubric, "", "  ")
	return fmt.Sprintf(`Score the following business plan against this rubric.
Give every item an integer score from 0 to %d with a one-sentence comment.

Rubric:
%s

Respond with JSON only, in this shape:
{"categories":[{"name":"...","items":[{"item":"...","score":0,"comment":"..."}]}],"summary":"..."}

Business plan:
%s`, maxItemScore, rubricJSON, planText)
}

// stripFences removes a Markdown code fence wrapper if the model added one.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
