package diagnosis

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"planform/pkg/logger"
)

type fakeLLM struct {
	response string
	err      error
	prompts  []string
}

func (f *fakeLLM) Complete(_ context.Context, prompt string, _ [][]byte) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

const scoredResponse = `{
  "categories": [
    {"name": "problem", "items": [
      {"item": "Clear definition of the target problem", "score": 4, "comment": "well framed"},
      {"item": "Evidence the problem matters to customers", "score": 9, "comment": "overclaimed"},
      {"item": "Understanding of the current alternatives", "score": -2, "comment": "missing"}
    ]}
  ],
  "summary": "Promising but thin on evidence."
}`

func TestDiagnose_ClampsAndTotals(t *testing.T) {
	llm := &fakeLLM{response: scoredResponse}
	d := NewDiagnoser(llm, logger.New("test", ""))

	result, err := d.Diagnose(context.Background(), "plan text")
	require.NoError(t, err)

	require.Len(t, result.Categories, 1)
	items := result.Categories[0].Items
	require.Len(t, items, 3)
	assert.Equal(t, 4, items[0].Score)
	assert.Equal(t, 5, items[1].Score, "scores above the ceiling are clamped")
	assert.Equal(t, 0, items[2].Score, "negative scores are clamped to zero")

	assert.Equal(t, 9, result.Categories[0].Total)
	assert.Equal(t, 9, result.Total)
	assert.Equal(t, 15, result.MaxTotal)
	assert.Equal(t, "Promising but thin on evidence.", result.Summary)

	require.Len(t, llm.prompts, 1)
	assert.Contains(t, llm.prompts[0], "plan text")
	assert.Contains(t, llm.prompts[0], "Credible market size estimate")
}

func TestDiagnose_StripsCodeFences(t *testing.T) {
	llm := &fakeLLM{response: "```json\n" + scoredResponse + "\n```"}
	d := NewDiagnoser(llm, logger.New("test", ""))

	result, err := d.Diagnose(context.Background(), "plan text")
	require.NoError(t, err)
	assert.Equal(t, 9, result.Total)
}

func TestDiagnose_GenerationFailure(t *testing.T) {
	llm := &fakeLLM{err: errors.New("model unavailable")}
	d := NewDiagnoser(llm, logger.New("test", ""))

	_, err := d.Diagnose(context.Background(), "plan text")
	assert.Error(t, err)
}

func TestDiagnose_MalformedResponse(t *testing.T) {
	llm := &fakeLLM{response: "I would rate this plan a solid 7/10."}
	d := NewDiagnoser(llm, logger.New("test", ""))

	_, err := d.Diagnose(context.Background(), "plan text")
	assert.Error(t, err)
}

func TestStripFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFences("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFences(`{"a":1}`))
}
