package service

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"planform/internal/rag/fanout"
	"planform/pkg/logger"
)

type fakeLLM struct {
	response string
	prompts  []string
}

func (f *fakeLLM) Complete(_ context.Context, prompt string, _ [][]byte) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.response, nil
}

func TestLookup_SubjectSelection(t *testing.T) {
	llm := &fakeLLM{response: "the answer"}
	s := &Service{llm: llm, log: logger.New("test", "")}

	answer, err := s.Lookup(context.Background(), SubjectPatent, "is the ranking method protectable?")
	require.NoError(t, err)
	assert.Equal(t, "the answer", answer)
	assert.Contains(t, llm.prompts[0], "patent analyst")
	assert.Contains(t, llm.prompts[0], "is the ranking method protectable?")

	_, err = s.Lookup(context.Background(), "unknown-subject", "anything")
	require.NoError(t, err)
	assert.Contains(t, llm.prompts[1], "business plan consultant", "unknown subjects use the general prompt")
}

func TestCountChars(t *testing.T) {
	assert.Equal(t, 11, CountChars("hello world"))
	assert.Equal(t, 0, CountChars("   \n\t "))
	assert.Equal(t, 5, CountChars("안녕하세요"), "runes, not bytes")
	assert.Equal(t, 11, CountChars("<p>hello world</p>"), "markup is stripped")
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "hel", truncateRunes("hello", 3))
	assert.Equal(t, "hello", truncateRunes("hello", 10))
	assert.Equal(t, "안녕", truncateRunes("안녕하세요", 2))
}

func TestFormatContexts(t *testing.T) {
	out := formatContexts([]fanout.RetrievedContext{
		{Rank: 1, Type: "text", Content: "market size"},
		{Rank: 2, Type: "image", Content: "/data/doc/images/page_1_full.png"},
	})
	assert.Contains(t, out, "[1] market size")
	assert.Contains(t, out, "[2] (page image, omitted)")
	assert.NotContains(t, out, "page_1_full.png", "image payloads never reach the prompt")

	assert.Equal(t, "(no reference material retrieved)", formatContexts(nil))
}

func writeRecord(t *testing.T, dir string, record *fanout.SubsectionRecord) {
	t.Helper()
	data, err := json.Marshal(record)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, record.SubsectionID+".json"), data, 0o644))
}

func TestLoadRecords_SortsByOrderAndSkipsSummary(t *testing.T) {
	dir := t.TempDir()
	writeRecord(t, dir, &fanout.SubsectionRecord{SubsectionID: "s2-1", Order: 3})
	writeRecord(t, dir, &fanout.SubsectionRecord{SubsectionID: "s1-1", Order: 1})
	writeRecord(t, dir, &fanout.SubsectionRecord{SubsectionID: "s1-2", Order: 2})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "_summary.json"), []byte(`{"processed":3}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignore me"), 0o644))

	records, err := loadRecords(dir)
	require.NoError(t, err)

	require.Len(t, records, 3)
	assert.Equal(t, "s1-1", records[0].SubsectionID)
	assert.Equal(t, "s1-2", records[1].SubsectionID)
	assert.Equal(t, "s2-1", records[2].SubsectionID)
}

func TestLoadRecords_EmptyDirectory(t *testing.T) {
	_, err := loadRecords(t.TempDir())
	assert.Error(t, err)
}

func TestLoadRecords_MissingDirectory(t *testing.T) {
	_, err := loadRecords(filepath.Join(t.TempDir(), "retrieval_results"))
	assert.Error(t, err)
}
