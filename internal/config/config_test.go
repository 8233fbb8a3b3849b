package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig_AppliesDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "llm:\n  provider: openai\n"))
	require.NoError(t, err)

	assert.Equal(t, 500, cfg.Pipeline.SummaryThreshold)
	assert.Equal(t, 3, cfg.Pipeline.TopK)
	assert.Equal(t, 3, cfg.Pipeline.OverfetchMultiplier)
	assert.Equal(t, 144.0, cfg.Pipeline.RenderDPI)
	assert.Equal(t, []string{"kor", "eng"}, cfg.Pipeline.OCRLanguages)
	assert.Equal(t, 5, cfg.Pipeline.MaxConcurrency)
	assert.Equal(t, "memory", cfg.Pipeline.ContentStore)
	assert.Equal(t, "milvus", cfg.Pipeline.VectorStore)
	assert.Equal(t, "data", cfg.Pipeline.DataDir)
	assert.Equal(t, "procedure.json", cfg.Pipeline.OutlinePath)

	assert.Equal(t, 5, cfg.Expert.Keywords)
	assert.Equal(t, 0.7, cfg.Expert.SimilarityThreshold)
	assert.Equal(t, 10, cfg.Expert.TopK)

	assert.Equal(t, 1536, cfg.Databases.Milvus.Dim)
	assert.Equal(t, "report.generate", cfg.Databases.Kafka.GenerateTopic)
	assert.Equal(t, "report.embed", cfg.Databases.Kafka.EmbedTopic)
	assert.Equal(t, "report-workers", cfg.Databases.Kafka.GroupID)
	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, "info", cfg.Logger.Level)
}

func TestLoadConfig_ExplicitValuesWin(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, `
pipeline:
  summaryThreshold: 200
  topK: 5
  contentStore: redis
  ocrLanguages: [eng]
logger:
  level: debug
`))
	require.NoError(t, err)

	assert.Equal(t, 200, cfg.Pipeline.SummaryThreshold)
	assert.Equal(t, 5, cfg.Pipeline.TopK)
	assert.Equal(t, "redis", cfg.Pipeline.ContentStore)
	assert.Equal(t, []string{"eng"}, cfg.Pipeline.OCRLanguages)
	assert.Equal(t, "debug", cfg.Logger.Level)
}

func TestLoadConfig_ExpandsEnvironment(t *testing.T) {
	t.Setenv("TEST_OPENAI_KEY", "sk-from-env")

	cfg, err := LoadConfig(writeConfig(t, `
llm:
  provider: openai
  openai:
    apiKey: ${TEST_OPENAI_KEY}
    model: gpt-4o
`))
	require.NoError(t, err)

	assert.Equal(t, "sk-from-env", cfg.LLM.OpenAI.APIKey)
	assert.Equal(t, "gpt-4o", cfg.LLM.OpenAI.Model)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "pipeline: [this is not a mapping"))
	assert.Error(t, err)
}
