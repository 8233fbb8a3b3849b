package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// MilvusConfig holds the connection settings for the Milvus vector database.
type MilvusConfig struct {
	Address string `yaml:"address"` // Milvus service address
	Dim     int    `yaml:"dim"`     // embedding dimension used for all collections
}

// RedisConfig holds the connection settings for Redis.
type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// MySQLConfig holds the connection settings for MySQL.
type MySQLConfig struct {
	Address         string `yaml:"address"`
	Username        string `yaml:"username"`
	Password        string `yaml:"password"`
	Database        string `yaml:"database"`
	MaxOpenConns    int    `yaml:"maxOpenConns"`
	MaxIdleConns    int    `yaml:"maxIdleConns"`
	ConnMaxLifetime int    `yaml:"connMaxLifetime"` // seconds
}

// MinIOConfig holds the connection settings for the object store.
type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	Bucket    string `yaml:"bucket"`
	Secure    bool   `yaml:"secure"`
}

// KafkaConfig holds the connection settings for the task queue.
type KafkaConfig struct {
	Brokers       []string `yaml:"brokers"`
	GenerateTopic string   `yaml:"generateTopic"` // full-report generation tasks
	EmbedTopic    string   `yaml:"embedTopic"`    // document embedding tasks
	GroupID       string   `yaml:"groupID"`
}

// ProviderConfig selects and configures a single model provider.
type ProviderConfig struct {
	APIKey string `yaml:"apiKey"`
	Model  string `yaml:"model"`
}

// LLMConfig configures the generation clients.
type LLMConfig struct {
	Provider string         `yaml:"provider"` // "openai" or "gemini"
	OpenAI   ProviderConfig `yaml:"openai"`
	Gemini   ProviderConfig `yaml:"gemini"`
	// VisionModel is the multimodal model used for image synopses. Falls back
	// to the provider's main model when empty.
	VisionModel string `yaml:"visionModel"`
}

// EmbeddingConfig configures the embedding clients.
type EmbeddingConfig struct {
	Provider string         `yaml:"provider"` // "openai" or "gemini"
	OpenAI   ProviderConfig `yaml:"openai"`
	Gemini   ProviderConfig `yaml:"gemini"`
}

// PipelineConfig holds the tunables of the document-to-index pipeline.
// The multiplier and threshold values are empirically chosen; they are kept
// configurable rather than hard-coded.
type PipelineConfig struct {
	DataDir             string   `yaml:"dataDir"`             // root folder holding one subfolder per document
	OutlinePath         string   `yaml:"outlinePath"`         // path to procedure.json
	SummaryThreshold    int      `yaml:"summaryThreshold"`    // texts shorter than this are indexed verbatim
	TopK                int      `yaml:"topK"`                // contexts kept per subsection
	OverfetchMultiplier int      `yaml:"overfetchMultiplier"` // raw candidates fetched = topK * multiplier
	RenderDPI           float64  `yaml:"renderDPI"`           // page raster resolution
	OCRLanguages        []string `yaml:"ocrLanguages"`        // e.g. ["kor", "eng"]
	MaxConcurrency      int      `yaml:"maxConcurrency"`      // parallel summarization calls
	ContentStore        string   `yaml:"contentStore"`        // "memory" or "redis"
	VectorStore         string   `yaml:"vectorStore"`         // "milvus" or "memory"
}

// ExpertConfig holds the tunables of the expert matcher.
type ExpertConfig struct {
	Keywords            int     `yaml:"keywords"`
	SimilarityThreshold float64 `yaml:"similarityThreshold"`
	TopK                int     `yaml:"topK"`
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Address string `yaml:"address"`
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level string `yaml:"level"`
}

// AppConfig is the root configuration for all services.
type AppConfig struct {
	Server    ServerConfig    `yaml:"server"`
	Logger    LoggerConfig    `yaml:"logger"`
	LLM       LLMConfig       `yaml:"llm"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Expert    ExpertConfig    `yaml:"expert"`
	Databases struct {
		Milvus MilvusConfig `yaml:"milvus"`
		Redis  RedisConfig  `yaml:"redis"`
		MySQL  MySQLConfig  `yaml:"mysql"`
		MinIO  MinIOConfig  `yaml:"minio"`
		Kafka  KafkaConfig  `yaml:"kafka"`
	} `yaml:"databases"`
}

// LoadConfig reads and parses a YAML config file. Values of the form
// ${ENV_NAME} are replaced from the environment before parsing, so secrets
// never need to live in the file itself.
func LoadConfig(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	expanded := os.Expand(string(data), func(key string) string {
		return os.Getenv(key)
	})

	cfg := &AppConfig{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *AppConfig) applyDefaults() {
	p := &c.Pipeline
	if p.SummaryThreshold == 0 {
		p.SummaryThreshold = 500
	}
	if p.TopK == 0 {
		p.TopK = 3
	}
	if p.OverfetchMultiplier == 0 {
		p.OverfetchMultiplier = 3
	}
	if p.RenderDPI == 0 {
		p.RenderDPI = 144
	}
	if len(p.OCRLanguages) == 0 {
		p.OCRLanguages = []string{"kor", "eng"}
	}
	if p.MaxConcurrency == 0 {
		p.MaxConcurrency = 5
	}
	if p.ContentStore == "" {
		p.ContentStore = "memory"
	}
	if p.VectorStore == "" {
		p.VectorStore = "milvus"
	}
	if p.DataDir == "" {
		p.DataDir = "data"
	}
	if p.OutlinePath == "" {
		p.OutlinePath = "procedure.json"
	}

	if c.Expert.Keywords == 0 {
		c.Expert.Keywords = 5
	}
	if c.Expert.SimilarityThreshold == 0 {
		c.Expert.SimilarityThreshold = 0.7
	}
	if c.Expert.TopK == 0 {
		c.Expert.TopK = 10
	}

	if c.Databases.Milvus.Dim == 0 {
		c.Databases.Milvus.Dim = 1536
	}
	if c.Databases.Kafka.GenerateTopic == "" {
		c.Databases.Kafka.GenerateTopic = "report.generate"
	}
	if c.Databases.Kafka.EmbedTopic == "" {
		c.Databases.Kafka.EmbedTopic = "report.embed"
	}
	if c.Databases.Kafka.GroupID == "" {
		c.Databases.Kafka.GroupID = "report-workers"
	}
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}
	if c.Logger.Level == "" {
		c.Logger.Level = "info"
	}
}
