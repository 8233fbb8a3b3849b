package embedding

import (
	"context"
	"fmt"

	"planform/internal/config"
)

// Embedding is the interface all embedding model clients implement.
type Embedding interface {
	// Embed generates an embedding vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embedding vectors for a batch of texts. The
	// returned slice is index-aligned with the input.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// NewModel creates an embedding client for the configured provider.
func NewModel(ctx context.Context, cfg config.EmbeddingConfig) (Embedding, error) {
	switch cfg.Provider {
	case "openai":
		return NewOpenAIModel(cfg.OpenAI.APIKey, cfg.OpenAI.Model), nil
	case "gemini":
		return NewGenAIModel(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}
}
