package llm

import (
	"context"
	"fmt"

	"planform/internal/config"
)

// LLM is the common interface for text generation clients. Images, when
// present, are raw encoded bytes (PNG or JPEG) attached to the prompt for
// multimodal models.
type LLM interface {
	Complete(ctx context.Context, prompt string, images [][]byte) (string, error)
}

// NewClient creates an LLM client for the configured provider.
func NewClient(ctx context.Context, cfg config.LLMConfig) (LLM, error) {
	switch cfg.Provider {
	case "openai":
		return NewOpenAI(cfg.OpenAI.Model, cfg.OpenAI.APIKey), nil
	case "gemini":
		return NewGemini(ctx, cfg.Gemini.Model, cfg.Gemini.APIKey)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
