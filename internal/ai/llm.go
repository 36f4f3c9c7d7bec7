package ai

import (
	"context"
	"fmt"
)

// LLM obtains a text completion for a fully formatted prompt.
type LLM interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Close() error
}

// LLMOptions carries provider-independent generation settings.
type LLMOptions struct {
	ModelName   string
	Temperature float64
	MaxTokens   int
	APIKey      string
}

// NewLLM builds an LLM client for the configured provider.
func NewLLM(ctx context.Context, provider string, opts LLMOptions) (LLM, error) {
	switch provider {
	case "gemini":
		return newGeminiLLM(ctx, opts)
	case "openai":
		return newOpenAILLM(opts)
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s", provider)
	}
}
