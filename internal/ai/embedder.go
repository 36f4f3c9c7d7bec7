package ai

import (
	"context"
	"fmt"
)

// Embedder produces a fixed-dimension vector for a text. Implementations
// must be deterministic: the same text always encodes to the same vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// NewEmbedder builds an embedder for the configured provider.
func NewEmbedder(ctx context.Context, provider, modelName, apiKey string, dimensions int) (Embedder, error) {
	switch provider {
	case "google":
		return newGoogleEmbedder(ctx, modelName, apiKey)
	case "openai":
		return newOpenAIEmbedder(modelName, apiKey), nil
	case "local", "":
		return NewLocalEmbedder(dimensions), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", provider)
	}
}
