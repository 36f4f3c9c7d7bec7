package ai

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// googleEmbedder calls the Google Generative AI embeddings API
// (e.g. text-embedding-004).
type googleEmbedder struct {
	client    *genai.Client
	modelName string
}

func newGoogleEmbedder(ctx context.Context, modelName, apiKey string) (*googleEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("missing API key for google embeddings")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &googleEmbedder{client: client, modelName: modelName}, nil
}

func (e *googleEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	model := e.client.EmbeddingModel(e.modelName)
	resp, err := model.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, err
	}
	if resp.Embedding == nil {
		return nil, fmt.Errorf("no embedding returned")
	}
	return resp.Embedding.Values, nil
}

func (e *googleEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	model := e.client.EmbeddingModel(e.modelName)

	batch := model.NewBatch()
	for _, text := range texts {
		batch.AddContent(genai.Text(text))
	}

	resp, err := model.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, err
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Embeddings))
	}

	vectors := make([][]float32, len(resp.Embeddings))
	for i, emb := range resp.Embeddings {
		vectors[i] = emb.Values
	}
	return vectors, nil
}

func (e *googleEmbedder) Close() error {
	return e.client.Close()
}
