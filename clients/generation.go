package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"rag-platform/models"
	"rag-platform/utils"
)

// GenerationClient calls the generation service's /api/v1/generate endpoint.
// The timeout is generous because the downstream is itself waiting on an LLM.
type GenerationClient struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
}

func NewGenerationClient(baseURL string) *GenerationClient {
	return &GenerationClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		breaker: newBreaker("generation"),
	}
}

// Generate asks the generation service for an answer. A downstream 503
// propagates with its detail prefixed "Error from generation:"; any other
// failure collapses to a generic internal error.
func (c *GenerationClient) Generate(ctx context.Context, query string, contextChunks []string) (string, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.generate(ctx, query, contextChunks)
	})
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return "", utils.Unavailable("Error from generation: circuit breaker open", err)
	}
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

func (c *GenerationClient) generate(ctx context.Context, query string, contextChunks []string) (string, error) {
	if contextChunks == nil {
		contextChunks = []string{}
	}
	payload, err := json.Marshal(models.GenerateRequest{Query: query, ContextChunks: contextChunks})
	if err != nil {
		return "", utils.Internal("failed to encode generation request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/generate", bytes.NewReader(payload))
	if err != nil {
		return "", utils.Internal("failed to create generation request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", utils.Unavailable("Error from generation: "+err.Error(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusServiceUnavailable {
		return "", utils.Unavailable("Error from generation: "+decodeDetail(resp.Body), nil)
	}
	if resp.StatusCode != http.StatusOK {
		return "", utils.Internal("An unexpected error occurred while generating a response.", nil)
	}

	var body models.GenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", utils.Internal("An unexpected error occurred while generating a response.", err)
	}
	return body.Answer, nil
}
