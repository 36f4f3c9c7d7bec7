package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"rag-platform/models"
	"rag-platform/utils"
)

// RetrievalClient calls the retrieval service's /api/v1/retrieve endpoint.
type RetrievalClient struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
}

func NewRetrievalClient(baseURL string) *RetrievalClient {
	return &RetrievalClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		breaker: newBreaker("retrieval"),
	}
}

// Retrieve fetches the context chunks for a query. Downstream unavailability
// surfaces as an upstream error whose detail starts with "Error from
// retrieval:"; a malformed success response is an internal error.
func (c *RetrievalClient) Retrieve(ctx context.Context, query string, topK int) ([]string, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.retrieve(ctx, query, topK)
	})
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return nil, utils.Unavailable("Error from retrieval: circuit breaker open", err)
	}
	if err != nil {
		return nil, err
	}
	return result.([]string), nil
}

func (c *RetrievalClient) retrieve(ctx context.Context, query string, topK int) ([]string, error) {
	payload, err := json.Marshal(models.RetrieveRequest{Query: query, TopK: topK})
	if err != nil {
		return nil, utils.Internal("failed to encode retrieval request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/retrieve", bytes.NewReader(payload))
	if err != nil {
		return nil, utils.Internal("failed to create retrieval request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, utils.Unavailable(fmt.Sprintf("Error from retrieval: %v", err), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusServiceUnavailable {
		return nil, utils.Unavailable("Error from retrieval: "+decodeDetail(resp.Body), nil)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, utils.Internal(fmt.Sprintf("retrieval returned unexpected status %d", resp.StatusCode), nil)
	}

	var body models.RetrieveResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, utils.Internal("failed to decode retrieval response", err)
	}
	if body.Chunks == nil {
		body.Chunks = []string{}
	}
	return body.Chunks, nil
}
