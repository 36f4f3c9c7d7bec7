// Package clients holds the orchestrator's typed HTTP clients for the
// backend services. Each downstream gets its own circuit breaker so one
// flapping service does not poison calls to the others.
package clients

import (
	"encoding/json"
	"io"
	"time"

	"github.com/sony/gobreaker"

	"rag-platform/internal/logger"
)

func newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "client", name, "from", from.String(), "to", to.String())
		},
	})
}

// decodeDetail pulls the "detail" field out of a downstream error body,
// falling back to the raw text when the body is not the standard shape.
func decodeDetail(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, 64<<10))
	if err != nil || len(raw) == 0 {
		return "no error detail provided"
	}

	var parsed struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(raw, &parsed); err == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return string(raw)
}
