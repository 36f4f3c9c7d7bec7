package ai

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	genai "github.com/google/generative-ai-go/genai"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"
)

// geminiLLM wraps the Google Generative AI API with a circuit breaker and a
// client-side rate limiter so a misbehaving upstream degrades into fast
// failures instead of piled-up requests.
type geminiLLM struct {
	client      *genai.Client
	breaker     *gobreaker.CircuitBreaker
	rateLimiter *rate.Limiter
	opts        LLMOptions
}

func newGeminiLLM(ctx context.Context, opts LLMOptions) (*geminiLLM, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(opts.APIKey))
	if err != nil {
		return nil, err
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "GeminiAPI",
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Printf("Circuit breaker %s: %s -> %s", name, from, to)
		},
	})

	// ~10 rpm free-tier budget with a small burst allowance.
	rateLimiter := rate.NewLimiter(rate.Limit(10.0/60.0), 2)

	return &geminiLLM{
		client:      client,
		breaker:     breaker,
		rateLimiter: rateLimiter,
		opts:        opts,
	}, nil
}

func (g *geminiLLM) Generate(ctx context.Context, prompt string) (string, error) {
	if err := g.rateLimiter.Wait(ctx); err != nil {
		return "", err
	}

	result, err := g.breaker.Execute(func() (interface{}, error) {
		model := g.client.GenerativeModel(g.opts.ModelName)
		model.SetTemperature(float32(g.opts.Temperature))
		if g.opts.MaxTokens > 0 {
			model.SetMaxOutputTokens(int32(g.opts.MaxTokens))
		}

		resp, err := model.GenerateContent(ctx, genai.Text(prompt))
		if err != nil {
			return nil, err
		}
		return resp, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) {
			return "", fmt.Errorf("gemini temporarily unavailable: circuit breaker open")
		}
		return "", err
	}

	resp := result.(*genai.GenerateContentResponse)
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("no completion returned")
	}

	answer := ""
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			answer += string(text)
		}
	}
	if answer == "" {
		return "", fmt.Errorf("no text in completion")
	}
	return answer, nil
}

func (g *geminiLLM) Close() error {
	return g.client.Close()
}
