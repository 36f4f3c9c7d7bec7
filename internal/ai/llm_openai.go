package ai

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	openai "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"
	"github.com/sony/gobreaker"
)

// openaiLLM calls the OpenAI chat completions API behind the same breaker
// discipline as the gemini client.
type openaiLLM struct {
	client  openai.Client
	breaker *gobreaker.CircuitBreaker
	opts    LLMOptions
}

func newOpenAILLM(opts LLMOptions) (*openaiLLM, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "OpenAIAPI",
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

	return &openaiLLM{
		client:  openai.NewClient(option.WithAPIKey(opts.APIKey)),
		breaker: breaker,
		opts:    opts,
	}, nil
}

func (o *openaiLLM) Generate(ctx context.Context, prompt string) (string, error) {
	result, err := o.breaker.Execute(func() (interface{}, error) {
		params := openai.ChatCompletionNewParams{
			Model: shared.ChatModel(o.opts.ModelName),
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.UserMessage(prompt),
			},
		}
		if o.opts.Temperature >= 0 {
			params.Temperature = openai.Float(o.opts.Temperature)
		}
		if o.opts.MaxTokens > 0 {
			params.MaxCompletionTokens = openai.Int(int64(o.opts.MaxTokens))
		}

		completion, err := o.client.Chat.Completions.New(ctx, params)
		if err != nil {
			return nil, err
		}
		if len(completion.Choices) == 0 {
			return nil, fmt.Errorf("no choices returned")
		}
		return completion.Choices[0].Message.Content, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) {
			return "", fmt.Errorf("openai temporarily unavailable: circuit breaker open")
		}
		return "", err
	}

	return result.(string), nil
}

func (o *openaiLLM) Close() error { return nil }
