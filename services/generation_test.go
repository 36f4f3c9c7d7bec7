package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"rag-platform/utils"
)

type fakeLLM struct {
	answer string
	err    error
	prompt string
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return f.answer, f.err
}

func (f *fakeLLM) Close() error { return nil }

func TestBuildPromptWithContext(t *testing.T) {
	prompt := BuildPrompt("What is the capital of France?", []string{
		"Paris is the capital of France.",
		"France is in Europe.",
	})

	want := `SYSTEM: You are a helpful and precise customer support assistant. Your goal is to answer the user's query based *only* on the provided context.
- If the context contains the information needed to answer the query, provide a clear and concise answer citing the relevant information from the context.
- If the context does not contain information relevant to the query, politely state that you don't have enough information based on the provided documents. Do not make up information or use external knowledge.
- If the query is a greeting or conversational filler, respond politely as a support assistant.

CONTEXT:
Paris is the capital of France.
---
France is in Europe.

USER QUERY:
What is the capital of France?

ASSISTANT RESPONSE:`

	if prompt != want {
		t.Fatalf("prompt mismatch:\n--- got ---\n%s\n--- want ---\n%s", prompt, want)
	}
}

func TestBuildPromptEmptyContext(t *testing.T) {
	prompt := BuildPrompt("hello", nil)

	if !strings.Contains(prompt, "CONTEXT:\nNo context provided.\n") {
		t.Errorf("empty context placeholder missing:\n%s", prompt)
	}
	if strings.Contains(prompt, "---") && strings.Contains(prompt, "\n---\n") {
		t.Error("separator should not appear with empty context")
	}
}

func TestGenerateRejectsEmptyQuery(t *testing.T) {
	svc := NewGenerationService(&fakeLLM{}, nil, "gemini", "test-model")

	_, err := svc.Generate(context.Background(), "   ", nil)
	var appErr *utils.AppError
	if !errors.As(err, &appErr) || appErr.Kind != utils.KindUnprocessable {
		t.Fatalf("expected unprocessable error, got %v", err)
	}
}

func TestGeneratePassesPromptThrough(t *testing.T) {
	llm := &fakeLLM{answer: "Paris."}
	svc := NewGenerationService(llm, nil, "gemini", "test-model")

	answer, err := svc.Generate(context.Background(), "capital of France?", []string{"Paris is the capital."})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer != "Paris." {
		t.Errorf("unexpected answer: %s", answer)
	}
	if !strings.Contains(llm.prompt, "Paris is the capital.") {
		t.Error("context chunk missing from rendered prompt")
	}
	if !strings.Contains(llm.prompt, "capital of France?") {
		t.Error("query missing from rendered prompt")
	}
}

func TestGenerateClassifiesProviderErrors(t *testing.T) {
	cases := []struct {
		name     string
		provider string
		keyword  string
	}{
		{"rate limited", "429 rate limit exceeded for project", "rate limit"},
		{"auth", "authentication failed: invalid api key", "authentication"},
		{"timeout", "request timed out after 30s", "timed out"},
		{"timeout short", "context deadline exceeded: timeout", "timeout"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := NewGenerationService(&fakeLLM{err: errors.New(tc.provider)}, nil, "openai", "m")

			_, err := svc.Generate(context.Background(), "q", nil)
			var appErr *utils.AppError
			if !errors.As(err, &appErr) {
				t.Fatalf("expected AppError, got %v", err)
			}
			if appErr.Kind != utils.KindUpstream {
				t.Errorf("expected upstream kind, got %v", appErr.Kind)
			}
			if !strings.Contains(appErr.Detail, tc.keyword) {
				t.Errorf("detail %q does not preserve keyword %q", appErr.Detail, tc.keyword)
			}
		})
	}
}

func TestGenerateGenericProviderError(t *testing.T) {
	svc := NewGenerationService(&fakeLLM{err: errors.New("something odd happened")}, nil, "gemini", "m")

	_, err := svc.Generate(context.Background(), "q", nil)
	var appErr *utils.AppError
	if !errors.As(err, &appErr) || appErr.Kind != utils.KindUpstream {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if !strings.Contains(appErr.Detail, "something odd happened") {
		t.Errorf("provider message not appended: %q", appErr.Detail)
	}
}
