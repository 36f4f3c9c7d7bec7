package services

import (
	"context"
	"strings"
	"time"

	"rag-platform/internal/ai"
	"rag-platform/internal/logger"
	"rag-platform/internal/telemetry"
	"rag-platform/utils"
)

const promptTemplate = `SYSTEM: You are a helpful and precise customer support assistant. Your goal is to answer the user's query based *only* on the provided context.
- If the context contains the information needed to answer the query, provide a clear and concise answer citing the relevant information from the context.
- If the context does not contain information relevant to the query, politely state that you don't have enough information based on the provided documents. Do not make up information or use external knowledge.
- If the query is a greeting or conversational filler, respond politely as a support assistant.

CONTEXT:
{context}

USER QUERY:
{query}

ASSISTANT RESPONSE:`

const (
	contextSeparator = "\n---\n"
	emptyContext     = "No context provided."
)

// GenerationService renders the support-assistant prompt and obtains a
// completion from the configured LLM provider.
type GenerationService struct {
	llm      ai.LLM
	metrics  *telemetry.Metrics
	provider string
	model    string
}

func NewGenerationService(llm ai.LLM, metrics *telemetry.Metrics, provider, model string) *GenerationService {
	return &GenerationService{
		llm:      llm,
		metrics:  metrics,
		provider: provider,
		model:    model,
	}
}

// BuildPrompt substitutes the query and context chunks into the prompt
// template. Chunks are joined by a separator line; an empty list renders a
// fixed placeholder instead.
func BuildPrompt(query string, contextChunks []string) string {
	contextText := emptyContext
	if len(contextChunks) > 0 {
		contextText = strings.Join(contextChunks, contextSeparator)
	}

	prompt := strings.Replace(promptTemplate, "{context}", contextText, 1)
	return strings.Replace(prompt, "{query}", query, 1)
}

// Generate produces an answer for the query grounded in the context chunks.
// Query must be non-empty; provider failures surface as upstream errors with
// the provider's own wording preserved in the detail.
func (s *GenerationService) Generate(ctx context.Context, query string, contextChunks []string) (string, error) {
	if strings.TrimSpace(query) == "" {
		return "", utils.Unprocessable("query must not be empty")
	}

	prompt := BuildPrompt(query, contextChunks)

	start := time.Now()
	answer, err := s.llm.Generate(ctx, prompt)
	if s.metrics != nil {
		s.metrics.RecordLLMCall(s.provider, s.model, time.Since(start).Seconds(), err == nil)
	}

	if err != nil {
		logger.Error("llm call failed", "provider", s.provider, "error", err)
		return "", utils.Unavailable(classifyLLMError(err), err)
	}

	return answer, nil
}

// classifyLLMError builds the client-facing detail for a provider failure,
// keeping well-known failure keywords from the provider message visible.
func classifyLLMError(err error) string {
	msg := err.Error()
	lower := strings.ToLower(msg)

	switch {
	case strings.Contains(lower, "rate limit"):
		return "LLM provider rate limit exceeded: " + msg
	case strings.Contains(lower, "authentication"):
		return "LLM provider authentication failed: " + msg
	case strings.Contains(lower, "timed out"), strings.Contains(lower, "timeout"):
		return "LLM provider request timed out: " + msg
	default:
		return "LLM provider error: " + msg
	}
}
