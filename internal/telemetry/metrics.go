package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all application metrics
type Metrics struct {
	RequestCounter     metric.Int64Counter
	RequestDuration    metric.Float64Histogram
	DocumentsIngested  metric.Int64Counter
	ChunksWritten      metric.Int64Counter
	IngestionDuration  metric.Float64Histogram
	RetrievalRequests  metric.Int64Counter
	ChunksRetrieved    metric.Int64Counter
	LLMCalls           metric.Int64Counter
	LLMCallDuration    metric.Float64Histogram
}

// InitMetrics initializes all application metrics
func InitMetrics(serviceName string) (*Metrics, error) {
	meter := otel.Meter(serviceName)

	requestCounter, err := meter.Int64Counter(
		"http.requests.total",
		metric.WithDescription("Total HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	requestDuration, err := meter.Float64Histogram(
		"http.request.duration",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	documentsIngested, err := meter.Int64Counter(
		"ingestion.documents.total",
		metric.WithDescription("Documents loaded by ingestion runs"),
	)
	if err != nil {
		return nil, err
	}

	chunksWritten, err := meter.Int64Counter(
		"ingestion.chunks.total",
		metric.WithDescription("Chunks written to the vector collection"),
	)
	if err != nil {
		return nil, err
	}

	ingestionDuration, err := meter.Float64Histogram(
		"ingestion.run.duration",
		metric.WithDescription("Ingestion run duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	retrievalRequests, err := meter.Int64Counter(
		"retrieval.requests.total",
		metric.WithDescription("Retrieval queries served"),
	)
	if err != nil {
		return nil, err
	}

	chunksRetrieved, err := meter.Int64Counter(
		"retrieval.chunks.total",
		metric.WithDescription("Chunks surviving the distance threshold"),
	)
	if err != nil {
		return nil, err
	}

	llmCalls, err := meter.Int64Counter(
		"llm.calls.total",
		metric.WithDescription("LLM provider invocations"),
	)
	if err != nil {
		return nil, err
	}

	llmCallDuration, err := meter.Float64Histogram(
		"llm.call.duration",
		metric.WithDescription("LLM call duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		RequestCounter:    requestCounter,
		RequestDuration:   requestDuration,
		DocumentsIngested: documentsIngested,
		ChunksWritten:     chunksWritten,
		IngestionDuration: ingestionDuration,
		RetrievalRequests: retrievalRequests,
		ChunksRetrieved:   chunksRetrieved,
		LLMCalls:          llmCalls,
		LLMCallDuration:   llmCallDuration,
	}, nil
}

// RecordRequest records HTTP request metrics
func (m *Metrics) RecordRequest(method, path, status string, duration float64) {
	attrs := []attribute.KeyValue{
		attribute.String("http.method", method),
		attribute.String("http.path", path),
		attribute.String("http.status", status),
	}

	m.RequestCounter.Add(context.Background(), 1, metric.WithAttributes(attrs...))
	m.RequestDuration.Record(context.Background(), duration, metric.WithAttributes(attrs...))
}

// RecordIngestionRun records the outcome of one ingestion run.
func (m *Metrics) RecordIngestionRun(documents, chunks int, duration float64, hadErrors bool) {
	attrs := []attribute.KeyValue{
		attribute.Bool("ingestion.had_errors", hadErrors),
	}

	m.DocumentsIngested.Add(context.Background(), int64(documents), metric.WithAttributes(attrs...))
	m.ChunksWritten.Add(context.Background(), int64(chunks), metric.WithAttributes(attrs...))
	m.IngestionDuration.Record(context.Background(), duration, metric.WithAttributes(attrs...))
}

// RecordRetrieval records one retrieval query.
func (m *Metrics) RecordRetrieval(returned int) {
	m.RetrievalRequests.Add(context.Background(), 1)
	m.ChunksRetrieved.Add(context.Background(), int64(returned))
}

// RecordLLMCall records one LLM provider invocation.
func (m *Metrics) RecordLLMCall(provider, model string, duration float64, success bool) {
	attrs := []attribute.KeyValue{
		attribute.String("llm.provider", provider),
		attribute.String("llm.model", model),
		attribute.Bool("llm.success", success),
	}

	m.LLMCalls.Add(context.Background(), 1, metric.WithAttributes(attrs...))
	m.LLMCallDuration.Record(context.Background(), duration, metric.WithAttributes(attrs...))
}
