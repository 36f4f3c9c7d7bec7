package services

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"rag-platform/internal/logger"
	"rag-platform/internal/telemetry"
	"rag-platform/internal/vectorstore"
	"rag-platform/utils"
)

const maxQueryLength = 10000

// RetrievalService embeds a query and returns the chunk texts that survive
// the distance threshold, in the order the index ranked them.
type RetrievalService struct {
	registry  *vectorstore.Registry
	metrics   *telemetry.Metrics
	topK      int
	threshold float32
}

func NewRetrievalService(registry *vectorstore.Registry, metrics *telemetry.Metrics, topK int, threshold float32) *RetrievalService {
	return &RetrievalService{
		registry:  registry,
		metrics:   metrics,
		topK:      topK,
		threshold: threshold,
	}
}

// Retrieve runs nearest-neighbor search for the query. Blank queries return
// an empty list rather than an error; oversize queries are rejected. topK
// zero means use the configured default.
func (s *RetrievalService) Retrieve(ctx context.Context, query string, topK int) ([]string, error) {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) > maxQueryLength {
		return nil, utils.Validation("query exceeds maximum length of 10000 characters")
	}
	if query == "" {
		return []string{}, nil
	}

	if topK <= 0 {
		topK = s.topK
	}

	embedder, err := s.registry.Embedder(ctx)
	if err != nil {
		return nil, utils.Internal("failed to initialize embedder", err)
	}

	embedding, err := embedder.Embed(ctx, query)
	if err != nil {
		return nil, utils.Internal("failed to embed query", err)
	}

	hits, err := s.query(ctx, embedding, topK)
	if err != nil {
		if errors.Is(err, vectorstore.ErrCollectionNotFound) {
			return nil, utils.Unavailable("vector collection is not available", err)
		}
		return nil, utils.Internal("vector search failed", err)
	}

	chunks := make([]string, 0, len(hits))
	for _, hit := range hits {
		if hit.Distance <= s.threshold {
			chunks = append(chunks, hit.Text)
		}
	}

	if s.metrics != nil {
		s.metrics.RecordRetrieval(len(chunks))
	}
	logger.Debug("retrieval query served", "hits", len(hits), "kept", len(chunks))
	return chunks, nil
}

// query searches the collection, retrying once with a fresh store handle when
// the collection appears to be missing. Ingestion may have dropped and
// recreated it since the handle was opened.
func (s *RetrievalService) query(ctx context.Context, embedding []float32, topK int) ([]vectorstore.QueryHit, error) {
	store, err := s.registry.Store(ctx)
	if err != nil {
		return nil, err
	}

	hits, err := store.Query(ctx, embedding, topK)
	if !errors.Is(err, vectorstore.ErrCollectionNotFound) {
		return hits, err
	}

	logger.Warn("collection not found, retrying with a fresh handle")
	s.registry.Reset()

	store, err = s.registry.Store(ctx)
	if err != nil {
		return nil, err
	}
	return store.Query(ctx, embedding, topK)
}

// CollectionName reports which collection retrieval reads from.
func (s *RetrievalService) CollectionName(ctx context.Context) string {
	store, err := s.registry.Store(ctx)
	if err != nil {
		return ""
	}
	return store.CollectionName()
}
