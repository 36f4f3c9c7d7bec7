package vectorstore

import (
	"context"
	"errors"
	"fmt"

	"rag-platform/internal/config"
)

// ErrCollectionNotFound reports that the configured collection does not
// exist in the engine. Callers treat it as success during teardown and as a
// retry-once signal during queries.
var ErrCollectionNotFound = errors.New("collection not found")

// Row is one (chunk_id, text, embedding, metadata) entry. Adding a row
// whose ID already exists overwrites the previous one.
type Row struct {
	ID        string
	Text      string
	Embedding []float32
	Metadata  map[string]string
}

// QueryHit is one nearest-neighbor result. Hits arrive in ascending
// distance order as reported by the engine.
type QueryHit struct {
	ID       string
	Text     string
	Distance float32
	Metadata map[string]string
}

// Store is a collection-oriented client for the vector index engine.
// Exactly one collection per store instance, named at construction.
type Store interface {
	// EnsureCollection creates the collection if it does not exist.
	EnsureCollection(ctx context.Context) error

	// Add upserts rows keyed by Row.ID.
	Add(ctx context.Context, rows []Row) error

	// Query returns up to topK nearest rows for the embedding.
	Query(ctx context.Context, embedding []float32, topK int) ([]QueryHit, error)

	// Sources returns the distinct metadata["source"] values present.
	Sources(ctx context.Context) (map[string]bool, error)

	// Count returns the number of rows in the collection.
	Count(ctx context.Context) (int64, error)

	// DeleteCollection removes the collection entirely. Returns
	// ErrCollectionNotFound when it was already gone.
	DeleteCollection(ctx context.Context) error

	// CollectionName returns the configured collection name.
	CollectionName() string

	Close() error
}

// New builds the store backend selected by configuration.
func New(ctx context.Context, cfg config.VectorStoreConfig) (Store, error) {
	switch cfg.Mode {
	case "local":
		return newSQLiteStore(cfg.Path, cfg.CollectionName)
	case "docker":
		return newChromaStore(fmt.Sprintf("http://%s:%d", cfg.Host, cfg.Port), cfg.CollectionName), nil
	case "qdrant":
		return newQdrantStore(ctx, fmt.Sprintf("%s:%d", cfg.Host, cfg.Port), cfg.CollectionName)
	default:
		return nil, fmt.Errorf("unsupported vector store mode: %s", cfg.Mode)
	}
}
