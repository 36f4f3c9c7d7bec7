package vectorstore

import (
	"context"
	"sync"

	"rag-platform/internal/ai"
	"rag-platform/internal/config"
	"rag-platform/internal/logger"
)

// Registry owns the process-wide vector store and embedder handles. Both are
// created lazily on first use and can be dropped atomically with Reset, which
// forces re-initialization on the next access. Handlers never hold a Store
// across requests; they go through the registry every time so a reset is
// visible immediately.
type Registry struct {
	// StoreFactory and EmbedderFactory may be swapped before first use,
	// which is how tests substitute in-memory fakes.
	StoreFactory    func(ctx context.Context) (Store, error)
	EmbedderFactory func(ctx context.Context) (ai.Embedder, error)

	mu       sync.Mutex
	store    Store
	embedder ai.Embedder
}

func NewRegistry(storeCfg config.VectorStoreConfig, embedCfg config.EmbeddingConfig) *Registry {
	return &Registry{
		StoreFactory: func(ctx context.Context) (Store, error) {
			return New(ctx, storeCfg)
		},
		EmbedderFactory: func(ctx context.Context) (ai.Embedder, error) {
			return ai.NewEmbedder(ctx, embedCfg.Provider, embedCfg.ModelName, embedCfg.APIKey, embedCfg.Dimensions)
		},
	}
}

// Store returns the shared store handle, initializing it on first call.
func (r *Registry) Store(ctx context.Context) (Store, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.store != nil {
		return r.store, nil
	}

	store, err := r.StoreFactory(ctx)
	if err != nil {
		return nil, err
	}
	r.store = store
	return store, nil
}

// Embedder returns the shared embedder handle, initializing it on first call.
func (r *Registry) Embedder(ctx context.Context) (ai.Embedder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.embedder != nil {
		return r.embedder, nil
	}

	embedder, err := r.EmbedderFactory(ctx)
	if err != nil {
		return nil, err
	}
	r.embedder = embedder
	return embedder, nil
}

// Reset drops both handles so the next access rebuilds them from scratch.
// Used after the collection is deleted, when any cached collection state
// would be stale.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.store != nil {
		if err := r.store.Close(); err != nil {
			logger.Warn("failed to close vector store during reset", "error", err)
		}
		r.store = nil
	}
	r.embedder = nil
}

// Close releases the underlying handles at shutdown.
func (r *Registry) Close() {
	r.Reset()
}
