package services

import (
	"context"
	"fmt"
	"sync"

	"rag-platform/internal/ai"
	"rag-platform/internal/config"
	"rag-platform/internal/vectorstore"
)

// memStore is an in-memory vectorstore.Store for tests. Query returns the
// canned hits so distance behavior can be scripted.
type memStore struct {
	mu       sync.Mutex
	rows     map[string]vectorstore.Row
	hits     []vectorstore.QueryHit
	queryErr error
	addErr   error
	addCalls int
	deleted  bool
	closed   bool
}

func newMemStore() *memStore {
	return &memStore{rows: make(map[string]vectorstore.Row)}
}

func (m *memStore) EnsureCollection(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = false
	return nil
}

func (m *memStore) Add(ctx context.Context, rows []vectorstore.Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addCalls++
	if m.addErr != nil {
		return m.addErr
	}
	for _, r := range rows {
		m.rows[r.ID] = r
	}
	return nil
}

func (m *memStore) Query(ctx context.Context, embedding []float32, topK int) ([]vectorstore.QueryHit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	if topK < len(m.hits) {
		return m.hits[:topK], nil
	}
	return m.hits, nil
}

func (m *memStore) Sources(ctx context.Context) (map[string]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sources := make(map[string]bool)
	for _, r := range m.rows {
		if src := r.Metadata["source"]; src != "" {
			sources[src] = true
		}
	}
	return sources, nil
}

func (m *memStore) Count(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.rows)), nil
}

func (m *memStore) DeleteCollection(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleted {
		return vectorstore.ErrCollectionNotFound
	}
	m.deleted = true
	m.rows = make(map[string]vectorstore.Row)
	return nil
}

func (m *memStore) CollectionName() string { return "test_collection" }

func (m *memStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *memStore) rowCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

func storeRow(source string) vectorstore.Row {
	return vectorstore.Row{
		ID:        source + "_chunk_0",
		Text:      "seed",
		Embedding: []float32{0.1},
		Metadata:  map[string]string{"source": source},
	}
}

// testRegistry wires a registry around fixed fakes.
func testRegistry(store vectorstore.Store, embedder ai.Embedder) *vectorstore.Registry {
	reg := vectorstore.NewRegistry(config.VectorStoreConfig{}, config.EmbeddingConfig{})
	reg.StoreFactory = func(ctx context.Context) (vectorstore.Store, error) {
		return store, nil
	}
	reg.EmbedderFactory = func(ctx context.Context) (ai.Embedder, error) {
		return embedder, nil
	}
	return reg
}

// stubExtractor returns canned text per path.
type stubExtractor struct {
	texts map[string]string
	errs  map[string]error
}

func (s *stubExtractor) Extract(ctx context.Context, filePath string) (string, error) {
	if err, ok := s.errs[filePath]; ok {
		return "", err
	}
	if text, ok := s.texts[filePath]; ok {
		return text, nil
	}
	return "", fmt.Errorf("no stub text for %s", filePath)
}
