package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// chromaStore talks to a Chroma server over its v1 HTTP API. Collection
// resolution is lazy: the collection UUID is looked up (or created) on first
// use and cached until DeleteCollection invalidates it.
type chromaStore struct {
	httpClient *http.Client
	baseURL    string
	collection string

	// mu guards collectionID; the registry shares one store across
	// request handlers and the background ingestion run.
	mu           sync.Mutex
	collectionID string
}

type chromaCollection struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type chromaAddRequest struct {
	IDs        []string            `json:"ids"`
	Documents  []string            `json:"documents"`
	Embeddings [][]float32         `json:"embeddings"`
	Metadatas  []map[string]string `json:"metadatas"`
}

type chromaQueryRequest struct {
	QueryEmbeddings [][]float32 `json:"query_embeddings"`
	NResults        int         `json:"n_results"`
	Include         []string    `json:"include"`
}

type chromaQueryResponse struct {
	IDs       [][]string            `json:"ids"`
	Documents [][]string            `json:"documents"`
	Distances [][]float32           `json:"distances"`
	Metadatas [][]map[string]string `json:"metadatas"`
}

type chromaGetResponse struct {
	IDs       []string            `json:"ids"`
	Metadatas []map[string]string `json:"metadatas"`
}

func newChromaStore(baseURL, collection string) *chromaStore {
	return &chromaStore{
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
	}
}

func (s *chromaStore) CollectionName() string { return s.collection }

func (s *chromaStore) do(ctx context.Context, method, path string, body, out any) error {
	var buf io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		buf = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, buf)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("chroma request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		if resp.StatusCode == http.StatusNotFound || strings.Contains(string(raw), "does not exist") {
			return ErrCollectionNotFound
		}
		return fmt.Errorf("chroma returned status %d: %s", resp.StatusCode, string(raw))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode chroma response: %w", err)
		}
	}
	return nil
}

// resolveCollection returns the cached collection UUID, looking it up by name
// when the cache is cold. It does not create the collection.
func (s *chromaStore) resolveCollection(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.collectionID != "" {
		return s.collectionID, nil
	}

	var col chromaCollection
	err := s.do(ctx, http.MethodGet, "/api/v1/collections/"+s.collection, nil, &col)
	if err != nil {
		return "", err
	}
	s.collectionID = col.ID
	return col.ID, nil
}

func (s *chromaStore) EnsureCollection(ctx context.Context) error {
	var col chromaCollection
	err := s.do(ctx, http.MethodPost, "/api/v1/collections", map[string]any{
		"name":          s.collection,
		"get_or_create": true,
	}, &col)
	if err != nil {
		return fmt.Errorf("failed to ensure collection %s: %w", s.collection, err)
	}
	s.mu.Lock()
	s.collectionID = col.ID
	s.mu.Unlock()
	return nil
}

func (s *chromaStore) Add(ctx context.Context, rows []Row) error {
	if len(rows) == 0 {
		return nil
	}

	id, err := s.resolveCollection(ctx)
	if err != nil {
		return err
	}

	req := chromaAddRequest{
		IDs:        make([]string, len(rows)),
		Documents:  make([]string, len(rows)),
		Embeddings: make([][]float32, len(rows)),
		Metadatas:  make([]map[string]string, len(rows)),
	}
	for i, r := range rows {
		req.IDs[i] = r.ID
		req.Documents[i] = r.Text
		req.Embeddings[i] = r.Embedding
		req.Metadatas[i] = r.Metadata
	}

	return s.do(ctx, http.MethodPost, "/api/v1/collections/"+id+"/upsert", req, nil)
}

func (s *chromaStore) Query(ctx context.Context, embedding []float32, topK int) ([]QueryHit, error) {
	id, err := s.resolveCollection(ctx)
	if err != nil {
		return nil, err
	}

	var resp chromaQueryResponse
	err = s.do(ctx, http.MethodPost, "/api/v1/collections/"+id+"/query", chromaQueryRequest{
		QueryEmbeddings: [][]float32{embedding},
		NResults:        topK,
		Include:         []string{"documents", "distances", "metadatas"},
	}, &resp)
	if err != nil {
		return nil, err
	}

	if len(resp.IDs) == 0 {
		return nil, nil
	}

	hits := make([]QueryHit, 0, len(resp.IDs[0]))
	for i, hitID := range resp.IDs[0] {
		hit := QueryHit{ID: hitID}
		if len(resp.Documents) > 0 && i < len(resp.Documents[0]) {
			hit.Text = resp.Documents[0][i]
		}
		if len(resp.Distances) > 0 && i < len(resp.Distances[0]) {
			hit.Distance = resp.Distances[0][i]
		}
		if len(resp.Metadatas) > 0 && i < len(resp.Metadatas[0]) {
			hit.Metadata = resp.Metadatas[0][i]
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

func (s *chromaStore) Sources(ctx context.Context) (map[string]bool, error) {
	id, err := s.resolveCollection(ctx)
	if err != nil {
		return nil, err
	}

	var resp chromaGetResponse
	err = s.do(ctx, http.MethodPost, "/api/v1/collections/"+id+"/get", map[string]any{
		"include": []string{"metadatas"},
	}, &resp)
	if err != nil {
		return nil, err
	}

	sources := make(map[string]bool)
	for _, m := range resp.Metadatas {
		if src, ok := m["source"]; ok && src != "" {
			sources[src] = true
		}
	}
	return sources, nil
}

func (s *chromaStore) Count(ctx context.Context) (int64, error) {
	id, err := s.resolveCollection(ctx)
	if err != nil {
		return 0, err
	}

	var n int64
	if err := s.do(ctx, http.MethodGet, "/api/v1/collections/"+id+"/count", nil, &n); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *chromaStore) DeleteCollection(ctx context.Context) error {
	if _, err := s.resolveCollection(ctx); err != nil {
		return err
	}

	err := s.do(ctx, http.MethodDelete, "/api/v1/collections/"+s.collection, nil, nil)
	s.mu.Lock()
	s.collectionID = ""
	s.mu.Unlock()
	return err
}

func (s *chromaStore) Close() error {
	s.httpClient.CloseIdleConnections()
	return nil
}
