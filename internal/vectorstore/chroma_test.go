package vectorstore

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newChromaStub serves just enough of the Chroma v1 API for the store to
// resolve, upsert into, read from, and delete one collection.
func newChromaStub(t *testing.T) *httptest.Server {
	t.Helper()

	var mu sync.Mutex
	deleted := false

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()

		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/v1/collections/test_collection":
			if deleted {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			json.NewEncoder(w).Encode(chromaCollection{ID: "col-uuid", Name: "test_collection"})
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/upsert"):
			w.WriteHeader(http.StatusOK)
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/get"):
			json.NewEncoder(w).Encode(chromaGetResponse{
				IDs:       []string{"a_chunk_0"},
				Metadatas: []map[string]string{{"source": "a.pdf"}},
			})
		case r.Method == http.MethodDelete && r.URL.Path == "/api/v1/collections/test_collection":
			deleted = true
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestChromaResolvesAndCachesCollection(t *testing.T) {
	ctx := context.Background()
	store := newChromaStore(newChromaStub(t).URL, "test_collection")

	sources, err := store.Sources(ctx)
	require.NoError(t, err)
	assert.True(t, sources["a.pdf"])

	require.NoError(t, store.Add(ctx, []Row{row("a_chunk_0", "text", "a.pdf", []float32{1, 0})}))

	// Deletion drops the cached handle, so the next call resolves again
	// and observes the missing collection.
	require.NoError(t, store.DeleteCollection(ctx))
	_, err = store.Sources(ctx)
	assert.ErrorIs(t, err, ErrCollectionNotFound)
}

func TestChromaConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	store := newChromaStore(newChromaStub(t).URL, "test_collection")

	// Mirrors production traffic on the shared registry handle: upload
	// duplicate checks, pipeline writes, and a clear all in flight at once.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store.Sources(ctx)
		}()
		wg.Add(1)
		go func() {
			defer wg.Done()
			store.Add(ctx, []Row{row("a_chunk_0", "text", "a.pdf", []float32{1, 0})})
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		store.DeleteCollection(ctx)
	}()
	wg.Wait()
}
