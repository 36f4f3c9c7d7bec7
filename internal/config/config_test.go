package config

import (
	"strings"
	"testing"
)

func setIngestionEnv(t *testing.T) {
	t.Helper()
	t.Setenv("CHROMA_MODE", "local")
	t.Setenv("CHROMA_PATH", t.TempDir())
	t.Setenv("CHROMA_COLLECTION_NAME", "test_docs")
	t.Setenv("EMBEDDING_PROVIDER", "local")
}

func TestLoadIngestionDefaults(t *testing.T) {
	setIngestionEnv(t)

	cfg, err := LoadIngestion()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "8001" {
		t.Errorf("unexpected default port: %s", cfg.Port)
	}
	if cfg.ChunkSize != 1000 || cfg.ChunkOverlap != 200 {
		t.Errorf("unexpected chunking defaults: %d/%d", cfg.ChunkSize, cfg.ChunkOverlap)
	}
	if cfg.VectorStore.CollectionName != "test_docs" {
		t.Errorf("collection name not read: %s", cfg.VectorStore.CollectionName)
	}
}

func TestChunkOverlapBoundaries(t *testing.T) {
	setIngestionEnv(t)
	t.Setenv("CHUNK_SIZE", "1000")

	t.Setenv("CHUNK_OVERLAP", "999")
	if _, err := LoadIngestion(); err != nil {
		t.Errorf("overlap of size-1 must be accepted: %v", err)
	}

	t.Setenv("CHUNK_OVERLAP", "1000")
	if _, err := LoadIngestion(); err == nil {
		t.Error("overlap equal to size must be rejected")
	}

	t.Setenv("CHUNK_OVERLAP", "-1")
	if _, err := LoadIngestion(); err == nil {
		t.Error("negative overlap must be rejected")
	}
}

func TestChunkSizeBoundaries(t *testing.T) {
	setIngestionEnv(t)

	t.Setenv("CHUNK_SIZE", "100")
	if _, err := LoadIngestion(); err == nil {
		t.Error("chunk size of 100 must be rejected (bound is exclusive)")
	}

	t.Setenv("CHUNK_SIZE", "101")
	t.Setenv("CHUNK_OVERLAP", "0")
	if _, err := LoadIngestion(); err != nil {
		t.Errorf("chunk size of 101 must be accepted: %v", err)
	}

	t.Setenv("CHUNK_SIZE", "4000")
	if _, err := LoadIngestion(); err != nil {
		t.Errorf("chunk size of 4000 must be accepted: %v", err)
	}

	t.Setenv("CHUNK_SIZE", "4001")
	if _, err := LoadIngestion(); err == nil {
		t.Error("chunk size above 4000 must be rejected")
	}
}

func TestMaxFileSizeBoundaries(t *testing.T) {
	setIngestionEnv(t)

	for _, tc := range []struct {
		value string
		ok    bool
	}{
		{"0", false},
		{"1", true},
		{"500", true},
		{"501", false},
	} {
		t.Setenv("MAX_FILE_SIZE_MB", tc.value)
		_, err := LoadIngestion()
		if tc.ok && err != nil {
			t.Errorf("MAX_FILE_SIZE_MB=%s should pass: %v", tc.value, err)
		}
		if !tc.ok && err == nil {
			t.Errorf("MAX_FILE_SIZE_MB=%s should fail", tc.value)
		}
	}
}

func TestVectorStoreModeValidation(t *testing.T) {
	t.Setenv("CHROMA_COLLECTION_NAME", "c")
	t.Setenv("EMBEDDING_PROVIDER", "local")

	t.Setenv("CHROMA_MODE", "local")
	t.Setenv("CHROMA_PATH", "")
	if _, err := LoadRetrieval(); err == nil || !strings.Contains(err.Error(), "CHROMA_PATH") {
		t.Errorf("local mode without path should fail: %v", err)
	}

	t.Setenv("CHROMA_MODE", "docker")
	t.Setenv("CHROMA_HOST", "")
	if _, err := LoadRetrieval(); err == nil || !strings.Contains(err.Error(), "CHROMA_HOST") {
		t.Errorf("docker mode without host should fail: %v", err)
	}

	t.Setenv("CHROMA_MODE", "qdrant")
	t.Setenv("CHROMA_HOST", "localhost")
	t.Setenv("CHROMA_PORT", "6334")
	if _, err := LoadRetrieval(); err != nil {
		t.Errorf("qdrant mode with host and port should pass: %v", err)
	}

	t.Setenv("CHROMA_MODE", "weaviate")
	if _, err := LoadRetrieval(); err == nil {
		t.Error("unknown mode should fail")
	}
}

func TestLoadRetrievalDefaults(t *testing.T) {
	setIngestionEnv(t)

	cfg, err := LoadRetrieval()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.TopKResults != 5 {
		t.Errorf("unexpected default top_k: %d", cfg.TopKResults)
	}
	if cfg.DistanceThreshold != 1.0 {
		t.Errorf("unexpected default threshold: %f", cfg.DistanceThreshold)
	}

	t.Setenv("TOP_K_RESULTS", "0")
	if _, err := LoadRetrieval(); err == nil {
		t.Error("non-positive top_k must be rejected")
	}
}

func TestLoadGenerationValidation(t *testing.T) {
	t.Setenv("LLM_API_KEY", "")
	if _, err := LoadGeneration(); err == nil {
		t.Error("missing LLM_API_KEY must be rejected")
	}

	t.Setenv("LLM_API_KEY", "k")
	t.Setenv("LLM_PROVIDER", "anthropic")
	if _, err := LoadGeneration(); err == nil {
		t.Error("unsupported provider must be rejected")
	}

	t.Setenv("LLM_PROVIDER", "openai")
	cfg, err := LoadGeneration()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "8003" {
		t.Errorf("unexpected default port: %s", cfg.Port)
	}
}

func TestLoadOrchestratorURLValidation(t *testing.T) {
	t.Setenv("RETRIEVAL_SERVICE_URL", "not-a-url")
	if _, err := LoadOrchestrator(); err == nil {
		t.Error("non-http URL must be rejected")
	}

	t.Setenv("RETRIEVAL_SERVICE_URL", "http://retrieval:8002")
	cfg, err := LoadOrchestrator()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.IngestionServiceURL != "http://localhost:8001" {
		t.Errorf("unexpected default ingestion URL: %s", cfg.IngestionServiceURL)
	}
}
