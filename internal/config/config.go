package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Common holds the settings every service reads.
type Common struct {
	Port         string
	GinMode      string
	CORSOrigins  []string
	OTLPEndpoint string
}

// VectorStoreConfig selects and addresses the vector index engine.
// Mode "local" persists an embedded store under Path; "docker" talks to a
// Chroma server at Host:Port; "qdrant" talks to a Qdrant gRPC endpoint at
// Host:Port.
type VectorStoreConfig struct {
	Mode           string
	Path           string
	Host           string
	Port           int
	CollectionName string
}

// EmbeddingConfig selects the embedding model. Provider "local" is the
// deterministic in-process embedder with Dimensions outputs; "google" and
// "openai" call the respective APIs with ModelName.
type EmbeddingConfig struct {
	Provider   string
	ModelName  string
	APIKey     string
	Dimensions int
}

// IngestionConfig configures the ingestion service.
type IngestionConfig struct {
	Common
	SourceDirectory   string
	MaxFileSizeMB     int
	ChunkSize         int
	ChunkOverlap      int
	CleanBeforeIngest bool
	IngestScanCron    string
	VectorStore       VectorStoreConfig
	Embedding         EmbeddingConfig
}

// RetrievalConfig configures the retrieval service.
type RetrievalConfig struct {
	Common
	TopKResults       int
	DistanceThreshold float64
	VectorStore       VectorStoreConfig
	Embedding         EmbeddingConfig
}

// GenerationConfig configures the generation service.
type GenerationConfig struct {
	Common
	LLMProvider    string
	LLMModelName   string
	LLMTemperature float64
	LLMMaxTokens   int
	LLMAPIKey      string
}

// OrchestratorConfig configures the public API service.
type OrchestratorConfig struct {
	Common
	RetrievalServiceURL  string
	GenerationServiceURL string
	IngestionServiceURL  string
	RateLimitReqs        int
	RateLimitWindowSec   int
}

func loadDotenv() error {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return fmt.Errorf("error loading .env file: %v", err)
		}
	}
	return nil
}

func loadCommon(defaultPort string) Common {
	return Common{
		Port:         getEnv("PORT", defaultPort),
		GinMode:      getEnv("GIN_MODE", "debug"),
		CORSOrigins:  strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:8080"), ","),
		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
	}
}

func loadVectorStore() (VectorStoreConfig, error) {
	cfg := VectorStoreConfig{
		Mode:           getEnv("CHROMA_MODE", "local"),
		Path:           getEnv("CHROMA_PATH", ""),
		Host:           getEnv("CHROMA_HOST", ""),
		Port:           getEnvInt("CHROMA_PORT", 0),
		CollectionName: getEnv("CHROMA_COLLECTION_NAME", ""),
	}

	if cfg.CollectionName == "" {
		return cfg, fmt.Errorf("CHROMA_COLLECTION_NAME is required")
	}

	switch cfg.Mode {
	case "local":
		if cfg.Path == "" {
			return cfg, fmt.Errorf("CHROMA_PATH is required when CHROMA_MODE=local")
		}
	case "docker", "qdrant":
		if cfg.Host == "" || cfg.Port == 0 {
			return cfg, fmt.Errorf("CHROMA_HOST and CHROMA_PORT are required when CHROMA_MODE=%s", cfg.Mode)
		}
	default:
		return cfg, fmt.Errorf("CHROMA_MODE must be one of local, docker, qdrant (got %q)", cfg.Mode)
	}

	return cfg, nil
}

func loadEmbedding() (EmbeddingConfig, error) {
	cfg := EmbeddingConfig{
		Provider:   getEnv("EMBEDDING_PROVIDER", "local"),
		ModelName:  getEnv("EMBEDDING_MODEL_NAME", "all-MiniLM-L6-v2"),
		APIKey:     getEnv("EMBEDDING_API_KEY", getEnv("LLM_API_KEY", "")),
		Dimensions: getEnvInt("EMBEDDING_DIMENSIONS", 384),
	}

	switch cfg.Provider {
	case "local":
		if cfg.Dimensions <= 0 {
			return cfg, fmt.Errorf("EMBEDDING_DIMENSIONS must be positive")
		}
	case "google", "openai":
		if cfg.APIKey == "" {
			return cfg, fmt.Errorf("EMBEDDING_API_KEY is required for provider %q", cfg.Provider)
		}
	default:
		return cfg, fmt.Errorf("unknown embedding provider: %s", cfg.Provider)
	}

	return cfg, nil
}

// LoadIngestion loads and validates the ingestion service configuration.
func LoadIngestion() (*IngestionConfig, error) {
	if err := loadDotenv(); err != nil {
		return nil, err
	}

	cfg := &IngestionConfig{
		Common:            loadCommon("8001"),
		SourceDirectory:   getEnv("SOURCE_DIRECTORY", "./source_documents"),
		MaxFileSizeMB:     getEnvInt("MAX_FILE_SIZE_MB", 50),
		ChunkSize:         getEnvInt("CHUNK_SIZE", 1000),
		ChunkOverlap:      getEnvInt("CHUNK_OVERLAP", 200),
		CleanBeforeIngest: getEnvBool("CLEAN_COLLECTION_BEFORE_INGEST", false),
		IngestScanCron:    getEnv("INGEST_SCAN_CRON", ""),
	}

	if cfg.MaxFileSizeMB < 1 || cfg.MaxFileSizeMB > 500 {
		return nil, fmt.Errorf("MAX_FILE_SIZE_MB must be between 1 and 500 (got %d)", cfg.MaxFileSizeMB)
	}
	if cfg.ChunkSize <= 100 || cfg.ChunkSize > 4000 {
		return nil, fmt.Errorf("CHUNK_SIZE must be in (100, 4000] (got %d)", cfg.ChunkSize)
	}
	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		return nil, fmt.Errorf("CHUNK_OVERLAP must be in [0, CHUNK_SIZE) (got %d)", cfg.ChunkOverlap)
	}

	var err error
	if cfg.VectorStore, err = loadVectorStore(); err != nil {
		return nil, err
	}
	if cfg.Embedding, err = loadEmbedding(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadRetrieval loads and validates the retrieval service configuration.
func LoadRetrieval() (*RetrievalConfig, error) {
	if err := loadDotenv(); err != nil {
		return nil, err
	}

	cfg := &RetrievalConfig{
		Common:            loadCommon("8002"),
		TopKResults:       getEnvInt("TOP_K_RESULTS", 5),
		DistanceThreshold: getEnvFloat64("DISTANCE_THRESHOLD", 1.0),
	}

	if cfg.TopKResults <= 0 {
		return nil, fmt.Errorf("TOP_K_RESULTS must be positive (got %d)", cfg.TopKResults)
	}

	var err error
	if cfg.VectorStore, err = loadVectorStore(); err != nil {
		return nil, err
	}
	if cfg.Embedding, err = loadEmbedding(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadGeneration loads and validates the generation service configuration.
func LoadGeneration() (*GenerationConfig, error) {
	if err := loadDotenv(); err != nil {
		return nil, err
	}

	cfg := &GenerationConfig{
		Common:         loadCommon("8003"),
		LLMProvider:    getEnv("LLM_PROVIDER", "gemini"),
		LLMModelName:   getEnv("LLM_MODEL_NAME", "gemini-2.0-flash"),
		LLMTemperature: getEnvFloat64("LLM_TEMPERATURE", 0.2),
		LLMMaxTokens:   getEnvInt("LLM_MAX_TOKENS", 1024),
		LLMAPIKey:      getEnv("LLM_API_KEY", ""),
	}

	switch cfg.LLMProvider {
	case "gemini", "openai":
	default:
		return nil, fmt.Errorf("LLM_PROVIDER must be gemini or openai (got %q)", cfg.LLMProvider)
	}
	if cfg.LLMAPIKey == "" {
		return nil, fmt.Errorf("LLM_API_KEY is required")
	}

	return cfg, nil
}

// LoadOrchestrator loads and validates the orchestrator configuration.
func LoadOrchestrator() (*OrchestratorConfig, error) {
	if err := loadDotenv(); err != nil {
		return nil, err
	}

	cfg := &OrchestratorConfig{
		Common:               loadCommon("8000"),
		RetrievalServiceURL:  getEnv("RETRIEVAL_SERVICE_URL", "http://localhost:8002"),
		GenerationServiceURL: getEnv("GENERATION_SERVICE_URL", "http://localhost:8003"),
		IngestionServiceURL:  getEnv("INGESTION_SERVICE_URL", "http://localhost:8001"),
		RateLimitReqs:        getEnvInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindowSec:   getEnvInt("RATE_LIMIT_WINDOW", 60),
	}

	for name, u := range map[string]string{
		"RETRIEVAL_SERVICE_URL":  cfg.RetrievalServiceURL,
		"GENERATION_SERVICE_URL": cfg.GenerationServiceURL,
		"INGESTION_SERVICE_URL":  cfg.IngestionServiceURL,
	} {
		if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
			return nil, fmt.Errorf("%s must be an http(s) URL (got %q)", name, u)
		}
	}

	return cfg, nil
}
