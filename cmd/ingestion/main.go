package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-co-op/gocron"

	"rag-platform/internal/config"
	"rag-platform/internal/logger"
	"rag-platform/internal/telemetry"
	"rag-platform/internal/vectorstore"
	"rag-platform/middleware"
	"rag-platform/routes"
	"rag-platform/services"
)

func main() {
	cfg, err := config.LoadIngestion()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger.Init("ingestion", cfg.GinMode != "release")

	shutdownTracer, err := telemetry.InitTracer("ingestion", cfg.OTLPEndpoint)
	if err != nil {
		logger.Warn("tracing disabled", "error", err)
	} else {
		defer shutdownTracer()
	}

	metrics, err := telemetry.InitMetrics("ingestion")
	if err != nil {
		log.Fatal("Failed to initialize metrics:", err)
	}

	registry := vectorstore.NewRegistry(cfg.VectorStore, cfg.Embedding)
	defer registry.Close()

	maxFileBytes := int64(cfg.MaxFileSizeMB) << 20
	state := services.NewIngestionState()
	documents := services.NewDocumentService(cfg.SourceDirectory)
	pipeline := services.NewIngestionPipeline(
		registry,
		services.NewPDFExtractor(maxFileBytes),
		services.NewChunkingService(cfg.ChunkSize, cfg.ChunkOverlap),
		documents,
		state,
		metrics,
		cfg.CleanBeforeIngest,
	)
	clearService := services.NewClearService(registry, documents, state)

	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.TracingMiddleware("ingestion"))
	router.Use(middleware.EnrichTrace())
	router.Use(middleware.MetricsMiddleware(metrics))
	router.Use(middleware.RequestSizeLimit(maxFileBytes + 1<<20))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"}
	router.Use(cors.New(corsConfig))

	routes.SetupIngestionRoutes(router, &routes.IngestionDeps{
		Registry:     registry,
		Pipeline:     pipeline,
		State:        state,
		Documents:    documents,
		Clear:        clearService,
		MaxFileBytes: maxFileBytes,
	})

	// Optional periodic scan of the source directory, for files dropped in
	// without going through the upload endpoint.
	var scheduler *gocron.Scheduler
	if cfg.IngestScanCron != "" {
		scheduler = gocron.NewScheduler(time.UTC)
		_, err := scheduler.Cron(cfg.IngestScanCron).Do(func() {
			scanAndIngest(pipeline, state)
		})
		if err != nil {
			log.Fatal("Invalid INGEST_SCAN_CRON expression:", err)
		}
		scheduler.StartAsync()
		logger.Info("scheduled source directory scan", "cron", cfg.IngestScanCron)
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("ingestion service starting", "port", cfg.Port, "source_dir", cfg.SourceDirectory)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down ingestion service")

	if scheduler != nil {
		scheduler.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	logger.Info("ingestion service exited")
}

func scanAndIngest(pipeline *services.IngestionPipeline, state *services.IngestionState) {
	ctx := context.Background()

	paths, err := pipeline.NewFiles(ctx)
	if err != nil {
		logger.Error("scheduled scan failed", "error", err)
		return
	}
	if len(paths) == 0 {
		return
	}
	if !state.TryStart() {
		logger.Debug("scheduled scan skipped, ingestion already running")
		return
	}

	logger.Info("scheduled scan found new documents", "count", len(paths))
	pipeline.Run(ctx, paths)
}
