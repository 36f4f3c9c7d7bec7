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

	"rag-platform/clients"
	"rag-platform/internal/config"
	"rag-platform/internal/logger"
	"rag-platform/internal/telemetry"
	"rag-platform/middleware"
	"rag-platform/routes"
)

func main() {
	cfg, err := config.LoadOrchestrator()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger.Init("orchestrator", cfg.GinMode != "release")

	shutdownTracer, err := telemetry.InitTracer("orchestrator", cfg.OTLPEndpoint)
	if err != nil {
		logger.Warn("tracing disabled", "error", err)
	} else {
		defer shutdownTracer()
	}

	metrics, err := telemetry.InitMetrics("orchestrator")
	if err != nil {
		log.Fatal("Failed to initialize metrics:", err)
	}

	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.TracingMiddleware("orchestrator"))
	router.Use(middleware.EnrichTrace())
	router.Use(middleware.MetricsMiddleware(metrics))
	router.Use(middleware.RateLimitMiddleware(cfg.RateLimitReqs, cfg.RateLimitWindowSec))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"}
	corsConfig.AllowCredentials = true
	router.Use(cors.New(corsConfig))

	routes.SetupOrchestratorRoutes(router, &routes.OrchestratorDeps{
		Retrieval:  clients.NewRetrievalClient(cfg.RetrievalServiceURL),
		Generation: clients.NewGenerationClient(cfg.GenerationServiceURL),
		Ingestion:  clients.NewIngestionClient(cfg.IngestionServiceURL),
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("orchestrator starting", "port", cfg.Port,
			"retrieval_url", cfg.RetrievalServiceURL,
			"generation_url", cfg.GenerationServiceURL,
			"ingestion_url", cfg.IngestionServiceURL)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down orchestrator")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	logger.Info("orchestrator exited")
}
