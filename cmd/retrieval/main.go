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

	"rag-platform/internal/config"
	"rag-platform/internal/logger"
	"rag-platform/internal/telemetry"
	"rag-platform/internal/vectorstore"
	"rag-platform/middleware"
	"rag-platform/routes"
	"rag-platform/services"
)

func main() {
	cfg, err := config.LoadRetrieval()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger.Init("retrieval", cfg.GinMode != "release")

	shutdownTracer, err := telemetry.InitTracer("retrieval", cfg.OTLPEndpoint)
	if err != nil {
		logger.Warn("tracing disabled", "error", err)
	} else {
		defer shutdownTracer()
	}

	metrics, err := telemetry.InitMetrics("retrieval")
	if err != nil {
		log.Fatal("Failed to initialize metrics:", err)
	}

	registry := vectorstore.NewRegistry(cfg.VectorStore, cfg.Embedding)
	defer registry.Close()

	retrieval := services.NewRetrievalService(registry, metrics, cfg.TopKResults, float32(cfg.DistanceThreshold))

	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.TracingMiddleware("retrieval"))
	router.Use(middleware.EnrichTrace())
	router.Use(middleware.MetricsMiddleware(metrics))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"}
	router.Use(cors.New(corsConfig))

	routes.SetupRetrievalRoutes(router, retrieval)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("retrieval service starting", "port", cfg.Port, "top_k", cfg.TopKResults, "threshold", cfg.DistanceThreshold)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down retrieval service")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	logger.Info("retrieval service exited")
}
