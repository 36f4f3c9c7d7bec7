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

	"rag-platform/internal/ai"
	"rag-platform/internal/config"
	"rag-platform/internal/logger"
	"rag-platform/internal/telemetry"
	"rag-platform/middleware"
	"rag-platform/routes"
	"rag-platform/services"
)

func main() {
	cfg, err := config.LoadGeneration()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger.Init("generation", cfg.GinMode != "release")

	shutdownTracer, err := telemetry.InitTracer("generation", cfg.OTLPEndpoint)
	if err != nil {
		logger.Warn("tracing disabled", "error", err)
	} else {
		defer shutdownTracer()
	}

	metrics, err := telemetry.InitMetrics("generation")
	if err != nil {
		log.Fatal("Failed to initialize metrics:", err)
	}

	llm, err := ai.NewLLM(context.Background(), cfg.LLMProvider, ai.LLMOptions{
		ModelName:   cfg.LLMModelName,
		Temperature: cfg.LLMTemperature,
		MaxTokens:   cfg.LLMMaxTokens,
		APIKey:      cfg.LLMAPIKey,
	})
	if err != nil {
		log.Fatal("Failed to initialize LLM client:", err)
	}
	defer llm.Close()

	generation := services.NewGenerationService(llm, metrics, cfg.LLMProvider, cfg.LLMModelName)

	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.TracingMiddleware("generation"))
	router.Use(middleware.EnrichTrace())
	router.Use(middleware.MetricsMiddleware(metrics))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"}
	router.Use(cors.New(corsConfig))

	routes.SetupGenerationRoutes(router, generation)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("generation service starting", "port", cfg.Port, "provider", cfg.LLMProvider, "model", cfg.LLMModelName)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down generation service")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	logger.Info("generation service exited")
}
