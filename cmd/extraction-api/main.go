// Package main provides the extraction API service entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/simrs/icdflow/internal/api/handlers"
	"github.com/simrs/icdflow/internal/api/middleware"
	"github.com/simrs/icdflow/internal/infrastructure/postgres"
	"github.com/simrs/icdflow/internal/ner"
	"github.com/simrs/icdflow/internal/observability/metrics"
	"github.com/simrs/icdflow/internal/observability/tracing"
	"github.com/simrs/icdflow/internal/pipeline"
	"github.com/simrs/icdflow/pkg/workerpool"
)

// Config holds application configuration
type Config struct {
	Port         string
	DatabaseURL  string
	ExtractorURL string
	OTLPEndpoint string
	APIKeys      map[string]string
	Workers      int
}

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Load configuration
	cfg := loadConfig()

	ctx := context.Background()

	// Initialize tracing
	tracingCfg := tracing.DefaultConfig("extraction-api")
	tracingCfg.OTLPEndpoint = cfg.OTLPEndpoint
	tp, err := tracing.Init(ctx, tracingCfg)
	if err != nil {
		logger.Fatal("tracing init failed", zap.Error(err))
	}
	defer tp.Shutdown(context.Background())

	// Load the mapping table. An empty DATABASE_URL falls back to the
	// built-in dictionary.
	table, dbPool, err := postgres.LoadMappingTable(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		logger.Fatal("failed to load mapping table", zap.Error(err))
	}
	if dbPool != nil {
		defer dbPool.Close()
	}
	logger.Info("mapping table loaded", zap.Int("entries", table.Len()))

	// Initialize extractor client
	nerCfg := ner.DefaultClientConfig()
	nerCfg.BaseURL = cfg.ExtractorURL
	extractor, err := ner.NewClient(nerCfg, logger)
	if err != nil {
		logger.Fatal("extractor client creation failed", zap.Error(err))
	}

	// Initialize pipeline
	resolver := pipeline.NewResolver(table)

	poolCfg := workerpool.DefaultConfig()
	poolCfg.Workers = cfg.Workers
	orchestrator, err := pipeline.NewOrchestrator(resolver, poolCfg, logger)
	if err != nil {
		logger.Fatal("orchestrator creation failed", zap.Error(err))
	}
	orchestrator.Start()
	defer orchestrator.Stop()

	// Initialize metrics and handlers
	m := metrics.New()
	extractionHandler := handlers.NewExtractionHandler(extractor, orchestrator, resolver, m, logger)

	// Setup router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Recover(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Tracing("extraction-api"))

	// Health check (no auth)
	r.Get("/health", healthHandler)
	r.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		if dbPool != nil {
			if err := dbPool.Ping(r.Context()); err != nil {
				http.Error(w, "not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ready"))
	})
	r.Handle("/metrics", metrics.Handler())

	// API routes (with auth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(cfg.APIKeys))
		r.Use(middleware.MaxBodySize(32 << 20))
		extractionHandler.Routes(r)
	})

	// Start server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 180 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("shutting down server")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error("shutdown error", zap.Error(err))
		}
	}()

	logger.Info("starting extraction API", zap.String("port", cfg.Port))
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}

	logger.Info("server stopped")
}

func loadConfig() Config {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8082"
	}

	extractorURL := os.Getenv("EXTRACTOR_URL")
	if extractorURL == "" {
		extractorURL = "http://localhost:8090"
	}

	workers := 16
	if w := os.Getenv("PIPELINE_WORKERS"); w != "" {
		if n, err := strconv.Atoi(w); err == nil && n > 0 {
			workers = n
		}
	}

	// Simple API keys for demo
	apiKeys := map[string]string{
		"demo-api-key-12345": "demo-client",
		"test-api-key-67890": "test-client",
	}

	// Override from environment if set
	if key := os.Getenv("API_KEY"); key != "" {
		apiKeys[key] = "env-client"
	}

	return Config{
		Port:         port,
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		ExtractorURL: extractorURL,
		OTLPEndpoint: os.Getenv("OTLP_ENDPOINT"),
		APIKeys:      apiKeys,
		Workers:      workers,
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"healthy","service":"extraction-api","version":"1.0.0"}`)
}
