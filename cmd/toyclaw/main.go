package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/bbbkawaii/toyclaw-sub000/internal/config"
	"github.com/bbbkawaii/toyclaw-sub000/internal/db"
	"github.com/bbbkawaii/toyclaw-sub000/internal/db/memory"
	dbRedis "github.com/bbbkawaii/toyclaw-sub000/internal/db/redis"
	"github.com/bbbkawaii/toyclaw-sub000/internal/domain"
	logpkg "github.com/bbbkawaii/toyclaw-sub000/internal/logger"
	"github.com/bbbkawaii/toyclaw-sub000/internal/metrics"
	analysisrepo "github.com/bbbkawaii/toyclaw-sub000/internal/repository/analysis"
	assessmentrepo "github.com/bbbkawaii/toyclaw-sub000/internal/repository/assessment"
	"github.com/bbbkawaii/toyclaw-sub000/internal/repository/embcache"
	chiTransport "github.com/bbbkawaii/toyclaw-sub000/internal/transport/chi"
	"github.com/bbbkawaii/toyclaw-sub000/internal/transport/gemini"
	openaiEmb "github.com/bbbkawaii/toyclaw-sub000/internal/transport/openai"
	complianceuc "github.com/bbbkawaii/toyclaw-sub000/internal/usecase/compliance"
	embeddinguc "github.com/bbbkawaii/toyclaw-sub000/internal/usecase/embedding"
	healthuc "github.com/bbbkawaii/toyclaw-sub000/internal/usecase/health"
	reportuc "github.com/bbbkawaii/toyclaw-sub000/internal/usecase/report"
	retrievaluc "github.com/bbbkawaii/toyclaw-sub000/internal/usecase/retrieval"
	"github.com/bbbkawaii/toyclaw-sub000/internal/version"
)

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(logpkg.Options{Env: env, Level: cfg.Logging.Level, Component: logpkg.ComponentAPI})
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting toyclaw API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.String("index_dir", cfg.Index.Dir),
	)

	if cfg.Embedding.APIKey == "" {
		logger.Fatal("embedding.api_key is required")
	}
	if cfg.Generation.APIKey == "" {
		logger.Fatal("generation.api_key is required")
	}

	metrics.Register()

	store, err := openStore(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	analyses := analysisrepo.New(store, cfg.Storage.KeyPrefix)
	if cfg.Database.SeedFile != "" {
		n, err := analyses.Seed(ctx, cfg.Database.SeedFile)
		if err != nil {
			logger.Fatal("Failed to seed analysis records", zap.String("file", cfg.Database.SeedFile), zap.Error(err))
		}
		logger.Info("Seeded analysis records", zap.Int("count", n))
	}
	assessments := assessmentrepo.New(store, cfg.Storage.KeyPrefix)

	queryEmbedder := buildEmbedder(cfg, store, logger)

	retriever := retrievaluc.New(cfg.Index.Dir, queryEmbedder, logger,
		retrievaluc.WithDefaultTopK(cfg.Index.TopK),
	)
	if *cfg.Index.EagerLoad {
		if err := retriever.Load(ctx); err != nil {
			// Not fatal: the service stays up and reports INDEX_MISSING until
			// the index is built and a request triggers another load.
			logger.Warn("Compliance index not loaded", zap.Error(err))
		}
	}

	generator := reportuc.New(
		gemini.NewClient(&gemini.Config{
			APIKey:  cfg.Generation.APIKey,
			BaseURL: cfg.Generation.BaseURL,
			Model:   cfg.Generation.Model,
			Timeout: cfg.GenerationTimeout(),
			Logger:  logger,
		}),
		reportuc.Config{
			Model:        cfg.Generation.Model,
			Temperature:  cfg.Generation.Temperature,
			MaxAttempts:  cfg.Generation.MaxAttempts,
			RetryBackoff: time.Duration(cfg.Generation.RetryBackoffMs) * time.Millisecond,
		},
		logger,
	)

	complianceSvc := complianceuc.New(analyses, assessments, retriever, generator,
		complianceuc.WithTopK(cfg.Index.TopK),
	)
	healthSvc := healthuc.New(store, retriever, queryEmbedder)

	server := chiTransport.NewServer(complianceSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Mount(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

func openStore(cfg config.DatabaseConfig) (db.Store, error) {
	switch cfg.Driver {
	case config.DriverRedis:
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Addrs,
			Username: cfg.Username,
			Password: cfg.Password,
			DB:       cfg.DB,
		})
		if err != nil {
			return nil, fmt.Errorf("redis store: %w", err)
		}
		return s, nil
	case config.DriverMemory:
		return memory.NewStore(), nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

// buildEmbedder assembles the query embedder chain: OpenAI -> Cached -> Instrumented.
func buildEmbedder(cfg config.Config, store db.KVStore, logger *zap.Logger) *embeddinguc.InstrumentedEmbedder {
	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Timeout:    cfg.EmbeddingTimeout(),
		Provider:   cfg.Embedding.Provider,
		Logger:     logger,
	})

	var embedder domain.Embedder = base
	if cfg.Embedding.CacheTTLSec > 0 {
		embedder = embcache.New(base, store, embcache.Config{
			Prefix: cfg.Storage.KeyPrefix,
			Model:  cfg.Embedding.Model,
			TTL:    time.Duration(cfg.Embedding.CacheTTLSec) * time.Second,
		}, metrics.EmbeddingCacheTotal, logger)
	}

	return embeddinguc.NewInstrumentedEmbedder(
		embedder, cfg.Embedding.Provider, cfg.Embedding.Model, cfg.Embedding.BatchSize, logger,
	)
}
