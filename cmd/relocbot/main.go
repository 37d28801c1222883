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
	"go.uber.org/zap"

	"github.com/sou1nonly/relocation-chatbot/internal/config"
	"github.com/sou1nonly/relocation-chatbot/internal/db"
	"github.com/sou1nonly/relocation-chatbot/internal/db/inmem"
	dbRedis "github.com/sou1nonly/relocation-chatbot/internal/db/redis"
	"github.com/sou1nonly/relocation-chatbot/internal/domain"
	"github.com/sou1nonly/relocation-chatbot/internal/domain/assembled"
	logpkg "github.com/sou1nonly/relocation-chatbot/internal/logger"
	"github.com/sou1nonly/relocation-chatbot/internal/metrics"
	"github.com/sou1nonly/relocation-chatbot/internal/repository/memory"
	"github.com/sou1nonly/relocation-chatbot/internal/repository/searchcache"
	chiTransport "github.com/sou1nonly/relocation-chatbot/internal/transport/chi"
	openaiAns "github.com/sou1nonly/relocation-chatbot/internal/transport/openai"
	"github.com/sou1nonly/relocation-chatbot/internal/transport/searchapi"
	"github.com/sou1nonly/relocation-chatbot/internal/usecase/assemble"
	batchuc "github.com/sou1nonly/relocation-chatbot/internal/usecase/batch"
	"github.com/sou1nonly/relocation-chatbot/internal/usecase/fallback"
	healthuc "github.com/sou1nonly/relocation-chatbot/internal/usecase/health"
	"github.com/sou1nonly/relocation-chatbot/internal/usecase/intent"
	"github.com/sou1nonly/relocation-chatbot/internal/usecase/pipeline"
	"github.com/sou1nonly/relocation-chatbot/internal/usecase/rewrite"
	"github.com/sou1nonly/relocation-chatbot/internal/usecase/scoring"
	"github.com/sou1nonly/relocation-chatbot/internal/version"
)

func main() {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting relocbot API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.Bool("search_configured", cfg.Search.APIKey != ""),
		zap.Bool("llm_configured", cfg.LLM.APIKey != ""),
	)

	store, err := newStore(cfg)
	if err != nil {
		logger.Fatal("Failed to create memory store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Memory store not ready", zap.Error(err))
	}
	logger.Info("Connected to memory store")

	// Registered explicitly, no init().
	metrics.RegisterPipelineMetrics()
	metrics.RegisterHTTPMetrics()

	memRepo := memory.New(store, logger,
		memory.WithKeyPrefix(cfg.Database.KeyPrefix),
		memory.WithSearchTimestampTTL(cfg.SearchTimestampTTL()),
	)

	cache := searchcache.New(searchcache.Config{
		MaxSize:             cfg.Cache.MaxSize,
		SimilarityThreshold: cfg.Cache.SimilarityThreshold,
		DefaultTTL:          cfg.CacheTTL(),
		PurgeOnAccess:       *cfg.Cache.PurgeOnAccess,
	}, logger,
		searchcache.WithFingerprinter(domain.NewHashFingerprinter(cfg.Cache.Dimensions)),
		searchcache.WithMetrics(searchcache.Metrics{
			Lookups:   metrics.SearchCacheLookups,
			Evictions: metrics.SearchCacheEvictions,
			Entries:   metrics.SearchCacheEntries,
		}),
	)

	search := searchapi.New(searchapi.Config{
		APIKey:     cfg.Search.APIKey,
		BaseURL:    cfg.Search.BaseURL,
		Timeout:    time.Duration(cfg.Search.TimeoutSec) * time.Second,
		MaxResults: cfg.Search.MaxResults,
		Logger:     logger,
	})
	if !search.Available() {
		logger.Warn("No search API key configured, web results are disabled")
	}

	scoringCfg := scoring.DefaultConfig()
	scoringCfg.MinQuality = cfg.Scoring.MinQuality
	scoringCfg.MaxResults = cfg.Scoring.MaxResults
	fallbackCfg := fallback.DefaultConfig()
	fallbackCfg.MinConditions = cfg.Fallback.MinConditions

	stages := pipeline.Stages{
		Classifier: intent.New(),
		Rewriter:   rewrite.New(),
		Scorer:     scoring.New(scoring.WithConfig(scoringCfg)),
		Fallback:   fallback.New(fallbackCfg),
		Assembler:  assemble.New(assemble.DefaultConfig()),
	}

	pipe := pipeline.New(stages, cache, search, logger,
		pipeline.WithMemoryStore(memRepo),
		pipeline.WithSearchLimit(cfg.Search.MaxResults),
		pipeline.WithMetrics(pipeline.Metrics{
			Runs:          metrics.PipelineRuns,
			Fallbacks:     metrics.FallbackTriggered,
			ContextTokens: metrics.AssembledContextTokens,
		}),
	)

	batchSvc, err := batchuc.New(pipe, cfg.Batch.Workers, cfg.Batch.MaxBatchSize, logger)
	if err != nil {
		logger.Fatal("Failed to create batch service", zap.Error(err))
	}
	defer batchSvc.Release()

	// Typed nil must not leak into the Answerer interface.
	var answerer chiTransport.Answerer
	if cfg.LLM.APIKey != "" {
		answerer = openaiAns.NewAnswerer(&openaiAns.Config{
			APIKey:      cfg.LLM.APIKey,
			BaseURL:     cfg.LLM.BaseURL,
			Model:       cfg.LLM.Model,
			MaxTokens:   cfg.LLM.MaxTokens,
			Temperature: cfg.LLM.Temperature,
			Logger:      logger,
		})
	}

	opts := assembled.DefaultOptions()
	opts.MaxTokens = cfg.Assembly.MaxTokens
	opts.CompressionLevel = assembled.CompressionLevel(cfg.Assembly.CompressionLevel)

	server := chiTransport.NewServer(chiTransport.Services{
		Options:    opts,
		Classifier: stages.Classifier,
		Rewriter:   stages.Rewriter,
		Scorer:     stages.Scorer,
		Cache:      cache,
		Fallback:   stages.Fallback,
		Assembler:  stages.Assembler,
		Pipeline:   pipe,
		Batch:      batchSvc,
		Health:     healthuc.New(store, search),
		Memory:     memRepo,
		Answerer:   answerer,
	}, logger)

	r := chi.NewRouter()
	r.Use(chiTransport.JSONRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(chiTransport.WideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.HTTPMetrics.Middleware())
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

func newStore(cfg config.Config) (db.Store, error) {
	switch cfg.Database.Driver {
	case config.DriverRedis:
		return dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Password: cfg.Database.Password,
		})
	case config.DriverMemory:
		return inmem.NewStore(time.Minute), nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
}
