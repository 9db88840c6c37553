package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/dgallion1/docsense/internal/api"
	"github.com/dgallion1/docsense/internal/config"
	"github.com/dgallion1/docsense/internal/inference"
	"github.com/dgallion1/docsense/internal/metrics"
	"github.com/dgallion1/docsense/internal/parser"
	"github.com/dgallion1/docsense/internal/pipeline"
	"github.com/dgallion1/docsense/internal/qa"
	"github.com/dgallion1/docsense/internal/sentiment"
	"github.com/dgallion1/docsense/internal/textcache"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}))
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	metrics.RegisterModelMetrics()
	stats := inference.NewRegistry(cfg.StatsWindow)

	// Model clients. Each model gets its own gate so a slow classifier never
	// holds up question answering.
	qaClient := inference.NewQAClient(inference.EndpointConfig{
		Name:    "qa",
		URL:     cfg.QAModel.URL,
		Token:   cfg.QAModel.Token,
		Timeout: cfg.InferenceTimeout,
		Gate:    inference.NewGate("qa", cfg.MaxConcurrentInference),
		Stats:   stats,
	})
	polarity := inference.NewClassifierClient(inference.EndpointConfig{
		Name:    "polarity",
		URL:     cfg.PolarityModel.URL,
		Token:   cfg.PolarityModel.Token,
		Timeout: cfg.InferenceTimeout,
		Gate:    inference.NewGate("polarity", cfg.MaxConcurrentInference),
		Stats:   stats,
	})
	helpfulness := inference.NewClassifierClient(inference.EndpointConfig{
		Name:    "helpfulness",
		URL:     cfg.HelpfulnessModel.URL,
		Token:   cfg.HelpfulnessModel.Token,
		Timeout: cfg.InferenceTimeout,
		Gate:    inference.NewGate("helpfulness", cfg.MaxConcurrentInference),
		Stats:   stats,
	})

	var refiner qa.Refiner
	if cfg.Refine.Enabled {
		refiner = inference.NewRefiner(inference.RefinerConfig{
			Name:      "refiner",
			APIKey:    cfg.Refine.APIKey,
			BaseURL:   cfg.Refine.BaseURL,
			Model:     cfg.Refine.Model,
			MaxTokens: cfg.Refine.MaxTokens,
			Gate:      inference.NewGate("refiner", cfg.MaxConcurrentInference),
			Stats:     stats,
		})
		log.Info("answer refinement enabled", "model", cfg.Refine.Model, "base_url", cfg.Refine.BaseURL)
	}

	cache, closeCache := openCache(cfg, log)

	resolver := qa.NewResolver(qaClient, refiner, nil, qa.Config{
		ChunkSize:       cfg.QA.ChunkSize,
		OverlapFraction: cfg.QA.OverlapFraction,
		TopK:            cfg.QA.TopK,
		ConfidenceFloor: cfg.QA.ConfidenceFloor,
		MaxAnswerLength: cfg.QA.MaxAnswerLength,
		Refine:          cfg.Refine.Enabled,
	}, log.With("component", "resolver"))
	analyzer := sentiment.NewAnalyzer(polarity, helpfulness, log.With("component", "sentiment"))

	svc := pipeline.NewService(resolver, analyzer, cache,
		parser.Options{PDFFallback: cfg.PDFFallbackPdftotext}, log.With("component", "pipeline"))

	srv := api.NewServer(svc, stats, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.InferenceTimeout*2 + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		qaClient.Close()
		polarity.Close()
		helpfulness.Close()
		closeCache()
	}()

	log.Info("starting docsense",
		"port", cfg.Port,
		"qa_model", cfg.QAModel.URL,
		"max_concurrent_inference", cfg.MaxConcurrentInference,
		"text_cache", cache.Enabled(),
	)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}

// openCache connects the extracted-text cache. An unreachable Redis disables
// the cache rather than failing start-up.
func openCache(cfg config.Config, log *slog.Logger) (*textcache.Cache, func()) {
	cacheLog := log.With("component", "textcache")
	if len(cfg.Redis.Addrs) == 0 {
		return textcache.New(nil, cfg.Redis.TTL, cacheLog), func() {}
	}

	store, err := textcache.NewRedisStore(textcache.RedisConfig{
		Addrs:    cfg.Redis.Addrs,
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Warn("text cache disabled", "error", err)
		return textcache.New(nil, cfg.Redis.TTL, cacheLog), func() {}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := store.Ping(ctx); err != nil {
		log.Warn("text cache disabled, redis unreachable", "addrs", cfg.Redis.Addrs, "error", err)
		store.Close()
		return textcache.New(nil, cfg.Redis.TTL, cacheLog), func() {}
	}

	log.Info("text cache enabled", "addrs", cfg.Redis.Addrs, "ttl", cfg.Redis.TTL)
	return textcache.New(store, cfg.Redis.TTL, cacheLog), store.Close
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
