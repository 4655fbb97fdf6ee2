// Package main is the entry point for the Trailfeed API server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/onnwee/trailfeed/internal/api"
	"github.com/onnwee/trailfeed/internal/cache"
	"github.com/onnwee/trailfeed/internal/config"
	"github.com/onnwee/trailfeed/internal/content"
	"github.com/onnwee/trailfeed/internal/db"
	"github.com/onnwee/trailfeed/internal/enrich"
	"github.com/onnwee/trailfeed/internal/feature"
	"github.com/onnwee/trailfeed/internal/feed"
	"github.com/onnwee/trailfeed/internal/health"
	"github.com/onnwee/trailfeed/internal/interaction"
	"github.com/onnwee/trailfeed/internal/jobs"
	"github.com/onnwee/trailfeed/internal/middleware"
	"github.com/onnwee/trailfeed/internal/presence"
	"github.com/onnwee/trailfeed/internal/ranking"
	"github.com/onnwee/trailfeed/internal/retrieval"
	"github.com/onnwee/trailfeed/internal/tracing"
	"github.com/onnwee/trailfeed/internal/validate"
)

func main() {
	help := flag.Bool("help", false, "display help message")
	configPath := flag.String("config", "", "path to YAML config file (optional)")
	flag.Parse()

	if *help {
		fmt.Println("Trailfeed API Server")
		fmt.Println()
		fmt.Println("Usage: api [options]")
		fmt.Println()
		fmt.Println("Options:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	cfg, errs := config.Load(*configPath)
	if len(errs) > 0 {
		for _, err := range errs {
			fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		}
		os.Exit(1)
	}

	logger := middleware.NewLogger(cfg.Env)
	slog.SetDefault(logger)

	summaryAttrs := make([]any, 0, 16)
	for key, value := range cfg.LogSummary() {
		summaryAttrs = append(summaryAttrs, slog.String(key, value))
	}
	logger.Info("configuration loaded", summaryAttrs...)

	// Tracing is opt-in via environment; the endpoint rarely belongs in
	// the same config file as service settings.
	tracerProvider, err := tracing.NewProvider(tracing.Config{
		ServiceName:  "trailfeed-api",
		Enabled:      os.Getenv("TRACING_ENABLED") == "true",
		Environment:  cfg.Env,
		ExporterType: os.Getenv("TRACING_EXPORTER"),
		OTLPEndpoint: os.Getenv("OTLP_ENDPOINT"),
		SamplingRate: 1.0,
		InsecureMode: cfg.Env != "production",
	})
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}

	// Cache: Redis when configured, in-memory otherwise.
	var (
		store        cache.Cache
		redisClient  *redis.Client
		redisChecker api.HealthChecker
	)
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		store = cache.NewRedisCache(redisClient)
		redisChecker = health.NewRedisChecker(redisClient)
		logger.Info("using redis cache", "addr", cfg.RedisAddr, "db", cfg.RedisDB)
	} else {
		store = cache.NewInMemoryCache()
		logger.Info("using in-memory cache")
	}

	// Content store: Postgres when configured, in-memory otherwise.
	var (
		contents  content.Repository
		follows   content.FollowRepository
		dbChecker api.HealthChecker
	)
	if cfg.DatabaseURL != "" {
		pool, err := db.Open(cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		if err := db.Ping(context.Background(), pool, 5*time.Second); err != nil {
			// Readiness keeps reporting until the database comes up.
			logger.Warn("database not reachable at startup", "error", err)
		}

		repo := content.NewPostgresRepository(pool)
		contents = repo
		follows = repo
		dbChecker = health.NewDBChecker(pool)
		logger.Info("using postgres content store")
	} else {
		contents = content.NewInMemoryRepository()
		follows = content.NewInMemoryFollowRepository()
		logger.Info("using in-memory content store")
	}

	interactions := interaction.NewInMemoryRepository()
	presenceTracker := presence.NewTracker()

	// Ranking pipeline.
	weights, err := ranking.LoadCalibration(cfg.CalibrationPath)
	if err != nil {
		logger.Warn("ranking calibration load failed, using defaults", "error", err)
	}
	provider := feature.NewHashProvider()
	predictor := feature.NewDotPredictor()

	retriever := retrieval.NewRetriever(contents, follows, store, retrieval.RetrieverConfig{
		Logger: logger,
	})
	ranker := ranking.NewRanker(provider, predictor, ranking.RankerConfig{
		Weights: weights,
		Logger:  logger,
	})
	enricher := enrich.NewEnricher(logger)
	contextBuilder := enrich.NewContextBuilder(store, enrich.ContextBuilderConfig{
		Logger: logger,
	})

	// Metrics.
	registry := prometheus.NewRegistry()
	feedMetrics := feed.NewMetrics()
	jobMetrics := jobs.NewMetrics()
	mwMetrics := middleware.NewMetrics()
	for _, register := range []func(prometheus.Registerer) error{
		feedMetrics.Register,
		jobMetrics.Register,
		mwMetrics.Register,
	} {
		if err := register(registry); err != nil {
			logger.Error("failed to register metrics", "error", err)
			os.Exit(1)
		}
	}

	coordinator := feed.NewCoordinator(feed.CoordinatorConfig{
		Cache:        store,
		Retriever:    retriever,
		Ranker:       ranker,
		Enricher:     enricher,
		Contents:     contents,
		Interactions: interactions,
		Presence:     presenceTracker,
		Features:     provider,
		Metrics:      feedMetrics,
		Logger:       logger,
	})

	// Background warmup keeps first pages hot for recently active users.
	var warmupJob *feed.WarmupJob
	if cfg.WarmupEnabled {
		warmupJob = feed.NewWarmupJob(feed.WarmupJobConfig{
			Interval:   time.Duration(cfg.WarmupIntervalMinutes) * time.Minute,
			Backoff:    time.Duration(cfg.WarmupBackoffMinutes) * time.Minute,
			PageSize:   validate.DefaultPageSize,
			Logger:     logger,
			JobMetrics: jobMetrics,
		}, coordinator, interactions)

		if err := warmupJob.Start(context.Background()); err != nil {
			logger.Error("failed to start warmup job", "error", err)
			os.Exit(1)
		}
	}

	feedHandlers := api.NewFeedHandlers(coordinator, contextBuilder, cfg.ContextualBoostEnabled)
	healthHandlers := api.NewHealthHandlers(api.HealthHandlersConfig{
		DBChecker:    dbChecker,
		RedisChecker: redisChecker,
	})

	// Rate limit state shares the Redis backend when available so limits
	// hold across instances.
	var limitStore middleware.RateLimitStore
	if redisClient != nil {
		limitStore = middleware.NewRedisRateLimitStore(redisClient).WithMetrics(mwMetrics)
	} else {
		limitStore = middleware.NewInMemoryRateLimitStore()
	}
	feedLimiter := middleware.RateLimiter(limitStore, middleware.DefaultFeedLimit(), middleware.UserKeyFunc())
	interactionLimiter := middleware.RateLimiter(limitStore, middleware.DefaultInteractionLimit(), middleware.UserKeyFunc())

	mux := http.NewServeMux()
	mux.Handle("/users/", feedLimiter(http.HandlerFunc(feedHandlers.HandleUserRoutes)))
	mux.Handle("/interactions", interactionLimiter(http.HandlerFunc(feedHandlers.RecordInteraction)))
	mux.HandleFunc("/health", healthHandlers.Health)
	mux.HandleFunc("/ready", healthHandlers.Ready)
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		// Only handle exact root path, everything else returns 404
		if r.URL.Path != "/" {
			ctx := middleware.SetErrorCode(r.Context(), api.ErrCodeNotFound)
			api.WriteError(w, ctx, http.StatusNotFound, api.ErrCodeNotFound, "The requested resource was not found")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(`{"service":"trailfeed-api","version":"0.0.1"}`)); err != nil {
			slog.Error("failed to write response", "error", err)
		}
	})

	// Middleware chain: RequestID -> Tracing -> Logging -> HTTPMetrics -> routes
	handler := middleware.RequestID(
		middleware.Tracing("trailfeed-api")(
			middleware.Logging(logger)(
				middleware.HTTPMetrics(mwMetrics)(mux))))

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting server", "port", cfg.Port, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	if warmupJob != nil {
		warmupJob.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	if err := tracerProvider.Shutdown(ctx); err != nil {
		logger.Warn("tracer shutdown failed", "error", err)
	}

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close failed", "error", err)
		}
	}

	logger.Info("server stopped")
}
