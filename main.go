package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"

	"github.com/wandergrid/go-poi-routes/app/cache"
	database "github.com/wandergrid/go-poi-routes/app/db"
	appLogger "github.com/wandergrid/go-poi-routes/app/logger"
	"github.com/wandergrid/go-poi-routes/app/tracer"
	"github.com/wandergrid/go-poi-routes/config"
	"github.com/wandergrid/go-poi-routes/internal/api/health"
	"github.com/wandergrid/go-poi-routes/internal/api/location"
	"github.com/wandergrid/go-poi-routes/internal/api/poiinfo"
	"github.com/wandergrid/go-poi-routes/internal/api/routeplan"
	"github.com/wandergrid/go-poi-routes/internal/api/semantic"
	"github.com/wandergrid/go-poi-routes/internal/planner"
	"github.com/wandergrid/go-poi-routes/internal/router"
)

func main() {
	// Use standard log until slog is configured, in case godotenv fails
	err := godotenv.Load()
	if err != nil {
		log.Println("Warning: .env file not found or error loading:", err)
	}

	cfg, err := config.InitConfig()
	if err != nil {
		log.Fatalf("FATAL: Error initializing config: %v", err)
	}

	logger := setupLogger()
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Install the global providers before any instrument is created.
	metricsHandler, err := tracer.InitTracingAndMetrics("go-poi-routes")
	if err != nil {
		logger.Error("Failed to initialize tracing and metrics", slog.Any("error", err))
		os.Exit(1)
	}

	// --- Database Setup ---
	dbConfig, err := database.NewDatabaseConfig(&cfg, logger)
	if err != nil {
		logger.Error("Failed to generate database config", slog.Any("error", err))
		os.Exit(1)
	}

	// Run migrations *before* initializing the main pool
	err = database.RunMigrations(dbConfig.ConnectionURL, logger)
	if err != nil {
		logger.Error("Failed to run database migrations", slog.Any("error", err))
		os.Exit(1)
	}

	pool, err := database.Init(dbConfig.ConnectionURL, logger)
	if err != nil {
		logger.Error("Failed to initialize database pool", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	if !database.WaitForDB(ctx, pool, logger) {
		logger.Error("Database not ready after waiting, exiting.")
		os.Exit(1)
	}

	// --- Redis Setup ---
	redisClient, err := cache.Init(ctx, &cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize redis client", slog.Any("error", err))
		os.Exit(1)
	}
	defer redisClient.Close()

	// --- Vector Store Setup ---
	qdrantClient, err := semantic.NewQdrantClient(cfg.Vector.URL, cfg.Vector.APIKey)
	if err != nil {
		logger.Error("Failed to create qdrant client", slog.Any("error", err))
		os.Exit(1)
	}
	vectorStore := semantic.NewQdrantStore(qdrantClient, cfg.Vector.Collection,
		uint64(cfg.Vector.Dimension), 0, logger)
	if err := vectorStore.EnsureCollection(ctx); err != nil {
		logger.Error("Failed to ensure vector collection", slog.Any("error", err))
		os.Exit(1)
	}

	embedder, err := semantic.NewEmbeddingService(ctx, cfg.Vector.Model, logger)
	if err != nil {
		logger.Error("Failed to initialize embedding service", slog.Any("error", err))
		os.Exit(1)
	}

	// --- Dependency Injection ---
	cacheTTL := cfg.CacheTTL()

	locationRepo := location.NewRepository(pool, logger)
	cellCache := location.NewRedisCellCache(redisClient, cfg.Spatial.H3Resolution, cacheTTL, logger)
	locationService := location.NewServiceImpl(locationRepo, cellCache, cfg.Spatial.H3Resolution, logger)
	locationHandler := location.NewLocationHandler(locationService, logger)

	poiInfoRepo := poiinfo.NewRepository(pool, logger)
	infoCache := poiinfo.NewRedisInfoCache(redisClient, cacheTTL, logger)
	poiInfoService := poiinfo.NewServiceImpl(poiInfoRepo, infoCache, logger)

	semanticService := semantic.NewServiceImpl(embedder, vectorStore, locationService, poiInfoService, logger)
	semanticHandler := semantic.NewSemanticHandler(semanticService, logger)

	routeCache := routeplan.NewRedisRouteCache(redisClient, cacheTTL, logger)
	plannerPool := planner.NewPool(cfg.Planner.PoolSize)
	routeService := routeplan.NewServiceImpl(semanticService, poiInfoService, routeCache,
		plannerPool, cfg.Planner.CircularRouting, logger)
	routeHandler := routeplan.NewRouteHandler(routeService, logger)

	healthService := health.NewServiceImpl(
		func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		pool.Ping,
		vectorStore.Healthy,
		logger,
	)
	healthHandler := health.NewHealthHandler(healthService, logger)

	// --- Router Setup ---
	routerConfig := &router.Config{
		LocationHandler: locationHandler,
		SemanticHandler: semanticHandler,
		RouteHandler:    routeHandler,
		HealthHandler:   healthHandler,
		MetricsHandler:  metricsHandler,
	}
	mainRouter := router.SetupRouter(routerConfig)

	mux := chi.NewMux()
	mux.Use(middleware.RequestID)
	mux.Use(middleware.RealIP)
	mux.Use(appLogger.StructuredLogger(logger))
	mux.Use(middleware.Recoverer)
	mux.Use(middleware.StripSlashes)
	mux.Use(middleware.Timeout(60 * time.Second))
	mux.Use(middleware.Compress(5, "application/json"))
	mux.Mount("/", mainRouter)

	// --- HTTP Server Setup ---
	serverAddress := fmt.Sprintf(":%s", cfg.Server.HTTPPort)
	srv := &http.Server{
		Addr:         serverAddress,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	go func() {
		logger.Info("Starting HTTP server", slog.String("address", serverAddress))
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server ListenAndServe error", slog.Any("error", err))
			cancel()
		}
	}()

	<-ctx.Done()

	// --- Graceful Shutdown ---
	logger.Info("Shutdown signal received, starting graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server graceful shutdown failed", slog.Any("error", err))
	} else {
		logger.Info("HTTP server gracefully stopped")
	}

	logger.Info("Application shut down complete.")
}

// setupLogger configures and returns the application logger.
func setupLogger() *slog.Logger {
	var logger *slog.Logger
	env := os.Getenv("APP_ENV")

	if env == "development" || env == "" { // Default to development if not set
		// Colored logs for development
		tintOpts := &tint.Options{
			Level:      slog.LevelDebug, // More verbose in dev
			TimeFormat: time.Kitchen,
			AddSource:  true, // Show file:line
		}
		logger = slog.New(tint.NewHandler(os.Stdout, tintOpts))
		log.Println("Initialized development logger (tint)")
	} else {
		// JSON logs for production or other environments
		jsonOpts := &slog.HandlerOptions{
			Level:     slog.LevelInfo,
			AddSource: false,
		}
		logger = slog.New(slog.NewJSONHandler(os.Stdout, jsonOpts))
		log.Println("Initialized production logger (JSON)")
	}
	return logger
}
