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

	database "github.com/FACorreiaa/go-place-recommendations/app/db"
	appLogger "github.com/FACorreiaa/go-place-recommendations/app/logger"
	"github.com/FACorreiaa/go-place-recommendations/app/observability/metrics"
	"github.com/FACorreiaa/go-place-recommendations/app/tracer"
	"github.com/FACorreiaa/go-place-recommendations/config"
	"github.com/FACorreiaa/go-place-recommendations/internal/api/embedding"
	"github.com/FACorreiaa/go-place-recommendations/internal/api/places"
	"github.com/FACorreiaa/go-place-recommendations/internal/api/vectorindex"
	api "github.com/FACorreiaa/go-place-recommendations/internal/router"
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

	tracer.InitTracingAndMetrics()
	metrics.InitAppMetrics()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// --- Database Setup ---
	dbConfig, err := database.NewDatabaseConfig(&cfg, logger)
	if err != nil {
		logger.Error("Failed to generate database config", slog.Any("error", err))
		os.Exit(1)
	}

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

	// --- External Services ---
	embeddingService, err := embedding.NewOpenAIService(os.Getenv("OPENAI_API_KEY"), embedding.Options{
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		MaxRetries: cfg.Embedding.MaxRetries,
		RetryDelay: cfg.Embedding.RetryDelay,
	}, logger)
	if err != nil {
		logger.Error("Failed to create embedding service", slog.Any("error", err))
		os.Exit(1)
	}
	cachedEmbedding := embedding.NewCachedService(embeddingService, cfg.Embedding.CacheTTL, logger)

	index, err := vectorindex.NewAdapter(vectorindex.Options{
		Host:       cfg.Repositories.Qdrant.Host,
		Port:       cfg.Repositories.Qdrant.Port,
		UseTLS:     cfg.Repositories.Qdrant.UseTLS,
		Collection: cfg.Repositories.Qdrant.Collection,
		VectorSize: cfg.Repositories.Qdrant.VectorSize,
	}, logger)
	if err != nil {
		logger.Error("Failed to connect to vector index", slog.Any("error", err))
		os.Exit(1)
	}
	if err := index.EnsureCollection(ctx); err != nil {
		logger.Error("Failed to ensure vector collection", slog.Any("error", err))
		os.Exit(1)
	}

	// --- Dependency Injection ---
	placesRepo := places.NewRepository(pool, logger)
	placesService := places.NewServiceImpl(placesRepo, cachedEmbedding, index, cfg.Repositories.Qdrant.ScoreThreshold, logger)
	placesHandler := places.NewHandler(placesService, logger)

	// --- Router Setup ---
	mainRouter := api.SetupRouter(&api.Config{
		PlacesHandler: placesHandler,
	})

	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(appLogger.StructuredLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.StripSlashes)
	router.Use(middleware.Timeout(60 * time.Second))
	router.Use(middleware.Compress(5, "application/json"))
	router.Mount("/", mainRouter)

	// --- HTTP Server Setup ---
	serverAddress := fmt.Sprintf(":%s", cfg.Server.HTTPPort)
	srv := &http.Server{
		Addr:         serverAddress,
		Handler:      router,
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

	if env == "development" || env == "" {
		// Colored logs for development
		tintOpts := &tint.Options{
			Level:      slog.LevelDebug,
			TimeFormat: time.Kitchen,
			AddSource:  true,
		}
		logger = slog.New(tint.NewHandler(os.Stdout, tintOpts))
	} else {
		// JSON logs for production
		jsonOpts := &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}
		logger = slog.New(slog.NewJSONHandler(os.Stdout, jsonOpts))
	}
	return logger
}
