package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	database "github.com/FACorreiaa/go-place-recommendations/app/db"
	"github.com/FACorreiaa/go-place-recommendations/config"
	"github.com/FACorreiaa/go-place-recommendations/internal/api/embedding"
	"github.com/FACorreiaa/go-place-recommendations/internal/api/indexer"
	"github.com/FACorreiaa/go-place-recommendations/internal/api/places"
	"github.com/FACorreiaa/go-place-recommendations/internal/api/vectorindex"
)

func main() {
	ctx := context.Background()

	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	cfg, err := config.InitConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	dbConfig, err := database.NewDatabaseConfig(&cfg, logger)
	if err != nil {
		logger.Error("Failed to generate database config", slog.Any("error", err))
		os.Exit(1)
	}

	dbpool, err := pgxpool.New(ctx, dbConfig.ConnectionURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer dbpool.Close()

	if err := dbpool.Ping(ctx); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	logger.Info("Connected to database successfully")

	// Initialize services
	embeddingService, err := embedding.NewOpenAIService(os.Getenv("OPENAI_API_KEY"), embedding.Options{
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		MaxRetries: cfg.Embedding.MaxRetries,
		RetryDelay: cfg.Embedding.RetryDelay,
	}, logger)
	if err != nil {
		log.Fatalf("Failed to create embedding service: %v", err)
	}

	index, err := vectorindex.NewAdapter(vectorindex.Options{
		Host:       cfg.Repositories.Qdrant.Host,
		Port:       cfg.Repositories.Qdrant.Port,
		UseTLS:     cfg.Repositories.Qdrant.UseTLS,
		Collection: cfg.Repositories.Qdrant.Collection,
		VectorSize: cfg.Repositories.Qdrant.VectorSize,
	}, logger)
	if err != nil {
		log.Fatalf("Failed to connect to vector index: %v", err)
	}

	if err := index.EnsureCollection(ctx); err != nil {
		log.Fatalf("Failed to ensure vector collection: %v", err)
	}

	if stats, err := index.CollectionStats(ctx); err == nil {
		logger.Info("Initial collection state",
			slog.Uint64("points_count", stats.PointsCount),
			slog.String("status", stats.Status),
		)
	}

	placesRepository := places.NewRepository(dbpool, logger)
	indexerService := indexer.NewServiceImpl(placesRepository, embeddingService, index, cfg.Indexer.RecordDelay, logger)

	logger.Info("Starting embedding generation for places...")

	stats, err := indexerService.ReindexAll(ctx, cfg.Indexer.BatchSize, cfg.Indexer.SkipExisting)
	if err != nil {
		logger.Error("Reindex run aborted", slog.Any("error", err))
	}

	logger.Info("Reindex run finished",
		slog.Int("total_places", stats.TotalPlaces),
		slog.Int("processed", stats.Processed),
		slog.Int("succeeded", stats.Succeeded),
		slog.Int("failed", stats.Failed),
		slog.Int("skipped", stats.Skipped),
	)

	if final, err := index.CollectionStats(ctx); err == nil {
		logger.Info("Final collection state", slog.Uint64("points_count", final.PointsCount))
	}

	if stats.Processed > 0 && stats.Succeeded == 0 && stats.Skipped == 0 {
		logger.Warn("No place was indexed successfully")
		os.Exit(1)
	}
}
