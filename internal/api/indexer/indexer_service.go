package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-place-recommendations/app/observability/metrics"
	"github.com/FACorreiaa/go-place-recommendations/internal/api/embedding"
	"github.com/FACorreiaa/go-place-recommendations/internal/api/places"
	"github.com/FACorreiaa/go-place-recommendations/internal/api/vectorindex"
	"github.com/FACorreiaa/go-place-recommendations/internal/types"
)

var _ Service = (*ServiceImpl)(nil)

// Service is the offline re-indexing pipeline.
type Service interface {
	// ReindexAll paginates the relational store, embeds every record's
	// enriched text and upserts it into the vector index. One record's
	// failure never aborts the run; with skipExisting the job is
	// restartable and re-running over an unchanged store is a no-op.
	ReindexAll(ctx context.Context, batchSize int, skipExisting bool) (*types.IndexStats, error)
}

type ServiceImpl struct {
	logger           *slog.Logger
	placesRepository places.Repository
	embedding        embedding.Service
	index            vectorindex.Index
	recordDelay      time.Duration
	sleep            func(time.Duration)
}

// NewServiceImpl builds the batch indexer. recordDelay bounds the
// request rate against the embedding provider between records.
func NewServiceImpl(placesRepository places.Repository, embeddingService embedding.Service, index vectorindex.Index, recordDelay time.Duration, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger:           logger,
		placesRepository: placesRepository,
		embedding:        embeddingService,
		index:            index,
		recordDelay:      recordDelay,
		sleep:            time.Sleep,
	}
}

func (s *ServiceImpl) ReindexAll(ctx context.Context, batchSize int, skipExisting bool) (*types.IndexStats, error) {
	ctx, span := otel.Tracer("IndexerService").Start(ctx, "ReindexAll", trace.WithAttributes(
		attribute.Int("reindex.batch_size", batchSize),
		attribute.Bool("reindex.skip_existing", skipExisting),
	))
	defer span.End()

	if batchSize <= 0 {
		batchSize = 10
	}

	stats := &types.IndexStats{}

	total, err := s.placesRepository.Count(ctx)
	if err != nil {
		span.RecordError(err)
		return stats, fmt.Errorf("failed to count places: %w", err)
	}
	stats.TotalPlaces = total

	s.logger.InfoContext(ctx, "Starting reindex run",
		slog.Int("total_places", total),
		slog.Int("batch_size", batchSize),
		slog.Bool("skip_existing", skipExisting),
	)

	offset := 0
	for {
		batch, err := s.placesRepository.GetAll(ctx, offset, batchSize)
		if err != nil {
			span.RecordError(err)
			return stats, fmt.Errorf("failed to fetch batch at offset %d: %w", offset, err)
		}
		if len(batch) == 0 {
			break
		}

		for i := range batch {
			s.processPlace(ctx, &batch[i], skipExisting, stats)
			s.sleep(s.recordDelay)
		}

		offset += batchSize
		s.logger.InfoContext(ctx, "Reindex progress",
			slog.Int("processed", stats.Processed),
			slog.Int("total", stats.TotalPlaces),
			slog.Int("succeeded", stats.Succeeded),
			slog.Int("failed", stats.Failed),
			slog.Int("skipped", stats.Skipped),
		)
	}

	span.SetAttributes(
		attribute.Int("reindex.processed", stats.Processed),
		attribute.Int("reindex.succeeded", stats.Succeeded),
		attribute.Int("reindex.failed", stats.Failed),
		attribute.Int("reindex.skipped", stats.Skipped),
	)
	span.SetStatus(codes.Ok, "Reindex completed")
	return stats, nil
}

// processPlace handles a single record. Failures are counted, never
// propagated: partial progress is always preserved.
func (s *ServiceImpl) processPlace(ctx context.Context, place *types.Place, skipExisting bool, stats *types.IndexStats) {
	stats.Processed++
	id := place.ID.String()
	l := s.logger.With(slog.String("place_id", id), slog.String("name", place.Name))

	if skipExisting {
		exists, err := s.index.Exists(ctx, id)
		if err != nil {
			// Treat a failed lookup as "not indexed" and fall through
			// to a fresh upsert; the operation is idempotent anyway.
			l.DebugContext(ctx, "Existence check failed, reindexing", slog.Any("error", err))
		} else if exists {
			stats.Skipped++
			s.countRecord(ctx, "skipped")
			return
		}
	}

	enrichedText := EnrichText(place)
	if enrichedText == "" {
		l.WarnContext(ctx, "Enrichment produced empty text")
		stats.Failed++
		s.countRecord(ctx, "failed")
		return
	}

	vector, err := s.embedding.GenerateEmbedding(ctx, enrichedText)
	if err != nil {
		l.ErrorContext(ctx, "Failed to generate embedding", slog.Any("error", err))
		stats.Failed++
		s.countRecord(ctx, "failed")
		return
	}

	if err := s.index.Upsert(ctx, id, vector, payloadSnapshot(place)); err != nil {
		l.ErrorContext(ctx, "Failed to upsert embedding", slog.Any("error", err))
		stats.Failed++
		s.countRecord(ctx, "failed")
		return
	}

	stats.Succeeded++
	s.countRecord(ctx, "succeeded")
}

func (s *ServiceImpl) countRecord(ctx context.Context, outcome string) {
	if m := metrics.Get(); m != nil {
		m.IndexerRecordsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	}
}

// payloadSnapshot denormalizes the place into the point payload. The
// relational store stays authoritative; this is for filtering and
// debugging only.
func payloadSnapshot(place *types.Place) map[string]any {
	payload := map[string]any{
		"name":       place.Name,
		"latitude":   place.Latitude,
		"longitude":  place.Longitude,
		"category":   place.Category,
		"created_at": place.CreatedAt.Format(time.RFC3339),
		"updated_at": place.UpdatedAt.Format(time.RFC3339),
	}
	if place.Description != nil {
		payload["description"] = *place.Description
	}
	if place.Rating != nil {
		payload["rating"] = *place.Rating
	}
	if place.PriceLevel != nil {
		payload["price_level"] = *place.PriceLevel
	}
	if place.PriceAverage != nil {
		payload["price_average"] = *place.PriceAverage
	}
	if place.PriceCurrency != nil {
		payload["price_currency"] = *place.PriceCurrency
	}
	if place.Address != nil {
		payload["address"] = *place.Address
	}
	return payload
}
