package places

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-place-recommendations/app/observability/metrics"
	"github.com/FACorreiaa/go-place-recommendations/internal/api/embedding"
	"github.com/FACorreiaa/go-place-recommendations/internal/api/vectorindex"
	"github.com/FACorreiaa/go-place-recommendations/internal/types"
)

var _ Service = (*ServiceImpl)(nil)

// Service is the query-time recommendation pipeline.
type Service interface {
	// GetRecommendations never surfaces dependency failures to its
	// caller: any pipeline error degrades to an empty well-formed
	// response. The cause is logged and counted so operators can tell
	// "no matches" from "dependency down".
	GetRecommendations(ctx context.Context, description string, limit int) *types.RecommendationResponse
	Health(ctx context.Context) *types.HealthStatus
}

type ServiceImpl struct {
	logger           *slog.Logger
	placesRepository Repository
	embedding        embedding.Service
	index            vectorindex.Index
	scoreThreshold   float64
}

func NewServiceImpl(placesRepository Repository, embeddingService embedding.Service, index vectorindex.Index, scoreThreshold float64, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger:           logger,
		placesRepository: placesRepository,
		embedding:        embeddingService,
		index:            index,
		scoreThreshold:   scoreThreshold,
	}
}

// GetRecommendations embeds the description, searches the vector index
// and fuses the matches with the authoritative relational records.
func (s *ServiceImpl) GetRecommendations(ctx context.Context, description string, limit int) *types.RecommendationResponse {
	ctx, span := otel.Tracer("PlacesService").Start(ctx, "GetRecommendations", trace.WithAttributes(
		attribute.Int("recommendations.limit", limit),
	))
	defer span.End()

	start := time.Now()
	response, err := s.recommend(ctx, description, limit)

	m := metrics.Get()
	if m != nil {
		m.RecommendationDurationSeconds.Record(ctx, time.Since(start).Seconds())
		m.RecommendationRequestsTotal.Add(ctx, 1)
	}

	if err != nil {
		// Fail-open: the caller gets an empty result set, the cause
		// stays visible to operators through logs and metrics.
		s.logger.ErrorContext(ctx, "Recommendation pipeline degraded to empty response",
			slog.String("query", description),
			slog.Any("error", err),
		)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Pipeline degraded")
		if m != nil {
			m.RecommendationFallbacksTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("cause", failureCause(err))))
		}
		return emptyResponse(description)
	}

	span.SetAttributes(attribute.Int("recommendations.found", response.TotalFound))
	span.SetStatus(codes.Ok, "Recommendations generated")
	return response
}

func (s *ServiceImpl) recommend(ctx context.Context, description string, limit int) (*types.RecommendationResponse, error) {
	queryVector, err := s.embedding.GenerateEmbedding(ctx, description)
	if err != nil {
		return nil, fmt.Errorf("embedding query failed: %w", err)
	}

	matches, err := s.index.Search(ctx, queryVector, limit, s.scoreThreshold, nil)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	if len(matches) == 0 {
		s.logger.InfoContext(ctx, "No vector matches above threshold", slog.String("query", description))
		return emptyResponse(description), nil
	}

	ids := make([]string, 0, len(matches))
	for _, match := range matches {
		ids = append(ids, match.PlaceID)
	}

	places, err := s.placesRepository.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolving places failed: %w", err)
	}

	if dropped := len(matches) - len(places); dropped > 0 {
		// Index ids without a live relational row are dropped by
		// policy, not an error. Usually a stale point after a soft
		// delete before the next reindex.
		s.logger.WarnContext(ctx, "Vector matches without live relational records dropped",
			slog.Int("dropped", dropped),
		)
	}

	// The bulk resolve does not preserve order, so walk the matches in
	// the index's return order and re-associate by id. That order is what
	// breaks score ties.
	placeByID := make(map[string]*types.Place, len(places))
	for i := range places {
		placeByID[places[i].ID.String()] = &places[i]
	}

	recommendations := make([]types.Recommendation, 0, len(places))
	for _, match := range matches {
		place, ok := placeByID[match.PlaceID]
		if !ok {
			continue
		}
		recommendations = append(recommendations, fuse(place, match.Score))
	}

	// Defensive: the index already ranks descending, and the stable sort
	// keeps its return order on ties.
	sort.SliceStable(recommendations, func(i, j int) bool {
		return recommendations[i].SimilarityScore > recommendations[j].SimilarityScore
	})

	return &types.RecommendationResponse{
		Query:           description,
		TotalFound:      len(recommendations),
		Recommendations: recommendations,
	}, nil
}

// Health aggregates the vector index probe with a database check. Used
// by monitoring only, never by the recommendation path.
func (s *ServiceImpl) Health(ctx context.Context) *types.HealthStatus {
	status := s.index.HealthCheck(ctx)
	if _, err := s.placesRepository.Count(ctx); err != nil {
		status.Database = false
		if status.Error == "" {
			status.Error = err.Error()
		}
	} else {
		status.Database = true
	}
	return status
}

// fuse joins a relational place with its similarity score. A place with
// no matching score keeps 0.0 rather than being dropped.
func fuse(place *types.Place, score float64) types.Recommendation {
	lat := place.Latitude
	lon := place.Longitude
	return types.Recommendation{
		ID:              place.ID.String(),
		Name:            place.Name,
		Description:     place.Description,
		Latitude:        &lat,
		Longitude:       &lon,
		Category:        place.Category,
		Rating:          place.Rating,
		PriceLevel:      place.PriceLevel,
		PriceAverage:    place.PriceAverage,
		PriceCurrency:   place.PriceCurrency,
		Address:         place.Address,
		SimilarityScore: score,
	}
}

func emptyResponse(query string) *types.RecommendationResponse {
	return &types.RecommendationResponse{
		Query:           query,
		TotalFound:      0,
		Recommendations: []types.Recommendation{},
	}
}

func failureCause(err error) string {
	if err == nil {
		return "none"
	}
	switch {
	case errors.Is(err, embedding.ErrEmbeddingFailed):
		return "embedding"
	case errors.Is(err, vectorindex.ErrDimensionMismatch):
		return "dimension_mismatch"
	default:
		return "other"
	}
}
