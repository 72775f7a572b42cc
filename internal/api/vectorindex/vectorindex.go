package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/qdrant/go-client/qdrant"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-place-recommendations/internal/types"
)

// ErrDimensionMismatch indicates a vector whose length differs from the
// collection's configured size. This is a configuration bug, never
// papered over by truncation or padding.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

var _ Index = (*Adapter)(nil)

// Index is the contract the recommendation and indexing pipelines consume.
type Index interface {
	EnsureCollection(ctx context.Context) error
	Upsert(ctx context.Context, id string, vector []float32, payload map[string]any) error
	Search(ctx context.Context, vector []float32, limit int, scoreThreshold float64, filters map[string]string) ([]types.SimilarityResult, error)
	Delete(ctx context.Context, id string) error
	Exists(ctx context.Context, id string) (bool, error)
	CollectionStats(ctx context.Context) (*types.CollectionStats, error)
	HealthCheck(ctx context.Context) *types.HealthStatus
}

// qdrantAPI is the slice of the Qdrant client used by the adapter.
type qdrantAPI interface {
	CollectionExists(ctx context.Context, collectionName string) (bool, error)
	CreateCollection(ctx context.Context, request *qdrant.CreateCollection) error
	GetCollectionInfo(ctx context.Context, collectionName string) (*qdrant.CollectionInfo, error)
	ListCollections(ctx context.Context) ([]string, error)
	Upsert(ctx context.Context, request *qdrant.UpsertPoints) (*qdrant.UpdateResult, error)
	Query(ctx context.Context, request *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error)
	Get(ctx context.Context, request *qdrant.GetPoints) ([]*qdrant.RetrievedPoint, error)
	Delete(ctx context.Context, request *qdrant.DeletePoints) (*qdrant.UpdateResult, error)
}

// Adapter owns a single named Qdrant collection and exposes the
// operations the pipelines need. Point ids are place ids in string form.
type Adapter struct {
	client     qdrantAPI
	collection string
	vectorSize uint64
	logger     *slog.Logger
}

// Options configures the adapter.
type Options struct {
	Host       string
	Port       int
	UseTLS     bool
	Collection string
	VectorSize uint64
}

// NewAdapter connects to Qdrant over gRPC.
func NewAdapter(opts Options, logger *slog.Logger) (*Adapter, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   opts.Host,
		Port:   opts.Port,
		UseTLS: opts.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to qdrant: %w", err)
	}
	return newAdapter(client, opts, logger), nil
}

func newAdapter(client qdrantAPI, opts Options, logger *slog.Logger) *Adapter {
	size := opts.VectorSize
	if size == 0 {
		size = 1536
	}
	return &Adapter{
		client:     client,
		collection: opts.Collection,
		vectorSize: size,
		logger:     logger,
	}
}

// EnsureCollection creates the collection if it does not exist. A
// pre-existing collection is left untouched; a size mismatch against the
// expected dimension is logged loudly instead of being reconciled.
func (a *Adapter) EnsureCollection(ctx context.Context) error {
	exists, err := a.client.CollectionExists(ctx, a.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection %q: %w", a.collection, err)
	}

	if exists {
		info, err := a.client.GetCollectionInfo(ctx, a.collection)
		if err == nil {
			if params := info.GetConfig().GetParams().GetVectorsConfig().GetParams(); params != nil && params.GetSize() != a.vectorSize {
				a.logger.Warn("Existing collection vector size differs from configured size",
					slog.String("collection", a.collection),
					slog.Uint64("configured_size", a.vectorSize),
					slog.Uint64("collection_size", params.GetSize()),
				)
			}
		}
		a.logger.Info("Collection already exists", slog.String("collection", a.collection))
		return nil
	}

	err = a.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: a.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     a.vectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection %q: %w", a.collection, err)
	}

	a.logger.Info("Collection created", slog.String("collection", a.collection), slog.Uint64("vector_size", a.vectorSize))
	return nil
}

// Upsert inserts or fully replaces the point at id. Transport errors
// propagate to the caller.
func (a *Adapter) Upsert(ctx context.Context, id string, vector []float32, payload map[string]any) error {
	ctx, span := otel.Tracer("VectorIndex").Start(ctx, "Upsert", trace.WithAttributes(
		attribute.String("point.id", id),
	))
	defer span.End()

	if err := a.checkDimension(vector); err != nil {
		span.RecordError(err)
		return err
	}

	_, err := a.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: a.collection,
		Wait:           qdrant.PtrOf(true),
		Points: []*qdrant.PointStruct{
			{
				Id:      qdrant.NewID(id),
				Vectors: qdrant.NewVectors(vector...),
				Payload: qdrant.NewValueMap(payload),
			},
		},
	})
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to upsert point %s: %w", id, err)
	}

	span.SetStatus(codes.Ok, "Point upserted")
	return nil
}

// Search returns at most limit matches with score >= scoreThreshold,
// ordered descending by score. filters is an exact-match conjunction
// over payload fields.
func (a *Adapter) Search(ctx context.Context, vector []float32, limit int, scoreThreshold float64, filters map[string]string) ([]types.SimilarityResult, error) {
	ctx, span := otel.Tracer("VectorIndex").Start(ctx, "Search", trace.WithAttributes(
		attribute.Int("search.limit", limit),
		attribute.Float64("search.score_threshold", scoreThreshold),
	))
	defer span.End()

	if err := a.checkDimension(vector); err != nil {
		span.RecordError(err)
		return nil, err
	}

	var filter *qdrant.Filter
	if len(filters) > 0 {
		conditions := make([]*qdrant.Condition, 0, len(filters))
		for key, value := range filters {
			conditions = append(conditions, qdrant.NewMatchKeyword(key, value))
		}
		filter = &qdrant.Filter{Must: conditions}
	}

	points, err := a.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: a.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(limit)),
		ScoreThreshold: qdrant.PtrOf(float32(scoreThreshold)),
		Filter:         filter,
		WithPayload:    qdrant.NewWithPayload(false),
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	results := make([]types.SimilarityResult, 0, len(points))
	for _, point := range points {
		results = append(results, types.SimilarityResult{
			PlaceID: point.GetId().GetUuid(),
			Score:   float64(point.GetScore()),
		})
	}

	span.SetAttributes(attribute.Int("search.results", len(results)))
	span.SetStatus(codes.Ok, "Search completed")
	return results, nil
}

// Delete removes the point at id. A missing id is not an error.
func (a *Adapter) Delete(ctx context.Context, id string) error {
	_, err := a.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: a.collection,
		Points:         qdrant.NewPointsSelector(qdrant.NewID(id)),
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("failed to delete point %s: %w", id, err)
	}
	return nil
}

// Exists reports whether the index already has a point at id.
func (a *Adapter) Exists(ctx context.Context, id string) (bool, error) {
	points, err := a.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: a.collection,
		Ids:            []*qdrant.PointId{qdrant.NewID(id)},
		WithPayload:    qdrant.NewWithPayload(false),
	})
	if err != nil {
		return false, fmt.Errorf("failed to retrieve point %s: %w", id, err)
	}
	return len(points) > 0, nil
}

// CollectionStats returns read-only collection introspection.
func (a *Adapter) CollectionStats(ctx context.Context) (*types.CollectionStats, error) {
	info, err := a.client.GetCollectionInfo(ctx, a.collection)
	if err != nil {
		return nil, fmt.Errorf("failed to get collection info: %w", err)
	}

	stats := &types.CollectionStats{
		PointsCount:   info.GetPointsCount(),
		SegmentsCount: info.GetSegmentsCount(),
		Status:        info.GetStatus().String(),
	}
	if params := info.GetConfig().GetParams().GetVectorsConfig().GetParams(); params != nil {
		stats.VectorSize = params.GetSize()
		stats.Distance = params.GetDistance().String()
	}
	return stats, nil
}

// HealthCheck probes the vector index for the diagnostic surface. It is
// never consulted by the recommendation path.
func (a *Adapter) HealthCheck(ctx context.Context) *types.HealthStatus {
	start := time.Now()
	collections, err := a.client.ListCollections(ctx)
	elapsed := time.Since(start)

	status := &types.HealthStatus{
		Connected:      err == nil,
		ResponseTimeMs: elapsed.Milliseconds(),
		Collections:    len(collections),
	}
	if err != nil {
		status.Error = err.Error()
		return status
	}

	if stats, statsErr := a.CollectionStats(ctx); statsErr == nil {
		status.Stats = stats
	}
	return status
}

func (a *Adapter) checkDimension(vector []float32) error {
	if uint64(len(vector)) != a.vectorSize {
		return fmt.Errorf("%w: got %d, collection %q expects %d",
			ErrDimensionMismatch, len(vector), a.collection, a.vectorSize)
	}
	return nil
}
