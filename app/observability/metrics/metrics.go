package metrics

import (
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics holds the application's metric instruments.
type AppMetrics struct {
	RecommendationRequestsTotal   metric.Int64Counter
	RecommendationDurationSeconds metric.Float64Histogram
	RecommendationFallbacksTotal  metric.Int64Counter
	EmbeddingRetriesTotal         metric.Int64Counter
	IndexerRecordsTotal           metric.Int64Counter
}

var (
	appMetrics *AppMetrics
	once       sync.Once
)

// InitAppMetrics initializes the global metric instruments only once.
// It gets the Meter from the globally configured MeterProvider.
func InitAppMetrics() {
	once.Do(func() {
		meter := otel.GetMeterProvider().Meter("PlaceRecommendationsAPI")
		var err error
		m := &AppMetrics{}

		m.RecommendationRequestsTotal, err = meter.Int64Counter(
			"recommendation_requests_total",
			metric.WithDescription("Total number of recommendation requests completed"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create recommendation_requests_total: %v", err)
		}

		m.RecommendationDurationSeconds, err = meter.Float64Histogram(
			"recommendation_duration_seconds",
			metric.WithDescription("Duration of recommendation requests in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create recommendation_duration_seconds: %v", err)
		}

		m.RecommendationFallbacksTotal, err = meter.Int64Counter(
			"recommendation_fallbacks_total",
			metric.WithDescription("Recommendation requests that degraded to an empty response"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create recommendation_fallbacks_total: %v", err)
		}

		m.EmbeddingRetriesTotal, err = meter.Int64Counter(
			"embedding_retries_total",
			metric.WithDescription("Total number of retried embedding provider calls"),
			metric.WithUnit("{call}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create embedding_retries_total: %v", err)
		}

		m.IndexerRecordsTotal, err = meter.Int64Counter(
			"indexer_records_total",
			metric.WithDescription("Batch indexer records by outcome"),
			metric.WithUnit("{record}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create indexer_records_total: %v", err)
		}

		appMetrics = m
	})
}

// Get returns the initialized metric instruments, or nil when
// InitAppMetrics has not run (tests).
func Get() *AppMetrics {
	return appMetrics
}
