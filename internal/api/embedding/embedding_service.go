package embedding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-place-recommendations/app/observability/metrics"
)

// ErrEmbeddingFailed is returned after the retry budget against the
// embedding provider is exhausted. It wraps the last provider error.
var ErrEmbeddingFailed = errors.New("embedding generation failed")

var _ Service = (*OpenAIService)(nil)

// Service turns text into a fixed-length embedding vector.
type Service interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// embeddingsAPI is the slice of the OpenAI client this service consumes.
type embeddingsAPI interface {
	CreateEmbeddings(ctx context.Context, conv openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
	ListModels(ctx context.Context) (openai.ModelsList, error)
}

// OpenAIService calls the OpenAI embeddings API with a bounded retry
// policy. Every call is a fresh remote computation; callers wanting a
// cache wrap this service with CachedService.
type OpenAIService struct {
	client     embeddingsAPI
	model      openai.EmbeddingModel
	dimensions int
	maxRetries int
	retryDelay time.Duration
	sleep      func(time.Duration)
	logger     *slog.Logger
}

// Options configures the embedding provider client.
type Options struct {
	Model      string
	Dimensions int
	MaxRetries int
	RetryDelay time.Duration
}

// NewOpenAIService creates the provider client. A missing API key is a
// configuration error and must abort startup.
func NewOpenAIService(apiKey string, opts Options, logger *slog.Logger) (*OpenAIService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is not set")
	}
	if opts.Model == "" {
		opts.Model = string(openai.SmallEmbedding3)
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = time.Second
	}

	return &OpenAIService{
		client:     openai.NewClient(apiKey),
		model:      openai.EmbeddingModel(opts.Model),
		dimensions: opts.Dimensions,
		maxRetries: opts.MaxRetries,
		retryDelay: opts.RetryDelay,
		sleep:      time.Sleep,
		logger:     logger,
	}, nil
}

// GenerateEmbedding embeds text, retrying provider failures with a
// growing delay (retryDelay * attempt). After maxRetries attempts it
// returns ErrEmbeddingFailed wrapping the last provider error.
func (s *OpenAIService) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	ctx, span := otel.Tracer("EmbeddingService").Start(ctx, "GenerateEmbedding", trace.WithAttributes(
		attribute.String("embedding.model", string(s.model)),
	))
	defer span.End()

	req := openai.EmbeddingRequest{
		Input: []string{text},
		Model: s.model,
	}
	if s.dimensions > 0 {
		req.Dimensions = s.dimensions
	}

	var lastErr error
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		resp, err := s.client.CreateEmbeddings(ctx, req)
		if err == nil {
			if len(resp.Data) == 0 {
				err = errors.New("empty embedding response")
			} else {
				span.SetAttributes(attribute.Int("embedding.dimension", len(resp.Data[0].Embedding)))
				span.SetStatus(codes.Ok, "Embedding generated")
				return resp.Data[0].Embedding, nil
			}
		}

		lastErr = err
		s.logger.WarnContext(ctx, "Embedding provider call failed",
			slog.Int("attempt", attempt),
			slog.Int("max_retries", s.maxRetries),
			slog.Any("error", err),
		)

		if attempt < s.maxRetries {
			if m := metrics.Get(); m != nil {
				m.EmbeddingRetriesTotal.Add(ctx, 1)
			}
			s.sleep(s.retryDelay * time.Duration(attempt))
		}
	}

	span.RecordError(lastErr)
	span.SetStatus(codes.Error, "Embedding generation failed")
	return nil, fmt.Errorf("%w after %d attempts: %w", ErrEmbeddingFailed, s.maxRetries, lastErr)
}

// HealthCheck verifies API availability via ListModels.
func (s *OpenAIService) HealthCheck(ctx context.Context) error {
	if _, err := s.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}
