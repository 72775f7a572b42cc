package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

var _ Service = (*CachedService)(nil)

// CachedService is an in-process cache decorator over a Service. It is a
// supplemental layer for the query path only; the batch indexer talks to
// the inner service directly so every record gets a fresh embedding.
type CachedService struct {
	inner  Service
	cache  *gocache.Cache
	logger *slog.Logger
}

// NewCachedService wraps inner with a TTL cache keyed by the text hash.
func NewCachedService(inner Service, ttl time.Duration, logger *slog.Logger) *CachedService {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &CachedService{
		inner:  inner,
		cache:  gocache.New(ttl, 2*ttl),
		logger: logger,
	}
}

// GenerateEmbedding returns a cached vector when the same text was
// embedded recently, otherwise delegates to the inner service.
func (s *CachedService) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	key := cacheKey(text)
	if cached, ok := s.cache.Get(key); ok {
		if vector, ok := cached.([]float32); ok {
			s.logger.DebugContext(ctx, "Embedding cache hit", slog.String("key", key))
			return vector, nil
		}
	}

	vector, err := s.inner.GenerateEmbedding(ctx, text)
	if err != nil {
		return nil, err
	}

	s.cache.Set(key, vector, gocache.DefaultExpiration)
	return vector, nil
}

func cacheKey(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}
