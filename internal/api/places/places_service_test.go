package places

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-place-recommendations/internal/api/embedding"
	"github.com/FACorreiaa/go-place-recommendations/internal/types"
)

// MockRepository is a mock implementation of Repository
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) GetByID(ctx context.Context, id uuid.UUID) (*types.Place, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Place), args.Error(1)
}

func (m *MockRepository) GetByIDs(ctx context.Context, ids []string) ([]types.Place, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Place), args.Error(1)
}

func (m *MockRepository) GetAll(ctx context.Context, offset, limit int) ([]types.Place, error) {
	args := m.Called(ctx, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Place), args.Error(1)
}

func (m *MockRepository) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockEmbeddingService is a mock implementation of embedding.Service
type MockEmbeddingService struct {
	mock.Mock
}

func (m *MockEmbeddingService) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

// MockVectorIndex is a mock implementation of vectorindex.Index
type MockVectorIndex struct {
	mock.Mock
}

func (m *MockVectorIndex) EnsureCollection(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockVectorIndex) Upsert(ctx context.Context, id string, vector []float32, payload map[string]any) error {
	args := m.Called(ctx, id, vector, payload)
	return args.Error(0)
}

func (m *MockVectorIndex) Search(ctx context.Context, vector []float32, limit int, scoreThreshold float64, filters map[string]string) ([]types.SimilarityResult, error) {
	args := m.Called(ctx, vector, limit, scoreThreshold, filters)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.SimilarityResult), args.Error(1)
}

func (m *MockVectorIndex) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockVectorIndex) Exists(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockVectorIndex) CollectionStats(ctx context.Context) (*types.CollectionStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.CollectionStats), args.Error(1)
}

func (m *MockVectorIndex) HealthCheck(ctx context.Context) *types.HealthStatus {
	args := m.Called(ctx)
	return args.Get(0).(*types.HealthStatus)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestService(repo *MockRepository, emb *MockEmbeddingService, index *MockVectorIndex) *ServiceImpl {
	return NewServiceImpl(repo, emb, index, 0.5, testLogger())
}

func TestGetRecommendations_RanksFusedResultsDescending(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	emb := new(MockEmbeddingService)
	index := new(MockVectorIndex)

	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	vector := make([]float32, 1536)

	emb.On("GenerateEmbedding", mock.Anything,"café tranquilo con wifi").Return(vector, nil)
	index.On("Search", mock.Anything,vector, 3, 0.5, map[string]string(nil)).Return([]types.SimilarityResult{
		{PlaceID: ids[0].String(), Score: 0.91},
		{PlaceID: ids[1].String(), Score: 0.88},
		{PlaceID: ids[2].String(), Score: 0.60},
	}, nil)
	// Bulk resolve does not preserve the ranking order.
	repo.On("GetByIDs", mock.Anything,[]string{ids[0].String(), ids[1].String(), ids[2].String()}).Return([]types.Place{
		{ID: ids[2], Name: "Tercero", Category: "cafeteria"},
		{ID: ids[0], Name: "Primero", Category: "cafeteria"},
		{ID: ids[1], Name: "Segundo", Category: "cafeteria"},
	}, nil)

	svc := newTestService(repo, emb, index)
	response := svc.GetRecommendations(ctx, "café tranquilo con wifi", 3)

	require.NotNil(t, response)
	assert.Equal(t, "café tranquilo con wifi", response.Query)
	assert.Equal(t, 3, response.TotalFound)
	require.Len(t, response.Recommendations, 3)
	assert.Equal(t, "Primero", response.Recommendations[0].Name)
	assert.InDelta(t, 0.91, response.Recommendations[0].SimilarityScore, 1e-9)
	assert.Equal(t, "Segundo", response.Recommendations[1].Name)
	assert.Equal(t, "Tercero", response.Recommendations[2].Name)
	for i := 1; i < len(response.Recommendations); i++ {
		assert.GreaterOrEqual(t,
			response.Recommendations[i-1].SimilarityScore,
			response.Recommendations[i].SimilarityScore,
		)
	}
}

func TestGetRecommendations_EmbeddingFailureDegradesToEmpty(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	emb := new(MockEmbeddingService)
	index := new(MockVectorIndex)

	emb.On("GenerateEmbedding", mock.Anything,"algo").Return(nil,
		fmt.Errorf("%w after 3 attempts: timeout", embedding.ErrEmbeddingFailed))

	svc := newTestService(repo, emb, index)
	response := svc.GetRecommendations(ctx, "algo", 5)

	require.NotNil(t, response)
	assert.Equal(t, "algo", response.Query)
	assert.Equal(t, 0, response.TotalFound)
	assert.Empty(t, response.Recommendations)
	assert.NotNil(t, response.Recommendations)
	index.AssertNotCalled(t, "Search", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestGetRecommendations_SearchFailureDegradesToEmpty(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	emb := new(MockEmbeddingService)
	index := new(MockVectorIndex)

	vector := make([]float32, 1536)
	emb.On("GenerateEmbedding", mock.Anything,"bar con terraza").Return(vector, nil)
	index.On("Search", mock.Anything,vector, 5, 0.5, map[string]string(nil)).
		Return(nil, errors.New("connection refused"))

	svc := newTestService(repo, emb, index)
	response := svc.GetRecommendations(ctx, "bar con terraza", 5)

	assert.Equal(t, 0, response.TotalFound)
	repo.AssertNotCalled(t, "GetByIDs", mock.Anything, mock.Anything)
}

func TestGetRecommendations_ResolveFailureDegradesToEmpty(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	emb := new(MockEmbeddingService)
	index := new(MockVectorIndex)

	vector := make([]float32, 1536)
	id := uuid.New().String()
	emb.On("GenerateEmbedding", mock.Anything,"museo").Return(vector, nil)
	index.On("Search", mock.Anything,vector, 5, 0.5, map[string]string(nil)).Return([]types.SimilarityResult{
		{PlaceID: id, Score: 0.8},
	}, nil)
	repo.On("GetByIDs", mock.Anything,[]string{id}).Return(nil, errors.New("pool closed"))

	svc := newTestService(repo, emb, index)
	response := svc.GetRecommendations(ctx, "museo", 5)

	assert.Equal(t, 0, response.TotalFound)
	assert.Empty(t, response.Recommendations)
}

func TestGetRecommendations_NoMatchesIsEmptyNotError(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	emb := new(MockEmbeddingService)
	index := new(MockVectorIndex)

	vector := make([]float32, 1536)
	emb.On("GenerateEmbedding", mock.Anything,"consulta sin parecidos").Return(vector, nil)
	index.On("Search", mock.Anything,vector, 5, 0.5, map[string]string(nil)).
		Return([]types.SimilarityResult{}, nil)

	svc := newTestService(repo, emb, index)
	response := svc.GetRecommendations(ctx, "consulta sin parecidos", 5)

	assert.Equal(t, 0, response.TotalFound)
	repo.AssertNotCalled(t, "GetByIDs", mock.Anything, mock.Anything)
}

func TestGetRecommendations_DropsMatchesWithoutRelationalRows(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	emb := new(MockEmbeddingService)
	index := new(MockVectorIndex)

	live := uuid.New()
	stale := uuid.New().String()
	vector := make([]float32, 1536)

	emb.On("GenerateEmbedding", mock.Anything,"parque").Return(vector, nil)
	index.On("Search", mock.Anything,vector, 5, 0.5, map[string]string(nil)).Return([]types.SimilarityResult{
		{PlaceID: stale, Score: 0.95},
		{PlaceID: live.String(), Score: 0.7},
	}, nil)
	repo.On("GetByIDs", mock.Anything,[]string{stale, live.String()}).Return([]types.Place{
		{ID: live, Name: "Parque Central", Category: "parque"},
	}, nil)

	svc := newTestService(repo, emb, index)
	response := svc.GetRecommendations(ctx, "parque", 5)

	require.Equal(t, 1, response.TotalFound)
	assert.Equal(t, live.String(), response.Recommendations[0].ID)
	assert.InDelta(t, 0.7, response.Recommendations[0].SimilarityScore, 1e-9)
}

func TestGetRecommendations_TiedScoresKeepIndexOrder(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	emb := new(MockEmbeddingService)
	index := new(MockVectorIndex)

	first, second := uuid.New(), uuid.New()
	vector := make([]float32, 1536)

	emb.On("GenerateEmbedding", mock.Anything, "librería").Return(vector, nil)
	index.On("Search", mock.Anything, vector, 5, 0.5, map[string]string(nil)).Return([]types.SimilarityResult{
		{PlaceID: first.String(), Score: 0.8},
		{PlaceID: second.String(), Score: 0.8},
	}, nil)
	// Resolve order is reversed; the tie must still follow the index.
	repo.On("GetByIDs", mock.Anything, []string{first.String(), second.String()}).Return([]types.Place{
		{ID: second, Name: "Librería B", Category: "libreria"},
		{ID: first, Name: "Librería A", Category: "libreria"},
	}, nil)

	svc := newTestService(repo, emb, index)
	response := svc.GetRecommendations(ctx, "librería", 5)

	require.Equal(t, 2, response.TotalFound)
	assert.Equal(t, first.String(), response.Recommendations[0].ID)
	assert.Equal(t, second.String(), response.Recommendations[1].ID)
}

func TestFuse_CopiesCoordinatesAndScore(t *testing.T) {
	place := &types.Place{
		ID:        uuid.New(),
		Name:      "Taquería La 10",
		Latitude:  19.4326,
		Longitude: -99.1332,
		Category:  "restaurante",
	}

	rec := fuse(place, 0.83)

	require.NotNil(t, rec.Latitude)
	require.NotNil(t, rec.Longitude)
	assert.InDelta(t, 19.4326, *rec.Latitude, 1e-9)
	assert.InDelta(t, -99.1332, *rec.Longitude, 1e-9)
	assert.InDelta(t, 0.83, rec.SimilarityScore, 1e-9)
	assert.Equal(t, place.ID.String(), rec.ID)
}

func TestHealth_DatabaseFailureFlagsStatus(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	emb := new(MockEmbeddingService)
	index := new(MockVectorIndex)

	index.On("HealthCheck", mock.Anything).Return(&types.HealthStatus{Connected: true})
	repo.On("Count", mock.Anything).Return(0, errors.New("dial tcp: connection refused"))

	svc := newTestService(repo, emb, index)
	status := svc.Health(ctx)

	assert.True(t, status.Connected)
	assert.False(t, status.Database)
	assert.Contains(t, status.Error, "connection refused")
}

func TestHealth_AllDependenciesUp(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	emb := new(MockEmbeddingService)
	index := new(MockVectorIndex)

	index.On("HealthCheck", mock.Anything).Return(&types.HealthStatus{Connected: true, Collections: 1})
	repo.On("Count", mock.Anything).Return(42, nil)

	svc := newTestService(repo, emb, index)
	status := svc.Health(ctx)

	assert.True(t, status.Connected)
	assert.True(t, status.Database)
	assert.Empty(t, status.Error)
}
