package services

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock_recommendation_backend/models"
	"stock_recommendation_backend/services/recommend"
	"stock_recommendation_backend/services/scoring"
)

// countingScreener records how many queries actually hit the screener
type countingScreener struct {
	calls int64
}

func (s *countingScreener) RunQuery(_ context.Context, _ string, _ int) ([]models.RawStockRow, error) {
	atomic.AddInt64(&s.calls, 1)
	return []models.RawStockRow{{Symbol: "FOO", Name: "Foo Industries", Close: 100}}, nil
}

func newTestRecommendationService() (*RecommendationService, *countingScreener) {
	screener := &countingScreener{}
	catalog := models.NewVariantCatalog("test", map[models.Strategy][]models.QueryVariant{
		models.StrategyShortTerm: {
			{Category: "momentum", Version: "v1", Weight: 1.0, Query: "q"},
		},
	})
	agg := recommend.NewAggregator(screener, catalog, scoring.DefaultScoringConfig(), nil)
	InitRecommendationService(agg)
	return GlobalRecommendationService, screener
}

func TestGetRecommendationsCacheFirst(t *testing.T) {
	svc, screener := newTestRecommendationService()
	params := recommend.Params{Strategy: models.StrategyShortTerm}

	batch, cached, err := svc.GetRecommendations(context.Background(), params, false)
	require.NoError(t, err)
	assert.False(t, cached)
	require.Len(t, batch.Recommendations, 1)

	again, cached, err := svc.GetRecommendations(context.Background(), params, false)
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, batch, again, "cache returns the same batch object")
	assert.Equal(t, int64(1), atomic.LoadInt64(&screener.calls))
}

func TestGetRecommendationsEquivalentParamsShareEntry(t *testing.T) {
	svc, screener := newTestRecommendationService()

	_, _, err := svc.GetRecommendations(context.Background(), recommend.Params{
		Strategy: models.StrategyShortTerm,
	}, false)
	require.NoError(t, err)

	// Explicit defaults must hit the same cache entry as zero values
	_, cached, err := svc.GetRecommendations(context.Background(), recommend.Params{
		Strategy:      models.StrategyShortTerm,
		LimitPerQuery: models.StrategyShortTerm.DefaultLimitPerQuery(),
		TopN:          recommend.DefaultTopN,
	}, false)
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, int64(1), atomic.LoadInt64(&screener.calls))
}

func TestGetRecommendationsForceRefresh(t *testing.T) {
	svc, screener := newTestRecommendationService()
	params := recommend.Params{Strategy: models.StrategyShortTerm}

	_, _, err := svc.GetRecommendations(context.Background(), params, false)
	require.NoError(t, err)

	_, cached, err := svc.GetRecommendations(context.Background(), params, true)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, int64(2), atomic.LoadInt64(&screener.calls))
}

func TestGenerateAndPersistWithoutStores(t *testing.T) {
	// No Postgres, Mongo, or broadcast hub wired: persistence is best-effort
	// and the batch still comes back.
	svc, _ := newTestRecommendationService()

	executionID, batch, err := svc.GenerateAndPersist(context.Background(), recommend.Params{
		Strategy: models.StrategyShortTerm,
	})
	require.NoError(t, err)
	require.NotNil(t, batch)
	assert.NotEmpty(t, executionID)
	assert.Contains(t, executionID, "shortterm-")

	// The persisted batch is immediately servable from cache
	_, cached, err := svc.GetRecommendations(context.Background(), recommend.Params{
		Strategy: models.StrategyShortTerm,
	}, false)
	require.NoError(t, err)
	assert.True(t, cached)
}

func TestGenerateAndPersistUnknownStrategy(t *testing.T) {
	svc, _ := newTestRecommendationService()

	_, batch, err := svc.GenerateAndPersist(context.Background(), recommend.Params{
		Strategy: models.StrategySwing,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrCatalogNotFound)
	assert.Nil(t, batch)
}

func TestExecutionIDsUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		id := newExecutionID(models.StrategyShortTerm)
		assert.False(t, seen[id], "duplicate execution id %s", id)
		seen[id] = true
	}
}
