package recommend

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock_recommendation_backend/models"
	"stock_recommendation_backend/services/scoring"
)

// fakeScreener serves canned rows keyed by query text
type fakeScreener struct {
	rows  map[string][]models.RawStockRow
	errs  map[string]error
	calls int
}

func (f *fakeScreener) RunQuery(_ context.Context, query string, limit int) ([]models.RawStockRow, error) {
	f.calls++
	if err, ok := f.errs[query]; ok {
		return nil, err
	}
	rows := f.rows[query]
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func twoVariantCatalog() *models.VariantCatalog {
	return models.NewVariantCatalog("test", map[models.Strategy][]models.QueryVariant{
		models.StrategyShortTerm: {
			{Category: "momentum", Version: "v1", Name: "A", Weight: 1.0, Query: "query-a"},
			{Category: "value", Version: "v1", Name: "B", Weight: 2.0, Query: "query-b"},
		},
	})
}

func TestRunAggregationMergesAndRanks(t *testing.T) {
	screener := &fakeScreener{rows: map[string][]models.RawStockRow{
		"query-a": {{Symbol: "FOO", Name: "Foo Industries", Close: 100, PercentChange: 1.5, Volume: 10000}},
		"query-b": {
			{Symbol: "FOO", Name: "Foo Industries Ltd", Close: 101, Volume: 9000},
			{Symbol: "BAR", Name: "Bar Corp", Close: 50, Volume: 5000},
		},
	}}
	agg := NewAggregator(screener, twoVariantCatalog(), scoring.DefaultScoringConfig(), nil)

	batch, err := agg.RunAggregation(context.Background(), Params{Strategy: models.StrategyShortTerm})
	require.NoError(t, err)
	require.Len(t, batch.Recommendations, 2)
	assert.Equal(t, 2, batch.TotalCount)
	assert.Equal(t, models.StrategyShortTerm, batch.Strategy)

	foo := batch.Recommendations[0]
	assert.Equal(t, 1, foo.Rank)
	assert.Equal(t, "FOO", foo.Symbol)
	// base 1.0+2.0, +0.1 per appearance, +0.2 per distinct category
	assert.InDelta(t, 3.0, foo.BaseScore, 0.0001)
	assert.InDelta(t, 3.6, foo.OverallScore, 0.0001)
	assert.Equal(t, 2, foo.Appearances)
	assert.Equal(t, []string{"momentum", "value"}, foo.Categories)

	bar := batch.Recommendations[1]
	assert.Equal(t, 2, bar.Rank)
	assert.Equal(t, "BAR", bar.Symbol)
	assert.InDelta(t, 2.0, bar.BaseScore, 0.0001)
	assert.InDelta(t, 2.3, bar.OverallScore, 0.0001)
	assert.Equal(t, []string{"value"}, bar.Categories)
}

func TestRunAggregationFirstSeenDisplayFields(t *testing.T) {
	screener := &fakeScreener{rows: map[string][]models.RawStockRow{
		"query-a": {{Symbol: "FOO", Name: "First Name", Close: 100}},
		"query-b": {{Symbol: "FOO", Name: "Second Name", Close: 999}},
	}}
	agg := NewAggregator(screener, twoVariantCatalog(), scoring.DefaultScoringConfig(), nil)

	batch, err := agg.RunAggregation(context.Background(), Params{Strategy: models.StrategyShortTerm})
	require.NoError(t, err)
	require.Len(t, batch.Recommendations, 1)
	// Display fields come from the first variant in catalog order that saw the
	// symbol, regardless of which fetch finished first.
	assert.Equal(t, "First Name", batch.Recommendations[0].Name)
	assert.Equal(t, 100.0, batch.Recommendations[0].Price)
}

func TestRunAggregationDeterministicTieBreak(t *testing.T) {
	screener := &fakeScreener{rows: map[string][]models.RawStockRow{
		"query-a": {
			{Symbol: "ZETA", Close: 10},
			{Symbol: "ALPHA", Close: 10},
			{Symbol: "MID", Close: 10},
		},
	}}
	catalog := models.NewVariantCatalog("test", map[models.Strategy][]models.QueryVariant{
		models.StrategyShortTerm: {
			{Category: "momentum", Version: "v1", Weight: 1.0, Query: "query-a"},
		},
	})
	agg := NewAggregator(screener, catalog, scoring.DefaultScoringConfig(), nil)

	for i := 0; i < 5; i++ {
		batch, err := agg.RunAggregation(context.Background(), Params{Strategy: models.StrategyShortTerm})
		require.NoError(t, err)
		require.Len(t, batch.Recommendations, 3)
		assert.Equal(t, "ALPHA", batch.Recommendations[0].Symbol)
		assert.Equal(t, "MID", batch.Recommendations[1].Symbol)
		assert.Equal(t, "ZETA", batch.Recommendations[2].Symbol)
	}
}

func TestRunAggregationMinScoreInclusive(t *testing.T) {
	screener := &fakeScreener{rows: map[string][]models.RawStockRow{
		"query-a": {{Symbol: "FOO", Close: 100}},
		"query-b": {
			{Symbol: "FOO", Close: 100},
			{Symbol: "BAR", Close: 50},
		},
	}}
	agg := NewAggregator(screener, twoVariantCatalog(), scoring.DefaultScoringConfig(), nil)

	// BAR scores exactly 2.3; an inclusive threshold keeps it
	batch, err := agg.RunAggregation(context.Background(), Params{
		Strategy: models.StrategyShortTerm,
		MinScore: 2.3,
	})
	require.NoError(t, err)
	require.Len(t, batch.Recommendations, 2)

	batch, err = agg.RunAggregation(context.Background(), Params{
		Strategy: models.StrategyShortTerm,
		MinScore: 2.31,
	})
	require.NoError(t, err)
	require.Len(t, batch.Recommendations, 1)
	assert.Equal(t, "FOO", batch.Recommendations[0].Symbol)
	assert.Equal(t, 1, batch.Recommendations[0].Rank, "ranks stay contiguous after filtering")
}

func TestRunAggregationTopNTruncation(t *testing.T) {
	rows := make([]models.RawStockRow, 15)
	for i := range rows {
		rows[i] = models.RawStockRow{Symbol: string(rune('A' + i)), Close: 10}
	}
	screener := &fakeScreener{rows: map[string][]models.RawStockRow{"query-a": rows}}
	catalog := models.NewVariantCatalog("test", map[models.Strategy][]models.QueryVariant{
		models.StrategyShortTerm: {
			{Category: "momentum", Version: "v1", Weight: 1.0, Query: "query-a"},
		},
	})
	agg := NewAggregator(screener, catalog, scoring.DefaultScoringConfig(), nil)

	batch, err := agg.RunAggregation(context.Background(), Params{
		Strategy: models.StrategyShortTerm,
		TopN:     3,
	})
	require.NoError(t, err)
	require.Len(t, batch.Recommendations, 3)
	assert.Equal(t, 3, batch.TotalCount)
	for i, rec := range batch.Recommendations {
		assert.Equal(t, i+1, rec.Rank)
	}
}

func TestRunAggregationPartialFailure(t *testing.T) {
	screener := &fakeScreener{
		rows: map[string][]models.RawStockRow{
			"query-b": {{Symbol: "BAR", Close: 50}},
		},
		errs: map[string]error{
			"query-a": errors.New("screener timeout"),
		},
	}
	agg := NewAggregator(screener, twoVariantCatalog(), scoring.DefaultScoringConfig(), nil)

	batch, err := agg.RunAggregation(context.Background(), Params{Strategy: models.StrategyShortTerm})
	require.NoError(t, err, "a failed variant is skipped, not fatal")
	require.Len(t, batch.Recommendations, 1)
	assert.Equal(t, "BAR", batch.Recommendations[0].Symbol)
}

func TestRunAggregationAllVariantsEmpty(t *testing.T) {
	screener := &fakeScreener{}
	agg := NewAggregator(screener, twoVariantCatalog(), scoring.DefaultScoringConfig(), nil)

	batch, err := agg.RunAggregation(context.Background(), Params{Strategy: models.StrategyShortTerm})
	require.NoError(t, err)
	assert.Empty(t, batch.Recommendations)
	assert.Equal(t, 0, batch.TotalCount)
	assert.False(t, batch.GeneratedAt.IsZero())
}

func TestRunAggregationUnknownStrategy(t *testing.T) {
	screener := &fakeScreener{}
	agg := NewAggregator(screener, twoVariantCatalog(), scoring.DefaultScoringConfig(), nil)

	_, err := agg.RunAggregation(context.Background(), Params{Strategy: models.StrategyLongTerm})
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrCatalogNotFound)
	assert.Equal(t, 0, screener.calls, "no queries run for an unconfigured strategy")
}

func TestRunAggregationLimitPerQueryForwarded(t *testing.T) {
	rows := make([]models.RawStockRow, 60)
	for i := range rows {
		rows[i] = models.RawStockRow{Symbol: string(rune('A'+i%26)) + string(rune('A'+i/26)), Close: 10}
	}
	screener := &fakeScreener{rows: map[string][]models.RawStockRow{"query-a": rows}}
	catalog := models.NewVariantCatalog("test", map[models.Strategy][]models.QueryVariant{
		models.StrategyShortTerm: {
			{Category: "momentum", Version: "v1", Weight: 1.0, Query: "query-a"},
		},
	})
	agg := NewAggregator(screener, catalog, scoring.DefaultScoringConfig(), nil)

	batch, err := agg.RunAggregation(context.Background(), Params{
		Strategy:      models.StrategyShortTerm,
		LimitPerQuery: 5,
		TopN:          100,
	})
	require.NoError(t, err)
	assert.Len(t, batch.Recommendations, 5)
}

// fixedAttrs serves one snapshot for every symbol it knows
type fixedAttrs struct {
	attrs   map[string]scoring.FundamentalAttrs
	history map[string][]scoring.PricePoint
}

func (f *fixedAttrs) Fundamentals(symbol string) (scoring.FundamentalAttrs, bool) {
	a, ok := f.attrs[symbol]
	return a, ok
}

func (f *fixedAttrs) History(symbol string) ([]scoring.PricePoint, bool) {
	h, ok := f.history[symbol]
	return h, ok
}

func TestRunAggregationSubScores(t *testing.T) {
	roe := 30.0
	screener := &fakeScreener{rows: map[string][]models.RawStockRow{
		"query-a": {
			{Symbol: "FOO", Close: 100},
			{Symbol: "BAR", Close: 50},
		},
	}}
	catalog := models.NewVariantCatalog("test", map[models.Strategy][]models.QueryVariant{
		models.StrategyShortTerm: {
			{Category: "momentum", Version: "v1", Weight: 1.0, Query: "query-a"},
		},
	})
	attrs := &fixedAttrs{
		attrs: map[string]scoring.FundamentalAttrs{
			"FOO": {ROE: &roe},
		},
	}
	agg := NewAggregator(screener, catalog, scoring.DefaultScoringConfig(), attrs)

	batch, err := agg.RunAggregation(context.Background(), Params{Strategy: models.StrategyShortTerm})
	require.NoError(t, err)
	require.Len(t, batch.Recommendations, 2)

	bySymbol := map[string]models.ScoredCandidate{}
	for _, rec := range batch.Recommendations {
		bySymbol[rec.Symbol] = rec
	}
	assert.InDelta(t, 25.0, bySymbol["FOO"].FundamentalScore, 0.001)
	// Sub-scores are informational and never change ranking inputs
	assert.Equal(t, bySymbol["FOO"].OverallScore, bySymbol["BAR"].OverallScore)
	assert.Equal(t, 0.0, bySymbol["BAR"].FundamentalScore)
	assert.Equal(t, 0.0, bySymbol["FOO"].TechnicalScore, "no history configured")
}
