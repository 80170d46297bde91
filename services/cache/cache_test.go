package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock_recommendation_backend/models"
)

func TestFingerprintStable(t *testing.T) {
	a := Fingerprint(models.StrategyShortTerm, "v2024.3", 50, 10, 0)
	b := Fingerprint(models.StrategyShortTerm, "v2024.3", 50, 10, 0)
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestFingerprintDistinguishesInputs(t *testing.T) {
	base := Fingerprint(models.StrategyShortTerm, "v2024.3", 50, 10, 0)

	assert.NotEqual(t, base, Fingerprint(models.StrategySwing, "v2024.3", 50, 10, 0))
	assert.NotEqual(t, base, Fingerprint(models.StrategyShortTerm, "v2024.4", 50, 10, 0))
	assert.NotEqual(t, base, Fingerprint(models.StrategyShortTerm, "v2024.3", 40, 10, 0))
	assert.NotEqual(t, base, Fingerprint(models.StrategyShortTerm, "v2024.3", 50, 5, 0))
	assert.NotEqual(t, base, Fingerprint(models.StrategyShortTerm, "v2024.3", 50, 10, 2.5))
}

func TestBatchCachePutGet(t *testing.T) {
	c := NewBatchCache()
	defer c.Close()

	batch := &models.RecommendationBatch{Strategy: models.StrategyShortTerm, TotalCount: 1}
	key := Fingerprint(models.StrategyShortTerm, "v1", 50, 10, 0)

	assert.Nil(t, c.Get(key))

	c.Put(key, batch, time.Minute)
	got := c.Get(key)
	require.NotNil(t, got)
	assert.Equal(t, batch, got)
	assert.Equal(t, 1, c.Len())
}

func TestBatchCacheExpiry(t *testing.T) {
	c := NewBatchCache()
	defer c.Close()

	key := Fingerprint(models.StrategySwing, "v1", 40, 10, 0)
	c.Put(key, &models.RecommendationBatch{}, 10*time.Millisecond)

	require.NotNil(t, c.Get(key))
	time.Sleep(30 * time.Millisecond)
	assert.Nil(t, c.Get(key))
	assert.Equal(t, 0, c.Len())
}

func TestBatchCacheLastWriteWins(t *testing.T) {
	c := NewBatchCache()
	defer c.Close()

	key := Fingerprint(models.StrategyLongTerm, "v1", 30, 10, 0)
	first := &models.RecommendationBatch{TotalCount: 1}
	second := &models.RecommendationBatch{TotalCount: 2}

	c.Put(key, first, time.Minute)
	c.Put(key, second, time.Minute)

	got := c.Get(key)
	require.NotNil(t, got)
	assert.Equal(t, 2, got.TotalCount)
}

func TestIsMarketOpen(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)

	cases := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"tuesday mid-session", time.Date(2024, 6, 11, 11, 0, 0, 0, ist), true},
		{"session open boundary", time.Date(2024, 6, 11, 9, 15, 0, 0, ist), true},
		{"just before open", time.Date(2024, 6, 11, 9, 14, 0, 0, ist), false},
		{"session close boundary", time.Date(2024, 6, 11, 15, 30, 0, 0, ist), false},
		{"just before close", time.Date(2024, 6, 11, 15, 29, 0, 0, ist), true},
		{"saturday", time.Date(2024, 6, 15, 11, 0, 0, 0, ist), false},
		{"sunday", time.Date(2024, 6, 16, 11, 0, 0, 0, ist), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsMarketOpen(tc.at))
		})
	}
}

func TestIsMarketOpenConvertsZones(t *testing.T) {
	// 11:00 IST on a Tuesday expressed in UTC
	utc := time.Date(2024, 6, 11, 5, 30, 0, 0, time.UTC)
	assert.True(t, IsMarketOpen(utc))
}

func TestTTLFor(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)

	assert.Equal(t, MarketHoursTTL, TTLFor(time.Date(2024, 6, 11, 11, 0, 0, 0, ist)))
	assert.Equal(t, OffHoursTTL, TTLFor(time.Date(2024, 6, 11, 20, 0, 0, 0, ist)))
	assert.Equal(t, OffHoursTTL, TTLFor(time.Date(2024, 6, 16, 11, 0, 0, 0, ist)))
}
