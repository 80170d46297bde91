package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStrategy(t *testing.T) {
	for _, raw := range []string{"shortterm", "swing", "longterm"} {
		s, ok := ParseStrategy(raw)
		assert.True(t, ok)
		assert.Equal(t, raw, s.String())
	}

	_, ok := ParseStrategy("intraday")
	assert.False(t, ok)
	_, ok = ParseStrategy("")
	assert.False(t, ok)
}

func TestDefaultLimitPerQuery(t *testing.T) {
	assert.Equal(t, 50, StrategyShortTerm.DefaultLimitPerQuery())
	assert.Equal(t, 40, StrategySwing.DefaultLimitPerQuery())
	assert.Equal(t, 30, StrategyLongTerm.DefaultLimitPerQuery())
}

func TestVariantKey(t *testing.T) {
	v := QueryVariant{Category: "momentum", Version: "v2"}
	assert.Equal(t, "momentum/v2", v.Key())
}

func TestCatalogPreservesDeclarationOrder(t *testing.T) {
	catalog := NewVariantCatalog("test", map[Strategy][]QueryVariant{
		StrategyShortTerm: {
			{Category: "momentum", Version: "v1", Weight: 1.0},
			{Category: "breakout", Version: "v1", Weight: 1.2},
			{Category: "momentum", Version: "v2", Weight: 0.8},
		},
	})

	for i := 0; i < 10; i++ {
		variants, err := catalog.VariantsFor(StrategyShortTerm)
		require.NoError(t, err)
		require.Len(t, variants, 3)
		assert.Equal(t, "momentum/v1", variants[0].Key())
		assert.Equal(t, "breakout/v1", variants[1].Key())
		assert.Equal(t, "momentum/v2", variants[2].Key())
	}
}

func TestCatalogReturnsCopies(t *testing.T) {
	source := []QueryVariant{{Category: "momentum", Version: "v1", Weight: 1.0}}
	catalog := NewVariantCatalog("test", map[Strategy][]QueryVariant{
		StrategyShortTerm: source,
	})

	// Mutating the input slice or a returned slice must not leak into the catalog
	source[0].Weight = 99

	variants, err := catalog.VariantsFor(StrategyShortTerm)
	require.NoError(t, err)
	assert.Equal(t, 1.0, variants[0].Weight)

	variants[0].Weight = 42
	again, err := catalog.VariantsFor(StrategyShortTerm)
	require.NoError(t, err)
	assert.Equal(t, 1.0, again[0].Weight)
}

func TestCatalogNotFound(t *testing.T) {
	catalog := NewVariantCatalog("test", map[Strategy][]QueryVariant{
		StrategyShortTerm: {{Category: "momentum", Version: "v1"}},
	})

	_, err := catalog.VariantsFor(StrategySwing)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCatalogNotFound)

	empty := NewVariantCatalog("test", map[Strategy][]QueryVariant{
		StrategySwing: {},
	})
	_, err = empty.VariantsFor(StrategySwing)
	assert.ErrorIs(t, err, ErrCatalogNotFound)
}

func TestCatalogStrategies(t *testing.T) {
	catalog := NewVariantCatalog("test", map[Strategy][]QueryVariant{
		StrategyLongTerm:  {{Category: "value", Version: "v1"}},
		StrategyShortTerm: {{Category: "momentum", Version: "v1"}},
	})

	assert.Equal(t, []Strategy{StrategyShortTerm, StrategyLongTerm}, catalog.Strategies())
}

func TestDefaultCatalogCoversAllStrategies(t *testing.T) {
	catalog := DefaultCatalog()
	assert.NotEmpty(t, catalog.Version())

	for _, strategy := range AllStrategies() {
		variants, err := catalog.VariantsFor(strategy)
		require.NoError(t, err, strategy)
		assert.NotEmpty(t, variants)
		for _, v := range variants {
			assert.NotEmpty(t, v.Category, "%s %s", strategy, v.Name)
			assert.NotEmpty(t, v.Query)
			assert.Greater(t, v.Weight, 0.0)
		}
	}
}
