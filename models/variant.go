package models

import (
	"errors"
	"fmt"
)

// ErrCatalogNotFound indicates the variant catalog has no entries for the
// requested strategy. This is fatal to the caller: there is nothing to compute.
var ErrCatalogNotFound = errors.New("variant catalog not found for strategy")

// QueryVariant is one named, versioned screener filter expression within a
// trading category. Immutable after catalog construction. The query string is
// opaque: it is passed to the screener unmodified and never parsed here.
type QueryVariant struct {
	Category    string  `json:"category"`
	Version     string  `json:"version"`
	Query       string  `json:"query"`
	Weight      float64 `json:"weight"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
}

// Key returns the (category, version) identity of the variant
func (v QueryVariant) Key() string {
	return fmt.Sprintf("%s/%s", v.Category, v.Version)
}

// VariantCatalog maps strategies to ordered variant lists. Declaration order
// is load-bearing: the aggregator merges results in this order, which decides
// first-seen-wins display fields. Ordering is held by the slice type, never
// by map iteration.
type VariantCatalog struct {
	version  string
	variants map[Strategy][]QueryVariant
}

// NewVariantCatalog builds a catalog from per-strategy variant lists
func NewVariantCatalog(version string, variants map[Strategy][]QueryVariant) *VariantCatalog {
	copied := make(map[Strategy][]QueryVariant, len(variants))
	for strategy, list := range variants {
		copied[strategy] = append([]QueryVariant(nil), list...)
	}
	return &VariantCatalog{version: version, variants: copied}
}

// Version returns the catalog version used in cache fingerprints
func (c *VariantCatalog) Version() string {
	return c.version
}

// VariantsFor returns the ordered variants configured for a strategy
func (c *VariantCatalog) VariantsFor(strategy Strategy) ([]QueryVariant, error) {
	list, ok := c.variants[strategy]
	if !ok || len(list) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrCatalogNotFound, strategy)
	}
	return append([]QueryVariant(nil), list...), nil
}

// Strategies returns the strategies the catalog has variants for
func (c *VariantCatalog) Strategies() []Strategy {
	var out []Strategy
	for _, s := range AllStrategies() {
		if len(c.variants[s]) > 0 {
			out = append(out, s)
		}
	}
	return out
}

// DefaultCatalog returns the built-in Chartink query variant catalog
func DefaultCatalog() *VariantCatalog {
	return NewVariantCatalog("v2024.3", map[Strategy][]QueryVariant{
		StrategyShortTerm: {
			{
				Category:    "momentum",
				Version:     "v1",
				Name:        "SMA20 Momentum",
				Description: "Close above SMA20 with rising volume",
				Weight:      1.0,
				Query:       "( {cash} ( latest close > latest sma( latest close , 20 ) and latest volume > latest sma( latest volume , 20 ) ) )",
			},
			{
				Category:    "momentum",
				Version:     "v2",
				Name:        "RSI Strength",
				Description: "RSI between 55 and 70 with positive close",
				Weight:      0.8,
				Query:       "( {cash} ( latest rsi( 14 ) > 55 and latest rsi( 14 ) < 70 and latest close > 1 day ago close ) )",
			},
			{
				Category:    "breakout",
				Version:     "v1",
				Name:        "Volume Breakout",
				Description: "Volume at least twice the 20 day average",
				Weight:      1.2,
				Query:       "( {cash} ( latest volume > latest sma( latest volume , 20 ) * 2 and latest close > latest high * 0.98 ) )",
			},
			{
				Category:    "breakout",
				Version:     "v2",
				Name:        "52-Week High Approach",
				Description: "Close within 5% of the 52 week high",
				Weight:      1.0,
				Query:       "( {cash} ( latest close > latest max( 252 , latest high ) * 0.95 ) )",
			},
		},
		StrategySwing: {
			{
				Category:    "momentum",
				Version:     "v1",
				Name:        "Weekly Trend",
				Description: "Weekly close above weekly SMA10",
				Weight:      1.0,
				Query:       "( {cash} ( weekly close > weekly sma( weekly close , 10 ) ) )",
			},
			{
				Category:    "breakout",
				Version:     "v1",
				Name:        "Range Breakout",
				Description: "Close above the prior 20 day high",
				Weight:      1.2,
				Query:       "( {cash} ( latest close > 1 day ago max( 20 , latest high ) ) )",
			},
			{
				Category:    "volume",
				Version:     "v1",
				Name:        "Accumulation",
				Description: "Up days with above average delivery volume",
				Weight:      0.9,
				Query:       "( {cash} ( latest close > 1 day ago close and latest volume > latest sma( latest volume , 50 ) * 1.5 ) )",
			},
		},
		StrategyLongTerm: {
			{
				Category:    "value",
				Version:     "v1",
				Name:        "Undervalued Leaders",
				Description: "Large caps trading below sector P/E",
				Weight:      1.5,
				Query:       "( {cash} ( latest market cap > 20000 and latest pe < 25 and latest pe > 0 ) )",
			},
			{
				Category:    "quality",
				Version:     "v1",
				Name:        "High ROE Compounders",
				Description: "Consistent return on equity above 15%",
				Weight:      1.3,
				Query:       "( {cash} ( latest roe > 15 and latest debt to equity < 1 ) )",
			},
			{
				Category:    "fundamental",
				Version:     "v1",
				Name:        "Earnings Growth",
				Description: "Positive quarterly and annual earnings growth",
				Weight:      1.2,
				Query:       "( {cash} ( latest eps growth > 0 and latest annual eps growth > 10 ) )",
			},
			{
				Category:    "momentum",
				Version:     "v1",
				Name:        "Above SMA200",
				Description: "Long-term uptrend filter",
				Weight:      0.8,
				Query:       "( {cash} ( latest close > latest sma( latest close , 200 ) ) )",
			},
		},
	})
}
