package models

import (
	"time"
)

// Strategy represents a recommendation horizon
type Strategy string

const (
	StrategyShortTerm Strategy = "shortterm"
	StrategySwing     Strategy = "swing"
	StrategyLongTerm  Strategy = "longterm"
)

// String returns the string representation of Strategy
func (s Strategy) String() string {
	return string(s)
}

// ParseStrategy validates and converts a raw string into a Strategy
func ParseStrategy(raw string) (Strategy, bool) {
	switch Strategy(raw) {
	case StrategyShortTerm, StrategySwing, StrategyLongTerm:
		return Strategy(raw), true
	}
	return "", false
}

// AllStrategies returns every supported strategy
func AllStrategies() []Strategy {
	return []Strategy{StrategyShortTerm, StrategySwing, StrategyLongTerm}
}

// DefaultLimitPerQuery returns the per-query result limit used when the
// caller does not specify one
func (s Strategy) DefaultLimitPerQuery() int {
	switch s {
	case StrategyShortTerm:
		return 50
	case StrategySwing:
		return 40
	case StrategyLongTerm:
		return 30
	}
	return 50
}

// RawStockRow represents a single stock row returned by the screener for
// one query variant. Ephemeral; consumed during aggregation and discarded.
type RawStockRow struct {
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name"`
	Close         float64 `json:"close"`
	PercentChange float64 `json:"percent_change"`
	Volume        int64   `json:"volume"`
}

// ScoredCandidate is one unique symbol accumulated across query variants
// during a single aggregation run
type ScoredCandidate struct {
	Rank             int      `json:"rank"`
	Symbol           string   `json:"symbol"`
	Name             string   `json:"name"`
	Price            float64  `json:"price"`
	FundamentalScore float64  `json:"fundamental_score"`
	GrowthScore      float64  `json:"growth_score"`
	QualityScore     float64  `json:"quality_score"`
	TechnicalScore   float64  `json:"technical_score"`
	OverallScore     float64  `json:"overall_score"`
	BaseScore        float64  `json:"base_score"`
	Categories       []string `json:"categories"`
	Appearances      int      `json:"appearances"`
}

// RecommendationBatch is one complete output of the aggregation pipeline.
// Immutable once created; a new run creates a new batch.
type RecommendationBatch struct {
	GeneratedAt     time.Time         `json:"generated_at"`
	Strategy        Strategy          `json:"strategy"`
	Recommendations []ScoredCandidate `json:"recommendations"`
	TotalCount      int               `json:"total_count"`
}
