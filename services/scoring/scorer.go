package scoring

import (
	"math"
)

// FundamentalAttrs is the fundamental/technical snapshot available for a
// stock. Fields are pointers: a nil field is simply absent and contributes
// zero to every sub-score without flagging degradation.
type FundamentalAttrs struct {
	PERatio            *float64 `json:"pe_ratio"`
	PBRatio            *float64 `json:"pb_ratio"`
	ROE                *float64 `json:"roe"`            // percent
	DebtToEquity       *float64 `json:"debt_to_equity"` // percent
	RevenueGrowth      *float64 `json:"revenue_growth"` // percent
	EarningsGrowth     *float64 `json:"earnings_growth"`
	ForwardPE          *float64 `json:"forward_pe"`
	TrailingPE         *float64 `json:"trailing_pe"`
	RecommendationMean *float64 `json:"recommendation_mean"`
	MarketCap          *float64 `json:"market_cap"`
	Beta               *float64 `json:"beta"`
	ProfitMargin       *float64 `json:"profit_margin"` // fraction, 0.15 = 15%
	CurrentRatio       *float64 `json:"current_ratio"`
}

// PricePoint is one period of price history, oldest first
type PricePoint struct {
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
}

// ScoreResult carries a bounded sub-score plus a degradation flag. Degraded
// means a sub-metric input was present but malformed and was recovered as a
// zero contribution, so callers and tests can observe partial scores.
type ScoreResult struct {
	Score    float64
	Degraded bool
}

// Scorer computes category sub-scores from stock attributes
type Scorer struct {
	cfg ScoringConfig
}

// NewScorer creates a scorer with the given configuration
func NewScorer(cfg ScoringConfig) *Scorer {
	return &Scorer{cfg: cfg}
}

// Config returns the scorer's configuration
func (s *Scorer) Config() ScoringConfig {
	return s.cfg
}

// ScoreFundamental scores valuation quality from P/E, P/B, ROE and
// debt-to-equity. Each sub-metric contributes up to 25 points.
func (s *Scorer) ScoreFundamental(attrs FundamentalAttrs) ScoreResult {
	var score float64
	degraded := false

	// P/E distance below ceiling; only meaningful for positive ratios
	if pe, ok, bad := usable(attrs.PERatio); ok {
		if pe > 0 && pe < s.cfg.PECeiling {
			score += s.cfg.FundamentalPE * (s.cfg.PECeiling - pe) / s.cfg.PECeiling
		}
	} else if bad {
		degraded = true
	}

	if pb, ok, bad := usable(attrs.PBRatio); ok {
		if pb > 0 && pb < s.cfg.PBCeiling {
			score += s.cfg.FundamentalPB * (s.cfg.PBCeiling - pb) / s.cfg.PBCeiling
		}
	} else if bad {
		degraded = true
	}

	if roe, ok, bad := usable(attrs.ROE); ok {
		if roe >= s.cfg.ROEFloor {
			score += scaled(roe-s.cfg.ROEFloor, s.cfg.ROEFullAt-s.cfg.ROEFloor, s.cfg.FundamentalROE)
		}
	} else if bad {
		degraded = true
	}

	if de, ok, bad := usable(attrs.DebtToEquity); ok {
		if de >= 0 && de < s.cfg.DECeiling {
			score += s.cfg.FundamentalDE * (s.cfg.DECeiling - de) / s.cfg.DECeiling
		}
	} else if bad {
		degraded = true
	}

	return ScoreResult{Score: clamp(score), Degraded: degraded}
}

// ScoreGrowth scores growth prospects from revenue/earnings growth, P/E
// improvement and analyst consensus
func (s *Scorer) ScoreGrowth(attrs FundamentalAttrs) ScoreResult {
	var score float64
	degraded := false

	if rg, ok, bad := usable(attrs.RevenueGrowth); ok {
		if rg > s.cfg.RevenueGrowthFloor {
			score += scaled(rg, s.cfg.RevenueGrowthFullAt, s.cfg.GrowthRevenuePts)
		}
	} else if bad {
		degraded = true
	}

	if eg, ok, bad := usable(attrs.EarningsGrowth); ok {
		if eg > 0 {
			score += scaled(eg, s.cfg.EarningsGrowthFullAt, s.cfg.GrowthEarningsPts)
		}
	} else if bad {
		degraded = true
	}

	// Forward P/E below trailing P/E signals expected earnings improvement
	fwd, fwdOK, fwdBad := usable(attrs.ForwardPE)
	trl, trlOK, trlBad := usable(attrs.TrailingPE)
	if fwdBad || trlBad {
		degraded = true
	}
	if fwdOK && trlOK && fwd > 0 && trl > 0 && fwd < trl {
		improvement := (trl - fwd) / trl
		score += scaled(improvement, s.cfg.PEImprovementFullAt, s.cfg.GrowthPEPts)
	}

	if rec, ok, bad := usable(attrs.RecommendationMean); ok {
		if rec > 0 && rec <= s.cfg.RecommendationCeiling {
			span := s.cfg.RecommendationCeiling - s.cfg.RecommendationBest
			score += scaled(s.cfg.RecommendationCeiling-rec, span, s.cfg.GrowthRecommendationPts)
		}
	} else if bad {
		degraded = true
	}

	return ScoreResult{Score: clamp(score), Degraded: degraded}
}

// ScoreQuality scores business quality from market cap tier, beta stability,
// profit margin and liquidity
func (s *Scorer) ScoreQuality(attrs FundamentalAttrs) ScoreResult {
	var score float64
	degraded := false

	if cap, ok, bad := usable(attrs.MarketCap); ok {
		if cap >= s.cfg.MinMarketCap {
			switch {
			case cap >= s.cfg.MegaCapThreshold:
				score += s.cfg.MegaCapPts
			case cap >= s.cfg.LargeCapThreshold:
				score += s.cfg.LargeCapPts
			case cap >= s.cfg.MidCapThreshold:
				score += s.cfg.MidCapPts
			default:
				score += s.cfg.SmallCapPts
			}
		}
	} else if bad {
		degraded = true
	}

	if beta, ok, bad := usable(attrs.Beta); ok {
		dist := math.Abs(beta - 1.0)
		if dist <= s.cfg.BetaBand {
			score += s.cfg.QualityBetaPts * (1 - dist/s.cfg.BetaBand)
		}
	} else if bad {
		degraded = true
	}

	if margin, ok, bad := usable(attrs.ProfitMargin); ok {
		if margin > 0 {
			score += scaled(margin, s.cfg.ProfitMarginFullAt, s.cfg.QualityMarginPts)
		}
	} else if bad {
		degraded = true
	}

	if cr, ok, bad := usable(attrs.CurrentRatio); ok {
		if cr > s.cfg.CurrentRatioFloor {
			span := s.cfg.CurrentRatioFullAt - s.cfg.CurrentRatioFloor
			score += scaled(cr-s.cfg.CurrentRatioFloor, span, s.cfg.QualityCurrentRatioPts)
		}
	} else if bad {
		degraded = true
	}

	return ScoreResult{Score: clamp(score), Degraded: degraded}
}

// ScoreTechnical scores trend and volume structure from price history,
// oldest point first. Fewer than MinHistoryPeriods periods scores zero.
func (s *Scorer) ScoreTechnical(history []PricePoint) ScoreResult {
	if len(history) < s.cfg.MinHistoryPeriods {
		return ScoreResult{}
	}

	var score float64
	degraded := false

	last := history[len(history)-1]
	price := last.Close
	if !validPrice(price) {
		return ScoreResult{Degraded: true}
	}

	// Long moving average position
	ma, ok := meanClose(history[len(history)-s.cfg.LongMAPeriod:])
	if !ok {
		degraded = true
	} else if price > ma {
		score += s.cfg.AboveMAPts
		if price > ma*(1+s.cfg.AboveMABonusAt) {
			score += s.cfg.AboveMABonusPts
		}
	}

	// Momentum against the close N periods back
	refIdx := len(history) - 1 - s.cfg.MomentumLookback
	ref := history[refIdx].Close
	if !validPrice(ref) {
		degraded = true
	} else if price > ref {
		momentum := (price - ref) / ref
		score += scaled(momentum, s.cfg.MomentumFullAt, s.cfg.TechnicalMomentumPts)
	}

	// Recent volume versus the window before it
	w := s.cfg.VolumeTrendWindow
	recent := avgVolume(history[len(history)-w:])
	prior := avgVolume(history[len(history)-2*w : len(history)-w])
	if prior > 0 && recent > prior {
		score += scaled((recent-prior)/prior, s.cfg.VolumeTrendFullAt, s.cfg.TechnicalVolumePts)
	}

	// Proximity to the recent high
	high, ok := maxClose(history[len(history)-s.cfg.HighLookback:])
	if !ok {
		degraded = true
	} else if high > 0 {
		switch {
		case price >= high*(1-s.cfg.NearHighPct):
			score += s.cfg.NearHighPts
		case price >= high*(1-s.cfg.ApproachingHighPct):
			score += s.cfg.ApproachingHighPts
		}
	}

	return ScoreResult{Score: clamp(score), Degraded: degraded}
}

// usable reports whether a pointer metric is present and finite.
// Returns (value, usable, malformed).
func usable(v *float64) (float64, bool, bool) {
	if v == nil {
		return 0, false, false
	}
	if math.IsNaN(*v) || math.IsInf(*v, 0) {
		return 0, false, true
	}
	return *v, true, false
}

// scaled maps value linearly onto [0, maxPts], saturating at fullAt
func scaled(value, fullAt, maxPts float64) float64 {
	if fullAt <= 0 || value <= 0 {
		return 0
	}
	if value >= fullAt {
		return maxPts
	}
	return maxPts * value / fullAt
}

// clamp bounds a score to [0, 100]
func clamp(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func validPrice(p float64) bool {
	return p > 0 && !math.IsNaN(p) && !math.IsInf(p, 0)
}

func meanClose(points []PricePoint) (float64, bool) {
	if len(points) == 0 {
		return 0, false
	}
	var sum float64
	for _, p := range points {
		if !validPrice(p.Close) {
			return 0, false
		}
		sum += p.Close
	}
	return sum / float64(len(points)), true
}

func maxClose(points []PricePoint) (float64, bool) {
	if len(points) == 0 {
		return 0, false
	}
	max := points[0].Close
	for _, p := range points[1:] {
		if p.Close > max {
			max = p.Close
		}
	}
	if !validPrice(max) {
		return 0, false
	}
	return max, true
}

func avgVolume(points []PricePoint) float64 {
	if len(points) == 0 {
		return 0
	}
	var sum int64
	for _, p := range points {
		if p.Volume > 0 {
			sum += p.Volume
		}
	}
	return float64(sum) / float64(len(points))
}
