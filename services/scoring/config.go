package scoring

// ScoringConfig holds every weight and threshold used by the per-stock
// scorers and the aggregation bonuses. Constructed once and passed by value;
// never mutated after construction so concurrent runs with different configs
// are safe.
//
// The point splits and bonus constants mirror the long-standing production
// values. They are tunable parameters, not derived quantities.
type ScoringConfig struct {
	// Fundamental sub-scores (25 pts each)
	PECeiling      float64
	PBCeiling      float64
	ROEFloor       float64
	ROEFullAt      float64
	DECeiling      float64
	FundamentalPE  float64
	FundamentalPB  float64
	FundamentalROE float64
	FundamentalDE  float64

	// Growth sub-scores
	RevenueGrowthFloor      float64
	RevenueGrowthFullAt     float64
	GrowthRevenuePts        float64
	EarningsGrowthFullAt    float64
	GrowthEarningsPts       float64
	PEImprovementFullAt     float64
	GrowthPEPts             float64
	RecommendationCeiling   float64
	RecommendationBest      float64
	GrowthRecommendationPts float64

	// Quality sub-scores
	MinMarketCap           float64
	MegaCapThreshold       float64
	LargeCapThreshold      float64
	MidCapThreshold        float64
	MegaCapPts             float64
	LargeCapPts            float64
	MidCapPts              float64
	SmallCapPts            float64
	BetaBand               float64
	QualityBetaPts         float64
	ProfitMarginFullAt     float64
	QualityMarginPts       float64
	CurrentRatioFloor      float64
	CurrentRatioFullAt     float64
	QualityCurrentRatioPts float64

	// Technical sub-scores
	MinHistoryPeriods    int
	LongMAPeriod         int
	AboveMAPts           float64
	AboveMABonusAt       float64
	AboveMABonusPts      float64
	MomentumLookback     int
	MomentumFullAt       float64
	TechnicalMomentumPts float64
	VolumeTrendWindow    int
	VolumeTrendFullAt    float64
	TechnicalVolumePts   float64
	HighLookback         int
	NearHighPct          float64
	NearHighPts          float64
	ApproachingHighPct   float64
	ApproachingHighPts   float64

	// Aggregation bonuses
	AppearanceBonus float64
	CategoryBonus   float64
}

// DefaultScoringConfig returns the production scoring constants
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		PECeiling:      30,
		PBCeiling:      3,
		ROEFloor:       10,
		ROEFullAt:      30,
		DECeiling:      100,
		FundamentalPE:  25,
		FundamentalPB:  25,
		FundamentalROE: 25,
		FundamentalDE:  25,

		RevenueGrowthFloor:      5,
		RevenueGrowthFullAt:     25,
		GrowthRevenuePts:        30,
		EarningsGrowthFullAt:    25,
		GrowthEarningsPts:       30,
		PEImprovementFullAt:     0.25,
		GrowthPEPts:             20,
		RecommendationCeiling:   2.5,
		RecommendationBest:      1.0,
		GrowthRecommendationPts: 20,

		MinMarketCap:           5_000_000_000,
		MegaCapThreshold:       100_000_000_000,
		LargeCapThreshold:      50_000_000_000,
		MidCapThreshold:        20_000_000_000,
		MegaCapPts:             30,
		LargeCapPts:            25,
		MidCapPts:              20,
		SmallCapPts:            15,
		BetaBand:               0.5,
		QualityBetaPts:         20,
		ProfitMarginFullAt:     0.20,
		QualityMarginPts:       25,
		CurrentRatioFloor:      1.2,
		CurrentRatioFullAt:     3.0,
		QualityCurrentRatioPts: 25,

		MinHistoryPeriods:    200,
		LongMAPeriod:         200,
		AboveMAPts:           25,
		AboveMABonusAt:       0.10,
		AboveMABonusPts:      10,
		MomentumLookback:     6,
		MomentumFullAt:       0.10,
		TechnicalMomentumPts: 25,
		VolumeTrendWindow:    10,
		VolumeTrendFullAt:    0.50,
		TechnicalVolumePts:   25,
		HighLookback:         60,
		NearHighPct:          0.10,
		NearHighPts:          25,
		ApproachingHighPct:   0.20,
		ApproachingHighPts:   15,

		AppearanceBonus: 0.1,
		CategoryBonus:   0.2,
	}
}
