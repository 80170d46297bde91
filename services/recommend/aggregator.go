package recommend

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"stock_recommendation_backend/models"
	"stock_recommendation_backend/services/chartink"
	"stock_recommendation_backend/services/scoring"
)

// DefaultTopN is used when the caller does not bound the result list
const DefaultTopN = 10

// AttrsProvider supplies per-symbol fundamental snapshots and price history
// for the informational sub-scores. Both lookups are best-effort: a missing
// symbol simply leaves that sub-score at zero.
type AttrsProvider interface {
	Fundamentals(symbol string) (scoring.FundamentalAttrs, bool)
	History(symbol string) ([]scoring.PricePoint, bool)
}

// Params are the inputs to a single aggregation run
type Params struct {
	Strategy      models.Strategy
	LimitPerQuery int     // 0 uses the strategy default
	TopN          int     // 0 uses DefaultTopN
	MinScore      float64 // inclusive threshold on the final score
}

// Aggregator runs the configured query variants for a strategy and merges
// their results into a ranked, deduplicated recommendation list. All fields
// are set at construction and never mutated, so concurrent runs are safe.
type Aggregator struct {
	client  chartink.ScreenerClient
	catalog *models.VariantCatalog
	scorer  *scoring.Scorer
	attrs   AttrsProvider // may be nil
}

// NewAggregator creates an aggregator over a screener client and catalog.
// attrs may be nil when no fundamental snapshot source is configured.
func NewAggregator(client chartink.ScreenerClient, catalog *models.VariantCatalog, cfg scoring.ScoringConfig, attrs AttrsProvider) *Aggregator {
	return &Aggregator{
		client:  client,
		catalog: catalog,
		scorer:  scoring.NewScorer(cfg),
		attrs:   attrs,
	}
}

// Catalog returns the aggregator's variant catalog
func (a *Aggregator) Catalog() *models.VariantCatalog {
	return a.catalog
}

// candidate accumulates per-symbol state while variants are reduced
type candidate struct {
	row         models.RawStockRow // first-seen display fields
	baseScore   float64
	appearances int
	categories  map[string]bool
}

// RunAggregation executes every variant configured for the strategy, merges
// and dedupes the rows, and returns a ranked batch.
//
// Per-variant failures are logged and skipped: partial results are acceptable
// and zero rows overall produces an empty batch, not an error. The only fatal
// condition is a catalog with no variants for the strategy.
func (a *Aggregator) RunAggregation(ctx context.Context, params Params) (*models.RecommendationBatch, error) {
	variants, err := a.catalog.VariantsFor(params.Strategy)
	if err != nil {
		return nil, err
	}

	limit := params.LimitPerQuery
	if limit <= 0 {
		limit = params.Strategy.DefaultLimitPerQuery()
	}
	topN := params.TopN
	if topN <= 0 {
		topN = DefaultTopN
	}

	// Fetch all variants concurrently, then reduce strictly in catalog order
	// below. First-seen-wins display fields and the deterministic tie-break
	// depend on that reduction order, not on fetch completion order.
	type variantResult struct {
		rows []models.RawStockRow
		err  error
	}
	results := make([]variantResult, len(variants))
	var wg sync.WaitGroup
	for i, v := range variants {
		wg.Add(1)
		go func(i int, v models.QueryVariant) {
			defer wg.Done()
			rows, err := a.client.RunQuery(ctx, v.Query, limit)
			results[i] = variantResult{rows: rows, err: err}
		}(i, v)
	}
	wg.Wait()

	candidates := make(map[string]*candidate)
	for i, v := range variants {
		res := results[i]
		if res.err != nil {
			log.Printf("Variant %s (%s) fetch failed, continuing without it: %v", v.Key(), params.Strategy, res.err)
			continue
		}
		if len(res.rows) == 0 {
			log.Printf("Variant %s (%s) returned no rows", v.Key(), params.Strategy)
			continue
		}

		for _, row := range res.rows {
			c, ok := candidates[row.Symbol]
			if !ok {
				c = &candidate{
					row:        row, // later variants never overwrite display fields
					categories: make(map[string]bool),
				}
				candidates[row.Symbol] = c
			}
			c.baseScore += v.Weight
			c.appearances++
			c.categories[v.Category] = true
		}
	}

	cfg := a.scorer.Config()
	scored := make([]models.ScoredCandidate, 0, len(candidates))
	for symbol, c := range candidates {
		final := c.baseScore +
			cfg.AppearanceBonus*float64(c.appearances) +
			cfg.CategoryBonus*float64(len(c.categories))
		if final < params.MinScore {
			continue
		}

		categories := make([]string, 0, len(c.categories))
		for cat := range c.categories {
			categories = append(categories, cat)
		}
		sort.Strings(categories)

		sc := models.ScoredCandidate{
			Symbol:       symbol,
			Name:         c.row.Name,
			Price:        c.row.Close,
			BaseScore:    c.baseScore,
			OverallScore: clampScore(final),
			Categories:   categories,
			Appearances:  c.appearances,
		}
		a.applySubScores(&sc)
		scored = append(scored, sc)
	}

	// Score descending, symbol ascending on ties, for run-to-run determinism
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].OverallScore != scored[j].OverallScore {
			return scored[i].OverallScore > scored[j].OverallScore
		}
		return scored[i].Symbol < scored[j].Symbol
	})

	if len(scored) > topN {
		scored = scored[:topN]
	}
	for i := range scored {
		scored[i].Rank = i + 1
	}

	return &models.RecommendationBatch{
		GeneratedAt:     time.Now(),
		Strategy:        params.Strategy,
		Recommendations: scored,
		TotalCount:      len(scored),
	}, nil
}

// applySubScores fills the informational category sub-scores when an
// attribute source is configured
func (a *Aggregator) applySubScores(sc *models.ScoredCandidate) {
	if a.attrs == nil {
		return
	}
	if attrs, ok := a.attrs.Fundamentals(sc.Symbol); ok {
		fund := a.scorer.ScoreFundamental(attrs)
		growth := a.scorer.ScoreGrowth(attrs)
		quality := a.scorer.ScoreQuality(attrs)
		sc.FundamentalScore = fund.Score
		sc.GrowthScore = growth.Score
		sc.QualityScore = quality.Score
		if fund.Degraded || growth.Degraded || quality.Degraded {
			log.Printf("Degraded fundamental scoring for %s, partial sub-scores kept", sc.Symbol)
		}
	}
	if history, ok := a.attrs.History(sc.Symbol); ok {
		tech := a.scorer.ScoreTechnical(history)
		sc.TechnicalScore = tech.Score
		if tech.Degraded {
			log.Printf("Degraded technical scoring for %s, partial sub-score kept", sc.Symbol)
		}
	}
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
