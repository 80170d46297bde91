package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"stock_recommendation_backend/models"
	"stock_recommendation_backend/services/cache"
	"stock_recommendation_backend/services/recommend"
)

// RecommendationService fronts the aggregation pipeline with the batch
// cache and fans completed batches out to the persistence and broadcast
// collaborators. API handlers and the scheduler both go through it.
type RecommendationService struct {
	aggregator *recommend.Aggregator
	batchCache *cache.BatchCache
}

// Global recommendation service instance
var GlobalRecommendationService *RecommendationService

// InitRecommendationService initializes the global recommendation service
func InitRecommendationService(aggregator *recommend.Aggregator) {
	GlobalRecommendationService = &RecommendationService{
		aggregator: aggregator,
		batchCache: cache.NewBatchCache(),
	}
	log.Println("Recommendation service initialized")
}

// Catalog exposes the variant catalog for the API layer
func (rs *RecommendationService) Catalog() *models.VariantCatalog {
	return rs.aggregator.Catalog()
}

// GetRecommendations returns a batch for the request, cache-first unless
// forceRefresh is set. The boolean reports whether the result was cached.
func (rs *RecommendationService) GetRecommendations(ctx context.Context, params recommend.Params, forceRefresh bool) (*models.RecommendationBatch, bool, error) {
	fp := rs.fingerprint(params)

	if !forceRefresh {
		if batch := rs.batchCache.Get(fp); batch != nil {
			return batch, true, nil
		}
	}

	batch, err := rs.aggregator.RunAggregation(ctx, params)
	if err != nil {
		return nil, false, err
	}

	rs.batchCache.Put(fp, batch, cache.TTLFor(time.Now()))
	return batch, false, nil
}

// GenerateAndPersist runs a fresh aggregation and writes it everywhere:
// cache, Postgres history, MongoDB snapshot, WebSocket broadcast. Used by
// the scheduler. Persistence failures are logged, never fatal: the batch
// itself is still returned to the caller.
func (rs *RecommendationService) GenerateAndPersist(ctx context.Context, params recommend.Params) (string, *models.RecommendationBatch, error) {
	executionID := newExecutionID(params.Strategy)

	batch, err := rs.aggregator.RunAggregation(ctx, params)
	if err != nil {
		return executionID, nil, err
	}

	rs.batchCache.Put(rs.fingerprint(params), batch, cache.TTLFor(time.Now()))

	if GlobalHistoryService != nil {
		if err := GlobalHistoryService.SaveBatch(executionID, batch, params.TopN, params.MinScore); err != nil {
			log.Printf("Failed to persist batch %s to history: %v", executionID, err)
		}
	}

	if GlobalMongoClient != nil && GlobalMongoClient.IsConfigured() {
		if err := GlobalMongoClient.SaveBatchSnapshot(executionID, batch); err != nil {
			log.Printf("Failed to snapshot batch %s to MongoDB: %v", executionID, err)
		}
	}

	if GlobalBroadcastService != nil {
		GlobalBroadcastService.PublishBatch(executionID, batch)
	}

	return executionID, batch, nil
}

// fingerprint computes the cache key for a parameter set, normalizing the
// defaulted fields so equivalent requests share an entry
func (rs *RecommendationService) fingerprint(params recommend.Params) string {
	limit := params.LimitPerQuery
	if limit <= 0 {
		limit = params.Strategy.DefaultLimitPerQuery()
	}
	topN := params.TopN
	if topN <= 0 {
		topN = recommend.DefaultTopN
	}
	return cache.Fingerprint(params.Strategy, rs.aggregator.Catalog().Version(), limit, topN, params.MinScore)
}

// newExecutionID builds a unique id for one pipeline execution
func newExecutionID(strategy models.Strategy) string {
	return fmt.Sprintf("%s-%s-%d", strategy, time.Now().UTC().Format("20060102T150405"), time.Now().UnixNano()%1_000_000)
}
