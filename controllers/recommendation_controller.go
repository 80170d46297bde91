package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"stock_recommendation_backend/models"
	"stock_recommendation_backend/services"
	"stock_recommendation_backend/services/recommend"
)

// RecommendationController handles recommendation API requests
type RecommendationController struct {
	service *services.RecommendationService
}

// NewRecommendationController creates a new recommendation controller
func NewRecommendationController(service *services.RecommendationService) *RecommendationController {
	return &RecommendationController{service: service}
}

// GetRecommendations returns a ranked recommendation batch
// GET /api/v1/recommendations?strategy=&limit_per_query=&min_score=&top_n=&force_refresh=
func (rc *RecommendationController) GetRecommendations(c *gin.Context) {
	strategy, ok := models.ParseStrategy(c.DefaultQuery("strategy", string(models.StrategyShortTerm)))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "unknown strategy, expected one of shortterm, swing, longterm",
		})
		return
	}

	params := recommend.Params{Strategy: strategy}

	if raw := c.Query("limit_per_query"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit_per_query must be a positive integer"})
			return
		}
		params.LimitPerQuery = v
	}
	if raw := c.Query("top_n"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "top_n must be a positive integer"})
			return
		}
		params.TopN = v
	}
	if raw := c.Query("min_score"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "min_score must be a non-negative number"})
			return
		}
		params.MinScore = v
	}
	forceRefresh := c.Query("force_refresh") == "true"

	batch, cached, err := rc.service.GetRecommendations(c.Request.Context(), params, forceRefresh)
	if err != nil {
		if errors.Is(err, models.ErrCatalogNotFound) {
			// Misconfiguration, not an empty result
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":  "system misconfigured",
				"detail": err.Error(),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	status := "ok"
	if batch.TotalCount == 0 {
		status = "no_data"
	}

	c.JSON(http.StatusOK, gin.H{
		"status": status,
		"cached": cached,
		"data":   batch,
	})
}

// GetStrategies lists the supported strategies with their defaults
// GET /api/v1/recommendations/strategies
func (rc *RecommendationController) GetStrategies(c *gin.Context) {
	catalog := rc.service.Catalog()

	var out []gin.H
	for _, s := range catalog.Strategies() {
		variants, err := catalog.VariantsFor(s)
		if err != nil {
			continue
		}
		out = append(out, gin.H{
			"strategy":                s,
			"default_limit_per_query": s.DefaultLimitPerQuery(),
			"variant_count":           len(variants),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"data":            out,
		"catalog_version": catalog.Version(),
	})
}

// GetVariants lists the query variant catalog for a strategy
// GET /api/v1/recommendations/variants?strategy=
func (rc *RecommendationController) GetVariants(c *gin.Context) {
	strategy, ok := models.ParseStrategy(c.DefaultQuery("strategy", string(models.StrategyShortTerm)))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown strategy"})
		return
	}

	variants, err := rc.service.Catalog().VariantsFor(strategy)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":  "system misconfigured",
			"detail": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"strategy": strategy,
		"data":     variants,
	})
}

// GetHistory returns recent persisted runs
// GET /api/v1/recommendations/history?strategy=&limit=
func (rc *RecommendationController) GetHistory(c *gin.Context) {
	if services.GlobalHistoryService == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "history store not available"})
		return
	}

	strategy := c.Query("strategy")
	if strategy != "" {
		if _, ok := models.ParseStrategy(strategy); !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown strategy"})
			return
		}
	}

	limit := 20
	if raw := c.Query("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			limit = v
		}
	}

	runs, err := services.GlobalHistoryService.RecentRuns(strategy, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  runs,
		"total": len(runs),
	})
}

// GetHistoryRun returns the candidate rows of one persisted run
// GET /api/v1/recommendations/history/:execution_id
func (rc *RecommendationController) GetHistoryRun(c *gin.Context) {
	if services.GlobalHistoryService == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "history store not available"})
		return
	}

	executionID := c.Param("execution_id")
	records, err := services.GlobalHistoryService.RecordsForRun(executionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if len(records) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"execution_id": executionID,
		"data":         records,
	})
}

// GetCronRuns returns the recent scheduler execution log
// GET /api/v1/recommendations/cron-runs?limit=
func (rc *RecommendationController) GetCronRuns(c *gin.Context) {
	if services.GlobalMongoClient == nil || !services.GlobalMongoClient.IsConfigured() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "cron tracking store not available"})
		return
	}

	limit := 20
	if raw := c.Query("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			limit = v
		}
	}

	runs, err := services.GlobalMongoClient.RecentCronRuns(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  runs,
		"total": len(runs),
	})
}

// StreamRecommendations upgrades to a WebSocket that receives every newly
// generated batch
// GET /ws/recommendations
func (rc *RecommendationController) StreamRecommendations(c *gin.Context) {
	if services.GlobalBroadcastService == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "broadcast service not available"})
		return
	}
	services.GlobalBroadcastService.HandleWebSocket(c.Writer, c.Request)
}
