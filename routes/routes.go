package routes

import (
	"github.com/gin-gonic/gin"

	"stock_recommendation_backend/controllers"
	"stock_recommendation_backend/middleware"
	"stock_recommendation_backend/services"
)

// SetupRoutes sets up all API routes
func SetupRoutes(router *gin.Engine) {
	recommendationController := controllers.NewRecommendationController(services.GlobalRecommendationService)

	// API v1 group
	api := router.Group("/api/v1")
	{
		recommendations := api.Group("/recommendations")
		{
			recommendations.GET("", middleware.RefreshRateLimitMiddleware(), recommendationController.GetRecommendations)
			recommendations.GET("/strategies", recommendationController.GetStrategies)
			recommendations.GET("/variants", recommendationController.GetVariants)
			recommendations.GET("/history", recommendationController.GetHistory)
			recommendations.GET("/history/:execution_id", recommendationController.GetHistoryRun)
			recommendations.GET("/cron-runs", recommendationController.GetCronRuns)
		}
	}

	// WebSocket stream of freshly generated batches
	router.GET("/ws/recommendations", recommendationController.StreamRecommendations)
}
