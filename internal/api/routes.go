package api

import (
	"github.com/gin-gonic/gin"

	"github.com/retailpulse/retailpulse-go/internal/api/handlers"
)

// SetupRoutes wires the HTTP surface: ingestion, the three analytics
// operations, the cross-product rankings and health.
func SetupRoutes(router *gin.Engine, analytics *handlers.AnalyticsHandler, records *handlers.RecordsHandler, health *handlers.HealthHandler) {
	router.GET("/health", health.HealthCheck)

	v1 := router.Group("/api/v1")
	{
		v1.POST("/records", records.CreateRecords)

		analyticsGroup := v1.Group("/analytics")
		{
			analyticsGroup.GET("/forecast", analytics.GetForecast)
			analyticsGroup.GET("/pricing", analytics.GetPricing)
			analyticsGroup.GET("/trend", analytics.GetTrend)

			rankings := analyticsGroup.Group("/rankings")
			{
				rankings.GET("/forecast", analytics.GetForecastRanking)
				rankings.GET("/trend", analytics.GetTrendRanking)
			}
		}
	}
}
