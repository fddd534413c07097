package api

import (
	"github.com/gin-gonic/gin"

	"github.com/helios-bi/foresight-go/internal/api/handlers"
)

// SetupRoutes wires the HTTP surface onto the router.
func SetupRoutes(router *gin.Engine, forecastHandler *handlers.ForecastHandler, healthHandler *handlers.HealthHandler) {
	router.GET("/health", healthHandler.HealthCheck)

	v1 := router.Group("/api/v1")
	{
		forecast := v1.Group("/forecast")
		{
			forecast.POST("", forecastHandler.CreateForecast)
			forecast.GET("/domains", forecastHandler.ListDomains)
		}
	}
}
