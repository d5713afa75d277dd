package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/yigit/gradebook/internal/app/controllers"
)

// SetupRouter configures all application routes
func SetupRouter(router *gin.Engine, gradingController *controllers.GradingController) {
	// API version group
	v1 := router.Group("/api/v1")

	v1.GET("/health", gradingController.Health)

	offerings := v1.Group("/offerings")
	{
		offerings.GET("", gradingController.ListOfferings)
		offerings.GET("/:id/summary", gradingController.GetSummary)
		offerings.GET("/:id/anomalies", gradingController.GetAnomalies)
		offerings.POST("/:id/publish", gradingController.Publish)
	}
}
