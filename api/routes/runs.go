package routes

import (
	"provisioner/internal/handlers"
	"provisioner/internal/services"
	"provisioner/pkg/logger"

	"github.com/gin-gonic/gin"
)

func InitRunRoutes(router *gin.RouterGroup, runService services.RunServiceMethods, log *logger.Logger) {
	handlers := handlers.NewRunHandler(runService, log)

	runRoutes := router.Group("/runs")
	{
		runRoutes.GET("", handlers.ListRuns)
		runRoutes.GET("/:id", handlers.GetRunByUUID)
	}
}
