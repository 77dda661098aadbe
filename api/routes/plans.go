package routes

import (
	"provisioner/internal/handlers"
	"provisioner/internal/services"
	"provisioner/pkg/logger"

	"github.com/gin-gonic/gin"
)

func InitPlanRoutes(router *gin.RouterGroup, planService services.PlanServiceMethods, log *logger.Logger) {
	handlers := handlers.NewPlanHandler(planService, log)

	planRoutes := router.Group("/plans")
	{
		planRoutes.GET("", handlers.ListPlans)
		planRoutes.GET("/:name", handlers.GetPlan)
	}
}
