package routes

import (
	"provisioner/internal/services"
	"provisioner/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Services are the backends behind the status server. Logger is shared by
// every handler; nil falls back to the package default.
type Services struct {
	Status services.StatusServiceMethods
	Plans  services.PlanServiceMethods
	Runs   services.RunServiceMethods
	Speech services.SpeechServiceMethods
	Logger *logger.Logger
}

func InitRouter(svc Services) *gin.Engine {
	router := gin.Default()

	InitStatusRoutes(router, svc.Status, svc.Logger)
	InitSpeechRoutes(router, svc.Speech, svc.Logger)

	// REST APIs
	api := router.Group("/api")
	{
		InitPlanRoutes(api, svc.Plans, svc.Logger)
		InitRunRoutes(api, svc.Runs, svc.Logger)
	}

	return router
}
