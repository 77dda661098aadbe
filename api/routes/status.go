package routes

import (
	"provisioner/internal/handlers"
	"provisioner/internal/services"
	"provisioner/pkg/logger"

	"github.com/gin-gonic/gin"
)

func InitStatusRoutes(router gin.IRoutes, statusService services.StatusServiceMethods, log *logger.Logger) {
	handlers := handlers.NewStatusHandler(statusService, log)

	router.GET("/", handlers.Root)
	router.HEAD("/", handlers.RootHead)
	router.GET("/health", handlers.Health)
	router.GET("/ffmpeg", handlers.FFmpeg)
}
