package routes

import (
	"provisioner/internal/handlers"
	"provisioner/internal/services"
	"provisioner/pkg/logger"

	"github.com/gin-gonic/gin"
)

func InitSpeechRoutes(router gin.IRoutes, speechService services.SpeechServiceMethods, log *logger.Logger) {
	handlers := handlers.NewSpeechHandler(speechService, log)
	router.POST("/speak", handlers.Speak)
}
