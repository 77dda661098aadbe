package handlers

import (
	"errors"
	"net/http"

	"provisioner/internal/services"
	perrors "provisioner/pkg/errors"
	"provisioner/pkg/logger"

	"github.com/gin-gonic/gin"
)

type SpeechHandler struct {
	speechService services.SpeechServiceMethods
	logger        *logger.Logger
}

func NewSpeechHandler(speechService services.SpeechServiceMethods, log *logger.Logger) *SpeechHandler {
	return &SpeechHandler{speechService: speechService, logger: orDefault(log)}
}

func (h *SpeechHandler) Speak(c *gin.Context) {
	var req services.SpeakRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	audio, err := h.speechService.Speak(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, perrors.ErrInvalidSpeech):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, perrors.ErrUpstream):
			h.logger.WithError(err).Warn("Speech upstream failed")
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		default:
			h.logger.WithError(err).Error("Failed to synthesise speech")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to synthesise speech"})
		}
		return
	}

	c.Data(http.StatusOK, audio.ContentType, audio.Data)
}
