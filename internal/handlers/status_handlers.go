package handlers

import (
	"net/http"

	"provisioner/internal/services"
	"provisioner/pkg/logger"

	"github.com/gin-gonic/gin"
)

type StatusHandler struct {
	statusService services.StatusServiceMethods
	logger        *logger.Logger
}

func NewStatusHandler(statusService services.StatusServiceMethods, log *logger.Logger) *StatusHandler {
	return &StatusHandler{statusService: statusService, logger: orDefault(log)}
}

func (h *StatusHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, h.statusService.Status())
}

// RootHead answers platform health checks that probe the root with HEAD.
func (h *StatusHandler) RootHead(c *gin.Context) {
	c.Status(http.StatusOK)
}

func (h *StatusHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *StatusHandler) FFmpeg(c *gin.Context) {
	info, err := h.statusService.FFmpeg(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to probe ffmpeg")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to probe ffmpeg"})
		return
	}

	resp := FFmpegResponse{FFmpegFound: info.Found}
	if info.Found {
		path := info.Path
		resp.Path = &path
		resp.VersionLine = info.VersionLine
	}
	c.JSON(http.StatusOK, resp)
}

func orDefault(log *logger.Logger) *logger.Logger {
	if log == nil {
		return logger.Default()
	}
	return log
}
