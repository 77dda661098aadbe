package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"provisioner/internal/dao"
	"provisioner/internal/models"
	"provisioner/internal/services"
	perrors "provisioner/pkg/errors"
	"provisioner/pkg/logger"

	"github.com/gin-gonic/gin"
)

type RunHandler struct {
	runService services.RunServiceMethods
	logger     *logger.Logger
}

func NewRunHandler(runService services.RunServiceMethods, log *logger.Logger) *RunHandler {
	return &RunHandler{runService: runService, logger: orDefault(log)}
}

func (h *RunHandler) ListRuns(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid page parameter"})
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit parameter"})
		return
	}

	page, limit = dao.NormalizePage(page, limit)

	runs, total, err := h.runService.ListRuns(page, limit)
	if err != nil {
		if errors.Is(err, perrors.ErrHistoryDisabled) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Run history is disabled"})
			return
		}
		h.logger.WithError(err).Error("Failed to list runs")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list runs"})
		return
	}
	if runs == nil {
		runs = []models.Run{}
	}

	c.JSON(http.StatusOK, RunListResponse{Runs: runs, Total: total, Page: page, Limit: limit})
}

func (h *RunHandler) GetRunByUUID(c *gin.Context) {
	runID := c.Param("id")
	run, err := h.runService.GetRunByUUID(runID)
	if err != nil {
		switch {
		case errors.Is(err, perrors.ErrRunNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Run not found"})
		case errors.Is(err, perrors.ErrHistoryDisabled):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Run history is disabled"})
		default:
			h.logger.WithError(err).WithField("run_id", runID).Error("Failed to get run")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get run"})
		}
		return
	}
	c.JSON(http.StatusOK, run)
}
