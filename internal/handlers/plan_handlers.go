package handlers

import (
	"errors"
	"net/http"

	"provisioner/internal/services"
	perrors "provisioner/pkg/errors"
	"provisioner/pkg/logger"

	"github.com/gin-gonic/gin"
)

type PlanHandler struct {
	planService services.PlanServiceMethods
	logger      *logger.Logger
}

func NewPlanHandler(planService services.PlanServiceMethods, log *logger.Logger) *PlanHandler {
	return &PlanHandler{planService: planService, logger: orDefault(log)}
}

func (h *PlanHandler) ListPlans(c *gin.Context) {
	c.JSON(http.StatusOK, h.planService.ListPlans())
}

func (h *PlanHandler) GetPlan(c *gin.Context) {
	name := c.Param("name")
	p, err := h.planService.GetPlan(name)
	if err != nil {
		if errors.Is(err, perrors.ErrPlanNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Plan not found"})
			return
		}
		h.logger.WithError(err).WithField("plan", name).Error("Failed to get plan")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get plan"})
		return
	}
	c.JSON(http.StatusOK, p)
}
