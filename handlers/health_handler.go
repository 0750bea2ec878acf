package handlers

import (
	"context"
	"net/http"

	"github.com/coshare/coshare-backend/types"
	"github.com/gin-gonic/gin"
)

// HealthChecker is implemented by services.HealthService.
type HealthChecker interface {
	CheckHealth(ctx context.Context) types.HealthCheck
}

type HealthHandler struct {
	checker HealthChecker
}

func NewHealthHandler(checker HealthChecker) *HealthHandler {
	return &HealthHandler{checker: checker}
}

// LivenessCheck only reports that the process is serving requests.
func (h *HealthHandler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": types.HealthStatusUp})
}

// ReadinessCheck fails only when a critical component is down.
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	health := h.checker.CheckHealth(c.Request.Context())
	c.JSON(readinessStatusCode(health.Status), health)
}

// DetailedHealth always answers 200 with the per-component report.
func (h *HealthHandler) DetailedHealth(c *gin.Context) {
	c.JSON(http.StatusOK, h.checker.CheckHealth(c.Request.Context()))
}

func readinessStatusCode(status types.HealthStatus) int {
	if status == types.HealthStatusDown {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}
