package handlers

import (
	"net/http"
	"time"

	apperrors "github.com/coshare/coshare-backend/errors"
	"github.com/coshare/coshare-backend/services"
	"github.com/coshare/coshare-backend/types"
	"github.com/gin-gonic/gin"
)

// AnalyticsHandler exposes the group analytics over HTTP.
type AnalyticsHandler struct {
	analyticsService services.AnalyticsServiceInterface
}

func NewAnalyticsHandler(analyticsService services.AnalyticsServiceInterface) *AnalyticsHandler {
	return &AnalyticsHandler{
		analyticsService: analyticsService,
	}
}

// GetFairnessHandler returns the fairness report for a group.
// GET /v1/groups/:groupId/analytics/fairness?start=&end=
func (h *AnalyticsHandler) GetFairnessHandler(c *gin.Context) {
	groupID := c.Param("groupId")

	start, ok := parseTimeQuery(c, "start")
	if !ok {
		return
	}
	end, ok := parseTimeQuery(c, "end")
	if !ok {
		return
	}

	outcome, err := h.analyticsService.GetFairness(c.Request.Context(), groupID, start, end)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, outcome)
}

// SuggestBookingsHandler ranks open booking slots for the requester.
// POST /v1/groups/:groupId/analytics/booking-suggestions
func (h *AnalyticsHandler) SuggestBookingsHandler(c *gin.Context) {
	groupID := c.Param("groupId")

	var req types.BookingSuggestionRequest
	if !bindJSONOrError(c, &req) {
		return
	}

	outcome, err := h.analyticsService.SuggestBookings(c.Request.Context(), groupID, req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, outcome)
}

// ForecastUsageHandler returns the 30 day usage forecast.
// GET /v1/groups/:groupId/analytics/usage-forecast
func (h *AnalyticsHandler) ForecastUsageHandler(c *gin.Context) {
	outcome, err := h.analyticsService.ForecastUsage(c.Request.Context(), c.Param("groupId"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, outcome)
}

// OptimizeCostsHandler returns the cost optimization report.
// GET /v1/groups/:groupId/analytics/cost-optimization
func (h *AnalyticsHandler) OptimizeCostsHandler(c *gin.Context) {
	outcome, err := h.analyticsService.OptimizeCosts(c.Request.Context(), c.Param("groupId"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, outcome)
}

func bindJSONOrError(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		_ = c.Error(apperrors.ValidationFailed("invalid_request_payload", err.Error()))
		return false
	}
	return true
}

// parseTimeQuery accepts RFC 3339 timestamps or plain dates. A missing
// parameter yields nil.
func parseTimeQuery(c *gin.Context, name string) (*time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, true
		}
	}
	_ = c.Error(apperrors.ValidationFailed("invalid_query_parameter", name+" must be an RFC 3339 timestamp or YYYY-MM-DD date"))
	return nil, false
}
