package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tobyn/brandlens/internal/service"
)

// ResultsHandler handles result and analytics endpoints.
type ResultsHandler struct {
	tracking  *service.TrackingService
	analytics *service.AnalyticsService
}

// NewResultsHandler creates a new results handler.
func NewResultsHandler(tracking *service.TrackingService, analytics *service.AnalyticsService) *ResultsHandler {
	return &ResultsHandler{
		tracking:  tracking,
		analytics: analytics,
	}
}

// GetResults handles GET /api/v1/tracking/:id/results.
func (h *ResultsHandler) GetResults(c *gin.Context) {
	id := c.Param("id")

	result, err := h.tracking.GetTrackingResults(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err, "Failed to get tracking results")
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetLeaderboard handles GET /api/v1/tracking/:id/leaderboard.
func (h *ResultsHandler) GetLeaderboard(c *gin.Context) {
	id := c.Param("id")

	leaderboard, err := h.analytics.GetLeaderboard(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err, "Failed to build leaderboard")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session_id":  id,
		"leaderboard": leaderboard,
	})
}

// GetMatrix handles GET /api/v1/tracking/:id/matrix.
func (h *ResultsHandler) GetMatrix(c *gin.Context) {
	id := c.Param("id")

	matrix, err := h.analytics.GetCompetitiveMatrix(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err, "Failed to build competitive matrix")
		return
	}

	c.JSON(http.StatusOK, matrix)
}

func (h *ResultsHandler) writeError(c *gin.Context, err error, message string) {
	if errors.Is(err, service.ErrSessionNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Session not found",
		})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{
		"error": message + ": " + err.Error(),
	})
}
