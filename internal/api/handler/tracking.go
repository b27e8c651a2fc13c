package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tobyn/brandlens/internal/service"
)

// TrackingHandler handles session lifecycle endpoints.
type TrackingHandler struct {
	tracking *service.TrackingService
}

// NewTrackingHandler creates a new tracking handler.
func NewTrackingHandler(tracking *service.TrackingService) *TrackingHandler {
	return &TrackingHandler{
		tracking: tracking,
	}
}

// StartTracking handles POST /api/v1/tracking/start.
func (h *TrackingHandler) StartTracking(c *gin.Context) {
	var input service.StartTrackingInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body: " + err.Error(),
		})
		return
	}

	result, err := h.tracking.StartTracking(c.Request.Context(), &input)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to start tracking: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, result)
}

// GetStatus handles GET /api/v1/tracking/:id/status.
func (h *TrackingHandler) GetStatus(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Session ID is required",
		})
		return
	}

	status, err := h.tracking.GetSessionStatus(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Session not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get session status: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, status)
}

// StopTracking handles DELETE /api/v1/tracking/:id.
func (h *TrackingHandler) StopTracking(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Session ID is required",
		})
		return
	}

	session, err := h.tracking.StopTracking(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Session not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to stop tracking: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session_id": session.ID,
		"status":     session.Status,
	})
}
