package players

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Fakih-Hamid/Game-Security-API-mini-project/internal/telemetry"
)

// Handler provides HTTP endpoints for player behavior profiles.
type Handler struct {
	service *Service
}

// NewHandler creates a new players handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes sets up the player routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/:id/behavior", h.Behavior)
	r.POST("/:id/session", h.RecordSession)
	r.GET("/suspicious", h.Suspicious)
}

// Behavior handles GET /api/players/:id/behavior
func (h *Handler) Behavior(c *gin.Context) {
	id, ok := playerID(c)
	if !ok {
		return
	}

	report, err := h.service.Behavior(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, telemetry.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("Player %d not found", id)})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, report)
}

// RecordSession handles POST /api/players/:id/session
func (h *Handler) RecordSession(c *gin.Context) {
	id, ok := playerID(c)
	if !ok {
		return
	}

	var req SessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	session, findings, err := h.service.RecordSession(c.Request.Context(), id, req)
	if err != nil {
		switch {
		case errors.Is(err, telemetry.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("Player %d not found", id)})
		case errors.Is(err, ErrValidation):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"session":   session,
		"anomalies": findings,
	})
}

// Suspicious handles GET /api/players/suspicious
func (h *Handler) Suspicious(c *gin.Context) {
	threshold := h.service.suspiciousMin
	if raw := c.Query("risk_threshold"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "risk_threshold must be an integer"})
			return
		}
		threshold = parsed
	}

	flagged, err := h.service.Suspicious(c.Request.Context(), threshold)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"risk_threshold": threshold,
		"players":        flagged,
		"count":          len(flagged),
	})
}

// playerID parses the :id param, writing a 400 response on failure.
func playerID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id must be a positive integer"})
		return 0, false
	}
	return id, true
}
