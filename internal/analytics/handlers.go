package analytics

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Fakih-Hamid/Game-Security-API-mini-project/internal/telemetry"
)

// Handler provides the analytics endpoints.
type Handler struct {
	service *Service
}

// NewHandler creates a new analytics handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes sets up the analytics routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/cheat-patterns", h.CheatPatterns)
	r.POST("/detect-anomalies", h.DetectAnomalies)
	r.GET("/stats", h.Stats)
}

// CheatPatterns handles GET /api/analytics/cheat-patterns
func (h *Handler) CheatPatterns(c *gin.Context) {
	patterns, err := h.service.CheatPatterns(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"patterns": patterns, "count": len(patterns)})
}

type detectRequest struct {
	PlayerID int64 `json:"player_id"`
}

// DetectAnomalies handles POST /api/analytics/detect-anomalies
func (h *Handler) DetectAnomalies(c *gin.Context) {
	var req detectRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.PlayerID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "player_id is required"})
		return
	}

	report, err := h.service.DetectAnomalies(c.Request.Context(), req.PlayerID)
	if err != nil {
		if errors.Is(err, telemetry.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("Player %d not found", req.PlayerID)})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, report)
}

// Stats handles GET /api/analytics/stats
func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.service.FleetStats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, stats)
}
