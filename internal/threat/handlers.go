package threat

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Fakih-Hamid/Game-Security-API-mini-project/internal/telemetry"
)

// Handler provides the security assessment endpoints.
type Handler struct {
	service *Service
}

// NewHandler creates a new threat handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes sets up the security routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/player-risk/:id", h.PlayerRisk)
	r.POST("/report", h.Report)
	r.GET("/dashboard", h.Dashboard)
}

// PlayerRisk handles GET /api/security/player-risk/:id
func (h *Handler) PlayerRisk(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id must be a positive integer"})
		return
	}

	assessment, err := h.service.PlayerRisk(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, telemetry.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("Player %d not found", id)})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, assessment)
}

// Report handles POST /api/security/report
func (h *Handler) Report(c *gin.Context) {
	var req ReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	event, err := h.service.Report(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, ErrPlayerRequired), errors.Is(err, ErrValidation):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, telemetry.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("Player %d not found", req.PlayerID)})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"event": event})
}

// Dashboard handles GET /api/security/dashboard
func (h *Handler) Dashboard(c *gin.Context) {
	summary, err := h.service.Dashboard(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, summary)
}
