package logscan

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Fakih-Hamid/Game-Security-API-mini-project/internal/metrics"
	"github.com/Fakih-Hamid/Game-Security-API-mini-project/internal/traces"
)

// Broadcaster pushes scan summaries to connected analyst consoles.
type Broadcaster interface {
	BroadcastScanCompleted(result map[string]interface{})
}

// Handler provides the raw log scanning endpoint.
type Handler struct {
	scanner *Scanner
	hub     Broadcaster
}

// NewHandler creates a new logscan handler.
func NewHandler(scanner *Scanner) *Handler {
	return &Handler{scanner: scanner}
}

// WithBroadcaster enables realtime scan summaries.
func (h *Handler) WithBroadcaster(hub Broadcaster) *Handler {
	h.hub = hub
	return h
}

// RegisterRoutes sets up the scan route.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/scan-log", h.ScanLog)
}

type scanRequest struct {
	Entries *[]Row `json:"entries"`
}

// ScanLog handles POST /api/security/scan-log
func (h *Handler) ScanLog(c *gin.Context) {
	var req scanRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Entries == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "entries must be a list"})
		return
	}

	rows := *req.Entries
	_, span := traces.StartSpan(c.Request.Context(), "logscan.Scan", traces.LogRows(len(rows)))
	result := h.scanner.Scan(rows)
	span.End()

	metrics.LogRowsScannedTotal.Add(float64(len(rows)))
	metrics.SuspiciousPlayersTotal.Add(float64(len(result.SuspiciousPlayers)))

	if h.hub != nil {
		h.hub.BroadcastScanCompleted(map[string]interface{}{
			"rows_scanned":       len(rows),
			"suspicious_players": len(result.SuspiciousPlayers),
		})
	}

	c.JSON(http.StatusOK, result)
}
