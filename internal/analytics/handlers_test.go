package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Fakih-Hamid/Game-Security-API-mini-project/internal/anomaly"
	"github.com/Fakih-Hamid/Game-Security-API-mini-project/internal/telemetry"
)

type fixture struct {
	players  *telemetry.PlayerMemoryStore
	sessions *telemetry.SessionMemoryStore
	events   *telemetry.EventMemoryStore
	router   *gin.Engine
}

func setup(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := &fixture{
		players:  telemetry.NewPlayerMemoryStore(),
		sessions: telemetry.NewSessionMemoryStore(),
		events:   telemetry.NewEventMemoryStore(),
	}

	service := NewService(f.players, f.sessions, f.events, anomaly.NewDetector())
	handler := NewHandler(service)

	f.router = gin.New()
	handler.RegisterRoutes(f.router.Group("/api/analytics"))
	return f
}

func doJSON(r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCheatPatterns_Ordering(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	require.NoError(t, f.players.Create(ctx, &telemetry.Player{Username: "p1"}))
	now := time.Now()
	for i, eventType := range []string{"aimbot_lock", "aimbot_lock", "speed_hack", "aimbot_lock", "wallhack_trigger", "speed_hack"} {
		require.NoError(t, f.events.Create(ctx, &telemetry.SecurityEvent{
			PlayerID: 1, EventType: eventType, Severity: "medium",
			DetectedAt: now.Add(time.Duration(i) * time.Minute),
		}))
	}

	w := doJSON(f.router, "GET", "/api/analytics/cheat-patterns", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Patterns []telemetry.PatternCount `json:"patterns"`
		Count    int                      `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 3, resp.Count)
	assert.Equal(t, telemetry.PatternCount{Pattern: "aimbot_lock", Occurrences: 3}, resp.Patterns[0])
	assert.Equal(t, telemetry.PatternCount{Pattern: "speed_hack", Occurrences: 2}, resp.Patterns[1])
}

func TestDetectAnomalies_RequiresPlayerID(t *testing.T) {
	f := setup(t)

	for _, body := range []interface{}{map[string]interface{}{}, map[string]interface{}{"player_id": 0}} {
		w := doJSON(f.router, "POST", "/api/analytics/detect-anomalies", body)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	}
}

func TestDetectAnomalies_UnknownPlayer(t *testing.T) {
	f := setup(t)

	w := doJSON(f.router, "POST", "/api/analytics/detect-anomalies", map[string]interface{}{"player_id": 9})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDetectAnomalies_FindsBotPattern(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	require.NoError(t, f.players.Create(ctx, &telemetry.Player{Username: "bot"}))
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		require.NoError(t, f.sessions.Create(ctx, &telemetry.Session{
			PlayerID: 1, DurationMinutes: 30, ActionsPerMinute: 180,
			HeadshotRate: 0.3, ReactionTimeMS: 250,
			RecordedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}

	w := doJSON(f.router, "POST", "/api/analytics/detect-anomalies", map[string]interface{}{"player_id": 1})
	require.Equal(t, http.StatusOK, w.Code)

	var report AnomalyReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, 4, report.SessionsChecked)
	require.Len(t, report.Anomalies, 1)
	assert.Equal(t, anomaly.CategoryBotLike, report.Anomalies[0].Category)
}

func TestStats_Totals(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	require.NoError(t, f.players.Create(ctx, &telemetry.Player{Username: "a", RiskScore: 20}))
	require.NoError(t, f.players.Create(ctx, &telemetry.Player{Username: "b", RiskScore: 60}))
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 7; i++ {
		require.NoError(t, f.sessions.Create(ctx, &telemetry.Session{
			PlayerID: 1, DurationMinutes: 30, ActionsPerMinute: 100,
			HeadshotRate: 0.3, ReactionTimeMS: 250,
			RecordedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}

	w := doJSON(f.router, "GET", "/api/analytics/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var stats Stats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 2, stats.TotalPlayers)
	assert.Equal(t, 7, stats.TotalSessions)
	assert.Equal(t, 0, stats.TotalEvents)
	assert.InDelta(t, 40.0, stats.AvgRiskScore, 1e-9)
	assert.Len(t, stats.LatestSessions, 5)
	// Newest first.
	assert.Equal(t, base.Add(6*time.Hour).Unix(), stats.LatestSessions[0].RecordedAt.Unix())
}
