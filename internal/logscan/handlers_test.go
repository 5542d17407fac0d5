package logscan

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scanRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(NewScanner()).RegisterRoutes(r.Group("/api/security"))
	return r
}

func postScan(r *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "/api/security/scan-log", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestScanLog_FlagsSuspiciousPlayer(t *testing.T) {
	r := scanRouter()

	w := postScan(r, `{"entries": [
		{"player_id": 1, "action": "aimbot_lock", "headshot_rate": 0.95, "reaction_time_ms": 80},
		{"player_id": 2, "action": "move", "headshot_rate": 0.3}
	]}`)
	require.Equal(t, http.StatusOK, w.Code)

	var result Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, []int64{1}, result.SuspiciousPlayers)
	assert.Equal(t, 1, result.AnomalyCounts["aimbot_lock"])
	assert.NotEmpty(t, result.Insights)
}

func TestScanLog_EmptyBatch(t *testing.T) {
	r := scanRouter()

	w := postScan(r, `{"entries": []}`)
	require.Equal(t, http.StatusOK, w.Code)

	var result Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Empty(t, result.SuspiciousPlayers)
}

type stubBroadcaster struct {
	scans []map[string]interface{}
}

func (s *stubBroadcaster) BroadcastScanCompleted(result map[string]interface{}) {
	s.scans = append(s.scans, result)
}

func TestScanLog_BroadcastsSummary(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := &stubBroadcaster{}
	r := gin.New()
	NewHandler(NewScanner()).WithBroadcaster(hub).RegisterRoutes(r.Group("/api/security"))

	w := postScan(r, `{"entries": [
		{"player_id": 1, "action": "aimbot_lock", "headshot_rate": 0.95, "reaction_time_ms": 80},
		{"player_id": 2, "action": "move", "headshot_rate": 0.3}
	]}`)
	require.Equal(t, http.StatusOK, w.Code)

	require.Len(t, hub.scans, 1)
	assert.Equal(t, 2, hub.scans[0]["rows_scanned"])
	assert.Equal(t, 1, hub.scans[0]["suspicious_players"])
}

func TestScanLog_MissingEntries(t *testing.T) {
	r := scanRouter()

	for _, body := range []string{`{}`, `{"entries": null}`, `{"entries": "nope"}`, `not json`} {
		w := postScan(r, body)
		assert.Equal(t, http.StatusBadRequest, w.Code, "body: %s", body)
		assert.Contains(t, w.Body.String(), "entries must be a list")
	}
}
