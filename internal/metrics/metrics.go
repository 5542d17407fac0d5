// Package metrics provides Prometheus instrumentation for the game
// security API.
package metrics

import (
	"context"
	"database/sql"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gamesec",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, path pattern, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration observes request latency by method and path.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "gamesec",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// SessionsIngestedTotal counts gameplay sessions accepted via the API.
	SessionsIngestedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "gamesec",
		Name:      "sessions_ingested_total",
		Help:      "Total gameplay sessions recorded through the API.",
	})

	// FindingsTotal counts anomaly findings by category.
	FindingsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gamesec",
			Name:      "findings_total",
			Help:      "Total anomaly findings emitted by category.",
		},
		[]string{"category"},
	)

	// LogRowsScannedTotal counts raw log rows fed through the scanner.
	LogRowsScannedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "gamesec",
		Name:      "log_rows_scanned_total",
		Help:      "Total raw log rows processed by the log scanner.",
	})

	// SuspiciousPlayersTotal counts players flagged by log scans.
	SuspiciousPlayersTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "gamesec",
		Name:      "suspicious_players_total",
		Help:      "Total players flagged as suspicious by log scans.",
	})

	// ReportsTotal counts manual security reports by severity.
	ReportsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gamesec",
			Name:      "reports_total",
			Help:      "Total manual security reports recorded by severity.",
		},
		[]string{"severity"},
	)

	// RiskScores observes computed threat scores.
	RiskScores = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "gamesec",
		Name:      "risk_score",
		Help:      "Distribution of computed player risk scores.",
		Buckets:   prometheus.LinearBuckets(0, 10, 11),
	})

	// ActiveWebSocketClients tracks connected alert stream clients.
	ActiveWebSocketClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "gamesec",
		Name:      "active_websocket_clients",
		Help:      "Number of currently connected WebSocket clients.",
	})

	// DBOpenConnections tracks open database connections.
	DBOpenConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "gamesec", Name: "db_open_connections",
		Help: "Number of open database connections.",
	})
	// DBIdleConnections tracks idle database connections.
	DBIdleConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "gamesec", Name: "db_idle_connections",
		Help: "Number of idle database connections.",
	})
	// DBInUseConnections tracks in-use database connections.
	DBInUseConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "gamesec", Name: "db_in_use_connections",
		Help: "Number of in-use database connections.",
	})
	// GoroutineCount tracks the current number of goroutines.
	GoroutineCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "gamesec", Name: "goroutines",
		Help: "Current number of goroutines.",
	})
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		SessionsIngestedTotal,
		FindingsTotal,
		LogRowsScannedTotal,
		SuspiciousPlayersTotal,
		ReportsTotal,
		RiskScores,
		ActiveWebSocketClients,
		DBOpenConnections,
		DBIdleConnections,
		DBInUseConnections,
		GoroutineCount,
	)
}

// StartDBStatsCollector periodically samples sql.DBStats and runtime goroutine
// count into Prometheus gauges. Call in a goroutine; exits when ctx is done.
func StartDBStatsCollector(ctx context.Context, db *sql.DB, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := db.Stats()
			DBOpenConnections.Set(float64(stats.OpenConnections))
			DBIdleConnections.Set(float64(stats.Idle))
			DBInUseConnections.Set(float64(stats.InUse))
			GoroutineCount.Set(float64(runtime.NumGoroutine()))
		}
	}
}

// Middleware returns a gin middleware that records request metrics.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		timer := prometheus.NewTimer(HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(), // Uses route pattern, not actual path (avoids cardinality explosion)
		))

		c.Next()

		timer.ObserveDuration()
		HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			statusBucket(c.Writer.Status()),
		).Inc()
	}
}

// Handler returns the Prometheus metrics HTTP handler for /metrics endpoint.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// statusBucket groups HTTP status codes into buckets (2xx, 3xx, 4xx, 5xx).
func statusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
