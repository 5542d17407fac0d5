// Package server sets up the HTTP server with all routes
package server

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/Fakih-Hamid/Game-Security-API-mini-project/internal/analytics"
	"github.com/Fakih-Hamid/Game-Security-API-mini-project/internal/anomaly"
	"github.com/Fakih-Hamid/Game-Security-API-mini-project/internal/auth"
	"github.com/Fakih-Hamid/Game-Security-API-mini-project/internal/config"
	"github.com/Fakih-Hamid/Game-Security-API-mini-project/internal/health"
	"github.com/Fakih-Hamid/Game-Security-API-mini-project/internal/logging"
	"github.com/Fakih-Hamid/Game-Security-API-mini-project/internal/logscan"
	"github.com/Fakih-Hamid/Game-Security-API-mini-project/internal/metrics"
	"github.com/Fakih-Hamid/Game-Security-API-mini-project/internal/players"
	"github.com/Fakih-Hamid/Game-Security-API-mini-project/internal/ratelimit"
	"github.com/Fakih-Hamid/Game-Security-API-mini-project/internal/realtime"
	"github.com/Fakih-Hamid/Game-Security-API-mini-project/internal/retry"
	"github.com/Fakih-Hamid/Game-Security-API-mini-project/internal/security"
	"github.com/Fakih-Hamid/Game-Security-API-mini-project/internal/seed"
	"github.com/Fakih-Hamid/Game-Security-API-mini-project/internal/telemetry"
	"github.com/Fakih-Hamid/Game-Security-API-mini-project/internal/threat"
	"github.com/Fakih-Hamid/Game-Security-API-mini-project/internal/validation"
)

// -----------------------------------------------------------------------------
// Server
// -----------------------------------------------------------------------------

// Server wraps the HTTP server and dependencies
type Server struct {
	cfg          *config.Config
	playerStore  telemetry.PlayerStore
	sessionStore telemetry.SessionStore
	eventStore   telemetry.EventStore
	authMgr      *auth.Manager
	threatSvc    *threat.Service
	realtimeHub  *realtime.Hub
	healthReg    *health.Registry
	rateLimiter  *ratelimit.Limiter
	db           *sql.DB // nil if using in-memory
	router       *gin.Engine
	httpSrv      *http.Server
	logger       *slog.Logger
	cancelRunCtx context.CancelFunc // cancels background goroutines started in Run

	// Health state
	ready   atomic.Bool
	healthy atomic.Bool
}

// Option configures the server
type Option func(*Server)

// WithLogger sets a custom logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// New creates a new server instance
func New(cfg *config.Config, opts ...Option) (*Server, error) {
	s := &Server{
		cfg:       cfg,
		logger:    logging.New(cfg.LogLevel, cfg.LogFormat),
		healthReg: health.NewRegistry(),
	}

	for _, opt := range opts {
		opt(s)
	}

	ctx := context.Background()

	// Initialize storage (Postgres if DATABASE_URL set, otherwise in-memory)
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}

		// Configure connection pool
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)

		// The database may still be starting in fresh deployments.
		if err := retry.Do(ctx, 5, time.Second, db.Ping); err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		s.db = db
		s.logger.Info("using PostgreSQL storage", "url", maskDSN(cfg.DatabaseURL))

		playerStore := telemetry.NewPlayerPostgresStore(db)
		if err := playerStore.Migrate(ctx); err != nil {
			s.logger.Warn("failed to migrate player store", "error", err)
		}
		sessionStore := telemetry.NewSessionPostgresStore(db)
		if err := sessionStore.Migrate(ctx); err != nil {
			s.logger.Warn("failed to migrate session store", "error", err)
		}
		eventStore := telemetry.NewEventPostgresStore(db)
		if err := eventStore.Migrate(ctx); err != nil {
			s.logger.Warn("failed to migrate event store", "error", err)
		}
		s.playerStore = playerStore
		s.sessionStore = sessionStore
		s.eventStore = eventStore

		s.healthReg.Register("database", health.DBChecker(db))
	} else {
		s.playerStore = telemetry.NewPlayerMemoryStore()
		s.sessionStore = telemetry.NewSessionMemoryStore()
		s.eventStore = telemetry.NewEventMemoryStore()
		s.logger.Info("using in-memory storage (data will not persist)")
	}

	if cfg.AutoSeedData {
		summary, seeded, err := seed.RunIfEmpty(ctx, s.playerStore, s.sessionStore, s.eventStore)
		if err != nil {
			s.logger.Warn("failed to seed demo data", "error", err)
		} else if seeded {
			s.logger.Info("seeded demo data",
				"players", summary.Players,
				"sessions", summary.Sessions,
				"events", summary.Events,
			)
		}
	}

	s.authMgr = auth.NewManager(
		cfg.JWTSecret,
		time.Duration(cfg.JWTTTLHours)*time.Hour,
		cfg.ServiceUsername,
		cfg.ServicePassword,
	)
	s.logger.Info("API authentication enabled", "ttl_hours", cfg.JWTTTLHours)

	// Realtime hub for WebSocket alert streaming
	s.realtimeHub = realtime.NewHub(s.logger)
	s.logger.Info("realtime alert streaming enabled")

	detector := anomaly.NewDetector()
	scorer := threat.NewScorer()
	s.threatSvc = threat.NewService(
		s.playerStore, s.sessionStore, s.eventStore,
		detector, scorer, s.realtimeHub,
	).WithHighRiskThreshold(cfg.HighRiskThreshold)

	// Configure gin
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	s.router = gin.New()
	s.setupMiddleware()
	s.setupRoutes(detector)

	s.healthy.Store(true)

	return s, nil
}

// maskDSN hides password in connection string for logging
func maskDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "***"
	}
	if u.User != nil {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}

// -----------------------------------------------------------------------------
// Middleware
// -----------------------------------------------------------------------------

func (s *Server) setupMiddleware() {
	// Recovery with logging
	s.router.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logging.L(c.Request.Context()).Error("panic recovered",
			"error", recovered,
			"path", c.Request.URL.Path,
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "An unexpected error occurred",
		})
	}))

	// Security headers
	s.router.Use(security.HeadersMiddleware())

	// CORS
	s.router.Use(security.CORSMiddleware(s.cfg.CORSOrigins))

	// Request size limit (1MB)
	s.router.Use(validation.RequestSizeMiddleware(validation.MaxRequestSize))

	// Rate limiting
	s.rateLimiter = ratelimit.New(ratelimit.Config{
		RequestsPerMinute: s.cfg.RateLimitRPM,
		BurstSize:         s.cfg.RateLimitBurst,
		CleanupInterval:   time.Minute,
	})
	s.router.Use(s.rateLimiter.Middleware())

	// Prometheus metrics
	s.router.Use(metrics.Middleware())

	// Request ID
	s.router.Use(s.requestIDMiddleware())

	// Logging
	s.router.Use(s.loggingMiddleware())
}

func (s *Server) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Check for existing request ID (from load balancer, etc.)
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = generateRequestID()
		}

		// Add to context
		ctx := logging.WithRequestID(c.Request.Context(), requestID)
		ctx = logging.WithLogger(ctx, s.logger)
		c.Request = c.Request.WithContext(ctx)

		// Set response header
		c.Header("X-Request-ID", requestID)

		c.Next()
	}
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		logger := logging.L(c.Request.Context())

		// Log level based on status code
		switch {
		case status >= 500:
			logger.Error("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
				"client_ip", c.ClientIP(),
			)
		case status >= 400:
			logger.Warn("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
			)
		default:
			logger.Info("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
			)
		}
	}
}

// -----------------------------------------------------------------------------
// Routes
// -----------------------------------------------------------------------------

func (s *Server) setupRoutes(detector *anomaly.Detector) {
	// Health & metrics endpoints
	s.router.GET("/health", s.healthHandler)
	s.router.GET("/health/live", s.livenessHandler)
	s.router.GET("/health/ready", s.readinessHandler)
	s.router.GET("/metrics", metrics.Handler())

	// Console landing summary
	s.router.GET("/", s.landingHandler)

	// WebSocket for real-time alert streaming
	s.router.GET("/ws", func(c *gin.Context) {
		s.realtimeHub.HandleWebSocket(c.Writer, c.Request)
	})

	api := s.router.Group("/api")

	// Auth (public)
	authHandler := auth.NewHandler(s.authMgr)
	authHandler.RegisterRoutes(api.Group("/auth"))

	requireJWT := auth.RequireJWT(s.authMgr)

	// Player behavior profiles
	playersSvc := players.NewService(
		s.playerStore, s.sessionStore, s.eventStore, detector, s.realtimeHub,
	).WithSuspiciousThreshold(s.cfg.SuspiciousRiskThreshold)
	players.NewHandler(playersSvc).RegisterRoutes(api.Group("/players", requireJWT, validation.IDParamMiddleware()))

	// Security assessments + raw log scanning
	securityGroup := api.Group("/security", requireJWT, validation.IDParamMiddleware())
	threat.NewHandler(s.threatSvc).RegisterRoutes(securityGroup)
	logscan.NewHandler(logscan.NewScanner()).WithBroadcaster(s.realtimeHub).RegisterRoutes(securityGroup)

	// Fleet analytics
	analyticsSvc := analytics.NewService(s.playerStore, s.sessionStore, s.eventStore, detector)
	analytics.NewHandler(analyticsSvc).RegisterRoutes(api.Group("/analytics", requireJWT))
}

// -----------------------------------------------------------------------------
// Handlers
// -----------------------------------------------------------------------------

// HealthResponse for health check endpoints
type HealthResponse struct {
	Status    string          `json:"status"`
	Version   string          `json:"version"`
	Checks    []health.Status `json:"checks,omitempty"`
	Timestamp string          `json:"timestamp"`
}

func (s *Server) healthHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	healthy, checks := s.healthReg.CheckAll(ctx)

	status := "healthy"
	httpStatus := http.StatusOK
	if !healthy {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, HealthResponse{
		Status:    status,
		Version:   "0.1.0",
		Checks:    checks,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) livenessHandler(c *gin.Context) {
	if !s.healthy.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

func (s *Server) readinessHandler(c *gin.Context) {
	if !s.ready.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// landingHandler serves the console landing summary: fleet totals plus
// realtime hub stats, the JSON equivalent of the old dashboard page.
func (s *Server) landingHandler(c *gin.Context) {
	summary, err := s.threatSvc.Dashboard(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"service":  "game-security-api",
		"summary":  summary,
		"realtime": s.realtimeHub.Stats(),
		"links": gin.H{
			"health":    "/health",
			"metrics":   "/metrics",
			"alerts_ws": "/ws",
			"api":       "/api",
		},
	})
}

// -----------------------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------------------

// Run starts the HTTP server with graceful shutdown
func (s *Server) Run(ctx context.Context) error {
	// Cancellable context for background goroutines so Shutdown() can stop them.
	runCtx, cancel := context.WithCancel(ctx)
	s.cancelRunCtx = cancel

	s.httpSrv = &http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           s.router,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errChan := make(chan error, 1)

	go func() {
		s.logger.Info("starting server", "port", s.cfg.Port, "env", s.cfg.Env)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	// Start realtime hub
	go s.realtimeHub.Run(runCtx)

	// Sample DB pool stats into Prometheus gauges
	if s.db != nil {
		go metrics.StartDBStatsCollector(runCtx, s.db, 15*time.Second)
	}

	// Mark as ready after brief delay for startup
	go func() {
		time.Sleep(100 * time.Millisecond)
		s.ready.Store(true)
		s.logger.Info("server ready")
	}()

	// Wait for shutdown signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		s.logger.Info("shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		s.logger.Info("context cancelled")
	}

	return s.Shutdown()
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown() error {
	s.ready.Store(false)
	s.logger.Info("starting graceful shutdown")

	// Cancel the context for all background goroutines (hub, collectors)
	if s.cancelRunCtx != nil {
		s.cancelRunCtx()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if s.httpSrv != nil {
		if err := s.httpSrv.Shutdown(ctx); err != nil {
			s.logger.Error("shutdown error", "error", err)
			return err
		}
	}

	// Stop rate limiter cleanup goroutine
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
		s.logger.Info("rate limiter stopped")
	}

	// Close database connection pool
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("database close error", "error", err)
		} else {
			s.logger.Info("database connection closed")
		}
	}

	s.logger.Info("server stopped")
	return nil
}

// Router returns the gin router for testing
func (s *Server) Router() *gin.Engine {
	return s.router
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func generateRequestID() string {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to timestamp-based ID
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(bytes)
}
