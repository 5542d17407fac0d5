// Game Security API - cheat detection and player risk scoring
package main

import (
	"context"
	"os"

	"github.com/Fakih-Hamid/Game-Security-API-mini-project/internal/config"
	"github.com/Fakih-Hamid/Game-Security-API-mini-project/internal/logging"
	"github.com/Fakih-Hamid/Game-Security-API-mini-project/internal/server"
	"github.com/Fakih-Hamid/Game-Security-API-mini-project/internal/traces"
)

// Build info - set by ldflags
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	// Create logger
	logger := logging.New("info", "text")

	logger.Info("starting game-security-api",
		"version", Version,
		"commit", Commit,
		"build_time", BuildTime,
	)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"env", cfg.Env,
		"port", cfg.Port,
		"high_risk_threshold", cfg.HighRiskThreshold,
	)

	ctx := context.Background()

	// Initialize tracing (no-op unless an OTLP endpoint is configured)
	shutdownTraces, err := traces.Init(ctx, cfg.OTLPEndpoint, logger)
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTraces(context.Background()) }()

	// Create and run server
	srv, err := server.New(cfg, server.WithLogger(logger))
	if err != nil {
		logger.Error("failed to create server", "error", err)
		os.Exit(1)
	}

	if err := srv.Run(ctx); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
