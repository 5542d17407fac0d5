// Package analytics exposes fleet-wide aggregations over stored sessions
// and security events.
package analytics

import (
	"context"
	"fmt"

	"github.com/Fakih-Hamid/Game-Security-API-mini-project/internal/anomaly"
	"github.com/Fakih-Hamid/Game-Security-API-mini-project/internal/telemetry"
)

const (
	anomalySessionWindow = 50
	latestSessionLimit   = 5
)

// Service answers analytics queries from the stores.
type Service struct {
	players  telemetry.PlayerStore
	sessions telemetry.SessionStore
	events   telemetry.EventStore
	detector *anomaly.Detector
}

// NewService creates an analytics service.
func NewService(
	players telemetry.PlayerStore,
	sessions telemetry.SessionStore,
	events telemetry.EventStore,
	detector *anomaly.Detector,
) *Service {
	return &Service{
		players:  players,
		sessions: sessions,
		events:   events,
		detector: detector,
	}
}

// CheatPatterns returns event-type occurrence counts, most common first.
func (s *Service) CheatPatterns(ctx context.Context) ([]telemetry.PatternCount, error) {
	patterns, err := s.events.CountByType(ctx)
	if err != nil {
		return nil, fmt.Errorf("count by type: %w", err)
	}
	return patterns, nil
}

// AnomalyReport is the POST /detect-anomalies payload.
type AnomalyReport struct {
	PlayerID        int64             `json:"player_id"`
	SessionsChecked int               `json:"sessions_checked"`
	Anomalies       []anomaly.Finding `json:"anomalies"`
}

// DetectAnomalies runs the detector over a player's last 50 sessions.
func (s *Service) DetectAnomalies(ctx context.Context, playerID int64) (*AnomalyReport, error) {
	if _, err := s.players.Get(ctx, playerID); err != nil {
		return nil, err
	}

	sessions, err := s.sessions.ListByPlayer(ctx, playerID, anomalySessionWindow)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	return &AnomalyReport{
		PlayerID:        playerID,
		SessionsChecked: len(sessions),
		Anomalies:       s.detector.Detect(sessions),
	}, nil
}

// Stats is the GET /stats payload.
type Stats struct {
	TotalPlayers   int                  `json:"total_players"`
	TotalSessions  int                  `json:"total_sessions"`
	TotalEvents    int                  `json:"total_events"`
	AvgRiskScore   float64              `json:"avg_risk_score"`
	LatestSessions []*telemetry.Session `json:"latest_sessions"`
}

// FleetStats aggregates counts and the latest sessions across all players.
func (s *Service) FleetStats(ctx context.Context) (*Stats, error) {
	totalPlayers, err := s.players.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count players: %w", err)
	}
	totalSessions, err := s.sessions.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count sessions: %w", err)
	}
	totalEvents, err := s.events.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count events: %w", err)
	}
	avgRisk, err := s.players.AverageRisk(ctx)
	if err != nil {
		return nil, fmt.Errorf("average risk: %w", err)
	}
	latest, err := s.sessions.ListRecent(ctx, latestSessionLimit)
	if err != nil {
		return nil, fmt.Errorf("list recent sessions: %w", err)
	}

	return &Stats{
		TotalPlayers:   totalPlayers,
		TotalSessions:  totalSessions,
		TotalEvents:    totalEvents,
		AvgRiskScore:   avgRisk,
		LatestSessions: latest,
	}, nil
}
