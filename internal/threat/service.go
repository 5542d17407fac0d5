package threat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Fakih-Hamid/Game-Security-API-mini-project/internal/anomaly"
	"github.com/Fakih-Hamid/Game-Security-API-mini-project/internal/logging"
	"github.com/Fakih-Hamid/Game-Security-API-mini-project/internal/metrics"
	"github.com/Fakih-Hamid/Game-Security-API-mini-project/internal/telemetry"
	"github.com/Fakih-Hamid/Game-Security-API-mini-project/internal/traces"
	"github.com/Fakih-Hamid/Game-Security-API-mini-project/internal/validation"
)

// DefaultHighRiskThreshold marks the dashboard's high-risk player cutoff.
const DefaultHighRiskThreshold = 75

const dashboardEventLimit = 5

// ErrPlayerRequired is returned when a report omits the player ID.
var ErrPlayerRequired = errors.New("player_id is required")

// ErrValidation wraps field-level validation failures.
var ErrValidation = errors.New("validation failed")

// Broadcaster pushes report alerts to connected analyst consoles.
type Broadcaster interface {
	BroadcastReportFiled(report map[string]interface{})
}

// Service computes player risk assessments and records manual reports.
type Service struct {
	players     telemetry.PlayerStore
	sessions    telemetry.SessionStore
	events      telemetry.EventStore
	detector    *anomaly.Detector
	scorer      *Scorer
	hub         Broadcaster
	highRiskMin int
}

// NewService creates a threat service. hub may be nil to disable
// realtime broadcasts.
func NewService(
	players telemetry.PlayerStore,
	sessions telemetry.SessionStore,
	events telemetry.EventStore,
	detector *anomaly.Detector,
	scorer *Scorer,
	hub Broadcaster,
) *Service {
	return &Service{
		players:     players,
		sessions:    sessions,
		events:      events,
		detector:    detector,
		scorer:      scorer,
		hub:         hub,
		highRiskMin: DefaultHighRiskThreshold,
	}
}

// WithHighRiskThreshold overrides the dashboard high-risk cutoff.
func (s *Service) WithHighRiskThreshold(min int) *Service {
	s.highRiskMin = min
	return s
}

// RiskAssessment is the GET /player-risk/:id payload.
type RiskAssessment struct {
	PlayerID     int64             `json:"player_id"`
	Username     string            `json:"username"`
	BaselineRisk int               `json:"baseline_risk"`
	RiskScore    int               `json:"risk_score"`
	Anomalies    []anomaly.Finding `json:"anomalies"`
	EventCount   int               `json:"event_count"`
	SessionCount int               `json:"session_count"`
}

// PlayerRisk runs the detector over the player's full session history and
// fuses baseline, findings, events, and session stats into a risk score.
func (s *Service) PlayerRisk(ctx context.Context, playerID int64) (*RiskAssessment, error) {
	ctx, span := traces.StartSpan(ctx, "threat.PlayerRisk", traces.PlayerID(playerID))
	defer span.End()

	player, err := s.players.Get(ctx, playerID)
	if err != nil {
		return nil, err
	}

	sessions, err := s.sessions.ListByPlayer(ctx, playerID, 0)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	events, err := s.events.ListByPlayer(ctx, playerID, 0)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}

	findings := s.detector.Detect(sessions)
	score := s.scorer.ScorePlayer(player.RiskScore, sessions, findings, events)
	metrics.RiskScores.Observe(float64(score))
	span.SetAttributes(
		traces.SessionCount(len(sessions)),
		traces.FindingCount(len(findings)),
		traces.RiskScore(score),
	)

	return &RiskAssessment{
		PlayerID:     player.ID,
		Username:     player.Username,
		BaselineRisk: player.RiskScore,
		RiskScore:    score,
		Anomalies:    findings,
		EventCount:   len(events),
		SessionCount: len(sessions),
	}, nil
}

// ReportRequest is the POST /report body.
type ReportRequest struct {
	PlayerID int64  `json:"player_id"`
	Reason   string `json:"reason"`
	Severity string `json:"severity"`
	Notes    string `json:"notes"`
}

// Report files a manual security report against a player. Reason defaults
// to "manual_report" and severity to medium; notes are truncated to 500
// characters before storage.
func (s *Service) Report(ctx context.Context, req ReportRequest) (*telemetry.SecurityEvent, error) {
	if req.PlayerID <= 0 {
		return nil, ErrPlayerRequired
	}
	player, err := s.players.Get(ctx, req.PlayerID)
	if err != nil {
		return nil, err
	}

	reason := req.Reason
	if reason == "" {
		reason = "manual_report"
	}
	severity := req.Severity
	if severity == "" {
		severity = string(anomaly.SeverityMedium)
	}
	verrs := validation.Validate(
		validation.OneOf("severity", severity,
			string(anomaly.SeverityLow), string(anomaly.SeverityMedium), string(anomaly.SeverityHigh)),
	)
	if len(verrs) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrValidation, verrs.Error())
	}

	event := &telemetry.SecurityEvent{
		PlayerID:   player.ID,
		EventType:  reason,
		Severity:   severity,
		DetectedAt: time.Now().UTC(),
		Notes:      validation.SanitizeString(req.Notes, validation.MaxNotesLength),
	}
	if err := s.events.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	metrics.ReportsTotal.WithLabelValues(severity).Inc()
	logging.L(ctx).Info("security report filed",
		logging.Player(player.ID),
		logging.Finding(event.EventType, severity),
	)

	if s.hub != nil && severity == string(anomaly.SeverityHigh) {
		s.hub.BroadcastReportFiled(map[string]interface{}{
			"player_id":  player.ID,
			"username":   player.Username,
			"event_type": event.EventType,
			"severity":   severity,
		})
	}

	return event, nil
}

// DashboardSummary is the GET /dashboard payload.
type DashboardSummary struct {
	TotalPlayers        int                        `json:"total_players"`
	HighRiskPlayers     int                        `json:"high_risk_players"`
	TotalEvents         int                        `json:"total_events"`
	RecentEvents        []*telemetry.SecurityEvent `json:"recent_events"`
	AvgActionsPerMinute float64                    `json:"avg_actions_per_minute"`
	AvgHeadshotRate     float64                    `json:"avg_headshot_rate"`
}

// Dashboard aggregates fleet-wide totals for the security console.
func (s *Service) Dashboard(ctx context.Context) (*DashboardSummary, error) {
	totalPlayers, err := s.players.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count players: %w", err)
	}
	highRisk, err := s.players.CountByMinRisk(ctx, s.highRiskMin)
	if err != nil {
		return nil, fmt.Errorf("count high-risk players: %w", err)
	}
	totalEvents, err := s.events.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count events: %w", err)
	}
	recent, err := s.events.ListRecent(ctx, dashboardEventLimit)
	if err != nil {
		return nil, fmt.Errorf("list recent events: %w", err)
	}
	averages, err := s.sessions.Averages(ctx)
	if err != nil {
		return nil, fmt.Errorf("session averages: %w", err)
	}

	return &DashboardSummary{
		TotalPlayers:        totalPlayers,
		HighRiskPlayers:     highRisk,
		TotalEvents:         totalEvents,
		RecentEvents:        recent,
		AvgActionsPerMinute: averages.ActionsPerMinute,
		AvgHeadshotRate:     averages.HeadshotRate,
	}, nil
}
