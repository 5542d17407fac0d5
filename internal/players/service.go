// Package players exposes per-player behavior profiles, session ingestion,
// and the suspicious-player watchlist.
package players

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/Fakih-Hamid/Game-Security-API-mini-project/internal/anomaly"
	"github.com/Fakih-Hamid/Game-Security-API-mini-project/internal/logging"
	"github.com/Fakih-Hamid/Game-Security-API-mini-project/internal/metrics"
	"github.com/Fakih-Hamid/Game-Security-API-mini-project/internal/telemetry"
	"github.com/Fakih-Hamid/Game-Security-API-mini-project/internal/traces"
	"github.com/Fakih-Hamid/Game-Security-API-mini-project/internal/validation"
)

// How much history each profile section covers.
const (
	recentSessionLimit   = 5
	recentEventLimit     = 10
	anomalyWindow        = 30
	suspiciousLimit      = 25
	defaultRiskThreshold = 70
	defaultReactionMS    = 200
)

// ErrValidation wraps field-level validation failures.
var ErrValidation = errors.New("validation failed")

// Broadcaster pushes live events to connected analyst consoles. The
// realtime hub satisfies this; tests pass a stub or nil.
type Broadcaster interface {
	BroadcastHighRiskAlert(alert map[string]interface{})
	BroadcastSessionRecorded(session map[string]interface{})
}

// Service implements player behavior profiling on top of the stores.
type Service struct {
	players       telemetry.PlayerStore
	sessions      telemetry.SessionStore
	events        telemetry.EventStore
	detector      *anomaly.Detector
	hub           Broadcaster
	suspiciousMin int
}

// NewService creates a players service. hub may be nil to disable
// realtime broadcasts.
func NewService(
	players telemetry.PlayerStore,
	sessions telemetry.SessionStore,
	events telemetry.EventStore,
	detector *anomaly.Detector,
	hub Broadcaster,
) *Service {
	return &Service{
		players:       players,
		sessions:      sessions,
		events:        events,
		detector:      detector,
		hub:           hub,
		suspiciousMin: defaultRiskThreshold,
	}
}

// WithSuspiciousThreshold overrides the default watchlist risk cutoff.
func (s *Service) WithSuspiciousThreshold(min int) *Service {
	s.suspiciousMin = min
	return s
}

// BehaviorStats aggregates a player's session metrics.
type BehaviorStats struct {
	SessionCount        int     `json:"session_count"`
	AvgDurationMinutes  float64 `json:"avg_duration_minutes"`
	AvgActionsPerMinute float64 `json:"avg_actions_per_minute"`
	AvgHeadshotRate     float64 `json:"avg_headshot_rate"`
	AvgReactionTimeMS   float64 `json:"avg_reaction_time_ms"`
}

// BehaviorReport is the full profile returned by GET /:id/behavior.
type BehaviorReport struct {
	Player         *telemetry.Player          `json:"player"`
	Stats          BehaviorStats              `json:"stats"`
	RecentSessions []*telemetry.Session       `json:"recent_sessions"`
	RecentEvents   []*telemetry.SecurityEvent `json:"recent_events"`
	Anomalies      []anomaly.Finding          `json:"anomalies"`
}

// Behavior builds a player's behavior profile: averages over all recorded
// sessions, the most recent sessions and events, and anomaly findings over
// the last 30 sessions.
func (s *Service) Behavior(ctx context.Context, playerID int64) (*BehaviorReport, error) {
	player, err := s.players.Get(ctx, playerID)
	if err != nil {
		return nil, err
	}

	all, err := s.sessions.ListByPlayer(ctx, playerID, 0)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	stats := BehaviorStats{SessionCount: len(all)}
	if len(all) > 0 {
		var duration, apm, headshot, reaction float64
		for _, sess := range all {
			duration += float64(sess.DurationMinutes)
			apm += float64(sess.ActionsPerMinute)
			headshot += sess.HeadshotRate
			reaction += float64(sess.ReactionTimeMS)
		}
		n := float64(len(all))
		stats.AvgDurationMinutes = round2(duration / n)
		stats.AvgActionsPerMinute = round2(apm / n)
		stats.AvgHeadshotRate = round3(headshot / n)
		stats.AvgReactionTimeMS = round2(reaction / n)
	}

	recent := all
	if len(recent) > recentSessionLimit {
		recent = recent[:recentSessionLimit]
	}

	events, err := s.events.ListByPlayer(ctx, playerID, recentEventLimit)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}

	window := all
	if len(window) > anomalyWindow {
		window = window[:anomalyWindow]
	}
	findings := s.detector.Detect(window)

	return &BehaviorReport{
		Player:         player,
		Stats:          stats,
		RecentSessions: recent,
		RecentEvents:   events,
		Anomalies:      findings,
	}, nil
}

// SessionRequest is the POST /:id/session body.
type SessionRequest struct {
	DurationMinutes  int        `json:"duration_minutes"`
	ActionsPerMinute int        `json:"actions_per_minute"`
	HeadshotRate     float64    `json:"headshot_rate"`
	ReactionTimeMS   *int       `json:"reaction_time_ms"`
	RecordedAt       *time.Time `json:"recorded_at"`
}

// RecordSession validates and stores a new gameplay session, reruns the
// detector over the player's recent history, and broadcasts any
// high-severity findings. Returns the stored session and the findings.
func (s *Service) RecordSession(ctx context.Context, playerID int64, req SessionRequest) (*telemetry.Session, []anomaly.Finding, error) {
	ctx, span := traces.StartSpan(ctx, "players.RecordSession", traces.PlayerID(playerID))
	defer span.End()

	player, err := s.players.Get(ctx, playerID)
	if err != nil {
		return nil, nil, err
	}

	reaction := defaultReactionMS
	if req.ReactionTimeMS != nil {
		reaction = *req.ReactionTimeMS
	}

	verrs := validation.Validate(
		validation.Positive("duration_minutes", float64(req.DurationMinutes)),
		validation.NonNegative("actions_per_minute", float64(req.ActionsPerMinute)),
		validation.Rate("headshot_rate", req.HeadshotRate),
		validation.Positive("reaction_time_ms", float64(reaction)),
	)
	if len(verrs) > 0 {
		return nil, nil, fmt.Errorf("%w: %s", ErrValidation, verrs.Error())
	}

	recordedAt := time.Now().UTC()
	if req.RecordedAt != nil {
		recordedAt = *req.RecordedAt
	}

	session := &telemetry.Session{
		PlayerID:         playerID,
		DurationMinutes:  req.DurationMinutes,
		ActionsPerMinute: req.ActionsPerMinute,
		HeadshotRate:     req.HeadshotRate,
		ReactionTimeMS:   reaction,
		RecordedAt:       recordedAt,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, nil, fmt.Errorf("create session: %w", err)
	}
	metrics.SessionsIngestedTotal.Inc()

	history, err := s.sessions.ListByPlayer(ctx, playerID, anomalyWindow)
	if err != nil {
		return nil, nil, fmt.Errorf("list sessions: %w", err)
	}
	findings := s.detector.Detect(history)
	for _, f := range findings {
		metrics.FindingsTotal.WithLabelValues(string(f.Category)).Inc()
	}
	span.SetAttributes(traces.FindingCount(len(findings)))

	if s.hub != nil {
		s.hub.BroadcastSessionRecorded(map[string]interface{}{
			"player_id":  playerID,
			"session_id": session.ID,
		})
		for _, f := range findings {
			if f.Severity != anomaly.SeverityHigh {
				continue
			}
			logging.L(ctx).Warn("high severity anomaly detected",
				logging.Player(playerID),
				logging.Finding(string(f.Category), string(f.Severity)),
			)
			s.hub.BroadcastHighRiskAlert(map[string]interface{}{
				"player_id":  playerID,
				"username":   player.Username,
				"category":   string(f.Category),
				"severity":   string(f.Severity),
				"detail":     f.Detail,
				"session_id": f.SessionID,
				"risk_score": player.RiskScore,
			})
		}
	}

	return session, findings, nil
}

// SuspiciousPlayer pairs a high-risk player with their latest event.
type SuspiciousPlayer struct {
	Player      *telemetry.Player        `json:"player"`
	RecentEvent *telemetry.SecurityEvent `json:"recent_event,omitempty"`
}

// Suspicious lists players at or above the risk threshold, highest first,
// capped at 25, each with their most recent security event when one exists.
func (s *Service) Suspicious(ctx context.Context, threshold int) ([]SuspiciousPlayer, error) {
	flagged, err := s.players.ListByMinRisk(ctx, threshold, suspiciousLimit)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}

	result := make([]SuspiciousPlayer, 0, len(flagged))
	for _, p := range flagged {
		entry := SuspiciousPlayer{Player: p}
		event, err := s.events.LatestByPlayer(ctx, p.ID)
		if err == nil {
			entry.RecentEvent = event
		} else if !errors.Is(err, telemetry.ErrNotFound) {
			return nil, fmt.Errorf("latest event: %w", err)
		}
		result = append(result, entry)
	}
	return result, nil
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func round3(v float64) float64 { return math.Round(v*1000) / 1000 }
