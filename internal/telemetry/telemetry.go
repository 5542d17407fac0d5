// Package telemetry defines the gameplay records the security pipeline
// consumes (players, game sessions, and security events) plus the
// storage interfaces used by handlers and analyzers.
package telemetry

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by stores when a record does not exist.
var ErrNotFound = errors.New("record not found")

// Player is a registered player account with its persisted baseline risk.
type Player struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	RiskScore int       `json:"risk_score"`
	CreatedAt time.Time `json:"created_at"`
}

// Session is one recorded gameplay session's aggregate metrics.
type Session struct {
	ID               int64     `json:"id"`
	PlayerID         int64     `json:"player_id"`
	DurationMinutes  int       `json:"duration_minutes"`
	ActionsPerMinute int       `json:"actions_per_minute"`
	HeadshotRate     float64   `json:"headshot_rate"`
	ReactionTimeMS   int       `json:"reaction_time_ms"`
	RecordedAt       time.Time `json:"recorded_at"`
}

// SecurityEvent records a detection or a manual report against a player.
// Severity is free-form at this layer ("low", "medium", "high" by
// convention); the threat scorer maps unknown values to a default weight.
type SecurityEvent struct {
	ID         int64     `json:"id"`
	PlayerID   int64     `json:"player_id"`
	EventType  string    `json:"event_type"`
	Severity   string    `json:"severity"`
	DetectedAt time.Time `json:"detected_at"`
	Notes      string    `json:"notes,omitempty"`
}

// SessionAverages aggregates session metrics across the whole fleet.
type SessionAverages struct {
	ActionsPerMinute float64
	HeadshotRate     float64
}

// PatternCount is one event type with its occurrence count.
type PatternCount struct {
	Pattern     string `json:"pattern"`
	Occurrences int    `json:"occurrences"`
}

// PlayerStore persists player accounts and their baseline risk.
type PlayerStore interface {
	Create(ctx context.Context, p *Player) error
	Get(ctx context.Context, id int64) (*Player, error)
	GetByUsername(ctx context.Context, username string) (*Player, error)
	// ListByMinRisk returns players with RiskScore >= min, highest first.
	ListByMinRisk(ctx context.Context, min, limit int) ([]*Player, error)
	UpdateRiskScore(ctx context.Context, id int64, score int) error
	Count(ctx context.Context) (int, error)
	CountByMinRisk(ctx context.Context, min int) (int, error)
	AverageRisk(ctx context.Context) (float64, error)
}

// SessionStore persists per-session gameplay metrics.
type SessionStore interface {
	Create(ctx context.Context, s *Session) error
	// ListByPlayer returns a player's sessions newest first.
	// limit <= 0 means no limit.
	ListByPlayer(ctx context.Context, playerID int64, limit int) ([]*Session, error)
	ListRecent(ctx context.Context, limit int) ([]*Session, error)
	Count(ctx context.Context) (int, error)
	Averages(ctx context.Context) (SessionAverages, error)
}

// EventStore persists security events.
type EventStore interface {
	Create(ctx context.Context, e *SecurityEvent) error
	// ListByPlayer returns a player's events newest first.
	// limit <= 0 means no limit.
	ListByPlayer(ctx context.Context, playerID int64, limit int) ([]*SecurityEvent, error)
	ListRecent(ctx context.Context, limit int) ([]*SecurityEvent, error)
	LatestByPlayer(ctx context.Context, playerID int64) (*SecurityEvent, error)
	Count(ctx context.Context) (int, error)
	// CountByType returns occurrence counts per event type, highest first.
	CountByType(ctx context.Context) ([]PatternCount, error)
}
