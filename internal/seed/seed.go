// Package seed populates the stores with a deterministic demo fleet so
// the dashboard and detection endpoints have data to show out of the box.
package seed

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/Fakih-Hamid/Game-Security-API-mini-project/internal/telemetry"
)

// Fixed RNG seed keeps demo data identical across runs.
const rngSeed = 42

const (
	playerCount       = 50
	sessionsPerPlayer = 21 // 50 * 21 = 1050 sessions
)

var usernameAdjectives = []string{
	"shadow", "silent", "rapid", "iron", "neon", "ghost", "crimson",
	"frost", "static", "vivid",
}

var usernameNouns = []string{
	"blade", "viper", "falcon", "wolf", "specter", "raven", "titan",
	"drake", "lynx", "comet",
}

// Summary reports what a seeding run created.
type Summary struct {
	Players  int
	Sessions int
	Events   int
}

// Run generates the demo fleet: 50 players with gaussian baseline risk,
// 21 sessions each whose cheat signals correlate with that risk, and a
// security event for every hot session. Deterministic for a given store
// state; two runs against fresh stores produce identical data.
func Run(
	ctx context.Context,
	players telemetry.PlayerStore,
	sessions telemetry.SessionStore,
	events telemetry.EventStore,
) (Summary, error) {
	rng := rand.New(rand.NewSource(rngSeed))
	base := time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC)

	var summary Summary
	for i := 0; i < playerCount; i++ {
		risk := int(rng.NormFloat64()*18 + 25)
		if risk < 0 {
			risk = 0
		}
		if risk > 100 {
			risk = 100
		}

		player := &telemetry.Player{
			Username: fmt.Sprintf("%s_%s_%02d",
				usernameAdjectives[i%len(usernameAdjectives)],
				usernameNouns[(i/len(usernameAdjectives))%len(usernameNouns)],
				i+1),
			RiskScore: risk,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}
		if err := players.Create(ctx, player); err != nil {
			return summary, fmt.Errorf("seed player: %w", err)
		}
		summary.Players++

		for j := 0; j < sessionsPerPlayer; j++ {
			recordedAt := base.Add(time.Duration(i)*time.Hour + time.Duration(j)*6*time.Hour)
			session := &telemetry.Session{
				PlayerID:        player.ID,
				DurationMinutes: 10 + rng.Intn(80),
				RecordedAt:      recordedAt,
			}

			// High-risk players cheat in a risk-proportional share of
			// their sessions.
			hot := rng.Float64()*100 < float64(risk)
			if hot {
				session.ActionsPerMinute = 220 + rng.Intn(100)
				session.HeadshotRate = 0.90 + rng.Float64()*0.09
				session.ReactionTimeMS = 60 + rng.Intn(45)
			} else {
				session.ActionsPerMinute = 60 + rng.Intn(120)
				session.HeadshotRate = 0.15 + rng.Float64()*0.40
				session.ReactionTimeMS = 180 + rng.Intn(140)
			}

			if err := sessions.Create(ctx, session); err != nil {
				return summary, fmt.Errorf("seed session: %w", err)
			}
			summary.Sessions++

			if !hot {
				continue
			}
			severity := "medium"
			if session.HeadshotRate > 0.95 {
				severity = "high"
			}
			eventTypes := []string{"aimbot_lock", "wallhack_trigger", "speed_hack"}
			event := &telemetry.SecurityEvent{
				PlayerID:   player.ID,
				EventType:  eventTypes[rng.Intn(len(eventTypes))],
				Severity:   severity,
				DetectedAt: recordedAt.Add(5 * time.Minute),
				Notes:      "Generated from sample session data",
			}
			if err := events.Create(ctx, event); err != nil {
				return summary, fmt.Errorf("seed event: %w", err)
			}
			summary.Events++
		}
	}

	return summary, nil
}

// RunIfEmpty seeds only when no players exist yet, so restarts against a
// persistent database do not duplicate the fleet.
func RunIfEmpty(
	ctx context.Context,
	players telemetry.PlayerStore,
	sessions telemetry.SessionStore,
	events telemetry.EventStore,
) (Summary, bool, error) {
	count, err := players.Count(ctx)
	if err != nil {
		return Summary{}, false, fmt.Errorf("count players: %w", err)
	}
	if count > 0 {
		return Summary{}, false, nil
	}
	summary, err := Run(ctx, players, sessions, events)
	return summary, err == nil, err
}
