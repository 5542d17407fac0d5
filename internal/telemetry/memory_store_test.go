package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlayerMemoryStore_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	store := NewPlayerMemoryStore()

	p := &Player{Username: "shadow_blade", RiskScore: 30}
	require.NoError(t, store.Create(ctx, p))
	assert.Equal(t, int64(1), p.ID)
	assert.False(t, p.CreatedAt.IsZero())

	got, err := store.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "shadow_blade", got.Username)

	// Returned copy must not alias the stored record.
	got.RiskScore = 99
	again, err := store.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 30, again.RiskScore)
}

func TestPlayerMemoryStore_GetMissing(t *testing.T) {
	store := NewPlayerMemoryStore()

	_, err := store.Get(context.Background(), 7)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPlayerMemoryStore_GetByUsername(t *testing.T) {
	ctx := context.Background()
	store := NewPlayerMemoryStore()
	require.NoError(t, store.Create(ctx, &Player{Username: "Shadow_Blade"}))

	got, err := store.GetByUsername(ctx, "shadow_blade")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.ID)

	_, err = store.GetByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPlayerMemoryStore_ListByMinRisk(t *testing.T) {
	ctx := context.Background()
	store := NewPlayerMemoryStore()
	for _, p := range []*Player{
		{Username: "a", RiskScore: 10},
		{Username: "b", RiskScore: 90},
		{Username: "c", RiskScore: 75},
		{Username: "d", RiskScore: 75},
	} {
		require.NoError(t, store.Create(ctx, p))
	}

	flagged, err := store.ListByMinRisk(ctx, 70, 0)
	require.NoError(t, err)
	require.Len(t, flagged, 3)
	assert.Equal(t, "b", flagged[0].Username)
	// Equal scores tie-break by insertion order.
	assert.Equal(t, "c", flagged[1].Username)
	assert.Equal(t, "d", flagged[2].Username)

	capped, err := store.ListByMinRisk(ctx, 70, 2)
	require.NoError(t, err)
	assert.Len(t, capped, 2)
}

func TestPlayerMemoryStore_UpdateRiskScore(t *testing.T) {
	ctx := context.Background()
	store := NewPlayerMemoryStore()
	require.NoError(t, store.Create(ctx, &Player{Username: "a", RiskScore: 10}))

	require.NoError(t, store.UpdateRiskScore(ctx, 1, 66))
	got, err := store.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 66, got.RiskScore)

	assert.ErrorIs(t, store.UpdateRiskScore(ctx, 9, 1), ErrNotFound)
}

func TestPlayerMemoryStore_Aggregates(t *testing.T) {
	ctx := context.Background()
	store := NewPlayerMemoryStore()

	avg, err := store.AverageRisk(ctx)
	require.NoError(t, err)
	assert.Zero(t, avg)

	require.NoError(t, store.Create(ctx, &Player{Username: "a", RiskScore: 20}))
	require.NoError(t, store.Create(ctx, &Player{Username: "b", RiskScore: 80}))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	high, err := store.CountByMinRisk(ctx, 75)
	require.NoError(t, err)
	assert.Equal(t, 1, high)

	avg, err = store.AverageRisk(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 50.0, avg, 1e-9)
}

func TestSessionMemoryStore_ListByPlayer(t *testing.T) {
	ctx := context.Background()
	store := NewSessionMemoryStore()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 4; i++ {
		require.NoError(t, store.Create(ctx, &Session{
			PlayerID: 1, DurationMinutes: 30, ActionsPerMinute: 100 + i,
			HeadshotRate: 0.3, ReactionTimeMS: 250,
			RecordedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}
	require.NoError(t, store.Create(ctx, &Session{
		PlayerID: 2, DurationMinutes: 30, ActionsPerMinute: 999,
		HeadshotRate: 0.3, ReactionTimeMS: 250, RecordedAt: base,
	}))

	all, err := store.ListByPlayer(ctx, 1, 0)
	require.NoError(t, err)
	require.Len(t, all, 4)
	// Newest first.
	assert.Equal(t, 103, all[0].ActionsPerMinute)

	limited, err := store.ListByPlayer(ctx, 1, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestSessionMemoryStore_Averages(t *testing.T) {
	ctx := context.Background()
	store := NewSessionMemoryStore()

	avgs, err := store.Averages(ctx)
	require.NoError(t, err)
	assert.Zero(t, avgs.ActionsPerMinute)

	require.NoError(t, store.Create(ctx, &Session{PlayerID: 1, ActionsPerMinute: 100, HeadshotRate: 0.2}))
	require.NoError(t, store.Create(ctx, &Session{PlayerID: 1, ActionsPerMinute: 200, HeadshotRate: 0.6}))

	avgs, err = store.Averages(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 150.0, avgs.ActionsPerMinute, 1e-9)
	assert.InDelta(t, 0.4, avgs.HeadshotRate, 1e-9)
}

func TestEventMemoryStore_LatestByPlayer(t *testing.T) {
	ctx := context.Background()
	store := NewEventMemoryStore()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	_, err := store.LatestByPlayer(ctx, 1)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Create(ctx, &SecurityEvent{
		PlayerID: 1, EventType: "speed_hack", Severity: "low", DetectedAt: base,
	}))
	require.NoError(t, store.Create(ctx, &SecurityEvent{
		PlayerID: 1, EventType: "aimbot_lock", Severity: "high", DetectedAt: base.Add(time.Hour),
	}))

	latest, err := store.LatestByPlayer(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "aimbot_lock", latest.EventType)
}

func TestEventMemoryStore_CountByType(t *testing.T) {
	ctx := context.Background()
	store := NewEventMemoryStore()

	for _, eventType := range []string{"aimbot_lock", "speed_hack", "aimbot_lock", "wallhack_trigger", "aimbot_lock", "speed_hack"} {
		require.NoError(t, store.Create(ctx, &SecurityEvent{
			PlayerID: 1, EventType: eventType, Severity: "medium",
		}))
	}

	patterns, err := store.CountByType(ctx)
	require.NoError(t, err)
	require.Len(t, patterns, 3)
	assert.Equal(t, PatternCount{Pattern: "aimbot_lock", Occurrences: 3}, patterns[0])
	assert.Equal(t, PatternCount{Pattern: "speed_hack", Occurrences: 2}, patterns[1])
	assert.Equal(t, PatternCount{Pattern: "wallhack_trigger", Occurrences: 1}, patterns[2])
}
