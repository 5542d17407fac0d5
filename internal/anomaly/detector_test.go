package anomaly

import (
	"testing"
	"time"

	"github.com/Fakih-Hamid/Game-Security-API-mini-project/internal/telemetry"
)

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type sessionOpt func(*telemetry.Session)

func buildSession(id int64, minutesAgo int, opts ...sessionOpt) *telemetry.Session {
	s := &telemetry.Session{
		ID:               id,
		PlayerID:         1,
		DurationMinutes:  30,
		ActionsPerMinute: 150,
		HeadshotRate:     0.4,
		ReactionTimeMS:   180,
		RecordedAt:       baseTime.Add(-time.Duration(minutesAgo) * time.Minute),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func withReaction(ms int) sessionOpt {
	return func(s *telemetry.Session) { s.ReactionTimeMS = ms }
}

func withHeadshot(rate float64) sessionOpt {
	return func(s *telemetry.Session) { s.HeadshotRate = rate }
}

func withAPM(apm int) sessionOpt {
	return func(s *telemetry.Session) { s.ActionsPerMinute = apm }
}

func categories(findings []Finding) map[Category]int {
	result := make(map[Category]int)
	for _, f := range findings {
		result[f.Category]++
	}
	return result
}

func TestDetectEmptyHistory(t *testing.T) {
	findings := NewDetector().Detect(nil)
	if findings == nil {
		t.Fatal("expected empty slice, got nil")
	}
	if len(findings) != 0 {
		t.Fatalf("expected no findings, got %d", len(findings))
	}
}

func TestReactionTimeStreak(t *testing.T) {
	detector := NewDetector().WithReactionTimeThreshold(120)
	sessions := []*telemetry.Session{
		buildSession(1, 30, withReaction(95)),
		buildSession(2, 20, withReaction(90)),
		buildSession(3, 10, withReaction(85)),
	}

	findings := detector.Detect(sessions)
	if categories(findings)[CategoryReactionTime] != 1 {
		t.Fatalf("expected one reaction_time finding, got %v", findings)
	}
	if findings[0].SessionID != 3 {
		t.Errorf("finding should tag the streak-completing session, got %d", findings[0].SessionID)
	}
	if findings[0].Severity != SeverityHigh {
		t.Errorf("85ms reaction should be high severity, got %s", findings[0].Severity)
	}
}

func TestReactionTimeStreakResetsAtThreshold(t *testing.T) {
	detector := NewDetector()
	// The at-threshold session in the middle breaks the streak.
	sessions := []*telemetry.Session{
		buildSession(1, 50, withReaction(100)),
		buildSession(2, 40, withReaction(105)),
		buildSession(3, 30, withReaction(110)),
		buildSession(4, 20, withReaction(100)),
		buildSession(5, 10, withReaction(100)),
	}

	findings := detector.Detect(sessions)
	if n := categories(findings)[CategoryReactionTime]; n != 0 {
		t.Errorf("broken streak should not flag, got %d findings", n)
	}
}

func TestReactionTimeStreakEmitsPerQualifyingSession(t *testing.T) {
	detector := NewDetector()
	// 5 consecutive sessions under threshold: findings at the 3rd, 4th,
	// and 5th samples once the streak is established.
	var sessions []*telemetry.Session
	for i := 0; i < 5; i++ {
		sessions = append(sessions, buildSession(int64(i+1), 50-i*10, withReaction(100)))
	}

	findings := detector.Detect(sessions)
	if n := categories(findings)[CategoryReactionTime]; n != 3 {
		t.Errorf("expected 3 reaction_time findings for a 5-session streak, got %d", n)
	}
	for _, f := range findings {
		if f.Severity != SeverityMedium {
			t.Errorf("100ms reaction should be medium severity, got %s", f.Severity)
		}
	}
}

func TestReactionTimeStreakUnaffectedByInputOrder(t *testing.T) {
	detector := NewDetector()
	// Same streak delivered newest-first; Detect must sort by RecordedAt.
	sessions := []*telemetry.Session{
		buildSession(3, 10, withReaction(85)),
		buildSession(1, 30, withReaction(95)),
		buildSession(2, 20, withReaction(90)),
	}

	findings := detector.Detect(sessions)
	if categories(findings)[CategoryReactionTime] != 1 {
		t.Fatalf("expected one reaction_time finding, got %v", findings)
	}
	if findings[0].SessionID != 3 {
		t.Errorf("finding should tag the chronologically last session, got %d", findings[0].SessionID)
	}
}

func TestHeadshotSpikePerSession(t *testing.T) {
	detector := NewDetector()
	sessions := []*telemetry.Session{
		buildSession(1, 30, withHeadshot(0.95)),
		buildSession(2, 20, withHeadshot(0.2)),
		buildSession(3, 10, withHeadshot(0.92)),
	}

	findings := detector.Detect(sessions)
	if n := categories(findings)[CategoryHeadshotRate]; n != 2 {
		t.Fatalf("expected 2 headshot_rate findings, got %d", n)
	}
	if findings[0].Detail != "headshot rate 95%" {
		t.Errorf("detail should carry the percentage, got %q", findings[0].Detail)
	}
	if findings[0].Severity != SeverityHigh {
		t.Errorf("headshot spike should be high severity, got %s", findings[0].Severity)
	}
}

func TestRapidImprovement(t *testing.T) {
	detector := NewDetector()
	var sessions []*telemetry.Session
	// 5 historical sessions at 0.3, 5 recent at 0.6 (2x, above the 1.6x
	// multiplier).
	for i := 0; i < 5; i++ {
		sessions = append(sessions, buildSession(int64(i+1), 100-i*10, withHeadshot(0.3)))
	}
	for i := 0; i < 5; i++ {
		sessions = append(sessions, buildSession(int64(i+6), 50-i*10, withHeadshot(0.6)))
	}

	findings := detector.Detect(sessions)
	var improvement []Finding
	for _, f := range findings {
		if f.Category == CategoryRapidImprovement {
			improvement = append(improvement, f)
		}
	}
	if len(improvement) != 1 {
		t.Fatalf("expected exactly one rapid_improvement finding, got %d", len(improvement))
	}
	if improvement[0].SessionID != 10 {
		t.Errorf("finding should tag the most recent session, got %d", improvement[0].SessionID)
	}
	if improvement[0].Severity != SeverityMedium {
		t.Errorf("expected medium severity, got %s", improvement[0].Severity)
	}
}

func TestRapidImprovementNeedsTwoWindows(t *testing.T) {
	detector := NewDetector()
	var sessions []*telemetry.Session
	for i := 0; i < 9; i++ {
		rate := 0.1
		if i >= 4 {
			rate = 0.9
		}
		sessions = append(sessions, buildSession(int64(i+1), 90-i*10, withHeadshot(rate)))
	}

	findings := detector.Detect(sessions)
	if n := categories(findings)[CategoryRapidImprovement]; n != 0 {
		t.Errorf("9 sessions should not trigger rapid_improvement, got %d", n)
	}
}

func TestRapidImprovementSkipsZeroHistoricalMean(t *testing.T) {
	detector := NewDetector()
	var sessions []*telemetry.Session
	for i := 0; i < 5; i++ {
		sessions = append(sessions, buildSession(int64(i+1), 100-i*10, withHeadshot(0)))
	}
	for i := 0; i < 5; i++ {
		sessions = append(sessions, buildSession(int64(i+6), 50-i*10, withHeadshot(0.8)))
	}

	findings := detector.Detect(sessions)
	if n := categories(findings)[CategoryRapidImprovement]; n != 0 {
		t.Errorf("zero historical mean must skip the rule, got %d findings", n)
	}
}

func TestBotLikeConsistency(t *testing.T) {
	detector := NewDetector()
	sessions := []*telemetry.Session{
		buildSession(1, 40, withAPM(210)),
		buildSession(2, 30, withAPM(210)),
		buildSession(3, 20, withAPM(210)),
		buildSession(4, 10, withAPM(210)),
	}

	findings := detector.Detect(sessions)
	var botLike []Finding
	for _, f := range findings {
		if f.Category == CategoryBotLike {
			botLike = append(botLike, f)
		}
	}
	if len(botLike) != 1 {
		t.Fatalf("expected exactly one bot_like finding, got %d", len(botLike))
	}
	if botLike[0].SessionID != 4 {
		t.Errorf("finding should tag the most recent session, got %d", botLike[0].SessionID)
	}
}

func TestBotLikeSkipsVariedInput(t *testing.T) {
	detector := NewDetector()
	sessions := []*telemetry.Session{
		buildSession(1, 40, withAPM(100)),
		buildSession(2, 30, withAPM(180)),
		buildSession(3, 20, withAPM(90)),
		buildSession(4, 10, withAPM(160)),
	}

	findings := detector.Detect(sessions)
	if n := categories(findings)[CategoryBotLike]; n != 0 {
		t.Errorf("varied APM should not trigger bot_like, got %d findings", n)
	}
}

func TestBotLikeZeroAPM(t *testing.T) {
	detector := NewDetector()
	// All-zero APM: deviation 0, mean 0, ratio normalized by 1.
	sessions := []*telemetry.Session{
		buildSession(1, 40, withAPM(0)),
		buildSession(2, 30, withAPM(0)),
		buildSession(3, 20, withAPM(0)),
		buildSession(4, 10, withAPM(0)),
	}

	findings := detector.Detect(sessions)
	if n := categories(findings)[CategoryBotLike]; n != 1 {
		t.Errorf("identical zero APM should flag as bot_like, got %d findings", n)
	}
}

func TestDetectDoesNotMutateInput(t *testing.T) {
	detector := NewDetector()
	sessions := []*telemetry.Session{
		buildSession(2, 10, withReaction(85)),
		buildSession(1, 20, withReaction(85)),
	}

	detector.Detect(sessions)
	if sessions[0].ID != 2 || sessions[1].ID != 1 {
		t.Error("Detect must not reorder the caller's slice")
	}
}

func TestDetectIdempotent(t *testing.T) {
	detector := NewDetector()
	var sessions []*telemetry.Session
	for i := 0; i < 12; i++ {
		sessions = append(sessions, buildSession(int64(i+1), 120-i*10,
			withReaction(100), withHeadshot(0.95), withAPM(200)))
	}

	first := detector.Detect(sessions)
	second := detector.Detect(sessions)
	if len(first) != len(second) {
		t.Fatalf("repeated calls differ: %d vs %d findings", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("finding %d differs between calls: %+v vs %+v", i, first[i], second[i])
		}
	}
}
