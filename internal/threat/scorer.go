// Package threat fuses a player's stored baseline risk with dynamic
// signals (anomaly findings, historical security events, and session
// statistics) into a single bounded 0-100 risk score.
package threat

import (
	"math"

	"github.com/Fakih-Hamid/Game-Security-API-mini-project/internal/anomaly"
	"github.com/Fakih-Hamid/Game-Security-API-mini-project/internal/telemetry"
)

// DefaultBaselineWeight is the share of the final score taken from the
// stored baseline; the rest comes from dynamic signals.
const DefaultBaselineWeight = 0.4

// Severity weights for findings and events. Unknown severities fall back
// to a middling default rather than being dropped.
const (
	weightLow     = 5
	weightMedium  = 12
	weightHigh    = 20
	weightUnknown = 8
)

// Session-statistic boosts.
const (
	headshotBoostFloor  = 0.75
	headshotBoostFactor = 80
	apmBoostFloor       = 210
	apmBoostFactor      = 0.2
	apmBoostCap         = 20
)

// Scorer computes risk scores. Stateless aside from the baseline weight,
// so a shared instance is safe for concurrent use.
type Scorer struct {
	baselineWeight float64
}

// NewScorer creates a scorer with the default baseline weight.
func NewScorer() *Scorer {
	return &Scorer{baselineWeight: DefaultBaselineWeight}
}

// WithBaselineWeight overrides how much of the final score comes from the
// stored baseline (0 = all dynamic, 1 = all baseline).
func (s *Scorer) WithBaselineWeight(w float64) *Scorer {
	s.baselineWeight = w
	return s
}

// ScorePlayer combines the stored baseline with dynamic signals and
// returns an integer in [0, 100]. Empty collections are valid and simply
// contribute nothing.
func (s *Scorer) ScorePlayer(
	baseline int,
	sessions []*telemetry.Session,
	anomalies []anomaly.Finding,
	events []*telemetry.SecurityEvent,
) int {
	dynamic := 0.0

	for _, finding := range anomalies {
		dynamic += severityWeight(string(finding.Severity))
	}
	for _, event := range events {
		dynamic += severityWeight(event.Severity)
	}

	if len(sessions) > 0 {
		var headshot, apm float64
		for _, sess := range sessions {
			headshot += sess.HeadshotRate
			apm += float64(sess.ActionsPerMinute)
		}
		n := float64(len(sessions))
		avgHeadshot := headshot / n
		avgAPM := apm / n

		if avgHeadshot > headshotBoostFloor {
			dynamic += (avgHeadshot - headshotBoostFloor) * headshotBoostFactor
		}
		if avgAPM > apmBoostFloor {
			dynamic += math.Min(apmBoostCap, (avgAPM-apmBoostFloor)*apmBoostFactor)
		}
	}

	combined := float64(baseline)*s.baselineWeight + dynamic*(1-s.baselineWeight)

	score := int(math.Round(combined))
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func severityWeight(severity string) float64 {
	switch severity {
	case string(anomaly.SeverityLow):
		return weightLow
	case string(anomaly.SeverityMedium):
		return weightMedium
	case string(anomaly.SeverityHigh):
		return weightHigh
	default:
		return weightUnknown
	}
}
