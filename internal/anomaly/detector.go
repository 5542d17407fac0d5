package anomaly

import (
	"fmt"
	"math"
	"sort"

	"github.com/Fakih-Hamid/Game-Security-API-mini-project/internal/telemetry"
)

// improvementWindow is the number of trailing sessions compared against
// the rest of the history by the rapid-improvement rule.
const improvementWindow = 5

// Detector runs the session rule passes. Stateless aside from its
// constructor-time thresholds, so a single instance is safe to share
// across request handlers.
type Detector struct {
	reactionTimeThresholdMS int
	headshotRateThreshold   float64
	improvementMultiplier   float64
	botConsistencyThreshold float64
}

// NewDetector creates a detector with the default thresholds.
func NewDetector() *Detector {
	return &Detector{
		reactionTimeThresholdMS: DefaultReactionTimeThresholdMS,
		headshotRateThreshold:   DefaultHeadshotRateThreshold,
		improvementMultiplier:   DefaultImprovementMultiplier,
		botConsistencyThreshold: DefaultBotConsistencyThreshold,
	}
}

// WithReactionTimeThreshold overrides the reaction-time threshold (ms).
func (d *Detector) WithReactionTimeThreshold(ms int) *Detector {
	d.reactionTimeThresholdMS = ms
	return d
}

// WithHeadshotRateThreshold overrides the headshot-rate threshold.
func (d *Detector) WithHeadshotRateThreshold(rate float64) *Detector {
	d.headshotRateThreshold = rate
	return d
}

// WithImprovementMultiplier overrides the rapid-improvement multiplier.
func (d *Detector) WithImprovementMultiplier(m float64) *Detector {
	d.improvementMultiplier = m
	return d
}

// WithBotConsistencyThreshold overrides the bot-consistency ratio.
func (d *Detector) WithBotConsistencyThreshold(t float64) *Detector {
	d.botConsistencyThreshold = t
	return d
}

// Detect runs all rule passes over the given sessions and returns the
// concatenated findings in pass order. The input is never mutated; an
// empty history yields an empty slice.
func (d *Detector) Detect(sessions []*telemetry.Session) []Finding {
	if len(sessions) == 0 {
		return []Finding{}
	}

	ordered := make([]*telemetry.Session, len(sessions))
	copy(ordered, sessions)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].RecordedAt.Before(ordered[j].RecordedAt)
	})

	findings := []Finding{}
	findings = append(findings, d.detectReactionTimeOutliers(ordered)...)
	findings = append(findings, d.detectHeadshotAnomalies(ordered)...)
	findings = append(findings, d.detectRapidImprovement(ordered)...)
	findings = append(findings, d.detectBotLikePatterns(ordered)...)
	return findings
}

// detectReactionTimeOutliers flags streaks of 3+ consecutive sessions with
// reaction times below the threshold. Once a streak is established, every
// further qualifying session emits its own finding so sustained runs keep
// raising signal.
func (d *Detector) detectReactionTimeOutliers(sessions []*telemetry.Session) []Finding {
	var findings []Finding
	streak := 0
	for _, sess := range sessions {
		if sess.ReactionTimeMS >= d.reactionTimeThresholdMS {
			streak = 0
			continue
		}
		streak++
		if streak < 3 {
			continue
		}
		severity := SeverityMedium
		if sess.ReactionTimeMS < 90 {
			severity = SeverityHigh
		}
		findings = append(findings, Finding{
			Category:  CategoryReactionTime,
			Severity:  severity,
			Detail:    fmt.Sprintf("sustained reaction time under %dms", d.reactionTimeThresholdMS),
			SessionID: sess.ID,
		})
	}
	return findings
}

func (d *Detector) detectHeadshotAnomalies(sessions []*telemetry.Session) []Finding {
	var findings []Finding
	for _, sess := range sessions {
		if sess.HeadshotRate >= d.headshotRateThreshold {
			findings = append(findings, Finding{
				Category:  CategoryHeadshotRate,
				Severity:  SeverityHigh,
				Detail:    fmt.Sprintf("headshot rate %.0f%%", sess.HeadshotRate*100),
				SessionID: sess.ID,
			})
		}
	}
	return findings
}

// detectRapidImprovement compares the mean headshot rate of the most
// recent sessions against the rest of the history. Needs at least two
// full windows of history; a zero historical mean skips the rule.
func (d *Detector) detectRapidImprovement(sessions []*telemetry.Session) []Finding {
	if len(sessions) < improvementWindow*2 {
		return nil
	}

	historical := sessions[:len(sessions)-improvementWindow]
	recent := sessions[len(sessions)-improvementWindow:]

	historicalRate := meanHeadshotRate(historical)
	recentRate := meanHeadshotRate(recent)

	if historicalRate == 0 {
		return nil
	}

	if recentRate >= historicalRate*d.improvementMultiplier {
		return []Finding{{
			Category:  CategoryRapidImprovement,
			Severity:  SeverityMedium,
			Detail:    "headshot performance spiked drastically",
			SessionID: recent[len(recent)-1].ID,
		}}
	}
	return nil
}

// detectBotLikePatterns checks the last 4 sessions for near-identical
// actions-per-minute. The mean absolute deviation is normalized by the
// mean (or 1 when the mean is 0) to get a unitless consistency ratio.
func (d *Detector) detectBotLikePatterns(sessions []*telemetry.Session) []Finding {
	if len(sessions) < 4 {
		return nil
	}

	recent := sessions[len(sessions)-4:]
	var sum float64
	for _, sess := range recent {
		sum += float64(sess.ActionsPerMinute)
	}
	avg := sum / float64(len(recent))

	var deviation float64
	for _, sess := range recent {
		deviation += math.Abs(float64(sess.ActionsPerMinute) - avg)
	}
	deviation /= float64(len(recent))

	divisor := avg
	if divisor == 0 {
		divisor = 1
	}
	ratio := deviation / divisor

	if ratio <= d.botConsistencyThreshold {
		return []Finding{{
			Category:  CategoryBotLike,
			Severity:  SeverityMedium,
			Detail:    "actions per minute extremely consistent",
			SessionID: recent[len(recent)-1].ID,
		}}
	}
	return nil
}

func meanHeadshotRate(sessions []*telemetry.Session) float64 {
	var sum float64
	for _, sess := range sessions {
		sum += sess.HeadshotRate
	}
	return sum / float64(len(sessions))
}
