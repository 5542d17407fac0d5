// Package anomaly detects suspicious behaviour patterns in a player's
// session history.
//
// Detection runs four independent rule passes over the chronologically
// ordered sessions: sustained inhuman reaction times, headshot rate spikes,
// sudden skill jumps, and bot-like input consistency. Each hit produces a
// Finding tied to one session; the threat scorer turns findings into risk.
package anomaly

// Category identifies which detection rule produced a finding.
type Category string

const (
	CategoryReactionTime     Category = "reaction_time"
	CategoryHeadshotRate     Category = "headshot_rate"
	CategoryRapidImprovement Category = "rapid_improvement"
	CategoryBotLike          Category = "bot_like"
)

// Severity is the ordinal strength of a finding.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Finding is a single anomaly observation tied to one session.
type Finding struct {
	Category  Category `json:"category"`
	Severity  Severity `json:"severity"`
	Detail    string   `json:"detail"`
	SessionID int64    `json:"session_id"`
}

// Default detection thresholds.
const (
	DefaultReactionTimeThresholdMS = 110
	DefaultHeadshotRateThreshold   = 0.9
	DefaultImprovementMultiplier   = 1.6
	DefaultBotConsistencyThreshold = 0.05
)
