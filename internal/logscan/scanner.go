// Package logscan ranks players by suspicion from batches of raw,
// loosely-structured gameplay log rows.
//
// Rows arrive with arbitrary subsets of fields, so every metric is
// optional; a missing field is simply an absent signal, never an error.
package logscan

import (
	"fmt"
	"sort"
	"strings"
)

// Trigger thresholds for the per-row checks.
const (
	DefaultReactionThresholdMS = 110
	DefaultHeadshotThreshold   = 0.9
	DefaultMovementSpeedLimit  = 1.8
	DefaultSuspicionThreshold  = 5
)

// Suspicion weights added to a player's score per triggered check.
const (
	scoreHeadshotSpike      = 2
	scoreImpossibleReaction = 3
	scoreFlaggedAction      = 4
	scoreSpeedAnomaly       = 2
	scoreManualFlag         = 1
)

// Row is one raw log entry. Pointer fields are optional: nil means the
// row did not carry that metric and the corresponding check is skipped.
type Row struct {
	PlayerID       *int64   `json:"player_id"`
	Action         string   `json:"action"`
	HeadshotRate   *float64 `json:"headshot_rate"`
	ReactionTimeMS *int     `json:"reaction_time_ms"`
	MovementSpeed  *float64 `json:"movement_speed"`
	ManualFlag     bool     `json:"manual_flag"`
}

// Result is the outcome of scanning one batch of log rows.
type Result struct {
	// SuspiciousPlayers holds player IDs whose accumulated suspicion
	// score met the threshold, highest score first.
	SuspiciousPlayers []int64 `json:"suspicious_players"`
	// AnomalyCounts maps anomaly category to its occurrence count
	// across the whole batch.
	AnomalyCounts map[string]int `json:"anomaly_counts"`
	// Insights are human-readable observations about the batch.
	Insights []string `json:"insights"`
}

// Scanner scans raw log rows for cheat signals. Stateless aside from its
// thresholds; a shared instance is safe for concurrent use.
type Scanner struct {
	reactionThresholdMS int
	headshotThreshold   float64
	movementSpeedLimit  float64
	suspicionThreshold  int
	flaggedActions      map[string]bool
}

// NewScanner creates a scanner with the default thresholds and the
// standard flagged-action set.
func NewScanner() *Scanner {
	return &Scanner{
		reactionThresholdMS: DefaultReactionThresholdMS,
		headshotThreshold:   DefaultHeadshotThreshold,
		movementSpeedLimit:  DefaultMovementSpeedLimit,
		suspicionThreshold:  DefaultSuspicionThreshold,
		flaggedActions: map[string]bool{
			"wallhack_trigger": true,
			"aimbot_lock":      true,
			"speed_hack":       true,
		},
	}
}

// WithSuspicionThreshold overrides the score a player must accumulate to
// be reported as suspicious.
func (sc *Scanner) WithSuspicionThreshold(t int) *Scanner {
	sc.suspicionThreshold = t
	return sc
}

// Scan accumulates per-player suspicion scores and per-category counts
// over the batch, then reports players at or above the suspicion
// threshold. Rows without a player ID are skipped. The checks are
// independent; a single row can trigger several of them.
func (sc *Scanner) Scan(rows []Row) Result {
	scores := make(map[int64]int)
	counts := make(map[string]int)
	// Track first-seen order of players and categories so ranking and
	// tie-breaks stay deterministic across runs.
	var playerOrder []int64
	var categoryOrder []string

	bump := func(category string, n int) {
		if counts[category] == 0 {
			categoryOrder = append(categoryOrder, category)
		}
		counts[category] += n
	}

	for _, row := range rows {
		if row.PlayerID == nil {
			continue
		}
		playerID := *row.PlayerID
		if _, seen := scores[playerID]; !seen {
			playerOrder = append(playerOrder, playerID)
			scores[playerID] = 0
		}

		if row.HeadshotRate != nil && *row.HeadshotRate >= sc.headshotThreshold {
			bump("headshot_spike", 1)
			scores[playerID] += scoreHeadshotSpike
		}

		if row.ReactionTimeMS != nil && *row.ReactionTimeMS < sc.reactionThresholdMS {
			bump("impossible_reaction", 1)
			scores[playerID] += scoreImpossibleReaction
		}

		if action := strings.ToLower(row.Action); sc.flaggedActions[action] {
			bump(action, 1)
			scores[playerID] += scoreFlaggedAction
		}

		if row.MovementSpeed != nil && *row.MovementSpeed > sc.movementSpeedLimit {
			bump("speed_anomaly", 1)
			scores[playerID] += scoreSpeedAnomaly
		}

		if row.ManualFlag {
			bump("manual_flag", 1)
			scores[playerID] += scoreManualFlag
		}
	}

	var suspicious []int64
	for _, playerID := range playerOrder {
		if scores[playerID] >= sc.suspicionThreshold {
			suspicious = append(suspicious, playerID)
		}
	}
	// Descending score, first-seen order on ties.
	sort.SliceStable(suspicious, func(i, j int) bool {
		return scores[suspicious[i]] > scores[suspicious[j]]
	})

	var insights []string
	if len(suspicious) > 0 {
		insights = append(insights,
			fmt.Sprintf("%d players exceeded the suspicion threshold", len(suspicious)))
	}
	if len(counts) > 0 {
		top := categoryOrder[0]
		for _, category := range categoryOrder[1:] {
			if counts[category] > counts[top] {
				top = category
			}
		}
		insights = append(insights, fmt.Sprintf("Most common signal: %s", top))
	}

	return Result{
		SuspiciousPlayers: suspicious,
		AnomalyCounts:     counts,
		Insights:          insights,
	}
}
