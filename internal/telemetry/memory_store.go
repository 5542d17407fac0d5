package telemetry

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// ---------------------------------------------------------------------------
// PlayerMemoryStore
// ---------------------------------------------------------------------------

// PlayerMemoryStore is an in-memory PlayerStore for demo/test use.
type PlayerMemoryStore struct {
	mu      sync.RWMutex
	players map[int64]*Player
	nextID  int64
}

// NewPlayerMemoryStore creates an empty in-memory player store.
func NewPlayerMemoryStore() *PlayerMemoryStore {
	return &PlayerMemoryStore{players: make(map[int64]*Player), nextID: 1}
}

func (s *PlayerMemoryStore) Create(ctx context.Context, p *Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p.ID = s.nextID
	s.nextID++
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	cp := *p
	s.players[p.ID] = &cp
	return nil
}

func (s *PlayerMemoryStore) Get(ctx context.Context, id int64) (*Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.players[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *PlayerMemoryStore) GetByUsername(ctx context.Context, username string) (*Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.players {
		if strings.EqualFold(p.Username, username) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *PlayerMemoryStore) ListByMinRisk(ctx context.Context, min, limit int) ([]*Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*Player
	for _, p := range s.players {
		if p.RiskScore >= min {
			cp := *p
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].RiskScore != result[j].RiskScore {
			return result[i].RiskScore > result[j].RiskScore
		}
		return result[i].ID < result[j].ID
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *PlayerMemoryStore) UpdateRiskScore(ctx context.Context, id int64, score int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.players[id]
	if !ok {
		return ErrNotFound
	}
	p.RiskScore = score
	return nil
}

func (s *PlayerMemoryStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.players), nil
}

func (s *PlayerMemoryStore) CountByMinRisk(ctx context.Context, min int) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, p := range s.players {
		if p.RiskScore >= min {
			count++
		}
	}
	return count, nil
}

func (s *PlayerMemoryStore) AverageRisk(ctx context.Context) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.players) == 0 {
		return 0, nil
	}
	total := 0
	for _, p := range s.players {
		total += p.RiskScore
	}
	return float64(total) / float64(len(s.players)), nil
}

// ---------------------------------------------------------------------------
// SessionMemoryStore
// ---------------------------------------------------------------------------

// SessionMemoryStore is an in-memory SessionStore for demo/test use.
type SessionMemoryStore struct {
	mu       sync.RWMutex
	sessions []*Session
	nextID   int64
}

// NewSessionMemoryStore creates an empty in-memory session store.
func NewSessionMemoryStore() *SessionMemoryStore {
	return &SessionMemoryStore{nextID: 1}
}

func (s *SessionMemoryStore) Create(ctx context.Context, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess.ID = s.nextID
	s.nextID++
	if sess.RecordedAt.IsZero() {
		sess.RecordedAt = time.Now().UTC()
	}
	cp := *sess
	s.sessions = append(s.sessions, &cp)
	return nil
}

func (s *SessionMemoryStore) ListByPlayer(ctx context.Context, playerID int64, limit int) ([]*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*Session
	for _, sess := range s.sessions {
		if sess.PlayerID == playerID {
			cp := *sess
			result = append(result, &cp)
		}
	}
	sortSessionsDesc(result)
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *SessionMemoryStore) ListRecent(ctx context.Context, limit int) ([]*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		cp := *sess
		result = append(result, &cp)
	}
	sortSessionsDesc(result)
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *SessionMemoryStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions), nil
}

func (s *SessionMemoryStore) Averages(ctx context.Context) (SessionAverages, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.sessions) == 0 {
		return SessionAverages{}, nil
	}
	var apm, headshot float64
	for _, sess := range s.sessions {
		apm += float64(sess.ActionsPerMinute)
		headshot += sess.HeadshotRate
	}
	n := float64(len(s.sessions))
	return SessionAverages{
		ActionsPerMinute: apm / n,
		HeadshotRate:     headshot / n,
	}, nil
}

func sortSessionsDesc(sessions []*Session) {
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].RecordedAt.After(sessions[j].RecordedAt)
	})
}

// ---------------------------------------------------------------------------
// EventMemoryStore
// ---------------------------------------------------------------------------

// EventMemoryStore is an in-memory EventStore for demo/test use.
type EventMemoryStore struct {
	mu     sync.RWMutex
	events []*SecurityEvent
	nextID int64
}

// NewEventMemoryStore creates an empty in-memory event store.
func NewEventMemoryStore() *EventMemoryStore {
	return &EventMemoryStore{nextID: 1}
}

func (s *EventMemoryStore) Create(ctx context.Context, e *SecurityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e.ID = s.nextID
	s.nextID++
	if e.DetectedAt.IsZero() {
		e.DetectedAt = time.Now().UTC()
	}
	cp := *e
	s.events = append(s.events, &cp)
	return nil
}

func (s *EventMemoryStore) ListByPlayer(ctx context.Context, playerID int64, limit int) ([]*SecurityEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*SecurityEvent
	for _, e := range s.events {
		if e.PlayerID == playerID {
			cp := *e
			result = append(result, &cp)
		}
	}
	sortEventsDesc(result)
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *EventMemoryStore) ListRecent(ctx context.Context, limit int) ([]*SecurityEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*SecurityEvent, 0, len(s.events))
	for _, e := range s.events {
		cp := *e
		result = append(result, &cp)
	}
	sortEventsDesc(result)
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *EventMemoryStore) LatestByPlayer(ctx context.Context, playerID int64) (*SecurityEvent, error) {
	events, err := s.ListByPlayer(ctx, playerID, 1)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, ErrNotFound
	}
	return events[0], nil
}

func (s *EventMemoryStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events), nil
}

func (s *EventMemoryStore) CountByType(ctx context.Context) ([]PatternCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int)
	for _, e := range s.events {
		counts[e.EventType]++
	}
	result := make([]PatternCount, 0, len(counts))
	for pattern, n := range counts {
		result = append(result, PatternCount{Pattern: pattern, Occurrences: n})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Occurrences != result[j].Occurrences {
			return result[i].Occurrences > result[j].Occurrences
		}
		return result[i].Pattern < result[j].Pattern
	})
	return result, nil
}

func sortEventsDesc(events []*SecurityEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].DetectedAt.After(events[j].DetectedAt)
	})
}
