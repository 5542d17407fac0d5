package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ---------------------------------------------------------------------------
// PlayerPostgresStore
// ---------------------------------------------------------------------------

// PlayerPostgresStore persists players in PostgreSQL.
type PlayerPostgresStore struct {
	db *sql.DB
}

// NewPlayerPostgresStore creates a PostgreSQL-backed player store.
func NewPlayerPostgresStore(db *sql.DB) *PlayerPostgresStore {
	return &PlayerPostgresStore{db: db}
}

// Migrate creates the players table if it doesn't exist.
func (s *PlayerPostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS players (
			id          BIGSERIAL PRIMARY KEY,
			username    VARCHAR(80) NOT NULL UNIQUE,
			risk_score  INTEGER NOT NULL DEFAULT 0 CHECK (risk_score >= 0 AND risk_score <= 100),
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_players_risk_score
			ON players (risk_score DESC);
	`)
	return err
}

func (s *PlayerPostgresStore) Create(ctx context.Context, p *Player) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO players (username, risk_score, created_at)
		VALUES ($1, $2, COALESCE($3, NOW()))
		RETURNING id, created_at
	`, p.Username, p.RiskScore, nullableTime(p.CreatedAt)).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create player: %w", err)
	}
	return nil
}

func (s *PlayerPostgresStore) Get(ctx context.Context, id int64) (*Player, error) {
	var p Player
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, risk_score, created_at
		FROM players
		WHERE id = $1
	`, id).Scan(&p.ID, &p.Username, &p.RiskScore, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get player: %w", err)
	}
	return &p, nil
}

func (s *PlayerPostgresStore) GetByUsername(ctx context.Context, username string) (*Player, error) {
	var p Player
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, risk_score, created_at
		FROM players
		WHERE LOWER(username) = LOWER($1)
	`, username).Scan(&p.ID, &p.Username, &p.RiskScore, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get player by username: %w", err)
	}
	return &p, nil
}

func (s *PlayerPostgresStore) ListByMinRisk(ctx context.Context, min, limit int) ([]*Player, error) {
	if limit <= 0 {
		limit = 25
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, username, risk_score, created_at
		FROM players
		WHERE risk_score >= $1
		ORDER BY risk_score DESC, id ASC
		LIMIT $2
	`, min, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*Player
	for rows.Next() {
		var p Player
		if err := rows.Scan(&p.ID, &p.Username, &p.RiskScore, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		result = append(result, &p)
	}
	return result, rows.Err()
}

func (s *PlayerPostgresStore) UpdateRiskScore(ctx context.Context, id int64, score int) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE players SET risk_score = $2 WHERE id = $1
	`, id, score)
	if err != nil {
		return fmt.Errorf("failed to update risk score: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PlayerPostgresStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM players`).Scan(&count)
	return count, err
}

func (s *PlayerPostgresStore) CountByMinRisk(ctx context.Context, min int) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM players WHERE risk_score >= $1
	`, min).Scan(&count)
	return count, err
}

func (s *PlayerPostgresStore) AverageRisk(ctx context.Context) (float64, error) {
	var avg sql.NullFloat64
	err := s.db.QueryRowContext(ctx, `SELECT AVG(risk_score) FROM players`).Scan(&avg)
	if err != nil {
		return 0, err
	}
	return avg.Float64, nil
}

// ---------------------------------------------------------------------------
// SessionPostgresStore
// ---------------------------------------------------------------------------

// SessionPostgresStore persists game sessions in PostgreSQL.
type SessionPostgresStore struct {
	db *sql.DB
}

// NewSessionPostgresStore creates a PostgreSQL-backed session store.
func NewSessionPostgresStore(db *sql.DB) *SessionPostgresStore {
	return &SessionPostgresStore{db: db}
}

// Migrate creates the game_sessions table if it doesn't exist.
func (s *SessionPostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS game_sessions (
			id                  BIGSERIAL PRIMARY KEY,
			player_id           BIGINT NOT NULL REFERENCES players(id) ON DELETE CASCADE,
			duration_minutes    INTEGER NOT NULL CHECK (duration_minutes >= 0),
			actions_per_minute  INTEGER NOT NULL CHECK (actions_per_minute >= 0),
			headshot_rate       DOUBLE PRECISION NOT NULL CHECK (headshot_rate >= 0 AND headshot_rate <= 1),
			reaction_time_ms    INTEGER NOT NULL CHECK (reaction_time_ms >= 0),
			recorded_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_game_sessions_player_recorded
			ON game_sessions (player_id, recorded_at DESC);
	`)
	return err
}

func (s *SessionPostgresStore) Create(ctx context.Context, sess *Session) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO game_sessions
			(player_id, duration_minutes, actions_per_minute, headshot_rate, reaction_time_ms, recorded_at)
		VALUES ($1, $2, $3, $4, $5, COALESCE($6, NOW()))
		RETURNING id, recorded_at
	`,
		sess.PlayerID,
		sess.DurationMinutes,
		sess.ActionsPerMinute,
		sess.HeadshotRate,
		sess.ReactionTimeMS,
		nullableTime(sess.RecordedAt),
	).Scan(&sess.ID, &sess.RecordedAt)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (s *SessionPostgresStore) ListByPlayer(ctx context.Context, playerID int64, limit int) ([]*Session, error) {
	query := `
		SELECT id, player_id, duration_minutes, actions_per_minute, headshot_rate, reaction_time_ms, recorded_at
		FROM game_sessions
		WHERE player_id = $1
		ORDER BY recorded_at DESC`
	args := []any{playerID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanSessions(rows)
}

func (s *SessionPostgresStore) ListRecent(ctx context.Context, limit int) ([]*Session, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, player_id, duration_minutes, actions_per_minute, headshot_rate, reaction_time_ms, recorded_at
		FROM game_sessions
		ORDER BY recorded_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanSessions(rows)
}

func (s *SessionPostgresStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM game_sessions`).Scan(&count)
	return count, err
}

func (s *SessionPostgresStore) Averages(ctx context.Context) (SessionAverages, error) {
	var apm, headshot sql.NullFloat64
	err := s.db.QueryRowContext(ctx, `
		SELECT AVG(actions_per_minute), AVG(headshot_rate) FROM game_sessions
	`).Scan(&apm, &headshot)
	if err != nil {
		return SessionAverages{}, err
	}
	return SessionAverages{
		ActionsPerMinute: apm.Float64,
		HeadshotRate:     headshot.Float64,
	}, nil
}

func scanSessions(rows *sql.Rows) ([]*Session, error) {
	var result []*Session
	for rows.Next() {
		var sess Session
		if err := rows.Scan(
			&sess.ID,
			&sess.PlayerID,
			&sess.DurationMinutes,
			&sess.ActionsPerMinute,
			&sess.HeadshotRate,
			&sess.ReactionTimeMS,
			&sess.RecordedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		result = append(result, &sess)
	}
	return result, rows.Err()
}

// ---------------------------------------------------------------------------
// EventPostgresStore
// ---------------------------------------------------------------------------

// EventPostgresStore persists security events in PostgreSQL.
type EventPostgresStore struct {
	db *sql.DB
}

// NewEventPostgresStore creates a PostgreSQL-backed event store.
func NewEventPostgresStore(db *sql.DB) *EventPostgresStore {
	return &EventPostgresStore{db: db}
}

// Migrate creates the security_events table if it doesn't exist.
func (s *EventPostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS security_events (
			id           BIGSERIAL PRIMARY KEY,
			player_id    BIGINT NOT NULL REFERENCES players(id) ON DELETE CASCADE,
			event_type   VARCHAR(120) NOT NULL,
			severity     VARCHAR(20) NOT NULL,
			detected_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			notes        TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_security_events_player_detected
			ON security_events (player_id, detected_at DESC);

		CREATE INDEX IF NOT EXISTS idx_security_events_type
			ON security_events (event_type);
	`)
	return err
}

func (s *EventPostgresStore) Create(ctx context.Context, e *SecurityEvent) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO security_events (player_id, event_type, severity, detected_at, notes)
		VALUES ($1, $2, $3, COALESCE($4, NOW()), NULLIF($5, ''))
		RETURNING id, detected_at
	`,
		e.PlayerID,
		e.EventType,
		e.Severity,
		nullableTime(e.DetectedAt),
		e.Notes,
	).Scan(&e.ID, &e.DetectedAt)
	if err != nil {
		return fmt.Errorf("failed to create security event: %w", err)
	}
	return nil
}

func (s *EventPostgresStore) ListByPlayer(ctx context.Context, playerID int64, limit int) ([]*SecurityEvent, error) {
	query := `
		SELECT id, player_id, event_type, severity, detected_at, COALESCE(notes, '')
		FROM security_events
		WHERE player_id = $1
		ORDER BY detected_at DESC`
	args := []any{playerID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list security events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanEvents(rows)
}

func (s *EventPostgresStore) ListRecent(ctx context.Context, limit int) ([]*SecurityEvent, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, player_id, event_type, severity, detected_at, COALESCE(notes, '')
		FROM security_events
		ORDER BY detected_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent security events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanEvents(rows)
}

func (s *EventPostgresStore) LatestByPlayer(ctx context.Context, playerID int64) (*SecurityEvent, error) {
	events, err := s.ListByPlayer(ctx, playerID, 1)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, ErrNotFound
	}
	return events[0], nil
}

func (s *EventPostgresStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM security_events`).Scan(&count)
	return count, err
}

func (s *EventPostgresStore) CountByType(ctx context.Context) ([]PatternCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT event_type, COUNT(*) AS occurrences
		FROM security_events
		GROUP BY event_type
		ORDER BY occurrences DESC, event_type ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to count events by type: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []PatternCount
	for rows.Next() {
		var pc PatternCount
		if err := rows.Scan(&pc.Pattern, &pc.Occurrences); err != nil {
			return nil, fmt.Errorf("failed to scan pattern count: %w", err)
		}
		result = append(result, pc)
	}
	return result, rows.Err()
}

func scanEvents(rows *sql.Rows) ([]*SecurityEvent, error) {
	var result []*SecurityEvent
	for rows.Next() {
		var e SecurityEvent
		if err := rows.Scan(&e.ID, &e.PlayerID, &e.EventType, &e.Severity, &e.DetectedAt, &e.Notes); err != nil {
			return nil, fmt.Errorf("failed to scan security event: %w", err)
		}
		result = append(result, &e)
	}
	return result, rows.Err()
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
