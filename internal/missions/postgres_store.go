package missions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// PostgresStore implements Store backed by PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a mission store over an existing connection pool.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Compile-time interface check
var _ Store = (*PostgresStore)(nil)

const missionColumns = `id, title, description, type, status, reward_tokens, reputation_gain,
	min_reputation, min_level, max_participants, current_participants,
	time_allowed_seconds, expires_at, created_at, updated_at`

func scanMission(row interface{ Scan(...any) error }) (*Mission, error) {
	var m Mission
	err := row.Scan(
		&m.ID, &m.Title, &m.Description, &m.Type, &m.Status,
		&m.RewardTokens, &m.ReputationGain, &m.MinReputation, &m.MinLevel,
		&m.MaxParticipants, &m.CurrentParticipants, &m.TimeAllowedSeconds,
		&m.ExpiresAt, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (p *PostgresStore) Create(ctx context.Context, m *Mission) error {
	now := time.Now()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now

	_, err := p.db.ExecContext(ctx, `
		INSERT INTO missions (`+missionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`, m.ID, m.Title, m.Description, m.Type, m.Status,
		m.RewardTokens, m.ReputationGain, m.MinReputation, m.MinLevel,
		m.MaxParticipants, m.CurrentParticipants, m.TimeAllowedSeconds,
		m.ExpiresAt, m.CreatedAt, m.UpdatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrMissionExists
		}
		return fmt.Errorf("failed to create mission: %w", err)
	}
	return nil
}

func (p *PostgresStore) Get(ctx context.Context, id string) (*Mission, error) {
	row := p.db.QueryRowContext(ctx,
		`SELECT `+missionColumns+` FROM missions WHERE id = $1`, id)
	m, err := scanMission(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMissionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get mission: %w", err)
	}
	return m, nil
}

func (p *PostgresStore) Update(ctx context.Context, m *Mission) error {
	m.UpdatedAt = time.Now()
	res, err := p.db.ExecContext(ctx, `
		UPDATE missions SET
			title = $2, description = $3, type = $4, status = $5,
			reward_tokens = $6, reputation_gain = $7, min_reputation = $8,
			min_level = $9, max_participants = $10, time_allowed_seconds = $11,
			expires_at = $12, updated_at = $13
		WHERE id = $1
	`, m.ID, m.Title, m.Description, m.Type, m.Status,
		m.RewardTokens, m.ReputationGain, m.MinReputation, m.MinLevel,
		m.MaxParticipants, m.TimeAllowedSeconds, m.ExpiresAt, m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update mission: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrMissionNotFound
	}
	return nil
}

func (p *PostgresStore) List(ctx context.Context, filter ListFilter) ([]*Mission, error) {
	query := `SELECT ` + missionColumns + ` FROM missions WHERE 1=1`
	var args []any
	if filter.Type != "" {
		args = append(args, filter.Type)
		query += fmt.Sprintf(" AND type = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	query += " ORDER BY created_at DESC, id"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list missions: %w", err)
	}
	defer rows.Close()

	var out []*Mission
	for rows.Next() {
		m, err := scanMission(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan mission: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (p *PostgresStore) IncrementParticipants(ctx context.Context, id string) (int, error) {
	var count int
	err := p.db.QueryRowContext(ctx, `
		UPDATE missions
		SET current_participants = current_participants + 1, updated_at = NOW()
		WHERE id = $1
		RETURNING current_participants
	`, id).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrMissionNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to increment participants: %w", err)
	}
	return count, nil
}

func (p *PostgresStore) GetProgress(ctx context.Context, userID, missionID string) (*Progress, error) {
	var pr Progress
	err := p.db.QueryRowContext(ctx, `
		SELECT user_id, mission_id, status, progress, started_at, completed_at
		FROM mission_progress
		WHERE user_id = $1 AND mission_id = $2
	`, userID, missionID).Scan(
		&pr.UserID, &pr.MissionID, &pr.Status, &pr.Percent,
		&pr.StartedAt, &pr.CompletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProgressNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get progress: %w", err)
	}
	return &pr, nil
}

func (p *PostgresStore) UpsertProgress(ctx context.Context, pr *Progress) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO mission_progress (user_id, mission_id, status, progress, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, mission_id) DO UPDATE SET
			status = EXCLUDED.status,
			progress = EXCLUDED.progress,
			completed_at = EXCLUDED.completed_at
	`, pr.UserID, pr.MissionID, pr.Status, pr.Percent, pr.StartedAt, pr.CompletedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert progress: %w", err)
	}
	return nil
}

func (p *PostgresStore) ListProgress(ctx context.Context, userID string) ([]*Progress, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT user_id, mission_id, status, progress, started_at, completed_at
		FROM mission_progress
		WHERE user_id = $1
		ORDER BY started_at DESC, mission_id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list progress: %w", err)
	}
	defer rows.Close()

	var out []*Progress
	for rows.Next() {
		var pr Progress
		if err := rows.Scan(&pr.UserID, &pr.MissionID, &pr.Status, &pr.Percent,
			&pr.StartedAt, &pr.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan progress: %w", err)
		}
		out = append(out, &pr)
	}
	return out, rows.Err()
}

func (p *PostgresStore) LastCompletedAt(ctx context.Context, userID, missionID string) (*time.Time, error) {
	var completed sql.NullTime
	err := p.db.QueryRowContext(ctx, `
		SELECT completed_at FROM mission_progress
		WHERE user_id = $1 AND mission_id = $2
	`, userID, missionID).Scan(&completed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get last completion: %w", err)
	}
	if !completed.Valid {
		return nil, nil
	}
	t := completed.Time
	return &t, nil
}
