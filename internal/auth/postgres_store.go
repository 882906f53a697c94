package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// PostgresStore implements Store backed by PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates an auth store over an existing connection pool.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Compile-time interface check
var _ Store = (*PostgresStore)(nil)

func (p *PostgresStore) CreateAccessCode(ctx context.Context, code *AccessCode) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO access_codes (id, hash, user_id, created_at, revoked)
		VALUES ($1, $2, $3, $4, $5)
	`, code.ID, code.Hash, code.UserID, code.CreatedAt, code.Revoked)
	if err != nil {
		return fmt.Errorf("failed to create access code: %w", err)
	}
	return nil
}

func (p *PostgresStore) GetAccessCodeByHash(ctx context.Context, hash string) (*AccessCode, error) {
	var code AccessCode
	err := p.db.QueryRowContext(ctx, `
		SELECT id, hash, user_id, created_at, revoked
		FROM access_codes WHERE hash = $1
	`, hash).Scan(&code.ID, &code.Hash, &code.UserID, &code.CreatedAt, &code.Revoked)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidAccessKey
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get access code: %w", err)
	}
	return &code, nil
}

func (p *PostgresStore) RevokeAccessCodes(ctx context.Context, userID string) error {
	_, err := p.db.ExecContext(ctx,
		`UPDATE access_codes SET revoked = TRUE WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("failed to revoke access codes: %w", err)
	}
	return nil
}

func (p *PostgresStore) CreateSession(ctx context.Context, s *Session) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO sessions (id, hash, user_id, created_at, expires_at, last_seen, revoked)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, s.ID, s.Hash, s.UserID, s.CreatedAt, s.ExpiresAt, s.LastSeen, s.Revoked)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (p *PostgresStore) GetSessionByHash(ctx context.Context, hash string) (*Session, error) {
	var s Session
	err := p.db.QueryRowContext(ctx, `
		SELECT id, hash, user_id, created_at, expires_at, last_seen, revoked
		FROM sessions WHERE hash = $1
	`, hash).Scan(&s.ID, &s.Hash, &s.UserID, &s.CreatedAt, &s.ExpiresAt, &s.LastSeen, &s.Revoked)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &s, nil
}

func (p *PostgresStore) UpdateSession(ctx context.Context, s *Session) error {
	res, err := p.db.ExecContext(ctx, `
		UPDATE sessions SET last_seen = $2, revoked = $3 WHERE id = $1
	`, s.ID, s.LastSeen, s.Revoked)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (p *PostgresStore) DeleteExpiredSessions(ctx context.Context, before time.Time) (int, error) {
	res, err := p.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE expires_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
