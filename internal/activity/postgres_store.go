package activity

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// PostgresStore implements Store backed by PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates an activity store over an existing connection
// pool.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Compile-time interface check
var _ Store = (*PostgresStore)(nil)

func (s *PostgresStore) Append(ctx context.Context, e *Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO activity_feed (id, user_id, kind, message, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, e.ID, e.UserID, e.Kind, e.Message, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append activity: %w", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, limit int, opts ...ListOption) ([]*Entry, error) {
	o := applyListOpts(opts)
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, user_id, kind, message, created_at
		FROM activity_feed
		WHERE 1=1`
	args := []any{}
	n := 0

	if o.userID != "" {
		n++
		query += fmt.Sprintf(" AND user_id = $%d", n)
		args = append(args, o.userID)
	}
	if o.kind != "" {
		n++
		query += fmt.Sprintf(" AND kind = $%d", n)
		args = append(args, o.kind)
	}
	if o.cursor != nil {
		query += fmt.Sprintf(" AND (created_at, id) < ($%d, $%d)", n+1, n+2)
		args = append(args, o.cursor.CreatedAt, o.cursor.ID)
		n += 2
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d", n+1)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}
	defer rows.Close()

	var out []*Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Kind, &e.Message, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}
