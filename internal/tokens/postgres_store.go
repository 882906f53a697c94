package tokens

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

// NewPostgresStore creates a token store over an existing connection pool.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Compile-time interface check
var _ Store = (*PostgresStore)(nil)

func (s *PostgresStore) GetWallet(ctx context.Context, userID string) (*Wallet, error) {
	var w Wallet
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, balance, staked, total_earned, total_spent, staked_at, updated_at
		FROM wallets
		WHERE user_id = $1
	`, userID).Scan(&w.UserID, &w.Balance, &w.Staked, &w.TotalEarned,
		&w.TotalSpent, &w.StakedAt, &w.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return &w, nil
}

func (s *PostgresStore) UpsertWallet(ctx context.Context, w *Wallet) error {
	w.UpdatedAt = time.Now()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO wallets (user_id, balance, staked, total_earned, total_spent, staked_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id) DO UPDATE SET
			balance = EXCLUDED.balance,
			staked = EXCLUDED.staked,
			total_earned = EXCLUDED.total_earned,
			total_spent = EXCLUDED.total_spent,
			staked_at = EXCLUDED.staked_at,
			updated_at = EXCLUDED.updated_at
	`, w.UserID, w.Balance, w.Staked, w.TotalEarned, w.TotalSpent, w.StakedAt, w.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert wallet: %w", err)
	}
	return nil
}

func (s *PostgresStore) RecordTransaction(ctx context.Context, tx *Transaction) error {
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions (id, user_id, amount, type, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, tx.ID, tx.UserID, tx.Amount, tx.Type, tx.Description, tx.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record transaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListTransactions(ctx context.Context, userID string, limit int) ([]*Transaction, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, amount, type, description, created_at
		FROM transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var out []*Transaction
	for rows.Next() {
		var tx Transaction
		if err := rows.Scan(&tx.ID, &tx.UserID, &tx.Amount, &tx.Type,
			&tx.Description, &tx.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		out = append(out, &tx)
	}
	return out, rows.Err()
}

func (s *PostgresStore) TotalDistributed(ctx context.Context) (int, error) {
	var total int
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(total_earned), 0) FROM wallets
	`).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum distributed tokens: %w", err)
	}
	return total, nil
}
