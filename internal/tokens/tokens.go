// Package tokens implements the platform token economy: wallets, a
// transaction ledger, reward sizing, and staking.
package tokens

import (
	"context"
	"errors"
	"time"
)

// Domain errors
var (
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrInsufficientBalance = errors.New("insufficient token balance")
	ErrInsufficientStake   = errors.New("insufficient staked tokens")
	ErrInvalidAmount       = errors.New("amount must be positive")
)

// TransactionType classifies ledger entries.
type TransactionType string

const (
	TxReward  TransactionType = "reward"
	TxSpend   TransactionType = "spend"
	TxStake   TransactionType = "stake"
	TxUnstake TransactionType = "unstake"
	TxClaim   TransactionType = "claim"
)

// Wallet holds a user's token position.
type Wallet struct {
	UserID      string     `json:"user_id"`
	Balance     int        `json:"token_balance"`
	Staked      int        `json:"staked_tokens"`
	TotalEarned int        `json:"total_earned"`
	TotalSpent  int        `json:"total_spent"`
	StakedAt    *time.Time `json:"staked_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Transaction is one ledger entry. Amount is always positive; Type carries
// the direction.
type Transaction struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	Amount      int             `json:"amount"`
	Type        TransactionType `json:"type"`
	Description string          `json:"description"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Store persists wallets and the transaction ledger.
type Store interface {
	// GetWallet returns the user's wallet, or ErrWalletNotFound.
	GetWallet(ctx context.Context, userID string) (*Wallet, error)
	// UpsertWallet writes the wallet, creating it if absent.
	UpsertWallet(ctx context.Context, w *Wallet) error
	// RecordTransaction appends a ledger entry.
	RecordTransaction(ctx context.Context, tx *Transaction) error
	// ListTransactions returns a user's ledger entries, newest first.
	ListTransactions(ctx context.Context, userID string, limit int) ([]*Transaction, error)
	// TotalDistributed sums reward amounts across all wallets.
	TotalDistributed(ctx context.Context) (int, error)
}
