package tokens

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-memory Store for development and tests.
type MemoryStore struct {
	mu           sync.RWMutex
	wallets      map[string]*Wallet
	transactions map[string][]*Transaction
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory token store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		wallets:      make(map[string]*Wallet),
		transactions: make(map[string][]*Transaction),
	}
}

func (s *MemoryStore) GetWallet(_ context.Context, userID string) (*Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.wallets[userID]
	if !ok {
		return nil, ErrWalletNotFound
	}
	cp := *w
	return &cp, nil
}

func (s *MemoryStore) UpsertWallet(_ context.Context, w *Wallet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *w
	s.wallets[w.UserID] = &cp
	return nil
}

func (s *MemoryStore) RecordTransaction(_ context.Context, tx *Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *tx
	s.transactions[tx.UserID] = append(s.transactions[tx.UserID], &cp)
	return nil
}

func (s *MemoryStore) ListTransactions(_ context.Context, userID string, limit int) ([]*Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.transactions[userID]
	out := make([]*Transaction, 0, len(entries))
	for _, tx := range entries {
		cp := *tx
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) TotalDistributed(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := 0
	for _, w := range s.wallets {
		total += w.TotalEarned
	}
	return total, nil
}
