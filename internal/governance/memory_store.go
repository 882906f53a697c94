package governance

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is a thread-safe in-memory implementation for
// demo/development mode.
type MemoryStore struct {
	mu        sync.RWMutex
	proposals map[string]*Proposal
	// votes is keyed by proposalID then userID.
	votes map[string]map[string]*Vote
}

// NewMemoryStore creates a new in-memory governance store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		proposals: make(map[string]*Proposal),
		votes:     make(map[string]map[string]*Vote),
	}
}

// Compile-time interface check
var _ Store = (*MemoryStore)(nil)

func (m *MemoryStore) CreateProposal(ctx context.Context, p *Proposal) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.proposals[p.ID]; exists {
		return ErrProposalExists
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = p.CreatedAt
	}
	cp := *p
	m.proposals[p.ID] = &cp
	return nil
}

func (m *MemoryStore) GetProposal(ctx context.Context, id string) (*Proposal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.proposals[id]
	if !ok {
		return nil, ErrProposalNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MemoryStore) UpdateProposal(ctx context.Context, p *Proposal) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.proposals[p.ID]; !ok {
		return ErrProposalNotFound
	}
	p.UpdatedAt = time.Now()
	cp := *p
	m.proposals[p.ID] = &cp
	return nil
}

func (m *MemoryStore) ListProposals(ctx context.Context, filter ListFilter) ([]*Proposal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Proposal
	for _, p := range m.proposals {
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})

	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (m *MemoryStore) CountByAuthorSince(ctx context.Context, authorID string, since time.Time) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var n int
	for _, p := range m.proposals {
		if p.AuthorID == authorID && !p.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) CountsByAuthor(ctx context.Context, authorID string) (AuthorCounts, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var counts AuthorCounts
	for _, p := range m.proposals {
		if p.AuthorID != authorID {
			continue
		}
		counts.Total++
		if p.Status == StatusPassed {
			counts.Passed++
		}
	}
	return counts, nil
}

func (m *MemoryStore) CreateVote(ctx context.Context, v *Vote) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	byUser, ok := m.votes[v.ProposalID]
	if !ok {
		byUser = make(map[string]*Vote)
		m.votes[v.ProposalID] = byUser
	}
	if _, voted := byUser[v.UserID]; voted {
		return ErrAlreadyVoted
	}
	if v.CastAt.IsZero() {
		v.CastAt = time.Now()
	}
	cp := *v
	byUser[v.UserID] = &cp
	return nil
}

func (m *MemoryStore) ListVotes(ctx context.Context, proposalID string) ([]*Vote, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Vote
	for _, v := range m.votes[proposalID] {
		cp := *v
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CastAt.Equal(out[j].CastAt) {
			return out[i].CastAt.Before(out[j].CastAt)
		}
		return out[i].UserID < out[j].UserID
	})
	return out, nil
}

func (m *MemoryStore) HasVoted(ctx context.Context, proposalID, userID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, voted := m.votes[proposalID][userID]
	return voted, nil
}

func (m *MemoryStore) CountVotesByUserSince(ctx context.Context, userID string, since time.Time) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var count int
	for _, byUser := range m.votes {
		if v, ok := byUser[userID]; ok && !v.CastAt.Before(since) {
			count++
		}
	}
	return count, nil
}
