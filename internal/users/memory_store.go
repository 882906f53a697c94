package users

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is a thread-safe in-memory implementation for
// demo/development mode.
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]*Profile
	stats    map[string]*Stats
}

// NewMemoryStore creates a new in-memory user store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		profiles: make(map[string]*Profile),
		stats:    make(map[string]*Stats),
	}
}

// Compile-time interface check
var _ Store = (*MemoryStore)(nil)

func (m *MemoryStore) Create(ctx context.Context, p *Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.profiles[p.ID]; exists {
		return ErrUserExists
	}
	for _, existing := range m.profiles {
		if existing.Username == p.Username {
			return ErrUserExists
		}
	}

	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = p.CreatedAt
	}
	if p.Role == "" {
		p.Role = RoleUser
	}

	cp := *p
	m.profiles[p.ID] = &cp
	m.stats[p.ID] = &Stats{UserID: p.ID}
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.profiles[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MemoryStore) GetByUsername(ctx context.Context, username string) (*Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, p := range m.profiles {
		if p.Username == username {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrUserNotFound
}

func (m *MemoryStore) Update(ctx context.Context, p *Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.profiles[p.ID]; !ok {
		return ErrUserNotFound
	}
	p.UpdatedAt = time.Now()
	cp := *p
	m.profiles[p.ID] = &cp
	return nil
}

func (m *MemoryStore) List(ctx context.Context, limit int) ([]*Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	profiles := make([]*Profile, 0, len(m.profiles))
	for _, p := range m.profiles {
		cp := *p
		profiles = append(profiles, &cp)
	}
	// Deterministic order: newest first, ID as tiebreaker.
	sort.Slice(profiles, func(i, j int) bool {
		if profiles[i].CreatedAt.Equal(profiles[j].CreatedAt) {
			return profiles[i].ID < profiles[j].ID
		}
		return profiles[i].CreatedAt.After(profiles[j].CreatedAt)
	})
	if limit > 0 && len(profiles) > limit {
		profiles = profiles[:limit]
	}
	return profiles, nil
}

func (m *MemoryStore) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.profiles), nil
}

func (m *MemoryStore) AddReputation(ctx context.Context, id string, delta int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.profiles[id]
	if !ok {
		return 0, ErrUserNotFound
	}
	p.Reputation += delta
	if p.Reputation < 0 {
		p.Reputation = 0
	}
	p.UpdatedAt = time.Now()
	return p.Reputation, nil
}

func (m *MemoryStore) GetStats(ctx context.Context, id string) (*Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.stats[id]
	if !ok {
		if _, exists := m.profiles[id]; !exists {
			return nil, ErrUserNotFound
		}
		return &Stats{UserID: id}, nil
	}
	cp := *s
	return &cp, nil
}

func (m *MemoryStore) IncrementStat(ctx context.Context, id string, field StatField, delta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.profiles[id]; !ok {
		return ErrUserNotFound
	}
	s, ok := m.stats[id]
	if !ok {
		s = &Stats{UserID: id}
		m.stats[id] = s
	}

	switch field {
	case StatMissionsCompleted:
		s.MissionsCompleted += delta
	case StatGovernanceVotes:
		s.GovernanceVotes += delta
	case StatProposalsCreated:
		s.ProposalsCreated += delta
	case StatForumPosts:
		s.ForumPosts += delta
	}
	return nil
}

func (m *MemoryStore) ListStats(ctx context.Context, limit int) ([]*Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := make([]*Stats, 0, len(m.stats))
	for _, s := range m.stats {
		cp := *s
		stats = append(stats, &cp)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].UserID < stats[j].UserID })
	if limit > 0 && len(stats) > limit {
		stats = stats[:limit]
	}
	return stats, nil
}
