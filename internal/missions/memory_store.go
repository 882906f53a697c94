package missions

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
	missions map[string]*Mission
	// progress is keyed by userID then missionID.
	progress map[string]map[string]*Progress
}

// NewMemoryStore creates a new in-memory mission store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		missions: make(map[string]*Mission),
		progress: make(map[string]map[string]*Progress),
	}
}

// Compile-time interface check
var _ Store = (*MemoryStore)(nil)

func (m *MemoryStore) Create(ctx context.Context, mission *Mission) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.missions[mission.ID]; exists {
		return ErrMissionExists
	}
	if mission.CreatedAt.IsZero() {
		mission.CreatedAt = time.Now()
	}
	if mission.UpdatedAt.IsZero() {
		mission.UpdatedAt = mission.CreatedAt
	}
	cp := *mission
	m.missions[mission.ID] = &cp
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*Mission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	mission, ok := m.missions[id]
	if !ok {
		return nil, ErrMissionNotFound
	}
	cp := *mission
	return &cp, nil
}

func (m *MemoryStore) Update(ctx context.Context, mission *Mission) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.missions[mission.ID]; !ok {
		return ErrMissionNotFound
	}
	mission.UpdatedAt = time.Now()
	cp := *mission
	m.missions[mission.ID] = &cp
	return nil
}

func (m *MemoryStore) List(ctx context.Context, filter ListFilter) ([]*Mission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Mission
	for _, mission := range m.missions {
		if filter.Type != "" && mission.Type != filter.Type {
			continue
		}
		if filter.Status != "" && mission.Status != filter.Status {
			continue
		}
		cp := *mission
		out = append(out, &cp)
	}

	// Newest first, ID as tiebreak for deterministic paging.
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

func (m *MemoryStore) IncrementParticipants(ctx context.Context, id string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	mission, ok := m.missions[id]
	if !ok {
		return 0, ErrMissionNotFound
	}
	mission.CurrentParticipants++
	mission.UpdatedAt = time.Now()
	return mission.CurrentParticipants, nil
}

func (m *MemoryStore) GetProgress(ctx context.Context, userID, missionID string) (*Progress, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.progress[userID][missionID]
	if !ok {
		return nil, ErrProgressNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MemoryStore) UpsertProgress(ctx context.Context, p *Progress) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	byMission, ok := m.progress[p.UserID]
	if !ok {
		byMission = make(map[string]*Progress)
		m.progress[p.UserID] = byMission
	}
	cp := *p
	byMission[p.MissionID] = &cp
	return nil
}

func (m *MemoryStore) ListProgress(ctx context.Context, userID string) ([]*Progress, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Progress
	for _, p := range m.progress[userID] {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].StartedAt.After(out[j].StartedAt)
		}
		return out[i].MissionID < out[j].MissionID
	})
	return out, nil
}

func (m *MemoryStore) LastCompletedAt(ctx context.Context, userID, missionID string) (*time.Time, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.progress[userID][missionID]
	if !ok || p.CompletedAt == nil {
		return nil, nil
	}
	t := *p.CompletedAt
	return &t, nil
}
