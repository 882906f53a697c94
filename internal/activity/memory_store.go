package activity

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-memory Store for development and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []*Entry
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory feed.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Append(_ context.Context, e *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *e
	s.entries = append(s.entries, &cp)
	return nil
}

func (s *MemoryStore) List(_ context.Context, limit int, opts ...ListOption) ([]*Entry, error) {
	o := applyListOpts(opts)

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Entry, 0, len(s.entries))
	for _, e := range s.entries {
		if o.userID != "" && e.UserID != o.userID {
			continue
		}
		if o.kind != "" && e.Kind != o.kind {
			continue
		}
		cp := *e
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})

	if o.cursor != nil {
		idx := 0
		for i, e := range out {
			if e.CreatedAt.Before(o.cursor.CreatedAt) ||
				(e.CreatedAt.Equal(o.cursor.CreatedAt) && e.ID < o.cursor.ID) {
				idx = i
				break
			}
			idx = len(out)
		}
		out = out[idx:]
	}

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
