package users

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newProfile(id, username string) *Profile {
	return &Profile{
		ID:       id,
		Username: username,
		Email:    username + "@example.com",
		Role:     RoleUser,
	}
}

func TestMemoryStoreCreateAndGet(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	p := newProfile("usr_1", "alice")
	if err := store.Create(ctx, p); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if p.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}

	got, err := store.Get(ctx, "usr_1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Username != "alice" {
		t.Errorf("expected username alice, got %s", got.Username)
	}

	// Returned copy must not alias the stored profile.
	got.Username = "mallory"
	again, _ := store.Get(ctx, "usr_1")
	if again.Username != "alice" {
		t.Error("Get returned a reference to internal state")
	}
}

func TestMemoryStoreDuplicates(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Create(ctx, newProfile("usr_1", "alice")); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := store.Create(ctx, newProfile("usr_1", "bob")); !errors.Is(err, ErrUserExists) {
		t.Errorf("expected ErrUserExists for duplicate ID, got %v", err)
	}
	if err := store.Create(ctx, newProfile("usr_2", "alice")); !errors.Is(err, ErrUserExists) {
		t.Errorf("expected ErrUserExists for duplicate username, got %v", err)
	}
}

func TestMemoryStoreGetByUsername(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Create(ctx, newProfile("usr_1", "alice")); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := store.GetByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("GetByUsername failed: %v", err)
	}
	if got.ID != "usr_1" {
		t.Errorf("expected usr_1, got %s", got.ID)
	}

	if _, err := store.GetByUsername(ctx, "nobody"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}

func TestMemoryStoreAddReputation(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Create(ctx, newProfile("usr_1", "alice")); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	total, err := store.AddReputation(ctx, "usr_1", 150)
	if err != nil {
		t.Fatalf("AddReputation failed: %v", err)
	}
	if total != 150 {
		t.Errorf("expected total 150, got %d", total)
	}

	// Deductions clamp at zero rather than going negative.
	total, err = store.AddReputation(ctx, "usr_1", -500)
	if err != nil {
		t.Fatalf("AddReputation failed: %v", err)
	}
	if total != 0 {
		t.Errorf("expected total clamped to 0, got %d", total)
	}

	if _, err := store.AddReputation(ctx, "usr_missing", 10); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}

func TestMemoryStoreStats(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Create(ctx, newProfile("usr_1", "alice")); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// Stats start zeroed for a known user.
	stats, err := store.GetStats(ctx, "usr_1")
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if stats.MissionsCompleted != 0 {
		t.Errorf("expected zero missions, got %d", stats.MissionsCompleted)
	}

	for i := 0; i < 3; i++ {
		if err := store.IncrementStat(ctx, "usr_1", StatMissionsCompleted, 1); err != nil {
			t.Fatalf("IncrementStat failed: %v", err)
		}
	}
	if err := store.IncrementStat(ctx, "usr_1", StatGovernanceVotes, 2); err != nil {
		t.Fatalf("IncrementStat failed: %v", err)
	}

	stats, err = store.GetStats(ctx, "usr_1")
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if stats.MissionsCompleted != 3 || stats.GovernanceVotes != 2 {
		t.Errorf("unexpected stats: %+v", stats)
	}

	if err := store.IncrementStat(ctx, "usr_missing", StatForumPosts, 1); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}

func TestMemoryStoreListOrdering(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	base := time.Now()
	for i, id := range []string{"usr_a", "usr_b", "usr_c"} {
		p := newProfile(id, "user"+id)
		p.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		p.UpdatedAt = p.CreatedAt
		if err := store.Create(ctx, p); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	profiles, err := store.List(ctx, 2)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(profiles) != 2 {
		t.Fatalf("expected 2 profiles, got %d", len(profiles))
	}
	// Newest first.
	if profiles[0].ID != "usr_c" || profiles[1].ID != "usr_b" {
		t.Errorf("unexpected order: %s, %s", profiles[0].ID, profiles[1].ID)
	}

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 3 {
		t.Errorf("expected count 3, got %d", count)
	}
}
