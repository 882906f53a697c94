package missions

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/portale-hq/portale/internal/tokens"
	"github.com/portale-hq/portale/internal/users"
)

type stubWallet struct {
	credits map[string]int
	fail    bool
}

func (w *stubWallet) Credit(_ context.Context, userID string, amount int, _ string) error {
	if w.fail {
		return errors.New("wallet unavailable")
	}
	if w.credits == nil {
		w.credits = make(map[string]int)
	}
	w.credits[userID] += amount
	return nil
}

func newTestService(t *testing.T) (*Service, Store, users.Store, *stubWallet) {
	t.Helper()
	store := NewMemoryStore()
	profiles := users.NewMemoryStore()
	wallet := &stubWallet{}

	if err := profiles.Create(context.Background(), &users.Profile{
		ID: "usr_1", Username: "alice", Email: "alice@example.com",
		Reputation: 1500, // level 1
	}); err != nil {
		t.Fatalf("seed profile: %v", err)
	}

	svc := NewService(store, profiles, wallet, nil, nil, slog.Default())
	return svc, store, profiles, wallet
}

func seedMission(t *testing.T, store Store, m *Mission) {
	t.Helper()
	if err := store.Create(context.Background(), m); err != nil {
		t.Fatalf("seed mission: %v", err)
	}
}

func TestServiceStartAndComplete(t *testing.T) {
	svc, store, profiles, wallet := newTestService(t)
	ctx := context.Background()
	seedMission(t, store, baseMission(TypeDaily))

	progress, err := svc.Start(ctx, "usr_1", "msn_test")
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if progress.Status != ProgressInProgress {
		t.Errorf("status = %s, want in_progress", progress.Status)
	}

	m, _ := store.Get(ctx, "msn_test")
	if m.CurrentParticipants != 1 {
		t.Errorf("participants = %d, want 1", m.CurrentParticipants)
	}

	result, err := svc.Complete(ctx, "usr_1", "msn_test",
		Completion{TaskCompleted: true}, 30*time.Minute)
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	// 30min of 60min allowed → 1.5x of the 100 token reward.
	if result.Bonus.Multiplier != 1.5 || result.Bonus.TotalReward != 150 {
		t.Errorf("bonus = %+v, want 1.5x/150", result.Bonus)
	}
	if wallet.credits["usr_1"] != 150 {
		t.Errorf("wallet credit = %d, want 150", wallet.credits["usr_1"])
	}
	if result.ReputationGain != 50 {
		t.Errorf("reputation gain = %d, want 50", result.ReputationGain)
	}
	if result.NewReputation != 1550 {
		t.Errorf("new reputation = %d, want 1550", result.NewReputation)
	}

	profile, _ := profiles.Get(ctx, "usr_1")
	if profile.Reputation != 1550 {
		t.Errorf("stored reputation = %d, want 1550", profile.Reputation)
	}
	stats, _ := profiles.GetStats(ctx, "usr_1")
	if stats.MissionsCompleted != 1 {
		t.Errorf("missions completed stat = %d, want 1", stats.MissionsCompleted)
	}
}

func TestServiceCompleteRespectsCooldown(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	ctx := context.Background()
	seedMission(t, store, baseMission(TypeDaily))

	if _, err := svc.Complete(ctx, "usr_1", "msn_test",
		Completion{TaskCompleted: true}, 30*time.Minute); err != nil {
		t.Fatalf("first completion failed: %v", err)
	}

	_, err := svc.Complete(ctx, "usr_1", "msn_test",
		Completion{TaskCompleted: true}, 30*time.Minute)
	var denied *AccessDeniedError
	if !errors.As(err, &denied) {
		t.Fatalf("expected AccessDeniedError, got %v", err)
	}
	if denied.Check.Reason != ReasonCooldownActive {
		t.Errorf("reason = %s, want cooldown_active", denied.Check.Reason)
	}
	if denied.Check.HoursRemaining != 24 {
		t.Errorf("hours remaining = %d, want 24", denied.Check.HoursRemaining)
	}
}

func TestServiceCompleteRejectsBadPayload(t *testing.T) {
	svc, store, _, wallet := newTestService(t)
	ctx := context.Background()
	seedMission(t, store, baseMission(TypeWeekly))

	_, err := svc.Complete(ctx, "usr_1", "msn_test", Completion{}, time.Minute)
	var invalid *InvalidCompletionError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidCompletionError, got %v", err)
	}
	if len(invalid.Missing) != 2 {
		t.Errorf("missing = %v, want 2 fields", invalid.Missing)
	}
	if len(wallet.credits) != 0 {
		t.Error("no tokens should move on invalid completion")
	}
}

func TestServiceCompleteDeniesUnderleveledUser(t *testing.T) {
	svc, store, profiles, _ := newTestService(t)
	ctx := context.Background()

	m := baseMission(TypeDaily)
	m.MinReputation = 99999
	seedMission(t, store, m)

	_, err := svc.Complete(ctx, "usr_1", "msn_test",
		Completion{TaskCompleted: true}, time.Minute)
	var denied *AccessDeniedError
	if !errors.As(err, &denied) {
		t.Fatalf("expected AccessDeniedError, got %v", err)
	}
	if denied.Check.Reason != ReasonInsufficientReputation {
		t.Errorf("reason = %s, want insufficient_reputation", denied.Check.Reason)
	}

	// Reputation untouched on denial.
	profile, _ := profiles.Get(ctx, "usr_1")
	if profile.Reputation != 1500 {
		t.Errorf("reputation = %d, want 1500", profile.Reputation)
	}
}

func TestServiceAvailableFiltersCatalog(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	ctx := context.Background()

	reachable := baseMission(TypeDaily)
	reachable.ID = "msn_easy"
	seedMission(t, store, reachable)

	outOfReach := baseMission(TypeWeekly)
	outOfReach.ID = "msn_hard"
	outOfReach.MinReputation = 99999
	seedMission(t, store, outOfReach)

	locked := baseMission(TypeCommunity)
	locked.ID = "msn_locked"
	locked.Status = StatusLocked
	seedMission(t, store, locked)

	got, err := svc.Available(ctx, "usr_1")
	if err != nil {
		t.Fatalf("Available failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != "msn_easy" {
		t.Errorf("available = %v, want [msn_easy]", got)
	}
}

func TestServiceAvailableSkipsCompletedDaily(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	ctx := context.Background()
	seedMission(t, store, baseMission(TypeDaily))

	if _, err := svc.Complete(ctx, "usr_1", "msn_test",
		Completion{TaskCompleted: true}, time.Minute); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	got, err := svc.Available(ctx, "usr_1")
	if err != nil {
		t.Fatalf("Available failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty list after daily completion, got %d", len(got))
	}
}

func TestServiceSuggest(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	ctx := context.Background()

	daily := baseMission(TypeDaily)
	daily.ID = "msn_daily"
	seedMission(t, store, daily)

	milestone := baseMission(TypeMilestone)
	milestone.ID = "msn_milestone"
	seedMission(t, store, milestone)

	got, err := svc.Suggest(ctx, "usr_1")
	if err != nil {
		t.Fatalf("Suggest failed: %v", err)
	}
	if got == nil || got.ID != "msn_milestone" {
		t.Errorf("suggested %v, want msn_milestone", got)
	}
}

func TestServiceListFilterStatusOnly(t *testing.T) {
	_, store, _, _ := newTestService(t)
	ctx := context.Background()

	available := baseMission(TypeDaily)
	available.ID = "msn_a"
	seedMission(t, store, available)

	locked := baseMission(TypeDaily)
	locked.ID = "msn_b"
	locked.Status = StatusLocked
	seedMission(t, store, locked)

	got, err := store.List(ctx, ListFilter{Status: StatusAvailable})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != "msn_a" {
		t.Errorf("list = %v, want [msn_a]", got)
	}
}

func TestCompleteFallsBackToTypeReward(t *testing.T) {
	svc, store, _, wallet := newTestService(t)
	ctx := context.Background()

	m := baseMission(TypeWeekly)
	m.RewardTokens = 0
	seedMission(t, store, m)

	if _, err := svc.Start(ctx, "usr_1", "msn_test"); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	// 45min of 60min allowed → no speed multiplier.
	result, err := svc.Complete(ctx, "usr_1", "msn_test",
		Completion{MilestoneAchieved: "sprint goal", Evidence: "shipped"}, 45*time.Minute)
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	if result.Bonus.BaseReward != tokens.MissionWeeklyReward {
		t.Errorf("base reward = %d, want the weekly default %d",
			result.Bonus.BaseReward, tokens.MissionWeeklyReward)
	}
	if wallet.credits["usr_1"] != tokens.MissionWeeklyReward {
		t.Errorf("wallet credit = %d, want %d",
			wallet.credits["usr_1"], tokens.MissionWeeklyReward)
	}
}
