package missions

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/portale-hq/portale/internal/metrics"
	"github.com/portale-hq/portale/internal/reputation"
	"github.com/portale-hq/portale/internal/tokens"
	"github.com/portale-hq/portale/internal/traces"
	"github.com/portale-hq/portale/internal/users"
)

// TokenCrediter credits mission rewards to a user's wallet. Implemented by
// the tokens service.
type TokenCrediter interface {
	Credit(ctx context.Context, userID string, amount int, source string) error
}

// EventPublisher broadcasts platform events to live subscribers.
type EventPublisher interface {
	Publish(eventType string, payload any)
}

// ActivityRecorder appends entries to the activity feed.
type ActivityRecorder interface {
	Record(ctx context.Context, userID, kind, message string)
}

// AccessDeniedError carries the structured verdict when a mission cannot be
// taken. Handlers render it as-is instead of a generic error string.
type AccessDeniedError struct {
	Check AccessCheck
}

func (e *AccessDeniedError) Error() string { return e.Check.Message }

// InvalidCompletionError lists every missing payload field.
type InvalidCompletionError struct {
	Missing []string
}

func (e *InvalidCompletionError) Error() string {
	return fmt.Sprintf("completion payload missing fields: %v", e.Missing)
}

// Service orchestrates mission participation: eligibility, completion,
// reward credit and reputation gain.
type Service struct {
	store    Store
	profiles users.Store
	wallet   TokenCrediter
	events   EventPublisher
	activity ActivityRecorder
	logger   *slog.Logger
	locks    sync.Map // per (user, mission) mutex
}

// NewService creates a mission service. events and activity may be nil.
func NewService(store Store, profiles users.Store, wallet TokenCrediter, events EventPublisher, activity ActivityRecorder, logger *slog.Logger) *Service {
	return &Service{
		store:    store,
		profiles: profiles,
		wallet:   wallet,
		events:   events,
		activity: activity,
		logger:   logger,
	}
}

func (s *Service) lockFor(userID, missionID string) *sync.Mutex {
	v, _ := s.locks.LoadOrStore(userID+"/"+missionID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// CheckAccess evaluates mission eligibility for a user without mutating
// anything.
func (s *Service) CheckAccess(ctx context.Context, userID, missionID string) (AccessCheck, error) {
	mission, err := s.store.Get(ctx, missionID)
	if err != nil {
		return AccessCheck{}, err
	}
	profile, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return AccessCheck{}, err
	}
	last, err := s.store.LastCompletedAt(ctx, userID, missionID)
	if err != nil {
		return AccessCheck{}, err
	}

	check := CanAccess(mission, profile.Reputation, reputation.Level(profile.Reputation), last, time.Now())
	if !check.Allowed {
		metrics.MissionAccessDeniedTotal.WithLabelValues(string(check.Reason)).Inc()
	}
	return check, nil
}

// Start begins a mission for a user. The participant counter is bumped on
// first start only; restarting an in-progress mission is a no-op.
func (s *Service) Start(ctx context.Context, userID, missionID string) (*Progress, error) {
	ctx, span := traces.StartSpan(ctx, "missions.Start",
		traces.UserID(userID), traces.MissionID(missionID))
	defer span.End()

	mu := s.lockFor(userID, missionID)
	mu.Lock()
	defer mu.Unlock()

	check, err := s.CheckAccess(ctx, userID, missionID)
	if err != nil {
		return nil, err
	}
	if !check.Allowed {
		return nil, &AccessDeniedError{Check: check}
	}

	if existing, err := s.store.GetProgress(ctx, userID, missionID); err == nil &&
		existing.Status == ProgressInProgress {
		return existing, nil
	}

	progress := &Progress{
		UserID:    userID,
		MissionID: missionID,
		Status:    ProgressInProgress,
		StartedAt: time.Now(),
	}
	if err := s.store.UpsertProgress(ctx, progress); err != nil {
		return nil, err
	}
	if _, err := s.store.IncrementParticipants(ctx, missionID); err != nil {
		s.logger.Warn("WARNING: failed to bump participant count",
			"mission_id", missionID, "error", err)
	}

	s.logger.Info("mission started", "user_id", userID, "mission_id", missionID)
	return progress, nil
}

// CompletionResult is what a successful completion pays out.
type CompletionResult struct {
	Progress       *Progress `json:"progress"`
	Bonus          Bonus     `json:"bonus"`
	ReputationGain int       `json:"reputation_gain"`
	NewReputation  int       `json:"new_reputation"`
	NewLevel       int       `json:"new_level"`
}

// Complete finishes a mission: validates eligibility and the completion
// payload, then credits tokens and reputation. Serialized per
// (user, mission) so double-submits cannot double-pay.
func (s *Service) Complete(ctx context.Context, userID, missionID string, payload Completion, timeSpent time.Duration) (*CompletionResult, error) {
	ctx, span := traces.StartSpan(ctx, "missions.Complete",
		traces.UserID(userID), traces.MissionID(missionID))
	defer span.End()

	mu := s.lockFor(userID, missionID)
	mu.Lock()
	defer mu.Unlock()

	mission, err := s.store.Get(ctx, missionID)
	if err != nil {
		return nil, err
	}
	profile, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	last, err := s.store.LastCompletedAt(ctx, userID, missionID)
	if err != nil {
		return nil, err
	}

	check := CanAccess(mission, profile.Reputation, reputation.Level(profile.Reputation), last, time.Now())
	if !check.Allowed {
		metrics.MissionAccessDeniedTotal.WithLabelValues(string(check.Reason)).Inc()
		return nil, &AccessDeniedError{Check: check}
	}

	if valid, missing := ValidateCompletion(mission.Type, payload); !valid {
		return nil, &InvalidCompletionError{Missing: missing}
	}

	baseReward := mission.RewardTokens
	if baseReward == 0 {
		baseReward = tokens.MissionReward(string(mission.Type))
	}
	bonus := CompletionBonus(baseReward, timeSpent,
		time.Duration(mission.TimeAllowedSeconds)*time.Second)

	now := time.Now()
	progress := &Progress{
		UserID:      userID,
		MissionID:   missionID,
		Status:      ProgressCompleted,
		Percent:     100,
		StartedAt:   now.Add(-timeSpent),
		CompletedAt: &now,
	}
	if existing, err := s.store.GetProgress(ctx, userID, missionID); err == nil {
		progress.StartedAt = existing.StartedAt
	}
	if err := s.store.UpsertProgress(ctx, progress); err != nil {
		return nil, err
	}

	repGain := mission.ReputationGain
	if repGain == 0 {
		repGain = reputation.Gain(reputation.ActionMissionComplete)
	}
	newTotal, err := s.profiles.AddReputation(ctx, userID, repGain)
	if err != nil {
		s.logger.Error("CRITICAL: mission completed but reputation credit failed",
			"user_id", userID, "mission_id", missionID, "error", err)
		return nil, err
	}

	if err := s.wallet.Credit(ctx, userID, bonus.TotalReward, "mission_"+string(mission.Type)); err != nil {
		s.logger.Error("CRITICAL: mission completed but token credit failed",
			"user_id", userID, "mission_id", missionID,
			"amount", bonus.TotalReward, "error", err)
		return nil, err
	}

	if err := s.profiles.IncrementStat(ctx, userID, users.StatMissionsCompleted, 1); err != nil {
		s.logger.Warn("WARNING: failed to increment mission stat",
			"user_id", userID, "error", err)
	}

	metrics.MissionsCompletedTotal.WithLabelValues(string(mission.Type)).Inc()
	metrics.TokensDistributedTotal.WithLabelValues("mission").Add(float64(bonus.TotalReward))

	if s.events != nil {
		s.events.Publish("mission_completed", map[string]any{
			"user_id":    userID,
			"mission_id": missionID,
			"type":       mission.Type,
			"reward":     bonus.TotalReward,
		})
	}
	if s.activity != nil {
		s.activity.Record(ctx, userID, "mission_completed",
			fmt.Sprintf("Completed mission %q for %d tokens", mission.Title, bonus.TotalReward))
	}

	s.logger.Info("mission completed",
		"user_id", userID,
		"mission_id", missionID,
		"type", mission.Type,
		"reward", bonus.TotalReward,
		"reputation_gain", repGain)

	return &CompletionResult{
		Progress:       progress,
		Bonus:          bonus,
		ReputationGain: repGain,
		NewReputation:  newTotal,
		NewLevel:       reputation.Level(newTotal),
	}, nil
}

// Available lists missions the user can currently take.
func (s *Service) Available(ctx context.Context, userID string) ([]*Mission, error) {
	profile, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	all, err := s.store.List(ctx, ListFilter{Status: StatusAvailable})
	if err != nil {
		return nil, err
	}
	progress, err := s.store.ListProgress(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	completedDaily := make(map[string]bool)
	lastCompleted := make(map[string]time.Time)
	for _, p := range progress {
		if p.CompletedAt == nil {
			continue
		}
		lastCompleted[p.MissionID] = *p.CompletedAt
		if now.Sub(*p.CompletedAt) < 24*time.Hour {
			completedDaily[p.MissionID] = true
		}
	}

	return FilterAvailable(all, profile.Reputation, reputation.Level(profile.Reputation),
		completedDaily, lastCompleted, now), nil
}

// Suggest recommends the next mission for a user, favoring types not done
// recently. Returns nil when nothing is available.
func (s *Service) Suggest(ctx context.Context, userID string) (*Mission, error) {
	available, err := s.Available(ctx, userID)
	if err != nil {
		return nil, err
	}

	progress, err := s.store.ListProgress(ctx, userID)
	if err != nil {
		return nil, err
	}
	var recent []Type
	for _, p := range progress {
		if len(recent) >= 5 {
			break
		}
		if p.CompletedAt == nil {
			continue
		}
		if m, err := s.store.Get(ctx, p.MissionID); err == nil {
			recent = append(recent, m.Type)
		}
	}

	return SuggestNext(available, recent), nil
}
