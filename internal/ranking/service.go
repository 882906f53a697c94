package ranking

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"

	"github.com/portale-hq/portale/internal/metrics"
	"github.com/portale-hq/portale/internal/traces"
	"github.com/portale-hq/portale/internal/users"
)

// ErrUserNotRanked is returned when a user has no leaderboard entry.
var ErrUserNotRanked = errors.New("user not ranked")

// maxLeaderboardUsers bounds how many profiles a single build considers.
const maxLeaderboardUsers = 10000

// EventPublisher broadcasts platform events to live subscribers.
type EventPublisher interface {
	Publish(eventType string, payload any)
}

// Service builds leaderboards from the user store and tracks rank movement
// between builds.
type Service struct {
	profiles users.Store
	events   EventPublisher
	logger   *slog.Logger

	mu        sync.Mutex
	prevRanks map[string]int
}

// NewService creates a ranking service. events may be nil.
func NewService(profiles users.Store, events EventPublisher, logger *slog.Logger) *Service {
	return &Service{
		profiles:  profiles,
		events:    events,
		logger:    logger,
		prevRanks: make(map[string]int),
	}
}

// Leaderboard scores every user and returns the ranked entries. Milestone
// crossings since the previous build are published as events.
func (s *Service) Leaderboard(ctx context.Context) ([]Entry, error) {
	ctx, span := traces.StartSpan(ctx, "ranking.Leaderboard")
	defer span.End()

	profiles, err := s.profiles.List(ctx, maxLeaderboardUsers)
	if err != nil {
		return nil, err
	}
	stats, err := s.profiles.ListStats(ctx, maxLeaderboardUsers)
	if err != nil {
		return nil, err
	}

	statsByUser := make(map[string]*users.Stats, len(stats))
	for _, st := range stats {
		statsByUser[st.UserID] = st
	}

	inputs := make([]Input, 0, len(profiles))
	for _, p := range profiles {
		in := Input{
			UserID:     p.ID,
			Username:   p.Username,
			AvatarURL:  p.AvatarURL,
			Reputation: p.Reputation,
		}
		if st, ok := statsByUser[p.ID]; ok {
			in.MissionsCompleted = st.MissionsCompleted
			in.GovernanceVotes = st.GovernanceVotes
			in.ProposalsCreated = st.ProposalsCreated
		}
		inputs = append(inputs, in)
	}

	entries := BuildLeaderboard(inputs)
	s.noteRanks(ctx, entries)
	return entries, nil
}

// noteRanks records the new ranks and publishes milestone crossings.
func (s *Service) noteRanks(ctx context.Context, entries []Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range entries {
		prev := s.prevRanks[e.UserID]
		if check := MilestoneCrossed(prev, e.Rank); check.HitMilestone {
			metrics.RankMilestonesTotal.WithLabelValues(strconv.Itoa(check.Milestone)).Inc()
			s.logger.Info("rank milestone crossed",
				"user_id", e.UserID,
				"milestone", check.Milestone,
				"rank", e.Rank)
			if s.events != nil {
				s.events.Publish("rank_milestone", map[string]any{
					"user_id":      e.UserID,
					"milestone":    check.Milestone,
					"rank":         e.Rank,
					"notification": check.Notification,
				})
			}
		}
		s.prevRanks[e.UserID] = e.Rank
	}
}

// UserRank returns a user's leaderboard entry and movement since the
// previous build.
func (s *Service) UserRank(ctx context.Context, userID string) (Entry, Progress, error) {
	s.mu.Lock()
	prev := s.prevRanks[userID]
	s.mu.Unlock()

	entries, err := s.Leaderboard(ctx)
	if err != nil {
		return Entry{}, Progress{}, err
	}
	for _, e := range entries {
		if e.UserID == userID {
			return e, RankProgress(e.Rank, prev), nil
		}
	}
	return Entry{}, Progress{}, ErrUserNotRanked
}

// CompareUsers contrasts two users' current scores.
func (s *Service) CompareUsers(ctx context.Context, userID1, userID2 string) (Comparison, error) {
	entries, err := s.Leaderboard(ctx)
	if err != nil {
		return Comparison{}, err
	}

	var e1, e2 *Entry
	for i := range entries {
		switch entries[i].UserID {
		case userID1:
			e1 = &entries[i]
		case userID2:
			e2 = &entries[i]
		}
	}
	if e1 == nil || e2 == nil {
		return Comparison{}, ErrUserNotRanked
	}
	return Compare(e1.Username, e1.TotalScore, e2.Username, e2.TotalScore), nil
}

// UserReport builds the leaderboard summary centered on one user.
func (s *Service) UserReport(ctx context.Context, userID string) (Report, error) {
	entries, err := s.Leaderboard(ctx)
	if err != nil {
		return Report{}, err
	}
	for _, e := range entries {
		if e.UserID == userID {
			return BuildReport(entries, e.Rank), nil
		}
	}
	return Report{}, ErrUserNotRanked
}
