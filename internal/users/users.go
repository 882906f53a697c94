// Package users manages user profiles and activity counters.
//
// A profile is the durable record behind every engine input: cumulative
// reputation, activity streak, and the per-user counters (missions,
// votes, proposals) that feed ranking. Engines never mutate profiles;
// services apply deltas here after an engine verdict.
package users

import (
	"context"
	"errors"
	"time"
)

// Errors
var (
	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("user already exists")
	ErrFrozen       = errors.New("user account is frozen")
)

// Role controls access to the admin surface.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Profile is a platform user.
type Profile struct {
	ID         string    `json:"id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	Bio        string    `json:"bio,omitempty"`
	AvatarURL  string    `json:"avatarUrl,omitempty"`
	Role       Role      `json:"role"`
	Reputation int       `json:"reputation"`
	StreakDays int       `json:"streakDays"`
	Frozen     bool      `json:"frozen"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Stats are per-user activity counters consumed by the ranking engine.
type Stats struct {
	UserID            string `json:"userId"`
	MissionsCompleted int    `json:"missionsCompleted"`
	GovernanceVotes   int    `json:"governanceVotes"`
	ProposalsCreated  int    `json:"proposalsCreated"`
	ForumPosts        int    `json:"forumPosts"`
}

// StatField names a single counter in Stats.
type StatField string

const (
	StatMissionsCompleted StatField = "missions_completed"
	StatGovernanceVotes   StatField = "governance_votes"
	StatProposalsCreated  StatField = "proposals_created"
	StatForumPosts        StatField = "forum_posts"
)

// Store persists profiles and counters.
type Store interface {
	Create(ctx context.Context, p *Profile) error
	Get(ctx context.Context, id string) (*Profile, error)
	GetByUsername(ctx context.Context, username string) (*Profile, error)
	Update(ctx context.Context, p *Profile) error
	List(ctx context.Context, limit int) ([]*Profile, error)
	Count(ctx context.Context) (int, error)

	// AddReputation atomically applies a reputation delta and returns the
	// new total. Negative results clamp to zero.
	AddReputation(ctx context.Context, id string, delta int) (int, error)

	GetStats(ctx context.Context, id string) (*Stats, error)
	IncrementStat(ctx context.Context, id string, field StatField, delta int) error
	ListStats(ctx context.Context, limit int) ([]*Stats, error)
}
