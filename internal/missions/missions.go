package missions

import (
	"context"
	"errors"
	"time"
)

// Type classifies a mission's cadence and shape.
type Type string

const (
	TypeDaily      Type = "daily"
	TypeWeekly     Type = "weekly"
	TypeGovernance Type = "governance"
	TypeCommunity  Type = "community"
	TypeMilestone  Type = "milestone"
)

// Valid reports whether t is a known mission type.
func (t Type) Valid() bool {
	switch t {
	case TypeDaily, TypeWeekly, TypeGovernance, TypeCommunity, TypeMilestone:
		return true
	}
	return false
}

// Status is the lifecycle state of a mission. The engine never transitions
// state itself; it evaluates accessibility from it.
type Status string

const (
	StatusLocked    Status = "locked"
	StatusAvailable Status = "available"
	StatusExpired   Status = "expired"
)

// ProgressStatus tracks a single user's run through a mission.
type ProgressStatus string

const (
	ProgressInProgress ProgressStatus = "in_progress"
	ProgressCompleted  ProgressStatus = "completed"
)

// Mission is a task users complete for tokens and reputation.
type Mission struct {
	ID                  string    `json:"id"`
	Title               string    `json:"title"`
	Description         string    `json:"description"`
	Type                Type      `json:"type"`
	Status              Status    `json:"status"`
	RewardTokens        int       `json:"reward_tokens"`
	ReputationGain      int       `json:"reputation_gain"`
	MinReputation       int       `json:"min_reputation_required"`
	MinLevel            int       `json:"min_level_required"`
	MaxParticipants     int       `json:"max_participants"` // 0 = unlimited
	CurrentParticipants int       `json:"current_participants"`
	TimeAllowedSeconds  int64     `json:"time_allowed_seconds"`
	ExpiresAt           time.Time `json:"expires_at"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// Progress is the per (user, mission) record.
type Progress struct {
	UserID      string         `json:"user_id"`
	MissionID   string         `json:"mission_id"`
	Status      ProgressStatus `json:"status"`
	Percent     int            `json:"progress"` // 0-100
	StartedAt   time.Time      `json:"started_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
}

// Completion is the closed completion payload. Each mission type requires a
// fixed subset of these fields; anything else a client sends is dropped at
// the JSON boundary.
type Completion struct {
	TaskCompleted      bool   `json:"task_completed,omitempty"`
	MilestoneAchieved  string `json:"milestone_achieved,omitempty"`
	Evidence           string `json:"evidence,omitempty"`
	VoteCast           string `json:"vote_cast,omitempty"`
	ProposalID         string `json:"proposal_id,omitempty"`
	ParticipationProof string `json:"participation_proof,omitempty"`
	ContributionDate   string `json:"contribution_date,omitempty"`
	FinalAchievement   string `json:"final_achievement,omitempty"`
	Summary            string `json:"summary,omitempty"`
}

var (
	ErrMissionNotFound  = errors.New("mission not found")
	ErrMissionExists    = errors.New("mission already exists")
	ErrProgressNotFound = errors.New("mission progress not found")
	ErrAlreadyCompleted = errors.New("mission already completed")
)

// ListFilter narrows List results; zero values mean "any".
type ListFilter struct {
	Type   Type
	Status Status
	Limit  int
}

// Store persists missions and per-user progress.
type Store interface {
	Create(ctx context.Context, m *Mission) error
	Get(ctx context.Context, id string) (*Mission, error)
	Update(ctx context.Context, m *Mission) error
	List(ctx context.Context, filter ListFilter) ([]*Mission, error)

	// IncrementParticipants bumps the participant counter and returns the
	// new count.
	IncrementParticipants(ctx context.Context, id string) (int, error)

	GetProgress(ctx context.Context, userID, missionID string) (*Progress, error)
	UpsertProgress(ctx context.Context, p *Progress) error
	ListProgress(ctx context.Context, userID string) ([]*Progress, error)

	// LastCompletedAt returns the most recent completion time for the pair,
	// or nil if the user never completed the mission.
	LastCompletedAt(ctx context.Context, userID, missionID string) (*time.Time, error)
}
