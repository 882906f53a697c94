package governance

import (
	"context"
	"errors"
	"time"
)

// Governance configuration
const (
	MinReputationToCreate = 250
	MinLevelToCreate      = 3
	VotingDurationHours   = 72
	MinParticipationPct   = 10.0
	SupermajorityPct      = 66.7
	MaxBodyLength         = 5000

	// One proposal per author per week.
	ProposalRateWindow = 7 * 24 * time.Hour
)

// Status is a proposal's lifecycle state.
type Status string

const (
	StatusDraft       Status = "draft"
	StatusActive      Status = "active"
	StatusVoting      Status = "voting"
	StatusPassed      Status = "passed"
	StatusRejected    Status = "rejected"
	StatusImplemented Status = "implemented"
	StatusCancelled   Status = "cancelled"
)

// VoteOption is a ballot choice.
type VoteOption string

const (
	VoteFor     VoteOption = "for"
	VoteAgainst VoteOption = "against"
	VoteAbstain VoteOption = "abstain"
)

// Valid reports whether o is a known ballot choice.
func (o VoteOption) Valid() bool {
	switch o {
	case VoteFor, VoteAgainst, VoteAbstain:
		return true
	}
	return false
}

// Proposal is a governance motion put to a weighted vote.
type Proposal struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Body          string    `json:"body"`
	AuthorID      string    `json:"author_id"`
	Status        Status    `json:"status"`
	OutcomeReason string    `json:"outcome_reason,omitempty"`
	VotingStartAt time.Time `json:"voting_start_at"`
	VotingEndAt   time.Time `json:"voting_end_at"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Vote is one user's weighted ballot on a proposal.
type Vote struct {
	ProposalID  string     `json:"proposal_id"`
	UserID      string     `json:"user_id"`
	Option      VoteOption `json:"vote"`
	VotingPower float64    `json:"voting_power"`
	CastAt      time.Time  `json:"cast_at"`
}

var (
	ErrProposalNotFound = errors.New("proposal not found")
	ErrProposalExists   = errors.New("proposal already exists")
	ErrAlreadyVoted     = errors.New("user already voted on this proposal")
	ErrVotingClosed     = errors.New("voting is not open for this proposal")
	ErrBadTransition    = errors.New("proposal status does not allow this transition")
)

// ListFilter narrows ListProposals; zero values mean "any".
type ListFilter struct {
	Status Status
	Limit  int
}

// AuthorCounts summarizes one author's proposal history.
type AuthorCounts struct {
	Total  int
	Passed int
}

// Store persists proposals and votes.
type Store interface {
	CreateProposal(ctx context.Context, p *Proposal) error
	GetProposal(ctx context.Context, id string) (*Proposal, error)
	UpdateProposal(ctx context.Context, p *Proposal) error
	ListProposals(ctx context.Context, filter ListFilter) ([]*Proposal, error)

	// CountByAuthorSince counts proposals an author created at or after a
	// cutoff; used for the one-per-week rate limit.
	CountByAuthorSince(ctx context.Context, authorID string, since time.Time) (int, error)
	CountsByAuthor(ctx context.Context, authorID string) (AuthorCounts, error)

	// CreateVote fails with ErrAlreadyVoted if the (proposal, user) pair
	// already has a ballot.
	CreateVote(ctx context.Context, v *Vote) error
	ListVotes(ctx context.Context, proposalID string) ([]*Vote, error)
	HasVoted(ctx context.Context, proposalID, userID string) (bool, error)

	// CountVotesByUserSince counts ballots a user cast at or after a
	// cutoff; used for the monthly participation component.
	CountVotesByUserSince(ctx context.Context, userID string, since time.Time) (int, error)
}
