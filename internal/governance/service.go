package governance

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/portale-hq/portale/internal/idgen"
	"github.com/portale-hq/portale/internal/metrics"
	"github.com/portale-hq/portale/internal/reputation"
	"github.com/portale-hq/portale/internal/tokens"
	"github.com/portale-hq/portale/internal/traces"
	"github.com/portale-hq/portale/internal/users"
)

// BalanceProvider reports a user's liquid and staked token holdings for
// voting-weight computation and credits participation bonuses. Implemented
// by the tokens service.
type BalanceProvider interface {
	Holdings(ctx context.Context, userID string) (balance, staked int, err error)
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

// CreateDeniedError carries the structured verdict when a user may not
// create a proposal.
type CreateDeniedError struct {
	Check CreateCheck
}

func (e *CreateDeniedError) Error() string { return e.Check.Message }

// InvalidContentError lists every violated content rule.
type InvalidContentError struct {
	Errors []string
}

func (e *InvalidContentError) Error() string {
	return fmt.Sprintf("invalid proposal content: %v", e.Errors)
}

// Service orchestrates governance: proposal creation, weighted voting and
// outcome finalization.
type Service struct {
	store         Store
	profiles      users.Store
	balances      BalanceProvider
	events        EventPublisher
	activity      ActivityRecorder
	logger        *slog.Logger
	eligibleFloor int
	locks         sync.Map // per-proposal ID locks
}

// NewService creates a governance service. eligibleFloor bounds the
// eligible-voter denominator from below so small test communities cannot
// pass proposals with a handful of votes. events and activity may be nil.
func NewService(store Store, profiles users.Store, balances BalanceProvider, events EventPublisher, activity ActivityRecorder, eligibleFloor int, logger *slog.Logger) *Service {
	return &Service{
		store:         store,
		profiles:      profiles,
		balances:      balances,
		events:        events,
		activity:      activity,
		eligibleFloor: eligibleFloor,
		logger:        logger,
	}
}

func (s *Service) lockFor(proposalID string) *sync.Mutex {
	v, _ := s.locks.LoadOrStore(proposalID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// CreateProposal validates eligibility and content, then opens the
// 72-hour voting window.
func (s *Service) CreateProposal(ctx context.Context, authorID, title, description, body string) (*Proposal, error) {
	ctx, span := traces.StartSpan(ctx, "governance.CreateProposal", traces.UserID(authorID))
	defer span.End()

	profile, err := s.profiles.Get(ctx, authorID)
	if err != nil {
		return nil, err
	}

	check := CanCreateProposal(profile.Reputation, reputation.Level(profile.Reputation))
	if !check.Allowed {
		return nil, &CreateDeniedError{Check: check}
	}

	recent, err := s.store.CountByAuthorSince(ctx, authorID, time.Now().Add(-ProposalRateWindow))
	if err != nil {
		return nil, err
	}
	if recent > 0 {
		return nil, &CreateDeniedError{Check: CreateCheck{
			Reason:  ReasonRateLimited,
			Message: "You may create at most one proposal per week",
		}}
	}

	if valid, errs := ValidateContent(title, description, body); !valid {
		return nil, &InvalidContentError{Errors: errs}
	}

	now := time.Now()
	proposal := &Proposal{
		ID:            idgen.WithPrefix("prp_"),
		Title:         title,
		Description:   description,
		Body:          body,
		AuthorID:      authorID,
		Status:        StatusVoting,
		VotingStartAt: now,
		VotingEndAt:   now.Add(VotingDurationHours * time.Hour),
	}
	if err := s.store.CreateProposal(ctx, proposal); err != nil {
		return nil, err
	}

	if err := s.profiles.IncrementStat(ctx, authorID, users.StatProposalsCreated, 1); err != nil {
		s.logger.Warn("WARNING: failed to increment proposal stat",
			"user_id", authorID, "error", err)
	}
	if _, err := s.profiles.AddReputation(ctx, authorID,
		reputation.Gain(reputation.ActionContribution)); err != nil {
		s.logger.Warn("WARNING: failed to credit proposal reputation",
			"user_id", authorID, "error", err)
	}

	if s.activity != nil {
		s.activity.Record(ctx, authorID, "proposal_created",
			fmt.Sprintf("Created proposal %q", title))
	}

	s.logger.Info("proposal created",
		"proposal_id", proposal.ID,
		"author_id", authorID,
		"voting_ends", proposal.VotingEndAt)
	return proposal, nil
}

// CastVote records a weighted ballot. One vote per user per proposal;
// serialized per proposal so concurrent ballots cannot race finalization.
func (s *Service) CastVote(ctx context.Context, proposalID, userID string, option VoteOption) (*Vote, error) {
	ctx, span := traces.StartSpan(ctx, "governance.CastVote",
		traces.UserID(userID), traces.ProposalID(proposalID))
	defer span.End()

	mu := s.lockFor(proposalID)
	mu.Lock()
	defer mu.Unlock()

	proposal, err := s.store.GetProposal(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	lc := Lifecycle(proposal, time.Now())
	if lc.CurrentPhase != PhaseVoting || !lc.VotingStarted || lc.VotingEnded {
		return nil, ErrVotingClosed
	}

	if voted, err := s.store.HasVoted(ctx, proposalID, userID); err != nil {
		return nil, err
	} else if voted {
		return nil, ErrAlreadyVoted
	}

	profile, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	balance, staked, err := s.balances.Holdings(ctx, userID)
	if err != nil {
		return nil, err
	}

	vote := &Vote{
		ProposalID:  proposalID,
		UserID:      userID,
		Option:      option,
		VotingPower: VotingWeight(profile.Reputation, balance, staked),
		CastAt:      time.Now(),
	}
	if err := s.store.CreateVote(ctx, vote); err != nil {
		return nil, err
	}

	metrics.VotesCastTotal.WithLabelValues(string(option)).Inc()

	if err := s.balances.Credit(ctx, userID, tokens.GovernanceVoteBonus, "governance vote"); err != nil {
		s.logger.Warn("WARNING: failed to credit vote bonus",
			"user_id", userID, "proposal_id", proposalID, "error", err)
	} else {
		metrics.TokensDistributedTotal.WithLabelValues("governance_vote").Add(float64(tokens.GovernanceVoteBonus))
	}

	if err := s.profiles.IncrementStat(ctx, userID, users.StatGovernanceVotes, 1); err != nil {
		s.logger.Warn("WARNING: failed to increment vote stat",
			"user_id", userID, "error", err)
	}
	if _, err := s.profiles.AddReputation(ctx, userID,
		reputation.Gain(reputation.ActionVoting)); err != nil {
		s.logger.Warn("WARNING: failed to credit voting reputation",
			"user_id", userID, "error", err)
	}

	if s.events != nil {
		s.events.Publish("vote_cast", map[string]any{
			"proposal_id":  proposalID,
			"user_id":      userID,
			"vote":         option,
			"voting_power": vote.VotingPower,
		})
	}

	s.logger.Info("vote cast",
		"proposal_id", proposalID,
		"user_id", userID,
		"vote", option,
		"voting_power", vote.VotingPower)
	return vote, nil
}

// Results tallies the current ballots without finalizing.
func (s *Service) Results(ctx context.Context, proposalID string) (Tally, error) {
	votes, err := s.store.ListVotes(ctx, proposalID)
	if err != nil {
		return Tally{}, err
	}
	return TallyVotes(votes), nil
}

// eligibleVoters is the denominator for participation: the registered user
// count, floored by configuration.
func (s *Service) eligibleVoters(ctx context.Context) int {
	count, err := s.profiles.Count(ctx)
	if err != nil {
		s.logger.Warn("WARNING: failed to count eligible voters, using floor", "error", err)
		return s.eligibleFloor
	}
	if count < s.eligibleFloor {
		return s.eligibleFloor
	}
	return count
}

// Finalize closes voting and writes the outcome. Idempotent: an already
// decided proposal is returned as-is.
func (s *Service) Finalize(ctx context.Context, proposalID string) (*Proposal, Outcome, error) {
	ctx, span := traces.StartSpan(ctx, "governance.Finalize", traces.ProposalID(proposalID))
	defer span.End()

	mu := s.lockFor(proposalID)
	mu.Lock()
	defer mu.Unlock()

	proposal, err := s.store.GetProposal(ctx, proposalID)
	if err != nil {
		return nil, Outcome{}, err
	}
	switch proposal.Status {
	case StatusPassed, StatusRejected, StatusImplemented, StatusCancelled:
		return proposal, Outcome{
			Status: proposal.Status,
			Passed: proposal.Status == StatusPassed || proposal.Status == StatusImplemented,
			Reason: proposal.OutcomeReason,
		}, nil
	}

	votes, err := s.store.ListVotes(ctx, proposalID)
	if err != nil {
		return nil, Outcome{}, err
	}
	outcome := DetermineOutcome(TallyVotes(votes), s.eligibleVoters(ctx))

	proposal.Status = outcome.Status
	proposal.OutcomeReason = outcome.Reason
	if err := s.store.UpdateProposal(ctx, proposal); err != nil {
		return nil, Outcome{}, err
	}

	metrics.ProposalsFinalizedTotal.WithLabelValues(string(outcome.Status)).Inc()

	if s.events != nil {
		s.events.Publish("proposal_finalized", map[string]any{
			"proposal_id": proposalID,
			"status":      outcome.Status,
			"reason":      outcome.Reason,
		})
	}
	if s.activity != nil {
		s.activity.Record(ctx, proposal.AuthorID, "proposal_finalized",
			fmt.Sprintf("Proposal %q %s: %s", proposal.Title, outcome.Status, outcome.Reason))
	}

	s.logger.Info("proposal finalized",
		"proposal_id", proposalID,
		"status", outcome.Status,
		"reason", outcome.Reason)
	return proposal, outcome, nil
}

// FinalizeDue finalizes every voting proposal whose window has closed.
// Run on a timer.
func (s *Service) FinalizeDue(ctx context.Context) (int, error) {
	open, err := s.store.ListProposals(ctx, ListFilter{Status: StatusVoting})
	if err != nil {
		return 0, err
	}

	now := time.Now()
	var finalized int
	for _, p := range open {
		if now.Before(p.VotingEndAt) {
			continue
		}
		if _, _, err := s.Finalize(ctx, p.ID); err != nil {
			s.logger.Error("CRITICAL: failed to finalize due proposal",
				"proposal_id", p.ID, "error", err)
			continue
		}
		finalized++
	}
	return finalized, nil
}

// MarkImplemented records that a passed proposal has been carried out.
func (s *Service) MarkImplemented(ctx context.Context, proposalID string) (*Proposal, error) {
	ctx, span := traces.StartSpan(ctx, "governance.MarkImplemented", traces.ProposalID(proposalID))
	defer span.End()

	mu := s.lockFor(proposalID)
	mu.Lock()
	defer mu.Unlock()

	proposal, err := s.store.GetProposal(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	if proposal.Status != StatusPassed {
		return nil, ErrBadTransition
	}

	proposal.Status = StatusImplemented
	if err := s.store.UpdateProposal(ctx, proposal); err != nil {
		return nil, err
	}

	if s.events != nil {
		s.events.Publish("proposal_implemented", map[string]any{
			"proposal_id": proposalID,
		})
	}

	s.logger.Info("proposal implemented", "proposal_id", proposalID)
	return proposal, nil
}

// Cancel withdraws a proposal that has not yet been finalized. Settled
// proposals keep their outcome.
func (s *Service) Cancel(ctx context.Context, proposalID, reason string) (*Proposal, error) {
	ctx, span := traces.StartSpan(ctx, "governance.Cancel", traces.ProposalID(proposalID))
	defer span.End()

	mu := s.lockFor(proposalID)
	mu.Lock()
	defer mu.Unlock()

	proposal, err := s.store.GetProposal(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	switch proposal.Status {
	case StatusDraft, StatusActive, StatusVoting:
	default:
		return nil, ErrBadTransition
	}

	proposal.Status = StatusCancelled
	if reason == "" {
		reason = "cancelled by operator"
	}
	proposal.OutcomeReason = reason
	if err := s.store.UpdateProposal(ctx, proposal); err != nil {
		return nil, err
	}

	if s.events != nil {
		s.events.Publish("proposal_cancelled", map[string]any{
			"proposal_id": proposalID,
			"reason":      reason,
		})
	}

	s.logger.Info("proposal cancelled", "proposal_id", proposalID, "reason", reason)
	return proposal, nil
}

// ParticipationReport computes a user's governance engagement score.
func (s *Service) ParticipationReport(ctx context.Context, userID string) (int, error) {
	stats, err := s.profiles.GetStats(ctx, userID)
	if err != nil {
		return 0, err
	}
	counts, err := s.store.CountsByAuthor(ctx, userID)
	if err != nil {
		return 0, err
	}
	monthly, err := s.store.CountVotesByUserSince(ctx, userID, time.Now().AddDate(0, 0, -30))
	if err != nil {
		return 0, err
	}
	return ParticipationScore(stats.GovernanceVotes, monthly, counts.Total, counts.Passed), nil
}
