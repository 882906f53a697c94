package governance

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// ReasonCode identifies why proposal creation is denied.
type ReasonCode string

const (
	ReasonInsufficientReputation ReasonCode = "insufficient_reputation"
	ReasonInsufficientLevel      ReasonCode = "insufficient_level"
	ReasonRateLimited            ReasonCode = "rate_limited"
)

// CreateCheck is the verdict of CanCreateProposal.
type CreateCheck struct {
	Allowed bool       `json:"allowed"`
	Reason  ReasonCode `json:"reason,omitempty"`
	Message string     `json:"message,omitempty"`
}

// CanCreateProposal gates proposal creation on reputation and level, in
// that order.
func CanCreateProposal(userReputation, userLevel int) CreateCheck {
	if userReputation < MinReputationToCreate {
		return CreateCheck{
			Reason:  ReasonInsufficientReputation,
			Message: fmt.Sprintf("Minimum %d reputation required", MinReputationToCreate),
		}
	}
	if userLevel < MinLevelToCreate {
		return CreateCheck{
			Reason:  ReasonInsufficientLevel,
			Message: fmt.Sprintf("Minimum level %d required", MinLevelToCreate),
		}
	}
	return CreateCheck{Allowed: true}
}

// ValidateContent checks proposal text and accumulates every violated rule.
// Unlike mission access checks, this reports all errors at once so authors
// can fix the whole form in one pass.
func ValidateContent(title, description, body string) (bool, []string) {
	var errs []string

	if len(strings.TrimSpace(title)) < 5 {
		errs = append(errs, "Title must be at least 5 characters")
	}
	if len(strings.TrimSpace(description)) < 20 {
		errs = append(errs, "Description must be at least 20 characters")
	}
	if len(body) == 0 {
		errs = append(errs, "Detailed content is required")
	}
	if len(body) > MaxBodyLength {
		errs = append(errs, fmt.Sprintf("Content exceeds maximum length of %d", MaxBodyLength))
	}

	return len(errs) == 0, errs
}

// VotingWeight blends reputation and token holdings into voting power:
// 0.1 per reputation point, 1.0 per liquid token, 1.5 per staked token.
// Rounded to two decimal places. Negative inputs clamp to zero.
func VotingWeight(reputation, tokenBalance, stakedTokens int) float64 {
	if reputation < 0 {
		reputation = 0
	}
	if tokenBalance < 0 {
		tokenBalance = 0
	}
	if stakedTokens < 0 {
		stakedTokens = 0
	}
	weight := float64(reputation)*0.1 + float64(tokenBalance)*1.0 + float64(stakedTokens)*1.5
	return math.Round(weight*100) / 100
}

// Tally partitions votes by option and sums voting power per partition.
type Tally struct {
	TotalVotes   int     `json:"total_votes"`
	VotesFor     int     `json:"votes_for"`
	VotesAgainst int     `json:"votes_against"`
	VotesAbstain int     `json:"votes_abstain"`
	PowerFor     float64 `json:"voting_power_for"`
	PowerAgainst float64 `json:"voting_power_against"`
	PowerAbstain float64 `json:"voting_power_abstain"`
}

// TallyVotes counts ballots. One user counts once: re-delivered or
// duplicate ballots for the same user are dropped, keeping the first seen,
// so tallying stays idempotent under change-feed replays.
func TallyVotes(votes []*Vote) Tally {
	var t Tally
	seen := make(map[string]bool, len(votes))

	for _, v := range votes {
		if seen[v.UserID] {
			continue
		}
		seen[v.UserID] = true
		t.TotalVotes++

		switch v.Option {
		case VoteFor:
			t.VotesFor++
			t.PowerFor += v.VotingPower
		case VoteAgainst:
			t.VotesAgainst++
			t.PowerAgainst += v.VotingPower
		default:
			t.VotesAbstain++
			t.PowerAbstain += v.VotingPower
		}
	}
	return t
}

// Outcome is the final verdict on a proposal.
type Outcome struct {
	Status Status `json:"status"`
	Passed bool   `json:"passed"`
	Reason string `json:"reason"`
}

// DetermineOutcome applies the outcome gates in a fixed order: no votes,
// then minimum participation, then supermajority. A proposal that fails
// participation is rejected no matter how lopsided its for-share is.
func DetermineOutcome(t Tally, eligibleVoterCount int) Outcome {
	totalPower := t.PowerFor + t.PowerAgainst + t.PowerAbstain
	if totalPower == 0 {
		return Outcome{Status: StatusRejected, Reason: "No votes received"}
	}

	var participationPct float64
	if eligibleVoterCount > 0 {
		participationPct = float64(t.TotalVotes) / float64(eligibleVoterCount) * 100
	}
	if participationPct < MinParticipationPct {
		return Outcome{Status: StatusRejected, Reason: "Minimum participation not reached"}
	}

	var forPct float64
	if denom := t.PowerFor + t.PowerAgainst; denom > 0 {
		forPct = t.PowerFor / denom * 100
	}
	if forPct >= SupermajorityPct {
		return Outcome{Status: StatusPassed, Passed: true, Reason: "Supermajority reached"}
	}
	return Outcome{Status: StatusRejected, Reason: "Insufficient support"}
}

// Phase is where a proposal sits in its lifecycle.
type Phase string

const (
	PhaseDraft          Phase = "draft"
	PhaseDiscussion     Phase = "discussion"
	PhaseVoting         Phase = "voting"
	PhaseImplementation Phase = "implementation"
	PhaseResolved       Phase = "resolved"
)

// LifecycleInfo describes a proposal's current phase and voting window.
type LifecycleInfo struct {
	CurrentPhase   Phase `json:"current_phase"`
	HoursRemaining int   `json:"time_remaining_hours,omitempty"`
	VotingStarted  bool  `json:"voting_started"`
	VotingEnded    bool  `json:"voting_ended"`
}

// Lifecycle derives the phase from stored status plus the voting window.
func Lifecycle(p *Proposal, now time.Time) LifecycleInfo {
	started := !now.Before(p.VotingStartAt)
	ended := !now.Before(p.VotingEndAt)

	var phase Phase
	switch {
	case p.Status == StatusDraft:
		phase = PhaseDraft
	case p.Status == StatusVoting || (p.Status == StatusActive && started && !ended):
		phase = PhaseVoting
	case p.Status == StatusActive:
		phase = PhaseDiscussion
	case p.Status == StatusPassed:
		phase = PhaseImplementation
	default:
		// rejected, implemented and cancelled proposals are settled
		phase = PhaseResolved
	}

	info := LifecycleInfo{
		CurrentPhase:  phase,
		VotingStarted: started,
		VotingEnded:   ended,
	}
	if phase == PhaseVoting {
		info.HoursRemaining = int(math.Ceil(p.VotingEndAt.Sub(now).Hours()))
	}
	return info
}

// ParticipationScore rates a user's governance engagement on a 0-100 scale:
// up to 40 points for lifetime votes, 30 for votes this month, 20 for
// proposals created, 10 for the share of those that passed.
func ParticipationScore(totalVotes, votesThisMonth, proposalsCreated, passedProposals int) int {
	if totalVotes < 0 {
		totalVotes = 0
	}
	if votesThisMonth < 0 {
		votesThisMonth = 0
	}
	if proposalsCreated < 0 {
		proposalsCreated = 0
	}
	if passedProposals < 0 {
		passedProposals = 0
	}

	voteScore := math.Min(float64(totalVotes)/100, 1) * 40
	monthlyScore := math.Min(float64(votesThisMonth)/10, 1) * 30
	creationScore := math.Min(float64(proposalsCreated)/5, 1) * 20

	var successScore float64
	if proposalsCreated > 0 {
		successScore = float64(passedProposals) / float64(proposalsCreated) * 10
	}

	return int(math.Round(voteScore + monthlyScore + creationScore + successScore))
}

// OverviewStats aggregates the proposal catalog for dashboards.
type OverviewStats struct {
	TotalProposals       int `json:"total_proposals"`
	ActiveProposals      int `json:"active_proposals"`
	PassedProposals      int `json:"passed_proposals"`
	UserCreatedProposals int `json:"user_created_proposals"`
}

// Overview counts proposals by state.
func Overview(proposals []*Proposal, userProposalCount int) OverviewStats {
	stats := OverviewStats{
		TotalProposals:       len(proposals),
		UserCreatedProposals: userProposalCount,
	}
	for _, p := range proposals {
		switch p.Status {
		case StatusActive, StatusVoting:
			stats.ActiveProposals++
		case StatusPassed:
			stats.PassedProposals++
		}
	}
	return stats
}
