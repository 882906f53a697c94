package governance

import (
	"math/rand"
	"strings"
	"testing"
	"time"
)

func TestCanCreateProposal(t *testing.T) {
	tests := []struct {
		name       string
		reputation int
		level      int
		allowed    bool
		wantReason ReasonCode
	}{
		{"meets both requirements", 250, 3, true, ""},
		{"well above", 10000, 5, true, ""},
		{"reputation too low", 249, 5, false, ReasonInsufficientReputation},
		{"level too low", 500, 2, false, ReasonInsufficientLevel},
		{"both too low reports reputation first", 100, 0, false, ReasonInsufficientReputation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			check := CanCreateProposal(tt.reputation, tt.level)
			if check.Allowed != tt.allowed {
				t.Errorf("allowed = %v, want %v", check.Allowed, tt.allowed)
			}
			if check.Reason != tt.wantReason {
				t.Errorf("reason = %s, want %s", check.Reason, tt.wantReason)
			}
		})
	}
}

func TestValidateContentAccumulatesAllErrors(t *testing.T) {
	valid, errs := ValidateContent("", "", "")
	if valid {
		t.Fatal("expected invalid content")
	}
	// Title, description and body violations all reported at once.
	if len(errs) != 3 {
		t.Errorf("expected 3 errors, got %d: %v", len(errs), errs)
	}
}

func TestValidateContent(t *testing.T) {
	longBody := strings.Repeat("x", MaxBodyLength+1)

	tests := []struct {
		name        string
		title       string
		description string
		body        string
		wantValid   bool
		wantErrors  int
	}{
		{"all good", "A fine title", "A description long enough to pass.", "Body", true, 0},
		{"title trimmed below minimum", "  ab  ", "A description long enough to pass.", "Body", false, 1},
		{"title exactly 5 after trim", " abcde ", "A description long enough to pass.", "Body", true, 0},
		{"description too short", "A fine title", "too short", "Body", false, 1},
		{"body too long", "A fine title", "A description long enough to pass.", longBody, false, 1},
		{"body at limit", "A fine title", "A description long enough to pass.", strings.Repeat("x", MaxBodyLength), true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			valid, errs := ValidateContent(tt.title, tt.description, tt.body)
			if valid != tt.wantValid {
				t.Errorf("valid = %v, want %v (errors: %v)", valid, tt.wantValid, errs)
			}
			if len(errs) != tt.wantErrors {
				t.Errorf("errors = %v, want %d", errs, tt.wantErrors)
			}
		})
	}
}

func TestVotingWeight(t *testing.T) {
	tests := []struct {
		name                        string
		reputation, balance, staked int
		want                        float64
	}{
		{"zero everything", 0, 0, 0, 0},
		{"reputation only", 100, 0, 0, 10},
		{"balance only", 0, 50, 0, 50},
		{"staked multiplier", 0, 0, 10, 15},
		{"blended", 250, 100, 40, 185},
		{"fractional rounds to 2dp", 3, 0, 1, 1.8},
		{"negative inputs clamp", -100, -5, -1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VotingWeight(tt.reputation, tt.balance, tt.staked); got != tt.want {
				t.Errorf("VotingWeight = %v, want %v", got, tt.want)
			}
		})
	}
}

func voteSet() []*Vote {
	return []*Vote{
		{UserID: "usr_1", Option: VoteFor, VotingPower: 40},
		{UserID: "usr_2", Option: VoteFor, VotingPower: 30},
		{UserID: "usr_3", Option: VoteAgainst, VotingPower: 30},
		{UserID: "usr_4", Option: VoteAbstain, VotingPower: 5},
	}
}

func TestTallyVotes(t *testing.T) {
	tally := TallyVotes(voteSet())

	if tally.TotalVotes != 4 {
		t.Errorf("total = %d, want 4", tally.TotalVotes)
	}
	if tally.VotesFor != 2 || tally.VotesAgainst != 1 || tally.VotesAbstain != 1 {
		t.Errorf("counts = %d/%d/%d, want 2/1/1",
			tally.VotesFor, tally.VotesAgainst, tally.VotesAbstain)
	}
	if tally.PowerFor != 70 || tally.PowerAgainst != 30 || tally.PowerAbstain != 5 {
		t.Errorf("power = %v/%v/%v, want 70/30/5",
			tally.PowerFor, tally.PowerAgainst, tally.PowerAbstain)
	}
}

func TestTallyVotesOrderInvariant(t *testing.T) {
	votes := voteSet()
	want := TallyVotes(votes)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 10; i++ {
		rng.Shuffle(len(votes), func(a, b int) { votes[a], votes[b] = votes[b], votes[a] })
		if got := TallyVotes(votes); got != want {
			t.Fatalf("tally changed under reordering: %+v vs %+v", got, want)
		}
	}
}

func TestTallyVotesDedupesByUser(t *testing.T) {
	votes := voteSet()
	// Re-delivered ballots for usr_1 must count exactly once.
	votes = append(votes, &Vote{UserID: "usr_1", Option: VoteFor, VotingPower: 40})
	votes = append(votes, &Vote{UserID: "usr_1", Option: VoteFor, VotingPower: 40})

	tally := TallyVotes(votes)
	if tally.TotalVotes != 4 {
		t.Errorf("total = %d, want 4 after dedup", tally.TotalVotes)
	}
	if tally.PowerFor != 70 {
		t.Errorf("power for = %v, want 70 after dedup", tally.PowerFor)
	}
}

func TestDetermineOutcome(t *testing.T) {
	tests := []struct {
		name       string
		tally      Tally
		eligible   int
		wantStatus Status
		wantReason string
	}{
		{
			name:       "no votes",
			tally:      Tally{},
			eligible:   100,
			wantStatus: StatusRejected,
			wantReason: "No votes received",
		},
		{
			name: "supermajority with enough participation",
			tally: Tally{
				TotalVotes: 20, PowerFor: 70, PowerAgainst: 30,
			},
			eligible:   100,
			wantStatus: StatusPassed,
			wantReason: "Supermajority reached",
		},
		{
			name: "low participation rejects regardless of for share",
			tally: Tally{
				TotalVotes: 5, PowerFor: 70, PowerAgainst: 30,
			},
			eligible:   100,
			wantStatus: StatusRejected,
			wantReason: "Minimum participation not reached",
		},
		{
			name: "majority short of supermajority",
			tally: Tally{
				TotalVotes: 20, PowerFor: 60, PowerAgainst: 40,
			},
			eligible:   100,
			wantStatus: StatusRejected,
			wantReason: "Insufficient support",
		},
		{
			name: "all abstain divides by zero safely",
			tally: Tally{
				TotalVotes: 20, PowerAbstain: 100,
			},
			eligible:   100,
			wantStatus: StatusRejected,
			wantReason: "Insufficient support",
		},
		{
			name: "exactly at participation threshold passes the gate",
			tally: Tally{
				TotalVotes: 10, PowerFor: 100,
			},
			eligible:   100,
			wantStatus: StatusPassed,
			wantReason: "Supermajority reached",
		},
		{
			name: "zero eligible voters rejects on participation",
			tally: Tally{
				TotalVotes: 20, PowerFor: 100,
			},
			eligible:   0,
			wantStatus: StatusRejected,
			wantReason: "Minimum participation not reached",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetermineOutcome(tt.tally, tt.eligible)
			if got.Status != tt.wantStatus {
				t.Errorf("status = %s, want %s", got.Status, tt.wantStatus)
			}
			if got.Reason != tt.wantReason {
				t.Errorf("reason = %q, want %q", got.Reason, tt.wantReason)
			}
			if got.Passed != (tt.wantStatus == StatusPassed) {
				t.Errorf("passed = %v inconsistent with status %s", got.Passed, got.Status)
			}
		})
	}
}

func TestLifecycle(t *testing.T) {
	now := time.Now()
	window := func(start, end time.Duration) (time.Time, time.Time) {
		return now.Add(start), now.Add(end)
	}

	t.Run("draft", func(t *testing.T) {
		start, end := window(time.Hour, 73*time.Hour)
		p := &Proposal{Status: StatusDraft, VotingStartAt: start, VotingEndAt: end}
		info := Lifecycle(p, now)
		if info.CurrentPhase != PhaseDraft {
			t.Errorf("phase = %s, want draft", info.CurrentPhase)
		}
		if info.VotingStarted || info.VotingEnded {
			t.Error("voting window should not have started")
		}
	})

	t.Run("voting with hours remaining", func(t *testing.T) {
		start, end := window(-time.Hour, 10*time.Hour)
		p := &Proposal{Status: StatusVoting, VotingStartAt: start, VotingEndAt: end}
		info := Lifecycle(p, now)
		if info.CurrentPhase != PhaseVoting {
			t.Errorf("phase = %s, want voting", info.CurrentPhase)
		}
		if info.HoursRemaining != 10 {
			t.Errorf("hours remaining = %d, want 10", info.HoursRemaining)
		}
	})

	t.Run("active inside window counts as voting", func(t *testing.T) {
		start, end := window(-time.Hour, time.Hour)
		p := &Proposal{Status: StatusActive, VotingStartAt: start, VotingEndAt: end}
		if got := Lifecycle(p, now).CurrentPhase; got != PhaseVoting {
			t.Errorf("phase = %s, want voting", got)
		}
	})

	t.Run("active outside window is discussion", func(t *testing.T) {
		start, end := window(time.Hour, 73*time.Hour)
		p := &Proposal{Status: StatusActive, VotingStartAt: start, VotingEndAt: end}
		if got := Lifecycle(p, now).CurrentPhase; got != PhaseDiscussion {
			t.Errorf("phase = %s, want discussion", got)
		}
	})

	t.Run("passed is implementation", func(t *testing.T) {
		start, end := window(-80*time.Hour, -8*time.Hour)
		p := &Proposal{Status: StatusPassed, VotingStartAt: start, VotingEndAt: end}
		info := Lifecycle(p, now)
		if info.CurrentPhase != PhaseImplementation {
			t.Errorf("phase = %s, want implementation", info.CurrentPhase)
		}
		if !info.VotingEnded {
			t.Error("voting should have ended")
		}
	})

	t.Run("rejected is resolved", func(t *testing.T) {
		start, end := window(-80*time.Hour, -8*time.Hour)
		p := &Proposal{Status: StatusRejected, VotingStartAt: start, VotingEndAt: end}
		if got := Lifecycle(p, now).CurrentPhase; got != PhaseResolved {
			t.Errorf("phase = %s, want resolved", got)
		}
	})

	t.Run("implemented is resolved", func(t *testing.T) {
		start, end := window(-80*time.Hour, -8*time.Hour)
		p := &Proposal{Status: StatusImplemented, VotingStartAt: start, VotingEndAt: end}
		if got := Lifecycle(p, now).CurrentPhase; got != PhaseResolved {
			t.Errorf("phase = %s, want resolved", got)
		}
	})

	t.Run("cancelled is resolved even inside the window", func(t *testing.T) {
		start, end := window(-time.Hour, time.Hour)
		p := &Proposal{Status: StatusCancelled, VotingStartAt: start, VotingEndAt: end}
		if got := Lifecycle(p, now).CurrentPhase; got != PhaseResolved {
			t.Errorf("phase = %s, want resolved", got)
		}
	})
}

func TestParticipationScore(t *testing.T) {
	tests := []struct {
		name                                      string
		votes, monthly, created, passed           int
		want                                      int
	}{
		{"nothing", 0, 0, 0, 0, 0},
		{"maxed out", 100, 10, 5, 5, 100},
		{"half votes only", 50, 0, 0, 0, 20},
		{"monthly only", 0, 5, 0, 0, 15},
		{"creation without passes", 0, 0, 5, 0, 20},
		{"perfect pass rate", 0, 0, 2, 2, 18},
		{"over the caps clamps", 1000, 100, 50, 50, 100},
		{"negatives clamp to zero", -5, -5, -5, -5, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParticipationScore(tt.votes, tt.monthly, tt.created, tt.passed); got != tt.want {
				t.Errorf("score = %d, want %d", got, tt.want)
			}
		})
	}

	// Monotone in lifetime votes.
	prev := -1
	for v := 0; v <= 120; v += 10 {
		got := ParticipationScore(v, 0, 0, 0)
		if got < prev {
			t.Errorf("score decreased at %d votes: %d < %d", v, got, prev)
		}
		prev = got
	}
}

func TestOverview(t *testing.T) {
	proposals := []*Proposal{
		{Status: StatusActive},
		{Status: StatusVoting},
		{Status: StatusPassed},
		{Status: StatusPassed},
		{Status: StatusRejected},
	}
	stats := Overview(proposals, 2)
	if stats.TotalProposals != 5 {
		t.Errorf("total = %d, want 5", stats.TotalProposals)
	}
	if stats.ActiveProposals != 2 {
		t.Errorf("active = %d, want 2", stats.ActiveProposals)
	}
	if stats.PassedProposals != 2 {
		t.Errorf("passed = %d, want 2", stats.PassedProposals)
	}
	if stats.UserCreatedProposals != 2 {
		t.Errorf("user created = %d, want 2", stats.UserCreatedProposals)
	}
}
