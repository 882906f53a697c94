package missions

import (
	"fmt"
	"math"
	"time"
)

// ReasonCode identifies why a mission is not accessible. Codes are stable
// and rendered directly to clients.
type ReasonCode string

const (
	ReasonInsufficientReputation ReasonCode = "insufficient_reputation"
	ReasonInsufficientLevel      ReasonCode = "insufficient_level"
	ReasonMissionLocked          ReasonCode = "mission_locked"
	ReasonMissionExpired         ReasonCode = "mission_expired"
	ReasonCooldownActive         ReasonCode = "cooldown_active"
	ReasonMissionFull            ReasonCode = "mission_full"
)

// cooldownHours is the minimum gap between repeated completions, per type.
var cooldownHours = map[Type]int{
	TypeDaily:      24,
	TypeWeekly:     7 * 24,
	TypeGovernance: 12,
	TypeCommunity:  48,
	TypeMilestone:  0,
}

// CooldownHours returns the completion cooldown for a mission type.
func CooldownHours(t Type) int {
	return cooldownHours[t]
}

// AccessCheck is the verdict of CanAccess. Never an error: ineligibility is
// a value the caller renders.
type AccessCheck struct {
	Allowed        bool       `json:"allowed"`
	Reason         ReasonCode `json:"reason,omitempty"`
	Message        string     `json:"message,omitempty"`
	HoursRemaining int        `json:"hours_remaining,omitempty"`
}

func denied(reason ReasonCode, message string) AccessCheck {
	return AccessCheck{Reason: reason, Message: message}
}

// CanAccess checks whether a user may take a mission. Checks run in a fixed
// order and the first failure wins, so clients always see the same message
// for the same state. lastCompleted is nil when the user never completed
// this mission.
func CanAccess(m *Mission, userReputation, userLevel int, lastCompleted *time.Time, now time.Time) AccessCheck {
	if userReputation < m.MinReputation {
		return denied(ReasonInsufficientReputation,
			fmt.Sprintf("Requires %d reputation. You have %d", m.MinReputation, userReputation))
	}
	if userLevel < m.MinLevel {
		return denied(ReasonInsufficientLevel,
			fmt.Sprintf("Requires level %d. You are level %d", m.MinLevel, userLevel))
	}
	if m.Status == StatusLocked {
		return denied(ReasonMissionLocked, "This mission is locked")
	}
	if m.Status == StatusExpired || (!m.ExpiresAt.IsZero() && now.After(m.ExpiresAt)) {
		return denied(ReasonMissionExpired, "This mission has expired")
	}
	if lastCompleted != nil {
		cooldown := float64(cooldownHours[m.Type])
		hoursPassed := now.Sub(*lastCompleted).Hours()
		if hoursPassed < cooldown {
			remaining := int(math.Ceil(cooldown - hoursPassed))
			check := denied(ReasonCooldownActive,
				fmt.Sprintf("Cooldown active. Available in %d hours", remaining))
			check.HoursRemaining = remaining
			return check
		}
	}
	if m.MaxParticipants > 0 && m.CurrentParticipants >= m.MaxParticipants {
		return denied(ReasonMissionFull, "This mission has reached maximum participants")
	}
	return AccessCheck{Allowed: true}
}

// Bonus is the early-completion reward computation.
type Bonus struct {
	BaseReward  int     `json:"base_reward"`
	Multiplier  float64 `json:"bonus_multiplier"`
	TotalReward int     `json:"total_reward"`
}

// CompletionBonus rewards finishing well under the allowed time: 1.5x at or
// under half the allowance, 1.25x at or under three quarters, otherwise
// the base reward. A non-positive allowance disables the bonus.
func CompletionBonus(baseReward int, timeSpent, timeAllowed time.Duration) Bonus {
	multiplier := 1.0
	if timeAllowed > 0 {
		ratio := timeSpent.Seconds() / timeAllowed.Seconds()
		switch {
		case ratio <= 0.5:
			multiplier = 1.5
		case ratio <= 0.75:
			multiplier = 1.25
		}
	}
	return Bonus{
		BaseReward:  baseReward,
		Multiplier:  multiplier,
		TotalReward: int(math.Round(float64(baseReward) * multiplier)),
	}
}

// requiredCompletionFields keys the closed payload schema by mission type.
var requiredCompletionFields = map[Type][]string{
	TypeDaily:      {"task_completed"},
	TypeWeekly:     {"milestone_achieved", "evidence"},
	TypeGovernance: {"vote_cast", "proposal_id"},
	TypeCommunity:  {"participation_proof", "contribution_date"},
	TypeMilestone:  {"final_achievement", "summary"},
}

// RequiredCompletionFields returns the field names a mission type demands.
func RequiredCompletionFields(t Type) []string {
	return requiredCompletionFields[t]
}

// ValidateCompletion checks the payload against the mission type's required
// fields and reports every missing field, not just the first.
func ValidateCompletion(t Type, c Completion) (bool, []string) {
	present := map[string]bool{
		"task_completed":      c.TaskCompleted,
		"milestone_achieved":  c.MilestoneAchieved != "",
		"evidence":            c.Evidence != "",
		"vote_cast":           c.VoteCast != "",
		"proposal_id":         c.ProposalID != "",
		"participation_proof": c.ParticipationProof != "",
		"contribution_date":   c.ContributionDate != "",
		"final_achievement":   c.FinalAchievement != "",
		"summary":             c.Summary != "",
	}

	var missing []string
	for _, field := range requiredCompletionFields[t] {
		if !present[field] {
			missing = append(missing, field)
		}
	}
	return len(missing) == 0, missing
}

// ProgressBreakdown splits mission progress into its requirement and time
// components.
type ProgressBreakdown struct {
	RequirementProgress int `json:"requirement_progress"`
	TimeProgress        int `json:"time_progress"`
	OverallProgress     int `json:"overall_progress"`
}

// ComputeProgress averages requirement completion and elapsed time, each as
// a rounded percentage. Negative inputs clamp to zero and the overall value
// caps at 100.
func ComputeProgress(requirementsMet, totalRequirements int, timeSpent, timeAllowed time.Duration) ProgressBreakdown {
	if requirementsMet < 0 {
		requirementsMet = 0
	}
	if timeSpent < 0 {
		timeSpent = 0
	}

	var reqPct, timePct int
	if totalRequirements > 0 {
		reqPct = int(math.Round(float64(requirementsMet) / float64(totalRequirements) * 100))
	}
	if timeAllowed > 0 {
		timePct = int(math.Round(timeSpent.Seconds() / timeAllowed.Seconds() * 100))
	}

	overall := int(math.Round(float64(reqPct+timePct) / 2))
	if overall > 100 {
		overall = 100
	}
	return ProgressBreakdown{
		RequirementProgress: reqPct,
		TimeProgress:        timePct,
		OverallProgress:     overall,
	}
}

// FilterAvailable returns the missions a user can take right now. Daily
// missions already completed in the current window are dropped; everything
// else goes through the same checks as CanAccess.
func FilterAvailable(all []*Mission, userReputation, userLevel int, completedDaily map[string]bool, lastCompleted map[string]time.Time, now time.Time) []*Mission {
	var available []*Mission
	for _, m := range all {
		if m.Type == TypeDaily && completedDaily[m.ID] {
			continue
		}
		var last *time.Time
		if t, ok := lastCompleted[m.ID]; ok {
			last = &t
		}
		if CanAccess(m, userReputation, userLevel, last, now).Allowed {
			available = append(available, m)
		}
	}
	return available
}

// Summary aggregates a mission catalog.
type Summary struct {
	TotalMissions            int          `json:"total_missions"`
	ByType                   map[Type]int `json:"by_type"`
	TotalPotentialRewards    int          `json:"total_potential_rewards"`
	TotalPotentialReputation int          `json:"total_potential_reputation"`
}

// Stats computes catalog-level totals.
func Stats(all []*Mission) Summary {
	s := Summary{
		ByType: map[Type]int{
			TypeDaily:      0,
			TypeWeekly:     0,
			TypeGovernance: 0,
			TypeCommunity:  0,
			TypeMilestone:  0,
		},
	}
	for _, m := range all {
		s.TotalMissions++
		s.ByType[m.Type]++
		s.TotalPotentialRewards += m.RewardTokens
		s.TotalPotentialReputation += m.ReputationGain
	}
	return s
}

// typeBaseScore biases SuggestNext toward longer-horizon missions.
var typeBaseScore = map[Type]float64{
	TypeDaily:      1,
	TypeWeekly:     2,
	TypeGovernance: 3,
	TypeCommunity:  3,
	TypeMilestone:  4,
}

// SuggestNext picks the best next mission from an available set, preferring
// types the user has not done recently and higher token rewards. Returns
// nil when nothing is available.
func SuggestNext(available []*Mission, recentTypes []Type) *Mission {
	if len(available) == 0 {
		return nil
	}

	scores := make(map[Type]float64, len(typeBaseScore))
	for t, s := range typeBaseScore {
		scores[t] = s
	}
	for _, t := range recentTypes {
		scores[t] -= 0.5
	}

	var best *Mission
	bestScore := math.Inf(-1)
	for _, m := range available {
		score := scores[m.Type] + float64(m.RewardTokens)*0.1
		if score > bestScore {
			bestScore = score
			best = m
		}
	}
	return best
}
