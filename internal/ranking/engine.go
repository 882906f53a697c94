// Package ranking computes weighted leaderboard scores, rank tiers and
// milestone notifications.
package ranking

import (
	"fmt"
	"math"
	"sort"
)

// Ranking weights
const (
	WeightReputation = 0.5
	WeightMissions   = 0.3
	WeightGovernance = 0.2
)

// rankMilestones are the thresholds worth a notification when crossed.
var rankMilestones = []int{10, 50, 100, 500, 1000, 5000, 10000}

// Input is the raw per-user counters a score is computed from.
type Input struct {
	UserID            string `json:"user_id"`
	Username          string `json:"username"`
	AvatarURL         string `json:"avatar_url,omitempty"`
	Reputation        int    `json:"reputation"`
	MissionsCompleted int    `json:"missions_completed"`
	GovernanceVotes   int    `json:"governance_votes"`
	ProposalsCreated  int    `json:"proposals_created"`
}

// ScoreBreakdown is the weighted composite score and its components, each
// normalized to a 0-1000 scale before weighting.
type ScoreBreakdown struct {
	ReputationScore int `json:"reputation_score"`
	MissionScore    int `json:"mission_score"`
	GovernanceScore int `json:"governance_score"`
	TotalScore      int `json:"total_weighted_score"`
}

// Score computes the composite ranking score. Negative counters clamp to
// zero; each component caps at 1000.
func Score(in Input) ScoreBreakdown {
	repScore := clamp(in.Reputation, 1000)
	missionScore := clamp(in.MissionsCompleted*25, 1000)
	govScore := clamp((clampLow(in.GovernanceVotes)+clampLow(in.ProposalsCreated)*5)*10, 1000)

	total := int(math.Round(
		float64(repScore)*WeightReputation +
			float64(missionScore)*WeightMissions +
			float64(govScore)*WeightGovernance))

	return ScoreBreakdown{
		ReputationScore: repScore,
		MissionScore:    missionScore,
		GovernanceScore: govScore,
		TotalScore:      total,
	}
}

func clamp(v, bound int) int {
	if v < 0 {
		return 0
	}
	if v > bound {
		return bound
	}
	return v
}

func clampLow(v int) int {
	if v < 0 {
		return 0
	}
	return v
}

// Entry is one leaderboard row.
type Entry struct {
	Rank              int    `json:"rank"`
	UserID            string `json:"user_id"`
	Username          string `json:"username"`
	AvatarURL         string `json:"avatar_url,omitempty"`
	TotalScore        int    `json:"total_score"`
	ReputationScore   int    `json:"reputation"`
	MissionsCompleted int    `json:"missions_completed"`
	GovernanceScore   int    `json:"governance_activity"`
	Tier              Tier   `json:"tier"`
}

// BuildLeaderboard scores and ranks the inputs, highest total first. The
// sort is stable: ties keep their original input order, so repeated calls
// on identical input produce identical rankings.
func BuildLeaderboard(inputs []Input) []Entry {
	entries := make([]Entry, len(inputs))
	for i, in := range inputs {
		s := Score(in)
		entries[i] = Entry{
			UserID:            in.UserID,
			Username:          in.Username,
			AvatarURL:         in.AvatarURL,
			TotalScore:        s.TotalScore,
			ReputationScore:   s.ReputationScore,
			MissionsCompleted: clampLow(in.MissionsCompleted),
			GovernanceScore:   s.GovernanceScore,
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].TotalScore > entries[j].TotalScore
	})
	for i := range entries {
		entries[i].Rank = i + 1
		entries[i].Tier = RankTier(i + 1)
	}
	return entries
}

// Tier is a named band of leaderboard positions.
type Tier string

const (
	TierLegendary    Tier = "legendary"
	TierElite        Tier = "elite"
	TierMaster       Tier = "master"
	TierExpert       Tier = "expert"
	TierIntermediate Tier = "intermediate"
	TierNovice       Tier = "novice"
)

// RankTier maps a rank to its tier. Breakpoints are inclusive upper
// bounds: rank 10 is still legendary, rank 11 is elite.
func RankTier(rank int) Tier {
	switch {
	case rank <= 10:
		return TierLegendary
	case rank <= 100:
		return TierElite
	case rank <= 500:
		return TierMaster
	case rank <= 2000:
		return TierExpert
	case rank <= 10000:
		return TierIntermediate
	default:
		return TierNovice
	}
}

// MilestoneCheck reports whether a rank change crossed a milestone.
type MilestoneCheck struct {
	HitMilestone bool   `json:"hit_milestone"`
	Milestone    int    `json:"milestone,omitempty"`
	Notification string `json:"notification,omitempty"`
}

// MilestoneCrossed fires only on improvement: prevRank 0 (unranked) or a
// move downward never notifies. The first straddled milestone wins.
func MilestoneCrossed(prevRank, currRank int) MilestoneCheck {
	if prevRank <= 0 || prevRank <= currRank {
		return MilestoneCheck{}
	}
	for _, milestone := range rankMilestones {
		if prevRank > milestone && currRank <= milestone {
			return MilestoneCheck{
				HitMilestone: true,
				Milestone:    milestone,
				Notification: fmt.Sprintf("Ranked in top %d!", milestone),
			}
		}
	}
	return MilestoneCheck{}
}

// Progress tracks rank movement between two leaderboard builds.
type Progress struct {
	CurrentRank  int `json:"current_rank"`
	PreviousRank int `json:"previous_rank"`
	RankChange   int `json:"rank_change"`
	Percentile   int `json:"percentile"`
}

// RankProgress summarizes movement since the previous build. prevRank 0
// means the user was unranked. The percentile is against a nominal 10000
// population, floored at 1.
func RankProgress(currRank, prevRank int) Progress {
	change := 0
	if prevRank > 0 {
		change = prevRank - currRank
	} else {
		prevRank = currRank
	}

	percentile := int(math.Round((1 - float64(currRank)/10000) * 100))
	if percentile < 1 {
		percentile = 1
	}

	return Progress{
		CurrentRank:  currRank,
		PreviousRank: prevRank,
		RankChange:   change,
		Percentile:   percentile,
	}
}

// Comparison says which of two users leads and by how much.
type Comparison struct {
	Ahead        string `json:"ahead"`
	Gap          int    `json:"gap"`
	PercentAhead int    `json:"percentage_ahead"`
}

// Compare contrasts two scored users. With two zero scores the gap and
// percentage are both zero and the second user is reported ahead, matching
// the tie behavior of the score comparison.
func Compare(username1 string, score1 int, username2 string, score2 int) Comparison {
	gap := score1 - score2
	if gap < 0 {
		gap = -gap
	}

	var pct float64
	if top := max(score1, score2); top > 0 {
		pct = float64(gap) / float64(top) * 100
	}

	ahead := username2
	if score1 > score2 {
		ahead = username1
	}
	return Comparison{
		Ahead:        ahead,
		Gap:          gap,
		PercentAhead: int(math.Round(pct)),
	}
}

// Report is a leaderboard summary centered on one user.
type Report struct {
	TotalUsers     int     `json:"total_users"`
	Top10          []Entry `json:"top_10"`
	UserPercentile int     `json:"user_percentile"`
	UsersAhead     int     `json:"users_ahead"`
	UsersBehind    int     `json:"users_behind"`
}

// BuildReport slices the leaderboard around a user's rank.
func BuildReport(entries []Entry, userRank int) Report {
	top := entries
	if len(top) > 10 {
		top = top[:10]
	}

	var percentile int
	if len(entries) > 0 {
		percentile = int(math.Round((1 - float64(userRank)/float64(len(entries))) * 100))
	}

	behind := len(entries) - userRank
	if behind < 0 {
		behind = 0
	}
	ahead := userRank - 1
	if ahead < 0 {
		ahead = 0
	}

	return Report{
		TotalUsers:     len(entries),
		Top10:          top,
		UserPercentile: percentile,
		UsersAhead:     ahead,
		UsersBehind:    behind,
	}
}
