// Package reputation implements user reputation scoring for Portale.
//
// Reputation is a cumulative count of platform contribution:
// - Completing missions
// - Governance participation (votes, proposals)
// - Forum activity (posts, comments)
//
// Reputation maps onto a fixed ladder of levels; levels gate feature
// access and mission/proposal eligibility. All functions here are pure:
// same inputs, same outputs, no clock and no storage.
package reputation

import (
	"math"
)

// levelThresholds is the canonical ladder: reputation needed to reach each
// level, strictly increasing, starting at 0.
var levelThresholds = []int{
	0,     // Level 0
	1000,  // Level 1
	3000,  // Level 2
	6000,  // Level 3
	10000, // Level 4
	15000, // Level 5
	21000, // Level 6
	28000, // Level 7
	36000, // Level 8
	45000, // Level 9
}

// MaxLevel is the terminal level of the ladder.
const MaxLevel = 9

// Action is a reputation-earning activity kind.
type Action string

const (
	ActionMissionComplete Action = "mission_complete"
	ActionMissionReview   Action = "mission_review"
	ActionContribution    Action = "contribution"
	ActionVoting          Action = "voting"
	ActionComment         Action = "comment"
)

// actionGains maps activity kinds to reputation deltas. Unknown actions
// yield 0 rather than an error.
var actionGains = map[Action]int{
	ActionMissionComplete: 100,
	ActionMissionReview:   50,
	ActionContribution:    75,
	ActionVoting:          10,
	ActionComment:         5,
}

// Feature is a capability tag unlocked at a given level.
type Feature string

const (
	FeatureViewProfile        Feature = "view_profile"
	FeatureBasicParticipation Feature = "basic_participation"
	FeatureForumPosts         Feature = "create_forum_posts"
	FeatureComment            Feature = "comment"
	FeatureCreateMissions     Feature = "create_missions"
	FeatureModeration         Feature = "moderation"
	FeatureAdvancedAnalytics  Feature = "advanced_analytics"
	FeatureCustomProfile      Feature = "custom_profile"
	FeatureGovernanceVoting   Feature = "governance_voting"
	FeatureResourceManagement Feature = "resource_management"
	FeatureTeamLeadership     Feature = "team_leadership"
	FeatureAdvancedReporting  Feature = "advanced_reporting"
)

// featureLadder lists the features unlocked AT each level; unlocks are
// cumulative, so everything at level N stays unlocked at N+1.
var featureLadder = [][]Feature{
	{FeatureViewProfile, FeatureBasicParticipation},        // level 0
	{FeatureForumPosts, FeatureComment},                    // level 1
	{FeatureCreateMissions, FeatureModeration},             // level 2
	{FeatureAdvancedAnalytics, FeatureCustomProfile},       // level 3
	{FeatureGovernanceVoting, FeatureResourceManagement},   // level 4
	{FeatureTeamLeadership, FeatureAdvancedReporting},      // level 5
}

// Progress describes where a reputation total sits inside the ladder.
type Progress struct {
	Level           int     `json:"level"`
	CurrentFloor    int     `json:"currentFloor"`
	NextFloor       int     `json:"nextFloor"`
	ProgressPercent float64 `json:"progressPercent"`
	PointsToNext    int     `json:"pointsToNext"`
}

// Level returns the highest level whose threshold the reputation total has
// reached. Thresholds are inclusive lower bounds; negative input is treated
// as 0.
func Level(totalReputation int) int {
	if totalReputation < 0 {
		totalReputation = 0
	}
	level := 0
	for i, threshold := range levelThresholds {
		if totalReputation >= threshold {
			level = i
		} else {
			break
		}
	}
	return level
}

// ProgressToNextLevel computes how far a reputation total is into its current
// level. At the terminal level, ProgressPercent is 100 and PointsToNext is 0.
func ProgressToNextLevel(totalReputation int) Progress {
	if totalReputation < 0 {
		totalReputation = 0
	}
	level := Level(totalReputation)
	currentFloor := levelThresholds[level]

	if level == MaxLevel {
		return Progress{
			Level:           level,
			CurrentFloor:    currentFloor,
			NextFloor:       currentFloor,
			ProgressPercent: 100,
			PointsToNext:    0,
		}
	}

	nextFloor := levelThresholds[level+1]
	span := nextFloor - currentFloor
	into := totalReputation - currentFloor
	percent := float64(into) / float64(span) * 100
	percent = math.Min(percent, 100)

	return Progress{
		Level:           level,
		CurrentFloor:    currentFloor,
		NextFloor:       nextFloor,
		ProgressPercent: percent,
		PointsToNext:    nextFloor - totalReputation,
	}
}

// ReputationForLevel returns the reputation threshold of a level. Levels
// below 0 map to 0; levels past the ladder map to the terminal threshold.
func ReputationForLevel(level int) int {
	if level <= 0 {
		return 0
	}
	if level >= len(levelThresholds) {
		return levelThresholds[len(levelThresholds)-1]
	}
	return levelThresholds[level]
}

// Gain returns the reputation delta for an activity kind; unknown kinds
// earn nothing.
func Gain(action Action) int {
	return actionGains[action]
}

// UnlockedFeatures returns every feature available at the level the
// reputation total reaches. The result is monotone in level.
func UnlockedFeatures(totalReputation int) []Feature {
	level := Level(totalReputation)
	if level >= len(featureLadder) {
		level = len(featureLadder) - 1
	}
	var features []Feature
	for i := 0; i <= level; i++ {
		features = append(features, featureLadder[i]...)
	}
	return features
}

// ConsistencyBonus rewards activity streaks: 2 reputation per day plus a
// 10-point step at every 5-day milestone. Monotone non-decreasing in
// streakDays; negative streaks clamp to 0.
func ConsistencyBonus(streakDays int) int {
	if streakDays < 0 {
		streakDays = 0
	}
	return streakDays*2 + (streakDays/5)*10
}
