package tokens

import (
	"fmt"
	"math"
)

// Token distribution parameters
const (
	MissionDailyReward      = 10
	MissionWeeklyReward     = 50
	MissionCommunityReward  = 40
	MissionGovernanceReward = 100
	MissionMilestoneReward  = 200
	RankBonusTop100         = 50
	RankBonusTop1000        = 20
	GovernanceVoteBonus     = 5
)

// Staking parameters
const (
	MinStake            = 10
	MaxStake            = 100000
	AnnualYieldPct      = 12
	LockPeriodDays      = 30
	EarlyWithdrawalRate = 0.1
)

// MissionReward returns the token payout for a mission type. Unknown types
// pay nothing.
func MissionReward(missionType string) int {
	switch missionType {
	case "daily":
		return MissionDailyReward
	case "weekly":
		return MissionWeeklyReward
	case "community":
		return MissionCommunityReward
	case "governance":
		return MissionGovernanceReward
	case "milestone":
		return MissionMilestoneReward
	default:
		return 0
	}
}

// RankBonus returns the periodic token bonus for a leaderboard rank.
func RankBonus(rank int) int {
	if rank <= 0 {
		return 0
	}
	if rank <= 100 {
		return RankBonusTop100
	}
	if rank <= 1000 {
		return RankBonusTop1000
	}
	return 0
}

// GovernanceWeight is the blended voting-power breakdown.
type GovernanceWeight struct {
	ReputationWeight float64 `json:"reputation_weight"`
	TokenWeight      float64 `json:"token_weight"`
	CombinedWeight   float64 `json:"combined_weight"`
	VoteMultiplier   float64 `json:"vote_multiplier"`
}

// ComputeGovernanceWeight blends reputation and token holdings into voting
// power. Staked tokens count 1.5x; the multiplier reflects reputation
// standing, not the combined weight.
func ComputeGovernanceWeight(reputation, balance, staked int) GovernanceWeight {
	repWeight := float64(reputation) * 0.1
	tokenWeight := float64(balance) * 1.0
	stakedWeight := float64(staked) * 1.5

	multiplier := 1.0
	switch {
	case reputation >= 1000:
		multiplier = 3.0
	case reputation >= 500:
		multiplier = 2.0
	}

	return GovernanceWeight{
		ReputationWeight: repWeight,
		TokenWeight:      tokenWeight + stakedWeight,
		CombinedWeight:   repWeight + tokenWeight + stakedWeight,
		VoteMultiplier:   multiplier,
	}
}

// StakingReward is the projected yield for a staking period.
type StakingReward struct {
	BaseReward      int `json:"base_reward"`
	WithCompounding int `json:"total_with_compounding"`
}

// ComputeStakingReward projects the yield on a staked amount over a number
// of days at the fixed annual rate, simple and daily-compounded.
func ComputeStakingReward(stakedAmount, stakingDays int) StakingReward {
	if stakedAmount <= 0 || stakingDays <= 0 {
		return StakingReward{}
	}

	dailyYield := float64(stakedAmount) * AnnualYieldPct / 100 / 365
	base := dailyYield * float64(stakingDays)

	compoundRate := math.Pow(1+float64(AnnualYieldPct)/100/365, float64(stakingDays))
	compounded := float64(stakedAmount) * (compoundRate - 1)

	return StakingReward{
		BaseReward:      int(math.Round(base)),
		WithCompounding: int(math.Round(compounded)),
	}
}

// WithdrawalQuote describes the cost of unstaking after a number of days.
type WithdrawalQuote struct {
	Penalty    int     `json:"penalty"`
	NetAmount  int     `json:"net_amount"`
	PenaltyPct float64 `json:"penalty_percentage"`
}

// EarlyWithdrawalPenalty quotes the unstake payout. Withdrawals inside the
// lock period forfeit a fixed share of the stake.
func EarlyWithdrawalPenalty(stakedAmount, daysPassed int) WithdrawalQuote {
	rate := 0.0
	if daysPassed < LockPeriodDays {
		rate = EarlyWithdrawalRate
	}
	penalty := int(math.Round(float64(stakedAmount) * rate))
	return WithdrawalQuote{
		Penalty:    penalty,
		NetAmount:  stakedAmount - penalty,
		PenaltyPct: rate * 100,
	}
}

// ValidateStake checks a stake request against the balance and the stake
// bounds. It returns the first failing rule.
func ValidateStake(amount, balance int) error {
	if amount > balance {
		return ErrInsufficientBalance
	}
	if amount < MinStake {
		return fmt.Errorf("%w: minimum stake is %d tokens", ErrInvalidAmount, MinStake)
	}
	if amount > MaxStake {
		return fmt.Errorf("%w: maximum stake is %d tokens", ErrInvalidAmount, MaxStake)
	}
	return nil
}

// Circulation is a rough estimate of tokens in the system.
type Circulation struct {
	FromMissions     int `json:"distributed_from_missions"`
	InWallets        int `json:"in_wallets"`
	TotalCirculation int `json:"total_circulation"`
}

// EstimateCirculation approximates total token supply from aggregate
// counters, assuming an average mission payout of 40 tokens.
func EstimateCirculation(missionsCompleted, totalUsers, avgUserTokens int) Circulation {
	fromMissions := missionsCompleted * 40
	inWallets := totalUsers * avgUserTokens
	return Circulation{
		FromMissions:     fromMissions,
		InWallets:        inWallets,
		TotalCirculation: fromMissions + inWallets,
	}
}
