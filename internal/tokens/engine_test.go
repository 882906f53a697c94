package tokens

import (
	"errors"
	"testing"
)

func TestMissionReward(t *testing.T) {
	tests := []struct {
		missionType string
		want        int
	}{
		{"daily", 10},
		{"weekly", 50},
		{"community", 40},
		{"governance", 100},
		{"milestone", 200},
		{"unknown", 0},
		{"", 0},
	}

	for _, tt := range tests {
		if got := MissionReward(tt.missionType); got != tt.want {
			t.Errorf("MissionReward(%q) = %d, want %d", tt.missionType, got, tt.want)
		}
	}
}

func TestRankBonus(t *testing.T) {
	tests := []struct {
		rank int
		want int
	}{
		{1, 50},
		{100, 50},
		{101, 20},
		{1000, 20},
		{1001, 0},
		{0, 0},
		{-5, 0},
	}

	for _, tt := range tests {
		if got := RankBonus(tt.rank); got != tt.want {
			t.Errorf("RankBonus(%d) = %d, want %d", tt.rank, got, tt.want)
		}
	}
}

func TestComputeGovernanceWeight(t *testing.T) {
	w := ComputeGovernanceWeight(1000, 100, 40)
	if w.ReputationWeight != 100 {
		t.Errorf("reputation weight = %v, want 100", w.ReputationWeight)
	}
	if w.TokenWeight != 160 {
		t.Errorf("token weight = %v, want 160 (staked counts 1.5x)", w.TokenWeight)
	}
	if w.CombinedWeight != 260 {
		t.Errorf("combined weight = %v, want 260", w.CombinedWeight)
	}
	if w.VoteMultiplier != 3.0 {
		t.Errorf("multiplier = %v, want 3.0 at reputation 1000", w.VoteMultiplier)
	}

	if m := ComputeGovernanceWeight(500, 0, 0).VoteMultiplier; m != 2.0 {
		t.Errorf("multiplier at reputation 500 = %v, want 2.0", m)
	}
	if m := ComputeGovernanceWeight(499, 0, 0).VoteMultiplier; m != 1.0 {
		t.Errorf("multiplier at reputation 499 = %v, want 1.0", m)
	}
}

func TestComputeStakingReward(t *testing.T) {
	tests := []struct {
		amount int
		days   int
		base   int
		comp   int
	}{
		{1000, 365, 120, 127},
		{1000, 30, 10, 10},
		{10000, 90, 296, 300},
		{100, 30, 1, 1},
	}

	for _, tt := range tests {
		got := ComputeStakingReward(tt.amount, tt.days)
		if got.BaseReward != tt.base || got.WithCompounding != tt.comp {
			t.Errorf("ComputeStakingReward(%d, %d) = %+v, want base %d comp %d",
				tt.amount, tt.days, got, tt.base, tt.comp)
		}
	}

	if got := ComputeStakingReward(0, 30); got != (StakingReward{}) {
		t.Errorf("zero stake should yield nothing, got %+v", got)
	}
	if got := ComputeStakingReward(1000, -1); got != (StakingReward{}) {
		t.Errorf("negative days should yield nothing, got %+v", got)
	}
}

func TestEarlyWithdrawalPenalty(t *testing.T) {
	tests := []struct {
		name    string
		amount  int
		days    int
		penalty int
		net     int
		pct     float64
	}{
		{"inside lock period", 1000, 10, 100, 900, 10},
		{"last locked day", 1000, 29, 100, 900, 10},
		{"lock matured", 1000, 30, 0, 1000, 0},
		{"long after maturity", 1000, 365, 0, 1000, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EarlyWithdrawalPenalty(tt.amount, tt.days)
			if got.Penalty != tt.penalty || got.NetAmount != tt.net || got.PenaltyPct != tt.pct {
				t.Errorf("EarlyWithdrawalPenalty(%d, %d) = %+v, want penalty %d net %d pct %v",
					tt.amount, tt.days, got, tt.penalty, tt.net, tt.pct)
			}
		})
	}
}

func TestValidateStake(t *testing.T) {
	tests := []struct {
		name    string
		amount  int
		balance int
		wantErr error
	}{
		{"valid", 100, 100, nil},
		{"exceeds balance", 200, 100, ErrInsufficientBalance},
		{"below minimum", 5, 100, ErrInvalidAmount},
		{"above maximum", 200000, 500000, ErrInvalidAmount},
		{"balance check wins over minimum", 5, 3, ErrInsufficientBalance},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStake(tt.amount, tt.balance)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateStake(%d, %d) = %v, want nil", tt.amount, tt.balance, err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateStake(%d, %d) = %v, want %v", tt.amount, tt.balance, err, tt.wantErr)
			}
		})
	}
}

func TestEstimateCirculation(t *testing.T) {
	got := EstimateCirculation(10, 5, 20)
	want := Circulation{FromMissions: 400, InWallets: 100, TotalCirculation: 500}
	if got != want {
		t.Errorf("EstimateCirculation = %+v, want %+v", got, want)
	}

	if got := EstimateCirculation(0, 0, 0); got != (Circulation{}) {
		t.Errorf("empty system circulation = %+v, want zero", got)
	}
}
