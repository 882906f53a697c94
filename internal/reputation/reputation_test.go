package reputation

import (
	"testing"
)

func TestLevel(t *testing.T) {
	tests := []struct {
		reputation int
		level      int
	}{
		{-50, 0},
		{0, 0},
		{999, 0},
		{1000, 1}, // boundary is inclusive
		{2999, 1},
		{3000, 2},
		{5999, 2},
		{6000, 3},
		{10000, 4},
		{15000, 5},
		{21000, 6},
		{28000, 7},
		{36000, 8},
		{44999, 8},
		{45000, 9},
		{1000000, 9},
	}

	for _, tc := range tests {
		if got := Level(tc.reputation); got != tc.level {
			t.Errorf("Level(%d) = %d, want %d", tc.reputation, got, tc.level)
		}
	}
}

func TestLevelMonotone(t *testing.T) {
	prev := 0
	for r := 0; r <= 50000; r += 37 {
		level := Level(r)
		if level < prev {
			t.Fatalf("Level(%d) = %d dropped below previous %d", r, level, prev)
		}
		prev = level
	}
}

func TestProgressToNextLevel(t *testing.T) {
	p := ProgressToNextLevel(500)
	if p.Level != 0 || p.CurrentFloor != 0 || p.NextFloor != 1000 {
		t.Errorf("unexpected floors: %+v", p)
	}
	if p.ProgressPercent != 50 {
		t.Errorf("ProgressPercent = %f, want 50", p.ProgressPercent)
	}
	if p.PointsToNext != 500 {
		t.Errorf("PointsToNext = %d, want 500", p.PointsToNext)
	}
}

func TestProgressPercentBounds(t *testing.T) {
	for r := -100; r <= 50000; r += 111 {
		p := ProgressToNextLevel(r)
		if p.ProgressPercent < 0 || p.ProgressPercent > 100 {
			t.Fatalf("ProgressToNextLevel(%d).ProgressPercent = %f out of [0,100]", r, p.ProgressPercent)
		}
	}
}

func TestProgressAtTerminalLevel(t *testing.T) {
	for _, r := range []int{45000, 45001, 99999} {
		p := ProgressToNextLevel(r)
		if p.ProgressPercent != 100 {
			t.Errorf("ProgressToNextLevel(%d).ProgressPercent = %f, want 100", r, p.ProgressPercent)
		}
		if p.PointsToNext != 0 {
			t.Errorf("ProgressToNextLevel(%d).PointsToNext = %d, want 0", r, p.PointsToNext)
		}
	}
}

func TestGain(t *testing.T) {
	tests := []struct {
		action Action
		want   int
	}{
		{ActionMissionComplete, 100},
		{ActionMissionReview, 50},
		{ActionContribution, 75},
		{ActionVoting, 10},
		{ActionComment, 5},
		{Action("unknown_thing"), 0},
		{Action(""), 0},
	}

	for _, tc := range tests {
		if got := Gain(tc.action); got != tc.want {
			t.Errorf("Gain(%q) = %d, want %d", tc.action, got, tc.want)
		}
	}
}

func TestUnlockedFeaturesMonotone(t *testing.T) {
	// Every feature unlocked at level N must remain unlocked at N+1.
	prev := map[Feature]bool{}
	for level := 0; level <= MaxLevel; level++ {
		features := UnlockedFeatures(ReputationForLevel(level))
		seen := map[Feature]bool{}
		for _, f := range features {
			seen[f] = true
		}
		for f := range prev {
			if !seen[f] {
				t.Fatalf("feature %s unlocked at a lower level is missing at level %d", f, level)
			}
		}
		prev = seen
	}
}

func TestUnlockedFeaturesAtBase(t *testing.T) {
	features := UnlockedFeatures(0)
	if len(features) != 2 {
		t.Fatalf("expected 2 base features, got %d: %v", len(features), features)
	}
}

func TestUnlockedFeaturesGovernanceGate(t *testing.T) {
	// Governance voting unlocks at level 4 (10000 reputation).
	has := func(features []Feature, want Feature) bool {
		for _, f := range features {
			if f == want {
				return true
			}
		}
		return false
	}

	if has(UnlockedFeatures(9999), FeatureGovernanceVoting) {
		t.Error("governance_voting should not be unlocked below level 4")
	}
	if !has(UnlockedFeatures(10000), FeatureGovernanceVoting) {
		t.Error("governance_voting should be unlocked at level 4")
	}
}

func TestReputationForLevel(t *testing.T) {
	tests := []struct {
		level int
		want  int
	}{
		{-1, 0},
		{0, 0},
		{1, 1000},
		{5, 15000},
		{9, 45000},
		{20, 45000},
	}
	for _, tc := range tests {
		if got := ReputationForLevel(tc.level); got != tc.want {
			t.Errorf("ReputationForLevel(%d) = %d, want %d", tc.level, got, tc.want)
		}
	}
}

func TestConsistencyBonus(t *testing.T) {
	tests := []struct {
		days int
		want int
	}{
		{-5, 0},
		{0, 0},
		{1, 2},
		{4, 8},
		{5, 20},  // 10 linear + 10 milestone
		{9, 28},
		{10, 40}, // 20 linear + 2 milestones
	}
	for _, tc := range tests {
		if got := ConsistencyBonus(tc.days); got != tc.want {
			t.Errorf("ConsistencyBonus(%d) = %d, want %d", tc.days, got, tc.want)
		}
	}
}

func TestConsistencyBonusMonotone(t *testing.T) {
	prev := 0
	for d := 0; d <= 100; d++ {
		bonus := ConsistencyBonus(d)
		if bonus < prev {
			t.Fatalf("ConsistencyBonus(%d) = %d dropped below %d", d, bonus, prev)
		}
		prev = bonus
	}
}
