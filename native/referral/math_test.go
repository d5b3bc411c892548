package referral

import (
	"errors"
	"testing"
)

func TestTierRateSelection(t *testing.T) {
	elig := &Eligibility{BaseReward: 10, Tier1Threshold: 3, Tier1Reward: 20, Tier2Threshold: 10, Tier2Reward: 30}
	cases := []struct {
		referrals uint64
		want      uint64
	}{
		{0, 10},
		{2, 10},
		{3, 20},
		{9, 20},
		{10, 30},
		{1_000, 30},
	}
	for _, tc := range cases {
		if got := TierRate(elig, tc.referrals); got != tc.want {
			t.Fatalf("TierRate(%d) = %d, want %d", tc.referrals, got, tc.want)
		}
	}
}

func TestProportionalShare(t *testing.T) {
	got, err := ProportionalShare(1, 1_000_000_000, 1)
	if err != nil || got != 1_000_000_000 {
		t.Fatalf("full pool share = %d err=%v", got, err)
	}
	if got, _ := ProportionalShare(5, 1_000, 0); got != 0 {
		t.Fatalf("zero participants must yield 0, got %d", got)
	}
	if got, _ := ProportionalShare(1, 10, 3); got != 3 {
		t.Fatalf("share must floor, got %d", got)
	}
	// The intermediate product exceeds 64 bits but the quotient does not.
	max := ^uint64(0)
	if got, err := ProportionalShare(max, max, max); err != nil || got != max {
		t.Fatalf("wide intermediate share = %d err=%v", got, err)
	}
	if _, err := ProportionalShare(2, max, 1); !errors.Is(err, ErrNumericOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
}

func TestCheckedArithmetic(t *testing.T) {
	if _, err := checkedAdd(^uint64(0), 1); !errors.Is(err, ErrNumericOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
	if _, err := checkedSub(1, 2, ErrInsufficientFunds); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	if v, err := checkedSub(5, 2, ErrInsufficientFunds); err != nil || v != 3 {
		t.Fatalf("checkedSub = %d err=%v", v, err)
	}
	if got := saturatingMul(^uint64(0), 2); got != ^uint64(0) {
		t.Fatalf("saturatingMul must clamp, got %d", got)
	}
}

func TestRedemptionFeeAnchors(t *testing.T) {
	program := &Program{LockedPeriod: 100, EarlyRedemptionFeeBps: 2_500}
	participant := &Participant{JoinTime: 1_000}

	fee, unlock := redemptionFee(program, participant, 400, 1_050)
	if fee != 100 || unlock != 1_100 {
		t.Fatalf("join anchored fee=%d unlock=%d", fee, unlock)
	}
	if fee, _ := redemptionFee(program, participant, 400, 1_100); fee != 0 {
		t.Fatalf("fee after unlock = %d", fee)
	}

	participant.LastClaimTime = 2_000
	fee, unlock = redemptionFee(program, participant, 400, 2_050)
	if fee != 100 || unlock != 2_100 {
		t.Fatalf("claim anchored fee=%d unlock=%d", fee, unlock)
	}
}

func TestComputeClaimableTieredSettlesPending(t *testing.T) {
	program := &Program{Policy: PolicyTiered}
	elig := &Eligibility{BaseReward: 10, Tier1Threshold: 3, Tier1Reward: 20, Tier2Threshold: 10, Tier2Reward: 30, MaxRewardCap: 1_000}
	participant := &Participant{TotalReferrals: 4, RewardedReferrals: 1}

	gross, settled, err := ComputeClaimable(program, elig, participant)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if gross != 60 || settled != 3 {
		t.Fatalf("gross=%d settled=%d, want 60 and 3", gross, settled)
	}

	participant.RewardedReferrals = 4
	if gross, _, _ := ComputeClaimable(program, elig, participant); gross != 0 {
		t.Fatalf("settled participant must have nothing claimable, got %d", gross)
	}

	if _, _, err := ComputeClaimable(&Program{Policy: RewardPolicy(9)}, elig, participant); !errors.Is(err, ErrInvalidPolicy) {
		t.Fatalf("expected invalid policy, got %v", err)
	}
}
