package referral

import "github.com/holiman/uint256"

func checkedAdd(a, b uint64) (uint64, error) {
	sum := a + b
	if sum < a {
		return 0, ErrNumericOverflow
	}
	return sum, nil
}

func checkedSub(a, b uint64, underflow *Error) (uint64, error) {
	if b > a {
		return 0, underflow
	}
	return a - b, nil
}

// mulDiv returns floor(a*b/d) using a 256-bit intermediate. A zero divisor
// yields zero.
func mulDiv(a, b, d uint64) (uint64, error) {
	if d == 0 {
		return 0, nil
	}
	product := new(uint256.Int).Mul(uint256.NewInt(a), uint256.NewInt(b))
	quotient := product.Div(product, uint256.NewInt(d))
	if !quotient.IsUint64() {
		return 0, ErrNumericOverflow
	}
	return quotient.Uint64(), nil
}

// saturatingMul multiplies without wrapping, clamping at the uint64 maximum.
func saturatingMul(a, b uint64) uint64 {
	product, overflow := new(uint256.Int).MulOverflow(uint256.NewInt(a), uint256.NewInt(b))
	if overflow || !product.IsUint64() {
		return ^uint64(0)
	}
	return product.Uint64()
}

// bpsOf returns floor(amount*bps/10000).
func bpsOf(amount, bps uint64) uint64 {
	if bps > bpsDenominator {
		bps = bpsDenominator
	}
	out, _ := mulDiv(amount, bps, bpsDenominator)
	return out
}

// TierRate returns the per-referral reward for a participant with the given
// referral count: tier 2 at or above its threshold, tier 1 at or above its
// threshold, the base reward otherwise.
func TierRate(elig *Eligibility, referrals uint64) uint64 {
	if elig == nil {
		return 0
	}
	switch {
	case referrals >= elig.Tier2Threshold:
		return elig.Tier2Reward
	case referrals >= elig.Tier1Threshold:
		return elig.Tier1Reward
	default:
		return elig.BaseReward
	}
}

// ProportionalShare returns floor(referrals*available/participants), or zero
// when the program has no participants.
func ProportionalShare(referrals, available, participants uint64) (uint64, error) {
	if participants == 0 {
		return 0, nil
	}
	return mulDiv(referrals, available, participants)
}

// ComputeClaimable returns the gross amount the participant could claim now
// and the number of referrals the claim settles. It does not read or write
// state.
func ComputeClaimable(program *Program, elig *Eligibility, participant *Participant) (gross uint64, settled uint64, err error) {
	if program == nil || participant == nil {
		return 0, 0, nil
	}
	switch program.Policy {
	case PolicyProportional:
		gross, err = ProportionalShare(participant.TotalReferrals, program.TotalAvailable, program.TotalParticipants)
		return gross, 0, err
	case PolicyTiered, PolicyFixed:
		if participant.RewardedReferrals >= participant.TotalReferrals {
			return 0, 0, nil
		}
		pending := participant.TotalReferrals - participant.RewardedReferrals
		rate := program.FixedRewardAmount
		if program.Policy == PolicyTiered {
			rate = TierRate(elig, participant.TotalReferrals)
		}
		gross = saturatingMul(rate, pending)
		if elig != nil {
			earned := participant.TotalRewards + participant.FeesWithheld
			if earned < participant.TotalRewards || earned >= elig.MaxRewardCap {
				gross = 0
			} else if remaining := elig.MaxRewardCap - earned; gross > remaining {
				gross = remaining
			}
		}
		return gross, pending, nil
	default:
		return 0, 0, ErrInvalidPolicy
	}
}

// redemptionFee returns the early-redemption fee due on gross at time now.
// The lock runs from the participant's last claim, or from the join time
// before the first claim.
func redemptionFee(program *Program, participant *Participant, gross, now uint64) (fee uint64, unlock uint64) {
	anchor := participant.JoinTime
	if participant.LastClaimTime != 0 {
		anchor = participant.LastClaimTime
	}
	unlock, err := checkedAdd(anchor, program.LockedPeriod)
	if err != nil {
		unlock = ^uint64(0)
	}
	if now >= unlock || program.EarlyRedemptionFeeBps == 0 {
		return 0, unlock
	}
	return bpsOf(gross, program.EarlyRedemptionFeeBps), unlock
}
