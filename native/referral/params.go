package referral

const (
	// MinRewardAmount is the smallest fixed or base reward a program may offer.
	MinRewardAmount uint64 = 1

	// MaxFeeBps caps the mint fee and the revenue share.
	MaxFeeBps uint64 = 5_000
	// MaxEarlyRedemptionFeeBps caps the fee charged on early claims.
	MaxEarlyRedemptionFeeBps uint64 = 3_000

	MinLockedPeriod int64 = 86_400
	MaxLockedPeriod int64 = 31_536_000

	bpsDenominator uint64 = 10_000

	// ReferralLinkSize is the fixed capacity of a rendered referral link.
	ReferralLinkSize = 100

	// DefaultServiceDomain hosts rendered referral links unless overridden.
	DefaultServiceDomain = "refchain.io"
)
