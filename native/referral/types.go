package referral

import (
	"bytes"
	"fmt"
	"strings"

	"refchain/core/types"
)

// RewardPolicy selects how a program turns referral activity into a payout.
type RewardPolicy uint8

const (
	// PolicyTiered pays a per-referral rate chosen by tier, capped per
	// participant by MaxRewardCap.
	PolicyTiered RewardPolicy = iota
	// PolicyProportional pays each participant a share of the live pool
	// weighted by referral count.
	PolicyProportional
	// PolicyFixed pays FixedRewardAmount per referral, capped per participant
	// by MaxRewardCap.
	PolicyFixed
)

func (p RewardPolicy) String() string {
	switch p {
	case PolicyTiered:
		return "tiered"
	case PolicyProportional:
		return "proportional"
	case PolicyFixed:
		return "fixed"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(p))
	}
}

// Valid reports whether the policy is supported.
func (p RewardPolicy) Valid() bool {
	return p == PolicyTiered || p == PolicyProportional || p == PolicyFixed
}

// ParseRewardPolicy maps a textual policy name. The empty string selects the
// tiered policy.
func ParseRewardPolicy(raw string) (RewardPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "tiered":
		return PolicyTiered, nil
	case "proportional":
		return PolicyProportional, nil
	case "fixed":
		return PolicyFixed, nil
	default:
		return 0, wrap(ErrInvalidPolicy, "%q", raw)
	}
}

// Program is the configuration and running totals of one referral program.
type Program struct {
	Address                 [20]byte
	Authority               [20]byte
	Salt                    uint64
	AssetKind               types.AssetKind
	TokenMint               *[20]byte `rlp:"nil"`
	Policy                  RewardPolicy
	FixedRewardAmount       uint64
	LockedPeriod            uint64
	EarlyRedemptionFeeBps   uint64
	MintFeeBps              uint64
	TotalReferrals          uint64
	TotalParticipants       uint64
	TotalRewardsDistributed uint64
	TotalAvailable          uint64
	Active                  bool
	Vault                   [20]byte
	TokenVault              [20]byte
	TokenVaultReady         bool
	CreatedAt               uint64
}

// Asset returns the reward asset configured for the program.
func (p *Program) Asset() types.Asset {
	if p == nil || p.AssetKind != types.AssetToken || p.TokenMint == nil {
		return types.NativeAsset()
	}
	return types.TokenAsset(*p.TokenMint)
}

// Escrow returns the custody account that holds the program's reward pool.
func (p *Program) Escrow() [20]byte {
	if p.AssetKind == types.AssetToken {
		return p.TokenVault
	}
	return p.Vault
}

// Clone returns a deep copy of the program.
func (p *Program) Clone() *Program {
	if p == nil {
		return nil
	}
	clone := *p
	if p.TokenMint != nil {
		mint := *p.TokenMint
		clone.TokenMint = &mint
	}
	return &clone
}

// Eligibility is the tier schedule and program window bound 1:1 to a program.
type Eligibility struct {
	Program         [20]byte
	BaseReward      uint64
	Tier1Threshold  uint64
	Tier1Reward     uint64
	Tier2Threshold  uint64
	Tier2Reward     uint64
	MaxRewardCap    uint64
	RevenueShareBps uint64
	RequiredToken   *[20]byte `rlp:"nil"`
	MinTokenAmount  uint64
	StartTime       uint64
	EndTime         *uint64 `rlp:"nil"`
	Active          bool
	LastUpdated     uint64
}

// Clone returns a deep copy of the eligibility policy.
func (e *Eligibility) Clone() *Eligibility {
	if e == nil {
		return nil
	}
	clone := *e
	if e.RequiredToken != nil {
		token := *e.RequiredToken
		clone.RequiredToken = &token
	}
	if e.EndTime != nil {
		end := *e.EndTime
		clone.EndTime = &end
	}
	return &clone
}

// Participant is one user's registration in a program.
type Participant struct {
	Address           [20]byte
	Owner             [20]byte
	Program           [20]byte
	JoinTime          uint64
	TotalReferrals    uint64
	TotalRewards      uint64
	RewardedReferrals uint64
	FeesWithheld      uint64
	LastClaimTime     uint64
	Referrer          *[20]byte `rlp:"nil"`
	ReferralLink      [ReferralLinkSize]byte
}

// Link returns the referral link with the zero padding trimmed.
func (p *Participant) Link() string {
	if p == nil {
		return ""
	}
	return string(bytes.TrimRight(p.ReferralLink[:], "\x00"))
}

// Clone returns a deep copy of the participant.
func (p *Participant) Clone() *Participant {
	if p == nil {
		return nil
	}
	clone := *p
	if p.Referrer != nil {
		ref := *p.Referrer
		clone.Referrer = &ref
	}
	return &clone
}

// Settings holds the mutable program parameters accepted by creation and
// updates. Optional values are nil when absent.
type Settings struct {
	FixedRewardAmount     uint64
	LockedPeriod          int64
	EarlyRedemptionFeeBps uint64
	MintFeeBps            uint64
	BaseReward            uint64
	Tier1Threshold        uint64
	Tier1Reward           uint64
	Tier2Threshold        uint64
	Tier2Reward           uint64
	MaxRewardCap          uint64
	RevenueShareBps       uint64
	RequiredToken         *[20]byte
	MinTokenAmount        uint64
	ProgramEndTime        *int64
}

// CreateParams describes a new program.
type CreateParams struct {
	Authority [20]byte
	Salt      uint64
	// TokenMint selects a token reward asset; nil selects the native coin.
	TokenMint *[20]byte
	Policy    RewardPolicy
	Settings
}

// ClaimResult reports the outcome of a successful claim.
type ClaimResult struct {
	Gross uint64
	Fee   uint64
	Paid  uint64
}

// Quote is a read-only preview of what a claim would pay now.
type Quote struct {
	Gross      uint64
	Fee        uint64
	Net        uint64
	Referrals  uint64
	UnlockTime uint64
}
