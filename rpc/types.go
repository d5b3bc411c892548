package rpc

import (
	"encoding/hex"

	"refchain/core"
	"refchain/core/types"
	"refchain/crypto"
	"refchain/indexer"
	"refchain/native/referral"
)

// ReceiptResult reflects an applied transaction.
type ReceiptResult struct {
	TransactionHash string         `json:"transactionHash"`
	Type            string         `json:"type"`
	From            string         `json:"from"`
	AppliedAt       int64          `json:"appliedAt"`
	Events          []*types.Event `json:"events"`
}

// ProgramResult is the RPC view of a program, its eligibility and escrow.
type ProgramResult struct {
	Address                 string  `json:"address"`
	Authority               string  `json:"authority"`
	Asset                   string  `json:"asset"`
	Policy                  string  `json:"policy"`
	FixedRewardAmount       uint64  `json:"fixedRewardAmount"`
	LockedPeriod            uint64  `json:"lockedPeriod"`
	EarlyRedemptionFeeBps   uint64  `json:"earlyRedemptionFeeBps"`
	MintFeeBps              uint64  `json:"mintFeeBps"`
	TotalReferrals          uint64  `json:"totalReferrals"`
	TotalParticipants       uint64  `json:"totalParticipants"`
	TotalRewardsDistributed uint64  `json:"totalRewardsDistributed"`
	TotalAvailable          uint64  `json:"totalAvailable"`
	Active                  bool    `json:"active"`
	Vault                   string  `json:"vault"`
	TokenVault              string  `json:"tokenVault,omitempty"`
	TokenVaultReady         bool    `json:"tokenVaultReady"`
	EscrowBalance           uint64  `json:"escrowBalance"`
	CreatedAt               uint64  `json:"createdAt"`
	BaseReward              uint64  `json:"baseReward"`
	Tier1Threshold          uint64  `json:"tier1Threshold"`
	Tier1Reward             uint64  `json:"tier1Reward"`
	Tier2Threshold          uint64  `json:"tier2Threshold"`
	Tier2Reward             uint64  `json:"tier2Reward"`
	MaxRewardCap            uint64  `json:"maxRewardCap"`
	RevenueShareBps         uint64  `json:"revenueShareBps"`
	RequiredToken           string  `json:"requiredToken,omitempty"`
	MinTokenAmount          uint64  `json:"minTokenAmount"`
	StartTime               uint64  `json:"startTime"`
	EndTime                 *uint64 `json:"endTime,omitempty"`
	LastUpdated             uint64  `json:"lastUpdated"`
}

// ParticipantResult is the RPC view of a participant record.
type ParticipantResult struct {
	Address           string `json:"address"`
	Owner             string `json:"owner"`
	Program           string `json:"program"`
	JoinTime          uint64 `json:"joinTime"`
	TotalReferrals    uint64 `json:"totalReferrals"`
	RewardedReferrals uint64 `json:"rewardedReferrals"`
	TotalRewards      uint64 `json:"totalRewards"`
	FeesWithheld      uint64 `json:"feesWithheld"`
	LastClaimTime     uint64 `json:"lastClaimTime"`
	Referrer          string `json:"referrer,omitempty"`
	ReferralLink      string `json:"referralLink"`
}

// QuoteResult previews a claim.
type QuoteResult struct {
	Participant string `json:"participant"`
	Gross       uint64 `json:"gross"`
	Fee         uint64 `json:"fee"`
	Net         uint64 `json:"net"`
	Referrals   uint64 `json:"referrals"`
	UnlockTime  uint64 `json:"unlockTime"`
}

// EventResult is one indexed event.
type EventResult struct {
	ID         string            `json:"id"`
	Sequence   uint64            `json:"sequence"`
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
	IndexedAt  int64             `json:"indexedAt"`
}

func bech32(addr [20]byte) string { return crypto.MustAddress(addr).String() }

func receiptResult(receipt *types.Receipt) ReceiptResult {
	out := ReceiptResult{
		TransactionHash: "0x" + hex.EncodeToString(receipt.TxHash),
		Type:            receipt.Type.String(),
		From:            bech32(receipt.From),
		AppliedAt:       receipt.Applied,
		Events:          receipt.Events,
	}
	if out.Events == nil {
		out.Events = []*types.Event{}
	}
	return out
}

func programResult(view *core.ProgramView) ProgramResult {
	p, e := view.Program, view.Eligibility
	out := ProgramResult{
		Address:                 bech32(p.Address),
		Authority:               bech32(p.Authority),
		Asset:                   p.Asset().String(),
		Policy:                  p.Policy.String(),
		FixedRewardAmount:       p.FixedRewardAmount,
		LockedPeriod:            p.LockedPeriod,
		EarlyRedemptionFeeBps:   p.EarlyRedemptionFeeBps,
		MintFeeBps:              p.MintFeeBps,
		TotalReferrals:          p.TotalReferrals,
		TotalParticipants:       p.TotalParticipants,
		TotalRewardsDistributed: p.TotalRewardsDistributed,
		TotalAvailable:          p.TotalAvailable,
		Active:                  p.Active,
		Vault:                   bech32(p.Vault),
		TokenVaultReady:         p.TokenVaultReady,
		EscrowBalance:           view.EscrowBalance,
		CreatedAt:               p.CreatedAt,
	}
	if p.TokenMint != nil {
		out.TokenVault = bech32(p.TokenVault)
	}
	if e != nil {
		out.BaseReward = e.BaseReward
		out.Tier1Threshold = e.Tier1Threshold
		out.Tier1Reward = e.Tier1Reward
		out.Tier2Threshold = e.Tier2Threshold
		out.Tier2Reward = e.Tier2Reward
		out.MaxRewardCap = e.MaxRewardCap
		out.RevenueShareBps = e.RevenueShareBps
		out.MinTokenAmount = e.MinTokenAmount
		out.StartTime = e.StartTime
		out.EndTime = e.EndTime
		out.LastUpdated = e.LastUpdated
		if e.RequiredToken != nil {
			out.RequiredToken = bech32(*e.RequiredToken)
		}
	}
	return out
}

func participantResult(p *referral.Participant) ParticipantResult {
	out := ParticipantResult{
		Address:           bech32(p.Address),
		Owner:             bech32(p.Owner),
		Program:           bech32(p.Program),
		JoinTime:          p.JoinTime,
		TotalReferrals:    p.TotalReferrals,
		RewardedReferrals: p.RewardedReferrals,
		TotalRewards:      p.TotalRewards,
		FeesWithheld:      p.FeesWithheld,
		LastClaimTime:     p.LastClaimTime,
		ReferralLink:      p.Link(),
	}
	if p.Referrer != nil {
		out.Referrer = bech32(*p.Referrer)
	}
	return out
}

func eventResult(record indexer.EventRecord) (EventResult, error) {
	evt, err := record.Event()
	if err != nil {
		return EventResult{}, err
	}
	return EventResult{
		ID:         record.ID.String(),
		Sequence:   record.Sequence,
		Type:       evt.Type,
		Attributes: evt.Attributes,
		IndexedAt:  record.CreatedAt.Unix(),
	}, nil
}
