package events

import (
	"strconv"

	"refchain/core/types"
	"refchain/crypto"
)

const (
	TypeReferralProgramCreated     = "referral.program.created"
	TypeReferralEscrowInitialized  = "referral.escrow.initialized"
	TypeReferralFundsDeposited     = "referral.funds.deposited"
	TypeReferralSettingsUpdated    = "referral.settings.updated"
	TypeReferralProgramDeactivated = "referral.program.deactivated"
	TypeReferralParticipantJoined  = "referral.participant.joined"
	TypeReferralRewardClaimed      = "referral.reward.claimed"
)

func addr(raw [20]byte) string {
	return crypto.MustAddress(raw).String()
}

func u64(v uint64) string { return strconv.FormatUint(v, 10) }

type ReferralProgramCreated struct {
	Program   [20]byte
	Authority [20]byte
	Asset     types.Asset
	Policy    string
	Vault     [20]byte
}

func (ReferralProgramCreated) EventType() string { return TypeReferralProgramCreated }

func (e ReferralProgramCreated) Event() *types.Event {
	return &types.Event{
		Type: TypeReferralProgramCreated,
		Attributes: map[string]string{
			"program":   addr(e.Program),
			"authority": addr(e.Authority),
			"asset":     e.Asset.String(),
			"policy":    e.Policy,
			"vault":     addr(e.Vault),
		},
	}
}

type ReferralEscrowInitialized struct {
	Program    [20]byte
	TokenVault [20]byte
	Mint       [20]byte
}

func (ReferralEscrowInitialized) EventType() string { return TypeReferralEscrowInitialized }

func (e ReferralEscrowInitialized) Event() *types.Event {
	return &types.Event{
		Type: TypeReferralEscrowInitialized,
		Attributes: map[string]string{
			"program":    addr(e.Program),
			"tokenVault": addr(e.TokenVault),
			"mint":       addr(e.Mint),
		},
	}
}

type ReferralFundsDeposited struct {
	Program        [20]byte
	Authority      [20]byte
	Asset          types.Asset
	Amount         uint64
	TotalAvailable uint64
}

func (ReferralFundsDeposited) EventType() string { return TypeReferralFundsDeposited }

func (e ReferralFundsDeposited) Event() *types.Event {
	return &types.Event{
		Type: TypeReferralFundsDeposited,
		Attributes: map[string]string{
			"program":        addr(e.Program),
			"authority":      addr(e.Authority),
			"asset":          e.Asset.String(),
			"amount":         u64(e.Amount),
			"totalAvailable": u64(e.TotalAvailable),
		},
	}
}

type ReferralSettingsUpdated struct {
	Program     [20]byte
	Authority   [20]byte
	LastUpdated uint64
}

func (ReferralSettingsUpdated) EventType() string { return TypeReferralSettingsUpdated }

func (e ReferralSettingsUpdated) Event() *types.Event {
	return &types.Event{
		Type: TypeReferralSettingsUpdated,
		Attributes: map[string]string{
			"program":     addr(e.Program),
			"authority":   addr(e.Authority),
			"lastUpdated": u64(e.LastUpdated),
		},
	}
}

type ReferralProgramDeactivated struct {
	Program   [20]byte
	Authority [20]byte
}

func (ReferralProgramDeactivated) EventType() string { return TypeReferralProgramDeactivated }

func (e ReferralProgramDeactivated) Event() *types.Event {
	return &types.Event{
		Type: TypeReferralProgramDeactivated,
		Attributes: map[string]string{
			"program":   addr(e.Program),
			"authority": addr(e.Authority),
		},
	}
}

type ReferralParticipantJoined struct {
	Program      [20]byte
	Participant  [20]byte
	Owner        [20]byte
	Referrer     *[20]byte
	ReferralLink string
}

func (ReferralParticipantJoined) EventType() string { return TypeReferralParticipantJoined }

func (e ReferralParticipantJoined) Event() *types.Event {
	attrs := map[string]string{
		"program":      addr(e.Program),
		"participant":  addr(e.Participant),
		"owner":        addr(e.Owner),
		"referralLink": e.ReferralLink,
	}
	if e.Referrer != nil {
		attrs["referrer"] = addr(*e.Referrer)
	}
	return &types.Event{Type: TypeReferralParticipantJoined, Attributes: attrs}
}

type ReferralRewardClaimed struct {
	Program        [20]byte
	Participant    [20]byte
	Owner          [20]byte
	Asset          types.Asset
	Gross          uint64
	Fee            uint64
	Paid           uint64
	TotalAvailable uint64
}

func (ReferralRewardClaimed) EventType() string { return TypeReferralRewardClaimed }

func (e ReferralRewardClaimed) Event() *types.Event {
	return &types.Event{
		Type: TypeReferralRewardClaimed,
		Attributes: map[string]string{
			"program":        addr(e.Program),
			"participant":    addr(e.Participant),
			"owner":          addr(e.Owner),
			"asset":          e.Asset.String(),
			"gross":          u64(e.Gross),
			"fee":            u64(e.Fee),
			"amount":         u64(e.Paid),
			"totalAvailable": u64(e.TotalAvailable),
		},
	}
}
