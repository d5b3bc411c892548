package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"refchain/core/types"
	"refchain/crypto"
	"refchain/native/referral"
)

// applyTransaction decodes the payload of tx and routes it to the referral
// engine. The caller owns rollback on error.
func (n *Node) applyTransaction(sender [20]byte, tx *types.Transaction) error {
	switch tx.Type {
	case types.TxTypeCreateProgram:
		var payload types.CreateProgramPayload
		if err := decodePayload(tx.Data, &payload); err != nil {
			return err
		}
		params, err := createParamsFromPayload(sender, payload)
		if err != nil {
			return err
		}
		_, _, err = n.referral.CreateProgram(params)
		return err
	case types.TxTypeInitTokenEscrow:
		var payload types.InitTokenEscrowPayload
		if err := decodePayload(tx.Data, &payload); err != nil {
			return err
		}
		program, err := parseAddress("program", payload.Program)
		if err != nil {
			return err
		}
		mint, err := parseAddress("mint", payload.Mint)
		if err != nil {
			return err
		}
		return n.referral.InitializeTokenEscrow(sender, program, mint)
	case types.TxTypeDepositFunds:
		var payload types.DepositPayload
		if err := decodePayload(tx.Data, &payload); err != nil {
			return err
		}
		program, err := parseAddress("program", payload.Program)
		if err != nil {
			return err
		}
		asset, err := types.ParseAsset(payload.Asset)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		_, err = n.referral.DepositFunds(sender, program, asset, payload.Amount)
		return err
	case types.TxTypeUpdateSettings:
		var payload types.UpdateSettingsPayload
		if err := decodePayload(tx.Data, &payload); err != nil {
			return err
		}
		program, err := parseAddress("program", payload.Program)
		if err != nil {
			return err
		}
		settings, err := settingsFromUpdate(payload)
		if err != nil {
			return err
		}
		_, _, err = n.referral.UpdateSettings(sender, program, settings)
		return err
	case types.TxTypeDeactivateProgram:
		var payload types.ProgramRefPayload
		if err := decodePayload(tx.Data, &payload); err != nil {
			return err
		}
		program, err := parseAddress("program", payload.Program)
		if err != nil {
			return err
		}
		return n.referral.DeactivateProgram(sender, program)
	case types.TxTypeJoin, types.TxTypeJoinThroughReferral:
		var payload types.JoinPayload
		if err := decodePayload(tx.Data, &payload); err != nil {
			return err
		}
		program, err := parseAddress("program", payload.Program)
		if err != nil {
			return err
		}
		if tx.Type == types.TxTypeJoin {
			if strings.TrimSpace(payload.Referrer) != "" {
				return fmt.Errorf("%w: referrer not accepted by join", ErrInvalidPayload)
			}
			_, err = n.referral.Join(sender, program)
			return err
		}
		referrer, err := parseAddress("referrer", payload.Referrer)
		if err != nil {
			return err
		}
		_, err = n.referral.JoinThroughReferral(sender, program, referrer)
		return err
	case types.TxTypeClaim:
		var payload types.ClaimPayload
		if err := decodePayload(tx.Data, &payload); err != nil {
			return err
		}
		program, err := parseAddress("program", payload.Program)
		if err != nil {
			return err
		}
		participant, err := parseAddress("participant", payload.Participant)
		if err != nil {
			return err
		}
		_, err = n.referral.Claim(sender, program, participant)
		return err
	default:
		return fmt.Errorf("%w: %s", ErrUnknownTxType, tx.Type)
	}
}

func decodePayload(data []byte, out interface{}) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return fmt.Errorf("%w: empty data", ErrInvalidPayload)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}

func parseAddress(field, raw string) ([20]byte, error) {
	if strings.TrimSpace(raw) == "" {
		return [20]byte{}, fmt.Errorf("%w: %s required", ErrInvalidPayload, field)
	}
	addr, err := crypto.ParseRaw(raw)
	if err != nil {
		return [20]byte{}, fmt.Errorf("%w: %s: %v", ErrInvalidPayload, field, err)
	}
	return addr, nil
}

func parseOptionalAddress(field, raw string) (*[20]byte, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	addr, err := parseAddress(field, raw)
	if err != nil {
		return nil, err
	}
	return &addr, nil
}

func addressString(addr [20]byte) string {
	return crypto.MustAddress(addr).String()
}

func createParamsFromPayload(authority [20]byte, p types.CreateProgramPayload) (referral.CreateParams, error) {
	policy, err := referral.ParseRewardPolicy(p.Policy)
	if err != nil {
		return referral.CreateParams{}, err
	}
	mint, err := parseOptionalAddress("tokenMint", p.TokenMint)
	if err != nil {
		return referral.CreateParams{}, err
	}
	requiredToken, err := parseOptionalAddress("requiredToken", p.RequiredToken)
	if err != nil {
		return referral.CreateParams{}, err
	}
	return referral.CreateParams{
		Authority: authority,
		Salt:      p.Salt,
		TokenMint: mint,
		Policy:    policy,
		Settings: referral.Settings{
			FixedRewardAmount:     p.FixedRewardAmount,
			LockedPeriod:          p.LockedPeriod,
			EarlyRedemptionFeeBps: p.EarlyRedemptionFeeBps,
			MintFeeBps:            p.MintFeeBps,
			BaseReward:            p.BaseReward,
			Tier1Threshold:        p.Tier1Threshold,
			Tier1Reward:           p.Tier1Reward,
			Tier2Threshold:        p.Tier2Threshold,
			Tier2Reward:           p.Tier2Reward,
			MaxRewardCap:          p.MaxRewardCap,
			RevenueShareBps:       p.RevenueShareBps,
			RequiredToken:         requiredToken,
			MinTokenAmount:        p.MinTokenAmount,
			ProgramEndTime:        p.ProgramEndTime,
		},
	}, nil
}

func settingsFromUpdate(p types.UpdateSettingsPayload) (referral.Settings, error) {
	requiredToken, err := parseOptionalAddress("requiredToken", p.RequiredToken)
	if err != nil {
		return referral.Settings{}, err
	}
	return referral.Settings{
		FixedRewardAmount:     p.FixedRewardAmount,
		LockedPeriod:          p.LockedPeriod,
		EarlyRedemptionFeeBps: p.EarlyRedemptionFeeBps,
		MintFeeBps:            p.MintFeeBps,
		BaseReward:            p.BaseReward,
		Tier1Threshold:        p.Tier1Threshold,
		Tier1Reward:           p.Tier1Reward,
		Tier2Threshold:        p.Tier2Threshold,
		Tier2Reward:           p.Tier2Reward,
		MaxRewardCap:          p.MaxRewardCap,
		RevenueShareBps:       p.RevenueShareBps,
		RequiredToken:         requiredToken,
		MinTokenAmount:        p.MinTokenAmount,
		ProgramEndTime:        p.ProgramEndTime,
	}, nil
}
