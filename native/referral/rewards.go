package referral

import "refchain/core/events"

func (e *Engine) quote(program *Program, elig *Eligibility, participant *Participant) (*Quote, uint64, error) {
	gross, settled, err := ComputeClaimable(program, elig, participant)
	if err != nil {
		return nil, 0, err
	}
	fee, unlock := redemptionFee(program, participant, gross, e.now())
	return &Quote{
		Gross:      gross,
		Fee:        fee,
		Net:        gross - fee,
		Referrals:  participant.TotalReferrals,
		UnlockTime: unlock,
	}, settled, nil
}

// Claimable previews the payout a claim by the participant would produce now.
func (e *Engine) Claimable(participantAddr [20]byte) (*Quote, error) {
	var out *Quote
	err := e.view(func() error {
		participant, err := e.loadParticipant(participantAddr)
		if err != nil {
			return err
		}
		program, err := e.loadProgram(participant.Program)
		if err != nil {
			return err
		}
		elig, err := e.loadEligibility(participant.Program)
		if err != nil {
			return err
		}
		out, _, err = e.quote(program, elig, participant)
		return err
	})
	return out, err
}

// Claim pays the participant's claimable reward from the program escrow to
// the caller, who must own the participant record. An early claim withholds
// the redemption fee, which stays in the pool.
func (e *Engine) Claim(caller, programAddr, participantAddr [20]byte) (*ClaimResult, error) {
	var out *ClaimResult
	err := e.apply(func(pending *events.Buffer) error {
		program, err := e.loadProgram(programAddr)
		if err != nil {
			return err
		}
		if !program.Active {
			return ErrProgramInactive
		}
		participant, err := e.loadParticipant(participantAddr)
		if err != nil {
			return err
		}
		if participant.Program != programAddr {
			return wrap(ErrParticipantNotFound, "participant belongs to another program")
		}
		if participant.Owner != caller {
			return ErrInvalidOwner
		}
		elig, err := e.loadEligibility(programAddr)
		if err != nil {
			return err
		}
		q, settled, err := e.quote(program, elig, participant)
		if err != nil {
			return err
		}
		if q.Gross == 0 {
			return ErrNoRewardsAvailable
		}
		if q.Gross > program.TotalAvailable {
			return wrap(ErrInsufficientFunds, "claim %d exceeds pool %d", q.Gross, program.TotalAvailable)
		}
		asset := program.Asset()
		if err := e.transfer(program.Escrow(), caller, asset, q.Net, ErrInsufficientFunds); err != nil {
			return err
		}

		if participant.TotalRewards, err = checkedAdd(participant.TotalRewards, q.Net); err != nil {
			return err
		}
		if participant.FeesWithheld, err = checkedAdd(participant.FeesWithheld, q.Fee); err != nil {
			return err
		}
		if participant.RewardedReferrals, err = checkedAdd(participant.RewardedReferrals, settled); err != nil {
			return err
		}
		participant.LastClaimTime = e.now()
		if program.TotalAvailable, err = checkedSub(program.TotalAvailable, q.Net, ErrInsufficientFunds); err != nil {
			return err
		}
		if program.TotalRewardsDistributed, err = checkedAdd(program.TotalRewardsDistributed, q.Net); err != nil {
			return err
		}
		if err := e.state.ReferralParticipantPut(participant); err != nil {
			return err
		}
		if err := e.state.ReferralProgramPut(program); err != nil {
			return err
		}
		pending.Emit(events.ReferralRewardClaimed{
			Program:        programAddr,
			Participant:    participantAddr,
			Owner:          caller,
			Asset:          asset,
			Gross:          q.Gross,
			Fee:            q.Fee,
			Paid:           q.Net,
			TotalAvailable: program.TotalAvailable,
		})
		out = &ClaimResult{Gross: q.Gross, Fee: q.Fee, Paid: q.Net}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
