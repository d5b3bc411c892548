package referral

import (
	"errors"

	"refchain/core/events"
)

// Join registers user in the program without a referrer.
func (e *Engine) Join(user, programAddr [20]byte) (*Participant, error) {
	return e.join(user, programAddr, nil)
}

// JoinThroughReferral registers user in the program and credits the referring
// participant with one referral. Both records change together or not at all.
func (e *Engine) JoinThroughReferral(user, programAddr, referrer [20]byte) (*Participant, error) {
	return e.join(user, programAddr, &referrer)
}

func (e *Engine) join(user, programAddr [20]byte, referrerAddr *[20]byte) (*Participant, error) {
	var out *Participant
	err := e.apply(func(pending *events.Buffer) error {
		program, err := e.loadProgram(programAddr)
		if err != nil {
			return err
		}
		if !program.Active {
			return ErrProgramInactive
		}
		elig, err := e.loadEligibility(programAddr)
		if err != nil {
			return err
		}
		now := e.now()
		if elig.EndTime != nil && now > *elig.EndTime {
			return ErrProgramEnded
		}

		var referrer *Participant
		if referrerAddr != nil {
			referrer, err = e.loadParticipant(*referrerAddr)
			if errors.Is(err, ErrParticipantNotFound) {
				return wrap(ErrInvalidReferrer, "referrer not registered")
			}
			if err != nil {
				return err
			}
			if referrer.Program != programAddr {
				return wrap(ErrInvalidReferrer, "referrer belongs to another program")
			}
			if referrer.Owner == user {
				return wrap(ErrInvalidReferrer, "self referral")
			}
		}

		addr := ParticipantAddress(programAddr, user)
		if _, exists, err := e.state.ReferralParticipantGet(addr); err != nil {
			return err
		} else if exists {
			return ErrParticipantExists
		}
		link, err := RenderReferralLink(e.domain, user)
		if err != nil {
			return err
		}

		participant := &Participant{
			Address:      addr,
			Owner:        user,
			Program:      programAddr,
			JoinTime:     now,
			ReferralLink: link,
		}
		if program.TotalParticipants, err = checkedAdd(program.TotalParticipants, 1); err != nil {
			return err
		}
		if referrer != nil {
			if referrer.TotalReferrals, err = checkedAdd(referrer.TotalReferrals, 1); err != nil {
				return err
			}
			if program.TotalReferrals, err = checkedAdd(program.TotalReferrals, 1); err != nil {
				return err
			}
			ref := referrer.Address
			participant.Referrer = &ref
			if err := e.state.ReferralParticipantPut(referrer); err != nil {
				return err
			}
		}
		if err := e.state.ReferralParticipantPut(participant); err != nil {
			return err
		}
		if err := e.state.ReferralParticipantIndex(programAddr, addr); err != nil {
			return err
		}
		if err := e.state.ReferralProgramPut(program); err != nil {
			return err
		}
		pending.Emit(events.ReferralParticipantJoined{
			Program:      programAddr,
			Participant:  addr,
			Owner:        user,
			Referrer:     participant.Referrer,
			ReferralLink: participant.Link(),
		})
		out = participant.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
