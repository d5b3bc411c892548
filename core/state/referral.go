package state

import (
	"fmt"

	"refchain/native/referral"
)

var (
	referralProgramPrefix     = []byte("referral/program/")
	referralEligibilityPrefix = []byte("referral/eligibility/")
	referralParticipantPrefix = []byte("referral/participant/")
	referralAuthorityIndex    = []byte("referral/authority/")
	referralMembersIndex      = []byte("referral/members/")
)

func prefixedKey(prefix []byte, addr [20]byte) []byte {
	buf := make([]byte, 0, len(prefix)+len(addr))
	buf = append(buf, prefix...)
	return append(buf, addr[:]...)
}

// ReferralProgramGet loads the program stored at addr.
func (m *Manager) ReferralProgramGet(addr [20]byte) (*referral.Program, bool, error) {
	program := new(referral.Program)
	ok, err := m.KVGet(prefixedKey(referralProgramPrefix, addr), program)
	if err != nil {
		return nil, false, fmt.Errorf("state: load referral program: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	return program, true, nil
}

// ReferralProgramPut stores the program record.
func (m *Manager) ReferralProgramPut(program *referral.Program) error {
	if program == nil {
		return fmt.Errorf("state: nil referral program")
	}
	return m.KVPut(prefixedKey(referralProgramPrefix, program.Address), program)
}

// ReferralProgramIndex records program under its authority. Called once when
// the program is created.
func (m *Manager) ReferralProgramIndex(authority, program [20]byte) error {
	return m.KVAppend(prefixedKey(referralAuthorityIndex, authority), program[:])
}

// ReferralProgramsByAuthority lists the programs created by authority in
// creation order.
func (m *Manager) ReferralProgramsByAuthority(authority [20]byte) ([][20]byte, error) {
	return m.addressList(prefixedKey(referralAuthorityIndex, authority))
}

// ReferralEligibilityGet loads the eligibility policy of program.
func (m *Manager) ReferralEligibilityGet(program [20]byte) (*referral.Eligibility, bool, error) {
	elig := new(referral.Eligibility)
	ok, err := m.KVGet(prefixedKey(referralEligibilityPrefix, program), elig)
	if err != nil {
		return nil, false, fmt.Errorf("state: load referral eligibility: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	return elig, true, nil
}

// ReferralEligibilityPut stores an eligibility policy under its program.
func (m *Manager) ReferralEligibilityPut(elig *referral.Eligibility) error {
	if elig == nil {
		return fmt.Errorf("state: nil referral eligibility")
	}
	return m.KVPut(prefixedKey(referralEligibilityPrefix, elig.Program), elig)
}

// ReferralParticipantGet loads the participant stored at addr.
func (m *Manager) ReferralParticipantGet(addr [20]byte) (*referral.Participant, bool, error) {
	participant := new(referral.Participant)
	ok, err := m.KVGet(prefixedKey(referralParticipantPrefix, addr), participant)
	if err != nil {
		return nil, false, fmt.Errorf("state: load referral participant: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	return participant, true, nil
}

// ReferralParticipantPut stores the participant record.
func (m *Manager) ReferralParticipantPut(participant *referral.Participant) error {
	if participant == nil {
		return fmt.Errorf("state: nil referral participant")
	}
	return m.KVPut(prefixedKey(referralParticipantPrefix, participant.Address), participant)
}

// ReferralParticipantIndex records participant as a member of program. Called
// once when the participant joins.
func (m *Manager) ReferralParticipantIndex(program, participant [20]byte) error {
	return m.KVAppend(prefixedKey(referralMembersIndex, program), participant[:])
}

// ReferralParticipantsByProgram lists the participants of program in join
// order.
func (m *Manager) ReferralParticipantsByProgram(program [20]byte) ([][20]byte, error) {
	return m.addressList(prefixedKey(referralMembersIndex, program))
}

func (m *Manager) addressList(key []byte) ([][20]byte, error) {
	var raw [][]byte
	if err := m.KVGetList(key, &raw); err != nil {
		return nil, err
	}
	out := make([][20]byte, 0, len(raw))
	for _, entry := range raw {
		if len(entry) != 20 {
			return nil, fmt.Errorf("state: malformed index entry of %d bytes", len(entry))
		}
		var addr [20]byte
		copy(addr[:], entry)
		out = append(out, addr)
	}
	return out, nil
}
