package core

import (
	"errors"

	"refchain/core/types"
	"refchain/native/referral"
)

// ErrQueryNotFound indicates the requested record does not exist.
var ErrQueryNotFound = errors.New("query: not found")

// ProgramView bundles a program with its eligibility policy and escrow balance.
type ProgramView struct {
	Program       *referral.Program
	Eligibility   *referral.Eligibility
	EscrowBalance uint64
}

// Program returns the configuration, eligibility and custody balance of the
// program at addr.
func (n *Node) Program(addr [20]byte) (*ProgramView, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	program, err := n.referral.Program(addr)
	if err != nil {
		return nil, err
	}
	elig, err := n.referral.Eligibility(addr)
	if err != nil {
		return nil, err
	}
	escrow, err := n.referral.EscrowBalance(addr)
	if err != nil {
		return nil, err
	}
	return &ProgramView{Program: program, Eligibility: elig, EscrowBalance: escrow}, nil
}

// ProgramsByAuthority lists the programs created by authority in creation order.
func (n *Node) ProgramsByAuthority(authority [20]byte) ([][20]byte, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.state.ReferralProgramsByAuthority(authority)
}

// Participant returns the participant record at addr.
func (n *Node) Participant(addr [20]byte) (*referral.Participant, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.referral.Participant(addr)
}

// ParticipantByOwner returns owner's participant record in program.
func (n *Node) ParticipantByOwner(program, owner [20]byte) (*referral.Participant, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.referral.ParticipantByOwner(program, owner)
}

// Participants lists the participant addresses registered in program.
func (n *Node) Participants(program [20]byte) ([][20]byte, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if _, err := n.referral.Program(program); err != nil {
		return nil, err
	}
	return n.state.ReferralParticipantsByProgram(program)
}

// Claimable previews what a claim by the participant would pay right now.
func (n *Node) Claimable(participant [20]byte) (*referral.Quote, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.referral.Claimable(participant)
}

// Account returns the nonce of addr and its balance in asset.
func (n *Node) Account(addr [20]byte, asset types.Asset) (*types.Account, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	nonce, err := n.state.Nonce(addr)
	if err != nil {
		return nil, err
	}
	balance, err := n.state.Balance(addr, asset)
	if err != nil {
		return nil, err
	}
	return &types.Account{
		Address: addressString(addr),
		Nonce:   nonce,
		Asset:   asset.String(),
		Balance: balance,
	}, nil
}
