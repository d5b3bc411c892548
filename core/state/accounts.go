package state

import (
	"fmt"

	coreerrors "refchain/core/errors"
	"refchain/core/types"
)

var (
	balancePrefix = []byte("balance:")
	noncePrefix   = []byte("nonce:")
)

func balanceKey(addr [20]byte, asset types.Asset) []byte {
	assetKey := asset.Key()
	buf := make([]byte, 0, len(balancePrefix)+len(assetKey)+1+len(addr))
	buf = append(buf, balancePrefix...)
	buf = append(buf, assetKey...)
	buf = append(buf, ':')
	return append(buf, addr[:]...)
}

func nonceKey(addr [20]byte) []byte {
	buf := make([]byte, 0, len(noncePrefix)+len(addr))
	buf = append(buf, noncePrefix...)
	return append(buf, addr[:]...)
}

// Balance returns the balance held by addr in the supplied asset.
func (m *Manager) Balance(addr [20]byte, asset types.Asset) (uint64, error) {
	var amount uint64
	if _, err := m.KVGet(balanceKey(addr, asset), &amount); err != nil {
		return 0, fmt.Errorf("state: load balance: %w", err)
	}
	return amount, nil
}

// SetBalance overwrites the balance held by addr in the supplied asset.
func (m *Manager) SetBalance(addr [20]byte, asset types.Asset, amount uint64) error {
	if amount == 0 {
		return m.KVDelete(balanceKey(addr, asset))
	}
	return m.KVPut(balanceKey(addr, asset), amount)
}

// Credit adds amount to the balance of addr, failing on overflow.
func (m *Manager) Credit(addr [20]byte, asset types.Asset, amount uint64) error {
	if amount == 0 {
		return coreerrors.ErrZeroAmount
	}
	current, err := m.Balance(addr, asset)
	if err != nil {
		return err
	}
	next := current + amount
	if next < current {
		return coreerrors.ErrBalanceOverflow
	}
	return m.SetBalance(addr, asset, next)
}

// Transfer moves amount of asset from one account to another. The transfer is
// all-or-nothing: when the source balance is insufficient or the destination
// would overflow, neither balance changes.
func (m *Manager) Transfer(from, to [20]byte, asset types.Asset, amount uint64) error {
	if amount == 0 {
		return coreerrors.ErrZeroAmount
	}
	if from == to {
		return coreerrors.ErrSelfTransfer
	}
	fromBal, err := m.Balance(from, asset)
	if err != nil {
		return err
	}
	if fromBal < amount {
		return fmt.Errorf("%w: have %d, need %d", coreerrors.ErrInsufficientBalance, fromBal, amount)
	}
	toBal, err := m.Balance(to, asset)
	if err != nil {
		return err
	}
	if toBal+amount < toBal {
		return coreerrors.ErrBalanceOverflow
	}
	if err := m.SetBalance(from, asset, fromBal-amount); err != nil {
		return err
	}
	return m.SetBalance(to, asset, toBal+amount)
}

// Nonce returns the next expected transaction nonce for addr.
func (m *Manager) Nonce(addr [20]byte) (uint64, error) {
	var nonce uint64
	if _, err := m.KVGet(nonceKey(addr), &nonce); err != nil {
		return 0, fmt.Errorf("state: load nonce: %w", err)
	}
	return nonce, nil
}

// SetNonce stores the next expected transaction nonce for addr.
func (m *Manager) SetNonce(addr [20]byte, nonce uint64) error {
	return m.KVPut(nonceKey(addr), nonce)
}
