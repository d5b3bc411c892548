package core

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/text/unicode/norm"

	"refchain/core/events"
	"refchain/core/types"
	"refchain/observability/logging"
)

var (
	// ErrMintReferenceUsed indicates the mint reference has already been credited.
	ErrMintReferenceUsed = errors.New("mint: reference already used")
	// ErrMintInvalidAmount indicates a zero mint amount.
	ErrMintInvalidAmount = errors.New("mint: amount must be positive")
)

var mintReferencePrefix = []byte("mint/reference/")

// MintRequest credits Amount of Asset to Recipient. A non-empty Reference makes
// the request idempotent: a second request with the same reference fails.
// References are compared in Unicode NFC form.
type MintRequest struct {
	Recipient [20]byte
	Asset     types.Asset
	Amount    uint64
	Reference string
}

// Mint credits a balance outside the transaction flow. It backs the admin
// faucet used on local networks and never touches referral programs.
func (n *Node) Mint(req MintRequest) (*types.Account, error) {
	if req.Amount == 0 {
		return nil, ErrMintInvalidAmount
	}
	reference := norm.NFC.String(strings.TrimSpace(req.Reference))

	n.mu.Lock()
	defer n.mu.Unlock()

	if reference != "" {
		key := append(append([]byte(nil), mintReferencePrefix...), reference...)
		used, err := n.state.KVGet(key, nil)
		if err != nil {
			return nil, err
		}
		if used {
			return nil, fmt.Errorf("%w: %s", ErrMintReferenceUsed, reference)
		}
		if err := n.state.KVPut(key, true); err != nil {
			return nil, err
		}
	}
	if err := n.state.Credit(req.Recipient, req.Asset, req.Amount); err != nil {
		n.state.Discard()
		return nil, err
	}
	if err := n.state.Commit(); err != nil {
		n.state.Discard()
		return nil, err
	}
	balance, err := n.state.Balance(req.Recipient, req.Asset)
	if err != nil {
		return nil, err
	}
	nonce, err := n.state.Nonce(req.Recipient)
	if err != nil {
		return nil, err
	}
	n.publisher.Emit(events.MintCredited{
		Recipient: req.Recipient,
		Asset:     req.Asset,
		Amount:    req.Amount,
		Reference: reference,
	})
	n.logger.Info("mint credited",
		logging.MaskField("recipient", addressString(req.Recipient)),
		logging.MaskField("asset", req.Asset.String()),
		logging.MaskField("reference", reference),
		slog.Uint64("amount", req.Amount))
	return &types.Account{
		Address: addressString(req.Recipient),
		Nonce:   nonce,
		Asset:   req.Asset.String(),
		Balance: balance,
	}, nil
}
