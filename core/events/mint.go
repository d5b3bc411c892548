package events

import (
	"strings"

	"refchain/core/types"
)

const (
	// TypeMintCredited is emitted whenever the faucet credits an account.
	TypeMintCredited = "mint.credited"
)

type MintCredited struct {
	Recipient [20]byte
	Asset     types.Asset
	Amount    uint64
	Reference string
}

func (MintCredited) EventType() string { return TypeMintCredited }

func (e MintCredited) Event() *types.Event {
	attrs := map[string]string{
		"recipient": addr(e.Recipient),
		"asset":     e.Asset.String(),
		"amount":    u64(e.Amount),
	}
	if ref := strings.TrimSpace(e.Reference); ref != "" {
		attrs["reference"] = ref
	}
	return &types.Event{Type: TypeMintCredited, Attributes: attrs}
}
