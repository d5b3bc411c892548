package types

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// AssetKind distinguishes the native coin from fungible tokens.
type AssetKind uint8

const (
	AssetNative AssetKind = iota
	AssetToken
)

func (k AssetKind) String() string {
	switch k {
	case AssetNative:
		return "native"
	case AssetToken:
		return "token"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// Asset identifies a balance bucket: the native coin or one token mint.
type Asset struct {
	Kind AssetKind
	Mint [20]byte
}

// NativeAsset returns the native coin asset.
func NativeAsset() Asset { return Asset{Kind: AssetNative} }

// TokenAsset returns the asset for the given token mint.
func TokenAsset(mint [20]byte) Asset { return Asset{Kind: AssetToken, Mint: mint} }

// IsNative reports whether the asset is the native coin.
func (a Asset) IsNative() bool { return a.Kind == AssetNative }

// Key returns a stable byte encoding used in storage keys.
func (a Asset) Key() []byte {
	if a.Kind == AssetNative {
		return []byte("native")
	}
	key := make([]byte, 0, 6+len(a.Mint))
	key = append(key, "token:"...)
	return append(key, a.Mint[:]...)
}

func (a Asset) String() string {
	if a.Kind == AssetNative {
		return "native"
	}
	return "token:" + hex.EncodeToString(a.Mint[:])
}

// ParseAsset accepts "native" or "token:<40 hex chars>", the forms produced by
// Asset.String.
func ParseAsset(raw string) (Asset, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || strings.EqualFold(trimmed, "native") {
		return NativeAsset(), nil
	}
	const tokenPrefix = "token:"
	if !strings.HasPrefix(strings.ToLower(trimmed), tokenPrefix) {
		return Asset{}, fmt.Errorf("unknown asset %q", raw)
	}
	decoded, err := hex.DecodeString(strings.TrimPrefix(trimmed[len(tokenPrefix):], "0x"))
	if err != nil {
		return Asset{}, fmt.Errorf("invalid token mint: %w", err)
	}
	if len(decoded) != 20 {
		return Asset{}, fmt.Errorf("token mint must be 20 bytes, got %d", len(decoded))
	}
	var mint [20]byte
	copy(mint[:], decoded)
	return TokenAsset(mint), nil
}
