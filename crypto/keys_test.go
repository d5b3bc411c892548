package crypto

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddressRoundTrip(t *testing.T) {
	key, err := GeneratePrivateKey()
	require.NoError(t, err)

	addr := key.PubKey().Address()
	encoded := addr.String()
	require.True(t, strings.HasPrefix(encoded, "ref1"), "unexpected encoding %s", encoded)

	decoded, err := DecodeAddress(encoded)
	require.NoError(t, err)
	require.Equal(t, addr.Raw(), decoded.Raw())
	require.Equal(t, RefPrefix, decoded.Prefix())
}

func TestDecodeAddressRejectsGarbage(t *testing.T) {
	_, err := DecodeAddress("not-an-address")
	require.Error(t, err)
}

func TestDeriveAddressDeterministic(t *testing.T) {
	parent := bytes.Repeat([]byte{0x11}, AddressLength)
	other := bytes.Repeat([]byte{0x22}, AddressLength)

	first := DeriveAddress("vault", parent)
	second := DeriveAddress("vault", parent)
	require.Equal(t, first, second)

	require.NotEqual(t, first, DeriveAddress("token_vault", parent))
	require.NotEqual(t, first, DeriveAddress("vault", other))
	require.NotEqual(t,
		DeriveAddress("participant", parent, other),
		DeriveAddress("participant", other, parent),
	)
}

func TestDeriveAddressLengthPrefixing(t *testing.T) {
	// "ab"+"c" and "a"+"bc" must not collide.
	left := DeriveAddress("p", []byte("ab"), []byte("c"))
	right := DeriveAddress("p", []byte("a"), []byte("bc"))
	require.NotEqual(t, left, right)
}

func TestPrivateKeyBytesRoundTrip(t *testing.T) {
	key, err := GeneratePrivateKey()
	require.NoError(t, err)
	restored, err := PrivateKeyFromBytes(key.Bytes())
	require.NoError(t, err)
	require.Equal(t, key.PubKey().Address().Raw(), restored.PubKey().Address().Raw())
}
