package crypto

import (
	"github.com/ethereum/go-ethereum/crypto"
)

// derivationDomain separates derived addresses from key-backed addresses. No
// secp256k1 public key hashes to an address through this preimage, so derived
// accounts have no private key.
var derivationDomain = []byte("refchain/derived-address")

// DeriveAddress deterministically maps a purpose string and an ordered list of
// parent keys to an account address. Each component is length-prefixed so that
// distinct input tuples never share a preimage.
func DeriveAddress(purpose string, parents ...[]byte) [AddressLength]byte {
	buf := make([]byte, 0, len(derivationDomain)+len(purpose)+8+len(parents)*(AddressLength+4))
	buf = append(buf, derivationDomain...)
	buf = appendComponent(buf, []byte(purpose))
	for _, parent := range parents {
		buf = appendComponent(buf, parent)
	}
	digest := crypto.Keccak256(buf)
	var out [AddressLength]byte
	copy(out[:], digest[len(digest)-AddressLength:])
	return out
}

func appendComponent(buf, component []byte) []byte {
	n := len(component)
	buf = append(buf, byte(n>>24), byte(n>>16), byte(n>>8), byte(n))
	return append(buf, component...)
}
