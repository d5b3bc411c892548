package types

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
)

func TestTransactionSignAndRecover(t *testing.T) {
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	tx := &Transaction{ChainID: "refchain-test", Type: TxTypeJoin, Nonce: 4, Data: []byte(`{"program":"x"}`)}
	if err := tx.Sign(key); err != nil {
		t.Fatalf("sign: %v", err)
	}
	from, err := tx.From()
	if err != nil {
		t.Fatalf("recover: %v", err)
	}
	if want := crypto.PubkeyToAddress(key.PublicKey).Bytes(); !bytes.Equal(from, want) {
		t.Fatalf("recovered %x, want %x", from, want)
	}

	encoded, err := json.Marshal(tx)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded Transaction
	if err := json.Unmarshal(encoded, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	again, err := decoded.From()
	if err != nil {
		t.Fatalf("recover decoded: %v", err)
	}
	if !bytes.Equal(from, again) {
		t.Fatalf("wire round trip changed signer")
	}
}

func TestTransactionHashCoversEveryField(t *testing.T) {
	base := Transaction{ChainID: "a", Type: TxTypeClaim, Nonce: 1, Data: []byte("d")}
	baseHash, err := base.Hash()
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	variants := []Transaction{
		{ChainID: "b", Type: TxTypeClaim, Nonce: 1, Data: []byte("d")},
		{ChainID: "a", Type: TxTypeJoin, Nonce: 1, Data: []byte("d")},
		{ChainID: "a", Type: TxTypeClaim, Nonce: 2, Data: []byte("d")},
		{ChainID: "a", Type: TxTypeClaim, Nonce: 1, Data: []byte("e")},
	}
	for i := range variants {
		hash, err := variants[i].Hash()
		if err != nil {
			t.Fatalf("hash variant %d: %v", i, err)
		}
		if bytes.Equal(hash, baseHash) {
			t.Fatalf("variant %d hashed identically", i)
		}
	}
}

func TestFromRequiresSignature(t *testing.T) {
	tx := &Transaction{ChainID: "a", Type: TxTypeClaim}
	if _, err := tx.From(); err != ErrMissingSignature {
		t.Fatalf("expected ErrMissingSignature, got %v", err)
	}
}

func TestParseAsset(t *testing.T) {
	mint := [20]byte{0xab, 0xcd}
	cases := []struct {
		raw     string
		want    Asset
		wantErr bool
	}{
		{raw: "", want: NativeAsset()},
		{raw: "NATIVE", want: NativeAsset()},
		{raw: TokenAsset(mint).String(), want: TokenAsset(mint)},
		{raw: "token:0x" + TokenAsset(mint).String()[len("token:"):], want: TokenAsset(mint)},
		{raw: "token:abcd", wantErr: true},
		{raw: "gold", wantErr: true},
	}
	for _, tc := range cases {
		got, err := ParseAsset(tc.raw)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("%q: expected error", tc.raw)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%q: %v", tc.raw, err)
		}
		if got != tc.want {
			t.Fatalf("%q: got %v want %v", tc.raw, got, tc.want)
		}
	}
	if !TxTypeClaim.Valid() || TxType(0x7f).Valid() {
		t.Fatalf("unexpected tx type validity")
	}
}
