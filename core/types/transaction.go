package types

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

// TxType defines the purpose of a transaction.
type TxType byte

const (
	TxTypeCreateProgram       TxType = 0x10 // Create a referral program and its eligibility policy
	TxTypeInitTokenEscrow     TxType = 0x11 // Initialise the token escrow of a token program
	TxTypeDepositFunds        TxType = 0x12 // Authority funds the program escrow
	TxTypeUpdateSettings      TxType = 0x13 // Authority rewrites mutable program settings
	TxTypeDeactivateProgram   TxType = 0x14 // Authority closes the program
	TxTypeJoin                TxType = 0x20 // Join a program directly
	TxTypeJoinThroughReferral TxType = 0x21 // Join a program through another participant
	TxTypeClaim               TxType = 0x30 // Claim accrued rewards
)

var txTypeNames = map[TxType]string{
	TxTypeCreateProgram:       "create_program",
	TxTypeInitTokenEscrow:     "init_token_escrow",
	TxTypeDepositFunds:        "deposit_funds",
	TxTypeUpdateSettings:      "update_settings",
	TxTypeDeactivateProgram:   "deactivate_program",
	TxTypeJoin:                "join",
	TxTypeJoinThroughReferral: "join_through_referral",
	TxTypeClaim:               "claim",
}

func (t TxType) String() string {
	if name, ok := txTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("unknown(0x%02x)", byte(t))
}

// Valid reports whether the type is one the node can apply.
func (t TxType) Valid() bool {
	_, ok := txTypeNames[t]
	return ok
}

var ErrMissingSignature = errors.New("types: transaction signature missing")

// Transaction is a caller-signed request to apply one referral operation. Data
// carries the JSON payload matching Type.
type Transaction struct {
	ChainID string `json:"chainId"`
	Type    TxType `json:"type"`
	Nonce   uint64 `json:"nonce"`
	Data    []byte `json:"data"`

	// Signatures
	R *big.Int `json:"r"`
	S *big.Int `json:"s"`
	V *big.Int `json:"v"`

	from []byte
}

type txPreimage struct {
	ChainID string
	Type    uint8
	Nonce   uint64
	Data    []byte
}

// Hash returns keccak256 over the RLP encoding of the signed fields.
func (tx *Transaction) Hash() ([]byte, error) {
	encoded, err := rlp.EncodeToBytes(txPreimage{
		ChainID: tx.ChainID,
		Type:    uint8(tx.Type),
		Nonce:   tx.Nonce,
		Data:    tx.Data,
	})
	if err != nil {
		return nil, err
	}
	return crypto.Keccak256(encoded), nil
}

func (tx *Transaction) Sign(privKey *ecdsa.PrivateKey) error {
	hash, err := tx.Hash()
	if err != nil {
		return err
	}
	sig, err := crypto.Sign(hash, privKey)
	if err != nil {
		return err
	}
	tx.R = new(big.Int).SetBytes(sig[:32])
	tx.S = new(big.Int).SetBytes(sig[32:64])
	tx.V = new(big.Int).SetBytes([]byte{sig[64] + 27})
	tx.from = nil
	return nil
}

// From recovers the signer address. The result is cached.
func (tx *Transaction) From() ([]byte, error) {
	if tx.from != nil {
		return tx.from, nil
	}
	if tx.R == nil || tx.S == nil || tx.V == nil {
		return nil, ErrMissingSignature
	}
	hash, err := tx.Hash()
	if err != nil {
		return nil, err
	}
	rBytes, sBytes := tx.R.Bytes(), tx.S.Bytes()
	if len(rBytes) > 32 || len(sBytes) > 32 || tx.V.Uint64() < 27 {
		return nil, fmt.Errorf("types: malformed signature")
	}
	sig := make([]byte, 65)
	copy(sig[32-len(rBytes):32], rBytes)
	copy(sig[64-len(sBytes):64], sBytes)
	sig[64] = byte(tx.V.Uint64() - 27)
	pubKey, err := crypto.SigToPub(hash, sig)
	if err != nil {
		return nil, err
	}
	tx.from = crypto.PubkeyToAddress(*pubKey).Bytes()
	return tx.from, nil
}

// Receipt summarises a successfully applied transaction.
type Receipt struct {
	TxHash  []byte   `json:"txHash"`
	Type    TxType   `json:"type"`
	From    [20]byte `json:"from"`
	Events  []*Event `json:"events"`
	Applied int64    `json:"appliedAt"`
}
