package types

// Account is the query view of one address: its next nonce and its balance in
// the requested asset.
type Account struct {
	Address string `json:"address"`
	Nonce   uint64 `json:"nonce"`
	Asset   string `json:"asset"`
	Balance uint64 `json:"balance"`
}
