package types

// Transaction payloads. Addresses are bech32 strings; amounts are base units.

type CreateProgramPayload struct {
	Salt                  uint64 `json:"salt" yaml:"salt"`
	TokenMint             string `json:"tokenMint,omitempty" yaml:"tokenMint,omitempty"`
	Policy                string `json:"policy,omitempty" yaml:"policy,omitempty"`
	FixedRewardAmount     uint64 `json:"fixedRewardAmount" yaml:"fixedRewardAmount"`
	LockedPeriod          int64  `json:"lockedPeriod" yaml:"lockedPeriod"`
	EarlyRedemptionFeeBps uint64 `json:"earlyRedemptionFeeBps" yaml:"earlyRedemptionFeeBps"`
	MintFeeBps            uint64 `json:"mintFeeBps" yaml:"mintFeeBps"`
	BaseReward            uint64 `json:"baseReward" yaml:"baseReward"`
	Tier1Threshold        uint64 `json:"tier1Threshold" yaml:"tier1Threshold"`
	Tier1Reward           uint64 `json:"tier1Reward" yaml:"tier1Reward"`
	Tier2Threshold        uint64 `json:"tier2Threshold" yaml:"tier2Threshold"`
	Tier2Reward           uint64 `json:"tier2Reward" yaml:"tier2Reward"`
	MaxRewardCap          uint64 `json:"maxRewardCap" yaml:"maxRewardCap"`
	RevenueShareBps       uint64 `json:"revenueShareBps" yaml:"revenueShareBps"`
	RequiredToken         string `json:"requiredToken,omitempty" yaml:"requiredToken,omitempty"`
	MinTokenAmount        uint64 `json:"minTokenAmount" yaml:"minTokenAmount"`
	ProgramEndTime        *int64 `json:"programEndTime,omitempty" yaml:"programEndTime,omitempty"`
}

type ProgramRefPayload struct {
	Program string `json:"program"`
}

type InitTokenEscrowPayload struct {
	Program string `json:"program"`
	Mint    string `json:"mint"`
}

type DepositPayload struct {
	Program string `json:"program"`
	Asset   string `json:"asset"`
	Amount  uint64 `json:"amount"`
}

type UpdateSettingsPayload struct {
	Program               string `json:"program" yaml:"program"`
	FixedRewardAmount     uint64 `json:"fixedRewardAmount" yaml:"fixedRewardAmount"`
	LockedPeriod          int64  `json:"lockedPeriod" yaml:"lockedPeriod"`
	EarlyRedemptionFeeBps uint64 `json:"earlyRedemptionFeeBps" yaml:"earlyRedemptionFeeBps"`
	MintFeeBps            uint64 `json:"mintFeeBps" yaml:"mintFeeBps"`
	BaseReward            uint64 `json:"baseReward" yaml:"baseReward"`
	Tier1Threshold        uint64 `json:"tier1Threshold" yaml:"tier1Threshold"`
	Tier1Reward           uint64 `json:"tier1Reward" yaml:"tier1Reward"`
	Tier2Threshold        uint64 `json:"tier2Threshold" yaml:"tier2Threshold"`
	Tier2Reward           uint64 `json:"tier2Reward" yaml:"tier2Reward"`
	MaxRewardCap          uint64 `json:"maxRewardCap" yaml:"maxRewardCap"`
	RevenueShareBps       uint64 `json:"revenueShareBps" yaml:"revenueShareBps"`
	RequiredToken         string `json:"requiredToken,omitempty" yaml:"requiredToken,omitempty"`
	MinTokenAmount        uint64 `json:"minTokenAmount" yaml:"minTokenAmount"`
	ProgramEndTime        *int64 `json:"programEndTime,omitempty" yaml:"programEndTime,omitempty"`
}

type JoinPayload struct {
	Program  string `json:"program"`
	Referrer string `json:"referrer,omitempty"`
}

type ClaimPayload struct {
	Program     string `json:"program"`
	Participant string `json:"participant"`
}
