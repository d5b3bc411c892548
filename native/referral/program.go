package referral

import (
	"refchain/core/events"
	"refchain/core/types"
)

func isZeroAddress(addr [20]byte) bool {
	var zero [20]byte
	return addr == zero
}

// validateSettings checks every range and ordering rule shared by program
// creation and updates.
func validateSettings(now uint64, s Settings) error {
	if s.FixedRewardAmount < MinRewardAmount {
		return wrap(ErrInvalidRewardAmount, "fixed reward %d below minimum %d", s.FixedRewardAmount, MinRewardAmount)
	}
	if s.BaseReward < MinRewardAmount {
		return wrap(ErrInvalidRewardAmount, "base reward %d below minimum %d", s.BaseReward, MinRewardAmount)
	}
	if s.EarlyRedemptionFeeBps > MaxEarlyRedemptionFeeBps {
		return wrap(ErrInvalidFeeAmount, "early redemption fee %d bps exceeds %d", s.EarlyRedemptionFeeBps, MaxEarlyRedemptionFeeBps)
	}
	if s.MintFeeBps > MaxFeeBps {
		return wrap(ErrInvalidFeeAmount, "mint fee %d bps exceeds %d", s.MintFeeBps, MaxFeeBps)
	}
	if s.RevenueShareBps > MaxFeeBps {
		return wrap(ErrInvalidFeeAmount, "revenue share %d bps exceeds %d", s.RevenueShareBps, MaxFeeBps)
	}
	if s.Tier1Reward < s.BaseReward {
		return wrap(ErrInvalidTierReward, "tier 1 reward below base reward")
	}
	if s.Tier2Reward < s.Tier1Reward {
		return wrap(ErrInvalidTierReward, "tier 2 reward below tier 1 reward")
	}
	if s.Tier2Threshold <= s.Tier1Threshold {
		return wrap(ErrInvalidTierThreshold, "tier 2 threshold %d must exceed tier 1 threshold %d", s.Tier2Threshold, s.Tier1Threshold)
	}
	if s.MaxRewardCap < s.FixedRewardAmount || s.MaxRewardCap < s.BaseReward {
		return wrap(ErrInvalidRewardCap, "cap %d below fixed or base reward", s.MaxRewardCap)
	}
	if s.LockedPeriod < MinLockedPeriod || s.LockedPeriod > MaxLockedPeriod {
		return wrap(ErrInvalidLockedPeriod, "%d outside [%d, %d]", s.LockedPeriod, MinLockedPeriod, MaxLockedPeriod)
	}
	if s.ProgramEndTime != nil {
		end := *s.ProgramEndTime
		if end <= 0 || uint64(end) <= now {
			return wrap(ErrInvalidProgramEndTime, "end time %d not in the future", end)
		}
		if uint64(end) <= now+uint64(s.LockedPeriod) {
			return wrap(ErrInvalidProgramEndTime, "end time %d within the locked period", end)
		}
	}
	if s.RequiredToken != nil {
		if isZeroAddress(*s.RequiredToken) {
			return wrap(ErrInvalidTokenMint, "required token must not be the zero address")
		}
		if s.MinTokenAmount == 0 {
			return wrap(ErrInvalidMinTokenAmount, "required token set without a minimum amount")
		}
	} else if s.MinTokenAmount != 0 {
		return wrap(ErrInvalidMinTokenAmount, "minimum amount set without a required token")
	}
	return nil
}

func applySettings(program *Program, elig *Eligibility, s Settings) {
	program.FixedRewardAmount = s.FixedRewardAmount
	program.LockedPeriod = uint64(s.LockedPeriod)
	program.EarlyRedemptionFeeBps = s.EarlyRedemptionFeeBps
	program.MintFeeBps = s.MintFeeBps

	elig.BaseReward = s.BaseReward
	elig.Tier1Threshold = s.Tier1Threshold
	elig.Tier1Reward = s.Tier1Reward
	elig.Tier2Threshold = s.Tier2Threshold
	elig.Tier2Reward = s.Tier2Reward
	elig.MaxRewardCap = s.MaxRewardCap
	elig.RevenueShareBps = s.RevenueShareBps
	elig.RequiredToken = nil
	if s.RequiredToken != nil {
		token := *s.RequiredToken
		elig.RequiredToken = &token
	}
	elig.MinTokenAmount = s.MinTokenAmount
	elig.EndTime = nil
	if s.ProgramEndTime != nil {
		end := uint64(*s.ProgramEndTime)
		elig.EndTime = &end
	}
}

// CreateProgram registers a new program and its eligibility policy. The
// program starts active with an empty pool.
func (e *Engine) CreateProgram(params CreateParams) (*Program, *Eligibility, error) {
	var (
		outProgram *Program
		outElig    *Eligibility
	)
	err := e.apply(func(pending *events.Buffer) error {
		if isZeroAddress(params.Authority) {
			return wrap(ErrInvalidAuthority, "authority must not be the zero address")
		}
		if !params.Policy.Valid() {
			return wrap(ErrInvalidPolicy, "%s", params.Policy)
		}
		if params.TokenMint != nil && isZeroAddress(*params.TokenMint) {
			return wrap(ErrInvalidTokenMint, "token mint must not be the zero address")
		}
		now := e.now()
		if err := validateSettings(now, params.Settings); err != nil {
			return err
		}
		addr := ProgramAddress(params.Authority, params.Salt)
		if _, exists, err := e.state.ReferralProgramGet(addr); err != nil {
			return err
		} else if exists {
			return ErrProgramAlreadyExists
		}

		program := &Program{
			Address:   addr,
			Authority: params.Authority,
			Salt:      params.Salt,
			AssetKind: types.AssetNative,
			Policy:    params.Policy,
			Active:    true,
			Vault:     VaultAddress(addr),
			CreatedAt: now,
		}
		if params.TokenMint != nil {
			mint := *params.TokenMint
			program.AssetKind = types.AssetToken
			program.TokenMint = &mint
			program.TokenVault = TokenVaultAddress(addr)
		}
		elig := &Eligibility{
			Program:     addr,
			StartTime:   now,
			Active:      true,
			LastUpdated: now,
		}
		applySettings(program, elig, params.Settings)

		if err := e.state.ReferralProgramPut(program); err != nil {
			return err
		}
		if err := e.state.ReferralProgramIndex(program.Authority, program.Address); err != nil {
			return err
		}
		if err := e.state.ReferralEligibilityPut(elig); err != nil {
			return err
		}
		pending.Emit(events.ReferralProgramCreated{
			Program:   program.Address,
			Authority: program.Authority,
			Asset:     program.Asset(),
			Policy:    program.Policy.String(),
			Vault:     program.Escrow(),
		})
		outProgram, outElig = program.Clone(), elig.Clone()
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return outProgram, outElig, nil
}

// InitializeTokenEscrow opens the token custody account of a token program.
func (e *Engine) InitializeTokenEscrow(caller, programAddr, mint [20]byte) error {
	return e.apply(func(pending *events.Buffer) error {
		program, err := e.loadProgram(programAddr)
		if err != nil {
			return err
		}
		if !program.Active {
			return ErrProgramInactive
		}
		if caller != program.Authority {
			return ErrInvalidAuthority
		}
		if program.AssetKind != types.AssetToken || program.TokenMint == nil {
			return wrap(ErrInvalidTokenMint, "program pays the native asset")
		}
		if mint != *program.TokenMint {
			return wrap(ErrInvalidTokenMint, "mint does not match program")
		}
		if program.TokenVaultReady {
			return ErrEscrowInitialized
		}
		program.TokenVaultReady = true
		if err := e.state.ReferralProgramPut(program); err != nil {
			return err
		}
		pending.Emit(events.ReferralEscrowInitialized{
			Program:    program.Address,
			TokenVault: program.TokenVault,
			Mint:       mint,
		})
		return nil
	})
}

// DepositFunds moves amount of asset from the authority into the program
// escrow and grows the payable pool by the same amount.
func (e *Engine) DepositFunds(caller, programAddr [20]byte, asset types.Asset, amount uint64) (*Program, error) {
	var out *Program
	err := e.apply(func(pending *events.Buffer) error {
		program, err := e.loadProgram(programAddr)
		if err != nil {
			return err
		}
		if !program.Active {
			return ErrProgramInactive
		}
		if caller != program.Authority {
			return ErrInvalidAuthority
		}
		if amount == 0 {
			return ErrInsufficientDeposit
		}
		switch {
		case program.AssetKind == types.AssetNative && !asset.IsNative():
			return ErrTokenDepositToNativeProgram
		case program.AssetKind == types.AssetToken && asset.IsNative():
			return ErrNativeDepositToTokenProgram
		case program.AssetKind == types.AssetToken && asset.Mint != *program.TokenMint:
			return wrap(ErrInvalidTokenMint, "deposit mint does not match program")
		case program.AssetKind == types.AssetToken && !program.TokenVaultReady:
			return ErrEscrowNotInitialized
		}
		total, err := checkedAdd(program.TotalAvailable, amount)
		if err != nil {
			return err
		}
		if err := e.transfer(caller, program.Escrow(), asset, amount, ErrInsufficientBalance); err != nil {
			return err
		}
		program.TotalAvailable = total
		if err := e.state.ReferralProgramPut(program); err != nil {
			return err
		}
		pending.Emit(events.ReferralFundsDeposited{
			Program:        program.Address,
			Authority:      caller,
			Asset:          asset,
			Amount:         amount,
			TotalAvailable: total,
		})
		out = program.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateSettings overwrites the mutable parameters of an active program after
// re-validating them. Nothing changes when validation fails.
func (e *Engine) UpdateSettings(caller, programAddr [20]byte, settings Settings) (*Program, *Eligibility, error) {
	var (
		outProgram *Program
		outElig    *Eligibility
	)
	err := e.apply(func(pending *events.Buffer) error {
		program, err := e.loadProgram(programAddr)
		if err != nil {
			return err
		}
		if caller != program.Authority {
			return ErrInvalidAuthority
		}
		if !program.Active {
			return ErrProgramInactive
		}
		elig, err := e.loadEligibility(programAddr)
		if err != nil {
			return err
		}
		now := e.now()
		if err := validateSettings(now, settings); err != nil {
			return err
		}
		applySettings(program, elig, settings)
		elig.LastUpdated = now
		if err := e.state.ReferralProgramPut(program); err != nil {
			return err
		}
		if err := e.state.ReferralEligibilityPut(elig); err != nil {
			return err
		}
		pending.Emit(events.ReferralSettingsUpdated{
			Program:     program.Address,
			Authority:   caller,
			LastUpdated: now,
		})
		outProgram, outElig = program.Clone(), elig.Clone()
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return outProgram, outElig, nil
}

// DeactivateProgram closes an active program. Funds already in escrow stay
// there; no further mutations are accepted.
func (e *Engine) DeactivateProgram(caller, programAddr [20]byte) error {
	return e.apply(func(pending *events.Buffer) error {
		program, err := e.loadProgram(programAddr)
		if err != nil {
			return err
		}
		if caller != program.Authority {
			return ErrInvalidAuthority
		}
		if !program.Active {
			return ErrProgramInactive
		}
		elig, err := e.loadEligibility(programAddr)
		if err != nil {
			return err
		}
		program.Active = false
		elig.Active = false
		elig.LastUpdated = e.now()
		if err := e.state.ReferralProgramPut(program); err != nil {
			return err
		}
		if err := e.state.ReferralEligibilityPut(elig); err != nil {
			return err
		}
		pending.Emit(events.ReferralProgramDeactivated{Program: program.Address, Authority: caller})
		return nil
	})
}
