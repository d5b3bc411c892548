package referral_test

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"refchain/core/events"
	"refchain/core/types"
	"refchain/native/referral"
)

func TestTieredClaimWithEarlyRedemptionFee(t *testing.T) {
	f := newFixture(t)
	program := f.create(referral.PolicyTiered, nil, defaultSettings())
	f.fund(program, 10_000)
	alice := f.join(program, user(1))
	f.refer(program, user(2), alice)
	f.refer(program, user(3), alice)
	f.sink.Reset()

	quote, err := f.engine.Claimable(alice.Address)
	require.NoError(t, err)
	require.Equal(t, uint64(200), quote.Gross)
	require.Equal(t, uint64(20), quote.Fee)
	require.Equal(t, uint64(startTime+weekPeriod), quote.UnlockTime)

	_, err = f.engine.Claim(user(2), program.Address, alice.Address)
	require.ErrorIs(t, err, referral.ErrInvalidOwner)

	res, err := f.engine.Claim(user(1), program.Address, alice.Address)
	require.NoError(t, err)
	require.Equal(t, referral.ClaimResult{Gross: 200, Fee: 20, Paid: 180}, *res)

	bal, err := f.mgr.Balance(user(1), types.NativeAsset())
	require.NoError(t, err)
	require.Equal(t, uint64(180), bal)
	after := f.program(program.Address)
	require.Equal(t, uint64(9_820), after.TotalAvailable)
	require.Equal(t, uint64(180), after.TotalRewardsDistributed)
	escrow, err := f.engine.EscrowBalance(program.Address)
	require.NoError(t, err)
	require.Equal(t, after.TotalAvailable, escrow)

	stored, err := f.engine.Participant(alice.Address)
	require.NoError(t, err)
	require.Equal(t, uint64(180), stored.TotalRewards)
	require.Equal(t, uint64(20), stored.FeesWithheld)
	require.Equal(t, uint64(2), stored.RewardedReferrals)

	emitted := f.sink.Drain()
	require.Len(t, emitted, 1)
	require.Equal(t, events.TypeReferralRewardClaimed, emitted[0].EventType())
	require.Equal(t, "180", emitted[0].Event().Attributes["amount"])

	_, err = f.engine.Claim(user(1), program.Address, alice.Address)
	require.ErrorIs(t, err, referral.ErrNoRewardsAvailable)

	// The third referral lifts alice into tier 1; once the lock has elapsed
	// since her last claim the full amount is paid.
	f.refer(program, user(4), alice)
	f.now += weekPeriod
	res, err = f.engine.Claim(user(1), program.Address, alice.Address)
	require.NoError(t, err)
	require.Equal(t, referral.ClaimResult{Gross: 150, Fee: 0, Paid: 150}, *res)

	stored, err = f.engine.Participant(alice.Address)
	require.NoError(t, err)
	require.Equal(t, uint64(330), stored.TotalRewards)
	require.Equal(t, uint64(10_000-330), f.program(program.Address).TotalAvailable)
}

func TestClaimHonoursRewardCap(t *testing.T) {
	f := newFixture(t)
	settings := defaultSettings()
	settings.MaxRewardCap = 250
	settings.EarlyRedemptionFeeBps = 0
	program := f.create(referral.PolicyTiered, nil, settings)
	f.fund(program, 10_000)
	alice := f.join(program, user(1))
	f.refer(program, user(2), alice)
	f.refer(program, user(3), alice)

	res, err := f.engine.Claim(user(1), program.Address, alice.Address)
	require.NoError(t, err)
	require.Equal(t, uint64(200), res.Paid)

	f.refer(program, user(4), alice)
	res, err = f.engine.Claim(user(1), program.Address, alice.Address)
	require.NoError(t, err)
	require.Equal(t, uint64(50), res.Paid)

	f.refer(program, user(5), alice)
	_, err = f.engine.Claim(user(1), program.Address, alice.Address)
	require.ErrorIs(t, err, referral.ErrNoRewardsAvailable)
}

func TestFixedPolicyPaysPerReferral(t *testing.T) {
	f := newFixture(t)
	settings := defaultSettings()
	settings.FixedRewardAmount = 40
	settings.EarlyRedemptionFeeBps = 0
	program := f.create(referral.PolicyFixed, nil, settings)
	f.fund(program, 1_000)
	alice := f.join(program, user(1))
	for i := byte(2); i < 7; i++ {
		f.refer(program, user(i), alice)
	}
	res, err := f.engine.Claim(user(1), program.Address, alice.Address)
	require.NoError(t, err)
	require.Equal(t, uint64(200), res.Paid)
}

func TestClaimExceedingPoolFailsWithoutPartialPayment(t *testing.T) {
	f := newFixture(t)
	program := f.create(referral.PolicyTiered, nil, defaultSettings())
	f.fund(program, 150)
	alice := f.join(program, user(1))
	f.refer(program, user(2), alice)
	f.refer(program, user(3), alice)

	_, err := f.engine.Claim(user(1), program.Address, alice.Address)
	require.ErrorIs(t, err, referral.ErrInsufficientFunds)
	bal, err := f.mgr.Balance(user(1), types.NativeAsset())
	require.NoError(t, err)
	require.Zero(t, bal)
	require.Equal(t, uint64(150), f.program(program.Address).TotalAvailable)
	stored, err := f.engine.Participant(alice.Address)
	require.NoError(t, err)
	require.Zero(t, stored.TotalRewards)
	require.Zero(t, stored.RewardedReferrals)
}

func TestProportionalShareDrainsPool(t *testing.T) {
	f := newFixture(t)
	settings := defaultSettings()
	settings.EarlyRedemptionFeeBps = 0
	program := f.create(referral.PolicyProportional, nil, settings)
	f.fund(program, 1_000_000_000)
	alice := f.join(program, user(1))

	// One participant holding one referral owns the whole pool.
	credited, err := f.engine.Participant(alice.Address)
	require.NoError(t, err)
	credited.TotalReferrals = 1
	require.NoError(t, f.mgr.ReferralParticipantPut(credited))

	snapshot := f.program(program.Address)
	require.Equal(t, uint64(1), snapshot.TotalParticipants)
	gross, settled, err := referral.ComputeClaimable(snapshot, nil, credited)
	require.NoError(t, err)
	require.Equal(t, uint64(1_000_000_000), gross)
	require.Zero(t, settled)

	res, err := f.engine.Claim(user(1), program.Address, alice.Address)
	require.NoError(t, err)
	require.Equal(t, uint64(1_000_000_000), res.Paid)
	require.Zero(t, f.program(program.Address).TotalAvailable)

	_, err = f.engine.Claim(user(1), program.Address, alice.Address)
	require.ErrorIs(t, err, referral.ErrNoRewardsAvailable)
}

func TestClaimOverflowUndoesTransfer(t *testing.T) {
	f := newFixture(t)
	program := f.create(referral.PolicyProportional, nil, defaultSettings())
	f.fund(program, 1_000)
	alice := f.join(program, user(1))

	credited, err := f.engine.Participant(alice.Address)
	require.NoError(t, err)
	credited.TotalReferrals = 1
	require.NoError(t, f.mgr.ReferralParticipantPut(credited))
	saturated := f.program(program.Address)
	saturated.TotalRewardsDistributed = math.MaxUint64
	require.NoError(t, f.mgr.ReferralProgramPut(saturated))
	f.sink.Reset()

	before, err := f.engine.EscrowBalance(program.Address)
	require.NoError(t, err)
	require.Equal(t, uint64(1_000), before)

	_, err = f.engine.Claim(user(1), program.Address, alice.Address)
	require.ErrorIs(t, err, referral.ErrNumericOverflow)

	after, err := f.engine.EscrowBalance(program.Address)
	require.NoError(t, err)
	require.Equal(t, before, after)
	bal, err := f.mgr.Balance(user(1), types.NativeAsset())
	require.NoError(t, err)
	require.Zero(t, bal)
	stored, err := f.engine.Participant(alice.Address)
	require.NoError(t, err)
	require.Zero(t, stored.TotalRewards)
	require.Zero(t, stored.LastClaimTime)
	require.Equal(t, uint64(1_000), f.program(program.Address).TotalAvailable)
	require.Empty(t, f.sink.Drain())
}

func TestPoolAccountingAcrossDepositsAndClaims(t *testing.T) {
	f := newFixture(t)
	program := f.create(referral.PolicyTiered, nil, defaultSettings())
	var deposited, claimed uint64
	deposit := func(amount uint64) {
		f.fund(program, amount)
		deposited += amount
	}

	deposit(1_000)
	alice := f.join(program, user(1))
	bob := f.refer(program, user(2), alice)
	f.refer(program, user(3), bob)
	f.refer(program, user(4), alice)
	deposit(250)

	for _, p := range []*referral.Participant{alice, bob} {
		res, err := f.engine.Claim(p.Owner, program.Address, p.Address)
		require.NoError(t, err)
		claimed += res.Paid
	}
	first, err := f.engine.Participant(alice.Address)
	require.NoError(t, err)
	f.refer(program, user(5), alice)
	f.now += weekPeriod
	res, err := f.engine.Claim(alice.Owner, program.Address, alice.Address)
	require.NoError(t, err)
	claimed += res.Paid

	stored, err := f.engine.Participant(alice.Address)
	require.NoError(t, err)
	require.Greater(t, stored.TotalRewards, first.TotalRewards)
	require.Equal(t, deposited-claimed, f.program(program.Address).TotalAvailable)
}

func TestConcurrentClaimsNeverExceedPool(t *testing.T) {
	f := newFixture(t)
	settings := defaultSettings()
	settings.EarlyRedemptionFeeBps = 0
	program := f.create(referral.PolicyTiered, nil, settings)
	f.fund(program, 500)

	const referrers = 10
	owners := make([][20]byte, referrers)
	participants := make([]*referral.Participant, referrers)
	for i := 0; i < referrers; i++ {
		owners[i] = user(byte(i + 1))
		participants[i] = f.join(program, owners[i])
		f.refer(program, [20]byte{0x20, byte(i + 1)}, participants[i])
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		paid      uint64
		successes int
		failures  []error
	)
	for i := 0; i < referrers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := f.engine.Claim(owners[i], program.Address, participants[i].Address)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures = append(failures, err)
				return
			}
			paid += res.Paid
			successes++
		}(i)
	}
	wg.Wait()

	for _, err := range failures {
		require.ErrorIs(t, err, referral.ErrInsufficientFunds)
	}

	require.Equal(t, 5, successes)
	require.Equal(t, uint64(500), paid)
	require.Zero(t, f.program(program.Address).TotalAvailable)
}

func TestTokenProgramClaimPaysToken(t *testing.T) {
	f := newFixture(t)
	mint := [20]byte{0xee}
	settings := defaultSettings()
	settings.EarlyRedemptionFeeBps = 0
	program := f.create(referral.PolicyTiered, &mint, settings)
	require.NoError(t, f.engine.InitializeTokenEscrow(f.authority, program.Address, mint))
	f.fund(program, 1_000)
	alice := f.join(program, user(1))
	f.refer(program, user(2), alice)

	res, err := f.engine.Claim(user(1), program.Address, alice.Address)
	require.NoError(t, err)
	require.Equal(t, uint64(100), res.Paid)
	tokenBal, err := f.mgr.Balance(user(1), types.TokenAsset(mint))
	require.NoError(t, err)
	require.Equal(t, uint64(100), tokenBal)
	nativeBal, err := f.mgr.Balance(user(1), types.NativeAsset())
	require.NoError(t, err)
	require.Zero(t, nativeBal)
}
