package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"

	"refchain/core/events"
	"refchain/core/types"
	"refchain/crypto"
)

func TestEventMetricsEmitterTracksClaims(t *testing.T) {
	program := [20]byte{0xaa}
	programLabel := crypto.MustAddress(program).String()
	asset := types.NativeAsset().String()

	payoutsBefore := testutil.ToFloat64(Referral().payouts.WithLabelValues(asset))
	feesBefore := testutil.ToFloat64(Referral().fees.WithLabelValues(asset))
	claimsBefore := testutil.ToFloat64(Events().emitted.WithLabelValues(events.TypeReferralRewardClaimed))

	EventMetricsEmitter{}.Emit(events.ReferralRewardClaimed{
		Program:        program,
		Asset:          types.NativeAsset(),
		Gross:          100,
		Fee:            10,
		Paid:           90,
		TotalAvailable: 910,
	})

	require.Equal(t, payoutsBefore+90, testutil.ToFloat64(Referral().payouts.WithLabelValues(asset)))
	require.Equal(t, feesBefore+10, testutil.ToFloat64(Referral().fees.WithLabelValues(asset)))
	require.Equal(t, claimsBefore+1, testutil.ToFloat64(Events().emitted.WithLabelValues(events.TypeReferralRewardClaimed)))
	require.Equal(t, float64(910), testutil.ToFloat64(Referral().pool.WithLabelValues(programLabel)))
}

func histogramCount(t *testing.T, observer prometheus.Observer) uint64 {
	t.Helper()
	metric, ok := observer.(prometheus.Metric)
	require.True(t, ok)
	var out dto.Metric
	require.NoError(t, metric.Write(&out))
	return out.GetHistogram().GetSampleCount()
}

func TestObserveTxLabelsOutcome(t *testing.T) {
	before := testutil.ToFloat64(Referral().txs.WithLabelValues("claim", "funds"))
	samples := histogramCount(t, Referral().txLatency.WithLabelValues("claim"))
	Referral().ObserveTx("claim", time.Millisecond, "funds")
	require.Equal(t, before+1, testutil.ToFloat64(Referral().txs.WithLabelValues("claim", "funds")))
	require.Equal(t, samples+1, histogramCount(t, Referral().txLatency.WithLabelValues("claim")))

	before = testutil.ToFloat64(Referral().txs.WithLabelValues("unknown", "success"))
	Referral().ObserveTx(" ", time.Millisecond, "")
	require.Equal(t, before+1, testutil.ToFloat64(Referral().txs.WithLabelValues("unknown", "success")))

	var nilMetrics *ReferralMetrics
	nilMetrics.ObserveTx("claim", time.Millisecond, "")
}

func TestModuleMetricsObserve(t *testing.T) {
	before := testutil.ToFloat64(ModuleMetrics().requests.WithLabelValues("referral", "referral_chainId", "success"))
	ModuleMetrics().Observe("referral", "referral_chainId", 0, time.Millisecond)
	require.Equal(t, before+1, testutil.ToFloat64(ModuleMetrics().requests.WithLabelValues("referral", "referral_chainId", "success")))
}
