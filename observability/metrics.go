package observability

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

type moduleMetrics struct {
	requests  *prometheus.CounterVec
	errors    *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	throttles *prometheus.CounterVec
}

var (
	moduleMetricsOnce sync.Once
	moduleRegistry    *moduleMetrics

	referralMetricsOnce sync.Once
	referralRegistry    *ReferralMetrics
)

// ModuleMetrics returns the lazily-initialised module metrics registry used to
// record RPC module activity.
func ModuleMetrics() *moduleMetrics {
	moduleMetricsOnce.Do(func() {
		moduleRegistry = &moduleMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "refchain",
				Subsystem: "rpc",
				Name:      "requests_total",
				Help:      "Total JSON-RPC requests segmented by module, method and outcome.",
			}, []string{"module", "method", "outcome"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "refchain",
				Subsystem: "rpc",
				Name:      "errors_total",
				Help:      "Total JSON-RPC errors segmented by module, method and error code.",
			}, []string{"module", "method", "code"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "refchain",
				Subsystem: "rpc",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution for JSON-RPC handlers.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"module", "method"}),
			throttles: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "refchain",
				Subsystem: "rpc",
				Name:      "throttles_total",
				Help:      "Count of requests rejected due to throttling policies.",
			}, []string{"module", "reason"}),
		}
		prometheus.MustRegister(
			moduleRegistry.requests,
			moduleRegistry.errors,
			moduleRegistry.latency,
			moduleRegistry.throttles,
		)
	})
	return moduleRegistry
}

// Observe records the outcome of a JSON-RPC request. code is the JSON-RPC
// error code, or zero on success.
func (m *moduleMetrics) Observe(module, method string, code int, duration time.Duration) {
	if m == nil {
		return
	}
	if module == "" {
		module = "unknown"
	}
	if method == "" {
		method = "unknown"
	}
	outcome := "success"
	if code != 0 {
		outcome = "error"
		m.errors.WithLabelValues(module, method, fmt.Sprintf("%d", code)).Inc()
	}
	m.requests.WithLabelValues(module, method, outcome).Inc()
	m.latency.WithLabelValues(module, method).Observe(duration.Seconds())
}

// RecordThrottle increments the throttle counter for the supplied module and
// reason. Reasons should be stable strings such as "rate_limit" so dashboards
// and alerts remain consistent.
func (m *moduleMetrics) RecordThrottle(module, reason string) {
	if m == nil {
		return
	}
	if module == "" {
		module = "unknown"
	}
	if reason == "" {
		reason = "unspecified"
	}
	m.throttles.WithLabelValues(module, reason).Inc()
}

// ReferralMetrics tracks transaction application and reward flows.
type ReferralMetrics struct {
	txs       *prometheus.CounterVec
	txLatency *prometheus.HistogramVec
	payouts   *prometheus.CounterVec
	fees      *prometheus.CounterVec
	deposits  *prometheus.CounterVec
	pool      *prometheus.GaugeVec

	// OTLP mirror of txs, exported when telemetry metrics are enabled.
	txCounter metric.Int64Counter
}

// Referral returns the singleton metrics registry for the referral node.
func Referral() *ReferralMetrics {
	referralMetricsOnce.Do(func() {
		referralRegistry = &ReferralMetrics{
			txs: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "refchain",
				Subsystem: "node",
				Name:      "transactions_total",
				Help:      "Applied transactions segmented by type and outcome.",
			}, []string{"type", "outcome"}),
			txLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "refchain",
				Subsystem: "node",
				Name:      "transaction_duration_seconds",
				Help:      "Latency distribution for transaction application.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"type"}),
			payouts: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "refchain",
				Subsystem: "referral",
				Name:      "payouts_total",
				Help:      "Reward base units paid to participants segmented by asset.",
			}, []string{"asset"}),
			fees: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "refchain",
				Subsystem: "referral",
				Name:      "fees_withheld_total",
				Help:      "Early redemption fees withheld in escrow segmented by asset.",
			}, []string{"asset"}),
			deposits: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "refchain",
				Subsystem: "referral",
				Name:      "deposits_total",
				Help:      "Base units deposited into program escrows segmented by asset.",
			}, []string{"asset"}),
			pool: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "refchain",
				Subsystem: "referral",
				Name:      "pool_available",
				Help:      "Payable pool per program after the latest deposit or claim.",
			}, []string{"program"}),
		}
		prometheus.MustRegister(
			referralRegistry.txs,
			referralRegistry.txLatency,
			referralRegistry.payouts,
			referralRegistry.fees,
			referralRegistry.deposits,
			referralRegistry.pool,
		)
		referralRegistry.initMeter()
	})
	return referralRegistry
}

func (m *ReferralMetrics) initMeter() {
	meter := otel.GetMeterProvider().Meter("refchain/node")
	counter, err := meter.Int64Counter("refchain.node.transactions")
	if err != nil {
		fallback := noop.NewMeterProvider().Meter("refchain/node")
		counter, _ = fallback.Int64Counter("refchain.node.transactions")
	}
	m.txCounter = counter
}

// ObserveTx records the outcome of applying a transaction. reason is empty on
// success and otherwise a stable error kind.
func (m *ReferralMetrics) ObserveTx(txType string, duration time.Duration, reason string) {
	if m == nil {
		return
	}
	txType = strings.TrimSpace(txType)
	if txType == "" {
		txType = "unknown"
	}
	outcome := "success"
	if reason != "" {
		outcome = reason
	}
	m.txs.WithLabelValues(txType, outcome).Inc()
	m.txLatency.WithLabelValues(txType).Observe(duration.Seconds())
	if m.txCounter != nil {
		m.txCounter.Add(context.Background(), 1, metric.WithAttributes(
			attribute.String("type", txType),
			attribute.String("outcome", outcome),
		))
	}
}

// RecordPayout adds a settled claim to the payout and fee counters.
func (m *ReferralMetrics) RecordPayout(asset string, paid, fee uint64) {
	if m == nil {
		return
	}
	m.payouts.WithLabelValues(asset).Add(float64(paid))
	if fee > 0 {
		m.fees.WithLabelValues(asset).Add(float64(fee))
	}
}

// RecordDeposit adds a deposit to the deposit counter.
func (m *ReferralMetrics) RecordDeposit(asset string, amount uint64) {
	if m == nil {
		return
	}
	m.deposits.WithLabelValues(asset).Add(float64(amount))
}

// SetPool publishes the payable pool of a program.
func (m *ReferralMetrics) SetPool(program string, available uint64) {
	if m == nil {
		return
	}
	m.pool.WithLabelValues(program).Set(float64(available))
}
