package observability

import (
	"strconv"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"refchain/core/events"
)

type eventMetrics struct {
	emitted *prometheus.CounterVec
}

var (
	eventMetricsOnce sync.Once
	eventRegistry    *eventMetrics
)

// Events returns the metrics registry tracking committed events.
func Events() *eventMetrics {
	eventMetricsOnce.Do(func() {
		eventRegistry = &eventMetrics{
			emitted: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "refchain",
				Subsystem: "events",
				Name:      "emitted_total",
				Help:      "Count of committed events segmented by type.",
			}, []string{"type"}),
		}
		prometheus.MustRegister(eventRegistry.emitted)
	})
	return eventRegistry
}

// EventMetricsEmitter feeds committed events into the Prometheus registries so
// it can sit in the node's emitter fanout.
type EventMetricsEmitter struct{}

// Emit implements events.Emitter.
func (EventMetricsEmitter) Emit(evt events.Event) {
	if evt == nil {
		return
	}
	Events().emitted.WithLabelValues(strings.TrimSpace(evt.EventType())).Inc()
	payload := evt.Event()
	if payload == nil {
		return
	}
	attrs := payload.Attributes
	switch evt.EventType() {
	case events.TypeReferralFundsDeposited:
		Referral().RecordDeposit(attrs["asset"], parseUint(attrs["amount"]))
		Referral().SetPool(attrs["program"], parseUint(attrs["totalAvailable"]))
	case events.TypeReferralRewardClaimed:
		Referral().RecordPayout(attrs["asset"], parseUint(attrs["amount"]), parseUint(attrs["fee"]))
		Referral().SetPool(attrs["program"], parseUint(attrs["totalAvailable"]))
	}
}

func parseUint(raw string) uint64 {
	v, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0
	}
	return v
}
