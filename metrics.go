package switchboard

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dshills/switchboard/internal/metrics"
)

// Metrics returns aggregated counters. EventsQueued is the current queue
// length and AverageDispatchTime covers the most recent dispatches only.
func (o *Orchestrator) Metrics() Metrics {
	bus := o.bus.Stats()
	store := o.store.Stats()
	sec := o.security.Stats()
	rec := o.recorder.Snapshot()

	return Metrics{
		EventsDispatched:    bus.EventsDispatched,
		EventsQueued:        bus.EventsQueued,
		StateUpdates:        store.Updates,
		ComponentCount:      o.lifecycle.Count(),
		ActiveSubscriptions: bus.ActiveSubscriptions,
		FailedComponents:    o.lifecycle.FailedCount(),
		AverageDispatchTime: rec.AvgDispatch,

		QueueOverflows:     bus.QueueOverflows,
		HandlerErrors:      bus.HandlerErrors,
		HandlerPanics:      bus.HandlerPanics,
		SecurityRejections: sec.EventsRejected,
		KeysStripped:       sec.KeysStripped,
		StateSubscriptions: store.Subscriptions,
		ReplayBufferSize:   bus.ReplaySize,
		Broadcasts:         rec.Broadcasts,
		BroadcastFailures:  rec.BroadcastFailures,

		Uptime: rec.Uptime,
	}
}

// Collector returns a Prometheus collector reading Metrics on every scrape.
func (o *Orchestrator) Collector() prometheus.Collector {
	o.mu.RLock()
	ns := o.config.Metrics.Namespace
	o.mu.RUnlock()
	return metrics.NewCollector(ns, o.Metrics)
}
