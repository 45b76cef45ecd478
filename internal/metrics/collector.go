package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector exports a Snapshot source as Prometheus metrics. The source is
// read once per scrape.
type Collector struct {
	source func() Snapshot

	eventsDispatched    *prometheus.Desc
	eventsQueued        *prometheus.Desc
	stateUpdates        *prometheus.Desc
	components          *prometheus.Desc
	activeSubscriptions *prometheus.Desc
	failedComponents    *prometheus.Desc
	averageDispatch     *prometheus.Desc
	queueOverflows      *prometheus.Desc
	handlerErrors       *prometheus.Desc
	handlerPanics       *prometheus.Desc
	securityRejections  *prometheus.Desc
	keysStripped        *prometheus.Desc
	stateSubscriptions  *prometheus.Desc
	replayBuffer        *prometheus.Desc
	broadcasts          *prometheus.Desc
	broadcastFailures   *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector creates a collector under the given namespace.
func NewCollector(namespace string, source func() Snapshot) *Collector {
	desc := func(subsystem, name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, subsystem, name), help, nil, nil)
	}
	return &Collector{
		source: source,

		eventsDispatched:    desc("events", "dispatched_total", "Total number of dispatched events"),
		eventsQueued:        desc("events", "queued", "Events currently waiting in the queue"),
		stateUpdates:        desc("state", "updates_total", "Total number of state writes"),
		components:          desc("components", "registered", "Registered components"),
		activeSubscriptions: desc("events", "subscriptions", "Active event subscriptions"),
		failedComponents:    desc("components", "failed", "Components in error status"),
		averageDispatch:     desc("events", "dispatch_seconds_avg", "Average dispatch time over the recent window"),
		queueOverflows:      desc("events", "queue_overflows_total", "Events dropped from a full queue"),
		handlerErrors:       desc("events", "handler_errors_total", "Event handlers that returned an error"),
		handlerPanics:       desc("events", "handler_panics_total", "Event handlers that panicked"),
		securityRejections:  desc("security", "rejections_total", "Events rejected by the security mediator"),
		keysStripped:        desc("security", "keys_stripped_total", "Dangerous keys stripped from payloads"),
		stateSubscriptions:  desc("state", "subscriptions", "Active state subscriptions"),
		replayBuffer:        desc("events", "replay_buffer_size", "Events held in the replay buffer"),
		broadcasts:          desc("components", "broadcasts_total", "Total number of broadcasts"),
		broadcastFailures:   desc("components", "broadcast_failures_total", "Broadcast targets that failed"),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.eventsDispatched
	ch <- c.eventsQueued
	ch <- c.stateUpdates
	ch <- c.components
	ch <- c.activeSubscriptions
	ch <- c.failedComponents
	ch <- c.averageDispatch
	ch <- c.queueOverflows
	ch <- c.handlerErrors
	ch <- c.handlerPanics
	ch <- c.securityRejections
	ch <- c.keysStripped
	ch <- c.stateSubscriptions
	ch <- c.replayBuffer
	ch <- c.broadcasts
	ch <- c.broadcastFailures
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.source()

	counter := func(d *prometheus.Desc, v uint64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v))
	}
	gauge := func(d *prometheus.Desc, v float64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v)
	}

	counter(c.eventsDispatched, s.EventsDispatched)
	gauge(c.eventsQueued, float64(s.EventsQueued))
	counter(c.stateUpdates, s.StateUpdates)
	gauge(c.components, float64(s.ComponentCount))
	gauge(c.activeSubscriptions, float64(s.ActiveSubscriptions))
	gauge(c.failedComponents, float64(s.FailedComponents))
	gauge(c.averageDispatch, s.AverageDispatchTime.Seconds())
	counter(c.queueOverflows, s.QueueOverflows)
	counter(c.handlerErrors, s.HandlerErrors)
	counter(c.handlerPanics, s.HandlerPanics)
	counter(c.securityRejections, s.SecurityRejections)
	counter(c.keysStripped, s.KeysStripped)
	gauge(c.stateSubscriptions, float64(s.StateSubscriptions))
	gauge(c.replayBuffer, float64(s.ReplayBufferSize))
	counter(c.broadcasts, s.Broadcasts)
	counter(c.broadcastFailures, s.BroadcastFailures)
}
