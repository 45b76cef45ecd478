// Package metrics tracks orchestration counters and exports them to
// Prometheus.
package metrics

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/dshills/switchboard/internal/event"
	"github.com/dshills/switchboard/internal/ring"
)

// DefaultWindow is the number of recent dispatches averaged by
// AverageDispatchTime.
const DefaultWindow = 100

// Recorder observes bus dispatches and broadcasts. It implements
// event.Observer.
type Recorder struct {
	mu          sync.Mutex
	window      *ring.Buffer[time.Duration]
	windowTotal time.Duration

	dispatches     atomic.Uint64
	deliveries     atomic.Uint64
	failures       atomic.Uint64
	overflows      atomic.Uint64
	dispatchTotal  atomic.Int64
	dispatchMin    atomic.Int64
	dispatchMax    atomic.Int64
	lastDispatch   atomic.Int64
	broadcasts     atomic.Uint64
	broadcastFails atomic.Uint64

	clock     clock.Clock
	startTime time.Time
}

var _ event.Observer = (*Recorder)(nil)

// Option configures a Recorder.
type Option func(*recorderConfig)

type recorderConfig struct {
	window int
	clock  clock.Clock
}

// WithWindow sets the number of dispatches in the rolling average.
func WithWindow(n int) Option {
	return func(c *recorderConfig) {
		if n > 0 {
			c.window = n
		}
	}
}

// WithClock sets the clock used for uptime.
func WithClock(clk clock.Clock) Option {
	return func(c *recorderConfig) {
		if clk != nil {
			c.clock = clk
		}
	}
}

// NewRecorder creates a new recorder.
func NewRecorder(opts ...Option) *Recorder {
	cfg := recorderConfig{window: DefaultWindow, clock: clock.New()}
	for _, opt := range opts {
		opt(&cfg)
	}

	r := &Recorder{
		window:    ring.New[time.Duration](cfg.window),
		clock:     cfg.clock,
		startTime: cfg.clock.Now(),
	}
	// Initialize min to max int64 so the first dispatch will be smaller
	r.dispatchMin.Store(1<<63 - 1)
	return r
}

// ObserveDispatch records one dispatch.
func (r *Recorder) ObserveDispatch(name string, elapsed time.Duration, delivered, failed int) {
	ns := elapsed.Nanoseconds()

	r.dispatches.Add(1)
	r.deliveries.Add(uint64(delivered))
	r.failures.Add(uint64(failed))
	r.dispatchTotal.Add(ns)
	r.lastDispatch.Store(ns)

	for {
		old := r.dispatchMin.Load()
		if ns >= old || r.dispatchMin.CompareAndSwap(old, ns) {
			break
		}
	}
	for {
		old := r.dispatchMax.Load()
		if ns <= old || r.dispatchMax.CompareAndSwap(old, ns) {
			break
		}
	}

	r.mu.Lock()
	if old, evicted := r.window.Push(elapsed); evicted {
		r.windowTotal -= old
	}
	r.windowTotal += elapsed
	r.mu.Unlock()
}

// ObserveOverflow records an event dropped from a full queue.
func (r *Recorder) ObserveOverflow(event.Event) {
	r.overflows.Add(1)
}

// RecordBroadcast records one broadcast and its per-target outcome.
func (r *Recorder) RecordBroadcast(delivered, failed int) {
	r.broadcasts.Add(1)
	r.broadcastFails.Add(uint64(failed))
}

// AverageDispatchTime returns the mean over the most recent dispatches.
func (r *Recorder) AverageDispatchTime() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := r.window.Len()
	if n == 0 {
		return 0
	}
	return r.windowTotal / time.Duration(n)
}

// RecorderSnapshot is a point-in-time view of a Recorder.
type RecorderSnapshot struct {
	Uptime            time.Duration
	Dispatches        uint64
	Deliveries        uint64
	HandlerFailures   uint64
	Overflows         uint64
	AvgDispatch       time.Duration // Rolling window
	LifetimeAvg       time.Duration
	MinDispatch       time.Duration
	MaxDispatch       time.Duration
	LastDispatch      time.Duration
	Broadcasts        uint64
	BroadcastFailures uint64
}

// Snapshot returns the current counters.
func (r *Recorder) Snapshot() RecorderSnapshot {
	dispatches := r.dispatches.Load()

	var lifetime int64
	if dispatches > 0 {
		lifetime = r.dispatchTotal.Load() / int64(dispatches)
	}

	minNs := r.dispatchMin.Load()
	if minNs == 1<<63-1 {
		minNs = 0
	}

	return RecorderSnapshot{
		Uptime:            r.clock.Since(r.startTime),
		Dispatches:        dispatches,
		Deliveries:        r.deliveries.Load(),
		HandlerFailures:   r.failures.Load(),
		Overflows:         r.overflows.Load(),
		AvgDispatch:       r.AverageDispatchTime(),
		LifetimeAvg:       time.Duration(lifetime),
		MinDispatch:       time.Duration(minNs),
		MaxDispatch:       time.Duration(r.dispatchMax.Load()),
		LastDispatch:      time.Duration(r.lastDispatch.Load()),
		Broadcasts:        r.broadcasts.Load(),
		BroadcastFailures: r.broadcastFails.Load(),
	}
}

// Reset clears all counters.
func (r *Recorder) Reset() {
	r.dispatches.Store(0)
	r.deliveries.Store(0)
	r.failures.Store(0)
	r.overflows.Store(0)
	r.dispatchTotal.Store(0)
	r.dispatchMin.Store(1<<63 - 1)
	r.dispatchMax.Store(0)
	r.lastDispatch.Store(0)
	r.broadcasts.Store(0)
	r.broadcastFails.Store(0)

	r.mu.Lock()
	r.window.Clear()
	r.windowTotal = 0
	r.startTime = r.clock.Now()
	r.mu.Unlock()
}
