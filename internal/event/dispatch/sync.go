package dispatch

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
)

// SyncDispatcher executes calls synchronously in the caller's goroutine.
// It provides panic recovery and keeps cumulative statistics.
type SyncDispatcher struct {
	executor *Executor

	dispatched  atomic.Uint64
	succeeded   atomic.Uint64
	failed      atomic.Uint64
	panicked    atomic.Uint64
	skipped     atomic.Uint64
	totalTimeNs atomic.Int64
}

// NewSyncDispatcher creates a new synchronous dispatcher.
func NewSyncDispatcher(opts ...SyncOption) *SyncDispatcher {
	cfg := syncConfig{panicHandler: defaultPanicHandler, clock: clock.New()}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &SyncDispatcher{
		executor: NewExecutor(
			WithExecutorPanicHandler(cfg.panicHandler),
			WithExecutorClock(cfg.clock),
		),
	}
}

type syncConfig struct {
	panicHandler PanicHandler
	clock        clock.Clock
}

// SyncOption configures a SyncDispatcher.
type SyncOption func(*syncConfig)

// WithPanicHandler sets the panic handler for the dispatcher.
func WithPanicHandler(h PanicHandler) SyncOption {
	return func(c *syncConfig) {
		c.panicHandler = h
	}
}

// WithClock sets the clock used to time calls.
func WithClock(clk clock.Clock) SyncOption {
	return func(c *syncConfig) {
		if clk != nil {
			c.clock = clk
		}
	}
}

// Dispatch executes a call synchronously.
func (d *SyncDispatcher) Dispatch(ctx context.Context, label string, call Call) Result {
	d.dispatched.Add(1)

	result := d.executor.Execute(ctx, label, call)
	d.totalTimeNs.Add(result.Duration.Nanoseconds())

	switch {
	case result.Skipped:
		d.skipped.Add(1)
	case result.Panicked:
		d.panicked.Add(1)
	case result.Error != nil:
		d.failed.Add(1)
	case result.Success:
		d.succeeded.Add(1)
	}

	return result
}

// DispatchAll executes calls sequentially under one label.
// Remaining calls are skipped once the context is cancelled.
func (d *SyncDispatcher) DispatchAll(ctx context.Context, label string, calls []Call) []Result {
	results := make([]Result, len(calls))

	for i, call := range calls {
		results[i] = d.Dispatch(ctx, label, call)

		select {
		case <-ctx.Done():
			for j := i + 1; j < len(calls); j++ {
				results[j] = Result{Label: label, Error: ctx.Err(), Skipped: true}
			}
			return results
		default:
		}
	}

	return results
}

// Stats returns dispatch statistics.
func (d *SyncDispatcher) Stats() SyncDispatcherStats {
	dispatched := d.dispatched.Load()
	totalNs := d.totalTimeNs.Load()

	var avgNs int64
	if dispatched > 0 {
		avgNs = totalNs / int64(dispatched)
	}

	return SyncDispatcherStats{
		Dispatched:    dispatched,
		Succeeded:     d.succeeded.Load(),
		Failed:        d.failed.Load(),
		Panicked:      d.panicked.Load(),
		Skipped:       d.skipped.Load(),
		TotalDuration: time.Duration(totalNs),
		AvgDuration:   time.Duration(avgNs),
	}
}

// ResetStats resets all statistics to zero.
func (d *SyncDispatcher) ResetStats() {
	d.dispatched.Store(0)
	d.succeeded.Store(0)
	d.failed.Store(0)
	d.panicked.Store(0)
	d.skipped.Store(0)
	d.totalTimeNs.Store(0)
}

// SyncDispatcherStats contains statistics for a sync dispatcher.
type SyncDispatcherStats struct {
	Dispatched    uint64
	Succeeded     uint64
	Failed        uint64
	Panicked      uint64
	Skipped       uint64
	TotalDuration time.Duration
	AvgDuration   time.Duration
}
