package event

import (
	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"
)

// BusOption configures an event Bus.
type BusOption func(*busConfig)

type busConfig struct {
	queueCapacity int
	replaySize    int
	logger        zerolog.Logger
	clock         clock.Clock
	observer      Observer
	gate          func(owner string) bool
}

// Defaults for the bus.
const (
	DefaultQueueCapacity = 100
	DefaultReplaySize    = 50
)

func defaultBusConfig() busConfig {
	return busConfig{
		queueCapacity: DefaultQueueCapacity,
		replaySize:    DefaultReplaySize,
		logger:        zerolog.Nop(),
		clock:         clock.New(),
	}
}

// WithQueueCapacity sets the maximum number of queued events.
func WithQueueCapacity(n int) BusOption {
	return func(c *busConfig) {
		if n > 0 {
			c.queueCapacity = n
		}
	}
}

// WithReplaySize sets the number of dispatched events kept for replay.
func WithReplaySize(n int) BusOption {
	return func(c *busConfig) {
		if n > 0 {
			c.replaySize = n
		}
	}
}

// WithLogger sets the bus logger.
func WithLogger(l zerolog.Logger) BusOption {
	return func(c *busConfig) {
		c.logger = l.With().Str("component", "event").Logger()
	}
}

// WithClock sets the clock used for timestamps and timing.
func WithClock(clk clock.Clock) BusOption {
	return func(c *busConfig) {
		if clk != nil {
			c.clock = clk
		}
	}
}

// WithObserver sets the dispatch observer.
func WithObserver(o Observer) BusOption {
	return func(c *busConfig) {
		c.observer = o
	}
}

// WithDeliveryGate sets a predicate consulted for owned subscriptions.
// Subscriptions whose owner the gate rejects are skipped during dispatch.
func WithDeliveryGate(gate func(owner string) bool) BusOption {
	return func(c *busConfig) {
		c.gate = gate
	}
}
