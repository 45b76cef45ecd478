package switchboard

import (
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"

	"github.com/dshills/switchboard/internal/config"
	"github.com/dshills/switchboard/internal/event"
	"github.com/dshills/switchboard/internal/lifecycle"
	"github.com/dshills/switchboard/internal/metrics"
	"github.com/dshills/switchboard/internal/security"
	"github.com/dshills/switchboard/internal/state"
)

// HostSource is the source recorded for events and state writes made
// through the Orchestrator rather than a ComponentHost.
const HostSource = "host"

// Orchestrator composes the event bus, state store, lifecycle manager and
// security mediator behind one API.
type Orchestrator struct {
	mu     sync.RWMutex // guards config
	config *config.Config
	logger zerolog.Logger
	clock  clock.Clock

	bus       *event.Bus
	store     *state.Store
	lifecycle *lifecycle.Manager
	security  *security.Mediator
	recorder  *metrics.Recorder

	introspector *Introspector
}

// Option configures an Orchestrator.
type Option func(*options)

type options struct {
	config     *config.Config
	logger     zerolog.Logger
	clock      clock.Clock
	introspect func(*Introspector)
}

// WithConfig sets the configuration. It is validated by New.
func WithConfig(cfg *config.Config) Option {
	return func(o *options) {
		if cfg != nil {
			o.config = cfg.Clone()
		}
	}
}

// WithLogger sets the logger shared by every subsystem.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithClock sets the clock used for timestamps, timing and rate limits.
func WithClock(clk clock.Clock) Option {
	return func(o *options) {
		if clk != nil {
			o.clock = clk
		}
	}
}

// WithIntrospection enables the debug handle and passes it to fn once the
// orchestrator is built.
func WithIntrospection(fn func(*Introspector)) Option {
	return func(o *options) {
		if fn == nil {
			fn = func(*Introspector) {}
		}
		o.introspect = fn
	}
}

// New creates an orchestrator. It fails only for an invalid configuration.
func New(opts ...Option) (*Orchestrator, error) {
	o := options{
		config: config.Default(),
		logger: zerolog.Nop(),
		clock:  clock.New(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	cfg := o.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	escape, _ := security.ParseContext(cfg.Security.EscapeContext)

	orch := &Orchestrator{
		config: cfg,
		logger: o.logger.With().Str("component", "orchestrator").Logger(),
		clock:  o.clock,
	}

	orch.security = security.NewMediator(
		security.WithLogger(o.logger),
		security.WithClock(o.clock),
		security.WithRateLimit(cfg.Security.RateLimit, cfg.Security.RateBurst),
		security.WithEscapeContext(escape),
	)
	if err := orch.security.ReplaceAllowList(cfg.Security.AllowListEnabled, cfg.Security.AllowList); err != nil {
		return nil, err
	}

	orch.recorder = metrics.NewRecorder(
		metrics.WithWindow(cfg.Metrics.Window),
		metrics.WithClock(o.clock),
	)

	orch.lifecycle = lifecycle.New(
		lifecycle.WithLogger(o.logger),
		lifecycle.WithClock(o.clock),
	)

	orch.bus = event.NewBus(
		event.WithQueueCapacity(cfg.Events.QueueCapacity),
		event.WithReplaySize(cfg.Events.ReplaySize),
		event.WithLogger(o.logger),
		event.WithClock(o.clock),
		event.WithObserver(orch.recorder),
		event.WithDeliveryGate(orch.ownerActive),
	)

	storeOpts := []state.Option{
		state.WithHistoryDepth(cfg.State.HistoryDepth),
		state.WithLogger(o.logger),
		state.WithClock(o.clock),
		state.WithDeliveryGate(orch.ownerActive),
	}
	if len(cfg.State.Initial) > 0 {
		seed := orch.security.MediateState("config", "", cfg.State.Initial)
		if m, ok := seed.Value.(map[string]any); ok {
			storeOpts = append(storeOpts, state.WithInitial(m))
		}
	}
	orch.store = state.New(storeOpts...)

	if o.introspect != nil {
		orch.introspector = &Introspector{orch: orch}
		o.introspect(orch.introspector)
	}

	orch.logger.Debug().
		Int("queue_capacity", cfg.Events.QueueCapacity).
		Int("replay_size", cfg.Events.ReplaySize).
		Int("history_depth", cfg.State.HistoryDepth).
		Bool("allow_list", cfg.Security.AllowListEnabled).
		Bool("introspection", orch.introspector != nil).
		Msg("orchestrator created")
	return orch, nil
}

// ownerActive gates delivery to owned event and state subscriptions. Owners that are not
// registered components, such as the host, are always active.
func (o *Orchestrator) ownerActive(owner string) bool {
	status, ok := o.lifecycle.Lookup(owner)
	if !ok {
		return true
	}
	return status.IsActive()
}

// Introspector returns the debug handle, or nil if introspection was not
// enabled at construction.
func (o *Orchestrator) Introspector() *Introspector {
	return o.introspector
}

// Config returns a copy of the active configuration.
func (o *Orchestrator) Config() *config.Config {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.config.Clone()
}
