package event

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/dshills/switchboard/internal/event/dispatch"
	"github.com/dshills/switchboard/internal/event/topic"
	"github.com/dshills/switchboard/internal/orcherr"
	"github.com/dshills/switchboard/internal/ring"
	"github.com/google/uuid"
)

// Bus is the event bus.
type Bus struct {
	registry   *Registry
	dispatcher *dispatch.SyncDispatcher
	config     busConfig

	seq atomic.Uint64

	// mu guards queue and replay. It is never held while a handler runs.
	mu     sync.Mutex
	queue  *queue
	replay *ring.Buffer[Event]

	eventsDispatched atomic.Uint64
	handlersExecuted atomic.Uint64
	handlerErrors    atomic.Uint64
	handlerPanics    atomic.Uint64
	queueOverflows   atomic.Uint64
}

// NewBus creates a new event bus with the given options.
func NewBus(opts ...BusOption) *Bus {
	config := defaultBusConfig()
	for _, opt := range opts {
		opt(&config)
	}

	b := &Bus{
		registry: NewRegistry(),
		config:   config,
		queue:    newQueue(config.queueCapacity),
		replay:   ring.New[Event](config.replaySize),
	}

	logger := config.logger
	b.dispatcher = dispatch.NewSyncDispatcher(
		dispatch.WithClock(config.clock),
		dispatch.WithPanicHandler(func(name string, v any, stack []byte) {
			logger.Error().
				Str("event", name).
				Interface("panic", v).
				Bytes("stack", stack).
				Msg("event handler panicked")
		}),
	)

	return b
}

// Subscribe registers a handler for an exact name, a prefix pattern
// ("ns:*") or the global pattern ("*"). It returns the subscription id.
func (b *Bus) Subscribe(pattern string, handler Handler, opts ...SubscriptionOption) (string, error) {
	if handler == nil {
		return "", orcherr.NewValidationError("subscribe", "handler", pattern, "handler cannot be nil")
	}
	p := topic.Topic(pattern)
	if !p.IsValidPattern() {
		return "", orcherr.NewValidationError("subscribe", "pattern", pattern,
			"expected an event name, ns:* or *")
	}

	sub := newSubscription(uuid.NewString(), b.seq.Add(1), p, handler, opts...)
	b.registry.Add(sub)

	b.config.logger.Debug().
		Str("subscription", sub.id).
		Str("pattern", pattern).
		Str("owner", sub.config.Owner).
		Msg("subscribed")
	return sub.id, nil
}

// SubscribeFunc is a convenience method for subscribing with a function handler.
func (b *Bus) SubscribeFunc(pattern string, fn HandlerFunc, opts ...SubscriptionOption) (string, error) {
	if fn == nil {
		return b.Subscribe(pattern, nil, opts...)
	}
	return b.Subscribe(pattern, fn, opts...)
}

// Unsubscribe removes a subscription. A dispatch already in progress keeps
// the subscriber list it started with, so it still calls the removed handler;
// later dispatches do not.
func (b *Bus) Unsubscribe(id string) error {
	if !b.registry.Remove(id) {
		return ErrSubscriptionNotFound
	}
	return nil
}

// UnsubscribeOwner removes every subscription owned by a component and
// returns how many were removed.
func (b *Bus) UnsubscribeOwner(owner string) int {
	n := b.registry.RemoveOwner(owner)
	if n > 0 {
		b.config.logger.Debug().Str("owner", owner).Int("count", n).Msg("removed owned subscriptions")
	}
	return n
}

// Emit publishes an event. Without the Queued option the event is
// delivered to every matching handler before Emit returns. Handler
// failures are reported in the Delivery, never as an error; the only
// error is a ValidationError for a malformed name.
func (b *Bus) Emit(ctx context.Context, name string, payload any, opts ...EmitOption) (Delivery, error) {
	if !topic.Topic(name).IsValid() {
		return Delivery{}, orcherr.NewValidationError("emit", "event name", name,
			"names are non-empty colon-separated segments without wildcards")
	}

	e := newEvent(name, payload, b.config.clock.Now(), opts...)
	if e.Queued {
		return b.enqueue(e), nil
	}
	return b.dispatch(ctx, e), nil
}

func (b *Bus) enqueue(e Event) Delivery {
	b.mu.Lock()
	dropped, evicted := b.queue.push(e)
	b.mu.Unlock()

	d := Delivery{EventID: e.ID, Queued: true}
	if evicted {
		b.queueOverflows.Add(1)
		d.DroppedID = dropped.ID
		b.config.logger.Warn().
			Str("dropped_event", dropped.Name).
			Str("dropped_id", dropped.ID).
			Int("capacity", b.config.queueCapacity).
			Msg("event queue overflow, dropped oldest entry")
		if b.config.observer != nil {
			b.config.observer.ObserveOverflow(dropped)
		}
	}
	return d
}

// ProcessQueue delivers every event queued before the call, high priority
// first and FIFO within a priority. Events queued by handlers during the
// drain wait for the next call. Returns the number of events dispatched.
func (b *Bus) ProcessQueue(ctx context.Context) int {
	if ctx.Err() != nil {
		return 0
	}

	b.mu.Lock()
	batch := b.queue.drain()
	b.mu.Unlock()

	for _, e := range batch {
		b.dispatch(ctx, e)
	}
	return len(batch)
}

func (b *Bus) dispatch(ctx context.Context, e Event) Delivery {
	b.mu.Lock()
	b.replay.Push(e)
	b.mu.Unlock()

	start := b.config.clock.Now()
	d := b.deliver(ctx, e)
	elapsed := b.config.clock.Since(start)

	b.eventsDispatched.Add(1)
	if b.config.observer != nil {
		b.config.observer.ObserveDispatch(e.Name, elapsed, d.Delivered, d.Failed)
	}
	return d
}

// deliver runs every matching handler over a snapshot of the registry.
func (b *Bus) deliver(ctx context.Context, e Event) Delivery {
	d := Delivery{EventID: e.ID, Queued: e.Queued}

	for _, sub := range b.registry.Match(topic.Topic(e.Name)) {
		if !sub.shouldDeliver(e, b.config.gate) {
			continue
		}
		if sub.config.Once {
			if !sub.fire() {
				continue
			}
			b.registry.Remove(sub.id)
		}

		h := sub.handler
		result := b.dispatcher.Dispatch(ctx, e.Name, func(ctx context.Context) error {
			return h.Handle(ctx, e)
		})
		b.handlersExecuted.Add(1)

		switch {
		case result.Panicked:
			b.handlerPanics.Add(1)
			d.Failed++
		case result.Error != nil:
			b.handlerErrors.Add(1)
			d.Failed++
			b.config.logger.Warn().
				Err(result.Error).
				Str("event", e.Name).
				Str("subscription", sub.id).
				Str("owner", sub.config.Owner).
				Msg("event handler failed")
		default:
			d.Delivered++
		}
	}
	return d
}

// Replay re-delivers recorded events matching filter to the current
// subscribers. The most recent limit matches are selected (limit <= 0
// selects all) and delivered oldest first. The delivered events are
// returned in the same order. A nil filter matches every event.
func (b *Bus) Replay(ctx context.Context, filter FilterFunc, limit int) []Event {
	if filter == nil {
		filter = FilterAll()
	}
	b.mu.Lock()
	recorded := b.replay.Slice()
	b.mu.Unlock()

	var picked []Event
	for i := len(recorded) - 1; i >= 0; i-- {
		if limit > 0 && len(picked) == limit {
			break
		}
		if filter(recorded[i]) {
			picked = append(picked, recorded[i])
		}
	}

	out := make([]Event, 0, len(picked))
	for i := len(picked) - 1; i >= 0; i-- {
		e := picked[i]
		e.Replayed = true
		b.deliver(ctx, e)
		out = append(out, e)
	}

	b.config.logger.Debug().Int("count", len(out)).Msg("replayed events")
	return out
}

// History returns the replay buffer contents, oldest first.
func (b *Bus) History() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.replay.Slice()
}

// QueueLen returns the number of queued events.
func (b *Bus) QueueLen() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.queue.len()
}

// Subscriptions returns descriptions of all subscriptions in registration order.
func (b *Bus) Subscriptions() []SubscriptionInfo {
	return b.registry.All()
}

// SubscriptionCount returns the number of subscriptions.
func (b *Bus) SubscriptionCount() int {
	return b.registry.Count()
}

// Stats returns current bus statistics.
func (b *Bus) Stats() Stats {
	b.mu.Lock()
	queued := b.queue.len()
	replaySize := b.replay.Len()
	b.mu.Unlock()

	return Stats{
		EventsDispatched:    b.eventsDispatched.Load(),
		EventsQueued:        queued,
		QueueOverflows:      b.queueOverflows.Load(),
		HandlersExecuted:    b.handlersExecuted.Load(),
		HandlerErrors:       b.handlerErrors.Load(),
		HandlerPanics:       b.handlerPanics.Load(),
		ActiveSubscriptions: b.registry.Count(),
		ReplaySize:          replaySize,
	}
}
