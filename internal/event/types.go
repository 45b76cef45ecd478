package event

import (
	"context"
	"time"
)

// Handler is the interface for event handlers.
type Handler interface {
	// Handle processes an event.
	Handle(ctx context.Context, e Event) error
}

// HandlerFunc is a function adapter for Handler.
type HandlerFunc func(ctx context.Context, e Event) error

// Handle implements the Handler interface.
func (f HandlerFunc) Handle(ctx context.Context, e Event) error {
	return f(ctx, e)
}

// FilterFunc is a predicate over events.
// Return true to allow the event, false to filter it out.
type FilterFunc func(e Event) bool

// Delivery reports the outcome of a single Emit.
type Delivery struct {
	// EventID is the id assigned to the emitted event.
	EventID string

	// Delivered is the number of handlers that completed successfully.
	Delivered int

	// Failed is the number of handlers that returned an error or panicked.
	Failed int

	// Queued is true if the event was queued instead of dispatched.
	Queued bool

	// DroppedID is the id of the event evicted from a full queue, if any.
	DroppedID string
}

// Observer receives dispatch measurements.
type Observer interface {
	// ObserveDispatch is called after every dispatch with its wall time.
	ObserveDispatch(name string, elapsed time.Duration, delivered, failed int)

	// ObserveOverflow is called when a full queue drops an event.
	ObserveOverflow(dropped Event)
}

// Stats contains event bus statistics.
type Stats struct {
	// EventsDispatched is the number of events dispatched (sync or from the queue).
	EventsDispatched uint64

	// EventsQueued is the current queue length.
	EventsQueued int

	// QueueOverflows is the number of queued events dropped on overflow.
	QueueOverflows uint64

	// HandlersExecuted is the total number of handler executions.
	HandlersExecuted uint64

	// HandlerErrors is the number of handlers that returned errors.
	HandlerErrors uint64

	// HandlerPanics is the number of handlers that panicked.
	HandlerPanics uint64

	// ActiveSubscriptions is the current number of subscriptions.
	ActiveSubscriptions int

	// ReplaySize is the number of events held in the replay buffer.
	ReplaySize int
}
