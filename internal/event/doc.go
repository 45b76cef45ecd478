// Package event provides the event bus of the orchestration core.
//
// The bus lets independently developed components talk without knowing
// about each other. Producers emit named events; consumers subscribe with
// exact names or wildcard patterns.
//
// # Architecture
//
//	                    ┌──────────────────────────────────────────┐
//	                    │               Event Bus                   │
//	                    │  - Subscriber registry (trie matching)    │
//	                    │  - Isolated synchronous dispatch          │
//	                    │  - Bounded priority queue                 │
//	                    │  - Replay ring buffer                     │
//	                    └──────────────────────────────────────────┘
//
// # Event Names
//
// Events use colon-delimited names:
//
//	user:created
//	user:profile:updated
//	inventory:sync
//
// # Wildcard Patterns
//
//	user:*     - every event in the user namespace
//	*          - every event
//
// # Delivery
//
// A normal emit delivers synchronously to every matching subscriber, in the
// order the subscriptions were made, before Emit returns. The subscriber
// list is captured when dispatch starts: handlers added during dispatch do
// not see the current event, and handlers removed during dispatch still do. Each handler runs isolated; an error or panic
// is counted and logged and delivery continues with the next handler.
//
// A queued emit is appended to a bounded FIFO. When the queue is full the
// oldest entry is dropped. ProcessQueue drains the queue, high priority
// entries first and FIFO within a priority.
//
// # Replay
//
// Every dispatched event is recorded in a ring buffer. Replay re-delivers
// recorded events that match a predicate to the current subscribers.
//
// # Usage
//
//	bus := event.NewBus(event.WithLogger(logger))
//
//	id, err := bus.Subscribe("user:*", event.HandlerFunc(func(ctx context.Context, e event.Event) error {
//	    fmt.Println(e.Name, e.Payload)
//	    return nil
//	}))
//
//	bus.Emit(ctx, "user:created", map[string]any{"id": 42})
//	bus.Emit(ctx, "report:ready", nil, event.Queued(), event.WithPriority(event.PriorityHigh))
//	bus.ProcessQueue(ctx)
//
// # Thread Safety
//
// All Bus methods are safe for concurrent use. No lock is held while a
// handler runs, so handlers may subscribe, unsubscribe and emit.
package event
