// Package switchboard is an in-process orchestration core for modular
// applications built from independently developed components.
//
// An Orchestrator composes four subsystems:
//
//   - an event bus with exact, prefix ("ns:*") and global ("*")
//     subscriptions, a bounded priority queue and a replay buffer
//   - a hierarchical state store addressed by dot-delimited paths, whose
//     snapshots are immutable and share unchanged branches between writes
//   - a lifecycle manager that initializes components in dependency order
//     and destroys them in reverse
//   - a security mediator in front of the bus and the store that strips
//     prototype-polluting keys, enforces an optional event allow-list,
//     runs payload validators and rate limits sources
//
// Components are plain values exposing any subset of the hooks
// OnInitialize, OnDestroy, OnMessage and Render. A component that
// implements Attachable receives a ComponentHost scoped to its id.
//
// # Basic Usage
//
//	orch, err := switchboard.New()
//	if err != nil {
//	    return err
//	}
//
//	_ = orch.RegisterComponent("table", table)
//	_ = orch.RegisterComponent("filters", filters, "table")
//	report := orch.InitializeComponents(ctx)
//
//	orch.On("table:*", func(ctx context.Context, e switchboard.Event) error {
//	    return nil
//	})
//	orch.Emit(ctx, "table:rowSelected", map[string]any{"row": 3})
//	orch.SetState(ctx, "filters.query", "ada")
//
// # Error Handling
//
// Malformed input (bad patterns, bad paths, duplicate ids) and dependency
// problems are returned directly. Failures inside components and security
// rejections never are: they are reported in lifecycle reports, broadcast
// results and emit deliveries, and counted in Metrics.
//
// # Concurrency
//
// The core spawns no goroutines. Every method is safe for concurrent use and
// no lock is held while a callback runs, so callbacks may call back into
// the orchestrator.
package switchboard
