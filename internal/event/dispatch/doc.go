// Package dispatch runs isolated units of work for the orchestration core.
//
// Every subscriber callback, state-change callback and component lifecycle
// hook goes through an Executor. A call that returns an error or panics
// produces a Result describing the failure; it never propagates to the
// caller, so one misbehaving callback cannot abort delivery to the rest.
//
// # Dispatchers
//
// SyncDispatcher executes calls in the caller's goroutine and keeps
// cumulative statistics. There is no asynchronous dispatcher: deferred
// delivery is modelled by the event bus queue, which the host drains
// explicitly.
//
// # Usage
//
//	d := dispatch.NewSyncDispatcher(
//	    dispatch.WithPanicHandler(func(label string, v any, stack []byte) {
//	        logger.Error().Str("call", label).Interface("panic", v).Msg("recovered")
//	    }),
//	)
//	result := d.Dispatch(ctx, "user:created", func(ctx context.Context) error {
//	    return handler.Handle(ctx, evt)
//	})
//	if !result.IsSuccess() {
//	    // result.Err() carries the error or a *PanicError
//	}
package dispatch
