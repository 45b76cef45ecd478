package switchboard

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/dshills/switchboard/internal/event"
	"github.com/dshills/switchboard/internal/state"
)

// ComponentHost is the orchestrator as seen by one component. Events and
// state writes carry the component id as their source, and subscriptions
// are owned by the component: they are skipped while it is in error and
// removed when it is destroyed or unregistered.
type ComponentHost struct {
	orch   *Orchestrator
	id     string
	logger zerolog.Logger
}

func newComponentHost(o *Orchestrator, id string) *ComponentHost {
	return &ComponentHost{
		orch:   o,
		id:     id,
		logger: o.logger.With().Str("component_id", id).Logger(),
	}
}

// ID returns the component id.
func (h *ComponentHost) ID() string {
	return h.id
}

// Logger returns a logger tagged with the component id.
func (h *ComponentHost) Logger() zerolog.Logger {
	return h.logger
}

// Emit mediates and publishes an event with the component as its source.
func (h *ComponentHost) Emit(ctx context.Context, name string, payload any, opts ...EmitOption) (Delivery, error) {
	return h.orch.emit(ctx, h.id, name, payload, append(opts, event.WithSource(h.id)))
}

// On subscribes fn on behalf of the component.
func (h *ComponentHost) On(pattern string, fn HandlerFunc, opts ...SubscriptionOption) (string, error) {
	return h.orch.bus.SubscribeFunc(pattern, fn, append(opts, event.WithOwner(h.id))...)
}

// Off removes a subscription.
func (h *ComponentHost) Off(id string) error {
	return h.orch.bus.Unsubscribe(id)
}

// ProcessQueue delivers the events queued so far and returns how many
// were dispatched.
func (h *ComponentHost) ProcessQueue(ctx context.Context) int {
	return h.orch.bus.ProcessQueue(ctx)
}

// SetState writes value at path with the component as source.
func (h *ComponentHost) SetState(ctx context.Context, path string, value any) error {
	return h.orch.setState(ctx, h.id, path, value)
}

// MergeState deep-merges data into the object at path.
func (h *ComponentHost) MergeState(ctx context.Context, path string, data map[string]any) error {
	return h.orch.mergeState(ctx, h.id, path, data)
}

// DeleteState removes the value at path.
func (h *ComponentHost) DeleteState(ctx context.Context, path string) error {
	return h.orch.store.Delete(ctx, path, h.id)
}

// GetState returns the snapshot at path.
func (h *ComponentHost) GetState(path string) Value {
	return h.orch.store.Get(path)
}

// OnStateChange subscribes cb to changes at path on behalf of the
// component.
func (h *ComponentHost) OnStateChange(path string, cb StateCallback) (string, error) {
	return h.orch.store.Subscribe(path, cb, state.WithOwner(h.id))
}

// OffStateChange removes a state subscription.
func (h *ComponentHost) OffStateChange(id string) bool {
	return h.orch.store.Unsubscribe(id)
}
