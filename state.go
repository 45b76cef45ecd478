package switchboard

import (
	"context"

	"github.com/dshills/switchboard/internal/orcherr"
)

// SetState sanitizes value and writes it at path. Subscribers are notified
// before SetState returns.
func (o *Orchestrator) SetState(ctx context.Context, path string, value any) error {
	return o.setState(ctx, HostSource, path, value)
}

func (o *Orchestrator) setState(ctx context.Context, source, path string, value any) error {
	out := o.security.MediateState(source, path, value)
	return o.store.Set(ctx, path, out.Value, source)
}

// MergeState sanitizes data and deep-merges it into the object at path.
func (o *Orchestrator) MergeState(ctx context.Context, path string, data map[string]any) error {
	return o.mergeState(ctx, HostSource, path, data)
}

func (o *Orchestrator) mergeState(ctx context.Context, source, path string, data map[string]any) error {
	out := o.security.MediateState(source, path, data)
	clean, ok := out.Value.(map[string]any)
	if !ok {
		return orcherr.NewValidationError("merge_state", "data", path, "must be an object")
	}
	return o.store.Merge(ctx, path, clean, source)
}

// DeleteState removes the value at path.
func (o *Orchestrator) DeleteState(ctx context.Context, path string) error {
	return o.store.Delete(ctx, path, HostSource)
}

// GetState returns the immutable snapshot at path. The empty path returns
// the root. Reads without an intervening write return the same snapshot.
func (o *Orchestrator) GetState(path string) Value {
	return o.store.Get(path)
}

// OnStateChange subscribes cb to changes at path, in its subtree and along
// its ancestors. The empty path subscribes to every change.
func (o *Orchestrator) OnStateChange(path string, cb StateCallback, opts ...StateSubscribeOption) (string, error) {
	return o.store.Subscribe(path, cb, opts...)
}

// OffStateChange removes a state subscription.
func (o *Orchestrator) OffStateChange(id string) bool {
	return o.store.Unsubscribe(id)
}

// StateHistory returns recent state changes, oldest first.
func (o *Orchestrator) StateHistory() []ChangeRecord {
	return o.store.History()
}
