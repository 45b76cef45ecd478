package switchboard

import (
	"context"

	"github.com/dshills/switchboard/internal/orcherr"
)

// Attachable is implemented by components that want a host handle. Attach
// is called once, right after registration succeeds.
type Attachable interface {
	Attach(host *ComponentHost)
}

// RegisterComponent adds a component to the dependency graph. Every
// dependency must already be registered.
func (o *Orchestrator) RegisterComponent(id string, component any, deps ...string) error {
	if err := o.lifecycle.Register(id, component, deps...); err != nil {
		return err
	}
	if a, ok := component.(Attachable); ok {
		a.Attach(newComponentHost(o, id))
	}
	return nil
}

// AddDependency makes id depend on dep. Both must be registered and id must
// not have been initialized yet.
func (o *Orchestrator) AddDependency(id, dep string) error {
	return o.lifecycle.AddDependency(id, dep)
}

// InitializeComponents initializes every registered component in
// dependency order. Failures are reported per component; components that
// fail or sit on a dependency cycle are marked as errored and excluded from
// dispatch.
func (o *Orchestrator) InitializeComponents(ctx context.Context) Report {
	report := o.lifecycle.InitializeAll(ctx)
	if report.HasErrors() {
		o.logger.Warn().
			Strs("failed", report.Failed()).
			Int("initialized", len(report.Succeeded())).
			Msg("component initialization finished with errors")
	}
	return report
}

// InitializeComponent initializes a single registered component whose
// dependencies are already initialized.
func (o *Orchestrator) InitializeComponent(ctx context.Context, id string) (Result, error) {
	return o.lifecycle.Execute(ctx, id, orcherr.PhaseInitialize)
}

// DestroyComponents destroys components in reverse initialization order and
// removes their owned subscriptions.
func (o *Orchestrator) DestroyComponents(ctx context.Context) Report {
	report := o.lifecycle.DestroyAll(ctx)
	for _, r := range report.Results {
		if r.Status == StatusDestroyed {
			o.releaseOwner(r.ComponentID)
		}
	}
	return report
}

// DestroyComponent destroys a single component. It fails with a
// DependencyError while an initialized component depends on it.
func (o *Orchestrator) DestroyComponent(ctx context.Context, id string) (Result, error) {
	res, err := o.lifecycle.Execute(ctx, id, orcherr.PhaseDestroy)
	if err != nil {
		return res, err
	}
	if res.Status == StatusDestroyed {
		o.releaseOwner(id)
	}
	return res, nil
}

// UnregisterComponent removes a component, destroying it first if needed.
// It fails with a DependencyError while any non-destroyed component depends
// on it.
func (o *Orchestrator) UnregisterComponent(ctx context.Context, id string) (Result, error) {
	res, err := o.lifecycle.Unregister(ctx, id)
	if err != nil {
		return res, err
	}
	if res.Status == StatusDestroyed {
		o.releaseOwner(id)
	}
	return res, nil
}

// ComponentStatus returns a snapshot of one component.
func (o *Orchestrator) ComponentStatus(id string) (ComponentStatus, bool) {
	return o.lifecycle.Status(id)
}

// ComponentStatuses returns every component in registration order.
func (o *Orchestrator) ComponentStatuses() []ComponentStatus {
	return o.lifecycle.Statuses()
}

// RenderComponent invokes a component's render hook.
func (o *Orchestrator) RenderComponent(ctx context.Context, id string) Result {
	return o.lifecycle.Render(ctx, id)
}

func (o *Orchestrator) releaseOwner(id string) {
	events := o.bus.UnsubscribeOwner(id)
	states := o.store.UnsubscribeOwner(id)
	if events+states > 0 {
		o.logger.Debug().
			Str("id", id).
			Int("event_subscriptions", events).
			Int("state_subscriptions", states).
			Msg("released component subscriptions")
	}
}
