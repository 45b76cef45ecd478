package switchboard

import (
	"github.com/dshills/switchboard/internal/config"
)

// Introspector is a read-only view of an orchestrator for debugging tools.
// It is handed to the host at construction when introspection is enabled.
type Introspector struct {
	orch *Orchestrator
}

// Components returns every component in registration order.
func (i *Introspector) Components() []ComponentStatus {
	return i.orch.lifecycle.Statuses()
}

// Component returns one component.
func (i *Introspector) Component(id string) (ComponentStatus, bool) {
	return i.orch.lifecycle.Status(id)
}

// InitOrder returns the order in which live components were initialized.
func (i *Introspector) InitOrder() []string {
	return i.orch.lifecycle.InitOrder()
}

// Subscriptions returns the event subscriptions in registration order.
func (i *Introspector) Subscriptions() []SubscriptionInfo {
	return i.orch.bus.Subscriptions()
}

// StateSubscriptions returns the state subscriptions in registration order.
func (i *Introspector) StateSubscriptions() []StateSubscriptionInfo {
	return i.orch.store.Subscriptions()
}

// State returns the snapshot at path; the empty path is the root.
func (i *Introspector) State(path string) Value {
	return i.orch.store.Get(path)
}

// StateHistory returns recent state changes, oldest first.
func (i *Introspector) StateHistory() []ChangeRecord {
	return i.orch.store.History()
}

// EventHistory returns the recorded events accepted by filter, oldest
// first. A nil filter returns the whole replay buffer. Nothing is
// re-delivered.
func (i *Introspector) EventHistory(filter FilterFunc) []Event {
	history := i.orch.bus.History()
	if filter == nil {
		return history
	}
	out := history[:0]
	for _, e := range history {
		if filter(e) {
			out = append(out, e)
		}
	}
	return out
}

// QueueLen returns the number of queued events.
func (i *Introspector) QueueLen() int {
	return i.orch.bus.QueueLen()
}

// AllowList reports whether the allow-list is enforced and its patterns.
func (i *Introspector) AllowList() (bool, []string) {
	return i.orch.security.AllowListEnabled(), i.orch.security.AllowedPatterns()
}

// Metrics returns the current metrics snapshot.
func (i *Introspector) Metrics() Metrics {
	return i.orch.Metrics()
}

// Config returns a copy of the active configuration.
func (i *Introspector) Config() *config.Config {
	return i.orch.Config()
}
