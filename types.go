package switchboard

import (
	"github.com/dshills/switchboard/internal/event"
	"github.com/dshills/switchboard/internal/lifecycle"
	"github.com/dshills/switchboard/internal/metrics"
	"github.com/dshills/switchboard/internal/security"
	"github.com/dshills/switchboard/internal/state"
)

// Event types.
type (
	Event              = event.Event
	Handler            = event.Handler
	HandlerFunc        = event.HandlerFunc
	FilterFunc         = event.FilterFunc
	EmitOption         = event.EmitOption
	SubscriptionOption = event.SubscriptionOption
	SubscriptionInfo   = event.SubscriptionInfo
	Priority           = event.Priority
)

// Event priorities.
const (
	PriorityNormal = event.PriorityNormal
	PriorityHigh   = event.PriorityHigh
)

// State types.
type (
	Value                 = state.Value
	Change                = state.Change
	ChangeType            = state.ChangeType
	ChangeRecord          = state.ChangeRecord
	StateCallback         = state.Callback
	StateSubscribeOption  = state.SubscribeOption
	StateSubscriptionInfo = state.SubscriptionInfo
)

// Component types.
type (
	Initializer     = lifecycle.Initializer
	Destroyer       = lifecycle.Destroyer
	Closer          = lifecycle.Closer
	MessageHandler  = lifecycle.MessageHandler
	Renderer        = lifecycle.Renderer
	Status          = lifecycle.Status
	ComponentStatus = lifecycle.ComponentStatus
	Result          = lifecycle.Result
	Report          = lifecycle.Report
)

// Component statuses.
const (
	StatusRegistered   = lifecycle.StatusRegistered
	StatusInitializing = lifecycle.StatusInitializing
	StatusInitialized  = lifecycle.StatusInitialized
	StatusError        = lifecycle.StatusError
	StatusDestroyed    = lifecycle.StatusDestroyed
)

// Validator inspects an event payload and returns an error to reject it.
type Validator = security.Validator

// Metrics is a point-in-time snapshot of orchestrator counters.
type Metrics = metrics.Snapshot

// WithPriority sets the priority of a queued event.
func WithPriority(p Priority) EmitOption { return event.WithPriority(p) }

// WithSource sets the emitting source. Rate limits apply per source.
func WithSource(source string) EmitOption { return event.WithSource(source) }

// Queued defers delivery until the next ProcessQueue call.
func Queued() EmitOption { return event.Queued() }

// WithOwner ties a subscription to a component; it is removed when the
// component is destroyed or unregistered and skipped while the component
// is in error.
func WithOwner(id string) SubscriptionOption { return event.WithOwner(id) }

// WithFilter only delivers events accepted by f.
func WithFilter(f FilterFunc) SubscriptionOption { return event.WithFilter(f) }

// ParsePriority parses "normal" or "high".
func ParsePriority(s string) (Priority, error) { return event.ParsePriority(s) }

// Event predicates for WithFilter, Replay and history queries.
var (
	FilterByPattern      = event.FilterByPattern
	FilterBySources      = event.FilterBySources
	FilterBySourcePrefix = event.FilterBySourcePrefix
	FilterByPriority     = event.FilterByPriority
	FilterSince          = event.FilterSince
	FilterAnd            = event.FilterAnd
	FilterOr             = event.FilterOr
	FilterNot            = event.FilterNot
)

// WithOnce cancels the subscription after its first delivery.
func WithOnce() SubscriptionOption { return event.WithOnce() }

// WithStateOwner ties a state subscription to a component.
func WithStateOwner(id string) StateSubscribeOption { return state.WithOwner(id) }
