package event

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Priority orders queued events. It has no effect on synchronous delivery.
type Priority uint8

const (
	// PriorityNormal is the default priority.
	PriorityNormal Priority = iota

	// PriorityHigh entries are drained before normal ones.
	PriorityHigh
)

// String returns a human-readable priority name.
func (p Priority) String() string {
	if p == PriorityHigh {
		return "high"
	}
	return "normal"
}

// ParsePriority parses a priority name as produced by String.
func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(s) {
	case "normal":
		return PriorityNormal, nil
	case "high":
		return PriorityHigh, nil
	}
	return PriorityNormal, fmt.Errorf("unknown priority %q", s)
}

// Event is a single emitted event. Events are values; handlers receive a copy.
type Event struct {
	// ID is a unique identifier for this event instance.
	ID string

	// Name is the colon-delimited event name (e.g., "user:created").
	Name string

	// Payload contains the event-specific data.
	Payload any

	// Timestamp is when the event was emitted.
	Timestamp time.Time

	// Source identifies the component or host that emitted the event.
	Source string

	// Priority orders the event in the queue.
	Priority Priority

	// Queued is true if the event went through the queue.
	Queued bool

	// Replayed is true when the event is being re-delivered by Replay.
	Replayed bool
}

// EmitOption configures an emitted event.
type EmitOption func(*Event)

// WithPriority sets the event priority.
func WithPriority(p Priority) EmitOption {
	return func(e *Event) {
		e.Priority = p
	}
}

// WithSource sets the event source.
func WithSource(source string) EmitOption {
	return func(e *Event) {
		e.Source = source
	}
}

// Queued defers delivery until the next ProcessQueue call.
func Queued() EmitOption {
	return func(e *Event) {
		e.Queued = true
	}
}

func newEvent(name string, payload any, now time.Time, opts ...EmitOption) Event {
	e := Event{
		ID:        uuid.NewString(),
		Name:      name,
		Payload:   payload,
		Timestamp: now,
	}
	for _, opt := range opts {
		opt(&e)
	}
	return e
}
