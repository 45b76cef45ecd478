package script

import "errors"

// Errors for script operations.
var (
	// ErrStateClosed is returned when operating on a closed state.
	ErrStateClosed = errors.New("lua state is closed")

	// ErrNotAttached is returned when a hook runs before the
	// component was registered with an orchestrator.
	ErrNotAttached = errors.New("component is not attached to an orchestrator")
)
