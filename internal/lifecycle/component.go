package lifecycle

import "context"

// Initializer is implemented by components with an initialize hook.
type Initializer interface {
	OnInitialize(ctx context.Context) error
}

// Destroyer is implemented by components with a destroy hook.
type Destroyer interface {
	OnDestroy(ctx context.Context) error
}

// Closer is implemented by components that hold resources outside their
// hooks. Close runs when a component that never initialized is destroyed;
// initialized components release through OnDestroy instead.
type Closer interface {
	Close() error
}

// MessageHandler is implemented by components that accept broadcast messages.
type MessageHandler interface {
	OnMessage(ctx context.Context, message string, data any) error
}

// Renderer is implemented by components that can render themselves.
type Renderer interface {
	Render(ctx context.Context) error
}

// Status represents the lifecycle status of a component.
type Status int

// Component statuses.
const (
	// StatusRegistered - Component is known but not initialized.
	StatusRegistered Status = iota

	// StatusInitializing - Initialize hook is running.
	StatusInitializing

	// StatusInitialized - Component is live.
	StatusInitialized

	// StatusError - Initialization failed; excluded from further lifecycle.
	StatusError

	// StatusDestroyed - Component has been torn down.
	StatusDestroyed
)

// String returns a string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusRegistered:
		return "registered"
	case StatusInitializing:
		return "initializing"
	case StatusInitialized:
		return "initialized"
	case StatusError:
		return "error"
	case StatusDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// IsActive returns true if the component may receive messages.
func (s Status) IsActive() bool {
	return s != StatusError && s != StatusDestroyed
}
