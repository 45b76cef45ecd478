package dispatch

import (
	"context"
	"time"
)

// Call is a single isolated unit of work.
type Call func(ctx context.Context) error

// Dispatcher is the interface for call dispatchers.
type Dispatcher interface {
	// Dispatch executes a call and returns its outcome.
	Dispatch(ctx context.Context, label string, call Call) Result
}

// Result represents the outcome of a call.
type Result struct {
	// Label identifies the call (event name, state path, component id).
	Label string

	// Success is true if the call completed without error or panic.
	Success bool

	// Error is the error returned by the call, if any.
	Error error

	// Panicked is true if the call panicked.
	Panicked bool

	// PanicValue is the value passed to panic(), if Panicked is true.
	PanicValue any

	// PanicStack is the stack trace at the point of panic.
	PanicStack []byte

	// Duration is how long the call took to execute.
	Duration time.Duration

	// Skipped is true if the call was not executed (context cancelled).
	Skipped bool
}

// IsSuccess returns true if the result indicates successful execution.
func (r Result) IsSuccess() bool {
	return r.Success && !r.Panicked && r.Error == nil
}

// IsError returns true if the result indicates an error (not panic).
func (r Result) IsError() bool {
	return r.Error != nil && !r.Panicked
}

// IsPanic returns true if the result indicates a panic.
func (r Result) IsPanic() bool {
	return r.Panicked
}

// Err returns the failure as an error, or nil on success.
// Panics are reported as *PanicError.
func (r Result) Err() error {
	if r.Panicked {
		return &PanicError{Value: r.PanicValue, Stack: r.PanicStack}
	}
	return r.Error
}

// PanicHandler is called when a call panics.
type PanicHandler func(label string, panicValue any, stack []byte)

func defaultPanicHandler(string, any, []byte) {}
