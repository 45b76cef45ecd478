package dispatch

import (
	"context"
	"runtime/debug"

	"github.com/benbjohnson/clock"
)

// Executor runs calls with panic recovery and timing.
type Executor struct {
	panicHandler PanicHandler
	clock        clock.Clock
}

// NewExecutor creates a new executor with the given options.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{
		panicHandler: defaultPanicHandler,
		clock:        clock.New(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithExecutorPanicHandler sets the panic handler for the executor.
func WithExecutorPanicHandler(h PanicHandler) ExecutorOption {
	return func(e *Executor) {
		e.panicHandler = h
	}
}

// WithExecutorClock sets the clock used for timing.
func WithExecutorClock(c clock.Clock) ExecutorOption {
	return func(e *Executor) {
		if c != nil {
			e.clock = c
		}
	}
}

// Execute runs a call and returns the result.
// It recovers from panics and captures timing information.
func (e *Executor) Execute(ctx context.Context, label string, call Call) (result Result) {
	result.Label = label

	select {
	case <-ctx.Done():
		result.Error = ctx.Err()
		result.Skipped = true
		return result
	default:
	}

	start := e.clock.Now()

	defer func() {
		result.Duration = e.clock.Since(start)

		if r := recover(); r != nil {
			stack := debug.Stack()

			result.Success = false
			result.Panicked = true
			result.PanicValue = r
			result.PanicStack = stack

			// A panicking panic handler must not escape either.
			if e.panicHandler != nil {
				func() {
					defer func() { _ = recover() }()
					e.panicHandler(label, r, stack)
				}()
			}
		}
	}()

	if err := call(ctx); err != nil {
		result.Error = err
	} else {
		result.Success = true
	}
	return result
}
