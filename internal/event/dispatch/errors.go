package dispatch

import "fmt"

// PanicError wraps a value recovered from a panicking call.
// The stack is kept for logging; Error() omits it.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("panic: %v", e.Value)
}
