package config

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is matched by every error returned from Validate.
var ErrInvalidConfig = errors.New("invalid configuration")

// FieldError describes a validation failure for one setting.
type FieldError struct {
	// Path is the dotted setting path, e.g. "events.queue_capacity".
	Path string
	// Message describes the problem.
	Message string
	// Value is the invalid value.
	Value any
}

// Error implements the error interface.
func (e *FieldError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("%s: %s (got %v)", e.Path, e.Message, e.Value)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// Is matches ErrInvalidConfig.
func (e *FieldError) Is(target error) bool {
	return target == ErrInvalidConfig
}
