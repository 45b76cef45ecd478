// Package orcherr defines the error taxonomy shared by the orchestration core.
//
// ValidationError and DependencyError are returned directly from the call
// that caused them. ComponentError and SecurityError are isolated at the
// boundary and only ever travel inside result records.
package orcherr

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every typed error matches its kind through errors.Is.
var (
	// ErrValidation indicates malformed input: a bad path, pattern or id.
	ErrValidation = errors.New("validation failed")

	// ErrDependency indicates a missing, cyclic or failed dependency.
	ErrDependency = errors.New("dependency error")

	// ErrSecurity indicates a rejected event or sanitized payload.
	ErrSecurity = errors.New("security violation")

	// ErrComponent indicates a failing component hook.
	ErrComponent = errors.New("component error")
)

// ValidationError reports malformed input to an operation.
type ValidationError struct {
	Op     string // Operation name (e.g., "subscribe", "set_state")
	Field  string // Offending field (e.g., "pattern", "path")
	Value  string // Offending value
	Reason string
}

// NewValidationError creates a new ValidationError.
func NewValidationError(op, field, value, reason string) *ValidationError {
	return &ValidationError{Op: op, Field: field, Value: value, Reason: reason}
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Op
	if e.Field != "" {
		msg = fmt.Sprintf("%s: invalid %s %q", msg, e.Field, e.Value)
	}
	if e.Reason != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Reason)
	}
	return msg
}

// Is matches ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// DependencyError reports a dependency problem for a component.
type DependencyError struct {
	ComponentID string
	Dependency  string   // The dependency at fault, if a single one is
	Cycle       []string // Members of a dependency cycle, if any
	Reason      string
}

// NewDependencyError creates a new DependencyError.
func NewDependencyError(componentID, dependency, reason string) *DependencyError {
	return &DependencyError{ComponentID: componentID, Dependency: dependency, Reason: reason}
}

// NewCycleError creates a DependencyError naming the members of a cycle.
func NewCycleError(componentID string, cycle []string) *DependencyError {
	members := make([]string, len(cycle))
	copy(members, cycle)
	return &DependencyError{
		ComponentID: componentID,
		Cycle:       members,
		Reason:      "circular dependency",
	}
}

func (e *DependencyError) Error() string {
	if e == nil {
		return ""
	}
	switch {
	case len(e.Cycle) > 0:
		return fmt.Sprintf("component %s: %s: %s", e.ComponentID, e.Reason, strings.Join(e.Cycle, " -> "))
	case e.Dependency != "":
		return fmt.Sprintf("component %s: dependency %s: %s", e.ComponentID, e.Dependency, e.Reason)
	default:
		return fmt.Sprintf("component %s: %s", e.ComponentID, e.Reason)
	}
}

// Is matches ErrDependency.
func (e *DependencyError) Is(target error) bool {
	return target == ErrDependency
}

// SecurityError reports a mediation rejection or a sanitized payload.
type SecurityError struct {
	Event  string   // Event name or state path being mediated
	Source string   // Emitting source, if known
	Keys   []string // Stripped key paths
	Reason string
}

// NewSecurityError creates a new SecurityError.
func NewSecurityError(event, source, reason string) *SecurityError {
	return &SecurityError{Event: event, Source: source, Reason: reason}
}

func (e *SecurityError) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Event
	if e.Source != "" {
		msg = fmt.Sprintf("%s from %s", msg, e.Source)
	}
	msg = fmt.Sprintf("%s: %s", msg, e.Reason)
	if len(e.Keys) > 0 {
		msg = fmt.Sprintf("%s [%s]", msg, strings.Join(e.Keys, ", "))
	}
	return msg
}

// Is matches ErrSecurity.
func (e *SecurityError) Is(target error) bool {
	return target == ErrSecurity
}

// Phase names a component hook.
type Phase string

// Component hook phases.
const (
	PhaseInitialize Phase = "initialize"
	PhaseDestroy    Phase = "destroy"
	PhaseMessage    Phase = "message"
	PhaseRender     Phase = "render"
)

// ComponentError reports a failing component hook.
type ComponentError struct {
	ComponentID string
	Phase       Phase
	Err         error
	Panicked    bool
}

// NewComponentError creates a new ComponentError.
func NewComponentError(componentID string, phase Phase, err error) *ComponentError {
	return &ComponentError{ComponentID: componentID, Phase: phase, Err: err}
}

func (e *ComponentError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("component %s: %s: %v", e.ComponentID, e.Phase, e.Err)
	}
	return fmt.Sprintf("component %s: %s failed", e.ComponentID, e.Phase)
}

func (e *ComponentError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches ErrComponent and anything the wrapped error matches.
func (e *ComponentError) Is(target error) bool {
	if e == nil {
		return false
	}
	if target == ErrComponent {
		return true
	}
	return errors.Is(e.Err, target)
}
