package orcherr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindsMatch(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind error
	}{
		{"validation", NewValidationError("subscribe", "pattern", "a:*:b", "wildcard must be last"), ErrValidation},
		{"dependency", NewDependencyError("b", "a", "not registered"), ErrDependency},
		{"cycle", NewCycleError("a", []string{"a", "b", "a"}), ErrDependency},
		{"security", NewSecurityError("user:created", "crm", "not allowed"), ErrSecurity},
		{"component", NewComponentError("grid", PhaseInitialize, errors.New("x")), ErrComponent},
	}

	kinds := []error{ErrValidation, ErrDependency, ErrSecurity, ErrComponent}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("outer: %w", tt.err)
			for _, k := range kinds {
				assert.Equal(t, k == tt.kind, errors.Is(wrapped, k), "errors.Is(%v)", k)
			}
		})
	}
}

func TestComponentError_Unwrap(t *testing.T) {
	cause := errors.New("db unavailable")
	err := NewComponentError("grid", PhaseInitialize, cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "component grid: initialize: db unavailable", err.Error())

	var ce *ComponentError
	require.ErrorAs(t, fmt.Errorf("wrap: %w", err), &ce)
	assert.Equal(t, "grid", ce.ComponentID)
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t,
		`set_state: invalid path "a..b": empty segment`,
		NewValidationError("set_state", "path", "a..b", "empty segment").Error())
	assert.Equal(t,
		"component a: circular dependency: a -> b -> a",
		NewCycleError("a", []string{"a", "b", "a"}).Error())
	assert.Equal(t,
		"component b: dependency a: not registered",
		NewDependencyError("b", "a", "not registered").Error())

	se := NewSecurityError("state:user", "", "stripped unsafe keys")
	se.Keys = []string{"__proto__"}
	assert.Equal(t, "state:user: stripped unsafe keys [__proto__]", se.Error())
}

func TestNilReceivers(t *testing.T) {
	var ve *ValidationError
	var de *DependencyError
	var se *SecurityError
	var ce *ComponentError

	assert.Empty(t, ve.Error())
	assert.Empty(t, de.Error())
	assert.Empty(t, se.Error())
	assert.Empty(t, ce.Error())
	assert.Nil(t, ce.Unwrap())
}
