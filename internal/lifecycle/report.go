package lifecycle

import (
	"errors"
	"time"

	"go.uber.org/multierr"

	"github.com/dshills/switchboard/internal/orcherr"
)

// Result records the outcome of one hook invocation on one component.
type Result struct {
	ComponentID string
	Phase       orcherr.Phase
	Status      Status // Status after the invocation
	Err         error  // *orcherr.ComponentError or *orcherr.DependencyError
	Duration    time.Duration
	Skipped     bool // Hook was not run (no capability, or context done)
}

// Success returns true if the invocation did not fail.
func (r Result) Success() bool {
	return r.Err == nil
}

// Panicked returns true if the hook panicked.
func (r Result) Panicked() bool {
	var ce *orcherr.ComponentError
	return errors.As(r.Err, &ce) && ce.Panicked
}

// Report collects the results of a bulk lifecycle operation.
type Report struct {
	Results []Result
}

// Succeeded returns the ids of components whose hook succeeded, in order.
func (r Report) Succeeded() []string {
	var ids []string
	for _, res := range r.Results {
		if res.Success() {
			ids = append(ids, res.ComponentID)
		}
	}
	return ids
}

// Failed returns the ids of components that failed, in order.
func (r Report) Failed() []string {
	var ids []string
	for _, res := range r.Results {
		if !res.Success() {
			ids = append(ids, res.ComponentID)
		}
	}
	return ids
}

// Result returns the result for a component.
func (r Report) Result(id string) (Result, bool) {
	for _, res := range r.Results {
		if res.ComponentID == id {
			return res, true
		}
	}
	return Result{}, false
}

// HasErrors returns true if any component failed.
func (r Report) HasErrors() bool {
	for _, res := range r.Results {
		if !res.Success() {
			return true
		}
	}
	return false
}

// DependencyErr combines every dependency error in the report.
// Cycle members share one error, so it appears once.
func (r Report) DependencyErr() error {
	var err error
	seen := make(map[*orcherr.DependencyError]bool)
	for _, res := range r.Results {
		var de *orcherr.DependencyError
		if errors.As(res.Err, &de) && !seen[de] {
			seen[de] = true
			err = multierr.Append(err, de)
		}
	}
	return err
}

// Err combines every failure in the report.
func (r Report) Err() error {
	var err error
	seen := make(map[error]bool)
	for _, res := range r.Results {
		if res.Err != nil && !seen[res.Err] {
			seen[res.Err] = true
			err = multierr.Append(err, res.Err)
		}
	}
	return err
}
