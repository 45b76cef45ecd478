package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"

	"github.com/dshills/switchboard/internal/event/dispatch"
	"github.com/dshills/switchboard/internal/orcherr"
)

// Hook failures that never reached the component.
var (
	// ErrInactive indicates the component is in error or destroyed status.
	ErrInactive = errors.New("component is not active")

	// ErrNoCapability indicates the component does not implement the hook.
	ErrNoCapability = errors.New("capability missing")
)

// ComponentStatus is a point-in-time view of a registered component.
type ComponentStatus struct {
	ID            string
	Status        Status
	Dependencies  []string
	Dependents    []string
	HasErrors     bool
	RegisteredAt  time.Time
	InitializedAt time.Time
	LastError     error
}

type entry struct {
	id            string
	instance      any
	deps          []string
	status        Status
	hasErrors     bool
	lastError     error
	registeredAt  time.Time
	initializedAt time.Time
}

// Manager owns the component registry and drives lifecycle transitions.
type Manager struct {
	mu         sync.RWMutex
	components map[string]*entry
	order      []string // Registration order
	initOrder  []string // Initialization order of live components

	executor *dispatch.Executor
	logger   zerolog.Logger
	clock    clock.Clock
}

// Option configures a Manager.
type Option func(*managerConfig)

type managerConfig struct {
	logger zerolog.Logger
	clock  clock.Clock
}

// WithLogger sets the manager logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *managerConfig) {
		c.logger = l.With().Str("component", "lifecycle").Logger()
	}
}

// WithClock sets the clock used for timestamps and hook timing.
func WithClock(clk clock.Clock) Option {
	return func(c *managerConfig) {
		if clk != nil {
			c.clock = clk
		}
	}
}

// New creates a new lifecycle manager.
func New(opts ...Option) *Manager {
	cfg := managerConfig{logger: zerolog.Nop(), clock: clock.New()}
	for _, opt := range opts {
		opt(&cfg)
	}

	m := &Manager{
		components: make(map[string]*entry),
		logger:     cfg.logger,
		clock:      cfg.clock,
	}
	m.executor = dispatch.NewExecutor(
		dispatch.WithExecutorClock(cfg.clock),
		dispatch.WithExecutorPanicHandler(func(label string, v any, stack []byte) {
			m.logger.Error().
				Str("hook", label).
				Interface("panic", v).
				Bytes("stack", stack).
				Msg("component hook panicked")
		}),
	)
	return m
}

// Register adds a component. Every dependency must already be registered.
func (m *Manager) Register(id string, instance any, deps ...string) error {
	const op = "register_component"

	if strings.TrimSpace(id) == "" {
		return orcherr.NewValidationError(op, "id", id, "must not be empty")
	}
	if instance == nil {
		return orcherr.NewValidationError(op, "instance", id, "must not be nil")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.components[id]; exists {
		return orcherr.NewValidationError(op, "id", id, "already registered")
	}

	var unique []string
	seen := make(map[string]bool, len(deps))
	for _, dep := range deps {
		if seen[dep] {
			continue
		}
		seen[dep] = true
		if err := m.checkDependencyLocked(id, dep); err != nil {
			return err
		}
		unique = append(unique, dep)
	}

	m.components[id] = &entry{
		id:           id,
		instance:     instance,
		deps:         unique,
		status:       StatusRegistered,
		registeredAt: m.clock.Now(),
	}
	m.order = append(m.order, id)

	m.logger.Debug().Str("id", id).Strs("deps", unique).Msg("component registered")
	return nil
}

// AddDependency adds a dependency edge to a component that has not been
// initialized yet. Adding an existing edge is a no-op.
func (m *Manager) AddDependency(id, dep string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.components[id]
	if !ok {
		return orcherr.NewValidationError("add_dependency", "id", id, "not registered")
	}
	if e.status != StatusRegistered {
		return orcherr.NewDependencyError(id, dep, fmt.Sprintf("component is already %s", e.status))
	}
	for _, existing := range e.deps {
		if existing == dep {
			return nil
		}
	}
	if err := m.checkDependencyLocked(id, dep); err != nil {
		return err
	}

	e.deps = append(e.deps, dep)
	return nil
}

func (m *Manager) checkDependencyLocked(id, dep string) error {
	if dep == id {
		return orcherr.NewDependencyError(id, dep, "component cannot depend on itself")
	}
	d, ok := m.components[dep]
	if !ok {
		return orcherr.NewDependencyError(id, dep, "not registered")
	}
	if d.status == StatusDestroyed {
		return orcherr.NewDependencyError(id, dep, "destroyed")
	}
	return nil
}

// InitializeAll initializes every registered component in dependency order.
// Components in a dependency cycle, downstream of one, or depending on a
// failed component are marked error; all others still initialize.
func (m *Manager) InitializeAll(ctx context.Context) Report {
	m.mu.RLock()
	var pending []string
	deps := make(map[string][]string)
	rank := make(map[string]int, len(m.order))
	for i, id := range m.order {
		e := m.components[id]
		rank[id] = i
		if e.status != StatusRegistered {
			continue
		}
		pending = append(pending, id)
		deps[id] = append([]string(nil), e.deps...)
	}
	m.mu.RUnlock()

	p := orderComponents(pending, deps, rank)

	var report Report
	for _, scc := range p.cycles {
		err := orcherr.NewCycleError(scc[0], cyclePath(scc, p.edges))
		for _, id := range scc {
			report.Results = append(report.Results, m.fail(id, err))
		}
	}

	for _, id := range pending {
		blocker, ok := p.blocked[id]
		if !ok {
			continue
		}
		err := orcherr.NewDependencyError(id, blocker, "blocked by unresolved dependency")
		report.Results = append(report.Results, m.fail(id, err))
	}

	for _, id := range p.order {
		res, err := m.initialize(ctx, id)
		if err != nil {
			// Status changed underneath us, e.g. a concurrent InitializeAll.
			continue
		}
		report.Results = append(report.Results, res)
	}

	m.logger.Info().
		Int("initialized", len(report.Succeeded())).
		Int("failed", len(report.Failed())).
		Msg("components initialized")
	return report
}

// DestroyAll destroys live components in reverse initialization order, then
// marks every component that never initialized as destroyed.
func (m *Manager) DestroyAll(ctx context.Context) Report {
	m.mu.RLock()
	live := make([]string, 0, len(m.initOrder))
	for i := len(m.initOrder) - 1; i >= 0; i-- {
		live = append(live, m.initOrder[i])
	}
	m.mu.RUnlock()

	var report Report
	for _, id := range live {
		res, err := m.destroy(ctx, id)
		if err != nil {
			continue
		}
		report.Results = append(report.Results, res)
	}

	var pending []*entry
	m.mu.Lock()
	for _, id := range m.order {
		e := m.components[id]
		if e.status != StatusRegistered && e.status != StatusError {
			continue
		}
		e.status = StatusDestroyed
		pending = append(pending, e)
		report.Results = append(report.Results, Result{
			ComponentID: id,
			Phase:       orcherr.PhaseDestroy,
			Status:      StatusDestroyed,
			Skipped:     true,
		})
	}
	m.mu.Unlock()

	for _, e := range pending {
		m.release(ctx, e.id, e.instance)
	}

	m.logger.Info().Int("destroyed", len(report.Results)).Msg("components destroyed")
	return report
}

// Execute runs the initialize or destroy hook of a single component.
// Misuse (unknown id, unsupported phase, wrong status) is returned as an
// error; hook failures are reported in the Result.
func (m *Manager) Execute(ctx context.Context, id string, phase orcherr.Phase) (Result, error) {
	switch phase {
	case orcherr.PhaseInitialize:
		return m.initialize(ctx, id)
	case orcherr.PhaseDestroy:
		m.mu.RLock()
		e, ok := m.components[id]
		var dependent string
		if ok && e.status == StatusInitialized {
			dependent = m.liveDependentLocked(id, StatusInitialized)
		}
		m.mu.RUnlock()
		if dependent != "" {
			return Result{}, orcherr.NewDependencyError(id, "", "still required by "+dependent)
		}
		return m.destroy(ctx, id)
	default:
		return Result{}, orcherr.NewValidationError("execute_lifecycle", "phase", string(phase), "must be initialize or destroy")
	}
}

// initialize moves one component from registered to initialized or error.
func (m *Manager) initialize(ctx context.Context, id string) (Result, error) {
	m.mu.Lock()
	e, ok := m.components[id]
	if !ok {
		m.mu.Unlock()
		return Result{}, orcherr.NewValidationError("execute_lifecycle", "id", id, "not registered")
	}
	if e.status != StatusRegistered {
		status := e.status
		m.mu.Unlock()
		return Result{}, orcherr.NewValidationError("execute_lifecycle", "id", id, "component is "+status.String())
	}
	for _, dep := range e.deps {
		d := m.components[dep]
		if d != nil && d.status == StatusInitialized {
			continue
		}
		reason := "not initialized"
		switch {
		case d == nil:
			reason = "not registered"
		case d.status == StatusError:
			reason = "failed to initialize"
		case d.status == StatusDestroyed:
			reason = "destroyed"
		}
		err := orcherr.NewDependencyError(id, dep, reason)
		res := m.failLocked(e, err)
		m.mu.Unlock()
		return res, nil
	}
	e.status = StatusInitializing
	instance := e.instance
	m.mu.Unlock()

	var call dispatch.Call = func(context.Context) error { return nil }
	if in, ok := instance.(Initializer); ok {
		call = in.OnInitialize
	}
	elapsed, skipped, err := m.invoke(ctx, id, orcherr.PhaseInitialize, call)

	m.mu.Lock()
	defer m.mu.Unlock()

	res := Result{ComponentID: id, Phase: orcherr.PhaseInitialize, Duration: elapsed, Err: err, Skipped: skipped}
	switch {
	case skipped:
		e.status = StatusRegistered
	case err != nil:
		e.status = StatusError
		e.hasErrors = true
		e.lastError = err
	default:
		e.status = StatusInitialized
		e.initializedAt = m.clock.Now()
		m.initOrder = append(m.initOrder, id)
	}
	res.Status = e.status
	return res, nil
}

// destroy tears down one component. Live components run their destroy hook
// and end destroyed even if the hook fails.
func (m *Manager) destroy(ctx context.Context, id string) (Result, error) {
	m.mu.Lock()
	e, ok := m.components[id]
	if !ok {
		m.mu.Unlock()
		return Result{}, orcherr.NewValidationError("execute_lifecycle", "id", id, "not registered")
	}
	switch e.status {
	case StatusDestroyed, StatusInitializing:
		status := e.status
		m.mu.Unlock()
		return Result{}, orcherr.NewValidationError("execute_lifecycle", "id", id, "component is "+status.String())
	case StatusRegistered, StatusError:
		e.status = StatusDestroyed
		instance := e.instance
		m.mu.Unlock()
		m.release(ctx, id, instance)
		return Result{ComponentID: id, Phase: orcherr.PhaseDestroy, Status: StatusDestroyed, Skipped: true}, nil
	}
	instance := e.instance
	m.mu.Unlock()

	var call dispatch.Call = func(context.Context) error { return nil }
	if d, ok := instance.(Destroyer); ok {
		call = d.OnDestroy
	}
	elapsed, skipped, err := m.invoke(ctx, id, orcherr.PhaseDestroy, call)

	m.mu.Lock()
	defer m.mu.Unlock()

	res := Result{ComponentID: id, Phase: orcherr.PhaseDestroy, Duration: elapsed, Err: err, Skipped: skipped}
	if !skipped {
		if err != nil {
			e.hasErrors = true
			e.lastError = err
		}
		e.status = StatusDestroyed
		m.initOrder = removeString(m.initOrder, id)
	}
	res.Status = e.status
	return res, nil
}

// Unregister removes a component from the graph, destroying it first if it
// is live. It fails while any non-destroyed component depends on it.
func (m *Manager) Unregister(ctx context.Context, id string) (Result, error) {
	m.mu.RLock()
	e, ok := m.components[id]
	var (
		status    Status
		dependent string
	)
	if ok {
		status = e.status
		dependent = m.liveDependentLocked(id, StatusRegistered, StatusInitializing, StatusInitialized, StatusError)
	}
	m.mu.RUnlock()

	if !ok {
		return Result{}, orcherr.NewValidationError("unregister_component", "id", id, "not registered")
	}
	if dependent != "" {
		return Result{}, orcherr.NewDependencyError(id, "", "still required by "+dependent)
	}
	if status == StatusInitializing {
		return Result{}, orcherr.NewValidationError("unregister_component", "id", id, "component is initializing")
	}

	res := Result{ComponentID: id, Phase: orcherr.PhaseDestroy, Status: StatusDestroyed, Skipped: true}
	if status != StatusDestroyed {
		var err error
		res, err = m.destroy(ctx, id)
		if err != nil {
			return Result{}, err
		}
		if res.Skipped && res.Err != nil {
			// Context ended before the destroy hook ran; keep the component.
			return res, nil
		}
	}

	m.mu.Lock()
	delete(m.components, id)
	m.order = removeString(m.order, id)
	m.initOrder = removeString(m.initOrder, id)
	for _, other := range m.components {
		other.deps = removeString(other.deps, id)
	}
	m.mu.Unlock()

	m.logger.Debug().Str("id", id).Msg("component unregistered")
	return res, nil
}

// Deliver invokes a component's message hook. Components in error or
// destroyed status are refused. A failing hook marks the component as having
// errors but does not change its status.
func (m *Manager) Deliver(ctx context.Context, id, message string, data any) Result {
	return m.call(ctx, id, orcherr.PhaseMessage, func(instance any) (dispatch.Call, bool) {
		h, ok := instance.(MessageHandler)
		if !ok {
			return nil, false
		}
		return func(ctx context.Context) error { return h.OnMessage(ctx, message, data) }, true
	})
}

// Render invokes a component's render hook.
func (m *Manager) Render(ctx context.Context, id string) Result {
	return m.call(ctx, id, orcherr.PhaseRender, func(instance any) (dispatch.Call, bool) {
		r, ok := instance.(Renderer)
		if !ok {
			return nil, false
		}
		return r.Render, true
	})
}

func (m *Manager) call(ctx context.Context, id string, phase orcherr.Phase, bind func(any) (dispatch.Call, bool)) Result {
	res := Result{ComponentID: id, Phase: phase}

	m.mu.RLock()
	e, ok := m.components[id]
	var instance any
	if ok {
		res.Status = e.status
		instance = e.instance
	}
	m.mu.RUnlock()

	if !ok {
		res.Err = orcherr.NewValidationError(string(phase), "id", id, "not registered")
		res.Skipped = true
		return res
	}
	if !res.Status.IsActive() {
		res.Err = orcherr.NewComponentError(id, phase, ErrInactive)
		res.Skipped = true
		return res
	}
	call, ok := bind(instance)
	if !ok {
		res.Err = orcherr.NewComponentError(id, phase, ErrNoCapability)
		res.Skipped = true
		return res
	}

	res.Duration, res.Skipped, res.Err = m.invoke(ctx, id, phase, call)
	if res.Err != nil && !res.Skipped {
		m.mu.Lock()
		e.hasErrors = true
		e.lastError = res.Err
		m.mu.Unlock()
	}
	return res
}

// invoke runs a hook through the executor, converting failures into
// component errors.
func (m *Manager) invoke(ctx context.Context, id string, phase orcherr.Phase, call dispatch.Call) (time.Duration, bool, error) {
	r := m.executor.Execute(ctx, id+":"+string(phase), call)
	if r.Skipped {
		return r.Duration, true, r.Error
	}
	if r.IsSuccess() {
		return r.Duration, false, nil
	}

	ce := orcherr.NewComponentError(id, phase, r.Err())
	ce.Panicked = r.Panicked
	m.logger.Warn().Err(ce).Str("id", id).Str("phase", string(phase)).Msg("component hook failed")
	return r.Duration, false, ce
}

// release closes a component that is destroyed without running its destroy
// hook. Failures are logged only; the component is destroyed either way.
func (m *Manager) release(ctx context.Context, id string, instance any) {
	c, ok := instance.(Closer)
	if !ok {
		return
	}
	r := m.executor.Execute(context.WithoutCancel(ctx), id+":close", func(context.Context) error {
		return c.Close()
	})
	if !r.IsSuccess() {
		m.logger.Warn().Err(r.Err()).Str("id", id).Msg("component close failed")
	}
}

// fail marks a pending component as failed without running its hook.
func (m *Manager) fail(id string, err error) Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.components[id]
	if !ok {
		return Result{ComponentID: id, Phase: orcherr.PhaseInitialize, Err: err, Skipped: true}
	}
	return m.failLocked(e, err)
}

func (m *Manager) failLocked(e *entry, err error) Result {
	e.status = StatusError
	e.hasErrors = true
	e.lastError = err
	m.logger.Warn().Err(err).Str("id", e.id).Msg("component excluded from initialization")
	return Result{ComponentID: e.id, Phase: orcherr.PhaseInitialize, Status: StatusError, Err: err, Skipped: true}
}

// liveDependentLocked returns the first component, in registration order,
// that depends on id and has one of the given statuses.
func (m *Manager) liveDependentLocked(id string, statuses ...Status) string {
	for _, other := range m.order {
		e := m.components[other]
		match := false
		for _, s := range statuses {
			if e.status == s {
				match = true
				break
			}
		}
		if !match {
			continue
		}
		for _, dep := range e.deps {
			if dep == id {
				return other
			}
		}
	}
	return ""
}

// Status returns a snapshot of a component's status.
func (m *Manager) Status(id string) (ComponentStatus, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.components[id]
	if !ok {
		return ComponentStatus{}, false
	}
	return m.statusLocked(e), true
}

// Statuses returns snapshots of all components in registration order.
func (m *Manager) Statuses() []ComponentStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]ComponentStatus, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.statusLocked(m.components[id]))
	}
	return out
}

func (m *Manager) statusLocked(e *entry) ComponentStatus {
	var dependents []string
	for _, other := range m.order {
		for _, dep := range m.components[other].deps {
			if dep == e.id {
				dependents = append(dependents, other)
				break
			}
		}
	}
	return ComponentStatus{
		ID:            e.id,
		Status:        e.status,
		Dependencies:  append([]string(nil), e.deps...),
		Dependents:    dependents,
		HasErrors:     e.hasErrors,
		RegisteredAt:  e.registeredAt,
		InitializedAt: e.initializedAt,
		LastError:     e.lastError,
	}
}

// Lookup returns a component's status without building a full snapshot.
func (m *Manager) Lookup(id string) (Status, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.components[id]
	if !ok {
		return 0, false
	}
	return e.status, true
}

// Instance returns the registered component value.
func (m *Manager) Instance(id string) (any, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.components[id]
	if !ok {
		return nil, false
	}
	return e.instance, true
}

// IDs returns component ids in registration order.
func (m *Manager) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.order...)
}

// InitOrder returns the ids of live components in initialization order.
func (m *Manager) InitOrder() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.initOrder...)
}

// Count returns the number of registered components.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.components)
}

// CountByStatus returns the number of components with the given status.
func (m *Manager) CountByStatus(s Status) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, e := range m.components {
		if e.status == s {
			n++
		}
	}
	return n
}

// FailedCount returns the number of components in error status.
func (m *Manager) FailedCount() int {
	return m.CountByStatus(StatusError)
}

func removeString(list []string, s string) []string {
	for i, v := range list {
		if v == s {
			return append(list[:i:i], list[i+1:]...)
		}
	}
	return list
}
