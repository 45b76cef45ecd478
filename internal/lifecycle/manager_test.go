package lifecycle

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/switchboard/internal/orcherr"
)

// recorder collects hook invocations across components.
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, s)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

type testComponent struct {
	id         string
	rec        *recorder
	initErr    error
	initPanic  bool
	destroyErr error
	messages   []string
	msgErr     error
	renders    int
}

func (c *testComponent) OnInitialize(ctx context.Context) error {
	c.rec.add("init:" + c.id)
	if c.initPanic {
		panic("init exploded")
	}
	return c.initErr
}

func (c *testComponent) OnDestroy(ctx context.Context) error {
	c.rec.add("destroy:" + c.id)
	return c.destroyErr
}

func (c *testComponent) OnMessage(ctx context.Context, message string, data any) error {
	c.messages = append(c.messages, message)
	return c.msgErr
}

func (c *testComponent) Render(ctx context.Context) error {
	c.renders++
	return nil
}

// closingComponent holds a resource released by Close.
type closingComponent struct {
	*testComponent
	closePanic bool
}

func (c *closingComponent) Close() error {
	c.rec.add("close:" + c.id)
	if c.closePanic {
		panic("close exploded")
	}
	return nil
}

func newComponent(id string, rec *recorder) *testComponent {
	return &testComponent{id: id, rec: rec}
}

func TestManager_Register_Validation(t *testing.T) {
	m := New()
	rec := &recorder{}

	err := m.Register("", newComponent("x", rec))
	assert.ErrorIs(t, err, orcherr.ErrValidation)

	err = m.Register("nil", nil)
	assert.ErrorIs(t, err, orcherr.ErrValidation)

	require.NoError(t, m.Register("a", newComponent("a", rec)))
	err = m.Register("a", newComponent("a", rec))
	assert.ErrorIs(t, err, orcherr.ErrValidation)

	err = m.Register("b", newComponent("b", rec), "missing")
	assert.ErrorIs(t, err, orcherr.ErrDependency)

	err = m.Register("c", newComponent("c", rec), "c")
	assert.ErrorIs(t, err, orcherr.ErrDependency)

	assert.Equal(t, 1, m.Count())
}

func TestManager_Register_DeduplicatesDependencies(t *testing.T) {
	m := New()
	rec := &recorder{}
	require.NoError(t, m.Register("a", newComponent("a", rec)))
	require.NoError(t, m.Register("b", newComponent("b", rec), "a", "a"))

	st, ok := m.Status("b")
	require.True(t, ok)
	assert.Equal(t, []string{"a"}, st.Dependencies)
}

func TestManager_InitializeAll_DependencyOrder(t *testing.T) {
	m := New()
	rec := &recorder{}

	require.NoError(t, m.Register("C", newComponent("C", rec)))
	require.NoError(t, m.Register("B", newComponent("B", rec), "C"))
	require.NoError(t, m.Register("A", newComponent("A", rec), "B"))

	report := m.InitializeAll(context.Background())

	assert.False(t, report.HasErrors())
	assert.Equal(t, []string{"init:C", "init:B", "init:A"}, rec.list())
	assert.Equal(t, []string{"C", "B", "A"}, m.InitOrder())
	for _, id := range []string{"A", "B", "C"} {
		s, _ := m.Lookup(id)
		assert.Equal(t, StatusInitialized, s, id)
	}
}

func TestManager_InitializeAll_AddedDependencyReorders(t *testing.T) {
	m := New()
	rec := &recorder{}

	require.NoError(t, m.Register("A", newComponent("A", rec)))
	require.NoError(t, m.Register("B", newComponent("B", rec)))
	require.NoError(t, m.Register("C", newComponent("C", rec)))
	require.NoError(t, m.AddDependency("A", "B"))
	require.NoError(t, m.AddDependency("B", "C"))

	m.InitializeAll(context.Background())
	assert.Equal(t, []string{"init:C", "init:B", "init:A"}, rec.list())
}

func TestManager_InitializeAll_SharedDependents(t *testing.T) {
	m := New()
	rec := &recorder{}

	require.NoError(t, m.Register("T", newComponent("T", rec)))
	require.NoError(t, m.Register("F", newComponent("F", rec)))
	require.NoError(t, m.Register("P", newComponent("P", rec), "T", "F"))

	m.InitializeAll(context.Background())

	calls := rec.list()
	require.Len(t, calls, 3)
	assert.Equal(t, "init:P", calls[2])

	st, ok := m.Status("P")
	require.True(t, ok)
	assert.Equal(t, []string{"T", "F"}, st.Dependencies)

	tst, _ := m.Status("T")
	assert.Equal(t, []string{"P"}, tst.Dependents)
}

func TestManager_InitializeAll_Cycle(t *testing.T) {
	m := New()
	rec := &recorder{}

	require.NoError(t, m.Register("A", newComponent("A", rec)))
	require.NoError(t, m.Register("B", newComponent("B", rec), "A"))
	require.NoError(t, m.Register("C", newComponent("C", rec)))
	require.NoError(t, m.Register("D", newComponent("D", rec), "B"))
	require.NoError(t, m.AddDependency("A", "B"))

	report := m.InitializeAll(context.Background())

	assert.Equal(t, []string{"init:C"}, rec.list())
	s, _ := m.Lookup("C")
	assert.Equal(t, StatusInitialized, s)

	for _, id := range []string{"A", "B"} {
		res, ok := report.Result(id)
		require.True(t, ok, id)
		var de *orcherr.DependencyError
		require.ErrorAs(t, res.Err, &de)
		assert.Equal(t, []string{"A", "B", "A"}, de.Cycle)
		s, _ := m.Lookup(id)
		assert.Equal(t, StatusError, s)
	}

	res, ok := report.Result("D")
	require.True(t, ok)
	var de *orcherr.DependencyError
	require.ErrorAs(t, res.Err, &de)
	assert.Equal(t, "B", de.Dependency)

	err := report.DependencyErr()
	require.Error(t, err)
	assert.ErrorIs(t, err, orcherr.ErrDependency)
	assert.Contains(t, err.Error(), "A -> B -> A")
	assert.Equal(t, 3, m.FailedCount())
}

func TestManager_InitializeAll_FailureMarksDependents(t *testing.T) {
	m := New()
	rec := &recorder{}

	base := newComponent("base", rec)
	base.initErr = errors.New("no database")
	require.NoError(t, m.Register("base", base))
	require.NoError(t, m.Register("child", newComponent("child", rec), "base"))
	require.NoError(t, m.Register("sibling", newComponent("sibling", rec)))

	report := m.InitializeAll(context.Background())

	assert.Equal(t, []string{"init:base", "init:sibling"}, rec.list())

	baseRes, _ := report.Result("base")
	var ce *orcherr.ComponentError
	require.ErrorAs(t, baseRes.Err, &ce)
	assert.Equal(t, orcherr.PhaseInitialize, ce.Phase)
	assert.ErrorIs(t, baseRes.Err, base.initErr)

	childRes, _ := report.Result("child")
	assert.ErrorIs(t, childRes.Err, orcherr.ErrDependency)

	st, _ := m.Status("child")
	assert.Equal(t, StatusError, st.Status)
	assert.True(t, st.HasErrors)

	sib, _ := m.Lookup("sibling")
	assert.Equal(t, StatusInitialized, sib)
	assert.ElementsMatch(t, []string{"base", "child"}, report.Failed())
}

func TestManager_InitializeAll_PanicIsolated(t *testing.T) {
	m := New()
	rec := &recorder{}

	bad := newComponent("bad", rec)
	bad.initPanic = true
	require.NoError(t, m.Register("bad", bad))
	require.NoError(t, m.Register("good", newComponent("good", rec)))

	report := m.InitializeAll(context.Background())

	res, ok := report.Result("bad")
	require.True(t, ok)
	assert.True(t, res.Panicked())
	assert.ErrorIs(t, res.Err, orcherr.ErrComponent)

	s, _ := m.Lookup("good")
	assert.Equal(t, StatusInitialized, s)
	assert.Equal(t, 1, m.FailedCount())
}

func TestManager_InitializeAll_SkipsAlreadyInitialized(t *testing.T) {
	m := New()
	rec := &recorder{}
	require.NoError(t, m.Register("a", newComponent("a", rec)))
	m.InitializeAll(context.Background())

	require.NoError(t, m.Register("b", newComponent("b", rec), "a"))
	report := m.InitializeAll(context.Background())

	assert.Equal(t, []string{"b"}, report.Succeeded())
	assert.Equal(t, []string{"init:a", "init:b"}, rec.list())
}

func TestManager_InitializeAll_CancelledContext(t *testing.T) {
	m := New()
	rec := &recorder{}
	require.NoError(t, m.Register("a", newComponent("a", rec)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report := m.InitializeAll(ctx)

	res, ok := report.Result("a")
	require.True(t, ok)
	assert.True(t, res.Skipped)
	assert.Empty(t, rec.list())

	s, _ := m.Lookup("a")
	assert.Equal(t, StatusRegistered, s)
}

func TestManager_DestroyAll_ReverseOrder(t *testing.T) {
	m := New()
	rec := &recorder{}

	require.NoError(t, m.Register("C", newComponent("C", rec)))
	require.NoError(t, m.Register("B", newComponent("B", rec), "C"))
	require.NoError(t, m.Register("A", newComponent("A", rec), "B"))
	m.InitializeAll(context.Background())

	report := m.DestroyAll(context.Background())
	assert.False(t, report.HasErrors())

	assert.Equal(t, []string{
		"init:C", "init:B", "init:A",
		"destroy:A", "destroy:B", "destroy:C",
	}, rec.list())
	assert.Empty(t, m.InitOrder())
	assert.Equal(t, 3, m.CountByStatus(StatusDestroyed))
}

func TestManager_DestroyAll_NeverInitialized(t *testing.T) {
	m := New()
	rec := &recorder{}

	bad := newComponent("bad", rec)
	bad.initErr = errors.New("nope")
	require.NoError(t, m.Register("bad", bad))
	require.NoError(t, m.Register("ok", newComponent("ok", rec)))
	m.InitializeAll(context.Background())
	require.NoError(t, m.Register("late", newComponent("late", rec)))

	report := m.DestroyAll(context.Background())

	assert.Equal(t, []string{"init:bad", "init:ok", "destroy:ok"}, rec.list())
	assert.Len(t, report.Results, 3)
	for _, id := range []string{"bad", "ok", "late"} {
		s, _ := m.Lookup(id)
		assert.Equal(t, StatusDestroyed, s, id)
	}
}

func TestManager_DestroyAll_ClosesNeverInitialized(t *testing.T) {
	m := New()
	rec := &recorder{}
	ctx := context.Background()

	bad := &closingComponent{testComponent: newComponent("bad", rec)}
	bad.initErr = errors.New("nope")
	require.NoError(t, m.Register("bad", bad))
	require.NoError(t, m.Register("ok", &closingComponent{testComponent: newComponent("ok", rec)}))
	m.InitializeAll(ctx)
	require.NoError(t, m.Register("late", &closingComponent{testComponent: newComponent("late", rec), closePanic: true}))

	report := m.DestroyAll(ctx)

	assert.Equal(t, []string{"init:bad", "init:ok", "destroy:ok", "close:bad", "close:late"}, rec.list())
	assert.Len(t, report.Results, 3)
	s, _ := m.Lookup("late")
	assert.Equal(t, StatusDestroyed, s)
}

func TestManager_Execute_DestroyClosesRegistered(t *testing.T) {
	m := New()
	rec := &recorder{}

	require.NoError(t, m.Register("c", &closingComponent{testComponent: newComponent("c", rec)}))
	res, err := m.Execute(context.Background(), "c", orcherr.PhaseDestroy)
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Equal(t, []string{"close:c"}, rec.list())
}

func TestManager_DestroyAll_HookErrorStillDestroys(t *testing.T) {
	m := New()
	rec := &recorder{}

	c := newComponent("c", rec)
	c.destroyErr = errors.New("leak")
	require.NoError(t, m.Register("c", c))
	m.InitializeAll(context.Background())

	report := m.DestroyAll(context.Background())
	require.True(t, report.HasErrors())

	st, _ := m.Status("c")
	assert.Equal(t, StatusDestroyed, st.Status)
	assert.True(t, st.HasErrors)
	assert.ErrorIs(t, st.LastError, c.destroyErr)
}

func TestManager_Unregister(t *testing.T) {
	m := New()
	rec := &recorder{}

	require.NoError(t, m.Register("base", newComponent("base", rec)))
	require.NoError(t, m.Register("child", newComponent("child", rec), "base"))
	m.InitializeAll(context.Background())

	_, err := m.Unregister(context.Background(), "base")
	require.Error(t, err)
	assert.ErrorIs(t, err, orcherr.ErrDependency)
	assert.Contains(t, err.Error(), "child")

	res, err := m.Unregister(context.Background(), "child")
	require.NoError(t, err)
	assert.True(t, res.Success())
	assert.Equal(t, StatusDestroyed, res.Status)

	_, err = m.Unregister(context.Background(), "base")
	require.NoError(t, err)

	assert.Equal(t, 0, m.Count())
	assert.Equal(t, []string{"init:base", "init:child", "destroy:child", "destroy:base"}, rec.list())

	_, err = m.Unregister(context.Background(), "base")
	assert.ErrorIs(t, err, orcherr.ErrValidation)
}

func TestManager_Unregister_DestroyedDependentAllowed(t *testing.T) {
	m := New()
	rec := &recorder{}

	require.NoError(t, m.Register("base", newComponent("base", rec)))
	require.NoError(t, m.Register("child", newComponent("child", rec), "base"))
	m.InitializeAll(context.Background())

	_, err := m.Execute(context.Background(), "child", orcherr.PhaseDestroy)
	require.NoError(t, err)

	_, err = m.Unregister(context.Background(), "base")
	require.NoError(t, err)

	st, ok := m.Status("child")
	require.True(t, ok)
	assert.Empty(t, st.Dependencies)
}

func TestManager_Execute(t *testing.T) {
	m := New()
	rec := &recorder{}

	require.NoError(t, m.Register("base", newComponent("base", rec)))
	require.NoError(t, m.Register("child", newComponent("child", rec), "base"))

	res, err := m.Execute(context.Background(), "child", orcherr.PhaseInitialize)
	require.NoError(t, err)
	assert.ErrorIs(t, res.Err, orcherr.ErrDependency)

	res, err = m.Execute(context.Background(), "base", orcherr.PhaseInitialize)
	require.NoError(t, err)
	assert.True(t, res.Success())
	assert.Equal(t, StatusInitialized, res.Status)

	_, err = m.Execute(context.Background(), "base", orcherr.PhaseInitialize)
	assert.ErrorIs(t, err, orcherr.ErrValidation)

	_, err = m.Execute(context.Background(), "base", orcherr.PhaseRender)
	assert.ErrorIs(t, err, orcherr.ErrValidation)

	_, err = m.Execute(context.Background(), "ghost", orcherr.PhaseDestroy)
	assert.ErrorIs(t, err, orcherr.ErrValidation)
}

func TestManager_AddDependency(t *testing.T) {
	m := New()
	rec := &recorder{}

	require.NoError(t, m.Register("a", newComponent("a", rec)))
	require.NoError(t, m.Register("b", newComponent("b", rec)))

	assert.ErrorIs(t, m.AddDependency("ghost", "a"), orcherr.ErrValidation)
	assert.ErrorIs(t, m.AddDependency("a", "ghost"), orcherr.ErrDependency)
	assert.ErrorIs(t, m.AddDependency("a", "a"), orcherr.ErrDependency)
	require.NoError(t, m.AddDependency("a", "b"))
	require.NoError(t, m.AddDependency("a", "b"))

	st, _ := m.Status("a")
	assert.Equal(t, []string{"b"}, st.Dependencies)

	m.InitializeAll(context.Background())
	assert.ErrorIs(t, m.AddDependency("a", "b"), orcherr.ErrDependency)
}

func TestManager_Deliver(t *testing.T) {
	m := New()
	rec := &recorder{}

	c := newComponent("c", rec)
	require.NoError(t, m.Register("c", c))
	require.NoError(t, m.Register("plain", struct{}{}))
	m.InitializeAll(context.Background())

	res := m.Deliver(context.Background(), "c", "refresh", nil)
	assert.True(t, res.Success())
	assert.Equal(t, []string{"refresh"}, c.messages)

	res = m.Deliver(context.Background(), "plain", "refresh", nil)
	assert.ErrorIs(t, res.Err, ErrNoCapability)

	res = m.Deliver(context.Background(), "ghost", "refresh", nil)
	assert.ErrorIs(t, res.Err, orcherr.ErrValidation)

	c.msgErr = errors.New("bad message")
	res = m.Deliver(context.Background(), "c", "refresh", nil)
	assert.ErrorIs(t, res.Err, orcherr.ErrComponent)

	st, _ := m.Status("c")
	assert.True(t, st.HasErrors)
	assert.Equal(t, StatusInitialized, st.Status)
}

func TestManager_Deliver_RefusesInactive(t *testing.T) {
	m := New()
	rec := &recorder{}

	c := newComponent("c", rec)
	c.initErr = errors.New("fail")
	require.NoError(t, m.Register("c", c))
	m.InitializeAll(context.Background())

	res := m.Deliver(context.Background(), "c", "refresh", nil)
	assert.True(t, res.Skipped)
	assert.ErrorIs(t, res.Err, ErrInactive)
	assert.Empty(t, c.messages)

	res = m.Render(context.Background(), "c")
	assert.ErrorIs(t, res.Err, ErrInactive)
	assert.Equal(t, 0, c.renders)
}

func TestManager_Render(t *testing.T) {
	m := New()
	rec := &recorder{}

	c := newComponent("c", rec)
	require.NoError(t, m.Register("c", c))

	res := m.Render(context.Background(), "c")
	assert.True(t, res.Success())
	assert.Equal(t, 1, c.renders)
}

func TestManager_NoHooks(t *testing.T) {
	m := New()
	require.NoError(t, m.Register("plain", struct{}{}))

	report := m.InitializeAll(context.Background())
	assert.Equal(t, []string{"plain"}, report.Succeeded())

	report = m.DestroyAll(context.Background())
	assert.False(t, report.HasErrors())
}

func TestStatus_String(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{StatusRegistered, "registered"},
		{StatusInitializing, "initializing"},
		{StatusInitialized, "initialized"},
		{StatusError, "error"},
		{StatusDestroyed, "destroyed"},
		{Status(99), "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.status.String())
	}
	assert.True(t, StatusInitialized.IsActive())
	assert.False(t, StatusError.IsActive())
}
