package script

import (
	"context"
	"fmt"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"
)

// DefaultCallTimeout bounds a single hook or handler call.
const DefaultCallTimeout = 5 * time.Second

// State wraps a sandboxed gopher-lua state.
//
// gopher-lua's LState is not goroutine-safe, so calls are serialized. A call
// made from inside another call on the same state (a handler triggered by
// sb.emit, for example) runs without re-locking; the call context carries
// the lock.
type State struct {
	L *lua.LState

	mu      sync.Mutex
	timeout time.Duration
	current context.Context // Context of the running call
	closed  bool
}

type heldKey struct{ s *State }

// StateOption configures a State.
type StateOption func(*State)

// WithCallTimeout sets the per-call timeout. Zero disables it.
func WithCallTimeout(d time.Duration) StateOption {
	return func(s *State) {
		if d >= 0 {
			s.timeout = d
		}
	}
}

// NewState creates a new sandboxed Lua state.
func NewState(opts ...StateOption) *State {
	s := &State{timeout: DefaultCallTimeout, current: context.Background()}
	for _, opt := range opts {
		opt(s)
	}

	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	openSafeLibraries(L)
	s.L = L
	return s
}

// openSafeLibraries opens only safe Lua standard libraries and removes
// the loaders that could reach the file system.
func openSafeLibraries(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require", "module"} {
		L.SetGlobal(name, lua.LNil)
	}
}

// DoString executes a chunk of Lua.
func (s *State) DoString(ctx context.Context, code string) error {
	return s.run(ctx, func(L *lua.LState) error {
		return L.DoString(code)
	})
}

// Call calls fn with args and returns its results.
func (s *State) Call(ctx context.Context, fn lua.LValue, args ...lua.LValue) ([]lua.LValue, error) {
	return s.callWith(ctx, fn, func(*lua.LState) []lua.LValue { return args })
}

// callWith builds the arguments while the state is held.
func (s *State) callWith(ctx context.Context, fn lua.LValue, build func(L *lua.LState) []lua.LValue) ([]lua.LValue, error) {
	if fn.Type() != lua.LTFunction {
		return nil, fmt.Errorf("not a function (got %s)", fn.Type())
	}

	var results []lua.LValue
	err := s.run(ctx, func(L *lua.LState) error {
		args := build(L)
		top := L.GetTop()
		L.Push(fn)
		for _, arg := range args {
			L.Push(arg)
		}
		if err := L.PCall(len(args), lua.MultRet, nil); err != nil {
			return err
		}
		n := L.GetTop() - top
		results = make([]lua.LValue, n)
		for i := 0; i < n; i++ {
			results[i] = L.Get(top + i + 1)
		}
		L.Pop(n)
		return nil
	})
	return results, err
}

// CallGlobal calls the global function name. A missing global is not an
// error; ok reports whether it existed.
func (s *State) CallGlobal(ctx context.Context, name string, args ...lua.LValue) (results []lua.LValue, ok bool, err error) {
	fn := s.Global(ctx, name)
	if fn == lua.LNil {
		return nil, false, nil
	}
	results, err = s.Call(ctx, fn, args...)
	return results, true, err
}

// Global returns a global variable.
func (s *State) Global(ctx context.Context, name string) lua.LValue {
	v := lua.LValue(lua.LNil)
	_ = s.run(ctx, func(L *lua.LState) error {
		v = L.GetGlobal(name)
		return nil
	})
	return v
}

// Context returns the context of the call in progress. Go functions
// exposed to Lua use it for calls back into the orchestrator.
func (s *State) Context() context.Context {
	return s.current
}

func (s *State) run(ctx context.Context, fn func(L *lua.LState) error) (err error) {
	if ctx.Value(heldKey{s}) == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed {
			return ErrStateClosed
		}
		ctx = context.WithValue(ctx, heldKey{s}, true)

		if s.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.timeout)
			defer cancel()
		}
		s.L.SetContext(ctx)
		defer s.L.RemoveContext()
	}

	prev := s.current
	s.current = ctx
	defer func() { s.current = prev }()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()
	return fn(s.L)
}

// Close releases the Lua state. Later calls return ErrStateClosed.
func (s *State) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.L.Close()
	s.closed = true
	return nil
}
