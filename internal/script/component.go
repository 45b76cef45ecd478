package script

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/switchboard"
)

// Hook function names looked up in a script.
const (
	hookInitialize = "on_initialize"
	hookDestroy    = "on_destroy"
	hookMessage    = "on_message"
	hookRender     = "render"
)

// Component is an orchestrator component backed by a Lua script.
type Component struct {
	id    string
	deps  []string
	state *State

	mu       sync.Mutex
	host     *switchboard.ComponentHost
	logger   zerolog.Logger
	rendered string
}

// Option configures a Component.
type Option func(*options)

type options struct {
	stateOpts []StateOption
	logger    zerolog.Logger
}

// WithTimeout bounds each hook and handler call.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.stateOpts = append(o.stateOpts, WithCallTimeout(d))
	}
}

// WithLogger sets the logger used before the component is attached.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// New compiles and runs the top level of a script. The script's depends
// table is read once here.
func New(ctx context.Context, id, code string, opts ...Option) (*Component, error) {
	o := options{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}

	c := &Component{
		id:     id,
		state:  NewState(o.stateOpts...),
		logger: o.logger.With().Str("component_id", id).Logger(),
	}
	if err := c.state.DoString(ctx, code); err != nil {
		_ = c.state.Close()
		return nil, fmt.Errorf("script %s: %w", id, err)
	}

	deps, err := c.readDepends(ctx)
	if err != nil {
		_ = c.state.Close()
		return nil, fmt.Errorf("script %s: %w", id, err)
	}
	c.deps = deps
	return c, nil
}

func (c *Component) readDepends(ctx context.Context) ([]string, error) {
	v := c.state.Global(ctx, "depends")
	switch t := v.(type) {
	case *lua.LNilType:
		return nil, nil
	case *lua.LTable:
		var deps []string
		var bad error
		n := t.Len()
		for i := 1; i <= n; i++ {
			s, ok := t.RawGetInt(i).(lua.LString)
			if !ok || s == "" {
				bad = fmt.Errorf("depends[%d] must be a non-empty string", i)
				break
			}
			deps = append(deps, string(s))
		}
		return deps, bad
	default:
		return nil, fmt.Errorf("depends must be a table (got %s)", v.Type())
	}
}

// ID returns the component id.
func (c *Component) ID() string {
	return c.id
}

// Dependencies returns the ids listed in the script's depends table.
func (c *Component) Dependencies() []string {
	return append([]string(nil), c.deps...)
}

// Rendered returns the string returned by the last render call.
func (c *Component) Rendered() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rendered
}

// Attach installs the sb table. It is called by the orchestrator when the
// component is registered.
func (c *Component) Attach(host *switchboard.ComponentHost) {
	c.mu.Lock()
	c.host = host
	c.logger = host.Logger()
	c.mu.Unlock()

	_ = c.state.run(context.Background(), func(L *lua.LState) error {
		mod := L.NewTable()
		L.SetFuncs(mod, map[string]lua.LGFunction{
			"id":            c.luaID,
			"emit":          c.luaEmit,
			"on":            c.luaOn,
			"off":           c.luaOff,
			"process_queue": c.luaProcessQueue,
			"set_state":     c.luaSetState,
			"merge_state":   c.luaMergeState,
			"delete_state":  c.luaDeleteState,
			"get_state":     c.luaGetState,
			"on_state":      c.luaOnState,
			"off_state":     c.luaOffState,
			"log":           c.luaLog,
		})
		L.SetGlobal("sb", mod)
		return nil
	})
}

// OnInitialize runs on_initialize.
func (c *Component) OnInitialize(ctx context.Context) error {
	if c.attached() == nil {
		return ErrNotAttached
	}
	_, _, err := c.state.CallGlobal(ctx, hookInitialize)
	return err
}

// OnDestroy runs on_destroy and closes the Lua state.
func (c *Component) OnDestroy(ctx context.Context) error {
	_, _, err := c.state.CallGlobal(ctx, hookDestroy)
	if cerr := c.state.Close(); err == nil {
		err = cerr
	}
	return err
}

// Close releases the Lua state without running on_destroy. It is used for
// components destroyed before they initialized.
func (c *Component) Close() error {
	return c.state.Close()
}

// OnMessage runs on_message(message, data).
func (c *Component) OnMessage(ctx context.Context, message string, data any) error {
	fn := c.state.Global(ctx, hookMessage)
	if fn == lua.LNil {
		return nil
	}
	_, err := c.state.callWith(ctx, fn, func(L *lua.LState) []lua.LValue {
		return []lua.LValue{lua.LString(message), toLua(L, data)}
	})
	return err
}

// Render runs render and keeps its string result.
func (c *Component) Render(ctx context.Context) error {
	results, ok, err := c.state.CallGlobal(ctx, hookRender)
	if err != nil || !ok {
		return err
	}
	if len(results) > 0 {
		if s, isStr := results[0].(lua.LString); isStr {
			c.mu.Lock()
			c.rendered = string(s)
			c.mu.Unlock()
		}
	}
	return nil
}

func (c *Component) attached() *switchboard.ComponentHost {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.host
}

func (c *Component) mustHost(L *lua.LState) *switchboard.ComponentHost {
	h := c.attached()
	if h == nil {
		L.RaiseError("%s", ErrNotAttached.Error())
	}
	return h
}

// sb.id() -> string
func (c *Component) luaID(L *lua.LState) int {
	L.Push(lua.LString(c.id))
	return 1
}

// sb.emit(name, payload [, opts]) -> accepted, id_or_reason
//
// opts may set priority ("normal" or "high") and queued (bool).
func (c *Component) luaEmit(L *lua.LState) int {
	h := c.mustHost(L)
	name := L.CheckString(1)
	payload := toGo(L.Get(2))

	var opts []switchboard.EmitOption
	if t, ok := L.Get(3).(*lua.LTable); ok {
		if p := L.GetField(t, "priority"); p != lua.LNil {
			prio, err := switchboard.ParsePriority(p.String())
			if err != nil {
				L.ArgError(3, err.Error())
				return 0
			}
			opts = append(opts, switchboard.WithPriority(prio))
		}
		if lua.LVAsBool(L.GetField(t, "queued")) {
			opts = append(opts, switchboard.Queued())
		}
	}

	d, err := h.Emit(c.state.Context(), name, payload, opts...)
	if err != nil {
		L.RaiseError("emit: %s", err.Error())
		return 0
	}
	if !d.Accepted() {
		L.Push(lua.LFalse)
		L.Push(lua.LString(d.Rejected.Error()))
		return 2
	}
	L.Push(lua.LTrue)
	L.Push(lua.LString(d.EventID))
	return 2
}

// sb.on(pattern, fn [, opts]) -> subscription id
//
// opts may set once (bool).
func (c *Component) luaOn(L *lua.LState) int {
	h := c.mustHost(L)
	pattern := L.CheckString(1)
	fn := L.CheckFunction(2)

	var opts []switchboard.SubscriptionOption
	if t, ok := L.Get(3).(*lua.LTable); ok && lua.LVAsBool(L.GetField(t, "once")) {
		opts = append(opts, switchboard.WithOnce())
	}

	id, err := h.On(pattern, func(ctx context.Context, e switchboard.Event) error {
		_, err := c.state.callWith(ctx, fn, func(L *lua.LState) []lua.LValue {
			return []lua.LValue{eventTable(L, e)}
		})
		return err
	}, opts...)
	if err != nil {
		L.RaiseError("on: %s", err.Error())
		return 0
	}
	L.Push(lua.LString(id))
	return 1
}

// sb.off(id) -> bool
func (c *Component) luaOff(L *lua.LState) int {
	h := c.mustHost(L)
	L.Push(lua.LBool(h.Off(L.CheckString(1)) == nil))
	return 1
}

// sb.process_queue() -> number of events dispatched
func (c *Component) luaProcessQueue(L *lua.LState) int {
	h := c.mustHost(L)
	L.Push(lua.LNumber(h.ProcessQueue(c.state.Context())))
	return 1
}

// sb.set_state(path, value)
func (c *Component) luaSetState(L *lua.LState) int {
	h := c.mustHost(L)
	path := L.CheckString(1)
	if err := h.SetState(c.state.Context(), path, toGo(L.Get(2))); err != nil {
		L.RaiseError("set_state: %s", err.Error())
	}
	return 0
}

// sb.merge_state(path, table)
func (c *Component) luaMergeState(L *lua.LState) int {
	h := c.mustHost(L)
	path := L.CheckString(1)
	data, ok := toGo(L.CheckTable(2)).(map[string]any)
	if !ok {
		L.ArgError(2, "merge_state needs a table with string keys")
		return 0
	}
	if err := h.MergeState(c.state.Context(), path, data); err != nil {
		L.RaiseError("merge_state: %s", err.Error())
	}
	return 0
}

// sb.delete_state(path)
func (c *Component) luaDeleteState(L *lua.LState) int {
	h := c.mustHost(L)
	if err := h.DeleteState(c.state.Context(), L.CheckString(1)); err != nil {
		L.RaiseError("delete_state: %s", err.Error())
	}
	return 0
}

// sb.get_state([path]) -> value or nil
func (c *Component) luaGetState(L *lua.LState) int {
	h := c.mustHost(L)
	L.Push(toLua(L, h.GetState(L.OptString(1, "")).Interface()))
	return 1
}

// sb.on_state(path, fn) -> subscription id
func (c *Component) luaOnState(L *lua.LState) int {
	h := c.mustHost(L)
	path := L.CheckString(1)
	fn := L.CheckFunction(2)

	id, err := h.OnStateChange(path, func(ctx context.Context, ch switchboard.Change) {
		_, err := c.state.callWith(ctx, fn, func(L *lua.LState) []lua.LValue {
			return []lua.LValue{changeTable(L, ch)}
		})
		if err != nil {
			c.logger.Warn().Err(err).Str("path", ch.ChangedPath).Msg("state callback failed")
		}
	})
	if err != nil {
		L.RaiseError("on_state: %s", err.Error())
		return 0
	}
	L.Push(lua.LString(id))
	return 1
}

// sb.off_state(id) -> bool
func (c *Component) luaOffState(L *lua.LState) int {
	h := c.mustHost(L)
	L.Push(lua.LBool(h.OffStateChange(L.CheckString(1))))
	return 1
}

// sb.log(level, message)
func (c *Component) luaLog(L *lua.LState) int {
	level, err := zerolog.ParseLevel(strings.ToLower(L.CheckString(1)))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	c.mu.Lock()
	logger := c.logger
	c.mu.Unlock()
	logger.WithLevel(level).Str("source", "lua").Msg(L.CheckString(2))
	return 0
}
