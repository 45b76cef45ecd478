package introspect

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/switchboard"
)

type stub struct{ err error }

func (s stub) OnInitialize(context.Context) error { return s.err }

func setup(t *testing.T) (*switchboard.Orchestrator, http.Handler) {
	t.Helper()
	var in *switchboard.Introspector
	o, err := switchboard.New(
		switchboard.WithClock(clock.NewMock()),
		switchboard.WithIntrospection(func(i *switchboard.Introspector) { in = i }),
	)
	require.NoError(t, err)
	require.NotNil(t, in)

	srv, err := NewServer("127.0.0.1:0", in, o.Collector(), zerolog.Nop())
	require.NoError(t, err)
	return o, srv.handler
}

func get(t *testing.T, h http.Handler, target string) (int, map[string]any) {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))

	var body map[string]any
	if strings.HasPrefix(rr.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	}
	return rr.Code, body
}

func TestComponents(t *testing.T) {
	o, h := setup(t)
	ctx := context.Background()
	require.NoError(t, o.RegisterComponent("store", stub{}))
	require.NoError(t, o.RegisterComponent("ui", stub{err: errors.New("no display")}, "store"))
	o.InitializeComponents(ctx)

	code, body := get(t, h, "/components")
	require.Equal(t, http.StatusOK, code)
	comps := body["components"].([]any)
	require.Len(t, comps, 2)
	assert.Equal(t, "store", comps[0].(map[string]any)["id"])

	code, body = get(t, h, "/components/ui")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "error", body["status"])
	assert.Equal(t, []any{"store"}, body["dependencies"])
	assert.Contains(t, body["lastError"], "no display")

	code, body = get(t, h, "/components/ghost")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Contains(t, body["error"], "ghost")

	_, body = get(t, h, "/init-order")
	assert.Equal(t, []any{"store"}, body["order"])
}

func TestStateAndEvents(t *testing.T) {
	o, h := setup(t)
	ctx := context.Background()
	require.NoError(t, o.SetState(ctx, "app.theme", "dark"))
	_, err := o.On("app:*", func(context.Context, switchboard.Event) error { return nil })
	require.NoError(t, err)
	_, err = o.Emit(ctx, "app:start", map[string]any{"n": 1})
	require.NoError(t, err)

	code, body := get(t, h, "/state?path=app")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "object", body["kind"])
	assert.Equal(t, map[string]any{"theme": "dark"}, body["value"])

	code, _ = get(t, h, "/state?path=app.missing")
	assert.Equal(t, http.StatusNotFound, code)

	_, body = get(t, h, "/state/history")
	changes := body["changes"].([]any)
	require.Len(t, changes, 1)
	assert.Equal(t, "app.theme", changes[0].(map[string]any)["path"])

	_, body = get(t, h, "/events")
	events := body["events"].([]any)
	require.Len(t, events, 1)
	assert.Equal(t, "app:start", events[0].(map[string]any)["name"])
	assert.Equal(t, switchboard.HostSource, events[0].(map[string]any)["source"])

	_, body = get(t, h, "/subscriptions")
	subs := body["events"].([]any)
	require.Len(t, subs, 1)
	assert.Equal(t, "prefix", subs[0].(map[string]any)["kind"])
}

func TestEventsQuery(t *testing.T) {
	o, h := setup(t)
	ctx := context.Background()

	emits := []struct {
		name string
		opts []switchboard.EmitOption
	}{
		{"user:created", []switchboard.EmitOption{switchboard.WithSource("crm-panel")}},
		{"user:deleted", []switchboard.EmitOption{switchboard.WithSource("crm-grid"), switchboard.WithPriority(switchboard.PriorityHigh)}},
		{"order:placed", []switchboard.EmitOption{switchboard.WithSource("billing")}},
		{"app:start", nil},
	}
	for _, e := range emits {
		_, err := o.Emit(ctx, e.name, nil, e.opts...)
		require.NoError(t, err)
	}

	names := func(target string) []string {
		t.Helper()
		code, body := get(t, h, target)
		require.Equal(t, http.StatusOK, code, target)
		var out []string
		for _, e := range body["events"].([]any) {
			out = append(out, e.(map[string]any)["name"].(string))
		}
		return out
	}

	tests := []struct {
		query string
		want  []string
	}{
		{"", []string{"user:created", "user:deleted", "order:placed", "app:start"}},
		{"?pattern=user:*", []string{"user:created", "user:deleted"}},
		{"?pattern=order:*,app:start", []string{"order:placed", "app:start"}},
		{"?source=billing,host", []string{"order:placed", "app:start"}},
		{"?source_prefix=crm", []string{"user:created", "user:deleted"}},
		{"?exclude_source=host,billing", []string{"user:created", "user:deleted"}},
		{"?priority=high", []string{"user:deleted"}},
		{"?pattern=user:*&source=crm-panel", []string{"user:created"}},
		{"?since=1970-01-01T00:00:00Z", []string{"user:created", "user:deleted", "order:placed", "app:start"}},
		{"?since=2030-01-01T00:00:00Z", nil},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, names("/events"+tt.query))
		})
	}

	code, body := get(t, h, "/events?priority=urgent")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, body["error"], "urgent")

	code, _ = get(t, h, "/events?since=yesterday")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestSecurityAndStats(t *testing.T) {
	o, h := setup(t)
	require.NoError(t, o.AllowEvents("ui:*"))
	o.SetAllowListEnabled(true)

	_, body := get(t, h, "/security")
	assert.Equal(t, true, body["allowListEnabled"])
	assert.Equal(t, []any{"ui:*"}, body["allowList"])

	_, body = get(t, h, "/stats")
	assert.Contains(t, body, "eventsDispatched")

	code, _ := get(t, h, "/config")
	assert.Equal(t, http.StatusOK, code)
}

func TestPrometheusMetrics(t *testing.T) {
	o, h := setup(t)
	_, err := o.Emit(context.Background(), "tick", nil)
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "switchboard_events_dispatched_total 1")
}

func TestServerLifecycle(t *testing.T) {
	var in *switchboard.Introspector
	_, err := switchboard.New(switchboard.WithIntrospection(func(i *switchboard.Introspector) { in = i }))
	require.NoError(t, err)

	srv, err := NewServer("127.0.0.1:0", in, nil, zerolog.Nop())
	require.NoError(t, err)
	assert.Empty(t, srv.Addr())
	require.NoError(t, srv.Start())
	assert.Error(t, srv.Start())

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get("http://" + srv.Addr() + "/healthz")
	require.NoError(t, err)
	b, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "ok", string(b))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))
	require.NoError(t, srv.Shutdown(ctx))
}
