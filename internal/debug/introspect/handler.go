package introspect

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/dshills/switchboard"
)

// NewHandler returns the introspection routes for in. Prometheus metrics
// are gathered from reg; a nil reg gets a fresh registry carrying the
// orchestrator collector.
func NewHandler(in *switchboard.Introspector, reg *prometheus.Registry, logger zerolog.Logger) http.Handler {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	h := &handler{in: in, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.logRequests)
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/components", h.components)
	r.Get("/components/{id}", h.component)
	r.Get("/init-order", h.initOrder)
	r.Get("/subscriptions", h.subscriptions)
	r.Get("/state", h.state)
	r.Get("/state/history", h.stateHistory)
	r.Get("/events", h.events)
	r.Get("/security", h.security)
	r.Get("/stats", h.stats)
	r.Get("/config", h.config)
	r.Get("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}).ServeHTTP)

	return r
}

type handler struct {
	in     *switchboard.Introspector
	logger zerolog.Logger
}

func (h *handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("introspection request")
	})
}

// componentView is the JSON form of a component status.
type componentView struct {
	ID            string     `json:"id"`
	Status        string     `json:"status"`
	Dependencies  []string   `json:"dependencies"`
	Dependents    []string   `json:"dependents"`
	HasErrors     bool       `json:"hasErrors"`
	RegisteredAt  time.Time  `json:"registeredAt"`
	InitializedAt *time.Time `json:"initializedAt,omitempty"`
	LastError     string     `json:"lastError,omitempty"`
}

func newComponentView(st switchboard.ComponentStatus) componentView {
	v := componentView{
		ID:           st.ID,
		Status:       st.Status.String(),
		Dependencies: nonNil(st.Dependencies),
		Dependents:   nonNil(st.Dependents),
		HasErrors:    st.HasErrors,
		RegisteredAt: st.RegisteredAt,
	}
	if !st.InitializedAt.IsZero() {
		t := st.InitializedAt
		v.InitializedAt = &t
	}
	if st.LastError != nil {
		v.LastError = st.LastError.Error()
	}
	return v
}

func (h *handler) components(w http.ResponseWriter, _ *http.Request) {
	statuses := h.in.Components()
	out := make([]componentView, 0, len(statuses))
	for _, st := range statuses {
		out = append(out, newComponentView(st))
	}
	writeJSON(w, http.StatusOK, map[string]any{"components": out})
}

func (h *handler) component(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	st, ok := h.in.Component(id)
	if !ok {
		writeJSONError(w, http.StatusNotFound, "component not registered: "+id)
		return
	}
	writeJSON(w, http.StatusOK, newComponentView(st))
}

func (h *handler) initOrder(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"order": nonNil(h.in.InitOrder())})
}

type eventSubView struct {
	ID      string `json:"id"`
	Pattern string `json:"pattern"`
	Kind    string `json:"kind"`
	Owner   string `json:"owner,omitempty"`
}

type stateSubView struct {
	ID    string `json:"id"`
	Path  string `json:"path"`
	Owner string `json:"owner,omitempty"`
}

func (h *handler) subscriptions(w http.ResponseWriter, _ *http.Request) {
	events := make([]eventSubView, 0)
	for _, s := range h.in.Subscriptions() {
		events = append(events, eventSubView{ID: s.ID, Pattern: s.Pattern, Kind: s.Kind.String(), Owner: s.Owner})
	}
	states := make([]stateSubView, 0)
	for _, s := range h.in.StateSubscriptions() {
		states = append(states, stateSubView{ID: s.ID, Path: s.Path, Owner: s.Owner})
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events, "state": states})
}

func (h *handler) state(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	v := h.in.State(path)
	if !v.Exists() {
		writeJSONError(w, http.StatusNotFound, "no value at "+path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"path": path, "kind": v.Kind().String(), "value": v})
}

type changeView struct {
	Timestamp time.Time         `json:"timestamp"`
	Path      string            `json:"path"`
	Type      string            `json:"type"`
	OldValue  switchboard.Value `json:"oldValue"`
	NewValue  switchboard.Value `json:"newValue"`
	Source    string            `json:"source"`
}

func (h *handler) stateHistory(w http.ResponseWriter, _ *http.Request) {
	records := h.in.StateHistory()
	out := make([]changeView, 0, len(records))
	for _, rec := range records {
		out = append(out, changeView{
			Timestamp: rec.Timestamp,
			Path:      rec.Path,
			Type:      rec.Type.String(),
			OldValue:  rec.OldValue,
			NewValue:  rec.NewValue,
			Source:    rec.Source,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"changes": out})
}

type eventView struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Source    string    `json:"source"`
	Priority  string    `json:"priority"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// events lists recorded events. Query parameters narrow the list and are
// combined with AND: pattern (comma-separated, any may match), source
// (comma-separated), source_prefix, exclude_source (comma-separated),
// priority and since (RFC 3339).
func (h *handler) events(w http.ResponseWriter, r *http.Request) {
	filter, err := eventFilter(r.URL.Query())
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	history := h.in.EventHistory(filter)
	out := make([]eventView, 0, len(history))
	for _, e := range history {
		out = append(out, eventView{
			ID:        e.ID,
			Name:      e.Name,
			Source:    e.Source,
			Priority:  e.Priority.String(),
			Timestamp: e.Timestamp,
			Payload:   e.Payload,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": out, "queued": h.in.QueueLen()})
}

func eventFilter(q url.Values) (switchboard.FilterFunc, error) {
	var filters []switchboard.FilterFunc

	if patterns := splitList(q.Get("pattern")); len(patterns) > 0 {
		alts := make([]switchboard.FilterFunc, len(patterns))
		for i, p := range patterns {
			alts[i] = switchboard.FilterByPattern(p)
		}
		filters = append(filters, switchboard.FilterOr(alts...))
	}
	if sources := splitList(q.Get("source")); len(sources) > 0 {
		filters = append(filters, switchboard.FilterBySources(sources...))
	}
	if prefix := q.Get("source_prefix"); prefix != "" {
		filters = append(filters, switchboard.FilterBySourcePrefix(prefix))
	}
	if excluded := splitList(q.Get("exclude_source")); len(excluded) > 0 {
		filters = append(filters, switchboard.FilterNot(switchboard.FilterBySources(excluded...)))
	}
	if v := q.Get("priority"); v != "" {
		p, err := switchboard.ParsePriority(v)
		if err != nil {
			return nil, err
		}
		filters = append(filters, switchboard.FilterByPriority(p))
	}
	if v := q.Get("since"); v != "" {
		since, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return nil, fmt.Errorf("since: %w", err)
		}
		filters = append(filters, switchboard.FilterSince(since))
	}

	if len(filters) == 0 {
		return nil, nil
	}
	return switchboard.FilterAnd(filters...), nil
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (h *handler) security(w http.ResponseWriter, _ *http.Request) {
	enabled, patterns := h.in.AllowList()
	writeJSON(w, http.StatusOK, map[string]any{
		"allowListEnabled": enabled,
		"allowList":        nonNil(patterns),
	})
}

func (h *handler) stats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.in.Metrics())
}

func (h *handler) config(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.in.Config())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
