package state

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dshills/switchboard/internal/event/dispatch"
	"github.com/dshills/switchboard/internal/orcherr"
	"github.com/dshills/switchboard/internal/ring"
)

// Store is the hierarchical state store.
type Store struct {
	// mu serializes writers and guards root and history.
	// It is never held while a callback runs.
	mu      sync.Mutex
	root    *node
	history *ring.Buffer[ChangeRecord]

	watchers *watchers
	gate     func(owner string) bool
	executor *dispatch.Executor
	logger   zerolog.Logger
	clock    clock.Clock

	updates        atomic.Uint64
	callbackPanics atomic.Uint64
}

// Option configures a Store.
type Option func(*storeConfig)

type storeConfig struct {
	historyDepth int
	logger       zerolog.Logger
	clock        clock.Clock
	initial      map[string]any
	gate         func(owner string) bool
}

// WithHistoryDepth sets the number of changes kept in history.
func WithHistoryDepth(n int) Option {
	return func(c *storeConfig) {
		if n > 0 {
			c.historyDepth = n
		}
	}
}

// WithLogger sets the store logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *storeConfig) {
		c.logger = l.With().Str("component", "state").Logger()
	}
}

// WithClock sets the clock used for history timestamps.
func WithClock(clk clock.Clock) Option {
	return func(c *storeConfig) {
		if clk != nil {
			c.clock = clk
		}
	}
}

// WithInitial seeds the store with initial state. Seeding does not notify
// and is not recorded in history.
func WithInitial(data map[string]any) Option {
	return func(c *storeConfig) {
		c.initial = data
	}
}

// WithDeliveryGate sets a predicate consulted before each owned callback
// runs. Callbacks whose owner the gate rejects are skipped.
func WithDeliveryGate(gate func(owner string) bool) Option {
	return func(c *storeConfig) {
		c.gate = gate
	}
}

// New creates a new state store.
func New(opts ...Option) *Store {
	cfg := storeConfig{
		historyDepth: DefaultHistoryDepth,
		logger:       zerolog.Nop(),
		clock:        clock.New(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &Store{
		root:     emptyObject,
		history:  ring.New[ChangeRecord](cfg.historyDepth),
		watchers: newWatchers(),
		gate:     cfg.gate,
		logger:   cfg.logger,
		clock:    cfg.clock,
	}
	if cfg.initial != nil {
		root, err := fromGo(cfg.initial)
		if err != nil {
			cfg.logger.Warn().Err(err).Msg("initial state ignored")
		} else {
			s.root = root
		}
	}

	logger := cfg.logger
	s.executor = dispatch.NewExecutor(
		dispatch.WithExecutorClock(cfg.clock),
		dispatch.WithExecutorPanicHandler(func(path string, v any, stack []byte) {
			logger.Error().
				Str("path", path).
				Interface("panic", v).
				Bytes("stack", stack).
				Msg("state callback panicked")
		}),
	)
	return s
}

// Get returns the value at path. The empty path returns the root.
// A malformed path yields a missing value.
func (s *Store) Get(path string) Value {
	segs, err := ParsePath(path)
	if err != nil {
		return Value{}
	}

	s.mu.Lock()
	root := s.root
	s.mu.Unlock()

	return Value{n: lookup(root, segs)}
}

// Root returns the current root snapshot.
func (s *Store) Root() Value {
	return s.Get("")
}

// Set replaces the value at path, creating intermediate objects as needed.
func (s *Store) Set(ctx context.Context, path string, value any, source string) error {
	segs, err := s.writePath("set_state", path)
	if err != nil {
		return err
	}
	leaf, err := fromGo(value)
	if err != nil {
		return orcherr.NewValidationError("set_state", "value", path, err.Error())
	}
	return s.write(ctx, path, ChangeSet, source, func(root *node) (*node, bool) {
		return setIn(root, segs, leaf), true
	})
}

// Merge deep-merges data into the object at path. Nested objects merge key
// by key; every other value replaces what was there.
func (s *Store) Merge(ctx context.Context, path string, data map[string]any, source string) error {
	segs, err := s.writePath("merge_state", path)
	if err != nil {
		return err
	}
	src, err := fromGo(data)
	if err != nil {
		return orcherr.NewValidationError("merge_state", "data", path, err.Error())
	}
	return s.write(ctx, path, ChangeMerge, source, func(root *node) (*node, bool) {
		return setIn(root, segs, mergeNodes(lookup(root, segs), src)), true
	})
}

// Delete removes the value at path. Deleting a missing path is a no-op
// and does not notify.
func (s *Store) Delete(ctx context.Context, path string, source string) error {
	segs, err := s.writePath("delete_state", path)
	if err != nil {
		return err
	}
	return s.write(ctx, path, ChangeDelete, source, func(root *node) (*node, bool) {
		return deleteIn(root, segs)
	})
}

func (s *Store) writePath(op, path string) ([]string, error) {
	if path == "" {
		return nil, orcherr.NewValidationError(op, "path", path, "path is required")
	}
	segs, err := ParsePath(path)
	if err != nil {
		return nil, orcherr.NewValidationError(op, "path", path, "empty path segment")
	}
	return segs, nil
}

func (s *Store) write(ctx context.Context, path string, typ ChangeType, source string, apply func(*node) (*node, bool)) error {
	s.mu.Lock()
	oldRoot := s.root
	newRoot, changed := apply(oldRoot)
	if !changed {
		s.mu.Unlock()
		return nil
	}
	s.root = newRoot

	segs, _ := ParsePath(path)
	s.history.Push(ChangeRecord{
		Timestamp: s.clock.Now(),
		Path:      path,
		Type:      typ,
		OldValue:  Value{n: lookup(oldRoot, segs)},
		NewValue:  Value{n: lookup(newRoot, segs)},
		Source:    source,
	})
	s.mu.Unlock()

	s.updates.Add(1)
	s.logger.Debug().Str("path", path).Str("type", typ.String()).Str("source", source).Msg("state updated")

	s.notify(ctx, affected(s.watchers.snapshot(), path, typ, oldRoot, newRoot, source))
	return nil
}

// notify runs the batch computed from the watcher snapshot taken at commit.
// Unsubscribing inside a callback does not shrink the batch.
func (s *Store) notify(ctx context.Context, batch []pending) {
	for _, p := range batch {
		if p.w.owner != "" && s.gate != nil && !s.gate(p.w.owner) {
			continue
		}
		cb, change := p.w.callback, p.change
		result := s.executor.Execute(ctx, change.Path, func(ctx context.Context) error {
			cb(ctx, change)
			return nil
		})
		if result.Panicked {
			s.callbackPanics.Add(1)
		}
	}
}

// Subscribe registers a callback for path and its subtree. The empty path
// subscribes to every change. Returns the subscription id.
func (s *Store) Subscribe(path string, cb Callback, opts ...SubscribeOption) (string, error) {
	if cb == nil {
		return "", orcherr.NewValidationError("subscribe_state", "callback", path, "callback cannot be nil")
	}
	if _, err := ParsePath(path); err != nil {
		return "", err
	}

	w := &watcher{id: uuid.NewString(), path: path, callback: cb}
	for _, opt := range opts {
		opt(w)
	}
	s.watchers.add(w)
	return w.id, nil
}

// Unsubscribe removes a subscription. Returns false if it did not exist.
func (s *Store) Unsubscribe(id string) bool {
	return s.watchers.remove(id)
}

// UnsubscribeOwner removes every subscription owned by owner.
func (s *Store) UnsubscribeOwner(owner string) int {
	return s.watchers.removeOwner(owner)
}

// Subscriptions returns descriptions of all subscriptions in registration order.
func (s *Store) Subscriptions() []SubscriptionInfo {
	ws := s.watchers.snapshot()
	out := make([]SubscriptionInfo, len(ws))
	for i, w := range ws {
		out[i] = SubscriptionInfo{ID: w.id, Path: w.path, Owner: w.owner}
	}
	return out
}

// History returns recent changes, oldest first.
func (s *Store) History() []ChangeRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.history.Slice()
}

// Stats contains state store statistics.
type Stats struct {
	Updates        uint64
	Subscriptions  int
	CallbackPanics uint64
	HistorySize    int
}

// Stats returns current store statistics.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	historySize := s.history.Len()
	s.mu.Unlock()

	return Stats{
		Updates:        s.updates.Load(),
		Subscriptions:  s.watchers.count(),
		CallbackPanics: s.callbackPanics.Load(),
		HistorySize:    historySize,
	}
}
