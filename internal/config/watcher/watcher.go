// Package watcher reports changes to configuration files for live reload.
//
// Editors often replace a file rather than write it in place, so the
// watcher subscribes to the parent directory and filters events by file
// name. Bursts of events for one file are coalesced into a single
// notification once the file has been quiet for the debounce interval.
package watcher

import (
	"errors"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// ErrClosed is returned when using a closed watcher.
var ErrClosed = errors.New("watcher closed")

// Event represents a file change event.
type Event struct {
	// Path is the absolute path to the changed file.
	Path string

	// Op is the operation that triggered the event.
	Op Operation

	// Time is when the last coalesced change was seen.
	Time time.Time
}

// Operation represents the type of file operation.
type Operation int

const (
	// OpWrite indicates the file was modified.
	OpWrite Operation = iota + 1

	// OpCreate indicates a new file was created.
	OpCreate

	// OpRemove indicates the file was deleted.
	OpRemove

	// OpRename indicates the file was renamed.
	OpRename
)

// String returns the operation name.
func (op Operation) String() string {
	switch op {
	case OpWrite:
		return "write"
	case OpCreate:
		return "create"
	case OpRemove:
		return "remove"
	case OpRename:
		return "rename"
	default:
		return "unknown"
	}
}

// Handler is called when a file change is detected.
type Handler func(event Event)

// Watcher monitors files for changes.
type Watcher struct {
	mu       sync.RWMutex
	fsw      *fsnotify.Watcher
	files    map[string]bool
	dirs     map[string]int // watched directory -> number of watched files in it
	handlers []Handler
	closed   bool

	debounce time.Duration
	clock    clock.Clock
	logger   zerolog.Logger

	pendingMu sync.Mutex
	pending   map[string]*pendingEvent

	closeCh chan struct{}
	wg      sync.WaitGroup
}

// pendingEvent stores a pending event with its operation for debouncing.
type pendingEvent struct {
	op    Operation
	time  time.Time
	timer *clock.Timer
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets how long a file must be quiet before its change is
// reported. Zero reports every event immediately.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d >= 0 {
			w.debounce = d
		}
	}
}

// WithClock sets the clock used for debouncing.
func WithClock(clk clock.Clock) Option {
	return func(w *Watcher) {
		if clk != nil {
			w.clock = clk
		}
	}
}

// WithLogger sets the watcher logger.
func WithLogger(l zerolog.Logger) Option {
	return func(w *Watcher) {
		w.logger = l.With().Str("component", "config-watcher").Logger()
	}
}

// New creates a watcher and starts its event loop.
func New(opts ...Option) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fsw:      fsw,
		files:    make(map[string]bool),
		dirs:     make(map[string]int),
		debounce: 100 * time.Millisecond,
		clock:    clock.New(),
		logger:   zerolog.Nop(),
		pending:  make(map[string]*pendingEvent),
		closeCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	w.wg.Add(1)
	go w.processLoop()
	return w, nil
}

// Watch adds a file to the watch list. The file need not exist yet, but
// its directory must.
func (w *Watcher) Watch(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}
	if w.files[absPath] {
		return nil
	}

	dir := filepath.Dir(absPath)
	if w.dirs[dir] == 0 {
		if err := w.fsw.Add(dir); err != nil {
			return err
		}
	}
	w.dirs[dir]++
	w.files[absPath] = true
	return nil
}

// Unwatch removes a file from the watch list.
func (w *Watcher) Unwatch(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.files[absPath] {
		return nil
	}
	delete(w.files, absPath)

	dir := filepath.Dir(absPath)
	w.dirs[dir]--
	if w.dirs[dir] <= 0 {
		delete(w.dirs, dir)
		if !w.closed {
			return w.fsw.Remove(dir)
		}
	}
	return nil
}

// OnChange registers a handler for file change events.
func (w *Watcher) OnChange(handler Handler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers = append(w.handlers, handler)
}

// WatchedFiles returns the watched files, sorted.
func (w *Watcher) WatchedFiles() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	files := make([]string, 0, len(w.files))
	for path := range w.files {
		files = append(files, path)
	}
	sort.Strings(files)
	return files
}

// Close stops the watcher. Pending events are dropped.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.closeCh)
	w.mu.Unlock()

	w.wg.Wait()

	w.pendingMu.Lock()
	for path, p := range w.pending {
		if p.timer != nil {
			p.timer.Stop()
		}
		delete(w.pending, path)
	}
	w.pendingMu.Unlock()

	return w.fsw.Close()
}

// processLoop handles incoming fsnotify events.
func (w *Watcher) processLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.closeCh:
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleFSEvent(ev)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn().Err(err).Msg("file watch error")
		}
	}
}

func (w *Watcher) handleFSEvent(ev fsnotify.Event) {
	op := convertOp(ev.Op)
	if op == 0 {
		return
	}

	path, err := filepath.Abs(ev.Name)
	if err != nil {
		return
	}

	w.mu.RLock()
	watched := w.files[path]
	w.mu.RUnlock()
	if !watched {
		return
	}

	event := Event{Path: path, Op: op, Time: w.clock.Now()}
	if w.debounce > 0 {
		w.queueEvent(event)
		return
	}
	w.emitEvent(event)
}

// convertOp converts fsnotify.Op to an Operation, 0 if uninteresting.
func convertOp(op fsnotify.Op) Operation {
	switch {
	case op.Has(fsnotify.Remove):
		return OpRemove
	case op.Has(fsnotify.Rename):
		return OpRename
	case op.Has(fsnotify.Create):
		return OpCreate
	case op.Has(fsnotify.Write):
		return OpWrite
	default:
		return 0
	}
}

// queueEvent queues an event for debounced delivery and restarts the
// file's quiet timer.
//
// Coalescing:
//   - any + remove => remove
//   - remove + create => write (the file was replaced)
//   - create + write => create
//   - write + write => write
func (w *Watcher) queueEvent(event Event) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	p, ok := w.pending[event.Path]
	if !ok {
		p = &pendingEvent{op: event.Op}
		w.pending[event.Path] = p
	} else {
		p.op = coalesce(p.op, event.Op)
	}
	p.time = event.Time

	if p.timer != nil {
		p.timer.Stop()
	}
	path := event.Path
	p.timer = w.clock.AfterFunc(w.debounce, func() { w.flush(path) })
}

func coalesce(existing, next Operation) Operation {
	switch next {
	case OpRemove:
		return OpRemove
	case OpCreate:
		if existing == OpRemove || existing == OpRename {
			return OpWrite
		}
		return OpCreate
	case OpWrite:
		if existing == OpCreate {
			return OpCreate
		}
		return OpWrite
	default:
		return next
	}
}

func (w *Watcher) flush(path string) {
	w.pendingMu.Lock()
	p, ok := w.pending[path]
	if ok {
		delete(w.pending, path)
	}
	w.pendingMu.Unlock()
	if !ok {
		return
	}

	select {
	case <-w.closeCh:
		return
	default:
	}
	w.emitEvent(Event{Path: path, Op: p.op, Time: p.time})
}

// emitEvent calls all handlers with the event.
func (w *Watcher) emitEvent(event Event) {
	w.mu.RLock()
	handlers := make([]Handler, len(w.handlers))
	copy(handlers, w.handlers)
	w.mu.RUnlock()

	w.logger.Debug().Str("path", event.Path).Stringer("op", event.Op).Msg("config file changed")
	for _, handler := range handlers {
		w.safeCallHandler(handler, event)
	}
}

// safeCallHandler calls a handler with panic recovery.
func (w *Watcher) safeCallHandler(handler Handler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error().Interface("panic", r).Str("path", event.Path).Msg("config change handler panicked")
		}
	}()
	handler(event)
}
