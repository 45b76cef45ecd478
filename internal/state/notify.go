package state

import (
	"context"
	"sort"
	"sync"
)

// ChangeType represents the type of state change.
type ChangeType int

const (
	// ChangeSet indicates a value was set or replaced.
	ChangeSet ChangeType = iota

	// ChangeMerge indicates a map was deep-merged into a subtree.
	ChangeMerge

	// ChangeDelete indicates a value was removed.
	ChangeDelete
)

// String returns the change type name.
func (c ChangeType) String() string {
	switch c {
	case ChangeSet:
		return "set"
	case ChangeMerge:
		return "merge"
	case ChangeDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Change is delivered to subscribers after a write.
type Change struct {
	// Path is the subscribed path, or the written path for global subscribers.
	Path string

	// ChangedPath is the path that was written.
	ChangedPath string

	// Type is the type of change.
	Type ChangeType

	// Value is the new value at Path.
	Value Value

	// OldValue is the value at Path before the write.
	OldValue Value

	// Source identifies who made the change.
	Source string
}

// Callback is called when a watched path changes.
type Callback func(ctx context.Context, c Change)

// SubscribeOption configures a state subscription.
type SubscribeOption func(*watcher)

// WithOwner marks the subscription as owned by a component.
func WithOwner(owner string) SubscribeOption {
	return func(w *watcher) {
		w.owner = owner
	}
}

// SubscriptionInfo is a read-only description of a state subscription.
type SubscriptionInfo struct {
	ID    string
	Path  string
	Owner string
}

type watcher struct {
	id       string
	seq      uint64
	path     string // "" is global
	owner    string
	callback Callback
}

// watchers holds state subscriptions in registration order.
type watchers struct {
	mu   sync.RWMutex
	byID map[string]*watcher
	seq  uint64
}

func newWatchers() *watchers {
	return &watchers{byID: make(map[string]*watcher)}
}

func (ws *watchers) add(w *watcher) {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	ws.seq++
	w.seq = ws.seq
	ws.byID[w.id] = w
}

func (ws *watchers) remove(id string) bool {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	if _, ok := ws.byID[id]; !ok {
		return false
	}
	delete(ws.byID, id)
	return true
}

func (ws *watchers) removeOwner(owner string) int {
	if owner == "" {
		return 0
	}

	ws.mu.Lock()
	defer ws.mu.Unlock()

	n := 0
	for id, w := range ws.byID {
		if w.owner == owner {
			delete(ws.byID, id)
			n++
		}
	}
	return n
}

func (ws *watchers) count() int {
	ws.mu.RLock()
	defer ws.mu.RUnlock()

	return len(ws.byID)
}

// snapshot returns all watchers in registration order.
func (ws *watchers) snapshot() []*watcher {
	ws.mu.RLock()
	out := make([]*watcher, 0, len(ws.byID))
	for _, w := range ws.byID {
		out = append(out, w)
	}
	ws.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].seq < out[j].seq
	})
	return out
}

// pending is one notification computed for a write.
type pending struct {
	w      *watcher
	change Change
}

// affected computes the notifications for a write to changed between the
// old and new roots, in registration order.
func affected(ws []*watcher, changed string, typ ChangeType, oldRoot, newRoot *node, source string) []pending {
	var out []pending
	for _, w := range ws {
		path := w.path
		switch {
		case path == "":
			path = changed
		case path == changed, isAncestor(path, changed):
		case isAncestor(changed, path):
			segs, _ := ParsePath(path)
			if lookup(oldRoot, segs) == lookup(newRoot, segs) {
				continue
			}
		default:
			continue
		}

		segs, _ := ParsePath(path)
		out = append(out, pending{
			w: w,
			change: Change{
				Path:        path,
				ChangedPath: changed,
				Type:        typ,
				Value:       Value{n: lookup(newRoot, segs)},
				OldValue:    Value{n: lookup(oldRoot, segs)},
				Source:      source,
			},
		})
	}
	return out
}
