package event

import (
	"sort"
	"sync"

	"github.com/dshills/switchboard/internal/event/topic"
)

// Registry manages subscriptions organized by pattern.
// It is thread-safe for concurrent access.
type Registry struct {
	mu      sync.RWMutex
	subs    map[topic.Topic][]*subscription
	byID    map[string]*subscription
	matcher *topic.Trie
}

// NewRegistry creates a new subscription registry.
func NewRegistry() *Registry {
	return &Registry{
		subs:    make(map[topic.Topic][]*subscription),
		byID:    make(map[string]*subscription),
		matcher: topic.NewTrie(),
	}
}

// Add adds a subscription.
func (r *Registry) Add(sub *subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.subs[sub.pattern] = append(r.subs[sub.pattern], sub)
	r.byID[sub.id] = sub
	r.matcher.Insert(sub.pattern)
}

// Remove removes a subscription by ID. Snapshots returned by Match are unaffected.
func (r *Registry) Remove(subID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.removeLocked(subID)
}

func (r *Registry) removeLocked(subID string) bool {
	sub, exists := r.byID[subID]
	if !exists {
		return false
	}

	subs := r.subs[sub.pattern]
	for i, s := range subs {
		if s.id == subID {
			r.subs[sub.pattern] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(r.subs[sub.pattern]) == 0 {
		delete(r.subs, sub.pattern)
		r.matcher.Delete(sub.pattern)
	}

	delete(r.byID, subID)
	return true
}

// RemoveOwner removes every subscription owned by owner.
// Returns the number of subscriptions removed.
func (r *Registry) RemoveOwner(owner string) int {
	if owner == "" {
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var ids []string
	for id, sub := range r.byID {
		if sub.config.Owner == owner {
			ids = append(ids, id)
		}
	}
	for _, id := range ids {
		r.removeLocked(id)
	}
	return len(ids)
}

// Match returns all subscriptions that match the given event name, in
// registration order. The returned slice is a snapshot.
func (r *Registry) Match(name topic.Topic) []*subscription {
	r.mu.RLock()
	defer r.mu.RUnlock()

	patterns := r.matcher.Match(name)
	if len(patterns) == 0 {
		return nil
	}

	var all []*subscription
	for _, pattern := range patterns {
		all = append(all, r.subs[pattern]...)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].seq < all[j].seq
	})
	return all
}

// Count returns the total number of subscriptions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.byID)
}

// All returns descriptions of all subscriptions in registration order.
func (r *Registry) All() []SubscriptionInfo {
	r.mu.RLock()
	subs := make([]*subscription, 0, len(r.byID))
	for _, sub := range r.byID {
		subs = append(subs, sub)
	}
	r.mu.RUnlock()

	sort.Slice(subs, func(i, j int) bool {
		return subs[i].seq < subs[j].seq
	})
	infos := make([]SubscriptionInfo, len(subs))
	for i, sub := range subs {
		infos[i] = sub.info()
	}
	return infos
}
