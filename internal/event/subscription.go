package event

import (
	"sync/atomic"

	"github.com/dshills/switchboard/internal/event/topic"
)

// SubscriptionConfig contains configuration for a subscription.
type SubscriptionConfig struct {
	// Owner is the id of the component that owns the subscription.
	// Owned subscriptions are removed together with their owner.
	Owner string

	// Filter is an optional predicate to filter events.
	Filter FilterFunc

	// Once indicates the subscription should cancel itself after the first event.
	Once bool
}

// SubscriptionOption is a function that configures a subscription.
type SubscriptionOption func(*SubscriptionConfig)

// WithOwner marks the subscription as owned by a component.
func WithOwner(owner string) SubscriptionOption {
	return func(c *SubscriptionConfig) {
		c.Owner = owner
	}
}

// WithFilter sets a filter predicate.
func WithFilter(f FilterFunc) SubscriptionOption {
	return func(c *SubscriptionConfig) {
		c.Filter = f
	}
}

// WithOnce sets the subscription to cancel itself after the first event.
func WithOnce() SubscriptionOption {
	return func(c *SubscriptionConfig) {
		c.Once = true
	}
}

// SubscriptionInfo is a read-only description of a subscription.
type SubscriptionInfo struct {
	ID      string
	Pattern string
	Kind    topic.Kind
	Owner   string
}

type subscription struct {
	id      string
	seq     uint64 // registration order
	pattern topic.Topic
	handler Handler
	config  SubscriptionConfig
	fired   atomic.Bool // once subscriptions only
}

func newSubscription(id string, seq uint64, pattern topic.Topic, h Handler, opts ...SubscriptionOption) *subscription {
	s := &subscription{
		id:      id,
		seq:     seq,
		pattern: pattern,
		handler: h,
	}
	for _, opt := range opts {
		opt(&s.config)
	}
	return s
}

func (s *subscription) info() SubscriptionInfo {
	return SubscriptionInfo{
		ID:      s.id,
		Pattern: s.pattern.String(),
		Kind:    s.pattern.Kind(),
		Owner:   s.config.Owner,
	}
}

// fire marks a once subscription as used and reports whether this call did it.
func (s *subscription) fire() bool {
	return s.fired.CompareAndSwap(false, true)
}

// shouldDeliver ignores registry removal: a dispatch delivers to every
// subscription in the snapshot it started with.
func (s *subscription) shouldDeliver(e Event, gate func(owner string) bool) bool {
	if s.config.Owner != "" && gate != nil && !gate(s.config.Owner) {
		return false
	}
	if s.config.Filter != nil && !s.config.Filter(e) {
		return false
	}
	return true
}
