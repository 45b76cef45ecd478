package event

import (
	"strings"
	"time"

	"github.com/dshills/switchboard/internal/event/topic"
)

// Common predicates for subscription filters, Replay and history queries.

// FilterBySources allows only events from one of the specified sources.
func FilterBySources(sources ...string) FilterFunc {
	set := make(map[string]struct{}, len(sources))
	for _, s := range sources {
		set[s] = struct{}{}
	}
	return func(e Event) bool {
		_, ok := set[e.Source]
		return ok
	}
}

// FilterBySourcePrefix allows only events whose source starts with prefix.
func FilterBySourcePrefix(prefix string) FilterFunc {
	return func(e Event) bool {
		return e.Source != "" && strings.HasPrefix(e.Source, prefix)
	}
}

// FilterByPattern allows only events whose name matches the pattern.
func FilterByPattern(pattern string) FilterFunc {
	p := topic.Topic(pattern)
	return func(e Event) bool {
		return topic.Topic(e.Name).Matches(p)
	}
}

// FilterByPriority allows only events with the given priority.
func FilterByPriority(p Priority) FilterFunc {
	return func(e Event) bool {
		return e.Priority == p
	}
}

// FilterSince allows only events emitted at or after t.
func FilterSince(t time.Time) FilterFunc {
	return func(e Event) bool {
		return !e.Timestamp.Before(t)
	}
}

// FilterAnd allows an event only if every filter allows it.
func FilterAnd(filters ...FilterFunc) FilterFunc {
	return func(e Event) bool {
		for _, f := range filters {
			if !f(e) {
				return false
			}
		}
		return true
	}
}

// FilterOr allows an event if any filter allows it.
func FilterOr(filters ...FilterFunc) FilterFunc {
	return func(e Event) bool {
		for _, f := range filters {
			if f(e) {
				return true
			}
		}
		return false
	}
}

// FilterNot inverts a filter.
func FilterNot(filter FilterFunc) FilterFunc {
	return func(e Event) bool {
		return !filter(e)
	}
}

// FilterAll allows every event.
func FilterAll() FilterFunc {
	return func(Event) bool { return true }
}
