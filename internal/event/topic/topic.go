package topic

import "strings"

// Topic is an event name or subscription pattern using colon notation.
// Examples: "user:created", "user:*", "*"
type Topic string

const (
	// Wildcard matches one or more trailing segments.
	Wildcard = "*"

	// Separator is the character used to separate topic segments.
	Separator = ":"
)

// Kind classifies a subscription pattern.
type Kind uint8

const (
	// KindInvalid is returned for malformed patterns.
	KindInvalid Kind = iota

	// KindExact matches a single event name.
	KindExact

	// KindPrefix matches every name under a namespace ("ns:*").
	KindPrefix

	// KindGlobal matches every event name ("*").
	KindGlobal
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindExact:
		return "exact"
	case KindPrefix:
		return "prefix"
	case KindGlobal:
		return "global"
	default:
		return "invalid"
	}
}

// String returns the topic as a string.
func (t Topic) String() string {
	return string(t)
}

// Segments returns the topic split by the separator.
func (t Topic) Segments() []string {
	if t == "" {
		return nil
	}
	return strings.Split(string(t), Separator)
}

// SegmentCount returns the number of segments in the topic.
func (t Topic) SegmentCount() int {
	if t == "" {
		return 0
	}
	return strings.Count(string(t), Separator) + 1
}

// Namespace returns the topic without its last segment.
//
// Example: "user:profile:updated" -> "user:profile"
func (t Topic) Namespace() Topic {
	s := string(t)
	idx := strings.LastIndex(s, Separator)
	if idx < 0 {
		return ""
	}
	return Topic(s[:idx])
}

// HasPrefix returns true if the topic starts with the given namespace on a
// segment boundary.
func (t Topic) HasPrefix(prefix Topic) bool {
	if prefix == "" {
		return true
	}
	s := string(t)
	p := string(prefix)
	if !strings.HasPrefix(s, p) {
		return false
	}
	if len(s) == len(p) {
		return true
	}
	return strings.HasPrefix(s[len(p):], Separator)
}

// IsWildcard returns true if the topic contains the wildcard.
func (t Topic) IsWildcard() bool {
	return strings.Contains(string(t), Wildcard)
}

// IsValid returns true if the topic is a valid concrete event name.
// A valid name:
//   - Is not empty
//   - Has no empty segments
//   - Contains no wildcard
func (t Topic) IsValid() bool {
	if t == "" {
		return false
	}
	for _, seg := range t.Segments() {
		if seg == "" || strings.Contains(seg, Wildcard) {
			return false
		}
	}
	return true
}

// Kind classifies the topic as a subscription pattern.
func (t Topic) Kind() Kind {
	if t == Wildcard {
		return KindGlobal
	}
	if t.IsValid() {
		return KindExact
	}
	s := string(t)
	suffix := Separator + Wildcard
	if strings.HasSuffix(s, suffix) && Topic(strings.TrimSuffix(s, suffix)).IsValid() {
		return KindPrefix
	}
	return KindInvalid
}

// IsValidPattern returns true if the topic can be used as a subscription pattern.
func (t Topic) IsValidPattern() bool {
	return t.Kind() != KindInvalid
}

// Prefix returns the namespace a prefix pattern covers.
// Returns an empty topic for exact and global patterns.
func (t Topic) Prefix() Topic {
	if t.Kind() != KindPrefix {
		return ""
	}
	return t.Namespace()
}

// Matches returns true if this event name matches the given pattern.
func (t Topic) Matches(pattern Topic) bool {
	switch pattern.Kind() {
	case KindGlobal:
		return t.IsValid()
	case KindExact:
		return t == pattern
	case KindPrefix:
		p := pattern.Prefix()
		return len(t) > len(p) && t.HasPrefix(p)
	default:
		return false
	}
}

// Join joins multiple segments into a topic.
func Join(segments ...string) Topic {
	return Topic(strings.Join(segments, Separator))
}
