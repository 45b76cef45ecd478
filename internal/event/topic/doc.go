// Package topic provides event names and subscription patterns for the event bus.
//
// # Name Format
//
// Event names are colon-delimited namespaces:
//
//	user:created
//	user:profile:updated
//	inventory:sync
//
// # Patterns
//
// A subscription pattern is one of:
//
//   - an exact name, which matches only itself
//   - a prefix wildcard "ns:*", which matches every name that starts with "ns:"
//   - the global wildcard "*", which matches every name
//
// The wildcard may only appear as the whole pattern or as its final segment.
//
//	user:*        matches user:created, user:profile:updated (not user)
//	user:created  matches user:created only
//	*             matches everything
//
// # Usage
//
//	t := topic.NewTrie()
//	t.Insert(topic.Topic("user:*"))
//	t.Insert(topic.Topic("user:created"))
//
//	matches := t.Match(topic.Topic("user:created"))
//	// matches contains both patterns
package topic
