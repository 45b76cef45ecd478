package topic

import "sync"

// Trie is a thread-safe trie of subscription patterns.
// It provides O(k) lookup where k is the number of event name segments.
//
// A wildcard child stored under a node matches any name that continues past
// that node by at least one segment, so "*" at the root is the global pattern
// and "ns:*" covers the ns namespace.
type Trie struct {
	mu   sync.RWMutex
	root *trieNode
}

type trieNode struct {
	children map[string]*trieNode
	patterns []Topic // Patterns that terminate at this node
}

func newTrieNode() *trieNode {
	return &trieNode{
		children: make(map[string]*trieNode),
	}
}

func (n *trieNode) isEmpty() bool {
	return len(n.children) == 0 && len(n.patterns) == 0
}

// NewTrie creates a new topic pattern trie.
func NewTrie() *Trie {
	return &Trie{
		root: newTrieNode(),
	}
}

// Insert adds a pattern to the trie.
// Returns true if the pattern was added, false if it already existed or is
// not a valid pattern.
func (t *Trie) Insert(pattern Topic) bool {
	if !pattern.IsValidPattern() {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	// Zero-value Trie
	if t.root == nil {
		t.root = newTrieNode()
	}

	node := t.root
	for _, seg := range pattern.Segments() {
		if node.children[seg] == nil {
			node.children[seg] = newTrieNode()
		}
		node = node.children[seg]
	}

	for _, p := range node.patterns {
		if p == pattern {
			return false
		}
	}
	node.patterns = append(node.patterns, pattern)
	return true
}

type pathEntry struct {
	node *trieNode
	key  string
}

// Delete removes a pattern from the trie and prunes empty nodes.
// Returns true if the pattern was removed, false if it didn't exist.
func (t *Trie) Delete(pattern Topic) bool {
	if pattern == "" {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.root == nil {
		return false
	}

	segments := pattern.Segments()
	path := make([]pathEntry, 0, len(segments)+1)
	path = append(path, pathEntry{node: t.root})

	node := t.root
	for _, seg := range segments {
		child := node.children[seg]
		if child == nil {
			return false
		}
		path = append(path, pathEntry{node: child, key: seg})
		node = child
	}

	found := false
	for i, p := range node.patterns {
		if p == pattern {
			node.patterns = append(node.patterns[:i], node.patterns[i+1:]...)
			found = true
			break
		}
	}
	if !found {
		return false
	}

	// Prune empty nodes from leaf back to root
	for i := len(path) - 1; i > 0; i-- {
		if !path[i].node.isEmpty() {
			break
		}
		delete(path[i-1].node.children, path[i].key)
	}

	return true
}

// Match returns all patterns that match the given event name, broadest
// first: the global pattern, then prefix patterns from the shortest
// namespace, then the exact pattern.
func (t *Trie) Match(name Topic) []Topic {
	if !name.IsValid() {
		return nil
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.root == nil {
		return nil
	}

	var matches []Topic
	node := t.root
	for _, seg := range name.Segments() {
		// A wildcard here still has at least this segment left to consume.
		if wc := node.children[Wildcard]; wc != nil {
			matches = append(matches, wc.patterns...)
		}
		node = node.children[seg]
		if node == nil {
			return matches
		}
	}
	return append(matches, node.patterns...)
}
