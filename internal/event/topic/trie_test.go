package topic

import (
	"fmt"
	"sort"
	"sync"
	"testing"
)

func TestTrie_ZeroValue(t *testing.T) {
	var trie Trie

	if trie.Delete(Topic("test")) {
		t.Error("Delete should return false for zero-value trie")
	}
	if matches := trie.Match(Topic("test")); len(matches) != 0 {
		t.Error("Match should return nil/empty for zero-value trie")
	}

	if !trie.Insert(Topic("test:pattern")) {
		t.Error("Insert should succeed on zero-value trie")
	}
	if matches := trie.Match(Topic("test:pattern")); len(matches) != 1 {
		t.Errorf("Match after insert = %v, want [test:pattern]", matches)
	}
}

func TestTrie_Insert(t *testing.T) {
	trie := NewTrie()

	tests := []struct {
		pattern  Topic
		expected bool
	}{
		{Topic("user:created"), true},
		{Topic("user:*"), true},
		{Topic("*"), true},
		{Topic("user:created"), false}, // duplicate
		{Topic(""), false},
		{Topic("*:created"), false},
		{Topic("user::x"), false},
	}

	for _, tt := range tests {
		t.Run(tt.pattern.String(), func(t *testing.T) {
			if got := trie.Insert(tt.pattern); got != tt.expected {
				t.Errorf("Insert(%q) = %v, want %v", tt.pattern, got, tt.expected)
			}
		})
	}

	if got := trie.Match(Topic("user:created")); len(got) != 3 {
		t.Errorf("Match(user:created) = %v, want 3 patterns", got)
	}
}

func TestTrie_Delete(t *testing.T) {
	trie := NewTrie()
	trie.Insert(Topic("user:created"))
	trie.Insert(Topic("user:deleted"))

	tests := []struct {
		pattern  Topic
		expected bool
	}{
		{Topic("user:created"), true},
		{Topic("user:created"), false}, // already deleted
		{Topic("order:placed"), false},
		{Topic(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.pattern.String(), func(t *testing.T) {
			if got := trie.Delete(tt.pattern); got != tt.expected {
				t.Errorf("Delete(%q) = %v, want %v", tt.pattern, got, tt.expected)
			}
		})
	}

	if got := trie.Match(Topic("user:created")); len(got) != 0 {
		t.Errorf("Match(user:created) = %v after delete, want none", got)
	}
	if got := trie.Match(Topic("user:deleted")); len(got) != 1 {
		t.Errorf("Match(user:deleted) = %v, want [user:deleted]", got)
	}
}

func TestTrie_Match(t *testing.T) {
	trie := NewTrie()
	for _, p := range []Topic{"*", "user:*", "user:profile:*", "user:created", "user:profile:updated", "order:*"} {
		trie.Insert(p)
	}

	tests := []struct {
		name     Topic
		expected []Topic
	}{
		{Topic("user:created"), []Topic{"*", "user:*", "user:created"}},
		{Topic("user:profile:updated"), []Topic{"*", "user:*", "user:profile:*", "user:profile:updated"}},
		{Topic("user:profile"), []Topic{"*", "user:*"}},
		{Topic("user"), []Topic{"*"}},
		{Topic("order:placed"), []Topic{"*", "order:*"}},
		{Topic("billing:paid"), []Topic{"*"}},
		{Topic("user:*"), nil},
		{Topic(""), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name.String(), func(t *testing.T) {
			got := trie.Match(tt.name)
			if len(got) != len(tt.expected) {
				t.Fatalf("Match(%q) = %v, want %v", tt.name, got, tt.expected)
			}
			for i := range got {
				if got[i] != tt.expected[i] {
					t.Errorf("Match(%q)[%d] = %v, want %v", tt.name, i, got[i], tt.expected[i])
				}
			}
		})
	}
}

func TestTrie_Match_AgreesWithTopicMatches(t *testing.T) {
	patterns := []Topic{"*", "a:*", "a:b:*", "a:b", "a:b:c", "b:*"}
	names := []Topic{"a", "a:b", "a:b:c", "a:b:c:d", "b", "b:x", "c:d"}

	trie := NewTrie()
	for _, p := range patterns {
		trie.Insert(p)
	}

	for _, name := range names {
		var want []string
		for _, p := range patterns {
			if name.Matches(p) {
				want = append(want, p.String())
			}
		}
		var got []string
		for _, p := range trie.Match(name) {
			got = append(got, p.String())
		}
		sort.Strings(want)
		sort.Strings(got)
		if fmt.Sprint(got) != fmt.Sprint(want) {
			t.Errorf("Match(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestTrie_Delete_PrunesEmptyNodes(t *testing.T) {
	trie := NewTrie()
	trie.Insert(Topic("a:b:c"))

	if len(trie.root.children) != 1 {
		t.Fatalf("root children = %d, want 1", len(trie.root.children))
	}

	trie.Delete(Topic("a:b:c"))

	if len(trie.root.children) != 0 {
		t.Errorf("root children after delete = %d, want 0", len(trie.root.children))
	}
}

func TestTrie_Delete_PreservesSharedNodes(t *testing.T) {
	trie := NewTrie()
	trie.Insert(Topic("a:b:c"))
	trie.Insert(Topic("a:*"))

	trie.Delete(Topic("a:b:c"))

	if got := trie.Match(Topic("a:b:c")); len(got) != 1 || got[0] != "a:*" {
		t.Errorf("Match(a:b:c) = %v, want [a:*]", got)
	}
	a := trie.root.children["a"]
	if a == nil || len(a.children) != 1 || a.children[Wildcard] == nil {
		t.Error("only the a:* branch should remain under a")
	}
}

func TestTrie_Concurrent(t *testing.T) {
	trie := NewTrie()
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				trie.Insert(Topic(fmt.Sprintf("ns%d:event%d", i, j)))
			}
		}(i)
	}

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				trie.Match(Topic(fmt.Sprintf("ns%d:event%d", i, j)))
			}
		}(i)
	}

	wg.Wait()

	for i := 0; i < 10; i++ {
		if got := trie.Match(Topic(fmt.Sprintf("ns%d:event99", i))); len(got) != 1 {
			t.Errorf("Match(ns%d:event99) = %v, want one pattern", i, got)
		}
	}
}
