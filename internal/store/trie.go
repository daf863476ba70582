// Package store persists observed response data keyed by
// "experiment/run/response" paths, with prefix-based lookup via a trie —
// ported from original_source/oxn/store.py's Node/Trie/construct_key and
// the free functions built on top of them (write_dataframe, get_dataframe,
// consolidate_runs, list_keys_for_experiment, list_keys_for_run).
//
// The original backs this with an HDF5 file (pandas.HDFStore) and
// pickles the trie to disk; no HDF5 library exists anywhere in the
// example pack, so oxn persists each keyed Frame as its own gob-encoded
// file under Store.Dir and gob-encodes the trie itself to a sibling
// trie.gob, preserving the same "query a prefix, get every matching key"
// contract without inventing an HDF5 binding.
package store

import (
	"sort"
	"strings"
)

// node is one trie node, gob-encodable.
type node struct {
	Character string
	End       bool
	Children  map[string]*node
}

func newNode(character string) *node {
	return &node{Character: character, Children: make(map[string]*node)}
}

// Trie supports prefix-based lookup of storage keys, matching the
// original's query() semantics: querying "" returns every key, in
// reverse-lexicographic (LIFO-like) order.
type Trie struct {
	Root *node
}

// NewTrie builds an empty trie.
func NewTrie() *Trie {
	return &Trie{Root: newNode("")}
}

// Insert adds key to the trie.
func (t *Trie) Insert(key string) {
	n := t.Root
	for _, ch := range key {
		c := string(ch)
		child, ok := n.Children[c]
		if !ok {
			child = newNode(c)
			n.Children[c] = child
		}
		n = child
	}
	n.End = true
}

// Query returns every inserted key with the given prefix, sorted in
// reverse order (matching the original's `sorted(self.keys, reverse=True)`).
// Querying "" returns every key in the trie.
func (t *Trie) Query(prefix string) []string {
	n := t.Root
	for _, ch := range prefix {
		c := string(ch)
		child, ok := n.Children[c]
		if !ok {
			return nil
		}
		n = child
	}

	var keys []string
	var walk func(n *node, built string)
	walk = func(n *node, built string) {
		if n.End {
			keys = append(keys, built+n.Character)
		}
		for _, child := range n.Children {
			walk(child, built+n.Character)
		}
	}
	// prefix[:-1] in the original because depth_first_search re-appends the
	// matched node's own character; built mirrors that by excluding the
	// last rune of prefix before the walk appends it back.
	trimmed := prefix
	if len(trimmed) > 0 {
		runes := []rune(trimmed)
		trimmed = string(runes[:len(runes)-1])
	}
	walk(n, trimmed)

	sort.Sort(sort.Reverse(sort.StringSlice(keys)))
	return keys
}

// ConstructKey builds a storage key from an experiment name, run id, and
// response name, matching construct_key.
func ConstructKey(experimentKey, runKey, responseKey string) string {
	return strings.Join([]string{experimentKey, runKey, responseKey}, "/")
}
