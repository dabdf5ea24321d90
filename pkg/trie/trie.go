package trie

import (
	"fmt"
	"sort"
	"strings"
)

// Trie is a prefix tree keyed by package name segments.
// It is not safe for concurrent writers. Once all writes are done it may be
// read from any number of goroutines.
type Trie[T any] struct {
	root  *node[T]
	count int
}

type node[T any] struct {
	children map[string]*node[T]
	value    T
	hasValue bool
}

// New creates an empty trie
func New[T any]() *Trie[T] {
	return &Trie[T]{root: &node[T]{}}
}

// Set stores value at route, creating intermediate nodes as needed.
// An existing value at the same route is overwritten.
func (t *Trie[T]) Set(route []string, value T) {
	current := t.root
	for _, segment := range route {
		if current.children == nil {
			current.children = make(map[string]*node[T])
		}
		next, ok := current.children[segment]
		if !ok {
			next = &node[T]{}
			current.children[segment] = next
		}
		current = next
	}
	if !current.hasValue {
		t.count++
	}
	current.value = value
	current.hasValue = true
}

// Get returns the value stored exactly at route
func (t *Trie[T]) Get(route []string) (T, bool) {
	var zero T
	n := t.find(route)
	if n == nil || !n.hasValue {
		return zero, false
	}
	return n.value, true
}

// GetAll returns every value stored at or beneath route, breadth first.
// Siblings are visited in lexical order so the result is deterministic.
func (t *Trie[T]) GetAll(route []string) []T {
	start := t.find(route)
	if start == nil {
		return nil
	}

	var values []T
	queue := []*node[T]{start}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if current.hasValue {
			values = append(values, current.value)
		}

		keys := make([]string, 0, len(current.children))
		for key := range current.children {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			queue = append(queue, current.children[key])
		}
	}
	return values
}

// Size returns the number of stored values
func (t *Trie[T]) Size() int {
	return t.count
}

func (t *Trie[T]) find(route []string) *node[T] {
	current := t.root
	for _, segment := range route {
		next, ok := current.children[segment]
		if !ok {
			return nil
		}
		current = next
	}
	return current
}

// Split converts a dotted package name into a trie route, dropping the last
// ignoreLast segments. A blank name yields an empty route.
func Split(packageName string, ignoreLast int) ([]string, error) {
	if strings.TrimSpace(packageName) == "" {
		return nil, nil
	}
	parts := strings.Split(packageName, ".")
	if ignoreLast < 0 || len(parts) <= ignoreLast {
		return nil, fmt.Errorf("incorrect ignoreLast value %d for %q", ignoreLast, packageName)
	}
	return parts[:len(parts)-ignoreLast], nil
}

// Route splits a package name without dropping any segment
func Route(packageName string) []string {
	route, _ := Split(packageName, 0)
	return route
}
