// Package scan indexes class names found in module build outputs and in the
// Gradle caches into package tries.
package scan

import (
	"gradlecp/pkg/trie"
)

// Resource is where a class was found. BuildDir is set for class files of a
// module build output and empty for archive entries.
type Resource struct {
	PackageName string
	Path        string
	BuildDir    string
}

// Repository is a read-only package index produced by a scanner
type Repository struct {
	name string
	trie *trie.Trie[Resource]
}

// NewRepository indexes resources by package name
func NewRepository(name string, resources ...Resource) *Repository {
	entries := make(map[string]Resource, len(resources))
	for _, resource := range resources {
		entries[resource.PackageName] = resource
	}
	return newRepository(name, entries)
}

func newRepository(name string, entries map[string]Resource) *Repository {
	t := trie.New[Resource]()
	for packageName, resource := range entries {
		t.Set(trie.Route(packageName), resource)
	}
	return &Repository{name: name, trie: t}
}

// Name identifies the repository in logs
func (r *Repository) Name() string {
	return r.name
}

// Find returns the resource registered for a fully qualified class name
func (r *Repository) Find(packageName string) (Resource, bool) {
	return r.trie.Get(trie.Route(packageName))
}

// Subtree returns every resource at or below packageName
func (r *Repository) Subtree(packageName string) []Resource {
	return r.trie.GetAll(trie.Route(packageName))
}

// Size is the number of indexed classes
func (r *Repository) Size() int {
	return r.trie.Size()
}
