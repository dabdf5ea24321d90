package imports

import (
	"strings"

	"gradlecp/pkg/scan"
)

// Match is an import together with the resources that satisfy it
type Match struct {
	Import     Import
	Repository string
	Resources  []scan.Resource
}

// Result splits imports into matched and unmatched ones
type Result struct {
	Resolved   []Match
	Unresolved []Import
}

// Entries returns the classpath entries needed by the resolved imports:
// the build directory of class files, the archive otherwise
func (r Result) Entries() []string {
	var entries []string
	seen := make(map[string]bool)
	for _, match := range r.Resolved {
		for _, resource := range match.Resources {
			entry := resource.Path
			if resource.BuildDir != "" {
				entry = resource.BuildDir
			}
			if !seen[entry] {
				seen[entry] = true
				entries = append(entries, entry)
			}
		}
	}
	return entries
}

// Resolver searches repositories in order; the first one that knows an
// import wins
type Resolver struct {
	repositories []*scan.Repository
}

// NewResolver creates a resolver over the given repositories
func NewResolver(repositories ...*scan.Repository) *Resolver {
	return &Resolver{repositories: repositories}
}

// Resolve looks every import up
func (r *Resolver) Resolve(imports []Import) Result {
	var result Result
	for _, imp := range imports {
		if match, ok := r.find(imp); ok {
			result.Resolved = append(result.Resolved, match)
		} else {
			result.Unresolved = append(result.Unresolved, imp)
		}
	}
	return result
}

func (r *Resolver) find(imp Import) (Match, bool) {
	name := imp.Lookup()
	for _, repo := range r.repositories {
		if repo == nil {
			continue
		}
		if imp.Wildcard {
			if resources := repo.Subtree(name); len(resources) > 0 {
				return Match{Import: imp, Repository: repo.Name(), Resources: resources}, true
			}
			continue
		}
		if resource, ok := repo.Find(name); ok {
			return Match{Import: imp, Repository: repo.Name(), Resources: []scan.Resource{resource}}, true
		}
		// nested classes are stored as Outer$Inner
		if i := strings.LastIndex(name, "."); i != -1 {
			if resource, ok := repo.Find(name[:i] + "$" + name[i+1:]); ok {
				return Match{Import: imp, Repository: repo.Name(), Resources: []scan.Resource{resource}}, true
			}
		}
	}
	return Match{}, false
}
