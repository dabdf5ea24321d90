package gradle

import "fmt"

// TransitiveDependencies returns the module's dependencies with every api
// dependency of its project dependencies pulled in, repeatedly, until no api
// edge is left unexpanded. All returned relations are flattened to
// implementation.
func (p *Project) TransitiveDependencies(modulePath string) ([]Dependency, error) {
	current, ok := p.Dependencies[modulePath]
	if !ok {
		return nil, fmt.Errorf("%w: module path %s not found", ErrConfig, modulePath)
	}
	expanded := make(map[string]bool)

	for {
		var next []Dependency
		seen := make(map[Dependency]bool)
		add := func(dep Dependency) {
			if !seen[dep] {
				seen[dep] = true
				next = append(next, dep)
			}
		}

		for _, dep := range current {
			if dep.Kind != KindProject {
				add(dep.WithRelation(Implementation))
				continue
			}
			path, ok := p.ModulePath(dep.ModuleName)
			if !ok {
				continue
			}
			add(dep.WithRelation(Implementation))
			if expanded[path] {
				continue
			}
			expanded[path] = true
			for _, child := range p.Dependencies[path] {
				if child.Transitive() {
					add(child)
				}
			}
		}

		current = next
		if !hasTransitive(current) {
			return current, nil
		}
	}
}

func hasTransitive(deps []Dependency) bool {
	for _, dep := range deps {
		if dep.Transitive() {
			return true
		}
	}
	return false
}
