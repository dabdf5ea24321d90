package graph

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrCycle is returned when no module of a round can be ordered
	ErrCycle = errors.New("cycle detected in module graph")
	// ErrUnknownModule is returned for an edge to a module that was never added
	ErrUnknownModule = errors.New("unknown module")
)

// Graph represents a directed graph of modules and their dependencies
type Graph struct {
	modules []string
	edges   map[string][]string // module name -> list of dependency names
}

// NewGraph creates a new empty graph
func NewGraph() *Graph {
	return &Graph{
		edges: make(map[string][]string),
	}
}

// FromMap builds a graph from module name -> dependency names
func FromMap(deps map[string][]string) (*Graph, error) {
	g := NewGraph()
	names := make([]string, 0, len(deps))
	for name := range deps {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := g.AddModule(name, deps[name]); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// AddModule adds a module and its dependency names to the graph
func (g *Graph) AddModule(name string, deps []string) error {
	if _, exists := g.edges[name]; exists {
		return fmt.Errorf("module %s already exists", name)
	}
	g.modules = append(g.modules, name)
	g.edges[name] = append([]string(nil), deps...)
	return nil
}

// Modules returns the module names in insertion order
func (g *Graph) Modules() []string {
	return g.modules
}

// Order assigns each module the round in which it becomes orderable.
// A round takes every remaining module whose dependencies have all been
// ordered in earlier rounds. Self edges are ignored.
func (g *Graph) Order() (map[string]int, error) {
	for _, name := range g.modules {
		for _, dep := range g.edges[name] {
			if _, ok := g.edges[dep]; !ok {
				return nil, fmt.Errorf("%w: %s depends on %s", ErrUnknownModule, name, dep)
			}
		}
	}

	order := make(map[string]int, len(g.modules))
	remaining := append([]string(nil), g.modules...)

	for round := 0; len(remaining) > 0; round++ {
		var selected, next []string
		for _, name := range remaining {
			if g.ready(name, order) {
				selected = append(selected, name)
			} else {
				next = append(next, name)
			}
		}
		if len(selected) == 0 {
			sort.Strings(next)
			return nil, fmt.Errorf("%w: %v", ErrCycle, next)
		}
		// assign after the scan so modules of one round never unblock each other
		for _, name := range selected {
			order[name] = round
		}
		remaining = next
	}

	return order, nil
}

func (g *Graph) ready(name string, order map[string]int) bool {
	for _, dep := range g.edges[name] {
		if dep == name {
			continue
		}
		if _, done := order[dep]; !done {
			return false
		}
	}
	return true
}

// Levels groups modules by order, lowest first, names sorted within a level
func (g *Graph) Levels() ([][]string, error) {
	order, err := g.Order()
	if err != nil {
		return nil, err
	}
	return Levels(order), nil
}

// Levels groups an order map into levels, lowest first
func Levels(order map[string]int) [][]string {
	depth := -1
	for _, n := range order {
		if n > depth {
			depth = n
		}
	}
	levels := make([][]string, depth+1)
	for name, n := range order {
		levels[n] = append(levels[n], name)
	}
	for _, level := range levels {
		sort.Strings(level)
	}
	return levels
}
