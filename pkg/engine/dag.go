package engine

import (
	"fmt"
	"sort"
	"strings"
)

// Unit is one schedulable resource: a name and the names it depends on.
type Unit struct {
	Name      string
	DependsOn []string
}

// DependencyGraph indexes the depends_on edges between units. It is used to
// describe cycles and to render the resource graph; execution order itself
// comes from the Scheduler.
type DependencyGraph struct {
	// units maps unit names to their units
	units map[string]Unit

	// order keeps the units in declaration order
	order []string

	// dependents maps unit names to the units depending on them
	dependents map[string][]string

	// levels groups unit names by depth
	levels [][]string
}

// NewDependencyGraph indexes units. Self-dependencies are ignored.
// Dependencies on names outside units are kept as edges to unknown nodes.
func NewDependencyGraph(units []Unit) (*DependencyGraph, error) {
	g := &DependencyGraph{
		units:      make(map[string]Unit, len(units)),
		dependents: make(map[string][]string),
	}

	for _, unit := range units {
		if unit.Name == "" {
			return nil, NewConfigurationError("", "resource has empty name")
		}
		if _, exists := g.units[unit.Name]; exists {
			return nil, NewConfigurationError(unit.Name, "duplicate resource name")
		}
		g.units[unit.Name] = unit
		g.order = append(g.order, unit.Name)
	}

	for _, name := range g.order {
		for _, dep := range g.dependencies(name) {
			g.dependents[dep] = append(g.dependents[dep], name)
		}
	}

	return g, nil
}

func (g *DependencyGraph) dependencies(name string) []string {
	var deps []string
	for _, dep := range g.units[name].DependsOn {
		if dep != name {
			deps = append(deps, dep)
		}
	}
	return deps
}

// Cycle returns a dependency cycle passing through name, as a path that
// starts and ends with the same unit, or nil.
func (g *DependencyGraph) Cycle(name string) []string {
	visited := make(map[string]bool)
	var path []string

	var visit func(string) []string
	visit = func(node string) []string {
		path = append(path, node)
		defer func() { path = path[:len(path)-1] }()

		for _, dep := range g.dependencies(node) {
			if dep == name {
				return append(append([]string(nil), path...), dep)
			}
			if visited[dep] {
				continue
			}
			visited[dep] = true
			if cycle := visit(dep); cycle != nil {
				return cycle
			}
		}
		return nil
	}

	return visit(name)
}

// Levels groups units by depth: level 0 holds units without dependencies
// inside the graph. Units caught in a cycle, or depending on one, are left
// out.
func (g *DependencyGraph) Levels() [][]string {
	if g.levels != nil {
		return g.levels
	}

	inDegree := make(map[string]int, len(g.units))
	for _, name := range g.order {
		for _, dep := range g.dependencies(name) {
			if _, ok := g.units[dep]; ok {
				inDegree[name]++
			}
		}
	}

	var current []string
	for _, name := range g.order {
		if inDegree[name] == 0 {
			current = append(current, name)
		}
	}

	for len(current) > 0 {
		g.levels = append(g.levels, current)
		var next []string
		for _, name := range current {
			for _, dependent := range g.dependents[name] {
				inDegree[dependent]--
				if inDegree[dependent] == 0 {
					next = append(next, dependent)
				}
			}
		}
		sort.SliceStable(next, func(i, j int) bool { return g.index(next[i]) < g.index(next[j]) })
		current = next
	}

	return g.levels
}

func (g *DependencyGraph) index(name string) int {
	for i, n := range g.order {
		if n == name {
			return i
		}
	}
	return len(g.order)
}

// ToDOT generates a DOT format representation of the graph for
// visualization. The output can be rendered with Graphviz tools.
func (g *DependencyGraph) ToDOT() string {
	var sb strings.Builder

	sb.WriteString("digraph Resources {\n")
	sb.WriteString("  rankdir=LR;\n")
	sb.WriteString("  node [shape=box, style=rounded];\n\n")

	placed := make(map[string]bool)
	for level, names := range g.Levels() {
		sb.WriteString(fmt.Sprintf("  subgraph cluster_level_%d {\n", level))
		sb.WriteString(fmt.Sprintf("    label=\"Level %d\";\n", level))
		sb.WriteString("    style=dashed;\n")
		for _, name := range names {
			sb.WriteString(fmt.Sprintf("    %q [style=%q];\n", name, nodeStyle(name)))
			placed[name] = true
		}
		sb.WriteString("  }\n\n")
	}

	for _, name := range g.order {
		if !placed[name] {
			sb.WriteString(fmt.Sprintf("  %q [color=\"red\"];\n", name))
		}
	}

	for _, name := range g.order {
		for _, dep := range g.dependencies(name) {
			sb.WriteString(fmt.Sprintf("  %q -> %q;\n", dep, name))
		}
	}

	sb.WriteString("}\n")
	return sb.String()
}

// nodeStyle draws internal groups dashed.
func nodeStyle(name string) string {
	if IsInternal(name) {
		return "dashed,rounded"
	}
	return "rounded"
}

// formatCycle formats a cycle path for error messages.
func formatCycle(cycle []string) string {
	if len(cycle) == 0 {
		return ""
	}
	return strings.Join(cycle, " -> ")
}
