// Package dag provides a small directed acyclic graph used to order module
// invocations. It supports cycle-safe edge insertion and a deterministic
// topological sort: among ready nodes, insertion order breaks ties, so a
// graph built the same way always sorts the same way.
package dag

import (
	"errors"
	"fmt"
)

// ErrCycle is returned when an edge would introduce a dependency cycle.
var ErrCycle = errors.New("cycle detected")

// ErrNodeNotFound is returned when an operation references a missing node.
var ErrNodeNotFound = errors.New("node not found")

// ErrDuplicateNode is returned when adding a node that already exists.
var ErrDuplicateNode = errors.New("duplicate node")

// ErrSelfEdge is returned when an edge would create a self-loop.
var ErrSelfEdge = errors.New("self-referencing edge")

// DAG is a directed acyclic graph of string-identified nodes.
// Edges point from a node to its dependencies: if A depends on B,
// there is an edge from A to B.
type DAG struct {
	order []string // insertion order, drives sort determinism
	// adjacency maps node → set of dependency IDs (forward edges).
	adjacency map[string]map[string]bool
	// reverse maps node → set of dependent IDs (backward edges).
	reverse map[string]map[string]bool
}

// New creates an empty DAG.
func New() *DAG {
	return &DAG{
		adjacency: make(map[string]map[string]bool),
		reverse:   make(map[string]map[string]bool),
	}
}

// AddNode adds a node. Returns ErrDuplicateNode if it already exists.
func (d *DAG) AddNode(id string) error {
	if _, exists := d.adjacency[id]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateNode, id)
	}
	d.order = append(d.order, id)
	d.adjacency[id] = make(map[string]bool)
	d.reverse[id] = make(map[string]bool)
	return nil
}

// AddEdge records that from depends on to. Both nodes must already exist.
// Returns an error if either node is missing, the edge is a self-loop, or
// it would introduce a cycle.
func (d *DAG) AddEdge(from, to string) error {
	if from == to {
		return fmt.Errorf("%w: %s", ErrSelfEdge, from)
	}
	if _, ok := d.adjacency[from]; !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, from)
	}
	if _, ok := d.adjacency[to]; !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, to)
	}
	if d.adjacency[from][to] {
		return nil
	}
	// Does 'to' already reach 'from'? Then from→to would close a cycle.
	if d.hasPath(to, from) {
		return fmt.Errorf("%w: edge %s → %s would create a cycle", ErrCycle, from, to)
	}
	d.adjacency[from][to] = true
	d.reverse[to][from] = true
	return nil
}

// Has reports whether a node exists.
func (d *DAG) Has(id string) bool {
	_, ok := d.adjacency[id]
	return ok
}

// Len returns the number of nodes.
func (d *DAG) Len() int {
	return len(d.order)
}

// Nodes returns all node IDs in insertion order.
func (d *DAG) Nodes() []string {
	out := make([]string, len(d.order))
	copy(out, d.order)
	return out
}

// TopologicalSort returns node IDs with every dependency before its
// dependents. Ready nodes are emitted in insertion order, so the result is
// fully deterministic for a deterministically built graph. Returns ErrCycle
// if the graph contains a cycle.
func (d *DAG) TopologicalSort() ([]string, error) {
	inDegree := make(map[string]int, len(d.order))
	for _, id := range d.order {
		inDegree[id] = len(d.adjacency[id])
	}

	sorted := make([]string, 0, len(d.order))
	emitted := make(map[string]bool, len(d.order))
	for len(sorted) < len(d.order) {
		progressed := false
		for _, id := range d.order {
			if emitted[id] || inDegree[id] != 0 {
				continue
			}
			emitted[id] = true
			sorted = append(sorted, id)
			progressed = true
			for dependent := range d.reverse[id] {
				inDegree[dependent]--
			}
		}
		if !progressed {
			return nil, fmt.Errorf("%w: not all nodes could be ordered (%d of %d)",
				ErrCycle, len(sorted), len(d.order))
		}
	}
	return sorted, nil
}

// Ancestors returns all transitive dependencies of a node, in insertion
// order. Returns nil for an unknown node.
func (d *DAG) Ancestors(id string) []string {
	if !d.Has(id) {
		return nil
	}
	visited := make(map[string]bool)
	d.collect(id, d.adjacency, visited)
	var out []string
	for _, n := range d.order {
		if visited[n] {
			out = append(out, n)
		}
	}
	return out
}

// Descendants returns all transitive dependents of a node, in insertion
// order. Returns nil for an unknown node.
func (d *DAG) Descendants(id string) []string {
	if !d.Has(id) {
		return nil
	}
	visited := make(map[string]bool)
	d.collect(id, d.reverse, visited)
	var out []string
	for _, n := range d.order {
		if visited[n] {
			out = append(out, n)
		}
	}
	return out
}

// hasPath reports whether there is a directed path from src to dst over
// forward edges.
func (d *DAG) hasPath(src, dst string) bool {
	if src == dst {
		return false
	}
	visited := make(map[string]bool)
	queue := []string{src}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for dep := range d.adjacency[cur] {
			if dep == dst {
				return true
			}
			if !visited[dep] {
				visited[dep] = true
				queue = append(queue, dep)
			}
		}
	}
	return false
}

func (d *DAG) collect(id string, edges map[string]map[string]bool, visited map[string]bool) {
	for next := range edges[id] {
		if !visited[next] {
			visited[next] = true
			d.collect(next, edges, visited)
		}
	}
}
