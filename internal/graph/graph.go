// Package graph provides dependency-cycle detection for the injector's
// binding graph.
package graph

// Graph is a directed graph over comparable node keys. It is not safe for
// concurrent use; the injector populates it once during Build.
type Graph[K comparable] struct {
	edges map[K][]K
}

// New creates an empty graph.
func New[K comparable]() *Graph[K] {
	return &Graph[K]{edges: make(map[K][]K)}
}

// AddNode records a node and its outgoing dependency edges. Adding the same
// node again replaces its edges.
func (g *Graph[K]) AddNode(node K, deps []K) {
	g.edges[node] = deps
}

// Size returns the number of nodes in the graph.
func (g *Graph[K]) Size() int {
	return len(g.edges)
}

// FindCycle searches the graph for a dependency cycle. It returns the cycle
// as a path of node keys (first and last element equal) and true if one
// exists, or nil and false otherwise.
func (g *Graph[K]) FindCycle() ([]K, bool) {
	const (
		unvisited = iota
		visiting
		done
	)

	state := make(map[K]int, len(g.edges))
	var stack []K

	var visit func(node K) ([]K, bool)
	visit = func(node K) ([]K, bool) {
		switch state[node] {
		case visiting:
			// Back edge: slice the current path at the repeated node.
			for i, n := range stack {
				if n == node {
					cycle := make([]K, 0, len(stack)-i+1)
					cycle = append(cycle, stack[i:]...)
					cycle = append(cycle, node)
					return cycle, true
				}
			}
			return []K{node, node}, true
		case done:
			return nil, false
		}

		state[node] = visiting
		stack = append(stack, node)

		for _, dep := range g.edges[node] {
			if cycle, found := visit(dep); found {
				return cycle, true
			}
		}

		stack = stack[:len(stack)-1]
		state[node] = done
		return nil, false
	}

	for node := range g.edges {
		if state[node] == unvisited {
			if cycle, found := visit(node); found {
				return cycle, true
			}
		}
	}

	return nil, false
}
