// Package equivalence groups nodes into node equivalence classes (NECs):
// nodes that play the same structural role in every flow's forwarding DAG.
package equivalence

import (
	"errors"
	"fmt"
	"slices"

	"github.com/dusk-indust/flowrank/internal/graph"
)

// ErrCyclic is returned when an adjacency that must be a DAG has a cycle.
var ErrCyclic = errors.New("equivalence: adjacency is cyclic")

// Adjacency maps a node to its successors, sorted and without duplicates.
// Nodes without successors may be absent.
type Adjacency map[string][]string

// BuildAdjacency returns the forward and reverse adjacency of edges and
// the sorted set of nodes that appear in either.
func BuildAdjacency(edges []graph.Edge) (fwd, rev Adjacency, nodes []string) {
	fwd, rev = make(Adjacency), make(Adjacency)
	seen := make(map[string]bool)
	for _, e := range edges {
		fwd[e.Source] = append(fwd[e.Source], e.Target)
		rev[e.Target] = append(rev[e.Target], e.Source)
		seen[e.Source] = true
		seen[e.Target] = true
	}
	for _, adj := range []Adjacency{fwd, rev} {
		for n, succ := range adj {
			slices.Sort(succ)
			adj[n] = slices.Compact(succ)
		}
	}
	nodes = make([]string, 0, len(seen))
	for n := range seen {
		nodes = append(nodes, n)
	}
	slices.Sort(nodes)
	return fwd, rev, nodes
}

// TopologicalSort orders the nodes of adj with Kahn's algorithm so that
// every edge u->v places u before v. Ties are broken by name. It returns
// ErrCyclic if adj has a cycle, including a self-loop.
func TopologicalSort(adj Adjacency) ([]string, error) {
	inDegree := make(map[string]int)
	for n, succ := range adj {
		if _, ok := inDegree[n]; !ok {
			inDegree[n] = 0
		}
		for _, s := range succ {
			inDegree[s]++
		}
	}

	// Queue of nodes with in-degree 0
	var queue []string
	for n, d := range inDegree {
		if d == 0 {
			queue = append(queue, n)
		}
	}
	slices.Sort(queue)

	sorted := make([]string, 0, len(inDegree))
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		sorted = append(sorted, current)

		var ready []string
		for _, s := range adj[current] {
			inDegree[s]--
			if inDegree[s] == 0 {
				ready = append(ready, s)
			}
		}
		slices.Sort(ready)
		queue = append(queue, ready...)
	}

	if len(sorted) != len(inDegree) {
		return nil, fmt.Errorf("%w: %d of %d nodes lie on or behind a cycle",
			ErrCyclic, len(inDegree)-len(sorted), len(inDegree))
	}
	return sorted, nil
}

// onStack marks a node whose height is being computed.
const onStack = -1

// Height returns 0 for a node with no successors in adj, otherwise one
// more than the largest height among its successors. memo caches results
// across calls on the same adj and must not be shared between adjacencies.
//
// adj must be acyclic; check it with TopologicalSort first. Height panics
// if it reaches a node that is already being computed.
func Height(adj Adjacency, node string, memo map[string]int) int {
	if h, ok := memo[node]; ok {
		if h == onStack {
			panic(fmt.Errorf("%w: node %q reached from itself", ErrCyclic, node))
		}
		return h
	}
	memo[node] = onStack
	h := 0
	for _, s := range adj[node] {
		h = max(h, 1+Height(adj, s, memo))
	}
	memo[node] = h
	return h
}
