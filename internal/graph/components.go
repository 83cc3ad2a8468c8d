package graph

import "slices"

// Components returns the connected components of the topology. Each
// component is sorted, and components are ordered by their first member.
// A topology with more than one component cannot carry every flow to
// every node, which the analysis pipeline reports as a warning.
func Components(t *Topology) [][]string {
	visited := make(map[string]bool, len(t.adj))
	var out [][]string
	for _, n := range t.AllNodes() {
		if visited[n] {
			continue
		}
		component := bfsComponent(n, t.adj, visited)
		slices.Sort(component)
		out = append(out, component)
	}
	return out
}

// bfsComponent performs BFS from start on the adjacency list and returns
// all reachable nodes. It marks visited nodes as it goes.
func bfsComponent(start string, adj map[string]map[string]bool, visited map[string]bool) []string {
	var component []string
	queue := []string{start}
	visited[start] = true

	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		component = append(component, node)
		for neighbor := range adj[node] {
			if !visited[neighbor] {
				visited[neighbor] = true
				queue = append(queue, neighbor)
			}
		}
	}

	return component
}
