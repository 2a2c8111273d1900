package metrics

import (
	"fmt"
	"sort"
)

// Stats summarizes the subgraph reachable from one entry node.
type Stats struct {
	Entry           string `json:"entry"`
	NumBlocks       int    `json:"num_blocks"`
	NumEdges        int    `json:"num_edges"`
	UnresolvedCalls int    `json:"unresolved_calls"`
	Eccentricity    int    `json:"eccentricity"`
	LongestPath     int    `json:"longest_path"`
}

// ReachableStats computes the structural metrics of the subgraph reachable
// from entry.
func (g *Graph) ReachableStats(entry string) (*Stats, error) {
	if !g.nodes[entry] {
		return nil, fmt.Errorf("entry node %s not in graph", entry)
	}

	dist := g.bfs(entry)

	st := &Stats{Entry: entry, NumBlocks: len(dist)}
	ecc := 0
	for n, d := range dist {
		if d > ecc {
			ecc = d
		}
		st.UnresolvedCalls += g.unresolved[n]
		for _, dst := range g.adj[n] {
			if _, ok := dist[dst]; ok {
				st.NumEdges++
			}
		}
	}
	st.Eccentricity = ecc
	st.LongestPath = g.longestPath(entry)

	return st, nil
}

// bfs returns shortest-path distances from root for every reachable node.
func (g *Graph) bfs(root string) map[string]int {
	dist := map[string]int{root: 0}
	queue := []string{root}

	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for _, dst := range g.adj[n] {
			if _, ok := dist[dst]; !ok {
				dist[dst] = dist[n] + 1
				queue = append(queue, dst)
			}
		}
	}
	return dist
}

// longestPath returns the number of nodes on the longest loop-free path from
// root to a sink (a node with no outgoing edges). Worst case is exponential,
// like any simple-path enumeration, but exported CFGs stay small enough.
func (g *Graph) longestPath(root string) int {
	onPath := make(map[string]bool)

	var walk func(n string) int
	walk = func(n string) int {
		onPath[n] = true
		defer delete(onPath, n)

		best := 0
		for _, dst := range g.adj[n] {
			if onPath[dst] {
				continue
			}
			if l := walk(dst); l > best {
				best = l
			}
		}
		return best + 1
	}

	return walk(root)
}

// WriteDOT renders the graph in Graphviz DOT form, nodes sorted for
// reproducible output.
func (g *Graph) WriteDOT() string {
	var names []string
	for n := range g.nodes {
		names = append(names, n)
	}
	sort.Strings(names)

	out := "digraph cfg {\n"
	for _, n := range names {
		out += fmt.Sprintf("  %q;\n", n)
		for _, dst := range g.adj[n] {
			out += fmt.Sprintf("  %q -> %q;\n", n, dst)
		}
	}
	out += "}\n"
	return out
}
