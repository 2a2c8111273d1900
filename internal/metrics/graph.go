package metrics

import (
	"fmt"
	"strings"

	"github.com/zheng/gocfg/internal/cfg"
)

// Edge kinds of the interprocedural graph.
const (
	KindIntra  = "intra"  // successor edge inside one function
	KindCall   = "call"   // call-site block -> callee entry block
	KindReturn = "return" // callee return block -> call-site block
)

// Graph is an interprocedural control-flow graph assembled from exported
// module documents. Nodes are qualified block identifiers
// ("module.function.label"); edges carry the kind they were derived from.
type Graph struct {
	nodes      map[string]bool
	adj        map[string][]string
	kindCount  map[string]int
	unresolved map[string]int // unresolved call count per node
	entries    map[string]string
}

// nodeID names an interprocedural graph node.
func nodeID(module, function, label string) string {
	return fmt.Sprintf("%s.%s.%s", module, function, label)
}

// BuildGraph links the per-function graphs of the given modules into one
// interprocedural graph: intra edges as recorded, a call edge into the callee
// entry block for every resolved call whose callee was exported, and a return
// edge from each of the callee's exit blocks back to the call site. Calls to
// external (unexported) callees are skipped.
func BuildGraph(mods []*cfg.ModuleGraph) *Graph {
	g := &Graph{
		nodes:      make(map[string]bool),
		adj:        make(map[string][]string),
		kindCount:  make(map[string]int),
		unresolved: make(map[string]int),
		entries:    make(map[string]string),
	}

	// Function name -> (module, graph) for callee lookup.
	type funcDoc struct {
		module string
		fg     *cfg.FunctionGraph
	}
	funcs := make(map[string]funcDoc)
	for _, mg := range mods {
		for _, fg := range mg.Functions {
			funcs[fg.Name] = funcDoc{module: mg.Module, fg: fg}
		}
	}

	for _, mg := range mods {
		for _, fg := range mg.Functions {
			g.entries[fg.Name] = nodeID(mg.Module, fg.Name, fg.Entry)

			for label := range fg.Blocks {
				g.addNode(nodeID(mg.Module, fg.Name, label))
			}

			for _, e := range fg.Edges {
				g.addEdge(nodeID(mg.Module, fg.Name, e.Src), nodeID(mg.Module, fg.Name, e.Dst), KindIntra)
			}

			for _, call := range fg.Calls {
				callee, ok := funcs[call.Dst]
				if !ok {
					continue // external callee, nothing known about its body
				}
				src := nodeID(mg.Module, fg.Name, call.Src)
				g.addEdge(src, nodeID(callee.module, call.Dst, callee.fg.Entry), KindCall)

				for _, ret := range callee.fg.Returns {
					g.addEdge(nodeID(callee.module, call.Dst, ret.Block), src, KindReturn)
				}
			}

			for _, label := range fg.UnresolvedCalls {
				g.unresolved[nodeID(mg.Module, fg.Name, label)]++
			}
		}
	}

	return g
}

func (g *Graph) addNode(id string) {
	g.nodes[id] = true
}

func (g *Graph) addEdge(src, dst, kind string) {
	g.addNode(src)
	g.addNode(dst)
	g.adj[src] = append(g.adj[src], dst)
	g.kindCount[kind]++
}

// NumNodes returns the node count.
func (g *Graph) NumNodes() int {
	return len(g.nodes)
}

// NumEdges returns the total edge count.
func (g *Graph) NumEdges() int {
	n := 0
	for _, c := range g.kindCount {
		n += c
	}
	return n
}

// EdgeCount returns how many edges of the given kind exist.
func (g *Graph) EdgeCount(kind string) int {
	return g.kindCount[kind]
}

// NumUnresolvedCalls returns the total unresolved call count across all nodes.
func (g *Graph) NumUnresolvedCalls() int {
	n := 0
	for _, c := range g.unresolved {
		n += c
	}
	return n
}

// EntryNode finds the entry block node of the function whose name is, or ends
// with, the given short name (e.g. "main" matches "example.com/app.main").
func (g *Graph) EntryNode(function string) (string, bool) {
	if entry, ok := g.entries[function]; ok {
		return entry, true
	}
	for name, entry := range g.entries {
		if strings.HasSuffix(name, "."+function) {
			return entry, true
		}
	}
	return "", false
}
