package graph

import (
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
	"gonum.org/v1/gonum/graph/traverse"
)

// View is an immutable in-memory snapshot of the graph. It is built by
// Materialize for a single query and discarded afterwards.
//
// gonum node ids are indices into the lexicographically sorted id list, so
// ascending gonum id order is also lexicographic node id order.
type View struct {
	ids   []string
	index map[string]int64
	nodes map[string]Node
	edges []Edge
	deg   map[string]int

	fwd *simple.DirectedGraph
	rev *simple.DirectedGraph
	// rels holds every relationship between an ordered pair, sorted.
	rels map[[2]int64][]Relationship
}

// Materialize builds a View from stored nodes and edges. Edges that reference
// an unknown node are ignored.
func Materialize(nodes []Node, edges []Edge) *View {
	v := &View{
		ids:   make([]string, 0, len(nodes)),
		index: make(map[string]int64, len(nodes)),
		nodes: make(map[string]Node, len(nodes)),
		fwd:   simple.NewDirectedGraph(),
		rev:   simple.NewDirectedGraph(),
		rels:  make(map[[2]int64][]Relationship),
		deg:   make(map[string]int),
	}
	for _, n := range nodes {
		if _, dup := v.nodes[n.ID]; dup {
			continue
		}
		v.nodes[n.ID] = n
		v.ids = append(v.ids, n.ID)
	}
	sort.Strings(v.ids)
	for i, id := range v.ids {
		v.index[id] = int64(i)
		v.fwd.AddNode(simple.Node(i))
		v.rev.AddNode(simple.Node(i))
	}

	for _, e := range edges {
		from, okFrom := v.index[e.From]
		to, okTo := v.index[e.To]
		if !okFrom || !okTo || from == to {
			continue
		}
		v.edges = append(v.edges, e)
		v.deg[e.From]++
		v.deg[e.To]++
		key := [2]int64{from, to}
		if _, seen := v.rels[key]; !seen {
			v.fwd.SetEdge(simple.Edge{F: simple.Node(from), T: simple.Node(to)})
			v.rev.SetEdge(simple.Edge{F: simple.Node(to), T: simple.Node(from)})
		}
		v.rels[key] = append(v.rels[key], e.Relationship)
	}
	for key := range v.rels {
		rs := v.rels[key]
		sort.Slice(rs, func(i, j int) bool { return rs[i] < rs[j] })
	}
	sort.Slice(v.edges, func(i, j int) bool {
		a, b := v.edges[i], v.edges[j]
		if a.From != b.From {
			return a.From < b.From
		}
		if a.To != b.To {
			return a.To < b.To
		}
		return a.Relationship < b.Relationship
	})
	return v
}

// Has reports whether id is a node of the view.
func (v *View) Has(id string) bool {
	_, ok := v.index[id]
	return ok
}

// Node returns the node with id.
func (v *View) Node(id string) (Node, bool) {
	n, ok := v.nodes[id]
	return n, ok
}

// IDs returns every node id in lexicographic order.
func (v *View) IDs() []string { return v.ids }

// Edges returns every edge ordered by (from, to, relationship).
func (v *View) Edges() []Edge { return v.edges }

// Outgoing returns the edges leaving id.
func (v *View) Outgoing(id string) []Edge {
	var out []Edge
	for _, e := range v.edges {
		if e.From == id {
			out = append(out, e)
		}
	}
	return out
}

// Incoming returns the edges entering id.
func (v *View) Incoming(id string) []Edge {
	var in []Edge
	for _, e := range v.edges {
		if e.To == id {
			in = append(in, e)
		}
	}
	return in
}

// Degree is the number of edges incident to id.
func (v *View) Degree(id string) int {
	return v.deg[id]
}

// Orphans returns nodes without incident edges, sorted by id.
func (v *View) Orphans() []Node {
	var out []Node
	for _, id := range v.ids {
		if v.Degree(id) == 0 {
			out = append(out, v.nodes[id])
		}
	}
	return out
}

// Components returns the number of weakly connected components.
func (v *View) Components() int {
	if len(v.ids) == 0 {
		return 0
	}
	return len(topo.ConnectedComponents(graph.Undirect{G: v.fwd}))
}

// ShortestPath returns the path from one node to another with the fewest
// edges. Among equally short paths it picks the one whose node sequence is
// lexicographically smallest. ok is false when to is unreachable.
func (v *View) ShortestPath(from, to string) (path []string, ok bool) {
	src, okSrc := v.index[from]
	dst, okDst := v.index[to]
	if !okSrc || !okDst {
		return nil, false
	}
	if src == dst {
		return []string{from}, true
	}

	// Distance from every node to dst, walking edges backwards.
	dist := depths(v.rev, dst)
	d, reachable := dist[src]
	if !reachable {
		return nil, false
	}

	path = []string{from}
	cur := src
	for cur != dst {
		next := int64(-1)
		for _, n := range neighbours(v.fwd, cur) {
			if nd, ok := dist[n]; ok && nd == d-1 {
				next = n
				break
			}
		}
		if next < 0 {
			return nil, false
		}
		cur, d = next, d-1
		path = append(path, v.ids[cur])
	}
	return path, true
}

// Relationship returns the relationship used for the hop from -> to.
func (v *View) Relationship(from, to string) Relationship {
	rs := v.rels[[2]int64{v.index[from], v.index[to]}]
	if len(rs) == 0 {
		return ""
	}
	return rs[0]
}

// Dependents returns every node that reaches id, keyed by hop count.
func (v *View) Dependents(id string) map[string]int {
	return v.reach(v.rev, id)
}

// Dependencies returns every node reachable from id, keyed by hop count.
func (v *View) Dependencies(id string) map[string]int {
	return v.reach(v.fwd, id)
}

// Neighbourhood returns the ids within depth hops of id ignoring direction.
func (v *View) Neighbourhood(id string, depth int) []string {
	i, ok := v.index[id]
	if !ok {
		return nil
	}
	var out []string
	b := traverse.BreadthFirst{}
	b.Walk(graph.Undirect{G: v.fwd}, simple.Node(i), func(n graph.Node, d int) bool {
		if d > depth {
			return true
		}
		out = append(out, v.ids[n.ID()])
		return false
	})
	sort.Strings(out)
	return out
}

func (v *View) reach(g *simple.DirectedGraph, id string) map[string]int {
	i, ok := v.index[id]
	if !ok {
		return nil
	}
	out := make(map[string]int)
	for n, d := range depths(g, i) {
		if n != i {
			out[v.ids[n]] = d
		}
	}
	return out
}

// depths runs a breadth-first walk from start and records the hop count of
// every reachable node, start included at zero.
func depths(g traverse.Graph, start int64) map[int64]int {
	out := make(map[int64]int)
	b := traverse.BreadthFirst{}
	b.Walk(g, simple.Node(start), func(n graph.Node, d int) bool {
		out[n.ID()] = d
		return false
	})
	return out
}

// neighbours returns the successors of id in g sorted ascending.
func neighbours(g *simple.DirectedGraph, id int64) []int64 {
	var out []int64
	it := g.From(id)
	for it.Next() {
		out = append(out, it.Node().ID())
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
