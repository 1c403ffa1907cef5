package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/HendryAvila/agent-memory/internal/apperr"
	"github.com/HendryAvila/agent-memory/internal/logging"
	"github.com/HendryAvila/agent-memory/internal/store"
	"github.com/charmbracelet/log"
)

const dataKey = "data"

// Graph is the Architecture Graph for one namespace. It holds no topology
// state of its own: every query loads nodes and edges from the store and
// materializes a fresh View.
type Graph struct {
	store *store.Store
	risk  RiskPolicy
	log   *log.Logger
}

// New creates a Graph over s using policy for impact banding.
func New(s *store.Store, policy RiskPolicy, logger *log.Logger) *Graph {
	return &Graph{store: s, risk: policy, log: logging.OrDiscard(logger)}
}

// ─── Mutations ───────────────────────────────────────────────────────────────

// AddNode creates a node. It fails with ErrAlreadyExists if id is taken.
func (g *Graph) AddNode(ctx context.Context, p NodeParams) (*Node, error) {
	id := strings.TrimSpace(p.ID)
	if err := validateNodeID(id); err != nil {
		return nil, err
	}
	typ, err := ParseNodeType(p.Type)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(p.Name)
	if name == "" {
		name = id
	}

	n := &Node{ID: id, Type: typ, Name: name, Properties: p.Properties, CreatedAt: timeNow().UTC()}
	data, err := json.Marshal(n)
	if err != nil {
		return nil, apperr.Invalid("properties are not serializable: %v", err)
	}
	meta := map[string]string{dataKey: string(data), "type": string(typ), "name": name}
	if _, err := g.store.Insert(ctx, store.GraphNodes, id, nodeContent(n), meta); err != nil {
		return nil, err
	}
	g.log.Info("node added", "id", id, "type", typ)
	return n, nil
}

// AddEdge links two existing nodes. Missing endpoints fail with
// ErrMissingEndpoint; no placeholder nodes are created.
func (g *Graph) AddEdge(ctx context.Context, from, to, relationship string, props map[string]any) (*Edge, error) {
	from, to = strings.TrimSpace(from), strings.TrimSpace(to)
	rel, err := ParseRelationship(relationship)
	if err != nil {
		return nil, err
	}
	if from == "" || to == "" {
		return nil, apperr.Invalid("from and to are required")
	}
	if from == to {
		return nil, apperr.Invalid("a node cannot relate to itself (%q)", from)
	}
	for _, end := range []struct{ role, id string }{{"from", from}, {"to", to}} {
		if _, err := g.store.Get(ctx, store.GraphNodes, end.id); err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				return nil, fmt.Errorf("%w: %s node %q does not exist", apperr.ErrMissingEndpoint, end.role, end.id)
			}
			return nil, err
		}
	}

	e := &Edge{From: from, To: to, Relationship: rel, Properties: props, CreatedAt: timeNow().UTC()}
	data, err := json.Marshal(e)
	if err != nil {
		return nil, apperr.Invalid("properties are not serializable: %v", err)
	}
	meta := map[string]string{dataKey: string(data), "from": from, "to": to, "relationship": string(rel)}
	content := fmt.Sprintf("%s %s %s", from, rel, to)
	if _, err := g.store.Insert(ctx, store.GraphEdges, EdgeID(from, to, rel), content, meta); err != nil {
		return nil, err
	}
	g.log.Info("edge added", "from", from, "to", to, "relationship", rel)
	return e, nil
}

// DeleteNode removes a node and every edge touching it. Edges go first so
// that an interrupted delete never leaves an edge pointing at nothing.
func (g *Graph) DeleteNode(ctx context.Context, id string) (removedEdges int, err error) {
	if _, err := g.store.Get(ctx, store.GraphNodes, id); err != nil {
		return 0, err
	}
	for _, key := range []string{"from", "to"} {
		n, err := g.store.DeleteWhere(ctx, store.GraphEdges, store.Filter{key: id})
		if err != nil {
			return removedEdges, err
		}
		removedEdges += n
	}
	if err := g.store.Delete(ctx, store.GraphNodes, id); err != nil {
		return removedEdges, err
	}
	g.log.Info("node deleted", "id", id, "edges", removedEdges)
	return removedEdges, nil
}

// ─── Lookups ─────────────────────────────────────────────────────────────────

// GetNode returns a node with its incident edges.
func (g *Graph) GetNode(ctx context.Context, id string) (*NodeDetail, error) {
	v, err := g.view(ctx)
	if err != nil {
		return nil, err
	}
	n, ok := v.Node(id)
	if !ok {
		return nil, apperr.NotFound("node", id)
	}
	return &NodeDetail{Node: n, Outgoing: nonNilEdges(v.Outgoing(id)), Incoming: nonNilEdges(v.Incoming(id))}, nil
}

// ListNodes returns nodes sorted by id, optionally restricted to one type.
func (g *Graph) ListNodes(ctx context.Context, typ string, limit int) ([]NodeSummary, error) {
	var want NodeType
	if strings.TrimSpace(typ) != "" {
		t, err := ParseNodeType(typ)
		if err != nil {
			return nil, err
		}
		want = t
	}
	v, err := g.view(ctx)
	if err != nil {
		return nil, err
	}
	out := []NodeSummary{}
	for _, id := range v.IDs() {
		n, _ := v.Node(id)
		if want != "" && n.Type != want {
			continue
		}
		out = append(out, NodeSummary{Node: n, Connections: v.Degree(id)})
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// QueryRelationships returns the edges of id in the requested direction,
// optionally restricted to one relationship.
func (g *Graph) QueryRelationships(ctx context.Context, id, direction, relationship string) (*NodeDetail, error) {
	dir, err := ParseDirection(direction)
	if err != nil {
		return nil, err
	}
	var rel Relationship
	if strings.TrimSpace(relationship) != "" {
		if rel, err = ParseRelationship(relationship); err != nil {
			return nil, err
		}
	}
	detail, err := g.GetNode(ctx, id)
	if err != nil {
		return nil, err
	}
	if dir == DirIn {
		detail.Outgoing = []Edge{}
	}
	if dir == DirOut {
		detail.Incoming = []Edge{}
	}
	if rel != "" {
		detail.Outgoing = filterRel(detail.Outgoing, rel)
		detail.Incoming = filterRel(detail.Incoming, rel)
	}
	return detail, nil
}

// SearchNodes ranks nodes by similarity of their name, type and properties.
func (g *Graph) SearchNodes(ctx context.Context, query, typ string, limit int) ([]NodeHit, error) {
	var filter store.Filter
	if strings.TrimSpace(typ) != "" {
		t, err := ParseNodeType(typ)
		if err != nil {
			return nil, err
		}
		filter = store.Filter{"type": string(t)}
	}
	if limit <= 0 {
		limit = 10
	}
	hits, err := g.store.Search(ctx, store.GraphNodes, query, limit, filter)
	if err != nil {
		return nil, err
	}
	out := make([]NodeHit, 0, len(hits))
	for i := range hits {
		n, err := decodeNode(&hits[i].Record)
		if err != nil {
			return nil, err
		}
		out = append(out, NodeHit{Node: *n, Score: hits[i].Score})
	}
	return out, nil
}

// ─── Topology ────────────────────────────────────────────────────────────────

// FindPath returns the shortest directed path from one node to another.
func (g *Graph) FindPath(ctx context.Context, from, to string) (*Path, error) {
	v, err := g.view(ctx)
	if err != nil {
		return nil, err
	}
	for _, id := range []string{from, to} {
		if !v.Has(id) {
			return nil, apperr.NotFound("node", id)
		}
	}
	nodes, ok := v.ShortestPath(from, to)
	if !ok {
		return nil, fmt.Errorf("%w: no path from %q to %q", apperr.ErrNotFound, from, to)
	}
	p := &Path{Nodes: nodes, Steps: []Step{}, Length: len(nodes) - 1}
	for i := 1; i < len(nodes); i++ {
		p.Steps = append(p.Steps, Step{From: nodes[i-1], To: nodes[i], Relationship: v.Relationship(nodes[i-1], nodes[i])})
	}
	return p, nil
}

// AnalyzeImpact reports every node that depends on id, directly or through
// other nodes, and bands the result with the configured risk policy.
func (g *Graph) AnalyzeImpact(ctx context.Context, id string) (*Impact, error) {
	v, err := g.view(ctx)
	if err != nil {
		return nil, err
	}
	n, ok := v.Node(id)
	if !ok {
		return nil, apperr.NotFound("node", id)
	}

	im := &Impact{
		Node:                  n,
		DirectlyDependent:     []Dependent{},
		TransitivelyDependent: []Dependent{},
		ImpactedByType:        map[string]int{},
		Dependencies:          len(v.Dependencies(id)),
	}
	deps := v.Dependents(id)
	ids := make([]string, 0, len(deps))
	for dep := range deps {
		ids = append(ids, dep)
	}
	sort.Slice(ids, func(i, j int) bool {
		if deps[ids[i]] != deps[ids[j]] {
			return deps[ids[i]] < deps[ids[j]]
		}
		return ids[i] < ids[j]
	})
	for _, dep := range ids {
		dn, _ := v.Node(dep)
		d := Dependent{ID: dep, Name: dn.Name, Type: dn.Type, Depth: deps[dep]}
		if d.Depth == 1 {
			im.DirectlyDependent = append(im.DirectlyDependent, d)
		} else {
			im.TransitivelyDependent = append(im.TransitivelyDependent, d)
		}
		im.ImpactedByType[string(dn.Type)]++
		if d.Depth > im.MaxDepth {
			im.MaxDepth = d.Depth
		}
	}
	im.TotalImpacted = len(ids)
	im.RiskLevel = g.risk.Classify(im.TotalImpacted, im.MaxDepth)
	im.Recommendation = im.RiskLevel.Recommendation()
	return im, nil
}

// FindOrphans returns nodes with no incident edges, sorted by id.
func (g *Graph) FindOrphans(ctx context.Context) ([]Node, error) {
	v, err := g.view(ctx)
	if err != nil {
		return nil, err
	}
	orphans := v.Orphans()
	if orphans == nil {
		orphans = []Node{}
	}
	return orphans, nil
}

// Stats aggregates counts and connectivity over the whole graph.
func (g *Graph) Stats(ctx context.Context) (*Stats, error) {
	v, err := g.view(ctx)
	if err != nil {
		return nil, err
	}
	st := &Stats{
		TotalNodes:          len(v.IDs()),
		TotalEdges:          len(v.Edges()),
		NodesByType:         map[string]int{},
		EdgesByRelationship: map[string]int{},
		OrphanedNodes:       len(v.Orphans()),
		ConnectedComponents: v.Components(),
		MostConnected:       []Connected{},
	}
	for _, id := range v.IDs() {
		n, _ := v.Node(id)
		st.NodesByType[string(n.Type)]++
		if deg := v.Degree(id); deg > 0 {
			st.MostConnected = append(st.MostConnected, Connected{ID: id, Name: n.Name, Connections: deg})
		}
	}
	for _, e := range v.Edges() {
		st.EdgesByRelationship[string(e.Relationship)]++
	}
	sort.SliceStable(st.MostConnected, func(i, j int) bool {
		return st.MostConnected[i].Connections > st.MostConnected[j].Connections
	})
	if len(st.MostConnected) > 5 {
		st.MostConnected = st.MostConnected[:5]
	}
	return st, nil
}

// view loads the current nodes and edges and materializes them.
func (g *Graph) view(ctx context.Context) (*View, error) {
	nodeRecs, err := g.store.List(ctx, store.GraphNodes, nil, 0)
	if err != nil {
		return nil, err
	}
	edgeRecs, err := g.store.List(ctx, store.GraphEdges, nil, 0)
	if err != nil {
		return nil, err
	}
	nodes := make([]Node, 0, len(nodeRecs))
	for i := range nodeRecs {
		n, err := decodeNode(&nodeRecs[i])
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, *n)
	}
	edges := make([]Edge, 0, len(edgeRecs))
	for i := range edgeRecs {
		var e Edge
		if err := json.Unmarshal([]byte(edgeRecs[i].Metadata[dataKey]), &e); err != nil {
			return nil, fmt.Errorf("decode edge %s: %w", edgeRecs[i].ID, err)
		}
		edges = append(edges, e)
	}
	return Materialize(nodes, edges), nil
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func decodeNode(rec *store.Record) (*Node, error) {
	var n Node
	if err := json.Unmarshal([]byte(rec.Metadata[dataKey]), &n); err != nil {
		return nil, fmt.Errorf("decode node %s: %w", rec.ID, err)
	}
	return &n, nil
}

// nodeContent is the text embedded for node search.
func nodeContent(n *Node) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s) %s", n.Name, n.Type, n.ID)
	keys := make([]string, 0, len(n.Properties))
	for k := range n.Properties {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "\n%s: %v", k, n.Properties[k])
	}
	return b.String()
}

func filterRel(edges []Edge, rel Relationship) []Edge {
	out := []Edge{}
	for _, e := range edges {
		if e.Relationship == rel {
			out = append(out, e)
		}
	}
	return out
}

func nonNilEdges(edges []Edge) []Edge {
	if edges == nil {
		return []Edge{}
	}
	return edges
}
