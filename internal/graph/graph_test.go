package graph

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/HendryAvila/agent-memory/internal/apperr"
	"github.com/HendryAvila/agent-memory/internal/store"
)

// ─── Test helpers ────────────────────────────────────────────────────────────

func newTestGraph(t *testing.T) *Graph {
	t.Helper()
	s := store.Open(store.Config{Dir: filepath.Join(t.TempDir(), "ns")})
	t.Cleanup(func() { _ = s.Close() })
	return New(s, DefaultRiskPolicy, nil)
}

func mustNode(t *testing.T, g *Graph, id, typ string) {
	t.Helper()
	if _, err := g.AddNode(context.Background(), NodeParams{ID: id, Type: typ}); err != nil {
		t.Fatalf("AddNode(%s): %v", id, err)
	}
}

func mustEdge(t *testing.T, g *Graph, from, to, rel string) {
	t.Helper()
	if _, err := g.AddEdge(context.Background(), from, to, rel, nil); err != nil {
		t.Fatalf("AddEdge(%s -> %s): %v", from, to, err)
	}
}

func depIDs(ds []Dependent) []string {
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = d.ID
	}
	return out
}

func nodeIDs(ns []Node) []string {
	out := make([]string, len(ns))
	for i, n := range ns {
		out[i] = n.ID
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ─── Nodes and edges ─────────────────────────────────────────────────────────

func TestAddNode_Defaults(t *testing.T) {
	g := newTestGraph(t)
	n, err := g.AddNode(context.Background(), NodeParams{ID: "api-users", Type: "API"})
	if err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	if n.Name != "api-users" {
		t.Errorf("Name = %q, want id fallback", n.Name)
	}
	if n.Type != NodeAPI {
		t.Errorf("Type = %q, want api", n.Type)
	}
}

func TestAddNode_Duplicate(t *testing.T) {
	g := newTestGraph(t)
	mustNode(t, g, "svc-auth", "service")
	_, err := g.AddNode(context.Background(), NodeParams{ID: "svc-auth", Type: "service"})
	if !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("err = %v, want ErrAlreadyExists", err)
	}
}

func TestAddNode_Invalid(t *testing.T) {
	g := newTestGraph(t)
	tests := []struct {
		name string
		p    NodeParams
	}{
		{"empty id", NodeParams{Type: "api"}},
		{"bad id", NodeParams{ID: "has space", Type: "api"}},
		{"bad type", NodeParams{ID: "x", Type: "lambda"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := g.AddNode(context.Background(), tt.p)
			if !errors.Is(err, apperr.ErrInvalidArgument) {
				t.Errorf("err = %v, want ErrInvalidArgument", err)
			}
		})
	}
}

func TestAddEdge_MissingEndpoint(t *testing.T) {
	g := newTestGraph(t)
	mustNode(t, g, "a", "component")

	_, err := g.AddEdge(context.Background(), "a", "ghost", "calls", nil)
	if !errors.Is(err, apperr.ErrMissingEndpoint) {
		t.Fatalf("err = %v, want ErrMissingEndpoint", err)
	}
	if !strings.Contains(err.Error(), "to node") {
		t.Errorf("error should name the missing end: %v", err)
	}

	nodes, err := g.ListNodes(context.Background(), "", 0)
	if err != nil {
		t.Fatalf("ListNodes: %v", err)
	}
	if len(nodes) != 1 {
		t.Errorf("placeholder node created: %d nodes", len(nodes))
	}
}

func TestAddEdge_Rejections(t *testing.T) {
	g := newTestGraph(t)
	mustNode(t, g, "a", "component")
	mustNode(t, g, "b", "component")
	mustEdge(t, g, "a", "b", "uses")
	ctx := context.Background()

	if _, err := g.AddEdge(ctx, "a", "a", "uses", nil); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Errorf("self edge: err = %v, want ErrInvalidArgument", err)
	}
	if _, err := g.AddEdge(ctx, "a", "b", "uses", nil); !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("duplicate: err = %v, want ErrAlreadyExists", err)
	}
	if _, err := g.AddEdge(ctx, "a", "b", "likes", nil); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Errorf("bad relationship: err = %v, want ErrInvalidArgument", err)
	}
	// A different relationship between the same pair is a distinct edge.
	if _, err := g.AddEdge(ctx, "a", "b", "reads", nil); err != nil {
		t.Errorf("second relationship: %v", err)
	}
}

func TestDeleteNode_Cascades(t *testing.T) {
	g := newTestGraph(t)
	ctx := context.Background()
	mustNode(t, g, "a", "component")
	mustNode(t, g, "b", "service")
	mustNode(t, g, "c", "database")
	mustEdge(t, g, "a", "b", "calls")
	mustEdge(t, g, "b", "c", "reads")
	mustEdge(t, g, "a", "c", "reads")

	removed, err := g.DeleteNode(ctx, "b")
	if err != nil {
		t.Fatalf("DeleteNode: %v", err)
	}
	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}
	st, err := g.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.TotalNodes != 2 || st.TotalEdges != 1 {
		t.Errorf("after delete: nodes=%d edges=%d, want 2 and 1", st.TotalNodes, st.TotalEdges)
	}
	if _, err := g.GetNode(ctx, "b"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("GetNode(deleted): err = %v, want ErrNotFound", err)
	}
	if _, err := g.DeleteNode(ctx, "b"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second delete: err = %v, want ErrNotFound", err)
	}
}

func TestQueryRelationships_Direction(t *testing.T) {
	g := newTestGraph(t)
	ctx := context.Background()
	mustNode(t, g, "screen", "screen")
	mustNode(t, g, "api", "api")
	mustNode(t, g, "db", "database")
	mustEdge(t, g, "screen", "api", "calls")
	mustEdge(t, g, "api", "db", "reads")
	mustEdge(t, g, "api", "db", "writes")

	both, err := g.QueryRelationships(ctx, "api", "", "")
	if err != nil {
		t.Fatalf("QueryRelationships: %v", err)
	}
	if len(both.Outgoing) != 2 || len(both.Incoming) != 1 {
		t.Errorf("both: out=%d in=%d, want 2 and 1", len(both.Outgoing), len(both.Incoming))
	}

	in, _ := g.QueryRelationships(ctx, "api", "incoming", "")
	if len(in.Outgoing) != 0 || len(in.Incoming) != 1 {
		t.Errorf("in: out=%d in=%d", len(in.Outgoing), len(in.Incoming))
	}

	writes, _ := g.QueryRelationships(ctx, "api", "out", "writes")
	if len(writes.Outgoing) != 1 || writes.Outgoing[0].Relationship != RelWrites {
		t.Errorf("out/writes = %+v", writes.Outgoing)
	}

	if _, err := g.QueryRelationships(ctx, "api", "sideways", ""); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Errorf("bad direction: err = %v", err)
	}
}

func TestListNodes_TypeFilterAndConnections(t *testing.T) {
	g := newTestGraph(t)
	ctx := context.Background()
	mustNode(t, g, "b-api", "api")
	mustNode(t, g, "a-api", "api")
	mustNode(t, g, "db", "database")
	mustEdge(t, g, "a-api", "db", "reads")

	apis, err := g.ListNodes(ctx, "api", 0)
	if err != nil {
		t.Fatalf("ListNodes: %v", err)
	}
	if len(apis) != 2 || apis[0].ID != "a-api" || apis[1].ID != "b-api" {
		t.Fatalf("apis = %+v", apis)
	}
	if apis[0].Connections != 1 || apis[1].Connections != 0 {
		t.Errorf("connections = %d, %d", apis[0].Connections, apis[1].Connections)
	}
}

// ─── Topology ────────────────────────────────────────────────────────────────

func TestScreenCallsAPI(t *testing.T) {
	g := newTestGraph(t)
	ctx := context.Background()
	mustNode(t, g, "api-users", "api")
	mustNode(t, g, "screen-login", "screen")
	mustEdge(t, g, "screen-login", "api-users", "calls")

	p, err := g.FindPath(ctx, "screen-login", "api-users")
	if err != nil {
		t.Fatalf("FindPath: %v", err)
	}
	if !equal(p.Nodes, []string{"screen-login", "api-users"}) {
		t.Errorf("path = %v", p.Nodes)
	}
	if p.Length != 1 || p.Steps[0].Relationship != RelCalls {
		t.Errorf("steps = %+v", p.Steps)
	}

	im, err := g.AnalyzeImpact(ctx, "api-users")
	if err != nil {
		t.Fatalf("AnalyzeImpact: %v", err)
	}
	if !equal(depIDs(im.DirectlyDependent), []string{"screen-login"}) {
		t.Errorf("direct = %v", depIDs(im.DirectlyDependent))
	}
	if len(im.TransitivelyDependent) != 0 {
		t.Errorf("transitive = %v", depIDs(im.TransitivelyDependent))
	}
	if im.RiskLevel != RiskLow {
		t.Errorf("risk = %s, want low", im.RiskLevel)
	}
}

func TestFindPath_LexicographicTieBreak(t *testing.T) {
	g := newTestGraph(t)
	for _, id := range []string{"start", "m-mid", "b-mid", "end"} {
		mustNode(t, g, id, "component")
	}
	mustEdge(t, g, "start", "m-mid", "calls")
	mustEdge(t, g, "start", "b-mid", "calls")
	mustEdge(t, g, "m-mid", "end", "calls")
	mustEdge(t, g, "b-mid", "end", "calls")

	for i := 0; i < 5; i++ {
		p, err := g.FindPath(context.Background(), "start", "end")
		if err != nil {
			t.Fatalf("FindPath: %v", err)
		}
		if !equal(p.Nodes, []string{"start", "b-mid", "end"}) {
			t.Fatalf("path = %v, want via b-mid", p.Nodes)
		}
	}
}

func TestFindPath_NotFound(t *testing.T) {
	g := newTestGraph(t)
	ctx := context.Background()
	mustNode(t, g, "a", "component")
	mustNode(t, g, "b", "component")
	mustEdge(t, g, "b", "a", "uses")

	if _, err := g.FindPath(ctx, "a", "b"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("against edge direction: err = %v, want ErrNotFound", err)
	}
	if _, err := g.FindPath(ctx, "a", "ghost"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing node: err = %v, want ErrNotFound", err)
	}
	p, err := g.FindPath(ctx, "a", "a")
	if err != nil || !equal(p.Nodes, []string{"a"}) || p.Length != 0 {
		t.Errorf("self path = %+v, %v", p, err)
	}
}

func TestAnalyzeImpact_TransitiveAndRisk(t *testing.T) {
	g := newTestGraph(t)
	ctx := context.Background()
	mustNode(t, g, "db", "database")
	mustNode(t, g, "api", "api")
	mustEdge(t, g, "api", "db", "reads")
	// Four screens call the api, putting five nodes downstream of db.
	for _, s := range []string{"s1", "s2", "s3", "s4"} {
		mustNode(t, g, s, "screen")
		mustEdge(t, g, s, "api", "calls")
	}

	im, err := g.AnalyzeImpact(ctx, "db")
	if err != nil {
		t.Fatalf("AnalyzeImpact: %v", err)
	}
	if !equal(depIDs(im.DirectlyDependent), []string{"api"}) {
		t.Errorf("direct = %v", depIDs(im.DirectlyDependent))
	}
	if !equal(depIDs(im.TransitivelyDependent), []string{"s1", "s2", "s3", "s4"}) {
		t.Errorf("transitive = %v", depIDs(im.TransitivelyDependent))
	}
	if im.TotalImpacted != 5 || im.MaxDepth != 2 {
		t.Errorf("total=%d depth=%d", im.TotalImpacted, im.MaxDepth)
	}
	if im.ImpactedByType["screen"] != 4 || im.ImpactedByType["api"] != 1 {
		t.Errorf("by type = %v", im.ImpactedByType)
	}
	if im.RiskLevel != RiskMedium {
		t.Errorf("risk = %s, want medium", im.RiskLevel)
	}

	leaf, err := g.AnalyzeImpact(ctx, "s1")
	if err != nil {
		t.Fatalf("AnalyzeImpact(s1): %v", err)
	}
	if leaf.RiskLevel != RiskNone || leaf.TotalImpacted != 0 || leaf.Dependencies != 2 {
		t.Errorf("leaf = %+v", leaf)
	}
}

func TestAnalyzeImpact_Cycle(t *testing.T) {
	g := newTestGraph(t)
	mustNode(t, g, "a", "service")
	mustNode(t, g, "b", "service")
	mustEdge(t, g, "a", "b", "calls")
	mustEdge(t, g, "b", "a", "calls")

	im, err := g.AnalyzeImpact(context.Background(), "a")
	if err != nil {
		t.Fatalf("AnalyzeImpact: %v", err)
	}
	if im.TotalImpacted != 1 || !equal(depIDs(im.DirectlyDependent), []string{"b"}) {
		t.Errorf("impact = %+v", im)
	}
}

func TestFindOrphans(t *testing.T) {
	g := newTestGraph(t)
	mustNode(t, g, "a", "component")
	mustNode(t, g, "b", "component")
	mustNode(t, g, "c", "component")
	mustEdge(t, g, "a", "b", "uses")

	orphans, err := g.FindOrphans(context.Background())
	if err != nil {
		t.Fatalf("FindOrphans: %v", err)
	}
	if !equal(nodeIDs(orphans), []string{"c"}) {
		t.Errorf("orphans = %v, want [c]", nodeIDs(orphans))
	}
}

func TestMutationsVisibleToNextQuery(t *testing.T) {
	g := newTestGraph(t)
	ctx := context.Background()
	mustNode(t, g, "a", "component")
	mustNode(t, g, "b", "component")

	if o, _ := g.FindOrphans(ctx); len(o) != 2 {
		t.Fatalf("orphans = %v", nodeIDs(o))
	}
	mustEdge(t, g, "a", "b", "uses")
	if o, _ := g.FindOrphans(ctx); len(o) != 0 {
		t.Errorf("orphans after edge = %v", nodeIDs(o))
	}
	if _, err := g.DeleteNode(ctx, "b"); err != nil {
		t.Fatalf("DeleteNode: %v", err)
	}
	if o, _ := g.FindOrphans(ctx); !equal(nodeIDs(o), []string{"a"}) {
		t.Errorf("orphans after delete = %v", nodeIDs(o))
	}
}

func TestStats(t *testing.T) {
	g := newTestGraph(t)
	ctx := context.Background()
	mustNode(t, g, "api", "api")
	mustNode(t, g, "db", "database")
	mustNode(t, g, "screen", "screen")
	mustNode(t, g, "lonely", "model")
	mustEdge(t, g, "screen", "api", "calls")
	mustEdge(t, g, "api", "db", "reads")

	st, err := g.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.TotalNodes != 4 || st.TotalEdges != 2 {
		t.Errorf("totals = %d/%d", st.TotalNodes, st.TotalEdges)
	}
	if st.NodesByType["api"] != 1 || st.EdgesByRelationship["reads"] != 1 {
		t.Errorf("by type = %v, by rel = %v", st.NodesByType, st.EdgesByRelationship)
	}
	if st.OrphanedNodes != 1 || st.ConnectedComponents != 2 {
		t.Errorf("orphans=%d components=%d", st.OrphanedNodes, st.ConnectedComponents)
	}
	if len(st.MostConnected) == 0 || st.MostConnected[0].ID != "api" || st.MostConnected[0].Connections != 2 {
		t.Errorf("most connected = %+v", st.MostConnected)
	}
}

func TestSearchNodes(t *testing.T) {
	g := newTestGraph(t)
	ctx := context.Background()
	if _, err := g.AddNode(ctx, NodeParams{ID: "svc-billing", Type: "service", Name: "Billing Service",
		Properties: map[string]any{"owner": "payments team"}}); err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	if _, err := g.AddNode(ctx, NodeParams{ID: "screen-profile", Type: "screen", Name: "Profile Screen"}); err != nil {
		t.Fatalf("AddNode: %v", err)
	}

	hits, err := g.SearchNodes(ctx, "billing payments", "", 5)
	if err != nil {
		t.Fatalf("SearchNodes: %v", err)
	}
	if len(hits) == 0 || hits[0].Node.ID != "svc-billing" {
		t.Fatalf("hits = %+v", hits)
	}
	if hits[0].Node.Properties["owner"] != "payments team" {
		t.Errorf("properties lost: %v", hits[0].Node.Properties)
	}

	screens, err := g.SearchNodes(ctx, "billing", "screen", 5)
	if err != nil {
		t.Fatalf("SearchNodes(screen): %v", err)
	}
	if len(screens) != 1 || screens[0].Node.ID != "screen-profile" {
		t.Errorf("type filter = %+v", screens)
	}
}

// ─── Rendering ───────────────────────────────────────────────────────────────

func TestMermaid(t *testing.T) {
	g := newTestGraph(t)
	ctx := context.Background()
	if _, err := g.AddNode(ctx, NodeParams{ID: "api/users", Type: "api", Name: `Users "v2"`}); err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	mustNode(t, g, "db", "database")
	mustNode(t, g, "far", "model")
	mustEdge(t, g, "api/users", "db", "reads")

	d, err := g.Mermaid(ctx, "", 0)
	if err != nil {
		t.Fatalf("Mermaid: %v", err)
	}
	out := d.Source
	if len(d.Nodes) != 3 {
		t.Errorf("nodes = %v, want 3", d.Nodes)
	}
	for _, want := range []string{
		"graph TD",
		`n_api_users["Users #quot;v2#quot;"]:::api`,
		`n_db[("db")]:::database`,
		"n_api_users -->|reads| n_db",
		"classDef database",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("mermaid missing %q:\n%s", want, out)
		}
	}

	focused, err := g.Mermaid(ctx, "db", 1)
	if err != nil {
		t.Fatalf("Mermaid(focus): %v", err)
	}
	if strings.Contains(focused.Source, "n_far") || len(focused.Nodes) != 2 {
		t.Errorf("focused diagram includes unrelated node:\n%s", focused.Source)
	}
	if _, err := g.Mermaid(ctx, "ghost", 1); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing focus: err = %v", err)
	}
}

func TestMermaidOf(t *testing.T) {
	g := newTestGraph(t)
	ctx := context.Background()
	mustNode(t, g, "a", "service")
	mustNode(t, g, "b", "service")
	mustNode(t, g, "c", "database")
	mustEdge(t, g, "a", "b", "calls")
	mustEdge(t, g, "b", "c", "writes")

	d, err := g.MermaidOf(ctx, []string{"a", "b", "ghost", "a"})
	if err != nil {
		t.Fatalf("MermaidOf: %v", err)
	}
	out := d.Source
	if len(d.Nodes) != 2 {
		t.Errorf("nodes = %v, want [a b]", d.Nodes)
	}
	if !strings.Contains(out, "n_a -->|calls| n_b") {
		t.Errorf("missing edge between selected nodes:\n%s", out)
	}
	if strings.Contains(out, "n_c") || strings.Count(out, "n_a[[") != 1 {
		t.Errorf("unexpected nodes in diagram:\n%s", out)
	}
	if _, err := g.MermaidOf(ctx, []string{"ghost"}); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("no known ids: err = %v", err)
	}
}

func TestMermaid_EscapesLabels(t *testing.T) {
	g := newTestGraph(t)
	ctx := context.Background()
	if _, err := g.AddNode(ctx, NodeParams{ID: "x", Type: "api", Name: "line1\nline2]:::db (v[2]) {#}"}); err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	d, err := g.Mermaid(ctx, "", 0)
	if err != nil {
		t.Fatalf("Mermaid: %v", err)
	}
	want := `    n_x["line1<br/>line2#93;:::db #40;v#91;2#93;#41; #123;#35;#125;"]:::api` + "\n"
	if !strings.Contains(d.Source, want) {
		t.Errorf("label not escaped onto one line:\n%s", d.Source)
	}
	if strings.Count(d.Source, "\n") != 3 {
		t.Errorf("expected header, one node and one classDef line:\n%s", d.Source)
	}
	if len(d.Nodes) != 1 {
		t.Errorf("nodes = %v, want [x]", d.Nodes)
	}
}

func TestMermaidIDs_Collisions(t *testing.T) {
	got := mermaidIDs([]string{"a-b", "a.b", "a_b"})
	if got["a-b"] != "n_a_b" || got["a.b"] != "n_a_b_2" || got["a_b"] != "n_a_b_3" {
		t.Errorf("ids = %v", got)
	}
}

func TestExportArchitecture(t *testing.T) {
	g := newTestGraph(t)
	ctx := context.Background()
	mustNode(t, g, "api-users", "api")
	mustNode(t, g, "screen-login", "screen")
	mustEdge(t, g, "screen-login", "api-users", "calls")

	path := filepath.Join(t.TempDir(), "docs", "ARCHITECTURE.md")
	doc, err := g.ExportArchitecture(ctx, path)
	if err != nil {
		t.Fatalf("ExportArchitecture: %v", err)
	}
	for _, want := range []string{
		"# Architecture Map",
		"## APIs",
		"## Screens",
		"- calls → `api-users`",
		"## Visual Diagram",
		"```mermaid",
	} {
		if !strings.Contains(doc, want) {
			t.Errorf("export missing %q", want)
		}
	}
	if strings.Index(doc, "## APIs") > strings.Index(doc, "## Screens") {
		t.Error("type sections out of order")
	}
	written, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if string(written) != doc {
		t.Error("written file differs from returned document")
	}
}
