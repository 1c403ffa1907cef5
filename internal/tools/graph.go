package tools

import (
	"context"

	"github.com/HendryAvila/agent-memory/internal/graph"
	"github.com/HendryAvila/agent-memory/internal/result"
	"github.com/mark3labs/mcp-go/mcp"
)

func nodeTypeValues() []string {
	out := make([]string, len(graph.NodeTypes))
	for i, t := range graph.NodeTypes {
		out[i] = string(t)
	}
	return out
}

func relationshipValues() []string {
	out := make([]string, len(graph.Relationships))
	for i, r := range graph.Relationships {
		out[i] = string(r)
	}
	return out
}

// ─── graph_add_node ─────────────────────────────────────────────────────────

// AddNodeTool handles the graph_add_node MCP tool.
type AddNodeTool struct {
	graph *graph.Graph
}

// NewAddNodeTool creates an AddNodeTool.
func NewAddNodeTool(g *graph.Graph) *AddNodeTool { return &AddNodeTool{graph: g} }

// Definition returns the MCP tool definition for graph_add_node.
func (t *AddNodeTool) Definition() mcp.Tool {
	return mcp.NewTool("graph_add_node",
		mcp.WithDescription(
			"Add an architecture element to the project graph: an API, screen, user journey, component, "+
				"service, database, queue, event or data model.",
		),
		mcp.WithString("node_id",
			mcp.Required(),
			mcp.Description("Unique node ID, e.g. api-users or screen-login"),
		),
		mcp.WithString("node_type",
			mcp.Required(),
			mcp.Description("Node type"),
			mcp.Enum(nodeTypeValues()...),
		),
		mcp.WithString("name",
			mcp.Description("Display name (default: the node ID)"),
		),
		mcp.WithObject("properties",
			mcp.Description("Free-form properties, e.g. method, path, framework"),
		),
	)
}

// Handle processes the graph_add_node tool call.
func (t *AddNodeTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	n, err := t.graph.AddNode(ctx, graph.NodeParams{
		ID:         req.GetString("node_id", ""),
		Type:       req.GetString("node_type", ""),
		Name:       req.GetString("name", ""),
		Properties: objectArg(req, "properties"),
	})
	if err != nil {
		return result.Error(err), nil
	}
	return result.JSON(result.StatusCreated, result.Fields{"node": n}), nil
}

// ─── graph_add_edge ─────────────────────────────────────────────────────────

// AddEdgeTool handles the graph_add_edge MCP tool.
type AddEdgeTool struct {
	graph *graph.Graph
}

// NewAddEdgeTool creates an AddEdgeTool.
func NewAddEdgeTool(g *graph.Graph) *AddEdgeTool { return &AddEdgeTool{graph: g} }

// Definition returns the MCP tool definition for graph_add_edge.
func (t *AddEdgeTool) Definition() mcp.Tool {
	return mcp.NewTool("graph_add_edge",
		mcp.WithDescription(
			"Add a directed relationship between two existing nodes. from_id depends on to_id: "+
				"a screen calls an API, a service writes a database.",
		),
		mcp.WithString("from_id",
			mcp.Required(),
			mcp.Description("Source node ID"),
		),
		mcp.WithString("to_id",
			mcp.Required(),
			mcp.Description("Target node ID"),
		),
		mcp.WithString("relationship",
			mcp.Required(),
			mcp.Description("Relationship type"),
			mcp.Enum(relationshipValues()...),
		),
		mcp.WithObject("properties",
			mcp.Description("Free-form edge properties"),
		),
	)
}

// Handle processes the graph_add_edge tool call.
func (t *AddEdgeTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	e, err := t.graph.AddEdge(ctx,
		req.GetString("from_id", ""),
		req.GetString("to_id", ""),
		req.GetString("relationship", ""),
		objectArg(req, "properties"),
	)
	if err != nil {
		return result.Error(err), nil
	}
	return result.JSON(result.StatusCreated, result.Fields{"edge": e}), nil
}

// ─── graph_get_node ─────────────────────────────────────────────────────────

// GetNodeTool handles the graph_get_node MCP tool.
type GetNodeTool struct {
	graph *graph.Graph
}

// NewGetNodeTool creates a GetNodeTool.
func NewGetNodeTool(g *graph.Graph) *GetNodeTool { return &GetNodeTool{graph: g} }

// Definition returns the MCP tool definition for graph_get_node.
func (t *GetNodeTool) Definition() mcp.Tool {
	return mcp.NewTool("graph_get_node",
		mcp.WithDescription("Get a node with all of its incoming and outgoing relationships."),
		mcp.WithString("node_id",
			mcp.Required(),
			mcp.Description("Node ID"),
		),
	)
}

// Handle processes the graph_get_node tool call.
func (t *GetNodeTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	d, err := t.graph.GetNode(ctx, req.GetString("node_id", ""))
	if err != nil {
		return result.Error(err), nil
	}
	return result.JSON(result.StatusSuccess, result.Fields{
		"node":     d.Node,
		"outgoing": d.Outgoing,
		"incoming": d.Incoming,
	}), nil
}

// ─── graph_list_nodes ───────────────────────────────────────────────────────

// ListNodesTool handles the graph_list_nodes MCP tool.
type ListNodesTool struct {
	graph *graph.Graph
}

// NewListNodesTool creates a ListNodesTool.
func NewListNodesTool(g *graph.Graph) *ListNodesTool { return &ListNodesTool{graph: g} }

// Definition returns the MCP tool definition for graph_list_nodes.
func (t *ListNodesTool) Definition() mcp.Tool {
	return mcp.NewTool("graph_list_nodes",
		mcp.WithDescription("List nodes with their connection counts, optionally of one type."),
		mcp.WithString("node_type",
			mcp.Description("Filter by node type"),
			mcp.Enum(nodeTypeValues()...),
		),
		mcp.WithNumber("limit",
			mcp.Description("Max results (default: 100)"),
		),
	)
}

// Handle processes the graph_list_nodes tool call.
func (t *ListNodesTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	nodes, err := t.graph.ListNodes(ctx, req.GetString("node_type", ""), intArg(req, "limit", 100))
	if err != nil {
		return result.Error(err), nil
	}
	return result.JSON(result.StatusSuccess, result.Fields{"nodes": nodes, "count": len(nodes)}), nil
}

// ─── graph_delete_node ──────────────────────────────────────────────────────

// DeleteNodeTool handles the graph_delete_node MCP tool.
type DeleteNodeTool struct {
	graph *graph.Graph
}

// NewDeleteNodeTool creates a DeleteNodeTool.
func NewDeleteNodeTool(g *graph.Graph) *DeleteNodeTool { return &DeleteNodeTool{graph: g} }

// Definition returns the MCP tool definition for graph_delete_node.
func (t *DeleteNodeTool) Definition() mcp.Tool {
	return mcp.NewTool("graph_delete_node",
		mcp.WithDescription("Delete a node and every relationship touching it."),
		mcp.WithString("node_id",
			mcp.Required(),
			mcp.Description("Node ID"),
		),
	)
}

// Handle processes the graph_delete_node tool call.
func (t *DeleteNodeTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("node_id", "")
	removed, err := t.graph.DeleteNode(ctx, id)
	if err != nil {
		return result.Error(err), nil
	}
	return result.JSON(result.StatusDeleted, result.Fields{"node_id": id, "edges_removed": removed}), nil
}

// ─── graph_query_relationships ──────────────────────────────────────────────

// QueryRelationshipsTool handles the graph_query_relationships MCP tool.
type QueryRelationshipsTool struct {
	graph *graph.Graph
}

// NewQueryRelationshipsTool creates a QueryRelationshipsTool.
func NewQueryRelationshipsTool(g *graph.Graph) *QueryRelationshipsTool {
	return &QueryRelationshipsTool{graph: g}
}

// Definition returns the MCP tool definition for graph_query_relationships.
func (t *QueryRelationshipsTool) Definition() mcp.Tool {
	return mcp.NewTool("graph_query_relationships",
		mcp.WithDescription("Get the relationships of a node in one direction, optionally of one type."),
		mcp.WithString("node_id",
			mcp.Required(),
			mcp.Description("Node ID"),
		),
		mcp.WithString("direction",
			mcp.Description("Edge direction (default: both)"),
			mcp.Enum("incoming", "outgoing", "both"),
		),
		mcp.WithString("relationship",
			mcp.Description("Filter by relationship type"),
			mcp.Enum(relationshipValues()...),
		),
	)
}

// Handle processes the graph_query_relationships tool call.
func (t *QueryRelationshipsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	d, err := t.graph.QueryRelationships(ctx,
		req.GetString("node_id", ""),
		req.GetString("direction", ""),
		req.GetString("relationship", ""),
	)
	if err != nil {
		return result.Error(err), nil
	}
	return result.JSON(result.StatusSuccess, result.Fields{
		"node_id":  d.Node.ID,
		"outgoing": d.Outgoing,
		"incoming": d.Incoming,
	}), nil
}

// ─── graph_find_path ────────────────────────────────────────────────────────

// FindPathTool handles the graph_find_path MCP tool.
type FindPathTool struct {
	graph *graph.Graph
}

// NewFindPathTool creates a FindPathTool.
func NewFindPathTool(g *graph.Graph) *FindPathTool { return &FindPathTool{graph: g} }

// Definition returns the MCP tool definition for graph_find_path.
func (t *FindPathTool) Definition() mcp.Tool {
	return mcp.NewTool("graph_find_path",
		mcp.WithDescription(
			"Find the shortest path from one node to another along edge direction. "+
				"Useful to see how a screen reaches a database.",
		),
		mcp.WithString("from_id",
			mcp.Required(),
			mcp.Description("Start node ID"),
		),
		mcp.WithString("to_id",
			mcp.Required(),
			mcp.Description("End node ID"),
		),
	)
}

// Handle processes the graph_find_path tool call.
func (t *FindPathTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, err := t.graph.FindPath(ctx, req.GetString("from_id", ""), req.GetString("to_id", ""))
	if err != nil {
		return result.Error(err), nil
	}
	return result.JSON(result.StatusSuccess, result.Fields{"path": p}), nil
}

// ─── graph_analyze_impact ───────────────────────────────────────────────────

// AnalyzeImpactTool handles the graph_analyze_impact MCP tool.
type AnalyzeImpactTool struct {
	graph *graph.Graph
}

// NewAnalyzeImpactTool creates an AnalyzeImpactTool.
func NewAnalyzeImpactTool(g *graph.Graph) *AnalyzeImpactTool { return &AnalyzeImpactTool{graph: g} }

// Definition returns the MCP tool definition for graph_analyze_impact.
func (t *AnalyzeImpactTool) Definition() mcp.Tool {
	return mcp.NewTool("graph_analyze_impact",
		mcp.WithDescription(
			"Analyze what breaks if a node changes: direct and transitive dependents, "+
				"a risk level and a recommendation. Run it before modifying shared code.",
		),
		mcp.WithString("node_id",
			mcp.Required(),
			mcp.Description("Node ID to analyze"),
		),
	)
}

// Handle processes the graph_analyze_impact tool call.
func (t *AnalyzeImpactTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	im, err := t.graph.AnalyzeImpact(ctx, req.GetString("node_id", ""))
	if err != nil {
		return result.Error(err), nil
	}
	return result.JSON(result.StatusSuccess, result.Fields{"impact": im}), nil
}

// ─── graph_find_orphans ─────────────────────────────────────────────────────

// FindOrphansTool handles the graph_find_orphans MCP tool.
type FindOrphansTool struct {
	graph *graph.Graph
}

// NewFindOrphansTool creates a FindOrphansTool.
func NewFindOrphansTool(g *graph.Graph) *FindOrphansTool { return &FindOrphansTool{graph: g} }

// Definition returns the MCP tool definition for graph_find_orphans.
func (t *FindOrphansTool) Definition() mcp.Tool {
	return mcp.NewTool("graph_find_orphans",
		mcp.WithDescription("List nodes with no relationships, often dead code or missing wiring."),
	)
}

// Handle processes the graph_find_orphans tool call.
func (t *FindOrphansTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	orphans, err := t.graph.FindOrphans(ctx)
	if err != nil {
		return result.Error(err), nil
	}
	return result.JSON(result.StatusSuccess, result.Fields{"orphans": orphans, "count": len(orphans)}), nil
}

// ─── graph_stats ────────────────────────────────────────────────────────────

// GraphStatsTool handles the graph_stats MCP tool.
type GraphStatsTool struct {
	graph *graph.Graph
}

// NewGraphStatsTool creates a GraphStatsTool.
func NewGraphStatsTool(g *graph.Graph) *GraphStatsTool { return &GraphStatsTool{graph: g} }

// Definition returns the MCP tool definition for graph_stats.
func (t *GraphStatsTool) Definition() mcp.Tool {
	return mcp.NewTool("graph_stats",
		mcp.WithDescription("Get node and edge counts, orphans, connected components and the most connected nodes."),
	)
}

// Handle processes the graph_stats tool call.
func (t *GraphStatsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st, err := t.graph.Stats(ctx)
	if err != nil {
		return result.Error(err), nil
	}
	return result.JSON(result.StatusSuccess, result.Fields{"stats": st}), nil
}

// ─── graph_visualize ────────────────────────────────────────────────────────

// VisualizeTool handles the graph_visualize MCP tool.
type VisualizeTool struct {
	graph *graph.Graph
}

// NewVisualizeTool creates a VisualizeTool.
func NewVisualizeTool(g *graph.Graph) *VisualizeTool { return &VisualizeTool{graph: g} }

// Definition returns the MCP tool definition for graph_visualize.
func (t *VisualizeTool) Definition() mcp.Tool {
	return mcp.NewTool("graph_visualize",
		mcp.WithDescription(
			"Render the graph as a Mermaid flowchart: the whole graph, an explicit set of nodes, "+
				"or the neighbourhood of a focus node.",
		),
		mcp.WithArray("node_ids",
			mcp.Description("Render only these nodes and the edges between them"),
			mcp.Items(map[string]any{"type": "string"}),
		),
		mcp.WithString("focus",
			mcp.Description("Center the diagram on this node"),
		),
		mcp.WithNumber("depth",
			mcp.Description("Hops around the focus node (default: 2)"),
		),
	)
}

// Handle processes the graph_visualize tool call.
func (t *VisualizeTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var (
		diagram *graph.Diagram
		err     error
	)
	if ids := listArg(req, "node_ids"); len(ids) > 0 {
		diagram, err = t.graph.MermaidOf(ctx, ids)
	} else {
		diagram, err = t.graph.Mermaid(ctx, req.GetString("focus", ""), intArg(req, "depth", 2))
	}
	if err != nil {
		return result.Error(err), nil
	}
	return result.JSON(result.StatusSuccess, result.Fields{
		"format":  "mermaid",
		"diagram": diagram.Source,
		"nodes":   len(diagram.Nodes),
	}), nil
}

// ─── graph_search_nodes ─────────────────────────────────────────────────────

// SearchNodesTool handles the graph_search_nodes MCP tool.
type SearchNodesTool struct {
	graph *graph.Graph
}

// NewSearchNodesTool creates a SearchNodesTool.
func NewSearchNodesTool(g *graph.Graph) *SearchNodesTool { return &SearchNodesTool{graph: g} }

// Definition returns the MCP tool definition for graph_search_nodes.
func (t *SearchNodesTool) Definition() mcp.Tool {
	return mcp.NewTool("graph_search_nodes",
		mcp.WithDescription("Search nodes by semantic similarity of name, type and properties."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search query"),
		),
		mcp.WithString("node_type",
			mcp.Description("Filter by node type"),
			mcp.Enum(nodeTypeValues()...),
		),
		mcp.WithNumber("n_results",
			mcp.Description("Max results (default: 10)"),
		),
	)
}

// Handle processes the graph_search_nodes tool call.
func (t *SearchNodesTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	hits, err := t.graph.SearchNodes(ctx,
		req.GetString("query", ""),
		req.GetString("node_type", ""),
		intArg(req, "n_results", 10),
	)
	if err != nil {
		return result.Error(err), nil
	}
	return result.JSON(result.StatusSuccess, result.Fields{"results": hits, "count": len(hits)}), nil
}

// ─── graph_export_architecture ──────────────────────────────────────────────

// ExportArchitectureTool handles the graph_export_architecture MCP tool.
type ExportArchitectureTool struct {
	graph *graph.Graph
	dir   string
}

// NewExportArchitectureTool creates an ExportArchitectureTool. Relative
// output paths are resolved against projectDir.
func NewExportArchitectureTool(g *graph.Graph, projectDir string) *ExportArchitectureTool {
	return &ExportArchitectureTool{graph: g, dir: projectDir}
}

// Definition returns the MCP tool definition for graph_export_architecture.
func (t *ExportArchitectureTool) Definition() mcp.Tool {
	return mcp.NewTool("graph_export_architecture",
		mcp.WithDescription(
			"Export the graph as an ARCHITECTURE.md document with per-type sections and a Mermaid diagram. "+
				"Without output_path the document is only returned.",
		),
		mcp.WithString("output_path",
			mcp.Description("File to write, relative to the project directory"),
		),
	)
}

// Handle processes the graph_export_architecture tool call.
func (t *ExportArchitectureTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := resolvePath(t.dir, req.GetString("output_path", ""))
	doc, err := t.graph.ExportArchitecture(ctx, path)
	if err != nil {
		return result.Error(err), nil
	}
	fields := result.Fields{"content": doc}
	if path != "" {
		fields["path"] = path
	}
	return result.JSON(result.StatusSuccess, fields), nil
}
