// Package resources implements MCP resource handlers.
//
// Resources provide read-only data that the host can consume for context.
// They use URI-based addressing (memory://...) following MCP conventions.
package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/HendryAvila/agent-memory/internal/graph"
	"github.com/HendryAvila/agent-memory/internal/memory"
	"github.com/HendryAvila/agent-memory/internal/tasks"
	"github.com/mark3labs/mcp-go/mcp"
)

const (
	StatusURI       = "memory://project/status"
	ArchitectureURI = "memory://project/architecture"
)

// Handler serves the namespace's resources.
type Handler struct {
	project  string
	memories *memory.Service
	tasks    *tasks.Ledger
	graph    *graph.Graph
}

// NewHandler creates a resource Handler with its dependencies.
func NewHandler(project string, m *memory.Service, l *tasks.Ledger, g *graph.Graph) *Handler {
	return &Handler{project: project, memories: m, tasks: l, graph: g}
}

// Status is the document served at StatusURI.
type Status struct {
	ProjectID string        `json:"project_id"`
	Memory    *memory.Stats `json:"memory"`
	Tasks     *tasks.Stats  `json:"tasks"`
	Graph     *graph.Stats  `json:"graph"`
}

// StatusResource returns the MCP resource definition for project status.
func (h *Handler) StatusResource() mcp.Resource {
	return mcp.NewResource(
		StatusURI,
		"Project Memory Status",
		mcp.WithResourceDescription("Record counts, task counts and graph statistics for this project"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleStatus returns the current project status as JSON.
func (h *Handler) HandleStatus(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	st, err := h.status(ctx)
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling status: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (h *Handler) status(ctx context.Context) (*Status, error) {
	ms, err := h.memories.Stats(ctx)
	if err != nil {
		return nil, err
	}
	ts, err := h.tasks.Stats(ctx)
	if err != nil {
		return nil, err
	}
	gs, err := h.graph.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return &Status{ProjectID: h.project, Memory: ms, Tasks: ts, Graph: gs}, nil
}

// ArchitectureResource returns the MCP resource definition for the
// architecture document.
func (h *Handler) ArchitectureResource() mcp.Resource {
	return mcp.NewResource(
		ArchitectureURI,
		"Architecture Map",
		mcp.WithResourceDescription("The architecture graph rendered as Markdown with a Mermaid diagram"),
		mcp.WithMIMEType("text/markdown"),
	)
}

// HandleArchitecture renders the architecture graph.
func (h *Handler) HandleArchitecture(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	doc, err := h.graph.ExportArchitecture(ctx, "")
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "text/markdown",
			Text:     doc,
		},
	}, nil
}

// errorResource returns a resource with an error message.
func errorResource(uri, message string) []mcp.ResourceContents {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/plain",
			Text:     fmt.Sprintf("Error: %s", message),
		},
	}
}
