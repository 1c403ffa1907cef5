package memtools

import (
	"context"
	"fmt"

	"github.com/HendryAvila/agent-memory/internal/memory"
	"github.com/HendryAvila/agent-memory/internal/result"
	"github.com/mark3labs/mcp-go/mcp"
)

// ─── memory_store ───────────────────────────────────────────────────────────

// StoreTool handles the memory_store MCP tool.
type StoreTool struct {
	svc *memory.Service
}

// NewStoreTool creates a StoreTool.
func NewStoreTool(svc *memory.Service) *StoreTool {
	return &StoreTool{svc: svc}
}

// Definition returns the MCP tool definition for memory_store.
func (t *StoreTool) Definition() mcp.Tool {
	return mcp.NewTool("memory_store",
		mcp.WithDescription(
			"Store information in persistent project memory with semantic search. Save decisions, "+
				"patterns, gotchas and anything a future session should know. #hashtags and [tags] in "+
				"the content are picked up as tags.",
		),
		mcp.WithString("content",
			mcp.Required(),
			mcp.Description("Content to store"),
		),
		mcp.WithString("category",
			mcp.Description("Category, e.g. memory, decision, note (default: memory)"),
		),
		mcp.WithString("tags",
			mcp.Description("Comma-separated tags"),
		),
	)
}

// Handle processes the memory_store tool call.
func (t *StoreTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	m, err := t.svc.Store(ctx,
		req.GetString("content", ""),
		req.GetString("category", ""),
		req.GetString("tags", ""),
	)
	if err != nil {
		return result.Error(err), nil
	}
	return result.JSON(result.StatusCreated, result.Fields{
		"id":       m.ID,
		"category": m.Category,
		"tags":     m.Tags,
	}), nil
}

// ─── memory_search ──────────────────────────────────────────────────────────

// SearchTool handles the memory_search MCP tool.
type SearchTool struct {
	svc   *memory.Service
	limit int
}

// NewSearchTool creates a SearchTool returning 5 results unless asked.
func NewSearchTool(svc *memory.Service) *SearchTool {
	return &SearchTool{svc: svc, limit: 5}
}

// SetDefaultLimit changes the n_results used when the caller omits it.
func (t *SearchTool) SetDefaultLimit(n int) {
	if n > 0 {
		t.limit = n
	}
}

// Definition returns the MCP tool definition for memory_search.
func (t *SearchTool) Definition() mcp.Tool {
	return mcp.NewTool("memory_search",
		mcp.WithDescription(
			"Search memories by semantic similarity. Content is summarized by default to save context; "+
				"use memory_get_full or detail_level=full for complete text.",
		),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search query, natural language or keywords"),
		),
		mcp.WithNumber("n_results",
			mcp.Description(fmt.Sprintf("Max results (default: %d)", t.limit)),
		),
		mcp.WithString("category",
			mcp.Description("Filter by category"),
		),
		mcp.WithString("detail_level",
			mcp.Description("summary (no content), standard (summarized, default) or full"),
			mcp.Enum(memory.DetailLevelValues()...),
		),
		mcp.WithBoolean("full_content",
			mcp.Description("Shorthand for detail_level=full"),
		),
	)
}

// Handle processes the memory_search tool call.
func (t *SearchTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	detail := memory.ParseDetailLevel(req.GetString("detail_level", ""))
	if boolArg(req, "full_content", false) {
		detail = memory.DetailFull
	}
	hits, err := t.svc.Search(ctx, req.GetString("query", ""), memory.SearchOptions{
		Category: req.GetString("category", ""),
		Limit:    intArg(req, "n_results", t.limit),
		Detail:   detail,
	})
	if err != nil {
		return result.Error(err), nil
	}
	tokens := 0
	for _, h := range hits {
		tokens += memory.EstimateTokens(h.Content)
	}
	return result.JSON(result.StatusSuccess, result.Fields{
		"results":          hits,
		"count":            len(hits),
		"detail_level":     detail,
		"estimated_tokens": tokens,
	}), nil
}

// ─── memory_get_full ────────────────────────────────────────────────────────

// GetFullTool handles the memory_get_full MCP tool.
type GetFullTool struct {
	svc *memory.Service
}

// NewGetFullTool creates a GetFullTool.
func NewGetFullTool(svc *memory.Service) *GetFullTool {
	return &GetFullTool{svc: svc}
}

// Definition returns the MCP tool definition for memory_get_full.
func (t *GetFullTool) Definition() mcp.Tool {
	return mcp.NewTool("memory_get_full",
		mcp.WithDescription("Get the complete content of one memory by ID, typically after memory_search."),
		mcp.WithString("memory_id",
			mcp.Required(),
			mcp.Description("Memory ID from search results"),
		),
	)
}

// Handle processes the memory_get_full tool call.
func (t *GetFullTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("memory_id", "")
	if id == "" {
		return result.Invalid("'memory_id' is required"), nil
	}
	m, err := t.svc.Get(ctx, id)
	if err != nil {
		return result.Error(err), nil
	}
	return result.JSON(result.StatusSuccess, result.Fields{"memory": m}), nil
}

// ─── memory_stats ───────────────────────────────────────────────────────────

// StatsTool handles the memory_stats MCP tool.
type StatsTool struct {
	svc     *memory.Service
	project string
}

// NewStatsTool creates a StatsTool reporting on project.
func NewStatsTool(svc *memory.Service, project string) *StatsTool {
	return &StatsTool{svc: svc, project: project}
}

// Definition returns the MCP tool definition for memory_stats.
func (t *StatsTool) Definition() mcp.Tool {
	return mcp.NewTool("memory_stats",
		mcp.WithDescription("Get record counts per collection, memories per category and storage size for this project."),
	)
}

// Handle processes the memory_stats tool call.
func (t *StatsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st, err := t.svc.Stats(ctx)
	if err != nil {
		return result.Error(err), nil
	}
	return result.JSON(result.StatusSuccess, result.Fields{
		"project_id":           t.project,
		"storage":              st.Storage,
		"memories_by_category": st.MemoriesByCategory,
	}), nil
}
