package memtools

import (
	"context"

	"github.com/HendryAvila/agent-memory/internal/memory"
	"github.com/HendryAvila/agent-memory/internal/result"
	"github.com/mark3labs/mcp-go/mcp"
)

// ─── conversation_store ─────────────────────────────────────────────────────

// ConversationStoreTool handles the conversation_store MCP tool.
type ConversationStoreTool struct {
	convs *memory.Conversations
}

// NewConversationStoreTool creates a ConversationStoreTool.
func NewConversationStoreTool(convs *memory.Conversations) *ConversationStoreTool {
	return &ConversationStoreTool{convs: convs}
}

// Definition returns the MCP tool definition for conversation_store.
func (t *ConversationStoreTool) Definition() mcp.Tool {
	return mcp.NewTool("conversation_store",
		mcp.WithDescription(
			"Store a summary of this session before it ends: what was done, key decisions, key changes "+
				"and next steps. The next session starts from it.",
		),
		mcp.WithString("summary",
			mcp.Required(),
			mcp.Description("Session summary"),
		),
		mcp.WithArray("key_decisions",
			mcp.Description("Key decisions made"),
			mcp.Items(map[string]any{"type": "string"}),
		),
		mcp.WithArray("key_changes",
			mcp.Description("Key changes made"),
			mcp.Items(map[string]any{"type": "string"}),
		),
		mcp.WithArray("next_steps",
			mcp.Description("Next steps"),
			mcp.Items(map[string]any{"type": "string"}),
		),
		mcp.WithString("session_id",
			mcp.Description("Session identifier (default: session-<timestamp>)"),
		),
	)
}

// Handle processes the conversation_store tool call.
func (t *ConversationStoreTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	conv, err := t.convs.Store(ctx, memory.ConversationParams{
		SessionID:    req.GetString("session_id", ""),
		Summary:      req.GetString("summary", ""),
		KeyDecisions: listArg(req, "key_decisions"),
		KeyChanges:   listArg(req, "key_changes"),
		NextSteps:    listArg(req, "next_steps"),
	})
	if err != nil {
		return result.Error(err), nil
	}
	return result.JSON(result.StatusCreated, result.Fields{
		"id":         conv.ID,
		"session_id": conv.SessionID,
	}), nil
}

// ─── conversation_search ────────────────────────────────────────────────────

// ConversationSearchTool handles the conversation_search MCP tool.
type ConversationSearchTool struct {
	convs *memory.Conversations
}

// NewConversationSearchTool creates a ConversationSearchTool.
func NewConversationSearchTool(convs *memory.Conversations) *ConversationSearchTool {
	return &ConversationSearchTool{convs: convs}
}

// Definition returns the MCP tool definition for conversation_search.
func (t *ConversationSearchTool) Definition() mcp.Tool {
	return mcp.NewTool("conversation_search",
		mcp.WithDescription("Search past session summaries by semantic similarity."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search query"),
		),
		mcp.WithNumber("n_results",
			mcp.Description("Max results (default: 10)"),
		),
	)
}

// Handle processes the conversation_search tool call.
func (t *ConversationSearchTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	hits, err := t.convs.Search(ctx, req.GetString("query", ""), intArg(req, "n_results", 10))
	if err != nil {
		return result.Error(err), nil
	}
	return result.JSON(result.StatusSuccess, result.Fields{
		"results": hits,
		"count":   len(hits),
	}), nil
}

// ─── conversation_get_recent ────────────────────────────────────────────────

// ConversationRecentTool handles the conversation_get_recent MCP tool.
type ConversationRecentTool struct {
	convs *memory.Conversations
}

// NewConversationRecentTool creates a ConversationRecentTool.
func NewConversationRecentTool(convs *memory.Conversations) *ConversationRecentTool {
	return &ConversationRecentTool{convs: convs}
}

// Definition returns the MCP tool definition for conversation_get_recent.
func (t *ConversationRecentTool) Definition() mcp.Tool {
	return mcp.NewTool("conversation_get_recent",
		mcp.WithDescription("Get the most recent session summaries, newest first."),
		mcp.WithNumber("limit",
			mcp.Description("Max results (default: 5)"),
		),
	)
}

// Handle processes the conversation_get_recent tool call.
func (t *ConversationRecentTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	convs, err := t.convs.Recent(ctx, intArg(req, "limit", 5))
	if err != nil {
		return result.Error(err), nil
	}
	return result.JSON(result.StatusSuccess, result.Fields{
		"conversations": convs,
		"count":         len(convs),
	}), nil
}
