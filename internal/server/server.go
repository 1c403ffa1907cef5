// Package server wires all MCP components and creates the server instance.
//
// This is the composition root: it creates the concrete services for one
// project namespace and injects them into the tools, prompts and resources
// that depend on them. No business logic lives here, only wiring.
package server

import (
	"context"

	"github.com/HendryAvila/agent-memory/internal/config"
	"github.com/HendryAvila/agent-memory/internal/logging"
	"github.com/HendryAvila/agent-memory/internal/memtools"
	"github.com/HendryAvila/agent-memory/internal/prompts"
	"github.com/HendryAvila/agent-memory/internal/resources"
	"github.com/HendryAvila/agent-memory/internal/tools"
	"github.com/charmbracelet/log"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Name is the server name reported to MCP clients.
const Name = "agent-memory"

// New creates and configures the MCP server with all tools, prompts,
// and resources registered. This is the single place where all
// dependencies are resolved.
//
// The returned cleanup function closes the store and must be called on
// shutdown (typically via defer). It is always non-nil.
func New(cfg *config.Config, logger *log.Logger) (*server.MCPServer, func(), error) {
	logger = logging.OrDiscard(logger)

	c, err := Build(cfg, logger)
	if err != nil {
		return nil, noop, err
	}

	s := server.NewMCPServer(
		Name,
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithToolHandlerMiddleware(serialize(logger)),
		server.WithInstructions(serverInstructions()),
	)

	registerMemoryTools(s, c)
	registerTaskTools(s, c)
	registerGraphTools(s, c)
	registerDocTools(s, c)

	// --- Register prompts ---

	contextPrompt := prompts.NewContextPrompt(c.Briefing, cfg.Project.String())
	s.AddPrompt(contextPrompt.Definition(), contextPrompt.Handle)

	statusPrompt := prompts.NewStatusPrompt()
	s.AddPrompt(statusPrompt.Definition(), statusPrompt.Handle)

	// --- Register resources ---

	resourceHandler := resources.NewHandler(cfg.Project.String(), c.Memories, c.Tasks, c.Graph)
	s.AddResource(resourceHandler.StatusResource(), resourceHandler.HandleStatus)
	s.AddResource(resourceHandler.ArchitectureResource(), resourceHandler.HandleArchitecture)

	logger.Info("server ready", "project", cfg.Project, "namespace", cfg.NamespaceDir(), "embedder", cfg.Embedder)
	return s, c.Close, nil
}

// tool is what every tool struct in the tools package provides.
type tool interface {
	Definition() mcp.Tool
	Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
}

// noop is the cleanup returned when construction fails.
func noop() {}

// registerMemoryTools registers the memory and conversation tools.
func registerMemoryTools(s *server.MCPServer, c *Components) {
	storeTool := memtools.NewStoreTool(c.Memories)
	s.AddTool(storeTool.Definition(), storeTool.Handle)

	searchTool := memtools.NewSearchTool(c.Memories)
	searchTool.SetDefaultLimit(c.Config.SearchLimit)
	s.AddTool(searchTool.Definition(), searchTool.Handle)

	getFull := memtools.NewGetFullTool(c.Memories)
	s.AddTool(getFull.Definition(), getFull.Handle)

	statsTool := memtools.NewStatsTool(c.Memories, c.Config.Project.String())
	s.AddTool(statsTool.Definition(), statsTool.Handle)

	// --- Conversations ---
	convStore := memtools.NewConversationStoreTool(c.Conversations)
	s.AddTool(convStore.Definition(), convStore.Handle)

	convSearch := memtools.NewConversationSearchTool(c.Conversations)
	s.AddTool(convSearch.Definition(), convSearch.Handle)

	convRecent := memtools.NewConversationRecentTool(c.Conversations)
	s.AddTool(convRecent.Definition(), convRecent.Handle)
}

// registerTaskTools registers the Task Ledger tools.
func registerTaskTools(s *server.MCPServer, c *Components) {
	for _, t := range []tool{
		tools.NewTaskCreateTool(c.Tasks),
		tools.NewTaskListTool(c.Tasks),
		tools.NewTaskGetTool(c.Tasks),
		tools.NewTaskUpdateTool(c.Tasks),
		tools.NewTaskCloseTool(c.Tasks),
		tools.NewTaskSearchTool(c.Tasks),
		tools.NewTaskStatsTool(c.Tasks),
		tools.NewTaskOpenTool(c.Tasks),
		tools.NewTaskMineTool(c.Tasks),
		tools.NewTaskByNodeTool(c.Tasks),
	} {
		s.AddTool(t.Definition(), t.Handle)
	}
}

// registerGraphTools registers the Architecture Graph tools.
func registerGraphTools(s *server.MCPServer, c *Components) {
	for _, t := range []tool{
		tools.NewAddNodeTool(c.Graph),
		tools.NewAddEdgeTool(c.Graph),
		tools.NewGetNodeTool(c.Graph),
		tools.NewListNodesTool(c.Graph),
		tools.NewDeleteNodeTool(c.Graph),
		tools.NewQueryRelationshipsTool(c.Graph),
		tools.NewFindPathTool(c.Graph),
		tools.NewAnalyzeImpactTool(c.Graph),
		tools.NewFindOrphansTool(c.Graph),
		tools.NewGraphStatsTool(c.Graph),
		tools.NewVisualizeTool(c.Graph),
		tools.NewSearchNodesTool(c.Graph),
		tools.NewExportArchitectureTool(c.Graph, c.Config.WorkDir),
	} {
		s.AddTool(t.Definition(), t.Handle)
	}
}

// registerDocTools registers the Documentation Composer tools.
func registerDocTools(s *server.MCPServer, c *Components) {
	for _, t := range []tool{
		tools.NewStoreSectionTool(c.Docs),
		tools.NewGetSectionTool(c.Docs),
		tools.NewDocSearchTool(c.Docs),
		tools.NewGenerateAgentMDTool(c.Docs, c.Config.WorkDir),
		tools.NewImportAgentMDTool(c.Docs, c.Config.WorkDir),
	} {
		s.AddTool(t.Definition(), t.Handle)
	}
}

// serverInstructions returns the system instructions that tell the AI
// how to use agent-memory effectively.
func serverInstructions() string {
	return `You have access to agent-memory, a persistent memory server scoped to the current project.

## WHAT IT STORES
Everything lives in one namespace per project and survives across sessions:
- Memories: decisions, patterns, gotchas (memory_store, memory_search, memory_get_full)
- Conversations: one summary per session (conversation_store, conversation_get_recent)
- Tasks: a ledger of work items (task_create, task_update, task_close, task_get_open)
- Architecture graph: APIs, screens, services, databases and how they connect (graph_*)
- Documentation: one section per type, assembled into AGENT.md (doc_*)

## AT SESSION START
Read the <memory-context> block if the host injected one, or use the memory-context prompt.
Search before assuming: memory_search and conversation_search are cheap.

## WHILE WORKING
- Store a memory with category='decision' whenever a design choice is made.
- Keep the task ledger current: set in_progress when you start, task_close with a reason when done.
- When you add or change a component, record it with graph_add_node and graph_add_edge.
- Run graph_analyze_impact BEFORE modifying a shared component and tell the user the risk level.

## SEARCH RESULTS
memory_search returns summarized content by default. Use memory_get_full with the id,
or detail_level=full, when you need the complete text.

## BEFORE THE SESSION ENDS
Call conversation_store with a summary, key_decisions, key_changes and next_steps.
The next session starts from it.

## ERRORS
Every tool answers with JSON carrying "status". Failures set "code":
not_found, already_exists, invalid_argument, missing_endpoint, already_closed,
storage_unavailable. Fix the input and retry; do not retry storage_unavailable in a loop.`
}
