package tools

import (
	"context"

	"github.com/HendryAvila/agent-memory/internal/result"
	"github.com/HendryAvila/agent-memory/internal/tasks"
	"github.com/mark3labs/mcp-go/mcp"
)

var (
	taskStatuses = []string{"open", "in_progress", "closed", "all"}
	taskTypes    = []string{"task", "bug", "feature", "epic", "story"}
)

func taskList(ts []*tasks.Task) *mcp.CallToolResult {
	return result.JSON(result.StatusSuccess, result.Fields{"tasks": ts, "count": len(ts)})
}

// ─── task_create ────────────────────────────────────────────────────────────

// TaskCreateTool handles the task_create MCP tool.
type TaskCreateTool struct {
	ledger *tasks.Ledger
}

// NewTaskCreateTool creates a TaskCreateTool.
func NewTaskCreateTool(l *tasks.Ledger) *TaskCreateTool { return &TaskCreateTool{ledger: l} }

// Definition returns the MCP tool definition for task_create.
func (t *TaskCreateTool) Definition() mcp.Tool {
	return mcp.NewTool("task_create",
		mcp.WithDescription("Create a new task in the project's task ledger. New tasks start open."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Task title")),
		mcp.WithString("description", mcp.Description("Task description")),
		mcp.WithNumber("priority", mcp.Description("Priority 0-4, 0 is critical (default: 2). Out-of-range values are clamped.")),
		mcp.WithString("task_type", mcp.Description("Task type (default: task)"), mcp.Enum(taskTypes...)),
		mcp.WithString("assignee", mcp.Description("Assignee name")),
		mcp.WithString("labels", mcp.Description("Comma-separated labels")),
		mcp.WithString("graph_node", mcp.Description("ID of the architecture graph node this task touches")),
	)
}

// Handle processes the task_create tool call.
func (t *TaskCreateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	task, err := t.ledger.Create(ctx, tasks.CreateParams{
		Title:       req.GetString("title", ""),
		Description: req.GetString("description", ""),
		Priority:    optIntArg(req, "priority"),
		Type:        req.GetString("task_type", ""),
		Assignee:    req.GetString("assignee", ""),
		Labels:      listArg(req, "labels"),
		GraphNode:   req.GetString("graph_node", ""),
	})
	if err != nil {
		return result.Error(err), nil
	}
	return result.JSON(result.StatusCreated, result.Fields{"task_id": task.ID, "task": task}), nil
}

// ─── task_list ──────────────────────────────────────────────────────────────

// TaskListTool handles the task_list MCP tool.
type TaskListTool struct {
	ledger *tasks.Ledger
}

// NewTaskListTool creates a TaskListTool.
func NewTaskListTool(l *tasks.Ledger) *TaskListTool { return &TaskListTool{ledger: l} }

// Definition returns the MCP tool definition for task_list.
func (t *TaskListTool) Definition() mcp.Tool {
	return mcp.NewTool("task_list",
		mcp.WithDescription(
			"List tasks, highest priority first. status=open returns every task that is not closed, "+
				"including in_progress ones.",
		),
		mcp.WithString("status", mcp.Description("Status filter (default: all)"), mcp.Enum(taskStatuses...)),
		mcp.WithNumber("priority", mcp.Description("Filter by priority 0-4")),
		mcp.WithString("assignee", mcp.Description("Filter by assignee")),
		mcp.WithString("task_type", mcp.Description("Filter by type"), mcp.Enum(taskTypes...)),
		mcp.WithString("graph_node", mcp.Description("Filter by linked graph node")),
		mcp.WithNumber("limit", mcp.Description("Max results (default: 50)")),
	)
}

// Handle processes the task_list tool call.
func (t *TaskListTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ts, err := t.ledger.List(ctx, tasks.Filter{
		Status:    req.GetString("status", ""),
		Priority:  optIntArg(req, "priority"),
		Assignee:  req.GetString("assignee", ""),
		Type:      req.GetString("task_type", ""),
		GraphNode: req.GetString("graph_node", ""),
		Limit:     intArg(req, "limit", 50),
	})
	if err != nil {
		return result.Error(err), nil
	}
	return taskList(ts), nil
}

// ─── task_get ───────────────────────────────────────────────────────────────

// TaskGetTool handles the task_get MCP tool.
type TaskGetTool struct {
	ledger *tasks.Ledger
}

// NewTaskGetTool creates a TaskGetTool.
func NewTaskGetTool(l *tasks.Ledger) *TaskGetTool { return &TaskGetTool{ledger: l} }

// Definition returns the MCP tool definition for task_get.
func (t *TaskGetTool) Definition() mcp.Tool {
	return mcp.NewTool("task_get",
		mcp.WithDescription("Get a task with its notes and close details."),
		mcp.WithString("task_id", mcp.Required(), mcp.Description("Task ID")),
	)
}

// Handle processes the task_get tool call.
func (t *TaskGetTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	task, err := t.ledger.Get(ctx, req.GetString("task_id", ""))
	if err != nil {
		return result.Error(err), nil
	}
	return result.JSON(result.StatusSuccess, result.Fields{"task": task}), nil
}

// ─── task_update ────────────────────────────────────────────────────────────

// TaskUpdateTool handles the task_update MCP tool.
type TaskUpdateTool struct {
	ledger *tasks.Ledger
}

// NewTaskUpdateTool creates a TaskUpdateTool.
func NewTaskUpdateTool(l *tasks.Ledger) *TaskUpdateTool { return &TaskUpdateTool{ledger: l} }

// Definition returns the MCP tool definition for task_update.
func (t *TaskUpdateTool) Definition() mcp.Tool {
	return mcp.NewTool("task_update",
		mcp.WithDescription(
			"Update a task's status, priority, assignee or labels, or append a note. "+
				"Closed tasks cannot be updated; use task_close to close a task.",
		),
		mcp.WithString("task_id", mcp.Required(), mcp.Description("Task ID")),
		mcp.WithString("status", mcp.Description("New status"), mcp.Enum("open", "in_progress")),
		mcp.WithNumber("priority", mcp.Description("Priority 0-4")),
		mcp.WithString("assignee", mcp.Description("Assignee; an empty string unassigns")),
		mcp.WithString("labels", mcp.Description("Comma-separated labels, replacing the current ones")),
		mcp.WithString("notes", mcp.Description("Note to append")),
	)
}

// Handle processes the task_update tool call.
func (t *TaskUpdateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p := tasks.UpdateParams{
		Status:   optStringArg(req, "status"),
		Priority: optIntArg(req, "priority"),
		Assignee: optStringArg(req, "assignee"),
		Notes:    req.GetString("notes", ""),
	}
	if _, ok := req.GetArguments()["labels"]; ok {
		p.Labels = listArg(req, "labels")
		if p.Labels == nil {
			p.Labels = []string{}
		}
	}
	task, err := t.ledger.Update(ctx, req.GetString("task_id", ""), p)
	if err != nil {
		return result.Error(err), nil
	}
	return result.JSON(result.StatusUpdated, result.Fields{"task_id": task.ID, "task": task}), nil
}

// ─── task_close ─────────────────────────────────────────────────────────────

// TaskCloseTool handles the task_close MCP tool.
type TaskCloseTool struct {
	ledger *tasks.Ledger
}

// NewTaskCloseTool creates a TaskCloseTool.
func NewTaskCloseTool(l *tasks.Ledger) *TaskCloseTool { return &TaskCloseTool{ledger: l} }

// Definition returns the MCP tool definition for task_close.
func (t *TaskCloseTool) Definition() mcp.Tool {
	return mcp.NewTool("task_close",
		mcp.WithDescription("Close a task with a reason. Closing is final; closing twice fails and keeps the first reason."),
		mcp.WithString("task_id", mcp.Required(), mcp.Description("Task ID")),
		mcp.WithString("reason", mcp.Required(), mcp.Description("Why the task is closed")),
	)
}

// Handle processes the task_close tool call.
func (t *TaskCloseTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	task, err := t.ledger.Close(ctx, req.GetString("task_id", ""), req.GetString("reason", ""))
	if err != nil {
		return result.Error(err), nil
	}
	return result.JSON(result.StatusClosed, result.Fields{"task_id": task.ID, "task": task}), nil
}

// ─── task_search ────────────────────────────────────────────────────────────

// TaskSearchTool handles the task_search MCP tool.
type TaskSearchTool struct {
	ledger *tasks.Ledger
}

// NewTaskSearchTool creates a TaskSearchTool.
func NewTaskSearchTool(l *tasks.Ledger) *TaskSearchTool { return &TaskSearchTool{ledger: l} }

// Definition returns the MCP tool definition for task_search.
func (t *TaskSearchTool) Definition() mcp.Tool {
	return mcp.NewTool("task_search",
		mcp.WithDescription("Search tasks by semantic similarity of title, description and labels."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query")),
		mcp.WithNumber("n_results", mcp.Description("Max results (default: 10)")),
	)
}

// Handle processes the task_search tool call.
func (t *TaskSearchTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	hits, err := t.ledger.Search(ctx, req.GetString("query", ""), intArg(req, "n_results", 10))
	if err != nil {
		return result.Error(err), nil
	}
	return result.JSON(result.StatusSuccess, result.Fields{"results": hits, "count": len(hits)}), nil
}

// ─── task_stats ─────────────────────────────────────────────────────────────

// TaskStatsTool handles the task_stats MCP tool.
type TaskStatsTool struct {
	ledger *tasks.Ledger
}

// NewTaskStatsTool creates a TaskStatsTool.
func NewTaskStatsTool(l *tasks.Ledger) *TaskStatsTool { return &TaskStatsTool{ledger: l} }

// Definition returns the MCP tool definition for task_stats.
func (t *TaskStatsTool) Definition() mcp.Tool {
	return mcp.NewTool("task_stats",
		mcp.WithDescription("Get task counts by status, priority and type. open_count counts every task that is not closed."),
	)
}

// Handle processes the task_stats tool call.
func (t *TaskStatsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st, err := t.ledger.Stats(ctx)
	if err != nil {
		return result.Error(err), nil
	}
	return result.JSON(result.StatusSuccess, result.Fields{"stats": st}), nil
}

// ─── task_get_open ──────────────────────────────────────────────────────────

// TaskOpenTool handles the task_get_open MCP tool.
type TaskOpenTool struct {
	ledger *tasks.Ledger
}

// NewTaskOpenTool creates a TaskOpenTool.
func NewTaskOpenTool(l *tasks.Ledger) *TaskOpenTool { return &TaskOpenTool{ledger: l} }

// Definition returns the MCP tool definition for task_get_open.
func (t *TaskOpenTool) Definition() mcp.Tool {
	return mcp.NewTool("task_get_open",
		mcp.WithDescription("Get every task that is not closed, highest priority first."),
		mcp.WithNumber("limit", mcp.Description("Max results (default: all)")),
	)
}

// Handle processes the task_get_open tool call.
func (t *TaskOpenTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ts, err := t.ledger.Open(ctx, intArg(req, "limit", 0))
	if err != nil {
		return result.Error(err), nil
	}
	return taskList(ts), nil
}

// ─── task_get_my_tasks ──────────────────────────────────────────────────────

// TaskMineTool handles the task_get_my_tasks MCP tool.
type TaskMineTool struct {
	ledger *tasks.Ledger
}

// NewTaskMineTool creates a TaskMineTool.
func NewTaskMineTool(l *tasks.Ledger) *TaskMineTool { return &TaskMineTool{ledger: l} }

// Definition returns the MCP tool definition for task_get_my_tasks.
func (t *TaskMineTool) Definition() mcp.Tool {
	return mcp.NewTool("task_get_my_tasks",
		mcp.WithDescription("Get the tasks assigned to a person that are not closed."),
		mcp.WithString("assignee", mcp.Required(), mcp.Description("Assignee name")),
	)
}

// Handle processes the task_get_my_tasks tool call.
func (t *TaskMineTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ts, err := t.ledger.ByAssignee(ctx, req.GetString("assignee", ""))
	if err != nil {
		return result.Error(err), nil
	}
	return taskList(ts), nil
}

// ─── task_get_by_graph_node ─────────────────────────────────────────────────

// TaskByNodeTool handles the task_get_by_graph_node MCP tool.
type TaskByNodeTool struct {
	ledger *tasks.Ledger
}

// NewTaskByNodeTool creates a TaskByNodeTool.
func NewTaskByNodeTool(l *tasks.Ledger) *TaskByNodeTool { return &TaskByNodeTool{ledger: l} }

// Definition returns the MCP tool definition for task_get_by_graph_node.
func (t *TaskByNodeTool) Definition() mcp.Tool {
	return mcp.NewTool("task_get_by_graph_node",
		mcp.WithDescription("Get every task linked to an architecture graph node, closed ones included."),
		mcp.WithString("graph_node", mcp.Required(), mcp.Description("Graph node ID")),
	)
}

// Handle processes the task_get_by_graph_node tool call.
func (t *TaskByNodeTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ts, err := t.ledger.ByGraphNode(ctx, req.GetString("graph_node", ""))
	if err != nil {
		return result.Error(err), nil
	}
	return taskList(ts), nil
}
