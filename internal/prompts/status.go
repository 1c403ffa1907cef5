package prompts

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// StatusPrompt handles the memory-status MCP prompt.
// It instructs the AI to gather and present the state of the namespace.
type StatusPrompt struct{}

// NewStatusPrompt creates a StatusPrompt.
func NewStatusPrompt() *StatusPrompt {
	return &StatusPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *StatusPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("memory-status",
		mcp.WithPromptDescription(
			"Summarize what this project's memory holds: stored memories, "+
				"open tasks and the shape of the architecture graph.",
		),
	)
}

// Handle processes the memory-status prompt request.
func (p *StatusPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	return &mcp.GetPromptResult{
		Description: "Project Memory Status",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(
					"Please run `memory_stats`, `task_stats` and `graph_stats` for this project.\n\n" +
						"Then:\n" +
						"1. Summarize how much is stored in each collection\n" +
						"2. List the open tasks by priority using `task_get_open`\n" +
						"3. Point out orphaned graph nodes if there are any\n" +
						"4. Suggest what to record next",
				),
			},
		},
	}, nil
}
