// Package prompts implements MCP prompt handlers.
//
// MCP prompts are user-triggered workflows (like slash commands). Unlike
// tools, which the AI calls, prompts are initiated by the user.
package prompts

import (
	"context"
	"fmt"

	"github.com/HendryAvila/agent-memory/internal/briefing"
	"github.com/mark3labs/mcp-go/mcp"
)

// ContextPrompt handles the memory-context MCP prompt. It injects the same
// briefing the session-start hook prints.
type ContextPrompt struct {
	builder *briefing.Builder
	project string
}

// NewContextPrompt creates a ContextPrompt for project.
func NewContextPrompt(b *briefing.Builder, project string) *ContextPrompt {
	return &ContextPrompt{builder: b, project: project}
}

// Definition returns the MCP prompt definition for registration.
func (p *ContextPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("memory-context",
		mcp.WithPromptDescription(
			"Load this project's memory: recent session summaries, recent decisions and the most urgent open tasks.",
		),
	)
}

// Handle processes the memory-context prompt request.
func (p *ContextPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	body, err := p.builder.Build(ctx)
	if err != nil {
		return nil, fmt.Errorf("building briefing: %w", err)
	}
	text := fmt.Sprintf(
		"Project '%s' has no stored memory yet.\n\n"+
			"As we work, store decisions with `memory_store` (category='decision'), track work with `task_create`, "+
			"and call `conversation_store` before the session ends.",
		p.project,
	)
	if body != "" {
		text = briefing.Wrap(body) + "\n" +
			"This is what previous sessions left for project '" + p.project + "'. " +
			"Use `memory_search` and `conversation_search` when you need more detail."
	}
	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Memory context: %s", p.project),
		Messages: []mcp.PromptMessage{
			{
				Role:    mcp.RoleUser,
				Content: mcp.NewTextContent(text),
			},
		},
	}, nil
}
