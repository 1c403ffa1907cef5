// agent-memory: persistent project memory for AI coding agents.
//
// An MCP server that gives any AI coding tool (Claude Code, OpenCode,
// Gemini CLI, Codex, Cursor, VS Code Copilot) a per-project store of
// memories, session summaries, tasks, an architecture graph and docs.
//
// Usage:
//
//	agent-memory serve                  # Start MCP server (stdio transport)
//	agent-memory hook session-start     # Print the session briefing
//	agent-memory export architecture    # Render ARCHITECTURE.md
//	agent-memory export agent-md        # Render AGENT.md
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
