// Package briefing assembles the context injected at the start of an agent
// session: recent sessions, recent decisions and the most urgent open tasks.
package briefing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/HendryAvila/agent-memory/internal/memory"
	"github.com/HendryAvila/agent-memory/internal/tasks"
	"github.com/dustin/go-humanize"
)

const (
	sessionCount  = 2
	decisionCount = 3
	taskCount     = 3

	sessionLength  = 300
	decisionLength = 150
)

// timeNow is a package-level variable for testability.
var timeNow = time.Now

// Builder reads the namespace's memories, conversations and tasks.
type Builder struct {
	Memories      *memory.Service
	Conversations *memory.Conversations
	Tasks         *tasks.Ledger
}

// Build returns the briefing as Markdown. It returns "" when the namespace
// holds nothing worth reporting.
func (b *Builder) Build(ctx context.Context) (string, error) {
	convs, err := b.Conversations.Recent(ctx, sessionCount)
	if err != nil {
		return "", err
	}
	decisions, err := b.Memories.Recent(ctx, memory.CategoryDecision, decisionCount)
	if err != nil {
		return "", err
	}
	open, err := b.Tasks.Open(ctx, taskCount)
	if err != nil {
		return "", err
	}
	if len(convs) == 0 && len(decisions) == 0 && len(open) == 0 {
		return "", nil
	}

	now := timeNow()
	var sb strings.Builder
	sb.WriteString("# Project Memory Context\n")

	if len(convs) > 0 {
		sb.WriteString("\n## Recent Sessions\n")
		for _, c := range convs {
			fmt.Fprintf(&sb, "- [%s, %s] %s\n", c.CreatedAt.Format("2006-01-02"),
				humanize.RelTime(c.CreatedAt, now, "ago", "from now"), memory.Summarize(c.Summary, sessionLength))
			if len(c.NextSteps) > 0 {
				fmt.Fprintf(&sb, "  - Next: %s\n", strings.Join(c.NextSteps, "; "))
			}
		}
	}

	if len(decisions) > 0 {
		sb.WriteString("\n## Recent Decisions\n")
		for _, d := range decisions {
			fmt.Fprintf(&sb, "- %s\n", memory.Summarize(d.Content, decisionLength))
		}
	}

	if len(open) > 0 {
		sb.WriteString("\n## Open Tasks\n")
		for _, t := range open {
			fmt.Fprintf(&sb, "- [P%d] %s (%s, `%s`)\n", t.Priority, t.Title, t.Status, t.ID)
		}
	}
	return sb.String(), nil
}

// Wrap encloses a briefing in the tags agents look for at session start.
func Wrap(body string) string {
	return "<memory-context>\n" + strings.TrimRight(body, "\n") + "\n</memory-context>\n"
}
