package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/HendryAvila/agent-memory/internal/apperr"
	"github.com/HendryAvila/agent-memory/internal/logging"
	"github.com/HendryAvila/agent-memory/internal/store"
	"github.com/charmbracelet/log"
)

// Conversations stores append-only session summaries for one namespace.
type Conversations struct {
	store *store.Store
	log   *log.Logger
}

// NewConversations creates a Conversations over s.
func NewConversations(s *store.Store, logger *log.Logger) *Conversations {
	return &Conversations{store: s, log: logging.OrDiscard(logger)}
}

// Store appends a conversation summary.
func (c *Conversations) Store(ctx context.Context, p ConversationParams) (*Conversation, error) {
	summary := strings.TrimSpace(p.Summary)
	if summary == "" {
		return nil, apperr.Invalid("summary is required")
	}
	now := timeNow().UTC()
	conv := &Conversation{
		SessionID:    strings.TrimSpace(p.SessionID),
		Summary:      summary,
		KeyDecisions: cleanList(p.KeyDecisions),
		KeyChanges:   cleanList(p.KeyChanges),
		NextSteps:    cleanList(p.NextSteps),
		CreatedAt:    now,
	}
	if conv.SessionID == "" {
		conv.SessionID = "session-" + now.Format("20060102150405")
	}

	data, err := json.Marshal(conv)
	if err != nil {
		return nil, fmt.Errorf("encode conversation: %w", err)
	}
	meta := map[string]string{
		dataKey:          string(data),
		"session_id":     conv.SessionID,
		"has_decisions":  yesNo(len(conv.KeyDecisions) > 0),
		"has_next_steps": yesNo(len(conv.NextSteps) > 0),
	}
	rec, err := insertWithRetry(ctx, c.store, store.Conversations, "conv-", RenderConversation(conv), meta, c.log)
	if err != nil {
		return nil, err
	}
	conv.ID = rec.ID
	c.log.Info("conversation stored", "id", conv.ID, "session", conv.SessionID)
	return conv, nil
}

// Search ranks conversations by similarity to query.
func (c *Conversations) Search(ctx context.Context, query string, limit int) ([]ConversationHit, error) {
	if limit <= 0 {
		limit = 10
	}
	hits, err := c.store.Search(ctx, store.Conversations, query, limit, nil)
	if err != nil {
		return nil, err
	}
	out := make([]ConversationHit, 0, len(hits))
	for i := range hits {
		conv, err := decodeConversation(&hits[i].Record)
		if err != nil {
			return nil, err
		}
		out = append(out, ConversationHit{Conversation: *conv, Score: hits[i].Score})
	}
	return out, nil
}

// Recent returns the newest conversations first.
func (c *Conversations) Recent(ctx context.Context, limit int) ([]Conversation, error) {
	if limit <= 0 {
		limit = 5
	}
	recs, err := c.store.List(ctx, store.Conversations, nil, 0)
	if err != nil {
		return nil, err
	}
	out := []Conversation{}
	for i := len(recs) - 1; i >= 0 && len(out) < limit; i-- {
		conv, err := decodeConversation(&recs[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *conv)
	}
	return out, nil
}

// RenderConversation renders a conversation as the Markdown that is indexed
// for search.
func RenderConversation(conv *Conversation) string {
	var b strings.Builder
	b.WriteString("# Session Summary\n\n")
	fmt.Fprintf(&b, "**Session:** %s\n", conv.SessionID)
	fmt.Fprintf(&b, "**Date:** %s\n\n", conv.CreatedAt.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "## Summary\n%s\n", conv.Summary)
	writeList(&b, "Key Decisions", conv.KeyDecisions)
	writeList(&b, "Key Changes", conv.KeyChanges)
	writeList(&b, "Next Steps", conv.NextSteps)
	return b.String()
}

const dataKey = "data"

func decodeConversation(rec *store.Record) (*Conversation, error) {
	var conv Conversation
	if err := json.Unmarshal([]byte(rec.Metadata[dataKey]), &conv); err != nil {
		return nil, fmt.Errorf("decode conversation %s: %w", rec.ID, err)
	}
	conv.ID = rec.ID
	return &conv, nil
}

func writeList(b *strings.Builder, heading string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "\n## %s\n", heading)
	for _, it := range items {
		fmt.Fprintf(b, "- %s\n", it)
	}
}

func cleanList(items []string) []string {
	out := []string{}
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			out = append(out, it)
		}
	}
	return out
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
