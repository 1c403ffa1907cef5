// Package memory stores free-form memories and conversation summaries in the
// Collection Store.
package memory

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// timeNow is a package-level variable for testability.
var timeNow = time.Now

// newID returns prefix followed by 8 hex characters.
var newID = func(prefix string) string {
	return prefix + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// DefaultCategory is used when a memory is stored without one.
const DefaultCategory = "memory"

// CategoryDecision marks memories surfaced in the session briefing.
const CategoryDecision = "decision"

// Memory is an immutable piece of project knowledge.
type Memory struct {
	ID        string    `json:"id"`
	Content   string    `json:"content,omitempty"`
	Category  string    `json:"category"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"created_at"`
}

// Hit is a memory search result. Content is shaped by the requested detail
// level; ContentLength is the length of the stored content in characters.
type Hit struct {
	Memory
	ContentLength int     `json:"full_content_length"`
	Score         float64 `json:"score"`
}

// SearchOptions narrows and shapes a memory search.
type SearchOptions struct {
	Category string
	Limit    int
	Detail   string
}

// Conversation is an append-only session summary.
type Conversation struct {
	ID           string    `json:"id"`
	SessionID    string    `json:"session_id"`
	Summary      string    `json:"summary"`
	KeyDecisions []string  `json:"key_decisions"`
	KeyChanges   []string  `json:"key_changes"`
	NextSteps    []string  `json:"next_steps"`
	CreatedAt    time.Time `json:"created_at"`
}

// ConversationParams holds the input for Conversations.Store.
type ConversationParams struct {
	SessionID    string
	Summary      string
	KeyDecisions []string
	KeyChanges   []string
	NextSteps    []string
}

// ConversationHit is a conversation search result.
type ConversationHit struct {
	Conversation
	Score float64 `json:"score"`
}

// ─── Tags ────────────────────────────────────────────────────────────────────

var (
	hashtagRe = regexp.MustCompile(`(?:^|\s)#([A-Za-z][\w-]*)`)
	// The optional trailing "(" identifies Markdown links, which are skipped.
	bracketRe = regexp.MustCompile(`\[([A-Za-z][\w-]*)\](\()?`)
)

// ExtractTags merges a comma-separated explicit list with #hashtags and
// [tags] found in content. The result is lowercased, deduplicated and sorted.
func ExtractTags(explicit, content string) []string {
	seen := map[string]bool{}
	add := func(tag string) {
		tag = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(tag), "#")))
		if tag != "" {
			seen[tag] = true
		}
	}
	for _, t := range strings.Split(explicit, ",") {
		add(t)
	}
	for _, m := range hashtagRe.FindAllStringSubmatch(content, -1) {
		add(m[1])
	}
	for _, m := range bracketRe.FindAllStringSubmatch(content, -1) {
		if m[2] == "" {
			add(m[1])
		}
	}
	tags := make([]string, 0, len(seen))
	for t := range seen {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags
}

func splitTags(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(s, ",")
}
