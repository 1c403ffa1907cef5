// Package tasks implements the Task Ledger: tracked work items layered on the
// Collection Store.
//
// Tasks are never physically deleted. Status moves between open and
// in_progress through Update and enters closed only through Close, which
// records a mandatory reason and timestamp. Closed is terminal.
package tasks

import (
	"fmt"
	"strings"
	"time"

	"github.com/HendryAvila/agent-memory/internal/apperr"
)

// timeNow is a package-level variable for testability.
var timeNow = time.Now

// --- Status enum ---

// Status is the lifecycle state of a task.
type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusClosed     Status = "closed"
)

var validStatuses = map[Status]bool{
	StatusOpen:       true,
	StatusInProgress: true,
	StatusClosed:     true,
}

// ParseStatus validates s as a task status.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if !validStatuses[st] {
		return "", apperr.Invalid("invalid status %q: must be one of: open, in_progress, closed", s)
	}
	return st, nil
}

// --- Type enum ---

// Type categorizes a task.
type Type string

const (
	TypeTask    Type = "task"
	TypeBug     Type = "bug"
	TypeFeature Type = "feature"
	TypeEpic    Type = "epic"
	TypeStory   Type = "story"
)

var validTypes = map[Type]bool{
	TypeTask:    true,
	TypeBug:     true,
	TypeFeature: true,
	TypeEpic:    true,
	TypeStory:   true,
}

// ParseType validates s as a task type. Empty means task.
func ParseType(s string) (Type, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return TypeTask, nil
	}
	t := Type(s)
	if !validTypes[t] {
		return "", apperr.Invalid("invalid task type %q: must be one of: task, bug, feature, epic, story", s)
	}
	return t, nil
}

// --- Priority ---

// Priorities run from 0 (critical) to 4 (backlog).
const (
	MinPriority     = 0
	MaxPriority     = 4
	DefaultPriority = 2
)

var priorityLabels = [...]string{"P0-Critical", "P1-High", "P2-Medium", "P3-Low", "P4-Backlog"}

// ClampPriority forces p into [MinPriority, MaxPriority].
func ClampPriority(p int) int {
	if p < MinPriority {
		return MinPriority
	}
	if p > MaxPriority {
		return MaxPriority
	}
	return p
}

// PriorityLabel returns the display label for p, e.g. "P1-High".
func PriorityLabel(p int) string {
	return priorityLabels[ClampPriority(p)]
}

// --- Core data structures ---

// Note is a timestamped progress note appended by Update.
type Note struct {
	At   time.Time `json:"at"`
	Text string    `json:"text"`
}

// Task is a tracked work item.
type Task struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Description   string     `json:"description,omitempty"`
	Status        Status     `json:"status"`
	Priority      int        `json:"priority"`
	PriorityLabel string     `json:"priority_label"`
	Type          Type       `json:"type"`
	Assignee      string     `json:"assignee,omitempty"`
	Labels        []string   `json:"labels,omitempty"`
	GraphNode     string     `json:"graph_node,omitempty"`
	Notes         []Note     `json:"notes,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	ClosedAt      *time.Time `json:"closed_at,omitempty"`
	CloseReason   string     `json:"close_reason,omitempty"`
}

// CreateParams holds the input for Create.
type CreateParams struct {
	Title       string
	Description string
	Priority    *int
	Type        string
	Assignee    string
	Labels      []string
	GraphNode   string
}

// UpdateParams holds the partial changes applied by Update. Nil fields are
// left untouched; Notes is appended when non-empty.
type UpdateParams struct {
	Status   *string
	Priority *int
	Assignee *string
	Labels   []string
	Notes    string
}

func (p UpdateParams) empty() bool {
	return p.Status == nil && p.Priority == nil && p.Assignee == nil && p.Labels == nil && strings.TrimSpace(p.Notes) == ""
}

// Filter narrows List. Status "open" matches every task that is not closed;
// an empty Status or "all" matches everything.
type Filter struct {
	Status    string
	Priority  *int
	Assignee  string
	Type      string
	GraphNode string
	Limit     int
}

// Hit is a task search result.
type Hit struct {
	Task  *Task   `json:"task"`
	Score float64 `json:"score"`
}

// Stats aggregates the ledger.
type Stats struct {
	Total           int            `json:"total"`
	OpenCount       int            `json:"open_count"`
	InProgressCount int            `json:"in_progress_count"`
	ClosedCount     int            `json:"closed_count"`
	ByStatus        map[string]int `json:"by_status"`
	ByPriority      map[string]int `json:"by_priority"`
	ByType          map[string]int `json:"by_type"`
}

func normalizeLabels(labels []string) []string {
	seen := make(map[string]bool, len(labels))
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		l = strings.ToLower(strings.TrimSpace(l))
		if l == "" || seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	return out
}

func (t *Task) String() string {
	return fmt.Sprintf("%s [%s] %s (%s)", t.ID, t.PriorityLabel, t.Title, t.Status)
}
