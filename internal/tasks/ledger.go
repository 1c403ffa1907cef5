package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/HendryAvila/agent-memory/internal/apperr"
	"github.com/HendryAvila/agent-memory/internal/logging"
	"github.com/HendryAvila/agent-memory/internal/store"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// newID is a package-level var so tests can force collisions.
var newID = func() string {
	return "task-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

const createAttempts = 5

// dataKey holds the full JSON encoding of a task in record metadata. The
// other metadata keys exist for filtering.
const dataKey = "data"

// Ledger is the Task Ledger for one namespace.
type Ledger struct {
	store *store.Store
	log   *log.Logger
}

// NewLedger creates a Ledger over s.
func NewLedger(s *store.Store, logger *log.Logger) *Ledger {
	return &Ledger{store: s, log: logging.OrDiscard(logger)}
}

// Create stores a new open task and returns it.
func (l *Ledger) Create(ctx context.Context, p CreateParams) (*Task, error) {
	title := strings.TrimSpace(p.Title)
	if title == "" {
		return nil, apperr.Invalid("title is required")
	}
	typ, err := ParseType(p.Type)
	if err != nil {
		return nil, err
	}
	priority := DefaultPriority
	if p.Priority != nil {
		priority = ClampPriority(*p.Priority)
	}

	now := timeNow().UTC()
	t := &Task{
		Title:         title,
		Description:   strings.TrimSpace(p.Description),
		Status:        StatusOpen,
		Priority:      priority,
		PriorityLabel: PriorityLabel(priority),
		Type:          typ,
		Assignee:      strings.TrimSpace(p.Assignee),
		Labels:        normalizeLabels(p.Labels),
		GraphNode:     strings.TrimSpace(p.GraphNode),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	for attempt := 0; attempt < createAttempts; attempt++ {
		t.ID = newID()
		content, meta, err := encode(t)
		if err != nil {
			return nil, err
		}
		_, err = l.store.Insert(ctx, store.Tasks, t.ID, content, meta)
		if errors.Is(err, apperr.ErrAlreadyExists) {
			l.log.Warn("task id collision, retrying", "id", t.ID)
			continue
		}
		if err != nil {
			return nil, err
		}
		l.log.Info("task created", "id", t.ID, "priority", t.PriorityLabel)
		return t, nil
	}
	return nil, fmt.Errorf("task create: no free id after %d attempts: %w", createAttempts, apperr.ErrAlreadyExists)
}

// Get returns the task with id or ErrNotFound.
func (l *Ledger) Get(ctx context.Context, id string) (*Task, error) {
	rec, err := l.store.Get(ctx, store.Tasks, id)
	if err != nil {
		return nil, err
	}
	return decode(rec)
}

// Update applies p to an open or in-progress task.
func (l *Ledger) Update(ctx context.Context, id string, p UpdateParams) (*Task, error) {
	t, err := l.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := applyUpdate(t, p); err != nil {
		return nil, err
	}
	if err := l.save(ctx, t); err != nil {
		return nil, err
	}
	l.log.Info("task updated", "id", t.ID, "status", t.Status)
	return t, nil
}

// Close moves the task into the terminal state with reason.
func (l *Ledger) Close(ctx context.Context, id, reason string) (*Task, error) {
	t, err := l.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := closeTask(t, reason); err != nil {
		return nil, err
	}
	if err := l.save(ctx, t); err != nil {
		return nil, err
	}
	l.log.Info("task closed", "id", t.ID)
	return t, nil
}

// List returns tasks matching f, ordered by priority then creation order.
func (l *Ledger) List(ctx context.Context, f Filter) ([]*Task, error) {
	sf := store.Filter{}
	notClosed := false
	switch s := strings.ToLower(strings.TrimSpace(f.Status)); s {
	case "", "all":
	case string(StatusOpen):
		notClosed = true
	default:
		st, err := ParseStatus(s)
		if err != nil {
			return nil, err
		}
		sf["status"] = string(st)
	}
	if f.Priority != nil {
		sf["priority"] = strconv.Itoa(ClampPriority(*f.Priority))
	}
	if f.Assignee != "" {
		sf["assignee"] = strings.TrimSpace(f.Assignee)
	}
	if f.Type != "" {
		typ, err := ParseType(f.Type)
		if err != nil {
			return nil, err
		}
		sf["type"] = string(typ)
	}
	if f.GraphNode != "" {
		sf["graph_node"] = f.GraphNode
	}

	records, err := l.store.List(ctx, store.Tasks, sf, 0)
	if err != nil {
		return nil, err
	}
	out := make([]*Task, 0, len(records))
	for i := range records {
		t, err := decode(&records[i])
		if err != nil {
			return nil, err
		}
		if notClosed && IsClosed(t) {
			continue
		}
		out = append(out, t)
	}
	sortByPriority(out)
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

// Open returns every task that is not closed, highest priority first.
func (l *Ledger) Open(ctx context.Context, limit int) ([]*Task, error) {
	return l.List(ctx, Filter{Status: string(StatusOpen), Limit: limit})
}

// ByAssignee returns the open tasks assigned to assignee.
func (l *Ledger) ByAssignee(ctx context.Context, assignee string) ([]*Task, error) {
	if strings.TrimSpace(assignee) == "" {
		return nil, apperr.Invalid("assignee is required")
	}
	return l.List(ctx, Filter{Status: string(StatusOpen), Assignee: assignee})
}

// ByGraphNode returns every task linked to the architecture node, including
// closed ones.
func (l *Ledger) ByGraphNode(ctx context.Context, nodeID string) ([]*Task, error) {
	if strings.TrimSpace(nodeID) == "" {
		return nil, apperr.Invalid("graph node id is required")
	}
	return l.List(ctx, Filter{GraphNode: nodeID})
}

// Search ranks tasks by similarity to query.
func (l *Ledger) Search(ctx context.Context, query string, limit int) ([]Hit, error) {
	if limit <= 0 {
		limit = 10
	}
	hits, err := l.store.Search(ctx, store.Tasks, query, limit, nil)
	if err != nil {
		return nil, err
	}
	out := make([]Hit, 0, len(hits))
	for i := range hits {
		t, err := decode(&hits[i].Record)
		if err != nil {
			return nil, err
		}
		out = append(out, Hit{Task: t, Score: hits[i].Score})
	}
	return out, nil
}

// Stats aggregates counts over every task. OpenCount counts tasks that are
// not closed.
func (l *Ledger) Stats(ctx context.Context) (*Stats, error) {
	all, err := l.List(ctx, Filter{})
	if err != nil {
		return nil, err
	}
	st := &Stats{
		Total:      len(all),
		ByStatus:   map[string]int{},
		ByPriority: map[string]int{},
		ByType:     map[string]int{},
	}
	for _, t := range all {
		st.ByStatus[string(t.Status)]++
		st.ByPriority[t.PriorityLabel]++
		st.ByType[string(t.Type)]++
		switch t.Status {
		case StatusClosed:
			st.ClosedCount++
		case StatusInProgress:
			st.InProgressCount++
			st.OpenCount++
		default:
			st.OpenCount++
		}
	}
	return st, nil
}

func (l *Ledger) save(ctx context.Context, t *Task) error {
	content, meta, err := encode(t)
	if err != nil {
		return err
	}
	_, _, err = l.store.Put(ctx, store.Tasks, t.ID, content, meta)
	return err
}

func sortByPriority(ts []*Task) {
	sort.SliceStable(ts, func(i, j int) bool {
		return ts[i].Priority < ts[j].Priority
	})
}

// ─── Encoding ────────────────────────────────────────────────────────────────

func encode(t *Task) (string, map[string]string, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return "", nil, fmt.Errorf("encode task %s: %w", t.ID, err)
	}
	meta := map[string]string{
		dataKey:    string(data),
		"status":   string(t.Status),
		"priority": strconv.Itoa(t.Priority),
		"type":     string(t.Type),
	}
	if t.Assignee != "" {
		meta["assignee"] = t.Assignee
	}
	if t.GraphNode != "" {
		meta["graph_node"] = t.GraphNode
	}
	return Render(t), meta, nil
}

func decode(rec *store.Record) (*Task, error) {
	var t Task
	if err := json.Unmarshal([]byte(rec.Metadata[dataKey]), &t); err != nil {
		return nil, fmt.Errorf("decode task %s: %w", rec.ID, err)
	}
	return &t, nil
}

// Render formats a task as Markdown. The rendering is also the text the
// vector index embeds for task search.
func Render(t *Task) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", t.Title)
	fmt.Fprintf(&b, "**ID:** %s\n", t.ID)
	fmt.Fprintf(&b, "**Type:** %s | **Priority:** %s | **Status:** %s\n", t.Type, t.PriorityLabel, t.Status)
	if t.Assignee != "" {
		fmt.Fprintf(&b, "**Assignee:** %s\n", t.Assignee)
	}
	if t.GraphNode != "" {
		fmt.Fprintf(&b, "**Graph node:** %s\n", t.GraphNode)
	}
	if len(t.Labels) > 0 {
		fmt.Fprintf(&b, "**Labels:** %s\n", strings.Join(t.Labels, ", "))
	}
	if t.Description != "" {
		fmt.Fprintf(&b, "\n## Description\n\n%s\n", t.Description)
	}
	if len(t.Notes) > 0 {
		b.WriteString("\n## Notes\n\n")
		for _, n := range t.Notes {
			fmt.Fprintf(&b, "- %s: %s\n", n.At.Format("2006-01-02 15:04"), n.Text)
		}
	}
	if IsClosed(t) {
		fmt.Fprintf(&b, "\n## Closed\n\n%s\n", t.CloseReason)
	}
	return b.String()
}
