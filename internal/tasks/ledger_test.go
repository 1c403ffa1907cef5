package tasks

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/HendryAvila/agent-memory/internal/apperr"
	"github.com/HendryAvila/agent-memory/internal/store"
)

// --- Helpers ---

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	s := store.Open(store.Config{Dir: filepath.Join(t.TempDir(), "ns")})
	t.Cleanup(func() { _ = s.Close() })
	return NewLedger(s, nil)
}

func intp(v int) *int       { return &v }
func strp(v string) *string { return &v }

func mustCreate(t *testing.T, l *Ledger, p CreateParams) *Task {
	t.Helper()
	task, err := l.Create(context.Background(), p)
	if err != nil {
		t.Fatalf("Create(%q): %v", p.Title, err)
	}
	return task
}

func titles(ts []*Task) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.Title
	}
	return out
}

// --- Create / Get ---

func TestCreate_Defaults(t *testing.T) {
	l := newTestLedger(t)
	task := mustCreate(t, l, CreateParams{Title: "  Write docs  "})

	if !strings.HasPrefix(task.ID, "task-") || len(task.ID) != len("task-")+8 {
		t.Errorf("ID = %q", task.ID)
	}
	if task.Title != "Write docs" || task.Status != StatusOpen || task.Priority != DefaultPriority || task.Type != TypeTask {
		t.Errorf("task = %+v", task)
	}
	if task.PriorityLabel != "P2-Medium" {
		t.Errorf("PriorityLabel = %q", task.PriorityLabel)
	}

	got, err := l.Get(context.Background(), task.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Title != task.Title || got.Status != task.Status || !got.CreatedAt.Equal(task.CreatedAt) {
		t.Errorf("Get = %+v, want %+v", got, task)
	}
}

func TestCreate_UniqueIDs(t *testing.T) {
	l := newTestLedger(t)
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		task := mustCreate(t, l, CreateParams{Title: "t"})
		if seen[task.ID] {
			t.Fatalf("duplicate id %s", task.ID)
		}
		seen[task.ID] = true
	}
}

func TestCreate_RetriesOnCollision(t *testing.T) {
	l := newTestLedger(t)
	orig := newID
	defer func() { newID = orig }()

	ids := []string{"task-aaaaaaaa", "task-aaaaaaaa", "task-bbbbbbbb"}
	i := 0
	newID = func() string { id := ids[i]; i++; return id }

	first := mustCreate(t, l, CreateParams{Title: "first"})
	second := mustCreate(t, l, CreateParams{Title: "second"})
	if first.ID != "task-aaaaaaaa" || second.ID != "task-bbbbbbbb" {
		t.Errorf("ids = %s, %s", first.ID, second.ID)
	}
}

func TestCreate_Validation(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	if _, err := l.Create(ctx, CreateParams{Title: " "}); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Errorf("empty title: %v", err)
	}
	if _, err := l.Create(ctx, CreateParams{Title: "x", Type: "chore"}); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Errorf("bad type: %v", err)
	}
	task, err := l.Create(ctx, CreateParams{Title: "x", Priority: intp(9)})
	if err != nil || task.Priority != MaxPriority {
		t.Errorf("priority clamp: %+v, %v", task, err)
	}
}

func TestGet_NotFound(t *testing.T) {
	l := newTestLedger(t)
	if _, err := l.Get(context.Background(), "task-missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

// --- State machine ---

func TestUpdate_OpenInProgressRoundTrip(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	task := mustCreate(t, l, CreateParams{Title: "Migrate db"})

	got, err := l.Update(ctx, task.ID, UpdateParams{Status: strp("in_progress"), Notes: "started"})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.Status != StatusInProgress || len(got.Notes) != 1 || got.Notes[0].Text != "started" {
		t.Errorf("after update: %+v", got)
	}

	got, err = l.Update(ctx, task.ID, UpdateParams{Status: strp("open")})
	if err != nil || got.Status != StatusOpen {
		t.Errorf("back to open: %+v, %v", got, err)
	}
}

func TestUpdate_CannotClose(t *testing.T) {
	l := newTestLedger(t)
	task := mustCreate(t, l, CreateParams{Title: "x"})
	_, err := l.Update(context.Background(), task.ID, UpdateParams{Status: strp("closed")})
	if !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Errorf("err = %v, want ErrInvalidArgument", err)
	}
}

func TestUpdate_Errors(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	task := mustCreate(t, l, CreateParams{Title: "x"})

	if _, err := l.Update(ctx, "task-nope", UpdateParams{Notes: "n"}); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing: %v", err)
	}
	if _, err := l.Update(ctx, task.ID, UpdateParams{}); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Errorf("empty update: %v", err)
	}
	if _, err := l.Update(ctx, task.ID, UpdateParams{Status: strp("done")}); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Errorf("bad status: %v", err)
	}
}

func TestCloseThenUpdate_AlreadyClosed(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	task := mustCreate(t, l, CreateParams{Title: "Fix bug", Priority: intp(1)})

	closed, err := l.Close(ctx, task.ID, "done")
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	if closed.Status != StatusClosed || closed.CloseReason != "done" || closed.ClosedAt == nil {
		t.Errorf("closed = %+v", closed)
	}

	_, err = l.Update(ctx, task.ID, UpdateParams{Status: strp("open")})
	if !errors.Is(err, apperr.ErrAlreadyClosed) {
		t.Errorf("update after close: %v, want ErrAlreadyClosed", err)
	}
}

func TestClose_TwiceKeepsOriginal(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	first := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	timeNow = func() time.Time { return first }
	defer func() { timeNow = time.Now }()

	task := mustCreate(t, l, CreateParams{Title: "x"})
	if _, err := l.Close(ctx, task.ID, "shipped"); err != nil {
		t.Fatalf("Close: %v", err)
	}

	timeNow = func() time.Time { return first.Add(48 * time.Hour) }
	if _, err := l.Close(ctx, task.ID, "again"); !errors.Is(err, apperr.ErrAlreadyClosed) {
		t.Fatalf("second Close: %v, want ErrAlreadyClosed", err)
	}

	got, _ := l.Get(ctx, task.ID)
	if got.CloseReason != "shipped" {
		t.Errorf("CloseReason = %q, want shipped", got.CloseReason)
	}
	if got.ClosedAt == nil || !got.ClosedAt.Equal(first) {
		t.Errorf("ClosedAt = %v, want %v", got.ClosedAt, first)
	}
}

func TestClose_Errors(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	task := mustCreate(t, l, CreateParams{Title: "x"})

	if _, err := l.Close(ctx, task.ID, "  "); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Errorf("empty reason: %v", err)
	}
	if _, err := l.Close(ctx, "task-nope", "r"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing: %v", err)
	}
}

// --- Queries ---

func TestList_OpenMeansNotClosed(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	a := mustCreate(t, l, CreateParams{Title: "a", Priority: intp(3)})
	mustCreate(t, l, CreateParams{Title: "b", Priority: intp(0)})
	c := mustCreate(t, l, CreateParams{Title: "c", Priority: intp(1)})
	if _, err := l.Update(ctx, a.ID, UpdateParams{Status: strp("in_progress")}); err != nil {
		t.Fatal(err)
	}
	if _, err := l.Close(ctx, c.ID, "dup"); err != nil {
		t.Fatal(err)
	}

	open, err := l.List(ctx, Filter{Status: "open"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if got := titles(open); strings.Join(got, ",") != "b,a" {
		t.Errorf("open = %v, want [b a]", got)
	}

	inProgress, _ := l.List(ctx, Filter{Status: "in_progress"})
	if got := titles(inProgress); strings.Join(got, ",") != "a" {
		t.Errorf("in_progress = %v", got)
	}

	all, _ := l.List(ctx, Filter{})
	if got := titles(all); strings.Join(got, ",") != "b,c,a" {
		t.Errorf("all = %v, want priority order [b c a]", got)
	}
}

func TestList_Filters(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	mustCreate(t, l, CreateParams{Title: "mine", Assignee: "ana", Type: "bug", Priority: intp(1)})
	mustCreate(t, l, CreateParams{Title: "theirs", Assignee: "bo", Type: "feature", Priority: intp(1)})
	mustCreate(t, l, CreateParams{Title: "linked", GraphNode: "api-users", Priority: intp(2)})

	mine, _ := l.ByAssignee(ctx, "ana")
	if got := titles(mine); strings.Join(got, ",") != "mine" {
		t.Errorf("ByAssignee = %v", got)
	}
	p1, _ := l.List(ctx, Filter{Priority: intp(1)})
	if len(p1) != 2 {
		t.Errorf("priority 1 = %v", titles(p1))
	}
	bugs, _ := l.List(ctx, Filter{Type: "bug"})
	if got := titles(bugs); strings.Join(got, ",") != "mine" {
		t.Errorf("bugs = %v", got)
	}
	linked, _ := l.ByGraphNode(ctx, "api-users")
	if got := titles(linked); strings.Join(got, ",") != "linked" {
		t.Errorf("ByGraphNode = %v", got)
	}
	limited, _ := l.List(ctx, Filter{Limit: 1})
	if len(limited) != 1 {
		t.Errorf("limit = %d", len(limited))
	}
	if _, err := l.List(ctx, Filter{Status: "done"}); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Errorf("bad status filter: %v", err)
	}
}

func TestSearch(t *testing.T) {
	l := newTestLedger(t)
	mustCreate(t, l, CreateParams{Title: "Add OAuth login", Description: "google oauth provider"})
	mustCreate(t, l, CreateParams{Title: "Tune database indexes", Description: "slow queries on orders"})

	hits, err := l.Search(context.Background(), "oauth login provider", 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].Task.Title != "Add OAuth login" {
		t.Errorf("hits = %+v", hits)
	}
}

func TestStats(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	a := mustCreate(t, l, CreateParams{Title: "a", Priority: intp(0), Type: "bug"})
	b := mustCreate(t, l, CreateParams{Title: "b", Priority: intp(0)})
	mustCreate(t, l, CreateParams{Title: "c", Priority: intp(4)})
	if _, err := l.Update(ctx, a.ID, UpdateParams{Status: strp("in_progress")}); err != nil {
		t.Fatal(err)
	}
	if _, err := l.Close(ctx, b.ID, "wontfix"); err != nil {
		t.Fatal(err)
	}

	st, err := l.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.Total != 3 || st.OpenCount != 2 || st.InProgressCount != 1 || st.ClosedCount != 1 {
		t.Errorf("counts = %+v", st)
	}
	if st.ByPriority["P0-Critical"] != 2 || st.ByPriority["P4-Backlog"] != 1 {
		t.Errorf("ByPriority = %v", st.ByPriority)
	}
	if st.ByType["bug"] != 1 || st.ByType["task"] != 2 {
		t.Errorf("ByType = %v", st.ByType)
	}
}

func TestRender(t *testing.T) {
	task := &Task{
		ID: "task-1", Title: "Ship it", Type: TypeFeature, Priority: 1, PriorityLabel: "P1-High",
		Status: StatusClosed, Assignee: "ana", Labels: []string{"release"}, CloseReason: "released in v2",
	}
	out := Render(task)
	for _, want := range []string{"# Ship it", "P1-High", "**Assignee:** ana", "**Labels:** release", "## Closed", "released in v2"} {
		if !strings.Contains(out, want) {
			t.Errorf("Render missing %q:\n%s", want, out)
		}
	}
}
