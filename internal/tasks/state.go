package tasks

import (
	"fmt"
	"strings"
	"time"

	"github.com/HendryAvila/agent-memory/internal/apperr"
)

// --- State machine for tasks ---
//
//	open <-> in_progress   via Update
//	open|in_progress -> closed   via Close only
//	closed is terminal

// IsClosed reports whether the task reached the terminal state.
func IsClosed(t *Task) bool {
	return t.Status == StatusClosed
}

// CanUpdate returns an error if the task can no longer be mutated.
func CanUpdate(t *Task) error {
	if !IsClosed(t) {
		return nil
	}
	if t.ClosedAt == nil {
		return fmt.Errorf("%w: task %q", apperr.ErrAlreadyClosed, t.ID)
	}
	return fmt.Errorf("%w: task %q was closed at %s", apperr.ErrAlreadyClosed, t.ID, t.ClosedAt.Format(time.RFC3339))
}

// applyUpdate mutates t according to p. It never moves a task into closed.
func applyUpdate(t *Task, p UpdateParams) error {
	if err := CanUpdate(t); err != nil {
		return err
	}
	if p.empty() {
		return apperr.Invalid("nothing to update: pass status, priority, assignee, labels or notes")
	}

	if p.Status != nil {
		st, err := ParseStatus(*p.Status)
		if err != nil {
			return err
		}
		if st == StatusClosed {
			return apperr.Invalid("tasks are closed with task_close, which records a reason")
		}
		t.Status = st
	}
	if p.Priority != nil {
		t.Priority = ClampPriority(*p.Priority)
		t.PriorityLabel = PriorityLabel(t.Priority)
	}
	if p.Assignee != nil {
		t.Assignee = strings.TrimSpace(*p.Assignee)
	}
	if p.Labels != nil {
		t.Labels = normalizeLabels(p.Labels)
	}

	now := timeNow().UTC()
	if note := strings.TrimSpace(p.Notes); note != "" {
		t.Notes = append(t.Notes, Note{At: now, Text: note})
	}
	t.UpdatedAt = now
	return nil
}

// closeTask moves t into the terminal state. A second close fails and leaves
// the recorded reason and timestamp untouched.
func closeTask(t *Task, reason string) error {
	if err := CanUpdate(t); err != nil {
		return err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return apperr.Invalid("a close reason is required")
	}
	now := timeNow().UTC()
	t.Status = StatusClosed
	t.ClosedAt = &now
	t.CloseReason = reason
	t.UpdatedAt = now
	return nil
}
