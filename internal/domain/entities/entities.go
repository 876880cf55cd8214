package entities

import (
	"errors"
	"strings"
	"time"
)

// Common errors
var (
	ErrTaskNotFound      = errors.New("task not found")
	ErrInvalidDate       = errors.New("invalid date, expected YYYY-MM-DD")
	ErrEmptyContent      = errors.New("task content cannot be empty")
	ErrInvalidPriority   = errors.New("invalid priority")
	ErrIndexOutOfRange   = errors.New("task index out of range")
	ErrNoValidTasks      = errors.New("no valid tasks found")
	ErrNotAuthenticated  = errors.New("not authenticated")
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrInvalidCredential = errors.New("invalid credentials")
)

// Priority is the user-assigned importance of a task.
type Priority string

const (
	PriorityNone   Priority = "none"
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"

	DefaultPriority = PriorityMedium
)

// IsValid reports whether p is one of the known priorities.
func (p Priority) IsValid() bool {
	switch p {
	case PriorityNone, PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// ParsePriority is case-insensitive. Unknown values yield the default priority and false.
func ParsePriority(s string) (Priority, bool) {
	p := Priority(strings.ToLower(strings.TrimSpace(s)))
	if !p.IsValid() {
		return DefaultPriority, false
	}
	return p, true
}

// Task is one unit of work filed under a calendar date.
type Task struct {
	ID          string     `json:"id"`
	Content     string     `json:"content"`
	IsCompleted bool       `json:"isCompleted"`
	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt"`
	Priority    Priority   `json:"priority"`
	Date        string     `json:"date"`
	HasReminder bool       `json:"hasReminder,omitempty"`
}

// Recency is the timestamp used to resolve merge conflicts: the completion
// time when set, the creation time otherwise.
func (t Task) Recency() time.Time {
	if t.CompletedAt != nil {
		return *t.CompletedAt
	}
	return t.CreatedAt
}

// Complete marks the task done at the given time.
func (t *Task) Complete(at time.Time) {
	at = at.UTC()
	t.IsCompleted = true
	t.CompletedAt = &at
}

// Reopen clears the completion state.
func (t *Task) Reopen() {
	t.IsCompleted = false
	t.CompletedAt = nil
}

// Clone returns a copy that shares no pointers with t.
func (t Task) Clone() Task {
	if t.CompletedAt != nil {
		at := *t.CompletedAt
		t.CompletedAt = &at
	}
	return t
}

// NewTask carries the creator-supplied fields of a task.
type NewTask struct {
	Content     string
	Priority    Priority
	HasReminder bool
}

// StripCheckbox removes a leading markdown checkbox ("[ ]", "[x]", "- [ ]")
// so that IsCompleted stays the only source of truth for completion.
func StripCheckbox(content string) string {
	s := strings.TrimSpace(content)
	s = strings.TrimPrefix(s, "- ")
	s = strings.TrimPrefix(s, "* ")
	for _, box := range []string{"[ ]", "[x]", "[X]"} {
		if strings.HasPrefix(s, box) {
			return strings.TrimSpace(s[len(box):])
		}
	}
	return strings.TrimSpace(content)
}
