// Package tasklist holds the pure operations over a task collection: the
// mutation API, the merge engine and the carry-forward scheduler.
//
// Every function returns a new collection and leaves its input untouched, so
// callers can detect change by identity and never observe a half-applied edit.
package tasklist

import (
	"fmt"
	"sort"
	"time"

	"github.com/taskmaster/daybook/internal/domain/entities"
)

// Add files a new task under date.
func Add(c entities.Collection, date string, in entities.NewTask, now time.Time) (entities.Collection, entities.Task, error) {
	if !entities.IsValidDate(date) {
		return nil, entities.Task{}, entities.ErrInvalidDate
	}
	content := entities.StripCheckbox(in.Content)
	if content == "" {
		return nil, entities.Task{}, entities.ErrEmptyContent
	}
	priority := in.Priority
	if priority == "" {
		priority = entities.DefaultPriority
	}
	if !priority.IsValid() {
		return nil, entities.Task{}, entities.ErrInvalidPriority
	}

	task := entities.Task{
		ID:          entities.NewID(),
		Content:     content,
		CreatedAt:   now.UTC(),
		Priority:    priority,
		Date:        date,
		HasReminder: in.HasReminder,
	}

	out := c.Clone()
	out[date] = append(out[date], task)
	return out, task, nil
}

// ToggleStatus flips the completion state of a task.
func ToggleStatus(c entities.Collection, id string, now time.Time) (entities.Collection, entities.Task, error) {
	date, idx, ok := c.Find(id)
	if !ok {
		return nil, entities.Task{}, entities.ErrTaskNotFound
	}
	return SetStatus(c, id, !c[date][idx].IsCompleted, now)
}

// SetStatus sets completion explicitly. CompletedAt is stamped on a
// false→true transition and cleared on true→false.
func SetStatus(c entities.Collection, id string, completed bool, now time.Time) (entities.Collection, entities.Task, error) {
	return update(c, id, func(t *entities.Task) error {
		if completed == t.IsCompleted {
			return nil
		}
		if completed {
			t.Complete(now)
		} else {
			t.Reopen()
		}
		return nil
	})
}

// UpdateContent replaces the text of a task.
func UpdateContent(c entities.Collection, id, content string) (entities.Collection, entities.Task, error) {
	content = entities.StripCheckbox(content)
	if content == "" {
		return nil, entities.Task{}, entities.ErrEmptyContent
	}
	return update(c, id, func(t *entities.Task) error {
		t.Content = content
		return nil
	})
}

// ChangePriority sets the priority of a task.
func ChangePriority(c entities.Collection, id string, p entities.Priority) (entities.Collection, entities.Task, error) {
	if !p.IsValid() {
		return nil, entities.Task{}, entities.ErrInvalidPriority
	}
	return update(c, id, func(t *entities.Task) error {
		t.Priority = p
		return nil
	})
}

// SetReminder toggles the informational reminder flag.
func SetReminder(c entities.Collection, id string, on bool) (entities.Collection, entities.Task, error) {
	return update(c, id, func(t *entities.Task) error {
		t.HasReminder = on
		return nil
	})
}

// Delete removes a task, dropping its date when it was the last one there.
func Delete(c entities.Collection, id string) (entities.Collection, entities.Task, error) {
	date, idx, ok := c.Find(id)
	if !ok {
		return nil, entities.Task{}, entities.ErrTaskNotFound
	}
	out := c.Clone()
	removed := out[date][idx]
	out[date] = append(out[date][:idx], out[date][idx+1:]...)
	return out.Normalize(), removed, nil
}

// Move appends a task to toDate and removes it from its current date.
func Move(c entities.Collection, id, toDate string) (entities.Collection, entities.Task, error) {
	if !entities.IsValidDate(toDate) {
		return nil, entities.Task{}, entities.ErrInvalidDate
	}
	from, idx, ok := c.Find(id)
	if !ok {
		return nil, entities.Task{}, entities.ErrTaskNotFound
	}
	if from == toDate {
		return c.Clone(), c[from][idx].Clone(), nil
	}

	out := c.Clone()
	task := out[from][idx]
	out[from] = append(out[from][:idx], out[from][idx+1:]...)
	task.Date = toDate
	out[toDate] = append(out[toDate], task)
	return out.Normalize(), task, nil
}

// Reorder moves the task at position from to position to within one date.
func Reorder(c entities.Collection, date string, from, to int) (entities.Collection, error) {
	tasks, ok := c[date]
	if !ok {
		return nil, fmt.Errorf("date %s: %w", date, entities.ErrTaskNotFound)
	}
	if from < 0 || from >= len(tasks) || to < 0 || to >= len(tasks) {
		return nil, entities.ErrIndexOutOfRange
	}

	out := c.Clone()
	seq := out[date]
	moved := seq[from]
	seq = append(seq[:from], seq[from+1:]...)
	seq = append(seq[:to], append([]entities.Task{moved}, seq[to:]...)...)
	out[date] = seq
	return out, nil
}

// SortUncompletedFirst stably moves open tasks ahead of completed ones.
func SortUncompletedFirst(c entities.Collection, date string) entities.Collection {
	out := c.Clone()
	seq, ok := out[date]
	if !ok {
		return out
	}
	sort.SliceStable(seq, func(i, j int) bool {
		return !seq[i].IsCompleted && seq[j].IsCompleted
	})
	return out
}

func update(c entities.Collection, id string, fn func(*entities.Task) error) (entities.Collection, entities.Task, error) {
	date, idx, ok := c.Find(id)
	if !ok {
		return nil, entities.Task{}, entities.ErrTaskNotFound
	}
	out := c.Clone()
	task := &out[date][idx]
	if err := fn(task); err != nil {
		return nil, entities.Task{}, err
	}
	return out, task.Clone(), nil
}

// sameContent is the identity used when two collections never shared identifiers.
func sameContent(a, b string) bool {
	return a == b
}
