package entities

import (
	"sort"
	"time"
)

// DateLayout is the grouping key format of a Collection.
const DateLayout = "2006-01-02"

// IsValidDate reports whether s is a real calendar date in YYYY-MM-DD form.
func IsValidDate(s string) bool {
	if len(s) != len(DateLayout) {
		return false
	}
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

// DateOf formats t in its own location as a grouping key.
func DateOf(t time.Time) string {
	return t.Format(DateLayout)
}

// Today returns the current date in loc (UTC when loc is nil).
func Today(loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return DateOf(time.Now().In(loc))
}

// Collection maps a date to the ordered tasks filed under it.
// A date key never maps to an empty slice.
type Collection map[string][]Task

// Clone returns a deep copy of c.
func (c Collection) Clone() Collection {
	out := make(Collection, len(c))
	for date, tasks := range c {
		if len(tasks) == 0 {
			continue
		}
		cp := make([]Task, len(tasks))
		for i, t := range tasks {
			cp[i] = t.Clone()
		}
		out[date] = cp
	}
	return out
}

// Dates returns the keys in ascending order.
func (c Collection) Dates() []string {
	dates := make([]string, 0, len(c))
	for date := range c {
		dates = append(dates, date)
	}
	sort.Strings(dates)
	return dates
}

// Len counts all tasks.
func (c Collection) Len() int {
	n := 0
	for _, tasks := range c {
		n += len(tasks)
	}
	return n
}

// Find locates a task by identifier.
func (c Collection) Find(id string) (date string, index int, ok bool) {
	for d, tasks := range c {
		for i, t := range tasks {
			if t.ID == id {
				return d, i, true
			}
		}
	}
	return "", -1, false
}

// Normalize deletes empty date keys in place and returns c.
func (c Collection) Normalize() Collection {
	for date, tasks := range c {
		if len(tasks) == 0 {
			delete(c, date)
		}
	}
	return c
}

// Equal compares two collections field by field.
func (c Collection) Equal(other Collection) bool {
	if len(c) != len(other) {
		return false
	}
	for date, tasks := range c {
		o, ok := other[date]
		if !ok || len(o) != len(tasks) {
			return false
		}
		for i := range tasks {
			if !tasksEqual(tasks[i], o[i]) {
				return false
			}
		}
	}
	return true
}

func tasksEqual(a, b Task) bool {
	if a.ID != b.ID || a.Content != b.Content || a.IsCompleted != b.IsCompleted ||
		a.Priority != b.Priority || a.Date != b.Date || a.HasReminder != b.HasReminder ||
		!a.CreatedAt.Equal(b.CreatedAt) {
		return false
	}
	if (a.CompletedAt == nil) != (b.CompletedAt == nil) {
		return false
	}
	return a.CompletedAt == nil || a.CompletedAt.Equal(*b.CompletedAt)
}
