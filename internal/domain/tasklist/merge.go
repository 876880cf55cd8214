package tasklist

import (
	"github.com/taskmaster/daybook/internal/domain/entities"
)

// Merge reconciles a local collection (base) with a remote one (incoming).
//
// Tasks are matched by exact content under the same date because the two sides
// were never assigned consistent identifiers. On a match the task with the later
// Recency wins but keeps the incoming identifier, so the remote store sees no
// identifier churn. Unmatched base tasks are appended. Every identifier in the
// result is canonical and unique.
func Merge(base, incoming entities.Collection) entities.Collection {
	result := incoming.Clone()
	matched := make(map[string][]bool, len(result))
	for date, tasks := range result {
		matched[date] = make([]bool, len(tasks))
	}

	for _, date := range base.Dates() {
		for _, task := range base[date] {
			seq := result[date]
			used := matched[date]

			idx := findUnmatched(seq, used, task.Content)
			if idx < 0 {
				t := task.Clone()
				t.Date = date
				result[date] = append(seq, t)
				matched[date] = append(used, true)
				continue
			}

			existing := seq[idx]
			if task.Recency().After(existing.Recency()) {
				winner := task.Clone()
				winner.ID = existing.ID
				winner.Date = date
				seq[idx] = winner
			}
			used[idx] = true
		}
	}

	assignCanonicalIDs(result)
	return result.Normalize()
}

// MergeImported folds tasks parsed from an import into the current collection.
// Matching is by content under the same date; an import can promote an open
// task to completed but never reopens a completed one.
func MergeImported(current, imported entities.Collection) entities.Collection {
	result := current.Clone()
	matched := make(map[string][]bool, len(result))
	for date, tasks := range result {
		matched[date] = make([]bool, len(tasks))
	}

	for _, date := range imported.Dates() {
		for _, task := range imported[date] {
			seq := result[date]
			used := matched[date]

			idx := findUnmatched(seq, used, task.Content)
			if idx < 0 {
				t := task.Clone()
				t.Date = date
				t.ID = entities.EnsureCanonicalID(t.ID)
				result[date] = append(seq, t)
				matched[date] = append(used, true)
				continue
			}

			if task.IsCompleted && !seq[idx].IsCompleted {
				seq[idx].Complete(task.Recency())
			}
			used[idx] = true
		}
	}

	return result.Normalize()
}

func findUnmatched(seq []entities.Task, used []bool, content string) int {
	for i, t := range seq {
		if i < len(used) && used[i] {
			continue
		}
		if sameContent(t.Content, content) {
			return i
		}
	}
	return -1
}

// assignCanonicalIDs regenerates non-canonical and repeated identifiers in place.
func assignCanonicalIDs(c entities.Collection) {
	seen := make(map[string]struct{}, c.Len())
	for _, date := range c.Dates() {
		for i := range c[date] {
			id := entities.EnsureCanonicalID(c[date][i].ID)
			if _, dup := seen[id]; dup {
				id = entities.NewID()
			}
			seen[id] = struct{}{}
			c[date][i].ID = id
		}
	}
}
