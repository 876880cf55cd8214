package tasklist

import (
	"github.com/taskmaster/daybook/internal/domain/entities"
)

// CarryForward moves every open task filed before targetDate onto targetDate.
//
// Moved tasks get a new identifier and Date but keep CreatedAt, so their age
// stays visible. Completed tasks stay where they are; emptied dates are removed.
// Dates on or after targetDate are untouched. The boolean reports whether
// anything moved; running it twice with the same target is a no-op.
func CarryForward(c entities.Collection, targetDate string) (entities.Collection, bool) {
	out := c.Clone()
	if !entities.IsValidDate(targetDate) {
		return out, false
	}
	var moved []entities.Task

	for _, date := range out.Dates() {
		if !entities.IsValidDate(date) || date >= targetDate {
			continue
		}

		var keep []entities.Task
		for _, t := range out[date] {
			if t.IsCompleted {
				keep = append(keep, t)
				continue
			}
			t.ID = entities.NewID()
			t.Date = targetDate
			moved = append(moved, t)
		}

		if len(keep) == 0 {
			delete(out, date)
		} else {
			out[date] = keep
		}
	}

	if len(moved) == 0 {
		return out, false
	}
	out[targetDate] = append(out[targetDate], moved...)
	return out, true
}
