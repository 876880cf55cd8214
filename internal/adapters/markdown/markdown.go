// Package markdown converts a task collection to and from the checklist
// format used for export and import.
//
//	# Daybook export
//
//	## 2024-01-01
//	- [ ] Buy milk
//	- [x] File taxes _(priority: high)_
package markdown

import (
	"regexp"
	"strings"
	"time"

	"github.com/taskmaster/daybook/internal/domain/entities"
)

// Title is written as the first line of every export.
const Title = "# Daybook export"

var (
	headingRe = regexp.MustCompile(`^#{1,6}\s+(\d{4}-\d{2}-\d{2})\b`)
	taskRe    = regexp.MustCompile(`^\s*[-*]\s+\[( |x|X)\]\s+(.+?)(\s+_\(priority:\s*(\w+)\)_)?\s*$`)

	// content ending like an annotation needs an explicit one after it
	annotationRe = regexp.MustCompile(`\s_\(priority:\s*\w+\)_\s*$`)
)

// Serialize renders c with dates in ascending order. The priority annotation is
// written for non-default priorities, and for any task whose content already
// ends in something that reads as one.
func Serialize(c entities.Collection) string {
	var b strings.Builder
	b.WriteString(Title)
	b.WriteString("\n")

	for _, date := range c.Dates() {
		tasks := c[date]
		if len(tasks) == 0 {
			continue
		}
		b.WriteString("\n## ")
		b.WriteString(date)
		b.WriteString("\n")

		for _, t := range tasks {
			if t.IsCompleted {
				b.WriteString("- [x] ")
			} else {
				b.WriteString("- [ ] ")
			}
			content := oneLine(t.Content)
			b.WriteString(content)

			priority := t.Priority
			if priority == "" {
				priority = entities.DefaultPriority
			}
			if priority != entities.DefaultPriority || annotationRe.MatchString(content) {
				b.WriteString(" _(priority: ")
				b.WriteString(string(priority))
				b.WriteString(")_")
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

// Parse reads tasks grouped under date headings. Task lines that appear before
// the first date heading are ignored, as is any other text. Every parsed task
// gets a fresh identifier and now as its creation time; checked tasks are also
// completed at now. The second result is the number of tasks parsed.
func Parse(text string, now time.Time) (entities.Collection, int) {
	now = now.UTC()
	out := entities.Collection{}
	count := 0
	current := ""

	// split rather than scan so no line length can end the document early
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSuffix(line, "\r")

		if m := headingRe.FindStringSubmatch(line); m != nil {
			if entities.IsValidDate(m[1]) {
				current = m[1]
			} else {
				current = ""
			}
			continue
		}
		if current == "" {
			continue
		}

		m := taskRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		content := strings.TrimSpace(m[2])
		if content == "" {
			continue
		}

		priority := entities.DefaultPriority
		if m[4] != "" {
			priority, _ = entities.ParsePriority(m[4])
		}

		t := entities.Task{
			ID:        entities.NewID(),
			Content:   content,
			CreatedAt: now,
			Priority:  priority,
			Date:      current,
		}
		if m[1] != " " {
			t.Complete(now)
		}

		out[current] = append(out[current], t)
		count++
	}

	return out, count
}

// Filename is the download name for an export taken at now.
func Filename(now time.Time) string {
	return "daybook-" + entities.DateOf(now) + ".md"
}

// oneLine keeps multi-line content from breaking the line-oriented format.
func oneLine(s string) string {
	if !strings.ContainsAny(s, "\r\n") {
		return s
	}
	return strings.Join(strings.Fields(s), " ")
}

// Codec exposes the package functions as a ports.DocumentCodec
type Codec struct{}

func (Codec) Serialize(c entities.Collection) string { return Serialize(c) }

func (Codec) Parse(text string, now time.Time) (entities.Collection, int) { return Parse(text, now) }

func (Codec) Filename(now time.Time) string { return Filename(now) }
