package markdown

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskmaster/daybook/internal/domain/entities"
)

var now = time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)

func TestSerialize(t *testing.T) {
	c := entities.Collection{
		"2024-01-02": {{Content: "Later", Priority: entities.PriorityMedium}},
		"2024-01-01": {
			{Content: "Buy milk", Priority: entities.PriorityMedium},
			{Content: "File taxes", Priority: entities.PriorityHigh, IsCompleted: true},
		},
	}

	want := "# Daybook export\n" +
		"\n## 2024-01-01\n" +
		"- [ ] Buy milk\n" +
		"- [x] File taxes _(priority: high)_\n" +
		"\n## 2024-01-02\n" +
		"- [ ] Later\n"

	assert.Equal(t, want, Serialize(c))
}

func TestParse(t *testing.T) {
	text := `# Daybook export
- [ ] orphan before any date

## 2024-01-01
- [ ] Buy milk
* [X] File taxes _(priority: high)_
- [x] Water plants _(priority: LOW)_
- [ ] Mystery _(priority: urgent)_
Some note that is not a task
- not a checkbox

### 2024-01-05 (Friday)
  - [ ] Indented
`

	c, n := Parse(text, now)

	require.Equal(t, 5, n)
	require.Len(t, c["2024-01-01"], 4)
	require.Len(t, c["2024-01-05"], 1)

	milk := c["2024-01-01"][0]
	assert.Equal(t, "Buy milk", milk.Content)
	assert.False(t, milk.IsCompleted)
	assert.Nil(t, milk.CompletedAt)
	assert.Equal(t, entities.PriorityMedium, milk.Priority)
	assert.Equal(t, now, milk.CreatedAt)
	assert.True(t, entities.IsCanonicalID(milk.ID))

	taxes := c["2024-01-01"][1]
	assert.Equal(t, "File taxes", taxes.Content)
	assert.True(t, taxes.IsCompleted)
	require.NotNil(t, taxes.CompletedAt)
	assert.Equal(t, now, *taxes.CompletedAt)
	assert.Equal(t, entities.PriorityHigh, taxes.Priority)

	assert.Equal(t, entities.PriorityLow, c["2024-01-01"][2].Priority)
	assert.Equal(t, entities.PriorityMedium, c["2024-01-01"][3].Priority)
	assert.Equal(t, "Mystery", c["2024-01-01"][3].Content)
	assert.Equal(t, "Indented", c["2024-01-05"][0].Content)
	assert.Equal(t, "2024-01-05", c["2024-01-05"][0].Date)
}

func TestParseNothing(t *testing.T) {
	c, n := Parse("just some notes\n- [ ] no heading\n## not a date\n- [ ] still nothing", now)
	assert.Zero(t, n)
	assert.Empty(t, c)
}

func TestRoundTrip(t *testing.T) {
	done := now.Add(-time.Hour)
	original := entities.Collection{
		"2024-01-01": {
			{ID: entities.NewID(), Content: "A", Priority: entities.PriorityMedium, Date: "2024-01-01"},
			{ID: entities.NewID(), Content: "B", Priority: entities.PriorityHigh, Date: "2024-01-01", IsCompleted: true, CompletedAt: &done},
		},
		"2024-02-10": {
			{ID: entities.NewID(), Content: "C with _underscores_ and [links](x)", Priority: entities.PriorityNone, Date: "2024-02-10"},
			{ID: entities.NewID(), Content: "Read _(priority: high)_", Priority: entities.PriorityMedium, Date: "2024-02-10"},
			{ID: entities.NewID(), Content: "Skim _(priority: none)_", Priority: entities.PriorityLow, Date: "2024-02-10"},
		},
	}

	parsed, n := Parse(Serialize(original), now)
	require.Equal(t, original.Len(), n)

	for date, tasks := range original {
		require.Len(t, parsed[date], len(tasks), date)
		for i, want := range tasks {
			got := parsed[date][i]
			assert.Equal(t, want.Content, got.Content)
			assert.Equal(t, want.IsCompleted, got.IsCompleted)
			assert.Equal(t, want.Priority, got.Priority)
			assert.Equal(t, date, got.Date)
		}
	}
}

func TestSerializeAnnotatesContentThatLooksAnnotated(t *testing.T) {
	c := entities.Collection{
		"2024-06-01": {{ID: entities.NewID(), Content: "Read _(priority: high)_", Priority: entities.PriorityMedium, Date: "2024-06-01"}},
	}

	assert.Contains(t, Serialize(c), "- [ ] Read _(priority: high)_ _(priority: medium)_\n")
}

func TestParseLongLineKeepsLaterTasks(t *testing.T) {
	long := strings.Repeat("x", 2<<20)
	doc := "## 2024-05-31\n- [ ] before\n- [ ] " + long + "\n## 2024-06-02\n- [ ] later\n"

	c, n := Parse(doc, now)

	assert.Equal(t, 3, n)
	require.Len(t, c["2024-05-31"], 2)
	assert.Equal(t, long, c["2024-05-31"][1].Content)
	require.Len(t, c["2024-06-02"], 1)
	assert.Equal(t, "later", c["2024-06-02"][0].Content)
}

func TestParseCRLF(t *testing.T) {
	c, n := Parse("## 2024-06-01\r\n- [x] done _(priority: low)_\r\n", now)

	require.Equal(t, 1, n)
	assert.Equal(t, "done", c["2024-06-01"][0].Content)
	assert.Equal(t, entities.PriorityLow, c["2024-06-01"][0].Priority)
	assert.True(t, c["2024-06-01"][0].IsCompleted)
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "daybook-2024-03-04.md", Filename(now))
}
