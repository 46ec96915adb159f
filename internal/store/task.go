package store

import (
	"fmt"
	"strings"
	"time"
)

const (
	// DateLayout is the canonical on-disk layout for due dates.
	DateLayout = "2006-01-02"
	// TimestampLayout is used for created_at and updated_at.
	TimestampLayout = DateLayout + " 15:04:05"
	// DefaultDateFormat is the input layout for new stores (DD-MM-YYYY).
	DefaultDateFormat = "02-01-2006"
)

var timeNow = time.Now

type Task struct {
	ID        int      `json:"id" yaml:"id" toml:"id" msgpack:"id"`
	Name      string   `json:"name" yaml:"name" toml:"name" msgpack:"name"`
	Priority  bool     `json:"priority" yaml:"priority" toml:"priority" msgpack:"priority"`
	DueDate   string   `json:"due_date,omitempty" yaml:"due_date,omitempty" toml:"due_date,omitempty" msgpack:"due_date,omitempty"`
	Tags      []string `json:"tags,omitempty" yaml:"tags,omitempty" toml:"tags,omitempty" msgpack:"tags,omitempty"`
	Done      bool     `json:"done" yaml:"done" toml:"done" msgpack:"done"`
	CreatedAt string   `json:"created_at" yaml:"created_at" toml:"created_at" msgpack:"created_at"`
	UpdatedAt string   `json:"updated_at,omitempty" yaml:"updated_at,omitempty" toml:"updated_at,omitempty" msgpack:"updated_at,omitempty"`
}

type AddTaskInput struct {
	Name     string
	Priority bool
	DueDate  string
	Tags     []string
}

// EditTaskInput holds optional field updates. Nil pointers and a nil Tags
// slice leave the field unchanged.
type EditTaskInput struct {
	Name     *string
	Priority *bool
	DueDate  *string
	Tags     []string
	Done     *bool
}

// NewTask builds a task, parsing in.DueDate with layout and storing it
// under DateLayout.
func NewTask(id int, in AddTaskInput, layout string) (*Task, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: task name is required", ErrInvalid)
	}
	due := ""
	if strings.TrimSpace(in.DueDate) != "" {
		d, err := normalizeDueDate(in.DueDate, layout)
		if err != nil {
			return nil, err
		}
		due = d
	}
	return &Task{
		ID:        id,
		Name:      name,
		Priority:  in.Priority,
		DueDate:   due,
		Tags:      cleanTags(in.Tags),
		CreatedAt: timeNow().Format(TimestampLayout),
	}, nil
}

// Edit applies the supplied fields and always stamps UpdatedAt.
// Nothing is changed when validation fails.
func (t *Task) Edit(in EditTaskInput, layout string) error {
	var name, due string
	if in.Name != nil {
		name = strings.TrimSpace(*in.Name)
		if name == "" {
			return fmt.Errorf("%w: task name cannot be empty", ErrInvalid)
		}
	}
	if in.DueDate != nil && strings.TrimSpace(*in.DueDate) != "" {
		d, err := normalizeDueDate(*in.DueDate, layout)
		if err != nil {
			return err
		}
		due = d
	}

	if in.Name != nil {
		t.Name = name
	}
	if in.Priority != nil {
		t.Priority = *in.Priority
	}
	if in.DueDate != nil {
		t.DueDate = due
	}
	if in.Tags != nil {
		t.Tags = cleanTags(in.Tags)
	}
	if in.Done != nil {
		t.Done = *in.Done
	}
	t.UpdatedAt = timeNow().Format(TimestampLayout)
	return nil
}

// Due parses the stored due date. ok is false when no due date is set.
func (t *Task) Due() (due time.Time, ok bool, err error) {
	if t.DueDate == "" {
		return time.Time{}, false, nil
	}
	d, err := time.Parse(DateLayout, t.DueDate)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("%w: task %d has unreadable due date %q", ErrCorruptState, t.ID, t.DueDate)
	}
	return d, true, nil
}

// IsDueToday reports whether the task is due today or already overdue.
func (t *Task) IsDueToday() bool {
	return t.IsDueBeforeOrOn(timeNow())
}

func (t *Task) IsDueBeforeOrOn(date time.Time) bool {
	due, ok, err := t.Due()
	if err != nil || !ok {
		return false
	}
	return !due.After(civilDate(date))
}

// HasTag matches case-insensitively.
func (t *Task) HasTag(tag string) bool {
	tag = normalizeTag(tag)
	for _, tg := range t.Tags {
		if normalizeTag(tg) == tag {
			return true
		}
	}
	return false
}

func (t Task) clone() Task {
	if t.Tags != nil {
		t.Tags = append([]string(nil), t.Tags...)
	}
	return t
}

// ParseDate parses s with layout and strips the time of day.
func ParseDate(s, layout string) (time.Time, error) {
	s = strings.TrimSpace(s)
	d, err := time.Parse(layout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q does not match format %s", ErrInvalidDueDate, s, DescribeLayout(layout))
	}
	return civilDate(d), nil
}

func normalizeDueDate(s, layout string) (string, error) {
	d, err := ParseDate(s, layout)
	if err != nil {
		return "", err
	}
	return d.Format(DateLayout), nil
}

func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DescribeLayout renders a Go layout the way users type dates,
// e.g. "02-01-2006" -> "DD-MM-YYYY".
func DescribeLayout(layout string) string {
	r := strings.NewReplacer(
		"2006", "YYYY",
		"01", "MM",
		"02", "DD",
		"15", "HH",
		"04", "mm",
		"05", "SS",
	)
	return r.Replace(layout)
}

func cleanTags(in []string) []string {
	var out []string
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}

func dedupeTags(in []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range in {
		key := normalizeTag(s)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}

func normalizeTag(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}
