package store

import (
	"slices"
	"sort"
	"strings"
	"time"
)

// Filter criteria are combined with AND. The zero Filter matches every task.
type Filter struct {
	PriorityOnly bool
	// DueBefore is a date in the store's configured input format.
	DueBefore string
	Tags      []string
}

// undatedSortKey stands in for a missing due date when sorting.
var undatedSortKey = time.Date(9999, time.December, 31, 0, 0, 0, 0, time.UTC)

// FilterTasks returns matching tasks in ID order.
func (s *Store) FilterTasks(f Filter) ([]Task, error) {
	var cutoff time.Time
	hasCutoff := strings.TrimSpace(f.DueBefore) != ""
	if hasCutoff {
		d, err := ParseDate(f.DueBefore, s.cfg.DateFormat)
		if err != nil {
			return nil, err
		}
		cutoff = d
	}

	tags := cleanTags(f.Tags)
	if len(tags) > 0 {
		if len(s.tags) == 0 {
			return []Task{}, nil
		}
		for _, tag := range tags {
			// an unknown tag fails the whole filter
			if len(s.tags[normalizeTag(tag)]) == 0 {
				return []Task{}, nil
			}
		}
	}

	out := []Task{}
	for _, id := range s.sortedIDs() {
		t := s.tasks[id]
		if f.PriorityOnly && !t.Priority {
			continue
		}
		if hasCutoff {
			due, ok, err := t.Due()
			if err != nil {
				return nil, err
			}
			if !ok || due.After(cutoff) {
				continue
			}
		}
		if !s.carriesAll(id, tags) {
			continue
		}
		out = append(out, t.clone())
	}
	return out, nil
}

func (s *Store) carriesAll(id int, tags []string) bool {
	for _, tag := range tags {
		if !s.tags.contains(tag, id) {
			return false
		}
	}
	return true
}

// ListTasks filters and orders tasks for display.
func (s *Store) ListTasks(f Filter) ([]Task, error) {
	tasks, err := s.FilterTasks(f)
	if err != nil {
		return nil, err
	}
	SortForDisplay(tasks)
	return tasks, nil
}

// SortForDisplay ranks tasks pending-first, non-priority-first and latest
// due date first (undated as 9999-12-31), then reverses the slice. The
// result shows completed tasks first, priority tasks ahead of the rest of
// their group and the earliest due dates first.
func SortForDisplay(tasks []Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		if a.Done != b.Done {
			return !a.Done
		}
		if a.Priority != b.Priority {
			return !a.Priority
		}
		return dueSortKey(a).After(dueSortKey(b))
	})
	slices.Reverse(tasks)
}

func dueSortKey(t Task) time.Time {
	due, ok, err := t.Due()
	if err != nil || !ok {
		return undatedSortKey
	}
	return due
}
