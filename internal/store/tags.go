package store

import (
	"fmt"
	"slices"
	"sort"
)

// TagIndex maps a lowercased tag to the IDs of tasks carrying it, in
// insertion order.
type TagIndex map[string][]int

func (ix TagIndex) add(tag string, id int) {
	key := normalizeTag(tag)
	if key == "" {
		return
	}
	ix[key] = append(ix[key], id)
}

// removeID drops every occurrence of id and deletes lists left empty.
func (ix TagIndex) removeID(id int) {
	for tag, ids := range ix {
		kept := slices.DeleteFunc(ids, func(v int) bool { return v == id })
		if len(kept) == 0 {
			delete(ix, tag)
			continue
		}
		ix[tag] = kept
	}
}

func (ix TagIndex) contains(tag string, id int) bool {
	return slices.Contains(ix[normalizeTag(tag)], id)
}

func (ix TagIndex) keys() []string {
	out := make([]string, 0, len(ix))
	for k := range ix {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (ix TagIndex) clone() TagIndex {
	out := make(TagIndex, len(ix))
	for k, ids := range ix {
		out[k] = append([]int(nil), ids...)
	}
	return out
}

// TagIssue describes one tag-index entry that disagrees with the task
// collection.
type TagIssue struct {
	Tag    string `json:"tag"`
	TaskID int    `json:"task_id"`
	Reason string `json:"reason"`
}

func (i TagIssue) String() string {
	return fmt.Sprintf("%s -> %d: %s", i.Tag, i.TaskID, i.Reason)
}

const (
	ReasonMissingTask = "task does not exist"
	ReasonStaleTag    = "task no longer carries tag"
)

func checkTagIndex(ix TagIndex, tasks map[int]*Task) []TagIssue {
	var issues []TagIssue
	for _, tag := range ix.keys() {
		seen := map[int]bool{}
		for _, id := range ix[tag] {
			if seen[id] {
				continue
			}
			seen[id] = true
			t, ok := tasks[id]
			if !ok {
				issues = append(issues, TagIssue{Tag: tag, TaskID: id, Reason: ReasonMissingTask})
				continue
			}
			if !t.HasTag(tag) {
				issues = append(issues, TagIssue{Tag: tag, TaskID: id, Reason: ReasonStaleTag})
			}
		}
	}
	return issues
}
