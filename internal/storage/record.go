package storage

import (
	"fmt"
	"strconv"

	"github.com/amirbrooks/tasklite/internal/store"
)

// record is the on-disk layout. Task IDs are map keys in decimal so every
// codec (TOML included) can represent them.
type record struct {
	Tasks  map[string]store.Task `json:"tasks" yaml:"tasks" toml:"tasks" msgpack:"tasks"`
	Tags   map[string][]int      `json:"tags" yaml:"tags" toml:"tags" msgpack:"tags"`
	NextID int                   `json:"next_id" yaml:"next_id" toml:"next_id" msgpack:"next_id"`
	Config store.Config          `json:"config" yaml:"config" toml:"config" msgpack:"config"`
}

func toRecord(st *store.State) *record {
	rec := &record{
		Tasks:  make(map[string]store.Task, len(st.Tasks)),
		Tags:   make(map[string][]int, len(st.Tags)),
		NextID: st.NextID,
		Config: st.Config,
	}
	for id, t := range st.Tasks {
		rec.Tasks[strconv.Itoa(id)] = t
	}
	for tag, ids := range st.Tags {
		rec.Tags[tag] = append([]int{}, ids...)
	}
	return rec
}

func fromRecord(rec *record) (*store.State, error) {
	st := &store.State{
		Tasks:  make(map[int]store.Task, len(rec.Tasks)),
		Tags:   make(store.TagIndex, len(rec.Tags)),
		NextID: rec.NextID,
		Config: rec.Config,
	}
	for key, t := range rec.Tasks {
		id, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("%w: task key %q is not an id", store.ErrCorruptState, key)
		}
		st.Tasks[id] = t
	}
	for tag, ids := range rec.Tags {
		st.Tags[tag] = append([]int(nil), ids...)
	}
	return st, nil
}
