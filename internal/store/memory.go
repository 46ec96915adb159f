package store

// MemoryPersister keeps the saved state in memory.
type MemoryPersister struct {
	state *State
	saves int

	// SaveErr, when set, is returned by every Save.
	SaveErr error
}

func NewMemoryPersister() *MemoryPersister {
	return &MemoryPersister{}
}

func (m *MemoryPersister) Load() (*State, error) {
	if m.state == nil {
		return nil, ErrNoState
	}
	return copyState(m.state), nil
}

func (m *MemoryPersister) Save(st *State) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.state = copyState(st)
	m.saves++
	return nil
}

// Saves counts successful saves.
func (m *MemoryPersister) Saves() int {
	return m.saves
}

func copyState(st *State) *State {
	out := &State{
		Tasks:  make(map[int]Task, len(st.Tasks)),
		Tags:   st.Tags.clone(),
		NextID: st.NextID,
		Config: st.Config,
	}
	for id, t := range st.Tasks {
		out.Tasks[id] = t.clone()
	}
	return out
}
