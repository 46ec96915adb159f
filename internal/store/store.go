package store

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// Persister loads and saves the full store state. Load returns ErrNoState
// when nothing has been saved yet.
type Persister interface {
	Load() (*State, error)
	Save(*State) error
}

type Config struct {
	DateFormat string `json:"date_format" yaml:"date_format" toml:"date_format" msgpack:"date_format"`
}

func defaultConfig() Config {
	return Config{DateFormat: DefaultDateFormat}
}

// State is the persisted form of a Store.
type State struct {
	Tasks  map[int]Task
	Tags   TagIndex
	NextID int
	Config Config
}

// NewState returns the state of a store that has never been saved.
func NewState(cfg Config) *State {
	if strings.TrimSpace(cfg.DateFormat) == "" {
		cfg = defaultConfig()
	}
	return &State{
		Tasks:  map[int]Task{},
		Tags:   TagIndex{},
		NextID: 1,
		Config: cfg,
	}
}

type Store struct {
	tasks  map[int]*Task
	tags   TagIndex
	nextID int
	cfg    Config

	persister  Persister
	logger     *zap.Logger
	strictTags bool
	initFormat string
}

type Option func(*Store)

func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStrictTagSync keeps the tag index in step with each task's current
// tags: duplicates are dropped on add and old entries are pruned on edit.
// Off by default, which lets the index accumulate tags across edits.
func WithStrictTagSync(on bool) Option {
	return func(s *Store) { s.strictTags = on }
}

// WithDateFormat sets the input date layout used when no state exists yet.
func WithDateFormat(layout string) Option {
	return func(s *Store) { s.initFormat = strings.TrimSpace(layout) }
}

// Open loads the store from p. On first run an empty state is created and
// saved before Open returns.
func Open(p Persister, opts ...Option) (*Store, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: persister is required", ErrInvalid)
	}
	s := &Store{persister: p, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}

	st, err := p.Load()
	switch {
	case errors.Is(err, ErrNoState):
		st = NewState(Config{DateFormat: s.initFormat})
		s.apply(st)
		s.logger.Debug("initialized empty task list", zap.String("date_format", s.cfg.DateFormat))
		if err := s.save(); err != nil {
			return nil, err
		}
		return s, nil
	case err != nil:
		return nil, err
	}
	if err := validateState(st); err != nil {
		return nil, err
	}
	s.apply(st)
	s.logger.Debug("loaded task list", zap.Int("tasks", len(s.tasks)), zap.Int("next_id", s.nextID))
	return s, nil
}

func (s *Store) apply(st *State) {
	s.tasks = make(map[int]*Task, len(st.Tasks))
	for id, t := range st.Tasks {
		t := t.clone()
		s.tasks[id] = &t
	}
	s.tags = st.Tags.clone()
	s.nextID = st.NextID
	s.cfg = st.Config
}

func (s *Store) Config() Config {
	return s.cfg
}

// State returns a deep copy of the current state.
func (s *Store) State() *State {
	st := &State{
		Tasks:  make(map[int]Task, len(s.tasks)),
		Tags:   s.tags.clone(),
		NextID: s.nextID,
		Config: s.cfg,
	}
	for id, t := range s.tasks {
		st.Tasks[id] = t.clone()
	}
	return st
}

func (s *Store) save() error {
	if err := s.persister.Save(s.State()); err != nil {
		s.logger.Error("save failed", zap.Error(err))
		var pe *PersistenceError
		if errors.As(err, &pe) {
			return err
		}
		return &PersistenceError{Op: "save", Err: err}
	}
	return nil
}

func (s *Store) AddTask(in AddTaskInput) (*Task, error) {
	t, err := NewTask(s.nextID, in, s.cfg.DateFormat)
	if err != nil {
		return nil, err
	}
	s.nextID++
	if s.strictTags {
		t.Tags = dedupeTags(t.Tags)
	}
	for _, tag := range t.Tags {
		s.tags.add(tag, t.ID)
	}
	s.tasks[t.ID] = t
	s.logger.Debug("task added", zap.Int("id", t.ID), zap.Strings("tags", t.Tags))

	if err := s.save(); err != nil {
		return nil, err
	}
	out := t.clone()
	return &out, nil
}

func (s *Store) EditTask(id int, in EditTaskInput) (*Task, error) {
	t, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	if err := t.Edit(in, s.cfg.DateFormat); err != nil {
		return nil, err
	}
	if in.Tags != nil {
		if s.strictTags {
			t.Tags = dedupeTags(t.Tags)
			s.tags.removeID(id)
		}
		for _, tag := range t.Tags {
			s.tags.add(tag, id)
		}
	}
	s.logger.Debug("task edited", zap.Int("id", id))

	if err := s.save(); err != nil {
		return nil, err
	}
	out := t.clone()
	return &out, nil
}

// RemoveTask deletes the task and purges its ID from every tag list,
// including lists it only reached through earlier edits.
func (s *Store) RemoveTask(id int) (*Task, error) {
	t, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	delete(s.tasks, id)
	s.tags.removeID(id)
	s.logger.Debug("task removed", zap.Int("id", id))

	if err := s.save(); err != nil {
		return nil, err
	}
	out := t.clone()
	return &out, nil
}

// MarkDone sets Done without touching UpdatedAt.
func (s *Store) MarkDone(id int) (*Task, error) {
	t, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	t.Done = true
	s.logger.Debug("task done", zap.Int("id", id))

	if err := s.save(); err != nil {
		return nil, err
	}
	out := t.clone()
	return &out, nil
}

func (s *Store) ResetAll() error {
	s.tasks = map[int]*Task{}
	s.tags = TagIndex{}
	s.nextID = 1
	s.logger.Debug("task list reset")
	return s.save()
}

func (s *Store) GetTask(id int) (*Task, error) {
	t, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	out := t.clone()
	return &out, nil
}

// ListTags returns the tag index keys in sorted order.
func (s *Store) ListTags() []string {
	return s.tags.keys()
}

// CheckTagIndex reports index entries that point at missing tasks or at
// tasks that no longer carry the tag.
func (s *Store) CheckTagIndex() []TagIssue {
	return checkTagIndex(s.tags, s.tasks)
}

func (s *Store) lookup(id int) (*Task, error) {
	t, ok := s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", ErrTaskNotFound, id)
	}
	return t, nil
}

func (s *Store) sortedIDs() []int {
	ids := make([]int, 0, len(s.tasks))
	for id := range s.tasks {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func validateState(st *State) error {
	if st == nil {
		return fmt.Errorf("%w: empty state", ErrCorruptState)
	}
	if st.NextID < 1 {
		return fmt.Errorf("%w: next_id %d must be at least 1", ErrCorruptState, st.NextID)
	}
	if strings.TrimSpace(st.Config.DateFormat) == "" {
		return fmt.Errorf("%w: date_format is empty", ErrCorruptState)
	}
	if st.Tasks == nil {
		st.Tasks = map[int]Task{}
	}
	if st.Tags == nil {
		st.Tags = TagIndex{}
	}
	for id, t := range st.Tasks {
		if t.ID != id {
			return fmt.Errorf("%w: task stored under %d has id %d", ErrCorruptState, id, t.ID)
		}
		if id < 1 || id >= st.NextID {
			return fmt.Errorf("%w: task id %d outside 1..%d", ErrCorruptState, id, st.NextID-1)
		}
		if strings.TrimSpace(t.Name) == "" {
			return fmt.Errorf("%w: task %d has no name", ErrCorruptState, id)
		}
		if _, _, err := t.Due(); err != nil {
			return err
		}
		if t.Tags != nil && len(cleanTags(t.Tags)) != len(t.Tags) {
			return fmt.Errorf("%w: task %d has blank tags", ErrCorruptState, id)
		}
		if t.Tags != nil && len(t.Tags) == 0 {
			return fmt.Errorf("%w: task %d has an empty tag list", ErrCorruptState, id)
		}
	}
	for tag, ids := range st.Tags {
		if tag != normalizeTag(tag) || tag == "" {
			return fmt.Errorf("%w: tag key %q is not normalized", ErrCorruptState, tag)
		}
		if len(ids) == 0 {
			return fmt.Errorf("%w: tag %q has no tasks", ErrCorruptState, tag)
		}
		for _, id := range ids {
			if _, ok := st.Tasks[id]; !ok {
				return fmt.Errorf("%w: tag %q references missing task %d", ErrCorruptState, tag, id)
			}
		}
	}
	return nil
}
