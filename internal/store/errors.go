package store

import (
	"errors"
	"strings"
)

var (
	ErrInvalid        = errors.New("invalid")
	ErrInvalidDueDate = errors.New("invalid due date")
	ErrTaskNotFound   = errors.New("task not found")
	ErrPersistence    = errors.New("persistence error")
	ErrCorruptState   = errors.New("corrupt state")

	// ErrNoState is returned by a Persister when nothing has been saved yet.
	ErrNoState = errors.New("no saved state")
)

// PersistenceError carries the failed load/save step.
// It satisfies errors.Is(err, ErrPersistence).
type PersistenceError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	if e == nil {
		return "persistence error"
	}
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Path != "" {
		b.WriteString(" ")
		b.WriteString(e.Path)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

func (e *PersistenceError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
