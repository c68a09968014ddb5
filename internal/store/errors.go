package store

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a write clashes with existing rows.
	ErrConflict = errors.New("conflict")
	// ErrStaleStage is returned when an application is no longer in the stage
	// a stage change expected it to be in.
	ErrStaleStage = errors.New("application stage changed concurrently")
)

// StagesInUseError lists the stage keys a pipeline save would remove while
// applications are still in them. It matches ErrConflict.
type StagesInUseError struct {
	Keys   []string
	Counts map[string]int
}

func (e *StagesInUseError) Error() string {
	return fmt.Sprintf("stages still hold applications: %s", strings.Join(e.Keys, ", "))
}

// Is reports ErrConflict.
func (e *StagesInUseError) Is(target error) bool {
	return target == ErrConflict
}
