package pipeline

import (
	"errors"
	"strings"
)

var (
	// ErrStageNotFound is returned when a stage key does not exist.
	ErrStageNotFound = errors.New("stage not found")
	// ErrTransitionNotFound is returned when a transition ID does not exist.
	ErrTransitionNotFound = errors.New("transition not found")
	// ErrCrossTypeMove is returned when a stage is dropped onto a stage of
	// another type. The pipeline is left unchanged.
	ErrCrossTypeMove = errors.New("stages can only be reordered within the same type")
	// ErrTerminalStage is returned when an outgoing transition is requested
	// for a terminal stage.
	ErrTerminalStage = errors.New("terminal stages have no outgoing transitions")
	// ErrNoDestination is returned when a stage has no other stage to move to.
	ErrNoDestination = errors.New("no other stage to transition to")
)

// ValidationError describes one invalid field of a pipeline.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// ValidationErrors collects every problem found in one validation pass.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	msgs := make([]string, len(v))
	for i, e := range v {
		msgs[i] = e.Error()
	}
	return "invalid pipeline: " + strings.Join(msgs, "; ")
}

func (v ValidationErrors) orNil() error {
	if len(v) == 0 {
		return nil
	}
	return v
}
