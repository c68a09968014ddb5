package pipeline

import (
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/johnwards/talentflow/internal/domain"
)

// NewDefault returns a new pipeline with the three stages every funnel
// starts with: Applied, Hired and Rejected.
func NewDefault(name string) *domain.Pipeline {
	return &domain.Pipeline{
		Name: name,
		Stages: []domain.Stage{
			{Key: "applied", Name: "Applied", Type: domain.StageSourcing, Order: 10},
			{Key: "hired", Name: "Hired", Type: domain.StageHired, Order: 20, Terminal: true},
			{Key: "rejected", Name: "Rejected", Type: domain.StageRejected, Order: 30, Terminal: true},
		},
		Transitions: []domain.Transition{},
	}
}

// Editor applies edits to an in-memory copy of a pipeline. Every failed edit
// leaves the pipeline exactly as it was.
type Editor struct {
	p     *domain.Pipeline
	newID func() string
}

// NewEditor starts editing a copy of p.
func NewEditor(p *domain.Pipeline) *Editor {
	return &Editor{p: p.Clone(), newID: uuid.NewString}
}

// Pipeline returns a copy of the pipeline being edited.
func (e *Editor) Pipeline() *domain.Pipeline {
	return e.p.Clone()
}

// Validate runs Validate over the pipeline being edited.
func (e *Editor) Validate() error {
	return Validate(e.p)
}

// Rename sets the pipeline name.
func (e *Editor) Rename(name string) error {
	if strings.TrimSpace(name) == "" {
		return ValidationErrors{{Field: "name", Message: "pipeline name is required"}}
	}
	e.p.Name = name
	return nil
}

// AddStage appends s at the end of its type group and renumbers all stages.
func (e *Editor) AddStage(s domain.Stage) error {
	if errs := e.checkStage(s, -1); len(errs) > 0 {
		return errs
	}
	if s.Name == "" {
		s.Name = s.Key
	}
	s.Order = e.maxOrder() + OrderStep
	e.p.Stages = RecalculateOrders(append(e.p.Stages, s))
	return nil
}

// RemoveStage deletes the stage with the given key together with every
// transition that starts or ends at it.
func (e *Editor) RemoveStage(key string) error {
	idx := e.stageIndex(key)
	if idx < 0 {
		return fmt.Errorf("%w: %q", ErrStageNotFound, key)
	}

	stages := slices.Delete(slices.Clone(e.p.Stages), idx, idx+1)
	e.p.Transitions = slices.DeleteFunc(e.p.Transitions, func(t domain.Transition) bool {
		return t.FromStageKey == key || t.ToStageKey == key
	})
	e.p.Stages = RecalculateOrders(stages)
	return nil
}

// UpdateStage replaces the stage stored under key with s. A changed key is
// propagated to every transition; a changed type triggers a renumber; a stage
// made terminal loses its outgoing transitions.
func (e *Editor) UpdateStage(key string, s domain.Stage) error {
	idx := e.stageIndex(key)
	if idx < 0 {
		return fmt.Errorf("%w: %q", ErrStageNotFound, key)
	}
	if errs := e.checkStage(s, idx); len(errs) > 0 {
		return errs
	}

	old := e.p.Stages[idx]
	if s.Name == "" {
		s.Name = s.Key
	}
	s.Order = old.Order
	e.p.Stages[idx] = s

	if s.Key != old.Key {
		for i := range e.p.Transitions {
			if e.p.Transitions[i].FromStageKey == old.Key {
				e.p.Transitions[i].FromStageKey = s.Key
			}
			if e.p.Transitions[i].ToStageKey == old.Key {
				e.p.Transitions[i].ToStageKey = s.Key
			}
		}
	}
	if s.Terminal && !old.Terminal {
		e.p.Transitions = slices.DeleteFunc(e.p.Transitions, func(t domain.Transition) bool {
			return t.FromStageKey == s.Key
		})
	}
	if s.Type != old.Type {
		e.p.Stages = RecalculateOrders(e.p.Stages)
	}
	return nil
}

// AddDefaultTransition creates a transition from the given stage to the first
// other stage in array order. The action name and roles are left for the
// caller to fill in through UpdateTransition.
func (e *Editor) AddDefaultTransition(fromKey string) (domain.Transition, error) {
	from, ok := e.p.Stage(fromKey)
	if !ok {
		return domain.Transition{}, fmt.Errorf("%w: %q", ErrStageNotFound, fromKey)
	}
	if from.Terminal {
		return domain.Transition{}, fmt.Errorf("%w: %q", ErrTerminalStage, fromKey)
	}

	for _, s := range e.p.Stages {
		if s.Key == fromKey {
			continue
		}
		t := domain.Transition{
			ID:           e.newID(),
			FromStageKey: fromKey,
			ToStageKey:   s.Key,
			AllowedRoles: domain.RoleSet{},
		}
		e.p.Transitions = append(e.p.Transitions, t)
		return t, nil
	}
	return domain.Transition{}, fmt.Errorf("%w: %q", ErrNoDestination, fromKey)
}

// UpdateTransition replaces the transition with the given ID. The ID itself
// cannot change.
func (e *Editor) UpdateTransition(id string, t domain.Transition) error {
	idx := e.transitionIndex(id)
	if idx < 0 {
		return fmt.Errorf("%w: %q", ErrTransitionNotFound, id)
	}

	stages := make(map[string]domain.Stage, len(e.p.Stages))
	for _, s := range e.p.Stages {
		stages[s.Key] = s
	}
	field := fmt.Sprintf("transitions[%d]", idx)
	if errs := checkTransition(field, t, stages); len(errs) > 0 {
		return errs
	}

	t.ID = id
	t.AllowedRoles = t.AllowedRoles.Clone()
	if t.AllowedRoles == nil {
		t.AllowedRoles = domain.RoleSet{}
	}
	e.p.Transitions[idx] = t
	return nil
}

// RemoveTransition deletes the transition with the given ID.
func (e *Editor) RemoveTransition(id string) error {
	idx := e.transitionIndex(id)
	if idx < 0 {
		return fmt.Errorf("%w: %q", ErrTransitionNotFound, id)
	}
	e.p.Transitions = slices.Delete(e.p.Transitions, idx, idx+1)
	return nil
}

// MoveStage handles a stage dragged onto another stage: the dragged stage
// takes the target's position within their shared type group. Dropping onto a
// stage of a different type returns ErrCrossTypeMove and changes nothing.
func (e *Editor) MoveStage(activeKey, overKey string) error {
	active, ok := e.p.Stage(activeKey)
	if !ok {
		return fmt.Errorf("%w: %q", ErrStageNotFound, activeKey)
	}
	over, ok := e.p.Stage(overKey)
	if !ok {
		return fmt.Errorf("%w: %q", ErrStageNotFound, overKey)
	}
	if activeKey == overKey {
		return nil
	}
	if active.Type != over.Type {
		return ErrCrossTypeMove
	}

	var group []domain.Stage
	for _, s := range e.p.Stages {
		if s.Type == active.Type {
			group = append(group, s)
		}
	}
	slices.SortStableFunc(group, compareStages)

	orders := make([]int, len(group))
	for i, s := range group {
		orders[i] = s.Order
	}

	from := slices.IndexFunc(group, func(s domain.Stage) bool { return s.Key == activeKey })
	to := slices.IndexFunc(group, func(s domain.Stage) bool { return s.Key == overKey })
	group = arrayMove(group, from, to)

	newOrder := make(map[string]int, len(group))
	for i, s := range group {
		newOrder[s.Key] = orders[i]
	}
	stages := slices.Clone(e.p.Stages)
	for i := range stages {
		if o, ok := newOrder[stages[i].Key]; ok {
			stages[i].Order = o
		}
	}
	e.p.Stages = RecalculateOrders(stages)
	return nil
}

// arrayMove moves the element at from to index to, shifting the rest.
func arrayMove[T any](s []T, from, to int) []T {
	out := slices.Clone(s)
	v := out[from]
	out = slices.Delete(out, from, from+1)
	return slices.Insert(out, to, v)
}

// checkStage validates s as the stage at index self (-1 for a new stage).
func (e *Editor) checkStage(s domain.Stage, self int) ValidationErrors {
	var errs ValidationErrors
	if strings.TrimSpace(s.Key) == "" {
		errs = append(errs, ValidationError{Field: "key", Message: "stage key is required"})
	} else if idx := e.stageIndex(s.Key); idx >= 0 && idx != self {
		errs = append(errs, ValidationError{Field: "key", Message: fmt.Sprintf("stage key %q is already used", s.Key)})
	}
	if !s.Type.Valid() {
		errs = append(errs, ValidationError{Field: "type", Message: fmt.Sprintf("unknown stage type %q", s.Type)})
	}
	return errs
}

func (e *Editor) stageIndex(key string) int {
	return slices.IndexFunc(e.p.Stages, func(s domain.Stage) bool { return s.Key == key })
}

func (e *Editor) transitionIndex(id string) int {
	return slices.IndexFunc(e.p.Transitions, func(t domain.Transition) bool { return t.ID == id })
}

func (e *Editor) maxOrder() int {
	m := 0
	for _, s := range e.p.Stages {
		m = max(m, s.Order)
	}
	return m
}
