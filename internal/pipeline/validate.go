package pipeline

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/johnwards/talentflow/internal/domain"
)

// Validate checks every structural invariant of p and returns a
// ValidationErrors listing all violations, or nil.
func Validate(p *domain.Pipeline) error {
	var errs ValidationErrors

	if strings.TrimSpace(p.Name) == "" {
		errs = append(errs, ValidationError{Field: "name", Message: "pipeline name is required"})
	}
	if len(p.Stages) == 0 {
		errs = append(errs, ValidationError{Field: "stages", Message: "at least one stage is required"})
	}

	stages := make(map[string]domain.Stage, len(p.Stages))
	for i, s := range p.Stages {
		field := fmt.Sprintf("stages[%d]", i)
		switch {
		case strings.TrimSpace(s.Key) == "":
			errs = append(errs, ValidationError{Field: field + ".key", Message: "stage key is required"})
		case hasStage(stages, s.Key):
			errs = append(errs, ValidationError{Field: field + ".key", Message: fmt.Sprintf("duplicate stage key %q", s.Key)})
		default:
			stages[s.Key] = s
		}
		if strings.TrimSpace(s.Name) == "" {
			errs = append(errs, ValidationError{Field: field + ".name", Message: "stage name is required"})
		}
		if !s.Type.Valid() {
			errs = append(errs, ValidationError{Field: field + ".type", Message: fmt.Sprintf("unknown stage type %q", s.Type)})
		}
	}

	ids := make(map[string]bool, len(p.Transitions))
	for i, t := range p.Transitions {
		field := fmt.Sprintf("transitions[%d]", i)
		if t.ID != "" {
			if ids[t.ID] {
				errs = append(errs, ValidationError{Field: field + ".id", Message: fmt.Sprintf("duplicate transition id %q", t.ID)})
			}
			ids[t.ID] = true
		}
		errs = append(errs, checkTransition(field, t, stages)...)
	}

	return errs.orNil()
}

func hasStage(stages map[string]domain.Stage, key string) bool {
	_, ok := stages[key]
	return ok
}

func checkTransition(field string, t domain.Transition, stages map[string]domain.Stage) ValidationErrors {
	var errs ValidationErrors

	from, fromOK := stages[t.FromStageKey]
	if !fromOK {
		errs = append(errs, ValidationError{Field: field + ".fromStageKey", Message: fmt.Sprintf("unknown stage %q", t.FromStageKey)})
	}
	if !hasStage(stages, t.ToStageKey) {
		errs = append(errs, ValidationError{Field: field + ".toStageKey", Message: fmt.Sprintf("unknown stage %q", t.ToStageKey)})
	}
	if t.FromStageKey == t.ToStageKey {
		errs = append(errs, ValidationError{Field: field + ".toStageKey", Message: "a transition must lead to a different stage"})
	}
	if fromOK && from.Terminal {
		errs = append(errs, ValidationError{Field: field + ".fromStageKey", Message: fmt.Sprintf("stage %q is terminal", from.Key)})
	}
	if strings.TrimSpace(t.ActionName) == "" {
		errs = append(errs, ValidationError{Field: field + ".actionName", Message: "action name is required"})
	}
	return errs
}

// Prepare returns a copy of p ready to persist: missing transition IDs are
// assigned, stage orders are recalculated, and the result is validated.
func Prepare(p *domain.Pipeline) (*domain.Pipeline, error) {
	out := p.Clone()
	for i := range out.Transitions {
		if out.Transitions[i].ID == "" {
			out.Transitions[i].ID = uuid.NewString()
		}
		if out.Transitions[i].AllowedRoles == nil {
			out.Transitions[i].AllowedRoles = domain.RoleSet{}
		}
	}
	out.Stages = RecalculateOrders(out.Stages)
	if err := Validate(out); err != nil {
		return nil, err
	}
	return out, nil
}
