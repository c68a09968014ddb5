package seed

import (
	_ "embed"
	"errors"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/johnwards/talentflow/internal/domain"
	"github.com/johnwards/talentflow/internal/pipeline"
)

//go:embed templates.yaml
var templatesYAML []byte

// ErrUnknownTemplate is returned for a template key that does not exist.
var ErrUnknownTemplate = errors.New("unknown pipeline template")

// Template is a named starting pipeline.
type Template struct {
	Key         string           `json:"key"`
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Pipeline    *domain.Pipeline `json:"pipeline"`
}

type templateDef struct {
	Key         string          `yaml:"key"`
	Name        string          `yaml:"name"`
	Description string          `yaml:"description"`
	Stages      []stageDef      `yaml:"stages"`
	Transitions []transitionDef `yaml:"transitions"`
}

type stageDef struct {
	Key      string `yaml:"key"`
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Terminal bool   `yaml:"terminal"`
}

type transitionDef struct {
	From   string   `yaml:"from"`
	To     string   `yaml:"to"`
	Action string   `yaml:"action"`
	Roles  []string `yaml:"roles"`
}

var loadTemplates = sync.OnceValues(func() ([]Template, error) {
	return ParseTemplates(templatesYAML)
})

// ParseTemplates decodes a YAML list of templates. Every template is
// prepared and validated like a saved pipeline.
func ParseTemplates(data []byte) ([]Template, error) {
	var defs []templateDef
	if err := yaml.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("decode templates: %w", err)
	}

	out := make([]Template, 0, len(defs))
	seen := make(map[string]struct{}, len(defs))
	for _, d := range defs {
		if d.Key == "" {
			return nil, errors.New("template key is required")
		}
		if _, dup := seen[d.Key]; dup {
			return nil, fmt.Errorf("duplicate template %q", d.Key)
		}
		seen[d.Key] = struct{}{}

		p := &domain.Pipeline{Name: d.Name, Stages: []domain.Stage{}, Transitions: []domain.Transition{}}
		for i, s := range d.Stages {
			p.Stages = append(p.Stages, domain.Stage{
				Key:      s.Key,
				Name:     s.Name,
				Type:     domain.StageType(s.Type),
				Order:    (i + 1) * pipeline.OrderStep,
				Terminal: s.Terminal,
			})
		}
		for _, t := range d.Transitions {
			p.Transitions = append(p.Transitions, domain.Transition{
				FromStageKey: t.From,
				ToStageKey:   t.To,
				ActionName:   t.Action,
				AllowedRoles: domain.NewRoleSet(t.Roles...),
			})
		}

		prepared, err := pipeline.Prepare(p)
		if err != nil {
			return nil, fmt.Errorf("template %q: %w", d.Key, err)
		}
		out = append(out, Template{Key: d.Key, Name: d.Name, Description: d.Description, Pipeline: prepared})
	}
	return out, nil
}

// Templates returns the built-in pipeline templates.
func Templates() ([]Template, error) {
	return loadTemplates()
}

// NewPipeline returns a copy of the template's pipeline with fresh
// transition IDs, renamed to name when set. An empty key yields
// pipeline.NewDefault.
func NewPipeline(key, name string) (*domain.Pipeline, error) {
	if key == "" {
		return pipeline.NewDefault(name), nil
	}
	templates, err := Templates()
	if err != nil {
		return nil, err
	}
	for _, t := range templates {
		if t.Key == key {
			p := t.Pipeline.Clone()
			for i := range p.Transitions {
				p.Transitions[i].ID = ""
			}
			if name != "" {
				p.Name = name
			}
			return pipeline.Prepare(p)
		}
	}
	return nil, fmt.Errorf("%q: %w", key, ErrUnknownTemplate)
}
