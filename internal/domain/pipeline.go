package domain

// StageType categorises a stage. It drives grouping and ordering only; it
// never constrains which transitions are allowed.
type StageType string

// Known stage types, listed in precedence order.
const (
	StageSourcing  StageType = "sourcing"
	StageScreening StageType = "screening"
	StageInterview StageType = "interview"
	StageOffer     StageType = "offer"
	StageHired     StageType = "hired"
	StageRejected  StageType = "rejected"
)

// StageTypes lists every known stage type in precedence order.
var StageTypes = []StageType{
	StageSourcing, StageScreening, StageInterview, StageOffer, StageHired, StageRejected,
}

var stagePrecedence = map[StageType]int{
	StageSourcing:  1,
	StageScreening: 2,
	StageInterview: 3,
	StageOffer:     4,
	StageHired:     5,
	StageRejected:  6,
}

// Precedence returns the sort rank of t, or ok=false for an unknown type.
func (t StageType) Precedence() (rank int, ok bool) {
	rank, ok = stagePrecedence[t]
	return rank, ok
}

// Valid reports whether t is one of the known stage types.
func (t StageType) Valid() bool {
	_, ok := stagePrecedence[t]
	return ok
}

// Stage is a named step of a hiring funnel.
type Stage struct {
	Key      string    `json:"key"`
	Name     string    `json:"name"`
	Type     StageType `json:"type"`
	Order    int       `json:"order"`
	Terminal bool      `json:"terminal"`
}

// Transition is a directed edge between two stages of the same pipeline.
type Transition struct {
	ID           string  `json:"id"`
	FromStageKey string  `json:"fromStageKey"`
	ToStageKey   string  `json:"toStageKey"`
	ActionName   string  `json:"actionName"`
	AllowedRoles RoleSet `json:"allowedRoles"`
}

// Pipeline is the stage graph attached to a job.
type Pipeline struct {
	ID          string       `json:"id,omitempty"`
	JobID       string       `json:"jobId,omitempty"`
	Name        string       `json:"name"`
	Stages      []Stage      `json:"stages"`
	Transitions []Transition `json:"transitions"`
	CreatedAt   string       `json:"createdAt,omitempty"`
	UpdatedAt   string       `json:"updatedAt,omitempty"`
}

// Stage returns the stage with the given key.
func (p *Pipeline) Stage(key string) (Stage, bool) {
	for _, s := range p.Stages {
		if s.Key == key {
			return s, true
		}
	}
	return Stage{}, false
}

// TransitionsFrom returns the transitions leaving the given stage, in
// pipeline order.
func (p *Pipeline) TransitionsFrom(key string) []Transition {
	var out []Transition
	for _, t := range p.Transitions {
		if t.FromStageKey == key {
			out = append(out, t)
		}
	}
	return out
}

// TransitionBetween returns the first transition from -> to.
func (p *Pipeline) TransitionBetween(from, to string) (Transition, bool) {
	for _, t := range p.Transitions {
		if t.FromStageKey == from && t.ToStageKey == to {
			return t, true
		}
	}
	return Transition{}, false
}

// Allows reports whether the pipeline has a transition from -> to.
func (p *Pipeline) Allows(from, to string) bool {
	_, ok := p.TransitionBetween(from, to)
	return ok
}

// Clone returns a deep copy of p.
func (p *Pipeline) Clone() *Pipeline {
	c := *p
	c.Stages = append([]Stage(nil), p.Stages...)
	c.Transitions = make([]Transition, len(p.Transitions))
	for i, t := range p.Transitions {
		t.AllowedRoles = t.AllowedRoles.Clone()
		c.Transitions[i] = t
	}
	return &c
}
