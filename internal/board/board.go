// Package board renders a job's applications as Kanban columns, one per
// pipeline stage, and drives card moves and bulk rejection against a
// Backend.
package board

import "github.com/johnwards/talentflow/internal/domain"

// Column holds the applications currently in one stage.
type Column struct {
	Stage        domain.Stage         `json:"stage"`
	Applications []domain.Application `json:"applications"`
}

// Board is the column view of a job's pipeline.
type Board struct {
	JobID      string               `json:"jobId"`
	Pipeline   *domain.Pipeline     `json:"-"`
	Columns    []Column             `json:"columns"`
	Unassigned []domain.Application `json:"unassigned"`
}

// Build buckets apps into one column per stage of p, in stage order.
// Applications whose stage key matches no stage land in Unassigned.
// Rejected or withdrawn applications still sitting in a non-terminal stage
// have left the funnel and are not shown.
func Build(p *domain.Pipeline, apps []domain.Application) *Board {
	b := &Board{
		JobID:      p.JobID,
		Pipeline:   p,
		Columns:    make([]Column, len(p.Stages)),
		Unassigned: []domain.Application{},
	}

	index := make(map[string]int, len(p.Stages))
	for i, st := range p.Stages {
		b.Columns[i] = Column{Stage: st, Applications: []domain.Application{}}
		index[st.Key] = i
	}

	for _, a := range apps {
		i, ok := index[a.CurrentStageKey]
		if !ok {
			b.Unassigned = append(b.Unassigned, a)
			continue
		}
		if !a.Status.InFunnel() && !b.Columns[i].Stage.Terminal {
			continue
		}
		b.Columns[i].Applications = append(b.Columns[i].Applications, a)
	}
	return b
}

// Column returns the column for the given stage key.
func (b *Board) Column(key string) (*Column, bool) {
	for i := range b.Columns {
		if b.Columns[i].Stage.Key == key {
			return &b.Columns[i], true
		}
	}
	return nil, false
}

// Len returns the number of applications shown, Unassigned included.
func (b *Board) Len() int {
	n := len(b.Unassigned)
	for _, c := range b.Columns {
		n += len(c.Applications)
	}
	return n
}
