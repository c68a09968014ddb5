package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"

	"github.com/johnwards/talentflow/internal/domain"
)

// PipelineStore defines operations for the pipeline attached to each job.
type PipelineStore interface {
	GetByJob(ctx context.Context, jobID string) (*domain.Pipeline, error)
	Save(ctx context.Context, jobID string, p *domain.Pipeline) (*domain.Pipeline, error)
	DeleteByJob(ctx context.Context, jobID string) error
}

// SQLitePipelineStore implements PipelineStore backed by SQLite.
type SQLitePipelineStore struct {
	db *sql.DB
}

// NewSQLitePipelineStore creates a new SQLitePipelineStore.
func NewSQLitePipelineStore(db *sql.DB) *SQLitePipelineStore {
	return &SQLitePipelineStore{db: db}
}

// GetByJob returns the job's pipeline with stages in order and transitions
// in their saved sequence.
func (s *SQLitePipelineStore) GetByJob(ctx context.Context, jobID string) (*domain.Pipeline, error) {
	return getPipeline(ctx, s.db, jobID)
}

func getPipeline(ctx context.Context, q queryer, jobID string) (*domain.Pipeline, error) {
	var p domain.Pipeline
	err := q.QueryRowContext(ctx,
		`SELECT id, job_id, name, created_at, updated_at FROM pipelines WHERE job_id = ?`,
		jobID,
	).Scan(&p.ID, &p.JobID, &p.Name, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("pipeline for job %q: %w", jobID, ErrNotFound)
		}
		return nil, fmt.Errorf("get pipeline: %w", err)
	}

	if p.Stages, err = loadStages(ctx, q, p.ID); err != nil {
		return nil, err
	}
	if p.Transitions, err = loadTransitions(ctx, q, p.ID); err != nil {
		return nil, err
	}
	return &p, nil
}

// Save replaces the job's whole pipeline (stages and transitions) in one
// transaction, creating it on first save. CreatedAt survives later saves.
// Transitions without an ID are given one. Dropping or renaming a stage that
// still holds applications fails with a *StagesInUseError.
func (s *SQLitePipelineStore) Save(ctx context.Context, jobID string, p *domain.Pipeline) (*domain.Pipeline, error) {
	var out *domain.Pipeline
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := jobExists(ctx, tx, jobID); err != nil {
			return err
		}
		var err error
		out, err = savePipeline(ctx, tx, jobID, p)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// savePipeline writes p as the pipeline of an existing job inside tx.
func savePipeline(ctx context.Context, tx *sql.Tx, jobID string, p *domain.Pipeline) (*domain.Pipeline, error) {
	out := p.Clone()
	out.JobID = jobID
	if err := checkOccupiedStages(ctx, tx, jobID, out); err != nil {
		return nil, err
	}

	ts := now()
	var pipelineID int64
	var createdAt string
	err := tx.QueryRowContext(ctx,
		`SELECT id, created_at FROM pipelines WHERE job_id = ?`, jobID,
	).Scan(&pipelineID, &createdAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		result, err := tx.ExecContext(ctx,
			`INSERT INTO pipelines (job_id, name, created_at, updated_at) VALUES (?, ?, ?, ?)`,
			jobID, out.Name, ts, ts,
		)
		if err != nil {
			return nil, fmt.Errorf("create pipeline: %w", err)
		}
		if pipelineID, err = result.LastInsertId(); err != nil {
			return nil, fmt.Errorf("last insert id: %w", err)
		}
		createdAt = ts
	case err != nil:
		return nil, fmt.Errorf("lookup pipeline: %w", err)
	default:
		if _, err := tx.ExecContext(ctx,
			`UPDATE pipelines SET name = ?, updated_at = ? WHERE id = ?`,
			out.Name, ts, pipelineID,
		); err != nil {
			return nil, fmt.Errorf("update pipeline: %w", err)
		}
		for _, stmt := range []string{
			`DELETE FROM pipeline_transitions WHERE pipeline_id = ?`,
			`DELETE FROM pipeline_stages WHERE pipeline_id = ?`,
		} {
			if _, err := tx.ExecContext(ctx, stmt, pipelineID); err != nil {
				return nil, fmt.Errorf("clear pipeline: %w", err)
			}
		}
	}

	out.ID = strconv.FormatInt(pipelineID, 10)
	out.CreatedAt = createdAt
	out.UpdatedAt = ts
	if err := insertGraph(ctx, tx, pipelineID, out); err != nil {
		return nil, err
	}
	return out, nil
}

// checkOccupiedStages fails when an application of the job sits in a stage
// key that p no longer has.
func checkOccupiedStages(ctx context.Context, tx *sql.Tx, jobID string, p *domain.Pipeline) error {
	rows, err := tx.QueryContext(ctx,
		`SELECT current_stage_key, COUNT(*) FROM applications
		 WHERE job_id = ? GROUP BY current_stage_key ORDER BY current_stage_key`,
		jobID,
	)
	if err != nil {
		return fmt.Errorf("count applications by stage: %w", err)
	}
	defer func() { _ = rows.Close() }()

	inUse := &StagesInUseError{Counts: map[string]int{}}
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return fmt.Errorf("scan stage count: %w", err)
		}
		if _, ok := p.Stage(key); !ok {
			inUse.Keys = append(inUse.Keys, key)
			inUse.Counts[key] = n
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate stage counts: %w", err)
	}
	if len(inUse.Keys) > 0 {
		return inUse
	}
	return nil
}

// DeleteByJob removes the job's pipeline, its stages and its transitions.
func (s *SQLitePipelineStore) DeleteByJob(ctx context.Context, jobID string) error {
	return withTx(ctx, s.db, func(tx *sql.Tx) error {
		var pipelineID int64
		err := tx.QueryRowContext(ctx, `SELECT id FROM pipelines WHERE job_id = ?`, jobID).Scan(&pipelineID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("pipeline for job %q: %w", jobID, ErrNotFound)
			}
			return fmt.Errorf("lookup pipeline: %w", err)
		}

		for _, stmt := range []string{
			`DELETE FROM pipeline_transitions WHERE pipeline_id = ?`,
			`DELETE FROM pipeline_stages WHERE pipeline_id = ?`,
			`DELETE FROM pipelines WHERE id = ?`,
		} {
			if _, err := tx.ExecContext(ctx, stmt, pipelineID); err != nil {
				return fmt.Errorf("delete pipeline: %w", err)
			}
		}
		return nil
	})
}

func insertGraph(ctx context.Context, tx *sql.Tx, pipelineID int64, p *domain.Pipeline) error {
	for _, st := range p.Stages {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO pipeline_stages (pipeline_id, stage_key, name, type, display_order, terminal)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			pipelineID, st.Key, st.Name, st.Type, st.Order, st.Terminal,
		); err != nil {
			return fmt.Errorf("insert stage %q: %w", st.Key, err)
		}
	}

	for i := range p.Transitions {
		t := &p.Transitions[i]
		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		if t.AllowedRoles == nil {
			t.AllowedRoles = domain.RoleSet{}
		}
		roles, err := sonic.Marshal(t.AllowedRoles)
		if err != nil {
			return fmt.Errorf("marshal allowed roles: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO pipeline_transitions (id, pipeline_id, position, from_stage_key, to_stage_key, action_name, allowed_roles)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			t.ID, pipelineID, i, t.FromStageKey, t.ToStageKey, t.ActionName, string(roles),
		); err != nil {
			return fmt.Errorf("insert transition %q: %w", t.ID, err)
		}
	}
	return nil
}

func loadStages(ctx context.Context, q queryer, pipelineID string) ([]domain.Stage, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT stage_key, name, type, display_order, terminal
		 FROM pipeline_stages WHERE pipeline_id = ? ORDER BY display_order, stage_key`,
		pipelineID,
	)
	if err != nil {
		return nil, fmt.Errorf("load stages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	stages := []domain.Stage{}
	for rows.Next() {
		var st domain.Stage
		if err := rows.Scan(&st.Key, &st.Name, &st.Type, &st.Order, &st.Terminal); err != nil {
			return nil, fmt.Errorf("scan stage: %w", err)
		}
		stages = append(stages, st)
	}
	return stages, rows.Err()
}

func loadTransitions(ctx context.Context, q queryer, pipelineID string) ([]domain.Transition, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, from_stage_key, to_stage_key, action_name, allowed_roles
		 FROM pipeline_transitions WHERE pipeline_id = ? ORDER BY position`,
		pipelineID,
	)
	if err != nil {
		return nil, fmt.Errorf("load transitions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	transitions := []domain.Transition{}
	for rows.Next() {
		var t domain.Transition
		var roles string
		if err := rows.Scan(&t.ID, &t.FromStageKey, &t.ToStageKey, &t.ActionName, &roles); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		if err := sonic.UnmarshalString(roles, &t.AllowedRoles); err != nil {
			return nil, fmt.Errorf("unmarshal allowed roles: %w", err)
		}
		transitions = append(transitions, t)
	}
	return transitions, rows.Err()
}
