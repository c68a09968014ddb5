package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/johnwards/talentflow/internal/domain"
)

// JobStore defines operations for managing job postings.
type JobStore interface {
	Create(ctx context.Context, j *domain.Job) (*domain.Job, error)
	CreateWithPipeline(ctx context.Context, j *domain.Job, p *domain.Pipeline) (*domain.Job, *domain.Pipeline, error)
	Get(ctx context.Context, id string) (*domain.Job, error)
	List(ctx context.Context) ([]domain.Job, error)
	Update(ctx context.Context, id string, j *domain.Job) (*domain.Job, error)
}

// SQLiteJobStore implements JobStore backed by SQLite.
type SQLiteJobStore struct {
	db *sql.DB
}

// NewSQLiteJobStore creates a new SQLiteJobStore.
func NewSQLiteJobStore(db *sql.DB) *SQLiteJobStore {
	return &SQLiteJobStore{db: db}
}

// Create inserts a new job. An empty status defaults to open.
func (s *SQLiteJobStore) Create(ctx context.Context, j *domain.Job) (*domain.Job, error) {
	return insertJob(ctx, s.db, j)
}

// CreateWithPipeline inserts a job and its first pipeline in one
// transaction. Neither is written when either fails.
func (s *SQLiteJobStore) CreateWithPipeline(ctx context.Context, j *domain.Job, p *domain.Pipeline) (*domain.Job, *domain.Pipeline, error) {
	var job *domain.Job
	var saved *domain.Pipeline
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		if job, err = insertJob(ctx, tx, j); err != nil {
			return err
		}
		saved, err = savePipeline(ctx, tx, job.ID, p)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return job, saved, nil
}

func insertJob(ctx context.Context, q queryer, j *domain.Job) (*domain.Job, error) {
	out := *j
	if out.Status == "" {
		out.Status = domain.JobOpen
	}
	ts := now()

	result, err := q.ExecContext(ctx,
		`INSERT INTO jobs (title, department, location, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		out.Title, out.Department, out.Location, out.Status, ts, ts,
	)
	if err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	out.ID = strconv.FormatInt(id, 10)
	out.CreatedAt = ts
	out.UpdatedAt = ts
	return &out, nil
}

// Get returns a single job by ID.
func (s *SQLiteJobStore) Get(ctx context.Context, id string) (*domain.Job, error) {
	var j domain.Job
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, department, location, status, created_at, updated_at
		 FROM jobs WHERE id = ?`,
		id,
	).Scan(&j.ID, &j.Title, &j.Department, &j.Location, &j.Status, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("job %q: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get job: %w", err)
	}
	return &j, nil
}

// List returns all jobs, oldest first.
func (s *SQLiteJobStore) List(ctx context.Context) ([]domain.Job, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, department, location, status, created_at, updated_at
		 FROM jobs ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	jobs := []domain.Job{}
	for rows.Next() {
		var j domain.Job
		if err := rows.Scan(&j.ID, &j.Title, &j.Department, &j.Location, &j.Status, &j.CreatedAt, &j.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// Update partially updates a job (PATCH semantics): empty fields are kept.
func (s *SQLiteJobStore) Update(ctx context.Context, id string, j *domain.Job) (*domain.Job, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if j.Title != "" {
		existing.Title = j.Title
	}
	if j.Department != "" {
		existing.Department = j.Department
	}
	if j.Location != "" {
		existing.Location = j.Location
	}
	if j.Status != "" {
		existing.Status = j.Status
	}
	existing.UpdatedAt = now()

	_, err = s.db.ExecContext(ctx,
		`UPDATE jobs SET title = ?, department = ?, location = ?, status = ?, updated_at = ? WHERE id = ?`,
		existing.Title, existing.Department, existing.Location, existing.Status, existing.UpdatedAt, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update job: %w", err)
	}
	return existing, nil
}
