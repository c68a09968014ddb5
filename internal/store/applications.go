package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/johnwards/talentflow/internal/domain"
)

// ApplicationStore defines operations for candidate applications and their
// stage history.
type ApplicationStore interface {
	Create(ctx context.Context, a *domain.Application) (*domain.Application, error)
	Get(ctx context.Context, id string) (*domain.Application, error)
	ListByJob(ctx context.Context, jobID string) ([]domain.Application, error)
	ChangeStage(ctx context.Context, id string, m StageMove) (*domain.Application, error)
	BulkUpdateStatus(ctx context.Context, ids []string, status domain.ApplicationStatus) (int, error)
	History(ctx context.Context, id string) ([]domain.StageChange, error)
}

// StageMove describes a stage change already checked against the pipeline.
// When Expected is set the move fails with ErrStaleStage unless the
// application is still in that stage.
type StageMove struct {
	To       string
	Expected string
	Status   domain.ApplicationStatus
	Reason   string
	Notes    string
	Actor    string
}

// SQLiteApplicationStore implements ApplicationStore backed by SQLite.
type SQLiteApplicationStore struct {
	db *sql.DB
}

// NewSQLiteApplicationStore creates a new SQLiteApplicationStore.
func NewSQLiteApplicationStore(db *sql.DB) *SQLiteApplicationStore {
	return &SQLiteApplicationStore{db: db}
}

const applicationColumns = `id, job_id, candidate_name, candidate_email, current_stage_key, status, created_at, updated_at`

func scanApplication(row interface{ Scan(dest ...any) error }) (*domain.Application, error) {
	var a domain.Application
	if err := row.Scan(&a.ID, &a.JobID, &a.CandidateName, &a.CandidateEmail,
		&a.CurrentStageKey, &a.Status, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

// Create inserts an application for an existing job. An empty status
// defaults to active. A candidate email may apply to a job once; a repeat
// returns ErrConflict.
func (s *SQLiteApplicationStore) Create(ctx context.Context, a *domain.Application) (*domain.Application, error) {
	out := *a
	if out.Status == "" {
		out.Status = domain.StatusActive
	}

	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := jobExists(ctx, tx, out.JobID); err != nil {
			return err
		}
		if out.CandidateEmail != "" {
			var n int
			if err := tx.QueryRowContext(ctx,
				`SELECT COUNT(*) FROM applications WHERE job_id = ? AND candidate_email = ? COLLATE NOCASE`,
				out.JobID, out.CandidateEmail,
			).Scan(&n); err != nil {
				return fmt.Errorf("check duplicate application: %w", err)
			}
			if n > 0 {
				return fmt.Errorf("%s already applied to job %s: %w", out.CandidateEmail, out.JobID, ErrConflict)
			}
		}
		ts := now()
		result, err := tx.ExecContext(ctx,
			`INSERT INTO applications (job_id, candidate_name, candidate_email, current_stage_key, status, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			out.JobID, out.CandidateName, out.CandidateEmail, out.CurrentStageKey, out.Status, ts, ts,
		)
		if err != nil {
			return fmt.Errorf("create application: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("last insert id: %w", err)
		}
		out.ID = strconv.FormatInt(id, 10)
		out.CreatedAt = ts
		out.UpdatedAt = ts
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Get returns a single application by ID.
func (s *SQLiteApplicationStore) Get(ctx context.Context, id string) (*domain.Application, error) {
	return getApplication(ctx, s.db, id)
}

func getApplication(ctx context.Context, q queryer, id string) (*domain.Application, error) {
	a, err := scanApplication(q.QueryRowContext(ctx,
		`SELECT `+applicationColumns+` FROM applications WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("application %q: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get application: %w", err)
	}
	return a, nil
}

// ListByJob returns every application of a job, oldest first.
func (s *SQLiteApplicationStore) ListByJob(ctx context.Context, jobID string) ([]domain.Application, error) {
	if err := jobExists(ctx, s.db, jobID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+applicationColumns+` FROM applications WHERE job_id = ? ORDER BY id`, jobID)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	defer func() { _ = rows.Close() }()

	apps := []domain.Application{}
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("scan application: %w", err)
		}
		apps = append(apps, *a)
	}
	return apps, rows.Err()
}

// ChangeStage moves an application and appends a history entry in the same
// transaction.
func (s *SQLiteApplicationStore) ChangeStage(ctx context.Context, id string, m StageMove) (*domain.Application, error) {
	var out *domain.Application
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		a, err := getApplication(ctx, tx, id)
		if err != nil {
			return err
		}
		if m.Expected != "" && a.CurrentStageKey != m.Expected {
			return fmt.Errorf("application %q is in %q, expected %q: %w",
				id, a.CurrentStageKey, m.Expected, ErrStaleStage)
		}

		status := m.Status
		if status == "" {
			status = a.Status
		}
		ts := now()
		if _, err := tx.ExecContext(ctx,
			`UPDATE applications SET current_stage_key = ?, status = ?, updated_at = ? WHERE id = ?`,
			m.To, status, ts, id,
		); err != nil {
			return fmt.Errorf("update application stage: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO application_stage_history (application_id, from_stage_key, to_stage_key, reason, notes, actor, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			id, a.CurrentStageKey, m.To, m.Reason, m.Notes, m.Actor, ts,
		); err != nil {
			return fmt.Errorf("insert stage history: %w", err)
		}

		a.CurrentStageKey = m.To
		a.Status = status
		a.UpdatedAt = ts
		out = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// BulkUpdateStatus sets status on every listed application. It is all or
// nothing: if any ID is unknown nothing changes and ErrNotFound is returned.
// Duplicate IDs are counted once.
func (s *SQLiteApplicationStore) BulkUpdateStatus(ctx context.Context, ids []string, status domain.ApplicationStatus) (int, error) {
	unique := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	if len(unique) == 0 {
		return 0, nil
	}

	var updated int
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		ts := now()
		for _, id := range unique {
			result, err := tx.ExecContext(ctx,
				`UPDATE applications SET status = ?, updated_at = ? WHERE id = ?`,
				status, ts, id,
			)
			if err != nil {
				return fmt.Errorf("update application status: %w", err)
			}
			n, err := result.RowsAffected()
			if err != nil {
				return fmt.Errorf("rows affected: %w", err)
			}
			if n == 0 {
				return fmt.Errorf("application %q: %w", id, ErrNotFound)
			}
			updated++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return updated, nil
}

// History returns an application's stage changes, oldest first.
func (s *SQLiteApplicationStore) History(ctx context.Context, id string) ([]domain.StageChange, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, application_id, from_stage_key, to_stage_key, reason, notes, actor, created_at
		 FROM application_stage_history WHERE application_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("list stage history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	history := []domain.StageChange{}
	for rows.Next() {
		var c domain.StageChange
		if err := rows.Scan(&c.ID, &c.ApplicationID, &c.FromStageKey, &c.ToStageKey,
			&c.Reason, &c.Notes, &c.Actor, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan stage history: %w", err)
		}
		history = append(history, c)
	}
	return history, rows.Err()
}

