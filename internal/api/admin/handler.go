package admin

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/johnwards/talentflow/internal/api"
	"github.com/johnwards/talentflow/internal/seed"
)

// PurgeFunc drops any cached copies of the data being reset.
type PurgeFunc func(ctx context.Context) error

// Handler serves the admin API at /_talentflow/.
type Handler struct {
	db    *sql.DB
	purge PurgeFunc
}

// Deletion order respects foreign keys.
var clearStatements = []string{
	"DELETE FROM application_stage_history",
	"DELETE FROM applications",
	"DELETE FROM pipeline_transitions",
	"DELETE FROM pipeline_stages",
	"DELETE FROM pipelines",
	"DELETE FROM jobs",
}

// Reset drops all data, clears the cache and re-runs seeds.
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	if err := ResetData(r.Context(), h.db, h.purge); err != nil {
		api.WriteInternalError(w, r, err)
		return
	}
	log.Info("data reset")
	api.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// SeedData runs seed data without dropping existing data first.
func (h *Handler) SeedData(w http.ResponseWriter, r *http.Request) {
	if err := seed.Seed(r.Context(), h.db); err != nil {
		api.WriteInternalError(w, r, fmt.Errorf("seed: %w", err))
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Health reports whether the database answers.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.db.PingContext(r.Context()); err != nil {
		api.WriteError(w, http.StatusServiceUnavailable, &api.Error{
			Status:        "error",
			Message:       "database unavailable",
			CorrelationID: api.CorrelationID(r.Context()),
			Category:      api.CategoryInternalError,
		})
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ResetData clears all data tables within a transaction, purges the cache
// and re-seeds. purge may be nil.
func ResetData(ctx context.Context, db *sql.DB, purge PurgeFunc) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range clearStatements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%s: %w", stmt, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	if purge != nil {
		if err := purge(ctx); err != nil {
			return fmt.Errorf("purge cache: %w", err)
		}
	}
	return seed.Seed(ctx, db)
}
