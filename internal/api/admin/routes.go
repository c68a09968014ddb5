package admin

import (
	"database/sql"
	"net/http"

	"github.com/johnwards/talentflow/internal/api"
)

// RegisterRoutes registers all admin API endpoints on the mux.
func RegisterRoutes(mux *http.ServeMux, db *sql.DB, purge PurgeFunc) {
	h := &Handler{db: db, purge: purge}

	mux.HandleFunc("GET "+api.HealthPath, h.Health)
	mux.HandleFunc("POST /_talentflow/reset", h.Reset)
	mux.HandleFunc("POST /_talentflow/seed", h.SeedData)
}
