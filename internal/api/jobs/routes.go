package jobs

import (
	"net/http"

	"github.com/johnwards/talentflow/internal/store"
)

// RegisterRoutes registers all job routes on the mux.
func RegisterRoutes(mux *http.ServeMux, s *store.Store) {
	h := &Handler{jobs: s.Jobs}

	mux.HandleFunc("GET /api/v1/jobs", h.List)
	mux.HandleFunc("POST /api/v1/jobs", h.Create)
	mux.HandleFunc("GET /api/v1/jobs/{jobId}", h.Get)
	mux.HandleFunc("PATCH /api/v1/jobs/{jobId}", h.Update)
}
