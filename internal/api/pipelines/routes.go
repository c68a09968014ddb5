package pipelines

import (
	"net/http"

	"github.com/johnwards/talentflow/internal/store"
)

// RegisterRoutes registers the pipeline, validation and template routes on
// the mux.
func RegisterRoutes(mux *http.ServeMux, s *store.Store) {
	h := &Handler{store: s.Pipelines}

	mux.HandleFunc("GET /api/v1/jobs/{jobId}/pipeline", h.Get)
	mux.HandleFunc("PUT /api/v1/jobs/{jobId}/pipeline", h.Save)
	mux.HandleFunc("POST /api/v1/pipelines/validate", h.Validate)
	mux.HandleFunc("GET /api/v1/pipeline-templates", h.Templates)
}
