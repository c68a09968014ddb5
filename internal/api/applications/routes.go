package applications

import (
	"net/http"

	"github.com/johnwards/talentflow/internal/store"
)

// RegisterRoutes registers application, stage change and board routes on
// the mux. A nil deduper disables Idempotency-Key handling.
func RegisterRoutes(mux *http.ServeMux, s *store.Store, deduper Deduper) {
	h := &Handler{apps: s.Applications, pipelines: s.Pipelines, deduper: deduper}

	mux.HandleFunc("GET /api/v1/jobs/{jobId}/applications", h.List)
	mux.HandleFunc("POST /api/v1/jobs/{jobId}/applications", h.Create)
	mux.HandleFunc("GET /api/v1/jobs/{jobId}/board", h.Board)
	mux.HandleFunc("GET /api/v1/applications/{applicationId}", h.Get)
	mux.HandleFunc("POST /api/v1/applications/{applicationId}/stage", h.ChangeStage)
	mux.HandleFunc("GET /api/v1/applications/{applicationId}/history", h.History)
	mux.HandleFunc("POST /api/v1/applications/bulk-status", h.BulkStatus)
}
