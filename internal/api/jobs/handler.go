package jobs

import (
	"errors"
	"net/http"
	"strings"

	"github.com/johnwards/talentflow/internal/api"
	"github.com/johnwards/talentflow/internal/domain"
	"github.com/johnwards/talentflow/internal/seed"
	"github.com/johnwards/talentflow/internal/store"
)

// Handler handles job HTTP requests.
type Handler struct {
	jobs store.JobStore
}

// createRequest is a job plus the template its first pipeline starts from.
type createRequest struct {
	Title      string           `json:"title"`
	Department string           `json:"department"`
	Location   string           `json:"location"`
	Status     domain.JobStatus `json:"status"`
	Template   string           `json:"template"`
}

// List returns all jobs.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.jobs.List(r.Context())
	if err != nil {
		api.WriteInternalError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, api.NewCollection(jobs))
}

// Create adds a job together with its initial pipeline.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	corrID := api.CorrelationID(r.Context())

	var req createRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.WriteError(w, http.StatusBadRequest, api.NewValidationError("Invalid input: "+err.Error(), corrID, nil))
		return
	}
	if details := validateJob(req.Title, req.Status, true); len(details) > 0 {
		api.WriteError(w, http.StatusBadRequest, api.NewValidationError("Invalid job", corrID, details))
		return
	}

	p, err := seed.NewPipeline(req.Template, req.Title)
	if err != nil {
		if errors.Is(err, seed.ErrUnknownTemplate) {
			api.WriteError(w, http.StatusBadRequest, api.NewValidationError(err.Error(), corrID, []api.ErrorDetail{
				{Message: "unknown template", Code: "INVALID", In: "template"},
			}))
			return
		}
		api.WriteInternalError(w, r, err)
		return
	}

	job, _, err := h.jobs.CreateWithPipeline(r.Context(), &domain.Job{
		Title:      strings.TrimSpace(req.Title),
		Department: req.Department,
		Location:   req.Location,
		Status:     req.Status,
	}, p)
	if err != nil {
		api.WriteInternalError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusCreated, job)
}

// Get returns a single job.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	job, err := h.jobs.Get(r.Context(), r.PathValue("jobId"))
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, job)
}

// Update partially updates a job (PATCH).
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	corrID := api.CorrelationID(r.Context())

	var patch domain.Job
	if err := api.DecodeJSON(r, &patch); err != nil {
		api.WriteError(w, http.StatusBadRequest, api.NewValidationError("Invalid input: "+err.Error(), corrID, nil))
		return
	}
	if details := validateJob(patch.Title, patch.Status, false); len(details) > 0 {
		api.WriteError(w, http.StatusBadRequest, api.NewValidationError("Invalid job", corrID, details))
		return
	}

	job, err := h.jobs.Update(r.Context(), r.PathValue("jobId"), &patch)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, job)
}

func validateJob(title string, status domain.JobStatus, titleRequired bool) []api.ErrorDetail {
	var details []api.ErrorDetail
	if titleRequired && strings.TrimSpace(title) == "" {
		details = append(details, api.ErrorDetail{Message: "title is required", Code: "REQUIRED", In: "title"})
	}
	if status != "" && !status.Valid() {
		details = append(details, api.ErrorDetail{Message: "status must be open, closed or draft", Code: "INVALID", In: "status"})
	}
	return details
}

func writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, store.ErrNotFound) {
		api.WriteError(w, http.StatusNotFound, api.NewNotFoundError(err.Error(), api.CorrelationID(r.Context())))
		return
	}
	api.WriteInternalError(w, r, err)
}
