package pipelines

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/johnwards/talentflow/internal/api"
	"github.com/johnwards/talentflow/internal/domain"
	"github.com/johnwards/talentflow/internal/pipeline"
	"github.com/johnwards/talentflow/internal/seed"
	"github.com/johnwards/talentflow/internal/store"
)

// Handler handles pipeline HTTP requests.
type Handler struct {
	store store.PipelineStore
}

// Get returns the pipeline of a job.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.store.GetByJob(r.Context(), r.PathValue("jobId"))
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, p)
}

// Save replaces the pipeline of a job (PUT). Stage orders are recalculated
// and the whole pipeline is validated before anything is written.
func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	p, ok := decodePipeline(w, r)
	if !ok {
		return
	}

	saved, err := h.store.Save(r.Context(), r.PathValue("jobId"), p)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, saved)
}

// Validate checks a pipeline without saving it and returns it with
// recalculated stage orders.
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	p, ok := decodePipeline(w, r)
	if !ok {
		return
	}
	api.WriteJSON(w, http.StatusOK, p)
}

// Templates lists the built-in pipeline templates.
func (h *Handler) Templates(w http.ResponseWriter, r *http.Request) {
	templates, err := seed.Templates()
	if err != nil {
		api.WriteInternalError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, api.NewCollection(templates))
}

// decodePipeline reads and prepares the request pipeline, writing a 400 on
// failure.
func decodePipeline(w http.ResponseWriter, r *http.Request) (*domain.Pipeline, bool) {
	corrID := api.CorrelationID(r.Context())

	var in domain.Pipeline
	if err := api.DecodeJSON(r, &in); err != nil {
		api.WriteError(w, http.StatusBadRequest, api.NewValidationError("Invalid input: "+err.Error(), corrID, nil))
		return nil, false
	}

	p, err := pipeline.Prepare(&in)
	if err != nil {
		var verrs pipeline.ValidationErrors
		if errors.As(err, &verrs) {
			api.WriteError(w, http.StatusBadRequest, api.NewValidationError("Invalid pipeline", corrID, validationDetails(verrs)))
			return nil, false
		}
		api.WriteInternalError(w, r, err)
		return nil, false
	}
	return p, true
}

func validationDetails(verrs pipeline.ValidationErrors) []api.ErrorDetail {
	details := make([]api.ErrorDetail, len(verrs))
	for i, e := range verrs {
		details[i] = api.ErrorDetail{Message: e.Message, Code: "INVALID", In: e.Field}
	}
	return details
}

func writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	corrID := api.CorrelationID(r.Context())
	var inUse *store.StagesInUseError
	switch {
	case errors.Is(err, store.ErrNotFound):
		api.WriteError(w, http.StatusNotFound, api.NewNotFoundError(err.Error(), corrID))
		return
	case errors.As(err, &inUse):
		apiErr := api.NewConflictError("Pipeline removes stages that still hold applications", corrID)
		for _, key := range inUse.Keys {
			apiErr.Errors = append(apiErr.Errors, api.ErrorDetail{
				Message: fmt.Sprintf("stage %q holds %d applications", key, inUse.Counts[key]),
				Code:    "STAGE_IN_USE",
				In:      key,
			})
		}
		api.WriteError(w, http.StatusConflict, apiErr)
		return
	}
	api.WriteInternalError(w, r, err)
}
