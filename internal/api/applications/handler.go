package applications

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/johnwards/talentflow/internal/api"
	"github.com/johnwards/talentflow/internal/board"
	"github.com/johnwards/talentflow/internal/domain"
	"github.com/johnwards/talentflow/internal/store"
)

// IdempotencyHeader carries a client-chosen key that makes a stage change
// apply at most once.
const IdempotencyHeader = "Idempotency-Key"

// Deduper records idempotency keys.
type Deduper interface {
	Add(ctx context.Context, scope, key string) (bool, error)
	Remove(ctx context.Context, scope, key string) error
}

// Handler handles application HTTP requests.
type Handler struct {
	apps      store.ApplicationStore
	pipelines store.PipelineStore
	deduper   Deduper
}

type createRequest struct {
	CandidateName  string `json:"candidateName"`
	CandidateEmail string `json:"candidateEmail"`
	StageKey       string `json:"stageKey"`
}

// List returns every application of a job.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	apps, err := h.apps.ListByJob(r.Context(), r.PathValue("jobId"))
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, api.NewCollection(apps))
}

// Create adds an application to a job. Without a stageKey it starts in the
// first stage of the job's pipeline.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	corrID := api.CorrelationID(r.Context())
	jobID := r.PathValue("jobId")

	var req createRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.WriteError(w, http.StatusBadRequest, api.NewValidationError("Invalid input: "+err.Error(), corrID, nil))
		return
	}
	if strings.TrimSpace(req.CandidateName) == "" {
		api.WriteError(w, http.StatusBadRequest, api.NewValidationError("Invalid application", corrID, []api.ErrorDetail{
			{Message: "candidate name is required", Code: "REQUIRED", In: "candidateName"},
		}))
		return
	}

	p, err := h.pipelines.GetByJob(r.Context(), jobID)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	stageKey := req.StageKey
	if stageKey == "" {
		if len(p.Stages) == 0 {
			api.WriteError(w, http.StatusConflict, api.NewConflictError("pipeline has no stages", corrID))
			return
		}
		stageKey = p.Stages[0].Key
	}
	st, ok := p.Stage(stageKey)
	if !ok {
		api.WriteError(w, http.StatusBadRequest, unknownStage(stageKey, corrID))
		return
	}

	a, err := h.apps.Create(r.Context(), &domain.Application{
		JobID:           jobID,
		CandidateName:   strings.TrimSpace(req.CandidateName),
		CandidateEmail:  req.CandidateEmail,
		CurrentStageKey: st.Key,
		Status:          domain.StatusForStage(st),
	})
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusCreated, a)
}

// Board returns the job's applications bucketed into pipeline columns.
func (h *Handler) Board(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("jobId")

	p, err := h.pipelines.GetByJob(r.Context(), jobID)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	apps, err := h.apps.ListByJob(r.Context(), jobID)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, board.Build(p, apps))
}

// Get returns a single application.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	a, err := h.apps.Get(r.Context(), r.PathValue("applicationId"))
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, a)
}

// ChangeStage moves an application along a pipeline transition.
func (h *Handler) ChangeStage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	corrID := api.CorrelationID(ctx)
	id := r.PathValue("applicationId")

	var req domain.StageChangeRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.WriteError(w, http.StatusBadRequest, api.NewValidationError("Invalid input: "+err.Error(), corrID, nil))
		return
	}
	if req.StageKey == "" {
		api.WriteError(w, http.StatusBadRequest, api.NewValidationError("Invalid stage change", corrID, []api.ErrorDetail{
			{Message: "stageKey is required", Code: "REQUIRED", In: "stageKey"},
		}))
		return
	}

	a, err := h.apps.Get(ctx, id)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	p, err := h.pipelines.GetByJob(ctx, a.JobID)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	target, ok := p.Stage(req.StageKey)
	if !ok {
		api.WriteError(w, http.StatusBadRequest, unknownStage(req.StageKey, corrID))
		return
	}
	if req.ExpectedStageKey != "" && req.ExpectedStageKey != a.CurrentStageKey {
		api.WriteError(w, http.StatusConflict, api.NewConflictError(
			fmt.Sprintf("application is in stage %q, not %q", a.CurrentStageKey, req.ExpectedStageKey), corrID))
		return
	}

	if current, ok := p.Stage(a.CurrentStageKey); ok && !current.Terminal && !a.Status.InFunnel() {
		api.WriteError(w, http.StatusConflict, api.NewConflictError(
			fmt.Sprintf("application is %s; set it active before moving it", a.Status), corrID))
		return
	}

	transitions := matching(p, a.CurrentStageKey, target.Key)
	if len(transitions) == 0 {
		api.WriteError(w, http.StatusUnprocessableEntity, api.NewTransitionError(
			fmt.Sprintf("no transition from %q to %q", a.CurrentStageKey, target.Key), corrID))
		return
	}

	principal, authenticated := api.PrincipalFrom(ctx)
	if authenticated && !anyAllows(transitions, principal.Roles) {
		api.WriteError(w, http.StatusForbidden, api.NewForbiddenError(
			fmt.Sprintf("roles %v may not move from %q to %q", principal.Roles, a.CurrentStageKey, target.Key), corrID))
		return
	}

	key := r.Header.Get(IdempotencyHeader)
	if key != "" && h.deduper != nil {
		added, err := h.deduper.Add(ctx, id, key)
		if err != nil {
			api.WriteInternalError(w, r, err)
			return
		}
		if !added {
			api.WriteError(w, http.StatusConflict, api.NewConflictError("duplicate request for "+IdempotencyHeader+" "+key, corrID))
			return
		}
	}

	moved, err := h.apps.ChangeStage(ctx, id, store.StageMove{
		To:       target.Key,
		Expected: a.CurrentStageKey,
		Status:   domain.StatusForStage(target),
		Reason:   req.Reason,
		Notes:    req.Notes,
		Actor:    principal.Subject,
	})
	if err != nil {
		if key != "" && h.deduper != nil {
			if rerr := h.deduper.Remove(ctx, id, key); rerr != nil {
				log.WithError(rerr).WithField("applicationId", id).Warn("release idempotency key")
			}
		}
		if errors.Is(err, store.ErrStaleStage) {
			api.WriteError(w, http.StatusConflict, api.NewConflictError(err.Error(), corrID))
			return
		}
		writeStoreError(w, r, err)
		return
	}

	log.WithFields(log.Fields{
		"applicationId": id,
		"from":          a.CurrentStageKey,
		"to":            target.Key,
		"actor":         principal.Subject,
	}).Info("application stage changed")
	api.WriteJSON(w, http.StatusOK, moved)
}

// History returns an application's stage changes, oldest first.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	history, err := h.apps.History(r.Context(), r.PathValue("applicationId"))
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, api.NewCollection(history))
}

// BulkStatus sets the status of several applications. Either every
// application is updated or none is.
func (h *Handler) BulkStatus(w http.ResponseWriter, r *http.Request) {
	corrID := api.CorrelationID(r.Context())

	var req domain.BulkStatusRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.WriteError(w, http.StatusBadRequest, api.NewValidationError("Invalid input: "+err.Error(), corrID, nil))
		return
	}

	var details []api.ErrorDetail
	if len(req.ApplicationIDs) == 0 {
		details = append(details, api.ErrorDetail{Message: "at least one application id is required", Code: "REQUIRED", In: "applicationIds"})
	}
	if !req.Status.Valid() {
		details = append(details, api.ErrorDetail{Message: fmt.Sprintf("unknown status %q", req.Status), Code: "INVALID", In: "status"})
	}
	if len(details) > 0 {
		api.WriteError(w, http.StatusBadRequest, api.NewValidationError("Invalid bulk status update", corrID, details))
		return
	}

	n, err := h.apps.BulkUpdateStatus(r.Context(), req.ApplicationIDs, req.Status)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, domain.BulkStatusResult{Updated: n})
}

func matching(p *domain.Pipeline, from, to string) []domain.Transition {
	var out []domain.Transition
	for _, t := range p.TransitionsFrom(from) {
		if t.ToStageKey == to {
			out = append(out, t)
		}
	}
	return out
}

func anyAllows(transitions []domain.Transition, roles []string) bool {
	for _, t := range transitions {
		if t.AllowedRoles.Allows(roles...) {
			return true
		}
	}
	return false
}

func unknownStage(key, corrID string) *api.Error {
	return api.NewValidationError("Invalid stage", corrID, []api.ErrorDetail{
		{Message: fmt.Sprintf("unknown stage %q", key), Code: "INVALID", In: "stageKey"},
	})
}

func writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		api.WriteError(w, http.StatusNotFound, api.NewNotFoundError(err.Error(), api.CorrelationID(r.Context())))
		return
	case errors.Is(err, store.ErrConflict):
		api.WriteError(w, http.StatusConflict, api.NewConflictError(err.Error(), api.CorrelationID(r.Context())))
		return
	}
	api.WriteInternalError(w, r, err)
}
