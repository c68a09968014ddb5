package pipelines_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/johnwards/talentflow/internal/api"
	"github.com/johnwards/talentflow/internal/api/pipelines"
	"github.com/johnwards/talentflow/internal/domain"
	"github.com/johnwards/talentflow/internal/seed"
	"github.com/johnwards/talentflow/internal/store"
	"github.com/johnwards/talentflow/internal/testhelpers"
)

func setupTestServer(t *testing.T) (*http.ServeMux, string) {
	t.Helper()
	db := testhelpers.NewMigratedDB(t)
	jobID := testhelpers.InsertJob(t, db, "Backend Engineer")

	mux := http.NewServeMux()
	pipelines.RegisterRoutes(mux, store.New(db))
	return mux, jobID
}

func decode(t *testing.T, data []byte, v any) {
	t.Helper()
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

// validBody lists stages out of type order to exercise recalculation.
const validBody = `{
	"name": "Engineering",
	"stages": [
		{"key": "hired", "name": "Hired", "type": "hired", "order": 5, "terminal": true},
		{"key": "applied", "name": "Applied", "type": "sourcing", "order": 99},
		{"key": "screen", "name": "Screen", "type": "screening", "order": 1},
		{"key": "rejected", "name": "Rejected", "type": "rejected", "order": 2, "terminal": true}
	],
	"transitions": [
		{"fromStageKey": "applied", "toStageKey": "screen", "actionName": "Advance", "allowedRoles": ["recruiter", "recruiter"]},
		{"fromStageKey": "screen", "toStageKey": "hired", "actionName": "Hire"}
	]
}`

func TestGetPipeline_NotFound(t *testing.T) {
	mux, jobID := setupTestServer(t)

	req := httptest.NewRequest("GET", "/api/v1/jobs/"+jobID+"/pipeline", http.NoBody)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", w.Code, w.Body.String())
	}
	var apiErr api.Error
	decode(t, w.Body.Bytes(), &apiErr)
	if apiErr.Category != api.CategoryObjectNotFound {
		t.Errorf("expected OBJECT_NOT_FOUND, got %q", apiErr.Category)
	}
}

func TestSaveAndGetPipeline(t *testing.T) {
	mux, jobID := setupTestServer(t)

	req := httptest.NewRequest("PUT", "/api/v1/jobs/"+jobID+"/pipeline", bytes.NewBufferString(validBody))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var saved domain.Pipeline
	decode(t, w.Body.Bytes(), &saved)
	if saved.JobID != jobID {
		t.Errorf("expected jobId %q, got %q", jobID, saved.JobID)
	}

	req = httptest.NewRequest("GET", "/api/v1/jobs/"+jobID+"/pipeline", http.NoBody)
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var got domain.Pipeline
	decode(t, w.Body.Bytes(), &got)

	wantKeys := []string{"applied", "screen", "hired", "rejected"}
	if len(got.Stages) != len(wantKeys) {
		t.Fatalf("expected %d stages, got %d", len(wantKeys), len(got.Stages))
	}
	for i, key := range wantKeys {
		if got.Stages[i].Key != key {
			t.Errorf("stage %d: expected %q, got %q", i, key, got.Stages[i].Key)
		}
		if got.Stages[i].Order != (i+1)*10 {
			t.Errorf("stage %q: expected order %d, got %d", key, (i+1)*10, got.Stages[i].Order)
		}
	}

	if len(got.Transitions) != 2 {
		t.Fatalf("expected 2 transitions, got %d", len(got.Transitions))
	}
	if got.Transitions[0].ID == "" {
		t.Error("expected generated transition ID")
	}
	if roles := got.Transitions[0].AllowedRoles.Sorted(); len(roles) != 1 || roles[0] != "recruiter" {
		t.Errorf("expected [recruiter], got %v", roles)
	}
}

func TestSavePipeline_ValidationErrors(t *testing.T) {
	mux, jobID := setupTestServer(t)

	body := `{
		"name": "",
		"stages": [
			{"key": "applied", "name": "Applied", "type": "sourcing"},
			{"key": "applied", "name": "Dup", "type": "sourcing"},
			{"key": "hired", "name": "Hired", "type": "hired", "terminal": true}
		],
		"transitions": [
			{"fromStageKey": "hired", "toStageKey": "applied", "actionName": "Undo"}
		]
	}`
	req := httptest.NewRequest("PUT", "/api/v1/jobs/"+jobID+"/pipeline", bytes.NewBufferString(body))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}

	var apiErr api.Error
	decode(t, w.Body.Bytes(), &apiErr)
	fields := map[string]bool{}
	for _, e := range apiErr.Errors {
		fields[e.In] = true
	}
	for _, want := range []string{"name", "stages[1].key", "transitions[0].fromStageKey"} {
		if !fields[want] {
			t.Errorf("expected error on %q, got %+v", want, apiErr.Errors)
		}
	}

	req = httptest.NewRequest("GET", "/api/v1/jobs/"+jobID+"/pipeline", http.NoBody)
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected nothing saved, got %d", w.Code)
	}
}

func TestSavePipeline_UnknownJob(t *testing.T) {
	mux, _ := setupTestServer(t)

	req := httptest.NewRequest("PUT", "/api/v1/jobs/999/pipeline", bytes.NewBufferString(validBody))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", w.Code, w.Body.String())
	}
}

func TestSavePipeline_InvalidJSON(t *testing.T) {
	mux, jobID := setupTestServer(t)

	req := httptest.NewRequest("PUT", "/api/v1/jobs/"+jobID+"/pipeline", bytes.NewBufferString("{bad"))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestValidatePipeline(t *testing.T) {
	mux, _ := setupTestServer(t)

	req := httptest.NewRequest("POST", "/api/v1/pipelines/validate", bytes.NewBufferString(validBody))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var p domain.Pipeline
	decode(t, w.Body.Bytes(), &p)
	if p.Stages[0].Key != "applied" || p.Stages[0].Order != 10 {
		t.Errorf("expected applied first at 10, got %+v", p.Stages[0])
	}
	if p.ID != "" {
		t.Errorf("expected unsaved pipeline, got id %q", p.ID)
	}
}

func TestListTemplates(t *testing.T) {
	mux, _ := setupTestServer(t)

	req := httptest.NewRequest("GET", "/api/v1/pipeline-templates", http.NoBody)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp api.CollectionResponse[seed.Template]
	decode(t, w.Body.Bytes(), &resp)
	keys := map[string]bool{}
	for _, tpl := range resp.Results {
		keys[tpl.Key] = true
	}
	for _, want := range []string{"default", "standard", "engineering"} {
		if !keys[want] {
			t.Errorf("expected template %q", want)
		}
	}
}

func TestSavePipeline_RemovingOccupiedStageConflicts(t *testing.T) {
	db := testhelpers.NewMigratedDB(t)
	jobID := testhelpers.InsertJob(t, db, "Backend Engineer")
	s := store.New(db)
	mux := http.NewServeMux()
	pipelines.RegisterRoutes(mux, s)

	req := httptest.NewRequest("PUT", "/api/v1/jobs/"+jobID+"/pipeline", bytes.NewBufferString(validBody))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	if _, err := s.Applications.Create(req.Context(), &domain.Application{
		JobID: jobID, CandidateName: "Ada", CurrentStageKey: "applied",
	}); err != nil {
		t.Fatalf("create application: %v", err)
	}

	renamed := `{
		"name": "Engineering",
		"stages": [
			{"key": "new", "name": "New", "type": "sourcing"},
			{"key": "screen", "name": "Screen", "type": "screening"},
			{"key": "hired", "name": "Hired", "type": "hired", "terminal": true}
		],
		"transitions": [
			{"fromStageKey": "new", "toStageKey": "screen", "actionName": "Advance"},
			{"fromStageKey": "screen", "toStageKey": "hired", "actionName": "Hire"}
		]
	}`
	req = httptest.NewRequest("PUT", "/api/v1/jobs/"+jobID+"/pipeline", bytes.NewBufferString(renamed))
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", w.Code, w.Body.String())
	}
	var apiErr api.Error
	decode(t, w.Body.Bytes(), &apiErr)
	if apiErr.Category != api.CategoryConflict {
		t.Errorf("expected CONFLICT, got %q", apiErr.Category)
	}
	if len(apiErr.Errors) != 1 || apiErr.Errors[0].In != "applied" {
		t.Errorf("expected the occupied stage applied to be listed, got %+v", apiErr.Errors)
	}

	req = httptest.NewRequest("GET", "/api/v1/jobs/"+jobID+"/pipeline", http.NoBody)
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	var p domain.Pipeline
	decode(t, w.Body.Bytes(), &p)
	if _, ok := p.Stage("applied"); !ok {
		t.Error("expected stored pipeline to keep stage applied")
	}
}
