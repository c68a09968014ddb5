package applications_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/johnwards/talentflow/internal/api"
	"github.com/johnwards/talentflow/internal/api/applications"
	"github.com/johnwards/talentflow/internal/board"
	"github.com/johnwards/talentflow/internal/cache"
	"github.com/johnwards/talentflow/internal/domain"
	"github.com/johnwards/talentflow/internal/store"
	"github.com/johnwards/talentflow/internal/testhelpers"
)

type fixture struct {
	mux   *http.ServeMux
	store *store.Store
	jobID string
}

// setupTestServer saves Applied -> Screen (recruiter only) -> Hired, plus
// Applied -> Rejected, and registers the routes.
func setupTestServer(t *testing.T, deduper applications.Deduper) fixture {
	t.Helper()
	db := testhelpers.NewMigratedDB(t)
	jobID := testhelpers.InsertJob(t, db, "Backend Engineer")
	s := store.New(db)

	_, err := s.Pipelines.Save(context.Background(), jobID, &domain.Pipeline{
		Name: "Engineering",
		Stages: []domain.Stage{
			{Key: "applied", Name: "Applied", Type: domain.StageSourcing, Order: 10},
			{Key: "screen", Name: "Screen", Type: domain.StageScreening, Order: 20},
			{Key: "hired", Name: "Hired", Type: domain.StageHired, Order: 30, Terminal: true},
			{Key: "rejected", Name: "Rejected", Type: domain.StageRejected, Order: 40, Terminal: true},
		},
		Transitions: []domain.Transition{
			{ID: "t1", FromStageKey: "applied", ToStageKey: "screen", ActionName: "Advance",
				AllowedRoles: domain.NewRoleSet("recruiter")},
			{ID: "t2", FromStageKey: "screen", ToStageKey: "hired", ActionName: "Hire"},
			{ID: "t3", FromStageKey: "applied", ToStageKey: "rejected", ActionName: "Reject"},
		},
	})
	if err != nil {
		t.Fatalf("save pipeline: %v", err)
	}

	mux := http.NewServeMux()
	applications.RegisterRoutes(mux, s, deduper)
	return fixture{mux: mux, store: s, jobID: jobID}
}

func decode(t *testing.T, data []byte, v any) {
	t.Helper()
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func (f fixture) do(t *testing.T, method, path, body string, setup ...func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, http.NoBody)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
	}
	for _, fn := range setup {
		fn(req)
	}
	w := httptest.NewRecorder()
	f.mux.ServeHTTP(w, req)
	return w
}

func (f fixture) createApplication(t *testing.T, name, stage string) domain.Application {
	t.Helper()
	body := `{"candidateName":"` + name + `","stageKey":"` + stage + `"}`
	w := f.do(t, "POST", "/api/v1/jobs/"+f.jobID+"/applications", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("create application: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var a domain.Application
	decode(t, w.Body.Bytes(), &a)
	return a
}

func as(roles ...string) func(*http.Request) {
	return func(r *http.Request) {
		*r = *r.WithContext(api.WithPrincipal(r.Context(), api.Principal{Subject: "user-1", Roles: roles}))
	}
}

func TestCreateApplication_DefaultsToFirstStage(t *testing.T) {
	f := setupTestServer(t, nil)

	w := f.do(t, "POST", "/api/v1/jobs/"+f.jobID+"/applications", `{"candidateName":"Ada","candidateEmail":"ada@example.com"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var a domain.Application
	decode(t, w.Body.Bytes(), &a)
	if a.CurrentStageKey != "applied" {
		t.Errorf("expected stage applied, got %q", a.CurrentStageKey)
	}
	if a.Status != domain.StatusActive {
		t.Errorf("expected status active, got %q", a.Status)
	}
}

func TestCreateApplication_Invalid(t *testing.T) {
	f := setupTestServer(t, nil)
	if w := f.do(t, "POST", "/api/v1/jobs/"+f.jobID+"/applications", `{"candidateName":"Ada","candidateEmail":"ada@example.com"}`); w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	tests := []struct {
		name string
		path string
		body string
		code int
	}{
		{"missing name", "/api/v1/jobs/" + f.jobID + "/applications", `{"stageKey":"applied"}`, http.StatusBadRequest},
		{"unknown stage", "/api/v1/jobs/" + f.jobID + "/applications", `{"candidateName":"x","stageKey":"nope"}`, http.StatusBadRequest},
		{"unknown job", "/api/v1/jobs/999/applications", `{"candidateName":"x"}`, http.StatusNotFound},
		{"invalid json", "/api/v1/jobs/" + f.jobID + "/applications", `{bad`, http.StatusBadRequest},
		{"duplicate email", "/api/v1/jobs/" + f.jobID + "/applications", `{"candidateName":"Ada again","candidateEmail":"ada@example.com"}`, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(t, "POST", tt.path, tt.body)
			if w.Code != tt.code {
				t.Errorf("expected %d, got %d: %s", tt.code, w.Code, w.Body.String())
			}
		})
	}
}

func TestListAndGetApplication(t *testing.T) {
	f := setupTestServer(t, nil)
	a := f.createApplication(t, "Ada", "applied")
	f.createApplication(t, "Grace", "screen")

	w := f.do(t, "GET", "/api/v1/jobs/"+f.jobID+"/applications", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var list api.CollectionResponse[domain.Application]
	decode(t, w.Body.Bytes(), &list)
	if len(list.Results) != 2 {
		t.Errorf("expected 2 applications, got %d", len(list.Results))
	}

	w = f.do(t, "GET", "/api/v1/applications/"+a.ID, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = f.do(t, "GET", "/api/v1/applications/999", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestChangeStage_AlongTransition(t *testing.T) {
	f := setupTestServer(t, nil)
	a := f.createApplication(t, "Ada", "applied")

	w := f.do(t, "POST", "/api/v1/applications/"+a.ID+"/stage",
		`{"stageKey":"screen","reason":"Moved from Applied to Screen","notes":"strong CV"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var moved domain.Application
	decode(t, w.Body.Bytes(), &moved)
	if moved.CurrentStageKey != "screen" {
		t.Errorf("expected stage screen, got %q", moved.CurrentStageKey)
	}

	w = f.do(t, "GET", "/api/v1/applications/"+a.ID+"/history", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var history api.CollectionResponse[domain.StageChange]
	decode(t, w.Body.Bytes(), &history)
	if len(history.Results) != 1 {
		t.Fatalf("expected 1 history entry, got %d", len(history.Results))
	}
	h := history.Results[0]
	if h.FromStageKey != "applied" || h.ToStageKey != "screen" || h.Reason != "Moved from Applied to Screen" || h.Notes != "strong CV" {
		t.Errorf("unexpected history entry: %+v", h)
	}
}

func TestChangeStage_TerminalStageSetsStatus(t *testing.T) {
	f := setupTestServer(t, nil)
	a := f.createApplication(t, "Ada", "applied")

	w := f.do(t, "POST", "/api/v1/applications/"+a.ID+"/stage", `{"stageKey":"rejected"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var moved domain.Application
	decode(t, w.Body.Bytes(), &moved)
	if moved.Status != domain.StatusRejected {
		t.Errorf("expected status rejected, got %q", moved.Status)
	}
}

func TestChangeStage_NoTransition(t *testing.T) {
	f := setupTestServer(t, nil)
	a := f.createApplication(t, "Ada", "applied")

	w := f.do(t, "POST", "/api/v1/applications/"+a.ID+"/stage", `{"stageKey":"hired"}`)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", w.Code, w.Body.String())
	}
	var apiErr api.Error
	decode(t, w.Body.Bytes(), &apiErr)
	if apiErr.Category != api.CategoryTransitionNotAllowed {
		t.Errorf("expected TRANSITION_NOT_ALLOWED, got %q", apiErr.Category)
	}

	got, err := f.store.Applications.Get(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.CurrentStageKey != "applied" {
		t.Errorf("expected application untouched, got %q", got.CurrentStageKey)
	}
}

func TestChangeStage_Errors(t *testing.T) {
	f := setupTestServer(t, nil)
	a := f.createApplication(t, "Ada", "applied")

	tests := []struct {
		name string
		path string
		body string
		code int
	}{
		{"missing stage key", "/api/v1/applications/" + a.ID + "/stage", `{}`, http.StatusBadRequest},
		{"unknown stage", "/api/v1/applications/" + a.ID + "/stage", `{"stageKey":"nope"}`, http.StatusBadRequest},
		{"unknown application", "/api/v1/applications/999/stage", `{"stageKey":"screen"}`, http.StatusNotFound},
		{"stale expected stage", "/api/v1/applications/" + a.ID + "/stage", `{"stageKey":"hired","expectedStageKey":"screen"}`, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(t, "POST", tt.path, tt.body)
			if w.Code != tt.code {
				t.Errorf("expected %d, got %d: %s", tt.code, w.Code, w.Body.String())
			}
		})
	}
}

func TestChangeStage_Roles(t *testing.T) {
	f := setupTestServer(t, nil)
	a := f.createApplication(t, "Ada", "applied")

	w := f.do(t, "POST", "/api/v1/applications/"+a.ID+"/stage", `{"stageKey":"screen"}`, as("viewer"))
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", w.Code, w.Body.String())
	}

	w = f.do(t, "POST", "/api/v1/applications/"+a.ID+"/stage", `{"stageKey":"screen"}`, as("viewer", "recruiter"))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	history, err := f.store.Applications.History(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 1 || history[0].Actor != "user-1" {
		t.Errorf("expected actor user-1 recorded, got %+v", history)
	}

	// Unrestricted transition: any authenticated role may use it.
	w = f.do(t, "POST", "/api/v1/applications/"+a.ID+"/stage", `{"stageKey":"hired"}`, as())
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestChangeStage_IdempotencyKey(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	f := setupTestServer(t, cache.NewRedisDeduper(client, time.Minute))
	a := f.createApplication(t, "Ada", "applied")
	withKey := func(key string) func(*http.Request) {
		return func(r *http.Request) { r.Header.Set(applications.IdempotencyHeader, key) }
	}

	w := f.do(t, "POST", "/api/v1/applications/"+a.ID+"/stage", `{"stageKey":"screen"}`, withKey("k1"))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = f.do(t, "POST", "/api/v1/applications/"+a.ID+"/stage", `{"stageKey":"hired"}`, withKey("k1"))
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for replayed key, got %d: %s", w.Code, w.Body.String())
	}

	history, err := f.store.Applications.History(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 1 {
		t.Errorf("expected the change applied once, got %d entries", len(history))
	}

	w = f.do(t, "POST", "/api/v1/applications/"+a.ID+"/stage", `{"stageKey":"hired"}`, withKey("k2"))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for new key, got %d: %s", w.Code, w.Body.String())
	}
}

func TestBoard(t *testing.T) {
	f := setupTestServer(t, nil)
	f.createApplication(t, "Ada", "applied")
	f.createApplication(t, "Grace", "applied")
	f.createApplication(t, "Alan", "screen")

	w := f.do(t, "GET", "/api/v1/jobs/"+f.jobID+"/board", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var b board.Board
	decode(t, w.Body.Bytes(), &b)
	if len(b.Columns) != 4 {
		t.Fatalf("expected 4 columns, got %d", len(b.Columns))
	}
	if b.Columns[0].Stage.Key != "applied" || len(b.Columns[0].Applications) != 2 {
		t.Errorf("expected 2 applications in applied, got %+v", b.Columns[0])
	}
	if len(b.Columns[1].Applications) != 1 {
		t.Errorf("expected 1 application in screen, got %d", len(b.Columns[1].Applications))
	}

	w = f.do(t, "GET", "/api/v1/jobs/999/board", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestBulkStatus(t *testing.T) {
	f := setupTestServer(t, nil)
	a := f.createApplication(t, "Ada", "screen")
	b := f.createApplication(t, "Grace", "screen")
	c := f.createApplication(t, "Alan", "screen")

	body := `{"applicationIds":["` + a.ID + `","` + b.ID + `","` + c.ID + `"],"status":"rejected"}`
	w := f.do(t, "POST", "/api/v1/applications/bulk-status", body)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var res domain.BulkStatusResult
	decode(t, w.Body.Bytes(), &res)
	if res.Updated != 3 {
		t.Errorf("expected 3 updated, got %d", res.Updated)
	}

	w = f.do(t, "GET", "/api/v1/jobs/"+f.jobID+"/board", "")
	var bd board.Board
	decode(t, w.Body.Bytes(), &bd)
	if n := len(bd.Columns[1].Applications); n != 0 {
		t.Errorf("expected rejected applications off the board, got %d", n)
	}
}

func TestChangeStage_BulkRejectedCannotMove(t *testing.T) {
	f := setupTestServer(t, nil)
	a := f.createApplication(t, "Ada", "applied")

	w := f.do(t, "POST", "/api/v1/applications/bulk-status",
		`{"applicationIds":["`+a.ID+`"],"status":"rejected"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = f.do(t, "POST", "/api/v1/applications/"+a.ID+"/stage", `{"stageKey":"screen"}`)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", w.Code, w.Body.String())
	}
	var e api.Error
	decode(t, w.Body.Bytes(), &e)
	if e.Category != api.CategoryConflict {
		t.Errorf("expected CONFLICT, got %q", e.Category)
	}

	got, err := f.store.Applications.Get(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("get application: %v", err)
	}
	if got.Status != domain.StatusRejected || got.CurrentStageKey != "applied" {
		t.Errorf("expected rejected in applied, got %q in %q", got.Status, got.CurrentStageKey)
	}

	// Reopening makes the application movable again.
	w = f.do(t, "POST", "/api/v1/applications/bulk-status",
		`{"applicationIds":["`+a.ID+`"],"status":"active"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	w = f.do(t, "POST", "/api/v1/applications/"+a.ID+"/stage", `{"stageKey":"screen"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 after reopening, got %d: %s", w.Code, w.Body.String())
	}
}

func TestBulkStatus_Invalid(t *testing.T) {
	f := setupTestServer(t, nil)
	a := f.createApplication(t, "Ada", "screen")

	tests := []struct {
		name string
		body string
		code int
	}{
		{"no ids", `{"applicationIds":[],"status":"rejected"}`, http.StatusBadRequest},
		{"bad status", `{"applicationIds":["` + a.ID + `"],"status":"archived"}`, http.StatusBadRequest},
		{"unknown id", `{"applicationIds":["` + a.ID + `","999"],"status":"rejected"}`, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(t, "POST", "/api/v1/applications/bulk-status", tt.body)
			if w.Code != tt.code {
				t.Errorf("expected %d, got %d: %s", tt.code, w.Code, w.Body.String())
			}
		})
	}

	got, err := f.store.Applications.Get(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != domain.StatusActive {
		t.Errorf("expected atomic rollback to keep status active, got %q", got.Status)
	}
}
