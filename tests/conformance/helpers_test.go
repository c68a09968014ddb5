package conformance_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// allRoles is granted to the default caller so only explicit role tests hit
// a 403.
var allRoles = []string{"recruiter", "hiring_manager", "admin"}

// token signs an HS256 token for subject with the given roles.
func token(t *testing.T, subject string, roles ...string) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   subject,
		"roles": roles,
		"exp":   time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(authSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

// doRequest makes an HTTP request as a caller holding every role.
// The caller is responsible for closing the response body.
func doRequest(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	return doRequestAs(t, token(t, "conformance", allRoles...), method, path, body)
}

// doRequestAs makes an HTTP request with the given bearer token. An empty
// token sends no Authorization header.
func doRequestAs(t *testing.T, bearer, method, path string, body any) *http.Response {
	t.Helper()

	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, serverURL+path, bodyReader)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

// readJSON reads the response body and unmarshals it into a map.
func readJSON(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response body: %v", err)
	}

	var result map[string]any
	if err := json.Unmarshal(b, &result); err != nil {
		t.Fatalf("unmarshal response (status %d): body=%s err=%v", resp.StatusCode, string(b), err)
	}
	return result
}

// mustStatus asserts the HTTP response has the expected status code.
func mustStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		b, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected status %d, got %d; body=%s", expected, resp.StatusCode, string(b))
	}
}

// resetServer calls POST /_talentflow/reset to return the server to its
// seeded state.
func resetServer(t *testing.T) {
	t.Helper()
	resp := doRequest(t, http.MethodPost, "/_talentflow/reset", nil)
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		t.Fatalf("reset server failed: status=%d body=%s", resp.StatusCode, string(b))
	}
}

// assertAPIError validates the response matches the error envelope.
func assertAPIError(t *testing.T, body map[string]any, expectedCategory string) {
	t.Helper()
	assertStringField(t, body, "status", "error")
	assertFieldPresent(t, body, "message")
	assertFieldPresent(t, body, "correlationId")
	if expectedCategory != "" {
		assertStringField(t, body, "category", expectedCategory)
	}
}

// assertFieldPresent checks that a key exists in the map.
func assertFieldPresent(t *testing.T, m map[string]any, key string) {
	t.Helper()
	if _, ok := m[key]; !ok {
		t.Errorf("expected field %q to be present, got keys: %v", key, mapKeys(m))
	}
}

// assertStringField checks that a key exists and has the expected string value.
func assertStringField(t *testing.T, m map[string]any, key, expected string) {
	t.Helper()
	v, ok := m[key]
	if !ok {
		t.Errorf("expected field %q to be present", key)
		return
	}
	s, ok := v.(string)
	if !ok {
		t.Errorf("expected field %q to be string, got %T", key, v)
		return
	}
	if s != expected {
		t.Errorf("field %q: expected %q, got %q", key, expected, s)
	}
}

// assertIsString checks that a field is a string and returns its value.
func assertIsString(t *testing.T, m map[string]any, key string) string {
	t.Helper()
	v, ok := m[key]
	if !ok {
		t.Errorf("expected field %q to be present", key)
		return ""
	}
	s, ok := v.(string)
	if !ok {
		t.Errorf("expected field %q to be string, got %T", key, v)
		return ""
	}
	return s
}

// assertIsArray checks that a field is a JSON array and returns it.
func assertIsArray(t *testing.T, m map[string]any, key string) []any {
	t.Helper()
	v, ok := m[key]
	if !ok {
		t.Errorf("expected field %q to be present", key)
		return nil
	}
	a, ok := v.([]any)
	if !ok {
		t.Errorf("expected field %q to be array, got %T", key, v)
		return nil
	}
	return a
}

// assertISOTimestamp checks that a string value is a valid ISO 8601 timestamp.
func assertISOTimestamp(t *testing.T, value string) {
	t.Helper()
	if value == "" {
		t.Error("expected non-empty ISO timestamp")
		return
	}
	formats := []string{
		"2006-01-02T15:04:05.000Z",
		time.RFC3339,
		time.RFC3339Nano,
	}
	for _, f := range formats {
		if _, err := time.Parse(f, value); err == nil {
			return
		}
	}
	t.Errorf("value %q is not a valid ISO 8601 timestamp", value)
}

// toObject converts a slice element to a map.
func toObject(t *testing.T, v any) map[string]any {
	t.Helper()
	m, ok := v.(map[string]any)
	if !ok {
		t.Fatalf("expected object, got %T", v)
	}
	return m
}

// createJob creates a job from a pipeline template and returns its ID.
func createJob(t *testing.T, title, template string) string {
	t.Helper()
	resp := doRequest(t, http.MethodPost, "/api/v1/jobs", map[string]any{
		"title":    title,
		"template": template,
	})
	mustStatus(t, resp, http.StatusCreated)
	return assertIsString(t, readJSON(t, resp), "id")
}

// createApplication adds a candidate to a job in stage and returns the
// application ID.
func createApplication(t *testing.T, jobID, name, stage string) string {
	t.Helper()
	resp := doRequest(t, http.MethodPost, "/api/v1/jobs/"+jobID+"/applications", map[string]any{
		"candidateName": name,
		"stageKey":      stage,
	})
	mustStatus(t, resp, http.StatusCreated)
	return assertIsString(t, readJSON(t, resp), "id")
}

// mapKeys returns the keys of a map for diagnostic output.
func mapKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}
