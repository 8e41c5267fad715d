package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/swyw/swyw/internal/handler/dto"
	"github.com/swyw/swyw/internal/middleware"
	"github.com/swyw/swyw/internal/service"
	"github.com/swyw/swyw/internal/store"
	"github.com/swyw/swyw/internal/testutil"
)

// newTestRouter mounts the entity routes under /api the way main does.
func newTestRouter(t *testing.T, dumpEnabled bool) (http.Handler, *store.Store) {
	t.Helper()

	s := store.New()
	svc := service.NewEntityService(s, nil, nil)
	h := NewEntityHandler(svc, testutil.DiscardLogger(), dumpEnabled)

	r := chi.NewRouter()
	r.Use(middleware.MaxBodySize(1024))
	r.Route("/api", h.Routes)
	return r, s
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) dto.ErrorResponse {
	t.Helper()

	var resp dto.ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return resp
}

func TestEntityHandler_Scenario(t *testing.T) {
	t.Parallel()

	h, _ := newTestRouter(t, true)

	steps := []struct {
		method     string
		path       string
		body       string
		wantStatus int
		wantBody   string
	}{
		{http.MethodPost, "/api/alice/profile", `{"age":30}`, http.StatusNoContent, ""},
		{http.MethodGet, "/api/alice/profile", "", http.StatusOK, `{"age":30}`},
		{http.MethodPost, "/api/alice/profile", `{"age":31}`, http.StatusConflict, ""},
		{http.MethodPut, "/api/alice/profile", `{"age":31}`, http.StatusNoContent, ""},
		{http.MethodGet, "/api/alice/profile", "", http.StatusOK, `{"age":31}`},
		{http.MethodDelete, "/api/alice/profile", "", http.StatusNoContent, ""},
		{http.MethodGet, "/api/alice/profile", "", http.StatusNotFound, ""},
	}

	for i, step := range steps {
		rec := do(t, h, step.method, step.path, step.body)
		if rec.Code != step.wantStatus {
			t.Fatalf("step %d %s %s: status = %d, want %d (body %s)", i, step.method, step.path, rec.Code, step.wantStatus, rec.Body.String())
		}
		if step.wantBody != "" && rec.Body.String() != step.wantBody {
			t.Errorf("step %d: body = %s, want %s", i, rec.Body.String(), step.wantBody)
		}
	}
}

func TestEntityHandler_GetUnknownUser(t *testing.T) {
	t.Parallel()

	h, _ := newTestRouter(t, true)

	rec := do(t, h, http.MethodGet, "/api/nobody", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if resp := decodeError(t, rec); resp.Code != dto.CodeUserNotFound {
		t.Errorf("code = %s, want %s", resp.Code, dto.CodeUserNotFound)
	}
}

func TestEntityHandler_ListEntities(t *testing.T) {
	t.Parallel()

	h, _ := newTestRouter(t, true)

	do(t, h, http.MethodPost, "/api/bob/a", `{"x":1}`)
	do(t, h, http.MethodPost, "/api/bob/b", `[1,2,3]`)

	rec := do(t, h, http.MethodGet, "/api/bob", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %s, want application/json", ct)
	}

	var got map[string]json.RawMessage
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(got) != 2 || string(got["a"]) != `{"x":1}` || string(got["b"]) != `[1,2,3]` {
		t.Errorf("entities = %v", got)
	}
}

func TestEntityHandler_RoundTripPreservesBytes(t *testing.T) {
	t.Parallel()

	h, _ := newTestRouter(t, true)

	body := "{\n  \"name\": \"Zoë\",\n  \"tags\": [\"a\", \"b\"],\n  \"n\": 1.50\n}"
	if rec := do(t, h, http.MethodPost, "/api/carol/doc", body); rec.Code != http.StatusNoContent {
		t.Fatalf("POST status = %d, want 204", rec.Code)
	}

	rec := do(t, h, http.MethodGet, "/api/carol/doc", "")
	if rec.Body.String() != body {
		t.Errorf("GET body = %q, want %q", rec.Body.String(), body)
	}
}

func TestEntityHandler_ConflictKeepsFirstValue(t *testing.T) {
	t.Parallel()

	h, _ := newTestRouter(t, true)

	do(t, h, http.MethodPost, "/api/u/e", `"first"`)

	rec := do(t, h, http.MethodPost, "/api/u/e", `"second"`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	resp := decodeError(t, rec)
	if resp.Code != dto.CodeEntityExists || !strings.Contains(resp.Error, `"e"`) {
		t.Errorf("unexpected conflict response: %+v", resp)
	}

	if rec := do(t, h, http.MethodGet, "/api/u/e", ""); rec.Body.String() != `"first"` {
		t.Errorf("value = %s, want \"first\"", rec.Body.String())
	}
}

func TestEntityHandler_UpdateMissing(t *testing.T) {
	t.Parallel()

	h, _ := newTestRouter(t, true)

	rec := do(t, h, http.MethodPut, "/api/u/e", `1`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("PUT unknown user status = %d, want 404", rec.Code)
	}
	if resp := decodeError(t, rec); resp.Code != dto.CodeUserNotFound {
		t.Errorf("code = %s, want %s", resp.Code, dto.CodeUserNotFound)
	}

	do(t, h, http.MethodPost, "/api/u/other", `1`)

	rec = do(t, h, http.MethodPut, "/api/u/e", `1`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("PUT unknown entity status = %d, want 404", rec.Code)
	}
	if resp := decodeError(t, rec); resp.Code != dto.CodeEntityNotFound {
		t.Errorf("code = %s, want %s", resp.Code, dto.CodeEntityNotFound)
	}

	if rec := do(t, h, http.MethodGet, "/api/u/e", ""); rec.Code != http.StatusNotFound {
		t.Errorf("PUT must not create the entity, GET status = %d", rec.Code)
	}
}

func TestEntityHandler_DeleteTwice(t *testing.T) {
	t.Parallel()

	h, _ := newTestRouter(t, true)

	do(t, h, http.MethodPost, "/api/u/e", `{}`)

	if rec := do(t, h, http.MethodDelete, "/api/u/e", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("first DELETE status = %d, want 204", rec.Code)
	}
	if rec := do(t, h, http.MethodDelete, "/api/u/e", ""); rec.Code != http.StatusNotFound {
		t.Errorf("second DELETE status = %d, want 404", rec.Code)
	}
	if rec := do(t, h, http.MethodDelete, "/api/ghost/e", ""); rec.Code != http.StatusNotFound {
		t.Errorf("DELETE unknown user status = %d, want 404", rec.Code)
	}
}

func TestEntityHandler_DeleteUser(t *testing.T) {
	t.Parallel()

	h, _ := newTestRouter(t, true)

	if rec := do(t, h, http.MethodDelete, "/api/dave", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("DELETE unknown user status = %d, want 404", rec.Code)
	}

	do(t, h, http.MethodPost, "/api/dave/e", `1`)

	if rec := do(t, h, http.MethodDelete, "/api/dave", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("DELETE user status = %d, want 204", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/api/dave", ""); rec.Code != http.StatusNotFound {
		t.Errorf("GET after delete status = %d, want 404", rec.Code)
	}
	if rec := do(t, h, http.MethodPost, "/api/dave/e", `2`); rec.Code != http.StatusNoContent {
		t.Errorf("POST after delete status = %d, want 204", rec.Code)
	}
}

func TestEntityHandler_Clear(t *testing.T) {
	t.Parallel()

	h, _ := newTestRouter(t, true)

	rec := do(t, h, http.MethodGet, "/api/erin/clear", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("clear unknown user status = %d, want 404", rec.Code)
	}

	do(t, h, http.MethodPost, "/api/erin/a", `1`)
	do(t, h, http.MethodPost, "/api/erin/b", `2`)

	if rec := do(t, h, http.MethodGet, "/api/erin/clear", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("clear status = %d, want 204", rec.Code)
	}

	rec = do(t, h, http.MethodGet, "/api/erin", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET after clear status = %d, want 200", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{}` {
		t.Errorf("entities after clear = %s, want {}", got)
	}
}

func TestEntityHandler_EntityNamedClear(t *testing.T) {
	t.Parallel()

	h, s := newTestRouter(t, true)

	// Only GET is shadowed by the clear route; other verbs address the entity.
	if rec := do(t, h, http.MethodPost, "/api/frank/clear", `{"v":1}`); rec.Code != http.StatusNoContent {
		t.Fatalf("POST status = %d, want 204", rec.Code)
	}
	if _, err := s.GetEntity("frank", "clear"); err != nil {
		t.Fatalf("entity 'clear' not stored: %v", err)
	}

	if rec := do(t, h, http.MethodGet, "/api/frank/clear", ""); rec.Code != http.StatusNoContent {
		t.Errorf("GET clear status = %d, want 204", rec.Code)
	}
	if _, err := s.GetEntity("frank", "clear"); !errors.Is(err, store.ErrEntityNotFound) {
		t.Errorf("GET clear should empty the collection, got err = %v", err)
	}
}

func TestEntityHandler_InvalidBody(t *testing.T) {
	t.Parallel()

	h, _ := newTestRouter(t, true)

	tests := []struct {
		name       string
		method     string
		body       string
		wantStatus int
		wantCode   string
	}{
		{"POST empty body", http.MethodPost, "", http.StatusBadRequest, dto.CodeInvalidJSON},
		{"POST malformed", http.MethodPost, `{"age":`, http.StatusBadRequest, dto.CodeInvalidJSON},
		{"PUT malformed", http.MethodPut, `not json`, http.StatusBadRequest, dto.CodeInvalidJSON},
		{"POST too large", http.MethodPost, `"` + strings.Repeat("x", 2048) + `"`, http.StatusRequestEntityTooLarge, dto.CodePayloadTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, tt.method, "/api/grace/bad", tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if resp := decodeError(t, rec); resp.Code != tt.wantCode {
				t.Errorf("code = %s, want %s", resp.Code, tt.wantCode)
			}
		})
	}

	if rec := do(t, h, http.MethodGet, "/api/grace", ""); rec.Code != http.StatusNotFound {
		t.Errorf("rejected bodies must not create the user, GET status = %d", rec.Code)
	}
}

func TestEntityHandler_DumpAll(t *testing.T) {
	t.Parallel()

	h, s := newTestRouter(t, true)
	store.SeedDemo(s)

	rec := do(t, h, http.MethodGet, "/api/all", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var got map[string]map[string]json.RawMessage
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(got) != 2 || len(got["user1"]) != 1 || len(got["user2"]) != 2 {
		t.Errorf("dump = %v", got)
	}
}

func TestEntityHandler_DumpDisabled(t *testing.T) {
	t.Parallel()

	h, s := newTestRouter(t, false)
	store.SeedDemo(s)

	// Without the debug route, /all is just a user name.
	if rec := do(t, h, http.MethodGet, "/api/all", ""); rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

// failingService returns an unexpected error from every call.
type failingService struct{ EntityService }

func (failingService) ListEntities(string) (store.Entities, error) {
	return nil, errors.New("boom")
}

func TestEntityHandler_InternalError(t *testing.T) {
	t.Parallel()

	h := NewEntityHandler(failingService{}, testutil.DiscardLogger(), false)
	r := chi.NewRouter()
	r.Route("/api", h.Routes)

	rec := do(t, r, http.MethodGet, "/api/u", "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if resp := decodeError(t, rec); resp.Code != dto.CodeInternal {
		t.Errorf("code = %s, want %s", resp.Code, dto.CodeInternal)
	}
}
