package http

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSavedViewsRouter_StoreDisabled(t *testing.T) {
	h := savedViewsRouter(100, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/views", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	expectError(t, rr, http.StatusServiceUnavailable)
}

func TestSavedViewsRouter_CRUD(t *testing.T) {
	env := newTestEnv(t, fixtureProvider(t), true)

	rr := do(t, env.handler, http.MethodPost, "/api/v1/views",
		[]byte(`{"name":"nineties","description":"mid decade","year":1996,"metric":"per_capita"}`))
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, rr.Code, rr.Body.String())
	}
	created := decode(t, rr)["data"].(map[string]any)
	id := int64(created["id"].(float64))
	if created["metric"] != "per_capita" || created["year"].(float64) != 1996 {
		t.Fatalf("unexpected view %v", created)
	}

	rr = do(t, env.handler, http.MethodGet, "/api/v1/views", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	if count := decode(t, rr)["meta"].(map[string]any)["count"].(float64); count != 1 {
		t.Fatalf("expected one saved view, got %v", count)
	}

	path := fmt.Sprintf("/api/v1/views/%d", id)
	rr = do(t, env.handler, http.MethodGet, path, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}

	rr = do(t, env.handler, http.MethodDelete, path, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	expectError(t, do(t, env.handler, http.MethodGet, path, nil), http.StatusNotFound)
	expectError(t, do(t, env.handler, http.MethodDelete, path, nil), http.StatusNotFound)
}

func TestSavedViewsRouter_BadRequests(t *testing.T) {
	env := newTestEnv(t, fixtureProvider(t), true)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"invalid json", http.MethodPost, "/api/v1/views", `{"name":`, http.StatusBadRequest},
		{"unknown field", http.MethodPost, "/api/v1/views", `{"name":"a","year":1996,"colour":"red"}`, http.StatusBadRequest},
		{"missing name", http.MethodPost, "/api/v1/views", `{"year":1996}`, http.StatusBadRequest},
		{"bad year", http.MethodPost, "/api/v1/views", `{"name":"a","year":0}`, http.StatusBadRequest},
		{"bad metric", http.MethodPost, "/api/v1/views", `{"name":"a","year":1996,"metric":"methane"}`, http.StatusBadRequest},
		{"bad id", http.MethodGet, "/api/v1/views/abc", "", http.StatusBadRequest},
		{"nested path", http.MethodGet, "/api/v1/views/1/extra", "", http.StatusNotFound},
		{"method", http.MethodPut, "/api/v1/views", "", http.StatusMethodNotAllowed},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var body []byte
			if tc.body != "" {
				body = []byte(tc.body)
			}
			expectError(t, do(t, env.handler, tc.method, tc.path, body), tc.status)
		})
	}
}

func TestSnapshotsRouter(t *testing.T) {
	env := newTestEnv(t, fixtureProvider(t), false)

	rr := do(t, env.handler, http.MethodPost, "/api/v1/snapshots?year=1996&metric=total", nil)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, rr.Code, rr.Body.String())
	}
	obj := decode(t, rr)["data"].(map[string]any)
	name := obj["name"].(string)
	if !strings.HasPrefix(name, "snapshots/1996-total-") || !strings.HasSuffix(name, ".html") {
		t.Fatalf("unexpected snapshot name %q", name)
	}

	rr = do(t, env.handler, http.MethodGet, "/api/v1/snapshots", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	if items := decode(t, rr)["data"].([]any); len(items) != 1 {
		t.Fatalf("expected one snapshot, got %v", items)
	}

	rr = do(t, env.handler, http.MethodGet, "/api/v1/"+name, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), "snapshot-summary") {
		t.Fatalf("snapshot html has no summary section")
	}

	expectError(t, do(t, env.handler, http.MethodGet, "/api/v1/snapshots/missing.html", nil), http.StatusNotFound)
	expectError(t, do(t, env.handler, http.MethodGet, "/api/v1/snapshots/notes.txt", nil), http.StatusNotFound)
	expectError(t, do(t, env.handler, http.MethodPost, "/api/v1/snapshots?year=zero", nil), http.StatusBadRequest)
}

func TestSnapshotsRouter_StorageUnavailable(t *testing.T) {
	rr := httptest.NewRecorder()
	snapshotsRouter(selector{}, nil).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/snapshots", nil))
	expectError(t, rr, http.StatusServiceUnavailable)
}
