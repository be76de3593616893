package health

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/madhatbot/madhat/internal/backup"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) result {
	t.Helper()
	var res result
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("failed to decode body %q: %v", rec.Body.String(), err)
	}
	return res
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	h := New()
	rec := httptest.NewRecorder()
	h.Healthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if res := decode(t, rec); res.Status != "ok" {
		t.Errorf("expected status ok, got %q", res.Status)
	}
}

func TestReadyzAllPassing(t *testing.T) {
	t.Parallel()

	h := New(
		Gateway(func() bool { return true }),
		Storage(backup.NewMemStore()),
	)
	rec := httptest.NewRecorder()
	h.Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	res := decode(t, rec)
	if res.Status != "ok" {
		t.Errorf("expected status ok, got %q", res.Status)
	}
	if res.Checks["gateway"] != "ok" || res.Checks["storage"] != "ok" {
		t.Errorf("unexpected checks: %v", res.Checks)
	}
}

func TestReadyzGatewayDown(t *testing.T) {
	t.Parallel()

	h := New(Gateway(func() bool { return false }))
	rec := httptest.NewRecorder()
	h.Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	res := decode(t, rec)
	if res.Status != "fail" {
		t.Errorf("expected status fail, got %q", res.Status)
	}
	if res.Checks["gateway"] != "fail: gateway disconnected" {
		t.Errorf("unexpected gateway check: %q", res.Checks["gateway"])
	}
}

func TestRegisterRoutes(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	New(Gateway(func() bool { return true })).Register(mux)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, rec.Code)
		}
	}
}
