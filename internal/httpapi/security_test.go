package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestMiddlewareSetsSecurityHeaders(t *testing.T) {
	api, _ := newTestAPI(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	res := httptest.NewRecorder()

	api.Handler().ServeHTTP(res, req)

	if got := res.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("expected X-Content-Type-Options nosniff, got %q", got)
	}
	if got := res.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Fatalf("expected X-Frame-Options DENY, got %q", got)
	}
	if got := res.Header().Get("Referrer-Policy"); got == "" {
		t.Fatalf("expected Referrer-Policy to be set")
	}
	if got := res.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("expected CORS origin *, got %q", got)
	}
}

func TestPreflightShortCircuitsBeforeAuth(t *testing.T) {
	api, _ := newTestAPI(t, nil)
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/budget/forecast", nil)
	res := httptest.NewRecorder()

	api.Handler().ServeHTTP(res, req)

	if res.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for preflight, got %d", res.Code)
	}
}

func TestForecastRejectsWrites(t *testing.T) {
	api, _ := newTestAPI(t, nil)
	res := httptest.NewRecorder()

	api.Handler().ServeHTTP(res, authorizedRequest(t, http.MethodPost, "/api/v1/budget/forecast"))

	if res.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", res.Code)
	}
}

func TestUnknownRouteReturnsJSON404(t *testing.T) {
	api, _ := newTestAPI(t, nil)
	res := httptest.NewRecorder()

	api.Handler().ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/api/v1/nope", nil))

	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
	if got := res.Header().Get("Content-Type"); got != "application/json" {
		t.Fatalf("expected JSON error body, got %q", got)
	}
}
