package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRouteLabel(t *testing.T) {
	for _, path := range []string{"/", "/api/merge", "/healthz", "/readyz", "/livez", "/metrics"} {
		if got := routeLabel(path); got != path {
			t.Errorf("routeLabel(%q) = %q, want %q", path, got, path)
		}
	}
	for _, path := range []string{"/favicon.ico", "/../../etc", "/some/random/probe", "/api/merge/extra"} {
		if got := routeLabel(path); got != "other" {
			t.Errorf("routeLabel(%q) = %q, want \"other\"", path, got)
		}
	}
}

func TestMetricsPathLabelCardinalityBounded(t *testing.T) {
	// The root route is a FileServer catch-all, so arbitrary request paths
	// must not mint new metric label values.
	s, _ := newTestServer(t, nil)
	h := s.Handler()

	for _, path := range []string{"/scan-me-7f3a9c", "/another/odd/path"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
	}

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	body := rec.Body.String()

	if strings.Contains(body, "scan-me-7f3a9c") {
		t.Error("raw request path leaked into metric labels")
	}
	if !strings.Contains(body, `path="other"`) {
		t.Error("unknown paths were not bucketed under the \"other\" label")
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	s, _ := newTestServer(t, nil)
	h := s.Handler()

	// A client-supplied id is kept.
	req := httptest.NewRequest(http.MethodGet, "/livez", nil)
	req.Header.Set("X-Request-Id", "client-supplied-id")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-Id"); got != "client-supplied-id" {
		t.Errorf("X-Request-Id = %q, want the client's id", got)
	}

	// Otherwise one is generated.
	req = httptest.NewRequest(http.MethodGet, "/livez", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Header().Get("X-Request-Id") == "" {
		t.Error("no X-Request-Id generated")
	}
}
