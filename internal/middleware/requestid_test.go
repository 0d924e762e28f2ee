package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/atelier-hq/atelier/internal/logger"
)

func TestRequestIDGenerated(t *testing.T) {
	var ctxID string
	handler := RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		ctxID = logger.RequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", http.NoBody))

	headerID := rec.Header().Get("X-Request-ID")
	if headerID == "" {
		t.Fatal("expected a generated request id header")
	}
	if len(headerID) != 32 {
		t.Errorf("generated id length = %d, want 32", len(headerID))
	}
	if ctxID != headerID {
		t.Errorf("context id %q != header id %q", ctxID, headerID)
	}
}

func TestRequestIDEchoed(t *testing.T) {
	var ctxID string
	handler := RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		ctxID = logger.RequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req.Header.Set("X-Request-ID", "upstream-id")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-ID"); got != "upstream-id" {
		t.Errorf("header id = %q, want upstream-id", got)
	}
	if ctxID != "upstream-id" {
		t.Errorf("context id = %q, want upstream-id", ctxID)
	}
}
