package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/JaimeStill/docpages/internal/lifecycle"
)

func TestReadinessCheck(t *testing.T) {
	lc := lifecycle.New()

	rec := httptest.NewRecorder()
	handleReadinessCheck(rec, lc)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("before startup status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}

	lc.WaitForStartup()

	rec = httptest.NewRecorder()
	handleReadinessCheck(rec, lc)
	if rec.Code != http.StatusOK {
		t.Errorf("after startup status = %d, want %d", rec.Code, http.StatusOK)
	}
	if rec.Body.String() != "READY" {
		t.Errorf("body = %q, want READY", rec.Body.String())
	}
}

func TestHealthCheck(t *testing.T) {
	rec := httptest.NewRecorder()
	handleHealthCheck(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}
