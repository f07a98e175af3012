package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

type fakePinger struct {
	err error
}

func (p fakePinger) Ping(context.Context) error { return p.err }

func serveHealth(t *testing.T, db Pinger) (int, map[string]any) {
	t.Helper()
	r := chi.NewRouter()
	NewHealthHandler(db, "offline").RegisterHealth(r)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	var body map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return w.Code, body
}

func TestHealthHealthy(t *testing.T) {
	code, body := serveHealth(t, fakePinger{})

	if code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", code)
	}
	if body["status"] != "healthy" {
		t.Errorf("Expected healthy, got %v", body["status"])
	}
	checks := body["checks"].(map[string]any)
	if checks["database"] != "ok" || checks["llm"] != "offline" {
		t.Errorf("Unexpected checks: %v", checks)
	}
}

func TestHealthDegraded(t *testing.T) {
	code, body := serveHealth(t, fakePinger{err: errors.New("disk I/O error")})

	if code != http.StatusServiceUnavailable {
		t.Fatalf("Expected status 503, got %d", code)
	}
	if body["status"] != "degraded" {
		t.Errorf("Expected degraded, got %v", body["status"])
	}
	if checks := body["checks"].(map[string]any); checks["database"] != "unreachable" {
		t.Errorf("Expected unreachable database, got %v", checks["database"])
	}
}
