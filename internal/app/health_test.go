package app

import (
	"context"
	"errors"
	"net/http"
	"testing"
)

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t)
	rr := doRequest(env.server(), http.MethodGet, "/api/health", "", nil)

	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}
	if ok := decodeJSON(t, rr)["ok"]; ok != true {
		t.Errorf("expected ok=true, got %v", ok)
	}
}

func TestReadyEndpoint(t *testing.T) {
	tests := []struct {
		name       string
		pingErr    error
		wantStatus int
		wantState  string
		wantCheck  string
	}{
		{name: "database reachable", wantStatus: http.StatusOK, wantState: "ready", wantCheck: "ok"},
		{name: "database down", pingErr: errors.New("connection refused"), wantStatus: http.StatusServiceUnavailable, wantState: "not_ready", wantCheck: "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.store.pingErr = tt.pingErr
			rr := doRequest(env.server(), http.MethodGet, "/api/ready", "", nil)

			if rr.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, rr.Code)
			}
			response := decodeJSON(t, rr)
			if response["status"] != tt.wantState {
				t.Errorf("expected status=%s, got %v", tt.wantState, response["status"])
			}
			checks, _ := response["checks"].(map[string]any)
			dbCheck, _ := checks["database"].(map[string]any)
			if dbCheck["status"] != tt.wantCheck {
				t.Errorf("expected database status=%s, got %v", tt.wantCheck, dbCheck["status"])
			}
			if tt.pingErr != nil && dbCheck["error"] != tt.pingErr.Error() {
				t.Errorf("expected database error=%q, got %v", tt.pingErr, dbCheck["error"])
			}
		})
	}
}

func TestHealthEndpoint_OptionsRequest(t *testing.T) {
	env := newTestEnv(t)
	rr := doRequest(env.server(), http.MethodOptions, "/api/admin/projects", "", nil)

	if rr.Code != http.StatusNoContent {
		t.Errorf("expected status 204 for OPTIONS, got %d", rr.Code)
	}
}

func TestHealthEndpoint_CORSHeaders(t *testing.T) {
	env := newTestEnv(t)
	rr := doRequest(env.server(), http.MethodGet, "/api/health", "", nil)

	if origin := rr.Header().Get("Access-Control-Allow-Origin"); origin != "*" {
		t.Errorf("expected CORS origin=*, got %v", origin)
	}
	if cache := rr.Header().Get("Cache-Control"); cache != "no-store" {
		t.Errorf("expected Cache-Control=no-store, got %v", cache)
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("expected a request id")
	}
}

func TestPingMethod(t *testing.T) {
	env := newTestEnv(t)
	if err := env.service.Ping(context.Background()); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
	env.store.pingErr = errors.New("connection failed")
	if err := env.service.Ping(context.Background()); err == nil {
		t.Fatal("expected ping error")
	}
}
