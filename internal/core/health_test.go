package core

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func runHealth(t *testing.T, srv *Server) (int, healthResponse) {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.HandleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	var resp healthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode health body: %v", err)
	}
	return rec.Code, resp
}

func okProbe(name string) HealthProbe {
	return NamedProbe{ProbeName: name, CheckFunc: func(context.Context) error { return nil }}
}

func TestHandleHealth_NoProbes(t *testing.T) {
	srv := newTestServer(t)
	srv.Config.Build.Version = "1.4.0"

	code, resp := runHealth(t, srv)
	if code != http.StatusOK || resp.Status != "healthy" {
		t.Errorf("got %d %q, want 200 healthy", code, resp.Status)
	}
	if resp.Version != "1.4.0" {
		t.Errorf("version = %q", resp.Version)
	}
}

func TestHandleHealth_AllHealthy(t *testing.T) {
	srv := newTestServer(t)
	srv.HealthProbes = []HealthProbe{okProbe("oracle"), okProbe("database")}

	code, resp := runHealth(t, srv)
	if code != http.StatusOK {
		t.Errorf("status = %d, want 200", code)
	}
	for _, name := range []string{"oracle", "database"} {
		if resp.Components[name].Status != "healthy" {
			t.Errorf("%s = %+v", name, resp.Components[name])
		}
	}
}

func TestHandleHealth_FailingProbe(t *testing.T) {
	srv := newTestServer(t)
	srv.HealthProbes = []HealthProbe{
		okProbe("database"),
		NamedProbe{ProbeName: "oracle", CheckFunc: func(context.Context) error {
			return errors.New("oracle circuit breaker is open")
		}},
	}

	code, resp := runHealth(t, srv)
	if code != http.StatusServiceUnavailable || resp.Status != "unhealthy" {
		t.Errorf("got %d %q, want 503 unhealthy", code, resp.Status)
	}
	if resp.Components["oracle"].Message != "oracle circuit breaker is open" {
		t.Errorf("oracle component = %+v", resp.Components["oracle"])
	}
	if resp.Components["database"].Status != "healthy" {
		t.Error("database should still report healthy")
	}
}

func TestHandleHealth_PanickingProbe(t *testing.T) {
	srv := newTestServer(t)
	srv.HealthProbes = []HealthProbe{
		NamedProbe{ProbeName: "database", CheckFunc: func(context.Context) error { panic("nil pool") }},
	}

	code, resp := runHealth(t, srv)
	if code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", code)
	}
	if resp.Components["database"].Status != "unhealthy" {
		t.Errorf("database = %+v", resp.Components["database"])
	}
}

func TestHandleHealth_SlowProbeTimesOut(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for the health check deadline")
	}

	release := make(chan struct{})
	defer close(release)

	srv := newTestServer(t)
	srv.HealthProbes = []HealthProbe{
		NamedProbe{ProbeName: "database", CheckFunc: func(context.Context) error {
			<-release
			return nil
		}},
	}

	start := time.Now()
	code, resp := runHealth(t, srv)
	if time.Since(start) > healthCheckTimeout+time.Second {
		t.Error("health check exceeded its deadline")
	}
	if code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", code)
	}
	if resp.Components["database"].Message != "health check timed out" {
		t.Errorf("database = %+v", resp.Components["database"])
	}
}
