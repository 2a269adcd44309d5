package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func decodeReport(t *testing.T, rec *httptest.ResponseRecorder) report {
	t.Helper()
	var rep report
	if err := json.NewDecoder(rec.Body).Decode(&rep); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	return rep
}

func TestHealthzAlwaysAlive(t *testing.T) {
	h := New(
		Check{Name: "pipeline", Probe: func(context.Context) error {
			return errors.New("pipeline is not running")
		}},
	)

	rec := httptest.NewRecorder()
	h.Healthz(rec, httptest.NewRequest("GET", "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	if rep := decodeReport(t, rec); rep.Status != "alive" {
		t.Errorf("status = %q, want %q", rep.Status, "alive")
	}
}

func TestReadyzAllProbesPass(t *testing.T) {
	h := New(
		Check{Name: "pipeline", Probe: func(context.Context) error { return nil }},
		Check{Name: "stt_stream", Probe: func(context.Context) error { return nil }},
	)

	rec := httptest.NewRecorder()
	h.Readyz(rec, httptest.NewRequest("GET", "/readyz", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	rep := decodeReport(t, rec)
	if rep.Status != "ready" {
		t.Errorf("status = %q, want %q", rep.Status, "ready")
	}
	if rep.Checks["pipeline"] != "ok" || rep.Checks["stt_stream"] != "ok" {
		t.Errorf("checks = %v, want all ok", rep.Checks)
	}
}

func TestReadyzFailingProbe(t *testing.T) {
	h := New(
		Check{Name: "pipeline", Probe: func(context.Context) error { return nil }},
		Check{Name: "stt_stream", Probe: func(context.Context) error {
			return errors.New("no open STT session")
		}},
	)

	rec := httptest.NewRecorder()
	h.Readyz(rec, httptest.NewRequest("GET", "/readyz", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
	rep := decodeReport(t, rec)
	if rep.Status != "unavailable" {
		t.Errorf("status = %q, want %q", rep.Status, "unavailable")
	}
	if rep.Checks["pipeline"] != "ok" {
		t.Errorf("pipeline = %q, want %q", rep.Checks["pipeline"], "ok")
	}
	if rep.Checks["stt_stream"] != "no open STT session" {
		t.Errorf("stt_stream = %q, want the probe error", rep.Checks["stt_stream"])
	}
}

func TestReadyzNoProbes(t *testing.T) {
	rec := httptest.NewRecorder()
	New().Readyz(rec, httptest.NewRequest("GET", "/readyz", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if rep := decodeReport(t, rec); rep.Status != "ready" {
		t.Errorf("status = %q, want %q", rep.Status, "ready")
	}
}

func TestReadyzProbesRunConcurrently(t *testing.T) {
	// Each probe waits for the other to start. Sequential execution would
	// hit the fallback timeout and fail the readiness report.
	first := make(chan struct{})
	second := make(chan struct{})
	rendezvous := func(mine, other chan struct{}) error {
		close(mine)
		select {
		case <-other:
			return nil
		case <-time.After(2 * time.Second):
			return errors.New("peer probe never started")
		}
	}
	h := New(
		Check{Name: "a", Probe: func(context.Context) error { return rendezvous(first, second) }},
		Check{Name: "b", Probe: func(context.Context) error { return rendezvous(second, first) }},
	)

	rec := httptest.NewRecorder()
	h.Readyz(rec, httptest.NewRequest("GET", "/readyz", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
}

func TestReadyzRespectsRequestContext(t *testing.T) {
	h := New(
		Check{Name: "slow", Probe: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}},
	)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec := httptest.NewRecorder()
	h.Readyz(rec, httptest.NewRequest("GET", "/readyz", nil).WithContext(ctx))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestRegisterRoutes(t *testing.T) {
	h := New(
		Check{Name: "pipeline", Probe: func(context.Context) error { return nil }},
	)
	mux := http.NewServeMux()
	h.Register(mux)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s: status = %d, want %d", path, rec.Code, http.StatusOK)
		}
	}
}
