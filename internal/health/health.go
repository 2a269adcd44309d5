// Package health serves the liveness and readiness probes for the Auricle
// metrics server.
//
//   - GET /healthz — liveness; a process that can answer HTTP is alive.
//   - GET /readyz  — readiness; 200 only when every registered probe
//     passes, 503 otherwise.
//
// Bodies are JSON reports with a top-level "status" and a per-probe
// "checks" map, e.g.
//
//	{"status":"unavailable","checks":{"pipeline":"ok","stt_stream":"no open STT session"}}
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// probeTimeout bounds a single readiness probe. Probes wrap provider and
// pipeline state, none of which should take anywhere near this long.
const probeTimeout = 3 * time.Second

// Check is a named readiness probe. Probe returns nil when the checked
// subsystem can serve and an error describing the blocker otherwise.
type Check struct {
	// Name keys the probe's entry in the JSON report.
	Name string

	// Probe inspects the subsystem. It must respect ctx cancellation.
	Probe func(ctx context.Context) error
}

// report is the JSON body for both endpoints.
type report struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Handler answers /healthz and /readyz. The probe set is fixed at
// construction; Handler itself is stateless and safe for concurrent use.
type Handler struct {
	checks []Check
}

// New creates a Handler evaluating the given probes on each /readyz request.
func New(checks ...Check) *Handler {
	return &Handler{checks: append([]Check(nil), checks...)}
}

// Healthz always answers 200. Liveness only says the process is up.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	respond(w, http.StatusOK, report{Status: "alive"})
}

// Readyz runs every probe concurrently, each under its own [probeTimeout],
// and answers 503 when any of them fails.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	details := make([]string, len(h.checks))
	passed := make([]bool, len(h.checks))

	var wg sync.WaitGroup
	for i, c := range h.checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
			defer cancel()
			if err := c.Probe(ctx); err != nil {
				details[i] = err.Error()
			} else {
				details[i] = "ok"
				passed[i] = true
			}
		}()
	}
	wg.Wait()

	rep := report{Status: "ready", Checks: make(map[string]string, len(h.checks))}
	status := http.StatusOK
	for i, c := range h.checks {
		rep.Checks[c.Name] = details[i]
		if !passed[i] {
			rep.Status = "unavailable"
			status = http.StatusServiceUnavailable
		}
	}
	respond(w, status, rep)
}

// Register adds the /healthz and /readyz routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
}

// respond encodes rep as JSON with the given status code. On encoding
// failure it falls back to a plain 500.
func respond(w http.ResponseWriter, status int, rep report) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(rep); err != nil {
		http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
	}
}
