// Package health provides HTTP liveness and readiness probes for the bot's
// operational endpoint.
//
//   - /healthz — liveness; returns 200 while the process serves HTTP.
//   - /readyz  — readiness; returns 200 only when every registered
//     [Checker] passes (gateway connected, backup storage reachable).
//
// Responses are JSON with a "status" field ("ok" or "fail") and a "checks"
// map holding each named checker's result.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/madhatbot/madhat/internal/backup"
)

// checkTimeout bounds a single readiness check.
const checkTimeout = 5 * time.Second

// Checker is a named readiness check. Check returns nil when the dependency
// is healthy and must respect context cancellation.
type Checker struct {
	Name  string
	Check func(ctx context.Context) error
}

// Gateway returns a Checker that fails while the Discord gateway session is
// not connected.
func Gateway(connected func() bool) Checker {
	return Checker{
		Name: "gateway",
		Check: func(context.Context) error {
			if !connected() {
				return errors.New("gateway disconnected")
			}
			return nil
		},
	}
}

// Storage returns a Checker that probes the nickname backup store with a
// read. Loading an unknown room is valid and cheap on every backend.
func Storage(store backup.Store) Checker {
	return Checker{
		Name: "storage",
		Check: func(ctx context.Context) error {
			_, err := store.Load(ctx, "healthcheck")
			return err
		},
	}
}

// result is the JSON body for both probes.
type result struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Handler serves the /healthz and /readyz routes. The checker list is fixed
// at construction, so it is safe for concurrent use.
type Handler struct {
	checkers []Checker
}

// New creates a Handler that evaluates the given checkers, in order, on each
// /readyz request.
func New(checkers ...Checker) *Handler {
	c := make([]Checker, len(checkers))
	copy(c, checkers)
	return &Handler{checkers: c}
}

// Healthz always returns 200 OK.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, result{Status: "ok"})
}

// Readyz returns 200 only when every checker passes; otherwise 503 with the
// failing checks named in the body.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string, len(h.checkers))
	allOK := true

	for _, c := range h.checkers {
		ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
		err := c.Check(ctx)
		cancel()

		if err != nil {
			checks[c.Name] = "fail: " + err.Error()
			allOK = false
		} else {
			checks[c.Name] = "ok"
		}
	}

	res := result{Status: "ok", Checks: checks}
	status := http.StatusOK
	if !allOK {
		res.Status = "fail"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, res)
}

// Register adds the probe routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
	}
}
