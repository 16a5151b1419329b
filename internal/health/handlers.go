package health

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/vinicius77777/acai-do-max/internal/common"
)

const defaultTimeout = 500 * time.Millisecond

var accepting atomic.Bool

func init() {
	accepting.Store(true)
}

// SetReady toggles readiness. The API flips it off when shutdown starts so
// load balancers drain traffic before the listener closes.
func SetReady(v bool) {
	accepting.Store(v)
}

// Probe checks one dependency.
type Probe struct {
	Name    string
	Timeout time.Duration
	Check   func(ctx context.Context) error
}

// Pinger is satisfied by the Postgres store and by redis.Client wrappers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingProbe builds a probe from a Pinger.
func PingProbe(name string, p Pinger, timeout time.Duration) Probe {
	return Probe{Name: name, Timeout: timeout, Check: p.Ping}
}

// Handler exposes HTTP handlers for health endpoints.
type Handler struct {
	Probes []Probe
}

// Live reports liveness status.
func (h Handler) Live(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready runs every probe and reports 503 if any fails or the server is
// shutting down.
func (h Handler) Ready(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string, len(h.Probes))
	healthy := accepting.Load()
	if !healthy {
		checks["server"] = "shutting down"
	}
	for _, p := range h.Probes {
		status := "ok"
		if err := run(r.Context(), p); err != nil {
			status = err.Error()
			healthy = false
		}
		checks[p.Name] = status
	}

	code, overall := http.StatusOK, "ok"
	if !healthy {
		code, overall = http.StatusServiceUnavailable, "unavailable"
	}
	common.JSON(w, code, map[string]any{"status": overall, "checks": checks})
}

func run(ctx context.Context, p Probe) error {
	if p.Check == nil {
		return nil
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.Check(ctx)
}
