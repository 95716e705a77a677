// Package health provides Kubernetes-style liveness and readiness probes.
//
// Checks are registered against a probe kind and run in background
// goroutines at a fixed interval. Failure and success thresholds keep a
// single slow database round trip from flipping the probe: a check must
// fail consecutively failureThreshold times before the probe reports
// unhealthy, and succeed successThreshold times before it recovers.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Probe identifies which endpoint a check feeds.
type Probe string

const (
	// ProbeLive backs /livez: is the process alive and functioning.
	ProbeLive Probe = "live"
	// ProbeReady backs /readyz: can the service accept traffic.
	ProbeReady Probe = "ready"
)

// CheckFunc reports the health of one component. Nil means healthy.
type CheckFunc func(ctx context.Context) error

// check holds configuration and runtime state for a registered check.
// The counters are touched only by the single runner goroutine; healthy
// and lastErr are shared with HTTP handlers and use atomics.
type check struct {
	name             string
	timeout          time.Duration
	fn               CheckFunc
	failureThreshold int
	successThreshold int

	healthy atomic.Bool
	lastErr atomic.Pointer[error]

	fails int
	oks   int
}

func (c *check) run(ctx context.Context) {
	checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	err := c.fn(checkCtx)
	c.lastErr.Store(&err)

	if err != nil {
		c.oks = 0
		c.fails++
		if c.fails >= c.failureThreshold {
			c.healthy.Store(false)
		}
		return
	}
	c.fails = 0
	c.oks++
	if c.oks >= c.successThreshold {
		c.healthy.Store(true)
	}
}

func (c *check) failure() (string, bool) {
	if c.healthy.Load() {
		return "", false
	}
	if p := c.lastErr.Load(); p != nil && *p != nil {
		return (*p).Error(), true
	}
	return "check is unhealthy", true
}

// Health is a registry of probe checks.
type Health struct {
	ready atomic.Bool

	// mu guards the registry map and cancel. Handlers snapshot the
	// slice under RLock and release before touching check state.
	mu     sync.RWMutex
	checks map[Probe][]*check
	cancel context.CancelFunc
}

// New creates an empty registry. The service starts not ready; call
// SetReady(true) once initialization completes.
func New() *Health {
	return &Health{checks: make(map[Probe][]*check)}
}

// Register adds a check to a probe. Checks start out healthy until a
// run proves otherwise. Register before Start.
func (h *Health) Register(probe Probe, name string, timeout time.Duration, fn CheckFunc) {
	c := &check{
		name:             name,
		timeout:          timeout,
		fn:               fn,
		failureThreshold: 3,
		successThreshold: 1,
	}
	c.healthy.Store(true)

	h.mu.Lock()
	h.checks[probe] = append(h.checks[probe], c)
	h.mu.Unlock()
}

// Start launches one background goroutine per registered check, each
// running at the given interval until the context is cancelled or Stop
// is called.
func (h *Health) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	h.mu.Lock()
	h.cancel = cancel
	var all []*check
	for _, cs := range h.checks {
		all = append(all, cs...)
	}
	h.mu.Unlock()

	for _, c := range all {
		go func(c *check) {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			c.run(ctx)
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					c.run(ctx)
				}
			}
		}(c)
	}
}

// Stop cancels the background goroutines. Safe to call more than once.
func (h *Health) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
}

// SetReady flips the manual readiness gate. Set false during graceful
// shutdown to drain traffic before the listener closes.
func (h *Health) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady reports whether the gate is open and every ready check passes.
func (h *Health) IsReady() bool {
	if !h.ready.Load() {
		return false
	}
	for _, c := range h.snapshot(ProbeReady) {
		if !c.healthy.Load() {
			return false
		}
	}
	return true
}

func (h *Health) snapshot(probe Probe) []*check {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*check, len(h.checks[probe]))
	copy(out, h.checks[probe])
	return out
}

// Handler returns the http.HandlerFunc for a probe. The ready probe
// additionally honors the SetReady gate. Healthy probes answer 200
// {"status":"ok"}; otherwise 503 with the failing checks listed.
func (h *Health) Handler(probe Probe) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		failures := make(map[string]string)
		for _, c := range h.snapshot(probe) {
			if msg, failed := c.failure(); failed {
				failures[c.name] = msg
			}
		}
		if probe == ProbeReady && !h.ready.Load() {
			failures["_readiness"] = "service is not ready"
		}
		writeStatus(w, failures)
	}
}

type statusResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func writeStatus(w http.ResponseWriter, failures map[string]string) {
	w.Header().Set("Content-Type", "application/json")

	resp := statusResponse{Status: "ok"}
	code := http.StatusOK
	if len(failures) > 0 {
		resp.Status = "unhealthy"
		resp.Checks = failures
		code = http.StatusServiceUnavailable
	}

	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}
