package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func passingCheck() CheckFunc {
	return func(_ context.Context) error {
		return nil
	}
}

func failingCheck(msg string) CheckFunc {
	return func(_ context.Context) error {
		return errors.New(msg)
	}
}

func probeStatus(t *testing.T, h *Health, probe Probe) (int, statusResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	h.Handler(probe)(w, req)

	var body statusResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return w.Code, body
}

func TestLiveProbe_AllPassing(t *testing.T) {
	h := New()
	h.Register(ProbeLive, "check1", time.Second, passingCheck())
	h.Register(ProbeLive, "check2", time.Second, passingCheck())

	// Checks start healthy by default.
	code, body := probeStatus(t, h, ProbeLive)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body.Status)
}

func TestLiveProbe_FailingCheck(t *testing.T) {
	h := New()
	h.Register(ProbeLive, "db", time.Second, failingCheck("connection refused"))

	// Drive past the failure threshold (3 consecutive failures).
	ctx := context.Background()
	c := h.checks[ProbeLive][0]
	c.run(ctx)
	c.run(ctx)
	c.run(ctx)

	code, body := probeStatus(t, h, ProbeLive)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "unhealthy", body.Status)
	assert.Equal(t, "connection refused", body.Checks["db"])
}

func TestLiveProbe_FailureBelowThreshold(t *testing.T) {
	h := New()
	h.Register(ProbeLive, "flaky", time.Second, failingCheck("temporary"))

	// Only 2 failures, threshold is 3. Still healthy.
	ctx := context.Background()
	c := h.checks[ProbeLive][0]
	c.run(ctx)
	c.run(ctx)

	code, _ := probeStatus(t, h, ProbeLive)
	assert.Equal(t, http.StatusOK, code)
}

func TestReadyProbe_Gate(t *testing.T) {
	h := New()
	h.Register(ProbeReady, "db", time.Second, passingCheck())

	// Gate closed by default.
	code, body := probeStatus(t, h, ProbeReady)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Contains(t, body.Checks, "_readiness")

	h.SetReady(true)
	code, body = probeStatus(t, h, ProbeReady)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body.Status)

	h.SetReady(false)
	code, _ = probeStatus(t, h, ProbeReady)
	assert.Equal(t, http.StatusServiceUnavailable, code)
}

func TestReadyProbe_MultipleChecksOneFailing(t *testing.T) {
	h := New()
	h.Register(ProbeReady, "db", time.Second, passingCheck())
	h.Register(ProbeReady, "gateway", time.Second, failingCheck("gateway unreachable"))
	h.SetReady(true)

	ctx := context.Background()
	c := h.checks[ProbeReady][1]
	c.run(ctx)
	c.run(ctx)
	c.run(ctx)

	code, body := probeStatus(t, h, ProbeReady)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Contains(t, body.Checks, "gateway")
	assert.NotContains(t, body.Checks, "db")
}

func TestIsReady(t *testing.T) {
	h := New()
	h.Register(ProbeReady, "db", time.Second, passingCheck())

	assert.False(t, h.IsReady(), "should not be ready before SetReady")

	h.SetReady(true)
	assert.True(t, h.IsReady())

	h.SetReady(false)
	assert.False(t, h.IsReady())
}

func TestIsReady_FailingCheck(t *testing.T) {
	h := New()
	h.Register(ProbeReady, "db", time.Second, failingCheck("down"))
	h.SetReady(true)

	ctx := context.Background()
	c := h.checks[ProbeReady][0]
	c.run(ctx)
	c.run(ctx)
	c.run(ctx)

	assert.False(t, h.IsReady(), "failing ready check should gate IsReady")
}

func TestCheckRecovery(t *testing.T) {
	failing := true
	h := New()
	h.Register(ProbeLive, "flaky", time.Second, func(_ context.Context) error {
		if failing {
			return errors.New("down")
		}
		return nil
	})
	c := h.checks[ProbeLive][0]
	ctx := context.Background()

	c.run(ctx)
	c.run(ctx)
	c.run(ctx)
	assert.False(t, c.healthy.Load())

	// One success recovers (successThreshold = 1).
	failing = false
	c.run(ctx)
	assert.True(t, c.healthy.Load())
}

func TestStopIsIdempotent(t *testing.T) {
	h := New()
	h.Register(ProbeLive, "goroutines", time.Second, passingCheck())

	h.Start(context.Background(), 100*time.Millisecond)
	time.Sleep(50 * time.Millisecond)

	h.Stop()
	h.Stop()
}

func TestProbe_NoChecks(t *testing.T) {
	h := New()
	h.SetReady(true)

	code, _ := probeStatus(t, h, ProbeLive)
	assert.Equal(t, http.StatusOK, code)

	code, _ = probeStatus(t, h, ProbeReady)
	assert.Equal(t, http.StatusOK, code)
}

func TestConcurrentAccess(t *testing.T) {
	h := New()
	h.Register(ProbeLive, "concurrent", time.Second, failingCheck("err"))
	h.Register(ProbeReady, "concurrent", time.Second, passingCheck())
	h.SetReady(true)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h.Start(ctx, 10*time.Millisecond)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				h.IsReady()
				probeStatus(t, h, ProbeLive)
				probeStatus(t, h, ProbeReady)
			}
		}()
	}
	wg.Wait()
	h.Stop()
}

func TestGoroutineCountCheck(t *testing.T) {
	check := GoroutineCountCheck(100000)
	assert.NoError(t, check(context.Background()))

	check = GoroutineCountCheck(0)
	err := check(context.Background())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds threshold")
}

func TestUptimeCheck(t *testing.T) {
	assert.Error(t, UptimeCheck(time.Hour)(context.Background()))
	assert.NoError(t, UptimeCheck(0)(context.Background()))
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

func TestDatabaseCheck(t *testing.T) {
	assert.NoError(t, DatabaseCheck(fakePinger{})(context.Background()))

	err := DatabaseCheck(fakePinger{err: errors.New("refused")})(context.Background())
	assert.Error(t, err)
}
