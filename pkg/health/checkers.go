package health

import (
	"context"
	"runtime"
	"time"

	"github.com/go-faster/errors"
)

// Pinger is the slice of a connection pool the database check needs.
type Pinger interface {
	Ping(ctx context.Context) error
}

// DatabaseCheck returns a CheckFunc that pings the database. Intended
// as a ready check: the service cannot serve checkouts without it.
func DatabaseCheck(p Pinger) CheckFunc {
	return func(ctx context.Context) error {
		if err := p.Ping(ctx); err != nil {
			return errors.Wrap(err, "database ping")
		}
		return nil
	}
}

// GoroutineCountCheck returns a CheckFunc that reports unhealthy when
// the goroutine count exceeds threshold. Intended as a live check to
// catch goroutine leaks.
func GoroutineCountCheck(threshold int) CheckFunc {
	return func(_ context.Context) error {
		count := runtime.NumGoroutine()
		if count > threshold {
			return errors.Errorf("goroutine count %d exceeds threshold %d", count, threshold)
		}
		return nil
	}
}

// UptimeCheck returns a CheckFunc that fails until the process has been
// up for warmup. Useful to keep a freshly restarted instance out of the
// load balancer while pools warm.
func UptimeCheck(warmup time.Duration) CheckFunc {
	start := time.Now()
	return func(_ context.Context) error {
		if up := time.Since(start); up < warmup {
			return errors.Errorf("warming up: %s of %s", up.Round(time.Second), warmup)
		}
		return nil
	}
}
