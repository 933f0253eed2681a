package schedule

import (
	"context"
	"time"

	"github.com/example/gym-scheduler/internal/logger"
)

// Window is the daily instant at which slots become reservable.
type Window struct {
	Hour   int
	Minute int
}

// Waiter suspends a run until the booking window opens. The external cron
// trigger starts the process shortly before the window, so one coarse sleep
// is enough; there is no polling.
type Waiter struct {
	// Now is overridable for tests; defaults to time.Now.
	Now func() time.Time
	Log logger.Logger

	// Sleep stands in for the timer in tests; nil means a real timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// WaitUntilOpen blocks until today's occurrence of w. If that instant has
// already passed the window counts as open and the call returns immediately.
// The only early exit is ctx cancellation.
func (wt *Waiter) WaitUntilOpen(ctx context.Context, w Window) error {
	now := time.Now()
	if wt.Now != nil {
		now = wt.Now()
	}
	target := time.Date(now.Year(), now.Month(), now.Day(), w.Hour, w.Minute, 0, 0, now.Location())

	d := target.Sub(now)
	if d <= 0 {
		wt.Log.Info("booking window already open",
			logger.String("target", target.Format("15:04")))
		return nil
	}

	wt.Log.Info("waiting for booking window",
		logger.String("target", target.Format("15:04")),
		logger.Duration("sleep", d))

	if wt.Sleep != nil {
		return wt.Sleep(ctx, d)
	}

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
