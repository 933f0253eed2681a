package orchestrator

import (
	"context"
	"fmt"

	"github.com/example/gym-scheduler/internal/auth"
	"github.com/example/gym-scheduler/internal/booking"
	"github.com/example/gym-scheduler/internal/config"
	"github.com/example/gym-scheduler/internal/logger"
	"github.com/example/gym-scheduler/internal/otp"
	"github.com/example/gym-scheduler/internal/portal"
	"github.com/example/gym-scheduler/internal/report"
	"github.com/example/gym-scheduler/internal/schedule"
	"github.com/example/gym-scheduler/internal/secrets"
)

// Orchestrator owns one run: authenticate a single browser session, wait for
// the booking window, then attempt every configured reservation in order.
// All collaborators are injected at construction; nothing here is mutable
// global state.
type Orchestrator struct {
	Cfg          config.Config
	Reservations []portal.ReservationRequest
	Secrets      secrets.Provider
	OTP          *otp.Generator
	Reporter     *report.Reporter
	Waiter       *schedule.Waiter
	Log          logger.Logger

	// NewPage opens the run's single browser session. Injected so tests can
	// substitute a scripted page.
	NewPage func(ctx context.Context) (portal.Page, func(), error)
}

// Run executes one full reservation run. The returned error has already been
// reported (screenshot + log); callers only decide the exit code. Nothing is
// retried.
func (o *Orchestrator) Run(ctx context.Context) error {
	// Secrets come first: a retrieval failure must surface before any
	// browser exists, and gets no screenshot.
	creds, err := secrets.Load(o.Secrets, secrets.DefaultNames())
	if err != nil {
		o.Log.Error("credential retrieval failed", logger.Error(err))
		return err
	}

	page, closePage, err := o.NewPage(ctx)
	if err != nil {
		o.Log.Error("browser launch failed", logger.Error(err))
		return err
	}
	// The session is closed exactly once, on every exit path.
	defer closePage()

	authenticator := &auth.Authenticator{
		Page:      page,
		OTP:       o.OTP,
		LoginURL:  o.Cfg.LoginURL,
		Selectors: o.Cfg.Selectors,
		Timeouts:  o.Cfg.Timeouts,
		Log:       o.Log,
	}
	if err := authenticator.Login(creds); err != nil {
		o.Reporter.OnFailure(page, err)
		return err
	}

	window := schedule.Window{Hour: o.Cfg.OpenHour, Minute: o.Cfg.OpenMinute}
	if err := o.Waiter.WaitUntilOpen(ctx, window); err != nil {
		return err
	}

	booker := &booking.Booker{
		Page:        page,
		Selectors:   o.Cfg.Selectors,
		Timeouts:    o.Cfg.Timeouts,
		SettleDelay: o.Cfg.SettleDelay,
		Log:         o.Log,
	}

	// Strictly serial against the one authenticated session. The first
	// failure aborts the remainder; completed bookings stay booked.
	for _, req := range o.Reservations {
		out := booker.Book(req)
		if !out.Success {
			err := fmt.Errorf("reservation %s on %s: %w", out.Request, out.Date, out.Err)
			o.Reporter.OnFailure(page, err)
			return err
		}
		o.Log.Info("reservation booked",
			logger.String("category", out.Request.Category),
			logger.String("timeslot", out.Request.Timeslot),
			logger.String("date", out.Date))
	}

	o.Log.Info("run complete", logger.Int("reservations", len(o.Reservations)))
	return nil
}
