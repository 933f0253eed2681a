package auth

import (
	"fmt"

	"github.com/example/gym-scheduler/internal/logger"
	"github.com/example/gym-scheduler/internal/otp"
	"github.com/example/gym-scheduler/internal/portal"
	"github.com/example/gym-scheduler/internal/secrets"
)

// Error is any failed wait or missing element in the login sequence. It
// carries the page location at the moment of failure for diagnostics.
// Authentication is never retried within a run.
type Error struct {
	Step     string
	Location string
	Err      error
}

func (e *Error) Error() string {
	if e.Location != "" {
		return fmt.Sprintf("auth: %s (at %s): %v", e.Step, e.Location, e.Err)
	}
	return fmt.Sprintf("auth: %s: %v", e.Step, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Authenticator drives the fixed SSO sequence: portal login page, federated
// login trigger, identity-provider tile, username, password, one-time
// passcode, then an optional consent screen.
type Authenticator struct {
	Page      portal.Page
	OTP       *otp.Generator
	LoginURL  string
	Selectors portal.Selectors
	Timeouts  portal.Timeouts
	Log       logger.Logger
}

func (a *Authenticator) Login(creds secrets.Credentials) error {
	sel, to := a.Selectors, a.Timeouts

	a.Log.Info("logging in", logger.String("url", a.LoginURL))
	if err := a.Page.Navigate(a.LoginURL, to.Navigation); err != nil {
		return a.fail("open login page", err)
	}

	if err := a.Page.Click(sel.LoginButton, to.Selector); err != nil {
		return a.fail("trigger federated login", err)
	}
	if err := a.Page.WaitNetworkIdle(to.Navigation); err != nil {
		return a.fail("federated login redirect", err)
	}

	if err := a.Page.Click(sel.ProviderTile, to.Selector); err != nil {
		return a.fail("select identity provider", err)
	}
	if err := a.Page.WaitNetworkIdle(to.Navigation); err != nil {
		return a.fail("identity provider redirect", err)
	}

	if err := a.Page.Type(sel.UsernameField, creds.Username, to.Selector); err != nil {
		return a.fail("enter username", err)
	}
	if err := a.Page.Click(sel.SubmitButton, to.Selector); err != nil {
		return a.fail("submit username", err)
	}

	// The password field turning visible is the signal that the username
	// redirect completed.
	if err := a.Page.WaitVisible(sel.PasswordField, to.Selector); err != nil {
		return a.fail("wait for password form", err)
	}
	if err := a.Page.Type(sel.PasswordField, creds.Password, to.Selector); err != nil {
		return a.fail("enter password", err)
	}
	if err := a.Page.Click(sel.SubmitButton, to.Selector); err != nil {
		return a.fail("submit password", err)
	}

	if err := a.Page.WaitVisible(sel.OTPField, to.Selector); err != nil {
		return a.fail("wait for passcode form", err)
	}
	// Codes are time-windowed: generate immediately before use, never earlier.
	code, err := a.OTP.Code(creds.OTPSecret)
	if err != nil {
		return a.fail("generate passcode", err)
	}
	if err := a.Page.Type(sel.OTPField, code, to.Selector); err != nil {
		return a.fail("enter passcode", err)
	}
	if err := a.Page.Click(sel.SubmitButton, to.Selector); err != nil {
		return a.fail("submit passcode", err)
	}

	if err := a.Page.WaitNetworkIdle(to.Navigation); err != nil {
		return a.fail("complete single sign-on", err)
	}

	// The consent screen may or may not appear. A missing control is the
	// expected case, never a failure.
	if err := a.Page.Click(sel.ConsentButton, to.Consent); err != nil {
		a.Log.Debug("no consent step", logger.Error(err))
	} else if err := a.Page.WaitNetworkIdle(to.Navigation); err != nil {
		return a.fail("consent redirect", err)
	}

	a.Log.Info("login complete")
	return nil
}

func (a *Authenticator) fail(step string, err error) error {
	loc, _ := a.Page.Location()
	return &Error{Step: step, Location: loc, Err: err}
}
