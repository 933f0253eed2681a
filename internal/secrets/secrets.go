package secrets

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrSecretUnavailable tags any retrieval failure. It always surfaces before a
// browser session is opened, so a secrets problem never burns a login attempt.
var ErrSecretUnavailable = errors.New("secret unavailable")

// Provider supplies named opaque secrets on demand. The orchestrator reads
// exactly three names per run.
type Provider interface {
	Get(name string) (string, error)
}

// Credentials are the three secrets a run consumes. Never persisted; lifetime
// is one run.
type Credentials struct {
	Username  string
	Password  string
	OTPSecret string
}

// Names maps the credential fields to the provider-side secret names.
type Names struct {
	Username  string
	Password  string
	OTPSecret string
}

func DefaultNames() Names {
	return Names{
		Username:  "GYM_USERNAME",
		Password:  "GYM_PASSWORD",
		OTPSecret: "TOTP_SECRET",
	}
}

// Load fetches all three credentials from p.
func Load(p Provider, names Names) (Credentials, error) {
	var c Credentials
	var err error
	if c.Username, err = p.Get(names.Username); err != nil {
		return Credentials{}, err
	}
	if c.Password, err = p.Get(names.Password); err != nil {
		return Credentials{}, err
	}
	if c.OTPSecret, err = p.Get(names.OTPSecret); err != nil {
		return Credentials{}, err
	}
	return c, nil
}

// Env reads secrets from environment variables of the same name.
type Env struct{}

func (Env) Get(name string) (string, error) {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return "", fmt.Errorf("%w: env %s is empty", ErrSecretUnavailable, name)
	}
	return v, nil
}
