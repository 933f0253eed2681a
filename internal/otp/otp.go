package otp

import (
	"fmt"
	"strings"
	"time"

	"github.com/pquerna/otp/totp"
)

// Generator produces time-based one-time passcodes. Codes are valid for one
// 30-second window, so callers must generate at the point of use and never
// cache a code across submissions.
type Generator struct {
	// Now is overridable for tests; defaults to time.Now.
	Now func() time.Time
}

func New() *Generator {
	return &Generator{Now: time.Now}
}

// Code returns the 6-digit passcode for secret at the current instant.
func (g *Generator) Code(secret string) (string, error) {
	secret = normalize(secret)
	if secret == "" {
		return "", fmt.Errorf("otp: empty secret")
	}
	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	code, err := totp.GenerateCode(secret, now())
	if err != nil {
		return "", fmt.Errorf("otp: generate: %w", err)
	}
	return code, nil
}

// normalize strips the spacing and casing variations authenticator setup
// screens tend to present base32 seeds with.
func normalize(secret string) string {
	secret = strings.ReplaceAll(secret, " ", "")
	return strings.ToUpper(strings.TrimSpace(secret))
}
