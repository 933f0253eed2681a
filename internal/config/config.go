package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/example/gym-scheduler/internal/portal"
)

type Config struct {
	// Portal
	LoginURL     string
	IdentityHost string // identity provider hostname, for response diagnostics
	Selectors    portal.Selectors
	Timeouts     portal.Timeouts

	// Booking window
	OpenHour   int
	OpenMinute int

	// LeadDays is the default date offset for reservations that specify
	// neither a weekday nor an explicit offset.
	LeadDays    int
	SettleDelay time.Duration

	ReservationsFile string
	ArtifactDir      string

	// Secrets: "env" reads plain environment variables; "file" opens the
	// sealed secrets file with the passphrase from GYM_SECRETS_PASSPHRASE.
	SecretsSource string
	SecretsFile   string
	Passphrase    string

	DevMode   bool // headed browser with devtools
	LogLevel  string
	PrettyLog bool
}

func FromEnv() (Config, error) {
	cfg := Config{
		LoginURL:     envDefault("GYM_LOGIN_URL", "https://tilburguniversity.sports.delcom.nl/pages/login"),
		IdentityHost: envDefault("GYM_IDENTITY_HOST", "login.microsoftonline.com"),
		Selectors:    portal.DefaultSelectors(),
		Timeouts:     portal.DefaultTimeouts(),

		ReservationsFile: envDefault("GYM_RESERVATIONS_FILE", "reservations.yaml"),
		ArtifactDir:      envDefault("GYM_ARTIFACT_DIR", "artifacts"),

		SecretsSource: envDefault("GYM_SECRETS_SOURCE", "env"),
		SecretsFile:   envDefault("GYM_SECRETS_FILE", "secrets.sealed.yaml"),
		Passphrase:    strings.TrimSpace(os.Getenv("GYM_SECRETS_PASSPHRASE")),

		DevMode:   strings.TrimSpace(os.Getenv("GYM_DEV_MODE")) == "1",
		LogLevel:  envDefault("GYM_LOG_LEVEL", "info"),
		PrettyLog: strings.TrimSpace(os.Getenv("GYM_PRETTY_LOG")) == "1",
	}

	if tile := strings.TrimSpace(os.Getenv("GYM_IDP_TILE")); tile != "" {
		cfg.Selectors.ProviderTile = fmt.Sprintf(`[data-title=%q]`, tile)
	}

	var err error
	if cfg.OpenHour, cfg.OpenMinute, err = parseClock(envDefault("GYM_OPEN_TIME", "08:00")); err != nil {
		return cfg, fmt.Errorf("GYM_OPEN_TIME: %w", err)
	}
	if cfg.LeadDays, err = envInt("GYM_LEAD_DAYS", 7); err != nil {
		return cfg, err
	}
	if cfg.LeadDays < 1 {
		return cfg, fmt.Errorf("GYM_LEAD_DAYS must be at least 1")
	}
	if cfg.SettleDelay, err = envDuration("GYM_SETTLE_DELAY", 5*time.Second); err != nil {
		return cfg, err
	}

	switch cfg.SecretsSource {
	case "env":
	case "file":
		if cfg.Passphrase == "" {
			return cfg, fmt.Errorf("GYM_SECRETS_PASSPHRASE is required with GYM_SECRETS_SOURCE=file")
		}
	default:
		return cfg, fmt.Errorf("GYM_SECRETS_SOURCE must be env or file (got %q)", cfg.SecretsSource)
	}

	return cfg, nil
}

func parseClock(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, 0, fmt.Errorf("want HH:MM: %w", err)
	}
	return t.Hour(), t.Minute(), nil
}

func envDefault(k, d string) string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return d
	}
	return v
}

func envInt(k string, d int) (int, error) {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return d, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", k, err)
	}
	return n, nil
}

func envDuration(k string, d time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return d, nil
	}
	out, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", k, err)
	}
	return out, nil
}
