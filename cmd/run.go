package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/example/gym-scheduler/internal/browser"
	"github.com/example/gym-scheduler/internal/config"
	"github.com/example/gym-scheduler/internal/logger"
	"github.com/example/gym-scheduler/internal/orchestrator"
	"github.com/example/gym-scheduler/internal/otp"
	"github.com/example/gym-scheduler/internal/portal"
	"github.com/example/gym-scheduler/internal/report"
	"github.com/example/gym-scheduler/internal/schedule"
	"github.com/example/gym-scheduler/internal/secrets"
)

// newRunCmd is the entry point the external cron trigger invokes: one run,
// one browser session, every configured reservation in order.
func newRunCmd() *cobra.Command {
	var reservationsFile string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute one reservation run (authenticate, wait for the window, book)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			if reservationsFile != "" {
				cfg.ReservationsFile = reservationsFile
			}

			log := logger.New(cfg.LogLevel, cfg.PrettyLog || cfg.DevMode)
			defer func() { _ = log.Sync() }()

			reqs, err := config.LoadReservations(cfg.ReservationsFile, cfg.LeadDays)
			if err != nil {
				return err
			}

			var provider secrets.Provider
			if cfg.SecretsSource == "file" {
				provider, err = secrets.OpenSealed(cfg.SecretsFile, cfg.Passphrase)
				if err != nil {
					return err
				}
			} else {
				provider = secrets.Env{}
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			o := &orchestrator.Orchestrator{
				Cfg:          cfg,
				Reservations: reqs,
				Secrets:      provider,
				OTP:          otp.New(),
				Reporter: &report.Reporter{
					Sink: report.DirSink{Dir: cfg.ArtifactDir},
					Log:  log,
				},
				Waiter: &schedule.Waiter{Log: log},
				Log:    log,
				NewPage: func(ctx context.Context) (portal.Page, func(), error) {
					s, err := browser.New(ctx, browser.Options{
						Headless:     !cfg.DevMode,
						Devtools:     cfg.DevMode,
						IdentityHost: cfg.IdentityHost,
						Log:          log,
					})
					if err != nil {
						return nil, nil, err
					}
					return s, s.Close, nil
				},
			}

			return o.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&reservationsFile, "reservations", "", "path to the reservations file (overrides GYM_RESERVATIONS_FILE)")
	return cmd
}
