package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/gym-scheduler/internal/config"
	"github.com/example/gym-scheduler/internal/otp"
	"github.com/example/gym-scheduler/internal/secrets"
)

// newOTPCmd prints the current passcode for the configured seed, so an
// operator can verify the secret against their authenticator app without
// spending a login attempt.
func newOTPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "otp",
		Short: "Print the current one-time passcode for the configured secret",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
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

			secret, err := provider.Get(secrets.DefaultNames().OTPSecret)
			if err != nil {
				return err
			}
			code, err := otp.New().Code(secret)
			if err != nil {
				return err
			}
			fmt.Fprintln(os.Stdout, code)
			return nil
		},
	}
}
