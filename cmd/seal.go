package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/example/gym-scheduler/internal/secrets"
)

// newSealCmd encrypts the three credentials into the sealed secrets file read
// by GYM_SECRETS_SOURCE=file. Values are taken from the plain environment
// variables so they never appear in shell history as flags.
func newSealCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "seal",
		Short: "Encrypt credentials from the environment into a sealed secrets file",
		RunE: func(cmd *cobra.Command, args []string) error {
			passphrase := strings.TrimSpace(os.Getenv("GYM_SECRETS_PASSPHRASE"))
			if passphrase == "" {
				return fmt.Errorf("GYM_SECRETS_PASSPHRASE is required")
			}

			names := secrets.DefaultNames()
			values := make(map[string]string, 3)
			for _, name := range []string{names.Username, names.Password, names.OTPSecret} {
				v := strings.TrimSpace(os.Getenv(name))
				if v == "" {
					return fmt.Errorf("env %s is empty", name)
				}
				values[name] = v
			}

			if err := secrets.Seal(out, passphrase, values); err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "sealed %d secrets to %s\n", len(values), out)
			return nil
		},
	}

	cmd.Flags().StringVar(&out, "out", "secrets.sealed.yaml", "output path for the sealed file")
	return cmd
}
