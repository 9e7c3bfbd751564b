package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/pantry/internal/auth"
	"github.com/mesh-intelligence/pantry/internal/config"
)

func newTokenCmd(flags *rootFlags) *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token USER",
		Short: "Mint a bearer token for USER signed with the configured jwt secret",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.Load(config.Flags{ConfigDir: flags.configDir, DataDir: flags.dataDir})
			if err != nil {
				return userError(err)
			}
			if settings.Auth.JWTSecret == "" {
				return userError(errors.New("auth.jwt_secret is not configured"))
			}
			j := &auth.JWT{Secret: []byte(settings.Auth.JWTSecret), Issuer: settings.Auth.JWTIssuer}
			token, err := j.Sign(args[0], ttl)
			if err != nil {
				return userError(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
