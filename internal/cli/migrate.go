package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newMigrateCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the configuration and apply storage migrations",
		Long:  "Write a default config.yaml when missing, then attach the configured\nstore, which applies any pending schema migrations.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd.Context(), flags, "")
			if err != nil {
				return err
			}
			defer a.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "%s store ready (config: %s)\n", a.settings.Backend, a.settings.ConfigDir)
			return nil
		},
	}
}
