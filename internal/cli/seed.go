package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/pantry/internal/seed"
)

func newSeedCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "seed FILE",
		Short: "Create organizations, projects and content types from a YAML manifest",
		Long:  "Apply a seed manifest. Entities whose slugs already exist are skipped,\nso a manifest can be applied repeatedly.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := seed.ParseFile(args[0])
			if err != nil {
				return userError(err)
			}
			a, err := open(cmd.Context(), flags, "")
			if err != nil {
				return err
			}
			defer a.Close()

			svc, err := a.services()
			if err != nil {
				return err
			}
			rep, err := seed.New(a.store, svc.tenancy, svc.registry, a.log).Apply(cmd.Context(), m)
			if err != nil {
				return classify(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %d, skipped %d\n", rep.Created, rep.Skipped)
			return nil
		},
	}
}
