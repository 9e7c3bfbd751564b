package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newExportCmd(flags *rootFlags) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every table to JSONL files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd.Context(), flags, "")
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.store.Export(cmd.Context(), out); err != nil {
				return sysError(fmt.Errorf("exporting to %s: %w", out, err))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported to %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "directory to write JSONL files to")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

func newImportCmd(flags *rootFlags) *cobra.Command {
	var in string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load JSONL files written by export",
		Long:  "Load every table from a directory written by export, in one\ntransaction. Nothing is imported if any record fails.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd.Context(), flags, "")
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.store.Import(cmd.Context(), in); err != nil {
				return classify(fmt.Errorf("importing from %s: %w", in, err))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported from %s\n", in)
			return nil
		},
	}
	cmd.Flags().StringVar(&in, "in", "", "directory holding JSONL files")
	_ = cmd.MarkFlagRequired("in")
	return cmd
}
