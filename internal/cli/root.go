// Package cli implements the pantry command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/pantry/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	logLevel  string
}

// NewRootCmd creates the top-level "pantry" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	var flags rootFlags
	root := &cobra.Command{
		Use:   "pantry",
		Short: "Multi-tenant content backend",
		Long:  "Pantry stores organizations, projects, content type schemas and the\ncontent written against them, and serves it over HTTP.",
		// Do not print usage on errors returned by subcommands.
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flags.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	root.PersistentFlags().StringVar(&flags.dataDir, "data-dir", "", "data directory (default: platform data dir)")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newServeCmd(&flags))
	root.AddCommand(newMigrateCmd(&flags))
	root.AddCommand(newSeedCmd(&flags))
	root.AddCommand(newExportCmd(&flags))
	root.AddCommand(newImportCmd(&flags))
	root.AddCommand(newTokenCmd(&flags))

	return root
}

// Execute runs the root command and returns the process exit code.
func Execute(ctx context.Context) int {
	return run(ctx, NewRootCmd(), os.Args[1:], os.Stderr)
}

func run(ctx context.Context, root *cobra.Command, args []string, stderr io.Writer) int {
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err == nil {
		return exitSuccess
	}
	fmt.Fprintln(stderr, "pantry:", err)
	return exitCode(err)
}

// exitError marks an error with the exit code it should produce.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }

func (e *exitError) Unwrap() error { return e.err }

func userError(err error) error {
	return &exitError{code: exitUserError, err: err}
}

func sysError(err error) error {
	return &exitError{code: exitSysError, err: err}
}

// exitCode classifies err. Unmarked errors from cobra itself are usage
// errors; unmarked storage failures are system errors.
func exitCode(err error) int {
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	if errors.Is(err, types.ErrStorage) {
		return exitSysError
	}
	return exitUserError
}

// classify marks a component error by its kind.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if types.KindOf(err) == types.ErrStorage {
		return sysError(err)
	}
	return userError(err)
}
