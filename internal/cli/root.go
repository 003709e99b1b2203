// Package cli implements the dbswap command-line interface.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/dbswap/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
	exitPartial   = 3 // migrated file built but the source was locked
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	logLevel  string
	logFormat string
	jsonMode  bool
}

// NewRootCmd creates the top-level "dbswap" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:   "dbswap",
		Short: "Rebuild a SQLite database from a schema script and swap it into place",
		Long: `dbswap migrates a single-file SQLite database to a new schema.

It builds a fresh database from a schema script, copies every row it can
from the existing database, backs the existing file up to <source>.bak,
and renames the new file over the old one. Rows that no longer fit the
schema are reported and skipped.`,
		// Do not print usage on errors returned by subcommands.
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flags.configDir, "config-dir", "", "configuration directory (default: $XDG_CONFIG_HOME/dbswap)")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", defaultLogLevel, "log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flags.logFormat, "log-format", logFormatConsole, "log format (console, json)")
	root.PersistentFlags().BoolVar(&flags.jsonMode, "json", false, "print results as JSON")

	root.AddCommand(newMigrateCmd(flags))
	root.AddCommand(newInspectCmd(flags))
	root.AddCommand(newInitCmd(flags))
	root.AddCommand(newVersionCmd())

	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	root := NewRootCmd()
	err := root.Execute()
	if err != nil {
		var reported *runError
		if !errors.As(err, &reported) {
			fmt.Fprintln(os.Stderr, "dbswap:", err)
		}
	}
	os.Exit(exitCode(err))
}

// runError marks an error whose outcome was already printed by the command.
type runError struct {
	err error
}

func (e *runError) Error() string { return e.err.Error() }
func (e *runError) Unwrap() error { return e.err }

// exitCode maps a command error to the process exit code.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitSuccess
	case errors.Is(err, types.ErrSwapLocked):
		return exitPartial
	case errors.Is(err, types.ErrConfigInvalid), isUsageError(err):
		return exitUserError
	default:
		return exitSysError
	}
}

// usageError reports bad command-line input.
type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

func isUsageError(err error) bool {
	var u *usageError
	return errors.As(err, &u)
}
