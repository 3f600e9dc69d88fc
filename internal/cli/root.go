// Package cli implements labchat, the command-line lab assistant client.
// Each invocation loads the thread set, performs one command, saves the
// result and flushes its audit entries.
package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Format     string // "text" | "yaml"
	Offline    bool
	Verbose    bool
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "yaml"}

// NewRootCommand creates the labchat root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "labchat",
		Short: "Lab assistant chat client",
		Long: `labchat keeps conversation threads with the lab assistant, classifies
every message for sensitivity and records an audit trail of what it did.

Threads are stored on the labassist API server and mirrored to a local
snapshot that is used when the server cannot be reached.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "config file (default $CONFIG_PATH or ./config.yaml)")
	cmd.PersistentFlags().StringVarP(&opts.Format, "format", "f", "text", "output format (text|yaml)")
	cmd.PersistentFlags().BoolVar(&opts.Offline, "offline", false, "use only the local snapshot")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log diagnostics to stderr")

	cmd.AddCommand(
		newSendCommand(opts),
		newNewCommand(opts),
		newThreadsCommand(opts),
		newShowCommand(opts),
		newRenameCommand(opts),
		newDeleteCommand(opts),
		newClearCommand(opts),
		newSearchCommand(opts),
		newClassifyCommand(opts),
		newAccessCommand(opts),
		newTokenCommand(opts),
	)

	return cmd
}
