// Package app wires the nebulactl command tree: package operations against
// xbps with confirmation policy, pre-upgrade snapshots and operation history.
package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/geektoshi/nebulactl/internal/logging"
)

var (
	flagVerbose bool

	// RootCmd is the root command for nebulactl.
	RootCmd = &cobra.Command{
		Use:   "nebulactl",
		Short: "Void Linux package operations with snapshots and history",
		Long: `nebulactl manages packages through xbps with a confirmation policy,
automatic pre-upgrade snapshots and a persistent operation history.

Every mutating operation runs through pkexec, so no elevated shell is
needed. Concurrent operations on the same package are rejected; batch
operations report a per-package outcome instead of failing as a whole.

Examples:
  # Install packages (asks for confirmation unless disabled in settings)
  nebulactl install htop tmux

  # Check for updates and upgrade everything, with a pre-upgrade snapshot
  nebulactl update

  # Pin a package at its current version
  nebulactl hold linux6.6

  # Prune old package archives from the download cache
  nebulactl clean-cache --keep 2

  # Review past operations
  nebulactl history`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if _, err := logging.Init(flagVerbose); err != nil {
				return fmt.Errorf("failed to initialize logging: %w", err)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
)

func init() {
	RootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")

	// Enable cobra's built-in suggestion feature for unknown subcommands
	RootCmd.SuggestionsMinimumDistance = 2
}

// Execute runs the root command.
func Execute() error {
	return RootCmd.Execute()
}
