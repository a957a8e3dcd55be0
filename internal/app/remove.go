package app

import (
	"github.com/spf13/cobra"

	"github.com/geektoshi/nebulactl/internal/ops"
)

var (
	removeFlagYes     bool
	removeFlagOrphans bool
)

var removeCmd = &cobra.Command{
	Use:   "remove <package>...",
	Short: "Remove packages",
	Long: `Remove packages through xbps-remove.

Each package gets its own invocation and its own result: a package that
other packages depend on fails alone while the rest of the batch
proceeds. The command reports a per-package outcome table at the end.

Examples:
  nebulactl remove htop
  nebulactl remove vim emacs --orphans
  nebulactl remove old-tool --yes`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRemove,
}

func init() {
	removeCmd.Flags().BoolVarP(&removeFlagYes, "yes", "y", false, "skip the confirmation prompt")
	removeCmd.Flags().BoolVar(&removeFlagOrphans, "orphans", false, "also remove dependencies that become unneeded")
	RootCmd.AddCommand(removeCmd)
}

func runRemove(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	rt.client.RemoveOrphans = removeFlagOrphans
	return runBatch(rt, ops.Remove, toRefs(args), removeFlagYes)
}
