package app

import (
	"github.com/spf13/cobra"

	"github.com/geektoshi/nebulactl/internal/ops"
)

var installFlagYes bool

var installCmd = &cobra.Command{
	Use:   "install <package>...",
	Short: "Install packages",
	Long: `Install packages through xbps-install.

Each package gets its own invocation, so one failing package never aborts
the rest of the batch. Confirmation is asked once for the whole batch,
exactly as for a single package, unless confirm_install is disabled in
settings or --yes is given.

Examples:
  nebulactl install htop
  nebulactl install htop tmux ripgrep --yes`,
	Args: cobra.MinimumNArgs(1),
	RunE: runInstall,
}

func init() {
	installCmd.Flags().BoolVarP(&installFlagYes, "yes", "y", false, "skip the confirmation prompt")
	RootCmd.AddCommand(installCmd)
}

func runInstall(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	return runBatch(rt, ops.Install, toRefs(args), installFlagYes)
}
