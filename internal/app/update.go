package app

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/geektoshi/nebulactl/internal/ops"
	"github.com/geektoshi/nebulactl/internal/output"
)

var (
	updateFlagYes    bool
	updateFlagDryRun bool
)

var updateCmd = &cobra.Command{
	Use:   "update [package]...",
	Short: "Update packages",
	Long: `Check for updates and apply them.

Without arguments the full dry-run plan from the repositories is shown and,
after confirmation, every planned package is updated in one transaction.
With arguments only the named packages are updated.

When snapshots are enabled in settings, a filesystem snapshot is created
before the upgrade. If the snapshot fails or times out you are asked
whether to proceed without one; an unanswered prompt cancels the update.

Examples:
  # Show the plan and upgrade everything
  nebulactl update

  # Plan only
  nebulactl update --dry-run

  # Update specific packages
  nebulactl update firefox nss`,
	RunE: runUpdate,
}

func init() {
	updateCmd.Flags().BoolVarP(&updateFlagYes, "yes", "y", false, "skip the confirmation prompt")
	updateCmd.Flags().BoolVar(&updateFlagDryRun, "dry-run", false, "show the update plan without applying it")
	RootCmd.AddCommand(updateCmd)
}

func runUpdate(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	ctx := context.Background()

	var targets []ops.PackageRef
	if len(args) > 0 {
		targets = toRefs(args)
	} else {
		spinner := output.NewSpinner("Syncing repositories")
		spinner.Start()
		plan, err := rt.client.CheckUpdates(ctx)
		spinner.Stop()
		if err != nil {
			return fmt.Errorf("failed to check for updates: %w", err)
		}

		fmt.Print(output.RenderUpdatePlan(plan))
		if len(plan) == 0 {
			return nil
		}
		targets = plan
	}

	if updateFlagDryRun {
		return nil
	}

	p, err := rt.ctrl.Submit(ctx, ops.Request{Kind: ops.Update, Targets: targets})
	if err != nil {
		return submitError(err)
	}

	// Updates are always confirmed at the plan level, once per run.
	proceed := updateFlagYes
	if !proceed {
		proceed = confirm(fmt.Sprintf("Update %d packages?", len(targets)))
	}
	p.Confirm(proceed)
	if !proceed {
		fmt.Println("Cancelled.")
		_, _ = p.WaitOutcome(ctx)
		return nil
	}

	rec := consumeEvents(rt, p, nil)
	if rec.Snapshot != nil && rec.Snapshot.Name != "" {
		fmt.Printf("Snapshot: %s\n", rec.Snapshot.Name)
	}
	return reportOutcome(rec)
}
