package app

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/geektoshi/nebulactl/internal/ops"
	"github.com/geektoshi/nebulactl/internal/output"
)

var holdFlagList bool

var holdCmd = &cobra.Command{
	Use:   "hold [package]...",
	Short: "Pin packages at their current version",
	Long: `Hold packages so updates skip them. Held packages stay installed at
their current version until unheld.

Holds never ask for confirmation: they are instantly reversible.

Examples:
  nebulactl hold linux6.6
  nebulactl hold --list`,
	RunE: runHold,
}

var unholdCmd = &cobra.Command{
	Use:   "unhold <package>...",
	Short: "Release held packages",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runUnhold,
}

func init() {
	holdCmd.Flags().BoolVarP(&holdFlagList, "list", "l", false, "list held packages")
	RootCmd.AddCommand(holdCmd)
	RootCmd.AddCommand(unholdCmd)
}

func runHold(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	if holdFlagList {
		held, err := rt.client.Holds().List(context.Background())
		if err != nil {
			return err
		}
		fmt.Print(output.RenderHeld(held))
		return nil
	}

	if len(args) == 0 {
		return fmt.Errorf("specify packages to hold, or --list to show held packages")
	}
	return runBatch(rt, ops.Hold, toRefs(args), true)
}

func runUnhold(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	return runBatch(rt, ops.Unhold, toRefs(args), true)
}
