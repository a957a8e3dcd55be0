package app

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/geektoshi/nebulactl/internal/history"
	"github.com/geektoshi/nebulactl/internal/ops"
	"github.com/geektoshi/nebulactl/internal/output"
)

var (
	historyFlagClear  bool
	historyFlagYes    bool
	historyFlagExport string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show past operations",
	Long: `Show the operation history: what ran, when, the per-package outcome and
the pre-upgrade snapshot, if one was created.

The live view holds the most recent 50 operations; the full archive lives
in the history database until cleared. Clearing follows the same
confirmation policy as package removal.

Examples:
  nebulactl history
  nebulactl history --export operations.yaml
  nebulactl history --clear`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().BoolVar(&historyFlagClear, "clear", false, "delete the operation history")
	historyCmd.Flags().BoolVarP(&historyFlagYes, "yes", "y", false, "skip the confirmation prompt")
	historyCmd.Flags().StringVar(&historyFlagExport, "export", "", "write the history to a .yaml or .json file")
	RootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	if historyFlagClear {
		confirmed := historyFlagYes
		if !confirmed && ops.ClearHistoryRequiresConfirmation(rt.provider.Current()) {
			confirmed = confirm("Delete the entire operation history?")
			if !confirmed {
				fmt.Println("Cancelled.")
				return nil
			}
		} else {
			confirmed = true
		}
		if err := rt.ctrl.ClearHistory(confirmed); err != nil {
			return err
		}
		fmt.Println("History cleared.")
		return nil
	}

	entries := rt.hist.Entries()
	if historyFlagExport != "" {
		return exportHistory(historyFlagExport, entries)
	}

	fmt.Print(output.RenderHistory(entries))
	return nil
}

// exportHistory writes entries to path, choosing the format by extension.
func exportHistory(path string, entries []history.Entry) error {
	var (
		data []byte
		err  error
	)
	switch filepath.Ext(path) {
	case ".json":
		data, err = json.MarshalIndent(entries, "", "  ")
	case ".yaml", ".yml":
		data, err = yaml.Marshal(entries)
	default:
		return fmt.Errorf("unsupported export format %q (use .yaml or .json)", filepath.Ext(path))
	}
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	fmt.Printf("Exported %d operations to %s\n", len(entries), path)
	return nil
}
