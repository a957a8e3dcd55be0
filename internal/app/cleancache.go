package app

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/geektoshi/nebulactl/internal/ops"
)

var (
	cleanCacheFlagKeep int
	cleanCacheFlagYes  bool
)

var cleanCacheCmd = &cobra.Command{
	Use:   "clean-cache",
	Short: "Prune old package archives from the download cache",
	Long: `Remove stale .xbps archives from /var/cache/xbps, keeping the newest
versions of each package.

The retention defaults to the cache_versions_to_keep setting. Cleaning with
the preferred retention runs without a prompt; an explicit --keep that
differs from the preference asks once, since it deletes more (or less)
than the configured policy.

The command refuses to run while xbps is active, because the package
manager may still be downloading into the cache.

Examples:
  nebulactl clean-cache
  nebulactl clean-cache --keep 0 --yes`,
	Args: cobra.NoArgs,
	RunE: runCleanCache,
}

func init() {
	cleanCacheCmd.Flags().IntVar(&cleanCacheFlagKeep, "keep", -1, "versions to keep per package (default: cache_versions_to_keep setting)")
	cleanCacheCmd.Flags().BoolVarP(&cleanCacheFlagYes, "yes", "y", false, "skip the confirmation prompt")
	RootCmd.AddCommand(cleanCacheCmd)
}

func runCleanCache(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	preferred := rt.provider.Current().CacheVersionsToKeep
	keep := cleanCacheFlagKeep
	if keep >= 0 && keep != preferred && !cleanCacheFlagYes {
		if !confirm(fmt.Sprintf("Keep %d versions instead of the configured %d?", keep, preferred)) {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	ctx := context.Background()
	p, err := rt.ctrl.Submit(ctx, ops.Request{Kind: ops.CacheCleanup, KeepVersions: keep})
	if err != nil {
		return submitError(err)
	}

	rec, err := p.WaitOutcome(ctx)
	if err != nil {
		return err
	}
	if rec.Outcome != nil && rec.Outcome.Class != ops.AllSucceeded {
		for _, res := range rec.Outcome.FailedTargets() {
			return fmt.Errorf("cache cleanup failed: %s", res.Reason)
		}
	}
	fmt.Println("Cache cleaned.")
	return nil
}
