package xbps

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/geektoshi/nebulactl/internal/executor"
	"github.com/geektoshi/nebulactl/internal/logging"
	"github.com/geektoshi/nebulactl/internal/ops"
)

const defaultCacheDir = "/var/cache/xbps"

// rm argument lists are chunked to stay clear of ARG_MAX on large caches.
const removeChunkSize = 100

// CacheCleaner prunes stale package archives from the xbps download cache,
// keeping the newest versions of each package.
type CacheCleaner struct {
	runner executor.Runner
	dir    string
}

// NewCacheCleaner returns a cleaner over dir; an empty dir selects the
// system cache directory.
func NewCacheCleaner(runner executor.Runner, dir string) *CacheCleaner {
	if dir == "" {
		dir = defaultCacheDir
	}
	return &CacheCleaner{runner: runner, dir: dir}
}

type cachedArchive struct {
	path    string
	pkg     string
	modTime time.Time
}

// Clean removes all but the keep newest archives of each package. It
// refuses to run while a package-manager process holds the database lock,
// since xbps may still be downloading into the cache.
func (c *CacheCleaner) Clean(ctx context.Context, keep int) error {
	if keep < 0 {
		keep = 0
	}

	locked, err := c.managerRunning(ctx)
	if err != nil {
		return err
	}
	if locked {
		return &ops.ExecutionError{Reason: "package manager is running, cache is in use"}
	}

	stale, err := c.selectStale(keep)
	if err != nil {
		return err
	}
	if len(stale) == 0 {
		logging.L().Infow("cache already clean", "dir", c.dir, "keep", keep)
		return nil
	}

	for start := 0; start < len(stale); start += removeChunkSize {
		end := start + removeChunkSize
		if end > len(stale) {
			end = len(stale)
		}
		args := append([]string{"rm", "-f"}, stale[start:end]...)
		res, err := c.runner.Run(ctx, "pkexec", args...)
		if err != nil {
			return fmt.Errorf("failed to remove cached archives: %w", err)
		}
		if !res.Success() {
			return &ops.ExecutionError{Reason: res.Reason()}
		}
	}

	logging.L().Infow("cache cleaned", "dir", c.dir, "removed", len(stale), "keep", keep)
	return nil
}

// selectStale lists the archive paths to delete: per package, everything
// past the keep newest by modification time. Signature files ride along
// with their archive.
func (c *CacheCleaner) selectStale(keep int) ([]string, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read cache directory %s: %w", c.dir, err)
	}

	byPkg := make(map[string][]cachedArchive)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".xbps") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		pkg := extractPackageName(entry.Name())
		if pkg == "" {
			continue
		}
		byPkg[pkg] = append(byPkg[pkg], cachedArchive{
			path:    filepath.Join(c.dir, entry.Name()),
			pkg:     pkg,
			modTime: info.ModTime(),
		})
	}

	var stale []string
	for _, archives := range byPkg {
		if len(archives) <= keep {
			continue
		}
		sort.Slice(archives, func(i, j int) bool {
			return archives[i].modTime.After(archives[j].modTime)
		})
		for _, a := range archives[keep:] {
			stale = append(stale, a.path)
			for _, sig := range []string{a.path + ".sig", a.path + ".sig2"} {
				if _, err := os.Stat(sig); err == nil {
					stale = append(stale, sig)
				}
			}
		}
	}
	sort.Strings(stale)
	return stale, nil
}

// managerRunning reports whether an xbps process is active. pgrep exits 1
// when nothing matches, which is the common case, not a failure.
func (c *CacheCleaner) managerRunning(ctx context.Context) (bool, error) {
	res, err := c.runner.Run(ctx, "pgrep", "-x", "xbps-install|xbps-remove|xbps-rindex")
	if err != nil {
		return false, fmt.Errorf("failed to check for running package manager: %w", err)
	}
	return res.ExitCode == 0, nil
}

// extractPackageName strips the architecture and .xbps suffix from a cache
// file name ("firefox-128.0_1.x86_64.xbps") and returns the package name.
func extractPackageName(filename string) string {
	base := strings.TrimSuffix(filename, ".xbps")
	if dot := strings.LastIndex(base, "."); dot > 0 {
		base = base[:dot]
	}
	name, _ := SplitPackageIdentifier(base)
	return name
}
