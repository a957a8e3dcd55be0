package xbps

import (
	"context"
	"fmt"

	"github.com/geektoshi/nebulactl/internal/executor"
	"github.com/geektoshi/nebulactl/internal/logging"
	"github.com/geektoshi/nebulactl/internal/ops"
)

const (
	installBin = "xbps-install"
	removeBin  = "xbps-remove"
	queryBin   = "xbps-query"
	pkgdbBin   = "xbps-pkgdb"
	elevateBin = "pkexec"
)

// Client runs XBPS commands. It implements the controller's PackageTool.
type Client struct {
	runner executor.Runner
	// RemoveOrphans adds -Ro to removals so unneeded dependencies go too.
	RemoveOrphans bool
	cache         *CacheCleaner
	holds         *HoldSet
}

// NewClient returns a client using runner for subprocesses.
func NewClient(runner executor.Runner) *Client {
	return &Client{
		runner: runner,
		cache:  NewCacheCleaner(runner, ""),
		holds:  NewHoldSet(runner),
	}
}

// Holds exposes the held-package cache.
func (c *Client) Holds() *HoldSet { return c.holds }

// elevated runs a mutating xbps command through pkexec.
func (c *Client) elevated(ctx context.Context, bin string, args ...string) (executor.Result, error) {
	full := append([]string{bin}, args...)
	return c.runner.Run(ctx, elevateBin, full...)
}

// Do runs one per-target invocation.
func (c *Client) Do(ctx context.Context, kind ops.OperationKind, target ops.PackageRef) error {
	switch kind {
	case ops.Install:
		return c.install(ctx, target)
	case ops.Remove:
		return c.remove(ctx, target)
	case ops.Hold:
		return c.setHold(ctx, target, true)
	case ops.Unhold:
		return c.setHold(ctx, target, false)
	default:
		return fmt.Errorf("operation %s has no per-target invocation", kind)
	}
}

// DoBatch runs a whole-batch invocation. Only updates are batched: xbps
// resolves the upgrade transaction as a unit, so one run covers every
// target and only an aggregate result exists.
func (c *Client) DoBatch(ctx context.Context, kind ops.OperationKind, targets []ops.PackageRef) error {
	if kind != ops.Update {
		return fmt.Errorf("operation %s has no batch invocation", kind)
	}

	args := []string{"-y", "-u"}
	for _, tgt := range targets {
		args = append(args, tgt.Name)
	}
	res, err := c.elevated(ctx, installBin, args...)
	if err != nil {
		return fmt.Errorf("failed to run %s: %w", installBin, err)
	}
	if !res.Success() {
		return &ops.ExecutionError{Reason: res.Reason()}
	}
	logging.L().Infow("updated packages", "count", len(targets))
	return nil
}

// CleanCache prunes the download cache.
func (c *Client) CleanCache(ctx context.Context, keep int) error {
	return c.cache.Clean(ctx, keep)
}

func (c *Client) install(ctx context.Context, target ops.PackageRef) error {
	res, err := c.elevated(ctx, installBin, "-y", target.Name)
	if err != nil {
		return fmt.Errorf("failed to run %s: %w", installBin, err)
	}
	if !res.Success() {
		return &ops.ExecutionError{Reason: res.Reason()}
	}
	logging.L().Infow("installed package", "package", target.Name)
	return nil
}

func (c *Client) remove(ctx context.Context, target ops.PackageRef) error {
	args := []string{"-y"}
	if c.RemoveOrphans {
		args = append(args, "-Ro")
	}
	args = append(args, target.Name)

	res, err := c.elevated(ctx, removeBin, args...)
	if err != nil {
		return fmt.Errorf("failed to run %s: %w", removeBin, err)
	}
	if !res.Success() {
		return &ops.ExecutionError{Reason: res.Reason()}
	}
	logging.L().Infow("removed package", "package", target.Name)
	return nil
}

func (c *Client) setHold(ctx context.Context, target ops.PackageRef, hold bool) error {
	mode := "hold"
	if !hold {
		mode = "unhold"
	}
	res, err := c.elevated(ctx, pkgdbBin, "-m", mode, target.Name)
	if err != nil {
		return fmt.Errorf("failed to run %s: %w", pkgdbBin, err)
	}
	if !res.Success() {
		return &ops.ExecutionError{Reason: res.Reason()}
	}
	c.holds.Invalidate()
	return nil
}

// CheckUpdates syncs the repositories and returns the dry-run update plan.
// An up-to-date system is an empty plan, not an error: xbps-install exits
// non-zero when there is nothing to do.
func (c *Client) CheckUpdates(ctx context.Context) ([]ops.PackageRef, error) {
	res, err := c.elevated(ctx, installBin, "-Sun")
	if err != nil {
		return nil, fmt.Errorf("failed to run %s: %w", installBin, err)
	}
	plan := ParseUpdatePlan(res.Stdout)
	if !res.Success() && len(plan) == 0 && res.Stderr != "" {
		return nil, &ops.ExecutionError{Reason: res.Reason()}
	}
	return plan, nil
}
