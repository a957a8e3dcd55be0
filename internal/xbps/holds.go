package xbps

import (
	"context"
	"fmt"
	"sync"

	"github.com/geektoshi/nebulactl/internal/executor"
)

// HoldSet caches the set of held packages. The list comes from xbps-query
// and stays valid until a hold or unhold invalidates it.
type HoldSet struct {
	runner executor.Runner

	mu     sync.Mutex
	loaded bool
	held   map[string]bool
}

// NewHoldSet returns an empty, unloaded set.
func NewHoldSet(runner executor.Runner) *HoldSet {
	return &HoldSet{runner: runner}
}

// Held reports whether name is held, loading the set on first use.
func (h *HoldSet) Held(ctx context.Context, name string) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.loadLocked(ctx); err != nil {
		return false, err
	}
	return h.held[name], nil
}

// List returns the held package names, loading the set on first use.
func (h *HoldSet) List(ctx context.Context) ([]string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.loadLocked(ctx); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(h.held))
	for name := range h.held {
		names = append(names, name)
	}
	return names, nil
}

// Invalidate drops the cached set so the next read reloads it.
func (h *HoldSet) Invalidate() {
	h.mu.Lock()
	h.loaded = false
	h.held = nil
	h.mu.Unlock()
}

func (h *HoldSet) loadLocked(ctx context.Context) error {
	if h.loaded {
		return nil
	}

	res, err := h.runner.Run(ctx, queryBin, "-H")
	if err != nil {
		return fmt.Errorf("failed to list held packages: %w", err)
	}
	// xbps-query -H exits non-zero when no package is held.
	h.held = make(map[string]bool)
	for _, name := range ParseHeldPackages(res.Stdout) {
		h.held[name] = true
	}
	h.loaded = true
	return nil
}
