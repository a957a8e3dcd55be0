package prefs

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"

	"github.com/geektoshi/nebulactl/internal/logging"
)

// Provider serves the current preferences and reloads them when the
// settings file changes on disk. Current never blocks.
type Provider struct {
	dir     string
	current atomic.Value // Preferences
}

// NewProvider loads preferences from dir and returns a provider serving
// them.
func NewProvider(dir string) (*Provider, error) {
	p, err := Load(dir)
	if err != nil {
		return nil, err
	}
	prov := &Provider{dir: dir}
	prov.current.Store(p)
	return prov, nil
}

// Current returns the most recently loaded preferences.
func (pr *Provider) Current() Preferences {
	return pr.current.Load().(Preferences)
}

// Watch reloads preferences whenever the settings file is written or
// created. It blocks until ctx is cancelled; run it on its own goroutine.
// The config directory (not the file) is watched so that editors which
// replace the file via rename are still observed.
func (pr *Provider) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create settings watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(pr.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", pr.dir, err)
	}

	target := Path(pr.dir)
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Name != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			p, err := Load(pr.dir)
			if err != nil {
				logging.L().Warnw("settings reload failed", "path", target, "error", err)
				continue
			}
			pr.current.Store(p)
			logging.L().Debugw("settings reloaded", "path", target)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.L().Warnw("settings watcher error", "error", err)
		}
	}
}
