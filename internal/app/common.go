package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/geektoshi/nebulactl/internal/executor"
	"github.com/geektoshi/nebulactl/internal/history"
	"github.com/geektoshi/nebulactl/internal/ops"
	"github.com/geektoshi/nebulactl/internal/output"
	"github.com/geektoshi/nebulactl/internal/prefs"
	"github.com/geektoshi/nebulactl/internal/snapshot"
	"github.com/geektoshi/nebulactl/internal/xbps"
)

// runtime bundles the wired components one command invocation needs.
type runtime struct {
	ctrl     *ops.Controller
	client   *xbps.Client
	provider *prefs.Provider
	hist     *history.Log
	store    *history.Store
	cancel   context.CancelFunc
}

// newRuntime wires the controller stack: preferences from the config
// directory (hot-reloaded while the command runs), the sqlite history
// archive next to them, the xbps client and the snapshot gate.
func newRuntime() (*runtime, error) {
	dir, err := prefs.Dir()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	provider, err := prefs.NewProvider(dir)
	if err != nil {
		return nil, err
	}

	store, err := history.NewStore(filepath.Join(dir, "history.db"))
	if err != nil {
		return nil, err
	}
	hist, err := history.NewLog(store)
	if err != nil {
		store.Close()
		return nil, err
	}

	runner := &executor.ExecRunner{}
	client := xbps.NewClient(runner)

	p := provider.Current()
	gate := snapshot.NewGate(runner, p.SnapshotEnabled, p.SnapshotTimeout)

	ctrl := ops.NewController(client, gate, hist, provider.Current, ops.Config{})

	watchCtx, cancel := context.WithCancel(context.Background())
	go func() {
		_ = provider.Watch(watchCtx)
	}()

	return &runtime{
		ctrl:     ctrl,
		client:   client,
		provider: provider,
		hist:     hist,
		store:    store,
		cancel:   cancel,
	}, nil
}

func (rt *runtime) close() {
	rt.cancel()
	rt.ctrl.Wait()
	rt.store.Close()
}

// confirm prompts on stdout and reads a yes/no answer from stdin.
func confirm(prompt string) bool {
	return confirmFrom(os.Stdin, prompt)
}

func confirmFrom(r io.Reader, prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// toRefs converts command arguments to package references.
func toRefs(args []string) []ops.PackageRef {
	refs := make([]ops.PackageRef, len(args))
	for i, name := range args {
		refs[i] = ops.PackageRef{Name: name}
	}
	return refs
}

// runBatch submits a per-target operation and drives it to completion:
// confirmation prompt, progress over target results, outcome table.
func runBatch(rt *runtime, kind ops.OperationKind, targets []ops.PackageRef, yes bool) error {
	ctx := context.Background()

	p, err := rt.ctrl.Submit(ctx, ops.Request{Kind: kind, Targets: targets})
	if err != nil {
		return submitError(err)
	}

	if p.NeedsConfirmation() {
		proceed := yes
		if !proceed {
			names := make([]string, len(targets))
			for i, tgt := range targets {
				names[i] = tgt.Name
			}
			proceed = confirm(fmt.Sprintf("%s %s?", capitalize(kind.String()), strings.Join(names, ", ")))
		}
		p.Confirm(proceed)
		if !proceed {
			fmt.Println("Cancelled.")
			_, _ = p.WaitOutcome(ctx)
			return nil
		}
	}

	progress := output.NewProgress(len(targets), fmt.Sprintf("%s %d packages", kind, len(targets)))
	rec := consumeEvents(rt, p, progress)
	progress.Finish()

	return reportOutcome(rec)
}

// consumeEvents drains the controller's event stream for one operation
// until it terminates, driving the progress bar and answering the snapshot
// choice when the gate fails.
func consumeEvents(rt *runtime, p *ops.Pending, progress *output.ProgressBar) ops.OperationRecord {
	ctx := context.Background()
	for {
		select {
		case ev := <-rt.ctrl.Events():
			if ev.Op != p.ID() {
				continue
			}
			switch ev.Type {
			case ops.EventTargetResult:
				if progress != nil {
					progress.Increment()
				}
				if ev.Reason != "" && ev.Target != nil {
					fmt.Printf("\n%s: %s\n", ev.Target.Name, output.Failure(ev.Reason))
				}
			case ops.EventAwaitingSnapshotChoice:
				answer := confirm(fmt.Sprintf("Snapshot could not be created (%s). Update anyway?", ev.Reason))
				p.ResolveSnapshot(answer)
			}

		case <-p.Done():
			rec, _ := p.WaitOutcome(ctx)
			return rec
		}
	}
}

// reportOutcome renders the terminal record and maps the classification to
// the command's exit status.
func reportOutcome(rec ops.OperationRecord) error {
	fmt.Print(output.RenderOutcome(rec.Kind.String(), rec.Outcome))

	if rec.Outcome == nil {
		return nil
	}
	switch rec.Outcome.Class {
	case ops.AllFailed:
		return errors.New("operation failed")
	case ops.PartialFailure:
		return fmt.Errorf("%d of %d packages failed", len(rec.Outcome.FailedTargets()), len(rec.Outcome.Results))
	}
	return nil
}

// submitError turns admission failures into user-facing messages.
func submitError(err error) error {
	var busy *ops.BusyError
	if errors.As(err, &busy) {
		names := make([]string, len(busy.Conflicting))
		for i, ref := range busy.Conflicting {
			names[i] = ref.Name
		}
		return fmt.Errorf("another operation is already running for: %s", strings.Join(names, ", "))
	}
	return err
}
