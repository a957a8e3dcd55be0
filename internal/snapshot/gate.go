// Package snapshot integrates the pre-upgrade filesystem snapshot tool.
// The gate races the snapshot invocation against a timeout and reports a
// decision; it never decides on its own whether an upgrade proceeds after
// a failure — that choice belongs to the user.
package snapshot

import (
	"context"
	"fmt"
	"time"

	"github.com/geektoshi/nebulactl/internal/executor"
	"github.com/geektoshi/nebulactl/internal/logging"
)

// Decision classifies the gate's outcome.
type Decision int

const (
	// Created: the snapshot exists; the upgrade may proceed immediately.
	Created Decision = iota
	// TimedOut: the tool did not answer within the timeout.
	TimedOut
	// Failed: the tool answered with an error.
	Failed
	// Skipped: snapshotting is disabled; the gate adds zero latency.
	Skipped
)

func (d Decision) String() string {
	switch d {
	case Created:
		return "created"
	case TimedOut:
		return "timed-out"
	case Failed:
		return "failed"
	case Skipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Outcome is the gate's full answer: the decision, the snapshot name when
// one was created, and the failure reason otherwise.
type Outcome struct {
	Decision Decision
	Name     string
	Reason   string
}

const snapshotTool = "waypointctl"

// Gate requests snapshots via the waypoint helper CLI.
type Gate struct {
	runner  executor.Runner
	enabled bool
	timeout time.Duration
}

// NewGate returns a gate. When enabled is false every request is Skipped.
func NewGate(runner executor.Runner, enabled bool, timeout time.Duration) *Gate {
	return &Gate{runner: runner, enabled: enabled, timeout: timeout}
}

// Request creates a pre-upgrade snapshot covering the root subvolume,
// racing the tool against the configured timeout. A timed-out invocation is
// abandoned, not killed: the tool may still complete the snapshot in the
// background, which is harmless.
func (g *Gate) Request(ctx context.Context, packageCount int) Outcome {
	if !g.enabled {
		return Outcome{Decision: Skipped}
	}

	name := fmt.Sprintf("nebula-pre-upgrade-%s", time.Now().Format("060102-1504"))
	plural := "s"
	if packageCount == 1 {
		plural = ""
	}
	description := fmt.Sprintf("Automatic snapshot by Nebula before upgrading %d package%s", packageCount, plural)

	type reply struct {
		res executor.Result
		err error
	}
	ch := make(chan reply, 1)
	go func() {
		res, err := g.runner.Run(ctx, snapshotTool,
			"create", "--name", name, "--description", description, "--subvolume", "/")
		ch <- reply{res, err}
	}()

	timer := time.NewTimer(g.timeout)
	defer timer.Stop()

	select {
	case r := <-ch:
		if r.err != nil {
			return Outcome{Decision: Failed, Reason: r.err.Error()}
		}
		if !r.res.Success() {
			return Outcome{Decision: Failed, Reason: r.res.Reason()}
		}
		logging.L().Infow("snapshot created", "name", name)
		return Outcome{Decision: Created, Name: name}

	case <-timer.C:
		logging.L().Warnw("snapshot creation timed out", "timeout", g.timeout)
		return Outcome{Decision: TimedOut, Reason: fmt.Sprintf("snapshot creation timed out after %s", g.timeout)}

	case <-ctx.Done():
		return Outcome{Decision: Failed, Reason: ctx.Err().Error()}
	}
}
