package snapshot

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/geektoshi/nebulactl/internal/executor"
)

// fakeRunner answers with a canned result after an optional delay.
type fakeRunner struct {
	res   executor.Result
	err   error
	delay time.Duration
	calls int
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) (executor.Result, error) {
	f.calls++
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return executor.Result{}, ctx.Err()
		}
	}
	return f.res, f.err
}

func TestRequestSkippedWhenDisabled(t *testing.T) {
	runner := &fakeRunner{}
	gate := NewGate(runner, false, time.Second)

	out := gate.Request(context.Background(), 3)
	if out.Decision != Skipped {
		t.Errorf("decision = %v, want Skipped", out.Decision)
	}
	if runner.calls != 0 {
		t.Errorf("runner invoked %d times, want 0 when disabled", runner.calls)
	}
}

func TestRequestCreated(t *testing.T) {
	runner := &fakeRunner{res: executor.Result{ExitCode: 0}}
	gate := NewGate(runner, true, time.Second)

	out := gate.Request(context.Background(), 1)
	if out.Decision != Created {
		t.Fatalf("decision = %v, want Created", out.Decision)
	}
	if !strings.HasPrefix(out.Name, "nebula-pre-upgrade-") {
		t.Errorf("snapshot name = %q, want nebula-pre-upgrade- prefix", out.Name)
	}
}

func TestRequestFailedCarriesReason(t *testing.T) {
	runner := &fakeRunner{res: executor.Result{ExitCode: 1, Stderr: "no space left"}}
	gate := NewGate(runner, true, time.Second)

	out := gate.Request(context.Background(), 2)
	if out.Decision != Failed {
		t.Fatalf("decision = %v, want Failed", out.Decision)
	}
	if out.Reason != "no space left" {
		t.Errorf("reason = %q, want %q", out.Reason, "no space left")
	}
}

func TestRequestTimesOut(t *testing.T) {
	runner := &fakeRunner{res: executor.Result{ExitCode: 0}, delay: 500 * time.Millisecond}
	gate := NewGate(runner, true, 50*time.Millisecond)

	start := time.Now()
	out := gate.Request(context.Background(), 5)
	elapsed := time.Since(start)

	if out.Decision != TimedOut {
		t.Fatalf("decision = %v, want TimedOut", out.Decision)
	}
	if elapsed > 400*time.Millisecond {
		t.Errorf("gate waited %v, should return at the timeout, not the tool's duration", elapsed)
	}
	if out.Reason == "" {
		t.Error("timed-out outcome should carry a reason")
	}
}
