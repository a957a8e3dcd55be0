package output

import (
	"strings"
	"testing"
	"time"

	"github.com/geektoshi/nebulactl/internal/history"
	"github.com/geektoshi/nebulactl/internal/ops"
)

func TestRenderUpdatePlan(t *testing.T) {
	plan := []ops.PackageRef{
		{Name: "firefox", Version: "128.0_1"},
		{Name: "nss", Version: "3.101_1"},
	}
	out := RenderUpdatePlan(plan)

	for _, want := range []string{"firefox", "128.0_1", "nss", "3.101_1"} {
		if !strings.Contains(out, want) {
			t.Errorf("RenderUpdatePlan() missing %q:\n%s", want, out)
		}
	}
}

func TestRenderUpdatePlanEmpty(t *testing.T) {
	if out := RenderUpdatePlan(nil); !strings.Contains(out, "up to date") {
		t.Errorf("RenderUpdatePlan(nil) = %q", out)
	}
}

func TestRenderOutcome(t *testing.T) {
	outcome := &ops.BatchOutcome{
		Class: ops.PartialFailure,
		Results: []ops.TargetResult{
			{Target: ops.PackageRef{Name: "vim"}},
			{Target: ops.PackageRef{Name: "htop"}, Reason: "required by other packages"},
		},
	}
	out := RenderOutcome("remove", outcome)

	if !strings.Contains(out, "required by other packages") {
		t.Errorf("RenderOutcome() missing failure reason:\n%s", out)
	}
	if !strings.Contains(out, "partial-failure") {
		t.Errorf("RenderOutcome() missing classification:\n%s", out)
	}
}

func TestRenderHistory(t *testing.T) {
	entries := []history.Entry{
		{
			Kind:        "update",
			Outcome:     "succeeded",
			Snapshot:    "nebula-pre-upgrade-260823-1200",
			Targets:     []history.TargetOutcome{{Package: "firefox"}},
			CompletedAt: time.Now().Add(-2 * time.Hour),
		},
	}
	out := RenderHistory(entries)

	for _, want := range []string{"update", "succeeded", "nebula-pre-upgrade-260823-1200", "firefox"} {
		if !strings.Contains(out, want) {
			t.Errorf("RenderHistory() missing %q:\n%s", want, out)
		}
	}
}

func TestRenderHistoryEmpty(t *testing.T) {
	if out := RenderHistory(nil); !strings.Contains(out, "No operations") {
		t.Errorf("RenderHistory(nil) = %q", out)
	}
}

func TestRenderHeld(t *testing.T) {
	out := RenderHeld([]string{"linux6.6", "nvidia"})
	if !strings.Contains(out, "linux6.6") || !strings.Contains(out, "nvidia") {
		t.Errorf("RenderHeld() missing names:\n%s", out)
	}

	if out := RenderHeld(nil); !strings.Contains(out, "No packages are held") {
		t.Errorf("RenderHeld(nil) = %q", out)
	}
}

func TestSummarizeTargets(t *testing.T) {
	targets := []history.TargetOutcome{
		{Package: "a"}, {Package: "b"}, {Package: "c"}, {Package: "d"}, {Package: "e"},
	}
	if got := summarizeTargets(targets); got != "a, b, c, +2 more" {
		t.Errorf("summarizeTargets() = %q", got)
	}
	if got := summarizeTargets(targets[:2]); got != "a, b" {
		t.Errorf("summarizeTargets(short) = %q", got)
	}
}

func TestFormatRelativeTime(t *testing.T) {
	tests := []struct {
		name string
		t    time.Time
		want string
	}{
		{"zero time", time.Time{}, "never"},
		{"seconds", time.Now().Add(-10 * time.Second), "just now"},
		{"one hour", time.Now().Add(-90 * time.Minute), "1 hour ago"},
		{"days", time.Now().Add(-3 * 24 * time.Hour), "3 days ago"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatRelativeTime(tt.t); got != tt.want {
				t.Errorf("formatRelativeTime() = %q, want %q", got, tt.want)
			}
		})
	}
}
