// Package output renders terminal output: tables for update plans, batch
// outcomes and history, plus progress indicators for long-running
// operations. Progress indicators are safe for concurrent use.
package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/geektoshi/nebulactl/internal/history"
	"github.com/geektoshi/nebulactl/internal/ops"
)

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	return t
}

// RenderUpdatePlan renders the dry-run update plan.
func RenderUpdatePlan(plan []ops.PackageRef) string {
	if len(plan) == 0 {
		return "System is up to date.\n"
	}

	t := newTable()
	t.AppendHeader(table.Row{"Package", "New Version"})
	for _, ref := range plan {
		t.AppendRow(table.Row{ref.Name, ref.Version})
	}
	t.AppendFooter(table.Row{"Total", len(plan)})
	return t.Render() + "\n"
}

// RenderOutcome renders the per-target results of a finished operation.
func RenderOutcome(kind string, outcome *ops.BatchOutcome) string {
	if outcome == nil {
		return ""
	}

	t := newTable()
	t.AppendHeader(table.Row{"Package", "Result", "Reason"})
	for _, res := range outcome.Results {
		result := "ok"
		if outcome.Class == ops.Cancelled {
			result = "cancelled"
		} else if res.Failed() {
			result = "failed"
		}
		t.AppendRow(table.Row{res.Target.Name, result, res.Reason})
	}

	var sb strings.Builder
	sb.WriteString(t.Render())
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("%s: %s\n", kind, outcome.Class))
	return sb.String()
}

// RenderHistory renders archived operations, newest first.
func RenderHistory(entries []history.Entry) string {
	if len(entries) == 0 {
		return "No operations recorded.\n"
	}

	t := newTable()
	t.AppendHeader(table.Row{"When", "Operation", "Packages", "Outcome", "Snapshot"})
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		t.AppendRow(table.Row{
			formatRelativeTime(e.CompletedAt),
			e.Kind,
			summarizeTargets(e.Targets),
			e.Outcome,
			e.Snapshot,
		})
	}
	return t.Render() + "\n"
}

// RenderHeld renders the held package names.
func RenderHeld(names []string) string {
	if len(names) == 0 {
		return "No packages are held.\n"
	}

	t := newTable()
	t.AppendHeader(table.Row{"Held Package"})
	for _, name := range names {
		t.AppendRow(table.Row{name})
	}
	return t.Render() + "\n"
}

// summarizeTargets compacts a target list into a short cell.
func summarizeTargets(targets []history.TargetOutcome) string {
	const maxShown = 3
	names := make([]string, 0, len(targets))
	for _, tgt := range targets {
		names = append(names, tgt.Package)
	}
	if len(names) <= maxShown {
		return strings.Join(names, ", ")
	}
	return fmt.Sprintf("%s, +%d more", strings.Join(names[:maxShown], ", "), len(names)-maxShown)
}

// Failure emphasizes a failure reason for the terminal.
func Failure(reason string) string {
	return text.FgRed.Sprint(reason)
}

// formatRelativeTime converts a timestamp to relative time (e.g. "2 days ago").
func formatRelativeTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}

	diff := time.Since(t)
	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return plural(int(diff.Minutes()), "minute")
	case diff < 24*time.Hour:
		return plural(int(diff.Hours()), "hour")
	case diff < 7*24*time.Hour:
		return plural(int(diff.Hours()/24), "day")
	case diff < 30*24*time.Hour:
		return plural(int(diff.Hours()/24/7), "week")
	case diff < 365*24*time.Hour:
		return plural(int(diff.Hours()/24/30), "month")
	default:
		return plural(int(diff.Hours()/24/365), "year")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}
