package ops

// TargetResult is the per-package result inside a BatchOutcome. An empty
// Reason means the target succeeded.
type TargetResult struct {
	Target PackageRef
	Reason string
}

// Failed reports whether this target's invocation failed.
func (t TargetResult) Failed() bool { return t.Reason != "" }

// OutcomeClass is the aggregate classification of a batch.
type OutcomeClass int

const (
	AllSucceeded OutcomeClass = iota
	PartialFailure
	AllFailed
	Cancelled
)

func (c OutcomeClass) String() string {
	switch c {
	case AllSucceeded:
		return "succeeded"
	case PartialFailure:
		return "partial-failure"
	case AllFailed:
		return "failed"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// BatchOutcome is computed once, after every per-target invocation has
// resolved, and never recomputed after archival.
type BatchOutcome struct {
	Class   OutcomeClass
	Results []TargetResult
}

// FailedTargets returns the targets that failed, with reasons.
func (b *BatchOutcome) FailedTargets() []TargetResult {
	var failed []TargetResult
	for _, r := range b.Results {
		if r.Failed() {
			failed = append(failed, r)
		}
	}
	return failed
}

func (b BatchOutcome) clone() BatchOutcome {
	c := b
	c.Results = append([]TargetResult(nil), b.Results...)
	return c
}

// terminalState maps the aggregate classification onto the record's
// terminal state.
func (c OutcomeClass) terminalState() State {
	switch c {
	case AllSucceeded:
		return StateSucceeded
	case PartialFailure:
		return StatePartialFailure
	case AllFailed:
		return StateFailed
	default:
		return StateCancelled
	}
}

// reconcile computes the BatchOutcome from per-target failure reasons,
// keyed by package name. Results are emitted in the order of targets, so
// the outcome is independent of the order in which invocations completed.
func reconcile(targets []PackageRef, reasons map[string]string) *BatchOutcome {
	out := &BatchOutcome{Results: make([]TargetResult, 0, len(targets))}
	failures := 0
	for _, tgt := range targets {
		reason := reasons[tgt.Name]
		if reason != "" {
			failures++
		}
		out.Results = append(out.Results, TargetResult{Target: tgt, Reason: reason})
	}

	switch {
	case failures == 0:
		out.Class = AllSucceeded
	case failures == len(targets):
		out.Class = AllFailed
	default:
		out.Class = PartialFailure
	}
	return out
}

// cancelledOutcome builds the outcome for an operation that never ran.
func cancelledOutcome(targets []PackageRef) *BatchOutcome {
	out := &BatchOutcome{Class: Cancelled, Results: make([]TargetResult, 0, len(targets))}
	for _, tgt := range targets {
		out.Results = append(out.Results, TargetResult{Target: tgt})
	}
	return out
}
