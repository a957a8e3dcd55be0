package ops

import (
	"fmt"
	"strings"
)

// BusyError is the admission conflict: at least one requested target is
// already part of an in-flight operation. It is not an execution failure
// and is never retried automatically.
type BusyError struct {
	Conflicting []PackageRef
}

func (e *BusyError) Error() string {
	names := make([]string, len(e.Conflicting))
	for i, ref := range e.Conflicting {
		names[i] = ref.Name
	}
	return fmt.Sprintf("an operation is already running for: %s", strings.Join(names, ", "))
}

// ExecutionError carries the human-readable reason extracted from a failed
// external invocation (captured stderr, stdout, or exit code).
type ExecutionError struct {
	Reason string
}

func (e *ExecutionError) Error() string {
	return e.Reason
}

// TransitionError reports a rejected non-monotonic state transition.
type TransitionError struct {
	From State
	To   State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid transition %s -> %s", e.From, e.To)
}
