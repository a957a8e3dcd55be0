package ops

import (
	"github.com/google/uuid"

	"github.com/geektoshi/nebulactl/internal/snapshot"
)

// EventType classifies controller events.
type EventType int

const (
	// EventStateChanged: the record moved to a new lifecycle state.
	EventStateChanged EventType = iota
	// EventTargetResult: one per-target invocation resolved.
	EventTargetResult
	// EventSnapshotResolved: the snapshot gate answered.
	EventSnapshotResolved
	// EventAwaitingSnapshotChoice: the snapshot failed or timed out and the
	// operation is blocked on the user's "update anyway" choice.
	EventAwaitingSnapshotChoice
)

// Event is one entry on the controller's UI-facing event stream. The UI
// reads events and the registry's read-only snapshots; it never mutates
// controller state directly.
type Event struct {
	Type     EventType
	Op       uuid.UUID
	Kind     OperationKind
	State    State
	Target   *PackageRef
	Reason   string
	Snapshot *snapshot.Outcome
}
