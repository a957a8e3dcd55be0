// Package ops implements the package operation controller: admission and
// per-package mutual exclusion, confirmation policy, the snapshot-gate phase,
// dispatch to the external package tool, and batch outcome reconciliation.
package ops

import (
	"time"

	"github.com/google/uuid"

	"github.com/geektoshi/nebulactl/internal/snapshot"
)

// PackageRef identifies a package. Equality and mutual exclusion are by
// Name; Version is informational (e.g. the version an update moves to).
type PackageRef struct {
	Name    string
	Version string
}

// String returns "name" or "name-version" in xbps pkgver style.
func (p PackageRef) String() string {
	if p.Version == "" {
		return p.Name
	}
	return p.Name + "-" + p.Version
}

// OperationKind is the closed set of user-initiated operations.
type OperationKind int

const (
	Install OperationKind = iota
	Remove
	Update
	Hold
	Unhold
	CacheCleanup
)

func (k OperationKind) String() string {
	switch k {
	case Install:
		return "install"
	case Remove:
		return "remove"
	case Update:
		return "update"
	case Hold:
		return "hold"
	case Unhold:
		return "unhold"
	case CacheCleanup:
		return "cache-cleanup"
	default:
		return "unknown"
	}
}

// State is the lifecycle state of an OperationRecord. Transitions are
// strictly forward; the four terminal states admit no further transitions.
type State int

const (
	StateCreated State = iota
	StateAwaitingConfirmation
	StateSnapshotPending
	StateRunning
	StateSucceeded
	StatePartialFailure
	StateFailed
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateAwaitingConfirmation:
		return "awaiting-confirmation"
	case StateSnapshotPending:
		return "snapshot-pending"
	case StateRunning:
		return "running"
	case StateSucceeded:
		return "succeeded"
	case StatePartialFailure:
		return "partial-failure"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	switch s {
	case StateSucceeded, StatePartialFailure, StateFailed, StateCancelled:
		return true
	}
	return false
}

// rank orders states for the monotonic-transition check. All terminal
// states share the final rank.
func (s State) rank() int {
	switch s {
	case StateCreated:
		return 0
	case StateAwaitingConfirmation:
		return 1
	case StateSnapshotPending:
		return 2
	case StateRunning:
		return 3
	default:
		return 4
	}
}

// OperationRecord is one admitted request. It is owned by the Registry and
// mutated only through Registry methods; callers observe copies.
type OperationRecord struct {
	ID          uuid.UUID
	Kind        OperationKind
	Targets     []PackageRef
	State       State
	Snapshot    *snapshot.Outcome
	Outcome     *BatchOutcome
	CreatedAt   time.Time
	CompletedAt time.Time
}

// clone deep-copies the record for read-only snapshots.
func (r *OperationRecord) clone() OperationRecord {
	c := *r
	c.Targets = append([]PackageRef(nil), r.Targets...)
	if r.Snapshot != nil {
		sc := *r.Snapshot
		c.Snapshot = &sc
	}
	if r.Outcome != nil {
		oc := r.Outcome.clone()
		c.Outcome = &oc
	}
	return c
}

// PackageState is the per-package projection read by the UI.
type PackageState int

const (
	PkgIdle PackageState = iota
	PkgAwaitingConfirmation
	PkgSnapshotPending
	PkgRunning
	PkgSucceeded
	PkgFailed
	PkgCancelled
)

func (s PackageState) String() string {
	switch s {
	case PkgIdle:
		return "idle"
	case PkgAwaitingConfirmation:
		return "awaiting-confirmation"
	case PkgSnapshotPending:
		return "snapshot-pending"
	case PkgRunning:
		return "running"
	case PkgSucceeded:
		return "succeeded"
	case PkgFailed:
		return "failed"
	case PkgCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// PackageStatus pairs the projected state with a failure reason when the
// state is PkgFailed.
type PackageStatus struct {
	State  PackageState
	Reason string
}

// cacheTarget is the reserved sentinel target for CacheCleanup records.
// Cleanup is not keyed by package; admitting it under a reserved name
// serializes concurrent cleanups without colliding with real packages.
var cacheTarget = PackageRef{Name: "@xbps-cache"}

// CacheTarget returns the sentinel target used by CacheCleanup records.
func CacheTarget() PackageRef { return cacheTarget }
