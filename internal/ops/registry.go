package ops

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/geektoshi/nebulactl/internal/snapshot"
)

// Registry is the operation state store: a mutation-guarded table mapping
// package names to their owning in-flight record. It is the single source
// of truth for "is this package busy, and doing what". The in-flight index
// and each record's state field are updated under one lock, so there is no
// window where a package has left the busy index while its record still
// reports Running.
type Registry struct {
	mu       sync.Mutex
	inflight map[string]uuid.UUID
	records  map[uuid.UUID]*OperationRecord
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		inflight: make(map[string]uuid.UUID),
		records:  make(map[uuid.UUID]*OperationRecord),
	}
}

// TryBegin atomically admits a new operation. Admission is all-or-nothing:
// if any target is already in-flight, it fails with the conflicting subset
// and registers nothing.
func (r *Registry) TryBegin(kind OperationKind, targets []PackageRef) (*OperationRecord, error) {
	if len(targets) == 0 {
		return nil, fmt.Errorf("operation %s requires at least one target", kind)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var conflicting []PackageRef
	seen := make(map[string]bool, len(targets))
	for _, tgt := range targets {
		if seen[tgt.Name] {
			return nil, fmt.Errorf("duplicate target %q in one request", tgt.Name)
		}
		seen[tgt.Name] = true
		if _, busy := r.inflight[tgt.Name]; busy {
			conflicting = append(conflicting, tgt)
		}
	}
	if len(conflicting) > 0 {
		return nil, &BusyError{Conflicting: conflicting}
	}

	rec := &OperationRecord{
		ID:        uuid.New(),
		Kind:      kind,
		Targets:   append([]PackageRef(nil), targets...),
		State:     StateCreated,
		CreatedAt: time.Now(),
	}
	r.records[rec.ID] = rec
	for _, tgt := range targets {
		r.inflight[tgt.Name] = rec.ID
	}
	return rec, nil
}

// Advance moves a record forward. Only monotonic transitions are accepted;
// entering a terminal state detaches the targets from the in-flight index
// under the same lock.
func (r *Registry) Advance(id uuid.UUID, next State) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return fmt.Errorf("unknown operation %s", id)
	}
	if next.rank() <= rec.State.rank() {
		return &TransitionError{From: rec.State, To: next}
	}

	rec.State = next
	if next.Terminal() {
		rec.CompletedAt = time.Now()
		r.detach(rec)
	}
	return nil
}

// Complete advances the record into the terminal state derived from the
// outcome and attaches the outcome, atomically with the in-flight detach.
func (r *Registry) Complete(id uuid.UUID, outcome *BatchOutcome) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return fmt.Errorf("unknown operation %s", id)
	}
	next := outcome.Class.terminalState()
	if rec.State.Terminal() {
		return &TransitionError{From: rec.State, To: next}
	}

	rec.Outcome = outcome
	rec.State = next
	rec.CompletedAt = time.Now()
	r.detach(rec)
	return nil
}

// SetSnapshotOutcome records the snapshot gate's answer on the record.
func (r *Registry) SetSnapshotOutcome(id uuid.UUID, out snapshot.Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.records[id]; ok {
		o := out
		rec.Snapshot = &o
	}
}

// detach removes the record's targets from the busy index. Caller holds mu.
func (r *Registry) detach(rec *OperationRecord) {
	for _, tgt := range rec.Targets {
		if r.inflight[tgt.Name] == rec.ID {
			delete(r.inflight, tgt.Name)
		}
	}
}

// Evict removes a terminal record from the live store; records are evicted
// only after they have been archived into the history log.
func (r *Registry) Evict(id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return nil
	}
	if !rec.State.Terminal() {
		return fmt.Errorf("cannot evict in-flight operation %s (state %s)", id, rec.State)
	}
	delete(r.records, id)
	return nil
}

// Get returns a copy of the record, if it is still in the live store.
func (r *Registry) Get(id uuid.UUID) (OperationRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return OperationRecord{}, false
	}
	return rec.clone(), true
}

// Snapshot returns deep copies of all live records for read-only rendering.
// It never blocks a concurrent Advance beyond the copy itself.
func (r *Registry) Snapshot() []OperationRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]OperationRecord, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec.clone())
	}
	return out
}

// PackageState projects the state of one package from its owning record.
func (r *Registry) PackageState(ref PackageRef) PackageStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, busy := r.inflight[ref.Name]
	if !busy {
		// A terminal record not yet evicted still reports its result.
		for _, rec := range r.records {
			if !rec.State.Terminal() {
				continue
			}
			for _, tgt := range rec.Targets {
				if tgt.Name == ref.Name {
					return projectTerminal(rec, ref.Name)
				}
			}
		}
		return PackageStatus{State: PkgIdle}
	}

	rec := r.records[id]
	switch rec.State {
	case StateCreated, StateAwaitingConfirmation:
		return PackageStatus{State: PkgAwaitingConfirmation}
	case StateSnapshotPending:
		return PackageStatus{State: PkgSnapshotPending}
	case StateRunning:
		return PackageStatus{State: PkgRunning}
	default:
		return projectTerminal(rec, ref.Name)
	}
}

func projectTerminal(rec *OperationRecord, name string) PackageStatus {
	if rec.State == StateCancelled {
		return PackageStatus{State: PkgCancelled}
	}
	if rec.Outcome != nil {
		for _, res := range rec.Outcome.Results {
			if res.Target.Name == name {
				if res.Failed() {
					return PackageStatus{State: PkgFailed, Reason: res.Reason}
				}
				return PackageStatus{State: PkgSucceeded}
			}
		}
	}
	if rec.State == StateFailed {
		return PackageStatus{State: PkgFailed}
	}
	return PackageStatus{State: PkgSucceeded}
}
