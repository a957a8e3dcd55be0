package ops

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/geektoshi/nebulactl/internal/history"
	"github.com/geektoshi/nebulactl/internal/logging"
	"github.com/geektoshi/nebulactl/internal/prefs"
	"github.com/geektoshi/nebulactl/internal/snapshot"
)

// PackageTool abstracts the external package manager. The controller never
// shells out directly; xbps lives behind this interface so the lifecycle
// logic is testable without a package manager on the host.
type PackageTool interface {
	// Do runs one per-target invocation for Install, Remove, Hold or Unhold.
	Do(ctx context.Context, kind OperationKind, target PackageRef) error
	// DoBatch runs a whole-batch invocation: updates are a single tool run
	// covering every target, with only an aggregate result available.
	DoBatch(ctx context.Context, kind OperationKind, targets []PackageRef) error
	// CleanCache prunes the download cache, keeping the newest keep versions
	// of each package.
	CleanCache(ctx context.Context, keep int) error
}

// SnapshotGate is the pre-upgrade snapshot integration point.
type SnapshotGate interface {
	Request(ctx context.Context, packageCount int) snapshot.Outcome
}

// Request is one user-initiated operation submitted to the controller.
type Request struct {
	Kind    OperationKind
	Targets []PackageRef
	// KeepVersions is the cache retention for CacheCleanup requests; a
	// negative value falls back to the preferred retention. Ignored for
	// every other kind.
	KeepVersions int
}

// Config tunes the controller.
type Config struct {
	// Workers caps concurrent per-target tool invocations inside one batch.
	Workers int
	// EventBuffer sizes the UI event channel.
	EventBuffer int
}

const (
	defaultWorkers     = 3
	defaultEventBuffer = 64
)

// Controller owns the operation lifecycle: admission through the registry,
// the confirmation and snapshot phases, dispatch to the package tool,
// outcome reconciliation and archival into history. One controller serves
// the whole process.
type Controller struct {
	reg     *Registry
	tool    PackageTool
	gate    SnapshotGate
	hist    *history.Log
	prefs   func() prefs.Preferences
	events  chan Event
	workers int

	wg sync.WaitGroup
}

// NewController wires a controller. prefsFn is called at each decision point
// so preference edits apply to subsequently submitted operations.
func NewController(tool PackageTool, gate SnapshotGate, hist *history.Log, prefsFn func() prefs.Preferences, cfg Config) *Controller {
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = defaultEventBuffer
	}
	if prefsFn == nil {
		prefsFn = prefs.Defaults
	}
	return &Controller{
		reg:     NewRegistry(),
		tool:    tool,
		gate:    gate,
		hist:    hist,
		prefs:   prefsFn,
		events:  make(chan Event, cfg.EventBuffer),
		workers: cfg.Workers,
	}
}

// Events returns the UI-facing event stream. Events are advisory: a slow
// consumer loses events rather than stalling the operation pipeline, and
// the registry snapshot remains the authoritative view.
func (c *Controller) Events() <-chan Event { return c.events }

// StateSnapshot returns copies of all live operation records.
func (c *Controller) StateSnapshot() []OperationRecord { return c.reg.Snapshot() }

// PackageState projects one package's current state.
func (c *Controller) PackageState(ref PackageRef) PackageStatus { return c.reg.PackageState(ref) }

// Wait blocks until every in-flight operation has finished. Intended for
// shutdown and tests.
func (c *Controller) Wait() { c.wg.Wait() }

// Pending is the caller's handle on a submitted operation. Confirmation and
// snapshot choices arrive through it; Done closes when the operation
// reaches a terminal state.
type Pending struct {
	id   uuid.UUID
	kind OperationKind
	reg  *Registry

	confirmCh chan bool
	snapCh    chan bool
	done      chan struct{}

	needsConfirm bool
	// final is the terminal record, written before done closes.
	final OperationRecord
}

// ID returns the operation identifier.
func (p *Pending) ID() uuid.UUID { return p.id }

// Kind returns the operation kind.
func (p *Pending) Kind() OperationKind { return p.kind }

// NeedsConfirmation reports whether the operation is parked awaiting an
// explicit user confirmation.
func (p *Pending) NeedsConfirmation() bool { return p.needsConfirm }

// Confirm resolves the confirmation phase. proceed=false cancels the
// operation without invoking the package tool. Calling it more than once,
// or on an operation that needed no confirmation, is a no-op.
func (p *Pending) Confirm(proceed bool) {
	select {
	case p.confirmCh <- proceed:
	default:
	}
}

// ResolveSnapshot answers the "update anyway" question raised when the
// snapshot gate failed or timed out. No-op unless the operation is parked
// on that question.
func (p *Pending) ResolveSnapshot(proceed bool) {
	select {
	case p.snapCh <- proceed:
	default:
	}
}

// Cancel withdraws the operation if it has not started executing. It
// reports whether the cancellation took effect; once the tool is running
// the operation is committed and Cancel returns false.
func (p *Pending) Cancel() bool {
	rec, ok := p.reg.Get(p.id)
	if !ok {
		return false
	}
	switch rec.State {
	case StateCreated, StateAwaitingConfirmation:
		if !p.needsConfirm {
			return false
		}
		p.Confirm(false)
		return true
	case StateSnapshotPending:
		p.ResolveSnapshot(false)
		return true
	default:
		return false
	}
}

// Done closes when the operation reaches a terminal state.
func (p *Pending) Done() <-chan struct{} { return p.done }

// WaitOutcome blocks until the operation finishes or ctx expires, then
// returns the terminal record.
func (p *Pending) WaitOutcome(ctx context.Context) (OperationRecord, error) {
	select {
	case <-p.done:
		return p.final, nil
	case <-ctx.Done():
		return OperationRecord{}, ctx.Err()
	}
}

// Submit admits a request and starts its lifecycle. It returns a *BusyError
// when any target is already in-flight; nothing is registered in that case.
// CacheCleanup requests need no targets; they are admitted under a reserved
// sentinel so concurrent cleanups serialize.
func (c *Controller) Submit(ctx context.Context, req Request) (*Pending, error) {
	targets := req.Targets
	if req.Kind == CacheCleanup && len(targets) == 0 {
		targets = []PackageRef{CacheTarget()}
	}

	rec, err := c.reg.TryBegin(req.Kind, targets)
	if err != nil {
		return nil, err
	}

	p := &Pending{
		id:        rec.ID,
		kind:      rec.Kind,
		reg:       c.reg,
		confirmCh: make(chan bool, 1),
		snapCh:    make(chan bool, 1),
		done:      make(chan struct{}),
	}

	pr := c.prefs()
	if RequiresConfirmation(req.Kind, len(targets), pr) {
		p.needsConfirm = true
		if err := c.reg.Advance(rec.ID, StateAwaitingConfirmation); err != nil {
			return nil, err
		}
		c.emit(Event{Type: EventStateChanged, Op: rec.ID, Kind: rec.Kind, State: StateAwaitingConfirmation})
	}

	c.wg.Add(1)
	go c.run(ctx, p, req, targets)
	return p, nil
}

// run drives one operation from admission to archival.
func (c *Controller) run(ctx context.Context, p *Pending, req Request, targets []PackageRef) {
	defer c.wg.Done()
	defer close(p.done)

	rec, _ := c.reg.Get(p.id)

	if p.needsConfirm {
		select {
		case proceed := <-p.confirmCh:
			if !proceed {
				p.final = c.finish(p.id, rec.Kind, cancelledOutcome(targets), nil)
				return
			}
		case <-ctx.Done():
			p.final = c.finish(p.id, rec.Kind, cancelledOutcome(targets), nil)
			return
		}
	}

	var snapOut *snapshot.Outcome
	if rec.Kind == Update && c.gate != nil {
		out, proceed := c.snapshotPhase(ctx, p, targets)
		snapOut = out
		if !proceed {
			p.final = c.finish(p.id, rec.Kind, cancelledOutcome(targets), snapOut)
			return
		}
	}

	if err := c.reg.Advance(p.id, StateRunning); err != nil {
		logging.L().Errorw("failed to advance operation", "op", p.id, "error", err)
		p.final = c.finish(p.id, rec.Kind, cancelledOutcome(targets), snapOut)
		return
	}
	c.emit(Event{Type: EventStateChanged, Op: p.id, Kind: rec.Kind, State: StateRunning})

	outcome := c.execute(ctx, p.id, req, targets)
	p.final = c.finish(p.id, rec.Kind, outcome, snapOut)
}

// snapshotPhase runs the pre-upgrade snapshot gate. On failure or timeout
// the operation parks until the user chooses to proceed anyway; the choice
// itself is bounded by the decision timeout so an unattended prompt resolves
// to cancellation rather than holding the packages busy forever.
func (c *Controller) snapshotPhase(ctx context.Context, p *Pending, targets []PackageRef) (*snapshot.Outcome, bool) {
	if err := c.reg.Advance(p.id, StateSnapshotPending); err != nil {
		return nil, false
	}
	c.emit(Event{Type: EventStateChanged, Op: p.id, Kind: Update, State: StateSnapshotPending})

	out := c.gate.Request(ctx, len(targets))
	c.reg.SetSnapshotOutcome(p.id, out)
	c.emit(Event{Type: EventSnapshotResolved, Op: p.id, Kind: Update, Snapshot: &out})

	switch out.Decision {
	case snapshot.Created, snapshot.Skipped:
		return &out, true
	}

	c.emit(Event{Type: EventAwaitingSnapshotChoice, Op: p.id, Kind: Update, Reason: out.Reason, Snapshot: &out})

	timer := time.NewTimer(c.prefs().DecisionTimeout)
	defer timer.Stop()
	select {
	case proceed := <-p.snapCh:
		return &out, proceed
	case <-timer.C:
		logging.L().Warnw("snapshot choice timed out, cancelling update", "op", p.id)
		return &out, false
	case <-ctx.Done():
		return &out, false
	}
}

// execute dispatches to the package tool and reconciles the batch outcome.
func (c *Controller) execute(ctx context.Context, id uuid.UUID, req Request, targets []PackageRef) *BatchOutcome {
	switch req.Kind {
	case Update:
		// One tool run covers the whole batch; only an aggregate result
		// exists, so a failure marks every target with the shared reason.
		if err := c.tool.DoBatch(ctx, Update, targets); err != nil {
			reason := reasonOf(err)
			reasons := make(map[string]string, len(targets))
			for _, tgt := range targets {
				reasons[tgt.Name] = reason
			}
			return reconcile(targets, reasons)
		}
		return reconcile(targets, nil)

	case CacheCleanup:
		keep := req.KeepVersions
		if keep < 0 {
			keep = c.prefs().CacheVersionsToKeep
		}
		if err := c.tool.CleanCache(ctx, keep); err != nil {
			return reconcile(targets, map[string]string{targets[0].Name: reasonOf(err)})
		}
		return reconcile(targets, nil)

	default:
		return c.fanOut(ctx, id, req.Kind, targets)
	}
}

// fanOut runs one tool invocation per target with bounded concurrency.
// Failures never abort the batch: every target gets its own invocation and
// its own result.
func (c *Controller) fanOut(ctx context.Context, id uuid.UUID, kind OperationKind, targets []PackageRef) *BatchOutcome {
	var (
		mu      sync.Mutex
		reasons = make(map[string]string)
		wg      sync.WaitGroup
		sem     = make(chan struct{}, c.workers)
	)

	for _, tgt := range targets {
		wg.Add(1)
		sem <- struct{}{}
		go func(tgt PackageRef) {
			defer wg.Done()
			defer func() { <-sem }()

			err := c.tool.Do(ctx, kind, tgt)
			var reason string
			if err != nil {
				reason = reasonOf(err)
				mu.Lock()
				reasons[tgt.Name] = reason
				mu.Unlock()
			}
			t := tgt
			c.emit(Event{Type: EventTargetResult, Op: id, Kind: kind, Target: &t, Reason: reason})
		}(tgt)
	}
	wg.Wait()

	return reconcile(targets, reasons)
}

// finish completes the record, archives it into history, evicts it from the
// live store and emits the terminal event. It returns the terminal record.
func (c *Controller) finish(id uuid.UUID, kind OperationKind, outcome *BatchOutcome, snapOut *snapshot.Outcome) OperationRecord {
	if snapOut != nil {
		c.reg.SetSnapshotOutcome(id, *snapOut)
	}
	if err := c.reg.Complete(id, outcome); err != nil {
		logging.L().Errorw("failed to complete operation", "op", id, "error", err)
		rec, _ := c.reg.Get(id)
		return rec
	}

	rec, _ := c.reg.Get(id)
	if c.hist != nil {
		if err := c.hist.Record(historyEntry(rec)); err != nil {
			logging.L().Errorw("failed to record history entry", "op", id, "error", err)
		}
	}
	if err := c.reg.Evict(id); err != nil {
		logging.L().Errorw("failed to evict operation", "op", id, "error", err)
	}

	c.emit(Event{Type: EventStateChanged, Op: id, Kind: kind, State: rec.State})
	return rec
}

// ClearHistory empties the operation history. confirmed reports whether the
// caller obtained the user's confirmation; the policy decides whether one
// was required.
func (c *Controller) ClearHistory(confirmed bool) error {
	if c.hist == nil {
		return nil
	}
	if ClearHistoryRequiresConfirmation(c.prefs()) && !confirmed {
		return errors.New("clearing history requires confirmation")
	}
	return c.hist.Clear()
}

// History returns the live history entries, oldest first.
func (c *Controller) History() []history.Entry {
	if c.hist == nil {
		return nil
	}
	return c.hist.Entries()
}

// emit sends an event without ever blocking the operation pipeline.
func (c *Controller) emit(ev Event) {
	select {
	case c.events <- ev:
	default:
		logging.L().Debugw("event dropped, consumer too slow", "type", ev.Type, "op", ev.Op)
	}
}

// historyEntry flattens a terminal record into its archival form.
func historyEntry(rec OperationRecord) history.Entry {
	e := history.Entry{
		ID:          rec.ID.String(),
		Kind:        rec.Kind.String(),
		CreatedAt:   rec.CreatedAt,
		CompletedAt: rec.CompletedAt,
	}
	if rec.Snapshot != nil && rec.Snapshot.Name != "" {
		e.Snapshot = rec.Snapshot.Name
	}
	if rec.Outcome != nil {
		e.Outcome = rec.Outcome.Class.String()
		for _, res := range rec.Outcome.Results {
			e.Targets = append(e.Targets, history.TargetOutcome{
				Package: res.Target.Name,
				Version: res.Target.Version,
				Reason:  res.Reason,
			})
		}
	} else {
		e.Outcome = rec.State.String()
	}
	return e
}

// reasonOf extracts the user-facing failure reason from a tool error.
func reasonOf(err error) string {
	var exec *ExecutionError
	if errors.As(err, &exec) {
		return exec.Reason
	}
	return err.Error()
}
