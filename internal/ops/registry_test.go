package ops

import (
	"errors"
	"testing"
)

func refs(names ...string) []PackageRef {
	out := make([]PackageRef, len(names))
	for i, n := range names {
		out[i] = PackageRef{Name: n}
	}
	return out
}

func TestTryBeginRejectsBusyTargets(t *testing.T) {
	reg := NewRegistry()

	if _, err := reg.TryBegin(Install, refs("vim", "htop")); err != nil {
		t.Fatalf("TryBegin() error = %v", err)
	}

	_, err := reg.TryBegin(Remove, refs("htop", "tmux"))
	var busy *BusyError
	if !errors.As(err, &busy) {
		t.Fatalf("TryBegin() error = %v, want *BusyError", err)
	}
	if len(busy.Conflicting) != 1 || busy.Conflicting[0].Name != "htop" {
		t.Errorf("Conflicting = %v, want [htop]", busy.Conflicting)
	}

	// All-or-nothing: the non-conflicting target must not have been
	// registered by the failed attempt.
	if st := reg.PackageState(PackageRef{Name: "tmux"}); st.State != PkgIdle {
		t.Errorf("tmux state = %s, want idle", st.State)
	}
}

func TestTryBeginRejectsEmptyAndDuplicateTargets(t *testing.T) {
	reg := NewRegistry()

	if _, err := reg.TryBegin(Install, nil); err == nil {
		t.Error("TryBegin(no targets) succeeded, want error")
	}
	if _, err := reg.TryBegin(Install, refs("vim", "vim")); err == nil {
		t.Error("TryBegin(duplicate target) succeeded, want error")
	}
}

func TestAdvanceIsMonotonic(t *testing.T) {
	reg := NewRegistry()
	rec, err := reg.TryBegin(Update, refs("firefox"))
	if err != nil {
		t.Fatalf("TryBegin() error = %v", err)
	}

	if err := reg.Advance(rec.ID, StateRunning); err != nil {
		t.Fatalf("Advance(Running) error = %v", err)
	}

	err = reg.Advance(rec.ID, StateAwaitingConfirmation)
	var trans *TransitionError
	if !errors.As(err, &trans) {
		t.Fatalf("backward Advance error = %v, want *TransitionError", err)
	}

	if err := reg.Advance(rec.ID, StateSucceeded); err != nil {
		t.Fatalf("Advance(Succeeded) error = %v", err)
	}
	if err := reg.Advance(rec.ID, StateFailed); err == nil {
		t.Error("Advance out of terminal state succeeded, want error")
	}
}

func TestCompleteDetachesTargets(t *testing.T) {
	reg := NewRegistry()
	rec, err := reg.TryBegin(Remove, refs("vim", "htop"))
	if err != nil {
		t.Fatalf("TryBegin() error = %v", err)
	}
	if err := reg.Advance(rec.ID, StateRunning); err != nil {
		t.Fatalf("Advance() error = %v", err)
	}

	outcome := reconcile(rec.Targets, map[string]string{"htop": "dependency conflict"})
	if err := reg.Complete(rec.ID, outcome); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}

	// Targets are free again for new operations.
	if _, err := reg.TryBegin(Install, refs("vim", "htop")); err != nil {
		t.Errorf("TryBegin() after Complete error = %v", err)
	}

	got, ok := reg.Get(rec.ID)
	if !ok {
		t.Fatal("record gone before eviction")
	}
	if got.State != StatePartialFailure {
		t.Errorf("state = %s, want partial-failure", got.State)
	}
}

func TestEvictOnlyTerminal(t *testing.T) {
	reg := NewRegistry()
	rec, err := reg.TryBegin(Install, refs("vim"))
	if err != nil {
		t.Fatalf("TryBegin() error = %v", err)
	}

	if err := reg.Evict(rec.ID); err == nil {
		t.Error("Evict(in-flight) succeeded, want error")
	}

	if err := reg.Complete(rec.ID, reconcile(rec.Targets, nil)); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if err := reg.Evict(rec.ID); err != nil {
		t.Errorf("Evict(terminal) error = %v", err)
	}
	if _, ok := reg.Get(rec.ID); ok {
		t.Error("record still present after eviction")
	}
}

func TestPackageStateProjection(t *testing.T) {
	reg := NewRegistry()
	rec, err := reg.TryBegin(Remove, refs("vim", "htop"))
	if err != nil {
		t.Fatalf("TryBegin() error = %v", err)
	}

	if st := reg.PackageState(PackageRef{Name: "vim"}); st.State != PkgAwaitingConfirmation {
		t.Errorf("created: vim state = %s, want awaiting-confirmation", st.State)
	}

	if err := reg.Advance(rec.ID, StateRunning); err != nil {
		t.Fatalf("Advance() error = %v", err)
	}
	if st := reg.PackageState(PackageRef{Name: "vim"}); st.State != PkgRunning {
		t.Errorf("running: vim state = %s, want running", st.State)
	}

	outcome := reconcile(rec.Targets, map[string]string{"htop": "required by other packages"})
	if err := reg.Complete(rec.ID, outcome); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}

	if st := reg.PackageState(PackageRef{Name: "vim"}); st.State != PkgSucceeded {
		t.Errorf("terminal: vim state = %s, want succeeded", st.State)
	}
	st := reg.PackageState(PackageRef{Name: "htop"})
	if st.State != PkgFailed {
		t.Errorf("terminal: htop state = %s, want failed", st.State)
	}
	if st.Reason != "required by other packages" {
		t.Errorf("htop reason = %q", st.Reason)
	}

	if st := reg.PackageState(PackageRef{Name: "unknown"}); st.State != PkgIdle {
		t.Errorf("unknown package state = %s, want idle", st.State)
	}
}
