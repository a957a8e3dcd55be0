// Package history keeps the append-only record of completed operations.
// The live view is capped in memory for cheap rendering; the full archive
// lives in a sqlite store until the user clears it.
package history

import (
	"fmt"
	"sync"
	"time"
)

// liveCap bounds the in-memory view to the most recent entries.
const liveCap = 50

// TargetOutcome is one package's result inside an archived operation. An
// empty Reason means the target succeeded.
type TargetOutcome struct {
	Package string `json:"package" yaml:"package"`
	Version string `json:"version,omitempty" yaml:"version,omitempty"`
	Reason  string `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// Entry is one immutable history record.
type Entry struct {
	ID          string          `json:"id" yaml:"id"`
	Kind        string          `json:"kind" yaml:"kind"`
	Outcome     string          `json:"outcome" yaml:"outcome"`
	Snapshot    string          `json:"snapshot,omitempty" yaml:"snapshot,omitempty"`
	Targets     []TargetOutcome `json:"targets" yaml:"targets"`
	CreatedAt   time.Time       `json:"created_at" yaml:"created_at"`
	CompletedAt time.Time       `json:"completed_at" yaml:"completed_at"`
}

// Log is the append-only operation history. Record and Clear are the only
// mutators; readers get copies in chronological order.
type Log struct {
	mu      sync.RWMutex
	entries []Entry
	store   *Store
}

// NewLog returns a log backed by store. A nil store keeps the history in
// memory only. With a store, the most recent archived entries seed the
// live view.
func NewLog(store *Store) (*Log, error) {
	l := &Log{store: store}
	if store == nil {
		return l, nil
	}

	entries, err := store.ListEntries(liveCap)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	l.entries = entries
	return l, nil
}

// Record appends an entry. Insertion order is chronological order.
func (l *Log) Record(e Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.store != nil {
		if err := l.store.InsertEntry(e); err != nil {
			return fmt.Errorf("failed to archive history entry: %w", err)
		}
	}

	l.entries = append(l.entries, e)
	if len(l.entries) > liveCap {
		l.entries = append([]Entry(nil), l.entries[len(l.entries)-liveCap:]...)
	}
	return nil
}

// Entries returns a copy of the live view, oldest first.
func (l *Log) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Entry(nil), l.entries...)
}

// Len returns the number of live entries.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Clear empties the log and the archive. Callers must have passed the
// confirmation gate before invoking this; the log itself clears atomically
// under its lock, so no reader observes a partially cleared sequence.
func (l *Log) Clear() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.store != nil {
		if err := l.store.ClearEntries(); err != nil {
			return fmt.Errorf("failed to clear history archive: %w", err)
		}
	}
	l.entries = nil
	return nil
}
