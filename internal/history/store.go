package history

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Store is the sqlite-backed history archive.
type Store struct {
	db *sql.DB
}

// NewStore opens the archive at dbPath and ensures the schema exists.
// Use ":memory:" for in-memory databases (useful for testing).
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	// SQLite only allows one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create history schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// InsertEntry archives one entry with its per-target results, atomically.
func (s *Store) InsertEntry(e Entry) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO operations (id, kind, outcome, snapshot, created_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		e.ID,
		e.Kind,
		e.Outcome,
		e.Snapshot,
		e.CreatedAt.Format(time.RFC3339),
		e.CompletedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert operation %s: %w", e.ID, err)
	}

	for _, tgt := range e.Targets {
		_, err = tx.Exec(`
			INSERT INTO operation_targets (operation_id, package, version, reason)
			VALUES (?, ?, ?, ?)
		`, e.ID, tgt.Package, tgt.Version, tgt.Reason)
		if err != nil {
			return fmt.Errorf("failed to insert target %s for %s: %w", tgt.Package, e.ID, err)
		}
	}

	return tx.Commit()
}

// ListEntries returns the most recent limit entries in chronological order.
// limit <= 0 returns everything.
func (s *Store) ListEntries(limit int) ([]Entry, error) {
	query := `
		SELECT id, kind, outcome, snapshot, created_at, completed_at
		FROM operations
		ORDER BY created_at DESC, id DESC
	`
	var rows *sql.Rows
	var err error
	if limit > 0 {
		rows, err = s.db.Query(query+" LIMIT ?", limit)
	} else {
		rows, err = s.db.Query(query)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list operations: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var createdAt, completedAt string
		if err := rows.Scan(&e.ID, &e.Kind, &e.Outcome, &e.Snapshot, &createdAt, &completedAt); err != nil {
			return nil, fmt.Errorf("failed to scan operation: %w", err)
		}
		if e.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, fmt.Errorf("failed to parse created_at for %s: %w", e.ID, err)
		}
		if e.CompletedAt, err = time.Parse(time.RFC3339, completedAt); err != nil {
			return nil, fmt.Errorf("failed to parse completed_at for %s: %w", e.ID, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate operations: %w", err)
	}

	for i := range entries {
		targets, err := s.listTargets(entries[i].ID)
		if err != nil {
			return nil, err
		}
		entries[i].Targets = targets
	}

	// Query returns newest first; callers want chronological order.
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

func (s *Store) listTargets(opID string) ([]TargetOutcome, error) {
	rows, err := s.db.Query(`
		SELECT package, version, reason
		FROM operation_targets
		WHERE operation_id = ?
		ORDER BY rowid
	`, opID)
	if err != nil {
		return nil, fmt.Errorf("failed to list targets for %s: %w", opID, err)
	}
	defer rows.Close()

	var targets []TargetOutcome
	for rows.Next() {
		var t TargetOutcome
		if err := rows.Scan(&t.Package, &t.Version, &t.Reason); err != nil {
			return nil, fmt.Errorf("failed to scan target for %s: %w", opID, err)
		}
		targets = append(targets, t)
	}
	return targets, rows.Err()
}

// ClearEntries deletes the whole archive.
func (s *Store) ClearEntries() error {
	if _, err := s.db.Exec("DELETE FROM operations"); err != nil {
		return fmt.Errorf("failed to clear operations: %w", err)
	}
	return nil
}

// Count returns the number of archived operations.
func (s *Store) Count() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM operations").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count operations: %w", err)
	}
	return n, nil
}
