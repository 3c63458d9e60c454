// Package archive stores reasoning log entries evicted from the context
// record's live window. Entries arrive oldest first and are kept forever;
// the live record only ever holds the most recent window.
package archive

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/triadhq/trio/internal/schema"
)

// Entry is one archived reasoning log entry.
type Entry struct {
	ID         int64           `json:"id"`
	BatchID    string          `json:"batch_id"` // groups entries evicted together
	Role       schema.Role     `json:"role"`
	TaskID     string          `json:"task_id,omitempty"`
	Action     string          `json:"action"`
	Summary    string          `json:"summary"`
	Details    json.RawMessage `json:"details,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
	ArchivedAt time.Time       `json:"archived_at"`
}

// Archive provides access to the SQLite-backed log archive.
type Archive struct {
	db *sql.DB
}

// New opens (or creates) the archive database at the given path.
func New(dbPath string) (*Archive, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}

	// WAL keeps readers (trio log --archived) from blocking the writer.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	a := &Archive{db: db}
	if err := a.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate archive: %w", err)
	}
	return a, nil
}

// Close closes the database connection.
func (a *Archive) Close() error {
	return a.db.Close()
}

func (a *Archive) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS log_entries (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		batch_id     TEXT NOT NULL,
		role         TEXT NOT NULL,
		task_id      TEXT DEFAULT '',
		action       TEXT NOT NULL,
		summary      TEXT DEFAULT '',
		details      TEXT DEFAULT '',
		timestamp    DATETIME NOT NULL,
		archived_at  DATETIME NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_log_entries_identity
		ON log_entries (timestamp, role, action, summary);
	`
	_, err := a.db.Exec(schema)
	return err
}

// Archive appends the evicted entries in order within one transaction.
// The unique index makes the handoff idempotent: if a crash between the
// handoff and the record rewrite causes the same entries to be evicted
// again, the duplicates are ignored.
func (a *Archive) Archive(entries []schema.LogEntry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := a.db.Begin()
	if err != nil {
		return fmt.Errorf("begin archive tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR IGNORE INTO log_entries
			(batch_id, role, task_id, action, summary, details, timestamp, archived_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare archive insert: %w", err)
	}
	defer stmt.Close()

	batchID := uuid.NewString()
	now := time.Now().UTC()

	for _, e := range entries {
		details := ""
		if len(e.Details) > 0 {
			raw, err := json.Marshal(e.Details)
			if err != nil {
				return fmt.Errorf("marshal log details: %w", err)
			}
			details = string(raw)
		}
		if _, err := stmt.Exec(batchID, string(e.Role), e.TaskID, e.Action, e.Summary, details, e.Timestamp, now); err != nil {
			return fmt.Errorf("insert archived entry: %w", err)
		}
	}

	return tx.Commit()
}

// List returns archived entries in eviction order, oldest first. A limit
// of 0 returns everything.
func (a *Archive) List(limit int) ([]Entry, error) {
	query := `
		SELECT id, batch_id, role, task_id, action, summary, details, timestamp, archived_at
		FROM log_entries ORDER BY id ASC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := a.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list archived entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var role, details string
		if err := rows.Scan(&e.ID, &e.BatchID, &role, &e.TaskID, &e.Action, &e.Summary, &details, &e.Timestamp, &e.ArchivedAt); err != nil {
			return nil, fmt.Errorf("scan archived entry: %w", err)
		}
		e.Role = schema.Role(role)
		if details != "" {
			e.Details = json.RawMessage(details)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Count returns the number of archived entries.
func (a *Archive) Count() (int, error) {
	var n int
	err := a.db.QueryRow("SELECT COUNT(*) FROM log_entries").Scan(&n)
	return n, err
}
