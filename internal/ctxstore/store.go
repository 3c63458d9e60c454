// Package ctxstore persists the workflow context record. It is the single
// write path for durable state: every mutation goes through Update, which
// holds an exclusive lock for the read-modify-write cycle and lands the
// new record with a write-to-temp-then-rename so readers only ever observe
// a fully pre-update or fully post-update document.
package ctxstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/triadhq/trio/internal/schema"
)

// ErrLocked is returned when another process holds the store lock. The
// caller is expected to back off or abort; a pipeline run is the sole
// long-lived writer, so contention signals a genuine concurrent process.
var ErrLocked = errors.New("context store is locked by another process")

// CorruptionError reports a context record that exists on disk but does
// not parse against the expected shape. The file is left untouched; no
// partial recovery is attempted.
type CorruptionError struct {
	Path string
	Err  error
}

func (e *CorruptionError) Error() string {
	return fmt.Sprintf("context record %s is corrupted: %v", e.Path, e.Err)
}

func (e *CorruptionError) Unwrap() error { return e.Err }

// Archiver receives reasoning log entries evicted from the live window.
// Entries are handed over oldest first, before they are removed from the
// record in the same atomic update.
type Archiver interface {
	Archive(entries []schema.LogEntry) error
}

// Store manages the context record document at a fixed path.
type Store struct {
	path        string
	projectName string
	archiver    Archiver
}

// New creates a store for the record at path. The archiver may be nil, in
// which case log eviction fails until one is attached.
func New(path, projectName string, archiver Archiver) *Store {
	return &Store{path: path, projectName: projectName, archiver: archiver}
}

// Path returns the location of the persisted record.
func (s *Store) Path() string { return s.path }

// Load returns the current record, creating and persisting a default one
// if none exists yet. A record that exists but does not parse returns a
// *CorruptionError.
func (s *Store) Load() (*schema.ContextRecord, error) {
	record, err := s.read()
	if err == nil {
		return record, nil
	}
	if !os.IsNotExist(err) {
		return nil, err
	}

	record = schema.NewContextRecord(s.projectName)
	if err := s.save(record); err != nil {
		return nil, err
	}
	return record, nil
}

// Update applies mutate to the current record under the store lock and
// persists the result atomically. The record's last-updated fields are
// stamped with the acting role. A concurrent Update in another process
// observes ErrLocked instead of blocking.
func (s *Store) Update(role schema.Role, mutate func(*schema.ContextRecord) error) (*schema.ContextRecord, error) {
	unlock, err := s.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	record, err := s.Load()
	if err != nil {
		return nil, err
	}
	if err := mutate(record); err != nil {
		return nil, err
	}
	if !record.GlobalPhase.Valid() {
		return nil, fmt.Errorf("refusing to persist unknown phase %q", record.GlobalPhase)
	}
	record.LastUpdatedBy = role
	record.LastUpdatedAt = time.Now().UTC()

	if err := s.save(record); err != nil {
		return nil, err
	}
	return record, nil
}

// AppendLog appends an entry to the reasoning log. When the live window
// exceeds its cap the oldest overflow entries are handed to the archiver
// and removed from the record within the same atomic update; if the
// handoff fails the record is left unchanged.
func (s *Store) AppendLog(role schema.Role, entry schema.LogEntry) (*schema.ContextRecord, error) {
	return s.Update(role, func(record *schema.ContextRecord) error {
		return s.PushLog(record, entry)
	})
}

// PushLog appends an entry to an in-memory record, evicting the oldest
// overflow entries to the archiver. It exists so callers composing larger
// mutations inside Update get the same windowing behavior as AppendLog.
func (s *Store) PushLog(record *schema.ContextRecord, entry schema.LogEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	record.ReasoningLogs = append(record.ReasoningLogs, entry)
	overflow := len(record.ReasoningLogs) - schema.MaxLiveLogs
	if overflow <= 0 {
		return nil
	}
	if s.archiver == nil {
		return fmt.Errorf("reasoning log window full and no archiver configured")
	}
	evicted := record.ReasoningLogs[:overflow]
	if err := s.archiver.Archive(evicted); err != nil {
		return fmt.Errorf("archive evicted logs: %w", err)
	}
	record.ReasoningLogs = append([]schema.LogEntry(nil), record.ReasoningLogs[overflow:]...)
	return nil
}

func (s *Store) read() (*schema.ContextRecord, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}

	var record schema.ContextRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, &CorruptionError{Path: s.path, Err: err}
	}
	if !record.GlobalPhase.Valid() {
		return nil, &CorruptionError{Path: s.path, Err: fmt.Errorf("unknown phase %q", record.GlobalPhase)}
	}
	if !record.LastUpdatedBy.Valid() {
		return nil, &CorruptionError{Path: s.path, Err: fmt.Errorf("unknown role %q", record.LastUpdatedBy)}
	}
	return &record, nil
}

// save writes the record to a temp file in the same directory and renames
// it over the target, so a crash mid-write never corrupts the record.
func (s *Store) save(record *schema.ContextRecord) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create context dir: %w", err)
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal context record: %w", err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(dir, ".context-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp record: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp record: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace context record: %w", err)
	}
	return nil
}
