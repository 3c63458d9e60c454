package ctxstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/triadhq/trio/internal/schema"
)

// fakeArchiver collects evicted entries in memory.
type fakeArchiver struct {
	entries []schema.LogEntry
	err     error
}

func (f *fakeArchiver) Archive(entries []schema.LogEntry) error {
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, entries...)
	return nil
}

func testStore(t *testing.T) (*Store, *fakeArchiver) {
	t.Helper()
	arch := &fakeArchiver{}
	path := filepath.Join(t.TempDir(), ".trio", "context.json")
	return New(path, "testproj", arch), arch
}

func TestLoad_CreatesDefault(t *testing.T) {
	store, _ := testStore(t)

	record, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if record.ProjectName != "testproj" {
		t.Errorf("project name = %q, want testproj", record.ProjectName)
	}
	if record.GlobalPhase != schema.PhasePlanning {
		t.Errorf("phase = %s, want planning", record.GlobalPhase)
	}

	// The default must have been persisted.
	if _, err := os.Stat(store.Path()); err != nil {
		t.Errorf("record not persisted: %v", err)
	}
}

func TestUpdate_RoundTrip(t *testing.T) {
	store, _ := testStore(t)

	_, err := store.Update(schema.RoleArchitect, func(r *schema.ContextRecord) error {
		r.TaskQueue = append(r.TaskQueue, schema.TaskPacket{
			TaskID:             "TASK-001",
			Title:              "First task",
			AcceptanceCriteria: []string{"done"},
			Priority:           schema.PriorityHigh,
		})
		r.ActiveConstraints = map[string]string{"language": "go"}
		return nil
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got.TaskQueue) != 1 || got.TaskQueue[0].TaskID != "TASK-001" {
		t.Errorf("queue not persisted: %+v", got.TaskQueue)
	}
	if got.ActiveConstraints["language"] != "go" {
		t.Errorf("constraints not persisted: %v", got.ActiveConstraints)
	}
	if got.LastUpdatedBy != schema.RoleArchitect {
		t.Errorf("last_updated_by = %s, want architect", got.LastUpdatedBy)
	}
	if got.LastUpdatedAt.IsZero() {
		t.Error("last_updated_at not stamped")
	}
}

func TestUpdate_MutateErrorLeavesRecordUnchanged(t *testing.T) {
	store, _ := testStore(t)
	if _, err := store.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	_, err := store.Update(schema.RoleArchitect, func(r *schema.ContextRecord) error {
		r.TaskQueue = append(r.TaskQueue, schema.TaskPacket{TaskID: "TASK-001"})
		return fmt.Errorf("nope")
	})
	if err == nil {
		t.Fatal("expected mutate error")
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got.TaskQueue) != 0 {
		t.Errorf("record changed despite mutate error: %+v", got.TaskQueue)
	}
}

func TestUpdate_RejectsUnknownPhase(t *testing.T) {
	store, _ := testStore(t)
	_, err := store.Update(schema.RoleArchitect, func(r *schema.ContextRecord) error {
		r.GlobalPhase = "limbo"
		return nil
	})
	if err == nil {
		t.Fatal("expected error persisting unknown phase")
	}
}

func TestLoad_CorruptRecord(t *testing.T) {
	store, _ := testStore(t)
	if err := os.MkdirAll(filepath.Dir(store.Path()), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(store.Path(), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := store.Load()
	var corrupt *CorruptionError
	if !errors.As(err, &corrupt) {
		t.Fatalf("expected *CorruptionError, got %v", err)
	}

	// The file must be left untouched.
	data, _ := os.ReadFile(store.Path())
	if string(data) != "{not json" {
		t.Errorf("corrupt record was modified: %q", data)
	}
}

func TestLoad_UnknownPhaseIsCorruption(t *testing.T) {
	store, _ := testStore(t)
	if err := os.MkdirAll(filepath.Dir(store.Path()), 0755); err != nil {
		t.Fatal(err)
	}
	doc := `{"project_name":"p","global_phase":"limbo","last_updated_by":"architect"}`
	if err := os.WriteFile(store.Path(), []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := store.Load()
	var corrupt *CorruptionError
	if !errors.As(err, &corrupt) {
		t.Fatalf("expected *CorruptionError for unknown phase, got %v", err)
	}
}

func TestLock_SecondHolderGetsErrLocked(t *testing.T) {
	store, _ := testStore(t)

	unlock, err := store.lock()
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	defer unlock()

	if _, err := store.Update(schema.RoleArchitect, func(*schema.ContextRecord) error { return nil }); !errors.Is(err, ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
}

func TestLock_ReleasedAfterUpdate(t *testing.T) {
	store, _ := testStore(t)

	for i := 0; i < 3; i++ {
		if _, err := store.Update(schema.RoleArchitect, func(*schema.ContextRecord) error { return nil }); err != nil {
			t.Fatalf("update %d: %v", i, err)
		}
	}
	if _, err := os.Stat(store.Path() + ".lock"); !os.IsNotExist(err) {
		t.Error("lock file still present after Update")
	}
}

// Concurrent writers either succeed or observe ErrLocked; nothing else.
func TestUpdate_ConcurrentWriters(t *testing.T) {
	store, _ := testStore(t)
	if _, err := store.Load(); err != nil {
		t.Fatal(err)
	}

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = store.Update(schema.RoleArchitect, func(r *schema.ContextRecord) error {
				r.KnownIssues = append(r.KnownIssues, fmt.Sprintf("issue-%d", i))
				time.Sleep(time.Millisecond)
				return nil
			})
		}(i)
	}
	wg.Wait()

	wins := 0
	for i, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrLocked):
		default:
			t.Errorf("writer %d: unexpected error %v", i, err)
		}
	}
	if wins == 0 {
		t.Fatal("no writer succeeded")
	}

	record, err := store.Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(record.KnownIssues) != wins {
		t.Errorf("record has %d issues, want %d (one per successful writer)", len(record.KnownIssues), wins)
	}
}

func TestAppendLog_WithinWindow(t *testing.T) {
	store, arch := testStore(t)

	for i := 0; i < schema.MaxLiveLogs; i++ {
		_, err := store.AppendLog(schema.RoleArchitect, schema.LogEntry{
			Role:    schema.RoleArchitect,
			Action:  "step",
			Summary: fmt.Sprintf("entry %d", i),
		})
		if err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	record, err := store.Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(record.ReasoningLogs) != schema.MaxLiveLogs {
		t.Errorf("live logs = %d, want %d", len(record.ReasoningLogs), schema.MaxLiveLogs)
	}
	if len(arch.entries) != 0 {
		t.Errorf("archived %d entries before overflow", len(arch.entries))
	}
}

// Appending past the window evicts exactly the oldest entry to the
// archive and keeps the newest MaxLiveLogs live, order preserved.
func TestAppendLog_OverflowEvictsOldest(t *testing.T) {
	store, arch := testStore(t)

	for i := 0; i < schema.MaxLiveLogs+1; i++ {
		_, err := store.AppendLog(schema.RoleArchitect, schema.LogEntry{
			Role:    schema.RoleArchitect,
			Action:  "step",
			Summary: fmt.Sprintf("entry %d", i),
		})
		if err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	record, err := store.Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(record.ReasoningLogs) != schema.MaxLiveLogs {
		t.Fatalf("live logs = %d, want %d", len(record.ReasoningLogs), schema.MaxLiveLogs)
	}
	if len(arch.entries) != 1 {
		t.Fatalf("archived = %d, want 1", len(arch.entries))
	}
	if arch.entries[0].Summary != "entry 0" {
		t.Errorf("archived entry = %q, want oldest (entry 0)", arch.entries[0].Summary)
	}
	if got := record.ReasoningLogs[0].Summary; got != "entry 1" {
		t.Errorf("oldest live entry = %q, want entry 1", got)
	}
	if got := record.ReasoningLogs[len(record.ReasoningLogs)-1].Summary; got != fmt.Sprintf("entry %d", schema.MaxLiveLogs) {
		t.Errorf("newest live entry = %q", got)
	}
}

// A failing archiver must leave the persisted record unchanged: no entry
// is appended, none removed.
func TestAppendLog_ArchiverFailureAborts(t *testing.T) {
	store, arch := testStore(t)

	for i := 0; i < schema.MaxLiveLogs; i++ {
		if _, err := store.AppendLog(schema.RoleArchitect, schema.LogEntry{
			Role: schema.RoleArchitect, Action: "step", Summary: fmt.Sprintf("entry %d", i),
		}); err != nil {
			t.Fatal(err)
		}
	}

	arch.err = fmt.Errorf("archive down")
	_, err := store.AppendLog(schema.RoleArchitect, schema.LogEntry{
		Role: schema.RoleArchitect, Action: "step", Summary: "overflow",
	})
	if err == nil {
		t.Fatal("expected archive failure to surface")
	}

	record, loadErr := store.Load()
	if loadErr != nil {
		t.Fatal(loadErr)
	}
	if len(record.ReasoningLogs) != schema.MaxLiveLogs {
		t.Errorf("live logs = %d after failed append, want %d", len(record.ReasoningLogs), schema.MaxLiveLogs)
	}
	for _, e := range record.ReasoningLogs {
		if e.Summary == "overflow" {
			t.Error("failed append still persisted the entry")
		}
	}
}

func TestAppendLog_StampsTimestamp(t *testing.T) {
	store, _ := testStore(t)
	record, err := store.AppendLog(schema.RoleAuditor, schema.LogEntry{
		Role: schema.RoleAuditor, Action: "note", Summary: "x",
	})
	if err != nil {
		t.Fatal(err)
	}
	if record.ReasoningLogs[0].Timestamp.IsZero() {
		t.Error("timestamp not stamped")
	}
}

// The temp-then-rename write never leaves temp files behind.
func TestSave_NoTempLeftovers(t *testing.T) {
	store, _ := testStore(t)
	if _, err := store.Update(schema.RoleArchitect, func(*schema.ContextRecord) error { return nil }); err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(filepath.Dir(store.Path()))
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if e.Name() != filepath.Base(store.Path()) {
			t.Errorf("unexpected file in store dir: %s", e.Name())
		}
	}
}
