package task

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/fudaworks/fuda/audit"
	"github.com/fudaworks/fuda/storage"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "fuda.db"))
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewStore(db, audit.NewRecorder(db))
}

func mustCreate(t *testing.T, s *Store, title string) *Task {
	t.Helper()
	tk, err := s.Create(CreateInput{Title: title, Description: "desc", Actor: "tester"})
	if err != nil {
		t.Fatalf("Create %q: %v", title, err)
	}
	return tk
}

func TestStore_CreateAndGet(t *testing.T) {
	s := newTestStore(t)

	tk, err := s.Create(CreateInput{
		Title:       "Write parser",
		Description: "Tokenize the input format",
		WorkerType:  WorkerAgent,
		GroupID:     "plan-1",
		Priority:    3,
		Actor:       "tester",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if tk.ID == "" {
		t.Fatal("Create returned empty ID")
	}
	if tk.Status != StatusBlocked {
		t.Errorf("Status = %q, want %q", tk.Status, StatusBlocked)
	}

	got, err := s.Get(tk.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Title != "Write parser" {
		t.Errorf("Title = %q, want Write parser", got.Title)
	}
	if got.WorkerType != WorkerAgent {
		t.Errorf("WorkerType = %q, want %q", got.WorkerType, WorkerAgent)
	}
	if got.GroupID != "plan-1" || got.Priority != 3 {
		t.Errorf("GroupID/Priority = %q/%d, want plan-1/3", got.GroupID, got.Priority)
	}
	if got.UpdatedAt.Before(got.CreatedAt) {
		t.Errorf("UpdatedAt %v before CreatedAt %v", got.UpdatedAt, got.CreatedAt)
	}
}

func TestStore_Create_Validation(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.Create(CreateInput{Title: "", Description: "d"}); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("empty title: err = %v, want ErrInvalidArgument", err)
	}
	if _, err := s.Create(CreateInput{Title: "t", Description: "  "}); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("blank description: err = %v, want ErrInvalidArgument", err)
	}
	if _, err := s.Create(CreateInput{Title: "t", Description: "d", WorkerType: "gremlin"}); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("bad worker type: err = %v, want ErrInvalidArgument", err)
	}
}

func TestStore_Get_NotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Get("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestStore_SetStatus(t *testing.T) {
	s := newTestStore(t)
	tk := mustCreate(t, s, "t1")

	got, err := s.SetStatus(tk.ID, StatusReady, "tester")
	if err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if got.Status != StatusReady {
		t.Errorf("Status = %q, want ready", got.Status)
	}
	if got.UpdatedAt.Before(tk.UpdatedAt) {
		t.Errorf("UpdatedAt went backward: %v -> %v", tk.UpdatedAt, got.UpdatedAt)
	}

	if _, err := s.SetStatus(tk.ID, Status("bogus"), "tester"); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("bogus status: err = %v, want ErrInvalidArgument", err)
	}
	// unchanged by the rejected write
	got, err = s.Get(tk.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != StatusReady {
		t.Errorf("Status after rejected write = %q, want ready", got.Status)
	}
}

func TestStore_SetAssignment(t *testing.T) {
	s := newTestStore(t)
	tk := mustCreate(t, s, "t1")

	got, err := s.SetAssignment(tk.ID, "spirit-7", "tester")
	if err != nil {
		t.Fatalf("SetAssignment: %v", err)
	}
	if got.AssignedSpiritID != "spirit-7" {
		t.Errorf("AssignedSpiritID = %q, want spirit-7", got.AssignedSpiritID)
	}
	if got.Status != StatusBlocked {
		t.Errorf("assignment changed status to %q", got.Status)
	}

	got, err = s.SetAssignment(tk.ID, "", "tester")
	if err != nil {
		t.Fatalf("clear assignment: %v", err)
	}
	if got.AssignedSpiritID != "" {
		t.Errorf("AssignedSpiritID = %q, want empty", got.AssignedSpiritID)
	}
}

func TestStore_RecordFailure(t *testing.T) {
	s := newTestStore(t)
	tk := mustCreate(t, s, "t1")

	got, err := s.RecordFailure(tk.ID, "timeout waiting for review", "tester")
	if err != nil {
		t.Fatalf("RecordFailure: %v", err)
	}
	if got.RetryCount != 1 || got.FailureContext == "" {
		t.Errorf("RetryCount/FailureContext = %d/%q", got.RetryCount, got.FailureContext)
	}
	if got, err = s.RecordFailure(tk.ID, "again", "tester"); err != nil {
		t.Fatalf("RecordFailure 2: %v", err)
	}
	if got.RetryCount != 2 {
		t.Errorf("RetryCount = %d, want 2", got.RetryCount)
	}
}

func TestStore_SoftDeleteRestore(t *testing.T) {
	s := newTestStore(t)
	tk := mustCreate(t, s, "t1")
	if _, err := s.SetAssignment(tk.ID, "spirit-7", "tester"); err != nil {
		t.Fatalf("SetAssignment: %v", err)
	}
	before, err := s.Get(tk.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	if err := s.SoftDelete(tk.ID, "tester", "duplicate"); err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}
	if _, err := s.Get(tk.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after soft delete: err = %v, want ErrNotFound", err)
	}

	gone, err := s.GetAny(tk.ID)
	if err != nil {
		t.Fatalf("GetAny: %v", err)
	}
	if !gone.Deleted() || gone.DeletedBy != "tester" || gone.DeleteReason != "duplicate" {
		t.Errorf("deletion triple = (%v, %q, %q)", gone.DeletedAt, gone.DeletedBy, gone.DeleteReason)
	}

	// deleting again reports not found
	if err := s.SoftDelete(tk.ID, "tester", "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("double soft delete: err = %v, want ErrNotFound", err)
	}

	restored, err := s.Restore(tk.ID, "tester")
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if restored.Deleted() || restored.DeletedBy != "" || restored.DeleteReason != "" {
		t.Errorf("deletion triple not cleared: (%v, %q, %q)",
			restored.DeletedAt, restored.DeletedBy, restored.DeleteReason)
	}
	// observationally identical apart from the triple and updated_at
	if restored.Title != before.Title || restored.Description != before.Description ||
		restored.Status != before.Status || restored.AssignedSpiritID != before.AssignedSpiritID ||
		restored.Priority != before.Priority || !restored.CreatedAt.Equal(before.CreatedAt) {
		t.Errorf("restored task differs from pre-delete state:\n  got  %+v\n  want %+v", restored, before)
	}

	// restoring a live task reports not found
	if _, err := s.Restore(tk.ID, "tester"); !errors.Is(err, ErrNotFound) {
		t.Errorf("restore live task: err = %v, want ErrNotFound", err)
	}
}

func TestStore_HardDelete(t *testing.T) {
	s := newTestStore(t)
	tk := mustCreate(t, s, "t1")

	if err := s.HardDelete(tk.ID); err != nil {
		t.Fatalf("HardDelete: %v", err)
	}
	if _, err := s.GetAny(tk.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetAny after hard delete: err = %v, want ErrNotFound", err)
	}
	if _, err := s.Resolve(tk.ID[:12]); !errors.Is(err, ErrNotFound) {
		t.Errorf("Resolve after hard delete: err = %v, want ErrNotFound", err)
	}
	if err := s.HardDelete(tk.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("double hard delete: err = %v, want ErrNotFound", err)
	}
}

func TestStore_List(t *testing.T) {
	s := newTestStore(t)

	a := mustCreate(t, s, "a")
	b := mustCreate(t, s, "b")
	c := mustCreate(t, s, "c")
	if _, err := s.SetStatus(b.ID, StatusReady, "t"); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if _, err := s.SetAssignment(c.ID, "spirit-1", "t"); err != nil {
		t.Fatalf("SetAssignment: %v", err)
	}
	if err := s.SoftDelete(a.ID, "t", ""); err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}

	live, err := s.List(Filter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(live) != 2 {
		t.Errorf("live tasks = %d, want 2", len(live))
	}

	all, err := s.List(Filter{IncludeDeleted: true})
	if err != nil {
		t.Fatalf("List deleted: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("all tasks = %d, want 3", len(all))
	}

	ready := StatusReady
	readyList, err := s.List(Filter{Status: &ready})
	if err != nil {
		t.Fatalf("List ready: %v", err)
	}
	if len(readyList) != 1 || readyList[0].ID != b.ID {
		t.Errorf("ready list has %d entries", len(readyList))
	}

	assigned, err := s.List(Filter{AssignedTo: "spirit-1"})
	if err != nil {
		t.Fatalf("List assigned: %v", err)
	}
	if len(assigned) != 1 || assigned[0].ID != c.ID {
		t.Errorf("assigned list has %d entries", len(assigned))
	}
}

func TestStore_List_PriorityOrder(t *testing.T) {
	s := newTestStore(t)

	low, err := s.Create(CreateInput{Title: "low", Description: "d", Priority: 0})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	high, err := s.Create(CreateInput{Title: "high", Description: "d", Priority: 9})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	tasks, err := s.List(Filter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(tasks) != 2 || tasks[0].ID != high.ID || tasks[1].ID != low.ID {
		t.Errorf("want high-priority task first, got %q then %q", tasks[0].Title, tasks[1].Title)
	}
}
