package ready

import (
	"path/filepath"
	"testing"

	"github.com/fudaworks/fuda/audit"
	"github.com/fudaworks/fuda/dep"
	"github.com/fudaworks/fuda/storage"
	"github.com/fudaworks/fuda/task"
)

func newTestPropagator(t *testing.T) (*Propagator, *task.Store, *dep.Store) {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "fuda.db"))
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	rec := audit.NewRecorder(db)
	ts := task.NewStore(db, rec)
	ds := dep.NewStore(db, rec)
	return NewPropagator(ts, ds, nil), ts, ds
}

func mustCreate(t *testing.T, ts *task.Store, title string) *task.Task {
	t.Helper()
	tk, err := ts.Create(task.CreateInput{Title: title, Description: "d", Actor: "tester"})
	if err != nil {
		t.Fatalf("Create %q: %v", title, err)
	}
	return tk
}

func status(t *testing.T, ts *task.Store, id string) task.Status {
	t.Helper()
	tk, err := ts.Get(id)
	if err != nil {
		t.Fatalf("Get %s: %v", id, err)
	}
	return tk.Status
}

func TestPromote_BlockedChain(t *testing.T) {
	p, ts, ds := newTestPropagator(t)

	a := mustCreate(t, ts, "a")
	b := mustCreate(t, ts, "b")
	if err := ds.AddEdge(a.ID, b.ID, dep.TypeBlocks, "t"); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}

	promoted, err := p.Promote("t")
	if err != nil {
		t.Fatalf("Promote: %v", err)
	}
	// b has no edges and becomes ready; a waits on b
	if len(promoted) != 1 || promoted[0] != b.ID {
		t.Errorf("promoted = %v, want [%s]", promoted, b.ID)
	}
	if got := status(t, ts, a.ID); got != task.StatusBlocked {
		t.Errorf("a = %q, want blocked", got)
	}
	if got := status(t, ts, b.ID); got != task.StatusReady {
		t.Errorf("b = %q, want ready", got)
	}

	if _, err := ts.SetStatus(b.ID, task.StatusDone, "t"); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	promoted, err = p.Promote("t")
	if err != nil {
		t.Fatalf("Promote 2: %v", err)
	}
	if len(promoted) != 1 || promoted[0] != a.ID {
		t.Errorf("promoted = %v, want [%s]", promoted, a.ID)
	}
	if got := status(t, ts, a.ID); got != task.StatusReady {
		t.Errorf("a = %q, want ready", got)
	}
}

func TestPromote_Idempotent(t *testing.T) {
	p, ts, _ := newTestPropagator(t)
	mustCreate(t, ts, "solo")

	first, err := p.Promote("t")
	if err != nil {
		t.Fatalf("Promote: %v", err)
	}
	if len(first) != 1 {
		t.Fatalf("promoted = %d, want 1", len(first))
	}
	second, err := p.Promote("t")
	if err != nil {
		t.Fatalf("Promote again: %v", err)
	}
	if len(second) != 0 {
		t.Errorf("second pass promoted %d, want 0", len(second))
	}
}

func TestPromote_InformationalEdgesIgnored(t *testing.T) {
	p, ts, ds := newTestPropagator(t)
	a := mustCreate(t, ts, "a")
	b := mustCreate(t, ts, "b")
	if err := ds.AddEdge(a.ID, b.ID, dep.TypeRelated, "t"); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}

	if _, err := p.Promote("t"); err != nil {
		t.Fatalf("Promote: %v", err)
	}
	if got := status(t, ts, a.ID); got != task.StatusReady {
		t.Errorf("a with only a related edge = %q, want ready", got)
	}
}

func TestPromote_ReadyInvariant(t *testing.T) {
	// ready implies every blocking edge targets a done task
	p, ts, ds := newTestPropagator(t)
	a := mustCreate(t, ts, "a")
	b := mustCreate(t, ts, "b")
	c := mustCreate(t, ts, "c")
	if err := ds.AddEdge(a.ID, b.ID, dep.TypeBlocks, "t"); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}
	if err := ds.AddEdge(a.ID, c.ID, dep.TypeParentChild, "t"); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}

	if _, err := ts.SetStatus(b.ID, task.StatusDone, "t"); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if _, err := p.Promote("t"); err != nil {
		t.Fatalf("Promote: %v", err)
	}
	// c not done yet, so a must stay blocked
	if got := status(t, ts, a.ID); got != task.StatusBlocked {
		t.Errorf("a = %q, want blocked while c is %q", got, status(t, ts, c.ID))
	}

	if _, err := ts.SetStatus(c.ID, task.StatusDone, "t"); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if _, err := p.Promote("t"); err != nil {
		t.Fatalf("Promote: %v", err)
	}
	if got := status(t, ts, a.ID); got != task.StatusReady {
		t.Errorf("a = %q, want ready with both targets done", got)
	}
}

func TestPromote_MissingTargetStaysBlocked(t *testing.T) {
	p, ts, ds := newTestPropagator(t)
	a := mustCreate(t, ts, "a")
	if err := ds.AddEdge(a.ID, "hard-deleted-task", dep.TypeBlocks, "t"); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}

	if _, err := p.Promote("t"); err != nil {
		t.Fatalf("Promote: %v", err)
	}
	if got := status(t, ts, a.ID); got != task.StatusBlocked {
		t.Errorf("a = %q, want blocked behind a dangling edge", got)
	}
}

func TestPromote_SkipsSoftDeleted(t *testing.T) {
	p, ts, _ := newTestPropagator(t)
	a := mustCreate(t, ts, "a")
	if err := ts.SoftDelete(a.ID, "t", ""); err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}

	promoted, err := p.Promote("t")
	if err != nil {
		t.Fatalf("Promote: %v", err)
	}
	if len(promoted) != 0 {
		t.Errorf("promoted soft-deleted task")
	}
}
