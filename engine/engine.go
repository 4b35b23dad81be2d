// Package engine composes the fuda stores into the operation set that
// consumers (CLI, dashboard, import tooling) call. It owns the shared
// database handle, re-runs readiness propagation at the points the
// propagation contract requires, and publishes events after each committed
// change.
package engine

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"

	"github.com/fudaworks/fuda/audit"
	"github.com/fudaworks/fuda/dep"
	"github.com/fudaworks/fuda/event"
	"github.com/fudaworks/fuda/ledger"
	"github.com/fudaworks/fuda/ready"
	"github.com/fudaworks/fuda/storage"
	"github.com/fudaworks/fuda/task"
)

// Engine wires the component stores over one SQLite handle.
type Engine struct {
	db *sql.DB

	Tasks  *task.Store
	Deps   *dep.Store
	Ready  *ready.Propagator
	Audit  *audit.Recorder
	Ledger *ledger.Store
	Bus    *event.Bus

	log *slog.Logger
}

// Open opens (or creates) the database at dbPath and builds the engine.
// A nil logger discards output. The caller is responsible for Close.
func Open(dbPath string, logger *slog.Logger) (*Engine, error) {
	db, err := storage.Open(dbPath)
	if err != nil {
		return nil, err
	}
	return New(db, logger), nil
}

// New builds the engine over an already-open handle. Used by tests that
// manage the database themselves.
func New(db *sql.DB, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	rec := audit.NewRecorder(db)
	tasks := task.NewStore(db, rec)
	deps := dep.NewStore(db, rec)
	return &Engine{
		db:     db,
		Tasks:  tasks,
		Deps:   deps,
		Ready:  ready.NewPropagator(tasks, deps, logger),
		Audit:  rec,
		Ledger: ledger.NewStore(db),
		Bus:    event.NewBus(),
		log:    logger,
	}
}

// Close releases the underlying database connection.
func (e *Engine) Close() error { return e.db.Close() }

// EdgeSpec names a dependency to attach at creation time.
type EdgeSpec struct {
	DependsOnID string
	Type        dep.Type
}

// CreateTask creates the task, attaches its edges, and runs one propagation
// pass so a task with no unsatisfied blocking edges comes back ready.
func (e *Engine) CreateTask(ctx context.Context, in task.CreateInput, edges []EdgeSpec) (*task.Task, error) {
	t, err := e.Tasks.Create(in)
	if err != nil {
		return nil, err
	}
	for _, spec := range edges {
		if err := e.Deps.AddEdge(t.ID, spec.DependsOnID, spec.Type, in.Actor); err != nil {
			return nil, err
		}
	}
	if _, err := e.Ready.Promote(in.Actor); err != nil {
		return nil, err
	}
	t, err = e.Tasks.Get(t.ID)
	if err != nil {
		return nil, err
	}
	e.publish(ctx, event.KindCreated, t.ID, in.Actor, t.Title)
	return t, nil
}

// Claim hands the task to a spirit via the store's conditional update.
func (e *Engine) Claim(ctx context.Context, id, spiritID string) (*task.Task, error) {
	t, err := e.Tasks.Claim(id, spiritID)
	if err != nil {
		return nil, err
	}
	e.publish(ctx, event.KindClaimed, t.ID, spiritID, "")
	return t, nil
}

// SetStatus applies a guarded transition. Unlike the store's raw SetStatus,
// the engine rejects moves the state machine does not permit, and it runs a
// propagation pass whenever a task reaches done.
func (e *Engine) SetStatus(ctx context.Context, id string, to task.Status, actor string) (*task.Task, error) {
	cur, err := e.Tasks.Get(id)
	if err != nil {
		return nil, err
	}
	if cur.Status != to && !task.CanTransition(cur.Status, to) {
		return nil, fmt.Errorf("cannot move task %s from %s to %s: %w",
			id, cur.Status, to, task.ErrInvalidStatus)
	}
	t, err := e.Tasks.SetStatus(id, to, actor)
	if err != nil {
		return nil, err
	}
	if to == task.StatusDone {
		if _, err := e.Ready.Promote(actor); err != nil {
			return nil, err
		}
		e.publish(ctx, event.KindCompleted, id, actor, "")
	} else {
		e.publish(ctx, event.KindStatusChanged, id, actor, string(to))
	}
	return t, nil
}

// Complete marks the task done, records the completion artifact, and appends
// a handoff note when one is supplied.
func (e *Engine) Complete(ctx context.Context, id, outputRef, note, actor string) (*task.Task, error) {
	t, err := e.SetStatus(ctx, id, task.StatusDone, actor)
	if err != nil {
		return nil, err
	}
	if outputRef != "" {
		if t, err = e.Tasks.SetOutputRef(id, outputRef, actor); err != nil {
			return nil, err
		}
	}
	if note != "" {
		if _, err := e.Ledger.Append(id, ledger.KindHandoff, note, actor); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Fail marks the task failed, stores the failure context, and appends a
// learning note when one is supplied. Failed tasks free nothing, so no
// propagation runs.
func (e *Engine) Fail(ctx context.Context, id, failureContext, note, actor string) (*task.Task, error) {
	t, err := e.SetStatus(ctx, id, task.StatusFailed, actor)
	if err != nil {
		return nil, err
	}
	if failureContext != "" {
		if t, err = e.Tasks.RecordFailure(id, failureContext, actor); err != nil {
			return nil, err
		}
	}
	if note != "" {
		if _, err := e.Ledger.Append(id, ledger.KindLearning, note, actor); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// AddDependency upserts the edge and runs a propagation pass, since a new
// informational edge is harmless and a new blocking edge never unblocks but
// edge insertion is one of the contract's re-check points.
func (e *Engine) AddDependency(ctx context.Context, taskID, dependsOnID string, typ dep.Type, actor string) error {
	if err := e.Deps.AddEdge(taskID, dependsOnID, typ, actor); err != nil {
		return err
	}
	if _, err := e.Ready.Promote(actor); err != nil {
		return err
	}
	e.publish(ctx, event.KindEdgeAdded, taskID, actor, dependsOnID+" ("+string(typ)+")")
	return nil
}

// RemoveDependency deletes the edge and runs a propagation pass, since
// removing a blocking edge can satisfy its source.
func (e *Engine) RemoveDependency(ctx context.Context, taskID, dependsOnID, actor string) error {
	if err := e.Deps.RemoveEdge(taskID, dependsOnID, actor); err != nil {
		return err
	}
	if _, err := e.Ready.Promote(actor); err != nil {
		return err
	}
	e.publish(ctx, event.KindEdgeRemoved, taskID, actor, dependsOnID)
	return nil
}

// SoftDelete hides the task and notifies subscribers (the search index keeps
// itself in sync from these events).
func (e *Engine) SoftDelete(ctx context.Context, id, by, reason string) error {
	if err := e.Tasks.SoftDelete(id, by, reason); err != nil {
		return err
	}
	e.publish(ctx, event.KindDeleted, id, by, reason)
	return nil
}

// Restore brings a soft-deleted task back.
func (e *Engine) Restore(ctx context.Context, id, actor string) (*task.Task, error) {
	t, err := e.Tasks.Restore(id, actor)
	if err != nil {
		return nil, err
	}
	e.publish(ctx, event.KindRestored, id, actor, "")
	return t, nil
}

// HardDelete physically removes the task row. purgeAudit additionally runs
// the explicit audit cascade; edges are never cascaded.
func (e *Engine) HardDelete(ctx context.Context, id string, purgeAudit bool, actor string) error {
	if err := e.Tasks.HardDelete(id); err != nil {
		return err
	}
	if purgeAudit {
		if err := e.Audit.Purge(id); err != nil {
			return err
		}
	}
	e.publish(ctx, event.KindPurged, id, actor, "")
	return nil
}

// Resolve maps a user-typed ID prefix to exactly one live task ID.
func (e *Engine) Resolve(prefix string) (string, error) {
	return e.Tasks.Resolve(prefix)
}

func (e *Engine) publish(ctx context.Context, kind event.Kind, taskID, actor, detail string) {
	ev := &event.Event{Kind: kind, TaskID: taskID, Actor: actor, Detail: detail}
	if err := e.Bus.Publish(ctx, ev); err != nil {
		e.log.Warn("event handler failed", "kind", kind, "task", taskID, "error", err)
	}
}
