// Package ready promotes blocked tasks whose blocking dependencies are all
// satisfied.
package ready

import (
	"errors"
	"io"
	"log/slog"

	"github.com/fudaworks/fuda/dep"
	"github.com/fudaworks/fuda/task"
)

// Propagator scans blocked tasks and promotes them to ready. It is
// deliberately single-pass: each completion can free at most the tasks it
// directly blocks, so callers run Promote once per completion event and
// multi-level chains unblock over the sequence of completions.
type Propagator struct {
	tasks *task.Store
	deps  *dep.Store
	log   *slog.Logger
}

// NewPropagator returns a Propagator over the injected stores. A nil logger
// discards output.
func NewPropagator(tasks *task.Store, deps *dep.Store, logger *slog.Logger) *Propagator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Propagator{tasks: tasks, deps: deps, log: logger}
}

// Promote transitions every live blocked task whose blocking edges all
// target done tasks (or that has none) to ready. Idempotent; tasks already
// ready or beyond are untouched. Returns the IDs promoted in this pass.
func (p *Propagator) Promote(actor string) ([]string, error) {
	blocked := task.StatusBlocked
	candidates, err := p.tasks.List(task.Filter{Status: &blocked})
	if err != nil {
		return nil, err
	}

	var promoted []string
	for _, t := range candidates {
		ok, err := p.satisfied(t.ID)
		if err != nil {
			return promoted, err
		}
		if !ok {
			continue
		}
		if _, err := p.tasks.SetStatus(t.ID, task.StatusReady, actor); err != nil {
			return promoted, err
		}
		p.log.Debug("promoted task to ready", "task", t.ID)
		promoted = append(promoted, t.ID)
	}
	return promoted, nil
}

// satisfied reports whether every blocking edge of taskID targets a done
// task. A target that is missing or soft-deleted keeps the task blocked.
func (p *Propagator) satisfied(taskID string) (bool, error) {
	edges, err := p.deps.ListBlocking(taskID)
	if err != nil {
		return false, err
	}
	for _, e := range edges {
		target, err := p.tasks.Get(e.DependsOnID)
		if err != nil {
			if errors.Is(err, task.ErrNotFound) {
				p.log.Warn("blocking edge targets missing task",
					"task", taskID, "depends_on", e.DependsOnID)
				return false, nil
			}
			return false, err
		}
		if target.Status != task.StatusDone {
			return false, nil
		}
	}
	return true, nil
}
