// Package event provides an in-process notification bus for task lifecycle
// changes. The engine publishes; external consumers (dashboards, side
// indexes) subscribe. Nothing in the core depends on a subscriber running.
package event

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Kind identifies what happened to a task.
type Kind string

const (
	KindCreated       Kind = "task.created"
	KindStatusChanged Kind = "task.status_changed"
	KindClaimed       Kind = "task.claimed"
	KindCompleted     Kind = "task.completed"
	KindDeleted       Kind = "task.deleted"
	KindRestored      Kind = "task.restored"
	KindPurged        Kind = "task.purged"
	KindEdgeAdded     Kind = "dep.edge_added"
	KindEdgeRemoved   Kind = "dep.edge_removed"

	// KindAll subscribes to every event.
	KindAll Kind = "*"
)

// Event describes one change after it has been committed.
type Event struct {
	Kind   Kind      `json:"kind"`
	TaskID string    `json:"task_id"`
	Actor  string    `json:"actor,omitempty"`
	Detail string    `json:"detail,omitempty"`
	At     time.Time `json:"at"`
}

// Handler processes a published event.
type Handler func(ctx context.Context, ev *Event) error

// Bus is a thread-safe in-process event bus with a capped history.
type Bus struct {
	mu       sync.RWMutex
	handlers map[Kind][]handlerEntry
	history  []*Event
	maxHist  int
	nextID   int
}

type handlerEntry struct {
	id      int
	handler Handler
}

// NewBus creates a Bus with a 1000-event history cap.
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[Kind][]handlerEntry),
		maxHist:  1000,
	}
}

// Publish records the event and invokes the handlers subscribed to its kind
// and to KindAll. Handler errors are collected; the event is kept in history
// either way.
func (b *Bus) Publish(ctx context.Context, ev *Event) error {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}

	b.mu.Lock()
	b.history = append(b.history, ev)
	if len(b.history) > b.maxHist {
		b.history = b.history[len(b.history)-b.maxHist:]
	}
	var targets []Handler
	for _, e := range b.handlers[ev.Kind] {
		targets = append(targets, e.handler)
	}
	for _, e := range b.handlers[KindAll] {
		targets = append(targets, e.handler)
	}
	b.mu.Unlock()

	var errs []error
	for _, h := range targets {
		if err := h(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("publish: %d handler error(s): %v", len(errs), errs[0])
	}
	return nil
}

// Subscribe registers a handler for events of the given kind (or KindAll).
// The returned function unsubscribes the handler.
func (b *Bus) Subscribe(kind Kind, handler Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.handlers[kind] = append(b.handlers[kind], handlerEntry{id: id, handler: handler})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		entries := b.handlers[kind]
		filtered := entries[:0]
		for _, e := range entries {
			if e.id != id {
				filtered = append(filtered, e)
			}
		}
		if len(filtered) == 0 {
			delete(b.handlers, kind)
		} else {
			b.handlers[kind] = filtered
		}
	}
}

// History returns the most recent limit events of the given kind, oldest
// first. KindAll matches every event; limit <= 0 means no cap.
func (b *Bus) History(kind Kind, limit int) []*Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var result []*Event
	for i := len(b.history) - 1; i >= 0; i-- {
		ev := b.history[i]
		if kind == KindAll || ev.Kind == kind {
			result = append(result, ev)
			if limit > 0 && len(result) >= limit {
				break
			}
		}
	}
	for l, r := 0, len(result)-1; l < r; l, r = l+1, r-1 {
		result[l], result[r] = result[r], result[l]
	}
	return result
}
