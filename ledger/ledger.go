// Package ledger stores append-only free-form notes attached to tasks:
// handoffs written when work changes hands and learnings captured along the
// way. Entries have no state machine; they are written once and listed.
package ledger

import (
	"database/sql"
	"fmt"
	"time"
)

// Kind classifies a ledger entry.
type Kind string

const (
	KindHandoff  Kind = "handoff"
	KindLearning Kind = "learning"
)

// Entry is one appended note.
type Entry struct {
	ID        int64     `json:"id"`
	TaskID    string    `json:"task_id"`
	Kind      Kind      `json:"kind"`
	Body      string    `json:"body"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"created_at"`
}

// Store appends and lists ledger entries.
type Store struct {
	db *sql.DB
}

// NewStore returns a Store over the shared database handle.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Append adds one entry. An empty author is stored as "unknown".
func (s *Store) Append(taskID string, kind Kind, body, author string) (*Entry, error) {
	if body == "" {
		return nil, fmt.Errorf("ledger entry body must not be empty")
	}
	if author == "" {
		author = "unknown"
	}
	now := time.Now().UTC()
	res, err := s.db.Exec(`
		INSERT INTO ledger (task_id, kind, body, author, created_at)
		VALUES (?,?,?,?,?)`,
		taskID, string(kind), body, author, now,
	)
	if err != nil {
		return nil, fmt.Errorf("append ledger entry: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &Entry{ID: id, TaskID: taskID, Kind: kind, Body: body, Author: author, CreatedAt: now}, nil
}

// List returns the entries for a task, newest first, capped at limit when > 0.
func (s *Store) List(taskID string, limit int) ([]*Entry, error) {
	q := `SELECT id, task_id, kind, body, author, created_at FROM ledger
		WHERE task_id = ? ORDER BY created_at DESC, id DESC`
	if limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", limit)
	}
	rows, err := s.db.Query(q, taskID)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		var e Entry
		var kind string
		if err := rows.Scan(&e.ID, &e.TaskID, &kind, &e.Body, &e.Author, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Kind = Kind(kind)
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
