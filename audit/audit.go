// Package audit records the immutable change history for tasks.
// Entries are append-only: the other stores write through Record and never
// read back; queries exist for callers displaying history.
package audit

import (
	"database/sql"
	"fmt"
	"time"
)

// Operation classifies what a mutation did to its task.
type Operation string

const (
	OpCreate Operation = "CREATE"
	OpUpdate Operation = "UPDATE"
	OpDelete Operation = "DELETE"
)

// DefaultActor is recorded when the caller does not identify itself.
const DefaultActor = "unknown"

// Entry is one recorded change. Field, OldValue, and NewValue are empty for
// operations that do not diff a single field (e.g. CREATE).
type Entry struct {
	ID        int64     `json:"id"`
	TaskID    string    `json:"task_id"`
	Operation Operation `json:"operation"`
	Field     string    `json:"field,omitempty"`
	OldValue  string    `json:"old_value,omitempty"`
	NewValue  string    `json:"new_value,omitempty"`
	Actor     string    `json:"actor"`
	CreatedAt time.Time `json:"created_at"`
}

// Recorder appends and queries audit entries.
type Recorder struct {
	db *sql.DB
}

// NewRecorder returns a Recorder over the shared database handle.
func NewRecorder(db *sql.DB) *Recorder {
	return &Recorder{db: db}
}

// Record appends one entry. An empty actor is stored as DefaultActor.
func (r *Recorder) Record(taskID string, op Operation, field, oldValue, newValue, actor string) error {
	if actor == "" {
		actor = DefaultActor
	}
	_, err := r.db.Exec(`
		INSERT INTO audit_log (task_id, operation, field, old_value, new_value, actor, created_at)
		VALUES (?,?,?,?,?,?,?)`,
		taskID, string(op), nullString(field), nullString(oldValue), nullString(newValue),
		actor, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("record audit entry: %w", err)
	}
	return nil
}

// Query returns entries for one task, newest first, capped at limit when > 0.
func (r *Recorder) Query(taskID string, limit int) ([]*Entry, error) {
	return r.query(`SELECT id, task_id, operation, field, old_value, new_value, actor, created_at
		FROM audit_log WHERE task_id = ? ORDER BY created_at DESC, id DESC`, []any{taskID}, limit)
}

// QueryAll returns entries across all tasks, newest first, capped at limit when > 0.
func (r *Recorder) QueryAll(limit int) ([]*Entry, error) {
	return r.query(`SELECT id, task_id, operation, field, old_value, new_value, actor, created_at
		FROM audit_log ORDER BY created_at DESC, id DESC`, nil, limit)
}

// Purge removes all entries for a task. It is the explicit cascade used after
// a hard delete; nothing else ever deletes audit rows.
func (r *Recorder) Purge(taskID string) error {
	if _, err := r.db.Exec(`DELETE FROM audit_log WHERE task_id = ?`, taskID); err != nil {
		return fmt.Errorf("purge audit entries for %s: %w", taskID, err)
	}
	return nil
}

func (r *Recorder) query(q string, args []any, limit int) ([]*Entry, error) {
	if limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", limit)
	}
	rows, err := r.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit log: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		var e Entry
		var op string
		var field, oldValue, newValue sql.NullString
		if err := rows.Scan(&e.ID, &e.TaskID, &op, &field, &oldValue, &newValue, &e.Actor, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Operation = Operation(op)
		e.Field = field.String
		e.OldValue = oldValue.String
		e.NewValue = newValue.String
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
