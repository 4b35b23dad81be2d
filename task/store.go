package task

import (
	"database/sql"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fudaworks/fuda/audit"
)

const taskColumns = `id, title, description, status, worker_type, assigned_spirit_id,
	output_ref, retry_count, failure_context, parent_task_id, group_id, priority,
	created_at, updated_at, deleted_at, deleted_by, delete_reason`

// Store persists tasks in the shared SQLite database. It owns the task rows
// and the status field; every mutation writes through the audit recorder.
type Store struct {
	db  *sql.DB
	rec *audit.Recorder
}

// NewStore returns a Store over the shared database handle.
func NewStore(db *sql.DB, rec *audit.Recorder) *Store {
	return &Store{db: db, rec: rec}
}

// newID generates a collision-resistant 32-char hex ID.
func newID() string {
	u := uuid.New()
	return hex.EncodeToString(u[:])
}

// CreateInput carries the caller-supplied fields for a new task.
type CreateInput struct {
	Title        string
	Description  string
	WorkerType   WorkerType
	ParentTaskID string
	GroupID      string
	Priority     int
	Actor        string
}

// Create validates the input, assigns an ID, and inserts the task with
// status blocked. Readiness is not computed here: callers attach dependency
// edges first and then run the propagator.
func (s *Store) Create(in CreateInput) (*Task, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, fmt.Errorf("title must not be empty: %w", ErrInvalidArgument)
	}
	if strings.TrimSpace(in.Description) == "" {
		return nil, fmt.Errorf("description must not be empty: %w", ErrInvalidArgument)
	}
	wt, err := ParseWorkerType(string(in.WorkerType))
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	t := &Task{
		ID:           newID(),
		Title:        in.Title,
		Description:  in.Description,
		Status:       StatusBlocked,
		WorkerType:   wt,
		ParentTaskID: in.ParentTaskID,
		GroupID:      in.GroupID,
		Priority:     in.Priority,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	_, err = s.db.Exec(`
		INSERT INTO tasks
			(id, title, description, status, worker_type, assigned_spirit_id,
			 output_ref, retry_count, failure_context, parent_task_id, group_id, priority,
			 created_at, updated_at, deleted_at, deleted_by, delete_reason)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,NULL,NULL,NULL)`,
		t.ID, t.Title, t.Description, string(t.Status), string(t.WorkerType), nullStr(t.AssignedSpiritID),
		nullStr(t.OutputRef), t.RetryCount, nullStr(t.FailureContext),
		nullStr(t.ParentTaskID), nullStr(t.GroupID), t.Priority,
		t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	if err := s.rec.Record(t.ID, audit.OpCreate, "", "", t.Title, in.Actor); err != nil {
		return nil, err
	}
	return t, nil
}

// Get retrieves a live task by ID. Soft-deleted tasks report ErrNotFound.
func (s *Store) Get(id string) (*Task, error) {
	row := s.db.QueryRow(`SELECT `+taskColumns+` FROM tasks WHERE id = ? AND deleted_at IS NULL`, id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return t, err
}

// GetAny retrieves a task by ID regardless of soft-delete state.
func (s *Store) GetAny(id string) (*Task, error) {
	row := s.db.QueryRow(`SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return t, err
}

// Filter controls which tasks List returns. Default reads exclude
// soft-deleted rows.
type Filter struct {
	Status         *Status
	AssignedTo     string
	WorkerType     WorkerType
	GroupID        string
	ParentTaskID   string
	IncludeDeleted bool
	Limit          int
	Offset         int
}

// List returns tasks matching the filter, highest priority first.
func (s *Store) List(filter Filter) ([]*Task, error) {
	q := strings.Builder{}
	q.WriteString(`SELECT ` + taskColumns + ` FROM tasks WHERE 1=1`)
	args := []any{}

	if !filter.IncludeDeleted {
		q.WriteString(" AND deleted_at IS NULL")
	}
	if filter.Status != nil {
		q.WriteString(" AND status=?")
		args = append(args, string(*filter.Status))
	}
	if filter.AssignedTo != "" {
		q.WriteString(" AND assigned_spirit_id=?")
		args = append(args, filter.AssignedTo)
	}
	if filter.WorkerType != "" {
		q.WriteString(" AND worker_type=?")
		args = append(args, string(filter.WorkerType))
	}
	if filter.GroupID != "" {
		q.WriteString(" AND group_id=?")
		args = append(args, filter.GroupID)
	}
	if filter.ParentTaskID != "" {
		q.WriteString(" AND parent_task_id=?")
		args = append(args, filter.ParentTaskID)
	}
	q.WriteString(" ORDER BY priority DESC, created_at ASC")
	if filter.Limit > 0 {
		q.WriteString(fmt.Sprintf(" LIMIT %d", filter.Limit))
		if filter.Offset > 0 {
			q.WriteString(fmt.Sprintf(" OFFSET %d", filter.Offset))
		}
	}

	rows, err := s.db.Query(q.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// SetStatus writes newStatus unconditionally (direct status edits bypass the
// transition guard) and records the diff.
func (s *Store) SetStatus(id string, newStatus Status, actor string) (*Task, error) {
	if _, err := ParseStatus(string(newStatus)); err != nil {
		return nil, err
	}
	cur, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if cur.Status == newStatus {
		return cur, nil
	}
	now := time.Now().UTC()
	if _, err := s.db.Exec(`UPDATE tasks SET status=?, updated_at=? WHERE id=? AND deleted_at IS NULL`,
		string(newStatus), now, id); err != nil {
		return nil, fmt.Errorf("set status: %w", err)
	}
	if err := s.rec.Record(id, audit.OpUpdate, "status", string(cur.Status), string(newStatus), actor); err != nil {
		return nil, err
	}
	cur.Status = newStatus
	cur.UpdatedAt = now
	return cur, nil
}

// SetAssignment assigns the task to a spirit, or clears the assignment when
// spiritID is empty. Independent of status.
func (s *Store) SetAssignment(id, spiritID, actor string) (*Task, error) {
	cur, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	if _, err := s.db.Exec(`UPDATE tasks SET assigned_spirit_id=?, updated_at=? WHERE id=? AND deleted_at IS NULL`,
		nullStr(spiritID), now, id); err != nil {
		return nil, fmt.Errorf("set assignment: %w", err)
	}
	if err := s.rec.Record(id, audit.OpUpdate, "assigned_spirit_id", cur.AssignedSpiritID, spiritID, actor); err != nil {
		return nil, err
	}
	cur.AssignedSpiritID = spiritID
	cur.UpdatedAt = now
	return cur, nil
}

// SetOutputRef records the completion artifact reference.
func (s *Store) SetOutputRef(id, ref, actor string) (*Task, error) {
	cur, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	if _, err := s.db.Exec(`UPDATE tasks SET output_ref=?, updated_at=? WHERE id=? AND deleted_at IS NULL`,
		nullStr(ref), now, id); err != nil {
		return nil, fmt.Errorf("set output ref: %w", err)
	}
	if err := s.rec.Record(id, audit.OpUpdate, "output_ref", cur.OutputRef, ref, actor); err != nil {
		return nil, err
	}
	cur.OutputRef = ref
	cur.UpdatedAt = now
	return cur, nil
}

// RecordFailure stores the failure context and bumps the retry count.
// Retry policy itself lives with the execution layer, not here.
func (s *Store) RecordFailure(id, failureContext, actor string) (*Task, error) {
	cur, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	if _, err := s.db.Exec(`UPDATE tasks SET failure_context=?, retry_count=retry_count+1, updated_at=?
		WHERE id=? AND deleted_at IS NULL`,
		nullStr(failureContext), now, id); err != nil {
		return nil, fmt.Errorf("record failure: %w", err)
	}
	if err := s.rec.Record(id, audit.OpUpdate, "failure_context", cur.FailureContext, failureContext, actor); err != nil {
		return nil, err
	}
	cur.FailureContext = failureContext
	cur.RetryCount++
	cur.UpdatedAt = now
	return cur, nil
}

// SoftDelete hides the task from default reads, readiness, and claiming
// without removing the row.
func (s *Store) SoftDelete(id, by, reason string) error {
	now := time.Now().UTC()
	res, err := s.db.Exec(`UPDATE tasks SET deleted_at=?, deleted_by=?, delete_reason=?, updated_at=?
		WHERE id=? AND deleted_at IS NULL`,
		now, nullStr(by), nullStr(reason), now, id)
	if err != nil {
		return fmt.Errorf("soft delete task: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return s.rec.Record(id, audit.OpDelete, "", "", reason, by)
}

// Restore clears the soft-delete triple. Only soft-deleted tasks qualify.
func (s *Store) Restore(id, actor string) (*Task, error) {
	now := time.Now().UTC()
	res, err := s.db.Exec(`UPDATE tasks SET deleted_at=NULL, deleted_by=NULL, delete_reason=NULL, updated_at=?
		WHERE id=? AND deleted_at IS NOT NULL`,
		now, id)
	if err != nil {
		return nil, fmt.Errorf("restore task: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	if err := s.rec.Record(id, audit.OpUpdate, "deleted_at", "deleted", "", actor); err != nil {
		return nil, err
	}
	return s.Get(id)
}

// HardDelete physically removes the task row. Edges are left in place and
// audit entries persist until an explicit purge.
func (s *Store) HardDelete(id string) error {
	res, err := s.db.Exec(`DELETE FROM tasks WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("hard delete task: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return nil
}

// scanner abstracts sql.Row and sql.Rows for scanTask.
type scanner interface {
	Scan(dest ...any) error
}

func scanTask(sc scanner) (*Task, error) {
	var t Task
	var status, workerType string
	var assigned, outputRef, failureContext, parentID, groupID, deletedBy, deleteReason sql.NullString
	var deletedAt sql.NullTime

	err := sc.Scan(
		&t.ID, &t.Title, &t.Description, &status, &workerType, &assigned,
		&outputRef, &t.RetryCount, &failureContext, &parentID, &groupID, &t.Priority,
		&t.CreatedAt, &t.UpdatedAt, &deletedAt, &deletedBy, &deleteReason,
	)
	if err != nil {
		return nil, err
	}

	t.Status = Status(status)
	t.WorkerType = WorkerType(workerType)
	t.AssignedSpiritID = assigned.String
	t.OutputRef = outputRef.String
	t.FailureContext = failureContext.String
	t.ParentTaskID = parentID.String
	t.GroupID = groupID.String
	t.DeletedBy = deletedBy.String
	t.DeleteReason = deleteReason.String
	if deletedAt.Valid {
		t.DeletedAt = &deletedAt.Time
	}
	return &t, nil
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}
