package dep

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/fudaworks/fuda/audit"
	"github.com/fudaworks/fuda/task"
)

// Store persists dependency edges in the shared SQLite database. It owns the
// edge rows and the blocking-type classification.
type Store struct {
	db     *sql.DB
	rec    *audit.Recorder
	policy Policy
}

// NewStore returns a Store with the default edge policy.
func NewStore(db *sql.DB, rec *audit.Recorder) *Store {
	return &Store{db: db, rec: rec, policy: DefaultPolicy()}
}

// SetPolicy replaces the write-time edge validation policy.
func (s *Store) SetPolicy(p Policy) { s.policy = p }

// AddEdge upserts the edge: the same ordered pair replaces the type rather
// than duplicating the row.
func (s *Store) AddEdge(taskID, dependsOnID string, typ Type, actor string) error {
	if _, err := ParseType(string(typ)); err != nil {
		return err
	}
	if taskID == dependsOnID && !s.policy.AllowSelfReference {
		return fmt.Errorf("self-referential edge %s: %w", taskID, task.ErrInvalidArgument)
	}
	if !s.policy.AllowDanglingTarget {
		var exists int
		err := s.db.QueryRow(`SELECT 1 FROM tasks WHERE id = ?`, dependsOnID).Scan(&exists)
		if err == sql.ErrNoRows {
			return fmt.Errorf("edge target %s: %w", dependsOnID, task.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("check edge target: %w", err)
		}
	}

	_, err := s.db.Exec(`
		INSERT INTO dependencies (task_id, depends_on_id, dep_type, created_at)
		VALUES (?,?,?,?)
		ON CONFLICT(task_id, depends_on_id) DO UPDATE SET dep_type = excluded.dep_type`,
		taskID, dependsOnID, string(typ), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("add edge %s -> %s: %w", taskID, dependsOnID, err)
	}
	return s.rec.Record(taskID, audit.OpUpdate, "dependency", "", dependsOnID+" ("+string(typ)+")", actor)
}

// RemoveEdge deletes the edge if present. Removing an absent edge is not an
// error.
func (s *Store) RemoveEdge(taskID, dependsOnID, actor string) error {
	res, err := s.db.Exec(`DELETE FROM dependencies WHERE task_id = ? AND depends_on_id = ?`,
		taskID, dependsOnID)
	if err != nil {
		return fmt.Errorf("remove edge %s -> %s: %w", taskID, dependsOnID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return nil
	}
	return s.rec.Record(taskID, audit.OpUpdate, "dependency", dependsOnID, "", actor)
}

// ListBlocking returns the outgoing edges of taskID that gate readiness.
func (s *Store) ListBlocking(taskID string) ([]Edge, error) {
	return s.list(`SELECT task_id, depends_on_id, dep_type, created_at FROM dependencies
		WHERE task_id = ? AND dep_type IN (?,?) ORDER BY created_at ASC`,
		taskID, string(TypeBlocks), string(TypeParentChild))
}

// ListAll returns every outgoing edge of taskID regardless of type.
func (s *Store) ListAll(taskID string) ([]Edge, error) {
	return s.list(`SELECT task_id, depends_on_id, dep_type, created_at FROM dependencies
		WHERE task_id = ? ORDER BY created_at ASC`, taskID)
}

// ListInbound returns the edges that point at taskID, used for display.
func (s *Store) ListInbound(taskID string) ([]Edge, error) {
	return s.list(`SELECT task_id, depends_on_id, dep_type, created_at FROM dependencies
		WHERE depends_on_id = ? ORDER BY created_at ASC`, taskID)
}

func (s *Store) list(q string, args ...any) ([]Edge, error) {
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("list edges: %w", err)
	}
	defer rows.Close()

	var edges []Edge
	for rows.Next() {
		var e Edge
		var typ string
		if err := rows.Scan(&e.TaskID, &e.DependsOnID, &typ, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Type = Type(typ)
		edges = append(edges, e)
	}
	return edges, rows.Err()
}
