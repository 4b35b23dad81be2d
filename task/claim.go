package task

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fudaworks/fuda/audit"
)

// Claim hands the task to a spirit: one conditional UPDATE scoped by ID and
// claimable status, so two workers racing for the same task cannot both win.
// The loser sees ErrAlreadyInProgress; terminal or in-review tasks report
// ErrInvalidStatus.
func (s *Store) Claim(id, spiritID string) (*Task, error) {
	if spiritID == "" {
		return nil, fmt.Errorf("spirit id must not be empty: %w", ErrInvalidArgument)
	}
	prev, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	res, err := s.db.Exec(`
		UPDATE tasks SET status=?, assigned_spirit_id=?, updated_at=?
		WHERE id=? AND deleted_at IS NULL AND status IN (?,?)`,
		string(StatusInProgress), spiritID, now,
		id, string(StatusReady), string(StatusBlocked),
	)
	if err != nil {
		return nil, fmt.Errorf("claim task: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, s.classifyClaimFailure(id)
	}

	if err := s.rec.Record(id, audit.OpUpdate, "status", string(prev.Status), string(StatusInProgress), spiritID); err != nil {
		return nil, err
	}
	if err := s.rec.Record(id, audit.OpUpdate, "assigned_spirit_id", prev.AssignedSpiritID, spiritID, spiritID); err != nil {
		return nil, err
	}
	return s.Get(id)
}

// classifyClaimFailure re-reads the row to report why the conditional update
// matched nothing.
func (s *Store) classifyClaimFailure(id string) error {
	cur, err := s.Get(id)
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("task %s: %w", id, ErrNotFound)
		}
		return err
	}
	if cur.Status == StatusInProgress {
		return fmt.Errorf("task %s: %w", id, ErrAlreadyInProgress)
	}
	return fmt.Errorf("task %s has status %s: %w", id, cur.Status, ErrInvalidStatus)
}
