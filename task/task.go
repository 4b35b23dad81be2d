// Package task defines the fuda work item model and its SQLite persistence.
package task

import (
	"errors"
	"fmt"
	"time"
)

// Status represents the lifecycle state of a task.
type Status string

const (
	StatusBlocked    Status = "blocked"
	StatusReady      Status = "ready"
	StatusInProgress Status = "in_progress"
	StatusInReview   Status = "in_review"
	StatusDone       Status = "done"
	StatusFailed     Status = "failed"
)

// ParseStatus maps a raw string to a Status, rejecting unknown values.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusBlocked, StatusReady, StatusInProgress, StatusInReview, StatusDone, StatusFailed:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown status %q: %w", s, ErrInvalidArgument)
}

// Terminal reports whether no further transition is allowed from s.
func (s Status) Terminal() bool { return s == StatusDone }

// transitions is the status state machine. Claiming takes ready or blocked
// tasks to in_progress; in_review and failed may go back for rework.
var transitions = map[Status][]Status{
	StatusBlocked:    {StatusReady, StatusInProgress},
	StatusReady:      {StatusInProgress},
	StatusInProgress: {StatusInReview, StatusDone, StatusFailed},
	StatusInReview:   {StatusInProgress, StatusDone},
	StatusFailed:     {StatusInProgress, StatusDone},
	StatusDone:       nil,
}

// CanTransition reports whether the state machine permits from → to.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// WorkerType classifies what kind of spirit should take the task.
type WorkerType string

const (
	WorkerAny   WorkerType = "any"
	WorkerHuman WorkerType = "human"
	WorkerAgent WorkerType = "agent"
)

// ParseWorkerType maps a raw string to a WorkerType. Empty defaults to any.
func ParseWorkerType(s string) (WorkerType, error) {
	switch WorkerType(s) {
	case "":
		return WorkerAny, nil
	case WorkerAny, WorkerHuman, WorkerAgent:
		return WorkerType(s), nil
	}
	return "", fmt.Errorf("unknown worker type %q: %w", s, ErrInvalidArgument)
}

// Task is a unit of trackable work (a fuda).
type Task struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	Status           Status     `json:"status"`
	WorkerType       WorkerType `json:"worker_type"`
	AssignedSpiritID string     `json:"assigned_spirit_id,omitempty"`
	OutputRef        string     `json:"output_ref,omitempty"`
	RetryCount       int        `json:"retry_count"`
	FailureContext   string     `json:"failure_context,omitempty"`
	ParentTaskID     string     `json:"parent_task_id,omitempty"`
	GroupID          string     `json:"group_id,omitempty"`
	Priority         int        `json:"priority"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	DeletedAt        *time.Time `json:"deleted_at,omitempty"`
	DeletedBy        string     `json:"deleted_by,omitempty"`
	DeleteReason     string     `json:"delete_reason,omitempty"`
}

// Deleted reports whether the task is soft-deleted.
func (t *Task) Deleted() bool { return t.DeletedAt != nil }

// Error taxonomy shared across the engine. Callers match with errors.Is.
var (
	// ErrNotFound covers unknown IDs, soft-deleted IDs, and zero-match or
	// ambiguous prefix resolution.
	ErrNotFound = errors.New("task not found")

	// ErrInvalidArgument covers malformed enum literals and missing
	// required fields.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvalidStatus is returned when a claim or transition is attempted
	// from a state the machine does not permit.
	ErrInvalidStatus = errors.New("invalid status for operation")

	// ErrAlreadyInProgress is returned to the loser of a claim race.
	ErrAlreadyInProgress = errors.New("task already in progress")
)
