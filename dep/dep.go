// Package dep stores directed dependency edges between tasks and expands
// cycle-safe views of the dependency subgraph.
package dep

import (
	"fmt"
	"time"

	"github.com/fudaworks/fuda/task"
)

// Type classifies a dependency edge. Only blocks and parent-child gate
// readiness; the other two are informational.
type Type string

const (
	TypeBlocks         Type = "blocks"
	TypeParentChild    Type = "parent-child"
	TypeRelated        Type = "related"
	TypeDiscoveredFrom Type = "discovered-from"
)

// ParseType maps a raw string to a Type, rejecting unknown values.
func ParseType(s string) (Type, error) {
	switch Type(s) {
	case TypeBlocks, TypeParentChild, TypeRelated, TypeDiscoveredFrom:
		return Type(s), nil
	}
	return "", fmt.Errorf("unknown dependency type %q: %w", s, task.ErrInvalidArgument)
}

// Blocking reports whether edges of this type gate readiness.
func (t Type) Blocking() bool {
	return t == TypeBlocks || t == TypeParentChild
}

// Edge is a directed dependency: TaskID depends on DependsOnID. Unique per
// ordered pair; re-inserting the pair replaces the type.
type Edge struct {
	TaskID      string    `json:"task_id"`
	DependsOnID string    `json:"depends_on_id"`
	Type        Type      `json:"type"`
	CreatedAt   time.Time `json:"created_at"`
}

// Policy names the write-time edge validations. Self-referential edges and
// edges whose target does not exist are both permitted by default.
type Policy struct {
	AllowSelfReference  bool
	AllowDanglingTarget bool
}

// DefaultPolicy permits everything.
func DefaultPolicy() Policy {
	return Policy{AllowSelfReference: true, AllowDanglingTarget: true}
}
