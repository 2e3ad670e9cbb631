// Package audit implements the change-capture engine: it reacts to entity
// lifecycle events fired by the storage layer, reconstructs before/after
// snapshots, masks sensitive fields, correlates every write belonging to one
// request, and appends immutable audit records without ever disturbing the
// business write that triggered it.
package audit

import (
	"time"

	"github.com/google/uuid"
)

// Action identifies the mutation kind an audit record describes.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// RedactionMarker replaces sensitive field values before persistence. Masking
// happens at write time, so no read path ever sees the raw value.
const RedactionMarker = "***MASKED***"

// Snapshot is an entity's observable state at one point in time, keyed by
// field name. Persistence and export serialize it with key-sorted JSON so the
// stored form is deterministic.
type Snapshot map[string]any

// Clone returns a shallow copy. Values are treated as immutable scalars;
// entities capture related records by identifier, not by reference.
func (s Snapshot) Clone() Snapshot {
	if s == nil {
		return nil
	}
	out := make(Snapshot, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Record is one immutable audit trail entry. Once appended it is never
// updated or deleted by application code.
type Record struct {
	ID             int64      `json:"id"`
	EntityType     string     `json:"entity_type"`
	EntityID       *int64     `json:"entity_id"`
	Action         Action     `json:"action"`
	OldValue       Snapshot   `json:"old_value,omitempty"`
	NewValue       Snapshot   `json:"new_value,omitempty"`
	ActorUserID    *int64     `json:"actor_user_id,omitempty"`
	ActorIP        *string    `json:"actor_ip,omitempty"`
	ActorUserAgent *string    `json:"actor_user_agent,omitempty"`
	CorrelationID  *uuid.UUID `json:"correlation_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Auditable is the contract a mutable entity implements to participate in the
// audit trail. Stores call the Listener's lifecycle hooks for any entity
// implementing it.
//
// AuditSnapshot must capture related records by identifier only; traversing
// relations from inside a lifecycle hook invites re-entrant events and N+1
// loads.
type Auditable interface {
	AuditEntityName() string
	AuditEntityID() int64
	AuditSnapshot() Snapshot
	AuditSensitiveFields() []string
}
