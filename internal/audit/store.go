package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Filter narrows an audit search. Zero values mean "no constraint".
type Filter struct {
	EntityType  string
	Action      Action
	ActorUserID *int64
	// Search matches free text against the entity type and the snapshot JSON.
	Search string
	From   time.Time
	To     time.Time
	Limit  int
	Offset int
}

// Page is one page of search results with the unpaginated total.
type Page struct {
	Records []Record
	Total   int
}

// Store persists immutable audit records. Implementations are append-only:
// no operation updates or deletes a record.
type Store interface {
	// Append persists one record, assigning ID and CreatedAt at write time.
	Append(ctx context.Context, rec *Record) error
	// Search returns filtered, paginated records ordered newest first.
	Search(ctx context.Context, filter Filter) (Page, error)
	// ListByEntity returns the full history of one entity, newest first.
	ListByEntity(ctx context.Context, entityType string, entityID int64) ([]Record, error)
	// ListByCorrelation returns every record produced during one logical
	// operation, oldest first (the order the mutations happened).
	ListByCorrelation(ctx context.Context, correlationID uuid.UUID) ([]Record, error)
	// ListByActor returns a user's most recent activity, newest first.
	ListByActor(ctx context.Context, actorUserID int64, limit int) ([]Record, error)
}
