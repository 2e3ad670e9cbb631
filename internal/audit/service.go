package audit

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/mssola/useragent"

	dErrors "retailcore/pkg/domain-errors"
)

// Service is the read side of the audit trail: filtered search, correlation
// grouping, per-actor activity, and export flattening. Snapshots come back
// exactly as persisted - masked at write time, so no raw sensitive value can
// surface here.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Search returns filtered, paginated records, newest first.
func (s *Service) Search(ctx context.Context, filter Filter) (Page, error) {
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}
	page, err := s.store.Search(ctx, filter)
	if err != nil {
		return Page{}, fmt.Errorf("search audit trail: %w", err)
	}
	return page, nil
}

// EntityHistory returns every recorded mutation of one entity, newest first.
func (s *Service) EntityHistory(ctx context.Context, entityType string, entityID int64) ([]Record, error) {
	if entityType == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "entity type is required")
	}
	records, err := s.store.ListByEntity(ctx, entityType, entityID)
	if err != nil {
		return nil, fmt.Errorf("load entity history: %w", err)
	}
	return records, nil
}

// Correlated reconstructs everything that happened in one logical operation,
// in mutation order.
func (s *Service) Correlated(ctx context.Context, correlationID uuid.UUID) ([]Record, error) {
	if correlationID == uuid.Nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "correlation id is required")
	}
	records, err := s.store.ListByCorrelation(ctx, correlationID)
	if err != nil {
		return nil, fmt.Errorf("load correlated records: %w", err)
	}
	return records, nil
}

// ActivityEntry is one record in a user's activity timeline, with the raw
// user agent distilled into something a reviewer can read.
type ActivityEntry struct {
	Record        Record `json:"record"`
	ClientSummary string `json:"client_summary,omitempty"`
}

// ActorActivity returns a user's most recent mutations, newest first.
func (s *Service) ActorActivity(ctx context.Context, actorUserID int64, limit int) ([]ActivityEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	records, err := s.store.ListByActor(ctx, actorUserID, limit)
	if err != nil {
		return nil, fmt.Errorf("load actor activity: %w", err)
	}

	entries := make([]ActivityEntry, 0, len(records))
	for _, rec := range records {
		entries = append(entries, ActivityEntry{
			Record:        rec,
			ClientSummary: clientSummary(rec.ActorUserAgent),
		})
	}
	return entries, nil
}

// TimeRange returns records within [from, to], newest first.
func (s *Service) TimeRange(ctx context.Context, from, to time.Time, limit, offset int) (Page, error) {
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return Page{}, dErrors.New(dErrors.CodeInvalidInput, "time range end precedes start")
	}
	return s.Search(ctx, Filter{From: from, To: to, Limit: limit, Offset: offset})
}

// clientSummary turns a raw User-Agent header into "Browser version on OS".
func clientSummary(rawUA *string) string {
	if rawUA == nil || *rawUA == "" {
		return ""
	}
	ua := useragent.New(*rawUA)
	name, version := ua.Browser()
	if name == "" {
		return ""
	}
	summary := name
	if version != "" {
		summary += " " + version
	}
	if os := ua.OS(); os != "" {
		summary += " on " + os
	}
	return summary
}

// -----------------------------------------------------------------------------
// Export flattening
// -----------------------------------------------------------------------------

// ExportRow is the flat row shape handed to the report export collaborator.
// Snapshot fields appear as "field=value" pairs in key order so exports are
// stable across runs.
type ExportRow struct {
	RecordID      int64
	EntityType    string
	EntityID      string
	Action        string
	ActorUserID   string
	ActorIP       string
	CorrelationID string
	CreatedAt     time.Time
	OldValues     []string
	NewValues     []string
}

// FlattenRows converts records to export rows.
func FlattenRows(records []Record) []ExportRow {
	rows := make([]ExportRow, 0, len(records))
	for _, rec := range records {
		row := ExportRow{
			RecordID:   rec.ID,
			EntityType: rec.EntityType,
			Action:     string(rec.Action),
			CreatedAt:  rec.CreatedAt,
			OldValues:  flattenSnapshot(rec.OldValue),
			NewValues:  flattenSnapshot(rec.NewValue),
		}
		if rec.EntityID != nil {
			row.EntityID = fmt.Sprintf("%d", *rec.EntityID)
		}
		if rec.ActorUserID != nil {
			row.ActorUserID = fmt.Sprintf("%d", *rec.ActorUserID)
		}
		if rec.ActorIP != nil {
			row.ActorIP = *rec.ActorIP
		}
		if rec.CorrelationID != nil {
			row.CorrelationID = rec.CorrelationID.String()
		}
		rows = append(rows, row)
	}
	return rows
}

func flattenSnapshot(snap Snapshot) []string {
	if len(snap) == 0 {
		return nil
	}
	keys := make([]string, 0, len(snap))
	for k := range snap {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, fmt.Sprintf("%s=%v", k, snap[k]))
	}
	return out
}
