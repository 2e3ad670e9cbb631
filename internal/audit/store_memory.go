package audit

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryStore keeps audit records in memory for unit tests and dev mode.
type InMemoryStore struct {
	mu      sync.RWMutex
	records []Record
	nextID  int64
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{nextID: 1}
}

var _ Store = (*InMemoryStore)(nil)

func (s *InMemoryStore) Append(_ context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec.ID = s.nextID
	s.nextID++
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	s.records = append(s.records, *rec)
	return nil
}

func (s *InMemoryStore) Search(_ context.Context, filter Filter) (Page, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []Record
	for _, rec := range s.records {
		if matches(rec, filter) {
			matched = append(matched, rec)
		}
	}

	// Newest first.
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt) ||
			(matched[i].CreatedAt.Equal(matched[j].CreatedAt) && matched[i].ID > matched[j].ID)
	})

	total := len(matched)
	start := filter.Offset
	if start > total {
		start = total
	}
	end := total
	if filter.Limit > 0 && start+filter.Limit < end {
		end = start + filter.Limit
	}

	return Page{Records: append([]Record{}, matched[start:end]...), Total: total}, nil
}

func (s *InMemoryStore) ListByEntity(_ context.Context, entityType string, entityID int64) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Record
	for i := len(s.records) - 1; i >= 0; i-- {
		rec := s.records[i]
		if rec.EntityType == entityType && rec.EntityID != nil && *rec.EntityID == entityID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *InMemoryStore) ListByCorrelation(_ context.Context, correlationID uuid.UUID) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Record
	for _, rec := range s.records {
		if rec.CorrelationID != nil && *rec.CorrelationID == correlationID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *InMemoryStore) ListByActor(_ context.Context, actorUserID int64, limit int) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Record
	for i := len(s.records) - 1; i >= 0; i-- {
		rec := s.records[i]
		if rec.ActorUserID != nil && *rec.ActorUserID == actorUserID {
			out = append(out, rec)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func matches(rec Record, filter Filter) bool {
	if filter.EntityType != "" && rec.EntityType != filter.EntityType {
		return false
	}
	if filter.Action != "" && rec.Action != filter.Action {
		return false
	}
	if filter.ActorUserID != nil && (rec.ActorUserID == nil || *rec.ActorUserID != *filter.ActorUserID) {
		return false
	}
	if !filter.From.IsZero() && rec.CreatedAt.Before(filter.From) {
		return false
	}
	if !filter.To.IsZero() && rec.CreatedAt.After(filter.To) {
		return false
	}
	if filter.Search != "" {
		needle := strings.ToLower(filter.Search)
		if !strings.Contains(strings.ToLower(rec.EntityType), needle) &&
			!snapshotContains(rec.OldValue, needle) &&
			!snapshotContains(rec.NewValue, needle) {
			return false
		}
	}
	return true
}

func snapshotContains(snap Snapshot, needle string) bool {
	if snap == nil {
		return false
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		return false
	}
	return strings.Contains(strings.ToLower(string(payload)), needle)
}
