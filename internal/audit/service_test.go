package audit

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "retailcore/pkg/domain-errors"
)

const chromeUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

func newServiceFixture(t *testing.T) (*Service, *InMemoryStore) {
	t.Helper()
	store := NewInMemoryStore()
	return NewService(store), store
}

func TestServiceSearch(t *testing.T) {
	ctx := context.Background()
	service, store := newServiceFixture(t)

	for i := range 60 {
		rec := Record{EntityType: "Customer", EntityID: ptr(int64(i)), Action: ActionCreate}
		require.NoError(t, store.Append(ctx, &rec))
	}

	t.Run("defaults the page size", func(t *testing.T) {
		page, err := service.Search(ctx, Filter{})
		require.NoError(t, err)
		assert.Len(t, page.Records, 50)
		assert.Equal(t, 60, page.Total)
	})

	t.Run("caps oversized page requests", func(t *testing.T) {
		page, err := service.Search(ctx, Filter{Limit: 5000})
		require.NoError(t, err)
		assert.Len(t, page.Records, 50)
	})
}

func TestServiceEntityHistory(t *testing.T) {
	ctx := context.Background()
	service, store := newServiceFixture(t)

	rec := Record{EntityType: "Customer", EntityID: ptr(int64(1)), Action: ActionCreate}
	require.NoError(t, store.Append(ctx, &rec))

	t.Run("returns the entity's records", func(t *testing.T) {
		records, err := service.EntityHistory(ctx, "Customer", 1)
		require.NoError(t, err)
		assert.Len(t, records, 1)
	})

	t.Run("rejects an empty entity type", func(t *testing.T) {
		_, err := service.EntityHistory(ctx, "", 1)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func TestServiceCorrelated(t *testing.T) {
	ctx := context.Background()
	service, store := newServiceFixture(t)

	id := uuid.New()
	for _, action := range []Action{ActionCreate, ActionUpdate} {
		rec := Record{EntityType: "Order", EntityID: ptr(int64(1)), Action: action, CorrelationID: &id}
		require.NoError(t, store.Append(ctx, &rec))
	}

	t.Run("groups records in mutation order", func(t *testing.T) {
		records, err := service.Correlated(ctx, id)
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, ActionCreate, records[0].Action)
	})

	t.Run("rejects the zero id", func(t *testing.T) {
		_, err := service.Correlated(ctx, uuid.Nil)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func TestServiceActorActivity(t *testing.T) {
	ctx := context.Background()
	service, store := newServiceFixture(t)

	actor := int64(7)
	rec := Record{
		EntityType: "Customer", EntityID: ptr(int64(1)), Action: ActionUpdate,
		ActorUserID: &actor, ActorUserAgent: ptr(chromeUA),
	}
	require.NoError(t, store.Append(ctx, &rec))
	bare := Record{EntityType: "Customer", EntityID: ptr(int64(2)), Action: ActionCreate, ActorUserID: &actor}
	require.NoError(t, store.Append(ctx, &bare))

	entries, err := service.ActorActivity(ctx, actor, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	t.Run("summarizes the user agent", func(t *testing.T) {
		assert.Contains(t, entries[1].ClientSummary, "Chrome")
		assert.Contains(t, entries[1].ClientSummary, "on Windows")
	})

	t.Run("missing user agent yields no summary", func(t *testing.T) {
		assert.Empty(t, entries[0].ClientSummary)
	})
}

func TestServiceTimeRange(t *testing.T) {
	ctx := context.Background()
	service, _ := newServiceFixture(t)

	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	_, err := service.TimeRange(ctx, from, from.Add(-time.Hour), 10, 0)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestFlattenRows(t *testing.T) {
	actor := int64(7)
	ip := "203.0.113.9"
	correlation := uuid.New()
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	records := []Record{
		{
			ID: 11, EntityType: "Customer", EntityID: ptr(int64(1)), Action: ActionUpdate,
			OldValue:    Snapshot{"name": "Ada", "email": "ada@example.com"},
			NewValue:    Snapshot{"name": "Ada L.", "email": "ada@example.com"},
			ActorUserID: &actor, ActorIP: &ip, CorrelationID: &correlation, CreatedAt: created,
		},
		{ID: 12, EntityType: "Product", Action: ActionCreate, CreatedAt: created},
	}

	rows := FlattenRows(records)
	require.Len(t, rows, 2)

	t.Run("snapshot fields flatten in key order", func(t *testing.T) {
		assert.Equal(t, []string{"email=ada@example.com", "name=Ada"}, rows[0].OldValues)
		assert.Equal(t, []string{"email=ada@example.com", "name=Ada L."}, rows[0].NewValues)
	})

	t.Run("identity fields are stringified", func(t *testing.T) {
		assert.Equal(t, int64(11), rows[0].RecordID)
		assert.Equal(t, "1", rows[0].EntityID)
		assert.Equal(t, "7", rows[0].ActorUserID)
		assert.Equal(t, ip, rows[0].ActorIP)
		assert.Equal(t, correlation.String(), rows[0].CorrelationID)
	})

	t.Run("absent fields stay empty", func(t *testing.T) {
		assert.Empty(t, rows[1].EntityID)
		assert.Empty(t, rows[1].ActorUserID)
		assert.Empty(t, rows[1].CorrelationID)
		assert.Nil(t, rows[1].OldValues)
		assert.Nil(t, rows[1].NewValues)
	})
}
