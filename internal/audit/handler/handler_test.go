package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retailcore/internal/audit"
	"retailcore/internal/platform/middleware"
)

type staticValidator struct{ userID int64 }

func (v staticValidator) ValidateToken(string) (*middleware.TokenClaims, error) {
	return &middleware.TokenClaims{UserID: v.userID, Role: "admin"}, nil
}

func newTestServer(t *testing.T) (*httptest.Server, *audit.InMemoryStore) {
	t.Helper()

	store := audit.NewInMemoryStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := New(audit.NewService(store), logger, staticValidator{userID: 7})

	r := chi.NewRouter()
	h.Register(r)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, store
}

func get(t *testing.T, srv *httptest.Server, path string) (*http.Response, map[string]any) {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, srv.URL+path, nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer test-token")

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp, body
}

func seed(t *testing.T, store *audit.InMemoryStore, rec audit.Record) {
	t.Helper()
	require.NoError(t, store.Append(context.Background(), &rec))
}

func TestHandlerAuth(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := srv.Client().Get(srv.URL + "/audit/records")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHandleSearch(t *testing.T) {
	srv, store := newTestServer(t)

	entityID := int64(1)
	seed(t, store, audit.Record{
		EntityType: "Customer", EntityID: &entityID, Action: audit.ActionCreate,
		NewValue: audit.Snapshot{"name": "Ada"},
	})
	seed(t, store, audit.Record{
		EntityType: "Product", EntityID: &entityID, Action: audit.ActionUpdate,
		OldValue: audit.Snapshot{"stock_qty": 10},
		NewValue: audit.Snapshot{"stock_qty": 8},
	})

	t.Run("returns records and total", func(t *testing.T) {
		resp, body := get(t, srv, "/audit/records")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.EqualValues(t, 2, body["total"])
		assert.Len(t, body["records"], 2)
	})

	t.Run("filters by entity type", func(t *testing.T) {
		resp, body := get(t, srv, "/audit/records?entity_type=Customer")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.EqualValues(t, 1, body["total"])
	})

	t.Run("rejects an unknown action", func(t *testing.T) {
		resp, body := get(t, srv, "/audit/records?action=upsert")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "invalid_input", body["error"])
	})

	t.Run("rejects a malformed timestamp", func(t *testing.T) {
		resp, _ := get(t, srv, "/audit/records?from=yesterday")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestHandleEntityHistory(t *testing.T) {
	srv, store := newTestServer(t)

	entityID := int64(42)
	seed(t, store, audit.Record{
		EntityType: "Customer", EntityID: &entityID, Action: audit.ActionCreate,
		NewValue: audit.Snapshot{"name": "Ada"},
	})

	t.Run("returns the entity's records", func(t *testing.T) {
		resp, body := get(t, srv, "/audit/entities/Customer/42")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Len(t, body["records"], 1)
	})

	t.Run("rejects a non-numeric id", func(t *testing.T) {
		resp, _ := get(t, srv, "/audit/entities/Customer/abc")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestHandleCorrelated(t *testing.T) {
	srv, store := newTestServer(t)

	entityID := int64(1)
	correlation := uuid.New()
	seed(t, store, audit.Record{
		EntityType: "Order", EntityID: &entityID, Action: audit.ActionCreate,
		CorrelationID: &correlation,
	})

	t.Run("returns correlated records", func(t *testing.T) {
		resp, body := get(t, srv, "/audit/records/correlation/"+correlation.String())
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Len(t, body["records"], 1)
	})

	t.Run("rejects a malformed id", func(t *testing.T) {
		resp, _ := get(t, srv, "/audit/records/correlation/not-a-uuid")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestHandleActorActivity(t *testing.T) {
	srv, store := newTestServer(t)

	entityID := int64(1)
	actor := int64(7)
	ua := "curl/8.4.0"
	seed(t, store, audit.Record{
		EntityType: "Customer", EntityID: &entityID, Action: audit.ActionUpdate,
		OldValue: audit.Snapshot{"name": "Ada"}, NewValue: audit.Snapshot{"name": "Ada L."},
		ActorUserID: &actor, ActorUserAgent: &ua,
	})

	resp, body := get(t, srv, "/audit/actors/7/activity")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["activity"], 1)
}
