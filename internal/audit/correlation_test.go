package audit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCorrelationContext(t *testing.T) {
	t.Run("start binds a fresh identifier", func(t *testing.T) {
		ctx, id := StartCorrelation(context.Background())

		require.NotEqual(t, uuid.Nil, id)
		got, ok := CorrelationID(ctx)
		require.True(t, ok)
		assert.Equal(t, id, got)
		assert.True(t, HasCorrelation(ctx))
	})

	t.Run("unset context has no identifier", func(t *testing.T) {
		_, ok := CorrelationID(context.Background())
		assert.False(t, ok)
		assert.False(t, HasCorrelation(context.Background()))
	})

	t.Run("starting again replaces the prior identifier", func(t *testing.T) {
		ctx, first := StartCorrelation(context.Background())
		ctx, second := StartCorrelation(ctx)

		require.NotEqual(t, first, second)
		got, ok := CorrelationID(ctx)
		require.True(t, ok)
		assert.Equal(t, second, got)
	})

	t.Run("clear unbinds the identifier", func(t *testing.T) {
		ctx, _ := StartCorrelation(context.Background())
		ctx = ClearCorrelation(ctx)

		assert.False(t, HasCorrelation(ctx))
	})

	t.Run("clear without a bound identifier is a no-op", func(t *testing.T) {
		ctx := context.Background()
		assert.Equal(t, ctx, ClearCorrelation(ctx))
	})

	t.Run("sequential operations get distinct identifiers", func(t *testing.T) {
		_, first := StartCorrelation(context.Background())
		_, second := StartCorrelation(context.Background())
		assert.NotEqual(t, first, second)
	})
}

func TestCorrelationMiddleware(t *testing.T) {
	newHandler := func(sawCorrelation *bool, sawID *uuid.UUID) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := CorrelationID(r.Context())
			*sawCorrelation = ok
			*sawID = id
			w.WriteHeader(http.StatusNoContent)
		})
	}

	t.Run("mutating request opens a correlation scope", func(t *testing.T) {
		var (
			saw bool
			id  uuid.UUID
		)
		mw := Correlation(nil)(newHandler(&saw, &id))

		rec := httptest.NewRecorder()
		mw.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/customers", nil))

		require.True(t, saw)
		assert.Equal(t, id.String(), rec.Header().Get("X-Correlation-ID"))
	})

	t.Run("read request does not open a scope", func(t *testing.T) {
		var (
			saw bool
			id  uuid.UUID
		)
		mw := Correlation(nil)(newHandler(&saw, &id))

		rec := httptest.NewRecorder()
		mw.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/customers/1", nil))

		assert.False(t, saw)
		assert.Empty(t, rec.Header().Get("X-Correlation-ID"))
	})

	t.Run("excluded path prefixes never open a scope", func(t *testing.T) {
		var (
			saw bool
			id  uuid.UUID
		)
		mw := Correlation([]string{"/auth/", "/login"})(newHandler(&saw, &id))

		rec := httptest.NewRecorder()
		mw.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/token", nil))

		assert.False(t, saw)
	})

	t.Run("each request gets its own identifier", func(t *testing.T) {
		var (
			saw bool
			id  uuid.UUID
		)
		mw := Correlation(nil)(newHandler(&saw, &id))

		mw.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/customers", nil))
		first := id
		mw.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/customers", nil))

		assert.NotEqual(t, first, id)
	})
}
