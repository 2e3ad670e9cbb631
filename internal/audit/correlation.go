package audit

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// Correlation identity travels on the request context, never in goroutine- or
// thread-local state: a pooled worker picking up unrelated work gets a fresh
// context and therefore cannot inherit a stale identifier.

type correlationKey struct{}

// ContextKeyCorrelation is exported for tests that build contexts directly.
var ContextKeyCorrelation = correlationKey{}

// StartCorrelation binds a fresh correlation identifier to the context and
// returns both. Starting again before a clear silently replaces the prior
// value; callers bracket exactly one logical operation per id.
func StartCorrelation(ctx context.Context) (context.Context, uuid.UUID) {
	id := uuid.New()
	return context.WithValue(ctx, ContextKeyCorrelation, id), id
}

// CorrelationID returns the currently bound identifier, if any.
func CorrelationID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(ContextKeyCorrelation).(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

// ClearCorrelation unbinds the identifier. Clearing when nothing is bound is
// a no-op.
func ClearCorrelation(ctx context.Context) context.Context {
	if _, ok := CorrelationID(ctx); !ok {
		return ctx
	}
	return context.WithValue(ctx, ContextKeyCorrelation, uuid.Nil)
}

// HasCorrelation reports whether an identifier is currently bound.
func HasCorrelation(ctx context.Context) bool {
	_, ok := CorrelationID(ctx)
	return ok
}

// mutatingMethods are the HTTP verbs that open a correlation scope.
var mutatingMethods = map[string]bool{
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
}

// Correlation is the request interceptor: it opens a correlation scope for
// mutating verbs, excluding the given path prefixes (authentication
// endpoints). The scope dies with the request context on every exit path -
// normal return, panic, or early write - so identifiers cannot leak into a
// later request on a reused connection or worker.
func Correlation(skipPrefixes []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !mutatingMethods[r.Method] || hasPrefix(r.URL.Path, skipPrefixes) {
				next.ServeHTTP(w, r)
				return
			}

			ctx, id := StartCorrelation(r.Context())
			w.Header().Set("X-Correlation-ID", id.String())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func hasPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
