package audit

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"retailcore/pkg/requestcontext"
)

// MetadataResolver extracts actor and request metadata from the ambient
// context. Every accessor degrades to nil instead of failing: a system job or
// an unauthenticated request simply produces an audit record without actor
// fields.
type MetadataResolver struct {
	logger *slog.Logger
}

func NewMetadataResolver(logger *slog.Logger) *MetadataResolver {
	return &MetadataResolver{logger: logger}
}

// ActorUserID returns the authenticated staff user's ID, or nil for
// system-initiated mutations.
func (r *MetadataResolver) ActorUserID(ctx context.Context) *int64 {
	userID, ok := requestcontext.ActorUserID(ctx)
	if !ok {
		if r.logger != nil {
			r.logger.DebugContext(ctx, "no actor in context, recording as system mutation")
		}
		return nil
	}
	return &userID
}

// ClientIP returns the client address resolved by the metadata middleware
// (forwarded-for first hop, then transport address), or nil outside an HTTP
// request.
func (r *MetadataResolver) ClientIP(ctx context.Context) *string {
	if ip := requestcontext.ClientIP(ctx); ip != "" {
		return &ip
	}
	return nil
}

// UserAgent returns the raw User-Agent header value, or nil.
func (r *MetadataResolver) UserAgent(ctx context.Context) *string {
	if ua := requestcontext.UserAgent(ctx); ua != "" {
		return &ua
	}
	return nil
}

// CorrelationID returns the request's correlation identifier. When no
// correlation scope was opened but the request carries an active trace span,
// the span's TraceID serves as a stable fallback so related records still
// group together.
func (r *MetadataResolver) CorrelationID(ctx context.Context) *uuid.UUID {
	if id, ok := CorrelationID(ctx); ok {
		return &id
	}

	if span := trace.SpanContextFromContext(ctx); span.HasTraceID() {
		traceID := span.TraceID()
		id := uuid.UUID(traceID)
		return &id
	}
	return nil
}
