package audit

import (
	"context"
	"log/slog"

	"retailcore/internal/audit/metrics"
)

// Listener reacts to entity lifecycle events fired by the storage layer. Every
// reaction is best-effort: failures are logged and swallowed so an audit
// problem can never roll back or abort the business mutation that triggered
// it. Callers get no success signal and must not depend on one.
//
// Collaborators are plain owned references injected at construction; the
// storage layer receives the Listener when its stores are built.
type Listener struct {
	cache    OriginalStateCache
	writer   *Writer
	resolver *MetadataResolver
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// NewListener builds the engine's orchestrator. metrics may be nil.
func NewListener(
	cache OriginalStateCache,
	writer *Writer,
	resolver *MetadataResolver,
	logger *slog.Logger,
	m *metrics.Metrics,
) *Listener {
	return &Listener{
		cache:    cache,
		writer:   writer,
		resolver: resolver,
		logger:   logger,
		metrics:  m,
	}
}

// EntityLoaded captures the entity's state at load time so a later update can
// diff against it without an extra read. The raw snapshot is cached; masking
// happens at write time.
func (l *Listener) EntityLoaded(ctx context.Context, e Auditable) {
	defer l.recovered(ctx, "load")

	key := CacheKey{Entity: e.AuditEntityName(), ID: e.AuditEntityID()}
	if err := l.cache.Put(ctx, key, e.AuditSnapshot()); err != nil {
		l.logger.WarnContext(ctx, "failed to cache original state",
			"entity", key.Entity,
			"entity_id", key.ID,
			"error", err,
		)
	}
}

// EntityCreated records a CREATE with the new state only.
func (l *Listener) EntityCreated(ctx context.Context, e Auditable) {
	defer l.recovered(ctx, "create")

	snap := Mask(e.AuditSnapshot(), e.AuditSensitiveFields())
	l.write(ctx, e, ActionCreate, nil, snap)
}

// EntityUpdating records an UPDATE by diffing the cached original against the
// entity's current state. With no cached baseline the audit is skipped with a
// warning - a diff is never fabricated from guesswork, and the engine never
// re-reads storage to invent one.
func (l *Listener) EntityUpdating(ctx context.Context, e Auditable) {
	defer l.recovered(ctx, "update")

	key := CacheKey{Entity: e.AuditEntityName(), ID: e.AuditEntityID()}
	original, ok, err := l.cache.Take(ctx, key)
	if err != nil {
		l.logger.WarnContext(ctx, "failed to read original state, skipping update audit",
			"entity", key.Entity,
			"entity_id", key.ID,
			"error", err,
		)
		if l.metrics != nil {
			l.metrics.IncUpdatesSkipped()
		}
		return
	}
	if !ok {
		l.logger.WarnContext(ctx, "no original state cached, skipping update audit",
			"entity", key.Entity,
			"entity_id", key.ID,
		)
		if l.metrics != nil {
			l.metrics.IncUpdatesSkipped()
		}
		return
	}

	sensitive := e.AuditSensitiveFields()
	oldSnap := Mask(original, sensitive)
	newSnap := Mask(e.AuditSnapshot(), sensitive)
	l.write(ctx, e, ActionUpdate, oldSnap, newSnap)
}

// EntityDeleting records a DELETE with the pre-deletion state only, and drops
// any stale cached snapshot for the entity.
func (l *Listener) EntityDeleting(ctx context.Context, e Auditable) {
	defer l.recovered(ctx, "delete")

	key := CacheKey{Entity: e.AuditEntityName(), ID: e.AuditEntityID()}
	if err := l.cache.Discard(ctx, key); err != nil {
		l.logger.WarnContext(ctx, "failed to discard original state",
			"entity", key.Entity,
			"entity_id", key.ID,
			"error", err,
		)
	}

	snap := Mask(e.AuditSnapshot(), e.AuditSensitiveFields())
	l.write(ctx, e, ActionDelete, snap, nil)
}

func (l *Listener) write(ctx context.Context, e Auditable, action Action, oldSnap, newSnap Snapshot) {
	entityID := e.AuditEntityID()
	rec := &Record{
		EntityType:     e.AuditEntityName(),
		EntityID:       &entityID,
		Action:         action,
		OldValue:       oldSnap,
		NewValue:       newSnap,
		ActorUserID:    l.resolver.ActorUserID(ctx),
		ActorIP:        l.resolver.ClientIP(ctx),
		ActorUserAgent: l.resolver.UserAgent(ctx),
		CorrelationID:  l.resolver.CorrelationID(ctx),
	}

	if err := l.writer.Record(ctx, rec); err != nil {
		l.logger.ErrorContext(ctx, "failed to write audit record",
			"entity", rec.EntityType,
			"entity_id", entityID,
			"action", string(action),
			"error", err,
		)
	}
}

// recovered keeps a panic in any reaction (a broken AuditSnapshot
// implementation, say) from crossing back into business code.
func (l *Listener) recovered(ctx context.Context, reaction string) {
	if rec := recover(); rec != nil {
		if l.metrics != nil {
			l.metrics.IncListenerRecoveries()
		}
		l.logger.ErrorContext(ctx, "panic in audit lifecycle reaction",
			"reaction", reaction,
			"panic", rec,
		)
	}
}
