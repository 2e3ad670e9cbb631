// Package handler exposes the audit trail's read API. Snapshots served here
// were masked at write time; this layer never touches raw sensitive values.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"retailcore/internal/audit"
	"retailcore/internal/platform/middleware"
	"retailcore/internal/transport/http/shared"
	dErrors "retailcore/pkg/domain-errors"
)

// Service defines the read-side operations the handler needs.
type Service interface {
	Search(ctx context.Context, filter audit.Filter) (audit.Page, error)
	EntityHistory(ctx context.Context, entityType string, entityID int64) ([]audit.Record, error)
	Correlated(ctx context.Context, correlationID uuid.UUID) ([]audit.Record, error)
	ActorActivity(ctx context.Context, actorUserID int64, limit int) ([]audit.ActivityEntry, error)
}

// Handler handles audit query endpoints.
type Handler struct {
	logger       *slog.Logger
	service      Service
	jwtValidator middleware.TokenValidator
}

// New creates a new audit Handler.
func New(service Service, logger *slog.Logger, jwtValidator middleware.TokenValidator) *Handler {
	return &Handler{
		logger:       logger,
		service:      service,
		jwtValidator: jwtValidator,
	}
}

// Register registers the audit routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
		r.Get("/audit/records", h.handleSearch)
		r.Get("/audit/records/correlation/{id}", h.handleCorrelated)
		r.Get("/audit/entities/{type}/{id}", h.handleEntityHistory)
		r.Get("/audit/actors/{id}/activity", h.handleActorActivity)
	})
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	filter, err := filterFromQuery(r)
	if err != nil {
		h.logger.WarnContext(ctx, "invalid audit search request", "error", err)
		shared.WriteError(w, err)
		return
	}

	page, err := h.service.Search(ctx, filter)
	if err != nil {
		h.logger.ErrorContext(ctx, "audit search failed", "error", err)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "audit search failed"))
		return
	}

	shared.WriteJSON(w, http.StatusOK, map[string]any{
		"records": page.Records,
		"total":   page.Total,
	})
}

func (h *Handler) handleCorrelated(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	correlationID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid correlation id"))
		return
	}

	records, err := h.service.Correlated(ctx, correlationID)
	if err != nil {
		h.logger.ErrorContext(ctx, "correlation lookup failed",
			"correlation_id", correlationID.String(),
			"error", err,
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "correlation lookup failed"))
		return
	}

	shared.WriteJSON(w, http.StatusOK, map[string]any{"records": records})
}

func (h *Handler) handleEntityHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	entityType := chi.URLParam(r, "type")
	entityID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid entity id"))
		return
	}

	records, err := h.service.EntityHistory(ctx, entityType, entityID)
	if err != nil {
		if dErrors.Is(err, dErrors.CodeInvalidInput) {
			shared.WriteError(w, err)
			return
		}
		h.logger.ErrorContext(ctx, "entity history lookup failed",
			"entity_type", entityType,
			"entity_id", entityID,
			"error", err,
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "entity history lookup failed"))
		return
	}

	shared.WriteJSON(w, http.StatusOK, map[string]any{"records": records})
}

func (h *Handler) handleActorActivity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actorID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid actor id"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	entries, err := h.service.ActorActivity(ctx, actorID, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "actor activity lookup failed",
			"actor_user_id", actorID,
			"error", err,
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "actor activity lookup failed"))
		return
	}

	shared.WriteJSON(w, http.StatusOK, map[string]any{"activity": entries})
}

func filterFromQuery(r *http.Request) (audit.Filter, error) {
	q := r.URL.Query()
	filter := audit.Filter{
		EntityType: q.Get("entity_type"),
		Search:     q.Get("q"),
	}

	if action := q.Get("action"); action != "" {
		switch audit.Action(action) {
		case audit.ActionCreate, audit.ActionUpdate, audit.ActionDelete:
			filter.Action = audit.Action(action)
		default:
			return audit.Filter{}, dErrors.New(dErrors.CodeInvalidInput, "unknown action")
		}
	}
	if actor := q.Get("actor"); actor != "" {
		id, err := strconv.ParseInt(actor, 10, 64)
		if err != nil {
			return audit.Filter{}, dErrors.New(dErrors.CodeInvalidInput, "invalid actor id")
		}
		filter.ActorUserID = &id
	}
	if from := q.Get("from"); from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			return audit.Filter{}, dErrors.New(dErrors.CodeInvalidInput, "invalid from timestamp")
		}
		filter.From = t
	}
	if to := q.Get("to"); to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			return audit.Filter{}, dErrors.New(dErrors.CodeInvalidInput, "invalid to timestamp")
		}
		filter.To = t
	}
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))
	filter.Offset, _ = strconv.Atoi(q.Get("offset"))

	return filter, nil
}
