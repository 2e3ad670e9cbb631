// Package handler exposes the customer CRUD API.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"retailcore/internal/customer"
	"retailcore/internal/customer/service"
	"retailcore/internal/platform/middleware"
	"retailcore/internal/transport/http/shared"
	dErrors "retailcore/pkg/domain-errors"
)

// Service defines the customer operations the handler needs.
type Service interface {
	Create(ctx context.Context, params service.CreateParams) (*customer.Customer, error)
	Get(ctx context.Context, id int64) (*customer.Customer, error)
	Update(ctx context.Context, id int64, params service.UpdateParams) (*customer.Customer, error)
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, limit, offset int) ([]*customer.Customer, error)
	VerifyPin(ctx context.Context, id int64, pin string) error
}

// Handler handles customer endpoints.
type Handler struct {
	logger       *slog.Logger
	service      Service
	jwtValidator middleware.TokenValidator
}

// New creates a new customer Handler.
func New(service Service, logger *slog.Logger, jwtValidator middleware.TokenValidator) *Handler {
	return &Handler{
		logger:       logger,
		service:      service,
		jwtValidator: jwtValidator,
	}
}

// Register registers the customer routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
		r.Post("/customers", h.handleCreate)
		r.Get("/customers", h.handleList)
		r.Get("/customers/{id}", h.handleGet)
		r.Put("/customers/{id}", h.handleUpdate)
		r.Delete("/customers/{id}", h.handleDelete)
		r.Post("/customers/{id}/verify-pin", h.handleVerifyPin)
	})
}

type createRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
	Pin   string `json:"pin"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	c, err := h.service.Create(ctx, service.CreateParams{
		Name:  req.Name,
		Email: req.Email,
		Phone: req.Phone,
		Pin:   req.Pin,
	})
	if err != nil {
		h.writeServiceError(ctx, w, "create customer failed", err)
		return
	}

	shared.WriteJSON(w, http.StatusCreated, c)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := idParam(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	c, err := h.service.Get(ctx, id)
	if err != nil {
		h.writeServiceError(ctx, w, "get customer failed", err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, c)
}

type updateRequest struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
	Phone *string `json:"phone"`
	Pin   *string `json:"pin"`
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := idParam(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	c, err := h.service.Update(ctx, id, service.UpdateParams{
		Name:  req.Name,
		Email: req.Email,
		Phone: req.Phone,
		Pin:   req.Pin,
	})
	if err != nil {
		h.writeServiceError(ctx, w, "update customer failed", err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := idParam(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	if err := h.service.Delete(ctx, id); err != nil {
		h.writeServiceError(ctx, w, "delete customer failed", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	customers, err := h.service.List(ctx, limit, offset)
	if err != nil {
		h.writeServiceError(ctx, w, "list customers failed", err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, map[string]any{"customers": customers})
}

type verifyPinRequest struct {
	Pin string `json:"pin"`
}

func (h *Handler) handleVerifyPin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := idParam(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var req verifyPinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	if err := h.service.VerifyPin(ctx, id, req.Pin); err != nil {
		h.writeServiceError(ctx, w, "pin verification failed", err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg, "error", err)
	}
	shared.WriteError(w, err)
}

func idParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "invalid customer id")
	}
	return id, nil
}
