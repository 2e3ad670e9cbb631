// Package handler exposes the product catalog API.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"retailcore/internal/inventory"
	"retailcore/internal/inventory/service"
	"retailcore/internal/platform/middleware"
	"retailcore/internal/transport/http/shared"
	dErrors "retailcore/pkg/domain-errors"
)

// Service defines the catalog operations the handler needs.
type Service interface {
	Create(ctx context.Context, params service.CreateParams) (*inventory.Product, error)
	Get(ctx context.Context, id int64) (*inventory.Product, error)
	Update(ctx context.Context, id int64, params service.UpdateParams) (*inventory.Product, error)
	AdjustStock(ctx context.Context, id int64, delta int) (*inventory.Product, error)
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, limit, offset int) ([]*inventory.Product, error)
}

// Handler handles product endpoints.
type Handler struct {
	logger       *slog.Logger
	service      Service
	jwtValidator middleware.TokenValidator
}

// New creates a new inventory Handler.
func New(service Service, logger *slog.Logger, jwtValidator middleware.TokenValidator) *Handler {
	return &Handler{
		logger:       logger,
		service:      service,
		jwtValidator: jwtValidator,
	}
}

// Register registers the product routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
		r.Post("/products", h.handleCreate)
		r.Get("/products", h.handleList)
		r.Get("/products/{id}", h.handleGet)
		r.Put("/products/{id}", h.handleUpdate)
		r.Post("/products/{id}/stock", h.handleAdjustStock)
		r.Delete("/products/{id}", h.handleDelete)
	})
}

type createRequest struct {
	SKU            string `json:"sku"`
	Name           string `json:"name"`
	Description    string `json:"description"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	StockQty       int    `json:"stock_qty"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	p, err := h.service.Create(ctx, service.CreateParams{
		SKU:            req.SKU,
		Name:           req.Name,
		Description:    req.Description,
		UnitPriceCents: req.UnitPriceCents,
		StockQty:       req.StockQty,
	})
	if err != nil {
		h.writeServiceError(ctx, w, "create product failed", err)
		return
	}

	shared.WriteJSON(w, http.StatusCreated, p)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := idParam(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	p, err := h.service.Get(ctx, id)
	if err != nil {
		h.writeServiceError(ctx, w, "get product failed", err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, p)
}

type updateRequest struct {
	Name           *string `json:"name"`
	Description    *string `json:"description"`
	UnitPriceCents *int64  `json:"unit_price_cents"`
	Active         *bool   `json:"active"`
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

	p, err := h.service.Update(ctx, id, service.UpdateParams{
		Name:           req.Name,
		Description:    req.Description,
		UnitPriceCents: req.UnitPriceCents,
		Active:         req.Active,
	})
	if err != nil {
		h.writeServiceError(ctx, w, "update product failed", err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, p)
}

type adjustStockRequest struct {
	Delta int `json:"delta"`
}

func (h *Handler) handleAdjustStock(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := idParam(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var req adjustStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	p, err := h.service.AdjustStock(ctx, id, req.Delta)
	if err != nil {
		h.writeServiceError(ctx, w, "stock adjustment failed", err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := idParam(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	if err := h.service.Delete(ctx, id); err != nil {
		h.writeServiceError(ctx, w, "delete product failed", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	products, err := h.service.List(ctx, limit, offset)
	if err != nil {
		h.writeServiceError(ctx, w, "list products failed", err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, map[string]any{"products": products})
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
		return 0, dErrors.New(dErrors.CodeInvalidInput, "invalid product id")
	}
	return id, nil
}
