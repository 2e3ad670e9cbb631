// Package handler exposes the order API.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"retailcore/internal/platform/middleware"
	"retailcore/internal/sales"
	"retailcore/internal/sales/service"
	"retailcore/internal/transport/http/shared"
	dErrors "retailcore/pkg/domain-errors"
)

// Service defines the order operations the handler needs.
type Service interface {
	PlaceOrder(ctx context.Context, customerID int64, items []service.LineItem) (*sales.Order, error)
	Get(ctx context.Context, id int64) (*sales.Order, error)
	MarkPaid(ctx context.Context, id int64) (*sales.Order, error)
	Cancel(ctx context.Context, id int64) (*sales.Order, error)
	ListByCustomer(ctx context.Context, customerID int64, limit, offset int) ([]*sales.Order, error)
}

// Handler handles order endpoints.
type Handler struct {
	logger       *slog.Logger
	service      Service
	jwtValidator middleware.TokenValidator
}

// New creates a new sales Handler.
func New(service Service, logger *slog.Logger, jwtValidator middleware.TokenValidator) *Handler {
	return &Handler{
		logger:       logger,
		service:      service,
		jwtValidator: jwtValidator,
	}
}

// Register registers the order routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
		r.Post("/orders", h.handlePlaceOrder)
		r.Get("/orders/{id}", h.handleGet)
		r.Post("/orders/{id}/pay", h.handleMarkPaid)
		r.Post("/orders/{id}/cancel", h.handleCancel)
		r.Get("/customers/{id}/orders", h.handleListByCustomer)
	})
}

type placeOrderRequest struct {
	CustomerID int64 `json:"customer_id"`
	Items      []struct {
		ProductID int64 `json:"product_id"`
		Qty       int   `json:"qty"`
	} `json:"items"`
}

func (h *Handler) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req placeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	items := make([]service.LineItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, service.LineItem{ProductID: item.ProductID, Qty: item.Qty})
	}

	order, err := h.service.PlaceOrder(ctx, req.CustomerID, items)
	if err != nil {
		h.writeServiceError(ctx, w, "place order failed", err)
		return
	}

	shared.WriteJSON(w, http.StatusCreated, order)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := idParam(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	order, err := h.service.Get(ctx, id)
	if err != nil {
		h.writeServiceError(ctx, w, "get order failed", err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, order)
}

func (h *Handler) handleMarkPaid(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := idParam(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	order, err := h.service.MarkPaid(ctx, id)
	if err != nil {
		h.writeServiceError(ctx, w, "mark order paid failed", err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, order)
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := idParam(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	order, err := h.service.Cancel(ctx, id)
	if err != nil {
		h.writeServiceError(ctx, w, "cancel order failed", err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, order)
}

func (h *Handler) handleListByCustomer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	customerID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid customer id"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	orders, err := h.service.ListByCustomer(ctx, customerID, limit, offset)
	if err != nil {
		h.writeServiceError(ctx, w, "list orders failed", err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, map[string]any{"orders": orders})
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
		return 0, dErrors.New(dErrors.CodeInvalidInput, "invalid order id")
	}
	return id, nil
}
