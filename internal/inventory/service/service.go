// Package service implements catalog business logic.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"retailcore/internal/inventory"
	dErrors "retailcore/pkg/domain-errors"
	"retailcore/pkg/platform/sentinel"
)

// Service coordinates product operations against the store.
type Service struct {
	store  inventory.Store
	logger *slog.Logger
}

// New creates an inventory Service.
func New(store inventory.Store, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// CreateParams carries the fields needed to add a product.
type CreateParams struct {
	SKU            string
	Name           string
	Description    string
	UnitPriceCents int64
	StockQty       int
}

// Create adds a new product to the catalog.
func (s *Service) Create(ctx context.Context, params CreateParams) (*inventory.Product, error) {
	if strings.TrimSpace(params.SKU) == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "sku is required")
	}
	if strings.TrimSpace(params.Name) == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "name is required")
	}
	if params.UnitPriceCents < 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "unit price cannot be negative")
	}
	if params.StockQty < 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "stock quantity cannot be negative")
	}

	p := &inventory.Product{
		SKU:            strings.ToUpper(strings.TrimSpace(params.SKU)),
		Name:           strings.TrimSpace(params.Name),
		Description:    params.Description,
		UnitPriceCents: params.UnitPriceCents,
		StockQty:       params.StockQty,
		Active:         true,
	}

	if err := s.store.Create(ctx, p); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.Wrap(dErrors.CodeConflict, "sku already exists", err)
		}
		return nil, dErrors.Wrap(dErrors.CodeInternal, "create product", err)
	}
	return p, nil
}

// Get returns the product by id.
func (s *Service) Get(ctx context.Context, id int64) (*inventory.Product, error) {
	p, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(dErrors.CodeNotFound, "product not found", err)
		}
		return nil, dErrors.Wrap(dErrors.CodeInternal, "get product", err)
	}
	return p, nil
}

// UpdateParams carries updatable product fields. Nil pointers leave the field
// unchanged.
type UpdateParams struct {
	Name           *string
	Description    *string
	UnitPriceCents *int64
	Active         *bool
}

// Update applies a partial product update.
func (s *Service) Update(ctx context.Context, id int64, params UpdateParams) (*inventory.Product, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if params.Name != nil {
		if strings.TrimSpace(*params.Name) == "" {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "name must not be empty")
		}
		p.Name = strings.TrimSpace(*params.Name)
	}
	if params.Description != nil {
		p.Description = *params.Description
	}
	if params.UnitPriceCents != nil {
		if *params.UnitPriceCents < 0 {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "unit price cannot be negative")
		}
		p.UnitPriceCents = *params.UnitPriceCents
	}
	if params.Active != nil {
		p.Active = *params.Active
	}

	if err := s.store.Update(ctx, p); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(dErrors.CodeNotFound, "product not found", err)
		}
		return nil, dErrors.Wrap(dErrors.CodeInternal, "update product", err)
	}
	return p, nil
}

// AdjustStock adds delta units (may be negative) to the product's stock.
func (s *Service) AdjustStock(ctx context.Context, id int64, delta int) (*inventory.Product, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.StockQty+delta < 0 {
		return nil, dErrors.New(dErrors.CodeInvalidState, "insufficient stock")
	}
	p.StockQty += delta

	if err := s.store.Update(ctx, p); err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "adjust stock", err)
	}
	return p, nil
}

// Delete removes the product from the catalog.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(dErrors.CodeNotFound, "product not found", err)
		}
		return dErrors.Wrap(dErrors.CodeInternal, "delete product", err)
	}
	return nil
}

// List returns products ordered by id.
func (s *Service) List(ctx context.Context, limit, offset int) ([]*inventory.Product, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	products, err := s.store.List(ctx, limit, offset)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "list products", err)
	}
	return products, nil
}
