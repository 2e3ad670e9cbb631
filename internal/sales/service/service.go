// Package service implements order business logic. Placing an order is the
// one request in the system that mutates several audited entities at once;
// everything it touches shares the request's correlation id.
package service

import (
	"context"
	"errors"
	"log/slog"

	"retailcore/internal/customer"
	"retailcore/internal/inventory"
	"retailcore/internal/sales"
	dErrors "retailcore/pkg/domain-errors"
	"retailcore/pkg/platform/sentinel"
)

// InventoryService defines the catalog operations the order flow needs.
type InventoryService interface {
	Get(ctx context.Context, id int64) (*inventory.Product, error)
	AdjustStock(ctx context.Context, id int64, delta int) (*inventory.Product, error)
}

// CustomerService defines the customer operations the order flow needs.
type CustomerService interface {
	Get(ctx context.Context, id int64) (*customer.Customer, error)
	AdjustLoyalty(ctx context.Context, id int64, delta int) (*customer.Customer, error)
}

// Service coordinates order operations.
type Service struct {
	store     sales.Store
	products  InventoryService
	customers CustomerService
	logger    *slog.Logger
}

// New creates a sales Service.
func New(store sales.Store, products InventoryService, customers CustomerService, logger *slog.Logger) *Service {
	return &Service{
		store:     store,
		products:  products,
		customers: customers,
		logger:    logger,
	}
}

// LineItem is one requested position when placing an order.
type LineItem struct {
	ProductID int64
	Qty       int
}

// One loyalty point per whole currency unit spent.
const loyaltyCentsPerPoint = 100

// PlaceOrder reserves stock for each line, creates the order, and credits the
// customer's loyalty balance. Stock already taken is restored if a later line
// fails.
func (s *Service) PlaceOrder(ctx context.Context, customerID int64, items []LineItem) (*sales.Order, error) {
	if len(items) == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "order needs at least one line")
	}
	for _, item := range items {
		if item.Qty <= 0 {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "line quantity must be positive")
		}
	}

	if _, err := s.customers.Get(ctx, customerID); err != nil {
		return nil, err
	}

	var (
		lines []sales.OrderLine
		total int64
		taken []sales.OrderLine
	)
	for _, item := range items {
		p, err := s.products.Get(ctx, item.ProductID)
		if err != nil {
			s.restock(ctx, taken)
			return nil, err
		}
		if !p.Active {
			s.restock(ctx, taken)
			return nil, dErrors.New(dErrors.CodeInvalidState, "product is not for sale")
		}

		if _, err := s.products.AdjustStock(ctx, item.ProductID, -item.Qty); err != nil {
			s.restock(ctx, taken)
			return nil, err
		}

		line := sales.OrderLine{
			ProductID:      item.ProductID,
			Qty:            item.Qty,
			UnitPriceCents: p.UnitPriceCents,
		}
		taken = append(taken, line)
		lines = append(lines, line)
		total += p.UnitPriceCents * int64(item.Qty)
	}

	order := &sales.Order{
		CustomerID: customerID,
		Status:     sales.StatusPending,
		TotalCents: total,
		Lines:      lines,
	}
	if err := s.store.Create(ctx, order); err != nil {
		s.restock(ctx, taken)
		return nil, dErrors.Wrap(dErrors.CodeInternal, "create order", err)
	}

	if _, err := s.customers.AdjustLoyalty(ctx, customerID, int(total/loyaltyCentsPerPoint)); err != nil {
		// The order stands; loyalty credit is not worth failing the sale over.
		s.logger.WarnContext(ctx, "loyalty credit failed",
			"order_id", order.ID,
			"customer_id", customerID,
			"error", err,
		)
	}

	return order, nil
}

// Get returns the order by id.
func (s *Service) Get(ctx context.Context, id int64) (*sales.Order, error) {
	o, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(dErrors.CodeNotFound, "order not found", err)
		}
		return nil, dErrors.Wrap(dErrors.CodeInternal, "get order", err)
	}
	return o, nil
}

// MarkPaid transitions a pending order to paid.
func (s *Service) MarkPaid(ctx context.Context, id int64) (*sales.Order, error) {
	o, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.Status != sales.StatusPending {
		return nil, dErrors.New(dErrors.CodeInvalidState, "only pending orders can be paid")
	}
	o.Status = sales.StatusPaid

	if err := s.store.Update(ctx, o); err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "mark order paid", err)
	}
	return o, nil
}

// Cancel transitions a pending order to cancelled, restores its stock, and
// claws back the loyalty credit.
func (s *Service) Cancel(ctx context.Context, id int64) (*sales.Order, error) {
	o, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.Status != sales.StatusPending {
		return nil, dErrors.New(dErrors.CodeInvalidState, "only pending orders can be cancelled")
	}
	o.Status = sales.StatusCancelled

	if err := s.store.Update(ctx, o); err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "cancel order", err)
	}

	s.restock(ctx, o.Lines)
	if _, err := s.customers.AdjustLoyalty(ctx, o.CustomerID, -int(o.TotalCents/loyaltyCentsPerPoint)); err != nil {
		s.logger.WarnContext(ctx, "loyalty clawback failed",
			"order_id", o.ID,
			"customer_id", o.CustomerID,
			"error", err,
		)
	}
	return o, nil
}

// ListByCustomer returns a customer's orders ordered by id.
func (s *Service) ListByCustomer(ctx context.Context, customerID int64, limit, offset int) ([]*sales.Order, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	orders, err := s.store.ListByCustomer(ctx, customerID, limit, offset)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "list orders", err)
	}
	return orders, nil
}

func (s *Service) restock(ctx context.Context, lines []sales.OrderLine) {
	for _, line := range lines {
		if _, err := s.products.AdjustStock(ctx, line.ProductID, line.Qty); err != nil {
			s.logger.ErrorContext(ctx, "restock failed",
				"product_id", line.ProductID,
				"qty", line.Qty,
				"error", err,
			)
		}
	}
}
