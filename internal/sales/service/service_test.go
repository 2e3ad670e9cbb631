package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"retailcore/internal/audit"
	"retailcore/internal/customer"
	customerService "retailcore/internal/customer/service"
	"retailcore/internal/inventory"
	inventoryService "retailcore/internal/inventory/service"
	"retailcore/internal/sales"
	dErrors "retailcore/pkg/domain-errors"
)

type SalesServiceSuite struct {
	suite.Suite
	service    *Service
	customers  *customerService.Service
	products   *inventoryService.Service
	auditStore *audit.InMemoryStore
	ctx        context.Context

	customerID int64
	productID  int64
}

func TestSalesServiceSuite(t *testing.T) {
	suite.Run(t, new(SalesServiceSuite))
}

func (s *SalesServiceSuite) SetupTest() {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	s.auditStore = audit.NewInMemoryStore()
	cache := audit.NewMemoryCache(time.Minute, nil, nil)
	writer := audit.NewWriter(s.auditStore, nil, log, nil)
	listener := audit.NewListener(cache, writer, audit.NewMetadataResolver(log), log, nil)

	s.customers = customerService.New(customer.NewInMemory(listener), log)
	s.products = inventoryService.New(inventory.NewInMemory(listener), log)
	s.service = New(sales.NewInMemory(listener), s.products, s.customers, log)
	s.ctx = context.Background()

	c, err := s.customers.Create(s.ctx, customerService.CreateParams{
		Name: "Ada", Email: "ada@example.com",
	})
	s.Require().NoError(err)
	s.customerID = c.ID

	p, err := s.products.Create(s.ctx, inventoryService.CreateParams{
		SKU: "WIDGET-1", Name: "Widget", UnitPriceCents: 2500, StockQty: 10,
	})
	s.Require().NoError(err)
	s.productID = p.ID
}

func (s *SalesServiceSuite) TestPlaceOrder() {
	s.Run("reserves stock, creates the order, credits loyalty", func() {
		order, err := s.service.PlaceOrder(s.ctx, s.customerID, []LineItem{
			{ProductID: s.productID, Qty: 2},
		})
		s.Require().NoError(err)
		s.Equal(sales.StatusPending, order.Status)
		s.Equal(int64(5000), order.TotalCents)

		p, err := s.products.Get(s.ctx, s.productID)
		s.Require().NoError(err)
		s.Equal(8, p.StockQty)

		c, err := s.customers.Get(s.ctx, s.customerID)
		s.Require().NoError(err)
		s.Equal(50, c.LoyaltyPoints)
	})

	s.Run("rejects an empty order and non-positive quantities", func() {
		_, err := s.service.PlaceOrder(s.ctx, s.customerID, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))

		_, err = s.service.PlaceOrder(s.ctx, s.customerID, []LineItem{{ProductID: s.productID, Qty: 0}})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("insufficient stock fails the order", func() {
		_, err := s.service.PlaceOrder(s.ctx, s.customerID, []LineItem{
			{ProductID: s.productID, Qty: 99},
		})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})

	s.Run("a failing later line restores stock already taken", func() {
		before, err := s.products.Get(s.ctx, s.productID)
		s.Require().NoError(err)

		_, err = s.service.PlaceOrder(s.ctx, s.customerID, []LineItem{
			{ProductID: s.productID, Qty: 3},
			{ProductID: 9999, Qty: 1},
		})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

		p, err := s.products.Get(s.ctx, s.productID)
		s.Require().NoError(err)
		s.Equal(before.StockQty, p.StockQty)
	})

	s.Run("inactive products are not for sale", func() {
		inactive := false
		_, err := s.products.Update(s.ctx, s.productID, inventoryService.UpdateParams{Active: &inactive})
		s.Require().NoError(err)

		_, err = s.service.PlaceOrder(s.ctx, s.customerID, []LineItem{
			{ProductID: s.productID, Qty: 1},
		})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})
}

func (s *SalesServiceSuite) TestPlaceOrderCorrelation() {
	ctx, id := audit.StartCorrelation(s.ctx)

	order, err := s.service.PlaceOrder(ctx, s.customerID, []LineItem{
		{ProductID: s.productID, Qty: 2},
	})
	s.Require().NoError(err)

	records, err := s.auditStore.ListByCorrelation(s.ctx, id)
	s.Require().NoError(err)
	s.Require().Len(records, 3, "stock update, order create, loyalty update")

	s.Equal("Product", records[0].EntityType)
	s.Equal(audit.ActionUpdate, records[0].Action)

	s.Equal("Order", records[1].EntityType)
	s.Equal(audit.ActionCreate, records[1].Action)
	s.Require().NotNil(records[1].EntityID)
	s.Equal(order.ID, *records[1].EntityID)

	s.Equal("Customer", records[2].EntityType)
	s.Equal(audit.ActionUpdate, records[2].Action)

	for _, rec := range records {
		s.Require().NotNil(rec.CorrelationID)
		s.Equal(id, *rec.CorrelationID)
	}
}

func (s *SalesServiceSuite) TestOrderLifecycle() {
	order, err := s.service.PlaceOrder(s.ctx, s.customerID, []LineItem{
		{ProductID: s.productID, Qty: 2},
	})
	s.Require().NoError(err)

	s.Run("pending orders can be paid", func() {
		paid, err := s.service.MarkPaid(s.ctx, order.ID)
		s.Require().NoError(err)
		s.Equal(sales.StatusPaid, paid.Status)

		_, err = s.service.MarkPaid(s.ctx, order.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})
}

func (s *SalesServiceSuite) TestCancel() {
	order, err := s.service.PlaceOrder(s.ctx, s.customerID, []LineItem{
		{ProductID: s.productID, Qty: 2},
	})
	s.Require().NoError(err)

	cancelled, err := s.service.Cancel(s.ctx, order.ID)
	s.Require().NoError(err)
	s.Equal(sales.StatusCancelled, cancelled.Status)

	p, err := s.products.Get(s.ctx, s.productID)
	s.Require().NoError(err)
	s.Equal(10, p.StockQty, "cancellation restores stock")

	c, err := s.customers.Get(s.ctx, s.customerID)
	s.Require().NoError(err)
	s.Equal(0, c.LoyaltyPoints, "cancellation claws back the loyalty credit")
}
