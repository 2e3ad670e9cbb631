package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"retailcore/internal/audit"
	"retailcore/internal/customer"
	dErrors "retailcore/pkg/domain-errors"
)

type CustomerServiceSuite struct {
	suite.Suite
	service    *Service
	store      *customer.InMemory
	auditStore *audit.InMemoryStore
	ctx        context.Context
}

func TestCustomerServiceSuite(t *testing.T) {
	suite.Run(t, new(CustomerServiceSuite))
}

func (s *CustomerServiceSuite) SetupTest() {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	s.auditStore = audit.NewInMemoryStore()
	cache := audit.NewMemoryCache(time.Minute, nil, nil)
	writer := audit.NewWriter(s.auditStore, nil, log, nil)
	listener := audit.NewListener(cache, writer, audit.NewMetadataResolver(log), log, nil)

	s.store = customer.NewInMemory(listener)
	s.service = New(s.store, log)
	s.ctx = context.Background()
}

func (s *CustomerServiceSuite) auditRecords() []audit.Record {
	page, err := s.auditStore.Search(s.ctx, audit.Filter{})
	s.Require().NoError(err)
	return page.Records
}

func (s *CustomerServiceSuite) TestCreate() {
	s.Run("hashes the pin before storage", func() {
		c, err := s.service.Create(s.ctx, CreateParams{
			Name: "Ada", Email: "ada@example.com", Pin: "4242",
		})
		s.Require().NoError(err)
		s.NotEqual("4242", c.PinHash)
		s.NoError(bcrypt.CompareHashAndPassword([]byte(c.PinHash), []byte("4242")))
	})

	s.Run("the create audit never contains the pin hash", func() {
		_, err := s.service.Create(s.ctx, CreateParams{
			Name: "Grace", Email: "grace@example.com", Pin: "9999",
		})
		s.Require().NoError(err)

		records := s.auditRecords()
		s.Require().NotEmpty(records)
		rec := records[0]
		s.Equal(audit.ActionCreate, rec.Action)
		s.Nil(rec.OldValue)
		s.Equal(audit.RedactionMarker, rec.NewValue["pin_hash"])
		s.Equal("Grace", rec.NewValue["name"])
	})

	s.Run("duplicate email conflicts", func() {
		_, err := s.service.Create(s.ctx, CreateParams{Name: "A", Email: "dup@example.com"})
		s.Require().NoError(err)

		_, err = s.service.Create(s.ctx, CreateParams{Name: "B", Email: "dup@example.com"})
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("rejects missing name and bad email", func() {
		_, err := s.service.Create(s.ctx, CreateParams{Name: " ", Email: "x@example.com"})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))

		_, err = s.service.Create(s.ctx, CreateParams{Name: "Ada", Email: "not-an-email"})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("rejects a short pin", func() {
		_, err := s.service.Create(s.ctx, CreateParams{Name: "Ada", Email: "a@example.com", Pin: "12"})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func (s *CustomerServiceSuite) TestUpdate() {
	s.Run("records the update with both sides masked", func() {
		c, err := s.service.Create(s.ctx, CreateParams{
			Name: "Ada", Email: "ada@example.com", Pin: "4242",
		})
		s.Require().NoError(err)

		newPin := "8888"
		newName := "Ada Lovelace"
		_, err = s.service.Update(s.ctx, c.ID, UpdateParams{Name: &newName, Pin: &newPin})
		s.Require().NoError(err)

		rec := s.auditRecords()[0]
		s.Equal(audit.ActionUpdate, rec.Action)
		s.Equal("Ada", rec.OldValue["name"])
		s.Equal("Ada Lovelace", rec.NewValue["name"])
		s.Equal(audit.RedactionMarker, rec.OldValue["pin_hash"])
		s.Equal(audit.RedactionMarker, rec.NewValue["pin_hash"])
	})

	s.Run("unknown customer is not found", func() {
		name := "Nobody"
		_, err := s.service.Update(s.ctx, 9999, UpdateParams{Name: &name})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *CustomerServiceSuite) TestVerifyPin() {
	c, err := s.service.Create(s.ctx, CreateParams{
		Name: "Ada", Email: "ada@example.com", Pin: "4242",
	})
	s.Require().NoError(err)

	s.Run("accepts the right pin", func() {
		s.NoError(s.service.VerifyPin(s.ctx, c.ID, "4242"))
	})

	s.Run("rejects the wrong pin", func() {
		err := s.service.VerifyPin(s.ctx, c.ID, "0000")
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("customer without a pin is invalid state", func() {
		noPin, err := s.service.Create(s.ctx, CreateParams{Name: "Grace", Email: "grace@example.com"})
		s.Require().NoError(err)

		err = s.service.VerifyPin(s.ctx, noPin.ID, "4242")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})
}

func (s *CustomerServiceSuite) TestAdjustLoyalty() {
	c, err := s.service.Create(s.ctx, CreateParams{Name: "Ada", Email: "ada@example.com"})
	s.Require().NoError(err)

	s.Run("credits and debits the balance", func() {
		updated, err := s.service.AdjustLoyalty(s.ctx, c.ID, 120)
		s.Require().NoError(err)
		s.Equal(120, updated.LoyaltyPoints)

		updated, err = s.service.AdjustLoyalty(s.ctx, c.ID, -20)
		s.Require().NoError(err)
		s.Equal(100, updated.LoyaltyPoints)
	})

	s.Run("never lets the balance go negative", func() {
		_, err := s.service.AdjustLoyalty(s.ctx, c.ID, -1000)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func (s *CustomerServiceSuite) TestDelete() {
	c, err := s.service.Create(s.ctx, CreateParams{
		Name: "Ada", Email: "ada@example.com", Pin: "4242",
	})
	s.Require().NoError(err)

	s.Require().NoError(s.service.Delete(s.ctx, c.ID))

	rec := s.auditRecords()[0]
	s.Equal(audit.ActionDelete, rec.Action)
	s.Require().NotNil(rec.OldValue)
	s.Equal(audit.RedactionMarker, rec.OldValue["pin_hash"])
	s.Nil(rec.NewValue)

	_, err = s.service.Get(s.ctx, c.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}
