// Package service implements customer business logic: profile lifecycle and
// PIN management. PINs are bcrypt-hashed here so only the hash ever reaches
// the store (and, masked, the audit trail).
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"retailcore/internal/customer"
	dErrors "retailcore/pkg/domain-errors"
	"retailcore/pkg/platform/sentinel"
)

// Service coordinates customer operations against the store.
type Service struct {
	store  customer.Store
	logger *slog.Logger
}

// New creates a customer Service.
func New(store customer.Store, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// CreateParams carries the fields needed to register a customer.
type CreateParams struct {
	Name  string
	Email string
	Phone string
	Pin   string
}

// Create registers a new customer. The PIN is optional; when present it is
// hashed before the record is written.
func (s *Service) Create(ctx context.Context, params CreateParams) (*customer.Customer, error) {
	if err := validateParams(params.Name, params.Email); err != nil {
		return nil, err
	}

	c := &customer.Customer{
		Name:  strings.TrimSpace(params.Name),
		Email: strings.ToLower(strings.TrimSpace(params.Email)),
		Phone: strings.TrimSpace(params.Phone),
	}
	if params.Pin != "" {
		hash, err := hashPin(params.Pin)
		if err != nil {
			return nil, err
		}
		c.PinHash = hash
	}

	if err := s.store.Create(ctx, c); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.Wrap(dErrors.CodeConflict, "email already registered", err)
		}
		return nil, dErrors.Wrap(dErrors.CodeInternal, "create customer", err)
	}
	return c, nil
}

// Get returns the customer by id.
func (s *Service) Get(ctx context.Context, id int64) (*customer.Customer, error) {
	c, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(dErrors.CodeNotFound, "customer not found", err)
		}
		return nil, dErrors.Wrap(dErrors.CodeInternal, "get customer", err)
	}
	return c, nil
}

// UpdateParams carries updatable profile fields. Nil pointers leave the field
// unchanged.
type UpdateParams struct {
	Name  *string
	Email *string
	Phone *string
	Pin   *string
}

// Update applies a partial profile update. The customer must have been loaded
// through this service (or the store) within the same request so the change
// has a baseline to diff against.
func (s *Service) Update(ctx context.Context, id int64, params UpdateParams) (*customer.Customer, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if params.Name != nil {
		if strings.TrimSpace(*params.Name) == "" {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "name must not be empty")
		}
		c.Name = strings.TrimSpace(*params.Name)
	}
	if params.Email != nil {
		if err := validateEmail(*params.Email); err != nil {
			return nil, err
		}
		c.Email = strings.ToLower(strings.TrimSpace(*params.Email))
	}
	if params.Phone != nil {
		c.Phone = strings.TrimSpace(*params.Phone)
	}
	if params.Pin != nil {
		hash, err := hashPin(*params.Pin)
		if err != nil {
			return nil, err
		}
		c.PinHash = hash
	}

	if err := s.store.Update(ctx, c); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(dErrors.CodeNotFound, "customer not found", err)
		}
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.Wrap(dErrors.CodeConflict, "email already registered", err)
		}
		return nil, dErrors.Wrap(dErrors.CodeInternal, "update customer", err)
	}
	return c, nil
}

// AdjustLoyalty adds delta points (may be negative) to the customer's balance.
func (s *Service) AdjustLoyalty(ctx context.Context, id int64, delta int) (*customer.Customer, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.LoyaltyPoints+delta < 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "loyalty balance cannot go negative")
	}
	c.LoyaltyPoints += delta

	if err := s.store.Update(ctx, c); err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "adjust loyalty", err)
	}
	return c, nil
}

// Delete removes the customer.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(dErrors.CodeNotFound, "customer not found", err)
		}
		return dErrors.Wrap(dErrors.CodeInternal, "delete customer", err)
	}
	return nil
}

// List returns customers ordered by id.
func (s *Service) List(ctx context.Context, limit, offset int) ([]*customer.Customer, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	customers, err := s.store.List(ctx, limit, offset)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "list customers", err)
	}
	return customers, nil
}

// VerifyPin checks a candidate PIN against the stored hash.
func (s *Service) VerifyPin(ctx context.Context, id int64, pin string) error {
	c, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if c.PinHash == "" {
		return dErrors.New(dErrors.CodeInvalidState, "customer has no pin set")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(c.PinHash), []byte(pin)); err != nil {
		return dErrors.New(dErrors.CodeUnauthorized, "pin mismatch")
	}
	return nil
}

func hashPin(pin string) (string, error) {
	if len(pin) < 4 {
		return "", dErrors.New(dErrors.CodeInvalidInput, "pin must be at least 4 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return "", dErrors.Wrap(dErrors.CodeInternal, "hash pin", fmt.Errorf("bcrypt: %w", err))
	}
	return string(hash), nil
}

func validateParams(name, email string) error {
	if strings.TrimSpace(name) == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "name is required")
	}
	return validateEmail(email)
}

func validateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" || !strings.Contains(email, "@") {
		return dErrors.New(dErrors.CodeInvalidInput, "valid email is required")
	}
	return nil
}
