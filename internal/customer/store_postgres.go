package customer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"retailcore/internal/audit"
	"retailcore/pkg/platform/sentinel"
)

// PostgresStore persists customers in PostgreSQL and fires the audit
// listener's lifecycle hooks around each mutation.
type PostgresStore struct {
	db    *sql.DB
	hooks *audit.Listener
}

// NewPostgres constructs a PostgreSQL-backed customer store.
func NewPostgres(db *sql.DB, hooks *audit.Listener) *PostgresStore {
	return &PostgresStore{db: db, hooks: hooks}
}

var _ Store = (*PostgresStore)(nil)

const customerColumns = `id, name, email, phone, pin_hash, loyalty_points, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, c *Customer) error {
	query := `
		INSERT INTO customers (name, email, phone, pin_hash, loyalty_points)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`

	err := s.db.QueryRowContext(ctx, query,
		c.Name, c.Email, c.Phone, c.PinHash, c.LoyaltyPoints,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create customer: %w", err)
	}

	s.hooks.EntityCreated(ctx, c)
	return nil
}

func (s *PostgresStore) GetByID(ctx context.Context, id int64) (*Customer, error) {
	query := fmt.Sprintf(`SELECT %s FROM customers WHERE id = $1`, customerColumns)

	c, err := scanCustomer(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, err
	}

	s.hooks.EntityLoaded(ctx, c)
	return c, nil
}

func (s *PostgresStore) GetByEmail(ctx context.Context, email string) (*Customer, error) {
	query := fmt.Sprintf(`SELECT %s FROM customers WHERE lower(email) = lower($1)`, customerColumns)
	return scanCustomer(s.db.QueryRowContext(ctx, query, email))
}

func (s *PostgresStore) Update(ctx context.Context, c *Customer) error {
	// Pre-write hook: the listener diffs against the snapshot cached at load.
	s.hooks.EntityUpdating(ctx, c)

	query := `
		UPDATE customers
		SET name = $2, email = $3, phone = $4, pin_hash = $5, loyalty_points = $6, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`

	err := s.db.QueryRowContext(ctx, query,
		c.ID, c.Name, c.Email, c.Phone, c.PinHash, c.LoyaltyPoints,
	).Scan(&c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return sentinel.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("update customer: %w", err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, id int64) error {
	c, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	s.hooks.EntityDeleting(ctx, c)

	result, err := s.db.ExecContext(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete customer: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, limit, offset int) ([]*Customer, error) {
	query := fmt.Sprintf(`SELECT %s FROM customers ORDER BY id LIMIT $1 OFFSET $2`, customerColumns)

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	var customers []*Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate customers: %w", err)
	}
	return customers, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCustomer(row rowScanner) (*Customer, error) {
	var c Customer
	err := row.Scan(
		&c.ID, &c.Name, &c.Email, &c.Phone, &c.PinHash, &c.LoyaltyPoints,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan customer: %w", err)
	}
	return &c, nil
}
