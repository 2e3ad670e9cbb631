package sales

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"retailcore/internal/audit"
	"retailcore/pkg/platform/sentinel"
)

// PostgresStore persists orders in PostgreSQL. Order lines are stored as a
// JSONB column; they are only ever read or written with their order.
type PostgresStore struct {
	db    *sql.DB
	hooks *audit.Listener
}

// NewPostgres constructs a PostgreSQL-backed order store.
func NewPostgres(db *sql.DB, hooks *audit.Listener) *PostgresStore {
	return &PostgresStore{db: db, hooks: hooks}
}

var _ Store = (*PostgresStore)(nil)

const orderColumns = `id, customer_id, status, total_cents, lines, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, o *Order) error {
	lines, err := marshalLines(o.Lines)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO orders (customer_id, status, total_cents, lines)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`

	err = s.db.QueryRowContext(ctx, query,
		o.CustomerID, string(o.Status), o.TotalCents, lines,
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create order: %w", err)
	}

	s.hooks.EntityCreated(ctx, o)
	return nil
}

func (s *PostgresStore) GetByID(ctx context.Context, id int64) (*Order, error) {
	query := fmt.Sprintf(`SELECT %s FROM orders WHERE id = $1`, orderColumns)

	o, err := scanOrder(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, err
	}

	s.hooks.EntityLoaded(ctx, o)
	return o, nil
}

func (s *PostgresStore) Update(ctx context.Context, o *Order) error {
	// Pre-write hook: the listener diffs against the snapshot cached at load.
	s.hooks.EntityUpdating(ctx, o)

	lines, err := marshalLines(o.Lines)
	if err != nil {
		return err
	}

	query := `
		UPDATE orders
		SET status = $2, total_cents = $3, lines = $4, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`

	err = s.db.QueryRowContext(ctx, query,
		o.ID, string(o.Status), o.TotalCents, lines,
	).Scan(&o.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return sentinel.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByCustomer(ctx context.Context, customerID int64, limit, offset int) ([]*Order, error) {
	query := fmt.Sprintf(`SELECT %s FROM orders WHERE customer_id = $1 ORDER BY id LIMIT $2 OFFSET $3`, orderColumns)

	rows, err := s.db.QueryContext(ctx, query, customerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []*Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}
	return orders, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*Order, error) {
	var (
		o      Order
		status string
		lines  []byte
	)
	err := row.Scan(&o.ID, &o.CustomerID, &status, &o.TotalCents, &lines, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan order: %w", err)
	}
	o.Status = Status(status)
	if len(lines) > 0 {
		if err := json.Unmarshal(lines, &o.Lines); err != nil {
			return nil, fmt.Errorf("unmarshal order lines: %w", err)
		}
	}
	return &o, nil
}

func marshalLines(lines []OrderLine) ([]byte, error) {
	if lines == nil {
		lines = []OrderLine{}
	}
	data, err := json.Marshal(lines)
	if err != nil {
		return nil, fmt.Errorf("marshal order lines: %w", err)
	}
	return data, nil
}
