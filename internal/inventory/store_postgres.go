package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"retailcore/internal/audit"
	"retailcore/pkg/platform/sentinel"
)

// PostgresStore persists products in PostgreSQL and fires the audit
// listener's lifecycle hooks around each mutation.
type PostgresStore struct {
	db    *sql.DB
	hooks *audit.Listener
}

// NewPostgres constructs a PostgreSQL-backed product store.
func NewPostgres(db *sql.DB, hooks *audit.Listener) *PostgresStore {
	return &PostgresStore{db: db, hooks: hooks}
}

var _ Store = (*PostgresStore)(nil)

const productColumns = `id, sku, name, description, unit_price_cents, stock_qty, active, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, p *Product) error {
	query := `
		INSERT INTO products (sku, name, description, unit_price_cents, stock_qty, active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`

	err := s.db.QueryRowContext(ctx, query,
		p.SKU, p.Name, p.Description, p.UnitPriceCents, p.StockQty, p.Active,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create product: %w", err)
	}

	s.hooks.EntityCreated(ctx, p)
	return nil
}

func (s *PostgresStore) GetByID(ctx context.Context, id int64) (*Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products WHERE id = $1`, productColumns)

	p, err := scanProduct(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, err
	}

	s.hooks.EntityLoaded(ctx, p)
	return p, nil
}

func (s *PostgresStore) GetBySKU(ctx context.Context, sku string) (*Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products WHERE lower(sku) = lower($1)`, productColumns)
	return scanProduct(s.db.QueryRowContext(ctx, query, sku))
}

func (s *PostgresStore) Update(ctx context.Context, p *Product) error {
	// Pre-write hook: the listener diffs against the snapshot cached at load.
	s.hooks.EntityUpdating(ctx, p)

	query := `
		UPDATE products
		SET sku = $2, name = $3, description = $4, unit_price_cents = $5, stock_qty = $6, active = $7, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`

	err := s.db.QueryRowContext(ctx, query,
		p.ID, p.SKU, p.Name, p.Description, p.UnitPriceCents, p.StockQty, p.Active,
	).Scan(&p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return sentinel.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, id int64) error {
	p, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	s.hooks.EntityDeleting(ctx, p)

	result, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, limit, offset int) ([]*Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products ORDER BY id LIMIT $1 OFFSET $2`, productColumns)

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []*Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	return products, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*Product, error) {
	var p Product
	err := row.Scan(
		&p.ID, &p.SKU, &p.Name, &p.Description, &p.UnitPriceCents, &p.StockQty,
		&p.Active, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan product: %w", err)
	}
	return &p, nil
}
