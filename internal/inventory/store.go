package inventory

import "context"

// Store is the product persistence contract. Implementations return
// sentinel.ErrNotFound and sentinel.ErrConflict for the usual facts and fire
// the audit listener's lifecycle hooks around reads and writes.
type Store interface {
	Create(ctx context.Context, p *Product) error
	GetByID(ctx context.Context, id int64) (*Product, error)
	GetBySKU(ctx context.Context, sku string) (*Product, error)
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, limit, offset int) ([]*Product, error)
}
