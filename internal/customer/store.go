package customer

import "context"

// Store persists customers. Implementations play the persistence-runtime role
// for the audit engine: they fire the listener's lifecycle hooks at load,
// create, update and delete.
type Store interface {
	Create(ctx context.Context, c *Customer) error
	GetByID(ctx context.Context, id int64) (*Customer, error)
	GetByEmail(ctx context.Context, email string) (*Customer, error)
	Update(ctx context.Context, c *Customer) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, limit, offset int) ([]*Customer, error)
}
