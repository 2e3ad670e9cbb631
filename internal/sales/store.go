package sales

import "context"

// Store is the order persistence contract.
type Store interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id int64) (*Order, error)
	Update(ctx context.Context, o *Order) error
	ListByCustomer(ctx context.Context, customerID int64, limit, offset int) ([]*Order, error)
}
