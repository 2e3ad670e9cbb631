package sales

import (
	"context"
	"sort"
	"sync"
	"time"

	"retailcore/internal/audit"
	"retailcore/pkg/platform/sentinel"
)

// InMemory is the in-memory order store for tests and dev mode.
type InMemory struct {
	mu     sync.RWMutex
	orders map[int64]Order
	nextID int64

	hooks *audit.Listener
}

func NewInMemory(hooks *audit.Listener) *InMemory {
	return &InMemory{
		orders: make(map[int64]Order),
		nextID: 1,
		hooks:  hooks,
	}
}

var _ Store = (*InMemory)(nil)

func (s *InMemory) Create(ctx context.Context, o *Order) error {
	s.mu.Lock()
	o.ID = s.nextID
	s.nextID++
	now := time.Now()
	o.CreatedAt = now
	o.UpdatedAt = now
	s.orders[o.ID] = *o
	s.mu.Unlock()

	s.hooks.EntityCreated(ctx, o)
	return nil
}

func (s *InMemory) GetByID(ctx context.Context, id int64) (*Order, error) {
	s.mu.RLock()
	o, ok := s.orders[id]
	s.mu.RUnlock()
	if !ok {
		return nil, sentinel.ErrNotFound
	}

	s.hooks.EntityLoaded(ctx, &o)
	return &o, nil
}

func (s *InMemory) Update(ctx context.Context, o *Order) error {
	s.mu.Lock()
	if _, ok := s.orders[o.ID]; !ok {
		s.mu.Unlock()
		return sentinel.ErrNotFound
	}
	s.mu.Unlock()

	// Pre-write hook: the listener diffs against the snapshot cached at load.
	s.hooks.EntityUpdating(ctx, o)

	s.mu.Lock()
	o.UpdatedAt = time.Now()
	s.orders[o.ID] = *o
	s.mu.Unlock()
	return nil
}

func (s *InMemory) ListByCustomer(_ context.Context, customerID int64, limit, offset int) ([]*Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]int64, 0)
	for id, o := range s.orders {
		if o.CustomerID == customerID {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var out []*Order
	for i, id := range ids {
		if i < offset {
			continue
		}
		if limit > 0 && len(out) >= limit {
			break
		}
		o := s.orders[id]
		out = append(out, &o)
	}
	return out, nil
}
