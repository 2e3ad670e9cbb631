package inventory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"retailcore/internal/audit"
	"retailcore/pkg/platform/sentinel"
)

// InMemory is the in-memory product store for tests and dev mode.
type InMemory struct {
	mu       sync.RWMutex
	products map[int64]Product
	nextID   int64

	hooks *audit.Listener
}

func NewInMemory(hooks *audit.Listener) *InMemory {
	return &InMemory{
		products: make(map[int64]Product),
		nextID:   1,
		hooks:    hooks,
	}
}

var _ Store = (*InMemory)(nil)

func (s *InMemory) Create(ctx context.Context, p *Product) error {
	s.mu.Lock()
	for _, existing := range s.products {
		if strings.EqualFold(existing.SKU, p.SKU) {
			s.mu.Unlock()
			return sentinel.ErrConflict
		}
	}
	p.ID = s.nextID
	s.nextID++
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	s.products[p.ID] = *p
	s.mu.Unlock()

	s.hooks.EntityCreated(ctx, p)
	return nil
}

func (s *InMemory) GetByID(ctx context.Context, id int64) (*Product, error) {
	s.mu.RLock()
	p, ok := s.products[id]
	s.mu.RUnlock()
	if !ok {
		return nil, sentinel.ErrNotFound
	}

	s.hooks.EntityLoaded(ctx, &p)
	return &p, nil
}

func (s *InMemory) GetBySKU(_ context.Context, sku string) (*Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.products {
		if strings.EqualFold(p.SKU, sku) {
			out := p
			return &out, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) Update(ctx context.Context, p *Product) error {
	s.mu.Lock()
	if _, ok := s.products[p.ID]; !ok {
		s.mu.Unlock()
		return sentinel.ErrNotFound
	}
	s.mu.Unlock()

	// Pre-write hook: the listener diffs against the snapshot cached at load.
	s.hooks.EntityUpdating(ctx, p)

	s.mu.Lock()
	p.UpdatedAt = time.Now()
	s.products[p.ID] = *p
	s.mu.Unlock()
	return nil
}

func (s *InMemory) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	p, ok := s.products[id]
	s.mu.Unlock()
	if !ok {
		return sentinel.ErrNotFound
	}

	s.hooks.EntityDeleting(ctx, &p)

	s.mu.Lock()
	delete(s.products, id)
	s.mu.Unlock()
	return nil
}

func (s *InMemory) List(_ context.Context, limit, offset int) ([]*Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]int64, 0, len(s.products))
	for id := range s.products {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var out []*Product
	for i, id := range ids {
		if i < offset {
			continue
		}
		if limit > 0 && len(out) >= limit {
			break
		}
		p := s.products[id]
		out = append(out, &p)
	}
	return out, nil
}
