package customer

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"retailcore/internal/audit"
	"retailcore/pkg/platform/sentinel"
)

// InMemory is the in-memory customer store for tests and dev mode. It fires
// the same lifecycle hooks as the Postgres store so the audit engine behaves
// identically under test.
type InMemory struct {
	mu        sync.RWMutex
	customers map[int64]Customer
	nextID    int64

	hooks *audit.Listener
}

func NewInMemory(hooks *audit.Listener) *InMemory {
	return &InMemory{
		customers: make(map[int64]Customer),
		nextID:    1,
		hooks:     hooks,
	}
}

var _ Store = (*InMemory)(nil)

func (s *InMemory) Create(ctx context.Context, c *Customer) error {
	s.mu.Lock()
	for _, existing := range s.customers {
		if strings.EqualFold(existing.Email, c.Email) {
			s.mu.Unlock()
			return sentinel.ErrConflict
		}
	}
	c.ID = s.nextID
	s.nextID++
	now := time.Now()
	c.CreatedAt = now
	c.UpdatedAt = now
	s.customers[c.ID] = *c
	s.mu.Unlock()

	s.hooks.EntityCreated(ctx, c)
	return nil
}

func (s *InMemory) GetByID(ctx context.Context, id int64) (*Customer, error) {
	s.mu.RLock()
	c, ok := s.customers[id]
	s.mu.RUnlock()
	if !ok {
		return nil, sentinel.ErrNotFound
	}

	s.hooks.EntityLoaded(ctx, &c)
	return &c, nil
}

func (s *InMemory) GetByEmail(_ context.Context, email string) (*Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.customers {
		if strings.EqualFold(c.Email, email) {
			out := c
			return &out, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) Update(ctx context.Context, c *Customer) error {
	s.mu.Lock()
	if _, ok := s.customers[c.ID]; !ok {
		s.mu.Unlock()
		return sentinel.ErrNotFound
	}
	s.mu.Unlock()

	// Pre-write hook: the listener diffs against the snapshot cached at load.
	s.hooks.EntityUpdating(ctx, c)

	s.mu.Lock()
	c.UpdatedAt = time.Now()
	s.customers[c.ID] = *c
	s.mu.Unlock()
	return nil
}

func (s *InMemory) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	c, ok := s.customers[id]
	s.mu.Unlock()
	if !ok {
		return sentinel.ErrNotFound
	}

	// Pre-write hook with the current state; delete audits need no diff.
	s.hooks.EntityDeleting(ctx, &c)

	s.mu.Lock()
	delete(s.customers, id)
	s.mu.Unlock()
	return nil
}

func (s *InMemory) List(_ context.Context, limit, offset int) ([]*Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]int64, 0, len(s.customers))
	for id := range s.customers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var out []*Customer
	for i, id := range ids {
		if i < offset {
			continue
		}
		if limit > 0 && len(out) >= limit {
			break
		}
		c := s.customers[id]
		out = append(out, &c)
	}
	return out, nil
}
