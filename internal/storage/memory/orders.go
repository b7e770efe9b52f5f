package memory

import (
	"context"
	"slices"

	"github.com/notrya/storefront/internal/domain/order"
	"github.com/notrya/storefront/internal/domain/product"
)

var _ order.Store = (*Orders)(nil)

// Orders is the order.Store view of a Store.
type Orders struct {
	s *Store
}

// Orders returns the order store sharing s's products.
func (s *Store) Orders() *Orders {
	return &Orders{s: s}
}

// InTx runs fn under the store's write lock. Stock changes and the created
// order are staged and applied only when fn succeeds.
func (o *Orders) InTx(ctx context.Context, fn func(context.Context, order.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s := o.s
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{s: s, taken: make(map[int64]int)}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	now := s.now()
	for id, qty := range tx.taken {
		p := s.products[id]
		p.Stock -= qty
		p.Version++
		p.UpdatedAt = now
		s.products[id] = p
	}
	for _, c := range tx.created {
		s.orders[c.ID] = c
		for _, it := range c.Items {
			s.sold[it.ProductID] += it.Quantity
		}
	}
	return nil
}

// GetByID returns a stored order.
func (o *Orders) GetByID(_ context.Context, id string) (*order.Order, error) {
	s := o.s
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored, ok := s.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	stored.Items = slices.Clone(stored.Items)
	return &stored, nil
}

type memTx struct {
	s       *Store
	taken   map[int64]int
	created []order.Order
}

func (t *memTx) LockProducts(_ context.Context, ids []int64) ([]product.Product, error) {
	return t.s.activeByIDs(ids), nil
}

func (t *memTx) DecrementStock(_ context.Context, id int64, qty int, version int64) error {
	p, ok := t.s.products[id]
	if !ok || !p.Active || p.Version != version || p.Stock-t.taken[id] < qty {
		return order.ErrConflict
	}
	t.taken[id] += qty
	return nil
}

func (t *memTx) Create(_ context.Context, o *order.Order) error {
	c := *o
	c.Items = slices.Clone(o.Items)
	t.created = append(t.created, c)
	return nil
}
