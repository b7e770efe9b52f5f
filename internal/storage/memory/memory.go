// Package memory is an in-process implementation of the catalog and order
// stores. Order transactions hold an exclusive lock for their whole duration,
// so they are serializable.
package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/notrya/storefront/internal/domain/auth"
	"github.com/notrya/storefront/internal/domain/catalog"
	"github.com/notrya/storefront/internal/domain/order"
	"github.com/notrya/storefront/internal/domain/product"
)

var (
	_ product.Repository = (*Store)(nil)
	_ product.Writer     = (*Store)(nil)
	_ auth.Repository    = (*Store)(nil)
)

// Store keeps products, orders and API keys in maps. Orders returns the
// order.Store view over the same data.
type Store struct {
	mu       sync.RWMutex
	products map[int64]product.Product
	orders   map[string]order.Order
	sold     map[int64]int
	apiKeys  map[string]auth.APIKeyInfo
	nextID   int64
	now      func() time.Time
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		products: make(map[int64]product.Product),
		orders:   make(map[string]order.Order),
		sold:     make(map[int64]int),
		apiKeys:  make(map[string]auth.APIKeyInfo),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Put inserts or replaces p as is. A zero ID is assigned the next free one.
// It returns the stored product.
func (s *Store) Put(p product.Product) product.Product {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == 0 {
		s.nextID++
		p.ID = s.nextID
	} else if p.ID > s.nextID {
		s.nextID = p.ID
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now()
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = p.CreatedAt
	}
	s.products[p.ID] = p
	return p
}

// PutAPIKey registers an API key by its hash.
func (s *Store) PutAPIKey(k auth.APIKeyInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apiKeys[k.KeyHash] = k
}

// FindByHash looks up an API key by its HMAC hash.
func (s *Store) FindByHash(_ context.Context, hash string) (*auth.APIKeyInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	k, ok := s.apiKeys[hash]
	if !ok {
		return nil, auth.ErrUnknownKey
	}
	return &k, nil
}

// GetByID returns an active product.
func (s *Store) GetByID(_ context.Context, id int64) (*product.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	if !ok || !p.Active {
		return nil, product.ErrNotFound
	}
	return &p, nil
}

// GetByIDs returns the active products among ids, ordered by id.
func (s *Store) GetByIDs(_ context.Context, ids []int64) ([]product.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeByIDs(ids), nil
}

func (s *Store) activeByIDs(ids []int64) []product.Product {
	out := make([]product.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := s.products[id]; ok && p.Active {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(a, b product.Product) int { return cmp.Compare(a.ID, b.ID) })
	return slices.CompactFunc(out, func(a, b product.Product) bool { return a.ID == b.ID })
}

// Find filters, sorts and paginates active products.
func (s *Store) Find(_ context.Context, c product.Criteria, p product.Pageable) ([]product.Product, int64, error) {
	s.mu.RLock()
	var matched []product.Product
	for _, prod := range s.products {
		if matches(prod, c) {
			matched = append(matched, prod)
		}
	}
	s.mu.RUnlock()

	slices.SortFunc(matched, comparator(c.Sort))

	total := int64(len(matched))
	start := min(p.Offset(), len(matched))
	end := min(start+p.Size, len(matched))
	return slices.Clone(matched[start:end]), total, nil
}

func matches(p product.Product, c product.Criteria) bool {
	if !p.Active {
		return false
	}
	if c.Search != "" {
		q := strings.ToLower(c.Search)
		if !containsFold(p.Name, q) && !containsFold(p.Brand, q) && !containsFold(p.Description, q) {
			return false
		}
	}
	if c.Brand != "" && !containsFold(p.Brand, strings.ToLower(c.Brand)) {
		return false
	}
	switch {
	case c.Category != nil && p.Category != *c.Category,
		c.Gender != nil && p.Gender != *c.Gender,
		c.Color != nil && p.Color != *c.Color,
		c.Size != nil && p.Size != *c.Size,
		c.MaxStock != nil && p.Stock > *c.MaxStock,
		c.ExcludeID != 0 && p.ID == c.ExcludeID:
		return false
	}
	return true
}

func containsFold(s, lowerSubstr string) bool {
	return strings.Contains(strings.ToLower(s), lowerSubstr)
}

func comparator(sort product.Sort) func(a, b product.Product) int {
	switch sort {
	case product.SortByStock:
		return func(a, b product.Product) int {
			return cmp.Or(cmp.Compare(a.Stock, b.Stock), cmp.Compare(a.ID, b.ID))
		}
	case product.SortByNewest:
		return func(a, b product.Product) int {
			return cmp.Or(b.CreatedAt.Compare(a.CreatedAt), cmp.Compare(b.ID, a.ID))
		}
	default:
		// Bytewise, as the postgres store sorts with COLLATE "C".
		return func(a, b product.Product) int {
			return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
		}
	}
}

// DistinctSizes returns the sizes of active variants matching f.
func (s *Store) DistinctSizes(_ context.Context, f product.DimensionFilter) ([]catalog.Size, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[catalog.Size]struct{})
	var out []catalog.Size
	for _, p := range s.products {
		if !p.Active || p.Name != f.Name || p.Category != f.Category || (f.Color != nil && p.Color != *f.Color) {
			continue
		}
		if _, ok := seen[p.Size]; !ok {
			seen[p.Size] = struct{}{}
			out = append(out, p.Size)
		}
	}
	return out, nil
}

// DistinctColors returns the colors of active variants matching f.
func (s *Store) DistinctColors(_ context.Context, f product.DimensionFilter) ([]catalog.Color, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[catalog.Color]struct{})
	var out []catalog.Color
	for _, p := range s.products {
		if !p.Active || p.Name != f.Name || p.Category != f.Category {
			continue
		}
		if _, ok := seen[p.Color]; !ok {
			seen[p.Color] = struct{}{}
			out = append(out, p.Color)
		}
	}
	return out, nil
}

// BestSellers ranks active products by quantity sold.
func (s *Store) BestSellers(_ context.Context, limit int) ([]product.Product, error) {
	s.mu.RLock()
	out := make([]product.Product, 0, len(s.products))
	for _, p := range s.products {
		if p.Active {
			out = append(out, p)
		}
	}
	sold := func(id int64) int { return s.sold[id] }
	slices.SortFunc(out, func(a, b product.Product) int {
		return cmp.Or(cmp.Compare(sold(b.ID), sold(a.ID)), cmp.Compare(a.ID, b.ID))
	})
	s.mu.RUnlock()

	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Create stores a new product and assigns its identity.
func (s *Store) Create(_ context.Context, p *product.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	now := s.now()
	p.ID = s.nextID
	p.CreatedAt = now
	p.UpdatedAt = now
	p.Version = 1
	s.products[p.ID] = *p
	return nil
}

// Update replaces an active product if its version still matches.
func (s *Store) Update(_ context.Context, p *product.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.products[p.ID]
	if !ok || !cur.Active {
		return product.ErrNotFound
	}
	if cur.Version != p.Version {
		return product.ErrConflict
	}
	p.CreatedAt = cur.CreatedAt
	p.UpdatedAt = s.now()
	p.Version++
	s.products[p.ID] = *p
	return nil
}

// Deactivate soft-deletes an active product.
func (s *Store) Deactivate(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok || !p.Active {
		return product.ErrNotFound
	}
	p.Active = false
	p.UpdatedAt = s.now()
	p.Version++
	s.products[id] = p
	return nil
}
