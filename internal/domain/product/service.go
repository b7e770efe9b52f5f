package product

import (
	"context"
	"slices"

	"github.com/go-faster/errors"

	"github.com/notrya/storefront/internal/domain/catalog"
)

// Defaults for the catalog query engine.
const (
	DefaultLowStockThreshold = 5
	DefaultRelatedPageSize   = 6
	BestSellerCount          = 3
)

// SearchQuery is the raw, unparsed input of a catalog listing. Unknown
// enumeration codes are ignored rather than rejected.
type SearchQuery struct {
	Search   string
	Category string
	Gender   string
	Color    string
	Size     string
	Brand    string
}

// Criteria converts q into repository criteria sorted by name. Search and
// brand text are matched as given; only the empty string means no filter.
func (q SearchQuery) Criteria() Criteria {
	return Criteria{
		Search:   q.Search,
		Category: catalog.Categories.Optional(q.Category),
		Gender:   catalog.Genders.Optional(q.Gender),
		Color:    catalog.Colors.Optional(q.Color),
		Size:     catalog.Sizes.Optional(q.Size),
		Brand:    q.Brand,
		Sort:     SortByName,
	}
}

// ServiceConfig tunes the query engine.
type ServiceConfig struct {
	LowStockThreshold int
	MaxPageSize       int
}

// Service is the catalog query engine. It is read-only.
type Service struct {
	products    Repository
	lowStock    int
	maxPageSize int
}

// NewService creates a query engine over products.
func NewService(products Repository, cfg ServiceConfig) *Service {
	if cfg.LowStockThreshold <= 0 {
		cfg.LowStockThreshold = DefaultLowStockThreshold
	}
	if cfg.MaxPageSize <= 0 {
		cfg.MaxPageSize = MaxPageSize
	}
	return &Service{
		products:    products,
		lowStock:    cfg.LowStockThreshold,
		maxPageSize: cfg.MaxPageSize,
	}
}

// Get returns an active product.
func (s *Service) Get(ctx context.Context, id int64) (*Product, error) {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get product %d", id)
	}
	return p, nil
}

// Search lists active products matching q.
func (s *Service) Search(ctx context.Context, q SearchQuery, p Pageable) (Page[Product], error) {
	return s.find(ctx, q.Criteria(), p)
}

// ByCategory lists one category. An unknown category yields an empty page.
func (s *Service) ByCategory(ctx context.Context, raw string, p Pageable) (Page[Product], error) {
	c, ok := catalog.Categories.Parse(raw)
	if !ok {
		return s.empty(p)
	}
	return s.find(ctx, Criteria{Category: &c}, p)
}

// ByGender lists one gender. An unknown gender yields an empty page.
func (s *Service) ByGender(ctx context.Context, raw string, p Pageable) (Page[Product], error) {
	g, ok := catalog.Genders.Parse(raw)
	if !ok {
		return s.empty(p)
	}
	return s.find(ctx, Criteria{Gender: &g}, p)
}

// ByColor lists one color. An unknown color yields an empty page.
func (s *Service) ByColor(ctx context.Context, raw string, p Pageable) (Page[Product], error) {
	c, ok := catalog.Colors.Parse(raw)
	if !ok {
		return s.empty(p)
	}
	return s.find(ctx, Criteria{Color: &c}, p)
}

// BySize lists one size. An unknown size yields an empty page.
func (s *Service) BySize(ctx context.Context, raw string, p Pageable) (Page[Product], error) {
	sz, ok := catalog.Sizes.Parse(raw)
	if !ok {
		return s.empty(p)
	}
	return s.find(ctx, Criteria{Size: &sz}, p)
}

// Promotions lists products whose stock is at or below the low-stock
// threshold, scarcest first.
func (s *Service) Promotions(ctx context.Context, p Pageable) (Page[Product], error) {
	threshold := s.lowStock
	return s.find(ctx, Criteria{MaxStock: &threshold, Sort: SortByStock}, p)
}

// Newest lists products by creation time, most recent first.
func (s *Service) Newest(ctx context.Context, p Pageable) (Page[Product], error) {
	return s.find(ctx, Criteria{Sort: SortByNewest}, p)
}

// Related lists products sharing the category and gender of the anchor
// product, excluding the anchor. A missing or inactive anchor yields an empty
// page.
func (s *Service) Related(ctx context.Context, id int64, p Pageable) (Page[Product], error) {
	if err := p.Validate(s.maxPageSize); err != nil {
		return Page[Product]{}, err
	}
	anchor, err := s.products.GetByID(ctx, id)
	switch {
	case errors.Is(err, ErrNotFound):
		return EmptyPage[Product](p.Size), nil
	case err != nil:
		return Page[Product]{}, errors.Wrapf(err, "get anchor product %d", id)
	}
	return s.find(ctx, Criteria{
		Category:  &anchor.Category,
		Gender:    &anchor.Gender,
		ExcludeID: anchor.ID,
	}, p)
}

// AvailableSizes returns the labels of the sizes in which the named product
// exists for the given color and category. Unknown codes yield no sizes.
func (s *Service) AvailableSizes(ctx context.Context, name, rawColor, rawCategory string) ([]string, error) {
	color, ok := catalog.Colors.Parse(rawColor)
	if !ok {
		return []string{}, nil
	}
	category, ok := catalog.Categories.Parse(rawCategory)
	if !ok {
		return []string{}, nil
	}
	sizes, err := s.products.DistinctSizes(ctx, DimensionFilter{Name: name, Category: category, Color: &color})
	if err != nil {
		return nil, errors.Wrap(err, "distinct sizes")
	}
	return labels(catalog.Sizes, sizes), nil
}

// AvailableColors returns the labels of the colors in which the named product
// exists for the given category. An unknown category yields no colors.
func (s *Service) AvailableColors(ctx context.Context, name, rawCategory string) ([]string, error) {
	category, ok := catalog.Categories.Parse(rawCategory)
	if !ok {
		return []string{}, nil
	}
	colors, err := s.products.DistinctColors(ctx, DimensionFilter{Name: name, Category: category})
	if err != nil {
		return nil, errors.Wrap(err, "distinct colors")
	}
	return labels(catalog.Colors, colors), nil
}

// BestSellers returns the most ordered active products.
func (s *Service) BestSellers(ctx context.Context) ([]Product, error) {
	out, err := s.products.BestSellers(ctx, BestSellerCount)
	if err != nil {
		return nil, errors.Wrap(err, "best sellers")
	}
	return out, nil
}

func (s *Service) find(ctx context.Context, c Criteria, p Pageable) (Page[Product], error) {
	if err := p.Validate(s.maxPageSize); err != nil {
		return Page[Product]{}, err
	}
	items, total, err := s.products.Find(ctx, c, p)
	if err != nil {
		return Page[Product]{}, errors.Wrap(err, "find products")
	}
	return NewPage(items, p, total), nil
}

func (s *Service) empty(p Pageable) (Page[Product], error) {
	if err := p.Validate(s.maxPageSize); err != nil {
		return Page[Product]{}, err
	}
	return EmptyPage[Product](p.Size), nil
}

func labels[T ~string](v *catalog.Vocabulary[T], codes []T) []string {
	codes = slices.Clone(codes)
	slices.SortFunc(codes, func(a, b T) int { return v.Rank(a) - v.Rank(b) })
	codes = slices.Compact(codes)
	out := make([]string, len(codes))
	for i, c := range codes {
		out[i] = v.Label(c)
	}
	return out
}
