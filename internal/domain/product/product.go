package product

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/notrya/storefront/internal/domain/apperr"
	"github.com/notrya/storefront/internal/domain/catalog"
)

// ErrNotFound is returned when a requested product does not exist or is
// inactive.
var ErrNotFound = errors.Wrap(apperr.ErrNotFound, "product")

// ErrConflict is returned by Writer.Update when the stored version moved on.
var ErrConflict = errors.Wrap(apperr.ErrConflict, "product modified concurrently")

// Product represents a catalog item available for purchase.
type Product struct {
	ID          int64
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
	Category    catalog.Category
	Size        catalog.Size
	Color       catalog.Color
	Gender      catalog.Gender
	Brand       string
	Material    string
	ImageURL    string
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Version     int64
}

// DimensionFilter narrows the distinct size / color lookups to variants of
// one product line.
type DimensionFilter struct {
	Name     string
	Category catalog.Category
	Color    *catalog.Color
}

// Repository defines read operations for the product catalog. Every method
// only sees active products.
type Repository interface {
	GetByID(ctx context.Context, id int64) (*Product, error)
	GetByIDs(ctx context.Context, ids []int64) ([]Product, error)
	Find(ctx context.Context, c Criteria, p Pageable) ([]Product, int64, error)
	DistinctSizes(ctx context.Context, f DimensionFilter) ([]catalog.Size, error)
	DistinctColors(ctx context.Context, f DimensionFilter) ([]catalog.Color, error)
	BestSellers(ctx context.Context, limit int) ([]Product, error)
}

// Writer defines administrative mutations. Create assigns ID, timestamps and
// version on p. Update bumps the version.
type Writer interface {
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, p *Product) error
	Deactivate(ctx context.Context, id int64) error
}
