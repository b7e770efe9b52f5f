package product

import (
	"math"

	"github.com/notrya/storefront/internal/domain/apperr"
	"github.com/notrya/storefront/internal/domain/catalog"
)

// Sort selects the result ordering of a catalog query.
type Sort int

const (
	// SortByName orders by name ascending.
	SortByName Sort = iota
	// SortByStock orders by stock ascending.
	SortByStock
	// SortByNewest orders by creation time descending.
	SortByNewest
)

// Criteria is a conjunction of optional filters. Nil and empty fields do not
// constrain the result.
type Criteria struct {
	// Search matches name, brand or description as a case-insensitive substring.
	Search   string
	Category *catalog.Category
	Gender   *catalog.Gender
	Color    *catalog.Color
	Size     *catalog.Size
	// Brand matches brand as a case-insensitive substring.
	Brand     string
	MaxStock  *int
	ExcludeID int64
	Sort      Sort
}

// Page bounds.
const (
	DefaultPageSize = 12
	MaxPageSize     = 100
)

// Pageable is a zero-based page request.
type Pageable struct {
	Page int
	Size int
}

// Offset of the first row of the page.
func (p Pageable) Offset() int { return p.Page * p.Size }

// Validate rejects negative pages, sizes outside [1, max] and pages whose
// offset does not fit in an int.
func (p Pageable) Validate(max int) error {
	if p.Page < 0 {
		return apperr.Invalid("page", "must not be negative")
	}
	if p.Size < 1 || p.Size > max {
		return apperr.Invalid("size", "must be between 1 and %d", max)
	}
	// The page end must fit in an int.
	if p.Page > (math.MaxInt-p.Size)/p.Size {
		return apperr.Invalid("page", "is too large")
	}
	return nil
}

// Page is one slice of a paginated result.
type Page[T any] struct {
	Items         []T
	Page          int
	Size          int
	TotalElements int64
	TotalPages    int
	First         bool
	Last          bool
}

// NewPage computes page metadata for items out of total matches.
func NewPage[T any](items []T, p Pageable, total int64) Page[T] {
	if items == nil {
		items = []T{}
	}
	pages := 0
	if p.Size > 0 {
		pages = int((total + int64(p.Size) - 1) / int64(p.Size))
	}
	return Page[T]{
		Items:         items,
		Page:          p.Page,
		Size:          p.Size,
		TotalElements: total,
		TotalPages:    pages,
		First:         p.Page == 0,
		Last:          p.Page+1 >= pages,
	}
}

// EmptyPage is the result of a query that cannot match anything.
func EmptyPage[T any](size int) Page[T] {
	return NewPage[T](nil, Pageable{Size: size}, 0)
}
