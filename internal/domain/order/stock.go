package order

import (
	"fmt"
	"math"

	"github.com/notrya/storefront/internal/domain/apperr"
	"github.com/notrya/storefront/internal/domain/product"
)

// MaxQuantity bounds the quantity of one product in an order, after repeated
// lines are merged. It matches the range of the stored stock and quantity
// columns.
const MaxQuantity = math.MaxInt32

// normalize validates lines and merges repeated products, keeping the order
// in which each product first appears.
func normalize(lines []Line) ([]Line, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyItems
	}
	out := make([]Line, 0, len(lines))
	pos := make(map[int64]int, len(lines))
	for i, l := range lines {
		if l.Quantity <= 0 {
			return nil, apperr.Invalid(itemField(i, "quantity"), "must be greater than 0")
		}
		if l.Quantity > MaxQuantity {
			return nil, apperr.Invalid(itemField(i, "quantity"), "must not exceed %d", MaxQuantity)
		}
		if j, ok := pos[l.ProductID]; ok {
			if out[j].Quantity > MaxQuantity-l.Quantity {
				return nil, apperr.Invalid(itemField(i, "quantity"), "total for product %d must not exceed %d", l.ProductID, MaxQuantity)
			}
			out[j].Quantity += l.Quantity
			continue
		}
		pos[l.ProductID] = len(out)
		out = append(out, l)
	}
	return out, nil
}

func itemField(i int, name string) string {
	return fmt.Sprintf("items[%d].%s", i, name)
}

func productIDs(lines []Line) []int64 {
	ids := make([]int64, len(lines))
	for i, l := range lines {
		ids[i] = l.ProductID
	}
	return ids
}

func indexProducts(products []product.Product) map[int64]product.Product {
	m := make(map[int64]product.Product, len(products))
	for _, p := range products {
		m[p.ID] = p
	}
	return m
}

// checkStock reports every line that the given snapshot of active products
// cannot satisfy, in request order.
func checkStock(lines []Line, active map[int64]product.Product) []StockError {
	var errs []StockError
	for _, l := range lines {
		p, ok := active[l.ProductID]
		switch {
		case !ok:
			errs = append(errs, StockError{ProductID: l.ProductID, Missing: true})
		case p.Stock < l.Quantity:
			errs = append(errs, StockError{ProductID: l.ProductID, Available: p.Stock, ProductName: p.Name})
		}
	}
	return errs
}
