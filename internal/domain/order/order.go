package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/notrya/storefront/internal/domain/apperr"
	"github.com/notrya/storefront/internal/domain/product"
)

var (
	// ErrNotFound is returned when an order does not exist.
	ErrNotFound = errors.Wrap(apperr.ErrNotFound, "order")

	// ErrConflict reports that a concurrent writer changed stock between the
	// availability check and the decrement. Stores also map serialization
	// failures and deadlocks to it.
	ErrConflict = errors.Wrap(apperr.ErrConflict, "concurrent stock update")

	// ErrEmptyItems rejects an order without lines.
	ErrEmptyItems error = &apperr.ValidationError{Field: "items", Message: "must not be empty"}
)

// Line is a requested (product, quantity) pair.
type Line struct {
	ProductID int64
	Quantity  int
}

// Item is a priced order line. ProductName and UnitPrice are snapshots taken
// when the order was placed.
type Item struct {
	ProductID   int64
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
	LineTotal   decimal.Decimal
}

// Order represents a placed customer order.
type Order struct {
	ID        string
	CreatedAt time.Time
	Total     decimal.Decimal
	Items     []Item
}

// StockError describes one line that cannot be fulfilled. Missing is set when
// the product does not exist or is inactive, in which case Available is 0 and
// ProductName is empty.
type StockError struct {
	ProductID   int64
	Available   int
	ProductName string
	Missing     bool
}

// InsufficientStockError carries every unfulfillable line of a request.
type InsufficientStockError struct {
	Errors []StockError
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %d product(s)", len(e.Errors))
}

// Tx is the unit of work in which an order is placed. Products returned by
// LockProducts stay locked until the transaction ends.
type Tx interface {
	// LockProducts returns the active products among ids, ordered by id.
	LockProducts(ctx context.Context, ids []int64) ([]product.Product, error)
	// DecrementStock subtracts qty from the product stock if its version is
	// still version. It returns ErrConflict otherwise.
	DecrementStock(ctx context.Context, id int64, qty int, version int64) error
	// Create persists the order and its items.
	Create(ctx context.Context, o *Order) error
}

// Store runs order transactions and reads persisted orders.
type Store interface {
	// InTx runs fn in a transaction, committing when fn returns nil and
	// rolling back otherwise.
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	GetByID(ctx context.Context, id string) (*Order, error)
}

// Publisher is notified after an order has been committed.
type Publisher interface {
	OrderPlaced(ctx context.Context, o *Order) error
}

type nopPublisher struct{}

func (nopPublisher) OrderPlaced(context.Context, *Order) error { return nil }
