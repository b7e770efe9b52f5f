package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/notrya/storefront/internal/domain/order"
	"github.com/notrya/storefront/internal/domain/product"
)

var _ order.Store = (*OrderStore)(nil)

// OrderStore implements order.Store backed by PostgreSQL. Placements run in
// READ COMMITTED transactions holding row locks on the ordered products.
type OrderStore struct {
	pool *pgxpool.Pool
}

// NewOrderStore returns an OrderStore that uses the given pool.
func NewOrderStore(pool *pgxpool.Pool) *OrderStore {
	return &OrderStore{pool: pool}
}

// InTx runs fn in a transaction. Lock and serialization failures are
// reported as order.ErrConflict.
func (s *OrderStore) InTx(ctx context.Context, fn func(context.Context, order.Tx) error) error {
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		return fn(ctx, &orderTx{tx: tx})
	})
	return classifyTxError(err)
}

// GetByID returns a persisted order with its items in placement order.
func (s *OrderStore) GetByID(ctx context.Context, id string) (*order.Order, error) {
	oid, err := uuid.Parse(id)
	if err != nil {
		return nil, order.ErrNotFound
	}

	o := order.Order{ID: id}
	err = s.pool.QueryRow(ctx,
		`SELECT created_at, total FROM orders WHERE id = $1`, oid,
	).Scan(&o.CreatedAt, &o.Total)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, order.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "query order")
	}

	rows, err := s.pool.Query(ctx, `
		SELECT product_id, product_name, quantity, unit_price, line_total
		FROM order_items WHERE order_id = $1 ORDER BY position`, oid)
	if err != nil {
		return nil, errors.Wrap(err, "query order items")
	}
	o.Items, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (order.Item, error) {
		var it order.Item
		err := row.Scan(&it.ProductID, &it.ProductName, &it.Quantity, &it.UnitPrice, &it.LineTotal)
		return it, err
	})
	if err != nil {
		return nil, errors.Wrap(err, "scan order items")
	}
	return &o, nil
}

type orderTx struct {
	tx pgx.Tx
}

// LockProducts takes row locks in id order so concurrent placements over
// overlapping products cannot deadlock.
func (t *orderTx) LockProducts(ctx context.Context, ids []int64) ([]product.Product, error) {
	rows, err := t.tx.Query(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = ANY($1) AND active ORDER BY id FOR UPDATE`, ids)
	if err != nil {
		return nil, errors.Wrap(err, "lock products")
	}
	ps, err := collectProducts(rows)
	if err != nil {
		return nil, errors.Wrap(err, "scan locked products")
	}
	return ps, nil
}

func (t *orderTx) DecrementStock(ctx context.Context, id int64, qty int, version int64) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE products
		SET stock = stock - $2, version = version + 1, updated_at = now()
		WHERE id = $1 AND version = $3 AND active AND stock >= $2`,
		id, qty, version)
	if err != nil {
		return errors.Wrap(err, "update stock")
	}
	if tag.RowsAffected() == 0 {
		return order.ErrConflict
	}
	return nil
}

func (t *orderTx) Create(ctx context.Context, o *order.Order) error {
	oid, err := uuid.Parse(o.ID)
	if err != nil {
		return errors.Wrapf(err, "order id %q", o.ID)
	}
	if _, err := t.tx.Exec(ctx,
		`INSERT INTO orders (id, created_at, total) VALUES ($1, $2, $3)`,
		oid, o.CreatedAt, o.Total,
	); err != nil {
		return errors.Wrap(err, "insert order")
	}

	batch := &pgx.Batch{}
	for i, it := range o.Items {
		batch.Queue(`
			INSERT INTO order_items (order_id, position, product_id, product_name, quantity, unit_price, line_total)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			oid, i, it.ProductID, it.ProductName, it.Quantity, it.UnitPrice, it.LineTotal)
	}
	if err := t.tx.SendBatch(ctx, batch).Close(); err != nil {
		return errors.Wrap(err, "insert order items")
	}
	return nil
}
