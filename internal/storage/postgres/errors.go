package postgres

import (
	"github.com/go-faster/errors"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/notrya/storefront/internal/domain/order"
)

// classifyTxError maps lock and serialization failures to order.ErrConflict
// so the caller can retry. Everything else is returned unchanged.
func classifyTxError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgerrcode.SerializationFailure, pgerrcode.DeadlockDetected, pgerrcode.LockNotAvailable:
		return errors.Wrapf(order.ErrConflict, "postgres %s", pgErr.Code)
	}
	return err
}
