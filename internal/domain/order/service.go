package order

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/notrya/storefront/internal/domain/apperr"
	"github.com/notrya/storefront/internal/domain/product"
)

const (
	// DefaultMaxAttempts bounds how many times a conflicting placement runs.
	DefaultMaxAttempts = 3
	// DefaultRetryInterval is the first backoff delay after a conflict.
	DefaultRetryInterval = 20 * time.Millisecond
)

// Option configures a Service.
type Option func(*Service)

// WithPublisher sets the receiver of OrderPlaced notifications.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithTracerProvider sets the tracer provider used for placement spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) { s.tracer = tp.Tracer("storefront/order") }
}

// WithMeterProvider sets the meter provider used for order counters.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(s *Service) { s.meter = mp.Meter("storefront/order") }
}

// WithRetry bounds conflict retries. attempts counts the first try.
func WithRetry(attempts int, initial time.Duration) Option {
	return func(s *Service) {
		if attempts > 0 {
			s.maxAttempts = attempts
		}
		if initial > 0 {
			s.retryInterval = initial
		}
	}
}

// WithClock overrides the order timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service is the order processor. It validates availability, decrements
// stock and records the order in one transaction.
type Service struct {
	products  product.Repository
	store     Store
	publisher Publisher

	tracer trace.Tracer
	meter  metric.Meter
	now    func() time.Time
	newID  func() string

	maxAttempts   int
	retryInterval time.Duration

	placed    metric.Int64Counter
	rejected  metric.Int64Counter
	conflicts metric.Int64Counter
}

// NewService creates an order Service. products serves the unlocked stock
// pre-check; store runs placements.
func NewService(products product.Repository, store Store, opts ...Option) (*Service, error) {
	s := &Service{
		products:      products,
		store:         store,
		publisher:     nopPublisher{},
		tracer:        tracenoop.NewTracerProvider().Tracer("storefront/order"),
		meter:         metricnoop.NewMeterProvider().Meter("storefront/order"),
		now:           func() time.Time { return time.Now().UTC() },
		newID:         func() string { return uuid.New().String() },
		maxAttempts:   DefaultMaxAttempts,
		retryInterval: DefaultRetryInterval,
	}
	for _, o := range opts {
		o(s)
	}

	var err error
	if s.placed, err = s.meter.Int64Counter("orders.placed",
		metric.WithDescription("Orders committed"),
	); err != nil {
		return nil, errors.Wrap(err, "orders.placed counter")
	}
	if s.rejected, err = s.meter.Int64Counter("orders.rejected",
		metric.WithDescription("Orders rejected, by reason"),
	); err != nil {
		return nil, errors.Wrap(err, "orders.rejected counter")
	}
	if s.conflicts, err = s.meter.Int64Counter("orders.conflicts",
		metric.WithDescription("Placement attempts lost to a concurrent stock update"),
	); err != nil {
		return nil, errors.Wrap(err, "orders.conflicts counter")
	}
	return s, nil
}

// CheckStock validates lines against the current stock without reserving
// anything. An empty result means the order could be placed right now.
func (s *Service) CheckStock(ctx context.Context, lines []Line) ([]StockError, error) {
	lines, err := normalize(lines)
	if err != nil {
		return nil, err
	}
	products, err := s.products.GetByIDs(ctx, productIDs(lines))
	if err != nil {
		return nil, errors.Wrap(err, "get products")
	}
	errs := checkStock(lines, indexProducts(products))
	if errs == nil {
		errs = []StockError{}
	}
	return errs, nil
}

// PlaceOrder validates lines, reserves stock and persists the order
// atomically. Lines referencing the same product are merged. On any error no
// stock is changed and no order exists.
func (s *Service) PlaceOrder(ctx context.Context, lines []Line) (_ *Order, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.Place",
		trace.WithAttributes(attribute.Int("order.lines", len(lines))),
	)
	defer func() {
		if rerr != nil {
			span.RecordError(rerr)
			span.SetStatus(codes.Error, rerr.Error())
			s.rejected.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", rejectReason(rerr))))
		}
		span.End()
	}()

	lines, err := normalize(lines)
	if err != nil {
		return nil, err
	}

	var (
		placed  *Order
		attempt int
	)
	op := func() error {
		attempt++
		o, err := s.place(ctx, lines)
		switch {
		case err == nil:
			placed = o
			return nil
		case errors.Is(err, ErrConflict):
			s.conflicts.Add(ctx, 1)
			zctx.From(ctx).Debug("Stock conflict, retrying", zap.Int("attempt", attempt))
			return err
		default:
			return backoff.Permanent(err)
		}
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.retryInterval
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(s.maxAttempts-1)), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.String("order.id", placed.ID), attribute.Int("order.attempts", attempt))
	s.placed.Add(ctx, 1)

	if err := s.publisher.OrderPlaced(ctx, placed); err != nil {
		zctx.From(ctx).Warn("Publish order placed",
			zap.String("order_id", placed.ID),
			zap.Error(err),
		)
	}
	return placed, nil
}

func (s *Service) place(ctx context.Context, lines []Line) (*Order, error) {
	var o *Order
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		locked, err := tx.LockProducts(ctx, productIDs(lines))
		if err != nil {
			return errors.Wrap(err, "lock products")
		}
		active := indexProducts(locked)
		if errs := checkStock(lines, active); len(errs) > 0 {
			return &InsufficientStockError{Errors: errs}
		}

		items := make([]Item, len(lines))
		total := decimal.Zero
		for i, l := range lines {
			p := active[l.ProductID]
			lineTotal := p.Price.Mul(decimal.NewFromInt(int64(l.Quantity))).RoundBank(2)
			total = total.Add(lineTotal).RoundBank(2)
			items[i] = Item{
				ProductID:   p.ID,
				ProductName: p.Name,
				Quantity:    l.Quantity,
				UnitPrice:   p.Price,
				LineTotal:   lineTotal,
			}
			if err := tx.DecrementStock(ctx, p.ID, l.Quantity, p.Version); err != nil {
				return errors.Wrapf(err, "decrement stock of %d", p.ID)
			}
		}

		o = &Order{
			ID:        s.newID(),
			CreatedAt: s.now(),
			Total:     total,
			Items:     items,
		}
		if err := tx.Create(ctx, o); err != nil {
			return errors.Wrap(err, "create order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return o, nil
}

// Get returns a persisted order.
func (s *Service) Get(ctx context.Context, id string) (*Order, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	o, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get order %s", id)
	}
	return o, nil
}

func rejectReason(err error) string {
	var stockErr *InsufficientStockError
	switch {
	case apperr.IsValidation(err):
		return "validation"
	case errors.As(err, &stockErr):
		return "insufficient_stock"
	case errors.Is(err, ErrConflict):
		return "conflict"
	default:
		return "error"
	}
}
