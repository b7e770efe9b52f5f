package events

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"github.com/notrya/storefront/internal/domain/order"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func testOrder() *order.Order {
	return &order.Order{
		ID:        "0b7e6a4e-6f58-4a59-9d43-3c8f0a7f2b11",
		CreatedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Total:     decimal.RequireFromString("59.97"),
		Items: []order.Item{{
			ProductID:   1,
			ProductName: "Tee",
			Quantity:    3,
			UnitPrice:   decimal.RequireFromString("19.99"),
			LineTotal:   decimal.RequireFromString("59.97"),
		}},
	}
}

func TestPublisher_OrderPlaced(t *testing.T) {
	w := &fakeWriter{}
	p := newPublisher(w, "orders")

	traceID := trace.TraceID{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     trace.SpanID{1, 2, 3, 4, 5, 6, 7, 8},
		TraceFlags: trace.FlagsSampled,
	}))

	require.NoError(t, p.OrderPlaced(ctx, testOrder()))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "0b7e6a4e-6f58-4a59-9d43-3c8f0a7f2b11", string(msg.Key))

	headers := headerCarrier(msg.Headers)
	assert.Equal(t, TypeOrderPlaced, headers.Get("type"))
	assert.Contains(t, headers.Get("traceparent"), traceID.String())
}

func TestPublisher_WriteError(t *testing.T) {
	p := newPublisher(&fakeWriter{err: errors.New("broker down")}, "orders")
	require.Error(t, p.OrderPlaced(context.Background(), testOrder()))
}

func TestEncodeOrderPlaced(t *testing.T) {
	var (
		id, total string
		items     int
		qty       int
		unit      string
	)
	d := jx.DecodeBytes(EncodeOrderPlaced(testOrder()))
	require.NoError(t, d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "orderId":
			v, err := d.Str()
			id = v
			return err
		case "total":
			v, err := d.Num()
			total = v.String()
			return err
		case "items":
			return d.Arr(func(d *jx.Decoder) error {
				items++
				return d.Obj(func(d *jx.Decoder, key string) error {
					switch key {
					case "quantity":
						v, err := d.Int()
						qty = v
						return err
					case "unitPrice":
						v, err := d.Num()
						unit = v.String()
						return err
					default:
						return d.Skip()
					}
				})
			})
		default:
			return d.Skip()
		}
	}))

	assert.Equal(t, "0b7e6a4e-6f58-4a59-9d43-3c8f0a7f2b11", id)
	assert.Equal(t, "59.97", total)
	assert.Equal(t, 1, items)
	assert.Equal(t, 3, qty)
	assert.Equal(t, "19.99", unit)
}
