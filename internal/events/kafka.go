// Package events publishes order lifecycle events to Kafka.
package events

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/notrya/storefront/internal/domain/order"
)

// TypeOrderPlaced is the event type header value of order placements.
const TypeOrderPlaced = "order.placed"

var _ order.Publisher = (*Publisher)(nil)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Config holds the Kafka producer settings.
type Config struct {
	Brokers      []string
	Topic        string
	BatchTimeout time.Duration
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithTracerProvider sets the tracer used for producer spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(p *Publisher) { p.tracer = tp.Tracer("storefront/events") }
}

// WithPropagator sets the propagator that writes trace context into
// message headers.
func WithPropagator(tm propagation.TextMapPropagator) Option {
	return func(p *Publisher) { p.propagator = tm }
}

// Publisher writes order events to a Kafka topic, keyed by order id.
type Publisher struct {
	w          messageWriter
	topic      string
	tracer     trace.Tracer
	propagator propagation.TextMapPropagator
}

// NewPublisher creates a Publisher with a kafka.Writer for cfg.
func NewPublisher(cfg Config, opts ...Option) *Publisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.LeastBytes{},
		BatchTimeout:           cfg.BatchTimeout,
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return newPublisher(w, cfg.Topic, opts...)
}

func newPublisher(w messageWriter, topic string, opts ...Option) *Publisher {
	p := &Publisher{
		w:          w,
		topic:      topic,
		tracer:     tracenoop.NewTracerProvider().Tracer("storefront/events"),
		propagator: propagation.TraceContext{},
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// OrderPlaced publishes o as an order.placed event.
func (p *Publisher) OrderPlaced(ctx context.Context, o *order.Order) error {
	ctx, span := p.tracer.Start(ctx, p.topic+" publish",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination.name", p.topic),
			attribute.String("order.id", o.ID),
		),
	)
	defer span.End()

	msg := kafka.Message{
		Key:   []byte(o.ID),
		Value: EncodeOrderPlaced(o),
		Time:  o.CreatedAt,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(TypeOrderPlaced)},
		},
	}
	p.propagator.Inject(ctx, (*headerCarrier)(&msg.Headers))

	if err := p.w.WriteMessages(ctx, msg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "write failed")
		return errors.Wrap(err, "write order placed")
	}
	return nil
}

// Close flushes pending messages and closes the writer.
func (p *Publisher) Close() error {
	return p.w.Close()
}

// EncodeOrderPlaced renders the event payload of o.
func EncodeOrderPlaced(o *order.Order) []byte {
	var e jx.Encoder
	EncodeOrder(&e, o)
	return e.Bytes()
}

// EncodeOrder writes the public JSON form of o. The HTTP order responses
// and the order.placed payload share it.
func EncodeOrder(e *jx.Encoder, o *order.Order) {
	e.ObjStart()
	e.FieldStart("orderId")
	e.Str(o.ID)
	e.FieldStart("createdAt")
	e.Str(o.CreatedAt.UTC().Format(time.RFC3339Nano))
	e.FieldStart("total")
	Money(e, o.Total)
	e.FieldStart("items")
	e.ArrStart()
	for _, it := range o.Items {
		e.ObjStart()
		e.FieldStart("productId")
		e.Int64(it.ProductID)
		e.FieldStart("productName")
		e.Str(it.ProductName)
		e.FieldStart("quantity")
		e.Int(it.Quantity)
		e.FieldStart("unitPrice")
		Money(e, it.UnitPrice)
		e.FieldStart("lineTotal")
		Money(e, it.LineTotal)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.ObjEnd()
}

// Money writes d as a JSON number with two decimal places.
func Money(e *jx.Encoder, d decimal.Decimal) {
	e.Raw([]byte(d.StringFixed(2)))
}

// headerCarrier adapts Kafka message headers to propagation.TextMapCarrier.
type headerCarrier []kafka.Header

func (c *headerCarrier) Get(key string) string {
	for _, h := range *c {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c *headerCarrier) Set(key, value string) {
	for i, h := range *c {
		if h.Key == key {
			(*c)[i].Value = []byte(value)
			return
		}
	}
	*c = append(*c, kafka.Header{Key: key, Value: []byte(value)})
}

func (c *headerCarrier) Keys() []string {
	keys := make([]string, len(*c))
	for i, h := range *c {
		keys[i] = h.Key
	}
	return keys
}
