// Package ledger owns part stock. It applies multi-line stock movements as
// one unit of work, derives the paired invoices of outbound movements,
// tracks payment and reverses movements on deletion.
package ledger

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"inventory-backend/events"
)

const (
	tracerName      = "inventory-backend/ledger"
	defaultCurrency = "EUR"
	defaultListSize = 100
)

type Service struct {
	store     Store
	logger    *zap.Logger
	tracer    trace.Tracer
	publisher events.Publisher
	now       func() time.Time
	currency  string
}

type Option func(*Service)

func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) { s.tracer = tracer }
}

func WithPublisher(publisher events.Publisher) Option {
	return func(s *Service) { s.publisher = publisher }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithDefaultCurrency(currency string) Option {
	return func(s *Service) {
		if currency != "" {
			s.currency = currency
		}
	}
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:     store,
		logger:    zap.NewNop(),
		tracer:    otel.Tracer(tracerName),
		publisher: events.NopPublisher{},
		now:       time.Now,
		currency:  defaultCurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// atomic runs fn in one unit of work and classifies whatever comes out.
func (s *Service) atomic(ctx context.Context, op string, fn func(tx Tx) error) error {
	return classify(op, s.store.Atomic(ctx, fn))
}

func (s *Service) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "ledger."+name)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// publish runs after commit. A broker outage never undoes ledger state, so
// failures are logged and dropped.
func (s *Service) publish(ctx context.Context, evs ...events.Event) {
	if err := s.publisher.Publish(ctx, evs...); err != nil {
		s.logger.Warn("Ledger event publication failed",
			zap.Error(err),
			zap.Int("events", len(evs)),
		)
	}
}
