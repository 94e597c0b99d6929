// Package service implements the ledger: the append pipeline, guarded reads,
// chain verification and conflict resolution.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"provenant/internal/ledger/metrics"
	"provenant/internal/ledger/models"
	"provenant/internal/ledger/ports"
	dErrors "provenant/pkg/domain-errors"
	"provenant/pkg/platform/audit"
)

// Sensitive tables named in break-glass access log entries.
const (
	TableEvents      = "ledger_events"
	TableProjections = "projected_states"
	TableConflicts   = "conflict_records"
)

// DefaultTopic receives every appended event through the outbox.
const DefaultTopic = "provenant.ledger.events"

// SchemaValidator checks payloads against the registered kinds.
type SchemaValidator interface {
	Validate(p models.Payload) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service is the ledger. It is the only writer of events, projected state
// and conflict records.
type Service struct {
	ledger     ports.Ledger
	schemas    SchemaValidator
	enrollment ports.EnrollmentChecker
	guard      ports.AccessGuard

	logger         *slog.Logger
	metrics        *metrics.Metrics
	auditPublisher AuditPublisher
	tracer         trace.Tracer
	clock          func() time.Time
	topic          string
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

// WithClock overrides the server clock used for server_time.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

func WithTopic(topic string) Option {
	return func(s *Service) {
		if topic != "" {
			s.topic = topic
		}
	}
}

// New constructs a Service.
func New(ledger ports.Ledger, schemas SchemaValidator, enrollment ports.EnrollmentChecker, guard ports.AccessGuard, opts ...Option) (*Service, error) {
	if ledger == nil {
		return nil, errors.New("ledger store is required")
	}
	if schemas == nil {
		return nil, errors.New("schema validator is required")
	}
	if enrollment == nil {
		return nil, errors.New("enrollment checker is required")
	}
	if guard == nil {
		return nil, errors.New("access guard is required")
	}
	s := &Service{
		ledger:     ledger,
		schemas:    schemas,
		enrollment: enrollment,
		guard:      guard,
		logger:     slog.Default(),
		tracer:     otel.Tracer("provenant/ledger"),
		clock:      time.Now,
		topic:      DefaultTopic,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// translate passes coded errors through and classifies everything else as
// internal.
func translate(err error, msg string) error {
	if err == nil {
		return nil
	}
	var coded dErrors.Coded
	if errors.As(err, &coded) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}

func (s *Service) emit(ctx context.Context, event audit.Event) error {
	if s.auditPublisher == nil {
		return nil
	}
	if event.Category == "" {
		event.Category = audit.AuditEvent(event.Action).Category()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.clock()
	}
	return s.auditPublisher.Emit(ctx, event)
}
