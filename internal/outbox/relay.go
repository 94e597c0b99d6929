package outbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Relay polls the store and publishes pending messages in creation order.
type Relay struct {
	store     Store
	publisher Publisher
	logger    *slog.Logger
	batchSize int
	interval  time.Duration
	published prometheus.Counter
	failures  prometheus.Counter
}

type RelayOption func(*Relay)

func WithLogger(logger *slog.Logger) RelayOption {
	return func(r *Relay) { r.logger = logger }
}

func WithBatchSize(n int) RelayOption {
	return func(r *Relay) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

func WithInterval(d time.Duration) RelayOption {
	return func(r *Relay) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithRegisterer registers relay metrics on reg.
func WithRegisterer(reg prometheus.Registerer) RelayOption {
	return func(r *Relay) {
		factory := promauto.With(reg)
		r.published = factory.NewCounter(prometheus.CounterOpts{
			Name: "provenant_outbox_published_total",
			Help: "Outbox messages acknowledged by the broker",
		})
		r.failures = factory.NewCounter(prometheus.CounterOpts{
			Name: "provenant_outbox_publish_failures_total",
			Help: "Outbox batches that failed to publish",
		})
	}
}

// NewRelay constructs a Relay.
func NewRelay(store Store, publisher Publisher, opts ...RelayOption) (*Relay, error) {
	if store == nil {
		return nil, errors.New("outbox store is required")
	}
	if publisher == nil {
		return nil, errors.New("publisher is required")
	}
	r := &Relay{
		store:     store,
		publisher: publisher,
		logger:    slog.Default(),
		batchSize: 100,
		interval:  time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// RunOnce publishes one batch and returns how many messages were delivered.
// Messages are marked published only after the broker acknowledged them.
func (r *Relay) RunOnce(ctx context.Context) (int, error) {
	msgs, err := r.store.Pending(ctx, r.batchSize)
	if err != nil {
		return 0, fmt.Errorf("load pending outbox messages: %w", err)
	}
	if len(msgs) == 0 {
		return 0, nil
	}
	if err := r.publisher.Publish(ctx, msgs); err != nil {
		if r.failures != nil {
			r.failures.Inc()
		}
		return 0, fmt.Errorf("publish outbox batch: %w", err)
	}
	ids := make([]uuid.UUID, len(msgs))
	for i, m := range msgs {
		ids[i] = m.ID
	}
	if err := r.store.MarkPublished(ctx, ids, time.Now()); err != nil {
		return 0, fmt.Errorf("mark outbox messages published: %w", err)
	}
	if r.published != nil {
		r.published.Add(float64(len(msgs)))
	}
	return len(msgs), nil
}

// Run drains the outbox until ctx is cancelled. Full batches are followed
// immediately by the next poll.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		n, err := r.RunOnce(ctx)
		if err != nil && ctx.Err() == nil {
			r.logger.WarnContext(ctx, "outbox relay batch failed", "error", err)
		}
		if n == r.batchSize {
			continue
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
