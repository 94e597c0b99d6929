// Package cache puts a redis read-through cache in front of an enrollment
// checker.
//
// Only positive answers are cached and only for a short TTL, so a subject who
// enrolls is admitted immediately and a withdrawal takes effect within one TTL.
// A redis failure falls through to the source of truth; it never admits a
// write on its own.
package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"provenant/internal/ledger/ports"
)

var (
	lookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "provenant_enrollment_cache_lookups_total",
		Help: "Enrollment cache lookups by result (hit, miss, error)",
	}, []string{"result"})
	checkDurationMs = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "provenant_enrollment_check_duration_ms",
		Help:    "Latency of enrollment checks in milliseconds, cache included",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50},
	})
)

const (
	keyPrefix  = "enrollment:active:"
	DefaultTTL = 30 * time.Second
)

type Checker struct {
	next   ports.EnrollmentChecker
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

type Option func(*Checker)

func WithTTL(ttl time.Duration) Option {
	return func(c *Checker) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Checker) { c.logger = logger }
}

func New(next ports.EnrollmentChecker, client *redis.Client, opts ...Option) *Checker {
	c := &Checker{next: next, client: client, ttl: DefaultTTL, logger: slog.Default()}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

func cacheKey(subjectID, partitionID string) string {
	return keyPrefix + partitionID + ":" + subjectID
}

func (c *Checker) IsActivelyEnrolled(ctx context.Context, subjectID, partitionID string) (bool, error) {
	start := time.Now()
	defer func() {
		checkDurationMs.Observe(float64(time.Since(start).Microseconds()) / 1000.0)
	}()

	key := cacheKey(subjectID, partitionID)
	_, err := c.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		lookups.WithLabelValues("hit").Inc()
		return true, nil
	case errors.Is(err, redis.Nil):
		lookups.WithLabelValues("miss").Inc()
	default:
		lookups.WithLabelValues("error").Inc()
		c.logger.WarnContext(ctx, "enrollment cache read failed", "error", err)
	}

	ok, err := c.next.IsActivelyEnrolled(ctx, subjectID, partitionID)
	if err != nil || !ok {
		return ok, err
	}
	if err := c.client.Set(ctx, key, "1", c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "enrollment cache write failed", "error", err)
	}
	return true, nil
}

// Invalidate drops a cached answer, e.g. when a withdrawal is announced.
func (c *Checker) Invalidate(ctx context.Context, subjectID, partitionID string) error {
	return c.client.Del(ctx, cacheKey(subjectID, partitionID)).Err()
}
