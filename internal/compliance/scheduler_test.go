package compliance

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sweeperFunc func(ctx context.Context) (int, error)

func (f sweeperFunc) ExpirySweep(ctx context.Context) (int, error) { return f(ctx) }

func TestSchedulerAdd(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := NewScheduler(logger)

	require.NoError(t, s.Add(AuditJob("@every 1h", runnerFunc(func(context.Context) (*Report, error) { return nil, nil }))))
	assert.Error(t, s.Add(AuditJob("@every 2h", runnerFunc(func(context.Context) (*Report, error) { return nil, nil }))), "duplicate job name")
	assert.Error(t, s.Add(Job{Name: "bad", Schedule: "not a schedule", Run: func(context.Context) error { return nil }}))
	assert.NoError(t, s.Add(Job{Name: "disabled"}))

	s.Start()
	s.Stop()
}

func TestExpirySweepJob(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	calls := 0
	job := ExpirySweepJob("@every 1m", sweeperFunc(func(context.Context) (int, error) {
		calls++
		return 2, nil
	}), logger)
	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 1, calls)

	failing := ExpirySweepJob("@every 1m", sweeperFunc(func(context.Context) (int, error) {
		return 0, errors.New("store unavailable")
	}), logger)
	assert.Error(t, failing.Run(context.Background()))
}
