package compliance

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// Job is a periodic task run by the Scheduler.
type Job struct {
	Name     string
	Schedule string
	Run      func(ctx context.Context) error
}

// AuditJob runs the auditor on schedule.
func AuditJob(schedule string, auditor Runner) Job {
	return Job{
		Name:     "compliance_audit",
		Schedule: schedule,
		Run: func(ctx context.Context) error {
			_, err := auditor.Run(ctx)
			return err
		},
	}
}

// Sweeper reports authorizations that expired since the last sweep.
type Sweeper interface {
	ExpirySweep(ctx context.Context) (int, error)
}

func ExpirySweepJob(schedule string, sweeper Sweeper, logger *slog.Logger) Job {
	return Job{
		Name:     "breakglass_expiry_sweep",
		Schedule: schedule,
		Run: func(ctx context.Context) error {
			n, err := sweeper.ExpirySweep(ctx)
			if err != nil {
				return err
			}
			if n > 0 {
				logger.InfoContext(ctx, "break-glass authorizations expired", "count", n)
			}
			return nil
		},
	}
}

// Scheduler runs jobs on cron schedules. A job still running when its next
// tick arrives is skipped for that tick.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	entries map[string]cron.EntryID
}

func NewScheduler(logger *slog.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
		entries: make(map[string]cron.EntryID),
	}
}

// Add registers a job. An empty schedule disables it.
func (s *Scheduler) Add(job Job) error {
	if job.Schedule == "" {
		s.logger.Info("scheduled job disabled", "job", job.Name)
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.entries[job.Name]; dup {
		return fmt.Errorf("job %q already scheduled", job.Name)
	}
	id, err := s.cron.AddFunc(job.Schedule, func() {
		if err := job.Run(s.ctx); err != nil {
			s.logger.Warn("scheduled job failed",
				"job", job.Name,
				"error", err,
			)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q for job %s: %w", job.Schedule, job.Name, err)
	}
	s.entries[job.Name] = id
	s.logger.Info("scheduled job", "job", job.Name, "schedule", job.Schedule)
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.entries))
}

// Stop cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}
