package janitor

import (
	"context"
	"fmt"
	"time"

	"github.com/platinummonkey/larder/pkg/observability"
	"github.com/robfig/cron/v3"
)

// DefaultSchedule runs a purge every 15 minutes
const DefaultSchedule = "@every 15m"

// Logger is the subset of logging the scheduler needs. Both
// *observability.Logger and logrus loggers satisfy it.
type Logger interface {
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// Scheduler runs a Purger on a cron schedule
type Scheduler struct {
	cron    *cron.Cron
	purger  *Purger
	logger  Logger
	timeout time.Duration
}

// NewScheduler creates a scheduler. Each run is bounded by timeout; zero means
// no bound. Overlapping runs are skipped.
func NewScheduler(purger *Purger, logger Logger, timeout time.Duration) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		purger:  purger,
		logger:  logger,
		timeout: timeout,
	}
}

// Schedule registers the purge job under spec (standard cron or @every)
func (s *Scheduler) Schedule(spec string) error {
	if spec == "" {
		spec = DefaultSchedule
	}
	if _, err := s.cron.AddFunc(spec, s.runJob); err != nil {
		return fmt.Errorf("failed to schedule purge %q: %w", spec, err)
	}
	s.logger.Infof("purge scheduled: %s", spec)
	return nil
}

// Start runs the scheduler in its own goroutine
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the scheduler and waits for a running purge, or for ctx
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce performs a single purge pass and logs its outcome
func (s *Scheduler) RunOnce(ctx context.Context) (Result, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	res, err := s.purger.Run(ctx)
	if err != nil {
		s.logger.Errorf("purge failed: %v", err)
		return res, err
	}
	s.logger.Infof("purge completed: %d revoked tokens, %d audit events", res.Revocations, res.AuditEvents)
	return res, nil
}

func (s *Scheduler) runJob() {
	defer func() {
		if err := observability.MustRecover(recover()); err != nil {
			s.logger.Errorf("purge %v", err)
		}
	}()
	_, _ = s.RunOnce(context.Background())
}
