// Package scheduler runs the reconciliation jobs on gocron v2.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/channelgate/channelgate/internal/infrastructure/metrics"
	"github.com/channelgate/channelgate/internal/shared/biztime"
	"github.com/channelgate/channelgate/internal/shared/goroutine"
	"github.com/channelgate/channelgate/internal/shared/logger"
)

// DefaultJobTimeout bounds a single job run when no timeout is configured.
const DefaultJobTimeout = 10 * time.Minute

// BatchJob is a scheduled sweep. Each Execute call processes one batch and returns the
// number of rows it changed.
type BatchJob interface {
	Name() string
	Execute(ctx context.Context) (int, error)
}

// JobSchedule binds a job to its fixed interval.
type JobSchedule struct {
	Job   BatchJob
	Every time.Duration
}

// SchedulerManager owns the gocron scheduler. Jobs run in singleton mode, so a slow run
// is never overlapped by the next tick of the same job; different jobs may overlap.
type SchedulerManager struct {
	scheduler  gocron.Scheduler
	logger     logger.Interface
	jobTimeout time.Duration

	// baseCtx is cancelled on Stop so long sweeps notice the shutdown.
	baseCtx    context.Context
	cancelBase context.CancelFunc

	started   bool
	startedMu sync.RWMutex
}

// NewSchedulerManager creates the scheduler in the business timezone.
func NewSchedulerManager(log logger.Interface, jobTimeout time.Duration) (*SchedulerManager, error) {
	s, err := gocron.NewScheduler(
		gocron.WithLocation(biztime.Location()),
	)
	if err != nil {
		return nil, err
	}
	if jobTimeout <= 0 {
		jobTimeout = DefaultJobTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &SchedulerManager{
		scheduler:  s,
		logger:     log,
		jobTimeout: jobTimeout,
		baseCtx:    ctx,
		cancelBase: cancel,
	}, nil
}

// RegisterJobs registers every schedule as an interval job that also fires on start.
func (m *SchedulerManager) RegisterJobs(schedules ...JobSchedule) error {
	for _, sc := range schedules {
		if sc.Job == nil {
			return errors.New("scheduler: nil job")
		}
		if sc.Every <= 0 {
			return fmt.Errorf("scheduler: job %s needs a positive interval", sc.Job.Name())
		}

		job := sc.Job
		_, err := m.scheduler.NewJob(
			gocron.DurationJob(sc.Every),
			gocron.NewTask(func() {
				ctx, cancel := context.WithTimeout(m.baseCtx, m.jobTimeout)
				defer cancel()
				m.runJob(ctx, job)
			}),
			gocron.WithStartAt(gocron.WithStartImmediately()),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
			gocron.WithTags("reconciliation", job.Name()),
			gocron.WithName(job.Name()),
		)
		if err != nil {
			return fmt.Errorf("failed to register job %s: %w", job.Name(), err)
		}

		m.logger.Infow("registered reconciliation job", "job", job.Name(), "interval", sc.Every.String())
	}
	return nil
}

func (m *SchedulerManager) runJob(ctx context.Context, job BatchJob) {
	defer goroutine.Recover(m.logger, job.Name())

	startTime := biztime.NowUTC()
	count, err := job.Execute(ctx)
	elapsed := time.Since(startTime)
	metrics.ObserveJob(job.Name(), count, elapsed, err)

	switch {
	case err != nil && ctx.Err() != nil && m.baseCtx.Err() != nil:
		// Shutting down.
		m.logger.Debugw("job interrupted by shutdown", "job", job.Name(), "count", count)
	case err != nil:
		m.logger.Errorw("job failed",
			"job", job.Name(),
			"error", err,
			"count", count,
			"duration", elapsed,
		)
	case count > 0:
		m.logger.Infow("job processed rows",
			"job", job.Name(),
			"count", count,
			"duration", elapsed,
		)
	default:
		m.logger.Debugw("job found nothing to do", "job", job.Name(), "duration", elapsed)
	}
}

// Start starts the scheduler and all registered jobs.
func (m *SchedulerManager) Start() {
	m.startedMu.Lock()
	defer m.startedMu.Unlock()

	if m.started {
		return
	}

	m.scheduler.Start()
	m.started = true
	m.logger.Infow("scheduler manager started", "job_count", len(m.scheduler.Jobs()))
}

// Stop cancels running jobs and waits for them to return.
func (m *SchedulerManager) Stop() error {
	m.startedMu.Lock()
	defer m.startedMu.Unlock()

	if !m.started {
		return nil
	}

	m.logger.Infow("stopping scheduler manager")

	m.cancelBase()
	err := m.scheduler.Shutdown()
	m.started = false

	if err != nil {
		m.logger.Errorw("scheduler manager shutdown with error", "error", err)
		return err
	}

	m.logger.Infow("scheduler manager stopped")
	return nil
}

// IsStarted returns whether the scheduler is running.
func (m *SchedulerManager) IsStarted() bool {
	m.startedMu.RLock()
	defer m.startedMu.RUnlock()
	return m.started
}

// Jobs returns all registered jobs for inspection.
func (m *SchedulerManager) Jobs() []gocron.Job {
	return m.scheduler.Jobs()
}
