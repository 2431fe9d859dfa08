package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	billingdomain "github.com/smallbiznis/rentflow/internal/billing/domain"
	"github.com/smallbiznis/rentflow/internal/clock"
	"github.com/smallbiznis/rentflow/internal/lock"
	obscontext "github.com/smallbiznis/rentflow/internal/observability/context"
	obsmetrics "github.com/smallbiznis/rentflow/internal/observability/metrics"
	"github.com/smallbiznis/rentflow/internal/providers/slack"
	subscriptiondomain "github.com/smallbiznis/rentflow/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log             *zap.Logger
	GenID           *snowflake.Node
	Clock           clock.Clock
	Locker          lock.Locker
	BillingSvc      billingdomain.Service
	SubscriptionSvc subscriptiondomain.Service

	Alerts slack.Provider `optional:"true"`
	Config Config         `optional:"true"`
}

type Scheduler struct {
	log             *zap.Logger
	cfg             Config
	genID           *snowflake.Node
	clock           clock.Clock
	locker          lock.Locker
	billingSvc      billingdomain.Service
	subscriptionSvc subscriptiondomain.Service
	alerts          slack.Provider

	jobs []job

	mu      sync.Mutex
	lastRun map[string]time.Time
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.GenID == nil || p.Clock == nil || p.Locker == nil || p.BillingSvc == nil || p.SubscriptionSvc == nil {
		return nil, ErrInvalidConfig
	}
	alerts := p.Alerts
	if alerts == nil {
		alerts = &slack.NoOpProvider{}
	}
	s := &Scheduler{
		log:             p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:             p.Config.withDefaults(),
		genID:           p.GenID,
		clock:           p.Clock,
		locker:          p.Locker,
		billingSvc:      p.BillingSvc,
		subscriptionSvc: p.SubscriptionSvc,
		alerts:          alerts,
		lastRun:         make(map[string]time.Time),
	}
	s.jobs = s.buildJobs()
	return s, nil
}

// RunJob runs name immediately under the job lock. ErrJobLocked is returned
// when another runner holds the lock.
func (s *Scheduler) RunJob(ctx context.Context, name string) (JobResult, error) {
	j, ok := s.lookup(strings.TrimSpace(name))
	if !ok {
		return JobResult{Job: name}, ErrUnknownJob
	}
	return s.runLocked(withTrigger(ctx, triggerManual), j)
}

func (s *Scheduler) runLocked(parent context.Context, j job) (JobResult, error) {
	result := JobResult{Job: j.name}
	schedMetrics := obsmetrics.Scheduler()
	parent = obscontext.WithJob(parent, j.name)

	lockStart := time.Now()
	token, ok, err := s.locker.TryLock(parent, lockKey(j.name), s.cfg.LockTTL)
	schedMetrics.ObserveLockWait(obsmetrics.LockResourceJob, time.Since(lockStart))
	if err != nil {
		schedMetrics.IncSkipped(j.name, obsmetrics.SchedulerSkipReasonLockError)
		s.logger(parent).Error("scheduler.job.lock_failed", zap.Error(err))
		return result, fmt.Errorf("%s: acquire lock: %w", j.name, err)
	}
	if !ok {
		schedMetrics.IncSkipped(j.name, obsmetrics.SchedulerSkipReasonLockHeld)
		s.logger(parent).Info("scheduler.job.skipped",
			zap.String("reason", obsmetrics.SchedulerSkipReasonLockHeld),
		)
		return result, ErrJobLocked
	}
	defer func() {
		if err := s.locker.Release(context.WithoutCancel(parent), lockKey(j.name), token); err != nil {
			s.logger(parent).Warn("scheduler.job.unlock_failed", zap.Error(err))
		}
	}()

	s.markRun(j.name, s.clock.Now())
	err = s.runJob(parent, j.name, s.cfg.JobTimeout, func(ctx context.Context) error {
		run := jobRunFromContext(ctx)
		result.RunID = run.runID
		detail, processed, err := j.run(ctx)
		result.Result = detail
		result.Processed = processed
		run.record(detail, processed, err)
		schedMetrics.AddBatchProcessed(j.name, j.resource, processed)
		return err
	})
	if err != nil {
		s.alert(parent, j.name, result.RunID, err)
	}
	return result, err
}

func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	timeout time.Duration,
	fn func(ctx context.Context) error,
) error {
	start := time.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	ctx = obscontext.WithActor(ctx, "system", "scheduler")
	ctx, run, owner := s.ensureJobRun(ctx, name)
	if owner {
		s.logJobStart(ctx, run)
	}
	log := s.logger(ctx).With(zap.String("run_id", run.runID))
	schedMetrics := obsmetrics.Scheduler()
	schedMetrics.IncJobRun(name)

	err := fn(ctx)
	schedMetrics.ObserveJobDuration(name, time.Since(start))
	if owner {
		if run.err == nil {
			run.err = err
		}
		s.logJobFinish(ctx, run)
	}
	if err == nil {
		return nil
	}

	// Timeouts are soft: the remaining rows are picked up on the next run.
	isTimeout := errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
	if isTimeout {
		schedMetrics.IncJobTimeout(name)
	}
	schedMetrics.IncJobError(name, err)
	if isTimeout {
		log.Warn("job timed out",
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	}

	return fmt.Errorf("%s: %w", name, err)
}

// RunOnce runs every enabled job whose cadence has elapsed.
func (s *Scheduler) RunOnce(parent context.Context) error {
	var err error
	now := s.clock.Now()
	for _, j := range s.jobs {
		if !s.isJobEnabled(j.name) {
			continue
		}
		if !s.isDue(j, now) {
			s.logger(parent).Debug("scheduler.job.skipped",
				zap.String("job", j.name),
				zap.String("reason", obsmetrics.SchedulerSkipReasonNotDue),
			)
			continue
		}
		_, jobErr := s.runLocked(withTrigger(parent, triggerTicker), j)
		if errors.Is(jobErr, ErrJobLocked) {
			continue
		}
		err = errors.Join(err, jobErr)
	}
	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()
	nextRun := time.Now().Add(s.cfg.RunInterval)
	schedMetrics := obsmetrics.Scheduler()

	for {
		runLag := time.Since(nextRun)
		if runLag > 0 {
			schedMetrics.ObserveRunLoopLag(runLag)
		}
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}
		nextRun = nextRun.Add(s.cfg.RunInterval)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) isJobEnabled(jobName string) bool {
	// No explicit list enables every job.
	if len(s.cfg.EnabledJobs) == 0 {
		return true
	}
	for _, enabled := range s.cfg.EnabledJobs {
		if strings.EqualFold(enabled, jobName) {
			return true
		}
	}
	return false
}

func (s *Scheduler) isDue(j job, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	last, ok := s.lastRun[j.name]
	return !ok || !now.Before(last.Add(j.cadence))
}

func (s *Scheduler) markRun(name string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastRun[name] = at
}

func (s *Scheduler) alert(ctx context.Context, name, runID string, err error) {
	msg := fmt.Sprintf(":rotating_light: rentflow job `%s` failed (run %s): %v", name, runID, err)
	if alertErr := s.alerts.PostMessage(context.WithoutCancel(ctx), s.cfg.AlertChannel, msg); alertErr != nil {
		s.logger(ctx).Warn("scheduler.alert.failed", zap.Error(alertErr))
	}
}
