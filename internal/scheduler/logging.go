package scheduler

import (
	"context"
	"errors"
	"time"

	obslogger "github.com/smallbiznis/rentflow/internal/observability/logger"
	"go.uber.org/zap"
)

const (
	triggerTicker = "ticker"
	triggerManual = "manual"
)

// jobRun is the per-execution record behind scheduler.job.start/finish.
type jobRun struct {
	job       string
	runID     string
	trigger   string
	startedAt time.Time

	processed int
	result    any
	err       error
}

type jobRunKey struct{}
type triggerKey struct{}

func withTrigger(ctx context.Context, trigger string) context.Context {
	return context.WithValue(ctx, triggerKey{}, trigger)
}

func triggerFromContext(ctx context.Context) string {
	if trigger, ok := ctx.Value(triggerKey{}).(string); ok {
		return trigger
	}
	return triggerManual
}

// record stores the job outcome for the finish log.
func (r *jobRun) record(result any, processed int, err error) {
	if r == nil {
		return
	}
	r.result = result
	r.processed += max(processed, 0)
	r.err = err
}

func (r *jobRun) status() string {
	switch {
	case r.err == nil:
		return "succeeded"
	case errors.Is(r.err, context.DeadlineExceeded), errors.Is(r.err, context.Canceled):
		return "timed_out"
	default:
		return "failed"
	}
}

// ensureJobRun reuses a run already on ctx; owner reports whether this call
// created it and therefore logs its start and finish.
func (s *Scheduler) ensureJobRun(ctx context.Context, job string) (context.Context, *jobRun, bool) {
	if ctx == nil {
		ctx = context.Background()
	}
	if existing := jobRunFromContext(ctx); existing != nil {
		return ctx, existing, false
	}
	run := &jobRun{
		job:       job,
		runID:     s.genID.Generate().String(),
		trigger:   triggerFromContext(ctx),
		startedAt: time.Now(),
	}
	return context.WithValue(ctx, jobRunKey{}, run), run, true
}

func jobRunFromContext(ctx context.Context) *jobRun {
	if ctx == nil {
		return nil
	}
	run, _ := ctx.Value(jobRunKey{}).(*jobRun)
	return run
}

func (s *Scheduler) logger(ctx context.Context) *zap.Logger {
	return obslogger.WithContext(ctx, s.log)
}

func (s *Scheduler) logJobStart(ctx context.Context, run *jobRun) {
	s.logger(ctx).Info("scheduler.job.start",
		zap.String("run_id", run.runID),
		zap.String("trigger", run.trigger),
	)
}

func (s *Scheduler) logJobFinish(ctx context.Context, run *jobRun) {
	fields := []zap.Field{
		zap.String("run_id", run.runID),
		zap.String("trigger", run.trigger),
		zap.String("status", run.status()),
		zap.Int64("duration_ms", time.Since(run.startedAt).Milliseconds()),
		zap.Int("processed_count", run.processed),
	}
	if run.result != nil {
		fields = append(fields, zap.Any("result", run.result))
	}
	log := s.logger(ctx)
	if run.err != nil {
		log.Warn("scheduler.job.finish", append(fields, zap.Error(run.err))...)
		return
	}
	log.Info("scheduler.job.finish", fields...)
}
