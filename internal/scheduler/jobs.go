package scheduler

import (
	"context"
	"errors"
	"time"
)

const (
	JobGenerateBilling        = "generate_billing"
	JobAdjustLateFees         = "adjust_late_fees"
	JobDowngradeSubscriptions = "downgrade_subscriptions"
)

var (
	ErrInvalidConfig = errors.New("scheduler: invalid config")
	ErrUnknownJob    = errors.New("unknown_job")
	ErrJobLocked     = errors.New("job_locked")
)

// JobResult is returned by RunJob. Result carries the job's own counters.
type JobResult struct {
	Job       string `json:"job"`
	RunID     string `json:"run_id"`
	Processed int    `json:"processed"`
	Result    any    `json:"result,omitempty"`
}

type job struct {
	name     string
	resource string
	cadence  time.Duration
	run      func(ctx context.Context) (any, int, error)
}

// JobNames lists the jobs in run order.
func JobNames() []string {
	return []string{JobGenerateBilling, JobAdjustLateFees, JobDowngradeSubscriptions}
}

func (s *Scheduler) buildJobs() []job {
	return []job{
		{
			name:     JobGenerateBilling,
			resource: "lease",
			cadence:  24 * time.Hour,
			run: func(ctx context.Context) (any, int, error) {
				res, err := s.billingSvc.GenerateMonthly(ctx)
				return res, res.Processed(), err
			},
		},
		{
			name:     JobAdjustLateFees,
			resource: "billing",
			cadence:  24 * time.Hour,
			run: func(ctx context.Context) (any, int, error) {
				res, err := s.billingSvc.ApplyLateFees(ctx)
				return res, res.Scanned, err
			},
		},
		{
			name:     JobDowngradeSubscriptions,
			resource: "subscription",
			cadence:  24 * time.Hour,
			run: func(ctx context.Context) (any, int, error) {
				res, err := s.subscriptionSvc.DowngradeExpired(ctx)
				return res, res.Scanned, err
			},
		},
	}
}

func (s *Scheduler) lookup(name string) (job, bool) {
	for _, j := range s.jobs {
		if j.name == name {
			return j, true
		}
	}
	return job{}, false
}

func lockKey(name string) string {
	return "rentflow:scheduler:job:" + name
}
