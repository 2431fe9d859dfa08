package scheduler

import (
	"time"

	"github.com/smallbiznis/rentflow/internal/config"
)

// Config controls the run loop, per-job budgets and the job lock.
type Config struct {
	RunInterval  time.Duration
	EnabledJobs  []string
	JobTimeout   time.Duration
	LockTTL      time.Duration
	AlertChannel string
}

func DefaultConfig() Config {
	return Config{
		RunInterval: 5 * time.Minute,
		JobTimeout:  10 * time.Minute,
		LockTTL:     15 * time.Minute,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	if c.LockTTL < c.JobTimeout {
		c.LockTTL = c.JobTimeout + 5*time.Minute
	}
	return c
}

func ProvideConfig(cfg config.Config) Config {
	return Config{
		RunInterval:  cfg.Scheduler.RunInterval,
		EnabledJobs:  cfg.Scheduler.Jobs,
		AlertChannel: cfg.Slack.Channel,
	}.withDefaults()
}
