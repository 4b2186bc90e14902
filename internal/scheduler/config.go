package scheduler

import (
	"time"

	"github.com/smallbiznis/opsalert/internal/config"
)

const JobDetectAlerts = "detect_alerts"

// Config controls the detection interval and per-job limits.
type Config struct {
	RunInterval      time.Duration
	DetectionTimeout time.Duration
	// LockTTL bounds how long a crashed replica can hold the pass lock.
	LockTTL     time.Duration
	EnabledJobs []string
}

func DefaultConfig() Config {
	return Config{
		RunInterval:      time.Hour,
		DetectionTimeout: 2 * time.Minute,
		LockTTL:          5 * time.Minute,
	}
}

func ProvideConfig(cfg config.Config) Config {
	return Config{
		RunInterval:      cfg.SchedulerInterval,
		DetectionTimeout: cfg.DetectionTimeout,
		EnabledJobs:      cfg.EnabledJobs,
	}.withDefaults()
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.DetectionTimeout <= 0 {
		c.DetectionTimeout = defaults.DetectionTimeout
	}
	if c.LockTTL <= 0 {
		c.LockTTL = c.DetectionTimeout + time.Minute
	}
	if c.LockTTL < c.DetectionTimeout {
		c.LockTTL = c.DetectionTimeout
	}
	return c
}
