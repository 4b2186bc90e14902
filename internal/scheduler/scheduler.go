package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/opsalert/internal/cache"
	"github.com/smallbiznis/opsalert/internal/clock"
	"github.com/smallbiznis/opsalert/internal/detection"
	obsmetrics "github.com/smallbiznis/opsalert/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrInvalidConfig = errors.New("invalid_scheduler_config")

const lockKeyPrefix = "opsalert:lock:"

// Runner executes one detection pass.
type Runner interface {
	Run(ctx context.Context) (detection.Result, error)
}

type locker interface {
	Enabled() bool
	TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error)
	Release(ctx context.Context, key, token string) error
}

type Params struct {
	fx.In

	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Runner  Runner
	Locker  *cache.Locker                `optional:"true"`
	Metrics *obsmetrics.SchedulerMetrics `optional:"true"`
	Config  Config                       `optional:"true"`
}

type Scheduler struct {
	log     *zap.Logger
	cfg     Config
	genID   *snowflake.Node
	clock   clock.Clock
	runner  Runner
	locker  locker
	metrics *obsmetrics.SchedulerMetrics
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.GenID == nil || p.Clock == nil || p.Runner == nil {
		return nil, ErrInvalidConfig
	}
	s := &Scheduler{
		log:     p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:     p.Config.withDefaults(),
		genID:   p.GenID,
		clock:   p.Clock,
		runner:  p.Runner,
		metrics: p.Metrics,
	}
	if p.Locker.Enabled() {
		s.locker = p.Locker
	}
	if s.metrics == nil {
		s.metrics = obsmetrics.Scheduler()
	}
	return s, nil
}

func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	timeout time.Duration,
	fn func(ctx context.Context) error,
) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	ctx, run, owner := s.ensureJobRun(ctx, name)
	if owner {
		s.logJobStart(ctx, run)
	}
	log := s.logger(ctx).With(
		zap.String("job", name),
		zap.String("run_id", run.runID),
	)
	s.metrics.IncJobRun(name)

	err := fn(ctx)
	s.metrics.ObserveJobDuration(name, s.clock.Now().Sub(start))
	if owner {
		if err != nil && run.errorCount == 0 {
			run.IncError()
		}
		s.logJobFinish(ctx, run)
	}
	if err == nil {
		return nil
	}

	// A pass that runs out of time is retried on the next tick.
	isTimeout := errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
	if isTimeout {
		s.metrics.IncJobTimeout(name)
	}
	s.metrics.IncJobError(name, err)
	if isTimeout {
		log.Warn("job timed out",
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	}

	return fmt.Errorf("%s: %w", name, err)
}

func (s *Scheduler) RunOnce(parent context.Context) error {
	var err error

	jobs := []struct {
		Name    string
		Enabled bool
		Run     func(context.Context) error
	}{
		{JobDetectAlerts, s.isJobEnabled(JobDetectAlerts), func(ctx context.Context) error {
			return s.runJob(ctx, JobDetectAlerts, s.cfg.DetectionTimeout, s.DetectAlertsJob)
		}},
	}

	for _, job := range jobs {
		if job.Enabled {
			err = errors.Join(err, job.Run(parent))
		}
	}
	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()
	nextRun := time.Now().Add(s.cfg.RunInterval)

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if lag := time.Since(nextRun); lag > 0 {
			s.metrics.ObserveRunLoopLag(lag)
		}
		nextRun = nextRun.Add(s.cfg.RunInterval)
	}
}

func (s *Scheduler) isJobEnabled(jobName string) bool {
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

// DetectAlertsJob runs one detection pass. With redis configured only the
// replica holding the lock runs it; the rest skip the tick.
func (s *Scheduler) DetectAlertsJob(ctx context.Context) error {
	run := jobRunFromContext(ctx)

	if s.locker != nil {
		key := lockKeyPrefix + JobDetectAlerts
		token, ok, err := s.locker.TryLock(ctx, key, s.cfg.LockTTL)
		if err != nil {
			s.logSchedulerError(ctx, run, "scheduler.lock.failed", JobDetectAlerts, err)
			return err
		}
		if !ok {
			s.metrics.IncJobSkipped(JobDetectAlerts, obsmetrics.SchedulerSkipReasonLockHeld)
			s.logger(ctx).Debug("scheduler.job.skipped",
				zap.String("job", JobDetectAlerts),
				zap.String("reason", obsmetrics.SchedulerSkipReasonLockHeld),
			)
			return nil
		}
		defer func() {
			if err := s.locker.Release(context.WithoutCancel(ctx), key, token); err != nil {
				s.logger(ctx).Warn("failed to release scheduler lock", zap.Error(err))
			}
		}()
	}

	result, err := s.runner.Run(ctx)
	run.AddProcessed(result.Persisted)
	for _, f := range result.Failures {
		run.IncError()
		s.logger(ctx).Warn("scheduler.detector.failed",
			zap.String("job", JobDetectAlerts),
			zap.String("detector", f.Detector),
			zap.String("error", f.Error),
		)
	}
	if err != nil {
		s.logSchedulerError(ctx, run, "scheduler.pass.failed", JobDetectAlerts, err,
			zap.String("pass_id", result.PassID),
		)
		return err
	}
	return nil
}
