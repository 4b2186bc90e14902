package detection

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	alertdomain "github.com/smallbiznis/opsalert/internal/alert/domain"
	"github.com/smallbiznis/opsalert/internal/cache"
	"github.com/smallbiznis/opsalert/internal/clock"
	"github.com/smallbiznis/opsalert/internal/config"
	obscontext "github.com/smallbiznis/opsalert/internal/observability/context"
	"github.com/smallbiznis/opsalert/internal/observability/logger"
	"github.com/smallbiznis/opsalert/internal/observability/metrics"
	"github.com/smallbiznis/opsalert/internal/observability/tracing"
	"github.com/smallbiznis/opsalert/internal/providers/slack"
	pkgdb "github.com/smallbiznis/opsalert/pkg/db"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const (
	persistReasonTransient = "transient_db"
	persistReasonPermanent = "permanent_db"
)

// Failure records one detector whose read failed during a pass.
type Failure struct {
	Detector string `json:"detector"`
	Error    string `json:"error"`
}

// Result summarises a detection pass.
type Result struct {
	PassID     string               `json:"pass_id"`
	Detected   int                  `json:"detected"`
	Persisted  int                  `json:"persisted"`
	Suppressed int                  `json:"suppressed"`
	Dropped    int                  `json:"dropped"`
	Failed     int                  `json:"failed"`
	Failures   []Failure            `json:"failures,omitempty"`
	Drafts     []alertdomain.Draft  `json:"-"`
	Alerts     []*alertdomain.Alert `json:"-"`
}

type AggregatorParams struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Config   config.Config
	Registry *Registry
	Repo     alertdomain.Repository
	Clock    clock.Clock

	Guard            cache.Guard               `optional:"true"`
	Notifier         slack.Provider            `optional:"true"`
	Metrics          *metrics.Metrics          `optional:"true"`
	SchedulerMetrics *metrics.SchedulerMetrics `optional:"true"`
}

// Aggregator runs every enabled detector concurrently and persists the
// combined output as one batch.
type Aggregator struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	registry *Registry
	repo     alertdomain.Repository
	clock    clock.Clock
	guard    cache.Guard
	notifier slack.Provider
	channel  string
	metrics  *metrics.Metrics
	sched    *metrics.SchedulerMetrics
}

func NewAggregator(p AggregatorParams) *Aggregator {
	guard := p.Guard
	if guard == nil {
		guard = cache.NoopGuard()
	}
	notifier := p.Notifier
	if notifier == nil {
		notifier = &slack.NoOpProvider{}
	}
	return &Aggregator{
		db:       p.DB,
		log:      p.Log.Named("detection"),
		genID:    p.GenID,
		registry: p.Registry,
		repo:     p.Repo,
		clock:    p.Clock,
		guard:    guard,
		notifier: notifier,
		channel:  p.Config.SlackChannel,
		metrics:  p.Metrics,
		sched:    p.SchedulerMetrics,
	}
}

// Run executes one full detection pass. A failing detector contributes
// nothing and is reported in Result.Failures; a failed insert returns
// ErrPersistFailed and leaves the store untouched.
func (a *Aggregator) Run(ctx context.Context) (Result, error) {
	started := time.Now()
	passID := ulid.Make().String()
	ctx = obscontext.WithPassID(ctx, passID)
	ctx, span := tracing.Tracer().Start(ctx, "detection.pass")
	defer span.End()
	log := logger.WithContext(ctx, a.log)

	now := a.clock.Now().UTC()
	result := Result{PassID: passID}

	drafts := a.collect(ctx, now, &result)
	if err := ctx.Err(); err != nil {
		span.SetStatus(codes.Error, "cancelled")
		return result, err
	}

	alerts, admitted := a.stamp(ctx, passID, now, drafts, &result)
	span.SetAttributes(
		attribute.Int("alerts.detected", result.Detected),
		attribute.Int("detectors.failed", result.Failed),
	)
	if len(alerts) == 0 {
		log.Info("detection pass produced no alerts",
			zap.Int("failed", result.Failed),
			zap.Int("suppressed", result.Suppressed),
		)
		a.metrics.ObservePass(ctx, time.Since(started), false)
		return result, nil
	}

	if err := a.repo.BatchInsert(ctx, a.db, alerts); err != nil {
		reason := persistReasonPermanent
		if pkgdb.IsTransientErr(err) {
			reason = persistReasonTransient
		}
		if releaseErr := a.guard.Release(context.WithoutCancel(ctx), admitted...); releaseErr != nil {
			log.Warn("failed to release dedup fingerprints", zap.Error(releaseErr))
		}
		a.metrics.RecordPersistFailure(ctx, reason)
		a.metrics.ObservePass(ctx, time.Since(started), false)
		span.RecordError(tracing.SafeError(err))
		span.SetStatus(codes.Error, reason)
		log.Error("failed to persist alerts",
			zap.Int("alerts", len(alerts)),
			zap.String("reason", reason),
			zap.Error(err),
		)
		return result, fmt.Errorf("%w: %w", ErrPersistFailed, err)
	}

	result.Persisted = len(alerts)
	result.Alerts = alerts
	a.recordPersisted(ctx, alerts)
	a.metrics.ObservePass(ctx, time.Since(started), true)
	log.Info("detection pass persisted alerts",
		zap.Int("persisted", result.Persisted),
		zap.Int("failed", result.Failed),
		zap.Int("suppressed", result.Suppressed),
	)

	a.notify(ctx, log, alerts)
	return result, nil
}

// Preview runs every detector without writing anything.
func (a *Aggregator) Preview(ctx context.Context) (Result, error) {
	ctx, span := tracing.Tracer().Start(ctx, "detection.preview")
	defer span.End()

	now := a.clock.Now().UTC()
	var result Result
	result.Drafts = a.collect(ctx, now, &result)
	result.Detected = len(result.Drafts)
	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

// LeaseBrief lists leases inside the short dashboard window.
func (a *Aggregator) LeaseBrief(ctx context.Context) ([]alertdomain.Draft, error) {
	lease := a.registry.Lease()
	if lease == nil {
		return nil, ErrLeaseUnavailable
	}
	return lease.DetectBrief(ctx, a.clock.Now().UTC())
}

func (a *Aggregator) collect(ctx context.Context, now time.Time, result *Result) []alertdomain.Draft {
	detectors := a.registry.Detectors()
	slots := make([][]alertdomain.Draft, len(detectors))
	errs := make([]error, len(detectors))

	var g errgroup.Group
	for i, d := range detectors {
		g.Go(func() error {
			start := time.Now()
			drafts, err := runDetector(ctx, d, now)
			a.sched.ObserveDetector(d.Name(), time.Since(start), err)
			if err != nil {
				errs[i] = err
				return nil
			}
			slots[i] = drafts
			return nil
		})
	}
	_ = g.Wait()

	log := logger.WithContext(ctx, a.log)
	var out []alertdomain.Draft
	for i, d := range detectors {
		if err := errs[i]; err != nil {
			result.Failed++
			result.Failures = append(result.Failures, Failure{Detector: d.Name(), Error: err.Error()})
			a.metrics.RecordDetectorFailure(ctx, d.Name())
			logger.WithDeployment(log, string(d.Deployment())).Error("detector read failed",
				zap.String("detector", d.Name()),
				zap.Error(err),
			)
			continue
		}
		for _, draft := range slots[i] {
			if err := draft.Validate(); err != nil {
				result.Dropped++
				log.Warn("dropping invalid draft",
					zap.String("detector", d.Name()),
					zap.String("kind", string(draft.Kind)),
					zap.Error(err),
				)
				continue
			}
			out = append(out, draft)
		}
	}
	return out
}

// runDetector converts a detector panic into a read failure so one broken
// detector cannot take down the pass.
func runDetector(ctx context.Context, d Detector, now time.Time) (drafts []alertdomain.Draft, err error) {
	defer func() {
		if r := recover(); r != nil {
			drafts = nil
			err = fmt.Errorf("detector panicked: %v", r)
		}
	}()
	return d.Detect(ctx, now)
}

func (a *Aggregator) stamp(ctx context.Context, passID string, now time.Time, drafts []alertdomain.Draft, result *Result) ([]*alertdomain.Alert, []string) {
	log := logger.WithContext(ctx, a.log)
	alerts := make([]*alertdomain.Alert, 0, len(drafts))
	var admitted []string

	for _, draft := range drafts {
		result.Detected++
		a.metrics.RecordDetected(ctx, string(draft.Deployment), string(draft.Kind), string(draft.Severity), 1)

		fingerprint := draft.Fingerprint(now)
		ok, err := a.guard.Admit(ctx, fingerprint)
		if err != nil {
			log.Warn("dedup guard unavailable, admitting alert", zap.Error(err))
			ok = true
		} else if ok {
			admitted = append(admitted, fingerprint)
		}
		if !ok {
			result.Suppressed++
			continue
		}

		alerts = append(alerts, &alertdomain.Alert{
			ID:          a.genID.Generate(),
			Deployment:  draft.Deployment,
			Kind:        draft.Kind,
			Severity:    draft.Severity,
			Title:       strings.TrimSpace(draft.Title),
			Description: draft.Description,
			SubjectType: draft.SubjectType,
			SubjectID:   strings.TrimSpace(draft.SubjectID),
			Metadata:    draft.Metadata.JSONMap(),
			Status:      alertdomain.StatusNew,
			PassID:      passID,
			Fingerprint: fingerprint,
			DetectedAt:  now,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}
	return alerts, admitted
}

func (a *Aggregator) recordPersisted(ctx context.Context, alerts []*alertdomain.Alert) {
	type key struct{ deployment, severity string }
	counts := make(map[key]int)
	for _, alert := range alerts {
		counts[key{string(alert.Deployment), string(alert.Severity)}]++
	}
	for k, n := range counts {
		a.metrics.RecordPersisted(ctx, k.deployment, n)
		a.sched.AddAlertsPersisted(k.deployment, k.severity, n)
	}
}

func (a *Aggregator) notify(ctx context.Context, log *zap.Logger, alerts []*alertdomain.Alert) {
	for _, alert := range alerts {
		if alert.Severity != alertdomain.SeverityCritical {
			continue
		}
		if err := a.notifier.PostMessage(ctx, a.channel, slack.AlertMessage(alert)); err != nil {
			log.Warn("failed to post critical alert",
				zap.String("alert_id", alert.ID.String()),
				zap.Error(err),
			)
			if errors.Is(err, context.Canceled) {
				return
			}
		}
	}
}
