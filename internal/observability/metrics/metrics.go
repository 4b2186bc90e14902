package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes alert-engine instruments exported over OTLP.
type Metrics struct {
	alertsDetected   metric.Int64Counter
	alertsPersisted  metric.Int64Counter
	detectorFailures metric.Int64Counter
	persistFailures  metric.Int64Counter
	passDuration     metric.Float64Histogram
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "opsalert"
	}
	meter := provider.Meter(name)

	alertsDetected, err := meter.Int64Counter("opsalert_alerts_detected_total")
	if err != nil {
		return nil, err
	}
	alertsPersisted, err := meter.Int64Counter("opsalert_alerts_persisted_total")
	if err != nil {
		return nil, err
	}
	detectorFailures, err := meter.Int64Counter("opsalert_detector_failures_total")
	if err != nil {
		return nil, err
	}
	persistFailures, err := meter.Int64Counter("opsalert_persist_failures_total")
	if err != nil {
		return nil, err
	}
	passDuration, err := meter.Float64Histogram("opsalert_detection_pass_seconds",
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		alertsDetected:   alertsDetected,
		alertsPersisted:  alertsPersisted,
		detectorFailures: detectorFailures,
		persistFailures:  persistFailures,
		passDuration:     passDuration,
	}, nil
}

// RecordDetected counts drafts a detector produced.
func (m *Metrics) RecordDetected(ctx context.Context, deployment, kind, severity string, n int) {
	if m == nil || n <= 0 {
		return
	}
	attrs := FilterAttributes(
		attribute.String("deployment", strings.TrimSpace(deployment)),
		attribute.String("kind", strings.TrimSpace(kind)),
		attribute.String("severity", strings.TrimSpace(severity)),
	)
	m.alertsDetected.Add(ctx, int64(n), metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordPersisted(ctx context.Context, deployment string, n int) {
	if m == nil || n <= 0 {
		return
	}
	attrs := FilterAttributes(attribute.String("deployment", strings.TrimSpace(deployment)))
	m.alertsPersisted.Add(ctx, int64(n), metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordDetectorFailure(ctx context.Context, detector string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("detector", strings.TrimSpace(detector)))
	m.detectorFailures.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordPersistFailure(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("reason", strings.TrimSpace(reason)))
	m.persistFailures.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) ObservePass(ctx context.Context, d time.Duration, persisted bool) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.Bool("persisted", persisted))
	m.passDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"deployment":  {},
	"kind":        {},
	"severity":    {},
	"detector":    {},
	"persisted":   {},
	"endpoint":    {},
	"status_code": {},
	"reason":      {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
