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

// Metrics exposes application-level instruments.
type Metrics struct {
	verifications     metric.Int64Counter
	submissionDenied  metric.Int64Counter
	rulesConfigReload metric.Int64Counter
}

const exportInterval = 10 * time.Second

// NewProvider installs the global meter provider. Disabled metrics get a
// noop provider so instruments can be created unconditionally.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		noopProvider := noop.NewMeterProvider()
		otel.SetMeterProvider(noopProvider)
		return noopProvider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, fmt.Errorf("metrics exporter: %w", err)
	}
	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(exportInterval))),
	)
	otel.SetMeterProvider(provider)

	if log == nil {
		log = zap.NewNop()
	}
	if lc != nil {
		lc.Append(fx.StopHook(func(ctx context.Context) error {
			log.Info("flushing meter provider")
			return provider.Shutdown(ctx)
		}))
	}
	log.Info("metrics exporter ready",
		zap.String("endpoint", cfg.ExporterEndpoint),
		zap.String("protocol", cfg.ExporterProtocol),
		zap.Duration("interval", exportInterval),
	)
	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "metrolab"
	}
	meter := provider.Meter(name)

	verifications, err := meter.Int64Counter("metrolab_verifications_total")
	if err != nil {
		return nil, err
	}
	submissionDenied, err := meter.Int64Counter("metrolab_submission_denied_total")
	if err != nil {
		return nil, err
	}
	rulesConfigReload, err := meter.Int64Counter("metrolab_rules_config_reload_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		verifications:     verifications,
		submissionDenied:  submissionDenied,
		rulesConfigReload: rulesConfigReload,
	}, nil
}

// RecordVerification counts a persisted verification by rule and verdict.
func (m *Metrics) RecordVerification(ctx context.Context, operation, rule string, isOK bool) {
	if m == nil {
		return
	}
	outcome := OutcomeFailed
	if isOK {
		outcome = OutcomePassed
	}
	attrs := FilterAttributes(
		attribute.String("operation", strings.TrimSpace(operation)),
		attribute.String("rule", strings.TrimSpace(rule)),
		attribute.String("outcome", outcome),
	)
	m.verifications.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordSubmissionDenied counts submissions refused before evaluation.
func (m *Metrics) RecordSubmissionDenied(ctx context.Context, operation, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("operation", strings.TrimSpace(operation)),
		attribute.String("reason", strings.TrimSpace(reason)),
	)
	m.submissionDenied.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordRulesConfigReload(ctx context.Context, ok bool) {
	if m == nil {
		return
	}
	outcome := OutcomeFailed
	if ok {
		outcome = OutcomePassed
	}
	m.rulesConfigReload.Add(ctx, 1, metric.WithAttributes(FilterAttributes(attribute.String("outcome", outcome))...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	ctx := context.Background()
	switch p := strings.ToLower(strings.TrimSpace(protocol)); p {
	case "http", "http/protobuf":
		var opts []otlpmetrichttp.Option
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(ctx, opts...)
	case "", "grpc", "grpc/protobuf":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", p)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"operation":   {},
	"rule":        {},
	"outcome":     {},
	"reason":      {},
	"endpoint":    {},
	"status_code": {},
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
