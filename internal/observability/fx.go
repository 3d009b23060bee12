package observability

import (
	"github.com/smallbiznis/metrolab/internal/observability/logger"
	"github.com/smallbiznis/metrolab/internal/observability/metrics"
	"github.com/smallbiznis/metrolab/internal/observability/tracing"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
)

// Module wires logging, tracing and the verification meters from one Config.
var Module = fx.Module("observability",
	fx.Provide(
		LoadConfig,
		func(cfg Config) logger.Config {
			return logger.Config{
				ServiceName:         cfg.ServiceName,
				Environment:         cfg.Environment,
				Version:             cfg.Version,
				Level:               cfg.Log.Level,
				Format:              cfg.Log.Format,
				Debug:               cfg.Debug(),
				IncludeCaller:       true,
				IncludeStackOnError: cfg.Debug(),
			}
		},
		logger.New,
		func(cfg Config) tracing.Config {
			return tracing.Config{
				Enabled:          cfg.Otel.Enabled,
				ServiceName:      cfg.ServiceName,
				ServiceVersion:   cfg.Version,
				Environment:      cfg.Environment,
				ExporterEndpoint: cfg.Otel.Endpoint,
				ExporterProtocol: cfg.Otel.Protocol,
				SamplingRatio:    cfg.Otel.SamplingRatio,
			}
		},
		tracing.NewProvider,
		func(cfg Config) metrics.Config {
			return metrics.Config{
				Enabled:          cfg.Otel.Enabled,
				ExporterEndpoint: cfg.Otel.Endpoint,
				ExporterProtocol: cfg.Otel.Protocol,
				ServiceName:      cfg.ServiceName,
				Environment:      cfg.Environment,
			}
		},
		metrics.NewProvider,
		metrics.New,
		metrics.NewHTTPMetrics,
		metrics.VerificationWithConfig,
	),
	// The tracer provider has no consumer besides the global otel hooks.
	fx.Invoke(func(*sdktrace.TracerProvider) {}),
)
