package logger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/smallbiznis/metrolab/internal/actorcontext"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config configures the zap logger.
type Config struct {
	ServiceName string
	Environment string
	Version     string
	Level       string
	Format      string
	Debug       bool

	Sampling            Sampling
	IncludeCaller       bool
	IncludeStackOnError bool
}

// Sampling keeps the first Initial entries per message and window, then
// every Thereafter-th one. Zero values fall back to defaultSampling.
type Sampling struct {
	Initial    int
	Thereafter int
	Window     time.Duration
}

var defaultSampling = Sampling{Initial: 100, Thereafter: 100, Window: time.Second}

func (s Sampling) withDefaults() Sampling {
	if s.Initial <= 0 {
		s.Initial = defaultSampling.Initial
	}
	if s.Thereafter <= 0 {
		s.Thereafter = defaultSampling.Thereafter
	}
	if s.Window <= 0 {
		s.Window = defaultSampling.Window
	}
	return s
}

// New builds the process logger, installs it as the zap global and syncs it
// on shutdown.
func New(lc fx.Lifecycle, cfg Config) (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	zapCfg.Encoding = normalizeFormat(cfg.Format)
	zapCfg.EncoderConfig.TimeKey = "ts"
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapCfg.OutputPaths = []string{"stdout"}
	zapCfg.ErrorOutputPaths = []string{"stderr"}
	zapCfg.Sampling = nil

	level := strings.TrimSpace(cfg.Level)
	if level == "" {
		level = "info"
	}
	if cfg.Debug && level == "info" {
		level = "debug"
	}
	if err := zapCfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	sampling := cfg.Sampling.withDefaults()
	options := []zap.Option{
		zap.WrapCore(func(core zapcore.Core) zapcore.Core {
			return zapcore.NewSamplerWithOptions(core, sampling.Window, sampling.Initial, sampling.Thereafter)
		}),
	}
	if cfg.IncludeCaller {
		options = append(options, zap.AddCaller())
	}
	if cfg.IncludeStackOnError {
		options = append(options, zap.AddStacktrace(zapcore.ErrorLevel))
	}

	base, err := zapCfg.Build(options...)
	if err != nil {
		return nil, err
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "metrolab"
	}
	log := base.With(
		zap.String("service", serviceName),
		zap.String("env", strings.TrimSpace(cfg.Environment)),
		zap.String("version", strings.TrimSpace(cfg.Version)),
	)
	zap.ReplaceGlobals(log)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(context.Context) error {
				_ = log.Sync()
				return nil
			},
		})
	}
	return log, nil
}

func normalizeFormat(format string) string {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "console" {
		return "console"
	}
	return "json"
}

// FromContext returns a logger enriched with request-scoped fields.
func FromContext(ctx context.Context) *zap.Logger {
	return WithContext(ctx, zap.L())
}

// WithContext enriches base with the request id, the actor and the active
// span. Empty values are left out.
func WithContext(ctx context.Context, base *zap.Logger) *zap.Logger {
	if ctx == nil || base == nil {
		return base
	}

	fields := make([]zap.Field, 0, 7)
	if meta := actorcontext.RequestMetaFromContext(ctx); meta.RequestID != "" {
		fields = append(fields, zap.String("request_id", meta.RequestID))
	}
	if actor, ok := actorcontext.ActorFromContext(ctx); ok {
		fields = append(fields, zap.String("actor_type", string(actor.Type)))
		if actor.UserID != "" {
			fields = append(fields, zap.String("actor_id", actor.UserID))
		}
		if actor.Role != "" {
			fields = append(fields, zap.String("actor_role", actor.Role))
		}
		if actor.CompanyID != 0 {
			fields = append(fields, zap.String("company_id", actor.CompanyID.String()))
		}
	}
	if sc := trace.SpanFromContext(ctx).SpanContext(); sc.IsValid() {
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
	}
	if len(fields) == 0 {
		return base
	}
	return base.With(fields...)
}
