package observability

import (
	"os"
	"strconv"
	"strings"

	"github.com/smallbiznis/metrolab/internal/config"
)

// Config is the observability view of the process settings. Standard OTEL_*
// variables win over the application config so a collector sidecar can be
// wired without touching the service environment.
type Config struct {
	ServiceName string
	Environment string
	Version     string

	Log  LogSettings
	Otel OtelSettings
}

type LogSettings struct {
	Level  string
	Format string
}

type OtelSettings struct {
	Enabled       bool
	Endpoint      string
	Protocol      string
	SamplingRatio float64
}

const (
	defaultSamplingRatio = 0.1
	defaultOtelProtocol  = "grpc"
)

func LoadConfig(cfg config.Config) Config {
	name := strings.TrimSpace(cfg.AppName)
	if name == "" {
		name = "metrolab"
	}

	protocol := lookup("OTEL_EXPORTER_OTLP_TRACES_PROTOCOL", lookup("OTEL_EXPORTER_OTLP_PROTOCOL", defaultOtelProtocol))

	return Config{
		ServiceName: name,
		Environment: lookup("DEPLOYMENT_ENV", cfg.Environment),
		Version:     lookup("SERVICE_VERSION", cfg.AppVersion),
		Log: LogSettings{
			Level:  strings.ToLower(lookup("LOG_LEVEL", "info")),
			Format: strings.ToLower(lookup("LOG_FORMAT", "json")),
		},
		Otel: OtelSettings{
			Enabled:       lookupBool("OTEL_ENABLED", true),
			Endpoint:      lookup("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.OTLPEndpoint),
			Protocol:      strings.ToLower(protocol),
			SamplingRatio: lookupRatio("OTEL_SAMPLING_RATIO", defaultSamplingRatio),
		},
	}
}

// Debug is true for debug logging or any non-shared environment.
func (c Config) Debug() bool {
	if strings.EqualFold(c.Log.Level, "debug") {
		return true
	}
	switch strings.ToLower(strings.TrimSpace(c.Environment)) {
	case "dev", "development", "local", "test":
		return true
	}
	return false
}

func lookup(key, def string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return strings.TrimSpace(def)
}

func lookupBool(key string, def bool) bool {
	parsed, err := strconv.ParseBool(lookup(key, ""))
	if err != nil {
		return def
	}
	return parsed
}

// lookupRatio clamps the value to [0, 1].
func lookupRatio(key string, def float64) float64 {
	parsed, err := strconv.ParseFloat(lookup(key, ""), 64)
	if err != nil {
		return def
	}
	switch {
	case parsed < 0:
		return 0
	case parsed > 1:
		return 1
	}
	return parsed
}
