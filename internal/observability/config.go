package observability

import (
	"strings"
	"time"

	"github.com/smallbiznis/codemart/internal/config"
	"github.com/smallbiznis/codemart/internal/observability/logger"
	"github.com/smallbiznis/codemart/internal/observability/metrics"
	"github.com/smallbiznis/codemart/internal/observability/tracing"
)

const (
	protocolGRPC = "grpc"
	protocolHTTP = "http"
)

// Config is the telemetry view of the application config. Each signal
// (logs, traces, metrics) gets its own projection below.
type Config struct {
	ServiceName string
	Environment string
	Version     string

	LogLevel  string
	LogFormat string

	OtelEnabled     bool
	Endpoint        string
	Protocol        string
	SamplingRatio   float64
	MetricsInterval time.Duration
}

// NewConfig normalizes the telemetry settings carried by config.Config.
// Unknown protocols fall back to gRPC and the sampling ratio is clamped to [0,1].
func NewConfig(cfg config.Config) Config {
	name := strings.TrimSpace(cfg.AppName)
	if name == "" {
		name = "codemart"
	}

	protocol := strings.ToLower(strings.TrimSpace(cfg.OTLPProtocol))
	switch protocol {
	case "http", "http/protobuf":
		protocol = protocolHTTP
	default:
		protocol = protocolGRPC
	}

	ratio := cfg.OtelSamplingRatio
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}

	format := strings.ToLower(strings.TrimSpace(cfg.LogFormat))
	if format != "console" {
		format = "json"
	}

	return Config{
		ServiceName:     name,
		Environment:     strings.TrimSpace(cfg.Environment),
		Version:         strings.TrimSpace(cfg.AppVersion),
		LogLevel:        strings.ToLower(strings.TrimSpace(cfg.LogLevel)),
		LogFormat:       format,
		OtelEnabled:     cfg.OtelEnabled && strings.TrimSpace(cfg.OTLPEndpoint) != "",
		Endpoint:        strings.TrimSpace(cfg.OTLPEndpoint),
		Protocol:        protocol,
		SamplingRatio:   ratio,
		MetricsInterval: cfg.MetricsInterval,
	}
}

// Debug turns on verbose logging and gin debug mode.
func (c Config) Debug() bool {
	if strings.EqualFold(strings.TrimSpace(c.LogLevel), "debug") {
		return true
	}
	switch strings.ToLower(strings.TrimSpace(c.Environment)) {
	case "dev", "development", "local", "test":
		return true
	}
	return false
}

func (c Config) Logger() logger.Config {
	return logger.Config{
		ServiceName:         c.ServiceName,
		Environment:         c.Environment,
		Version:             c.Version,
		Level:               c.LogLevel,
		Format:              c.LogFormat,
		Debug:               c.Debug(),
		IncludeCaller:       true,
		IncludeStackOnError: c.Debug(),
	}
}

func (c Config) Tracing() tracing.Config {
	return tracing.Config{
		Enabled:          c.OtelEnabled,
		ServiceName:      c.ServiceName,
		ServiceVersion:   c.Version,
		Environment:      c.Environment,
		ExporterEndpoint: c.Endpoint,
		ExporterProtocol: c.Protocol,
		SamplingRatio:    c.SamplingRatio,
	}
}

func (c Config) Metrics() metrics.Config {
	return metrics.Config{
		Enabled:          c.OtelEnabled,
		ExporterEndpoint: c.Endpoint,
		ExporterProtocol: c.Protocol,
		ServiceName:      c.ServiceName,
		Environment:      c.Environment,
		ExportInterval:   c.MetricsInterval,
	}
}
