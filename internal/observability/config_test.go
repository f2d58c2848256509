package observability

import (
	"testing"
	"time"

	"github.com/smallbiznis/codemart/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestNewConfigNormalizes(t *testing.T) {
	cfg := NewConfig(config.Config{
		AppVersion:        " 1.2.0 ",
		Environment:       "production",
		LogLevel:          "WARN",
		LogFormat:         "text",
		OTLPEndpoint:      "collector:4318",
		OTLPProtocol:      "HTTP/protobuf",
		OtelEnabled:       true,
		OtelSamplingRatio: 3,
		MetricsInterval:   30 * time.Second,
	})

	assert.Equal(t, "codemart", cfg.ServiceName)
	assert.Equal(t, "1.2.0", cfg.Version)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, protocolHTTP, cfg.Protocol)
	assert.Equal(t, 1.0, cfg.SamplingRatio)
	assert.True(t, cfg.OtelEnabled)
	assert.False(t, cfg.Debug())

	m := cfg.Metrics()
	assert.Equal(t, 30*time.Second, m.ExportInterval)
	assert.Equal(t, "collector:4318", m.ExporterEndpoint)

	tr := cfg.Tracing()
	assert.Equal(t, 1.0, tr.SamplingRatio)
	assert.Equal(t, "1.2.0", tr.ServiceVersion)
}

func TestNewConfigDisablesExportWithoutEndpoint(t *testing.T) {
	cfg := NewConfig(config.Config{AppName: "codemart-worker", OtelEnabled: true, OTLPProtocol: "udp", OtelSamplingRatio: -1})

	assert.Equal(t, "codemart-worker", cfg.ServiceName)
	assert.False(t, cfg.OtelEnabled)
	assert.Equal(t, protocolGRPC, cfg.Protocol)
	assert.Zero(t, cfg.SamplingRatio)
}

func TestDebugFollowsLevelOrEnvironment(t *testing.T) {
	assert.True(t, Config{LogLevel: "debug", Environment: "production"}.Debug())
	assert.True(t, Config{LogLevel: "info", Environment: "local"}.Debug())
	assert.False(t, Config{LogLevel: "info"}.Debug())

	lc := Config{LogLevel: "debug"}.Logger()
	assert.True(t, lc.IncludeStackOnError)
	assert.True(t, lc.IncludeCaller)
}
