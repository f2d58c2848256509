package observability

import (
	"github.com/smallbiznis/codemart/internal/observability/logger"
	"github.com/smallbiznis/codemart/internal/observability/metrics"
	"github.com/smallbiznis/codemart/internal/observability/tracing"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
)

// Module wires logs, traces and metrics from config.Config. The order and
// ledger services take *metrics.Metrics; the scheduler uses the process-wide
// Prometheus collectors registered here.
var Module = fx.Module("observability",
	fx.Provide(
		NewConfig,
		Config.Logger,
		Config.Tracing,
		Config.Metrics,
		logger.New,
		tracing.NewProvider,
		metrics.NewProvider,
		metrics.New,
		metrics.NewHTTPMetrics,
	),
	fx.Invoke(func(_ *sdktrace.TracerProvider) {}),
	fx.Invoke(func(cfg metrics.Config) { metrics.SchedulerWithConfig(cfg) }),
)
