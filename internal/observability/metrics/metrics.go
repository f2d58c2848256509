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
	ExportInterval   time.Duration
}

// Metrics exposes order and ledger instruments. A nil *Metrics records nothing.
type Metrics struct {
	ordersCreated     metric.Int64Counter
	orderTransitions  metric.Int64Counter
	payments          metric.Int64Counter
	refunds           metric.Int64Counter
	ledgerEntries     metric.Int64Counter
	operationFailures metric.Int64Counter
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

	interval := cfg.ExportInterval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
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

// New creates the domain instruments on the given provider.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "codemart"
	}
	meter := provider.Meter(name)

	m := &Metrics{}
	var err error
	if m.ordersCreated, err = meter.Int64Counter("codemart_orders_created_total", metric.WithDescription("Orders created.")); err != nil {
		return nil, err
	}
	if m.orderTransitions, err = meter.Int64Counter("codemart_order_transitions_total", metric.WithDescription("Order status transitions committed.")); err != nil {
		return nil, err
	}
	if m.payments, err = meter.Int64Counter("codemart_payments_total", metric.WithDescription("Orders paid, by payment method.")); err != nil {
		return nil, err
	}
	if m.refunds, err = meter.Int64Counter("codemart_refunds_total", metric.WithDescription("Orders refunded.")); err != nil {
		return nil, err
	}
	if m.ledgerEntries, err = meter.Int64Counter("codemart_ledger_entries_total", metric.WithDescription("Point ledger entries written.")); err != nil {
		return nil, err
	}
	if m.operationFailures, err = meter.Int64Counter("codemart_operation_failures_total", metric.WithDescription("Failed order operations, by error kind.")); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Metrics) RecordOrderCreated(ctx context.Context) {
	if m == nil {
		return
	}
	m.ordersCreated.Add(ctx, 1)
}

func (m *Metrics) RecordTransition(ctx context.Context, from, to string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("from", from),
		attribute.String("to", to),
	)
	m.orderTransitions.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordPayment(ctx context.Context, method string) {
	if m == nil {
		return
	}
	m.payments.Add(ctx, 1, metric.WithAttributes(FilterAttributes(attribute.String("method", method))...))
}

func (m *Metrics) RecordRefund(ctx context.Context, fromStatus string) {
	if m == nil {
		return
	}
	m.refunds.Add(ctx, 1, metric.WithAttributes(FilterAttributes(attribute.String("from", fromStatus))...))
}

func (m *Metrics) RecordLedgerEntry(ctx context.Context, entryType, currency string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("type", entryType),
		attribute.String("currency", currency),
	)
	m.ledgerEntries.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordFailure(ctx context.Context, operation, kind string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("operation", operation),
		attribute.String("kind", kind),
	)
	m.operationFailures.Add(ctx, 1, metric.WithAttributes(attrs...))
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
	"from":      {},
	"to":        {},
	"method":    {},
	"type":      {},
	"currency":  {},
	"operation": {},
	"kind":      {},
}

// FilterAttributes strips labels outside the allow list to keep cardinality bounded.
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
