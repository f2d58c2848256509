package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestFilterAttributesDropsHighCardinalityLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("method", "MIXED"),
		attribute.String("order_id", "1234"),
		attribute.String("user_id", "42"),
		attribute.String("kind", "conflict"),
	)
	require.Len(t, attrs, 2)
	assert.Equal(t, attribute.Key("method"), attrs[0].Key)
	assert.Equal(t, attribute.Key("kind"), attrs[1].Key)
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	assert.NotPanics(t, func() {
		m.RecordOrderCreated(ctx)
		m.RecordTransition(ctx, "PENDING_PAYMENT", "PAID")
		m.RecordPayment(ctx, "POINTS")
		m.RecordRefund(ctx, "PAID")
		m.RecordLedgerEntry(ctx, "EXPENSE", "POINTS")
		m.RecordFailure(ctx, "pay", "conflict")
	})
}

func TestNewWithNoopProvider(t *testing.T) {
	m, err := New(Config{ServiceName: "codemart-test"}, noop.NewMeterProvider())
	require.NoError(t, err)
	assert.NotPanics(t, func() {
		m.RecordPayment(context.Background(), "BALANCE")
	})
}
