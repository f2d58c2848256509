package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/smallbiznis/codemart/internal/errs"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestClassifySchedulerJobReason(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{name: "deadline", err: context.DeadlineExceeded, want: SchedulerJobReasonDeadlineExceeded},
		{name: "db_lock_timeout", err: &pgconn.PgError{Code: "55P03"}, want: SchedulerJobReasonDBLockTimeout},
		{name: "serialization_failure", err: &pgconn.PgError{Code: "40001"}, want: SchedulerJobReasonSerializationFailure},
		{name: "unique_violation", err: gorm.ErrDuplicatedKey, want: SchedulerJobReasonUniqueViolation},
		{name: "business_rule", err: errs.New(errs.ErrInvalidState, "order_not_pending"), want: SchedulerJobReasonBusinessRule},
		{name: "unknown", err: errors.New("boom"), want: SchedulerJobReasonUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ClassifySchedulerJobReason(tc.err))
		})
	}
}

func TestSchedulerMetricsCounters(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := newSchedulerMetrics(registry, Config{ServiceName: "codemart", Environment: "test"})

	m.IncJobRun("expire_pending_orders")
	m.AddProcessed("expire_pending_orders", 3)
	m.AddProcessed("expire_pending_orders", 0)
	m.IncJobError("expire_pending_orders", context.DeadlineExceeded)
	m.ObserveJobDuration("expire_pending_orders", 20*time.Millisecond)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.jobRuns.WithLabelValues("expire_pending_orders")))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.itemsProcessed.WithLabelValues("expire_pending_orders")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.jobErrors.WithLabelValues("expire_pending_orders", SchedulerJobReasonDeadlineExceeded)))
}

func TestSchedulerMetricsReuseRegisteredCollectors(t *testing.T) {
	registry := prometheus.NewRegistry()
	first := newSchedulerMetrics(registry, Config{})
	second := newSchedulerMetrics(registry, Config{})

	first.IncJobRun("dispatch_order_events")
	assert.Equal(t, float64(1), testutil.ToFloat64(second.jobRuns.WithLabelValues("dispatch_order_events")))
}
