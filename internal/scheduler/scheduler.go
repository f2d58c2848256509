package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/codemart/internal/clock"
	"github.com/smallbiznis/codemart/internal/config"
	eventsdomain "github.com/smallbiznis/codemart/internal/events/domain"
	obsmetrics "github.com/smallbiznis/codemart/internal/observability/metrics"
	orderdomain "github.com/smallbiznis/codemart/internal/order/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	JobExpirePendingOrders = "expire_pending_orders"
	JobDispatchOrderEvents = "dispatch_order_events"
)

var ErrInvalidConfig = errors.New("scheduler: missing dependency")

type Params struct {
	fx.In

	Log        *zap.Logger
	GenID      *snowflake.Node
	OrderSvc   orderdomain.Service
	Dispatcher eventsdomain.Dispatcher
	Policy     *config.PolicyHolder         `optional:"true"`
	Clock      clock.Clock                  `optional:"true"`
	Config     Config                       `optional:"true"`
	Metrics    *obsmetrics.SchedulerMetrics `optional:"true"`
}

type Scheduler struct {
	log        *zap.Logger
	cfg        Config
	genID      *snowflake.Node
	clock      clock.Clock
	orderSvc   orderdomain.Service
	dispatcher eventsdomain.Dispatcher
	policy     *config.PolicyHolder
	metrics    *obsmetrics.SchedulerMetrics
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.GenID == nil || p.OrderSvc == nil || p.Dispatcher == nil {
		return nil, ErrInvalidConfig
	}
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	m := p.Metrics
	if m == nil {
		m = obsmetrics.Scheduler()
	}
	return &Scheduler{
		log:        p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:        p.Config.withDefaults(),
		genID:      p.GenID,
		clock:      clk,
		orderSvc:   p.OrderSvc,
		dispatcher: p.Dispatcher,
		policy:     p.Policy,
		metrics:    m,
	}, nil
}

func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	batchSize int,
	timeout time.Duration,
	fn func(ctx context.Context) error,
) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	ctx, run, owner := s.ensureJobRun(ctx, name, batchSize)
	if owner {
		s.logJobStart(ctx, run)
	}
	s.metrics.IncJobRun(name)

	err := fn(ctx)
	s.metrics.ObserveJobDuration(name, s.clock.Now().Sub(start))
	s.metrics.AddProcessed(name, run.processedCount)
	if owner {
		if err != nil && run.errorCount == 0 {
			run.IncError()
		}
		s.logJobFinish(ctx, run)
	}
	if err == nil {
		return nil
	}

	// a deadline is a soft timeout; the next tick resumes the work
	isTimeout := errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
	if isTimeout {
		s.metrics.IncJobTimeout(name)
	}
	s.metrics.IncJobError(name, err)
	if isTimeout {
		s.logger(ctx).Warn("job timed out",
			zap.String("job", name),
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	}

	return fmt.Errorf("%s: %w", name, err)
}

// RunOnce runs every job once and joins their errors.
func (s *Scheduler) RunOnce(parent context.Context) error {
	var err error

	jobs := []struct {
		Name string
		Run  func(context.Context) error
	}{
		{JobExpirePendingOrders, s.ExpirePendingOrdersJob},
		{JobDispatchOrderEvents, s.DispatchOrderEventsJob},
	}

	for _, job := range jobs {
		err = errors.Join(err, s.runJob(parent, job.Name, s.cfg.BatchSize, s.cfg.JobTimeout, job.Run))
	}
	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()
	nextRun := s.clock.Now().Add(s.cfg.RunInterval)

	for {
		if runLag := s.clock.Now().Sub(nextRun); runLag > 0 {
			s.metrics.ObserveRunLoopLag(runLag)
		}
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}
		nextRun = nextRun.Add(s.cfg.RunInterval)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// ExpirePendingOrdersJob cancels orders left unpaid longer than the policy's pending TTL.
func (s *Scheduler) ExpirePendingOrdersJob(ctx context.Context) error {
	ttl := s.policy.Get().Orders.PendingTTL
	if ttl <= 0 {
		return nil
	}
	cutoff := s.clock.Now().Add(-ttl)
	run := jobRunFromContext(ctx)

	for batch := 0; batch < s.cfg.MaxBatches; batch++ {
		result, err := s.orderSvc.ExpirePending(ctx, cutoff, s.cfg.BatchSize)
		run.AddProcessed(result.Cancelled)
		if err != nil {
			return err
		}
		if result.Cancelled+result.Skipped < s.cfg.BatchSize {
			return nil
		}
	}
	return nil
}

// DispatchOrderEventsJob hands undelivered outbox events to the notifier.
func (s *Scheduler) DispatchOrderEventsJob(ctx context.Context) error {
	run := jobRunFromContext(ctx)

	for batch := 0; batch < s.cfg.MaxBatches; batch++ {
		result, err := s.dispatcher.DispatchPending(ctx, s.cfg.BatchSize)
		run.AddProcessed(result.Dispatched)
		if err != nil {
			return err
		}
		if result.Failed > 0 {
			run.IncError()
		}
		if result.Dispatched+result.Failed < s.cfg.BatchSize {
			return nil
		}
	}
	return nil
}
