package service

import (
	"context"

	"github.com/smallbiznis/codemart/internal/clock"
	"github.com/smallbiznis/codemart/internal/events/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MaxDispatchAttempts stops redelivery of an event that keeps failing.
const MaxDispatchAttempts = 10

type DispatcherParams struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Repo     domain.Repository
	Notifier domain.Notifier
	Clock    clock.Clock `optional:"true"`
}

type dispatcher struct {
	db       *gorm.DB
	log      *zap.Logger
	repo     domain.Repository
	notifier domain.Notifier
	clock    clock.Clock
}

func NewDispatcher(p DispatcherParams) domain.Dispatcher {
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &dispatcher{
		db:       p.DB,
		log:      p.Log.Named("events.dispatcher"),
		repo:     p.Repo,
		notifier: p.Notifier,
		clock:    clk,
	}
}

// DispatchPending hands undelivered events to the notifier in commit order.
// A notifier failure is recorded on the event and does not stop the batch.
func (d *dispatcher) DispatchPending(ctx context.Context, limit int) (domain.DispatchResult, error) {
	var result domain.DispatchResult

	pending, err := d.repo.ListPending(ctx, d.db, MaxDispatchAttempts, limit)
	if err != nil {
		return result, err
	}

	for _, evt := range pending {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if err := d.notifier.Notify(ctx, *evt); err != nil {
			result.Failed++
			d.log.Warn("order event delivery failed",
				zap.String("event_id", evt.ID.String()),
				zap.String("type", string(evt.Type)),
				zap.Int("attempts", evt.Attempts+1),
				zap.Error(err),
			)
			if markErr := d.repo.MarkFailed(ctx, d.db, evt.ID, err.Error()); markErr != nil {
				return result, markErr
			}
			continue
		}
		if err := d.repo.MarkDispatched(ctx, d.db, evt.ID, d.clock.Now()); err != nil {
			return result, err
		}
		result.Dispatched++
	}
	return result, nil
}
