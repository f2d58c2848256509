package service

import (
	"context"

	"github.com/smallbiznis/codemart/internal/events/domain"
	"go.uber.org/zap"
)

// LogNotifier writes each event to the log. Delivery to buyers and sellers
// is owned by the notification collaborator reading the same stream.
type LogNotifier struct {
	log *zap.Logger
}

func NewLogNotifier(log *zap.Logger) domain.Notifier {
	return &LogNotifier{log: log.Named("events.notifier")}
}

func (n *LogNotifier) Notify(ctx context.Context, evt domain.OrderEvent) error {
	n.log.Info("order event",
		zap.String("event_id", evt.ID.String()),
		zap.String("type", string(evt.Type)),
		zap.String("order_no", evt.OrderNo),
		zap.String("from", evt.FromStatus),
		zap.String("to", evt.ToStatus),
	)
	return nil
}
