package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/codemart/internal/actor"
	"gorm.io/gorm"
)

//go:generate mockgen -source=service.go -destination=./mocks/mock_service.go -package=mocks

// Event is what an orchestrator records about a transition.
type Event struct {
	OrderID    snowflake.ID
	OrderNo    string
	Type       EventType
	FromStatus string
	ToStatus   string
	Actor      actor.Actor
	Payload    map[string]any
}

// Outbox records events inside the caller's transaction so they commit with the transition.
type Outbox interface {
	PublishTx(ctx context.Context, tx *gorm.DB, evt Event) error
}

// Notifier delivers one event to whoever listens for it.
type Notifier interface {
	Notify(ctx context.Context, evt OrderEvent) error
}

type DispatchResult struct {
	Dispatched int
	Failed     int
}

type Dispatcher interface {
	DispatchPending(ctx context.Context, limit int) (DispatchResult, error)
}

var (
	ErrInvalidEvent        = errors.New("invalid_order_event")
	ErrTransactionRequired = errors.New("outbox_requires_transaction")
)
