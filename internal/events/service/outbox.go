package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/codemart/internal/clock"
	"github.com/smallbiznis/codemart/internal/events/domain"
	"go.uber.org/fx"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type OutboxParams struct {
	fx.In

	GenID *snowflake.Node
	Repo  domain.Repository
	Clock clock.Clock `optional:"true"`
}

type outbox struct {
	genID *snowflake.Node
	repo  domain.Repository
	clock clock.Clock
}

func NewOutbox(p OutboxParams) domain.Outbox {
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &outbox{genID: p.GenID, repo: p.Repo, clock: clk}
}

func (o *outbox) PublishTx(ctx context.Context, tx *gorm.DB, evt domain.Event) error {
	if tx == nil {
		return domain.ErrTransactionRequired
	}
	if evt.OrderID == 0 || strings.TrimSpace(string(evt.Type)) == "" || evt.ToStatus == "" {
		return domain.ErrInvalidEvent
	}

	payload := datatypes.JSONMap{}
	for key, value := range evt.Payload {
		if key == "" {
			continue
		}
		payload[key] = value
	}

	actorType := string(evt.Actor.Role)
	if actorType == "" {
		actorType = "system"
	}
	record := domain.OrderEvent{
		ID:         o.genID.Generate(),
		OrderID:    evt.OrderID,
		OrderNo:    evt.OrderNo,
		Type:       evt.Type,
		FromStatus: evt.FromStatus,
		ToStatus:   evt.ToStatus,
		ActorType:  actorType,
		Payload:    payload,
		CreatedAt:  o.clock.Now(),
	}
	if evt.Actor.UserID != 0 {
		id := evt.Actor.UserID.String()
		record.ActorID = &id
	}
	return o.repo.Insert(ctx, tx, &record)
}
