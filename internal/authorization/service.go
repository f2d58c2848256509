package authorization

import (
	"context"
	"slices"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/codemart/internal/actor"
	"github.com/smallbiznis/codemart/internal/errs"
)

const (
	ObjectOrder  = "order"
	ObjectStats  = "stats"
	ObjectLedger = "ledger"
)

const (
	ActionOrderCreate   = "order.create"
	ActionOrderPay      = "order.pay"
	ActionOrderCancel   = "order.cancel"
	ActionOrderRefund   = "order.refund"
	ActionOrderComplete = "order.complete"
	ActionStatsView     = "stats.view"
	ActionLedgerView    = "ledger.view"
	ActionLedgerGrant   = "ledger.grant"
)

var (
	ErrInvalidActor  = errs.New(errs.ErrForbidden, "invalid_actor")
	ErrInvalidAction = errs.New(errs.ErrValidation, "invalid_action")
	ErrForbidden     = errs.New(errs.ErrForbidden, "action_not_granted")
)

// GrantSet is the flat set of actions a caller holds for a session.
type GrantSet map[string]struct{}

func (g GrantSet) Has(action string) bool {
	_, ok := g[action]
	return ok
}

func (g GrantSet) Actions() []string {
	out := make([]string, 0, len(g))
	for action := range g {
		out = append(out, action)
	}
	slices.Sort(out)
	return out
}

type Service interface {
	Grants(ctx context.Context, userID snowflake.ID, sessionRole actor.Role) (GrantSet, error)
	Authorize(ctx context.Context, caller actor.Actor, action string) error
}

// ObjectFor maps an action to the object it is checked against.
func ObjectFor(action string) string {
	switch action {
	case ActionStatsView:
		return ObjectStats
	case ActionLedgerView, ActionLedgerGrant:
		return ObjectLedger
	default:
		return ObjectOrder
	}
}
