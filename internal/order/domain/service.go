package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/codemart/internal/actor"
	"github.com/smallbiznis/codemart/pkg/db/pagination"
)

type CreateOrderRequest struct {
	Caller    actor.Actor
	ProjectID snowflake.ID
	Remark    string
}

type PayRequest struct {
	OrderID snowflake.ID
	Caller  actor.Actor
	// PaymentMethod is optional; when set it must match the split.
	PaymentMethod PaymentMethod
	PointsAmount  decimal.Decimal
	BalanceAmount decimal.Decimal
}

type CancelRequest struct {
	OrderID snowflake.ID
	Caller  actor.Actor
	Reason  string
}

type CompleteRequest struct {
	OrderID snowflake.ID
	Caller  actor.Actor
}

type RefundRequest struct {
	OrderID snowflake.ID
	Caller  actor.Actor
	Amount  decimal.Decimal
	Reason  string
}

type GetOrderRequest struct {
	Caller  actor.Actor
	OrderID snowflake.ID
	OrderNo string
}

// Perspective selects whose orders a listing or statistic covers.
type Perspective string

const (
	PerspectiveBuyer  Perspective = "buyer"
	PerspectiveSeller Perspective = "seller"
)

type ListOrdersRequest struct {
	Caller      actor.Actor
	Perspective Perspective
	Status      *OrderStatus
	PageToken   string
	PageSize    int32
}

type ListOrdersResponse struct {
	pagination.PageInfo
	Orders []Order `json:"orders"`
}

type ExpireResult struct {
	Cancelled int
	Skipped   int
}

type Service interface {
	CreateOrder(ctx context.Context, req CreateOrderRequest) (Order, error)
	Pay(ctx context.Context, req PayRequest) (Order, error)
	Cancel(ctx context.Context, req CancelRequest) (Order, error)
	Complete(ctx context.Context, req CompleteRequest) (Order, error)
	Refund(ctx context.Context, req RefundRequest) (Order, error)
	Get(ctx context.Context, req GetOrderRequest) (Order, error)
	List(ctx context.Context, req ListOrdersRequest) (ListOrdersResponse, error)
	// ExpirePending cancels PENDING_PAYMENT orders created before cutoff.
	ExpirePending(ctx context.Context, cutoff time.Time, limit int) (ExpireResult, error)
}
