package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/codemart/internal/config"
)

type PaymentMethod string

const (
	PaymentMethodPoints  PaymentMethod = "POINTS"
	PaymentMethodBalance PaymentMethod = "BALANCE"
	PaymentMethodMixed   PaymentMethod = "MIXED"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentMethodPoints || m == PaymentMethodBalance || m == PaymentMethodMixed
}

// DerivePaymentMethod tags a split by which components are non-zero.
func DerivePaymentMethod(points, balance decimal.Decimal) PaymentMethod {
	switch {
	case points.IsPositive() && balance.IsPositive():
		return PaymentMethodMixed
	case balance.IsPositive():
		return PaymentMethodBalance
	default:
		return PaymentMethodPoints
	}
}

type Order struct {
	ID             snowflake.ID    `gorm:"primaryKey" json:"id"`
	OrderNo        string          `gorm:"type:varchar(32);not null;uniqueIndex" json:"order_no"`
	BuyerID        snowflake.ID    `gorm:"not null;index:ix_orders_buyer_created,priority:1;index:ix_orders_buyer_project,priority:1" json:"buyer_id"`
	SellerID       snowflake.ID    `gorm:"not null;index:ix_orders_seller_created,priority:1" json:"seller_id"`
	ProjectID      snowflake.ID    `gorm:"not null;index:ix_orders_buyer_project,priority:2" json:"project_id"`
	Amount         decimal.Decimal `gorm:"type:numeric(20,4);not null" json:"amount"`
	PointsAmount   decimal.Decimal `gorm:"type:numeric(20,4);not null" json:"points_amount"`
	BalanceAmount  decimal.Decimal `gorm:"type:numeric(20,4);not null" json:"balance_amount"`
	RefundAmount   decimal.Decimal `gorm:"type:numeric(20,4);not null" json:"refund_amount"`
	Status         OrderStatus     `gorm:"type:smallint;not null;index:ix_orders_status_created,priority:1" json:"status"`
	PaymentMethod  PaymentMethod   `gorm:"type:varchar(16);not null" json:"payment_method,omitempty"`
	SettlementMode string          `gorm:"type:varchar(16);not null" json:"settlement_mode,omitempty"`
	Remark         string          `gorm:"type:varchar(500);not null" json:"remark,omitempty"`
	Version        int64           `gorm:"not null" json:"version"`
	CreatedAt      time.Time       `gorm:"not null;index:ix_orders_buyer_created,priority:2;index:ix_orders_seller_created,priority:2;index:ix_orders_status_created,priority:2" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"not null" json:"updated_at"`
	PaidAt         *time.Time      `json:"paid_at,omitempty"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"`
	CancelledAt    *time.Time      `json:"cancelled_at,omitempty"`
	RefundedAt     *time.Time      `json:"refunded_at,omitempty"`
}

// TableName sets the database table name.
func (Order) TableName() string { return "orders" }

// Validate checks the record invariants for the order's current status.
func (o Order) Validate() error {
	if !o.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if o.RefundAmount.IsNegative() || o.RefundAmount.GreaterThan(o.Amount) {
		return ErrInvalidRefundAmount
	}

	switch o.Status {
	case StatusPendingPayment:
		if o.PaidAt != nil || o.CompletedAt != nil || o.CancelledAt != nil || o.RefundedAt != nil {
			return ErrInconsistentOrder
		}
	case StatusPaid:
		if o.PaidAt == nil || o.CompletedAt != nil || o.CancelledAt != nil || o.RefundedAt != nil {
			return ErrInconsistentOrder
		}
	case StatusCompleted:
		if o.PaidAt == nil || o.CompletedAt == nil || o.CancelledAt != nil || o.RefundedAt != nil {
			return ErrInconsistentOrder
		}
	case StatusCancelled:
		if o.CancelledAt == nil || o.PaidAt != nil || o.CompletedAt != nil || o.RefundedAt != nil {
			return ErrInconsistentOrder
		}
	case StatusRefunded:
		// completion stays set when the refund followed completion
		if o.RefundedAt == nil || o.PaidAt == nil || o.CancelledAt != nil || !o.RefundAmount.IsPositive() {
			return ErrInconsistentOrder
		}
	default:
		return ErrInconsistentOrder
	}

	if o.Status != StatusPendingPayment && o.Status != StatusCancelled {
		if !o.PointsAmount.Add(o.BalanceAmount).Equal(o.Amount) {
			return ErrInconsistentOrder
		}
	}
	return nil
}

// ClearingSettled reports whether seller proceeds for this order were frozen at payment.
func (o Order) ClearingSettled() bool {
	return o.SettlementMode == config.SettlementClearing
}

// Split is how much of an amount is carried by each currency.
type Split struct {
	Points  decimal.Decimal
	Balance decimal.Decimal
}

func (s Split) Total() decimal.Decimal {
	return s.Points.Add(s.Balance)
}

// RefundSplit divides a refund points-first, up to the points the buyer paid,
// with the remainder in balance.
func (o Order) RefundSplit(amount decimal.Decimal) Split {
	points := decimal.Min(amount, o.PointsAmount)
	if points.IsNegative() {
		points = decimal.Zero
	}
	return Split{Points: points, Balance: amount.Sub(points)}
}
