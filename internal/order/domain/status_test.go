package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/codemart/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransitionTable(t *testing.T) {
	all := []OrderStatus{StatusPendingPayment, StatusPaid, StatusCompleted, StatusCancelled, StatusRefunded}
	allowed := map[[2]OrderStatus]bool{
		{StatusPendingPayment, StatusPaid}:      true,
		{StatusPendingPayment, StatusCancelled}: true,
		{StatusPaid, StatusCompleted}:           true,
		{StatusPaid, StatusRefunded}:            true,
		{StatusCompleted, StatusRefunded}:       true,
	}

	for _, from := range all {
		for _, to := range all {
			assert.Equal(t, allowed[[2]OrderStatus{from, to}], CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestTerminalStatuses(t *testing.T) {
	assert.True(t, StatusCancelled.IsTerminal())
	assert.True(t, StatusRefunded.IsTerminal())
	assert.False(t, StatusCompleted.IsTerminal())
	assert.False(t, StatusCompleted.CanPay())
	assert.True(t, StatusCompleted.CanRefund())
}

func TestStatusNamesRoundTrip(t *testing.T) {
	for _, s := range []OrderStatus{StatusPendingPayment, StatusPaid, StatusCompleted, StatusCancelled, StatusRefunded} {
		parsed, ok := ParseStatus(s.String())
		require.True(t, ok)
		assert.Equal(t, s, parsed)
	}
	_, ok := ParseStatus("SHIPPED")
	assert.False(t, ok)

	raw, err := json.Marshal(StatusPaid)
	require.NoError(t, err)
	assert.Equal(t, `"PAID"`, string(raw))
}

func TestDerivePaymentMethod(t *testing.T) {
	assert.Equal(t, PaymentMethodPoints, DerivePaymentMethod(decimal.NewFromInt(5), decimal.Zero))
	assert.Equal(t, PaymentMethodBalance, DerivePaymentMethod(decimal.Zero, decimal.NewFromInt(5)))
	assert.Equal(t, PaymentMethodMixed, DerivePaymentMethod(decimal.NewFromInt(1), decimal.NewFromInt(5)))
}

func TestRefundSplitPointsFirst(t *testing.T) {
	order := Order{
		Amount:        decimal.NewFromInt(1000),
		PointsAmount:  decimal.NewFromInt(600),
		BalanceAmount: decimal.NewFromInt(400),
	}

	split := order.RefundSplit(decimal.NewFromInt(700))
	assert.True(t, split.Points.Equal(decimal.NewFromInt(600)))
	assert.True(t, split.Balance.Equal(decimal.NewFromInt(100)))

	split = order.RefundSplit(decimal.NewFromInt(250))
	assert.True(t, split.Points.Equal(decimal.NewFromInt(250)))
	assert.True(t, split.Balance.IsZero())
}

func TestOrderValidate(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	base := Order{
		Amount:        decimal.NewFromInt(100),
		PointsAmount:  decimal.Zero,
		BalanceAmount: decimal.Zero,
		RefundAmount:  decimal.Zero,
		Status:        StatusPendingPayment,
	}
	require.NoError(t, base.Validate())

	paidWithoutTimestamp := base
	paidWithoutTimestamp.Status = StatusPaid
	paidWithoutTimestamp.PointsAmount = decimal.NewFromInt(100)
	assert.ErrorIs(t, paidWithoutTimestamp.Validate(), ErrInconsistentOrder)

	paid := paidWithoutTimestamp
	paid.PaidAt = &now
	require.NoError(t, paid.Validate())

	badSplit := paid
	badSplit.PointsAmount = decimal.NewFromInt(90)
	assert.ErrorIs(t, badSplit.Validate(), ErrInconsistentOrder)

	refunded := paid
	refunded.Status = StatusRefunded
	refunded.CompletedAt = &now
	refunded.RefundedAt = &now
	refunded.RefundAmount = decimal.NewFromInt(40)
	require.NoError(t, refunded.Validate())

	over := refunded
	over.RefundAmount = decimal.NewFromInt(101)
	err := over.Validate()
	assert.ErrorIs(t, err, errs.ErrValidation)

	zero := base
	zero.Amount = decimal.Zero
	assert.ErrorIs(t, zero.Validate(), ErrInvalidAmount)
}
