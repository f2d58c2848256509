package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/codemart/internal/actor"
	"github.com/smallbiznis/codemart/internal/authorization"
	eventsdomain "github.com/smallbiznis/codemart/internal/events/domain"
	ledgerdomain "github.com/smallbiznis/codemart/internal/ledger/domain"
	"github.com/smallbiznis/codemart/internal/lock"
	"github.com/smallbiznis/codemart/internal/order/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type leg struct {
	currency ledgerdomain.Currency
	amount   decimal.Decimal
}

// legs lists the non-zero currency components of a split.
func legs(split domain.Split) []leg {
	out := make([]leg, 0, 2)
	if split.Points.IsPositive() {
		out = append(out, leg{currency: ledgerdomain.CurrencyPoints, amount: split.Points})
	}
	if split.Balance.IsPositive() {
		out = append(out, leg{currency: ledgerdomain.CurrencyBalance, amount: split.Balance})
	}
	return out
}

func paidSplit(order domain.Order) domain.Split {
	return domain.Split{Points: order.PointsAmount, Balance: order.BalanceAmount}
}

// post writes one order-referenced ledger movement; description takes the order number.
func (s *Service) post(ctx context.Context, tx *gorm.DB, order domain.Order, userID snowflake.ID, l leg, typ ledgerdomain.TransactionType, description string) error {
	_, err := s.ledger.Post(ctx, tx, ledgerdomain.Posting{
		UserID:        userID,
		Currency:      l.currency,
		Type:          typ,
		Amount:        l.amount,
		Description:   fmt.Sprintf(description, order.OrderNo),
		ReferenceType: ledgerdomain.ReferenceOrder,
		ReferenceID:   order.ID,
	})
	return err
}

func (s *Service) Pay(ctx context.Context, req domain.PayRequest) (order domain.Order, err error) {
	ctx, span := s.startSpan(ctx, "order.pay",
		attribute.String("order_id", req.OrderID.String()),
		attribute.String("payment_method", string(req.PaymentMethod)),
	)
	defer func() { s.endSpan(ctx, span, "order.pay", err) }()

	if req.OrderID == 0 {
		return domain.Order{}, domain.ErrInvalidOrderID
	}
	if !req.Caller.Valid() {
		return domain.Order{}, domain.ErrInvalidCaller
	}
	if req.PaymentMethod != "" && !req.PaymentMethod.Valid() {
		return domain.Order{}, domain.ErrInvalidMethod
	}
	if err := s.authorize(ctx, req.Caller, authorization.ActionOrderPay); err != nil {
		return domain.Order{}, err
	}

	loaded, err := s.load(ctx, req.OrderID)
	if err != nil {
		return domain.Order{}, err
	}
	if !loaded.Status.CanPay() {
		return domain.Order{}, domain.ErrNotPayable
	}
	if req.Caller.UserID == 0 || req.Caller.UserID != loaded.BuyerID {
		return domain.Order{}, domain.ErrNotBuyer
	}

	split := domain.Split{Points: req.PointsAmount, Balance: req.BalanceAmount}
	if split.Points.IsNegative() || split.Balance.IsNegative() {
		return domain.Order{}, domain.ErrNegativeSplit
	}
	if !ledgerdomain.FitsScale(split.Points) || !ledgerdomain.FitsScale(split.Balance) {
		return domain.Order{}, domain.ErrAmountScale
	}
	if !split.Total().Equal(loaded.Amount) {
		return domain.Order{}, domain.ErrSplitMismatch
	}
	method := domain.DerivePaymentMethod(split.Points, split.Balance)
	if req.PaymentMethod != "" && req.PaymentMethod != method {
		return domain.Order{}, domain.ErrMethodMismatch
	}

	policy := s.policy.Get()

	release, err := s.locker.Acquire(ctx, lock.AccountKeys(loaded.BuyerID, loaded.SellerID)...)
	if err != nil {
		return domain.Order{}, err
	}
	defer release()

	now := s.clock.Now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.reverify(ctx, tx, loaded)
		if err != nil {
			return err
		}

		if split.Points.IsPositive() {
			available, err := s.ledger.Available(ctx, tx, current.BuyerID, ledgerdomain.CurrencyPoints)
			if err != nil {
				return err
			}
			if available.LessThan(split.Points) {
				return domain.ErrBuyerInsufficientPoints
			}
		}
		if split.Balance.IsPositive() {
			available, err := s.ledger.Available(ctx, tx, current.BuyerID, ledgerdomain.CurrencyBalance)
			if err != nil {
				return err
			}
			if available.LessThan(split.Balance) {
				return domain.ErrBuyerInsufficientBalance
			}
		}

		for _, l := range legs(split) {
			if err := s.post(ctx, tx, current, current.BuyerID, l, ledgerdomain.TypeExpense, "payment for order %s"); err != nil {
				return err
			}
			if err := s.post(ctx, tx, current, current.SellerID, l, ledgerdomain.TypeIncome, "sale of order %s"); err != nil {
				return err
			}
			if policy.ClearingEnabled() {
				if err := s.post(ctx, tx, current, current.SellerID, l, ledgerdomain.TypeFreeze, "clearing hold for order %s"); err != nil {
					return err
				}
			}
		}

		next := current
		next.Status = domain.StatusPaid
		next.PointsAmount = split.Points
		next.BalanceAmount = split.Balance
		next.PaymentMethod = method
		next.SettlementMode = policy.Settlement.Mode
		next.PaidAt = &now
		next.UpdatedAt = now
		if err := s.transition(ctx, tx, current, &next); err != nil {
			return err
		}
		order = next

		from := current.Status
		return s.publish(ctx, tx, order, eventsdomain.EventOrderPaid, &from, req.Caller, map[string]any{
			"payment_method":  string(method),
			"points_amount":   split.Points.String(),
			"balance_amount":  split.Balance.String(),
			"settlement_mode": order.SettlementMode,
		})
	})
	if err != nil {
		return domain.Order{}, err
	}

	s.obsMetrics.RecordTransition(ctx, loaded.Status.String(), order.Status.String())
	s.obsMetrics.RecordPayment(ctx, string(method))
	s.afterCommit(ctx, order, req.Caller, "order.pay", map[string]any{
		"order_no":        order.OrderNo,
		"payment_method":  string(method),
		"points_amount":   split.Points.String(),
		"balance_amount":  split.Balance.String(),
		"settlement_mode": order.SettlementMode,
	})
	return order, nil
}

func (s *Service) Cancel(ctx context.Context, req domain.CancelRequest) (order domain.Order, err error) {
	ctx, span := s.startSpan(ctx, "order.cancel", attribute.String("order_id", req.OrderID.String()))
	defer func() { s.endSpan(ctx, span, "order.cancel", err) }()

	if req.OrderID == 0 {
		return domain.Order{}, domain.ErrInvalidOrderID
	}
	if !req.Caller.Valid() {
		return domain.Order{}, domain.ErrInvalidCaller
	}
	if err := s.authorize(ctx, req.Caller, authorization.ActionOrderCancel); err != nil {
		return domain.Order{}, err
	}

	loaded, err := s.load(ctx, req.OrderID)
	if err != nil {
		return domain.Order{}, err
	}
	return s.cancel(ctx, loaded, req.Caller, strings.TrimSpace(req.Reason))
}

func (s *Service) cancel(ctx context.Context, loaded domain.Order, caller actor.Actor, reason string) (domain.Order, error) {
	if !loaded.Status.CanCancel() {
		return domain.Order{}, domain.ErrNotCancellable
	}
	if !isBuyerOrSystem(caller, loaded) {
		return domain.Order{}, domain.ErrNotBuyer
	}

	now := s.clock.Now()
	var order domain.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.reverify(ctx, tx, loaded)
		if err != nil {
			return err
		}
		next := current
		next.Status = domain.StatusCancelled
		next.CancelledAt = &now
		next.UpdatedAt = now
		if err := s.transition(ctx, tx, current, &next); err != nil {
			return err
		}
		order = next

		from := current.Status
		return s.publish(ctx, tx, order, eventsdomain.EventOrderCancelled, &from, caller, map[string]any{
			"reason": reason,
		})
	})
	if err != nil {
		return domain.Order{}, err
	}

	s.obsMetrics.RecordTransition(ctx, loaded.Status.String(), order.Status.String())
	s.afterCommit(ctx, order, caller, "order.cancel", map[string]any{
		"order_no": order.OrderNo,
		"reason":   reason,
	})
	return order, nil
}

func (s *Service) Complete(ctx context.Context, req domain.CompleteRequest) (order domain.Order, err error) {
	ctx, span := s.startSpan(ctx, "order.complete", attribute.String("order_id", req.OrderID.String()))
	defer func() { s.endSpan(ctx, span, "order.complete", err) }()

	if req.OrderID == 0 {
		return domain.Order{}, domain.ErrInvalidOrderID
	}
	if !req.Caller.Valid() {
		return domain.Order{}, domain.ErrInvalidCaller
	}
	if err := s.authorize(ctx, req.Caller, authorization.ActionOrderComplete); err != nil {
		return domain.Order{}, err
	}

	loaded, err := s.load(ctx, req.OrderID)
	if err != nil {
		return domain.Order{}, err
	}
	if !loaded.Status.CanComplete() {
		return domain.Order{}, domain.ErrNotCompletable
	}
	if !isBuyerOrSystem(req.Caller, loaded) {
		return domain.Order{}, domain.ErrNotBuyer
	}

	release, err := s.locker.Acquire(ctx, lock.AccountKeys(loaded.SellerID)...)
	if err != nil {
		return domain.Order{}, err
	}
	defer release()

	now := s.clock.Now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.reverify(ctx, tx, loaded)
		if err != nil {
			return err
		}
		if current.ClearingSettled() {
			for _, l := range legs(paidSplit(current)) {
				if err := s.post(ctx, tx, current, current.SellerID, l, ledgerdomain.TypeUnfreeze, "clearing release for order %s"); err != nil {
					return err
				}
			}
		}

		next := current
		next.Status = domain.StatusCompleted
		next.CompletedAt = &now
		next.UpdatedAt = now
		if err := s.transition(ctx, tx, current, &next); err != nil {
			return err
		}
		order = next

		from := current.Status
		if err := s.publish(ctx, tx, order, eventsdomain.EventOrderCompleted, &from, req.Caller, nil); err != nil {
			return err
		}
		return s.publish(ctx, tx, order, eventsdomain.EventEntitlementGranted, &from, req.Caller, map[string]any{
			"buyer_id":   order.BuyerID.String(),
			"project_id": order.ProjectID.String(),
		})
	})
	if err != nil {
		return domain.Order{}, err
	}

	s.obsMetrics.RecordTransition(ctx, loaded.Status.String(), order.Status.String())
	s.afterCommit(ctx, order, req.Caller, "order.complete", map[string]any{
		"order_no": order.OrderNo,
	})
	return order, nil
}

func (s *Service) Refund(ctx context.Context, req domain.RefundRequest) (order domain.Order, err error) {
	ctx, span := s.startSpan(ctx, "order.refund", attribute.String("order_id", req.OrderID.String()))
	defer func() { s.endSpan(ctx, span, "order.refund", err) }()

	if req.OrderID == 0 {
		return domain.Order{}, domain.ErrInvalidOrderID
	}
	if !req.Caller.Valid() {
		return domain.Order{}, domain.ErrInvalidCaller
	}
	if !req.Amount.IsPositive() {
		return domain.Order{}, domain.ErrInvalidRefundAmount
	}
	if !ledgerdomain.FitsScale(req.Amount) {
		return domain.Order{}, domain.ErrAmountScale
	}
	if err := s.authorize(ctx, req.Caller, authorization.ActionOrderRefund); err != nil {
		return domain.Order{}, err
	}

	loaded, err := s.load(ctx, req.OrderID)
	if err != nil {
		return domain.Order{}, err
	}
	if !loaded.Status.CanRefund() {
		return domain.Order{}, domain.ErrNotRefundable
	}
	if !isParticipant(req.Caller, loaded) {
		return domain.Order{}, domain.ErrNotParticipant
	}
	if req.Amount.GreaterThan(loaded.Amount) {
		return domain.Order{}, domain.ErrInvalidRefundAmount
	}

	now := s.clock.Now()
	if loaded.Status == domain.StatusCompleted && !s.policy.Get().RefundableAfterCompletion(loaded.CompletedAt, now) {
		return domain.Order{}, domain.ErrRefundNotAllowed
	}

	split := loaded.RefundSplit(req.Amount)
	reason := strings.TrimSpace(req.Reason)

	release, err := s.locker.Acquire(ctx, lock.AccountKeys(loaded.BuyerID, loaded.SellerID)...)
	if err != nil {
		return domain.Order{}, err
	}
	defer release()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.reverify(ctx, tx, loaded)
		if err != nil {
			return err
		}

		if current.Status == domain.StatusPaid && current.ClearingSettled() {
			for _, l := range legs(paidSplit(current)) {
				if err := s.post(ctx, tx, current, current.SellerID, l, ledgerdomain.TypeUnfreeze, "clearing release for refund of order %s"); err != nil {
					return err
				}
			}
		}

		for _, l := range legs(split) {
			available, err := s.ledger.Available(ctx, tx, current.SellerID, l.currency)
			if err != nil {
				return err
			}
			if available.LessThan(l.amount) {
				return domain.ErrSellerInsufficient
			}
		}

		for _, l := range legs(split) {
			if err := s.post(ctx, tx, current, current.SellerID, l, ledgerdomain.TypeExpense, "refund debit for order %s"); err != nil {
				if errors.Is(err, ledgerdomain.ErrInsufficientPoints) {
					return domain.ErrSellerInsufficient
				}
				return err
			}
			if err := s.post(ctx, tx, current, current.BuyerID, l, ledgerdomain.TypeIncome, "refund for order %s"); err != nil {
				return err
			}
		}

		next := current
		next.Status = domain.StatusRefunded
		next.RefundAmount = req.Amount
		next.RefundedAt = &now
		next.UpdatedAt = now
		if err := s.transition(ctx, tx, current, &next); err != nil {
			return err
		}
		order = next

		from := current.Status
		return s.publish(ctx, tx, order, eventsdomain.EventOrderRefunded, &from, req.Caller, map[string]any{
			"refund_amount":  req.Amount.String(),
			"points_amount":  split.Points.String(),
			"balance_amount": split.Balance.String(),
			"reason":         reason,
		})
	})
	if err != nil {
		return domain.Order{}, err
	}

	s.obsMetrics.RecordTransition(ctx, loaded.Status.String(), order.Status.String())
	s.obsMetrics.RecordRefund(ctx, loaded.Status.String())
	s.afterCommit(ctx, order, req.Caller, "order.refund", map[string]any{
		"order_no":      order.OrderNo,
		"refund_amount": req.Amount.String(),
		"from_status":   loaded.Status.String(),
		"reason":        reason,
	})
	return order, nil
}

// ExpirePending cancels stale unpaid orders as the system actor. Orders that
// moved while the sweep ran are counted as skipped.
func (s *Service) ExpirePending(ctx context.Context, cutoff time.Time, limit int) (domain.ExpireResult, error) {
	var result domain.ExpireResult
	if limit <= 0 {
		limit = 100
	}

	orders, err := s.repo.ListExpiredPending(ctx, s.db.WithContext(ctx), cutoff, limit)
	if err != nil {
		return result, err
	}

	system := actor.System()
	for _, order := range orders {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		_, err := s.cancel(ctx, *order, system, "expired")
		switch {
		case err == nil:
			result.Cancelled++
		case errors.Is(err, domain.ErrOrderConflict), errors.Is(err, domain.ErrNotCancellable):
			result.Skipped++
		default:
			return result, err
		}
	}

	if result.Cancelled > 0 || result.Skipped > 0 {
		s.log.Info("expired pending orders",
			zap.Int("cancelled", result.Cancelled),
			zap.Int("skipped", result.Skipped),
			zap.Time("cutoff", cutoff),
		)
	}
	return result, nil
}
