package repository

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/codemart/internal/order/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, order *domain.Order) error {
	return db.WithContext(ctx).Create(order).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Order, error) {
	return first(db.WithContext(ctx).Where("id = ?", id))
}

func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Order, error) {
	return first(db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id))
}

func (r *repo) FindByOrderNo(ctx context.Context, db *gorm.DB, orderNo string) (*domain.Order, error) {
	return first(db.WithContext(ctx).Where("order_no = ?", strings.TrimSpace(orderNo)))
}

func first(stmt *gorm.DB) (*domain.Order, error) {
	var orders []domain.Order
	if err := stmt.Limit(1).Find(&orders).Error; err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, nil
	}
	return &orders[0], nil
}

func (r *repo) ExistsActive(ctx context.Context, db *gorm.DB, buyerID, projectID snowflake.ID) (bool, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.Order{}).
		Where("buyer_id = ? AND project_id = ?", buyerID, projectID).
		Where("status IN ?", []domain.OrderStatus{domain.StatusPendingPayment, domain.StatusPaid, domain.StatusCompleted}).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.Order, error) {
	var orders []*domain.Order
	stmt := db.WithContext(ctx).Model(&domain.Order{})
	if filter.BuyerID != 0 {
		stmt = stmt.Where("buyer_id = ?", filter.BuyerID)
	}
	if filter.SellerID != 0 {
		stmt = stmt.Where("seller_id = ?", filter.SellerID)
	}
	if filter.Status != nil {
		stmt = stmt.Where("status = ?", *filter.Status)
	}
	if filter.BeforeID != 0 {
		stmt = stmt.Where("id < ?", filter.BeforeID)
	}
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit)
	}
	if err := stmt.Order("id desc").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repo) Transition(ctx context.Context, db *gorm.DB, order *domain.Order, from domain.OrderStatus, fromVersion int64) error {
	result := db.WithContext(ctx).Exec(
		`UPDATE orders
		 SET status = ?, points_amount = ?, balance_amount = ?, refund_amount = ?,
		     payment_method = ?, settlement_mode = ?, version = ?, updated_at = ?,
		     paid_at = ?, completed_at = ?, cancelled_at = ?, refunded_at = ?
		 WHERE id = ? AND status = ? AND version = ?`,
		order.Status,
		order.PointsAmount,
		order.BalanceAmount,
		order.RefundAmount,
		order.PaymentMethod,
		order.SettlementMode,
		order.Version,
		order.UpdatedAt,
		order.PaidAt,
		order.CompletedAt,
		order.CancelledAt,
		order.RefundedAt,
		order.ID,
		from,
		fromVersion,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrOrderConflict
	}
	return nil
}

func (r *repo) ListExpiredPending(ctx context.Context, db *gorm.DB, cutoff time.Time, limit int) ([]*domain.Order, error) {
	var orders []*domain.Order
	stmt := db.WithContext(ctx).
		Where("status = ? AND created_at < ?", domain.StatusPendingPayment, cutoff)
	if limit > 0 {
		stmt = stmt.Limit(limit)
	}
	if err := stmt.Order("created_at asc, id asc").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}
