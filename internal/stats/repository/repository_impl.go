package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/codemart/internal/stats/domain"
	"gorm.io/gorm"
)

// order statuses as stored; the stats package reads orders without importing the order context
const (
	statusCompleted int16 = 2
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

type aggregateRow struct {
	Status    int16
	Count     int64
	Total     decimal.NullDecimal
	MinAmount decimal.NullDecimal
	MaxAmount decimal.NullDecimal
}

func (r *repo) AggregateOrders(ctx context.Context, db *gorm.DB, filter domain.OrderFilter) ([]domain.StatusAggregate, error) {
	stmt := db.WithContext(ctx).
		Table("orders").
		Select("status, COUNT(*) AS count, SUM(amount) AS total, MIN(amount) AS min_amount, MAX(amount) AS max_amount")
	if filter.BuyerID != 0 {
		stmt = stmt.Where("buyer_id = ?", filter.BuyerID)
	}
	if filter.SellerID != 0 {
		stmt = stmt.Where("seller_id = ?", filter.SellerID)
	}
	if filter.From != nil {
		stmt = stmt.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		stmt = stmt.Where("created_at < ?", *filter.To)
	}

	var rows []aggregateRow
	if err := stmt.Group("status").Order("status").Scan(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]domain.StatusAggregate, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.StatusAggregate{
			Status:    row.Status,
			Count:     row.Count,
			Total:     row.Total.Decimal.Round(4),
			MinAmount: row.MinAmount.Decimal.Round(4),
			MaxAmount: row.MaxAmount.Decimal.Round(4),
		})
	}
	return out, nil
}

func (r *repo) HasCompletedOrder(ctx context.Context, db *gorm.DB, buyerID, projectID snowflake.ID) (snowflake.ID, bool, error) {
	var ids []int64
	err := db.WithContext(ctx).
		Table("orders").
		Where("buyer_id = ? AND project_id = ? AND status = ?", buyerID, projectID, statusCompleted).
		Order("id desc").
		Limit(1).
		Pluck("id", &ids).Error
	if err != nil {
		return 0, false, err
	}
	if len(ids) == 0 {
		return 0, false, nil
	}
	return snowflake.ID(ids[0]), true, nil
}

func (r *repo) IsProjectSeller(ctx context.Context, db *gorm.DB, projectID, userID snowflake.ID) (bool, error) {
	var count int64
	err := db.WithContext(ctx).
		Table("projects").
		Where("id = ? AND seller_id = ?", projectID, userID).
		Count(&count).Error
	return count > 0, err
}

func (r *repo) InsertDownload(ctx context.Context, db *gorm.DB, record *domain.DownloadRecord) error {
	return db.WithContext(ctx).Create(record).Error
}

func (r *repo) CountDownloads(ctx context.Context, db *gorm.DB, filter domain.DownloadFilter) (int64, int64, error) {
	var row struct {
		Total       int64
		UniqueUsers int64
	}
	err := downloads(ctx, db, filter).
		Select("COUNT(*) AS total, COUNT(DISTINCT user_id) AS unique_users").
		Scan(&row).Error
	if err != nil {
		return 0, 0, err
	}
	return row.Total, row.UniqueUsers, nil
}

func (r *repo) CountDownloadsBySource(ctx context.Context, db *gorm.DB, filter domain.DownloadFilter) ([]domain.SourceCount, error) {
	var rows []domain.SourceCount
	err := downloads(ctx, db, filter).
		Select("source, COUNT(*) AS count").
		Group("source").
		Order("source").
		Scan(&rows).Error
	return rows, err
}

func (r *repo) ListDownloadTimes(ctx context.Context, db *gorm.DB, filter domain.DownloadFilter) ([]time.Time, error) {
	var times []time.Time
	err := downloads(ctx, db, filter).
		Order("created_at asc").
		Pluck("created_at", &times).Error
	return times, err
}

func downloads(ctx context.Context, db *gorm.DB, filter domain.DownloadFilter) *gorm.DB {
	stmt := db.WithContext(ctx).
		Model(&domain.DownloadRecord{}).
		Where("project_id = ?", filter.ProjectID)
	if filter.From != nil {
		stmt = stmt.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		stmt = stmt.Where("created_at < ?", *filter.To)
	}
	return stmt
}
