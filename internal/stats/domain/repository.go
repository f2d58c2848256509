package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderFilter selects orders by exactly one participant, optionally within [From, To).
type OrderFilter struct {
	BuyerID  snowflake.ID
	SellerID snowflake.ID
	From     *time.Time
	To       *time.Time
}

type StatusAggregate struct {
	Status    int16
	Count     int64
	Total     decimal.Decimal
	MinAmount decimal.Decimal
	MaxAmount decimal.Decimal
}

type DownloadFilter struct {
	ProjectID snowflake.ID
	From      *time.Time
	To        *time.Time
}

type SourceCount struct {
	Source string
	Count  int64
}

type Repository interface {
	AggregateOrders(ctx context.Context, db *gorm.DB, filter OrderFilter) ([]StatusAggregate, error)
	HasCompletedOrder(ctx context.Context, db *gorm.DB, buyerID, projectID snowflake.ID) (snowflake.ID, bool, error)
	IsProjectSeller(ctx context.Context, db *gorm.DB, projectID, userID snowflake.ID) (bool, error)

	InsertDownload(ctx context.Context, db *gorm.DB, record *DownloadRecord) error
	CountDownloads(ctx context.Context, db *gorm.DB, filter DownloadFilter) (total int64, unique int64, err error)
	CountDownloadsBySource(ctx context.Context, db *gorm.DB, filter DownloadFilter) ([]SourceCount, error)
	ListDownloadTimes(ctx context.Context, db *gorm.DB, filter DownloadFilter) ([]time.Time, error)
}
