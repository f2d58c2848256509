package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// DownloadRecord is written by the delivery collaborator each time a file is served.
type DownloadRecord struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	ProjectID snowflake.ID `gorm:"not null;index:ix_download_records_project_created,priority:1" json:"project_id"`
	UserID    snowflake.ID `gorm:"not null;index" json:"user_id"`
	OrderID   snowflake.ID `gorm:"not null" json:"order_id"`
	Source    string       `gorm:"type:varchar(32);not null" json:"source"`
	CreatedAt time.Time    `gorm:"not null;index:ix_download_records_project_created,priority:2" json:"created_at"`
}

// TableName sets the database table name.
func (DownloadRecord) TableName() string { return "download_records" }

type UserOrderStats struct {
	UserID           snowflake.ID    `json:"user_id"`
	Perspective      string          `json:"perspective"`
	TotalOrders      int64           `json:"total_orders"`
	PendingOrders    int64           `json:"pending_orders"`
	PaidOrders       int64           `json:"paid_orders"`
	CompletedOrders  int64           `json:"completed_orders"`
	CancelledOrders  int64           `json:"cancelled_orders"`
	RefundedOrders   int64           `json:"refunded_orders"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	AverageAmount    decimal.Decimal `json:"average_amount"`
	MinAmount        decimal.Decimal `json:"min_amount"`
	MaxAmount        decimal.Decimal `json:"max_amount"`
	MonthlyOrders    int64           `json:"monthly_orders"`
	MonthlyAmount    decimal.Decimal `json:"monthly_amount"`
	CompletionRate   decimal.Decimal `json:"completion_rate"`
	CancellationRate decimal.Decimal `json:"cancellation_rate"`
	PointsIncome     decimal.Decimal `json:"points_income"`
	PointsExpense    decimal.Decimal `json:"points_expense"`
	GeneratedAt      time.Time       `json:"generated_at"`
}

type DateCount struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

type DownloadStatistics struct {
	ProjectID         snowflake.ID     `json:"project_id"`
	TotalDownloads    int64            `json:"total_downloads"`
	UniqueDownloaders int64            `json:"unique_downloaders"`
	BySource          map[string]int64 `json:"by_source"`
	ByDate            []DateCount      `json:"by_date"`
	From              *time.Time       `json:"from,omitempty"`
	To                *time.Time       `json:"to,omitempty"`
}
