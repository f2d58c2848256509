package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type ProjectStatus string

const (
	ProjectStatusActive   ProjectStatus = "ACTIVE"
	ProjectStatusDraft    ProjectStatus = "DRAFT"
	ProjectStatusArchived ProjectStatus = "ARCHIVED"
)

// Project is a sellable asset. The catalog collaborator owns these rows;
// the order core only reads them.
type Project struct {
	ID        snowflake.ID    `gorm:"primaryKey" json:"id"`
	SellerID  snowflake.ID    `gorm:"not null;index" json:"seller_id"`
	Title     string          `gorm:"type:varchar(255);not null" json:"title"`
	Price     decimal.Decimal `gorm:"type:numeric(20,4);not null" json:"price"`
	Status    ProjectStatus   `gorm:"type:varchar(16);not null" json:"status"`
	CreatedAt time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time       `gorm:"not null" json:"updated_at"`
}

// TableName sets the database table name.
func (Project) TableName() string { return "projects" }

// ProjectQuote is what an order needs from the catalog.
type ProjectQuote struct {
	ProjectID snowflake.ID
	SellerID  snowflake.ID
	Title     string
	Price     decimal.Decimal
}
