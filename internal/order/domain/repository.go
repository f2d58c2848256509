package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ListFilter struct {
	BuyerID  snowflake.ID
	SellerID snowflake.ID
	Status   *OrderStatus
	BeforeID snowflake.ID
	Limit    int
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, order *Order) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Order, error)
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Order, error)
	FindByOrderNo(ctx context.Context, db *gorm.DB, orderNo string) (*Order, error)
	ExistsActive(ctx context.Context, db *gorm.DB, buyerID, projectID snowflake.ID) (bool, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*Order, error)
	// Transition applies updates only if the row is still at from/version.
	// It returns ErrOrderConflict when no row matched.
	Transition(ctx context.Context, db *gorm.DB, order *Order, from OrderStatus, fromVersion int64) error
	ListExpiredPending(ctx context.Context, db *gorm.DB, cutoff time.Time, limit int) ([]*Order, error)
}
