package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, evt *OrderEvent) error
	ListPending(ctx context.Context, db *gorm.DB, maxAttempts int, limit int) ([]*OrderEvent, error)
	MarkDispatched(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error
	MarkFailed(ctx context.Context, db *gorm.DB, id snowflake.ID, reason string) error
}
