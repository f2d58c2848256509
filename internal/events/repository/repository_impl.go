package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/codemart/internal/events/domain"
	"gorm.io/gorm"
)

// maxErrorLength matches the varchar(500) last_error column, which counts characters.
const maxErrorLength = 500

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, evt *domain.OrderEvent) error {
	return db.WithContext(ctx).Create(evt).Error
}

func (r *repo) ListPending(ctx context.Context, db *gorm.DB, maxAttempts int, limit int) ([]*domain.OrderEvent, error) {
	var events []*domain.OrderEvent
	stmt := db.WithContext(ctx).
		Where("dispatched_at IS NULL")
	if maxAttempts > 0 {
		stmt = stmt.Where("attempts < ?", maxAttempts)
	}
	if limit > 0 {
		stmt = stmt.Limit(limit)
	}
	if err := stmt.Order("id asc").Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

func (r *repo) MarkDispatched(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE order_events SET dispatched_at = ?, attempts = attempts + 1, last_error = NULL
		 WHERE id = ? AND dispatched_at IS NULL`,
		at,
		id,
	).Error
}

func (r *repo) MarkFailed(ctx context.Context, db *gorm.DB, id snowflake.ID, reason string) error {
	reason = truncateRunes(reason, maxErrorLength)
	return db.WithContext(ctx).Exec(
		`UPDATE order_events SET attempts = attempts + 1, last_error = ? WHERE id = ?`,
		reason,
		id,
	).Error
}

func truncateRunes(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
