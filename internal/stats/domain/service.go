package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/codemart/internal/actor"
	"github.com/smallbiznis/codemart/internal/errs"
)

type UserStatsRequest struct {
	Caller      actor.Actor
	UserID      snowflake.ID
	Perspective string
}

type DownloadStatsRequest struct {
	Caller    actor.Actor
	ProjectID snowflake.ID
	From      *time.Time
	To        *time.Time
}

type RecordDownloadRequest struct {
	UserID    snowflake.ID
	ProjectID snowflake.ID
	Source    string
}

// Invalidator drops cached statistics. Writers outside the stats context
// (order and ledger services) call it after each committed write.
type Invalidator interface {
	InvalidateUser(userID snowflake.ID)
	InvalidateProject(projectID snowflake.ID)
}

type Service interface {
	UserOrderStats(ctx context.Context, req UserStatsRequest) (UserOrderStats, error)
	DownloadStatistics(ctx context.Context, req DownloadStatsRequest) (DownloadStatistics, error)
	RecordDownload(ctx context.Context, req RecordDownloadRequest) (DownloadRecord, error)
	// InvalidateUser drops cached statistics after a write touching userID's orders or ledger.
	InvalidateUser(userID snowflake.ID)
	InvalidateProject(projectID snowflake.ID)
}

var (
	ErrInvalidUser        = errs.New(errs.ErrValidation, "invalid_user")
	ErrInvalidProject     = errs.New(errs.ErrValidation, "invalid_project")
	ErrInvalidPerspective = errs.New(errs.ErrValidation, "invalid_perspective")
	ErrInvalidTimeRange   = errs.New(errs.ErrValidation, "invalid_time_range")
	ErrForbidden          = errs.New(errs.ErrForbidden, "stats_not_visible")
	ErrNotEntitled        = errs.New(errs.ErrForbidden, "no_completed_order_for_project")
)
