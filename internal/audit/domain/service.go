package domain

import (
	"context"
	"time"

	"github.com/smallbiznis/codemart/internal/actor"
	"github.com/smallbiznis/codemart/internal/errs"
	"github.com/smallbiznis/codemart/pkg/db/pagination"
)

type ListAuditLogRequest struct {
	pagination.Pagination
	Action     string
	TargetType string
	TargetID   string
	ActorType  string
	StartAt    *time.Time
	EndAt      *time.Time
}

type ListAuditLogResponse struct {
	pagination.PageInfo
	AuditLogs []AuditLog `json:"audit_logs"`
}

type Service interface {
	AuditLog(ctx context.Context, caller actor.Actor, action string, targetType string, targetID *string, metadata map[string]any) error
	List(ctx context.Context, req ListAuditLogRequest) (ListAuditLogResponse, error)
}

var (
	ErrInvalidPageToken = errs.New(errs.ErrValidation, "invalid_page_token")
	ErrInvalidTimeRange = errs.New(errs.ErrValidation, "invalid_time_range")
	ErrInvalidAction    = errs.New(errs.ErrValidation, "invalid_action")
)
