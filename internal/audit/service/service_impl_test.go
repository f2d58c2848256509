package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/codemart/internal/actor"
	auditdomain "github.com/smallbiznis/codemart/internal/audit/domain"
	"github.com/smallbiznis/codemart/internal/audit/repository"
	"github.com/smallbiznis/codemart/internal/clock"
	obscontext "github.com/smallbiznis/codemart/internal/observability/context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (auditdomain.Service, *gorm.DB, *clock.FakeClock) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&auditdomain.AuditLog{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	svc := NewService(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
		Clock: clk,
	})
	return svc, db, clk
}

func TestAuditLogMasksRemarkAndCapturesRequestID(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := obscontext.WithRequestID(context.Background(), "req-1")

	target := " 42 "
	err := svc.AuditLog(ctx, actor.Actor{UserID: 7, Role: actor.RoleBuyer}, "order.pay", "order", &target, map[string]any{
		"remark": "gift for my friend",
		"method": "MIXED",
	})
	require.NoError(t, err)

	var stored auditdomain.AuditLog
	require.NoError(t, db.First(&stored).Error)
	assert.Equal(t, "buyer", stored.ActorType)
	require.NotNil(t, stored.ActorID)
	assert.Equal(t, "7", *stored.ActorID)
	require.NotNil(t, stored.TargetID)
	assert.Equal(t, "42", *stored.TargetID)
	require.NotNil(t, stored.RequestID)
	assert.Equal(t, "req-1", *stored.RequestID)
	assert.Equal(t, "****iend", stored.Metadata["remark"])
	assert.Equal(t, "MIXED", stored.Metadata["method"])
}

func TestAuditLogRejectsEmptyAction(t *testing.T) {
	svc, _, _ := newTestService(t)
	err := svc.AuditLog(context.Background(), actor.System(), " ", "order", nil, nil)
	assert.ErrorIs(t, err, auditdomain.ErrInvalidAction)
}

func TestListPaginates(t *testing.T) {
	svc, _, clk := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, svc.AuditLog(ctx, actor.System(), "order.expire", "order", nil, nil))
		clk.Advance(time.Second)
	}

	first, err := svc.List(ctx, auditdomain.ListAuditLogRequest{Action: "order.expire", ActorType: "system"})
	require.NoError(t, err)
	assert.Len(t, first.AuditLogs, 3)
	assert.False(t, first.HasMore)

	req := auditdomain.ListAuditLogRequest{}
	req.PageSize = 2
	page, err := svc.List(ctx, req)
	require.NoError(t, err)
	require.Len(t, page.AuditLogs, 2)
	require.True(t, page.HasMore)

	req.PageToken = page.NextPageToken
	next, err := svc.List(ctx, req)
	require.NoError(t, err)
	require.Len(t, next.AuditLogs, 1)
	assert.True(t, next.AuditLogs[0].CreatedAt.Before(page.AuditLogs[1].CreatedAt))
}

func TestListRejectsBadRange(t *testing.T) {
	svc, _, _ := newTestService(t)
	start := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	end := start.Add(-time.Hour)
	_, err := svc.List(context.Background(), auditdomain.ListAuditLogRequest{StartAt: &start, EndAt: &end})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidTimeRange)

	req := auditdomain.ListAuditLogRequest{}
	req.PageToken = "%%%"
	_, err = svc.List(context.Background(), req)
	assert.ErrorIs(t, err, auditdomain.ErrInvalidPageToken)
}
