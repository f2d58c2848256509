package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/codemart/internal/catalog/domain"
	"github.com/smallbiznis/codemart/internal/catalog/repository"
	"github.com/smallbiznis/codemart/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:catalog_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&domain.Project{}))
	return db
}

func TestLookup(t *testing.T) {
	db := setupTestDB(t)
	now := time.Now().UTC()
	require.NoError(t, db.Create(&[]domain.Project{
		{ID: 1, SellerID: 20, Title: "CRM starter", Price: decimal.RequireFromString("99.5"), Status: domain.ProjectStatusActive, CreatedAt: now, UpdatedAt: now},
		{ID: 2, SellerID: 20, Title: "Draft", Price: decimal.RequireFromString("10"), Status: domain.ProjectStatusDraft, CreatedAt: now, UpdatedAt: now},
		{ID: 3, SellerID: 20, Title: "Free", Price: decimal.Zero, Status: domain.ProjectStatusActive, CreatedAt: now, UpdatedAt: now},
	}).Error)

	svc := New(Params{DB: db, Log: zap.NewNop(), Repo: repository.Provide()})
	ctx := context.Background()

	quote, err := svc.Lookup(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "20", quote.SellerID.String())
	assert.True(t, quote.Price.Equal(decimal.RequireFromString("99.5")))

	_, err = svc.Lookup(ctx, 2)
	assert.ErrorIs(t, err, domain.ErrProjectUnavailable)
	_, err = svc.Lookup(ctx, 3)
	assert.ErrorIs(t, err, errs.ErrValidation)
	_, err = svc.Lookup(ctx, 404)
	assert.ErrorIs(t, err, domain.ErrProjectNotFound)
	_, err = svc.Lookup(ctx, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidProject)

	// served from cache until invalidated
	require.NoError(t, db.Model(&domain.Project{}).Where("id = ?", 1).Update("price", "120").Error)
	quote, err = svc.Lookup(ctx, 1)
	require.NoError(t, err)
	assert.True(t, quote.Price.Equal(decimal.RequireFromString("99.5")))

	svc.Invalidate(1)
	quote, err = svc.Lookup(ctx, 1)
	require.NoError(t, err)
	assert.True(t, quote.Price.Equal(decimal.RequireFromString("120")))
}
