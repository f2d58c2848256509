package authorization

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/codemart/internal/actor"
	"github.com/smallbiznis/codemart/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&Role{}, &Permission{}, &UserRole{}, &UserPermission{}))

	enforcer, err := NewMemoryEnforcer()
	require.NoError(t, err)

	return NewService(Params{DB: db, Log: zap.NewNop(), Enforcer: enforcer}), db
}

func TestGrantsBySessionRole(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	buyer, err := svc.Grants(ctx, 1, actor.RoleBuyer)
	require.NoError(t, err)
	assert.True(t, buyer.Has(ActionOrderPay))
	assert.True(t, buyer.Has(ActionOrderRefund))
	assert.False(t, buyer.Has(ActionLedgerGrant))

	seller, err := svc.Grants(ctx, 2, actor.RoleSeller)
	require.NoError(t, err)
	assert.Equal(t, []string{ActionLedgerView, ActionOrderRefund, ActionStatsView}, seller.Actions())

	admin, err := svc.Grants(ctx, 0, actor.RoleAdmin)
	require.NoError(t, err)
	assert.True(t, admin.Has(ActionLedgerGrant))
	assert.True(t, admin.Has(ActionOrderCancel))
}

func TestGrantsUnionOfAssignedRolesAndPermissions(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, db.Create(&UserRole{UserID: 9, RoleCode: "buyer", CreatedAt: now}).Error)
	require.NoError(t, db.Create(&UserPermission{UserID: 9, PermissionCode: ActionLedgerGrant, CreatedAt: now}).Error)

	grants, err := svc.Grants(ctx, 9, actor.RoleSeller)
	require.NoError(t, err)
	assert.True(t, grants.Has(ActionOrderPay))
	assert.True(t, grants.Has(ActionLedgerGrant))
}

func TestGrantsDropDisabledRolesAndPermissions(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, db.Create(&Role{Code: "seller", Name: "Seller", Disabled: true, CreatedAt: now}).Error)
	require.NoError(t, db.Create(&Permission{Code: ActionOrderRefund, Description: "refund", Disabled: true, CreatedAt: now}).Error)

	seller, err := svc.Grants(ctx, 2, actor.RoleSeller)
	require.NoError(t, err)
	assert.Empty(t, seller.Actions())

	buyer, err := svc.Grants(ctx, 1, actor.RoleBuyer)
	require.NoError(t, err)
	assert.True(t, buyer.Has(ActionOrderPay))
	assert.False(t, buyer.Has(ActionOrderRefund))
}

func TestAuthorize(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	assert.NoError(t, svc.Authorize(ctx, actor.Actor{UserID: 1, Role: actor.RoleBuyer}, ActionOrderPay))

	err := svc.Authorize(ctx, actor.Actor{UserID: 2, Role: actor.RoleSeller}, ActionOrderPay)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.ErrorIs(t, err, errs.ErrForbidden)

	err = svc.Authorize(ctx, actor.Actor{Role: actor.RoleBuyer}, ActionOrderPay)
	assert.ErrorIs(t, err, ErrInvalidActor)

	err = svc.Authorize(ctx, actor.System(), " ")
	assert.ErrorIs(t, err, ErrInvalidAction)

	assert.NoError(t, svc.Authorize(ctx, actor.System(), ActionLedgerGrant))
}
