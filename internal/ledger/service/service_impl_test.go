package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/codemart/internal/actor"
	"github.com/smallbiznis/codemart/internal/clock"
	"github.com/smallbiznis/codemart/internal/errs"
	"github.com/smallbiznis/codemart/internal/ledger/domain"
	"github.com/smallbiznis/codemart/internal/ledger/repository"
	"github.com/smallbiznis/codemart/internal/lock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type testEnv struct {
	svc   domain.Service
	db    *gorm.DB
	clock *clock.FakeClock
	node  *snowflake.Node
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:ledger_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&domain.PointAccount{}, &domain.PointTransaction{}))
	return db
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := setupTestDB(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC))

	svc := New(Params{
		DB:     db,
		Log:    zap.NewNop(),
		GenID:  node,
		Repo:   repository.Provide(),
		Locker: lock.NewLocalLocker(),
		Clock:  clk,
	})
	return &testEnv{svc: svc, db: db, clock: clk, node: node}
}

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func (e *testEnv) post(t *testing.T, p domain.Posting) (domain.PointTransaction, error) {
	t.Helper()
	var entry domain.PointTransaction
	err := e.db.Transaction(func(tx *gorm.DB) error {
		var err error
		entry, err = e.svc.Post(context.Background(), tx, p)
		return err
	})
	return entry, err
}

func TestPostCreatesAccountLazily(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	account, err := env.svc.GetAccount(ctx, 7, domain.CurrencyPoints)
	require.NoError(t, err)
	assert.Zero(t, account.ID)
	assert.True(t, account.Available.IsZero())

	entry, err := env.post(t, domain.Posting{
		UserID: 7, Currency: domain.CurrencyPoints, Type: domain.TypeIncome,
		Amount: dec("100"), ReferenceType: domain.ReferenceOrder, ReferenceID: 1,
	})
	require.NoError(t, err)
	assert.True(t, entry.BalanceBefore.IsZero())
	assert.True(t, entry.BalanceAfter.Equal(dec("100")))

	account, err = env.svc.GetAccount(ctx, 7, domain.CurrencyPoints)
	require.NoError(t, err)
	assert.NotZero(t, account.ID)
	assert.True(t, account.Available.Equal(dec("100")))
	assert.True(t, account.TotalEarned.Equal(dec("100")))
	assert.Equal(t, int64(1), account.Version)

	available, err := env.svc.Available(ctx, nil, 7, domain.CurrencyPoints)
	require.NoError(t, err)
	assert.True(t, available.Equal(dec("100")))

	available, err = env.svc.Available(ctx, nil, 7, domain.CurrencyBalance)
	require.NoError(t, err)
	assert.True(t, available.IsZero())
}

func TestPostRejectsOverdraftAndLeavesStateUnchanged(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.post(t, domain.Posting{
		UserID: 7, Currency: domain.CurrencyPoints, Type: domain.TypeIncome,
		Amount: dec("10"), ReferenceType: domain.ReferenceOrder, ReferenceID: 1,
	})
	require.NoError(t, err)

	_, err = env.post(t, domain.Posting{
		UserID: 7, Currency: domain.CurrencyPoints, Type: domain.TypeExpense,
		Amount: dec("10.5"), ReferenceType: domain.ReferenceOrder, ReferenceID: 2,
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientPoints)
	assert.ErrorIs(t, err, errs.ErrInsufficientResource)

	account, err := env.svc.GetAccount(ctx, 7, domain.CurrencyPoints)
	require.NoError(t, err)
	assert.True(t, account.Available.Equal(dec("10")))

	var count int64
	require.NoError(t, env.db.Model(&domain.PointTransaction{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestPostRejectsDuplicateTransition(t *testing.T) {
	env := newTestEnv(t)

	p := domain.Posting{
		UserID: 7, Currency: domain.CurrencyPoints, Type: domain.TypeIncome,
		Amount: dec("5"), ReferenceType: domain.ReferenceOrder, ReferenceID: 42,
	}
	_, err := env.post(t, p)
	require.NoError(t, err)

	_, err = env.post(t, p)
	assert.ErrorIs(t, err, domain.ErrDuplicateEntry)

	account, err := env.svc.GetAccount(context.Background(), 7, domain.CurrencyPoints)
	require.NoError(t, err)
	assert.True(t, account.Available.Equal(dec("5")))
}

func TestPostRequiresTransaction(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.svc.Post(context.Background(), nil, domain.Posting{})
	assert.ErrorIs(t, err, domain.ErrTransactionRequired)
}

func TestUpdateBalancesDetectsStaleVersion(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	repo := repository.Provide()

	_, err := env.post(t, domain.Posting{
		UserID: 7, Currency: domain.CurrencyPoints, Type: domain.TypeIncome,
		Amount: dec("5"), ReferenceType: domain.ReferenceOrder, ReferenceID: 1,
	})
	require.NoError(t, err)

	account, err := repo.FindAccount(ctx, env.db, 7, domain.CurrencyPoints)
	require.NoError(t, err)
	require.NotNil(t, account)

	stale := *account
	stale.Available = dec("1000")
	rows, err := repo.UpdateBalances(ctx, env.db, &stale, account.Version-1)
	require.NoError(t, err)
	assert.Zero(t, rows)
}

func TestGrant(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Grant(ctx, domain.GrantRequest{
		Caller: actor.Actor{UserID: 7, Role: actor.RoleBuyer}, UserID: 7,
		Currency: domain.CurrencyPoints, Amount: dec("10"),
	})
	assert.ErrorIs(t, err, domain.ErrGrantForbidden)

	entry, err := env.svc.Grant(ctx, domain.GrantRequest{
		Caller: actor.System(), UserID: 7, Currency: domain.CurrencyBalance,
		Amount: dec("250.25"), Description: "welcome bonus",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ReferenceGrant, entry.ReferenceType)
	assert.Equal(t, "welcome bonus", entry.Description)

	_, err = env.svc.Grant(ctx, domain.GrantRequest{
		Caller: actor.System(), UserID: 7, Currency: domain.CurrencyBalance, Amount: dec("0"),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	accounts, err := env.svc.ListAccounts(ctx, 7)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.True(t, accounts[0].Available.Equal(dec("250.25")))
}

func TestListTransactionsPaginatesNewestFirst(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		_, err := env.post(t, domain.Posting{
			UserID: 7, Currency: domain.CurrencyPoints, Type: domain.TypeIncome,
			Amount: dec("1"), ReferenceType: domain.ReferenceOrder, ReferenceID: snowflake.ID(i),
		})
		require.NoError(t, err)
	}

	page, err := env.svc.ListTransactions(ctx, domain.ListTransactionsRequest{UserID: 7, PageSize: 3})
	require.NoError(t, err)
	require.Len(t, page.Transactions, 3)
	assert.True(t, page.HasMore)
	assert.Equal(t, snowflake.ID(5), page.Transactions[0].ReferenceID)

	rest, err := env.svc.ListTransactions(ctx, domain.ListTransactionsRequest{UserID: 7, PageSize: 3, PageToken: page.NextPageToken})
	require.NoError(t, err)
	require.Len(t, rest.Transactions, 2)
	assert.False(t, rest.HasMore)
	assert.Equal(t, snowflake.ID(1), rest.Transactions[1].ReferenceID)

	_, err = env.svc.ListTransactions(ctx, domain.ListTransactionsRequest{UserID: 7, PageToken: "not-base64!"})
	assert.ErrorIs(t, err, domain.ErrInvalidPageToken)

	filtered, err := env.svc.ListTransactions(ctx, domain.ListTransactionsRequest{UserID: 7, ReferenceID: 3})
	require.NoError(t, err)
	require.Len(t, filtered.Transactions, 1)
}

func TestVerifyChainAndSummary(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	steps := []domain.Posting{
		{UserID: 7, Currency: domain.CurrencyPoints, Type: domain.TypeIncome, Amount: dec("100"), ReferenceType: domain.ReferenceOrder, ReferenceID: 1},
		{UserID: 7, Currency: domain.CurrencyPoints, Type: domain.TypeExpense, Amount: dec("30.25"), ReferenceType: domain.ReferenceOrder, ReferenceID: 2},
		{UserID: 7, Currency: domain.CurrencyPoints, Type: domain.TypeFreeze, Amount: dec("10"), ReferenceType: domain.ReferenceOrder, ReferenceID: 3},
		{UserID: 7, Currency: domain.CurrencyPoints, Type: domain.TypeUnfreeze, Amount: dec("10"), ReferenceType: domain.ReferenceOrder, ReferenceID: 3},
		{UserID: 7, Currency: domain.CurrencyBalance, Type: domain.TypeIncome, Amount: dec("0.1"), ReferenceType: domain.ReferenceOrder, ReferenceID: 4},
		{UserID: 7, Currency: domain.CurrencyBalance, Type: domain.TypeIncome, Amount: dec("0.2"), ReferenceType: domain.ReferenceOrder, ReferenceID: 5},
	}
	for _, step := range steps {
		_, err := env.post(t, step)
		require.NoError(t, err)
		env.clock.Advance(time.Minute)
	}

	account, err := env.svc.GetAccount(ctx, 7, domain.CurrencyPoints)
	require.NoError(t, err)
	require.NoError(t, env.svc.VerifyChain(ctx, account.ID))

	require.NoError(t, env.db.Exec("UPDATE point_accounts SET available = ? WHERE id = ?", "1", account.ID).Error)
	assert.ErrorIs(t, env.svc.VerifyChain(ctx, account.ID), domain.ErrBrokenChain)
	assert.ErrorIs(t, env.svc.VerifyChain(ctx, 999), domain.ErrAccountNotFound)

	totals, err := env.svc.Summary(ctx, 7, nil, nil)
	require.NoError(t, err)
	require.Len(t, totals, 2)
	assert.Equal(t, domain.CurrencyPoints, totals[0].Currency)
	assert.True(t, totals[0].Income.Equal(dec("100")), totals[0].Income.String())
	assert.True(t, totals[0].Expense.Equal(dec("30.25")), totals[0].Expense.String())
	assert.True(t, totals[1].Income.Equal(dec("0.3")), totals[1].Income.String())
	assert.True(t, totals[1].Expense.IsZero())

	from := time.Date(2026, 2, 10, 12, 1, 0, 0, time.UTC)
	windowed, err := env.svc.Summary(ctx, 7, &from, nil)
	require.NoError(t, err)
	assert.True(t, windowed[0].Income.IsZero())
	assert.True(t, windowed[0].Expense.Equal(dec("30.25")))
}
