package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type TransactionFilter struct {
	UserID      snowflake.ID
	Currency    Currency
	Type        TransactionType
	ReferenceID snowflake.ID
	From        *time.Time
	To          *time.Time
	BeforeID    snowflake.ID
	Limit       int
}

type TypeTotal struct {
	Currency Currency
	Type     TransactionType
	Total    decimal.Decimal
}

type Repository interface {
	InsertAccountIfAbsent(ctx context.Context, db *gorm.DB, account *PointAccount) error
	FindAccount(ctx context.Context, db *gorm.DB, userID snowflake.ID, currency Currency) (*PointAccount, error)
	FindAccountByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*PointAccount, error)
	FindAccountForUpdate(ctx context.Context, db *gorm.DB, userID snowflake.ID, currency Currency) (*PointAccount, error)
	ListAccounts(ctx context.Context, db *gorm.DB, userID snowflake.ID) ([]*PointAccount, error)
	UpdateBalances(ctx context.Context, db *gorm.DB, account *PointAccount, expectedVersion int64) (int64, error)

	InsertTransaction(ctx context.Context, db *gorm.DB, entry *PointTransaction) error
	ListTransactions(ctx context.Context, db *gorm.DB, filter TransactionFilter) ([]*PointTransaction, error)
	ListAccountEntries(ctx context.Context, db *gorm.DB, accountID snowflake.ID) ([]PointTransaction, error)
	SumByType(ctx context.Context, db *gorm.DB, userID snowflake.ID, from, to *time.Time) ([]TypeTotal, error)
}
