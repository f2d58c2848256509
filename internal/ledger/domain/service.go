package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/codemart/internal/actor"
	"github.com/smallbiznis/codemart/pkg/db/pagination"
	"gorm.io/gorm"
)

type GrantRequest struct {
	Caller      actor.Actor
	UserID      snowflake.ID
	Currency    Currency
	Amount      decimal.Decimal
	Description string
}

type ListTransactionsRequest struct {
	UserID      snowflake.ID
	Currency    Currency
	Type        TransactionType
	ReferenceID snowflake.ID
	From        *time.Time
	To          *time.Time
	PageToken   string
	PageSize    int32
}

type ListTransactionsResponse struct {
	pagination.PageInfo
	Transactions []PointTransaction `json:"transactions"`
}

// Totals is income and expense for one currency over a window.
type Totals struct {
	Currency Currency        `json:"currency"`
	Income   decimal.Decimal `json:"income"`
	Expense  decimal.Decimal `json:"expense"`
}

type Service interface {
	// Post applies one movement inside the caller's transaction. The caller
	// must already hold the account lock for p.UserID.
	Post(ctx context.Context, tx *gorm.DB, p Posting) (PointTransaction, error)
	// Available reads the available balance inside tx, zero when no account exists.
	Available(ctx context.Context, tx *gorm.DB, userID snowflake.ID, currency Currency) (decimal.Decimal, error)

	Grant(ctx context.Context, req GrantRequest) (PointTransaction, error)
	GetAccount(ctx context.Context, userID snowflake.ID, currency Currency) (PointAccount, error)
	ListAccounts(ctx context.Context, userID snowflake.ID) ([]PointAccount, error)
	ListTransactions(ctx context.Context, req ListTransactionsRequest) (ListTransactionsResponse, error)
	VerifyChain(ctx context.Context, accountID snowflake.ID) error
	Summary(ctx context.Context, userID snowflake.ID, from, to *time.Time) ([]Totals, error)
}
