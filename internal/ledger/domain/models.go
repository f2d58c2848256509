package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Currency names a balance bucket. Each user holds at most one account per currency.
type Currency string

const (
	CurrencyPoints  Currency = "POINTS"
	CurrencyBalance Currency = "BALANCE"
)

func (c Currency) Valid() bool {
	return c == CurrencyPoints || c == CurrencyBalance
}

// TransactionType determines how an entry moves the account.
type TransactionType string

const (
	TypeIncome   TransactionType = "INCOME"
	TypeExpense  TransactionType = "EXPENSE"
	TypeFreeze   TransactionType = "FREEZE"
	TypeUnfreeze TransactionType = "UNFREEZE"
)

func (t TransactionType) Valid() bool {
	switch t {
	case TypeIncome, TypeExpense, TypeFreeze, TypeUnfreeze:
		return true
	default:
		return false
	}
}

type TransactionStatus string

const (
	StatusSuccess  TransactionStatus = "SUCCESS"
	StatusFailed   TransactionStatus = "FAILED"
	StatusReversed TransactionStatus = "REVERSED"
)

type ReferenceType string

const (
	ReferenceOrder ReferenceType = "ORDER"
	ReferenceGrant ReferenceType = "GRANT"
)

// PointAccount is a user's balance in one currency.
type PointAccount struct {
	ID          snowflake.ID    `gorm:"primaryKey" json:"id"`
	UserID      snowflake.ID    `gorm:"not null;uniqueIndex:ux_point_accounts_user_currency,priority:1" json:"user_id"`
	Currency    Currency        `gorm:"type:varchar(16);not null;uniqueIndex:ux_point_accounts_user_currency,priority:2" json:"currency"`
	Available   decimal.Decimal `gorm:"type:numeric(20,4);not null" json:"available"`
	Frozen      decimal.Decimal `gorm:"type:numeric(20,4);not null" json:"frozen"`
	TotalEarned decimal.Decimal `gorm:"type:numeric(20,4);not null" json:"total_earned"`
	TotalSpent  decimal.Decimal `gorm:"type:numeric(20,4);not null" json:"total_spent"`
	Version     int64           `gorm:"not null" json:"version"`
	CreatedAt   time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"not null" json:"updated_at"`
}

// TableName sets the database table name.
func (PointAccount) TableName() string { return "point_accounts" }

// PointTransaction is an append-only ledger entry. Snapshots refer to the
// account's available balance.
type PointTransaction struct {
	ID            snowflake.ID      `gorm:"primaryKey" json:"id"`
	AccountID     snowflake.ID      `gorm:"not null;index;uniqueIndex:ux_point_transactions_transition,priority:1" json:"account_id"`
	UserID        snowflake.ID      `gorm:"not null;index:ix_point_transactions_user_created,priority:1" json:"user_id"`
	Currency      Currency          `gorm:"type:varchar(16);not null" json:"currency"`
	Type          TransactionType   `gorm:"type:varchar(16);not null;uniqueIndex:ux_point_transactions_transition,priority:4" json:"type"`
	Amount        decimal.Decimal   `gorm:"type:numeric(20,4);not null" json:"amount"`
	BalanceBefore decimal.Decimal   `gorm:"type:numeric(20,4);not null" json:"balance_before"`
	BalanceAfter  decimal.Decimal   `gorm:"type:numeric(20,4);not null" json:"balance_after"`
	Description   string            `gorm:"type:varchar(255);not null" json:"description"`
	ReferenceType ReferenceType     `gorm:"type:varchar(16);not null;uniqueIndex:ux_point_transactions_transition,priority:2" json:"reference_type"`
	ReferenceID   snowflake.ID      `gorm:"not null;uniqueIndex:ux_point_transactions_transition,priority:3" json:"reference_id"`
	Status        TransactionStatus `gorm:"type:varchar(16);not null" json:"status"`
	CreatedAt     time.Time         `gorm:"not null;index:ix_point_transactions_user_created,priority:2" json:"created_at"`
}

// TableName sets the database table name.
func (PointTransaction) TableName() string { return "point_transactions" }

// Posting is a single balance movement requested by an orchestrator.
type Posting struct {
	UserID        snowflake.ID
	Currency      Currency
	Type          TransactionType
	Amount        decimal.Decimal
	Description   string
	ReferenceType ReferenceType
	ReferenceID   snowflake.ID
}

// AmountScale is the number of decimal places the numeric(20,4) amount columns hold.
const AmountScale = 4

// FitsScale reports whether d can be stored without rounding.
func FitsScale(d decimal.Decimal) bool {
	return d.Equal(d.Round(AmountScale))
}

func (p Posting) Validate() error {
	switch {
	case p.UserID == 0:
		return ErrInvalidUser
	case !p.Currency.Valid():
		return ErrInvalidCurrency
	case !p.Type.Valid():
		return ErrInvalidType
	case !p.Amount.IsPositive():
		return ErrInvalidAmount
	case !FitsScale(p.Amount):
		return ErrAmountScale
	case p.ReferenceType == "" || p.ReferenceID == 0:
		return ErrInvalidReference
	}
	return nil
}

func NewAccount(id, userID snowflake.ID, currency Currency, now time.Time) PointAccount {
	return PointAccount{
		ID:          id,
		UserID:      userID,
		Currency:    currency,
		Available:   decimal.Zero,
		Frozen:      decimal.Zero,
		TotalEarned: decimal.Zero,
		TotalSpent:  decimal.Zero,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Apply computes the account state after p and the ledger entry recording it.
// The receiver is not modified. The entry has no ID or timestamp yet.
func (a PointAccount) Apply(p Posting) (PointAccount, PointTransaction, error) {
	if err := p.Validate(); err != nil {
		return a, PointTransaction{}, err
	}
	if p.UserID != a.UserID || p.Currency != a.Currency {
		return a, PointTransaction{}, ErrAccountMismatch
	}

	next := a
	switch p.Type {
	case TypeIncome:
		next.Available = a.Available.Add(p.Amount)
		next.TotalEarned = a.TotalEarned.Add(p.Amount)
	case TypeExpense:
		if a.Available.LessThan(p.Amount) {
			return a, PointTransaction{}, ErrInsufficientPoints
		}
		next.Available = a.Available.Sub(p.Amount)
		next.TotalSpent = a.TotalSpent.Add(p.Amount)
	case TypeFreeze:
		if a.Available.LessThan(p.Amount) {
			return a, PointTransaction{}, ErrInsufficientPoints
		}
		next.Available = a.Available.Sub(p.Amount)
		next.Frozen = a.Frozen.Add(p.Amount)
	case TypeUnfreeze:
		if a.Frozen.LessThan(p.Amount) {
			return a, PointTransaction{}, ErrInsufficientFrozen
		}
		next.Available = a.Available.Add(p.Amount)
		next.Frozen = a.Frozen.Sub(p.Amount)
	}
	next.Version = a.Version + 1

	entry := PointTransaction{
		AccountID:     a.ID,
		UserID:        a.UserID,
		Currency:      a.Currency,
		Type:          p.Type,
		Amount:        p.Amount,
		BalanceBefore: a.Available,
		BalanceAfter:  next.Available,
		Description:   p.Description,
		ReferenceType: p.ReferenceType,
		ReferenceID:   p.ReferenceID,
		Status:        StatusSuccess,
	}
	return next, entry, nil
}

// SignedDelta is the change an entry of type t makes to the available balance.
func SignedDelta(t TransactionType, amount decimal.Decimal) decimal.Decimal {
	switch t {
	case TypeIncome, TypeUnfreeze:
		return amount
	default:
		return amount.Neg()
	}
}

// VerifyChain checks that consecutive entries link and that the final
// snapshot equals the account's available balance.
func VerifyChain(account PointAccount, entries []PointTransaction) error {
	running := decimal.Zero
	for _, entry := range entries {
		if !entry.BalanceBefore.Equal(running) {
			return ErrBrokenChain
		}
		if !entry.BalanceAfter.Equal(entry.BalanceBefore.Add(SignedDelta(entry.Type, entry.Amount))) {
			return ErrBrokenChain
		}
		running = entry.BalanceAfter
	}
	if !running.Equal(account.Available) {
		return ErrBrokenChain
	}
	return nil
}
