package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func posting(t TransactionType, amount string) Posting {
	return Posting{
		UserID:        1,
		Currency:      CurrencyPoints,
		Type:          t,
		Amount:        dec(amount),
		ReferenceType: ReferenceOrder,
		ReferenceID:   100,
	}
}

func TestApplyMovesBuckets(t *testing.T) {
	account := NewAccount(10, 1, CurrencyPoints, testTime)

	tests := []struct {
		name      string
		posting   Posting
		available string
		frozen    string
		earned    string
		spent     string
	}{
		{"income", posting(TypeIncome, "100"), "200", "0", "200", "0"},
		{"expense", posting(TypeExpense, "30.5"), "69.5", "0", "100", "30.5"},
		{"freeze", posting(TypeFreeze, "40"), "60", "40", "100", "0"},
	}

	start := account
	start.Available = dec("100")
	start.TotalEarned = dec("100")

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, entry, err := start.Apply(tt.posting)
			require.NoError(t, err)
			assert.True(t, next.Available.Equal(dec(tt.available)), next.Available.String())
			assert.True(t, next.Frozen.Equal(dec(tt.frozen)))
			assert.True(t, next.TotalEarned.Equal(dec(tt.earned)))
			assert.True(t, next.TotalSpent.Equal(dec(tt.spent)))
			assert.Equal(t, start.Version+1, next.Version)

			assert.True(t, entry.BalanceBefore.Equal(start.Available))
			assert.True(t, entry.BalanceAfter.Equal(next.Available))
			assert.Equal(t, StatusSuccess, entry.Status)
			assert.Equal(t, start.ID, entry.AccountID)
		})
	}
}

func TestApplyUnfreeze(t *testing.T) {
	account := NewAccount(10, 1, CurrencyPoints, testTime)
	account.Frozen = dec("50")

	next, entry, err := account.Apply(posting(TypeUnfreeze, "50"))
	require.NoError(t, err)
	assert.True(t, next.Available.Equal(dec("50")))
	assert.True(t, next.Frozen.IsZero())
	assert.True(t, entry.BalanceBefore.IsZero())
	assert.True(t, entry.BalanceAfter.Equal(dec("50")))

	_, _, err = account.Apply(posting(TypeUnfreeze, "50.0001"))
	assert.ErrorIs(t, err, ErrInsufficientFrozen)
}

func TestApplyRejects(t *testing.T) {
	account := NewAccount(10, 1, CurrencyPoints, testTime)
	account.Available = dec("10")

	_, _, err := account.Apply(posting(TypeExpense, "10.0001"))
	assert.ErrorIs(t, err, ErrInsufficientPoints)

	_, _, err = account.Apply(posting(TypeFreeze, "11"))
	assert.ErrorIs(t, err, ErrInsufficientPoints)

	_, _, err = account.Apply(posting(TypeIncome, "0"))
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, _, err = account.Apply(posting(TypeIncome, "-1"))
	assert.ErrorIs(t, err, ErrInvalidAmount)

	bad := posting(TypeIncome, "1")
	bad.Currency = "GOLD"
	_, _, err = account.Apply(bad)
	assert.ErrorIs(t, err, ErrInvalidCurrency)

	other := posting(TypeIncome, "1")
	other.UserID = 2
	_, _, err = account.Apply(other)
	assert.ErrorIs(t, err, ErrAccountMismatch)

	_, _, err = account.Apply(posting(TypeIncome, "0.00005"))
	assert.ErrorIs(t, err, ErrAmountScale)

	// an exact debit to zero is allowed
	next, _, err := account.Apply(posting(TypeExpense, "10"))
	require.NoError(t, err)
	assert.True(t, next.Available.IsZero())
}

func TestVerifyChain(t *testing.T) {
	account := NewAccount(10, 1, CurrencyPoints, testTime)

	var entries []PointTransaction
	for _, p := range []Posting{
		posting(TypeIncome, "100"),
		posting(TypeFreeze, "20"),
		posting(TypeExpense, "30"),
		posting(TypeUnfreeze, "20"),
	} {
		next, entry, err := account.Apply(p)
		require.NoError(t, err)
		entries = append(entries, entry)
		account = next
	}

	require.NoError(t, VerifyChain(account, entries))
	assert.True(t, account.Available.Equal(dec("70")))

	tampered := append([]PointTransaction(nil), entries...)
	tampered[2].BalanceBefore = dec("81")
	assert.ErrorIs(t, VerifyChain(account, tampered), ErrBrokenChain)

	drifted := account
	drifted.Available = dec("71")
	assert.ErrorIs(t, VerifyChain(drifted, entries), ErrBrokenChain)

	assert.NoError(t, VerifyChain(NewAccount(11, 1, CurrencyBalance, testTime), nil))
}

func TestFitsScale(t *testing.T) {
	assert.True(t, FitsScale(dec("99.9999")))
	assert.True(t, FitsScale(dec("100.50000")))
	assert.True(t, FitsScale(dec("-3")))
	assert.False(t, FitsScale(dec("99.99995")))
	assert.False(t, FitsScale(dec("0.00001")))
}
