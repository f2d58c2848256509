package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writePolicyFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "marketplace.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestPolicyHolderLoadsFile(t *testing.T) {
	path := writePolicyFile(t, `
marketplace:
  refund:
    allowAfterCompletion: false
    completionWindow: 48h
  settlement:
    mode: Clearing
  orders:
    pendingTTL: 10m
`)

	holder, err := NewPolicyHolderFromFile(path, zap.NewNop())
	require.NoError(t, err)

	policy := holder.Get()
	assert.False(t, policy.Refund.AllowAfterCompletion)
	assert.Equal(t, 48*time.Hour, policy.Refund.CompletionWindow)
	assert.True(t, policy.ClearingEnabled())
	assert.Equal(t, 10*time.Minute, policy.Orders.PendingTTL)
}

func TestPolicyHolderFallsBackToDefaults(t *testing.T) {
	path := writePolicyFile(t, `
marketplace:
  orders:
    pendingTTL: 5m
`)

	holder, err := NewPolicyHolderFromFile(path, zap.NewNop())
	require.NoError(t, err)

	policy := holder.Get()
	assert.True(t, policy.Refund.AllowAfterCompletion)
	assert.Equal(t, SettlementImmediate, policy.Settlement.Mode)
	assert.Equal(t, 5*time.Minute, policy.Orders.PendingTTL)
}

func TestPolicyHolderRejectsInvalidMode(t *testing.T) {
	path := writePolicyFile(t, `
marketplace:
  settlement:
    mode: escrow
`)

	_, err := NewPolicyHolderFromFile(path, zap.NewNop())
	assert.Error(t, err)
}

func TestRefundableAfterCompletion(t *testing.T) {
	completedAt := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	policy := DefaultMarketplacePolicy()
	policy.Refund.CompletionWindow = 24 * time.Hour

	assert.True(t, policy.RefundableAfterCompletion(&completedAt, completedAt.Add(23*time.Hour)))
	assert.False(t, policy.RefundableAfterCompletion(&completedAt, completedAt.Add(25*time.Hour)))

	policy.Refund.CompletionWindow = 0
	assert.True(t, policy.RefundableAfterCompletion(&completedAt, completedAt.Add(1000*time.Hour)))

	policy.Refund.AllowAfterCompletion = false
	assert.False(t, policy.RefundableAfterCompletion(&completedAt, completedAt))
}

func TestStaticHolderSetValidates(t *testing.T) {
	holder := NewStaticPolicyHolder(DefaultMarketplacePolicy())
	bad := DefaultMarketplacePolicy()
	bad.Settlement.Mode = "other"
	assert.Error(t, holder.Set(bad))
	assert.Equal(t, SettlementImmediate, holder.Get().Settlement.Mode)

	var nilHolder *PolicyHolder
	assert.Equal(t, DefaultMarketplacePolicy(), nilHolder.Get())
}
