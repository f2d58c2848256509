package config

import (
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	SettlementImmediate = "immediate"
	SettlementClearing  = "clearing"
)

type RefundPolicy struct {
	AllowAfterCompletion bool          `mapstructure:"allowAfterCompletion"`
	CompletionWindow     time.Duration `mapstructure:"completionWindow"`
}

type SettlementPolicy struct {
	// Mode "clearing" holds seller proceeds as frozen until the order completes.
	Mode string `mapstructure:"mode"`
}

type OrderPolicy struct {
	PendingTTL time.Duration `mapstructure:"pendingTTL"`
}

// MarketplacePolicy is operator-tunable behavior reloaded without restart.
type MarketplacePolicy struct {
	Refund     RefundPolicy     `mapstructure:"refund"`
	Settlement SettlementPolicy `mapstructure:"settlement"`
	Orders     OrderPolicy      `mapstructure:"orders"`
}

func DefaultMarketplacePolicy() MarketplacePolicy {
	return MarketplacePolicy{
		Refund: RefundPolicy{
			AllowAfterCompletion: true,
			CompletionWindow:     7 * 24 * time.Hour,
		},
		Settlement: SettlementPolicy{Mode: SettlementImmediate},
		Orders:     OrderPolicy{PendingTTL: 30 * time.Minute},
	}
}

// ClearingEnabled reports whether seller credits are held until completion.
func (p MarketplacePolicy) ClearingEnabled() bool {
	return p.Settlement.Mode == SettlementClearing
}

// RefundableAfterCompletion reports whether an order completed at completedAt may still be refunded at now.
func (p MarketplacePolicy) RefundableAfterCompletion(completedAt *time.Time, now time.Time) bool {
	if !p.Refund.AllowAfterCompletion {
		return false
	}
	if p.Refund.CompletionWindow <= 0 || completedAt == nil {
		return true
	}
	return !now.After(completedAt.Add(p.Refund.CompletionWindow))
}

type PolicyHolder struct {
	current atomic.Value // holds MarketplacePolicy
}

// NewPolicyHolder reads marketplace.yml and keeps the policy current as the file changes.
func NewPolicyHolder(log *zap.Logger) (*PolicyHolder, error) {
	v := viper.New()
	v.SetConfigName("marketplace")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/codemart/config")
	v.AddConfigPath("/etc/codemart")
	v.AddConfigPath(".")
	return newPolicyHolder(v, log)
}

// NewPolicyHolderFromFile is NewPolicyHolder bound to an explicit file.
func NewPolicyHolderFromFile(path string, log *zap.Logger) (*PolicyHolder, error) {
	v := viper.New()
	v.SetConfigFile(path)
	return newPolicyHolder(v, log)
}

// NewStaticPolicyHolder returns a holder that never reloads.
func NewStaticPolicyHolder(policy MarketplacePolicy) *PolicyHolder {
	holder := &PolicyHolder{}
	holder.current.Store(policy)
	return holder
}

func newPolicyHolder(v *viper.Viper, log *zap.Logger) (*PolicyHolder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("config.policy")

	v.SetEnvPrefix("CODEMART")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultMarketplacePolicy()
	v.SetDefault("marketplace.refund.allowAfterCompletion", defaults.Refund.AllowAfterCompletion)
	v.SetDefault("marketplace.refund.completionWindow", defaults.Refund.CompletionWindow)
	v.SetDefault("marketplace.settlement.mode", defaults.Settlement.Mode)
	v.SetDefault("marketplace.orders.pendingTTL", defaults.Orders.PendingTTL)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		fileLoaded = false
	}

	policy, err := decodePolicy(v)
	if err != nil {
		return nil, err
	}

	holder := NewStaticPolicyHolder(policy)
	if !fileLoaded {
		log.Info("marketplace policy file not found, using defaults")
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := decodePolicy(v)
		if err != nil {
			log.Warn("invalid marketplace policy ignored", zap.String("file", e.Name), zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("marketplace policy reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func decodePolicy(v *viper.Viper) (MarketplacePolicy, error) {
	var doc struct {
		Marketplace MarketplacePolicy `mapstructure:"marketplace"`
	}
	if err := v.Unmarshal(&doc); err != nil {
		return MarketplacePolicy{}, err
	}
	policy := doc.Marketplace
	policy.Settlement.Mode = strings.ToLower(strings.TrimSpace(policy.Settlement.Mode))
	if err := validatePolicy(policy); err != nil {
		return MarketplacePolicy{}, err
	}
	return policy, nil
}

func (h *PolicyHolder) Get() MarketplacePolicy {
	if h == nil {
		return DefaultMarketplacePolicy()
	}
	policy, ok := h.current.Load().(MarketplacePolicy)
	if !ok {
		return DefaultMarketplacePolicy()
	}
	return policy
}

// Set replaces the active policy after validation.
func (h *PolicyHolder) Set(policy MarketplacePolicy) error {
	if err := validatePolicy(policy); err != nil {
		return err
	}
	h.current.Store(policy)
	return nil
}

func validatePolicy(policy MarketplacePolicy) error {
	switch policy.Settlement.Mode {
	case SettlementImmediate, SettlementClearing:
	default:
		return errors.New("marketplace.settlement.mode must be immediate or clearing")
	}
	if policy.Refund.CompletionWindow < 0 {
		return errors.New("marketplace.refund.completionWindow cannot be negative")
	}
	if policy.Orders.PendingTTL < 0 {
		return errors.New("marketplace.orders.pendingTTL cannot be negative")
	}
	return nil
}
