package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// ReconcilePolicy is the operator-tunable part of webhook processing. It is
// read from numera.yml when present and hot-reloaded on change, so the
// security posture can be tightened without a restart.
type ReconcilePolicy struct {
	VerifyMode       string        `mapstructure:"verifyMode"`
	ReconcileTimeout time.Duration `mapstructure:"reconcileTimeout"`
	DefaultCurrency  string        `mapstructure:"defaultCurrency"`

	// MaxSignatureFailures is a policy hook for tenant lockout after N
	// consecutive signature failures. Zero disables enforcement; no
	// threshold is assumed by default.
	MaxSignatureFailures int `mapstructure:"maxSignatureFailures"`
}

func DefaultReconcilePolicy(cfg Config) ReconcilePolicy {
	return ReconcilePolicy{
		VerifyMode:           cfg.VerifyMode,
		ReconcileTimeout:     cfg.ReconcileTimeout,
		DefaultCurrency:      cfg.DefaultCurrency,
		MaxSignatureFailures: 0,
	}
}

type PolicyHolder struct {
	current atomic.Value // holds ReconcilePolicy
}

func NewPolicyHolder(cfg Config) (*PolicyHolder, error) {
	v := viper.New()

	v.SetConfigName("numera")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/numera/config")
	v.AddConfigPath("/etc/numera")
	v.AddConfigPath(".")

	v.SetEnvPrefix("NUMERA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultReconcilePolicy(cfg)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		v.SetDefault("reconcile.verifyMode", defaults.VerifyMode)
		v.SetDefault("reconcile.reconcileTimeout", defaults.ReconcileTimeout)
		v.SetDefault("reconcile.defaultCurrency", defaults.DefaultCurrency)
		v.SetDefault("reconcile.maxSignatureFailures", defaults.MaxSignatureFailures)
	}

	var policy ReconcilePolicy
	if err := v.UnmarshalKey("reconcile", &policy); err != nil {
		return nil, err
	}
	policy = normalizePolicy(policy, defaults)
	if err := validatePolicy(policy); err != nil {
		return nil, err
	}

	holder := &PolicyHolder{}
	holder.current.Store(policy)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated ReconcilePolicy
		if err := v.UnmarshalKey("reconcile", &updated); err != nil {
			log.Printf("[reconcile-policy] reload failed: %v", err)
			return
		}
		updated = normalizePolicy(updated, defaults)
		if err := validatePolicy(updated); err != nil {
			log.Printf("[reconcile-policy] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[reconcile-policy] reloaded from %s", e.Name)
	})

	return holder, nil
}

// StaticPolicyHolder wraps a fixed policy with no config file watching.
func StaticPolicyHolder(policy ReconcilePolicy) *PolicyHolder {
	h := &PolicyHolder{}
	h.current.Store(normalizePolicy(policy, policy))
	return h
}

func (h *PolicyHolder) Get() ReconcilePolicy {
	return h.current.Load().(ReconcilePolicy)
}

func (h *PolicyHolder) Strict() bool {
	return h.Get().VerifyMode == VerifyModeStrict
}

func normalizePolicy(policy, defaults ReconcilePolicy) ReconcilePolicy {
	policy.VerifyMode = normalizeVerifyMode(policy.VerifyMode)
	if policy.ReconcileTimeout <= 0 {
		policy.ReconcileTimeout = defaults.ReconcileTimeout
	}
	policy.DefaultCurrency = strings.ToUpper(strings.TrimSpace(policy.DefaultCurrency))
	if policy.DefaultCurrency == "" {
		policy.DefaultCurrency = defaults.DefaultCurrency
	}
	return policy
}

func validatePolicy(policy ReconcilePolicy) error {
	if policy.MaxSignatureFailures < 0 {
		return errors.New("reconcile.maxSignatureFailures cannot be negative")
	}
	if len(policy.DefaultCurrency) != 3 {
		return errors.New("reconcile.defaultCurrency must be a 3-letter code")
	}
	return nil
}
