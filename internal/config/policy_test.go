package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePolicy(t *testing.T) {
	defaults := ReconcilePolicy{
		VerifyMode:       VerifyModePermissive,
		ReconcileTimeout: 5 * time.Second,
		DefaultCurrency:  "INR",
	}

	got := normalizePolicy(ReconcilePolicy{VerifyMode: " STRICT "}, defaults)
	assert.Equal(t, VerifyModeStrict, got.VerifyMode)
	assert.Equal(t, 5*time.Second, got.ReconcileTimeout)
	assert.Equal(t, "INR", got.DefaultCurrency)

	got = normalizePolicy(ReconcilePolicy{
		VerifyMode:       "bogus",
		ReconcileTimeout: -1,
		DefaultCurrency:  "usd",
	}, defaults)
	assert.Equal(t, VerifyModePermissive, got.VerifyMode)
	assert.Equal(t, 5*time.Second, got.ReconcileTimeout)
	assert.Equal(t, "USD", got.DefaultCurrency)
}

func TestValidatePolicy(t *testing.T) {
	valid := ReconcilePolicy{
		VerifyMode:       VerifyModeStrict,
		ReconcileTimeout: time.Second,
		DefaultCurrency:  "INR",
	}
	assert.NoError(t, validatePolicy(valid))

	bad := valid
	bad.MaxSignatureFailures = -1
	assert.Error(t, validatePolicy(bad))

	bad = valid
	bad.DefaultCurrency = "RUPEES"
	assert.Error(t, validatePolicy(bad))
}

func TestStaticPolicyHolder(t *testing.T) {
	holder := StaticPolicyHolder(ReconcilePolicy{
		VerifyMode:       VerifyModeStrict,
		ReconcileTimeout: 2 * time.Second,
		DefaultCurrency:  "inr",
	})
	assert.True(t, holder.Strict())
	assert.Equal(t, "INR", holder.Get().DefaultCurrency)
}
