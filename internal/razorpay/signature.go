package razorpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"go.uber.org/zap"
)

// SignatureHeader carries the webhook HMAC on Razorpay deliveries.
const SignatureHeader = "X-Razorpay-Signature"

// VerifySignature checks the x-razorpay-signature header against an
// HMAC-SHA256 of the exact raw body bytes.
//
// An empty secret skips verification and returns true: tenants without a
// configured webhook secret are accepted under the permissive legacy policy.
// Callers running in strict mode must not reach this path with an empty
// secret.
func VerifySignature(rawBody []byte, signatureHeader, secret string, log *zap.Logger) bool {
	if strings.TrimSpace(secret) == "" {
		if log != nil {
			log.Warn("webhook signature verification skipped, no secret configured")
		}
		return true
	}

	signatureHeader = strings.TrimSpace(signatureHeader)
	if signatureHeader == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))

	// hmac.Equal is constant time and tolerates length mismatches.
	return hmac.Equal([]byte(signatureHeader), []byte(expected))
}
