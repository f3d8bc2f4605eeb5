package razorpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"go.uber.org/zap"
)

func signBody(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	secret := "whsec_test"
	body := []byte(`{"event":"payment.captured","payload":{}}`)

	if !VerifySignature(body, signBody(secret, body), secret, zap.NewNop()) {
		t.Fatalf("expected valid signature to verify")
	}

	tampered := []byte(`{"event":"payment.captured","payload":{"amount":1}}`)
	if VerifySignature(tampered, signBody(secret, body), secret, zap.NewNop()) {
		t.Fatalf("expected tampered body to fail verification")
	}

	if VerifySignature(body, "", secret, zap.NewNop()) {
		t.Fatalf("expected missing header to fail when secret configured")
	}

	if VerifySignature(body, "not-even-hex", secret, zap.NewNop()) {
		t.Fatalf("expected malformed header to fail, not panic")
	}
}

func TestVerifySignatureSkippedWithoutSecret(t *testing.T) {
	body := []byte(`{"event":"payment.captured"}`)
	if !VerifySignature(body, "anything", "", zap.NewNop()) {
		t.Fatalf("expected verification skip when no secret configured")
	}
	if !VerifySignature(body, "", "", nil) {
		t.Fatalf("expected nil logger to be tolerated")
	}
}
