package razorpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func sign(msg, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(msg))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyPaymentSignature(t *testing.T) {
	const secret = "test_secret"
	valid := sign("order_abc|pay_xyz", secret)

	assert.True(t, VerifyPaymentSignature("order_abc", "pay_xyz", valid, secret))

	// Wrong pieces never verify.
	assert.False(t, VerifyPaymentSignature("order_abc", "pay_other", valid, secret))
	assert.False(t, VerifyPaymentSignature("order_other", "pay_xyz", valid, secret))
	assert.False(t, VerifyPaymentSignature("order_abc", "pay_xyz", valid, "other_secret"))
	assert.False(t, VerifyPaymentSignature("order_abc", "pay_xyz", "deadbeef", secret))
}

func TestVerifyPaymentSignature_FailClosed(t *testing.T) {
	valid := sign("a|b", "secret")

	assert.False(t, VerifyPaymentSignature("a", "b", valid, ""))
	assert.False(t, VerifyPaymentSignature("a", "b", "", "secret"))
}

func TestVerifyWebhookSignature(t *testing.T) {
	const secret = "webhook_secret"
	body := []byte(`{"event":"payment.captured"}`)
	valid := sign(string(body), secret)

	assert.True(t, VerifyWebhookSignature(body, valid, secret))

	// A single changed body byte invalidates the signature.
	tampered := []byte(`{"event":"payment.captured" }`)
	assert.False(t, VerifyWebhookSignature(tampered, valid, secret))
	assert.False(t, VerifyWebhookSignature(body, valid, "wrong"))
	assert.False(t, VerifyWebhookSignature(body, "", secret))
	assert.False(t, VerifyWebhookSignature(body, valid, ""))
}
