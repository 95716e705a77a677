package razorpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// VerifyPaymentSignature checks the signature the browser widget posts
// back after a payment: HMAC-SHA256 over "<orderID>|<paymentID>" keyed
// by the API key secret, hex-encoded. Comparison is constant-time.
func VerifyPaymentSignature(orderID, paymentID, signature, secret string) bool {
	if secret == "" || signature == "" {
		return false
	}
	expected := signHex([]byte(orderID+"|"+paymentID), secret)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}

// VerifyWebhookSignature checks the X-Razorpay-Signature header:
// HMAC-SHA256 over the full raw request body keyed by the
// webhook-specific secret.
func VerifyWebhookSignature(body []byte, signature, secret string) bool {
	if secret == "" || signature == "" {
		return false
	}
	expected := signHex(body, secret)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}

func signHex(msg []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(msg)
	return hex.EncodeToString(mac.Sum(nil))
}
