package checkout

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

// SignatureHeader carries the provider's HMAC over the raw callback body.
const SignatureHeader = "X-Checkout-Signature"

// Sign computes the hex HMAC-SHA256 of the payload under the secret.
func Sign(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks the callback signature in constant time.
func VerifySignature(secret string, payload []byte, signature string) error {
	if secret == "" {
		return errors.New("signing secret is required")
	}
	signature = strings.TrimSpace(signature)
	if signature == "" {
		return errors.New("signature header is missing")
	}

	expected := Sign(secret, payload)
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(signature))) {
		return errors.New("signature mismatch")
	}
	return nil
}
