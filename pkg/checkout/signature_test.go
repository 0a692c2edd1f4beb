package checkout

import (
	"strings"
	"testing"
)

func TestVerifySignature_RoundTrip(t *testing.T) {
	secret := "whsec_test"
	payload := []byte(`{"session_id":"session_1","status":"success"}`)

	sig := Sign(secret, payload)
	if err := VerifySignature(secret, payload, sig); err != nil {
		t.Fatalf("VerifySignature: %v", err)
	}
}

func TestVerifySignature_CaseInsensitiveHex(t *testing.T) {
	secret := "whsec_test"
	payload := []byte("payload")

	upper := strings.ToUpper(Sign(secret, payload))
	if err := VerifySignature(secret, payload, upper); err != nil {
		t.Fatalf("uppercase hex should verify: %v", err)
	}
}

func TestVerifySignature_Rejections(t *testing.T) {
	secret := "whsec_test"
	payload := []byte("payload")
	valid := Sign(secret, payload)

	cases := []struct {
		name    string
		secret  string
		payload []byte
		sig     string
	}{
		{"empty signature", secret, payload, ""},
		{"wrong signature", secret, payload, Sign(secret, []byte("other"))},
		{"tampered payload", secret, []byte("tampered"), valid},
		{"wrong secret", "whsec_other", payload, valid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := VerifySignature(tc.secret, tc.payload, tc.sig); err == nil {
				t.Fatal("expected verification failure")
			}
		})
	}
}
