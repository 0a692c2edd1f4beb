package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/snapmarket/snapmarket-backend/pkg/config"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "test-secret",
		Issuer:            "snapmarket-test",
		ExpirationMinutes: 60,
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	cfg := testJWTConfig()
	userID := uuid.New()

	token, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{
		UserID:   userID,
		Name:     "Aiko",
		Verified: true,
	})
	if err != nil {
		t.Fatalf("MintAccessToken: %v", err)
	}

	claims, err := ParseAccessToken(cfg, token)
	if err != nil {
		t.Fatalf("ParseAccessToken: %v", err)
	}
	if claims.UserID != userID {
		t.Fatalf("user id mismatch: %s vs %s", claims.UserID, userID)
	}
	if claims.Name != "Aiko" {
		t.Fatalf("unexpected name: %q", claims.Name)
	}
	if !claims.Verified {
		t.Fatal("verified flag lost")
	}
}

func TestParseAccessToken_RejectsExpired(t *testing.T) {
	cfg := testJWTConfig()

	token, err := MintAccessToken(cfg, time.Now().Add(-2*time.Hour), AccessTokenPayload{
		UserID: uuid.New(),
	})
	if err != nil {
		t.Fatalf("MintAccessToken: %v", err)
	}

	if _, err := ParseAccessToken(cfg, token); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestParseAccessToken_RejectsWrongIssuer(t *testing.T) {
	mintCfg := testJWTConfig()
	mintCfg.Issuer = "someone-else"

	token, err := MintAccessToken(mintCfg, time.Now(), AccessTokenPayload{
		UserID: uuid.New(),
	})
	if err != nil {
		t.Fatalf("MintAccessToken: %v", err)
	}

	if _, err := ParseAccessToken(testJWTConfig(), token); err == nil {
		t.Fatal("expected issuer mismatch to be rejected")
	}
}

func TestParseAccessToken_RejectsWrongSecret(t *testing.T) {
	cfg := testJWTConfig()

	token, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{
		UserID: uuid.New(),
	})
	if err != nil {
		t.Fatalf("MintAccessToken: %v", err)
	}

	badCfg := cfg
	badCfg.Secret = "other-secret"
	if _, err := ParseAccessToken(badCfg, token); err == nil {
		t.Fatal("expected signature mismatch to be rejected")
	}
}

func TestMintAccessToken_RequiresUserID(t *testing.T) {
	if _, err := MintAccessToken(testJWTConfig(), time.Now(), AccessTokenPayload{}); err == nil {
		t.Fatal("expected missing user id to be rejected")
	}
}
