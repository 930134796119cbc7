package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/angelmondragon/boardpro-billing/pkg/config"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "secret",
		Issuer:            "boardpro",
		ExpirationMinutes: 30,
	}
}

func TestMintAndParseAccessToken(t *testing.T) {
	cfg := testJWTConfig()
	now := time.Now().UTC()

	token, err := MintAccessToken(cfg, now, AccessTokenPayload{
		UserID: "user_123",
		Email:  "owner@example.com",
		OrgID:  "org_abc",
	})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	claims, err := ParseAccessToken(cfg, token)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}

	if claims.UserID != "user_123" {
		t.Fatalf("expected user_id user_123, got %s", claims.UserID)
	}
	if claims.Email != "owner@example.com" {
		t.Fatalf("unexpected email %q", claims.Email)
	}
	if claims.OrgID != "org_abc" {
		t.Fatalf("unexpected org id %q", claims.OrgID)
	}
	if claims.Issuer != cfg.Issuer {
		t.Fatalf("expected issuer %s, got %s", cfg.Issuer, claims.Issuer)
	}
	if claims.ID == "" {
		t.Fatal("expected jti to be generated")
	}
	if claims.ExpiresAt == nil || !claims.ExpiresAt.Time.After(now) {
		t.Fatal("expected expiry in the future")
	}
}

func TestParseAccessTokenRejectsExpired(t *testing.T) {
	cfg := testJWTConfig()
	token, err := MintAccessToken(cfg, time.Now().Add(-2*time.Hour), AccessTokenPayload{
		UserID: "user_1",
		Email:  "a@example.com",
	})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	_, err = ParseAccessToken(cfg, token)
	if !errors.Is(err, jwt.ErrTokenExpired) {
		t.Fatalf("expected expired error, got %v", err)
	}
}

func TestParseAccessTokenRejectsWrongSecretOrIssuer(t *testing.T) {
	cfg := testJWTConfig()
	token, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{UserID: "user_1", Email: "a@example.com"})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	other := cfg
	other.Secret = "different"
	if _, err := ParseAccessToken(other, token); err == nil {
		t.Fatal("expected signature failure")
	}

	other = cfg
	other.Issuer = "someone-else"
	if _, err := ParseAccessToken(other, token); err == nil {
		t.Fatal("expected issuer failure")
	}
}

func TestMintAccessTokenValidatesPayload(t *testing.T) {
	cfg := testJWTConfig()
	if _, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{Email: "a@example.com"}); err == nil {
		t.Fatal("expected missing user id error")
	}
	_, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{UserID: "u", Email: "not-an-email"})
	if err == nil || !strings.Contains(err.Error(), "invalid email") {
		t.Fatalf("expected invalid email error, got %v", err)
	}
	if _, err := MintAccessToken(config.JWTConfig{}, time.Now(), AccessTokenPayload{UserID: "u", Email: "a@example.com"}); err == nil {
		t.Fatal("expected missing secret error")
	}
}

func TestVerifierHonoursLeeway(t *testing.T) {
	cfg := testJWTConfig()
	cfg.Leeway = time.Minute
	token, err := MintAccessToken(cfg, time.Now().Add(-30*time.Minute-20*time.Second), AccessTokenPayload{
		UserID: "user_1",
		Email:  "a@example.com",
	})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	verifier, err := NewVerifier(cfg)
	if err != nil {
		t.Fatalf("verifier: %v", err)
	}
	if _, err := verifier.Parse(token); err != nil {
		t.Fatalf("expected token within leeway to pass, got %v", err)
	}
}

func TestVerifierRejectsOtherAlgorithms(t *testing.T) {
	cfg := testJWTConfig()
	claims := AccessTokenClaims{
		UserID: "user_1",
		Email:  "a@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := ParseAccessToken(cfg, signed); err == nil {
		t.Fatal("expected HS512 token to be rejected")
	}
}

func TestVerifierRequiresEmail(t *testing.T) {
	cfg := testJWTConfig()
	claims := AccessTokenClaims{
		UserID: "user_1",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := ParseAccessToken(cfg, signed); err == nil || !strings.Contains(err.Error(), "email") {
		t.Fatalf("expected missing email error, got %v", err)
	}
}
