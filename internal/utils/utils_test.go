package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	tok, err := NewAccessToken("secret", 42, "Alice", "CUSTOMER", 15)
	if err != nil {
		t.Fatal(err)
	}
	if time.Until(tok.Exp) <= 14*time.Minute {
		t.Fatalf("unexpected expiry %s", tok.Exp)
	}
	claims, err := ParseAccessToken("secret", tok.Token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	id, _ := claims.UserID()
	if id != 42 || claims.Name != "Alice" || claims.Role != "CUSTOMER" {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestParseAccessTokenRejects(t *testing.T) {
	good, _ := NewAccessToken("secret", 1, "A", "ADMIN", 15)
	expired, _ := NewAccessToken("secret", 1, "A", "ADMIN", -1)
	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "1", Issuer: Issuer},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	cases := map[string]struct{ secret, raw string }{
		"wrong secret": {"other", good.Token},
		"expired":      {"secret", expired.Token},
		"alg none":     {"secret", none},
		"garbage":      {"secret", "not.a.jwt"},
	}
	for name, tc := range cases {
		if _, err := ParseAccessToken(tc.secret, tc.raw); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestRefreshToken(t *testing.T) {
	a, err := NewRefreshToken(7)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := NewRefreshToken(7)
	if len(a.Raw) != 96 || a.Raw == b.Raw {
		t.Fatalf("tokens should be 96 hex chars and unique: %q %q", a.Raw, b.Raw)
	}
	h := HashRefreshRaw(a.Raw)
	if len(h) != 64 || h != HashRefreshRaw(a.Raw) || strings.Contains(h, a.Raw) {
		t.Fatalf("unexpected hash %q", h)
	}
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("password123", 4)
	if err != nil {
		t.Fatal(err)
	}
	if !VerifyPassword(hash, "password123") {
		t.Fatal("password should verify")
	}
	if VerifyPassword(hash, "password124") {
		t.Fatal("wrong password verified")
	}
}
