package auth

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestIssueAndParseToken(t *testing.T) {
	secret := []byte("secret")
	issued, err := IssueToken(secret, Claims{
		Sub:   "user-1",
		Email: "avery@example.com",
		JTI:   "jti-1",
		Exp:   time.Now().Add(time.Hour).Unix(),
	})
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	claims, err := ParseToken(secret, issued)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if claims.Sub != "user-1" || claims.Email != "avery@example.com" || claims.JTI != "jti-1" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestParseTokenRejectsExpired(t *testing.T) {
	secret := []byte("secret")
	issued, err := IssueToken(secret, Claims{
		Sub:   "user-1",
		Email: "avery@example.com",
		JTI:   "jti-1",
		Exp:   time.Now().Add(-time.Minute).Unix(),
	})
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	if _, err := ParseToken(secret, issued); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("ParseToken() error = %v, want ErrExpiredToken", err)
	}
}

func TestParseTokenRejectsTampering(t *testing.T) {
	now := time.Now()
	issued, _, err := NewAccessToken([]byte("secret"), "user-1", "a@example.com", time.Hour, now)
	if err != nil {
		t.Fatalf("NewAccessToken() error = %v", err)
	}

	cases := map[string]string{
		"wrong secret": issued,
		"no signature": strings.Split(issued, ".")[0],
		"extra part":   issued + ".x",
		"garbage":      "not-a-token",
	}
	for name, token := range cases {
		secret := []byte("secret")
		if name == "wrong secret" {
			secret = []byte("other")
		}
		if _, err := ParseToken(secret, token); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("%s: error = %v, want ErrInvalidToken", name, err)
		}
	}
}

func TestNewAccessToken(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	token, claims, err := NewAccessToken([]byte("s"), "user-1", "a@example.com", 15*time.Minute, now)
	if err != nil {
		t.Fatalf("NewAccessToken() error = %v", err)
	}
	if !strings.HasPrefix(claims.JTI, "jti_") {
		t.Fatalf("jti = %q", claims.JTI)
	}
	if !claims.ExpiresAt().Equal(now.Add(15 * time.Minute)) {
		t.Fatalf("expires at %v", claims.ExpiresAt())
	}
	parsed, err := parseTokenAt([]byte("s"), token, now.Add(time.Minute))
	if err != nil || parsed.JTI != claims.JTI {
		t.Fatalf("parse = %+v, %v", parsed, err)
	}
	if _, err := parseTokenAt([]byte("s"), token, now.Add(15*time.Minute)); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("at expiry error = %v", err)
	}
}

func TestHashTokenIsStable(t *testing.T) {
	if HashToken("abc") != HashToken("abc") || HashToken("abc") == HashToken("abd") {
		t.Fatal("HashToken must be deterministic and distinct")
	}
	if len(HashToken("abc")) != 64 {
		t.Fatalf("hash length = %d", len(HashToken("abc")))
	}
}
