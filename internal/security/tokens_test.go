package security

import (
	"errors"
	"testing"
	"time"
)

func newTestCodec() *TokenCodec {
	return NewTokenCodec("test-secret-at-least-16-chars", 15*time.Minute, 7*24*time.Hour)
}

func TestIssueAccess_RoundTrip(t *testing.T) {
	c := newTestCodec()

	token, jti, expiresAt, err := c.IssueAccess("user-1", []string{"user", "admin"})
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	if token == "" || jti == "" {
		t.Fatal("token and jti must be non-empty")
	}
	if remaining := time.Until(expiresAt); remaining < 14*time.Minute || remaining > 15*time.Minute {
		t.Errorf("expiry %v not within access TTL", remaining)
	}

	claims, err := c.Decode(token)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if claims.Subject != "user-1" {
		t.Errorf("subject = %q, want user-1", claims.Subject)
	}
	if claims.ID != jti {
		t.Errorf("jti = %q, want %q", claims.ID, jti)
	}
	if claims.Type != TokenTypeAccess {
		t.Errorf("type = %q, want access", claims.Type)
	}
	if len(claims.Roles) != 2 {
		t.Errorf("roles = %v, want 2 entries", claims.Roles)
	}
	if err := EnsureType(claims, TokenTypeAccess); err != nil {
		t.Errorf("EnsureType access: %v", err)
	}
}

func TestIssueRefresh_TypeTag(t *testing.T) {
	c := newTestCodec()

	token, _, _, err := c.IssueRefresh("user-1", []string{"user"})
	if err != nil {
		t.Fatal(err)
	}
	claims, err := c.Decode(token)
	if err != nil {
		t.Fatal(err)
	}
	if claims.Type != TokenTypeRefresh {
		t.Errorf("type = %q, want refresh", claims.Type)
	}
	if err := EnsureType(claims, TokenTypeAccess); !errors.Is(err, ErrWrongTokenType) {
		t.Errorf("EnsureType = %v, want ErrWrongTokenType", err)
	}
}

func TestIssue_UniqueJTIs(t *testing.T) {
	c := newTestCodec()

	_, jti1, _, err := c.IssueRefresh("user-1", nil)
	if err != nil {
		t.Fatal(err)
	}
	_, jti2, _, err := c.IssueRefresh("user-1", nil)
	if err != nil {
		t.Fatal(err)
	}
	if jti1 == jti2 {
		t.Error("consecutive issuances must have distinct jtis")
	}
}

func TestDecode_WrongSecret(t *testing.T) {
	token, _, _, err := newTestCodec().IssueAccess("user-1", nil)
	if err != nil {
		t.Fatal(err)
	}
	other := NewTokenCodec("another-secret-16-chars-min", 15*time.Minute, 7*24*time.Hour)
	if _, err := other.Decode(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Decode with wrong secret = %v, want ErrInvalidToken", err)
	}
}

func TestDecode_Malformed(t *testing.T) {
	c := newTestCodec()
	for _, tok := range []string{"", "garbage", "a.b.c"} {
		if _, err := c.Decode(tok); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Decode(%q) = %v, want ErrInvalidToken", tok, err)
		}
	}
}

func TestDecode_Expired(t *testing.T) {
	c := newTestCodec()
	token, _, _, err := c.IssueAccessWithTTL("user-1", nil, -time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Decode(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Decode expired = %v, want ErrInvalidToken", err)
	}
}

func TestIssueAccessWithTTL_ShortLifetime(t *testing.T) {
	c := newTestCodec()
	_, _, expiresAt, err := c.IssueAccessWithTTL("user-1", nil, 5*time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if remaining := time.Until(expiresAt); remaining > 5*time.Minute {
		t.Errorf("expiry %v exceeds the explicit TTL", remaining)
	}
}

func TestEnsureType_NilClaims(t *testing.T) {
	if err := EnsureType(nil, TokenTypeAccess); !errors.Is(err, ErrWrongTokenType) {
		t.Errorf("EnsureType(nil) = %v, want ErrWrongTokenType", err)
	}
}
