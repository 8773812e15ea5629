package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token type tags carried in the "type" claim.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

var (
	// ErrInvalidToken is returned when a token is malformed, expired, or fails signature verification.
	ErrInvalidToken = errors.New("invalid token")
	// ErrWrongTokenType is returned when the "type" claim does not match the operation's expectation.
	ErrWrongTokenType = errors.New("wrong token type")
)

// Claims holds the JWT claims for both access and refresh tokens.
// Subject is the user id, ID the jti used as the revocation key.
type Claims struct {
	jwt.RegisteredClaims
	Roles []string `json:"roles,omitempty"`
	Type  string   `json:"type"`
}

// TokenCodec issues and verifies HS256-signed, typed, expiring tokens.
// It is a pure function of its secret and the clock; it holds no state.
type TokenCodec struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewTokenCodec returns a TokenCodec signing with the given shared secret.
func NewTokenCodec(secret string, accessTTL, refreshTTL time.Duration) *TokenCodec {
	return &TokenCodec{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// AccessTTL returns the configured access token lifetime.
func (c *TokenCodec) AccessTTL() time.Duration { return c.accessTTL }

// RefreshTTL returns the configured refresh token lifetime.
func (c *TokenCodec) RefreshTTL() time.Duration { return c.refreshTTL }

// IssueAccess issues a short-lived access token for the user and role snapshot.
// Returns the signed token, its jti, and the expiry instant.
func (c *TokenCodec) IssueAccess(userID string, roles []string) (token, jti string, expiresAt time.Time, err error) {
	return c.issue(userID, roles, TokenTypeAccess, c.accessTTL)
}

// IssueRefresh issues a refresh token for the user and role snapshot.
// Returns the signed token, its jti, and the expiry instant.
func (c *TokenCodec) IssueRefresh(userID string, roles []string) (token, jti string, expiresAt time.Time, err error) {
	return c.issue(userID, roles, TokenTypeRefresh, c.refreshTTL)
}

// IssueAccessWithTTL issues an access token with an explicit lifetime. Used by the
// degraded-mode path, which hands out tokens shorter-lived than the normal access TTL.
func (c *TokenCodec) IssueAccessWithTTL(userID string, roles []string, ttl time.Duration) (token, jti string, expiresAt time.Time, err error) {
	return c.issue(userID, roles, TokenTypeAccess, ttl)
}

func (c *TokenCodec) issue(userID string, roles []string, typ string, ttl time.Duration) (string, string, time.Time, error) {
	jti := uuid.New().String()
	now := time.Now().UTC()
	expiresAt := now.Add(ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Roles: roles,
		Type:  typ,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", "", time.Time{}, err
	}
	return token, jti, expiresAt, nil
}

// Decode parses and verifies a token (signature and exp via the library's checks).
// It does not check the "type" claim; callers use EnsureType for that.
func (c *TokenCodec) Decode(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return c.secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// EnsureType validates the token type contained in the claims.
func EnsureType(claims *Claims, expected string) error {
	if claims == nil || claims.Type != expected {
		return ErrWrongTokenType
	}
	return nil
}
