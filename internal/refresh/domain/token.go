package domain

import "time"

// Token is the durable record of an issued refresh token, keyed by jti.
// RevokedAt is set exactly once; a non-nil value means the token can never
// be redeemed again.
type Token struct {
	JTI       string
	UserID    string
	IssuedAt  time.Time
	ExpiresAt time.Time
	RevokedAt *time.Time
	IP        string
	UserAgent string
}

// Revoked reports whether the token has been consumed or administratively revoked.
func (t *Token) Revoked() bool { return t.RevokedAt != nil }

// Expired reports whether the token's lifetime has elapsed at now.
func (t *Token) Expired(now time.Time) bool { return !now.Before(t.ExpiresAt) }
