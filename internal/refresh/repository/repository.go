package repository

import (
	"context"
	"time"

	"sentinel-auth/backend/internal/refresh/domain"
)

// Repository defines persistence for refresh token records.
type Repository interface {
	Create(ctx context.Context, t *domain.Token) error
	GetByJTI(ctx context.Context, jti string) (*domain.Token, error)
	// Revoke marks the token revoked if and only if it is not already revoked.
	// Reports whether this call performed the revocation, so that of two
	// concurrent redemptions of the same jti exactly one wins.
	Revoke(ctx context.Context, jti string, at time.Time) (bool, error)
	// RevokeAllForUser revokes every live token for the user and returns the count.
	RevokeAllForUser(ctx context.Context, userID string, at time.Time) (int64, error)
	// PurgeExpired deletes rows whose expiry is older than before. Returns rows removed.
	PurgeExpired(ctx context.Context, before time.Time) (int64, error)
}
