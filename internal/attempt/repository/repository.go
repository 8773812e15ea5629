package repository

import (
	"context"
	"time"

	"sentinel-auth/backend/internal/attempt/domain"
)

// Repository defines persistence for the login attempt ledger. The ledger is
// append-only; rows are never updated.
type Repository interface {
	Create(ctx context.Context, a *domain.LoginAttempt) error
	// ListByEmail returns recent attempts for the email, newest first.
	ListByEmail(ctx context.Context, email string, limit int) ([]*domain.LoginAttempt, error)
	// CountFailuresSince counts failed attempts for the email at or after since.
	CountFailuresSince(ctx context.Context, email string, since time.Time) (int64, error)
	// PurgeBefore deletes ledger rows older than the cutoff. Returns rows removed.
	PurgeBefore(ctx context.Context, before time.Time) (int64, error)
}
