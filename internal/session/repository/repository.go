package repository

import (
	"context"
	"time"

	"sentinel-auth/backend/internal/session/domain"
)

// Repository defines persistence for sessions.
type Repository interface {
	Create(ctx context.Context, s *domain.Session) error
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	// ListByUser returns the user's sessions, most recent first. activeOnly
	// restricts the listing to sessions not yet deactivated.
	ListByUser(ctx context.Context, userID string, activeOnly bool) ([]*domain.Session, error)
	// Touch bumps last_seen_at for an active session.
	Touch(ctx context.Context, id string, at time.Time) error
	// Deactivate marks the session inactive. Reports whether a live session was found.
	Deactivate(ctx context.Context, id string) (bool, error)
	// DeactivateLatestByUser deactivates the user's most recently seen active
	// session. Reports whether one existed.
	DeactivateLatestByUser(ctx context.Context, userID string) (bool, error)
	// DeactivateAllByUser deactivates every active session for the user and returns the count.
	DeactivateAllByUser(ctx context.Context, userID string) (int64, error)
	// PurgeInactive deletes inactive sessions last seen before the cutoff. Returns rows removed.
	PurgeInactive(ctx context.Context, before time.Time) (int64, error)
}
