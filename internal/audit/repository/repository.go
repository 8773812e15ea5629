package repository

import (
	"context"

	"sentinel-auth/backend/internal/audit/domain"
)

// Repository defines persistence for audit events. The trail is append-only.
type Repository interface {
	Create(ctx context.Context, e *domain.Event) error
	// ListRecent returns the newest events across all users.
	ListRecent(ctx context.Context, limit int) ([]*domain.Event, error)
	// ListByUser returns the newest events for one user.
	ListByUser(ctx context.Context, userID string, limit int) ([]*domain.Event, error)
}
