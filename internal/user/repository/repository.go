package repository

import (
	"context"
	"time"

	"sentinel-auth/backend/internal/user/domain"
)

// Repository defines persistence for users and their role assignments.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
	List(ctx context.Context, limit, offset int) ([]*domain.User, error)
	// UpdateLastLogin records the last successful login instant and its origin.
	UpdateLastLogin(ctx context.Context, id string, at time.Time, ip, userAgent string) error
	SetActive(ctx context.Context, id string, active bool) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	// EnsureRole creates the role if missing and returns its id either way.
	EnsureRole(ctx context.Context, name string) (string, error)
	AssignRole(ctx context.Context, userID, roleName string) error
	RemoveRole(ctx context.Context, userID, roleName string) error
}
