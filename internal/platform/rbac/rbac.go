// Package rbac provides role checks for admin flows. Enforcement is set
// membership over the caller's resolved role snapshot; callers map the
// sentinel errors to their transport's status codes.
package rbac

import (
	"errors"

	"sentinel-auth/backend/internal/user/domain"
)

var (
	// ErrUnauthenticated is returned when no caller is resolved.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrPermissionDenied is returned when the caller lacks a required role.
	ErrPermissionDenied = errors.New("permission denied")
)

// RequireRoles ensures the caller holds every listed role.
func RequireRoles(caller *domain.User, roles ...string) error {
	if caller == nil || !caller.IsActive {
		return ErrUnauthenticated
	}
	for _, role := range roles {
		if !caller.HasRole(role) {
			return ErrPermissionDenied
		}
	}
	return nil
}

// RequireAnyRole ensures the caller holds at least one of the listed roles.
func RequireAnyRole(caller *domain.User, roles ...string) error {
	if caller == nil || !caller.IsActive {
		return ErrUnauthenticated
	}
	for _, role := range roles {
		if caller.HasRole(role) {
			return nil
		}
	}
	return ErrPermissionDenied
}

// RequireAdmin is shorthand for the admin role check used by every admin flow.
func RequireAdmin(caller *domain.User) error {
	return RequireRoles(caller, domain.RoleAdmin)
}
