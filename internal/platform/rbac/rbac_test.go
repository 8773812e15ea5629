package rbac

import (
	"errors"
	"testing"

	"sentinel-auth/backend/internal/user/domain"
)

func caller(roles ...string) *domain.User {
	return &domain.User{ID: "u1", IsActive: true, Roles: roles}
}

func TestRequireRoles(t *testing.T) {
	if err := RequireRoles(caller("user", "admin"), "admin"); err != nil {
		t.Errorf("admin caller: %v", err)
	}
	if err := RequireRoles(caller("user"), "admin"); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("missing role: err = %v, want ErrPermissionDenied", err)
	}
	if err := RequireRoles(caller("user", "admin"), "user", "admin"); err != nil {
		t.Errorf("all roles held: %v", err)
	}
	if err := RequireRoles(caller("admin"), "user", "admin"); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("one of two roles: err = %v, want ErrPermissionDenied", err)
	}
}

func TestRequireAnyRole(t *testing.T) {
	if err := RequireAnyRole(caller("user"), "admin", "user"); err != nil {
		t.Errorf("one matching role: %v", err)
	}
	if err := RequireAnyRole(caller("user"), "admin", "auditor"); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("no matching role: err = %v, want ErrPermissionDenied", err)
	}
}

func TestNilOrInactiveCaller(t *testing.T) {
	if err := RequireRoles(nil, "admin"); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("nil caller: err = %v, want ErrUnauthenticated", err)
	}
	disabled := caller("admin")
	disabled.IsActive = false
	if err := RequireAnyRole(disabled, "admin"); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("inactive caller: err = %v, want ErrUnauthenticated", err)
	}
}

func TestRequireAdmin(t *testing.T) {
	if err := RequireAdmin(caller(domain.RoleAdmin)); err != nil {
		t.Errorf("admin: %v", err)
	}
	if err := RequireAdmin(caller(domain.RoleUser)); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("non-admin: err = %v, want ErrPermissionDenied", err)
	}
}
