// Package service implements user administration: listing, role management,
// activation toggles, and password updates. Every mutation is audited.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	auditdomain "sentinel-auth/backend/internal/audit/domain"
	"sentinel-auth/backend/internal/security"
	"sentinel-auth/backend/internal/user/domain"
)

var (
	// ErrUserNotFound is returned when the user id does not resolve.
	ErrUserNotFound = errors.New("user not found")
	// ErrValidation covers malformed input.
	ErrValidation = errors.New("invalid request")
	// ErrPersistence is returned when the user store cannot be reached.
	ErrPersistence = errors.New("persistence failure")
)

const defaultPageSize = 50

// Repo is the user persistence surface this service needs.
type Repo interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	List(ctx context.Context, limit, offset int) ([]*domain.User, error)
	SetActive(ctx context.Context, id string, active bool) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	EnsureRole(ctx context.Context, name string) (string, error)
	AssignRole(ctx context.Context, userID, roleName string) error
	RemoveRole(ctx context.Context, userID, roleName string) error
}

// Recorder receives the audit events user administration emits.
type Recorder interface {
	Record(ctx context.Context, e *auditdomain.Event)
}

// UserService exposes user administration to admin flows.
type UserService struct {
	repo     Repo
	hasher   *security.Hasher
	recorder Recorder
}

func NewUserService(repo Repo, hasher *security.Hasher, recorder Recorder) *UserService {
	return &UserService{repo: repo, hasher: hasher, recorder: recorder}
}

// Get resolves a user by id.
func (s *UserService) Get(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: get user: %v", ErrPersistence, err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// List returns a page of users. limit falls back to a default page size.
func (s *UserService) List(ctx context.Context, limit, offset int) ([]*domain.User, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if offset < 0 {
		offset = 0
	}
	users, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%w: list users: %v", ErrPersistence, err)
	}
	return users, nil
}

// AssignRole grants the role to the user, creating the role row if needed.
// Granting a role the user already holds is a no-op.
func (s *UserService) AssignRole(ctx context.Context, actorID, userID, roleName string) error {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	if roleName == "" {
		return fmt.Errorf("%w: role name required", ErrValidation)
	}
	if user.HasRole(roleName) {
		return nil
	}

	if _, err := s.repo.EnsureRole(ctx, roleName); err != nil {
		return fmt.Errorf("%w: ensure role: %v", ErrPersistence, err)
	}
	if err := s.repo.AssignRole(ctx, userID, roleName); err != nil {
		return fmt.Errorf("%w: assign role: %v", ErrPersistence, err)
	}

	s.record(ctx, userID, auditdomain.EventRoleAssigned, map[string]any{
		"role":     roleName,
		"actor_id": actorID,
	})
	return nil
}

// RemoveRole revokes the role from the user. Removing a role the user does not
// hold is a no-op.
func (s *UserService) RemoveRole(ctx context.Context, actorID, userID, roleName string) error {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	if !user.HasRole(roleName) {
		return nil
	}

	if err := s.repo.RemoveRole(ctx, userID, roleName); err != nil {
		return fmt.Errorf("%w: remove role: %v", ErrPersistence, err)
	}

	s.record(ctx, userID, auditdomain.EventRoleRemoved, map[string]any{
		"role":     roleName,
		"actor_id": actorID,
	})
	return nil
}

// SetActive enables or disables the account. Disabling invalidates nothing by
// itself; token checks reject inactive users on their next use.
func (s *UserService) SetActive(ctx context.Context, actorID, userID string, active bool) error {
	if _, err := s.Get(ctx, userID); err != nil {
		return err
	}

	if err := s.repo.SetActive(ctx, userID, active); err != nil {
		return fmt.Errorf("%w: set active: %v", ErrPersistence, err)
	}

	event := auditdomain.EventUserDisabled
	if active {
		event = auditdomain.EventUserEnabled
	}
	s.record(ctx, userID, event, map[string]any{"actor_id": actorID})
	return nil
}

// UpdatePassword validates and rehashes the new password.
func (s *UserService) UpdatePassword(ctx context.Context, actorID, userID, newPassword string) error {
	if _, err := s.Get(ctx, userID); err != nil {
		return err
	}
	if err := domain.ValidatePassword(newPassword); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := s.repo.UpdatePassword(ctx, userID, hash); err != nil {
		return fmt.Errorf("%w: update password: %v", ErrPersistence, err)
	}

	s.record(ctx, userID, auditdomain.EventPasswordChanged, map[string]any{"actor_id": actorID})
	return nil
}

func (s *UserService) record(ctx context.Context, userID, event string, metadata map[string]any) {
	if s.recorder == nil {
		return
	}
	s.recorder.Record(ctx, &auditdomain.Event{
		UserID:    userID,
		EventType: event,
		TS:        time.Now().UTC(),
		Metadata:  metadata,
	})
}
