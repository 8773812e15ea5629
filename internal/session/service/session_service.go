// Package service implements session administration: listing a user's
// sessions and revoking one or all of them.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	auditdomain "sentinel-auth/backend/internal/audit/domain"
	"sentinel-auth/backend/internal/session/domain"
)

var (
	// ErrSessionNotFound is returned when the session id does not resolve to a
	// live session.
	ErrSessionNotFound = errors.New("session not found")
	// ErrPersistence is returned when the session store cannot be reached.
	ErrPersistence = errors.New("persistence failure")
)

// Repo is the session persistence surface this service needs.
type Repo interface {
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	ListByUser(ctx context.Context, userID string, activeOnly bool) ([]*domain.Session, error)
	Touch(ctx context.Context, id string, at time.Time) error
	Deactivate(ctx context.Context, id string) (bool, error)
	DeactivateAllByUser(ctx context.Context, userID string) (int64, error)
}

// Recorder receives the audit events session administration emits.
type Recorder interface {
	Record(ctx context.Context, e *auditdomain.Event)
}

// SessionService exposes the session registry to admin flows.
type SessionService struct {
	repo     Repo
	recorder Recorder
}

func NewSessionService(repo Repo, recorder Recorder) *SessionService {
	return &SessionService{repo: repo, recorder: recorder}
}

// ListForUser returns the user's sessions, most recent first.
func (s *SessionService) ListForUser(ctx context.Context, userID string, activeOnly bool) ([]*domain.Session, error) {
	sessions, err := s.repo.ListByUser(ctx, userID, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("%w: list sessions: %v", ErrPersistence, err)
	}
	return sessions, nil
}

// Get resolves a single session by id.
func (s *SessionService) Get(ctx context.Context, id string) (*domain.Session, error) {
	sess, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: get session: %v", ErrPersistence, err)
	}
	if sess == nil {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// Touch bumps the session's last-seen instant. Missing sessions are ignored.
func (s *SessionService) Touch(ctx context.Context, id string) error {
	if err := s.repo.Touch(ctx, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("%w: touch session: %v", ErrPersistence, err)
	}
	return nil
}

// Revoke deactivates one session. actorID identifies who requested the
// revocation and is carried in the audit event.
func (s *SessionService) Revoke(ctx context.Context, actorID, sessionID string) error {
	sess, err := s.repo.GetByID(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("%w: get session: %v", ErrPersistence, err)
	}
	if sess == nil {
		return ErrSessionNotFound
	}

	revoked, err := s.repo.Deactivate(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("%w: deactivate session: %v", ErrPersistence, err)
	}
	if !revoked {
		return ErrSessionNotFound
	}

	if s.recorder != nil {
		s.recorder.Record(ctx, &auditdomain.Event{
			UserID:    sess.UserID,
			EventType: auditdomain.EventSessionRevoked,
			IP:        sess.IP,
			UserAgent: sess.UserAgent,
			Metadata: map[string]any{
				"session_id": sessionID,
				"actor_id":   actorID,
			},
		})
	}
	return nil
}

// RevokeAll deactivates every active session of the user and returns how many
// were live. Zero live sessions is not an error.
func (s *SessionService) RevokeAll(ctx context.Context, actorID, userID string) (int64, error) {
	count, err := s.repo.DeactivateAllByUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("%w: deactivate sessions: %v", ErrPersistence, err)
	}

	if s.recorder != nil {
		s.recorder.Record(ctx, &auditdomain.Event{
			UserID:    userID,
			EventType: auditdomain.EventSessionRevokedAll,
			Metadata: map[string]any{
				"revoked_count": count,
				"actor_id":      actorID,
			},
		})
	}
	return count, nil
}
