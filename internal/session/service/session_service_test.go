package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	auditdomain "sentinel-auth/backend/internal/audit/domain"
	"sentinel-auth/backend/internal/session/domain"
)

type fakeRepo struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session
	failWith error
}

func newFakeRepo(sessions ...*domain.Session) *fakeRepo {
	f := &fakeRepo{sessions: make(map[string]*domain.Session)}
	for _, s := range sessions {
		f.sessions[s.ID] = s
	}
	return f
}

func (f *fakeRepo) GetByID(_ context.Context, id string) (*domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	return f.sessions[id], nil
}

func (f *fakeRepo) ListByUser(_ context.Context, userID string, activeOnly bool) ([]*domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	var out []*domain.Session
	for _, s := range f.sessions {
		if s.UserID == userID && (!activeOnly || s.Active) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeRepo) Touch(_ context.Context, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	if s, ok := f.sessions[id]; ok {
		s.LastSeenAt = at
	}
	return nil
}

func (f *fakeRepo) Deactivate(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return false, f.failWith
	}
	s, ok := f.sessions[id]
	if !ok || !s.Active {
		return false, nil
	}
	s.Active = false
	return true, nil
}

func (f *fakeRepo) DeactivateAllByUser(_ context.Context, userID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return 0, f.failWith
	}
	var n int64
	for _, s := range f.sessions {
		if s.UserID == userID && s.Active {
			s.Active = false
			n++
		}
	}
	return n, nil
}

type fakeRecorder struct {
	mu     sync.Mutex
	events []*auditdomain.Event
}

func (f *fakeRecorder) Record(_ context.Context, e *auditdomain.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
}

func session(id, userID string, active bool, lastSeen time.Time) *domain.Session {
	return &domain.Session{
		ID:         id,
		UserID:     userID,
		CreatedAt:  lastSeen.Add(-time.Hour),
		LastSeenAt: lastSeen,
		IP:         "10.0.0.1",
		UserAgent:  "curl/8.0",
		Active:     active,
	}
}

func TestListForUser_ActiveOnly(t *testing.T) {
	now := time.Now().UTC()
	repo := newFakeRepo(
		session("s1", "u1", true, now),
		session("s2", "u1", false, now.Add(-time.Hour)),
		session("s3", "u2", true, now),
	)
	svc := NewSessionService(repo, nil)

	got, err := svc.ListForUser(context.Background(), "u1", true)
	if err != nil {
		t.Fatalf("ListForUser: %v", err)
	}
	if len(got) != 1 || got[0].ID != "s1" {
		t.Errorf("active sessions = %v, want just s1", got)
	}

	all, err := svc.ListForUser(context.Background(), "u1", false)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Errorf("all sessions = %d, want 2", len(all))
	}
}

func TestGet_MissingSession(t *testing.T) {
	svc := NewSessionService(newFakeRepo(), nil)

	if _, err := svc.Get(context.Background(), "nope"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("err = %v, want ErrSessionNotFound", err)
	}
}

func TestRevoke_DeactivatesAndAudits(t *testing.T) {
	now := time.Now().UTC()
	repo := newFakeRepo(session("s1", "u1", true, now))
	rec := &fakeRecorder{}
	svc := NewSessionService(repo, rec)

	if err := svc.Revoke(context.Background(), "admin-1", "s1"); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if repo.sessions["s1"].Active {
		t.Error("session must be inactive after revoke")
	}
	if len(rec.events) != 1 {
		t.Fatalf("audit events = %d, want 1", len(rec.events))
	}
	e := rec.events[0]
	if e.EventType != auditdomain.EventSessionRevoked {
		t.Errorf("event type = %q, want %q", e.EventType, auditdomain.EventSessionRevoked)
	}
	if e.UserID != "u1" || e.Metadata["actor_id"] != "admin-1" {
		t.Errorf("event attribution wrong: user=%q actor=%v", e.UserID, e.Metadata["actor_id"])
	}
}

func TestRevoke_AlreadyInactive(t *testing.T) {
	now := time.Now().UTC()
	repo := newFakeRepo(session("s1", "u1", false, now))
	svc := NewSessionService(repo, &fakeRecorder{})

	if err := svc.Revoke(context.Background(), "admin-1", "s1"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("err = %v, want ErrSessionNotFound for dead session", err)
	}
}

func TestRevokeAll_CountsAndAudits(t *testing.T) {
	now := time.Now().UTC()
	repo := newFakeRepo(
		session("s1", "u1", true, now),
		session("s2", "u1", true, now.Add(-time.Minute)),
		session("s3", "u1", false, now.Add(-time.Hour)),
		session("s4", "u2", true, now),
	)
	rec := &fakeRecorder{}
	svc := NewSessionService(repo, rec)

	count, err := svc.RevokeAll(context.Background(), "admin-1", "u1")
	if err != nil {
		t.Fatalf("RevokeAll: %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
	if repo.sessions["s4"].Active != true {
		t.Error("other users' sessions must be untouched")
	}
	if len(rec.events) != 1 || rec.events[0].EventType != auditdomain.EventSessionRevokedAll {
		t.Fatalf("expected one revoked_all audit event, got %v", rec.events)
	}
	if got, _ := rec.events[0].Metadata["revoked_count"].(int64); got != 2 {
		t.Errorf("revoked_count = %v, want 2", rec.events[0].Metadata["revoked_count"])
	}
}

func TestRevokeAll_NoLiveSessions(t *testing.T) {
	svc := NewSessionService(newFakeRepo(), &fakeRecorder{})

	count, err := svc.RevokeAll(context.Background(), "admin-1", "u1")
	if err != nil {
		t.Fatalf("RevokeAll on empty registry: %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d, want 0", count)
	}
}

func TestStoreOutageWrapsErrPersistence(t *testing.T) {
	repo := newFakeRepo()
	repo.failWith = errors.New("connection refused")
	svc := NewSessionService(repo, nil)

	if _, err := svc.ListForUser(context.Background(), "u1", true); !errors.Is(err, ErrPersistence) {
		t.Errorf("ListForUser: err = %v, want ErrPersistence", err)
	}
	if err := svc.Revoke(context.Background(), "a", "s"); !errors.Is(err, ErrPersistence) {
		t.Errorf("Revoke: err = %v, want ErrPersistence", err)
	}
	if _, err := svc.RevokeAll(context.Background(), "a", "u1"); !errors.Is(err, ErrPersistence) {
		t.Errorf("RevokeAll: err = %v, want ErrPersistence", err)
	}
}
