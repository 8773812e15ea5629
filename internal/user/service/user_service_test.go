package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	auditdomain "sentinel-auth/backend/internal/audit/domain"
	"sentinel-auth/backend/internal/security"
	"sentinel-auth/backend/internal/user/domain"
)

type fakeRepo struct {
	mu       sync.Mutex
	users    map[string]*domain.User
	roles    map[string]bool
	failWith error
}

func newFakeRepo(users ...*domain.User) *fakeRepo {
	f := &fakeRepo{users: make(map[string]*domain.User), roles: make(map[string]bool)}
	for _, u := range users {
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	return f.users[id], nil
}

func (f *fakeRepo) List(_ context.Context, limit, offset int) ([]*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	var out []*domain.User
	for _, u := range f.users {
		out = append(out, u)
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeRepo) SetActive(_ context.Context, id string, active bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		u.IsActive = active
	}
	return nil
}

func (f *fakeRepo) UpdatePassword(_ context.Context, id, passwordHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		u.PasswordHash = passwordHash
	}
	return nil
}

func (f *fakeRepo) EnsureRole(_ context.Context, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.roles[name] = true
	return "role-" + name, nil
}

func (f *fakeRepo) AssignRole(_ context.Context, userID, roleName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[userID]; ok && !u.HasRole(roleName) {
		u.Roles = append(u.Roles, roleName)
	}
	return nil
}

func (f *fakeRepo) RemoveRole(_ context.Context, userID, roleName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return nil
	}
	var kept []string
	for _, r := range u.Roles {
		if r != roleName {
			kept = append(kept, r)
		}
	}
	u.Roles = kept
	return nil
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

func (f *fakeRecorder) lastType() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.events) == 0 {
		return ""
	}
	return f.events[len(f.events)-1].EventType
}

func testUser(id string) *domain.User {
	return &domain.User{
		ID:       id,
		Email:    id + "@example.com",
		IsActive: true,
		Roles:    []string{domain.RoleUser},
	}
}

func newTestService(repo *fakeRepo, rec *fakeRecorder) *UserService {
	return NewUserService(repo, security.NewHasher(4), rec)
}

func TestGet_MissingUser(t *testing.T) {
	svc := newTestService(newFakeRepo(), nil)

	if _, err := svc.Get(context.Background(), "nope"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("err = %v, want ErrUserNotFound", err)
	}
}

func TestList_DefaultsAndPaging(t *testing.T) {
	repo := newFakeRepo(testUser("u1"), testUser("u2"), testUser("u3"))
	svc := newTestService(repo, nil)

	all, err := svc.List(context.Background(), 0, -1)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("len = %d, want 3", len(all))
	}

	page, err := svc.List(context.Background(), 2, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(page) != 2 {
		t.Errorf("page len = %d, want 2", len(page))
	}
}

func TestAssignRole_GrantsOnceAndAudits(t *testing.T) {
	repo := newFakeRepo(testUser("u1"))
	rec := &fakeRecorder{}
	svc := newTestService(repo, rec)

	if err := svc.AssignRole(context.Background(), "admin-1", "u1", domain.RoleAdmin); err != nil {
		t.Fatalf("AssignRole: %v", err)
	}
	if !repo.users["u1"].HasRole(domain.RoleAdmin) {
		t.Error("user must hold the admin role")
	}
	if !repo.roles[domain.RoleAdmin] {
		t.Error("role row must be ensured before assignment")
	}
	if rec.lastType() != auditdomain.EventRoleAssigned {
		t.Errorf("last event = %q, want %q", rec.lastType(), auditdomain.EventRoleAssigned)
	}

	// A second grant of the same role changes nothing and emits nothing.
	before := len(rec.events)
	if err := svc.AssignRole(context.Background(), "admin-1", "u1", domain.RoleAdmin); err != nil {
		t.Fatalf("repeat AssignRole: %v", err)
	}
	if len(rec.events) != before {
		t.Error("idempotent grant must not emit another audit event")
	}
}

func TestAssignRole_EmptyName(t *testing.T) {
	svc := newTestService(newFakeRepo(testUser("u1")), nil)

	if err := svc.AssignRole(context.Background(), "admin-1", "u1", ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestRemoveRole_RevokesAndAudits(t *testing.T) {
	u := testUser("u1")
	u.Roles = []string{domain.RoleUser, domain.RoleAdmin}
	repo := newFakeRepo(u)
	rec := &fakeRecorder{}
	svc := newTestService(repo, rec)

	if err := svc.RemoveRole(context.Background(), "admin-1", "u1", domain.RoleAdmin); err != nil {
		t.Fatalf("RemoveRole: %v", err)
	}
	if repo.users["u1"].HasRole(domain.RoleAdmin) {
		t.Error("admin role must be gone")
	}
	if rec.lastType() != auditdomain.EventRoleRemoved {
		t.Errorf("last event = %q, want %q", rec.lastType(), auditdomain.EventRoleRemoved)
	}

	// Removing an unheld role is a no-op.
	before := len(rec.events)
	if err := svc.RemoveRole(context.Background(), "admin-1", "u1", "auditor"); err != nil {
		t.Fatalf("no-op RemoveRole: %v", err)
	}
	if len(rec.events) != before {
		t.Error("no-op removal must not emit an audit event")
	}
}

func TestSetActive_TogglesAndAudits(t *testing.T) {
	repo := newFakeRepo(testUser("u1"))
	rec := &fakeRecorder{}
	svc := newTestService(repo, rec)

	if err := svc.SetActive(context.Background(), "admin-1", "u1", false); err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	if repo.users["u1"].IsActive {
		t.Error("user must be inactive")
	}
	if rec.lastType() != auditdomain.EventUserDisabled {
		t.Errorf("last event = %q, want %q", rec.lastType(), auditdomain.EventUserDisabled)
	}

	if err := svc.SetActive(context.Background(), "admin-1", "u1", true); err != nil {
		t.Fatal(err)
	}
	if rec.lastType() != auditdomain.EventUserEnabled {
		t.Errorf("last event = %q, want %q", rec.lastType(), auditdomain.EventUserEnabled)
	}
}

func TestUpdatePassword_RehashesAndAudits(t *testing.T) {
	repo := newFakeRepo(testUser("u1"))
	rec := &fakeRecorder{}
	svc := newTestService(repo, rec)

	if err := svc.UpdatePassword(context.Background(), "admin-1", "u1", "NewSecret123!"); err != nil {
		t.Fatalf("UpdatePassword: %v", err)
	}
	hash := repo.users["u1"].PasswordHash
	if hash == "" || hash == "NewSecret123!" {
		t.Error("password must be stored as a hash")
	}
	if !security.NewHasher(4).Verify("NewSecret123!", hash) {
		t.Error("stored hash must verify against the new password")
	}
	if rec.lastType() != auditdomain.EventPasswordChanged {
		t.Errorf("last event = %q, want %q", rec.lastType(), auditdomain.EventPasswordChanged)
	}
}

func TestUpdatePassword_TooShort(t *testing.T) {
	svc := newTestService(newFakeRepo(testUser("u1")), nil)

	if err := svc.UpdatePassword(context.Background(), "admin-1", "u1", "short"); !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestStoreOutageWrapsErrPersistence(t *testing.T) {
	repo := newFakeRepo()
	repo.failWith = errors.New("connection refused")
	svc := newTestService(repo, nil)

	if _, err := svc.Get(context.Background(), "u1"); !errors.Is(err, ErrPersistence) {
		t.Errorf("Get: err = %v, want ErrPersistence", err)
	}
	if _, err := svc.List(context.Background(), 10, 0); !errors.Is(err, ErrPersistence) {
		t.Errorf("List: err = %v, want ErrPersistence", err)
	}
}
