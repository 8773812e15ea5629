package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"sentinel-auth/backend/internal/db"
	"sentinel-auth/backend/internal/user/domain"
)

type PostgresRepository struct {
	q db.Querier
}

// NewPostgresRepository returns a user repository that uses the given querier
// for persistence. Pass *sql.DB directly, or a *sql.Tx inside db.WithTx.
func NewPostgresRepository(q db.Querier) *PostgresRepository {
	return &PostgresRepository{q: q}
}

const userColumns = `id, email, password_hash, is_active, last_login_at, last_login_ip, last_login_ua, created_at, updated_at`

// GetByID returns the user for id with its role snapshot, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return r.scanUserWithRoles(ctx, row)
}

// GetByEmail returns the user with the given email, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return r.scanUserWithRoles(ctx, row)
}

// Create persists the user. The user must have ID set; it is not assigned by this method.
func (r *PostgresRepository) Create(ctx context.Context, u *domain.User) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		u.ID, u.Email, u.PasswordHash, u.IsActive, u.CreatedAt, u.UpdatedAt)
	return err
}

// List returns users ordered by creation time, newest first, with role snapshots.
func (r *PostgresRepository) List(ctx context.Context, limit, offset int) ([]*domain.User, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT `+userColumns+` FROM users ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, u := range users {
		roles, err := r.rolesFor(ctx, u.ID)
		if err != nil {
			return nil, err
		}
		u.Roles = roles
	}
	return users, nil
}

// UpdateLastLogin records the last successful login instant and origin. No-op for missing rows.
func (r *PostgresRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time, ip, userAgent string) error {
	_, err := r.q.ExecContext(ctx, `
		UPDATE users SET last_login_at = $2, last_login_ip = $3, last_login_ua = $4, updated_at = now()
		WHERE id = $1`,
		id, at, nullIfEmpty(ip), nullIfEmpty(userAgent))
	return err
}

// SetActive enables or disables the account. No-op for missing rows.
func (r *PostgresRepository) SetActive(ctx context.Context, id string, active bool) error {
	_, err := r.q.ExecContext(ctx, `
		UPDATE users SET is_active = $2, updated_at = now() WHERE id = $1`, id, active)
	return err
}

// UpdatePassword replaces the stored password hash. No-op for missing rows.
func (r *PostgresRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	_, err := r.q.ExecContext(ctx, `
		UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`, id, passwordHash)
	return err
}

// EnsureRole creates the role if missing and returns its id either way.
func (r *PostgresRepository) EnsureRole(ctx context.Context, name string) (string, error) {
	var id string
	err := r.q.QueryRowContext(ctx, `SELECT id FROM roles WHERE name = $1`, name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", err
	}
	id = uuid.New().String()
	if _, err := r.q.ExecContext(ctx, `
		INSERT INTO roles (id, name) VALUES ($1, $2) ON CONFLICT (name) DO NOTHING`, id, name); err != nil {
		return "", err
	}
	// Re-read in case a concurrent insert won the conflict.
	if err := r.q.QueryRowContext(ctx, `SELECT id FROM roles WHERE name = $1`, name).Scan(&id); err != nil {
		return "", err
	}
	return id, nil
}

// AssignRole grants roleName to the user, creating the role if needed. Idempotent.
func (r *PostgresRepository) AssignRole(ctx context.Context, userID, roleName string) error {
	roleID, err := r.EnsureRole(ctx, roleName)
	if err != nil {
		return err
	}
	_, err = r.q.ExecContext(ctx, `
		INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		userID, roleID)
	return err
}

// RemoveRole revokes roleName from the user. No-op when not assigned.
func (r *PostgresRepository) RemoveRole(ctx context.Context, userID, roleName string) error {
	_, err := r.q.ExecContext(ctx, `
		DELETE FROM user_roles
		WHERE user_id = $1 AND role_id = (SELECT id FROM roles WHERE name = $2)`,
		userID, roleName)
	return err
}

func (r *PostgresRepository) rolesFor(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT r.name FROM roles r
		JOIN user_roles ur ON ur.role_id = r.id
		WHERE ur.user_id = $1
		ORDER BY r.name`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		roles = append(roles, name)
	}
	return roles, rows.Err()
}

func (r *PostgresRepository) scanUserWithRoles(ctx context.Context, row *sql.Row) (*domain.User, error) {
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	roles, err := r.rolesFor(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	u.Roles = roles
	return u, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(s rowScanner) (*domain.User, error) {
	var (
		u           domain.User
		lastLoginAt sql.NullTime
		lastLoginIP sql.NullString
		lastLoginUA sql.NullString
	)
	if err := s.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.IsActive,
		&lastLoginAt, &lastLoginIP, &lastLoginUA, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	if lastLoginAt.Valid {
		t := lastLoginAt.Time
		u.LastLoginAt = &t
	}
	u.LastLoginIP = lastLoginIP.String
	u.LastLoginUA = lastLoginUA.String
	return &u, nil
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
