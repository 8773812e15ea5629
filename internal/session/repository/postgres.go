package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"sentinel-auth/backend/internal/db"
	"sentinel-auth/backend/internal/session/domain"
)

type PostgresRepository struct {
	q db.Querier
}

// NewPostgresRepository returns a session repository backed by the given querier.
func NewPostgresRepository(q db.Querier) *PostgresRepository {
	return &PostgresRepository{q: q}
}

const sessionColumns = `id, user_id, created_at, last_seen_at, ip, user_agent, device_fingerprint, active`

// Create persists the session. The session must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, s *domain.Session) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, created_at, last_seen_at, ip, user_agent, device_fingerprint, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		s.ID, s.UserID, s.CreatedAt, s.LastSeenAt,
		nullIfEmpty(s.IP), nullIfEmpty(s.UserAgent), nullIfEmpty(s.DeviceFingerprint), s.Active)
	return err
}

// GetByID returns the session for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	s, err := scanSession(r.q.QueryRowContext(ctx, `
		SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

// ListByUser returns the user's sessions, most recently seen first.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string, activeOnly bool) ([]*domain.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE user_id = $1`
	if activeOnly {
		query += ` AND active`
	}
	query += ` ORDER BY last_seen_at DESC`

	rows, err := r.q.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*domain.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// Touch bumps last_seen_at for an active session. No-op for missing or inactive sessions.
func (r *PostgresRepository) Touch(ctx context.Context, id string, at time.Time) error {
	_, err := r.q.ExecContext(ctx, `
		UPDATE sessions SET last_seen_at = $2 WHERE id = $1 AND active`, id, at)
	return err
}

// Deactivate marks the session inactive. Reports whether a live session was found.
func (r *PostgresRepository) Deactivate(ctx context.Context, id string) (bool, error) {
	res, err := r.q.ExecContext(ctx, `
		UPDATE sessions SET active = FALSE WHERE id = $1 AND active`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// DeactivateLatestByUser deactivates the user's most recently seen active session.
func (r *PostgresRepository) DeactivateLatestByUser(ctx context.Context, userID string) (bool, error) {
	res, err := r.q.ExecContext(ctx, `
		UPDATE sessions SET active = FALSE
		WHERE id = (
			SELECT id FROM sessions
			WHERE user_id = $1 AND active
			ORDER BY last_seen_at DESC
			LIMIT 1
		)`, userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// DeactivateAllByUser deactivates every active session for the user.
func (r *PostgresRepository) DeactivateAllByUser(ctx context.Context, userID string) (int64, error) {
	res, err := r.q.ExecContext(ctx, `
		UPDATE sessions SET active = FALSE WHERE user_id = $1 AND active`, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// PurgeInactive deletes inactive sessions last seen before the cutoff.
func (r *PostgresRepository) PurgeInactive(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx, `
		DELETE FROM sessions WHERE NOT active AND last_seen_at < $1`, before)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanSession(s interface{ Scan(...any) error }) (*domain.Session, error) {
	var (
		sess        domain.Session
		ip          sql.NullString
		userAgent   sql.NullString
		fingerprint sql.NullString
	)
	if err := s.Scan(&sess.ID, &sess.UserID, &sess.CreatedAt, &sess.LastSeenAt,
		&ip, &userAgent, &fingerprint, &sess.Active); err != nil {
		return nil, err
	}
	sess.IP = ip.String
	sess.UserAgent = userAgent.String
	sess.DeviceFingerprint = fingerprint.String
	return &sess, nil
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
