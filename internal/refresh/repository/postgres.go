package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"sentinel-auth/backend/internal/db"
	"sentinel-auth/backend/internal/refresh/domain"
)

type PostgresRepository struct {
	q db.Querier
}

// NewPostgresRepository returns a refresh token repository backed by the given querier.
func NewPostgresRepository(q db.Querier) *PostgresRepository {
	return &PostgresRepository{q: q}
}

// Create persists the token record.
func (r *PostgresRepository) Create(ctx context.Context, t *domain.Token) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO refresh_tokens (jti, user_id, issued_at, expires_at, ip, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		t.JTI, t.UserID, t.IssuedAt, t.ExpiresAt, nullIfEmpty(t.IP), nullIfEmpty(t.UserAgent))
	return err
}

// GetByJTI returns the token record for jti, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByJTI(ctx context.Context, jti string) (*domain.Token, error) {
	var (
		t         domain.Token
		revokedAt sql.NullTime
		ip        sql.NullString
		userAgent sql.NullString
	)
	err := r.q.QueryRowContext(ctx, `
		SELECT jti, user_id, issued_at, expires_at, revoked_at, ip, user_agent
		FROM refresh_tokens WHERE jti = $1`, jti).
		Scan(&t.JTI, &t.UserID, &t.IssuedAt, &t.ExpiresAt, &revokedAt, &ip, &userAgent)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if revokedAt.Valid {
		at := revokedAt.Time
		t.RevokedAt = &at
	}
	t.IP = ip.String
	t.UserAgent = userAgent.String
	return &t, nil
}

// Revoke marks the token revoked unless it already is. The WHERE guard makes
// the update atomic, so concurrent redemptions of one jti resolve to a single
// winner by rows affected.
func (r *PostgresRepository) Revoke(ctx context.Context, jti string, at time.Time) (bool, error) {
	res, err := r.q.ExecContext(ctx, `
		UPDATE refresh_tokens SET revoked_at = $2
		WHERE jti = $1 AND revoked_at IS NULL`, jti, at)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// RevokeAllForUser revokes every live token for the user and returns the count.
func (r *PostgresRepository) RevokeAllForUser(ctx context.Context, userID string, at time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx, `
		UPDATE refresh_tokens SET revoked_at = $2
		WHERE user_id = $1 AND revoked_at IS NULL`, userID, at)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// PurgeExpired deletes rows whose expiry is older than before.
func (r *PostgresRepository) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE expires_at < $1`, before)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
