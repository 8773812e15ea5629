package repository

import (
	"context"
	"database/sql"
	"time"

	"sentinel-auth/backend/internal/attempt/domain"
	"sentinel-auth/backend/internal/db"
)

type PostgresRepository struct {
	q db.Querier
}

// NewPostgresRepository returns a login attempt repository backed by the given querier.
func NewPostgresRepository(q db.Querier) *PostgresRepository {
	return &PostgresRepository{q: q}
}

// Create appends one attempt to the ledger.
func (r *PostgresRepository) Create(ctx context.Context, a *domain.LoginAttempt) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO login_attempts (id, ts, email, ip, user_agent, success)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		a.ID, a.TS, a.Email, nullIfEmpty(a.IP), nullIfEmpty(a.UserAgent), a.Success)
	return err
}

// ListByEmail returns recent attempts for the email, newest first.
func (r *PostgresRepository) ListByEmail(ctx context.Context, email string, limit int) ([]*domain.LoginAttempt, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, ts, email, ip, user_agent, success
		FROM login_attempts WHERE email = $1
		ORDER BY ts DESC LIMIT $2`, email, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []*domain.LoginAttempt
	for rows.Next() {
		var (
			a         domain.LoginAttempt
			ip        sql.NullString
			userAgent sql.NullString
		)
		if err := rows.Scan(&a.ID, &a.TS, &a.Email, &ip, &userAgent, &a.Success); err != nil {
			return nil, err
		}
		a.IP = ip.String
		a.UserAgent = userAgent.String
		attempts = append(attempts, &a)
	}
	return attempts, rows.Err()
}

// CountFailuresSince counts failed attempts for the email at or after since.
func (r *PostgresRepository) CountFailuresSince(ctx context.Context, email string, since time.Time) (int64, error) {
	var n int64
	err := r.q.QueryRowContext(ctx, `
		SELECT count(*) FROM login_attempts
		WHERE email = $1 AND NOT success AND ts >= $2`, email, since).Scan(&n)
	return n, err
}

// PurgeBefore deletes ledger rows older than the cutoff.
func (r *PostgresRepository) PurgeBefore(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx, `DELETE FROM login_attempts WHERE ts < $1`, before)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
