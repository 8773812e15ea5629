package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"sentinel-auth/backend/internal/audit/domain"
	"sentinel-auth/backend/internal/db"
)

type PostgresRepository struct {
	q db.Querier
}

// NewPostgresRepository returns an audit event repository backed by the given querier.
func NewPostgresRepository(q db.Querier) *PostgresRepository {
	return &PostgresRepository{q: q}
}

// Create appends one event to the audit trail.
func (r *PostgresRepository) Create(ctx context.Context, e *domain.Event) error {
	var metadata []byte
	if e.Metadata != nil {
		var err error
		if metadata, err = json.Marshal(e.Metadata); err != nil {
			return err
		}
	}
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO audit_events (id, ts, user_id, event_type, ip, user_agent, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.ID, e.TS, nullIfEmpty(e.UserID), e.EventType,
		nullIfEmpty(e.IP), nullIfEmpty(e.UserAgent), metadata)
	return err
}

// ListRecent returns the newest events across all users.
func (r *PostgresRepository) ListRecent(ctx context.Context, limit int) ([]*domain.Event, error) {
	return r.list(ctx, `
		SELECT id, ts, user_id, event_type, ip, user_agent, metadata
		FROM audit_events ORDER BY ts DESC LIMIT $1`, limit)
}

// ListByUser returns the newest events for one user.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*domain.Event, error) {
	return r.list(ctx, `
		SELECT id, ts, user_id, event_type, ip, user_agent, metadata
		FROM audit_events WHERE user_id = $1 ORDER BY ts DESC LIMIT $2`, userID, limit)
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Event, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*domain.Event
	for rows.Next() {
		var (
			e         domain.Event
			userID    sql.NullString
			ip        sql.NullString
			userAgent sql.NullString
			metadata  []byte
		)
		if err := rows.Scan(&e.ID, &e.TS, &userID, &e.EventType, &ip, &userAgent, &metadata); err != nil {
			return nil, err
		}
		e.UserID = userID.String
		e.IP = ip.String
		e.UserAgent = userAgent.String
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &e.Metadata); err != nil {
				return nil, err
			}
		}
		events = append(events, &e)
	}
	return events, rows.Err()
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
