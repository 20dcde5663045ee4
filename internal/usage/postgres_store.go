package usage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Schema creates the usage table. It is safe to run on every start.
const Schema = `
CREATE TABLE IF NOT EXISTS usage_logs (
	id          UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	client_id   TEXT NOT NULL,
	request_id  TEXT NOT NULL,
	action      TEXT NOT NULL,
	provider    TEXT NOT NULL,
	model       TEXT NOT NULL,
	status      INT NOT NULL,
	success     BOOLEAN NOT NULL,
	error       TEXT NOT NULL DEFAULT '',
	latency_ms  BIGINT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS usage_logs_client_created_idx ON usage_logs (client_id, created_at);
`

type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type PostgresStore struct {
	db DB
}

func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to create usage schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) LogUsage(ctx context.Context, rec *Record) error {
	query := `
		INSERT INTO usage_logs (client_id, request_id, action, provider, model, status, success, error, latency_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`
	err := s.db.QueryRow(ctx, query,
		rec.ClientID, rec.RequestID, rec.Action, rec.Provider, rec.Model,
		rec.Status, rec.Success, rec.Error, rec.LatencyMs,
	).Scan(&rec.ID, &rec.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to log usage: %w", err)
	}

	return nil
}

func (s *PostgresStore) GetUsageByClient(ctx context.Context, clientID string, from, to time.Time) ([]*Record, error) {
	query := `
		SELECT id, client_id, request_id, action, provider, model, status, success, error, latency_ms, created_at
		FROM usage_logs
		WHERE client_id = $1 AND created_at BETWEEN $2 AND $3
		ORDER BY created_at DESC
	`
	rows, err := s.db.Query(ctx, query, clientID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query usage logs: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		var r Record
		err := rows.Scan(
			&r.ID, &r.ClientID, &r.RequestID, &r.Action, &r.Provider, &r.Model,
			&r.Status, &r.Success, &r.Error, &r.LatencyMs, &r.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan usage log: %w", err)
		}
		records = append(records, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating usage logs: %w", err)
	}

	return records, nil
}

func (s *PostgresStore) CountByClient(ctx context.Context, clientID string, from, to time.Time) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM usage_logs
		WHERE client_id = $1 AND created_at BETWEEN $2 AND $3
	`
	var n int64
	if err := s.db.QueryRow(ctx, query, clientID, from, to).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count usage: %w", err)
	}
	return n, nil
}
