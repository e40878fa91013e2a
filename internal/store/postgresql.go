package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS runs (
	id            TEXT PRIMARY KEY,
	model         TEXT NOT NULL,
	provider      TEXT NOT NULL,
	fingerprint   TEXT NOT NULL,
	output        TEXT NOT NULL DEFAULT '',
	error_type    TEXT NOT NULL DEFAULT '',
	error_message TEXT NOT NULL DEFAULT '',
	status_code   INTEGER NOT NULL DEFAULT 0,
	latency_ms    BIGINT NOT NULL DEFAULT 0,
	created_at    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_runs_fingerprint ON runs(fingerprint);
`

// postgresStore implements Store on a PostgreSQL pool.
type postgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgreSQL connects to PostgreSQL and ensures the runs schema exists.
func NewPostgreSQL(ctx context.Context, url string) (Store, error) {
	if url == "" {
		return nil, fmt.Errorf("postgres url is required")
	}
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to create PostgreSQL pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create runs schema: %w", err)
	}
	return &postgresStore{pool: pool}, nil
}

func (s *postgresStore) Save(ctx context.Context, run *Run) error {
	if run == nil || run.ID == "" {
		return fmt.Errorf("run id is required")
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, model, provider, fingerprint, output, error_type, error_message, status_code, latency_ms, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		run.ID, run.Model, run.Provider, run.Fingerprint, run.Output,
		run.ErrorType, run.ErrorMessage, run.StatusCode, run.LatencyMS, run.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

func (s *postgresStore) Get(ctx context.Context, id string) (*Run, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, model, provider, fingerprint, output, error_type, error_message, status_code, latency_ms, created_at
		 FROM runs WHERE id = $1`, id)

	var r Run
	err := row.Scan(&r.ID, &r.Model, &r.Provider, &r.Fingerprint, &r.Output,
		&r.ErrorType, &r.ErrorMessage, &r.StatusCode, &r.LatencyMS, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}
	r.CreatedAt = r.CreatedAt.UTC()
	return &r, nil
}

func (s *postgresStore) List(ctx context.Context, limit int) ([]*Run, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, model, provider, fingerprint, output, error_type, error_message, status_code, latency_ms, created_at
		 FROM runs ORDER BY created_at DESC, id DESC LIMIT $1`, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Model, &r.Provider, &r.Fingerprint, &r.Output,
			&r.ErrorType, &r.ErrorMessage, &r.StatusCode, &r.LatencyMS, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.CreatedAt = r.CreatedAt.UTC()
		runs = append(runs, &r)
	}
	return runs, rows.Err()
}

func (s *postgresStore) Close() error {
	s.pool.Close()
	return nil
}
