package database

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

type execCloser interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Close()
}

// PostgresConfig controls the connection pool for the run metadata store.
type PostgresConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MaxConnLifetime time.Duration
}

// PostgresStore writes run metadata rows into Postgres.
//
// Expected schema:
//
//	CREATE TABLE harvest_runs (
//		id UUID PRIMARY KEY,
//		start_url TEXT NOT NULL,
//		actor_run_id TEXT NOT NULL,
//		dataset_id TEXT NOT NULL,
//		status TEXT NOT NULL,
//		pages INT NOT NULL,
//		chunks INT NOT NULL,
//		output_path TEXT NOT NULL,
//		started_at TIMESTAMPTZ NOT NULL,
//		finished_at TIMESTAMPTZ NOT NULL
//	);
type PostgresStore struct {
	pool  execCloser
	table string
}

// NewPostgresStore builds a pgx pool from the config and verifies the
// connection with a ping.
func NewPostgresStore(ctx context.Context, cfg PostgresConfig) (*PostgresStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database: dsn is required")
	}
	table := cfg.Table
	if table == "" {
		table = "harvest_runs"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("database: invalid table name %q", table)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PostgresStore{pool: pool, table: table}, nil
}

// NewPostgresStoreWithPool constructs a store from an existing pool,
// primarily for testing with pgxmock.
func NewPostgresStoreWithPool(pool execCloser, table string) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("database: pool is required")
	}
	if table == "" {
		table = "harvest_runs"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("database: invalid table name %q", table)
	}
	return &PostgresStore{pool: pool, table: table}, nil
}

// SaveRun inserts one metadata row.
func (s *PostgresStore) SaveRun(ctx context.Context, meta RunMetadata) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("database: store is not configured")
	}
	if meta.ID == "" {
		return fmt.Errorf("database: run id is required")
	}

	query := fmt.Sprintf(`
INSERT INTO %s (
	id,
	start_url,
	actor_run_id,
	dataset_id,
	status,
	pages,
	chunks,
	output_path,
	started_at,
	finished_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10
)`, s.table)

	args := []any{
		meta.ID,
		meta.StartURL,
		meta.ActorRunID,
		meta.DatasetID,
		meta.Status,
		meta.Pages,
		meta.Chunks,
		meta.OutputPath,
		meta.StartedAt,
		meta.FinishedAt,
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert harvest run: %w", err)
	}
	return nil
}

// Close releases the underlying pool resources.
func (s *PostgresStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}
