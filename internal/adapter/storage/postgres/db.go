package postgres

import (
	"context"
	"fmt"

	"smartwallet-gateway/config"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// Pool is the subset of *pgxpool.Pool the repositories use. pgxmock pools
// satisfy it in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// NewPool creates a PostgreSQL connection pool using pgx.
func NewPool(ctx context.Context, cfg config.DatabaseConfig, log zerolog.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	if cfg.ConnMaxLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Verify connectivity
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	log.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("dbname", cfg.DBName).
		Int32("max_conns", cfg.MaxConns).
		Msg("PostgreSQL connection pool established")

	return pool, nil
}

// schema is applied at start-up. Every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS transfer_attempts (
		id                  UUID PRIMARY KEY,
		state               VARCHAR(32) NOT NULL,
		sender_wallet       TEXT NOT NULL,
		receiver_wallet     TEXT NOT NULL,
		amount              VARCHAR(40) NOT NULL,
		incoming_payment_id TEXT NOT NULL DEFAULT '',
		quote_id            TEXT NOT NULL DEFAULT '',
		debit_amount        JSONB,
		continue_uri        TEXT NOT NULL DEFAULT '',
		continue_token_enc  TEXT NOT NULL DEFAULT '',
		interact_url        TEXT NOT NULL DEFAULT '',
		outgoing_payment_id TEXT NOT NULL DEFAULT '',
		failure_reason      TEXT NOT NULL DEFAULT '',
		created_at          TIMESTAMPTZ NOT NULL,
		updated_at          TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_transfer_attempts_state ON transfer_attempts (state)`,
	`CREATE TABLE IF NOT EXISTS audit_logs (
		id            UUID PRIMARY KEY,
		subject       TEXT NOT NULL DEFAULT '',
		action        VARCHAR(40) NOT NULL,
		resource_type VARCHAR(40) NOT NULL,
		resource_id   TEXT NOT NULL DEFAULT '',
		details       TEXT NOT NULL DEFAULT '',
		ip_address    VARCHAR(64) NOT NULL DEFAULT '',
		created_at    TIMESTAMPTZ NOT NULL
	)`,
}

// Migrate creates the tables the repositories need.
func Migrate(ctx context.Context, pool Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("applying schema: %w", err)
		}
	}
	return nil
}
