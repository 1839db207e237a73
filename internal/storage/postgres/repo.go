// Package postgres implements a Postgres repository using pgx v5. Batches
// are written with the COPY protocol.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"sblar/internal/ddl"
)

// Config holds Postgres repository configuration.
type Config struct {
	DSN string // connection string for pgxpool
}

// Dialect renders the store tables for Postgres.
var Dialect = ddl.Dialect{
	Name:  "postgres",
	Quote: ddl.QuoteDouble,
	Types: map[ddl.Kind]string{
		ddl.KindKey:  "TEXT",
		ddl.KindText: "TEXT",
		ddl.KindInt:  "BIGINT",
		ddl.KindBool: "BOOLEAN",
		ddl.KindTime: "TIMESTAMPTZ",
	},
}

// Repository writes batches with COPY FROM STDIN.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository opens a pool for cfg.DSN and pings it. The returned
// function closes the pool.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("postgres dsn: %w", err)
	}
	if pc.ConnConfig.RuntimeParams["application_name"] == "" {
		pc.ConnConfig.RuntimeParams["application_name"] = "sblar"
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, nil, fmt.Errorf("postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres ping %s: %w", pc.ConnConfig.Host, err)
	}
	return &Repository{pool: pool}, pool.Close, nil
}

// CopyFrom streams rows into table. table may be schema qualified, e.g.
// "audit.sblar_findings".
func (r *Repository) CopyFrom(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	n, err := r.pool.CopyFrom(ctx, splitFQN(table), columns, pgx.CopyFromRows(rows))
	if err != nil {
		return n, fmt.Errorf("copy into %s: %w", table, withDetail(err))
	}
	return n, nil
}

// withDetail appends the server's DETAIL line and SQLSTATE, which name the
// offending value for constraint and type errors.
func withDetail(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Detail != "" {
		return fmt.Errorf("%w: %s (%s)", err, pgErr.Detail, pgErr.SQLState())
	}
	return err
}

// splitFQN turns "schema.table" into a pgx.Identifier.
func splitFQN(fqn string) pgx.Identifier {
	var id pgx.Identifier
	for _, p := range strings.Split(fqn, ".") {
		if p = strings.TrimSpace(p); p != "" {
			id = append(id, p)
		}
	}
	return id
}

// Exec runs a statement, typically DDL.
func (r *Repository) Exec(ctx context.Context, sql string) error {
	if _, err := r.pool.Exec(ctx, sql); err != nil {
		return fmt.Errorf("postgres exec: %w", withDetail(err))
	}
	return nil
}
