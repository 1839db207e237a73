// Package mssql implements a Microsoft SQL Server repository using the
// go-mssqldb bulk copy API.
package mssql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	mssql "github.com/microsoft/go-mssqldb"
	"github.com/microsoft/go-mssqldb/msdsn"

	"sblar/internal/ddl"
)

// Config holds MSSQL repository configuration.
type Config struct {
	DSN string
}

// Dialect renders the store tables for SQL Server, which has no
// CREATE TABLE IF NOT EXISTS.
var Dialect = ddl.Dialect{
	Name:  "mssql",
	Quote: ddl.QuoteBracket,
	Types: map[ddl.Kind]string{
		ddl.KindKey:  "NVARCHAR(255)",
		ddl.KindText: "NVARCHAR(MAX)",
		ddl.KindInt:  "BIGINT",
		ddl.KindBool: "BIT",
		ddl.KindTime: "DATETIME2",
	},
	CreateIfMissing: func(table, name, body string) string {
		return fmt.Sprintf("IF OBJECT_ID(N'%s', N'U') IS NULL CREATE TABLE %s %s", name, table, body)
	},
}

// Repository writes through the bulk copy protocol.
type Repository struct {
	db *sql.DB
}

// NewRepository parses cfg.DSN, pings the server and returns a function
// that closes the pool.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	dsn, err := msdsn.Parse(cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("mssql dsn: %w", err)
	}
	db := sql.OpenDB(mssql.NewConnectorConfig(dsn))
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("mssql ping %s: %w", dsn.Host, describe(err))
	}
	return &Repository{db: db}, func() { _ = db.Close() }, nil
}

// CopyFrom bulk copies rows into table. Either every row lands or none do.
func (r *Repository) CopyFrom(ctx context.Context, table string, columns []string, rows [][]any) (n int64, err error) {
	if len(rows) == 0 {
		return 0, nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("mssql begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
			n = 0
		}
	}()

	// KeepNulls stores nil as NULL instead of the column default.
	bulk := mssql.CopyIn(Dialect.QuoteFQN(table), mssql.BulkOptions{KeepNulls: true}, columns...)
	stmt, err := tx.PrepareContext(ctx, bulk)
	if err != nil {
		return 0, fmt.Errorf("mssql bulk %s: %w", table, describe(err))
	}
	defer stmt.Close()

	for i, row := range rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return 0, fmt.Errorf("mssql bulk %s row %d: %w", table, i, describe(err))
		}
	}
	// An Exec without arguments flushes the buffered rows.
	res, err := stmt.ExecContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("mssql bulk %s: %w", table, describe(err))
	}
	if n, err = res.RowsAffected(); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("mssql commit: %w", err)
	}
	return n, nil
}

// Exec runs a statement, typically DDL.
func (r *Repository) Exec(ctx context.Context, sqlText string) error {
	if _, err := r.db.ExecContext(ctx, sqlText); err != nil {
		return fmt.Errorf("mssql exec: %w", describe(err))
	}
	return nil
}

// describe appends the server error number when err came from SQL Server.
func describe(err error) error {
	var se mssql.Error
	if errors.As(err, &se) {
		return fmt.Errorf("%w (error %d)", err, se.SQLErrorNumber())
	}
	return err
}
