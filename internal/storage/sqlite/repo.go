// Package sqlite implements a SQLite-backed storage.Repository using
// database/sql. Rows are inserted through a prepared statement inside one
// transaction per batch.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"sblar/internal/ddl"
)

// Config holds SQLite repository configuration.
type Config struct {
	// DSN is a file path or URI, e.g. "sblar.db" or
	// "file:sblar.db?_pragma=busy_timeout(5000)".
	DSN string
}

// Dialect renders the store tables for SQLite. Times are stored as text.
var Dialect = ddl.Dialect{
	Name:  "sqlite",
	Quote: ddl.QuoteDouble,
	Types: map[ddl.Kind]string{
		ddl.KindKey:  "TEXT",
		ddl.KindText: "TEXT",
		ddl.KindInt:  "INTEGER",
		ddl.KindBool: "INTEGER",
		ddl.KindTime: "TEXT",
	},
}

// Repository is a SQLite-backed implementation of storage.Repository.
type Repository struct {
	db *sql.DB
}

// Open opens dsn with the modernc driver. SQLite allows one writer, so the
// pool is limited to a single connection; this also keeps ":memory:"
// databases alive across calls.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("sqlite: DSN must not be empty")
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	db.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	return db, nil
}

// New wraps an open database.
func New(db *sql.DB) *Repository { return &Repository{db: db} }

// NewRepository opens cfg.DSN and returns a Repository plus a Close function
// for cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	db, err := Open(ctx, cfg.DSN)
	if err != nil {
		return nil, nil, err
	}
	return New(db), func() { db.Close() }, nil
}

// CopyFrom inserts rows into table with one prepared statement in one
// transaction. A failed row rolls back the whole batch.
func (r *Repository) CopyFrom(ctx context.Context, table string, columns []string, rows [][]any) (n int64, err error) {
	if len(columns) == 0 {
		return 0, fmt.Errorf("sqlite: no columns to insert")
	}
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("sqlite: begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
			n = 0
		}
	}()

	stmt, err := tx.PrepareContext(ctx, insertSQL(table, columns))
	if err != nil {
		return 0, fmt.Errorf("sqlite: prepare insert into %s: %w", table, err)
	}
	defer stmt.Close()

	for i, row := range rows {
		if len(row) != len(columns) {
			return 0, fmt.Errorf("sqlite: row %d has %d values for %d columns", i, len(row), len(columns))
		}
		if _, err := stmt.ExecContext(ctx, bindAll(row)...); err != nil {
			return 0, fmt.Errorf("sqlite: insert into %s row %d: %w", table, i, err)
		}
		n++
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("sqlite: commit: %w", err)
	}
	return n, nil
}

func insertSQL(table string, columns []string) string {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = Dialect.Quote(c)
	}
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", Dialect.QuoteFQN(table), strings.Join(quoted, ", "), marks)
}

// Exec executes a single statement, typically DDL.
func (r *Repository) Exec(ctx context.Context, sql string) error {
	if strings.TrimSpace(sql) == "" {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, sql); err != nil {
		return fmt.Errorf("sqlite: exec: %w", err)
	}
	return nil
}

// bindAll converts values SQLite has no native type for.
func bindAll(row []any) []any {
	out := make([]any, len(row))
	for i, v := range row {
		switch t := v.(type) {
		case time.Time:
			out[i] = t.UTC().Format(time.RFC3339Nano)
		case bool:
			if t {
				out[i] = 1
			} else {
				out[i] = 0
			}
		default:
			out[i] = v
		}
	}
	return out
}
