// Package mysql implements a MySQL repository using go-sql-driver/mysql.
// Batches are written as multi-row INSERT statements.
package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"

	"sblar/internal/ddl"
)

// maxPlaceholders is the prepared statement parameter limit of the server.
const maxPlaceholders = 65535

// Config holds MySQL repository configuration.
type Config struct {
	DSN string // e.g. "user:pass@tcp(localhost:3306)/sblar"
}

// Dialect renders the store tables for MySQL.
var Dialect = ddl.Dialect{
	Name:  "mysql",
	Quote: ddl.QuoteBacktick,
	Types: map[ddl.Kind]string{
		ddl.KindKey:  "VARCHAR(255)",
		ddl.KindText: "TEXT",
		ddl.KindInt:  "BIGINT",
		ddl.KindBool: "BOOLEAN",
		ddl.KindTime: "DATETIME(6)",
	},
}

// Repository writes batches as multi-row INSERT statements.
type Repository struct {
	db *sql.DB
}

// NewRepository parses cfg.DSN, pings the server and returns a function
// that closes the pool. Times are scanned as time.Time.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	mc, err := mysql.ParseDSN(cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("mysql dsn: %w", err)
	}
	mc.ParseTime = true
	connector, err := mysql.NewConnector(mc)
	if err != nil {
		return nil, nil, fmt.Errorf("mysql connector: %w", err)
	}
	db := sql.OpenDB(connector)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("mysql ping %s: %w", mc.Addr, err)
	}
	return &Repository{db: db}, func() { _ = db.Close() }, nil
}

// CopyFrom inserts rows into table in one transaction. Each statement binds
// at most maxPlaceholders values.
func (r *Repository) CopyFrom(ctx context.Context, table string, columns []string, rows [][]any) (total int64, err error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if len(columns) == 0 {
		return 0, errors.New("mysql: no columns to insert")
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("mysql begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
			total = 0
		}
	}()

	per := rowsPerStatement(len(columns))
	for start := 0; start < len(rows); start += per {
		chunk := rows[start:min(start+per, len(rows))]
		args := make([]any, 0, len(chunk)*len(columns))
		for i, row := range chunk {
			if len(row) != len(columns) {
				return 0, fmt.Errorf("mysql: row %d has %d values for %d columns", start+i, len(row), len(columns))
			}
			args = append(args, row...)
		}
		res, err := tx.ExecContext(ctx, buildInsert(table, columns, len(chunk)), args...)
		if err != nil {
			var me *mysql.MySQLError
			if errors.As(err, &me) {
				return 0, fmt.Errorf("mysql insert into %s at row %d: error %d: %s", table, start, me.Number, me.Message)
			}
			return 0, fmt.Errorf("mysql insert into %s at row %d: %w", table, start, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		total += n
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("mysql commit: %w", err)
	}
	return total, nil
}

// Exec runs a statement, typically DDL.
func (r *Repository) Exec(ctx context.Context, sqlText string) error {
	if _, err := r.db.ExecContext(ctx, sqlText); err != nil {
		return fmt.Errorf("mysql exec: %w", err)
	}
	return nil
}

func rowsPerStatement(cols int) int {
	if cols <= 0 {
		return 1
	}
	return max(1, maxPlaceholders/cols)
}

// buildInsert renders INSERT INTO `t` (`a`, `b`) VALUES (?, ?), (?, ?).
func buildInsert(table string, columns []string, n int) string {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = Dialect.Quote(c)
	}
	tuple := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ") + ")"

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES ", Dialect.QuoteFQN(table), strings.Join(quoted, ", "))
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(tuple)
	}
	return b.String()
}
