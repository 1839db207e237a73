package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sblar/internal/ddl"
)

func openMemory(t *testing.T) *Repository {
	t.Helper()
	db, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db)
}

func TestCopyFromAndExec(t *testing.T) {
	ctx := context.Background()
	r := openMemory(t)

	stmts, err := Dialect.Statements()
	require.NoError(t, err)
	for _, s := range stmts {
		require.NoError(t, r.Exec(ctx, s))
	}
	// Tables are created only when missing.
	for _, s := range stmts {
		require.NoError(t, r.Exec(ctx, s))
	}

	cols := ddl.Findings.ColumnNames()
	rows := [][]any{
		{"run-1", "syntactical", "E0001", "error", "single-field", int64(1), "UID1", "uid", "UID1"},
		{"run-1", "syntactical", "E0002", "error", "single-field", int64(2), nil, "uid", ""},
	}
	n, err := r.CopyFrom(ctx, ddl.FindingsTable, cols, rows)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	var count int
	require.NoError(t, r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sblar_findings WHERE uid IS NULL`).Scan(&count))
	assert.Equal(t, 1, count)

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	run := []any{"run-1", "sblar", "in.csv", nil, "VALIDATION_WITH_ERRORS", "syntactical_failures",
		int64(2), int64(2), int64(0), false, nil, now, now}
	_, err = r.CopyFrom(ctx, ddl.RunsTable, ddl.Runs.ColumnNames(), [][]any{run})
	require.NoError(t, err)

	var started string
	var truncated int
	require.NoError(t, r.db.QueryRowContext(ctx, `SELECT started_at, truncated FROM sblar_runs`).Scan(&started, &truncated))
	assert.Equal(t, "2024-05-01T12:00:00Z", started)
	assert.Equal(t, 0, truncated)
}

func TestCopyFromErrors(t *testing.T) {
	ctx := context.Background()
	r := openMemory(t)

	_, err := r.CopyFrom(ctx, "t", nil, [][]any{{1}})
	assert.Error(t, err)

	n, err := r.CopyFrom(ctx, "t", []string{"a"}, nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, r.Exec(ctx, `CREATE TABLE t (a INTEGER, b INTEGER)`))
	_, err = r.CopyFrom(ctx, "t", []string{"a", "b"}, [][]any{{1, 2}, {3}})
	assert.ErrorContains(t, err, "row 1 has 1 values for 2 columns")

	var count int
	require.NoError(t, r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM t`).Scan(&count))
	assert.Zero(t, count, "failed batch must roll back")

	assert.NoError(t, r.Exec(ctx, "  "))
	assert.Error(t, r.Exec(ctx, "NOT SQL"))
}

func TestOpenEmptyDSN(t *testing.T) {
	t.Parallel()
	_, err := Open(context.Background(), " ")
	assert.Error(t, err)
}
