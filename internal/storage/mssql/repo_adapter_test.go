package mssql

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sblar/internal/ddl"
	"sblar/internal/storage"
)

func TestRegisteredBackendUsesHook(t *testing.T) {
	orig := newRepository
	t.Cleanup(func() { newRepository = orig })

	want := &Repository{}
	closed := 0
	newRepository = func(_ context.Context, cfg Config) (*Repository, func(), error) {
		assert.Equal(t, "sqlserver://sblar:secret@db:1433?database=sblar", cfg.DSN)
		return want, func() { closed++ }, nil
	}

	repo, err := storage.New(context.Background(), storage.Config{
		Kind: "mssql",
		DSN:  "sqlserver://sblar:secret@db:1433?database=sblar",
	})
	require.NoError(t, err)
	repo.Close()
	assert.Equal(t, 1, closed)
}

func TestOpenErrorNamesBackend(t *testing.T) {
	orig := newRepository
	t.Cleanup(func() { newRepository = orig })

	login := errors.New("login failed for user 'sblar'")
	newRepository = func(context.Context, Config) (*Repository, func(), error) { return nil, nil, login }

	_, err := storage.New(context.Background(), storage.Config{Kind: "mssql", DSN: "sqlserver://db"})
	require.ErrorIs(t, err, login)
	assert.ErrorContains(t, err, "open mssql store")
}

func TestNewRepositoryRejectsBadDSN(t *testing.T) {
	_, _, err := NewRepository(context.Background(), Config{DSN: "sqlserver://%zz"})
	assert.ErrorContains(t, err, "mssql dsn")
}

func TestDialectGuardsCreate(t *testing.T) {
	sql, err := Dialect.BuildCreateTableSQL(ddl.Findings)
	require.NoError(t, err)
	assert.Contains(t, sql, "IF OBJECT_ID(N'sblar_findings', N'U') IS NULL CREATE TABLE [sblar_findings]")
	assert.Contains(t, sql, "[uid] NVARCHAR(MAX),")
	assert.Contains(t, sql, "[record_no] BIGINT NOT NULL")
}
