package mssql

import (
	"context"

	"sblar/internal/storage"
)

var newRepository = NewRepository

func init() {
	storage.RegisterBackend("mssql", Dialect, open)
}

func open(ctx context.Context, dsn string) (storage.Backend, func(), error) {
	r, closeDB, err := newRepository(ctx, Config{DSN: dsn})
	if err != nil {
		return nil, nil, err
	}
	return r, closeDB, nil
}
