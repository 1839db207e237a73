package mysql

import (
	"context"

	"sblar/internal/storage"
)

// newRepository is a seam for tests.
var newRepository = NewRepository

func init() {
	storage.RegisterBackend("mysql", Dialect, open)
}

func open(ctx context.Context, dsn string) (storage.Backend, func(), error) {
	r, closeDB, err := newRepository(ctx, Config{DSN: dsn})
	if err != nil {
		return nil, nil, err
	}
	return r, closeDB, nil
}
