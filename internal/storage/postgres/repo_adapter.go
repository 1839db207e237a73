package postgres

import (
	"context"

	"sblar/internal/storage"
)

// newRepository is replaced in tests so no server is needed.
var newRepository = NewRepository

func init() {
	storage.RegisterBackend("postgres", Dialect, func(ctx context.Context, dsn string) (storage.Backend, func(), error) {
		r, closePool, err := newRepository(ctx, Config{DSN: dsn})
		if err != nil {
			return nil, nil, err
		}
		return r, closePool, nil
	})
}
