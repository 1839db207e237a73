package sqlite

import (
	"context"

	"sblar/internal/storage"
)

// newRepository is replaced in tests.
var newRepository = NewRepository

// Registered as "sqlite"; the DSN is handed to Open unchanged.
func init() {
	storage.RegisterBackend("sqlite", Dialect, func(ctx context.Context, dsn string) (storage.Backend, func(), error) {
		r, closeDB, err := newRepository(ctx, Config{DSN: dsn})
		if err != nil {
			return nil, nil, err
		}
		return r, closeDB, nil
	})
}
