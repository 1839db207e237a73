package storage

import (
	"context"
	"fmt"
	"sync"

	"sblar/internal/ddl"
)

var (
	ddlMu       sync.RWMutex
	ddlDialects = map[string]ddl.Dialect{}
)

// RegisterDDL records the dialect used to create the store tables for kind.
// Backends call it from init.
func RegisterDDL(kind string, d ddl.Dialect) {
	ddlMu.Lock()
	defer ddlMu.Unlock()
	ddlDialects[kind] = d
}

// Dialect returns the dialect registered for kind.
func Dialect(kind string) (ddl.Dialect, bool) {
	ddlMu.RLock()
	defer ddlMu.RUnlock()
	d, ok := ddlDialects[kind]
	return d, ok
}

// EnsureTables creates the runs and findings tables when they are missing.
func EnsureTables(ctx context.Context, kind string, repo Repository) error {
	d, ok := Dialect(kind)
	if !ok {
		return fmt.Errorf("no DDL dialect registered for storage.kind=%q", kind)
	}
	stmts, err := d.Statements()
	if err != nil {
		return err
	}
	for _, s := range stmts {
		if err := repo.Exec(ctx, s); err != nil {
			return fmt.Errorf("apply DDL: %w", err)
		}
	}
	return nil
}
