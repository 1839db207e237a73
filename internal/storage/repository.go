// Package storage persists validation runs and their findings. Backends
// register themselves by kind; callers open one with New and stay
// backend-agnostic.
package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"sblar/internal/ddl"
)

// Backend is the part of a Repository a driver package implements.
type Backend interface {
	// CopyFrom bulk inserts rows aligned to columns into table and returns
	// the number of rows written.
	CopyFrom(ctx context.Context, table string, columns []string, rows [][]any) (int64, error)
	// Exec runs a statement, typically DDL.
	Exec(ctx context.Context, sql string) error
}

// Repository is an open Backend. Close releases its connections.
type Repository interface {
	Backend
	Close()
}

// Config selects and configures a backend.
type Config struct {
	Kind string
	DSN  string
}

// Factory opens a Repository for cfg.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	regMu     sync.RWMutex
	factories = map[string]Factory{}
)

// Register makes a backend available under kind. A later call for the same
// kind replaces the earlier factory.
func Register(kind string, f Factory) {
	regMu.Lock()
	defer regMu.Unlock()
	factories[kind] = f
}

// Opener connects a backend to dsn. The returned function releases it.
type Opener func(ctx context.Context, dsn string) (Backend, func(), error)

// RegisterBackend registers open under kind along with the dialect that
// creates the store tables for it.
func RegisterBackend(kind string, d ddl.Dialect, open Opener) {
	Register(kind, func(ctx context.Context, cfg Config) (Repository, error) {
		b, release, err := open(ctx, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open %s store: %w", kind, err)
		}
		return &opened{Backend: b, release: release}, nil
	})
	RegisterDDL(kind, d)
}

// opened calls release at most once.
type opened struct {
	Backend
	release func()
	once    sync.Once
}

func (o *opened) Close() {
	o.once.Do(func() {
		if o.release != nil {
			o.release()
		}
	})
}

// New opens the backend named by cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	regMu.RLock()
	f, ok := factories[cfg.Kind]
	regMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported storage.kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}

// ListKinds returns the registered kinds, sorted. The slice is a copy.
func ListKinds() []string {
	regMu.RLock()
	defer regMu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
