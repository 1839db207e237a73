// Package file implements the local filesystem submission source.
package file

import (
	"context"
	"fmt"
	"io"
	"os"
)

// Local opens a submission from the local disk.
type Local struct{ path string }

// NewLocal returns a Local source bound to path. It is safe for concurrent
// use; every Open returns an independent reader.
func NewLocal(path string) *Local { return &Local{path: path} }

// Location returns the path.
func (l *Local) Location() string { return l.path }

// Open opens the file for a sequential pass.
//
// A context that is already done short-circuits without touching the
// filesystem. Filesystem errors are wrapped with the path and keep
// errors.Is(err, os.ErrNotExist) working.
func (l *Local) Open(ctx context.Context) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", l.path, err)
	}
	adviseSequential(f)
	return f, nil
}

// Head returns up to n leading bytes of the file.
func (l *Local) Head(n int) ([]byte, error) {
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", l.path, err)
	}
	defer f.Close()

	buf := make([]byte, n)
	k, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, fmt.Errorf("read %s: %w", l.path, err)
	}
	return buf[:k], nil
}

// Checksum returns the xxh3 digest of the file.
func (l *Local) Checksum(ctx context.Context) (string, error) {
	rc, err := l.Open(ctx)
	if err != nil {
		return "", err
	}
	defer rc.Close()
	sum, err := Checksum(rc)
	if err != nil {
		return "", fmt.Errorf("checksum %s: %w", l.path, err)
	}
	return sum, nil
}
