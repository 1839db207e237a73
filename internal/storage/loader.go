package storage

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// CopyFn inserts rows aligned to columns and reports how many were written.
type CopyFn func(ctx context.Context, columns []string, rows [][]any) (int64, error)

// LoadBatches drains in, calling copyFn for every batchSize rows and once
// more for the remainder when in is closed. It returns the rows written and
// the first error; ctx cancellation returns ctx.Err().
func LoadBatches(
	ctx context.Context,
	log *zap.Logger,
	columns []string,
	in <-chan []any,
	batchSize int,
	copyFn CopyFn,
) (int64, error) {
	if batchSize <= 0 {
		return 0, errors.New("load: batch size must be positive")
	}
	if copyFn == nil {
		return 0, errors.New("load: no copy function")
	}
	if log == nil {
		log = zap.NewNop()
	}

	b := &batcher{
		columns: columns,
		size:    batchSize,
		copy:    copyFn,
		log:     log,
		started: time.Now(),
	}
	for {
		select {
		case <-ctx.Done():
			return b.written, ctx.Err()
		case row, ok := <-in:
			if !ok {
				return b.written, b.flush(ctx)
			}
			if err := b.add(ctx, row); err != nil {
				return b.written, err
			}
		}
	}
}

// batcher accumulates rows and hands full batches to copy. Each flushed
// batch gets a fresh slice, so copy may keep the rows it is given.
type batcher struct {
	columns []string
	size    int
	copy    CopyFn
	log     *zap.Logger

	pending [][]any
	written int64
	batches int
	started time.Time
}

func (b *batcher) add(ctx context.Context, row []any) error {
	if b.pending == nil {
		b.pending = make([][]any, 0, b.size)
	}
	b.pending = append(b.pending, row)
	if len(b.pending) < b.size {
		return nil
	}
	return b.flush(ctx)
}

func (b *batcher) flush(ctx context.Context) error {
	if len(b.pending) == 0 {
		return nil
	}
	rows := b.pending
	b.pending = nil

	t0 := time.Now()
	n, err := b.copy(ctx, b.columns, rows)
	b.written += n
	if err != nil {
		b.log.Error("batch insert failed",
			zap.Int("batch", b.batches+1),
			zap.Int("rows", len(rows)),
			zap.Int64("written", b.written),
			zap.Error(err),
		)
		return err
	}
	b.batches++
	b.log.Debug("batch inserted",
		zap.Int("batch", b.batches),
		zap.Int64("rows", n),
		zap.Int64("written", b.written),
		zap.Duration("took", time.Since(t0)),
		zap.Duration("elapsed", time.Since(b.started)),
	)
	return nil
}
