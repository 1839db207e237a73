package engine

import (
	"context"

	"sblar/internal/frame"
)

// ChunkSource produces the chunks of a submission in order.
//
// Chunks sends every chunk to out and returns; it must not close out. The
// engine calls Chunks once per chunked phase, so every call starts from the
// first record. Implementations stop early when ctx is done.
type ChunkSource interface {
	Chunks(ctx context.Context, out chan<- *frame.Chunk) error
}

// StaticSource serves chunks that are already in memory.
type StaticSource []*frame.Chunk

// Chunks implements ChunkSource.
func (s StaticSource) Chunks(ctx context.Context, out chan<- *frame.Chunk) error {
	for _, c := range s {
		select {
		case out <- c:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
