// Package csv reads a submission CSV into fixed-size column chunks. Every
// field is kept as raw text; typing is left to the checks.
package csv

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"sblar/internal/config"
	"sblar/internal/datasource"
	"sblar/internal/frame"
)

// DefaultChunkRows is used when Options.ChunkRows is not positive.
const DefaultChunkRows = 50_000

// Options tunes the reader.
type Options struct {
	// Comma is the field delimiter; 0 means ','.
	Comma      rune
	LazyQuotes bool
	// TrimSpace trims surrounding spaces from values. Header names are
	// always trimmed.
	TrimSpace bool
	ChunkRows int
	// Required columns must appear in the header. Nil means just "uid".
	Required []string
}

// OptionsFrom reads parser.options: comma, lazy_quotes, trim_space.
func OptionsFrom(o config.Options, chunkRows int) Options {
	return Options{
		Comma:      o.Rune("comma", ','),
		LazyQuotes: o.Bool("lazy_quotes", false),
		TrimSpace:  o.Bool("trim_space", false),
		ChunkRows:  chunkRows,
	}
}

// Reader turns a Source into chunks. Each call to Chunks reopens the
// source, so a Reader serves every phase of a run.
type Reader struct {
	src datasource.Source
	opt Options
	log *zap.Logger
}

// New returns a Reader over src.
func New(src datasource.Source, opt Options, log *zap.Logger) *Reader {
	if opt.Comma == 0 {
		opt.Comma = ','
	}
	if opt.ChunkRows <= 0 {
		opt.ChunkRows = DefaultChunkRows
	}
	if opt.Required == nil {
		opt.Required = []string{"uid"}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Reader{src: src, opt: opt, log: log}
}

// Chunks reads the whole submission and sends it to out in order.
//
// Ragged rows, bad quoting and an empty file are frame.ErrMalformed; a
// header without a required column is a *frame.MissingColumnError.
func (r *Reader) Chunks(ctx context.Context, out chan<- *frame.Chunk) error {
	rc, err := r.src.Open(ctx)
	if err != nil {
		return err
	}
	defer rc.Close()

	cr := csv.NewReader(withoutBOM(rc))
	cr.Comma = r.opt.Comma
	cr.LazyQuotes = r.opt.LazyQuotes
	cr.ReuseRecord = true
	// width is pinned by the header
	cr.FieldsPerRecord = 0

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return frame.Malformedf("%s: no header row", r.src.Location())
	}
	if err != nil {
		return r.malformed(err)
	}
	names := make([]string, len(header))
	for i, h := range header {
		names[i] = strings.TrimSpace(h)
	}

	probe, err := frame.New(0, names)
	if err != nil {
		return frame.Malformedf("%s: %v", r.src.Location(), err)
	}
	if missing := probe.Missing(r.opt.Required...); len(missing) > 0 {
		return &frame.MissingColumnError{Columns: missing}
	}

	offset, chunks := 0, 0
	c := probe
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return r.malformed(err)
		}
		if r.opt.TrimSpace {
			for i, v := range rec {
				rec[i] = strings.TrimSpace(v)
			}
		}
		if err := c.Append(rec); err != nil {
			return frame.Malformedf("%s: %v", r.src.Location(), err)
		}

		if c.Len() == r.opt.ChunkRows {
			if err := send(ctx, out, c); err != nil {
				return err
			}
			offset += c.Len()
			chunks++
			r.log.Debug("csv chunk sent",
				zap.String("source", r.src.Location()),
				zap.Int("chunk", chunks),
				zap.Int("records", offset),
			)
			if c, err = frame.New(offset, names); err != nil {
				return err
			}
		}
	}
	if c.Len() > 0 {
		if err := send(ctx, out, c); err != nil {
			return err
		}
		offset += c.Len()
	}
	r.log.Debug("csv read complete",
		zap.String("source", r.src.Location()),
		zap.Int("records", offset),
	)
	return nil
}

func (r *Reader) malformed(err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return frame.Malformedf("%s: record on line %d: %v", r.src.Location(), pe.StartLine, pe.Err)
	}
	return fmt.Errorf("read %s: %w", r.src.Location(), err)
}

func send(ctx context.Context, out chan<- *frame.Chunk, c *frame.Chunk) error {
	select {
	case out <- c:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
