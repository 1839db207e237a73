// Package parquet reads a flat Parquet submission into column chunks. Cells
// are rendered as text and nulls become blanks, so the checks see the same
// values a CSV export would carry.
package parquet

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/parquet-go/parquet-go"
	"go.uber.org/zap"

	"sblar/internal/datasource"
	"sblar/internal/frame"
)

// DefaultChunkRows is used when chunkRows is not positive.
const DefaultChunkRows = 50_000

const readBatch = 1024

// Reader turns a Parquet Source into chunks. Each call to Chunks reopens the
// source.
type Reader struct {
	src       datasource.Source
	chunkRows int
	required  []string
	log       *zap.Logger
}

// New returns a Reader over src that requires a uid column.
func New(src datasource.Source, chunkRows int, log *zap.Logger) *Reader {
	if chunkRows <= 0 {
		chunkRows = DefaultChunkRows
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Reader{src: src, chunkRows: chunkRows, required: []string{"uid"}, log: log}
}

// Chunks sends the submission to out row group by row group, cut into
// chunks of chunkRows. Nested schemas and unreadable files are
// frame.ErrMalformed.
func (r *Reader) Chunks(ctx context.Context, out chan<- *frame.Chunk) error {
	rc, err := r.src.Open(ctx)
	if err != nil {
		return err
	}
	defer rc.Close()

	ra, size, err := readerAt(rc)
	if err != nil {
		return fmt.Errorf("read %s: %w", r.src.Location(), err)
	}
	f, err := parquet.OpenFile(ra, size)
	if err != nil {
		return frame.Malformedf("%s: %v", r.src.Location(), err)
	}

	names, err := columnNames(f.Schema())
	if err != nil {
		return frame.Malformedf("%s: %v", r.src.Location(), err)
	}
	c, err := frame.New(0, names)
	if err != nil {
		return frame.Malformedf("%s: %v", r.src.Location(), err)
	}
	if missing := c.Missing(r.required...); len(missing) > 0 {
		return &frame.MissingColumnError{Columns: missing}
	}

	offset := 0
	record := make([]string, len(names))
	buf := make([]parquet.Row, readBatch)
	for gi, rg := range f.RowGroups() {
		rows := rg.Rows()
		for {
			n, err := rows.ReadRows(buf)
			for _, row := range buf[:n] {
				for i := range record {
					record[i] = ""
				}
				for _, v := range row {
					if col := v.Column(); col >= 0 && col < len(record) {
						record[col] = text(v)
					}
				}
				if aerr := c.Append(record); aerr != nil {
					rows.Close()
					return aerr
				}
				if c.Len() == r.chunkRows {
					if serr := send(ctx, out, c); serr != nil {
						rows.Close()
						return serr
					}
					offset += c.Len()
					c, _ = frame.New(offset, names)
				}
			}
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				rows.Close()
				return frame.Malformedf("%s: row group %d: %v", r.src.Location(), gi, err)
			}
		}
		rows.Close()
	}
	if c.Len() > 0 {
		if err := send(ctx, out, c); err != nil {
			return err
		}
		offset += c.Len()
	}
	r.log.Debug("parquet read complete",
		zap.String("source", r.src.Location()),
		zap.Int("row_groups", len(f.RowGroups())),
		zap.Int("records", offset),
	)
	return nil
}

// columnNames returns the leaf column names, which for a flat schema are
// the top-level fields in column order.
func columnNames(s *parquet.Schema) ([]string, error) {
	fields := s.Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		if !f.Leaf() {
			return nil, fmt.Errorf("column %q is nested", f.Name())
		}
		if f.Repeated() {
			return nil, fmt.Errorf("column %q is repeated", f.Name())
		}
		names[i] = f.Name()
	}
	return names, nil
}

// text renders v the way it would appear in a CSV cell.
func text(v parquet.Value) string {
	if v.IsNull() {
		return ""
	}
	switch v.Kind() {
	case parquet.Boolean:
		return strconv.FormatBool(v.Boolean())
	case parquet.Int32:
		return strconv.FormatInt(int64(v.Int32()), 10)
	case parquet.Int64:
		return strconv.FormatInt(v.Int64(), 10)
	case parquet.Float:
		return strconv.FormatFloat(float64(v.Float()), 'f', -1, 32)
	case parquet.Double:
		return strconv.FormatFloat(v.Double(), 'f', -1, 64)
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return string(v.ByteArray())
	default:
		return v.String()
	}
}

// readerAt gives random access to rc. Files are used directly; other
// readers are buffered in memory.
func readerAt(rc io.ReadCloser) (io.ReaderAt, int64, error) {
	if f, ok := rc.(*os.File); ok {
		st, err := f.Stat()
		if err != nil {
			return nil, 0, err
		}
		return f, st.Size(), nil
	}
	b, err := io.ReadAll(rc)
	if err != nil {
		return nil, 0, err
	}
	return bytes.NewReader(b), int64(len(b)), nil
}

func send(ctx context.Context, out chan<- *frame.Chunk, c *frame.Chunk) error {
	select {
	case out <- c:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
