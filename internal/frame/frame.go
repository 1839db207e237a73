// Package frame holds the columnar, string-typed chunk that flows from the
// readers to the validation engine.
package frame

import "fmt"

// Chunk is a slice of a submission stored column by column. Every cell is
// raw text; blanks are empty strings. Offset is the 0-based dataset index of
// the first row, so row i of the chunk is record number Offset+i+1.
type Chunk struct {
	Offset int

	names []string
	index map[string]int
	cols  [][]string
}

// New creates an empty chunk with the given header. Duplicate names are
// rejected.
func New(offset int, names []string) (*Chunk, error) {
	c := &Chunk{
		Offset: offset,
		names:  append([]string(nil), names...),
		index:  make(map[string]int, len(names)),
		cols:   make([][]string, len(names)),
	}
	for i, n := range names {
		if _, dup := c.index[n]; dup {
			return nil, fmt.Errorf("frame: duplicate column %q", n)
		}
		c.index[n] = i
	}
	return c, nil
}

// FromColumns builds a chunk from whole columns, mostly for tests and the
// register pass. All columns must have the same length.
func FromColumns(offset int, names []string, cols [][]string) (*Chunk, error) {
	if len(names) != len(cols) {
		return nil, fmt.Errorf("frame: %d names for %d columns", len(names), len(cols))
	}
	c, err := New(offset, names)
	if err != nil {
		return nil, err
	}
	for i, col := range cols {
		if i > 0 && len(col) != len(cols[0]) {
			return nil, fmt.Errorf("frame: column %q has %d rows, want %d", names[i], len(col), len(cols[0]))
		}
		c.cols[i] = col
	}
	return c, nil
}

// Append adds one row. The record must be aligned with Names().
func (c *Chunk) Append(record []string) error {
	if len(record) != len(c.names) {
		return fmt.Errorf("frame: row has %d fields, want %d", len(record), len(c.names))
	}
	for i, v := range record {
		c.cols[i] = append(c.cols[i], v)
	}
	return nil
}

// Len returns the number of rows.
func (c *Chunk) Len() int {
	if c == nil || len(c.cols) == 0 {
		return 0
	}
	return len(c.cols[0])
}

// Names returns the column names in source order.
func (c *Chunk) Names() []string { return c.names }

// Has reports whether the chunk carries the named column.
func (c *Chunk) Has(name string) bool {
	_, ok := c.index[name]
	return ok
}

// Column returns the named column. The slice is shared and must not be
// modified.
func (c *Chunk) Column(name string) ([]string, bool) {
	i, ok := c.index[name]
	if !ok {
		return nil, false
	}
	return c.cols[i], true
}

// Value returns the cell at local row i of the named column.
func (c *Chunk) Value(name string, i int) string {
	col, ok := c.Column(name)
	if !ok || i < 0 || i >= len(col) {
		return ""
	}
	return col[i]
}

// RecordNo converts a local row position to the 1-based record number.
func (c *Chunk) RecordNo(i int) int { return c.Offset + i + 1 }

// Missing returns the names in want that the chunk does not carry.
func (c *Chunk) Missing(want ...string) []string {
	var out []string
	for _, n := range want {
		if !c.Has(n) {
			out = append(out, n)
		}
	}
	return out
}
