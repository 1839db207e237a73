// Package refdata loads the read-only code tables used by the catalog: the
// 3-digit NAICS subsector list and the 11-digit census tract GEOID list.
// Tables are loaded once before validation and shared by every check.
package refdata

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"sblar/internal/checks"
)

// Well-known table names referenced from the catalog.
const (
	NAICS        = "naics"
	CensusGEOIDs = "census_geoids"
)

// Table is an immutable code lookup. Descriptions are kept for reporting.
type Table struct {
	name  string
	codes map[string]string
}

// NewTable builds a table from code -> description pairs.
func NewTable(name string, codes map[string]string) Table {
	cp := make(map[string]string, len(codes))
	for k, v := range codes {
		cp[k] = v
	}
	return Table{name: name, codes: cp}
}

// Name returns the table name.
func (t Table) Name() string { return t.name }

// Len returns the number of codes.
func (t Table) Len() int { return len(t.codes) }

// Contains reports whether code is in the table.
func (t Table) Contains(code string) bool {
	_, ok := t.codes[code]
	return ok
}

// Describe returns the description of code, if any.
func (t Table) Describe(code string) (string, bool) {
	d, ok := t.codes[code]
	return d, ok
}

// LoadCSV reads a headered CSV and keys the table by keyColumn. When a
// second column is present its values become descriptions. A leading BOM is
// ignored.
func LoadCSV(name string, r io.Reader, keyColumn string) (Table, error) {
	cr := csv.NewReader(transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder())))
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		return Table{}, fmt.Errorf("refdata %s: read header: %w", name, err)
	}
	key, desc := -1, -1
	for i, h := range header {
		h = strings.TrimSpace(h)
		switch {
		case h == keyColumn:
			key = i
		case desc < 0:
			desc = i
		}
	}
	if key < 0 {
		return Table{}, fmt.Errorf("refdata %s: column %q not found in header %v", name, keyColumn, header)
	}

	codes := make(map[string]string)
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Table{}, fmt.Errorf("refdata %s: line %d: %w", name, line, err)
		}
		if key >= len(rec) {
			continue
		}
		code := strings.TrimSpace(rec[key])
		if code == "" {
			continue
		}
		d := ""
		if desc >= 0 && desc < len(rec) {
			d = rec[desc]
		}
		codes[code] = d
	}
	return Table{name: name, codes: codes}, nil
}

// LoadFile opens path and delegates to LoadCSV.
func LoadFile(name, path, keyColumn string) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return Table{}, fmt.Errorf("refdata %s: %w", name, err)
	}
	defer f.Close()
	return LoadCSV(name, f, keyColumn)
}

// Tables is the set of code tables handed to the schema builder.
type Tables map[string]Table

// Lookup returns the named table.
func (ts Tables) Lookup(name string) (Table, bool) {
	t, ok := ts[name]
	return t, ok
}

// Paths names the files backing each table.
type Paths struct {
	NAICS        string
	CensusGEOIDs string
}

// Load reads every configured table. Empty paths are skipped.
func Load(p Paths) (Tables, error) {
	ts := Tables{}
	if p.NAICS != "" {
		t, err := LoadFile(NAICS, p.NAICS, "code")
		if err != nil {
			return nil, err
		}
		ts[NAICS] = t
	}
	if p.CensusGEOIDs != "" {
		t, err := LoadFile(CensusGEOIDs, p.CensusGEOIDs, "geoid")
		if err != nil {
			return nil, err
		}
		ts[CensusGEOIDs] = t
	}
	return ts, nil
}

// CodeSets exposes the tables as lookup sets keyed by table name, the form
// the rule builder binds into is_valid_code checks.
func (ts Tables) CodeSets() map[string]checks.CodeSet {
	out := make(map[string]checks.CodeSet, len(ts))
	for name, t := range ts {
		out[name] = t
	}
	return out
}
