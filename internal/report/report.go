// Package report renders findings for people and downstream tools. Field
// level findings are regrouped into one row per failing (validation,
// record) pair, carrying the rule metadata from the catalog.
package report

import (
	"fmt"
	"io"
	"sort"

	"sblar/internal/findings"
	"sblar/internal/rules"
)

// Format names a renderer.
type Format string

const (
	FormatCSV   Format = "csv"
	FormatJSON  Format = "json"
	FormatTable Format = "table"
	FormatNone  Format = "none"
)

// ParseFormat maps "" to csv and rejects unknown names.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case "":
		return FormatCSV, nil
	case FormatCSV, FormatJSON, FormatTable, FormatNone:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q", s)
	}
}

// Field is one field/value pair of a row.
type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Row is one failing record of one validation.
type Row struct {
	Type        string
	ID          string
	Name        string
	RecordNo    int
	UID         string
	FigLink     string
	Description string
	Scope       rules.Scope
	Fields      []Field
}

// Build groups fs into rows ordered by validation id then record number.
// Findings without detail are skipped; the counts already cover them.
// Rows with exactly two fields list the related field first, which is the
// order the filing guide reads them in.
func Build(cat *rules.Catalog, fs []findings.Finding) []Row {
	type key struct {
		id  string
		rec int
	}
	index := make(map[key]int)
	var rows []Row
	for _, f := range fs {
		if !f.Detailed {
			continue
		}
		k := key{f.ValidationID, f.RecordNo}
		i, ok := index[k]
		if !ok {
			r := Row{
				Type:     f.Severity.Title(),
				ID:       f.ValidationID,
				RecordNo: f.RecordNo,
				UID:      f.UID,
				Scope:    f.Scope,
			}
			if rs, ok := cat.Rule(f.ValidationID); ok {
				r.Name = rs.Name
				r.Description = rs.Description
				r.FigLink = cat.FigLink(rs)
			}
			i = len(rows)
			index[k] = i
			rows = append(rows, r)
		}
		rows[i].Fields = append(rows[i].Fields, Field{Name: f.FieldName, Value: f.FieldValue})
	}

	for i := range rows {
		if fs := rows[i].Fields; len(fs) == 2 {
			fs[0], fs[1] = fs[1], fs[0]
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].ID != rows[j].ID {
			return rows[i].ID < rows[j].ID
		}
		return rows[i].RecordNo < rows[j].RecordNo
	})
	return rows
}

// Options tunes Write.
type Options struct {
	Format Format
	// MaxGroupSize caps the records per validation in JSON; <= 0 keeps all.
	MaxGroupSize int
}

// Write renders fs to w.
func Write(w io.Writer, cat *rules.Catalog, fs []findings.Finding, opt Options) error {
	rows := Build(cat, fs)
	switch opt.Format {
	case FormatCSV, "":
		return WriteCSV(w, rows)
	case FormatJSON:
		return WriteJSON(w, rows, opt.MaxGroupSize)
	case FormatTable:
		return WriteTable(w, rows)
	case FormatNone:
		return nil
	default:
		return fmt.Errorf("unknown output format %q", opt.Format)
	}
}

func maxFields(rows []Row) int {
	n := 0
	for _, r := range rows {
		if len(r.Fields) > n {
			n = len(r.Fields)
		}
	}
	return n
}
