// Package ddl models the findings store tables and renders CREATE TABLE
// statements for each supported SQL dialect.
package ddl

import (
	"fmt"
	"strings"
)

// Dialect holds what differs between databases when creating a table.
type Dialect struct {
	Name string
	// Quote quotes one identifier segment.
	Quote func(string) string
	// Types maps every Kind to a column type.
	Types map[Kind]string
	// CreateIfMissing wraps a CREATE TABLE body so it is a no-op when the
	// table exists. Nil means CREATE TABLE IF NOT EXISTS.
	CreateIfMissing func(table, name, body string) string
}

// QuoteDouble quotes with double quotes (Postgres, SQLite).
func QuoteDouble(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }

// QuoteBracket quotes with brackets (SQL Server).
func QuoteBracket(id string) string { return `[` + strings.ReplaceAll(id, `]`, `]]`) + `]` }

// QuoteBacktick quotes with backticks (MySQL).
func QuoteBacktick(id string) string { return "`" + strings.ReplaceAll(id, "`", "``") + "`" }

// QuoteFQN quotes each dot separated segment of name. Empty segments are
// dropped.
func (d Dialect) QuoteFQN(name string) string {
	parts := strings.Split(name, ".")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, d.Quote(p))
		}
	}
	return strings.Join(out, ".")
}

// BuildCreateTableSQL renders an idempotent CREATE TABLE for t. Primary key
// columns are always NOT NULL.
func (d Dialect) BuildCreateTableSQL(t TableDef) (string, error) {
	name := strings.TrimSpace(t.Name)
	if name == "" {
		return "", fmt.Errorf("%s ddl: table name must not be empty", d.Name)
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("%s ddl: table %s has no columns", d.Name, name)
	}

	cols := make([]string, 0, len(t.Columns)+1)
	var pks []string
	for _, c := range t.Columns {
		if strings.TrimSpace(c.Name) == "" {
			return "", fmt.Errorf("%s ddl: column with empty name in table %s", d.Name, name)
		}
		typ, ok := d.Types[c.Kind]
		if !ok {
			return "", fmt.Errorf("%s ddl: column %s has unmapped kind %q", d.Name, c.Name, c.Kind)
		}
		col := d.Quote(c.Name) + " " + typ
		if !c.Nullable || c.PrimaryKey {
			col += " NOT NULL"
		}
		cols = append(cols, col)
		if c.PrimaryKey {
			pks = append(pks, d.Quote(c.Name))
		}
	}
	if len(pks) > 0 {
		cols = append(cols, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pks, ", ")))
	}

	body := "(\n  " + strings.Join(cols, ",\n  ") + "\n)"
	table := d.QuoteFQN(name)
	if d.CreateIfMissing != nil {
		return d.CreateIfMissing(table, name, body), nil
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s %s", table, body), nil
}

// Statements renders every table of Tables.
func (d Dialect) Statements() ([]string, error) {
	var out []string
	for _, t := range Tables() {
		s, err := d.BuildCreateTableSQL(t)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
