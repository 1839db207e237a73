package ddl

import (
	"fmt"
	"strings"
	"testing"
)

var testDialect = Dialect{
	Name:  "test",
	Quote: QuoteDouble,
	Types: map[Kind]string{
		KindKey:  "VARCHAR(255)",
		KindText: "TEXT",
		KindInt:  "BIGINT",
		KindBool: "BOOLEAN",
		KindTime: "TIMESTAMP",
	},
}

func TestBuildCreateTableSQL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		def         TableDef
		want        string
		errContains string
	}{
		{
			name:        "empty name",
			def:         TableDef{Columns: []ColumnDef{{Name: "id", Kind: KindInt}}},
			errContains: "table name must not be empty",
		},
		{
			name:        "no columns",
			def:         TableDef{Name: "t"},
			errContains: "has no columns",
		},
		{
			name:        "empty column name",
			def:         TableDef{Name: "t", Columns: []ColumnDef{{Kind: KindInt}}},
			errContains: "column with empty name",
		},
		{
			name:        "unmapped kind",
			def:         TableDef{Name: "t", Columns: []ColumnDef{{Name: "x", Kind: "uuid"}}},
			errContains: `unmapped kind "uuid"`,
		},
		{
			name: "primary key is not null",
			def: TableDef{Name: "app.t", Columns: []ColumnDef{
				{Name: "id", Kind: KindKey, Nullable: true, PrimaryKey: true},
				{Name: "note", Kind: KindText, Nullable: true},
				{Name: "n", Kind: KindInt},
			}},
			want: "CREATE TABLE IF NOT EXISTS \"app\".\"t\" (\n" +
				"  \"id\" VARCHAR(255) NOT NULL,\n" +
				"  \"note\" TEXT,\n" +
				"  \"n\" BIGINT NOT NULL,\n" +
				"  PRIMARY KEY (\"id\")\n" +
				")",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := testDialect.BuildCreateTableSQL(tt.def)
			if tt.errContains != "" {
				if err == nil || !strings.Contains(err.Error(), tt.errContains) {
					t.Fatalf("err=%v; want containing %q", err, tt.errContains)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got:\n%s\nwant:\n%s", got, tt.want)
			}
		})
	}
}

func TestCreateIfMissing(t *testing.T) {
	t.Parallel()

	d := testDialect
	d.Quote = QuoteBracket
	d.CreateIfMissing = func(table, name, body string) string {
		return fmt.Sprintf("IF OBJECT_ID(N'%s') IS NULL CREATE TABLE %s %s", name, table, body)
	}
	got, err := d.BuildCreateTableSQL(TableDef{Name: "dbo.x", Columns: []ColumnDef{{Name: "a", Kind: KindInt}}})
	if err != nil {
		t.Fatal(err)
	}
	want := "IF OBJECT_ID(N'dbo.x') IS NULL CREATE TABLE [dbo].[x] (\n  [a] BIGINT NOT NULL\n)"
	if got != want {
		t.Fatalf("got %q; want %q", got, want)
	}
}

func TestQuote(t *testing.T) {
	t.Parallel()

	cases := []struct{ got, want string }{
		{QuoteDouble(`we"ird`), `"we""ird"`},
		{QuoteBracket(`a]b`), `[a]]b]`},
		{QuoteBacktick("a`b"), "`a``b`"},
		{testDialect.QuoteFQN("public..t"), `"public"."t"`},
	}
	for _, c := range cases {
		if c.got != c.want {
			t.Errorf("got %s; want %s", c.got, c.want)
		}
	}
}

func TestStatements(t *testing.T) {
	t.Parallel()

	stmts, err := testDialect.Statements()
	if err != nil {
		t.Fatal(err)
	}
	if len(stmts) != 2 {
		t.Fatalf("got %d statements; want 2", len(stmts))
	}
	if !strings.Contains(stmts[0], `"sblar_runs"`) || !strings.Contains(stmts[1], `"sblar_findings"`) {
		t.Fatalf("unexpected order:\n%s", strings.Join(stmts, "\n"))
	}
	if got := Findings.ColumnNames(); got[0] != "run_id" || got[len(got)-1] != "field_value" {
		t.Fatalf("Findings columns = %v", got)
	}
}
