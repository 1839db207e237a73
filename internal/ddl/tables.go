package ddl

// Table names.
const (
	FindingsTable = "sblar_findings"
	RunsTable     = "sblar_runs"
)

// Findings holds one row per detailed finding.
var Findings = TableDef{
	Name: FindingsTable,
	Columns: []ColumnDef{
		{Name: "run_id", Kind: KindKey},
		{Name: "phase", Kind: KindKey},
		{Name: "validation_id", Kind: KindKey},
		{Name: "severity", Kind: KindKey},
		{Name: "scope", Kind: KindKey},
		{Name: "record_no", Kind: KindInt},
		{Name: "uid", Kind: KindText, Nullable: true},
		{Name: "field_name", Kind: KindKey},
		{Name: "field_value", Kind: KindText, Nullable: true},
	},
}

// Runs holds one row per validation run.
var Runs = TableDef{
	Name: RunsTable,
	Columns: []ColumnDef{
		{Name: "run_id", Kind: KindKey, PrimaryKey: true},
		{Name: "job", Kind: KindKey},
		{Name: "source", Kind: KindText},
		{Name: "checksum", Kind: KindKey, Nullable: true},
		{Name: "state", Kind: KindKey},
		{Name: "stage", Kind: KindKey, Nullable: true},
		{Name: "records", Kind: KindInt},
		{Name: "error_count", Kind: KindInt},
		{Name: "warning_count", Kind: KindInt},
		{Name: "truncated", Kind: KindBool},
		{Name: "error", Kind: KindText, Nullable: true},
		{Name: "started_at", Kind: KindTime},
		{Name: "finished_at", Kind: KindTime},
	},
}

// Tables lists every table the findings store needs, in creation order.
func Tables() []TableDef { return []TableDef{Runs, Findings} }
