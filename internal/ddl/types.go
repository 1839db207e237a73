package ddl

// Kind is a logical column type. Each dialect maps it to a concrete SQL type.
type Kind string

const (
	// KindKey is a short indexed string such as an id or enum value.
	KindKey Kind = "key"
	// KindText is unbounded text.
	KindText Kind = "text"
	KindInt  Kind = "int"
	KindBool Kind = "bool"
	KindTime Kind = "time"
)

// ColumnDef describes a single column.
type ColumnDef struct {
	Name       string
	Kind       Kind
	Nullable   bool
	PrimaryKey bool
}

// TableDef is a table name plus its ordered columns.
type TableDef struct {
	Name    string
	Columns []ColumnDef
}

// ColumnNames returns the column names in order.
func (t TableDef) ColumnNames() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}
