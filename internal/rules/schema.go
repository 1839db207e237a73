package rules

// ColumnChecks binds one template column to the descriptors that run on it
// in a phase. Columns without checks are kept so that related-field lookups
// can tell a template column from a typo.
type ColumnChecks struct {
	Name   string
	Title  string
	Checks []*Descriptor
}

// Schema is the set of checks for one phase. It is built per run and never
// modified afterwards.
type Schema struct {
	Phase   Phase
	Columns []ColumnChecks

	declared map[string]struct{}
}

// NewSchema assembles a schema from already built descriptors. Every
// column in cols is declared, with or without checks.
func NewSchema(phase Phase, cols []ColumnChecks) *Schema {
	s := &Schema{
		Phase:    phase,
		Columns:  cols,
		declared: make(map[string]struct{}, len(cols)),
	}
	for _, c := range cols {
		s.declared[c.Name] = struct{}{}
	}
	return s
}

// Declares reports whether name is a column of the schema.
func (s *Schema) Declares(name string) bool {
	_, ok := s.declared[name]
	return ok
}

// Descriptors returns every descriptor in execution order.
func (s *Schema) Descriptors() []*Descriptor {
	var out []*Descriptor
	for _, c := range s.Columns {
		out = append(out, c.Checks...)
	}
	return out
}

// Len returns the number of descriptors.
func (s *Schema) Len() int {
	n := 0
	for _, c := range s.Columns {
		n += len(c.Checks)
	}
	return n
}

// BuildSchema assembles a fresh schema for the syntactical or logical phase.
func BuildSchema(c *Catalog, phase Phase, env Env) (*Schema, error) {
	if phase != PhaseSyntactical && phase != PhaseLogical {
		return nil, catalogErr("BuildSchema: phase %q is not a chunk phase", phase)
	}
	return c.schema(phase, c.ColumnNames(), env)
}

// RegisterSchema assembles the whole-dataset schema: the uid column with the
// register-scope rules.
func RegisterSchema(c *Catalog, env Env) (*Schema, error) {
	return c.schema(PhaseRegister, []string{UIDColumn}, env)
}

// UIDColumn is the submission's unique identifier column.
const UIDColumn = "uid"

func (c *Catalog) schema(phase Phase, columns []string, env Env) (*Schema, error) {
	s := &Schema{
		Phase:    phase,
		Columns:  make([]ColumnChecks, 0, len(columns)),
		declared: make(map[string]struct{}, len(columns)),
	}
	pos := make(map[string]int, len(columns))
	for _, name := range columns {
		i, ok := c.colIndex[name]
		if !ok {
			return nil, catalogErr("schema column %q is not in the template", name)
		}
		pos[name] = len(s.Columns)
		s.Columns = append(s.Columns, ColumnChecks{Name: name, Title: c.columns[i].Title})
		s.declared[name] = struct{}{}
	}
	for _, r := range c.rules {
		if r.Phase != phase {
			continue
		}
		i, ok := pos[r.Column]
		if !ok {
			return nil, catalogErr("%s: column %q is not part of the %s schema", r.ID, r.Column, phase)
		}
		d, err := c.build(r, env)
		if err != nil {
			return nil, err
		}
		s.Columns[i].Checks = append(s.Columns[i].Checks, d)
	}
	return s, nil
}
