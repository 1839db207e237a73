package rules

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var embeddedCatalog []byte

// ColumnSpec is one column of the submission template.
type ColumnSpec struct {
	Name  string `yaml:"name"`
	Title string `yaml:"title"`
}

// RuleSpec is the undecoded form of a rule as written in the catalog.
type RuleSpec struct {
	ID            string    `yaml:"id"`
	Column        string    `yaml:"column"`
	Phase         Phase     `yaml:"phase"`
	Severity      Severity  `yaml:"severity"`
	Scope         Scope     `yaml:"scope"`
	Name          string    `yaml:"name"`
	FigAnchor     string    `yaml:"fig_anchor"`
	Description   string    `yaml:"description"`
	Check         string    `yaml:"check"`
	RelatedFields []string  `yaml:"related_fields"`
	Params        yaml.Node `yaml:"params"`
}

// Catalog is the parsed, immutable rule catalog.
type Catalog struct {
	figBaseURL string
	columns    []ColumnSpec
	colIndex   map[string]int
	rules      []RuleSpec
	byID       map[string]int
}

type catalogFile struct {
	FigBaseURL string       `yaml:"fig_base_url"`
	Columns    []ColumnSpec `yaml:"columns"`
	Rules      []RuleSpec   `yaml:"rules"`
}

var defaultCatalog = sync.OnceValues(func() (*Catalog, error) {
	return LoadCatalog(bytes.NewReader(embeddedCatalog))
})

// DefaultCatalog returns the catalog compiled into the binary.
func DefaultCatalog() (*Catalog, error) {
	return defaultCatalog()
}

// LoadCatalog parses and checks a catalog document. Structural problems
// (unknown columns, duplicate ids, bad enums, unknown checks) are reported
// as ErrCatalog.
func LoadCatalog(r io.Reader) (*Catalog, error) {
	var f catalogFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrCatalog, err)
	}

	c := &Catalog{
		figBaseURL: f.FigBaseURL,
		columns:    f.Columns,
		colIndex:   make(map[string]int, len(f.Columns)),
		rules:      f.Rules,
		byID:       make(map[string]int, len(f.Rules)),
	}
	for i, col := range f.Columns {
		if col.Name == "" {
			return nil, catalogErr("column %d has no name", i)
		}
		if _, dup := c.colIndex[col.Name]; dup {
			return nil, catalogErr("duplicate column %q", col.Name)
		}
		c.colIndex[col.Name] = i
	}
	for i := range f.Rules {
		if err := c.checkRule(&f.Rules[i]); err != nil {
			return nil, err
		}
		c.byID[f.Rules[i].ID] = i
	}
	return c, nil
}

func (c *Catalog) checkRule(r *RuleSpec) error {
	switch {
	case r.ID == "":
		return catalogErr("rule on column %q has no id", r.Column)
	case !c.HasColumn(r.Column):
		return catalogErr("%s: unknown column %q", r.ID, r.Column)
	case !r.Phase.valid():
		return catalogErr("%s: unknown phase %q", r.ID, r.Phase)
	case !r.Severity.valid():
		return catalogErr("%s: unknown severity %q", r.ID, r.Severity)
	}
	if _, dup := c.byID[r.ID]; dup {
		return catalogErr("duplicate rule id %s", r.ID)
	}
	if r.Scope == "" {
		r.Scope = deriveScope(r)
	}
	if !r.Scope.valid() {
		return catalogErr("%s: unknown scope %q", r.ID, r.Scope)
	}
	if len(r.RelatedFields) > 0 && r.Scope == ScopeSingleField {
		return catalogErr("%s: related fields on a single-field rule", r.ID)
	}
	if (r.Phase == PhaseRegister) != (r.Scope == ScopeRegister) {
		return catalogErr("%s: register scope and register phase must go together", r.ID)
	}
	for _, f := range r.RelatedFields {
		if !c.HasColumn(f) {
			return catalogErr("%s: unknown related field %q", r.ID, f)
		}
	}
	if _, ok := registry[r.Check]; !ok {
		return catalogErr("%s: unknown check %q", r.ID, r.Check)
	}
	return nil
}

func deriveScope(r *RuleSpec) Scope {
	switch {
	case r.Phase == PhaseRegister:
		return ScopeRegister
	case len(r.RelatedFields) > 0:
		return ScopeMultiField
	default:
		return ScopeSingleField
	}
}

// Columns returns the template columns in order.
func (c *Catalog) Columns() []ColumnSpec { return c.columns }

// ColumnNames returns the template column names in order.
func (c *Catalog) ColumnNames() []string {
	out := make([]string, len(c.columns))
	for i, col := range c.columns {
		out[i] = col.Name
	}
	return out
}

// HasColumn reports whether name is a template column.
func (c *Catalog) HasColumn(name string) bool {
	_, ok := c.colIndex[name]
	return ok
}

// Rules returns every rule in catalog order.
func (c *Catalog) Rules() []RuleSpec { return c.rules }

// Rule looks a rule up by id.
func (c *Catalog) Rule(id string) (RuleSpec, bool) {
	i, ok := c.byID[id]
	if !ok {
		return RuleSpec{}, false
	}
	return c.rules[i], true
}

// FigLink returns the filing-guide link of a rule.
func (c *Catalog) FigLink(r RuleSpec) string {
	if r.FigAnchor == "" {
		return c.figBaseURL
	}
	return c.figBaseURL + r.FigAnchor
}
