package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sblar/internal/checks"
	"sblar/internal/findings"
	"sblar/internal/frame"
	"sblar/internal/rules"
)

func descriptor(id, column string, related []string, scope rules.Scope, p checks.Predicate) *rules.Descriptor {
	return &rules.Descriptor{
		ID:            id,
		Severity:      rules.SeverityError,
		Scope:         scope,
		Phase:         rules.PhaseLogical,
		Column:        column,
		RelatedFields: related,
		Check:         p,
	}
}

func twoColumnChunk(t *testing.T) *frame.Chunk {
	t.Helper()
	c, err := frame.FromColumns(10, []string{"uid", "a", "b"}, [][]string{
		{"u11", "u12", "u13"},
		{"x", "", "y"},
		{"1", "2", "3"},
	})
	require.NoError(t, err)
	return c
}

func TestValidateElementFunc(t *testing.T) {
	notBlank := checks.ElementFunc(func(v string) bool { return v != "" })
	s := rules.NewSchema(rules.PhaseLogical, []rules.ColumnChecks{
		{Name: "uid"},
		{Name: "a", Checks: []*rules.Descriptor{descriptor("E1", "a", nil, rules.ScopeSingleField, notBlank)}},
		{Name: "b"},
	})

	res, err := NewRunner(nil).Validate(s, twoColumnChunk(t), true)
	require.NoError(t, err)
	require.Len(t, res.Findings, 1)
	f := res.Findings[0]
	// local row 1 of a chunk at offset 10 is record 12
	assert.Equal(t, 12, f.RecordNo)
	assert.Equal(t, "u12", f.UID)
	assert.Equal(t, "a", f.FieldName)
	assert.Equal(t, 3, res.Rows)
	assert.Equal(t, 10, res.Offset)
	assert.Equal(t, 1, res.Summary.Errors.SingleField)
}

func TestValidateWithoutDetail(t *testing.T) {
	pair := checks.Pair(func(a, b string) bool { return a == "" })
	s := rules.NewSchema(rules.PhaseLogical, []rules.ColumnChecks{
		{Name: "uid"},
		{Name: "a", Checks: []*rules.Descriptor{descriptor("E2", "a", []string{"b"}, rules.ScopeMultiField, pair)}},
		{Name: "b"},
	})

	detailed, err := NewRunner(nil).Validate(s, twoColumnChunk(t), true)
	require.NoError(t, err)
	light, err := NewRunner(nil).Validate(s, twoColumnChunk(t), false)
	require.NoError(t, err)

	assert.Len(t, detailed.Findings, 4)
	require.Len(t, light.Findings, 2)
	for _, f := range light.Findings {
		assert.False(t, f.Detailed)
		assert.Equal(t, "a", f.FieldName)
		assert.Empty(t, f.FieldValue)
	}
	assert.Equal(t, detailed.Summary, light.Summary)
	assert.Equal(t, 2, light.Summary.Errors.MultiField)
}

func TestValidateCatalogDefects(t *testing.T) {
	ok := checks.ElementFunc(func(string) bool { return true })
	tests := []struct {
		name string
		d    *rules.Descriptor
	}{
		{"related field not in schema", descriptor("E3", "a", []string{"ghost"}, rules.ScopeMultiField,
			checks.Pair(func(string, string) bool { return true }))},
		{"predicate panics", descriptor("E4", "a", nil, rules.ScopeSingleField,
			checks.ElementFunc(func(v string) bool { return v[5] == 'x' }))},
		{"predicate errors", descriptor("E5", "a", nil, rules.ScopeSingleField,
			checks.ColumnFunc(func([]string, [][]string) ([]bool, error) { return nil, errors.New("bad params") }))},
		{"short result", descriptor("E6", "a", nil, rules.ScopeSingleField,
			checks.ColumnFunc(func(v []string, _ [][]string) ([]bool, error) { return make([]bool, len(v)-1), nil }))},
		{"no predicate", descriptor("E7", "a", nil, rules.ScopeSingleField, nil)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := rules.NewSchema(rules.PhaseLogical, []rules.ColumnChecks{
				{Name: "uid"},
				{Name: "a", Checks: []*rules.Descriptor{descriptor("E0", "a", nil, rules.ScopeSingleField, ok), tt.d}},
				{Name: "b"},
			})
			_, err := NewRunner(nil).Validate(s, twoColumnChunk(t), true)
			require.ErrorIs(t, err, ErrCatalog)
			assert.False(t, errors.Is(err, ErrMissingColumn))

			var ce *CheckError
			require.True(t, errors.As(err, &ce))
			assert.Equal(t, tt.d.ID, ce.CheckID)
		})
	}
}

func TestValidateColumnAbsentFromChunk(t *testing.T) {
	pair := checks.Pair(func(string, string) bool { return true })
	s := rules.NewSchema(rules.PhaseLogical, []rules.ColumnChecks{
		{Name: "a", Checks: []*rules.Descriptor{descriptor("E8", "a", []string{"c"}, rules.ScopeMultiField, pair)}},
		{Name: "c"},
	})
	_, err := NewRunner(nil).Validate(s, twoColumnChunk(t), true)
	require.ErrorIs(t, err, ErrMissingColumn)

	var mc *frame.MissingColumnError
	require.True(t, errors.As(err, &mc))
	assert.Equal(t, []string{"c"}, mc.Columns)
}

// templateRow builds a one-row chunk carrying every catalog column, blank
// unless set.
func templateRow(t *testing.T, cat *rules.Catalog, set map[string]string) *frame.Chunk {
	t.Helper()
	names := cat.ColumnNames()
	c, err := frame.New(0, names)
	require.NoError(t, err)
	row := make([]string, len(names))
	for i, n := range names {
		row[i] = set[n]
	}
	require.NoError(t, c.Append(row))
	return c
}

func logicalSchema(t *testing.T) (*rules.Catalog, *rules.Schema) {
	t.Helper()
	cat, err := rules.DefaultCatalog()
	require.NoError(t, err)
	s, err := rules.BuildSchema(cat, rules.PhaseLogical, rules.Env{
		Context: map[string]string{"lei": "123456789TESTBANK123"},
		Codes: map[string]checks.CodeSet{
			"naics":         checks.NewSet("111"),
			"census_geoids": checks.NewSet("01001020100"),
		},
	})
	require.NoError(t, err)
	return cat, s
}

func byID(fs []findings.Finding, id string) []findings.Finding {
	var out []findings.Finding
	for _, f := range fs {
		if f.ValidationID == id {
			out = append(out, f)
		}
	}
	return out
}

func TestCatalogScenarios(t *testing.T) {
	cat, s := logicalSchema(t)
	r := NewRunner(nil)

	t.Run("988 with blank free-form passes E2000", func(t *testing.T) {
		res, err := r.Validate(s, templateRow(t, cat, map[string]string{
			"ct_credit_product": "988", "ct_credit_product_ff": "",
		}), true)
		require.NoError(t, err)
		assert.Empty(t, byID(res.Findings, "E2000"))
	})

	t.Run("977 with blank free-form fails E2000", func(t *testing.T) {
		res, err := r.Validate(s, templateRow(t, cat, map[string]string{
			"ct_credit_product": "977", "ct_credit_product_ff": "",
		}), true)
		require.NoError(t, err)
		got := byID(res.Findings, "E2000")
		require.Len(t, got, 2)
		assert.Equal(t, "ct_credit_product_ff", got[0].FieldName)
		assert.Equal(t, "ct_credit_product", got[1].FieldName)
		assert.Equal(t, "977", got[1].FieldValue)
		assert.Equal(t, 1, findings.Failures(got))
	})

	t.Run("denied application with priced interest fails E2014", func(t *testing.T) {
		res, err := r.Validate(s, templateRow(t, cat, map[string]string{
			"action_taken": "3", "pricing_interest_rate_type": "1",
		}), true)
		require.NoError(t, err)
		got := byID(res.Findings, "E2014")
		require.NotEmpty(t, got)
		assert.Equal(t, "action_taken", got[0].FieldName)
		var rate *findings.Finding
		for i := range got {
			if got[i].FieldName == "pricing_interest_rate_type" {
				rate = &got[i]
			}
		}
		require.NotNil(t, rate)
		assert.Equal(t, "1", rate.FieldValue)
		assert.Equal(t, rules.ScopeMultiField, rate.Scope)
	})

	t.Run("combined value count over the limit fails W2006", func(t *testing.T) {
		res, err := r.Validate(s, templateRow(t, cat, map[string]string{
			"credit_purpose": "1;2;3", "credit_purpose_ff": "inventory",
		}), true)
		require.NoError(t, err)
		got := byID(res.Findings, "W2006")
		require.Len(t, got, 2)
		assert.Equal(t, rules.SeverityWarning, got[0].Severity)
		assert.ElementsMatch(t, []string{"credit_purpose_ff", "credit_purpose"},
			[]string{got[0].FieldName, got[1].FieldName})
	})

	t.Run("977 ignored in the combined count", func(t *testing.T) {
		res, err := r.Validate(s, templateRow(t, cat, map[string]string{
			"credit_purpose": "1;2;977", "credit_purpose_ff": "inventory",
		}), true)
		require.NoError(t, err)
		assert.Empty(t, byID(res.Findings, "W2006"))
	})
}
