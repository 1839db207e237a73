package engine

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"sblar/internal/findings"
	"sblar/internal/frame"
	"sblar/internal/rules"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const testCatalog = `
fig_base_url: "https://fig.example/guide/"
columns:
  - {name: uid, title: "Field 1: Unique identifier"}
  - {name: amount, title: "Field 2: Amount applied for"}
  - {name: product, title: "Field 3: Credit product"}
  - {name: product_ff, title: "Field 4: Other credit product"}
rules:
  - id: E0001
    column: uid
    phase: syntactical
    severity: error
    name: uid.invalid_text_length
    fig_anchor: "#4.1.1"
    check: str_length
    params: {min_value: 1, max_value: 45}
  - id: E0100
    column: amount
    phase: syntactical
    severity: error
    name: amount.invalid_numeric_format
    check: is_number
    params: {accept_blank: true}
  - id: E0200
    column: product
    phase: syntactical
    severity: error
    name: product.invalid_enum_value
    check: is_valid_enum
    params: {accepted_values: ["1", "2", "977", "988"]}
  - id: W0100
    column: amount
    phase: logical
    severity: warning
    name: amount.value_not_positive
    check: is_greater_than
    params: {min_value: "0", accept_blank: true}
  - id: E2000
    column: product_ff
    phase: logical
    severity: error
    name: product_ff.conditional_field_conflict
    check: has_no_conditional_field_conflict
    related_fields: [product]
    params: {condition_values: ["977"]}
  - id: E3000
    column: uid
    phase: register
    severity: error
    name: uid.duplicates_in_dataset
    check: is_unique_column
`

var testHeader = []string{"uid", "amount", "product", "product_ff"}

func testCat(t *testing.T) *rules.Catalog {
	t.Helper()
	c, err := rules.LoadCatalog(strings.NewReader(testCatalog))
	require.NoError(t, err)
	return c
}

// chunks splits rows into chunks of size n.
func chunks(t *testing.T, header []string, rows [][]string, n int) StaticSource {
	t.Helper()
	var out StaticSource
	for off := 0; off < len(rows); off += n {
		c, err := frame.New(off, header)
		require.NoError(t, err)
		for _, r := range rows[off:min(off+n, len(rows))] {
			require.NoError(t, c.Append(r))
		}
		out = append(out, c)
	}
	return out
}

type collected struct {
	results []Result
}

func (c *collected) emit(r Result) error {
	c.results = append(c.results, r)
	return nil
}

func (c *collected) phase(p rules.Phase) []findings.Finding {
	var out []findings.Finding
	for _, r := range c.results {
		if r.Phase == p {
			out = append(out, r.Findings...)
		}
	}
	return out
}

func (c *collected) all() []findings.Finding {
	var out []findings.Finding
	for _, r := range c.results {
		out = append(out, r.Findings...)
	}
	return out
}

func TestRunClean(t *testing.T) {
	rows := [][]string{
		{"A1", "100", "1", ""},
		{"A2", "", "977", "equipment lease"},
		{"A3", "2500.50", "988", ""},
	}
	var got collected
	out, err := New(testCat(t), Config{}, nil).Run(context.Background(), chunks(t, testHeader, rows, 2), got.emit)
	require.NoError(t, err)

	assert.Equal(t, StageClean, out.Stage)
	assert.Equal(t, 3, out.Records)
	assert.True(t, out.Ran(rules.PhaseSyntactical))
	assert.True(t, out.Ran(rules.PhaseRegister))
	assert.True(t, out.Ran(rules.PhaseLogical))
	assert.Zero(t, out.Summary().Total())
	assert.False(t, out.Truncated)

	// two syntactical chunks, one register result, two logical chunks
	require.Len(t, got.results, 5)
	assert.Equal(t, rules.PhaseRegister, got.results[2].Phase)
	assert.Equal(t, 3, got.results[2].Rows)
	assert.Equal(t, 2, got.results[4].Offset)
}

func TestRunSyntacticalFailureSkipsLaterPhases(t *testing.T) {
	rows := [][]string{
		{"A1", "100", "1", "not allowed here"},
		{"A1", "abc", "1", ""},
		{"A3", "5", "7", ""},
	}
	var got collected
	out, err := New(testCat(t), Config{}, nil).Run(context.Background(), chunks(t, testHeader, rows, 2), got.emit)
	require.NoError(t, err)

	assert.Equal(t, StageSyntactical, out.Stage)
	assert.False(t, out.Ran(rules.PhaseRegister))
	assert.False(t, out.Ran(rules.PhaseLogical))
	assert.Empty(t, got.phase(rules.PhaseRegister))
	assert.Empty(t, got.phase(rules.PhaseLogical))

	syn := got.phase(rules.PhaseSyntactical)
	findings.Sort(syn)
	want := []findings.Finding{
		{ValidationID: "E0100", RecordNo: 2, UID: "A1", FieldName: "amount", FieldValue: "abc",
			Severity: rules.SeverityError, Scope: rules.ScopeSingleField, Phase: rules.PhaseSyntactical, Detailed: true},
		{ValidationID: "E0200", RecordNo: 3, UID: "A3", FieldName: "product", FieldValue: "7",
			Severity: rules.SeverityError, Scope: rules.ScopeSingleField, Phase: rules.PhaseSyntactical, Detailed: true},
	}
	if diff := cmp.Diff(want, syn); diff != "" {
		t.Fatalf("syntactical findings mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 2, out.Phases[rules.PhaseSyntactical].Errors.SingleField)
}

func TestRunRegisterDuplicates(t *testing.T) {
	const dup = "000TESTFIUIDDONOTUSEXGXVID11XTC1"
	rows := [][]string{
		{dup, "1", "1", ""},
		{"B2", "1", "1", ""},
		{dup, "1", "1", ""},
	}
	var got collected
	out, err := New(testCat(t), Config{}, nil).Run(context.Background(), chunks(t, testHeader, rows, 1), got.emit)
	require.NoError(t, err)

	assert.Equal(t, StageLogical, out.Stage)
	reg := got.phase(rules.PhaseRegister)
	require.Len(t, reg, 2)
	for i, rec := range []int{1, 3} {
		assert.Equal(t, "E3000", reg[i].ValidationID)
		assert.Equal(t, rec, reg[i].RecordNo)
		assert.Equal(t, dup, reg[i].UID)
		assert.Equal(t, rules.ScopeRegister, reg[i].Scope)
	}
	assert.Equal(t, 2, out.Phases[rules.PhaseRegister].Errors.Register)
	assert.Equal(t, 2, out.Summary().Errors.Total)
}

func TestRunFieldExplosion(t *testing.T) {
	rows := [][]string{
		{"A1", "1", "977", ""},
		{"A2", "1", "1", "typed anyway"},
	}
	var got collected
	_, err := New(testCat(t), Config{}, nil).Run(context.Background(), chunks(t, testHeader, rows, 10), got.emit)
	require.NoError(t, err)

	logi := got.phase(rules.PhaseLogical)
	require.Len(t, logi, 4)
	type fv struct {
		rec          int
		field, value string
	}
	var seen []fv
	for _, f := range logi {
		assert.Equal(t, "E2000", f.ValidationID)
		assert.Equal(t, rules.ScopeMultiField, f.Scope)
		seen = append(seen, fv{f.RecordNo, f.FieldName, f.FieldValue})
	}
	assert.Equal(t, []fv{
		{1, "product_ff", ""},
		{1, "product", "977"},
		{2, "product_ff", "typed anyway"},
		{2, "product", "1"},
	}, seen)

	// two failures, not four
	s := findings.Tally(logi)
	assert.Equal(t, 2, s.Errors.MultiField)
	assert.Equal(t, 2, s.Errors.Total)
}

func failingRows(n int) [][]string {
	rows := make([][]string, n)
	for i := range rows {
		rows[i] = []string{"U" + string(rune('a'+i)), "-1", "1", "x"}
	}
	return rows
}

func TestRunIdempotent(t *testing.T) {
	cat := testCat(t)
	src := chunks(t, testHeader, failingRows(5), 2)
	run := func() ([]findings.Finding, Outcome) {
		var got collected
		out, err := New(cat, Config{MaxErrors: 3}, nil).Run(context.Background(), src, got.emit)
		require.NoError(t, err)
		fs := got.all()
		findings.Sort(fs)
		return fs, out
	}
	f1, o1 := run()
	f2, o2 := run()
	if diff := cmp.Diff(f1, f2); diff != "" {
		t.Fatalf("second run differs (-first +second):\n%s", diff)
	}
	assert.Equal(t, o1, o2)
}

func TestRunTruncationKeepsCounts(t *testing.T) {
	cat := testCat(t)
	src := chunks(t, testHeader, failingRows(5), 2)

	var full collected
	fullOut, err := New(cat, Config{}, nil).Run(context.Background(), src, full.emit)
	require.NoError(t, err)
	require.False(t, fullOut.Truncated)
	// W0100 and E2000 fail on every row
	require.Equal(t, 10, fullOut.Summary().Total())

	for _, max := range []int{1, 3, 4, 9, 10, 50} {
		var got collected
		out, err := New(cat, Config{MaxErrors: max}, nil).Run(context.Background(), src, got.emit)
		require.NoError(t, err)

		assert.Equal(t, fullOut.Phases, out.Phases, "max=%d", max)
		assert.Equal(t, max < 10, out.Truncated, "max=%d", max)

		for _, r := range got.results {
			assert.Equal(t, findings.Tally(r.Findings), r.Summary, "counts consistency max=%d offset=%d", max, r.Offset)
		}
		logi := got.phase(rules.PhaseLogical)
		assert.Equal(t, 10, findings.Failures(logi), "max=%d", max)
		assert.Equal(t, min(max, 10), findings.Failures(findings.Detailed(logi)), "max=%d", max)
		for _, f := range logi {
			if !f.Detailed {
				assert.Empty(t, f.FieldValue)
			}
		}
	}
}

func TestRunMissingUIDColumn(t *testing.T) {
	header := []string{"amount", "product", "product_ff"}
	src := chunks(t, header, [][]string{{"1", "1", ""}}, 1)
	_, err := New(testCat(t), Config{}, nil).Run(context.Background(), src, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingColumn))
	assert.False(t, errors.Is(err, ErrCatalog))

	var mc *frame.MissingColumnError
	require.True(t, errors.As(err, &mc))
	assert.Equal(t, []string{"uid"}, mc.Columns)
}

func TestRunMissingCheckedColumn(t *testing.T) {
	header := []string{"uid", "amount"}
	src := chunks(t, header, [][]string{{"A1", "1"}}, 1)
	_, err := New(testCat(t), Config{}, nil).Run(context.Background(), src, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingColumn))

	var ce *CheckError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "E0200", ce.CheckID)
}

func TestRunEmitErrorAborts(t *testing.T) {
	boom := errors.New("sink closed")
	src := chunks(t, testHeader, failingRows(6), 1)
	calls := 0
	_, err := New(testCat(t), Config{}, nil).Run(context.Background(), src, func(Result) error {
		calls++
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	src := chunks(t, testHeader, failingRows(6), 1)
	_, err := New(testCat(t), Config{}, nil).Run(ctx, src, nil)
	require.ErrorIs(t, err, context.Canceled)
}

type brokenSource struct{}

func (brokenSource) Chunks(ctx context.Context, out chan<- *frame.Chunk) error {
	c, _ := frame.FromColumns(0, testHeader, [][]string{{"A1"}, {"1"}, {"1"}, {""}})
	select {
	case out <- c:
	case <-ctx.Done():
		return ctx.Err()
	}
	return frame.Malformedf("record 2: wrong number of fields")
}

func TestRunReaderErrorIsReturned(t *testing.T) {
	_, err := New(testCat(t), Config{}, nil).Run(context.Background(), brokenSource{}, nil)
	require.ErrorIs(t, err, ErrMalformed)
}

func TestRunCatalogDefectBeforeReading(t *testing.T) {
	const doc = `
columns:
  - {name: uid}
  - {name: naics_code}
rules:
  - id: W0762
    column: naics_code
    phase: logical
    severity: warning
    check: is_valid_code
    params: {codes: naics}
`
	cat, err := rules.LoadCatalog(strings.NewReader(doc))
	require.NoError(t, err)
	_, err = New(cat, Config{}, nil).Run(context.Background(), StaticSource{}, nil)
	require.ErrorIs(t, err, ErrCatalog)
}
