package rules

import (
	"fmt"
	"regexp"

	"gopkg.in/yaml.v3"

	"sblar/internal/checks"
)

// Env carries what a rule may bind besides its own parameters.
type Env struct {
	// Context holds run parameters such as "lei".
	Context map[string]string
	// Codes maps a table name (see refdata) to its lookup set.
	Codes map[string]checks.CodeSet
}

// builder decodes a rule's params and returns its predicate.
type builder func(r RuleSpec, env Env) (checks.Predicate, error)

var registry = map[string]builder{
	"str_length":                          buildStrLength,
	"has_valid_format":                    buildHasValidFormat,
	"string_contains":                     buildStringContains,
	"is_date":                             buildIsDate,
	"is_valid_enum":                       buildIsValidEnum,
	"is_unique_in_field":                  buildIsUniqueInField,
	"meets_multi_value_field_restriction": buildMultiValueRestriction,
	"has_valid_value_count":               buildHasValidValueCount,
	"is_number":                           buildIsNumber,
	"is_greater_than":                     buildComparison(checks.IsGreaterThan, "min_value"),
	"is_greater_than_or_equal_to":         buildComparison(checks.IsGreaterThanOrEqualTo, "min_value"),
	"is_less_than":                        buildComparison(checks.IsLessThan, "max_value"),
	"has_correct_length":                  buildHasCorrectLength,
	"is_valid_code":                       buildIsValidCode,
	"is_date_in_range":                    buildIsDateInRange,
	"is_date_after":                       buildIsDateAfter,
	"is_date_before_in_days":              buildIsDateBeforeInDays,
	"has_no_conditional_field_conflict":   buildConditionalFieldConflict,
	"has_valid_enum_pair":                 buildHasValidEnumPair,
	"has_valid_fieldset_pair":             buildHasValidFieldsetPair,
	"has_valid_multi_field_value_count":   buildMultiFieldValueCount,
	"is_unique_column":                    buildIsUniqueColumn,
}

// CheckNames lists the predicates the catalog may reference.
func CheckNames() []string {
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	return out
}

func decodeParams(r RuleSpec, out any) error {
	if r.Params.Kind == 0 {
		return nil
	}
	if err := r.Params.Decode(out); err != nil {
		return catalogErr("%s: params: %v", r.ID, err)
	}
	return nil
}

func wantRelated(r RuleSpec, n int) error {
	if len(r.RelatedFields) != n {
		return catalogErr("%s: %s needs %d related field(s), has %d", r.ID, r.Check, n, len(r.RelatedFields))
	}
	return nil
}

func wantNoRelated(r RuleSpec) error { return wantRelated(r, 0) }

type blankParams struct {
	AcceptBlank bool   `yaml:"accept_blank"`
	Separator   string `yaml:"separator"`
}

func buildStrLength(r RuleSpec, _ Env) (checks.Predicate, error) {
	var p struct {
		Min *int `yaml:"min_value"`
		Max *int `yaml:"max_value"`
	}
	if err := decodeParams(r, &p); err != nil {
		return nil, err
	}
	if p.Min == nil || p.Max == nil || *p.Min > *p.Max {
		return nil, catalogErr("%s: str_length needs min_value <= max_value", r.ID)
	}
	lo, hi := *p.Min, *p.Max
	return checks.ElementFunc(func(v string) bool { return checks.TextLengthBetween(v, lo, hi) }), nil
}

func buildHasValidFormat(r RuleSpec, _ Env) (checks.Predicate, error) {
	var p struct {
		blankParams `yaml:",inline"`
		Regex       string `yaml:"regex"`
	}
	if err := decodeParams(r, &p); err != nil {
		return nil, err
	}
	re, err := regexp.Compile(p.Regex)
	if err != nil || p.Regex == "" {
		return nil, catalogErr("%s: bad regex %q: %v", r.ID, p.Regex, err)
	}
	ab := p.AcceptBlank
	return checks.ElementFunc(func(v string) bool { return checks.HasValidFormat(v, re, ab) }), nil
}

func buildStringContains(r RuleSpec, env Env) (checks.Predicate, error) {
	var p struct {
		Value *string `yaml:"containing_value"`
		From  string  `yaml:"containing_value_from"`
		Start *int    `yaml:"start_idx"`
		End   *int    `yaml:"end_idx"`
	}
	if err := decodeParams(r, &p); err != nil {
		return nil, err
	}
	want := p.Value
	if p.From != "" {
		if v, ok := env.Context[p.From]; ok && v != "" {
			want = &v
		}
	}
	start, end := p.Start, p.End
	return checks.ElementFunc(func(v string) bool { return checks.StringContains(v, want, start, end) }), nil
}

func buildIsDate(r RuleSpec, _ Env) (checks.Predicate, error) {
	if err := wantNoRelated(r); err != nil {
		return nil, err
	}
	return checks.ElementFunc(checks.IsDate), nil
}

func buildIsValidEnum(r RuleSpec, _ Env) (checks.Predicate, error) {
	var p struct {
		blankParams `yaml:",inline"`
		Accepted    []string `yaml:"accepted_values"`
	}
	if err := decodeParams(r, &p); err != nil {
		return nil, err
	}
	if len(p.Accepted) == 0 {
		return nil, catalogErr("%s: is_valid_enum needs accepted_values", r.ID)
	}
	set, ab, sep := checks.NewSet(p.Accepted...), p.AcceptBlank, p.Separator
	return checks.ElementFunc(func(v string) bool { return checks.IsValidEnum(v, set, ab, sep) }), nil
}

func buildIsUniqueInField(r RuleSpec, _ Env) (checks.Predicate, error) {
	var p blankParams
	if err := decodeParams(r, &p); err != nil {
		return nil, err
	}
	sep := p.Separator
	return checks.ElementFunc(func(v string) bool { return checks.IsUniqueInField(v, sep) }), nil
}

func buildMultiValueRestriction(r RuleSpec, _ Env) (checks.Predicate, error) {
	var p struct {
		blankParams `yaml:",inline"`
		Single      []string `yaml:"single_values"`
	}
	if err := decodeParams(r, &p); err != nil {
		return nil, err
	}
	set, sep := checks.NewSet(p.Single...), p.Separator
	return checks.ElementFunc(func(v string) bool { return checks.MeetsMultiValueFieldRestriction(v, set, sep) }), nil
}

func buildHasValidValueCount(r RuleSpec, _ Env) (checks.Predicate, error) {
	var p struct {
		blankParams `yaml:",inline"`
		Min         int  `yaml:"min_length"`
		Max         *int `yaml:"max_length"`
	}
	if err := decodeParams(r, &p); err != nil {
		return nil, err
	}
	if p.Max != nil && *p.Max < p.Min {
		return nil, catalogErr("%s: max_length below min_length", r.ID)
	}
	lo, hi, sep := p.Min, p.Max, p.Separator
	return checks.ElementFunc(func(v string) bool { return checks.HasValidValueCount(v, lo, hi, sep) }), nil
}

func buildIsNumber(r RuleSpec, _ Env) (checks.Predicate, error) {
	var p struct {
		blankParams `yaml:",inline"`
		IsWhole     bool `yaml:"is_whole"`
	}
	if err := decodeParams(r, &p); err != nil {
		return nil, err
	}
	ab, whole := p.AcceptBlank, p.IsWhole
	return checks.ElementFunc(func(v string) bool { return checks.IsNumber(v, ab, whole) }), nil
}

func buildComparison(cmp func(string, checks.Limit, bool) bool, key string) builder {
	return func(r RuleSpec, _ Env) (checks.Predicate, error) {
		var p map[string]yaml.Node
		if err := decodeParams(r, &p); err != nil {
			return nil, err
		}
		var ab bool
		if n, ok := p["accept_blank"]; ok {
			if err := n.Decode(&ab); err != nil {
				return nil, catalogErr("%s: accept_blank: %v", r.ID, err)
			}
		}
		n, ok := p[key]
		if !ok {
			return nil, catalogErr("%s: %s is required", r.ID, key)
		}
		limit, err := checks.ParseLimit(n.Value)
		if err != nil {
			return nil, catalogErr("%s: %s %q: %v", r.ID, key, n.Value, err)
		}
		return checks.ElementFunc(func(v string) bool { return cmp(v, limit, ab) }), nil
	}
}

func buildHasCorrectLength(r RuleSpec, _ Env) (checks.Predicate, error) {
	var p struct {
		blankParams `yaml:",inline"`
		Length      int `yaml:"accepted_length"`
	}
	if err := decodeParams(r, &p); err != nil {
		return nil, err
	}
	n, ab := p.Length, p.AcceptBlank
	return checks.ElementFunc(func(v string) bool { return checks.HasCorrectLength(v, n, ab) }), nil
}

func buildIsValidCode(r RuleSpec, env Env) (checks.Predicate, error) {
	var p struct {
		blankParams `yaml:",inline"`
		Codes       string `yaml:"codes"`
	}
	if err := decodeParams(r, &p); err != nil {
		return nil, err
	}
	codes, ok := env.Codes[p.Codes]
	if !ok || codes == nil {
		return nil, catalogErr("%s: reference table %q not loaded", r.ID, p.Codes)
	}
	ab := p.AcceptBlank
	return checks.ElementFunc(func(v string) bool { return checks.IsValidCode(v, codes, ab) }), nil
}

func buildIsDateInRange(r RuleSpec, _ Env) (checks.Predicate, error) {
	var p struct {
		Start string `yaml:"start_date_value"`
		End   string `yaml:"end_date_value"`
	}
	if err := decodeParams(r, &p); err != nil {
		return nil, err
	}
	start, ok1 := checks.ParseDate(p.Start)
	end, ok2 := checks.ParseDate(p.End)
	if !ok1 || !ok2 || end.Before(start) {
		return nil, catalogErr("%s: bad date range %q..%q", r.ID, p.Start, p.End)
	}
	return checks.ElementFunc(func(v string) bool { return checks.IsDateInRange(v, start, end) }), nil
}

func buildIsDateAfter(r RuleSpec, _ Env) (checks.Predicate, error) {
	if err := wantRelated(r, 1); err != nil {
		return nil, err
	}
	return checks.Pair(checks.IsDateAfter), nil
}

func buildIsDateBeforeInDays(r RuleSpec, _ Env) (checks.Predicate, error) {
	if err := wantRelated(r, 1); err != nil {
		return nil, err
	}
	var p struct {
		Days *int `yaml:"days_value"`
	}
	if err := decodeParams(r, &p); err != nil {
		return nil, err
	}
	days := 730
	if p.Days != nil {
		days = *p.Days
	}
	return checks.Pair(func(v, rel string) bool { return checks.IsDateBeforeInDays(v, rel, days) }), nil
}

func buildConditionalFieldConflict(r RuleSpec, _ Env) (checks.Predicate, error) {
	if err := wantRelated(r, 1); err != nil {
		return nil, err
	}
	var p struct {
		blankParams `yaml:",inline"`
		Conditions  []string `yaml:"condition_values"`
	}
	if err := decodeParams(r, &p); err != nil {
		return nil, err
	}
	if len(p.Conditions) == 0 {
		p.Conditions = []string{"977"}
	}
	set, sep := checks.NewSet(p.Conditions...), p.Separator
	return checks.Pair(func(v, rel string) bool {
		return checks.HasNoConditionalFieldConflict(v, rel, set, sep)
	}), nil
}

func buildHasValidEnumPair(r RuleSpec, _ Env) (checks.Predicate, error) {
	if err := wantRelated(r, 1); err != nil {
		return nil, err
	}
	var p struct {
		blankParams `yaml:",inline"`
		Conditions  []struct {
			Values            []string `yaml:"condition_values"`
			IsEqualCondition  bool     `yaml:"is_equal_condition"`
			TargetValue       string   `yaml:"target_value"`
			ShouldEqualTarget bool     `yaml:"should_equal_target"`
		} `yaml:"conditions"`
	}
	if err := decodeParams(r, &p); err != nil {
		return nil, err
	}
	if len(p.Conditions) == 0 {
		return nil, catalogErr("%s: has_valid_enum_pair needs conditions", r.ID)
	}
	conds := make([]checks.EnumCondition, len(p.Conditions))
	for i, c := range p.Conditions {
		conds[i] = checks.EnumCondition{
			ConditionValues:   checks.NewSet(c.Values...),
			IsEqualCondition:  c.IsEqualCondition,
			TargetValue:       c.TargetValue,
			ShouldEqualTarget: c.ShouldEqualTarget,
		}
	}
	sep := p.Separator
	return checks.Pair(func(v, rel string) bool { return checks.HasValidEnumPair(v, rel, conds, sep) }), nil
}

func buildHasValidFieldsetPair(r RuleSpec, _ Env) (checks.Predicate, error) {
	var p struct {
		Conditions []string `yaml:"condition_values"`
		Fieldset   []struct {
			Field  string `yaml:"field"`
			Index  int    `yaml:"index"`
			Equal  bool   `yaml:"equal"`
			Target string `yaml:"target"`
		} `yaml:"fieldset"`
	}
	if err := decodeParams(r, &p); err != nil {
		return nil, err
	}
	n := len(r.RelatedFields)
	if n == 0 || len(p.Fieldset) == 0 {
		return nil, catalogErr("%s: has_valid_fieldset_pair needs related fields and a fieldset", r.ID)
	}
	exp := make([]checks.FieldExpectation, len(p.Fieldset))
	for i, f := range p.Fieldset {
		if f.Index < 0 || f.Index >= n || r.RelatedFields[f.Index] != f.Field {
			return nil, catalogErr("%s: fieldset entry %q does not match related field %d", r.ID, f.Field, f.Index)
		}
		exp[i] = checks.FieldExpectation{Field: f.Field, Index: f.Index, Equal: f.Equal, Target: f.Target}
	}
	set := checks.NewSet(p.Conditions...)
	return checks.Fieldset(n, func(v string, rel []string) bool {
		return checks.HasValidFieldsetPair(v, rel, set, exp)
	}), nil
}

func buildMultiFieldValueCount(r RuleSpec, _ Env) (checks.Predicate, error) {
	if err := wantRelated(r, 1); err != nil {
		return nil, err
	}
	var p struct {
		blankParams `yaml:",inline"`
		Max         *int     `yaml:"max_length"`
		Ignored     []string `yaml:"ignored_values"`
	}
	if err := decodeParams(r, &p); err != nil {
		return nil, err
	}
	if p.Max == nil {
		return nil, catalogErr("%s: max_length is required", r.ID)
	}
	limit, ignored, sep := *p.Max, checks.NewSet(p.Ignored...), p.Separator
	return checks.Pair(func(v, rel string) bool {
		return checks.HasValidMultiFieldValueCount(v, rel, limit, ignored, sep)
	}), nil
}

func buildIsUniqueColumn(r RuleSpec, _ Env) (checks.Predicate, error) {
	if err := wantNoRelated(r); err != nil {
		return nil, err
	}
	return checks.Column(checks.UniqueColumn), nil
}

// build resolves one rule into a descriptor.
func (c *Catalog) build(r RuleSpec, env Env) (*Descriptor, error) {
	b, ok := registry[r.Check]
	if !ok {
		return nil, catalogErr("%s: unknown check %q", r.ID, r.Check)
	}
	pred, err := b(r, env)
	if err != nil {
		return nil, err
	}
	if pred == nil {
		return nil, fmt.Errorf("%w: %s: builder returned no predicate", ErrCatalog, r.ID)
	}
	return &Descriptor{
		ID:            r.ID,
		Name:          r.Name,
		Description:   r.Description,
		FigLink:       c.FigLink(r),
		Severity:      r.Severity,
		Scope:         r.Scope,
		Phase:         r.Phase,
		Column:        r.Column,
		RelatedFields: append([]string(nil), r.RelatedFields...),
		CheckName:     r.Check,
		Check:         pred,
	}, nil
}
