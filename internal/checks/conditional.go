package checks

import "strings"

// HasNoConditionalFieldConflict encodes the "flag selects required or
// forbidden" pattern: when the related field carries one of the condition
// values the dependent value must be present, otherwise it must be blank.
func HasNoConditionalFieldConflict(value, related string, conditionValues Set, separator string) bool {
	if intersects(Split(related, separator), conditionValues) {
		return !IsBlank(value)
	}
	return IsBlank(value)
}

// EnumCondition is one branch of an enum pair rule.
type EnumCondition struct {
	ConditionValues   Set
	IsEqualCondition  bool
	TargetValue       string
	ShouldEqualTarget bool
}

// matches reports whether the related tokens select this branch.
func (c EnumCondition) matches(related []string) bool {
	hit := intersects(related, c.ConditionValues)
	if c.IsEqualCondition {
		return hit
	}
	return !hit
}

// holds applies the branch requirement to the checked value. A branch that
// wants the target requires the value to be exactly the target; a branch
// that forbids it requires that no token equals the target.
func (c EnumCondition) holds(value, separator string) bool {
	if c.ShouldEqualTarget {
		return strings.TrimSpace(value) == c.TargetValue
	}
	for _, tok := range Split(value, separator) {
		if strings.TrimSpace(tok) == c.TargetValue {
			return false
		}
	}
	return true
}

// HasValidEnumPair walks conditions in order and applies the first branch
// whose condition matches the related value. No matching branch passes.
func HasValidEnumPair(value, related string, conditions []EnumCondition, separator string) bool {
	toks := trimAll(Split(related, separator))
	for _, c := range conditions {
		if c.matches(toks) {
			return c.holds(value, separator)
		}
	}
	return true
}

// FieldExpectation is one member of a fieldset rule: related[Index] must
// equal Target when Equal is set and differ from it otherwise.
type FieldExpectation struct {
	Field  string
	Index  int
	Equal  bool
	Target string
}

// HasValidFieldsetPair checks a group of related fields when the gating
// value is one of conditionValues. Every expectation must hold.
func HasValidFieldsetPair(value string, related []string, conditionValues Set, expectations []FieldExpectation) bool {
	if !conditionValues.Has(value) {
		return true
	}
	for _, e := range expectations {
		if e.Index < 0 || e.Index >= len(related) {
			return false
		}
		if (related[e.Index] == e.Target) != e.Equal {
			return false
		}
	}
	return true
}

// HasValidMultiFieldValueCount counts the distinct meaningful tokens of a
// coded field and its free-form companion together.
func HasValidMultiFieldValueCount(value, related string, max int, ignored Set, separator string) bool {
	distinct := make(map[string]struct{})
	for _, field := range [2]string{value, related} {
		for _, tok := range Split(field, separator) {
			tok = strings.TrimSpace(tok)
			if tok == "" || ignored.Has(tok) {
				continue
			}
			distinct[tok] = struct{}{}
		}
	}
	return len(distinct) <= max
}

// UniqueColumn marks every row whose value occurs more than once.
func UniqueColumn(values []string) []bool {
	counts := make(map[string]int, len(values))
	for _, v := range values {
		counts[v]++
	}
	out := make([]bool, len(values))
	for i, v := range values {
		out[i] = counts[v] == 1
	}
	return out
}

func intersects(toks []string, set Set) bool {
	for _, t := range toks {
		if set.Has(t) {
			return true
		}
	}
	return false
}

func trimAll(toks []string) []string {
	for i, t := range toks {
		toks[i] = strings.TrimSpace(t)
	}
	return toks
}
