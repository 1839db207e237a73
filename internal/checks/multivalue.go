package checks

import "strings"

// Set is an immutable string set built from catalog parameters.
type Set map[string]struct{}

// NewSet builds a Set from values.
func NewSet(values ...string) Set {
	s := make(Set, len(values))
	for _, v := range values {
		s[v] = struct{}{}
	}
	return s
}

// Has reports membership.
func (s Set) Has(v string) bool {
	_, ok := s[v]
	return ok
}

// Contains implements CodeSet.
func (s Set) Contains(v string) bool { return s.Has(v) }

func sep(s string) string {
	if s == "" {
		return DefaultSeparator
	}
	return s
}

// Split breaks a multi-value field into its raw tokens. An empty value
// yields one empty token.
func Split(value, separator string) []string {
	return strings.Split(value, sep(separator))
}

// IsValidEnum reports whether every token of value is an accepted value.
func IsValidEnum(value string, accepted Set, acceptBlank bool, separator string) bool {
	return blankOr(value, acceptBlank, func() bool {
		for _, tok := range Split(value, separator) {
			if !accepted.Has(tok) {
				return false
			}
		}
		return true
	})
}

// IsUniqueInField reports whether value contains no repeated tokens.
func IsUniqueInField(value, separator string) bool {
	toks := Split(value, separator)
	seen := make(map[string]struct{}, len(toks))
	for _, tok := range toks {
		if _, dup := seen[tok]; dup {
			return false
		}
		seen[tok] = struct{}{}
	}
	return true
}

// MeetsMultiValueFieldRestriction rejects values that combine one of the
// single-only codes (typically 999) with anything else.
func MeetsMultiValueFieldRestriction(value string, singleValues Set, separator string) bool {
	distinct := NewSet(Split(value, separator)...)
	hits := 0
	for tok := range distinct {
		if singleValues.Has(tok) {
			hits++
		}
	}
	if hits == 0 {
		return true
	}
	return len(distinct) == 1
}

// HasValidValueCount reports whether the number of tokens lies in
// [min, max]. A nil max leaves the upper bound open.
func HasValidValueCount(value string, min int, max *int, separator string) bool {
	n := len(Split(value, separator))
	if n < min {
		return false
	}
	return max == nil || n <= *max
}
