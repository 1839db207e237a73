package checks

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Limit is a pre-parsed comparison bound.
type Limit struct {
	raw string
	d   decimal.Decimal
}

// ParseLimit parses a catalog bound such as "0" or "1200".
func ParseLimit(s string) (Limit, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Limit{}, err
	}
	return Limit{raw: s, d: d}, nil
}

func (l Limit) String() string { return l.raw }

// compare returns value <=> limit. ok is false when value is not a number.
func compare(value string, limit Limit) (int, bool) {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return 0, false
	}
	return d.Cmp(limit.d), true
}

// IsGreaterThan reports value > limit.
func IsGreaterThan(value string, limit Limit, acceptBlank bool) bool {
	return blankOr(value, acceptBlank, func() bool {
		c, ok := compare(value, limit)
		return ok && c > 0
	})
}

// IsGreaterThanOrEqualTo reports value >= limit.
func IsGreaterThanOrEqualTo(value string, limit Limit, acceptBlank bool) bool {
	return blankOr(value, acceptBlank, func() bool {
		c, ok := compare(value, limit)
		return ok && c >= 0
	})
}

// IsLessThan reports value < limit.
func IsLessThan(value string, limit Limit, acceptBlank bool) bool {
	return blankOr(value, acceptBlank, func() bool {
		c, ok := compare(value, limit)
		return ok && c < 0
	})
}
