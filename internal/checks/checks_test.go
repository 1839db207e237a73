package checks

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func mustLimit(t *testing.T, s string) Limit {
	t.Helper()
	l, err := ParseLimit(s)
	require.NoError(t, err)
	return l
}

func TestIsNumber(t *testing.T) {
	tests := []struct {
		value       string
		acceptBlank bool
		isWhole     bool
		want        bool
	}{
		{"1", false, false, true},
		{"1.5", false, false, true},
		{" 42 ", false, true, true},
		{"1.5", false, true, false},
		{"-3", false, true, true},
		{"1e3", false, false, true},
		{"0x10", false, false, false},
		{"abc", true, false, false},
		{"", true, false, true},
		{"", false, false, false},
		{"   ", true, true, true},
		{"99999999999999999999999", false, true, true},
	}
	for _, tt := range tests {
		assert.Equalf(t, tt.want, IsNumber(tt.value, tt.acceptBlank, tt.isWhole),
			"IsNumber(%q, %v, %v)", tt.value, tt.acceptBlank, tt.isWhole)
	}
}

/*
TestAcceptBlankContract checks that every predicate taking an acceptBlank
flag returns exactly that flag for blank input, whatever its other
parameters are.
*/
func TestAcceptBlankContract(t *testing.T) {
	codes := NewSet("111")
	re := regexp.MustCompile(`^[A-Z]+$`)
	limit := mustLimit(t, "10")
	preds := map[string]func(v string, ab bool) bool{
		"IsNumber":         func(v string, ab bool) bool { return IsNumber(v, ab, true) },
		"HasCorrectLength": func(v string, ab bool) bool { return HasCorrectLength(v, 0, ab) },
		"IsValidCode":      func(v string, ab bool) bool { return IsValidCode(v, NewSet(""), ab) },
		"IsValidCodeSet":   func(v string, ab bool) bool { return IsValidCode(v, codes, ab) },
		"IsValidEnum":      func(v string, ab bool) bool { return IsValidEnum(v, NewSet("", " "), ab, "") },
		"HasValidFormat":   func(v string, ab bool) bool { return HasValidFormat(v, re, ab) },
		"IsGreaterThan":    func(v string, ab bool) bool { return IsGreaterThan(v, limit, ab) },
		"IsGreaterOrEqual": func(v string, ab bool) bool { return IsGreaterThanOrEqualTo(v, limit, ab) },
		"IsLessThan":       func(v string, ab bool) bool { return IsLessThan(v, limit, ab) },
	}
	for name, fn := range preds {
		for _, blank := range []string{"", " ", "\t"} {
			assert.Truef(t, fn(blank, true), "%s(%q, true)", name, blank)
			assert.Falsef(t, fn(blank, false), "%s(%q, false)", name, blank)
		}
	}
}

func TestLengthChecks(t *testing.T) {
	assert.True(t, HasCorrectLength("12345678901", 11, false))
	assert.False(t, HasCorrectLength("1234567890", 11, true))
	assert.True(t, TextLengthBetween("", 0, 300))
	assert.False(t, TextLengthBetween("", 21, 45))
	assert.True(t, TextLengthBetween("ÀÀÀ", 3, 3))
	assert.False(t, TextLengthBetween("ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789ABCDEFGHIJ", 21, 45))
}

func TestStringContains(t *testing.T) {
	lei := "123456789TESTBANK123"
	assert.True(t, StringContains("123456789TESTBANK12301X", &lei, nil, ptr(20)))
	assert.False(t, StringContains("923456789TESTBANK12301X", &lei, nil, ptr(20)))
	assert.False(t, StringContains("", &lei, nil, ptr(20)))
	assert.True(t, StringContains("anything", nil, nil, ptr(20)))
	assert.True(t, StringContains("abcdef", ptr("cd"), ptr(2), ptr(4)))
	assert.True(t, StringContains("abc", ptr("abc"), nil, ptr(20)))
}

func TestMultiValuePredicates(t *testing.T) {
	accepted := NewSet("1", "2", "977", "999")
	assert.True(t, IsValidEnum("1;2", accepted, false, ""))
	assert.False(t, IsValidEnum("1;3", accepted, false, ""))
	assert.False(t, IsValidEnum("1;", accepted, false, ""))

	assert.True(t, IsUniqueInField("", ""))
	assert.True(t, IsUniqueInField("1;2;3", ""))
	assert.False(t, IsUniqueInField("1;2;1", ""))

	single := NewSet("999")
	assert.True(t, MeetsMultiValueFieldRestriction("1;2", single, ""))
	assert.True(t, MeetsMultiValueFieldRestriction("999", single, ""))
	assert.True(t, MeetsMultiValueFieldRestriction("999;999", single, ""))
	assert.False(t, MeetsMultiValueFieldRestriction("1;999", single, ""))

	assert.True(t, HasValidValueCount("", 1, ptr(5), ""))
	assert.True(t, HasValidValueCount("1;2;3;4;5", 1, ptr(5), ""))
	assert.False(t, HasValidValueCount("1;2;3;4;5;6", 1, ptr(5), ""))
	assert.True(t, HasValidValueCount("1;2;3;4;5;6;7;8", 1, nil, ""))
	assert.False(t, HasValidValueCount("1", 2, nil, ""))
}

func TestComparisons(t *testing.T) {
	zero, one, max := mustLimit(t, "0"), mustLimit(t, "1"), mustLimit(t, "1200")
	assert.True(t, IsGreaterThan("0.01", zero, false))
	assert.False(t, IsGreaterThan("0", zero, false))
	assert.True(t, IsGreaterThanOrEqualTo("1", one, false))
	assert.False(t, IsGreaterThanOrEqualTo("0.999", one, false))
	assert.True(t, IsLessThan("1199", max, false))
	assert.False(t, IsLessThan("1200", max, false))
	assert.False(t, IsLessThan("lots", max, true))

	_, err := ParseLimit("ten")
	require.Error(t, err)
}

func TestDates(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"20241001", true},
		{"20240229", true},
		{"20230229", false},
		{"20231332", false},
		{"20231301", false},
		{"2023010", false},
		{"2023-01-01", false},
		{"2023010a", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equalf(t, tt.want, IsDate(tt.value), "IsDate(%q)", tt.value)
	}

	start, _ := ParseDate("20241001")
	end, _ := ParseDate("20241231")
	assert.True(t, IsDateInRange("20241001", start, end))
	assert.True(t, IsDateInRange("20241231", start, end))
	assert.False(t, IsDateInRange("20250101", start, end))
	assert.False(t, IsDateInRange("bad", start, end))

	assert.True(t, IsDateAfter("20241005", "20241005"))
	assert.True(t, IsDateAfter("20241006", "20241005"))
	assert.False(t, IsDateAfter("20241004", "20241005"))
	assert.False(t, IsDateAfter("20241004", ""))

	assert.True(t, IsDateBeforeInDays("20241001", "20230101", 730))
	assert.False(t, IsDateBeforeInDays("20241231", "20221231", 730))
	assert.False(t, IsDateBeforeInDays("20241231", "2022", 730))

	d, ok := ParseDate("20240131")
	require.True(t, ok)
	assert.Equal(t, time.January, d.Month())
}

func TestHasNoConditionalFieldConflict(t *testing.T) {
	cond := NewSet("977")
	tests := []struct {
		name           string
		value, related string
		want           bool
	}{
		{"not selected and blank", "", "988", true},
		{"selected and blank", "", "977", false},
		{"selected and present", "other product", "977", true},
		{"not selected and present", "other product", "1", false},
		{"selected among many", "text", "1;977", true},
		{"whitespace counts as blank", "  ", "977", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HasNoConditionalFieldConflict(tt.value, tt.related, cond, ""))
		})
	}
}

func TestHasValidEnumPair_FirstMatchWins(t *testing.T) {
	denial := []EnumCondition{
		{ConditionValues: NewSet("3"), IsEqualCondition: true, TargetValue: "999", ShouldEqualTarget: false},
		{ConditionValues: NewSet("3"), IsEqualCondition: false, TargetValue: "999", ShouldEqualTarget: true},
	}
	assert.True(t, HasValidEnumPair("1;2", "3", denial, ""))
	assert.False(t, HasValidEnumPair("1;999", "3", denial, ""))
	assert.True(t, HasValidEnumPair("999", "1", denial, ""))
	assert.False(t, HasValidEnumPair("1", "1", denial, ""))
	// Outside the denied branch the value must be exactly 999, not merely
	// contain it.
	assert.False(t, HasValidEnumPair("1;999", "1", denial, ""))
	assert.True(t, HasValidEnumPair(" 999 ", "1", denial, ""))

	// Overlapping branches: the first one decides even though the second
	// would fail the same row.
	overlap := []EnumCondition{
		{ConditionValues: NewSet("1", "2"), IsEqualCondition: true, TargetValue: "999", ShouldEqualTarget: true},
		{ConditionValues: NewSet("2"), IsEqualCondition: true, TargetValue: "999", ShouldEqualTarget: false},
	}
	assert.True(t, HasValidEnumPair("999", "2", overlap, ""))

	// No branch matches.
	assert.True(t, HasValidEnumPair("whatever", "5", overlap, ""))
}

func TestHasValidFieldsetPair(t *testing.T) {
	gate := NewSet("3", "4", "5")
	exp := []FieldExpectation{
		{Field: "pricing_interest_rate_type", Index: 0, Equal: true, Target: "999"},
		{Field: "pricing_origination_charges", Index: 1, Equal: true, Target: ""},
	}
	assert.True(t, HasValidFieldsetPair("1", []string{"1", "12.5"}, gate, exp))
	assert.True(t, HasValidFieldsetPair("3", []string{"999", ""}, gate, exp))
	assert.False(t, HasValidFieldsetPair("3", []string{"1", ""}, gate, exp))
	assert.False(t, HasValidFieldsetPair("4", []string{"999", "10"}, gate, exp))
	assert.False(t, HasValidFieldsetPair("5", []string{"999"}, gate, exp))
}

func TestHasValidMultiFieldValueCount(t *testing.T) {
	ignored := NewSet("977")
	assert.True(t, HasValidMultiFieldValueCount("", "1;2;3;4;5", 5, ignored, ""))
	assert.False(t, HasValidMultiFieldValueCount("six", "1;2;3;4;5", 5, ignored, ""))
	assert.True(t, HasValidMultiFieldValueCount("six", "1;2;3;4;977", 5, ignored, ""))
	assert.True(t, HasValidMultiFieldValueCount(" ; ", "1; 1 ;2", 2, ignored, ""))
}

func TestUniqueColumn(t *testing.T) {
	got := UniqueColumn([]string{"A", "B", "A", "C"})
	assert.Equal(t, []bool{false, true, false, true}, got)
	assert.Empty(t, UniqueColumn(nil))
}

func TestColumnAdapters(t *testing.T) {
	pair := Pair(IsDateAfter)
	got, err := pair([]string{"20240102", "20240101"}, [][]string{{"20240101", "20240102"}})
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false}, got)

	_, err = pair([]string{"20240102"}, nil)
	require.Error(t, err)
	_, err = pair([]string{"20240102"}, [][]string{{}})
	require.Error(t, err)

	fs := Fieldset(2, func(v string, rel []string) bool { return v == rel[0]+rel[1] })
	got, err = fs([]string{"ab", "xy"}, [][]string{{"a", "x"}, {"b", "z"}})
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false}, got)
}
