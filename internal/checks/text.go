package checks

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// CodeSet is a read-only lookup table such as the NAICS or census GEOID list.
type CodeSet interface {
	Contains(code string) bool
}

// IsBlank reports whether s is empty once surrounding whitespace is removed.
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// blankOr returns acceptBlank for blank input and result otherwise.
func blankOr(value string, acceptBlank bool, result func() bool) bool {
	if IsBlank(value) {
		return acceptBlank
	}
	return result()
}

// IsNumber reports whether value parses as a float, or as an integer when
// isWhole is set. Out-of-range integers still count as numbers.
func IsNumber(value string, acceptBlank, isWhole bool) bool {
	return blankOr(value, acceptBlank, func() bool {
		s := strings.TrimSpace(value)
		if isWhole {
			_, err := strconv.ParseInt(s, 10, 64)
			return err == nil || errors.Is(err, strconv.ErrRange)
		}
		if strings.ContainsAny(s, "xX") {
			return false
		}
		_, err := strconv.ParseFloat(s, 64)
		return err == nil || errors.Is(err, strconv.ErrRange)
	})
}

// HasCorrectLength reports whether value is exactly length characters long.
func HasCorrectLength(value string, length int, acceptBlank bool) bool {
	return blankOr(value, acceptBlank, func() bool {
		return utf8.RuneCountInString(value) == length
	})
}

// TextLengthBetween reports whether the character length of value lies in
// [min, max]. Blank values are measured like any other.
func TextLengthBetween(value string, min, max int) bool {
	n := utf8.RuneCountInString(value)
	return n >= min && n <= max
}

// IsValidCode reports whether value is a key of codes.
func IsValidCode(value string, codes CodeSet, acceptBlank bool) bool {
	return blankOr(value, acceptBlank, func() bool {
		return codes != nil && codes.Contains(value)
	})
}

// HasValidFormat reports whether value matches re.
func HasValidFormat(value string, re *regexp.Regexp, acceptBlank bool) bool {
	return blankOr(value, acceptBlank, func() bool {
		return re.MatchString(value)
	})
}

// StringContains compares value[start:end] with containing. A nil
// containing value means the comparison is not configured and passes. start
// and end are optional byte offsets, clamped to the value length.
func StringContains(value string, containing *string, start, end *int) bool {
	if containing == nil {
		return true
	}
	lo, hi := 0, len(value)
	if start != nil {
		lo = clamp(*start, len(value))
	}
	if end != nil {
		hi = clamp(*end, len(value))
	}
	if lo > hi {
		return *containing == ""
	}
	return value[lo:hi] == *containing
}

func clamp(i, n int) int {
	if i < 0 {
		i += n
		if i < 0 {
			return 0
		}
	}
	if i > n {
		return n
	}
	return i
}
