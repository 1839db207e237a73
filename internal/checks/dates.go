package checks

import "time"

// DateLayout is the YYYYMMDD layout used by every date field.
const DateLayout = "20060102"

// ParseDate parses an 8-digit YYYYMMDD string into a calendar date.
func ParseDate(value string) (time.Time, bool) {
	if len(value) != 8 {
		return time.Time{}, false
	}
	for i := 0; i < len(value); i++ {
		if value[i] < '0' || value[i] > '9' {
			return time.Time{}, false
		}
	}
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// IsDate reports whether value is a real YYYYMMDD date.
func IsDate(value string) bool {
	_, ok := ParseDate(value)
	return ok
}

// IsDateInRange reports start <= value <= end.
func IsDateInRange(value string, start, end time.Time) bool {
	d, ok := ParseDate(value)
	if !ok {
		return false
	}
	return !d.Before(start) && !d.After(end)
}

// IsDateAfter reports related <= value, for example an action taken date
// that does not precede the application date.
func IsDateAfter(value, related string) bool {
	d, ok := ParseDate(value)
	if !ok {
		return false
	}
	r, ok := ParseDate(related)
	if !ok {
		return false
	}
	return !r.After(d)
}

// IsDateBeforeInDays reports value < related + days.
func IsDateBeforeInDays(value, related string, days int) bool {
	d, ok := ParseDate(value)
	if !ok {
		return false
	}
	r, ok := ParseDate(related)
	if !ok {
		return false
	}
	return d.Before(r.AddDate(0, 0, days))
}
