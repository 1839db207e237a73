// Package findings defines the validation output: one Finding per failing
// (record, field) pair and the severity by scope counts derived from them.
package findings

import (
	"sort"

	"sblar/internal/rules"
)

// Finding is one failure of one check on one field of one record.
//
// Detailed is false for the lightweight records produced once the error
// budget is spent. Those carry the primary column name but no value and
// exist only so that counts stay exact.
type Finding struct {
	ValidationID string
	RecordNo     int
	UID          string
	FieldName    string
	FieldValue   string
	Severity     rules.Severity
	Scope        rules.Scope
	Phase        rules.Phase
	Detailed     bool
}

// key identifies one failure: a check on a record.
type key struct {
	id  string
	rec int
}

// Counts splits failures by scope.
type Counts struct {
	SingleField int `json:"single_field_count"`
	MultiField  int `json:"multi_field_count"`
	Register    int `json:"register_count"`
	Total       int `json:"total_count"`
}

// Summary holds the error and warning counts of a findings set.
type Summary struct {
	Errors   Counts `json:"errors"`
	Warnings Counts `json:"warnings"`
}

// Total is the number of failures of any severity.
func (s Summary) Total() int { return s.Errors.Total + s.Warnings.Total }

// Add merges o into s.
func (s *Summary) Add(o Summary) {
	s.Errors.add(o.Errors)
	s.Warnings.add(o.Warnings)
}

func (c *Counts) add(o Counts) {
	c.SingleField += o.SingleField
	c.MultiField += o.MultiField
	c.Register += o.Register
	c.Total += o.Total
}

func (c *Counts) inc(scope rules.Scope) {
	switch scope {
	case rules.ScopeSingleField:
		c.SingleField++
	case rules.ScopeMultiField:
		c.MultiField++
	case rules.ScopeRegister:
		c.Register++
	}
	c.Total++
}

// Tally counts the distinct (validation id, record) failures in fs by
// severity and scope. Field explosion and detail suppression do not change
// the result.
func Tally(fs []Finding) Summary {
	var s Summary
	seen := make(map[key]struct{}, len(fs))
	for _, f := range fs {
		k := key{f.ValidationID, f.RecordNo}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		switch f.Severity {
		case rules.SeverityError:
			s.Errors.inc(f.Scope)
		case rules.SeverityWarning:
			if f.Scope == rules.ScopeRegister {
				// register warnings do not exist; count them without a bucket
				s.Warnings.Total++
				continue
			}
			s.Warnings.inc(f.Scope)
		}
	}
	return s
}

// Failures returns the number of distinct failures in fs.
func Failures(fs []Finding) int {
	seen := make(map[key]struct{}, len(fs))
	for _, f := range fs {
		seen[key{f.ValidationID, f.RecordNo}] = struct{}{}
	}
	return len(seen)
}

// Detailed returns the findings that carry field detail.
func Detailed(fs []Finding) []Finding {
	out := make([]Finding, 0, len(fs))
	for _, f := range fs {
		if f.Detailed {
			out = append(out, f)
		}
	}
	return out
}

// Sort orders findings by validation id, record number and field name so
// that equal sets compare equal.
func Sort(fs []Finding) {
	sort.SliceStable(fs, func(i, j int) bool {
		a, b := fs[i], fs[j]
		if a.ValidationID != b.ValidationID {
			return a.ValidationID < b.ValidationID
		}
		if a.RecordNo != b.RecordNo {
			return a.RecordNo < b.RecordNo
		}
		return a.FieldName < b.FieldName
	})
}
