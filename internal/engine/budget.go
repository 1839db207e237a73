package engine

import (
	"sblar/internal/findings"
)

// Budget bounds the number of failures reported with field detail in one
// phase. Counting is never bounded; once the budget is spent the remaining
// failures are kept as lightweight findings.
type Budget struct {
	max    int
	total  int
	detail bool
}

// NewBudget returns a budget of max detailed failures. max <= 0 disables
// the limit.
func NewBudget(max int) *Budget {
	return &Budget{max: max, detail: true}
}

// Detail reports whether the next chunk should be validated with detail.
func (b *Budget) Detail() bool { return b.detail }

// Total is the number of failures charged so far.
func (b *Budget) Total() int { return b.total }

// Charge accounts for res. Failures past the boundary lose their detail and
// res is marked truncated; detail stays off for the rest of the phase. The
// summary of res is unchanged.
func (b *Budget) Charge(res *Result) {
	n := findings.Failures(res.Findings)
	if !b.detail {
		b.total += n
		if n > 0 {
			res.Truncated = true
		}
		return
	}
	if b.max > 0 && b.total+n > b.max {
		res.Findings = collapse(res.Findings, b.max-b.total)
		res.Truncated = true
		b.detail = false
	}
	b.total += n
}

// collapse keeps the detail of the first keep failures of fs and replaces
// every later failure by a single lightweight finding on its primary column.
// Findings of one failure are contiguous, primary field first.
func collapse(fs []findings.Finding, keep int) []findings.Finding {
	out := make([]findings.Finding, 0, len(fs))
	seen := 0
	var last findings.Finding
	for i, f := range fs {
		same := i > 0 && f.ValidationID == last.ValidationID && f.RecordNo == last.RecordNo
		last = f
		if !same {
			seen++
		}
		if seen <= keep {
			out = append(out, f)
			continue
		}
		if same {
			continue
		}
		f.FieldValue = ""
		f.Detailed = false
		out = append(out, f)
	}
	return out
}
